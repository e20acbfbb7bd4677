// Package checksum implements the integrity and masking primitives shared by
// the drawing file transport layer: the legacy 16-bit table CRC used for
// object-map chunks and sequential file headers, the reflected CRC-32 of the
// encrypted header block, the per-page rolling checksum of the paged layouts,
// and the pseudo-random byte sequence used for padding and masking.
package checksum

import (
	"fmt"
	"hash/crc32"
)

// ChecksumMismatchError reports a stored checksum that does not match the
// value recomputed from the data it covers.
type ChecksumMismatchError struct {
	Expected uint32
	Actual   uint32
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("checksum mismatch: expected 0x%X, actual 0x%X", e.Expected, e.Actual)
}

// crc8Table is the reflected CRC-16 table (polynomial 0xA001) behind the
// format's historically named 8-bit CRC. Built once at package init, it
// matches the constant table shipped in reference implementations.
var crc8Table = buildCrc8Table()

func buildCrc8Table() [256]uint16 {
	var table [256]uint16
	for i := range table {
		crc := uint16(i)
		for bit := 0; bit < 8; bit++ {
			if crc&1 != 0 {
				crc = (crc >> 1) ^ 0xA001
			} else {
				crc >>= 1
			}
		}
		table[i] = crc
	}
	return table
}

// Crc8Seed is the seed used for object-map chunks and sequential file headers.
const Crc8Seed uint16 = 0xC0C1

// Crc8 computes the format's 16-bit table CRC. The name is historical: the
// drawing format documentation calls this "CRC8" even though it produces a
// 16-bit value.
func Crc8(seed uint16, data []byte) uint16 {
	crc := seed
	for _, b := range data {
		idx := byte(crc) ^ b
		crc = (crc >> 8) ^ crc8Table[idx]
	}
	return crc
}

// Crc32 computes the reflected CRC-32 (polynomial 0xEDB88320) with pre- and
// post-inversion, continuing from seed.
func Crc32(seed uint32, data []byte) uint32 {
	return crc32.Update(seed, crc32.IEEETable, data)
}

// MagicSequence is the 256-byte pseudo-random sequence used to pad page
// boundaries and to mask the encrypted header block. It is the byte stream
// of the header keystream generator run from its initial state.
var MagicSequence = buildMagicSequence()

func buildMagicSequence() [256]byte {
	var seq [256]byte
	state := int32(1)
	for i := range seq {
		state = state*0x343FD + 0x269EC3
		seq[i] = byte(state >> 16)
	}
	return seq
}

// HeaderKeystream XORs buf in place with the linear-congruential keystream
// used for the encrypted header block of the paged layouts. The operation is
// an involution: applying it twice restores the original bytes.
func HeaderKeystream(buf []byte) {
	state := int32(1)
	for i := range buf {
		state = state*0x343FD + 0x269EC3
		buf[i] ^= byte(state >> 16)
	}
}

// ApplyMagicSequence XORs buf in place with the magic sequence, repeating the
// sequence every 256 bytes. Also an involution.
func ApplyMagicSequence(buf []byte) {
	for i := range buf {
		buf[i] ^= MagicSequence[i&0xFF]
	}
}

// pageChecksum chunking bounds the 16-bit accumulators before reduction.
const pageChecksumChunk = 0x15B0

// PageChecksum computes the rolling per-page checksum of the paged layouts.
// It is Adler-style: two 16-bit sums reduced modulo 0xFFF1, chained through
// seed so header and payload can be folded into one value.
func PageChecksum(seed uint32, data []byte) uint32 {
	sum1 := seed & 0xFFFF
	sum2 := seed >> 16

	for len(data) > 0 {
		n := len(data)
		if n > pageChecksumChunk {
			n = pageChecksumChunk
		}
		for _, b := range data[:n] {
			sum1 += uint32(b)
			sum2 += sum1
		}
		sum1 %= 0xFFF1
		sum2 %= 0xFFF1
		data = data[n:]
	}

	return (sum2 << 16) | (sum1 & 0xFFFF)
}

// CompressionPadding returns how many bytes are needed to round length up to
// the next 0x20 boundary.
func CompressionPadding(length int) int {
	return ((length + 0x1F) &^ 0x1F) - length
}
