// Package handlemap implements the object-map codec: the table mapping
// every object handle to its byte offset in the object data, stored as
// delta-encoded chunks of at most 2032 bytes.
//
// Each chunk opens with a 2-byte big-endian size counting the prefix and
// payload, carries interleaved unsigned handle deltas and signed offset
// deltas in modular-char form, and closes with a 2-byte big-endian CRC
// over the prefix and payload. Deltas restart from the absolute values at
// every chunk boundary. An empty chunk terminates the table.
package handlemap

import (
	"fmt"
	"slices"

	"github.com/draftbench/dwgio/bitcode"
	"github.com/draftbench/dwgio/checksum"
	"github.com/draftbench/dwgio/format"
)

// chunkCapacity is the byte limit of one chunk, size prefix included.
const chunkCapacity = 2032

// Codec encodes and decodes the handle-to-offset object map.
type Codec struct {
	version format.Version
}

// NewCodec creates a codec for the given drawing version.
func NewCodec(version format.Version) *Codec {
	return &Codec{version: version}
}

// appendModularChar appends an unsigned value in 7-bit groups, high bit
// flagging continuation.
func appendModularChar(dst []byte, value uint64) []byte {
	for value >= 0x80 {
		dst = append(dst, byte(value&0x7F)|0x80)
		value >>= 7
	}

	return append(dst, byte(value))
}

// appendSignedModularChar appends a signed value; the final byte carries
// the sign in bit 6.
func appendSignedModularChar(dst []byte, value int64) []byte {
	if value < 0 {
		value = -value
		for value >= 0x40 {
			dst = append(dst, byte(value&0x7F)|0x80)
			value >>= 7
		}
		return append(dst, byte(value)|0x40)
	}

	for value >= 0x40 {
		dst = append(dst, byte(value&0x7F)|0x80)
		value >>= 7
	}

	return append(dst, byte(value))
}

// finalizeChunk back-patches the big-endian self-inclusive size into the
// reserved prefix and appends the big-endian CRC trailer.
func finalizeChunk(output []byte, chunkStart int) []byte {
	size := uint16(len(output) - chunkStart)
	output[chunkStart] = byte(size >> 8)
	output[chunkStart+1] = byte(size)

	crc := checksum.Crc8(checksum.Crc8Seed, output[chunkStart:])

	return append(output, byte(crc>>8), byte(crc))
}

// Encode serializes the handle map in ascending handle order.
// sectionOffset is added to every offset; paged layouts store offsets
// relative to the start of the object data section.
func (c *Codec) Encode(entries map[uint64]int64, sectionOffset int64) []byte {
	var output []byte
	var prevHandle uint64
	var prevLoc int64

	chunkStart := len(output)
	output = append(output, 0, 0)

	handles := make([]uint64, 0, len(entries))
	for handle := range entries {
		handles = append(handles, handle)
	}
	slices.Sort(handles)

	for _, handle := range handles {
		loc := entries[handle] + sectionOffset

		entry := appendModularChar(nil, handle-prevHandle)
		entry = appendSignedModularChar(entry, loc-prevLoc)

		if len(output)-chunkStart+len(entry) > chunkCapacity {
			output = finalizeChunk(output, chunkStart)

			chunkStart = len(output)
			output = append(output, 0, 0)

			// Deltas restart from the absolute values.
			entry = appendModularChar(nil, handle)
			entry = appendSignedModularChar(entry, loc)
		}

		output = append(output, entry...)
		prevHandle = handle
		prevLoc = loc
	}

	output = finalizeChunk(output, chunkStart)

	// Empty terminating chunk.
	chunkStart = len(output)
	output = append(output, 0, 0)

	return finalizeChunk(output, chunkStart)
}

// Decode rebuilds the handle map, verifying every chunk CRC. Entries with
// a zero handle delta are skipped: a repeated handle is a dangling
// reference, not a valid map entry.
func (c *Codec) Decode(data []byte) (map[uint64]int64, error) {
	entries := make(map[uint64]int64)
	r := bitcode.NewReader(data, c.version)

	for {
		var lastHandle uint64
		var lastLoc int64

		chunkStart := r.Position()

		hi, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		lo, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		size := int(hi)<<8 | int(lo)

		if chunkStart+size > len(data) {
			return nil, fmt.Errorf("object map chunk at %d: size %d exceeds data", chunkStart, size)
		}
		computed := checksum.Crc8(checksum.Crc8Seed, data[chunkStart:chunkStart+size])

		if size == 2 {
			if err := verifyChunkCrc(r, computed); err != nil {
				return nil, err
			}
			break
		}

		maxSectionOffset := size - 2
		if maxSectionOffset > chunkCapacity {
			maxSectionOffset = chunkCapacity
		}
		lastPosition := r.Position() + maxSectionOffset

		for r.Position() < lastPosition {
			handleDelta, err := r.ReadModularChar()
			if err != nil {
				return nil, err
			}
			lastHandle += handleDelta

			locDelta, err := r.ReadSignedModularChar()
			if err != nil {
				return nil, err
			}
			lastLoc += locDelta

			if handleDelta > 0 {
				entries[lastHandle] = lastLoc
			}
		}

		if err := verifyChunkCrc(r, computed); err != nil {
			return nil, err
		}
	}

	return entries, nil
}

func verifyChunkCrc(r *bitcode.Reader, computed uint16) error {
	hi, err := r.ReadByte()
	if err != nil {
		return err
	}
	lo, err := r.ReadByte()
	if err != nil {
		return err
	}

	stored := uint16(hi)<<8 | uint16(lo)
	if stored != computed {
		return &checksum.ChecksumMismatchError{
			Expected: uint32(stored),
			Actual:   uint32(computed),
		}
	}

	return nil
}
