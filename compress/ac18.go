package compress

import "fmt"

// Ac18Codec implements the LZ77 variant used by the 2004-generation paged
// layouts (AC1018, AC1024, AC1027 and AC1032). Section pages and the section
// map itself are stored in this encoding.
//
// The stream is a sequence of opcodes terminated by 0x11. Each opcode either
// copies literal bytes from the input or replays a run from earlier in the
// output. Back-references may overlap their own output, which is how runs of
// a repeating pattern are encoded.
type Ac18Codec struct{}

var _ PageCodec = (*Ac18Codec)(nil)

// NewAc18Codec creates a codec for the 2004-generation page encoding.
func NewAc18Codec() Ac18Codec {
	return Ac18Codec{}
}

// Decompress expands data into at most decompressedSize bytes. Every opcode,
// literal run and back-reference is validated against the slice bounds, so
// corrupted or adversarial input yields ErrDecompression rather than a panic.
func (c Ac18Codec) Decompress(data []byte, decompressedSize int) ([]byte, error) {
	if decompressedSize < 0 {
		return nil, fmt.Errorf("%w: negative decompressed size %d", ErrDecompression, decompressedSize)
	}

	d := ac18Decoder{src: data}
	dst := make([]byte, 0, decompressedSize)

	op, err := d.readByte()
	if err != nil {
		return nil, err
	}
	if op&0xF0 == 0 {
		count, err := d.literalCount(op)
		if err != nil {
			return nil, err
		}
		dst, op, err = d.copyLiterals(dst, count+3, decompressedSize)
		if err != nil {
			return nil, err
		}
	}

	// 0x11 terminates the stream.
	for op != 0x11 {
		var compOffset, compBytes int

		switch {
		case op < 0x10 || op >= 0x40:
			compBytes = int(op>>4) - 1
			op2, err := d.readByte()
			if err != nil {
				return nil, err
			}
			compOffset = (int(op)>>2&3 | int(op2)<<2) + 1
		case op < 0x20:
			compBytes, err = d.compressedBytes(op, 0x07)
			if err != nil {
				return nil, err
			}
			compOffset = int(op&8) << 11
			op, err = d.twoByteOffset(&compOffset, 0x4000)
			if err != nil {
				return nil, err
			}
		default:
			compBytes, err = d.compressedBytes(op, 0x1F)
			if err != nil {
				return nil, err
			}
			compOffset = 0
			op, err = d.twoByteOffset(&compOffset, 1)
			if err != nil {
				return nil, err
			}
		}

		if compOffset <= 0 || compOffset > len(dst) {
			return nil, fmt.Errorf("%w: back-reference offset %d exceeds %d produced bytes",
				ErrDecompression, compOffset, len(dst))
		}
		if compBytes < 0 || len(dst)+compBytes > decompressedSize {
			return nil, fmt.Errorf("%w: back-reference run of %d bytes overflows output",
				ErrDecompression, compBytes)
		}

		// Byte-at-a-time replay keeps overlapping references correct: the
		// source window grows as the run is written.
		start := len(dst) - compOffset
		for i := 0; i < compBytes; i++ {
			dst = append(dst, dst[start+i])
		}

		litCount := int(op & 3)
		if litCount == 0 {
			op, err = d.readByte()
			if err != nil {
				return nil, err
			}
			if op&0xF0 == 0 {
				count, err := d.literalCount(op)
				if err != nil {
					return nil, err
				}
				litCount = count + 3
			}
		}

		if litCount > 0 {
			dst, op, err = d.copyLiterals(dst, litCount, decompressedSize)
			if err != nil {
				return nil, err
			}
		}
	}

	// A short stream leaves the tail of the page zeroed.
	for len(dst) < decompressedSize {
		dst = append(dst, 0)
	}

	return dst, nil
}

type ac18Decoder struct {
	src []byte
	pos int
}

func (d *ac18Decoder) readByte() (byte, error) {
	if d.pos >= len(d.src) {
		return 0, fmt.Errorf("%w: truncated stream at byte %d", ErrDecompression, d.pos)
	}
	b := d.src[d.pos]
	d.pos++

	return b, nil
}

// copyLiterals appends count input bytes to dst and returns the next opcode.
func (d *ac18Decoder) copyLiterals(dst []byte, count, decompressedSize int) ([]byte, byte, error) {
	if count < 0 || d.pos+count > len(d.src) {
		return dst, 0, fmt.Errorf("%w: literal run of %d bytes exceeds input", ErrDecompression, count)
	}
	if len(dst)+count > decompressedSize {
		return dst, 0, fmt.Errorf("%w: literal run of %d bytes overflows output", ErrDecompression, count)
	}

	dst = append(dst, d.src[d.pos:d.pos+count]...)
	d.pos += count

	op, err := d.readByte()

	return dst, op, err
}

// literalCount decodes a literal run length. A zero low nibble extends the
// count: each 0x00 byte adds 0xFF, the first non-zero byte adds 0x0F plus
// its own value.
func (d *ac18Decoder) literalCount(code byte) (int, error) {
	count := int(code & 0x0F)
	if count != 0 {
		return count, nil
	}

	b, err := d.readByte()
	if err != nil {
		return 0, err
	}
	for b == 0 {
		count += 0xFF
		if b, err = d.readByte(); err != nil {
			return 0, err
		}
	}

	return count + 0x0F + int(b), nil
}

// compressedBytes decodes a back-reference run length, extended the same way
// as literalCount when the masked bits are zero.
func (d *ac18Decoder) compressedBytes(op, validBits byte) (int, error) {
	count := int(op & validBits)
	if count == 0 {
		b, err := d.readByte()
		if err != nil {
			return 0, err
		}
		for b == 0 {
			count += 0xFF
			if b, err = d.readByte(); err != nil {
				return 0, err
			}
		}
		count += int(b) + int(validBits)
	}

	return count + 2, nil
}

// twoByteOffset folds a two-byte offset into *offset and returns the first
// byte, whose low bits carry the next opcode.
func (d *ac18Decoder) twoByteOffset(offset *int, addedValue int) (byte, error) {
	first, err := d.readByte()
	if err != nil {
		return 0, err
	}
	second, err := d.readByte()
	if err != nil {
		return 0, err
	}

	*offset |= int(first) >> 2
	*offset |= int(second) << 6
	*offset += addedValue

	return first, nil
}

// Compress encodes data with a greedy hash-chained match finder. The output
// always ends with the 0x11 terminator and round-trips through Decompress.
//
// The opcode grammar cannot open a stream with a literal run shorter than
// four bytes, so inputs of one to three bytes return ErrShortInput. The
// page writers never hit this: pages are padded to the page cap before
// compression, and an empty input encodes as the bare terminator.
func (c Ac18Codec) Compress(data []byte) ([]byte, error) {
	if len(data) > 0 && len(data) < 4 {
		return nil, fmt.Errorf("%w: %d bytes, the smallest opening literal run is 4", ErrShortInput, len(data))
	}

	e := &ac18Encoder{src: data}
	for i := range e.block {
		e.block[i] = -1
	}

	return e.compress(), nil
}

// ac18Encoder holds the per-call match table. The table maps a hash of four
// input bytes to the last position that hashed there; it is not shared
// between calls so Compress stays safe for concurrent use on the codec value.
type ac18Encoder struct {
	src          []byte
	block        [0x8000]int32
	currPosition int
	currOffset   int
	dst          []byte
}

func (e *ac18Encoder) compress() []byte {
	total := len(e.src)
	e.currOffset = 0
	e.currPosition = 4

	compressionOffset := 0
	matchPos := 0

	var matchLen, candidatePos int
	for e.currPosition+0x13 < total {
		if !e.matchChunk(&matchLen, &candidatePos) {
			e.currPosition++
			continue
		}

		// Literal bytes pending since the previous match.
		mask := e.currPosition - e.currOffset

		if compressionOffset != 0 {
			e.applyMask(matchPos, compressionOffset, mask)
		}

		e.writeLiteralLength(mask)
		e.currPosition += matchLen
		e.currOffset = e.currPosition
		compressionOffset = matchLen
		matchPos = candidatePos
	}

	literalLength := total - e.currOffset
	if compressionOffset != 0 {
		e.applyMask(matchPos, compressionOffset, literalLength)
	}
	e.writeLiteralLength(literalLength)

	e.dst = append(e.dst, 0x11, 0, 0)

	return e.dst
}

// matchChunk probes the hash table at the current position. On success it
// yields the match length and the backward distance to the earlier copy.
func (e *ac18Encoder) matchChunk(matchLen, matchPos *int) bool {
	*matchLen = 0

	if e.currPosition+3 >= len(e.src) {
		return false
	}

	v1 := int32(e.src[e.currPosition+3]) << 6
	v2 := v1 ^ int32(e.src[e.currPosition+2])
	v3 := (v2 << 5) ^ int32(e.src[e.currPosition+1])
	v4 := (v3 << 5) ^ int32(e.src[e.currPosition])
	index := int((v4 + (v4 >> 5)) & 0x7FFF)

	value := int(e.block[index])
	*matchPos = e.currPosition - value

	if value >= 0 && *matchPos <= 0xBFFF {
		if *matchPos > 0x400 && e.src[e.currPosition+3] != e.src[value+3] {
			// Distant candidate with a cheap mismatch, re-probe once at the
			// alternate slot before giving up.
			index = (index & 0x7FF) ^ 0x401F
			value = int(e.block[index])
			*matchPos = e.currPosition - value
			if value < 0 || *matchPos > 0xBFFF ||
				(*matchPos > 0x400 && e.src[e.currPosition+3] != e.src[value+3]) {
				e.block[index] = int32(e.currPosition)
				return false
			}
		}

		value = int(e.block[index])
		if e.src[e.currPosition] == e.src[value] &&
			e.src[e.currPosition+1] == e.src[value+1] &&
			e.src[e.currPosition+2] == e.src[value+2] {
			*matchLen = 3
			idx := value + 3
			pos := e.currPosition + 3
			for pos < len(e.src) && idx < len(e.src) && e.src[idx] == e.src[pos] {
				*matchLen++
				idx++
				pos++
			}
		}
	}

	e.block[index] = int32(e.currPosition)

	return *matchLen >= 3
}

func (e *ac18Encoder) writeLen(length int) {
	for length > 0xFF {
		length -= 0xFF
		e.dst = append(e.dst, 0)
	}
	e.dst = append(e.dst, byte(length))
}

func (e *ac18Encoder) writeOpCode(opCode, compressionOffset, value int) {
	if compressionOffset <= value {
		e.dst = append(e.dst, byte(opCode|(compressionOffset-2)))
	} else {
		e.dst = append(e.dst, byte(opCode))
		e.writeLen(compressionOffset - value)
	}
}

func (e *ac18Encoder) writeLiteralLength(length int) {
	if length <= 0 {
		return
	}

	if length > 3 {
		e.writeOpCode(0, length-1, 0x11)
	}
	e.dst = append(e.dst, e.src[e.currOffset:e.currOffset+length]...)
}

// applyMask emits the two offset bytes of the previous match, folding the
// pending literal count into the low bits when it fits.
func (e *ac18Encoder) applyMask(matchPos, compressionOffset, mask int) {
	var curr, next int

	if compressionOffset >= 0x0F || matchPos > 0x400 {
		if matchPos <= 0x4000 {
			matchPos--
			e.writeOpCode(0x20, compressionOffset, 0x21)
		} else {
			matchPos -= 0x4000
			e.writeOpCode(0x10|((matchPos>>11)&8), compressionOffset, 0x09)
		}

		curr = (matchPos & 0xFF) << 2
		next = matchPos >> 6
	} else {
		matchPos--
		curr = ((compressionOffset + 1) << 4) | ((matchPos & 3) << 2)
		next = matchPos >> 2
	}

	if mask < 4 {
		curr |= mask
	}

	e.dst = append(e.dst, byte(curr), byte(next))
}
