package compress

import "fmt"

// Ac21Codec implements the LZ77 variant used exclusively by the AC1021
// (R2007) layout. Its opcode table differs from the 2004-generation one:
// runs are selected by the top nibble of the opcode and trailing literal
// counts ride in the low three bits of the last instruction byte.
//
// The codec is decompression only. The writer stores AC1021 data pages
// uncompressed and marks them by equal compressed and decompressed sizes;
// the one block it must emit in this encoding, the file-header metadata,
// is produced by EncodeAc21Literal.
type Ac21Codec struct{}

var _ PageCodec = (*Ac21Codec)(nil)

// NewAc21Codec creates a codec for the R2007 page encoding.
func NewAc21Codec() Ac21Codec {
	return Ac21Codec{}
}

// Compress is not supported for this variant.
func (c Ac21Codec) Compress(data []byte) ([]byte, error) {
	return nil, fmt.Errorf("%w: R2007 page compression", ErrNotImplemented)
}

// Decompress expands data into exactly decompressedSize bytes. Instructions
// are bounds-checked on both sides: a back-reference reaching before the
// start of the produced output, a literal run past the end of the input, or
// any run overflowing the output returns ErrDecompression.
func (c Ac21Codec) Decompress(data []byte, decompressedSize int) ([]byte, error) {
	if decompressedSize < 0 {
		return nil, fmt.Errorf("%w: negative decompressed size %d", ErrDecompression, decompressedSize)
	}

	d := &ac21Decoder{src: data, dst: make([]byte, decompressedSize)}
	if err := d.run(); err != nil {
		return nil, err
	}

	return d.dst, nil
}

type ac21Decoder struct {
	src          []byte
	dst          []byte
	srcIndex     int
	destIndex    int
	sourceOffset int
	length       int
	opCode       int
}

func (d *ac21Decoder) readByte() (int, error) {
	if d.srcIndex >= len(d.src) {
		return 0, fmt.Errorf("%w: truncated stream at byte %d", ErrDecompression, d.srcIndex)
	}
	b := int(d.src[d.srcIndex])
	d.srcIndex++

	return b, nil
}

func (d *ac21Decoder) run() error {
	if len(d.src) == 0 {
		return nil
	}

	d.opCode = int(d.src[0])
	d.srcIndex = 1
	if d.srcIndex >= len(d.src) {
		return nil
	}

	if d.opCode&0xF0 == 0x20 {
		d.srcIndex += 3
		if d.srcIndex > len(d.src) {
			return fmt.Errorf("%w: truncated initial instruction", ErrDecompression)
		}
		d.length = int(d.src[d.srcIndex-1]) & 7
	}

	for d.srcIndex < len(d.src) {
		if err := d.copyLiteralRun(); err != nil {
			return err
		}
		if d.srcIndex >= len(d.src) {
			break
		}
		if err := d.copyChunks(); err != nil {
			return err
		}
	}

	return nil
}

// copyLiteralRun copies the pending literal run from the input. A zero
// pending length means the current opcode carries the run length itself.
func (d *ac21Decoder) copyLiteralRun() error {
	if d.length == 0 {
		if err := d.readLiteralLength(); err != nil {
			return err
		}
	}

	if d.srcIndex+d.length > len(d.src) {
		return fmt.Errorf("%w: literal run of %d bytes exceeds input", ErrDecompression, d.length)
	}
	if d.destIndex+d.length > len(d.dst) {
		return fmt.Errorf("%w: literal run of %d bytes overflows output", ErrDecompression, d.length)
	}

	copy(d.dst[d.destIndex:], d.src[d.srcIndex:d.srcIndex+d.length])
	d.srcIndex += d.length
	d.destIndex += d.length

	return nil
}

// copyChunks replays consecutive back-reference instructions until one
// carries a trailing literal count or the input runs out.
func (d *ac21Decoder) copyChunks() error {
	d.length = 0

	op, err := d.readByte()
	if err != nil {
		return err
	}
	d.opCode = op

	if err := d.readInstructions(); err != nil {
		return err
	}

	for {
		if err := d.copyBackward(); err != nil {
			return err
		}

		d.length = d.opCode & 0x07
		if d.length != 0 || d.srcIndex >= len(d.src) {
			break
		}

		if op, err = d.readByte(); err != nil {
			return err
		}
		d.opCode = op

		// A zero top nibble here is a literal-length indicator, not another
		// back-reference; leave it for the next literal run.
		if d.opCode>>4 == 0 {
			break
		}
		if d.opCode>>4 == 15 {
			d.opCode &= 15
		}

		if err := d.readInstructions(); err != nil {
			return err
		}
	}

	return nil
}

// readInstructions decodes one back-reference instruction, selected by the
// top nibble of the current opcode, into length and sourceOffset.
func (d *ac21Decoder) readInstructions() error {
	var b1, b2 int
	var err error

	switch d.opCode >> 4 {
	case 0:
		d.length = d.opCode&0xF + 0x13
		if b1, err = d.readByte(); err != nil {
			return err
		}
		if b2, err = d.readByte(); err != nil {
			return err
		}
		d.opCode = b2
		d.length += (b2 >> 3) & 0x10
		d.sourceOffset = (b2&0x78)<<5 + 1 + b1
	case 1:
		d.length = d.opCode&0xF + 3
		if b1, err = d.readByte(); err != nil {
			return err
		}
		if b2, err = d.readByte(); err != nil {
			return err
		}
		d.opCode = b2
		d.sourceOffset = (b2&0xF8)<<5 + 1 + b1
	case 2:
		if b1, err = d.readByte(); err != nil {
			return err
		}
		if b2, err = d.readByte(); err != nil {
			return err
		}
		d.sourceOffset = b2<<8&0xFF00 | b1
		d.length = d.opCode & 7
		if d.opCode&8 == 0 {
			if b1, err = d.readByte(); err != nil {
				return err
			}
			d.opCode = b1
			d.length += b1 & 0xF8
		} else {
			d.sourceOffset++
			if b1, err = d.readByte(); err != nil {
				return err
			}
			d.length += b1 << 3
			if b2, err = d.readByte(); err != nil {
				return err
			}
			d.opCode = b2
			d.length += (b2&0xF8)<<8 + 0x100
		}
	default:
		d.length = d.opCode >> 4
		d.sourceOffset = d.opCode & 0x0F
		if b1, err = d.readByte(); err != nil {
			return err
		}
		d.opCode = b1
		d.sourceOffset += (b1&0xF8)<<1 + 1
	}

	return nil
}

// readLiteralLength decodes a literal run length from the current opcode.
// An opcode of 0x0F extends the count with one byte, then little-endian
// word chunks while each word saturates at 0xFFFF.
func (d *ac21Decoder) readLiteralLength() error {
	d.length = d.opCode + 8

	if d.length == 0x17 {
		n, err := d.readByte()
		if err != nil {
			return err
		}
		d.length += n

		if n == 0xFF {
			for {
				lo, err := d.readByte()
				if err != nil {
					return err
				}
				hi, err := d.readByte()
				if err != nil {
					return err
				}
				n = hi<<8 | lo
				d.length += n
				if n != 0xFFFF {
					break
				}
			}
		}
	}

	return nil
}

func (d *ac21Decoder) copyBackward() error {
	if d.sourceOffset <= 0 || d.sourceOffset > d.destIndex {
		return fmt.Errorf("%w: back-reference offset %d exceeds %d produced bytes",
			ErrDecompression, d.sourceOffset, d.destIndex)
	}
	if d.destIndex+d.length > len(d.dst) {
		return fmt.Errorf("%w: back-reference run of %d bytes overflows output",
			ErrDecompression, d.length)
	}

	// Forward byte-at-a-time copy keeps overlapping references correct.
	start := d.destIndex - d.sourceOffset
	for i := 0; i < d.length; i++ {
		d.dst[d.destIndex+i] = d.dst[start+i]
	}
	d.destIndex += d.length

	return nil
}

// EncodeAc21Literal encodes data as a single literal run in the R2007
// opcode stream, with no back-references. Decompress recovers the input
// exactly. The R2007 writer uses this for the file-header metadata block,
// the only payload it must emit in this encoding.
func EncodeAc21Literal(data []byte) []byte {
	n := len(data)

	if n == 0 {
		return []byte{0x20, 0x00, 0x00, 0x00}
	}

	if n <= 7 {
		out := make([]byte, 0, n+4)
		out = append(out, 0x20, 0x00, 0x00, byte(n))
		return append(out, data...)
	}

	if n-8 < 0x0F {
		out := make([]byte, 0, n+1)
		out = append(out, byte(n-8))
		return append(out, data...)
	}

	out := make([]byte, 0, n+8)
	out = append(out, 0x0F)
	out = appendAc21LengthExtension(out, n-0x17)
	return append(out, data...)
}

func appendAc21LengthExtension(out []byte, remaining int) []byte {
	if remaining <= 0xFE {
		return append(out, byte(remaining))
	}

	out = append(out, 0xFF)
	remaining -= 0xFF
	for remaining >= 0xFFFF {
		out = append(out, 0xFF, 0xFF)
		remaining -= 0xFFFF
	}

	return append(out, byte(remaining), byte(remaining>>8))
}
