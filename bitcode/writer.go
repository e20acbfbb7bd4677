package bitcode

import (
	"fmt"
	"math"

	"golang.org/x/text/encoding"

	"github.com/draftbench/dwgio/format"
)

// Writer encodes the bit-packed field types of drawing object streams into
// an in-memory buffer. It mirrors Reader: bits fill each byte most
// significant first, and byte writes stitch across a pending bit shift.
//
// Most methods cannot fail and return nothing; only operations that seek
// into existing data or encode text report errors.
type Writer struct {
	buf                 []byte
	pos                 int
	bitShift            uint8
	lastByte            byte
	encoding            encoding.Encoding
	version             format.Version
	flags               format.Flags
	savedPositionInBits int64
}

// NewWriter creates a writer for the given drawing version. The text
// encoding defaults to Windows-1252 until SetCodePage is called.
func NewWriter(version format.Version) *Writer {
	return &Writer{
		encoding: EncodingFromCodePage(0),
		version:  version,
		flags:    format.VersionFlags(version),
	}
}

// NewWriterBuffer creates a writer positioned at the end of existing data.
func NewWriterBuffer(data []byte, version format.Version) *Writer {
	w := NewWriter(version)
	w.buf = data
	w.pos = len(data)
	return w
}

// Version returns the drawing version the writer encodes for.
func (w *Writer) Version() format.Version {
	return w.version
}

// SetCodePage selects the encoding used for pre-AC1021 text.
func (w *Writer) SetCodePage(key byte) {
	w.encoding = EncodingFromCodePage(key)
}

// Bytes returns the written data. Call WriteSpearShift first if the last
// field may have left a partial byte pending.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Len returns the byte length of the written data.
func (w *Writer) Len() int {
	return len(w.buf)
}

// Position returns the current byte position.
func (w *Writer) Position() int {
	return w.pos
}

// PositionInBits returns the absolute bit position of the next write.
func (w *Writer) PositionInBits() int64 {
	return int64(w.pos)*8 + int64(w.bitShift)
}

// SavedPositionInBits returns the position recorded by SavePositionForSize.
func (w *Writer) SavedPositionInBits() int64 {
	return w.savedPositionInBits
}

// Reset discards all written data and clears the shift state.
func (w *Writer) Reset() {
	w.buf = w.buf[:0]
	w.pos = 0
	w.resetShift()
}

func (w *Writer) resetShift() {
	w.bitShift = 0
	w.lastByte = 0
}

// writeRawByte places a byte at the current position, overwriting existing
// data or growing the buffer.
func (w *Writer) writeRawByte(b byte) {
	if w.pos < len(w.buf) {
		w.buf[w.pos] = b
	} else {
		w.buf = append(w.buf, b)
	}
	w.pos++
}

// WriteByte writes one byte across the current bit shift.
func (w *Writer) WriteByte(value byte) {
	if w.bitShift == 0 {
		w.writeRawByte(value)
		return
	}

	w.writeRawByte(w.lastByte | value>>w.bitShift)
	w.lastByte = value << (8 - w.bitShift)
}

// WriteBytes writes a byte slice across the current bit shift.
func (w *Writer) WriteBytes(arr []byte) {
	if w.bitShift == 0 {
		for _, b := range arr {
			w.writeRawByte(b)
		}
		return
	}

	num := 8 - w.bitShift
	for _, b := range arr {
		w.writeRawByte(w.lastByte | b>>w.bitShift)
		w.lastByte = b << num
	}
}

// WriteBit writes a single bit.
func (w *Writer) WriteBit(value bool) {
	if w.bitShift < 7 {
		if value {
			w.lastByte |= 1 << (7 - w.bitShift)
		}
		w.bitShift++
		return
	}

	if value {
		w.lastByte |= 1
	}
	w.writeRawByte(w.lastByte)
	w.resetShift()
}

// Write2Bits writes a two-bit code.
func (w *Writer) Write2Bits(value byte) {
	switch {
	case w.bitShift < 6:
		w.lastByte |= value << (6 - w.bitShift)
		w.bitShift += 2
	case w.bitShift == 6:
		w.lastByte |= value
		w.writeRawByte(w.lastByte)
		w.resetShift()
	default:
		w.lastByte |= value >> 1
		w.writeRawByte(w.lastByte)
		w.lastByte = value << 7
		w.bitShift = 1
	}
}

// Write3Bits writes a three-bit size code, most significant bit first.
func (w *Writer) Write3Bits(value byte) {
	w.WriteBit(value&4 != 0)
	w.WriteBit(value&2 != 0)
	w.WriteBit(value&1 != 0)
}

// WriteRawShort writes an RS, little-endian.
func (w *Writer) WriteRawShort(value int16) {
	w.WriteRawUShort(uint16(value))
}

// WriteRawUShort writes an unsigned RS, little-endian.
func (w *Writer) WriteRawUShort(value uint16) {
	w.WriteBytes([]byte{byte(value), byte(value >> 8)})
}

// WriteRawLong writes an RL, little-endian.
func (w *Writer) WriteRawLong(value int32) {
	var arr [4]byte
	le.PutUint32(arr[:], uint32(value))
	w.WriteBytes(arr[:])
}

// WriteRawULong writes an 8-byte unsigned value, little-endian.
func (w *Writer) WriteRawULong(value uint64) {
	var arr [8]byte
	le.PutUint64(arr[:], value)
	w.WriteBytes(arr[:])
}

// WriteRawDouble writes an RD, little-endian.
func (w *Writer) WriteRawDouble(value float64) {
	var arr [8]byte
	le.PutUint64(arr[:], math.Float64bits(value))
	w.WriteBytes(arr[:])
}

// WriteBitShort writes a BS, picking the shortest of the four codes.
func (w *Writer) WriteBitShort(value int16) {
	switch {
	case value == 0:
		w.Write2Bits(2)
	case value > 0 && value < 256:
		w.Write2Bits(1)
		w.WriteByte(byte(value))
	case value == 256:
		w.Write2Bits(3)
	default:
		w.Write2Bits(0)
		w.WriteByte(byte(value))
		w.WriteByte(byte(value >> 8))
	}
}

// WriteBitLong writes a BL, picking the shortest of its three codes.
func (w *Writer) WriteBitLong(value int32) {
	switch {
	case value == 0:
		w.Write2Bits(2)
	case value > 0 && value < 256:
		w.Write2Bits(1)
		w.WriteByte(byte(value))
	default:
		w.Write2Bits(0)
		w.WriteByte(byte(value))
		w.WriteByte(byte(value >> 8))
		w.WriteByte(byte(value >> 16))
		w.WriteByte(byte(value >> 24))
	}
}

// WriteBitLongLong writes a BLL: a three-bit byte count followed by the
// significant bytes, least significant first.
func (w *Writer) WriteBitLongLong(value int64) {
	var size byte
	for hold := uint64(value); hold != 0; hold >>= 8 {
		size++
	}

	w.Write3Bits(size)

	hold := uint64(value)
	for i := byte(0); i < size; i++ {
		w.WriteByte(byte(hold))
		hold >>= 8
	}
}

// WriteBitDouble writes a BD, using the short codes for 0.0 and 1.0.
func (w *Writer) WriteBitDouble(value float64) {
	switch value {
	case 0.0:
		w.Write2Bits(2)
	case 1.0:
		w.Write2Bits(1)
	default:
		w.Write2Bits(0)
		w.WriteRawDouble(value)
	}
}

// WriteBitDoubleWithDefault writes a DD, patching only the bytes that
// differ from the default. The byte comparison runs from the exponent end
// down, so values sharing sign and magnitude with the default compress to
// their low mantissa bytes.
func (w *Writer) WriteBitDoubleWithDefault(def, value float64) {
	if def == value {
		w.Write2Bits(0)
		return
	}

	var defBytes, valueBytes [8]byte
	le.PutUint64(defBytes[:], math.Float64bits(def))
	le.PutUint64(valueBytes[:], math.Float64bits(value))

	first := 0
	for last := 7; last >= 0 && defBytes[last] == valueBytes[last]; last-- {
		first++
	}

	switch {
	case first >= 4:
		w.Write2Bits(1)
		w.WriteBytes(valueBytes[0:4])
	case first >= 2:
		w.Write2Bits(2)
		w.WriteByte(valueBytes[4])
		w.WriteByte(valueBytes[5])
		w.WriteBytes(valueBytes[0:4])
	default:
		w.Write2Bits(3)
		w.WriteBytes(valueBytes[:])
	}
}

// Write2BitDouble writes a 2BD point.
func (w *Writer) Write2BitDouble(value Point2D) {
	w.WriteBitDouble(value.X)
	w.WriteBitDouble(value.Y)
}

// Write2BitDoubleWithDefault writes a 2DD point against a default.
func (w *Writer) Write2BitDoubleWithDefault(def, value Point2D) {
	w.WriteBitDoubleWithDefault(def.X, value.X)
	w.WriteBitDoubleWithDefault(def.Y, value.Y)
}

// Write3BitDouble writes a 3BD point.
func (w *Writer) Write3BitDouble(value Point3D) {
	w.WriteBitDouble(value.X)
	w.WriteBitDouble(value.Y)
	w.WriteBitDouble(value.Z)
}

// Write3BitDoubleWithDefault writes a 3DD point against a default.
func (w *Writer) Write3BitDoubleWithDefault(def, value Point3D) {
	w.WriteBitDoubleWithDefault(def.X, value.X)
	w.WriteBitDoubleWithDefault(def.Y, value.Y)
	w.WriteBitDoubleWithDefault(def.Z, value.Z)
}

// Write2RawDouble writes a 2RD point.
func (w *Writer) Write2RawDouble(value Point2D) {
	w.WriteRawDouble(value.X)
	w.WriteRawDouble(value.Y)
}

// Write3RawDouble writes a 3RD point.
func (w *Writer) Write3RawDouble(value Point3D) {
	w.WriteRawDouble(value.X)
	w.WriteRawDouble(value.Y)
	w.WriteRawDouble(value.Z)
}

// WriteModularChar writes an unsigned MC.
func (w *Writer) WriteModularChar(value uint64) {
	for {
		b := byte(value & 0x7F)
		value >>= 7
		if value == 0 {
			w.WriteByte(b)
			return
		}
		w.WriteByte(b | 0x80)
	}
}

// WriteSignedModularChar writes a signed MC. The final byte carries the
// sign in bit 6, leaving six value bits.
func (w *Writer) WriteSignedModularChar(value int64) {
	negative := value < 0
	if negative {
		value = -value
	}

	uvalue := uint64(value)
	for {
		if uvalue < 0x40 {
			b := byte(uvalue)
			if negative {
				b |= 0x40
			}
			w.WriteByte(b)
			return
		}
		w.WriteByte(byte(uvalue&0x7F) | 0x80)
		uvalue >>= 7
	}
}

// WriteModularShort writes an MS.
func (w *Writer) WriteModularShort(value int32) {
	uvalue := uint32(value)
	for {
		if uvalue < 0x8000 {
			w.WriteByte(byte(uvalue))
			w.WriteByte(byte(uvalue >> 8))
			return
		}
		w.WriteByte(byte(uvalue))
		w.WriteByte(byte(uvalue>>8) | 0x80)
		uvalue >>= 15
	}
}

func handleByteCount(handle uint64) byte {
	var counter byte
	for handle != 0 {
		handle >>= 8
		counter++
	}

	return counter
}

// HandleReference writes a handle reference with the undefined type code.
func (w *Writer) HandleReference(handle uint64) {
	w.HandleReferenceTyped(RefUndefined, handle)
}

// HandleReferenceTyped writes a handle reference: the type code and payload
// byte count packed into one byte, then the handle big-endian. A zero
// handle writes no payload bytes.
func (w *Writer) HandleReferenceTyped(refType ReferenceType, handle uint64) {
	counter := handleByteCount(handle)
	w.WriteByte(byte(refType)<<4 | counter)

	for i := counter; i > 0; i-- {
		w.WriteByte(byte(handle >> ((i - 1) * 8)))
	}
}

// WriteVariableText writes a TV: a BS length followed by the string bytes,
// UTF-16LE for AC1021 and later, the document code page before.
func (w *Writer) WriteVariableText(value string) error {
	if value == "" {
		w.WriteBitShort(0)
		return nil
	}

	if w.flags.R2007Plus {
		raw, err := encodeText(value, utf16LE)
		if err != nil {
			return err
		}
		w.WriteBitShort(int16(len(raw) >> 1))
		w.WriteBytes(raw)
		return nil
	}

	raw, err := encodeText(value, w.encoding)
	if err != nil {
		return err
	}
	w.WriteBitShort(int16(len(raw)))
	w.WriteBytes(raw)

	return nil
}

// WriteTextUnicode writes a NUL-terminated string with a raw short length
// counting the terminator.
func (w *Writer) WriteTextUnicode(value string) error {
	if w.flags.R2007Plus {
		raw, err := encodeText(value, utf16LE)
		if err != nil {
			return err
		}
		w.WriteRawShort(int16(len(raw)>>1) + 1)
		w.WriteBytes(raw)
		w.writeRawByte(0)
		w.writeRawByte(0)
		return nil
	}

	raw, err := encodeText(value, w.encoding)
	if err != nil {
		return err
	}
	w.WriteRawShort(int16(len(raw)) + 1)
	for _, b := range raw {
		w.writeRawByte(b)
	}
	w.writeRawByte(0)

	return nil
}

// WriteObjectType writes an OT. AC1024 and later use the two-bit pair
// encoding; earlier versions use a BS.
func (w *Writer) WriteObjectType(value int16) {
	if !w.flags.R2010Plus {
		w.WriteBitShort(value)
		return
	}

	switch {
	case value <= 255:
		w.Write2Bits(0)
		w.WriteByte(byte(value))
	case value >= 0x1F0 && value <= 0x2EF:
		w.Write2Bits(1)
		w.WriteByte(byte(value - 0x1F0))
	default:
		w.Write2Bits(2)
		w.WriteByte(byte(value))
		w.WriteByte(byte(value >> 8))
	}
}

// WriteCmColor writes a CMC. AC1018 and later store a zero index, the
// packed RGB long and an empty flag byte; earlier versions collapse to the
// legacy index form.
func (w *Writer) WriteCmColor(value Color) {
	if !w.flags.R2004Plus {
		w.WriteBitShort(value.ColorIndex())
		return
	}

	w.WriteBitShort(0)

	var arr [4]byte
	switch value.Mode {
	case ColorTrueColor:
		arr[0] = value.B
		arr[1] = value.G
		arr[2] = value.R
		arr[3] = 0xC2
	case ColorIndexed:
		arr[0] = byte(value.Index)
		arr[3] = 0xC3
	default:
		arr[3] = 0xC0
	}

	w.WriteBitLong(int32(le.Uint32(arr[:])))
	w.WriteByte(0)
}

// WriteEnColor writes an ENC. AC1018 and later pack the true-color, book
// and transparency flags into the high bits of the leading BS; earlier
// versions collapse to a CMC.
func (w *Writer) WriteEnColor(value EntityColor) {
	if !w.flags.R2004Plus {
		w.WriteCmColor(value.Color)
		return
	}

	isByBlock := value.Color.Mode == ColorByBlock
	isTrueColor := value.Color.Mode == ColorTrueColor

	if isByBlock && !value.HasTransparency && !value.IsBookColor {
		w.WriteBitShort(0)
		return
	}

	var size uint16
	if value.HasTransparency {
		size |= 0x2000
	}
	switch {
	case value.IsBookColor:
		size |= 0x4000 | 0x8000
	case isTrueColor:
		size |= 0x8000
	default:
		size |= uint16(value.Color.ColorIndex()) & 0x0FFF
	}

	w.WriteBitShort(int16(size))

	if isTrueColor {
		arr := [4]byte{value.Color.B, value.Color.G, value.Color.R, 0xC2}
		w.WriteBitLong(int32(le.Uint32(arr[:])))
	}
	if value.HasTransparency {
		w.WriteBitLong(int32(value.Transparency))
	}
}

// WriteBitExtrusion writes a BE. R2000 and later spend one bit on the
// common +Z direction.
func (w *Writer) WriteBitExtrusion(normal Point3D) {
	if w.flags.R2000Plus {
		if normal == UnitZ {
			w.WriteBit(true)
			return
		}
		w.WriteBit(false)
	}

	w.Write3BitDouble(normal)
}

// WriteBitThickness writes a BT. R2000 and later spend one bit on the
// common zero thickness.
func (w *Writer) WriteBitThickness(thickness float64) {
	if w.flags.R2000Plus {
		if thickness == 0.0 {
			w.WriteBit(true)
			return
		}
		w.WriteBit(false)
	}

	w.WriteBitDouble(thickness)
}

// WriteDateTime writes two BLs: Julian day and milliseconds.
func (w *Writer) WriteDateTime(jdate, milliseconds int32) {
	w.WriteBitLong(jdate)
	w.WriteBitLong(milliseconds)
}

// Write8BitJulianDate writes two raw longs: Julian day and milliseconds.
func (w *Writer) Write8BitJulianDate(jdate, milliseconds int32) {
	w.WriteRawLong(jdate)
	w.WriteRawLong(milliseconds)
}

// WriteTimeSpan writes two BLs: days and milliseconds.
func (w *Writer) WriteTimeSpan(days, milliseconds int32) {
	w.WriteBitLong(days)
	w.WriteBitLong(milliseconds)
}

// WriteSpearShift pads the pending partial byte with zero bits, flushing
// it to the buffer. A no-op on a byte boundary.
func (w *Writer) WriteSpearShift() {
	if w.bitShift > 0 {
		for i := w.bitShift; i < 8; i++ {
			w.WriteBit(false)
		}
	}
}

// SavePositionForSize records the current bit position and reserves a raw
// long for a size value to be patched in later.
func (w *Writer) SavePositionForSize() {
	w.savedPositionInBits = w.PositionInBits()
	w.WriteRawLong(0)
}

// SetPositionInBits seeks to an absolute bit position inside already
// written data. When the position is mid-byte the existing byte is loaded
// so subsequent writes merge into it.
func (w *Writer) SetPositionInBits(position int64) error {
	w.pos = int(position >> 3)
	w.bitShift = uint8(position & 7)

	if w.bitShift > 0 {
		if w.pos >= len(w.buf) {
			return fmt.Errorf("%w: bit position %d beyond written data", ErrEndOfStream, position)
		}
		w.lastByte = w.buf[w.pos]
	} else {
		w.lastByte = 0
	}

	return nil
}

// SetPositionByFlag writes a bit position in the variable-width form used
// by string-stream markers: 15 value bits per word, the high bit flagging
// a continuation word before it.
func (w *Writer) SetPositionByFlag(position int64) {
	if position >= 0x8000 {
		if position >= 0x40000000 {
			w.WriteRawUShort(uint16((position >> 30) & 0xFFFF))
			w.WriteRawUShort(uint16((position>>15)&0x7FFF) | 0x8000)
		} else {
			w.WriteRawUShort(uint16((position >> 15) & 0xFFFF))
		}
		w.WriteRawUShort(uint16(position&0x7FFF) | 0x8000)
		return
	}

	w.WriteRawUShort(uint16(position))
}

// WriteShiftValue merges the pending partial byte into the existing byte
// at the current position, preserving the bits past the shift. Used after
// patching a size long at a mid-byte position.
func (w *Writer) WriteShiftValue() {
	if w.bitShift == 0 || w.pos >= len(w.buf) {
		return
	}

	w.buf[w.pos] = w.lastByte | (w.buf[w.pos] & (0xFF >> w.bitShift))
	w.pos++
}
