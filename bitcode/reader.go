package bitcode

import (
	"errors"
	"fmt"
	"math"

	"golang.org/x/text/encoding"

	"github.com/draftbench/dwgio/endian"
	"github.com/draftbench/dwgio/format"
)

// ErrEndOfStream is returned when a read runs past the end of the data.
var ErrEndOfStream = errors.New("read past end of stream")

// ErrMalformed is returned for field encodings that cannot occur in a valid
// stream, such as the unused fourth code of a bit-long.
var ErrMalformed = errors.New("malformed bit stream")

// maxByteRead caps a single byte-array read. Lengths are read from the
// stream itself, so a corrupted length must not translate into an
// arbitrarily large allocation.
const maxByteRead = 16 * 1024 * 1024

var le = endian.GetLittleEndianEngine()

// Reader decodes the bit-packed field types of drawing object streams.
// Bits are consumed most-significant first within each byte; multi-byte
// values assemble little-endian except handle payloads, which are stored
// big-endian.
//
// The zero shift state means the next read starts on a byte boundary.
// After any bit-level read the reader holds the partially consumed byte
// and subsequent byte reads stitch values across the boundary.
type Reader struct {
	data     []byte
	pos      int
	bitShift uint8
	lastByte byte
	isEmpty  bool
	encoding encoding.Encoding
	version  format.Version
	flags    format.Flags
}

// NewReader creates a reader over data for the given drawing version.
// The text encoding defaults to Windows-1252 until SetCodePage is called.
func NewReader(data []byte, version format.Version) *Reader {
	return &Reader{
		data:     data,
		encoding: EncodingFromCodePage(0),
		version:  version,
		flags:    format.VersionFlags(version),
	}
}

// NewReaderAt creates a reader positioned at a byte offset.
func NewReaderAt(data []byte, version format.Version, position int) *Reader {
	r := NewReader(data, version)
	r.SetPosition(position)
	return r
}

// Version returns the drawing version the reader decodes for.
func (r *Reader) Version() format.Version {
	return r.version
}

// SetCodePage selects the encoding used for pre-AC1021 variable text.
func (r *Reader) SetCodePage(key byte) {
	r.encoding = EncodingFromCodePage(key)
}

// IsEmpty reports whether SetPositionByFlag found no string data.
func (r *Reader) IsEmpty() bool {
	return r.isEmpty
}

// Length returns the total byte length of the underlying data.
func (r *Reader) Length() int {
	return len(r.data)
}

// Position returns the current byte position.
func (r *Reader) Position() int {
	return r.pos
}

// SetPosition seeks to a byte position and clears the bit shift.
func (r *Reader) SetPosition(pos int) {
	r.pos = pos
	r.bitShift = 0
}

// BitShift returns the current intra-byte bit offset.
func (r *Reader) BitShift() uint8 {
	return r.bitShift
}

func (r *Reader) readRawByte() (byte, error) {
	if r.pos < 0 || r.pos >= len(r.data) {
		return 0, fmt.Errorf("%w: byte %d of %d", ErrEndOfStream, r.pos, len(r.data))
	}
	b := r.data[r.pos]
	r.pos++

	return b, nil
}

func (r *Reader) advanceByte() error {
	b, err := r.readRawByte()
	if err != nil {
		return err
	}
	r.lastByte = b

	return nil
}

// Advance skips offset bytes, leaving the reader mid-shift as if the last
// of them had been read with ReadByte.
func (r *Reader) Advance(offset int) error {
	if offset > 1 {
		r.pos += offset - 1
	}
	_, err := r.ReadByte()

	return err
}

// applyShiftToLastByte stitches the tail of the held byte with the head of
// the next one.
func (r *Reader) applyShiftToLastByte() (byte, error) {
	value := r.lastByte << r.bitShift
	if err := r.advanceByte(); err != nil {
		return 0, err
	}

	return value | r.lastByte>>(8-r.bitShift), nil
}

func (r *Reader) applyShiftToSlice(arr []byte) error {
	if r.pos+len(arr) > len(r.data) {
		return fmt.Errorf("%w: %d bytes at %d of %d", ErrEndOfStream, len(arr), r.pos, len(r.data))
	}
	raw := r.data[r.pos : r.pos+len(arr)]
	r.pos += len(arr)

	if r.bitShift == 0 {
		copy(arr, raw)
		return nil
	}

	shift := 8 - r.bitShift
	for i, b := range raw {
		value := r.lastByte << r.bitShift
		r.lastByte = b
		arr[i] = value | r.lastByte>>shift
	}

	return nil
}

// ReadBit reads a single bit.
func (r *Reader) ReadBit() (bool, error) {
	if r.bitShift == 0 {
		if err := r.advanceByte(); err != nil {
			return false, err
		}
		r.bitShift = 1
		return r.lastByte&0x80 == 0x80, nil
	}

	value := (r.lastByte<<r.bitShift)&0x80 == 0x80
	r.bitShift = (r.bitShift + 1) & 7

	return value, nil
}

// ReadBitAsShort reads a single bit as 0 or 1.
func (r *Reader) ReadBitAsShort() (int16, error) {
	bit, err := r.ReadBit()
	if err != nil {
		return 0, err
	}
	if bit {
		return 1, nil
	}
	return 0, nil
}

// Read2Bits reads a two-bit code.
func (r *Reader) Read2Bits() (byte, error) {
	switch {
	case r.bitShift == 0:
		if err := r.advanceByte(); err != nil {
			return 0, err
		}
		r.bitShift = 2
		return r.lastByte >> 6, nil
	case r.bitShift == 7:
		lastValue := (r.lastByte << 1) & 2
		if err := r.advanceByte(); err != nil {
			return 0, err
		}
		r.bitShift = 1
		return lastValue | r.lastByte>>7, nil
	default:
		value := (r.lastByte >> (6 - r.bitShift)) & 3
		r.bitShift = (r.bitShift + 2) & 7
		return value, nil
	}
}

// Read3Bits reads a three-bit size code, most significant bit first.
func (r *Reader) Read3Bits() (byte, error) {
	var value byte
	for i := 0; i < 3; i++ {
		bit, err := r.ReadBit()
		if err != nil {
			return 0, err
		}
		value <<= 1
		if bit {
			value |= 1
		}
	}

	return value, nil
}

// ReadByte reads one byte across the current bit shift.
func (r *Reader) ReadByte() (byte, error) {
	if r.bitShift == 0 {
		if err := r.advanceByte(); err != nil {
			return 0, err
		}
		return r.lastByte, nil
	}

	return r.applyShiftToLastByte()
}

// ReadBytes reads length bytes across the current bit shift.
func (r *Reader) ReadBytes(length int) ([]byte, error) {
	if length < 0 || length > maxByteRead {
		return nil, fmt.Errorf("%w: byte read of %d exceeds sanity limit", ErrMalformed, length)
	}
	arr := make([]byte, length)
	if err := r.applyShiftToSlice(arr); err != nil {
		return nil, err
	}

	return arr, nil
}

// ReadBitShort reads a BS: a two-bit code selecting a full short, a byte,
// zero, or the constant 256.
func (r *Reader) ReadBitShort() (int16, error) {
	code, err := r.Read2Bits()
	if err != nil {
		return 0, err
	}

	switch code {
	case 0:
		return r.ReadRawShort()
	case 1:
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		return int16(b), nil
	case 2:
		return 0, nil
	default:
		return 256, nil
	}
}

// ReadBitShortAsBool reads a BS and reports whether it is non-zero.
func (r *Reader) ReadBitShortAsBool() (bool, error) {
	v, err := r.ReadBitShort()
	return v != 0, err
}

// ReadBitLong reads a BL: a two-bit code selecting a full long, a byte, or
// zero. The fourth code is unused and rejected.
func (r *Reader) ReadBitLong() (int32, error) {
	code, err := r.Read2Bits()
	if err != nil {
		return 0, err
	}

	switch code {
	case 0:
		return r.ReadRawLong()
	case 1:
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		return int32(b), nil
	case 2:
		return 0, nil
	default:
		return 0, fmt.Errorf("%w: bit-long code 3", ErrMalformed)
	}
}

// ReadBitLongLong reads a BLL: a three-bit byte count followed by that many
// bytes assembled little-endian.
func (r *Reader) ReadBitLongLong() (int64, error) {
	size, err := r.Read3Bits()
	if err != nil {
		return 0, err
	}

	var value uint64
	for i := byte(0); i < size; i++ {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		value += uint64(b) << (i << 3)
	}

	return int64(value), nil
}

// ReadBitDouble reads a BD: a two-bit code selecting a full double, the
// constant 1.0, or 0.0. The fourth code is unused and rejected.
func (r *Reader) ReadBitDouble() (float64, error) {
	code, err := r.Read2Bits()
	if err != nil {
		return 0, err
	}

	switch code {
	case 0:
		return r.ReadRawDouble()
	case 1:
		return 1.0, nil
	case 2:
		return 0.0, nil
	default:
		return 0, fmt.Errorf("%w: bit-double code 3", ErrMalformed)
	}
}

// ReadBitDoubleWithDefault reads a DD: a two-bit code selecting the default
// unchanged, a 4-byte patch of its low mantissa bytes, a 6-byte patch, or a
// full double.
func (r *Reader) ReadBitDoubleWithDefault(def float64) (float64, error) {
	code, err := r.Read2Bits()
	if err != nil {
		return 0, err
	}

	var arr [8]byte
	le.PutUint64(arr[:], math.Float64bits(def))

	switch code {
	case 0:
		return def, nil
	case 1:
		if err := r.applyShiftToSlice(arr[0:4]); err != nil {
			return 0, err
		}
	case 2:
		if err := r.applyShiftToSlice(arr[4:6]); err != nil {
			return 0, err
		}
		if err := r.applyShiftToSlice(arr[0:4]); err != nil {
			return 0, err
		}
	default:
		return r.ReadRawDouble()
	}

	return math.Float64frombits(le.Uint64(arr[:])), nil
}

// Read2BitDouble reads a 2BD point.
func (r *Reader) Read2BitDouble() (Point2D, error) {
	x, err := r.ReadBitDouble()
	if err != nil {
		return Point2D{}, err
	}
	y, err := r.ReadBitDouble()
	if err != nil {
		return Point2D{}, err
	}

	return Point2D{X: x, Y: y}, nil
}

// Read2BitDoubleWithDefault reads a 2DD point against a default.
func (r *Reader) Read2BitDoubleWithDefault(def Point2D) (Point2D, error) {
	x, err := r.ReadBitDoubleWithDefault(def.X)
	if err != nil {
		return Point2D{}, err
	}
	y, err := r.ReadBitDoubleWithDefault(def.Y)
	if err != nil {
		return Point2D{}, err
	}

	return Point2D{X: x, Y: y}, nil
}

// Read3BitDouble reads a 3BD point.
func (r *Reader) Read3BitDouble() (Point3D, error) {
	x, err := r.ReadBitDouble()
	if err != nil {
		return Point3D{}, err
	}
	y, err := r.ReadBitDouble()
	if err != nil {
		return Point3D{}, err
	}
	z, err := r.ReadBitDouble()
	if err != nil {
		return Point3D{}, err
	}

	return Point3D{X: x, Y: y, Z: z}, nil
}

// Read3BitDoubleWithDefault reads a 3DD point against a default.
func (r *Reader) Read3BitDoubleWithDefault(def Point3D) (Point3D, error) {
	x, err := r.ReadBitDoubleWithDefault(def.X)
	if err != nil {
		return Point3D{}, err
	}
	y, err := r.ReadBitDoubleWithDefault(def.Y)
	if err != nil {
		return Point3D{}, err
	}
	z, err := r.ReadBitDoubleWithDefault(def.Z)
	if err != nil {
		return Point3D{}, err
	}

	return Point3D{X: x, Y: y, Z: z}, nil
}

// ReadRawChar reads an RC.
func (r *Reader) ReadRawChar() (byte, error) {
	return r.ReadByte()
}

// ReadRawShort reads an RS, little-endian.
func (r *Reader) ReadRawShort() (int16, error) {
	v, err := r.ReadRawUShort()
	return int16(v), err
}

// ReadRawUShort reads an unsigned RS, little-endian.
func (r *Reader) ReadRawUShort() (uint16, error) {
	b0, err := r.ReadByte()
	if err != nil {
		return 0, err
	}
	b1, err := r.ReadByte()
	if err != nil {
		return 0, err
	}

	return uint16(b0) | uint16(b1)<<8, nil
}

// ReadRawLong reads an RL, little-endian.
func (r *Reader) ReadRawLong() (int32, error) {
	v, err := r.readRawUint()
	return int32(v), err
}

func (r *Reader) readRawUint() (uint32, error) {
	var value uint32
	for i := 0; i < 4; i++ {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		value |= uint32(b) << (i * 8)
	}

	return value, nil
}

// ReadRawULong reads an 8-byte unsigned value, little-endian.
func (r *Reader) ReadRawULong() (uint64, error) {
	lo, err := r.readRawUint()
	if err != nil {
		return 0, err
	}
	hi, err := r.readRawUint()
	if err != nil {
		return 0, err
	}

	return uint64(lo) | uint64(hi)<<32, nil
}

// ReadRawDouble reads an RD, little-endian.
func (r *Reader) ReadRawDouble() (float64, error) {
	var arr [8]byte
	if err := r.applyShiftToSlice(arr[:]); err != nil {
		return 0, err
	}

	return math.Float64frombits(le.Uint64(arr[:])), nil
}

// Read2RawDouble reads a 2RD point.
func (r *Reader) Read2RawDouble() (Point2D, error) {
	x, err := r.ReadRawDouble()
	if err != nil {
		return Point2D{}, err
	}
	y, err := r.ReadRawDouble()
	if err != nil {
		return Point2D{}, err
	}

	return Point2D{X: x, Y: y}, nil
}

// Read3RawDouble reads a 3RD point.
func (r *Reader) Read3RawDouble() (Point3D, error) {
	x, err := r.ReadRawDouble()
	if err != nil {
		return Point3D{}, err
	}
	y, err := r.ReadRawDouble()
	if err != nil {
		return Point3D{}, err
	}
	z, err := r.ReadRawDouble()
	if err != nil {
		return Point3D{}, err
	}

	return Point3D{X: x, Y: y, Z: z}, nil
}

// ReadModularChar reads an unsigned MC: seven value bits per byte, high bit
// flagging continuation.
func (r *Reader) ReadModularChar() (uint64, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, err
	}

	value := uint64(b & 0x7F)
	shift := 0
	for b&0x80 != 0 {
		shift += 7
		if b, err = r.ReadByte(); err != nil {
			return 0, err
		}
		value |= uint64(b&0x7F) << shift
	}

	return value, nil
}

// ReadSignedModularChar reads a signed MC: the final byte spends bit 6 on
// the sign, leaving six value bits.
func (r *Reader) ReadSignedModularChar() (int64, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, err
	}

	if b&0x80 == 0 {
		value := int64(b & 0x3F)
		if b&0x40 != 0 {
			value = -value
		}
		return value, nil
	}

	sum := int64(b & 0x7F)
	shift := 0
	for {
		shift += 7
		if b, err = r.ReadByte(); err != nil {
			return 0, err
		}
		if b&0x80 != 0 {
			sum |= int64(b&0x7F) << shift
			continue
		}

		value := sum | int64(b&0x3F)<<shift
		if b&0x40 != 0 {
			value = -value
		}
		return value, nil
	}
}

// ReadModularShort reads an MS: fifteen value bits per byte pair, the high
// bit of the second byte flagging continuation.
func (r *Reader) ReadModularShort() (int32, error) {
	b1, err := r.ReadByte()
	if err != nil {
		return 0, err
	}
	b2, err := r.ReadByte()
	if err != nil {
		return 0, err
	}

	value := int32(b1) | int32(b2&0x7F)<<8
	shift := 15

	for b2&0x80 != 0 {
		if b1, err = r.ReadByte(); err != nil {
			return 0, err
		}
		if b2, err = r.ReadByte(); err != nil {
			return 0, err
		}

		value |= int32(b1) << shift
		shift += 8
		value |= int32(b2&0x7F) << shift
		shift += 7
	}

	return value, nil
}

// readHandleBytes reads length big-endian payload bytes into a value.
func (r *Reader) readHandleBytes(length int) (uint64, error) {
	if length > 8 {
		return 0, fmt.Errorf("%w: handle byte count %d exceeds 8", ErrMalformed, length)
	}

	var arr [8]byte
	if r.bitShift == 0 {
		if r.pos+length > len(r.data) {
			return 0, fmt.Errorf("%w: handle payload at %d", ErrEndOfStream, r.pos)
		}
		for i := 0; i < length; i++ {
			arr[length-1-i] = r.data[r.pos+i]
		}
		r.pos += length
	} else {
		shift := 8 - r.bitShift
		for i := 0; i < length; i++ {
			raw, err := r.readRawByte()
			if err != nil {
				return 0, err
			}
			value := r.lastByte << r.bitShift
			r.lastByte = raw
			arr[length-1-i] = value | r.lastByte>>shift
		}
	}

	return le.Uint64(arr[:]), nil
}

// HandleReference reads a handle reference with no owner context.
func (r *Reader) HandleReference() (uint64, error) {
	handle, _, err := r.HandleReferenceTyped(0)
	return handle, err
}

// HandleReferenceResolved reads a handle reference and resolves offset
// forms against the owner's handle.
func (r *Reader) HandleReferenceResolved(ownerHandle uint64) (uint64, error) {
	handle, _, err := r.HandleReferenceTyped(ownerHandle)
	return handle, err
}

// HandleReferenceTyped reads a handle reference: one byte holding a 4-bit
// code and a 4-bit payload byte count, then the big-endian payload. Offset
// codes resolve against ownerHandle.
func (r *Reader) HandleReferenceTyped(ownerHandle uint64) (uint64, ReferenceType, error) {
	form, err := r.ReadByte()
	if err != nil {
		return 0, RefUndefined, err
	}

	code := form >> 4
	counter := int(form & 0x0F)
	refType := refTypeFromCode(code)

	switch {
	case code <= 5:
		handle, err := r.readHandleBytes(counter)
		return handle, refType, err
	case code == 0x6:
		return ownerHandle + 1, refType, nil
	case code == 0x8:
		return ownerHandle - 1, refType, nil
	case code == 0xA:
		offset, err := r.readHandleBytes(counter)
		return ownerHandle + offset, refType, err
	case code == 0xC:
		offset, err := r.readHandleBytes(counter)
		return ownerHandle - offset, refType, err
	default:
		return 0, RefUndefined, fmt.Errorf("%w: handle reference code 0x%X", ErrMalformed, code)
	}
}

// ReadTextUnicode reads a length-prefixed string with a raw short length.
// AC1021 and later store UTF-16LE code units; earlier versions store a
// code-page key byte between the length and the bytes.
func (r *Reader) ReadTextUnicode() (string, error) {
	if r.flags.R2007Plus {
		textLength, err := r.ReadRawShort()
		if err != nil {
			return "", err
		}
		if textLength == 0 {
			return "", nil
		}
		raw, err := r.ReadBytes(int(textLength) << 1)
		if err != nil {
			return "", err
		}
		return decodeText(raw, utf16LE)
	}

	textLength, err := r.ReadRawShort()
	if err != nil {
		return "", err
	}
	key, err := r.ReadByte()
	if err != nil {
		return "", err
	}
	if textLength == 0 {
		return "", nil
	}
	raw, err := r.ReadBytes(int(textLength))
	if err != nil {
		return "", err
	}

	return decodeText(raw, EncodingFromCodePage(key))
}

// ReadVariableText reads a TV: a BS length followed by the string bytes,
// UTF-16LE for AC1021 and later, the document code page before.
func (r *Reader) ReadVariableText() (string, error) {
	length, err := r.ReadBitShort()
	if err != nil {
		return "", err
	}
	if length == 0 {
		return "", nil
	}

	if r.flags.R2007Plus {
		raw, err := r.ReadBytes(int(length) << 1)
		if err != nil {
			return "", err
		}
		return decodeText(raw, utf16LE)
	}

	raw, err := r.ReadBytes(int(length))
	if err != nil {
		return "", err
	}

	return decodeText(raw, r.encoding)
}

// ReadSentinel reads a 16-byte section sentinel.
func (r *Reader) ReadSentinel() (format.Sentinel, error) {
	var s format.Sentinel
	if err := r.applyShiftToSlice(s[:]); err != nil {
		return s, err
	}

	return s, nil
}

// ReadCmColor reads a CMC. AC1018 and later store an index (always zero),
// a packed RGB long and a flag byte announcing optional color and book
// name strings; earlier versions store a bare index.
func (r *Reader) ReadCmColor() (Color, error) {
	if !r.flags.R2004Plus {
		index, err := r.ReadBitShort()
		if err != nil {
			return Color{}, err
		}
		return ColorFromIndex(index), nil
	}

	if _, err := r.ReadBitShort(); err != nil {
		return Color{}, err
	}
	rgb, err := r.ReadBitLong()
	if err != nil {
		return Color{}, err
	}

	var color Color
	word := uint32(rgb)
	switch {
	case word == 0xC0000000:
		color = Color{Mode: ColorByLayer}
	case word&0x01000000 != 0:
		color = Color{Mode: ColorIndexed, Index: int16(word & 0xFF)}
	default:
		color = ColorFromRGB(byte(word>>16), byte(word>>8), byte(word))
	}

	id, err := r.ReadByte()
	if err != nil {
		return Color{}, err
	}
	if id&1 != 0 {
		if _, err := r.ReadVariableText(); err != nil {
			return Color{}, err
		}
	}
	if id&2 != 0 {
		if _, err := r.ReadVariableText(); err != nil {
			return Color{}, err
		}
	}

	return color, nil
}

// ReadEnColor reads an ENC. AC1018 and later pack flags into the high bits
// of the leading BS: 0x8000 true color, 0x4000 book color, 0x2000
// transparency word follows; earlier versions store a bare index.
func (r *Reader) ReadEnColor() (EntityColor, error) {
	size, err := r.ReadBitShort()
	if err != nil {
		return EntityColor{}, err
	}

	if !r.flags.R2004Plus {
		return EntityColor{Color: ColorFromIndex(size)}, nil
	}

	if size == 0 {
		return EntityColor{Color: Color{Mode: ColorByBlock}}, nil
	}

	var ec EntityColor
	flags := uint16(size) & 0xFF00

	switch {
	case flags&0x4000 != 0:
		ec.Color = Color{Mode: ColorByBlock}
		ec.IsBookColor = true
	case flags&0x8000 != 0:
		rgb, err := r.ReadBitLong()
		if err != nil {
			return EntityColor{}, err
		}
		word := uint32(rgb)
		ec.Color = ColorFromRGB(byte(word>>16), byte(word>>8), byte(word))
	default:
		ec.Color = ColorFromIndex(size & 0x0FFF)
	}

	if flags&0x2000 != 0 {
		alpha, err := r.ReadBitLong()
		if err != nil {
			return EntityColor{}, err
		}
		ec.Transparency = uint32(alpha)
		ec.HasTransparency = true
	}

	return ec, nil
}

// ReadObjectType reads an OT. AC1024 and later use a two-bit pair selecting
// a byte, a byte biased by 0x1F0, or a raw short; earlier versions use a BS.
func (r *Reader) ReadObjectType() (int16, error) {
	if !r.flags.R2010Plus {
		return r.ReadBitShort()
	}

	pair, err := r.Read2Bits()
	if err != nil {
		return 0, err
	}

	switch pair {
	case 0:
		b, err := r.ReadByte()
		return int16(b), err
	case 1:
		b, err := r.ReadByte()
		return 0x1F0 + int16(b), err
	default:
		return r.ReadRawShort()
	}
}

// ReadBitExtrusion reads a BE. R2000 and later spend one bit on the common
// +Z direction; earlier versions always store the full 3BD.
func (r *Reader) ReadBitExtrusion() (Point3D, error) {
	if r.flags.R2000Plus {
		def, err := r.ReadBit()
		if err != nil {
			return Point3D{}, err
		}
		if def {
			return UnitZ, nil
		}
	}

	return r.Read3BitDouble()
}

// ReadBitThickness reads a BT. R2000 and later spend one bit on the common
// zero thickness; earlier versions always store the full BD.
func (r *Reader) ReadBitThickness() (float64, error) {
	if r.flags.R2000Plus {
		zero, err := r.ReadBit()
		if err != nil {
			return 0, err
		}
		if zero {
			return 0, nil
		}
	}

	return r.ReadBitDouble()
}

// Read8BitJulianDate reads two raw longs: Julian day and milliseconds.
func (r *Reader) Read8BitJulianDate() (jdate, milliseconds int32, err error) {
	if jdate, err = r.ReadRawLong(); err != nil {
		return 0, 0, err
	}
	if milliseconds, err = r.ReadRawLong(); err != nil {
		return 0, 0, err
	}

	return jdate, milliseconds, nil
}

// ReadDateTime reads two BLs: Julian day and milliseconds.
func (r *Reader) ReadDateTime() (jdate, milliseconds int32, err error) {
	if jdate, err = r.ReadBitLong(); err != nil {
		return 0, 0, err
	}
	if milliseconds, err = r.ReadBitLong(); err != nil {
		return 0, 0, err
	}

	return jdate, milliseconds, nil
}

// ReadTimeSpan reads two BLs: days and milliseconds.
func (r *Reader) ReadTimeSpan() (days, milliseconds int32, err error) {
	if days, err = r.ReadBitLong(); err != nil {
		return 0, 0, err
	}
	if milliseconds, err = r.ReadBitLong(); err != nil {
		return 0, 0, err
	}

	return days, milliseconds, nil
}

// PositionInBits returns the absolute bit position.
func (r *Reader) PositionInBits() int64 {
	bitPosition := int64(r.pos) * 8
	if r.bitShift > 0 {
		return bitPosition + int64(r.bitShift) - 8
	}

	return bitPosition
}

// SetPositionInBits seeks to an absolute bit position.
func (r *Reader) SetPositionInBits(position int64) error {
	r.SetPosition(int(position >> 3))
	r.bitShift = uint8(position & 7)

	if r.bitShift > 0 {
		return r.advanceByte()
	}

	return nil
}

// ResetShift discards any pending bit shift and reads a raw little-endian
// short starting at the next byte boundary.
func (r *Reader) ResetShift() (uint16, error) {
	r.bitShift = 0

	if err := r.advanceByte(); err != nil {
		return 0, err
	}
	low := uint16(r.lastByte)
	if err := r.advanceByte(); err != nil {
		return 0, err
	}

	return low | uint16(r.lastByte)<<8, nil
}

// SetPositionByFlag positions the reader at the start of the string data
// whose end sits at position. The bit at position announces whether string
// data exists; the size words before it use the 0x8000 continuation form.
// When no string data exists the reader is marked empty and parked at the
// end of the stream.
func (r *Reader) SetPositionByFlag(position int64) (int64, error) {
	if err := r.SetPositionInBits(position); err != nil {
		return 0, err
	}

	flag, err := r.ReadBit()
	if err != nil {
		return 0, err
	}

	if !flag {
		r.isEmpty = true
		r.SetPosition(len(r.data))
		return position, nil
	}

	length := position - 16
	if err := r.SetPositionInBits(length); err != nil {
		return 0, err
	}
	strDataSize, err := r.ReadRawUShort()
	if err != nil {
		return 0, err
	}

	size := int64(strDataSize)
	if size&0x8000 != 0 {
		length -= 16
		if err := r.SetPositionInBits(length); err != nil {
			return 0, err
		}
		size &= 0x7FFF
		hiSize, err := r.ReadRawUShort()
		if err != nil {
			return 0, err
		}
		size += int64(hiSize) << 15
	}

	startPosition := length - size
	if err := r.SetPositionInBits(startPosition); err != nil {
		return 0, err
	}

	return startPosition, nil
}
