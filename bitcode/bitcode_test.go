package bitcode

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/draftbench/dwgio/format"
)

func flushed(w *Writer) []byte {
	w.WriteSpearShift()
	return w.Bytes()
}

func TestWriteBitVectors(t *testing.T) {
	w := NewWriter(format.AC1015)
	w.WriteBit(true)
	require.Equal(t, []byte{0x80}, flushed(w))

	w = NewWriter(format.AC1015)
	w.WriteBit(false)
	require.Equal(t, []byte{0x00}, flushed(w))

	w = NewWriter(format.AC1015)
	w.Write2Bits(3)
	require.Equal(t, []byte{0xC0}, flushed(w))
}

func TestWriteBitShortVectors(t *testing.T) {
	w := NewWriter(format.AC1015)
	w.WriteBitShort(0)
	require.Equal(t, []byte{0x80}, flushed(w))

	w = NewWriter(format.AC1015)
	w.WriteBitShort(256)
	require.Equal(t, []byte{0xC0}, flushed(w))

	// Code 01 then byte 42 across the two-bit shift.
	w = NewWriter(format.AC1015)
	w.WriteBitShort(42)
	require.Equal(t, []byte{0x4A, 0x80}, flushed(w))
}

func TestWriteBitDoubleVectors(t *testing.T) {
	w := NewWriter(format.AC1015)
	w.WriteBitDouble(0.0)
	require.Equal(t, []byte{0x80}, flushed(w))

	w = NewWriter(format.AC1015)
	w.WriteBitDouble(1.0)
	require.Equal(t, []byte{0x40}, flushed(w))
}

func TestRoundTripBitShort(t *testing.T) {
	for _, value := range []int16{0, 1, 42, 127, 255, 256, -1, 0x1234, math.MaxInt16, math.MinInt16} {
		w := NewWriter(format.AC1015)
		w.WriteBitShort(value)

		r := NewReader(flushed(w), format.AC1015)
		got, err := r.ReadBitShort()
		require.NoError(t, err)
		require.Equal(t, value, got)
	}
}

func TestRoundTripBitLong(t *testing.T) {
	for _, value := range []int32{0, 1, 42, 255, 0x12345678, -1, math.MaxInt32} {
		w := NewWriter(format.AC1015)
		w.WriteBitLong(value)

		r := NewReader(flushed(w), format.AC1015)
		got, err := r.ReadBitLong()
		require.NoError(t, err)
		require.Equal(t, value, got)
	}
}

func TestRoundTripBitLongLong(t *testing.T) {
	for _, value := range []int64{0, 1, 0xFF, 0x1234, 0xABCDEF, 0x123456789ABC} {
		w := NewWriter(format.AC1015)
		w.WriteBitLongLong(value)

		r := NewReader(flushed(w), format.AC1015)
		got, err := r.ReadBitLongLong()
		require.NoError(t, err)
		require.Equal(t, value, got)
	}
}

func TestRoundTripBitDouble(t *testing.T) {
	for _, value := range []float64{0.0, 1.0, 3.14, -42.5, math.MaxFloat64, math.SmallestNonzeroFloat64} {
		w := NewWriter(format.AC1015)
		w.WriteBitDouble(value)

		r := NewReader(flushed(w), format.AC1015)
		got, err := r.ReadBitDouble()
		require.NoError(t, err)
		require.Equal(t, value, got)
	}
}

func TestRoundTripBitDoubleWithDefault(t *testing.T) {
	def := 1.0

	// Values chosen so each of the four codes is exercised: equal to the
	// default, low-mantissa patch, six-byte patch, and a full double.
	values := []float64{
		def,
		math.Float64frombits(math.Float64bits(def) | 0x12345),
		math.Float64frombits(math.Float64bits(def) | 0x12_00000000),
		-987.654,
	}

	for _, value := range values {
		w := NewWriter(format.AC1015)
		w.WriteBitDoubleWithDefault(def, value)

		r := NewReader(flushed(w), format.AC1015)
		got, err := r.ReadBitDoubleWithDefault(def)
		require.NoError(t, err)
		require.Equal(t, value, got)
	}
}

func TestRoundTripPoints(t *testing.T) {
	w := NewWriter(format.AC1015)
	w.Write2BitDouble(Point2D{X: 1.5, Y: -2.5})
	w.Write3BitDouble(Point3D{X: 0, Y: 1, Z: 42.25})
	w.Write2RawDouble(Point2D{X: 7.75, Y: 0})
	w.Write3RawDouble(Point3D{X: -1, Y: 2, Z: -3})

	r := NewReader(flushed(w), format.AC1015)

	p2, err := r.Read2BitDouble()
	require.NoError(t, err)
	require.Equal(t, Point2D{X: 1.5, Y: -2.5}, p2)

	p3, err := r.Read3BitDouble()
	require.NoError(t, err)
	require.Equal(t, Point3D{X: 0, Y: 1, Z: 42.25}, p3)

	p2, err = r.Read2RawDouble()
	require.NoError(t, err)
	require.Equal(t, Point2D{X: 7.75, Y: 0}, p2)

	p3, err = r.Read3RawDouble()
	require.NoError(t, err)
	require.Equal(t, Point3D{X: -1, Y: 2, Z: -3}, p3)
}

func TestRoundTripRawValues(t *testing.T) {
	w := NewWriter(format.AC1015)
	// One leading bit forces every raw value across a bit boundary.
	w.WriteBit(true)
	w.WriteRawShort(-1234)
	w.WriteRawUShort(0xBEEF)
	w.WriteRawLong(-123456789)
	w.WriteRawULong(0x123456789ABCDEF0)
	w.WriteRawDouble(2.718281828)

	r := NewReader(flushed(w), format.AC1015)

	bit, err := r.ReadBit()
	require.NoError(t, err)
	require.True(t, bit)

	s, err := r.ReadRawShort()
	require.NoError(t, err)
	require.Equal(t, int16(-1234), s)

	us, err := r.ReadRawUShort()
	require.NoError(t, err)
	require.Equal(t, uint16(0xBEEF), us)

	l, err := r.ReadRawLong()
	require.NoError(t, err)
	require.Equal(t, int32(-123456789), l)

	ul, err := r.ReadRawULong()
	require.NoError(t, err)
	require.Equal(t, uint64(0x123456789ABCDEF0), ul)

	d, err := r.ReadRawDouble()
	require.NoError(t, err)
	require.Equal(t, 2.718281828, d)
}

func TestReadModularCharKnownBytes(t *testing.T) {
	// Two-byte example from the format documentation: 0x82 0x24 is 4610.
	r := NewReader([]byte{0x82, 0x24}, format.AC1015)
	v, err := r.ReadModularChar()
	require.NoError(t, err)
	require.Equal(t, uint64(4610), v)

	// 0x85 0x4B is -1413 in the signed form.
	r = NewReader([]byte{0x85, 0x4B}, format.AC1015)
	sv, err := r.ReadSignedModularChar()
	require.NoError(t, err)
	require.Equal(t, int64(-1413), sv)
}

func TestRoundTripModularChar(t *testing.T) {
	for _, value := range []uint64{0, 1, 0x3F, 0x40, 0x7F, 0x80, 4610, 0xFFFF, 0x123456789A} {
		w := NewWriter(format.AC1015)
		w.WriteModularChar(value)

		r := NewReader(flushed(w), format.AC1015)
		got, err := r.ReadModularChar()
		require.NoError(t, err)
		require.Equal(t, value, got)
	}
}

func TestRoundTripSignedModularChar(t *testing.T) {
	for _, value := range []int64{0, 1, -1, 0x3F, -0x3F, 0x40, -0x40, 1413, -1413, 0x123456, -0x123456} {
		w := NewWriter(format.AC1015)
		w.WriteSignedModularChar(value)

		r := NewReader(flushed(w), format.AC1015)
		got, err := r.ReadSignedModularChar()
		require.NoError(t, err)
		require.Equal(t, value, got)
	}
}

func TestRoundTripModularShort(t *testing.T) {
	for _, value := range []int32{0, 1, 0x7FFF, 0x8000, 0x48431, 0x12345678} {
		w := NewWriter(format.AC1015)
		w.WriteModularShort(value)

		r := NewReader(flushed(w), format.AC1015)
		got, err := r.ReadModularShort()
		require.NoError(t, err)
		require.Equal(t, value, got)
	}
}

func TestRoundTripHandleReference(t *testing.T) {
	for _, handle := range []uint64{0, 1, 0xFF, 0x1234, 0xABCDEF, 0x12345678, 0x123456789ABCDEF0} {
		w := NewWriter(format.AC1015)
		w.HandleReferenceTyped(RefSoftPointer, handle)

		r := NewReader(flushed(w), format.AC1015)
		got, refType, err := r.HandleReferenceTyped(0)
		require.NoError(t, err)
		require.Equal(t, handle, got)
		require.Equal(t, RefSoftPointer, refType)
	}
}

func TestHandleReferenceOffsetForms(t *testing.T) {
	const owner = 100

	w := NewWriter(format.AC1015)
	w.HandleReferenceTyped(RefPlusOne, 0)
	w.HandleReferenceTyped(RefMinusOne, 0)
	w.HandleReferenceTyped(RefPlusOffset, 5)
	w.HandleReferenceTyped(RefMinusOffset, 7)

	r := NewReader(flushed(w), format.AC1015)

	for _, want := range []struct {
		handle  uint64
		refType ReferenceType
	}{
		{owner + 1, RefPlusOne},
		{owner - 1, RefMinusOne},
		{owner + 5, RefPlusOffset},
		{owner - 7, RefMinusOffset},
	} {
		handle, refType, err := r.HandleReferenceTyped(owner)
		require.NoError(t, err)
		require.Equal(t, want.handle, handle)
		require.Equal(t, want.refType, refType)
		require.False(t, refType.IsAbsolute())
	}
}

func TestRoundTripVariableText(t *testing.T) {
	// Windows-1252 text before AC1021.
	w := NewWriter(format.AC1015)
	require.NoError(t, w.WriteVariableText("café"))
	require.NoError(t, w.WriteVariableText(""))

	r := NewReader(flushed(w), format.AC1015)
	got, err := r.ReadVariableText()
	require.NoError(t, err)
	require.Equal(t, "café", got)
	got, err = r.ReadVariableText()
	require.NoError(t, err)
	require.Equal(t, "", got)

	// UTF-16LE from AC1021 on.
	w = NewWriter(format.AC1021)
	require.NoError(t, w.WriteVariableText("ABC€"))

	r = NewReader(flushed(w), format.AC1021)
	got, err = r.ReadVariableText()
	require.NoError(t, err)
	require.Equal(t, "ABC€", got)
}

func TestRoundTripVariableTextCodePage(t *testing.T) {
	w := NewWriter(format.AC1018)
	w.SetCodePage(0x0B) // Shift JIS
	require.NoError(t, w.WriteVariableText("テスト"))

	r := NewReader(flushed(w), format.AC1018)
	r.SetCodePage(0x0B)
	got, err := r.ReadVariableText()
	require.NoError(t, err)
	require.Equal(t, "テスト", got)
}

func TestRoundTripTextUnicode(t *testing.T) {
	w := NewWriter(format.AC1021)
	require.NoError(t, w.WriteTextUnicode("Model"))

	r := NewReader(flushed(w), format.AC1021)
	got, err := r.ReadTextUnicode()
	require.NoError(t, err)
	require.Equal(t, "Model", got)
}

func TestRoundTripCmColor(t *testing.T) {
	// Legacy index form.
	w := NewWriter(format.AC1015)
	w.WriteCmColor(ColorFromIndex(3))
	w.WriteCmColor(Color{Mode: ColorByLayer})

	r := NewReader(flushed(w), format.AC1015)
	c, err := r.ReadCmColor()
	require.NoError(t, err)
	require.Equal(t, ColorFromIndex(3), c)
	c, err = r.ReadCmColor()
	require.NoError(t, err)
	require.Equal(t, Color{Mode: ColorByLayer}, c)

	// Packed RGB form from AC1018 on.
	w = NewWriter(format.AC1018)
	w.WriteCmColor(ColorFromRGB(0x11, 0x22, 0x33))
	w.WriteCmColor(ColorFromIndex(5))
	w.WriteCmColor(Color{Mode: ColorByLayer})

	r = NewReader(flushed(w), format.AC1018)
	c, err = r.ReadCmColor()
	require.NoError(t, err)
	require.Equal(t, ColorFromRGB(0x11, 0x22, 0x33), c)
	c, err = r.ReadCmColor()
	require.NoError(t, err)
	require.Equal(t, ColorFromIndex(5), c)
	c, err = r.ReadCmColor()
	require.NoError(t, err)
	require.Equal(t, Color{Mode: ColorByLayer}, c)
}

func TestRoundTripEnColor(t *testing.T) {
	cases := []EntityColor{
		{Color: Color{Mode: ColorByBlock}},
		{Color: ColorFromIndex(42)},
		{Color: ColorFromRGB(0xAA, 0xBB, 0xCC)},
		{Color: ColorFromIndex(7), Transparency: 0x02000080, HasTransparency: true},
	}

	for _, want := range cases {
		w := NewWriter(format.AC1018)
		w.WriteEnColor(want)

		r := NewReader(flushed(w), format.AC1018)
		got, err := r.ReadEnColor()
		require.NoError(t, err)
		require.Equal(t, want, got)
	}

	// Pre-AC1018 collapses to the index form.
	w := NewWriter(format.AC1015)
	w.WriteEnColor(EntityColor{Color: ColorFromIndex(42)})

	r := NewReader(flushed(w), format.AC1015)
	got, err := r.ReadEnColor()
	require.NoError(t, err)
	require.Equal(t, EntityColor{Color: ColorFromIndex(42)}, got)
}

func TestRoundTripObjectType(t *testing.T) {
	// The pair encoding from AC1024 on covers all three ranges.
	for _, value := range []int16{1, 0x43, 0xFF, 0x1F2, 0x2EF, 0x300, 0x7FFF} {
		w := NewWriter(format.AC1024)
		w.WriteObjectType(value)

		r := NewReader(flushed(w), format.AC1024)
		got, err := r.ReadObjectType()
		require.NoError(t, err)
		require.Equal(t, value, got)
	}

	w := NewWriter(format.AC1018)
	w.WriteObjectType(0x43)

	r := NewReader(flushed(w), format.AC1018)
	got, err := r.ReadObjectType()
	require.NoError(t, err)
	require.Equal(t, int16(0x43), got)
}

func TestRoundTripExtrusionAndThickness(t *testing.T) {
	for _, version := range []format.Version{format.AC1014, format.AC1015} {
		w := NewWriter(version)
		w.WriteBitExtrusion(UnitZ)
		w.WriteBitExtrusion(Point3D{X: 1})
		w.WriteBitThickness(0.0)
		w.WriteBitThickness(12.5)

		r := NewReader(flushed(w), version)

		p, err := r.ReadBitExtrusion()
		require.NoError(t, err)
		require.Equal(t, UnitZ, p)
		p, err = r.ReadBitExtrusion()
		require.NoError(t, err)
		require.Equal(t, Point3D{X: 1}, p)

		th, err := r.ReadBitThickness()
		require.NoError(t, err)
		require.Equal(t, 0.0, th)
		th, err = r.ReadBitThickness()
		require.NoError(t, err)
		require.Equal(t, 12.5, th)
	}
}

func TestRoundTripDates(t *testing.T) {
	w := NewWriter(format.AC1015)
	w.WriteDateTime(2460000, 43200000)
	w.Write8BitJulianDate(2459999, 1000)
	w.WriteTimeSpan(3, 7200000)

	r := NewReader(flushed(w), format.AC1015)

	jdate, ms, err := r.ReadDateTime()
	require.NoError(t, err)
	require.Equal(t, int32(2460000), jdate)
	require.Equal(t, int32(43200000), ms)

	jdate, ms, err = r.Read8BitJulianDate()
	require.NoError(t, err)
	require.Equal(t, int32(2459999), jdate)
	require.Equal(t, int32(1000), ms)

	days, ms, err := r.ReadTimeSpan()
	require.NoError(t, err)
	require.Equal(t, int32(3), days)
	require.Equal(t, int32(7200000), ms)
}

func TestRoundTripSentinel(t *testing.T) {
	w := NewWriter(format.AC1015)
	w.WriteBytes(format.SentinelHeaderStart[:])

	r := NewReader(flushed(w), format.AC1015)
	s, err := r.ReadSentinel()
	require.NoError(t, err)
	require.NoError(t, format.CheckSentinel(s[:], format.SentinelHeaderStart))
}

func TestSizePatchAtBitPosition(t *testing.T) {
	w := NewWriter(format.AC1015)
	w.WriteBit(true)
	w.WriteBit(true)
	w.WriteBit(true)
	w.SavePositionForSize()
	w.WriteBitShort(42)
	w.WriteSpearShift()

	// Patch the reserved long without disturbing the bits around it.
	require.NoError(t, w.SetPositionInBits(w.SavedPositionInBits()))
	w.WriteRawLong(1234)
	w.WriteShiftValue()

	r := NewReader(w.Bytes(), format.AC1015)
	for i := 0; i < 3; i++ {
		bit, err := r.ReadBit()
		require.NoError(t, err)
		require.True(t, bit)
	}

	size, err := r.ReadRawLong()
	require.NoError(t, err)
	require.Equal(t, int32(1234), size)

	got, err := r.ReadBitShort()
	require.NoError(t, err)
	require.Equal(t, int16(42), got)
}

func TestPositionInBits(t *testing.T) {
	w := NewWriter(format.AC1015)
	require.Equal(t, int64(0), w.PositionInBits())
	w.WriteBit(true)
	require.Equal(t, int64(1), w.PositionInBits())
	w.WriteByte(0xAB)
	require.Equal(t, int64(9), w.PositionInBits())

	r := NewReader(flushed(w), format.AC1015)
	_, err := r.ReadBit()
	require.NoError(t, err)
	require.Equal(t, int64(1), r.PositionInBits())
	_, err = r.ReadByte()
	require.NoError(t, err)
	require.Equal(t, int64(9), r.PositionInBits())

	require.NoError(t, r.SetPositionInBits(1))
	b, err := r.ReadByte()
	require.NoError(t, err)
	require.Equal(t, byte(0xAB), b)
}

func TestReaderEndOfStream(t *testing.T) {
	r := NewReader(nil, format.AC1015)
	_, err := r.ReadBit()
	require.ErrorIs(t, err, ErrEndOfStream)

	r = NewReader([]byte{0x01}, format.AC1015)
	_, err = r.ReadRawShort()
	require.ErrorIs(t, err, ErrEndOfStream)

	r = NewReader([]byte{0x01, 0x02}, format.AC1015)
	_, err = r.ReadBytes(5)
	require.ErrorIs(t, err, ErrEndOfStream)
}

func TestReaderMalformedCodes(t *testing.T) {
	// 0xC0 opens with the two-bit code 3, unused for BL and BD.
	r := NewReader([]byte{0xC0}, format.AC1015)
	_, err := r.ReadBitLong()
	require.ErrorIs(t, err, ErrMalformed)

	r = NewReader([]byte{0xC0}, format.AC1015)
	_, err = r.ReadBitDouble()
	require.ErrorIs(t, err, ErrMalformed)

	r = NewReader([]byte{0x00}, format.AC1015)
	_, err = r.ReadBytes(-1)
	require.ErrorIs(t, err, ErrMalformed)

	// Handle reference code 0xE is outside the known set.
	r = NewReader([]byte{0xE1, 0x05}, format.AC1015)
	_, _, err = r.HandleReferenceTyped(0)
	require.ErrorIs(t, err, ErrMalformed)
}

func TestResetShift(t *testing.T) {
	// Three bits of padding, then the short 0x1234 on the next boundary.
	w := NewWriter(format.AC1015)
	w.WriteBit(true)
	w.WriteSpearShift()
	w.WriteRawUShort(0x1234)

	r := NewReader(w.Bytes(), format.AC1015)
	_, err := r.ReadBit()
	require.NoError(t, err)

	v, err := r.ResetShift()
	require.NoError(t, err)
	require.Equal(t, uint16(0x1234), v)
}

func TestJulianToUnix(t *testing.T) {
	// Julian day 2440588 at midnight is 1970-01-02 noon... rather: it is
	// 43200 seconds past the epoch, since day numbers tick at noon.
	require.Equal(t, 43200.0, JulianToUnix(2440588, 0))
	require.Equal(t, 43201.5, JulianToUnix(2440588, 1500))
}
