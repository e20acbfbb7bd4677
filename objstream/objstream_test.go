package objstream

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/draftbench/dwgio/bitcode"
	"github.com/draftbench/dwgio/format"
)

func TestMergedRecordRoundTrip(t *testing.T) {
	w := NewMergedWriter(format.AC1021)
	w.SavePositionForSize()

	w.WriteBitShort(42)
	w.WriteBitLong(123456)
	w.WriteBitDouble(3.25)
	w.WriteBitExtrusion(bitcode.UnitZ)
	require.NoError(t, w.WriteVariableText("Layer0"))
	require.NoError(t, w.WriteVariableText("Continuous"))
	w.HandleReferenceTyped(bitcode.RefHardOwnership, 0x2A)
	w.HandleReferenceTyped(bitcode.RefSoftPointer, 0x1234)

	require.NoError(t, w.WriteSpearShift())

	r, err := SplitRecord(w.Bytes(), format.AC1021, 0)
	require.NoError(t, err)
	require.Equal(t, w.SavedPositionInBits(), r.Handle().PositionInBits())

	s, err := r.ReadBitShort()
	require.NoError(t, err)
	require.Equal(t, int16(42), s)

	l, err := r.ReadBitLong()
	require.NoError(t, err)
	require.Equal(t, int32(123456), l)

	d, err := r.ReadBitDouble()
	require.NoError(t, err)
	require.Equal(t, 3.25, d)

	normal, err := r.ReadBitExtrusion()
	require.NoError(t, err)
	require.Equal(t, bitcode.UnitZ, normal)

	text, err := r.ReadVariableText()
	require.NoError(t, err)
	require.Equal(t, "Layer0", text)
	text, err = r.ReadVariableText()
	require.NoError(t, err)
	require.Equal(t, "Continuous", text)

	handle, refType, err := r.HandleReferenceTyped(0)
	require.NoError(t, err)
	require.Equal(t, uint64(0x2A), handle)
	require.Equal(t, bitcode.RefHardOwnership, refType)

	handle, refType, err = r.HandleReferenceTyped(0)
	require.NoError(t, err)
	require.Equal(t, uint64(0x1234), handle)
	require.Equal(t, bitcode.RefSoftPointer, refType)
}

func TestMergedRecordWithoutText(t *testing.T) {
	w := NewMergedWriter(format.AC1021)
	w.SavePositionForSize()
	w.WriteBitShort(7)
	w.HandleReference(0x99)
	require.NoError(t, w.WriteSpearShift())

	r, err := SplitRecord(w.Bytes(), format.AC1021, 0)
	require.NoError(t, err)

	s, err := r.ReadBitShort()
	require.NoError(t, err)
	require.Equal(t, int16(7), s)

	// No string stream: text reads come back empty without consuming
	// anything.
	text, err := r.ReadVariableText()
	require.NoError(t, err)
	require.Equal(t, "", text)

	handle, err := r.HandleReference()
	require.NoError(t, err)
	require.Equal(t, uint64(0x99), handle)
}

func TestMergedRecordWideTextSizeField(t *testing.T) {
	// A string stream past 0x8000 bits forces the two-word size form.
	long := strings.Repeat("A", 2050)

	w := NewMergedWriter(format.AC1021)
	w.SavePositionForSize()
	w.WriteBitLong(1)
	require.NoError(t, w.WriteVariableText(long))
	w.HandleReference(0x10)
	require.NoError(t, w.WriteSpearShift())

	r, err := SplitRecord(w.Bytes(), format.AC1021, 0)
	require.NoError(t, err)

	l, err := r.ReadBitLong()
	require.NoError(t, err)
	require.Equal(t, int32(1), l)

	text, err := r.ReadVariableText()
	require.NoError(t, err)
	require.Equal(t, long, text)

	handle, err := r.HandleReference()
	require.NoError(t, err)
	require.Equal(t, uint64(0x10), handle)
}

func TestMergedRecordAtOffset(t *testing.T) {
	w := NewMergedWriter(format.AC1021)
	w.SavePositionForSize()
	w.WriteBitShort(11)
	require.NoError(t, w.WriteVariableText("x"))
	w.HandleReference(5)
	require.NoError(t, w.WriteSpearShift())

	// Records rarely start at the buffer origin; prepend some framing.
	data := append([]byte{0xDE, 0xAD, 0xBE, 0xEF}, w.Bytes()...)

	r, err := SplitRecord(data, format.AC1021, 32)
	require.NoError(t, err)

	s, err := r.ReadBitShort()
	require.NoError(t, err)
	require.Equal(t, int16(11), s)

	text, err := r.ReadVariableText()
	require.NoError(t, err)
	require.Equal(t, "x", text)

	handle, err := r.HandleReference()
	require.NoError(t, err)
	require.Equal(t, uint64(5), handle)
}

func TestMergedRecordAC14RoundTrip(t *testing.T) {
	w := NewMergedWriterAC14(format.AC1015)
	w.SavePositionForSize()

	w.WriteBitShort(42)
	require.NoError(t, w.WriteVariableText("Standard"))
	w.WriteBitDouble(0.5)
	w.HandleReferenceTyped(bitcode.RefSoftOwnership, 0xBEEF)

	require.NoError(t, w.WriteSpearShift())

	r, err := SplitRecordAC14(w.Bytes(), format.AC1015, 0)
	require.NoError(t, err)

	s, err := r.ReadBitShort()
	require.NoError(t, err)
	require.Equal(t, int16(42), s)

	// Text is inline in the main stream before AC1021.
	text, err := r.ReadVariableText()
	require.NoError(t, err)
	require.Equal(t, "Standard", text)

	d, err := r.ReadBitDouble()
	require.NoError(t, err)
	require.Equal(t, 0.5, d)

	handle, refType, err := r.HandleReferenceTyped(0)
	require.NoError(t, err)
	require.Equal(t, uint64(0xBEEF), handle)
	require.Equal(t, bitcode.RefSoftOwnership, refType)
}

func TestMergedCmColorNamesFromTextStream(t *testing.T) {
	// A CMC whose flag byte announces a color name: the structural fields
	// sit in main while the name travels in the string stream.
	w := NewMergedWriter(format.AC1018)
	w.SavePositionForSize()
	w.Main().WriteBitShort(0)
	rawColor := uint32(0xC3000005)
	w.Main().WriteBitLong(int32(rawColor))
	w.Main().WriteByte(1)
	require.NoError(t, w.WriteVariableText("PANTONE 185 C"))
	require.NoError(t, w.WriteSpearShift())

	r, err := SplitRecord(w.Bytes(), format.AC1018, 0)
	require.NoError(t, err)

	color, err := r.ReadCmColor()
	require.NoError(t, err)
	require.Equal(t, bitcode.ColorFromIndex(5), color)
}

func TestMergedReaderUnsupportedOps(t *testing.T) {
	w := NewMergedWriter(format.AC1021)
	w.SavePositionForSize()
	w.WriteBitShort(1)
	require.NoError(t, w.WriteSpearShift())

	r, err := SplitRecord(w.Bytes(), format.AC1021, 0)
	require.NoError(t, err)

	_, err = r.SetPositionByFlag(0)
	require.ErrorIs(t, err, ErrUnsupported)
	require.False(t, r.IsEmpty())
}
