package dwgio

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/draftbench/dwgio/format"
	"github.com/draftbench/dwgio/section"
)

// TestDrawingTransportRoundTrip drives the whole transport stack the way
// a file writer would: object records merged into the object data, the
// object map encoded against the section offset, everything framed into
// a file image, then resolved and decoded back.
func TestDrawingTransportRoundTrip(t *testing.T) {
	version, err := ParseVersion("AC1018")
	require.NoError(t, err)

	// One object record.
	rw := NewMergedWriterAC14(version)
	rw.SavePositionForSize()
	rw.WriteBitShort(51)
	require.NoError(t, rw.WriteVariableText("Layer0"))
	rw.HandleReference(0x2A)
	require.NoError(t, rw.WriteSpearShift())
	objects := rw.Bytes()

	w, err := NewFileWriter(version, 30, 104)
	require.NoError(t, err)

	require.NoError(t, w.AddSection(format.SectionAcDbObjects, objects, true, 0))

	// Paged layouts keep object map offsets section-relative.
	require.Equal(t, int64(0), w.HandleSectionOffset())
	codec := NewHandleMapCodec(version)
	handleData := codec.Encode(map[uint64]int64{0x2A: 0}, w.HandleSectionOffset())
	require.NoError(t, w.AddSection(format.SectionHandles, handleData, true, 0))

	file, err := w.WriteFile()
	require.NoError(t, err)

	f, err := NewFramer(file)
	require.NoError(t, err)
	require.Equal(t, version, f.Version())

	resolved, err := f.ResolveSection(format.SectionHandles)
	require.NoError(t, err)
	entries, err := codec.Decode(resolved)
	require.NoError(t, err)
	require.Equal(t, map[uint64]int64{0x2A: 0}, entries)

	resolved, err = f.ResolveSection(format.SectionAcDbObjects)
	require.NoError(t, err)
	require.Equal(t, objects, resolved)

	r, err := SplitRecordAC14(resolved, version, entries[0x2A]*8)
	require.NoError(t, err)

	kind, err := r.ReadBitShort()
	require.NoError(t, err)
	require.Equal(t, int16(51), kind)

	name, err := r.ReadVariableText()
	require.NoError(t, err)
	require.Equal(t, "Layer0", name)

	handle, err := r.HandleReference()
	require.NoError(t, err)
	require.Equal(t, uint64(0x2A), handle)
}

func TestSectionHashKnownNames(t *testing.T) {
	require.Equal(t, format.HashAcDbObjects, SectionHash(format.SectionAcDbObjects))
	require.Equal(t, format.HashHandles, SectionHash(format.SectionHandles))
	require.Equal(t, SectionHash("AcDb:Custom"), SectionHash("AcDb:Custom"))
}

func TestNewFramerRejectsGarbage(t *testing.T) {
	_, err := NewFramer([]byte("not a drawing"))
	require.Error(t, err)

	_, err = NewFramer(nil)
	require.ErrorIs(t, err, section.ErrMalformed)
}
