package section

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/draftbench/dwgio/checksum"
	"github.com/draftbench/dwgio/compress"
	"github.com/draftbench/dwgio/format"
	"github.com/draftbench/dwgio/rscode"
)

// testPayload builds deterministic section data with a nonzero tail, so
// the spare-page elision of the paged writers never kicks in.
func testPayload(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i*31 + 7)
	}
	data[n-1] = 0xAB
	return data
}

func TestMaskPageHeaderInvolution(t *testing.T) {
	hdr := dataPageHeader{
		PageType:       PageTypeData,
		SectionNumber:  3,
		CompressedSize: 0x1234,
		PageSize:       0x1260,
		StartOffset:    0x7400,
		Checksum:       0xDEADBEEF,
		ODA:            0x0BAD,
	}

	buf := hdr.encode()
	plain := append([]byte(nil), buf...)

	MaskPageHeader(buf, 0x4A0)
	require.NotEqual(t, plain, buf)

	MaskPageHeader(buf, 0x4A0)
	require.Equal(t, plain, buf)
	require.Equal(t, hdr, parseDataPageHeader(buf))
}

func TestMetadata21RoundTrip(t *testing.T) {
	m := NewMetadata21()
	require.Equal(t, uint64(0x70), m.HeaderSize)
	require.Equal(t, uint64(0xF800), m.Unknown0xF800)
	require.Equal(t, uint64(0x60100), m.StreamVersion)

	m.FileSize = 0x123456
	m.PagesMapOffset = 0x9900
	m.PagesAmount = 7
	m.SectionsMapID = 6

	encoded := m.encode()
	require.Len(t, encoded, metadataSize)

	parsed, err := parseMetadata21(encoded)
	require.NoError(t, err)
	require.Equal(t, m, parsed)

	_, err = parseMetadata21(encoded[:100])
	require.Error(t, err)
}

func TestMetadata21RecoveryEnvelope(t *testing.T) {
	// The full preamble path: metadata compressed as literal runs, wrapped
	// in the Reed-Solomon envelope, then decoded and expanded back.
	m := NewMetadata21()
	m.FileSize = 0x8000
	m.PagesMapOffset = 0x5680
	m.PagesMapID = 5
	raw := m.encode()

	compressed := compress.EncodeAc21Literal(raw)

	payload := make([]byte, 0, 32+len(compressed))
	payload = le.AppendUint64(payload, 0)
	payload = le.AppendUint64(payload, 0)
	payload = le.AppendUint64(payload, 0)
	payload = le.AppendUint32(payload, uint32(len(compressed)))
	payload = le.AppendUint32(payload, uint32(len(compressed)))
	payload = append(payload, compressed...)

	encoded := rscode.Encode(payload, rscode.HeaderFactor, rscode.HeaderBlockSize)
	require.Len(t, encoded, rscode.HeaderFactor*rscode.TrackSize)

	decoded := rscode.Decode(encoded, rscode.HeaderFactor*rscode.HeaderBlockSize, rscode.HeaderFactor, rscode.HeaderBlockSize)
	length := int(le.Uint32(decoded[0x18:]))
	require.Equal(t, len(compressed), length)

	codec := compress.NewAc21Codec()
	restored, err := codec.Decompress(decoded[32:32+length], metadataSize)
	require.NoError(t, err)
	require.Equal(t, raw, restored)
}

func TestWriterAC15RoundTrip(t *testing.T) {
	header := testPayload(300)
	classes := testPayload(150)
	objects := testPayload(5000)
	handles := testPayload(400)

	w, err := NewFileWriter(format.AC1015, 30, 6)
	require.NoError(t, err)

	require.NoError(t, w.AddSection(format.SectionHeader, header, false, 0))
	require.NoError(t, w.AddSection(format.SectionClasses, classes, false, 0))

	// The object map offsets are file-absolute here, so the offset must
	// account for everything in front of the object data.
	require.Equal(t, int64(ac15HeaderSize+len(header)+len(classes)), w.HandleSectionOffset())

	require.NoError(t, w.AddSection(format.SectionAcDbObjects, objects, false, 0))
	require.NoError(t, w.AddSection(format.SectionHandles, handles, false, 0))

	file, err := w.WriteFile()
	require.NoError(t, err)

	f, err := NewFramer(file)
	require.NoError(t, err)
	require.Equal(t, format.AC1015, f.Version())
	require.Nil(t, f.Metadata())

	got, err := f.ResolveSection(format.SectionHeader)
	require.NoError(t, err)
	require.Equal(t, header, got)

	got, err = f.ResolveSection(format.SectionClasses)
	require.NoError(t, err)
	require.Equal(t, classes, got)

	got, err = f.ResolveSection(format.SectionHandles)
	require.NoError(t, err)
	require.Equal(t, handles, got)

	require.Equal(t,
		[]string{format.SectionClasses, format.SectionHandles, format.SectionHeader},
		f.SectionNames())
}

func TestFramerAC15HeaderCorruption(t *testing.T) {
	w, err := NewFileWriter(format.AC1015, 30, 6)
	require.NoError(t, err)
	require.NoError(t, w.AddSection(format.SectionHeader, testPayload(64), false, 0))

	file, err := w.WriteFile()
	require.NoError(t, err)

	file[0x20] ^= 0x01

	_, err = NewFramer(file)
	var mismatch *checksum.ChecksumMismatchError
	require.ErrorAs(t, err, &mismatch)
}

func TestWriterAC18RoundTrip(t *testing.T) {
	header := testPayload(900)
	objects := testPayload(DefaultMaxPageSize + 123)
	handles := testPayload(260)
	preview := testPayload(64)

	w, err := NewFileWriter(format.AC1018, 30, 104)
	require.NoError(t, err)
	require.Equal(t, int64(0), w.HandleSectionOffset())

	require.NoError(t, w.AddSection(format.SectionHeader, header, true, 0))
	require.NoError(t, w.AddSection(format.SectionAcDbObjects, objects, true, 0))
	require.NoError(t, w.AddSection(format.SectionHandles, handles, true, 0))
	require.NoError(t, w.AddSection(format.SectionPreview, preview, false, 0))

	file, err := w.WriteFile()
	require.NoError(t, err)

	f, err := NewFramer(file)
	require.NoError(t, err)
	require.Equal(t, format.AC1018, f.Version())

	got, err := f.ResolveSection(format.SectionHeader)
	require.NoError(t, err)
	require.Equal(t, header, got)

	// Two pages: one full, one partial.
	got, err = f.ResolveSection(format.SectionAcDbObjects)
	require.NoError(t, err)
	require.Equal(t, objects, got)

	got, err = f.ResolveSection(format.SectionHandles)
	require.NoError(t, err)
	require.Equal(t, handles, got)

	// Raw storage path.
	got, err = f.ResolveSection(format.SectionPreview)
	require.NoError(t, err)
	require.Equal(t, preview, got)
}

func TestFramerAC18DataPageCorruption(t *testing.T) {
	payload := testPayload(500)

	w, err := NewFileWriter(format.AC1018, 30, 104)
	require.NoError(t, err)
	require.NoError(t, w.AddSection(format.SectionHeader, payload, true, 0))

	file, err := w.WriteFile()
	require.NoError(t, err)

	// First data page payload starts right after its masked header.
	file[ac18PreambleSize+dataPageHeaderSize+5] ^= 0x01

	f, err := NewFramer(file)
	require.NoError(t, err)

	_, err = f.ResolveSection(format.SectionHeader)
	var mismatch *checksum.ChecksumMismatchError
	require.ErrorAs(t, err, &mismatch)
}

func TestFramerAC18EncryptedHeaderCorruption(t *testing.T) {
	w, err := NewFileWriter(format.AC1018, 30, 104)
	require.NoError(t, err)
	require.NoError(t, w.AddSection(format.SectionHeader, testPayload(80), true, 0))

	file, err := w.WriteFile()
	require.NoError(t, err)

	file[encryptedHeaderOffset+0x30] ^= 0x04

	_, err = NewFramer(file)
	require.Error(t, err)
}

func TestWriterAC21RoundTrip(t *testing.T) {
	header := testPayload(700)
	objects := testPayload(DefaultMaxPageSize + 50)
	handles := testPayload(330)

	w, err := NewFileWriter(format.AC1021, 30, 9)
	require.NoError(t, err)
	require.Equal(t, int64(0), w.HandleSectionOffset())

	require.NoError(t, w.AddSection(format.SectionHeader, header, true, 0))
	require.NoError(t, w.AddSection(format.SectionAcDbObjects, objects, true, 0))
	require.NoError(t, w.AddSection(format.SectionHandles, handles, true, 0))

	file, err := w.WriteFile()
	require.NoError(t, err)

	f, err := NewFramer(file)
	require.NoError(t, err)
	require.Equal(t, format.AC1021, f.Version())

	meta := f.Metadata()
	require.NotNil(t, meta)
	// Four data pages plus the section map and the page map.
	require.Equal(t, uint64(6), meta.PagesAmount)
	require.Equal(t, uint64(3), meta.SectionsAmount)
	require.Equal(t, uint64(1), meta.PagesMapCorrectionFactor)
	require.Equal(t, uint64(1), meta.SectionsMapCorrectionFactor)

	got, err := f.ResolveSection(format.SectionHeader)
	require.NoError(t, err)
	require.Equal(t, header, got)

	got, err = f.ResolveSection(format.SectionAcDbObjects)
	require.NoError(t, err)
	require.Equal(t, objects, got)

	got, err = f.ResolveSection(format.SectionHandles)
	require.NoError(t, err)
	require.Equal(t, handles, got)

	require.Equal(t,
		[]string{format.SectionAcDbObjects, format.SectionHandles, format.SectionHeader},
		f.SectionNames())
}

func TestFramerAC21MapPageCorrectionFactor(t *testing.T) {
	// Page map style stream: two number/size pairs.
	stream := make([]byte, 0, 16)
	stream = le.AppendUint32(stream, 1)
	stream = le.AppendUint32(stream, 0x120)
	stream = le.AppendUint32(stream, 2)
	stream = le.AppendUint32(stream, 0x40)
	compressed := compress.EncodeAc21Literal(stream)

	hdr := mapPageHeader{
		PageType:         PageTypePageMap,
		DecompressedSize: int32(len(stream)),
		CompressedSize:   int32(len(compressed)),
		CompressionType:  2,
	}
	sum := checksum.PageChecksum(0, hdr.encode())
	hdr.Checksum = checksum.PageChecksum(sum, compressed)

	// Factor one reads the payload bytes as stored.
	f := &Framer{data: append(hdr.encode(), compressed...)}
	out, err := f.readMapPageAC21(0, 1)
	require.NoError(t, err)
	require.Equal(t, stream, out)

	// Above one the payload is gathered from Reed-Solomon tracks first.
	factor, readSize := rscode.PageBufferParams(uint64(len(compressed)), 2, rscode.PageBlockSize)
	tracks := rscode.Encode(compressed, factor, rscode.PageBlockSize)
	require.Len(t, tracks, readSize)

	f = &Framer{data: append(hdr.encode(), tracks...)}
	out, err = f.readMapPageAC21(0, 2)
	require.NoError(t, err)
	require.Equal(t, stream, out)

	// Truncated track data is caught before the checksum runs.
	f = &Framer{data: append(hdr.encode(), tracks[:readSize/2]...)}
	_, err = f.readMapPageAC21(0, 2)
	require.ErrorIs(t, err, ErrMalformed)
}

func TestFramerAC21DataPageCorruption(t *testing.T) {
	w, err := NewFileWriter(format.AC1021, 30, 9)
	require.NoError(t, err)
	require.NoError(t, w.AddSection(format.SectionHeader, testPayload(256), true, 0))

	file, err := w.WriteFile()
	require.NoError(t, err)

	file[ac21PreambleSize+dataPageHeaderSize+9] ^= 0x10

	f, err := NewFramer(file)
	require.NoError(t, err)

	_, err = f.ResolveSection(format.SectionHeader)
	var mismatch *checksum.ChecksumMismatchError
	require.ErrorAs(t, err, &mismatch)
}

func TestFramerUnknownSection(t *testing.T) {
	w, err := NewFileWriter(format.AC1018, 30, 104)
	require.NoError(t, err)
	require.NoError(t, w.AddSection(format.SectionHeader, testPayload(40), true, 0))

	file, err := w.WriteFile()
	require.NoError(t, err)

	f, err := NewFramer(file)
	require.NoError(t, err)

	_, err = f.ResolveSection("AcDb:NoSuchSection")
	require.ErrorIs(t, err, ErrSectionNotFound)
}

func TestFramerRejectsBadInput(t *testing.T) {
	_, err := NewFramer(nil)
	require.ErrorIs(t, err, ErrMalformed)

	_, err = NewFramer([]byte("XXXXXX trailing"))
	require.ErrorIs(t, err, format.ErrUnsupportedVersion)

	// A valid tag with nothing behind it.
	_, err = NewFramer([]byte("AC1018"))
	require.ErrorIs(t, err, ErrMalformed)
}

func TestNewFileWriterDispatch(t *testing.T) {
	w, err := NewFileWriter(format.AC1015, 30, 0)
	require.NoError(t, err)
	require.IsType(t, (*WriterAC15)(nil), w)

	w, err = NewFileWriter(format.AC1032, 30, 0)
	require.NoError(t, err)
	require.IsType(t, (*WriterAC18)(nil), w)

	w, err = NewFileWriter(format.AC1021, 30, 0)
	require.NoError(t, err)
	require.IsType(t, (*WriterAC21)(nil), w)

	_, err = NewFileWriter(format.VersionUnknown, 30, 0)
	require.ErrorIs(t, err, format.ErrUnsupportedVersion)
}

func TestFramerCacheOptions(t *testing.T) {
	payload := testPayload(2048)

	w, err := NewFileWriter(format.AC1018, 30, 104)
	require.NoError(t, err)
	require.NoError(t, w.AddSection(format.SectionHeader, payload, true, 0))
	file, err := w.WriteFile()
	require.NoError(t, err)

	f, err := NewFramer(file, WithCacheCodec(format.CompressionLZ4))
	require.NoError(t, err)

	first, err := f.ResolveSection(format.SectionHeader)
	require.NoError(t, err)
	second, err := f.ResolveSection(format.SectionHeader)
	require.NoError(t, err)
	require.Equal(t, payload, first)
	require.Equal(t, payload, second)

	f, err = NewFramer(file, WithoutCache())
	require.NoError(t, err)
	got, err := f.ResolveSection(format.SectionHeader)
	require.NoError(t, err)
	require.Equal(t, payload, got)

	_, err = NewFramer(file, WithCacheCodec(format.CompressionType(99)))
	require.Error(t, err)
}
