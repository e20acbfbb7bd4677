package section

import (
	"github.com/draftbench/dwgio/checksum"
	"github.com/draftbench/dwgio/compress"
	"github.com/draftbench/dwgio/format"
	"github.com/draftbench/dwgio/rscode"
)

// WriterAC21 writes the AC1021 layout: a 0x480-byte preamble whose
// metadata block is LZ77-compressed and Reed-Solomon encoded, data pages
// with masked headers, and maps whose descriptor records are 64-bit
// fields with UTF-16 section names.
//
// Data pages are stored raw; the size equality between the compressed
// and decompressed fields tells readers to skip decompression. The maps
// and the metadata use the literal-run LZ77 encoding, which every AC1021
// reader accepts.
type WriterAC21 struct {
	version     format.Version
	codePage    uint16
	maintenance uint8

	header *FileHeaderAC18
	order  []string
	pages  []Page
	out    []byte
}

var _ FileWriter = (*WriterAC21)(nil)

// NewWriterAC21 creates an AC1021 writer.
func NewWriterAC21(version format.Version, codePage uint16, maintenanceVersion uint8) *WriterAC21 {
	return &WriterAC21{
		version:     version,
		codePage:    codePage,
		maintenance: maintenanceVersion,
		header:      NewFileHeaderAC18(version),
		out:         make([]byte, ac21PreambleSize),
	}
}

// HandleSectionOffset reports zero, as for every paged layout.
func (w *WriterAC21) HandleSectionOffset() int64 {
	return 0
}

// AddSection splits the payload into raw pages of at most maxPageSize
// bytes. The compressed flag is ignored.
func (w *WriterAC21) AddSection(name string, data []byte, _ bool, maxPageSize int) error {
	if maxPageSize <= 0 {
		maxPageSize = DefaultMaxPageSize
	}

	desc := &Descriptor{
		Name:             name,
		SectionID:        int32(len(w.order)),
		CompressedSize:   uint64(len(data)),
		DecompressedSize: uint64(maxPageSize),
		CompressedCode:   1,
		HashCode:         format.NameHash(name),
	}

	offset := 0
	for offset < len(data) {
		size := len(data) - offset
		if size > maxPageSize {
			size = maxPageSize
		}
		w.writePage(desc, data[offset:offset+size], offset)
		offset += size
	}

	w.header.Descriptors[name] = desc
	w.order = append(w.order, name)

	return nil
}

// writePage emits one raw data page behind a masked header.
func (w *WriterAC21) writePage(desc *Descriptor, chunk []byte, offset int) {
	w.alignOutput()
	position := len(w.out)

	page := Page{
		PageNumber:       int32(len(w.pages)) + 1,
		Offset:           uint64(offset),
		Seeker:           uint64(position),
		CompressedSize:   uint64(len(chunk)),
		DecompressedSize: uint64(len(chunk)),
		ODA:              uint64(checksum.PageChecksum(0, chunk)),
		PageType:         PageTypeData,
	}
	padding := checksum.CompressionPadding(len(chunk))
	page.PageSize = page.CompressedSize + dataPageHeaderSize + uint64(padding)

	hdr := dataPageHeader{
		PageType:       PageTypeData,
		SectionNumber:  desc.SectionID,
		CompressedSize: int32(page.CompressedSize),
		PageSize:       int32(page.PageSize),
		StartOffset:    int64(page.Offset),
		ODA:            uint32(page.ODA),
	}
	page.Checksum = uint64(checksum.PageChecksum(uint32(page.ODA), hdr.encode()))
	hdr.Checksum = uint32(page.Checksum)

	masked := hdr.encode()
	MaskPageHeader(masked, page.Seeker)

	w.out = append(w.out, masked...)
	w.out = append(w.out, chunk...)
	for i := 0; i < padding; i++ {
		w.out = append(w.out, checksum.MagicSequence[i&0xFF])
	}

	page.Size = uint64(len(w.out) - position)
	desc.PageCount++
	desc.Pages = append(desc.Pages, page)
	w.pages = append(w.pages, page)
}

func (w *WriterAC21) alignOutput() {
	n := len(w.out) % 0x20
	for i := 0; i < n; i++ {
		w.out = append(w.out, checksum.MagicSequence[i])
	}
}

// writeMapPage stores a map stream as a literal-run LZ77 page behind the
// 20-byte header.
func (w *WriterAC21) writeMapPage(page *Page, data []byte) {
	compressed := compress.EncodeAc21Literal(data)
	page.DecompressedSize = uint64(len(data))
	page.CompressedSize = uint64(len(compressed))

	hdr := mapPageHeader{
		PageType:         page.PageType,
		DecompressedSize: int32(page.DecompressedSize),
		CompressedSize:   int32(page.CompressedSize),
		CompressionType:  page.CompressionType,
	}
	sum := checksum.PageChecksum(0, hdr.encode())
	page.Checksum = uint64(checksum.PageChecksum(sum, compressed))
	hdr.Checksum = uint32(page.Checksum)

	w.alignOutput()
	page.Seeker = uint64(len(w.out))

	w.out = append(w.out, hdr.encode()...)
	w.out = append(w.out, compressed...)

	page.Size = uint64(len(w.out)) - page.Seeker
}

// writeSectionMap serializes the descriptors with 64-bit fields and
// UTF-16 names.
func (w *WriterAC21) writeSectionMap() error {
	stream := make([]byte, 0, 192*len(w.order))
	for _, name := range w.order {
		desc := w.header.Descriptors[name]

		nameBytes, err := utf16Encode(name)
		if err != nil {
			return err
		}

		stream = le.AppendUint64(stream, desc.CompressedSize)
		stream = le.AppendUint64(stream, desc.DecompressedSize)
		stream = le.AppendUint64(stream, uint64(desc.Encrypted))
		stream = le.AppendUint64(stream, uint64(desc.HashCode))
		stream = le.AppendUint64(stream, uint64(len(nameBytes)/2))
		stream = le.AppendUint64(stream, 0)
		stream = le.AppendUint64(stream, uint64(desc.CompressedCode))
		stream = le.AppendUint64(stream, uint64(desc.PageCount))
		stream = append(stream, nameBytes...)

		for _, page := range desc.Pages {
			stream = le.AppendUint64(stream, page.Offset)
			stream = le.AppendUint64(stream, page.Size)
			stream = le.AppendUint64(stream, uint64(page.PageNumber))
			stream = le.AppendUint64(stream, page.DecompressedSize)
			stream = le.AppendUint64(stream, page.CompressedSize)
			stream = le.AppendUint64(stream, page.Checksum)
			stream = le.AppendUint64(stream, page.CRC)
		}
	}

	page := Page{
		PageType:        PageTypeSectionMap,
		CompressionType: 2,
		PageNumber:      int32(len(w.pages)) + 1,
	}
	w.writeMapPage(&page, stream)
	w.pages = append(w.pages, page)

	w.header.SectionAmount = uint32(len(w.order))

	return nil
}

// writePageMap serializes the page number and size pairs. The page map
// does not list itself; its location travels in the metadata block.
func (w *WriterAC21) writePageMap() {
	stream := make([]byte, 0, 8*len(w.pages))
	for _, p := range w.pages {
		stream = le.AppendUint32(stream, uint32(p.PageNumber))
		stream = le.AppendUint32(stream, uint32(p.Size))
	}

	page := Page{
		PageType:        PageTypePageMap,
		CompressionType: 2,
		PageNumber:      int32(len(w.pages)) + 1,
	}
	w.writeMapPage(&page, stream)
	w.pages = append(w.pages, page)

	w.header.LastPageID = page.PageNumber
	w.header.LastSectionAddr = page.Seeker
	w.header.SecondHeaderAddr = 0
	w.header.PageMapAddress = page.Seeker
}

// buildMetadata fills the metadata block from the final page list: the
// page map is the last page, the section map the one before it.
func (w *WriterAC21) buildMetadata() *Metadata21 {
	m := NewMetadata21()
	m.FileSize = uint64(len(w.out))
	m.PagesAmount = uint64(len(w.pages))
	m.PagesMaxID = m.PagesAmount
	m.SectionsAmount = uint64(len(w.order))

	// Map pages are stored on a single track; readers only gather
	// Reed-Solomon tracks above factor one.
	m.PagesMapCorrectionFactor = 1
	m.SectionsMapCorrectionFactor = 1

	pm := w.pages[len(w.pages)-1]
	m.PagesMapOffset = pm.Seeker
	m.PagesMapID = uint64(pm.PageNumber)
	m.PagesMapSizeCompressed = pm.CompressedSize
	m.PagesMapSizeUncompressed = pm.DecompressedSize

	if len(w.pages) >= 2 {
		sm := w.pages[len(w.pages)-2]
		m.SectionsMapID = uint64(sm.PageNumber)
		m.SectionsMap2ID = m.SectionsMapID
		m.SectionsMapSizeCompressed = sm.CompressedSize
		m.SectionsMapSizeUncompressed = sm.DecompressedSize
	}

	return m
}

// writeMetadata fills in the preamble: the version tag, the encrypted
// header at 0x20 and the Reed-Solomon envelope of the compressed
// metadata block at 0x80, then the trailing header copy.
func (w *WriterAC21) writeMetadata() {
	headerData := encryptedHeaderData(w.header)

	meta := w.buildMetadata()
	compressedMeta := compress.EncodeAc21Literal(meta.encode())

	payload := make([]byte, 0, 32+len(compressedMeta))
	payload = le.AppendUint64(payload, 0)
	payload = le.AppendUint64(payload, 0)
	payload = le.AppendUint64(payload, 0)
	payload = le.AppendUint32(payload, uint32(len(compressedMeta)))
	payload = le.AppendUint32(payload, uint32(len(compressedMeta)))
	payload = append(payload, compressedMeta...)

	rs := rscode.Encode(payload, rscode.HeaderFactor, rscode.HeaderBlockSize)
	if len(rs) > rsMetadataSize {
		rs = rs[:rsMetadataSize]
	}

	copy(w.out[0:6], w.version.String())
	for i := 6; i < 0x0B; i++ {
		w.out[i] = 0
	}
	w.out[0x0B] = w.maintenance
	w.out[0x0C] = 1
	le.PutUint16(w.out[0x0D:], w.codePage)
	for i := 0x0F; i < 0x14; i++ {
		w.out[i] = 0
	}
	le.PutUint32(w.out[0x14:], 0)
	le.PutUint32(w.out[0x18:], 0)
	le.PutUint32(w.out[0x1C:], uint32(firstPageSeeker(w.header, format.SectionSummaryInfo))+0x20)
	copy(w.out[0x20:], headerData)
	copy(w.out[rsMetadataOffset:], rs)

	w.out = append(w.out, headerData...)
	for i := 0; i < 20; i++ {
		w.out = append(w.out, checksum.MagicSequence[(236+i)&0xFF])
	}
}

// WriteFile closes the file. Map page IDs are fixed before the maps are
// serialized.
func (w *WriterAC21) WriteFile() ([]byte, error) {
	w.header.SectionArrayPageSize = uint32(len(w.pages)) + 2
	w.header.SectionPageMapID = w.header.SectionArrayPageSize
	w.header.SectionMapID = w.header.SectionArrayPageSize - 1

	if err := w.writeSectionMap(); err != nil {
		return nil, err
	}
	w.writePageMap()
	w.writeMetadata()

	out := w.out
	w.out = nil

	return out, nil
}
