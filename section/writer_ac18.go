package section

import (
	"github.com/draftbench/dwgio/checksum"
	"github.com/draftbench/dwgio/compress"
	"github.com/draftbench/dwgio/format"
	"github.com/draftbench/dwgio/internal/pool"
)

// WriterAC18 writes the paged LZ77 layout of AC1018 and later releases
// except AC1021: a 0x100-byte preamble, compressed data pages with
// masked headers, then the section map, the page map and the encrypted
// header copies.
type WriterAC18 struct {
	version     format.Version
	codePage    uint16
	maintenance uint8

	header *FileHeaderAC18
	order  []string
	pages  []Page
	out    []byte
	codec  compress.Ac18Codec
}

var _ FileWriter = (*WriterAC18)(nil)

// NewWriterAC18 creates a paged-layout writer.
func NewWriterAC18(version format.Version, codePage uint16, maintenanceVersion uint8) *WriterAC18 {
	return &WriterAC18{
		version:     version,
		codePage:    codePage,
		maintenance: maintenanceVersion,
		header:      NewFileHeaderAC18(version),
		out:         make([]byte, ac18PreambleSize),
		codec:       compress.NewAc18Codec(),
	}
}

// HandleSectionOffset reports zero: paged layouts store object-map
// offsets relative to the start of the object data section.
func (w *WriterAC18) HandleSectionOffset() int64 {
	return 0
}

// AddSection splits the payload into pages of at most maxPageSize
// decompressed bytes and writes them out. A trailing partial page of
// all-zero bytes is elided; its content is implied by the declared
// section size.
func (w *WriterAC18) AddSection(name string, data []byte, compressed bool, maxPageSize int) error {
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
	if compressed {
		desc.CompressedCode = 2
	}

	offset := 0
	for offset+maxPageSize <= len(data) {
		if err := w.writePage(desc, data[offset:offset+maxPageSize], offset, maxPageSize, compressed); err != nil {
			return err
		}
		offset += maxPageSize
	}
	if spare := len(data) - offset; spare > 0 && !allZero(data[offset:]) {
		if err := w.writePage(desc, data[offset:], offset, maxPageSize, compressed); err != nil {
			return err
		}
	}

	w.header.Descriptors[name] = desc
	w.order = append(w.order, name)

	return nil
}

func allZero(data []byte) bool {
	for _, b := range data {
		if b != 0 {
			return false
		}
	}
	return true
}

// writePage emits one data page: the chunk zero-padded to the page cap,
// compressed if requested, behind a masked 32-byte header and followed
// by magic-sequence padding to the 0x20 boundary.
func (w *WriterAC18) writePage(desc *Descriptor, chunk []byte, offset, pageCap int, compressed bool) error {
	bb := pool.GetPageBuffer()
	defer pool.PutPageBuffer(bb)
	bb.ExtendOrGrow(pageCap)
	holder := bb.Bytes()[:pageCap]
	clear(holder)
	copy(holder, chunk)

	payload := holder
	if compressed {
		var err error
		payload, err = w.codec.Compress(holder)
		if err != nil {
			return err
		}
	}

	w.alignOutput()
	position := len(w.out)

	page := Page{
		PageNumber:       int32(len(w.pages)) + 1,
		Offset:           uint64(offset),
		Seeker:           uint64(position),
		CompressedSize:   uint64(len(payload)),
		DecompressedSize: uint64(len(chunk)),
		ODA:              uint64(checksum.PageChecksum(0, payload)),
		PageType:         PageTypeData,
	}
	padding := checksum.CompressionPadding(len(payload))
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
	w.out = append(w.out, payload...)
	for i := 0; i < padding; i++ {
		w.out = append(w.out, checksum.MagicSequence[i&0xFF])
	}

	page.Size = uint64(len(w.out) - position)
	desc.PageCount++
	desc.Pages = append(desc.Pages, page)
	w.pages = append(w.pages, page)

	return nil
}

// alignOutput pads the output to the 0x20 boundary with magic-sequence
// bytes. Page sizes are already rounded to 0x20, so this is normally a
// no-op, but the section map page can leave the output unaligned.
func (w *WriterAC18) alignOutput() {
	n := len(w.out) % 0x20
	for i := 0; i < n; i++ {
		w.out = append(w.out, checksum.MagicSequence[i])
	}
}

// writeMapPage compresses a map stream and writes it behind the 20-byte
// header, chaining the checksum over the zero-checksum header and the
// compressed payload.
func (w *WriterAC18) writeMapPage(page *Page, data []byte) error {
	page.DecompressedSize = uint64(len(data))
	compressed, err := w.codec.Compress(data)
	if err != nil {
		return err
	}
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

	w.out = append(w.out, hdr.encode()...)
	w.out = append(w.out, compressed...)

	return nil
}

// writeSectionMap serializes the descriptors and their page tables into
// the section map page.
func (w *WriterAC18) writeSectionMap() error {
	stream := make([]byte, 0, 128*len(w.order))
	stream = le.AppendUint32(stream, uint32(len(w.order)))
	stream = le.AppendUint32(stream, 2)
	stream = le.AppendUint32(stream, DefaultMaxPageSize)
	stream = le.AppendUint32(stream, 0)
	stream = le.AppendUint32(stream, uint32(len(w.order)))

	for _, name := range w.order {
		desc := w.header.Descriptors[name]
		stream = le.AppendUint64(stream, desc.CompressedSize)
		stream = le.AppendUint32(stream, uint32(desc.PageCount))
		stream = le.AppendUint32(stream, uint32(desc.DecompressedSize))
		stream = le.AppendUint32(stream, 1)
		stream = le.AppendUint32(stream, uint32(desc.CompressedCode))
		stream = le.AppendUint32(stream, uint32(desc.SectionID))
		stream = le.AppendUint32(stream, uint32(desc.Encrypted))

		var nameBuf [64]byte
		copy(nameBuf[:], name)
		stream = append(stream, nameBuf[:]...)

		for _, page := range desc.Pages {
			if page.PageNumber <= 0 {
				continue
			}
			stream = le.AppendUint32(stream, uint32(page.PageNumber))
			stream = le.AppendUint32(stream, uint32(page.CompressedSize))
			stream = le.AppendUint64(stream, page.Offset)
		}
	}

	w.alignOutput()

	page := Page{
		PageType:        PageTypeSectionMap,
		CompressionType: 2,
		PageNumber:      int32(len(w.pages)) + 1,
		Seeker:          uint64(len(w.out)),
	}
	if err := w.writeMapPage(&page, stream); err != nil {
		return err
	}

	padding := checksum.CompressionPadding(len(w.out) - int(page.Seeker))
	for i := 0; i < padding; i++ {
		w.out = append(w.out, checksum.MagicSequence[i&0xFF])
	}

	page.Size = uint64(len(w.out)) - page.Seeker
	w.pages = append(w.pages, page)

	return nil
}

// writePageMap serializes the page number and size of every page,
// including the page map itself, into the page map page, then records
// its location in the header.
func (w *WriterAC18) writePageMap() error {
	w.alignOutput()

	page := Page{
		PageType:        PageTypePageMap,
		CompressionType: 2,
		PageNumber:      int32(len(w.pages)) + 1,
	}
	w.pages = append(w.pages, page)

	seeker := len(w.out)
	counter := len(w.pages) * 8
	size := counter + checksum.CompressionPadding(counter)

	// The page map's own entry carries the sizes known at this point; as
	// the last page in the map nothing downstream depends on them.
	stream := make([]byte, 0, counter)
	for _, p := range w.pages {
		stream = le.AppendUint32(stream, uint32(p.PageNumber))
		stream = le.AppendUint32(stream, uint32(p.Size))
	}

	last := len(w.pages) - 1
	w.pages[last].Seeker = uint64(seeker)
	w.pages[last].Size = uint64(size)

	pm := w.pages[last]
	if err := w.writeMapPage(&pm, stream); err != nil {
		return err
	}
	w.pages[last] = pm

	w.header.GapAmount = 0
	w.header.LastPageID = pm.PageNumber
	w.header.LastSectionAddr = uint64(seeker+size) - ac18PreambleSize
	w.header.SectionAmount = uint32(len(w.pages) - 1)
	w.header.PageMapAddress = uint64(seeker)

	return nil
}

// firstPageSeeker reports the file position of a section's first page,
// or zero when the section is absent.
func firstPageSeeker(h *FileHeaderAC18, name string) uint64 {
	if desc, ok := h.Descriptors[name]; ok && len(desc.Pages) > 0 {
		return desc.Pages[0].Seeker
	}
	return 0
}

// writeMetadata fills in the preamble and appends the trailing encrypted
// header copy with its magic-sequence tail.
func (w *WriterAC18) writeMetadata() {
	w.header.SecondHeaderAddr = uint64(len(w.out))
	headerData := encryptedHeaderData(w.header)

	copy(w.out[0:6], w.version.String())
	for i := 6; i < 0x0B; i++ {
		w.out[i] = 0
	}
	w.out[0x0B] = w.maintenance
	w.out[0x0C] = 3
	le.PutUint32(w.out[0x0D:], uint32(firstPageSeeker(w.header, format.SectionPreview))+0x20)
	w.out[0x11] = byte(w.version)
	w.out[0x12] = w.maintenance
	le.PutUint16(w.out[0x13:], w.codePage)
	w.out[0x15], w.out[0x16], w.out[0x17] = 0, 0, 0
	le.PutUint32(w.out[0x18:], 0)
	le.PutUint32(w.out[0x1C:], 0)
	le.PutUint32(w.out[0x20:], uint32(firstPageSeeker(w.header, format.SectionSummaryInfo))+0x20)
	le.PutUint32(w.out[0x24:], 0)
	le.PutUint32(w.out[0x28:], 0x80)
	le.PutUint32(w.out[0x2C:], uint32(firstPageSeeker(w.header, format.SectionAppInfo))+0x20)
	for i := 0x30; i < encryptedHeaderOffset; i++ {
		w.out[i] = 0
	}
	copy(w.out[encryptedHeaderOffset:], headerData)
	for i := encryptedHeaderOffset + len(headerData); i < ac18PreambleSize; i++ {
		w.out[i] = checksum.MagicSequence[(236+i-encryptedHeaderOffset-len(headerData))&0xFF]
	}

	w.out = append(w.out, headerData...)
	for i := 0; i < 20; i++ {
		w.out = append(w.out, checksum.MagicSequence[(236+i)&0xFF])
	}
}

// WriteFile closes the file: map page IDs are fixed first because the
// section map stream references them, then the maps and the preamble are
// written.
func (w *WriterAC18) WriteFile() ([]byte, error) {
	w.header.SectionArrayPageSize = uint32(len(w.pages)) + 2
	w.header.SectionPageMapID = w.header.SectionArrayPageSize
	w.header.SectionMapID = w.header.SectionArrayPageSize - 1

	if err := w.writeSectionMap(); err != nil {
		return nil, err
	}
	if err := w.writePageMap(); err != nil {
		return nil, err
	}
	w.writeMetadata()

	out := w.out
	w.out = nil

	return out, nil
}
