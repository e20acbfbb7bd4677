package section

import (
	"errors"
	"fmt"
	"slices"

	"github.com/draftbench/dwgio/checksum"
	"github.com/draftbench/dwgio/compress"
	"github.com/draftbench/dwgio/format"
	"github.com/draftbench/dwgio/internal/hash"
	"github.com/draftbench/dwgio/internal/options"
	"github.com/draftbench/dwgio/rscode"
)

// ErrSectionNotFound is returned when a name resolves to no section.
var ErrSectionNotFound = errors.New("section not found")

// ErrMalformed reports a structurally invalid file image.
var ErrMalformed = errors.New("malformed drawing file")

// Framer opens a drawing file image and resolves named sections from it.
// The preamble, the maps and every integrity envelope on the way are
// parsed eagerly by NewFramer, so a Framer in hand is already past the
// structural checks.
//
// Resolved sections are kept in an in-memory cache, recompressed with a
// fast general codec so large drawings do not pin twice their object
// data. A Framer is not safe for concurrent use.
type Framer struct {
	data    []byte
	version format.Version
	flags   format.Flags

	ac15  *FileHeaderAC15
	paged *FileHeaderAC18
	meta  *Metadata21

	pageCodec  compress.Ac18Codec
	cacheCodec compress.Codec
	cache      map[uint64][]byte
}

// Option configures a Framer.
type Option = options.Option[*Framer]

// WithCacheCodec selects the codec for the resolved-section cache.
func WithCacheCodec(compressionType format.CompressionType) Option {
	return options.New(func(f *Framer) error {
		codec, err := compress.GetCodec(compressionType)
		if err != nil {
			return err
		}
		f.cacheCodec = codec
		return nil
	})
}

// WithoutCache disables resolved-section caching.
func WithoutCache() Option {
	return options.NoError(func(f *Framer) {
		f.cache = nil
		f.cacheCodec = nil
	})
}

// NewFramer parses the file image's framing for the version named in its
// first six bytes.
func NewFramer(data []byte, opts ...Option) (*Framer, error) {
	if len(data) < 6 {
		return nil, fmt.Errorf("%w: %d bytes is too short for a version tag", ErrMalformed, len(data))
	}
	version, err := format.ParseVersion(string(data[0:6]))
	if err != nil {
		return nil, err
	}

	cacheCodec, err := compress.GetCodec(format.CompressionS2)
	if err != nil {
		return nil, err
	}

	f := &Framer{
		data:       data,
		version:    version,
		flags:      format.VersionFlags(version),
		pageCodec:  compress.NewAc18Codec(),
		cacheCodec: cacheCodec,
		cache:      make(map[uint64][]byte),
	}
	if err := options.Apply(f, opts...); err != nil {
		return nil, err
	}

	switch {
	case !f.flags.R2004Plus:
		err = f.parseAC15()
	case version == format.AC1021:
		err = f.parseAC21()
	default:
		err = f.parseAC18()
	}
	if err != nil {
		return nil, err
	}

	return f, nil
}

// Version reports the drawing version parsed from the file tag.
func (f *Framer) Version() format.Version {
	return f.version
}

// Metadata returns the R2007 header metadata block, or nil for every
// other version.
func (f *Framer) Metadata() *Metadata21 {
	return f.meta
}

// SectionNames lists the resolvable section names in sorted order.
func (f *Framer) SectionNames() []string {
	if f.ac15 != nil {
		names := make([]string, 0, len(f.ac15.Records))
		for idx := range f.ac15.Records {
			if name := locatorName(idx); name != "" {
				names = append(names, name)
			}
		}
		slices.Sort(names)
		return names
	}

	names := make([]string, 0, len(f.paged.Descriptors))
	for name := range f.paged.Descriptors {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// ResolveSection reassembles one named section from its pages, verifying
// every stored checksum. Results are served from the cache on repeat
// calls.
func (f *Framer) ResolveSection(name string) ([]byte, error) {
	key := hash.ID(name)
	if f.cache != nil {
		if blob, ok := f.cache[key]; ok {
			return f.cacheCodec.Decompress(blob)
		}
	}

	var out []byte
	var err error
	switch {
	case f.ac15 != nil:
		out, err = f.resolveAC15(name)
	case f.version == format.AC1021:
		out, err = f.resolveAC21(name)
	default:
		out, err = f.resolveAC18(name)
	}
	if err != nil {
		return nil, err
	}

	if f.cache != nil {
		if blob, cerr := f.cacheCodec.Compress(out); cerr == nil {
			f.cache[key] = blob
		}
	}

	return out, nil
}

// --- sequential layout ---

func (f *Framer) parseAC15() error {
	data := f.data
	if len(data) < ac15HeaderSize {
		return fmt.Errorf("%w: %d bytes is too short for the file header", ErrMalformed, len(data))
	}

	h := &FileHeaderAC15{
		Version:            f.version,
		MaintenanceVersion: data[0x0B],
		PreviewAddress:     int64(int32(le.Uint32(data[0x0D:]))),
		CodePage:           le.Uint16(data[0x13:]),
		Records:            make(map[int]LocatorRecord),
	}

	count := int(int32(le.Uint32(data[0x15:])))
	crcPos := ac15HeaderSize - 18
	pos := 0x19
	for i := 0; i < count; i++ {
		if pos+9 > crcPos {
			return fmt.Errorf("%w: locator table overruns the file header", ErrMalformed)
		}
		number := int32(data[pos])
		h.Records[int(number)] = LocatorRecord{
			Number: number,
			Seeker: int64(int32(le.Uint32(data[pos+1:]))),
			Size:   int64(int32(le.Uint32(data[pos+5:]))),
		}
		pos += 9
	}

	stored := le.Uint16(data[crcPos:])
	computed := checksum.Crc8(checksum.Crc8Seed, data[:crcPos])
	if stored != computed {
		return &checksum.ChecksumMismatchError{
			Expected: uint32(stored),
			Actual:   uint32(computed),
		}
	}
	if err := format.CheckSentinel(data[crcPos+2:crcPos+18], format.SentinelFileHeaderEnd); err != nil {
		return err
	}

	f.ac15 = h

	return nil
}

func (f *Framer) resolveAC15(name string) ([]byte, error) {
	idx := locatorIndex(name)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %q has no locator record", ErrSectionNotFound, name)
	}
	rec, ok := f.ac15.Records[idx]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSectionNotFound, name)
	}

	if rec.Seeker < 0 || rec.Size < 0 || rec.Seeker+rec.Size > int64(len(f.data)) {
		return nil, fmt.Errorf("%w: section %q record exceeds the file", ErrMalformed, name)
	}

	out := make([]byte, rec.Size)
	copy(out, f.data[rec.Seeker:rec.Seeker+rec.Size])

	return out, nil
}

// --- paged layouts ---

// parsePagedPreamble reads the fields shared by the AC1018 preamble.
func (f *Framer) parsePagedPreamble() *FileHeaderAC18 {
	data := f.data
	h := NewFileHeaderAC18(f.version)
	h.MaintenanceVersion = data[0x0B]
	h.PreviewAddress = int64(int32(le.Uint32(data[0x0D:])))
	h.DwgVersion = data[0x11]
	h.AppReleaseVersion = data[0x12]
	h.CodePage = le.Uint16(data[0x13:])
	h.SecurityType = int64(int32(le.Uint32(data[0x18:])))
	h.SummaryInfoAddr = int64(int32(le.Uint32(data[0x20:])))
	return h
}

func (f *Framer) parseAC18() error {
	if len(f.data) < ac18PreambleSize {
		return fmt.Errorf("%w: %d bytes is too short for the preamble", ErrMalformed, len(f.data))
	}
	h := f.parsePagedPreamble()

	enc := make([]byte, encryptedHeaderSize)
	copy(enc, f.data[encryptedHeaderOffset:encryptedHeaderOffset+encryptedHeaderSize])
	checksum.ApplyMagicSequence(enc)

	if [12]byte(enc[0:12]) != fileID {
		return fmt.Errorf("%w: bad file ID in the encrypted header", ErrMalformed)
	}

	stored := le.Uint32(enc[encryptedHeaderSize-4:])
	le.PutUint32(enc[encryptedHeaderSize-4:], 0)
	if computed := checksum.Crc32(0, enc); computed != stored {
		return &checksum.ChecksumMismatchError{Expected: stored, Actual: computed}
	}

	h.RootTreeNodeGap = int32(le.Uint32(enc[0x18:]))
	h.LeftGap = int32(le.Uint32(enc[0x1C:]))
	h.RightGap = int32(le.Uint32(enc[0x20:]))
	h.LastPageID = int32(le.Uint32(enc[0x28:]))
	h.LastSectionAddr = le.Uint64(enc[0x2C:])
	h.SecondHeaderAddr = le.Uint64(enc[0x34:])
	h.GapAmount = le.Uint32(enc[0x3C:])
	h.SectionAmount = le.Uint32(enc[0x40:])
	h.SectionPageMapID = le.Uint32(enc[0x50:])
	h.PageMapAddress = le.Uint64(enc[0x54:]) + ac18PreambleSize
	h.SectionMapID = le.Uint32(enc[0x5C:])
	h.SectionArrayPageSize = le.Uint32(enc[0x60:])
	h.GapArraySize = le.Uint32(enc[0x64:])
	h.CrcSeed = stored

	if err := f.readPageMapAC18(h); err != nil {
		return err
	}
	if err := f.readSectionMapAC18(h); err != nil {
		return err
	}

	f.paged = h

	return nil
}

// readMapPageAC18 reads and decompresses one map page, verifying the
// chained checksum.
func (f *Framer) readMapPageAC18(pos uint64, pageType int32) ([]byte, error) {
	if pos+mapPageHeaderSize > uint64(len(f.data)) {
		return nil, fmt.Errorf("%w: map page at %#x exceeds the file", ErrMalformed, pos)
	}
	hdr := parseMapPageHeader(f.data[pos:])
	if hdr.PageType != pageType {
		return nil, fmt.Errorf("%w: map page at %#x has type %#x, want %#x", ErrMalformed, pos, uint32(hdr.PageType), uint32(pageType))
	}

	start := pos + mapPageHeaderSize
	end := start + uint64(hdr.CompressedSize)
	if hdr.CompressedSize < 0 || end > uint64(len(f.data)) {
		return nil, fmt.Errorf("%w: map page at %#x payload exceeds the file", ErrMalformed, pos)
	}
	compressed := f.data[start:end]

	verify := hdr
	verify.Checksum = 0
	sum := checksum.PageChecksum(0, verify.encode())
	if computed := checksum.PageChecksum(sum, compressed); computed != hdr.Checksum {
		return nil, &checksum.ChecksumMismatchError{Expected: hdr.Checksum, Actual: computed}
	}

	return f.pageCodec.Decompress(compressed, int(hdr.DecompressedSize))
}

// readPageMapAC18 rebuilds the page locator records from the page map:
// running totals of the stored sizes, starting right after the preamble.
// Negative page numbers are gaps; their extra fields are skipped.
func (f *Framer) readPageMapAC18(h *FileHeaderAC18) error {
	data, err := f.readMapPageAC18(h.PageMapAddress, PageTypePageMap)
	if err != nil {
		return err
	}

	total := int64(ac18PreambleSize)
	for pos := 0; pos+8 <= len(data); pos += 8 {
		number := int32(le.Uint32(data[pos:]))
		size := int64(int32(le.Uint32(data[pos+4:])))
		if number >= 0 {
			h.Records[int(number)] = LocatorRecord{Number: number, Seeker: total, Size: size}
		} else {
			pos += 16
		}
		total += size
	}

	return nil
}

// readSectionMapAC18 parses the descriptor stream of the section map.
func (f *Framer) readSectionMapAC18(h *FileHeaderAC18) error {
	rec, ok := h.Records[int(h.SectionMapID)]
	if !ok {
		return fmt.Errorf("%w: section map page %d is not in the page map", ErrMalformed, h.SectionMapID)
	}
	data, err := f.readMapPageAC18(uint64(rec.Seeker), PageTypeSectionMap)
	if err != nil {
		return err
	}
	if len(data) < 20 {
		return fmt.Errorf("%w: section map stream is truncated", ErrMalformed)
	}

	numDescriptors := int(int32(le.Uint32(data[0:])))
	pos := 20
	for i := 0; i < numDescriptors; i++ {
		if pos+96 > len(data) {
			return fmt.Errorf("%w: section map descriptor %d is truncated", ErrMalformed, i)
		}

		desc := &Descriptor{
			CompressedSize:   le.Uint64(data[pos:]),
			PageCount:        int32(le.Uint32(data[pos+8:])),
			DecompressedSize: uint64(int32(le.Uint32(data[pos+12:]))),
			CompressedCode:   int32(le.Uint32(data[pos+20:])),
			SectionID:        int32(le.Uint32(data[pos+24:])),
			Encrypted:        int32(le.Uint32(data[pos+28:])),
		}
		desc.Name = nameFromFixed(data[pos+32 : pos+96])
		desc.HashCode = format.NameHash(desc.Name)
		pos += 96

		if desc.Name == "" {
			pos += int(desc.PageCount) * 16
			continue
		}

		for j := int32(0); j < desc.PageCount; j++ {
			if pos+16 > len(data) {
				return fmt.Errorf("%w: page table of section %q is truncated", ErrMalformed, desc.Name)
			}
			page := Page{
				PageNumber:       int32(le.Uint32(data[pos:])),
				CompressedSize:   uint64(le.Uint32(data[pos+4:])),
				Offset:           le.Uint64(data[pos+8:]),
				DecompressedSize: desc.DecompressedSize,
			}
			pos += 16

			if rec, ok := h.Records[int(page.PageNumber)]; ok {
				page.Seeker = uint64(rec.Seeker)
			}
			desc.Pages = append(desc.Pages, page)
		}

		// The last page only holds what is left of the section data.
		if n := len(desc.Pages); n > 0 && desc.DecompressedSize > 0 {
			if left := desc.CompressedSize % desc.DecompressedSize; left > 0 {
				desc.Pages[n-1].DecompressedSize = left
			}
		}

		h.Descriptors[desc.Name] = desc
	}

	return nil
}

func nameFromFixed(buf []byte) string {
	for i, b := range buf {
		if b == 0 {
			return string(buf[:i])
		}
	}
	return string(buf)
}

// readDataPage reads one data page: unmasks and verifies the 32-byte
// header, checks both checksums and returns the stored payload.
func (f *Framer) readDataPage(page Page) (dataPageHeader, []byte, error) {
	if page.Seeker+dataPageHeaderSize > uint64(len(f.data)) {
		return dataPageHeader{}, nil, fmt.Errorf("%w: data page at %#x exceeds the file", ErrMalformed, page.Seeker)
	}

	raw := make([]byte, dataPageHeaderSize)
	copy(raw, f.data[page.Seeker:])
	MaskPageHeader(raw, page.Seeker)
	hdr := parseDataPageHeader(raw)

	if hdr.PageType != PageTypeData {
		return dataPageHeader{}, nil, fmt.Errorf("%w: page at %#x has type %#x", ErrMalformed, page.Seeker, uint32(hdr.PageType))
	}

	start := page.Seeker + dataPageHeaderSize
	end := start + uint64(hdr.CompressedSize)
	if hdr.CompressedSize < 0 || end > uint64(len(f.data)) {
		return dataPageHeader{}, nil, fmt.Errorf("%w: data page at %#x payload exceeds the file", ErrMalformed, page.Seeker)
	}
	payload := f.data[start:end]

	oda := checksum.PageChecksum(0, payload)
	if oda != hdr.ODA {
		return dataPageHeader{}, nil, &checksum.ChecksumMismatchError{Expected: hdr.ODA, Actual: oda}
	}
	verify := hdr
	verify.Checksum = 0
	if computed := checksum.PageChecksum(oda, verify.encode()); computed != hdr.Checksum {
		return dataPageHeader{}, nil, &checksum.ChecksumMismatchError{Expected: hdr.Checksum, Actual: computed}
	}

	return hdr, payload, nil
}

func (f *Framer) resolveAC18(name string) ([]byte, error) {
	desc, ok := f.paged.Descriptors[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSectionNotFound, name)
	}

	out := make([]byte, 0, desc.CompressedSize)
	for _, page := range desc.Pages {
		_, payload, err := f.readDataPage(page)
		if err != nil {
			return nil, err
		}

		// Pages are padded to the full cap before compression; the last
		// page of a section only contributes its remainder.
		want := int(page.DecompressedSize)
		if desc.CompressedCode == 2 {
			chunk, err := f.pageCodec.Decompress(payload, int(desc.DecompressedSize))
			if err != nil {
				return nil, err
			}
			if want > len(chunk) {
				want = len(chunk)
			}
			out = append(out, chunk[:want]...)
		} else {
			if want > len(payload) {
				want = len(payload)
			}
			out = append(out, payload[:want]...)
		}
	}

	return out, nil
}

// --- AC1021 ---

var ac21Codec = compress.NewAc21Codec()

func (f *Framer) parseAC21() error {
	if len(f.data) < ac21PreambleSize {
		return fmt.Errorf("%w: %d bytes is too short for the preamble", ErrMalformed, len(f.data))
	}

	h := NewFileHeaderAC18(f.version)
	h.MaintenanceVersion = f.data[0x0B]
	h.CodePage = le.Uint16(f.data[0x0D:])
	h.SecurityType = int64(int32(le.Uint32(f.data[0x14:])))
	h.SummaryInfoAddr = int64(int32(le.Uint32(f.data[0x1C:])))

	rs := f.data[rsMetadataOffset : rsMetadataOffset+rsMetadataSize]
	decoded := rscode.Decode(rs, rscode.HeaderFactor*rscode.HeaderBlockSize, rscode.HeaderFactor, rscode.HeaderBlockSize)

	compressedLength := int(int32(le.Uint32(decoded[0x18:])))
	if compressedLength <= 0 || 32+compressedLength > len(decoded) {
		return fmt.Errorf("%w: header metadata length %d is out of range", ErrMalformed, compressedLength)
	}
	raw, err := ac21Codec.Decompress(decoded[32:32+compressedLength], metadataSize)
	if err != nil {
		return err
	}
	meta, err := parseMetadata21(raw)
	if err != nil {
		return err
	}
	f.meta = meta

	if err := f.readPageMapAC21(h, meta); err != nil {
		return err
	}
	if err := f.readSectionMapAC21(h, meta); err != nil {
		return err
	}

	f.paged = h

	return nil
}

// readMapPageAC21 reads one map page; the payload is LZ77-expanded when
// the header announces compression. A correction factor above one means
// the payload is spread across Reed-Solomon tracks and must be gathered
// back before anything else.
func (f *Framer) readMapPageAC21(pos, correctionFactor uint64) ([]byte, error) {
	if pos+mapPageHeaderSize > uint64(len(f.data)) {
		return nil, fmt.Errorf("%w: map page at %#x exceeds the file", ErrMalformed, pos)
	}
	hdr := parseMapPageHeader(f.data[pos:])
	if hdr.CompressedSize < 0 {
		return nil, fmt.Errorf("%w: map page at %#x payload exceeds the file", ErrMalformed, pos)
	}

	start := pos + mapPageHeaderSize
	var compressed []byte
	if correctionFactor > 1 {
		factor, readSize := rscode.PageBufferParams(uint64(hdr.CompressedSize), correctionFactor, rscode.PageBlockSize)
		if start+uint64(readSize) > uint64(len(f.data)) {
			return nil, fmt.Errorf("%w: map page at %#x track data exceeds the file", ErrMalformed, pos)
		}
		compressed = rscode.Decode(f.data[start:start+uint64(readSize)], int(hdr.CompressedSize), factor, rscode.PageBlockSize)
	} else {
		end := start + uint64(hdr.CompressedSize)
		if end > uint64(len(f.data)) {
			return nil, fmt.Errorf("%w: map page at %#x payload exceeds the file", ErrMalformed, pos)
		}
		compressed = f.data[start:end]
	}

	verify := hdr
	verify.Checksum = 0
	sum := checksum.PageChecksum(0, verify.encode())
	if computed := checksum.PageChecksum(sum, compressed); computed != hdr.Checksum {
		return nil, &checksum.ChecksumMismatchError{Expected: hdr.Checksum, Actual: computed}
	}

	if hdr.CompressionType == 2 && hdr.DecompressedSize > 0 {
		return ac21Codec.Decompress(compressed, int(hdr.DecompressedSize))
	}

	out := make([]byte, len(compressed))
	copy(out, compressed)

	return out, nil
}

func (f *Framer) readPageMapAC21(h *FileHeaderAC18, meta *Metadata21) error {
	data, err := f.readMapPageAC21(meta.PagesMapOffset, meta.PagesMapCorrectionFactor)
	if err != nil {
		return err
	}

	total := int64(ac21PreambleSize)
	for pos := 0; pos+8 <= len(data); pos += 8 {
		number := int32(le.Uint32(data[pos:]))
		size := int64(int32(le.Uint32(data[pos+4:])))
		if number >= 0 {
			h.Records[int(number)] = LocatorRecord{Number: number, Seeker: total, Size: size}
		}
		total += size
	}

	return nil
}

func (f *Framer) readSectionMapAC21(h *FileHeaderAC18, meta *Metadata21) error {
	rec, ok := h.Records[int(meta.SectionsMapID)]
	if !ok {
		return fmt.Errorf("%w: section map page %d is not in the page map", ErrMalformed, meta.SectionsMapID)
	}
	data, err := f.readMapPageAC21(uint64(rec.Seeker), meta.SectionsMapCorrectionFactor)
	if err != nil {
		return err
	}

	pos := 0
	for pos+0x40 <= len(data) {
		desc := &Descriptor{
			CompressedSize:   le.Uint64(data[pos:]),
			DecompressedSize: le.Uint64(data[pos+8:]),
			Encrypted:        int32(le.Uint64(data[pos+16:])),
			HashCode:         format.SectionHash(le.Uint64(data[pos+24:])),
			CompressedCode:   int32(le.Uint64(data[pos+48:])),
			PageCount:        int32(le.Uint64(data[pos+56:])),
		}
		nameLength := int(le.Uint64(data[pos+32:]))
		pos += 0x40

		if nameLength < 0 || pos+2*nameLength > len(data) {
			return fmt.Errorf("%w: section name overruns the section map", ErrMalformed)
		}
		name, err := utf16Decode(data[pos : pos+2*nameLength])
		if err != nil {
			return err
		}
		desc.Name = name
		pos += 2 * nameLength

		for j := int32(0); j < desc.PageCount; j++ {
			if pos+56 > len(data) {
				return fmt.Errorf("%w: page table of section %q is truncated", ErrMalformed, desc.Name)
			}
			page := Page{
				Offset:           le.Uint64(data[pos:]),
				Size:             le.Uint64(data[pos+8:]),
				PageNumber:       int32(le.Uint64(data[pos+16:])),
				DecompressedSize: le.Uint64(data[pos+24:]),
				CompressedSize:   le.Uint64(data[pos+32:]),
				Checksum:         le.Uint64(data[pos+40:]),
				CRC:              le.Uint64(data[pos+48:]),
			}
			pos += 56

			if rec, ok := h.Records[int(page.PageNumber)]; ok {
				page.Seeker = uint64(rec.Seeker)
			}
			desc.Pages = append(desc.Pages, page)
		}

		if desc.Name != "" {
			h.Descriptors[desc.Name] = desc
		}
	}

	return nil
}

func (f *Framer) resolveAC21(name string) ([]byte, error) {
	desc, ok := f.paged.Descriptors[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSectionNotFound, name)
	}

	out := make([]byte, 0, desc.CompressedSize)
	for _, page := range desc.Pages {
		hdr, payload, err := f.readDataPage(page)
		if err != nil {
			return nil, err
		}

		if uint64(hdr.CompressedSize) != page.DecompressedSize {
			chunk, err := ac21Codec.Decompress(payload, int(page.DecompressedSize))
			if err != nil {
				return nil, err
			}
			out = append(out, chunk...)
		} else {
			out = append(out, payload...)
		}
	}

	return out, nil
}
