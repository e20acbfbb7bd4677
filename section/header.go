package section

import (
	"github.com/draftbench/dwgio/checksum"
	"github.com/draftbench/dwgio/endian"
	"github.com/draftbench/dwgio/format"
)

var le = endian.GetLittleEndianEngine()

// LocatorRecord points at one contiguous stretch of the file: a whole
// section in the sequential layout, or one page in the paged layouts.
type LocatorRecord struct {
	Number int32
	Seeker int64
	Size   int64
}

// Page describes one stored page of a section.
type Page struct {
	PageNumber       int32
	Offset           uint64 // offset into the section's decompressed stream
	CompressedSize   uint64
	DecompressedSize uint64
	Seeker           uint64 // absolute file position of the page header
	Size             uint64 // on-disk size, header and padding included
	PageSize         uint64 // size field of the masked header
	Checksum         uint64
	CRC              uint64
	ODA              uint64
	PageType         int32
	CompressionType  int32
}

// Descriptor describes one named section of a paged layout.
type Descriptor struct {
	Name             string
	SectionID        int32
	CompressedSize   uint64 // total section data size
	DecompressedSize uint64 // per-page decompressed cap
	CompressedCode   int32  // 1 raw, 2 LZ77
	Encrypted        int32
	HashCode         format.SectionHash
	PageCount        int32
	Pages            []Page
}

// FileHeaderAC15 is the parsed sequential file header.
type FileHeaderAC15 struct {
	Version            format.Version
	MaintenanceVersion uint8
	CodePage           uint16
	PreviewAddress     int64
	Records            map[int]LocatorRecord
}

// FileHeaderAC18 is the parsed paged file header, shared by the LZ77 and
// Reed-Solomon generations. The gap fields stay zero: gaps are read past
// but never written.
type FileHeaderAC18 struct {
	Version            format.Version
	MaintenanceVersion uint8
	CodePage           uint16
	DwgVersion         uint8
	AppReleaseVersion  uint8
	PreviewAddress     int64
	SummaryInfoAddr    int64
	SecurityType       int64

	RootTreeNodeGap      int32
	LeftGap              int32
	RightGap             int32
	LastPageID           int32
	LastSectionAddr      uint64
	SecondHeaderAddr     uint64
	GapAmount            uint32
	SectionAmount        uint32
	SectionPageMapID     uint32
	PageMapAddress       uint64
	SectionMapID         uint32
	SectionArrayPageSize uint32
	GapArraySize         uint32
	CrcSeed              uint32

	Descriptors map[string]*Descriptor
	Records     map[int]LocatorRecord
}

// NewFileHeaderAC18 creates an empty paged header for the version.
func NewFileHeaderAC18(v format.Version) *FileHeaderAC18 {
	return &FileHeaderAC18{
		Version:     v,
		Descriptors: make(map[string]*Descriptor),
		Records:     make(map[int]LocatorRecord),
	}
}

// encryptedHeaderData serializes the 0x6C-byte header block: the file ID
// string, the map locations and the section counters, closed by a CRC-32
// over the whole block, then XOR-whitened with the magic sequence.
func encryptedHeaderData(h *FileHeaderAC18) []byte {
	buf := make([]byte, 0, encryptedHeaderSize)
	buf = append(buf, fileID[:]...)
	buf = le.AppendUint32(buf, 0)
	buf = le.AppendUint32(buf, encryptedHeaderSize)
	buf = le.AppendUint32(buf, 4)
	buf = le.AppendUint32(buf, uint32(h.RootTreeNodeGap))
	buf = le.AppendUint32(buf, uint32(h.LeftGap))
	buf = le.AppendUint32(buf, uint32(h.RightGap))
	buf = le.AppendUint32(buf, 1)
	buf = le.AppendUint32(buf, uint32(h.LastPageID))
	buf = le.AppendUint64(buf, h.LastSectionAddr)
	buf = le.AppendUint64(buf, h.SecondHeaderAddr)
	buf = le.AppendUint32(buf, h.GapAmount)
	buf = le.AppendUint32(buf, h.SectionAmount)
	buf = le.AppendUint32(buf, 0x20)
	buf = le.AppendUint32(buf, 0x80)
	buf = le.AppendUint32(buf, 0x40)
	buf = le.AppendUint32(buf, h.SectionPageMapID)
	buf = le.AppendUint64(buf, h.PageMapAddress-uint64(pagedPreambleSize(h.Version)))
	buf = le.AppendUint32(buf, h.SectionMapID)
	buf = le.AppendUint32(buf, h.SectionArrayPageSize)
	buf = le.AppendUint32(buf, h.GapArraySize)

	// CRC over the block with the CRC field still zero.
	buf = le.AppendUint32(buf, 0)
	crc := checksum.Crc32(0, buf)
	le.PutUint32(buf[encryptedHeaderSize-4:], crc)

	checksum.ApplyMagicSequence(buf)

	return buf
}

func pagedPreambleSize(v format.Version) int {
	if v == format.AC1021 {
		return ac21PreambleSize
	}
	return ac18PreambleSize
}
