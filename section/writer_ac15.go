package section

import (
	"github.com/draftbench/dwgio/checksum"
	"github.com/draftbench/dwgio/format"
)

// WriterAC15 writes the sequential layout of AC1012 through AC1015:
// the fixed 0x61-byte file header with its locator table, then every
// section back to back in registration order.
type WriterAC15 struct {
	version     format.Version
	codePage    uint16
	maintenance uint8
	sections    []ac15Section
}

type ac15Section struct {
	name string
	data []byte
}

var _ FileWriter = (*WriterAC15)(nil)

// NewWriterAC15 creates a sequential-layout writer.
func NewWriterAC15(version format.Version, codePage uint16, maintenanceVersion uint8) *WriterAC15 {
	return &WriterAC15{
		version:     version,
		codePage:    codePage,
		maintenance: maintenanceVersion,
	}
}

// locatorIndex maps a section name to its fixed locator record number,
// or -1 for sections that get no record.
func locatorIndex(name string) int {
	switch name {
	case format.SectionHeader:
		return format.LocatorHeader
	case format.SectionClasses:
		return format.LocatorClasses
	case format.SectionHandles:
		return format.LocatorHandles
	case format.SectionObjFreeSpace:
		return format.LocatorObjFreeSpace
	case format.SectionTemplate:
		return format.LocatorTemplate
	case format.SectionAuxHeader:
		return format.LocatorAuxHeader
	default:
		return -1
	}
}

// locatorName is the inverse of locatorIndex.
func locatorName(index int) string {
	switch index {
	case format.LocatorHeader:
		return format.SectionHeader
	case format.LocatorClasses:
		return format.SectionClasses
	case format.LocatorHandles:
		return format.SectionHandles
	case format.LocatorObjFreeSpace:
		return format.SectionObjFreeSpace
	case format.LocatorTemplate:
		return format.SectionTemplate
	case format.LocatorAuxHeader:
		return format.SectionAuxHeader
	default:
		return ""
	}
}

// AddSection registers a section. The compression arguments are ignored:
// the sequential layout stores every section verbatim.
func (w *WriterAC15) AddSection(name string, data []byte, _ bool, _ int) error {
	w.sections = append(w.sections, ac15Section{name: name, data: data})
	return nil
}

// HandleSectionOffset reports the absolute file position the object data
// section will start at, which is what the object-map offsets are
// relative to in this layout.
func (w *WriterAC15) HandleSectionOffset() int64 {
	offset := int64(ac15HeaderSize)
	for _, s := range w.sections {
		if s.name == format.SectionAcDbObjects {
			break
		}
		offset += int64(len(s.data))
	}
	return offset
}

// WriteFile lays the sections out after the header and builds the
// locator table, CRC and end sentinel.
func (w *WriterAC15) WriteFile() ([]byte, error) {
	var records []LocatorRecord
	var previewSeeker int64

	seeker := int64(ac15HeaderSize)
	total := ac15HeaderSize
	for _, s := range w.sections {
		if idx := locatorIndex(s.name); idx >= 0 {
			records = append(records, LocatorRecord{
				Number: int32(idx),
				Seeker: seeker,
				Size:   int64(len(s.data)),
			})
		}
		if s.name == format.SectionPreview {
			previewSeeker = seeker
		}
		seeker += int64(len(s.data))
		total += len(s.data)
	}

	out := make([]byte, 0, total)
	out = append(out, w.version.String()...)
	out = append(out, 0, 0, 0, 0, 0)
	out = append(out, w.maintenance, 1)
	out = le.AppendUint32(out, uint32(int32(previewSeeker)))
	out = append(out, 0x1B, 0x19)
	out = le.AppendUint16(out, w.codePage)
	out = le.AppendUint32(out, uint32(len(records)))
	for _, rec := range records {
		out = append(out, byte(rec.Number))
		out = le.AppendUint32(out, uint32(int32(rec.Seeker)))
		out = le.AppendUint32(out, uint32(int32(rec.Size)))
	}

	// Zero-fill the unused locator slots up to the CRC position.
	crcPos := ac15HeaderSize - 18
	for len(out) < crcPos {
		out = append(out, 0)
	}

	crc := checksum.Crc8(checksum.Crc8Seed, out[:crcPos])
	out = le.AppendUint16(out, crc)
	out = append(out, format.SentinelFileHeaderEnd[:]...)

	for _, s := range w.sections {
		out = append(out, s.data...)
	}

	return out, nil
}
