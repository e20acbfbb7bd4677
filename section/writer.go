package section

import (
	"fmt"

	"github.com/draftbench/dwgio/format"
)

// FileWriter assembles registered section payloads into a complete
// drawing file image for one generation of the on-disk layout.
type FileWriter interface {
	// HandleSectionOffset reports the byte offset every object-map entry
	// must be rebased by before the object map itself is registered.
	// Sections already registered when it is called determine the result,
	// so the object data section must be added first.
	HandleSectionOffset() int64

	// AddSection registers a named section payload. Sections appear in
	// the file in registration order. The compressed flag and page cap
	// only apply to the paged layouts; a cap of zero or less selects
	// DefaultMaxPageSize.
	AddSection(name string, data []byte, compressed bool, maxPageSize int) error

	// WriteFile assembles the registered sections into the final file
	// image. The writer is spent afterwards.
	WriteFile() ([]byte, error)
}

// NewFileWriter creates the file writer for the given drawing version.
func NewFileWriter(version format.Version, codePage uint16, maintenanceVersion uint8) (FileWriter, error) {
	switch version {
	case format.AC1012, format.AC1014, format.AC1015:
		return NewWriterAC15(version, codePage, maintenanceVersion), nil
	case format.AC1018, format.AC1024, format.AC1027, format.AC1032:
		return NewWriterAC18(version, codePage, maintenanceVersion), nil
	case format.AC1021:
		return NewWriterAC21(version, codePage, maintenanceVersion), nil
	default:
		return nil, fmt.Errorf("%w: %s", format.ErrUnsupportedVersion, version)
	}
}
