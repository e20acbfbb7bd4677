package section

// Page type markers stored in page and map headers.
const (
	// PageTypeData marks a section data page.
	PageTypeData = 0x4163043B
	// PageTypeSectionMap marks the section map page.
	PageTypeSectionMap = 0x4163003B
	// PageTypePageMap marks the page map page.
	PageTypePageMap = 0x41630E3B
)

// DefaultMaxPageSize is the decompressed payload cap of one data page.
const DefaultMaxPageSize = 0x7400

const (
	// pageHeaderMask seeds the XOR mask of data page headers; the low 32
	// bits of the page's file position are folded in.
	pageHeaderMask = 0x4164536B

	dataPageHeaderSize = 32
	mapPageHeaderSize  = 20

	encryptedHeaderSize   = 0x6C
	encryptedHeaderOffset = 0x80

	ac15HeaderSize   = 0x61
	ac18PreambleSize = 0x100
	ac21PreambleSize = 0x480

	rsMetadataOffset = 0x80
	rsMetadataSize   = 0x400
	metadataSize     = 0x110
)

// fileID opens the encrypted header block of the paged layouts.
var fileID = [12]byte{'A', 'c', 'F', 's', 's', 'F', 'c', 'A', 'J', 'M', 'B', 0}
