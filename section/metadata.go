package section

import "fmt"

// Metadata21 is the R2007 header metadata block: 34 little-endian 64-bit
// fields locating the page and section maps and carrying their sizes,
// checksums and correction factors. It is stored LZ77-compressed inside
// the Reed-Solomon envelope at offset 0x80 of the preamble.
type Metadata21 struct {
	HeaderSize                  uint64
	FileSize                    uint64
	PagesMapCrcCompressed       uint64
	PagesMapCorrectionFactor    uint64
	PagesMapCrcSeed             uint64
	Map2Offset                  uint64
	Map2ID                      uint64
	PagesMapOffset              uint64
	Header2Offset               uint64
	PagesMapSizeCompressed      uint64
	PagesMapSizeUncompressed    uint64
	PagesAmount                 uint64
	PagesMaxID                  uint64
	SectionsMap2ID              uint64
	PagesMapID                  uint64
	Unknown0x20                 uint64
	Unknown0x40                 uint64
	PagesMapCrcUncompressed     uint64
	Unknown0xF800               uint64
	Unknown4                    uint64
	Unknown1                    uint64
	SectionsAmount              uint64
	SectionsMapCrcUncompressed  uint64
	SectionsMapSizeCompressed   uint64
	SectionsMapID               uint64
	SectionsMapSizeUncompressed uint64
	SectionsMapCrcCompressed    uint64
	SectionsMapCorrectionFactor uint64
	SectionsMapCrcSeed          uint64
	StreamVersion               uint64
	CrcSeed                     uint64
	CrcSeedEncoded              uint64
	RandomSeed                  uint64
	HeaderCrc64                 uint64
}

// NewMetadata21 creates the block with its fixed fields preset.
func NewMetadata21() *Metadata21 {
	return &Metadata21{
		HeaderSize:    0x70,
		Unknown0x20:   0x20,
		Unknown0x40:   0x40,
		Unknown0xF800: 0xF800,
		Unknown4:      4,
		Unknown1:      1,
		StreamVersion: 0x60100,
	}
}

func (m *Metadata21) fields() [34]*uint64 {
	return [34]*uint64{
		&m.HeaderSize,
		&m.FileSize,
		&m.PagesMapCrcCompressed,
		&m.PagesMapCorrectionFactor,
		&m.PagesMapCrcSeed,
		&m.Map2Offset,
		&m.Map2ID,
		&m.PagesMapOffset,
		&m.Header2Offset,
		&m.PagesMapSizeCompressed,
		&m.PagesMapSizeUncompressed,
		&m.PagesAmount,
		&m.PagesMaxID,
		&m.SectionsMap2ID,
		&m.PagesMapID,
		&m.Unknown0x20,
		&m.Unknown0x40,
		&m.PagesMapCrcUncompressed,
		&m.Unknown0xF800,
		&m.Unknown4,
		&m.Unknown1,
		&m.SectionsAmount,
		&m.SectionsMapCrcUncompressed,
		&m.SectionsMapSizeCompressed,
		&m.SectionsMapID,
		&m.SectionsMapSizeUncompressed,
		&m.SectionsMapCrcCompressed,
		&m.SectionsMapCorrectionFactor,
		&m.SectionsMapCrcSeed,
		&m.StreamVersion,
		&m.CrcSeed,
		&m.CrcSeedEncoded,
		&m.RandomSeed,
		&m.HeaderCrc64,
	}
}

func (m *Metadata21) encode() []byte {
	buf := make([]byte, 0, metadataSize)
	for _, f := range m.fields() {
		buf = le.AppendUint64(buf, *f)
	}
	return buf
}

func parseMetadata21(data []byte) (*Metadata21, error) {
	if len(data) < metadataSize {
		return nil, fmt.Errorf("header metadata: got %d bytes, need %d", len(data), metadataSize)
	}

	m := &Metadata21{}
	for i, f := range m.fields() {
		*f = le.Uint64(data[i*8:])
	}

	return m, nil
}
