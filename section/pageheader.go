package section

// dataPageHeader is the 32-byte header in front of every data page. It
// is stored XOR-masked with a value derived from the page's file
// position.
type dataPageHeader struct {
	PageType       int32
	SectionNumber  int32
	CompressedSize int32
	PageSize       int32
	StartOffset    int64
	Checksum       uint32
	ODA            uint32
}

func (h dataPageHeader) encode() []byte {
	buf := make([]byte, 0, dataPageHeaderSize)
	buf = le.AppendUint32(buf, uint32(h.PageType))
	buf = le.AppendUint32(buf, uint32(h.SectionNumber))
	buf = le.AppendUint32(buf, uint32(h.CompressedSize))
	buf = le.AppendUint32(buf, uint32(h.PageSize))
	buf = le.AppendUint64(buf, uint64(h.StartOffset))
	buf = le.AppendUint32(buf, h.Checksum)
	buf = le.AppendUint32(buf, h.ODA)
	return buf
}

func parseDataPageHeader(data []byte) dataPageHeader {
	return dataPageHeader{
		PageType:       int32(le.Uint32(data[0:])),
		SectionNumber:  int32(le.Uint32(data[4:])),
		CompressedSize: int32(le.Uint32(data[8:])),
		PageSize:       int32(le.Uint32(data[12:])),
		StartOffset:    int64(le.Uint64(data[16:])),
		Checksum:       le.Uint32(data[24:]),
		ODA:            le.Uint32(data[28:]),
	}
}

// MaskPageHeader XORs a data page header in place with the mask derived
// from the page's absolute file position. Applying it twice restores the
// original bytes.
func MaskPageHeader(buf []byte, position uint64) {
	mask := uint32(pageHeaderMask) ^ uint32(position)
	var mb [4]byte
	le.PutUint32(mb[:], mask)
	for i := 0; i+4 <= len(buf); i += 4 {
		buf[i] ^= mb[0]
		buf[i+1] ^= mb[1]
		buf[i+2] ^= mb[2]
		buf[i+3] ^= mb[3]
	}
}

// mapPageHeader is the 20-byte unmasked header in front of the page map
// and section map pages. Its checksum chains the header with a zero
// checksum field and the compressed payload.
type mapPageHeader struct {
	PageType         int32
	DecompressedSize int32
	CompressedSize   int32
	CompressionType  int32
	Checksum         uint32
}

func (h mapPageHeader) encode() []byte {
	buf := make([]byte, 0, mapPageHeaderSize)
	buf = le.AppendUint32(buf, uint32(h.PageType))
	buf = le.AppendUint32(buf, uint32(h.DecompressedSize))
	buf = le.AppendUint32(buf, uint32(h.CompressedSize))
	buf = le.AppendUint32(buf, uint32(h.CompressionType))
	buf = le.AppendUint32(buf, h.Checksum)
	return buf
}

func parseMapPageHeader(data []byte) mapPageHeader {
	return mapPageHeader{
		PageType:         int32(le.Uint32(data[0:])),
		DecompressedSize: int32(le.Uint32(data[4:])),
		CompressedSize:   int32(le.Uint32(data[8:])),
		CompressionType:  int32(le.Uint32(data[12:])),
		Checksum:         le.Uint32(data[16:]),
	}
}
