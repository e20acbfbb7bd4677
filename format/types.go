package format

type CompressionType uint8

const (
	CompressionNone CompressionType = 0x1 // CompressionNone represents uncompressed section data.
	CompressionAc18 CompressionType = 0x2 // CompressionAc18 represents the R2004-family LZ77 variant.
	CompressionAc21 CompressionType = 0x3 // CompressionAc21 represents the R2007 LZ77 variant.
	CompressionZstd CompressionType = 0x4 // CompressionZstd represents Zstandard compression.
	CompressionS2   CompressionType = 0x5 // CompressionS2 represents S2 compression.
	CompressionLZ4  CompressionType = 0x6 // CompressionLZ4 represents LZ4 compression.
)

func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "None"
	case CompressionAc18:
		return "Ac18"
	case CompressionAc21:
		return "Ac21"
	case CompressionZstd:
		return "Zstd"
	case CompressionS2:
		return "S2"
	case CompressionLZ4:
		return "LZ4"
	default:
		return "Unknown"
	}
}
