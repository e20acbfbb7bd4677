package compress

// ZstdCompressor provides Zstandard compression for cached section payloads.
//
// This compressor is designed for scenarios where compression ratio is more
// important than compression speed, making it ideal for:
//   - Holding many resolved sections in memory at once
//   - Archival copies of decoded drawing sections
//   - Network transmission where bandwidth is limited
//
// Performance characteristics:
//   - Compression: ~5-20 ns/byte (depending on compression level)
//   - Decompression: ~2-5 ns/byte
//   - Memory usage: Moderate (pooled encoder/decoder state)
type ZstdCompressor struct{}

var _ Codec = (*ZstdCompressor)(nil)

// NewZstdCompressor creates a new Zstd compressor with default settings.
//
// Returns:
//   - ZstdCompressor: New Zstd compressor instance
//
// Example:
//
//	compressor := NewZstdCompressor()
//	compressed, err := compressor.Compress(data)
//	if err != nil {
//		return err
//	}
func NewZstdCompressor() ZstdCompressor {
	return ZstdCompressor{}
}
