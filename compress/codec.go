package compress

import (
	"errors"
	"fmt"

	"github.com/draftbench/dwgio/format"
)

// ErrDecompression is returned when a compressed stream is malformed:
// truncated opcodes, back-references outside the produced output, or output
// overrunning the declared decompressed size.
var ErrDecompression = errors.New("malformed compressed stream")

// ErrNotImplemented is returned by codecs that only support one direction,
// such as the R2007 variant which this library reads but never writes.
var ErrNotImplemented = errors.New("operation not implemented")

// ErrShortInput is returned by compressors whose opcode grammar cannot
// represent the given input length.
var ErrShortInput = errors.New("input too short to encode")

// Compressor provides compression for in-memory payloads.
//
// These general-purpose codecs never touch on-disk drawing bytes (the wire
// format mandates its own LZ77 variants, see PageCodec); they serve the
// framer's resolved-section cache and any caller-side payload handling.
type Compressor interface {
	// Compress compresses the input data and returns the compressed result.
	//
	// Memory management:
	//   - Returned slice is newly allocated and owned by the caller
	//   - Input slice is not modified
	//   - Internal buffers may be reused for efficiency
	Compress(data []byte) ([]byte, error)
}

// Decompressor mirrors Compressor for the decompression direction. Separate
// interfaces allow asymmetric implementations where compression and
// decompression have different performance characteristics or resource
// requirements.
//
// Thread Safety: Decompressor implementations must be safe for concurrent use
// or document their thread safety requirements clearly.
type Decompressor interface {
	// Decompress decompresses the input data and returns the original result.
	//
	// The input data should be previously compressed using the same
	// algorithm. The decompressor validates the data format and returns an
	// error if the data is corrupted or uses an incompatible format.
	//
	// Memory management:
	//   - Returned slice is newly allocated and owned by the caller
	//   - Input slice is not modified
	//   - Internal buffers may be reused for efficiency
	Decompress(data []byte) ([]byte, error)
}

// Codec combines both compression and decompression capabilities.
type Codec interface {
	Compressor
	Decompressor
}

// PageCompressor compresses a section page with one of the wire LZ77
// variants. Unlike the general codecs, the output carries no size framing:
// the page header stores compressed and decompressed sizes out of band.
type PageCompressor interface {
	Compress(data []byte) ([]byte, error)
}

// PageDecompressor expands a section page whose decompressed size is known
// from the surrounding page header.
type PageDecompressor interface {
	// Decompress expands data into exactly decompressedSize bytes.
	// Malformed input returns ErrDecompression, never a panic: every
	// back-reference and literal run is bounds-checked.
	Decompress(data []byte, decompressedSize int) ([]byte, error)
}

// PageCodec combines both directions of a wire codec.
type PageCodec interface {
	PageCompressor
	PageDecompressor
}

// CreateCodec is a factory function that creates a Codec based on the specified compression type.
//
// Parameters:
//   - compressionType: Type of compression (None, Zstd, S2, or LZ4)
//   - target: Description of target usage (for error messages)
//
// Returns:
//   - Codec: Compressor instance for the specified type
//   - error: Invalid compression type error
func CreateCodec(compressionType format.CompressionType, target string) (Codec, error) {
	switch compressionType {
	case format.CompressionNone:
		return NewNoOpCompressor(), nil
	case format.CompressionZstd:
		return NewZstdCompressor(), nil
	case format.CompressionS2:
		return NewS2Compressor(), nil
	case format.CompressionLZ4:
		return NewLZ4Compressor(), nil
	default:
		return nil, fmt.Errorf("invalid %s compression: %s", target, compressionType)
	}
}

var builtinCodecs = map[format.CompressionType]Codec{
	format.CompressionNone: NewNoOpCompressor(),
	format.CompressionZstd: NewZstdCompressor(),
	format.CompressionS2:   NewS2Compressor(),
	format.CompressionLZ4:  NewLZ4Compressor(),
}

// GetCodec retrieves a built-in Codec for the specified compression type.
func GetCodec(compressionType format.CompressionType) (Codec, error) {
	if codec, ok := builtinCodecs[compressionType]; ok {
		return codec, nil
	}

	return nil, fmt.Errorf("unsupported compression type: %s", compressionType)
}

// CreatePageCodec is a factory function for the wire codecs used by section
// pages: the R2004-family LZ77 variant, the R2007 variant (decompress only),
// or raw storage.
func CreatePageCodec(compressionType format.CompressionType, target string) (PageCodec, error) {
	switch compressionType {
	case format.CompressionNone:
		return NewRawPageCodec(), nil
	case format.CompressionAc18:
		return NewAc18Codec(), nil
	case format.CompressionAc21:
		return NewAc21Codec(), nil
	default:
		return nil, fmt.Errorf("invalid %s page compression: %s", target, compressionType)
	}
}

var builtinPageCodecs = map[format.CompressionType]PageCodec{
	format.CompressionNone: NewRawPageCodec(),
	format.CompressionAc18: NewAc18Codec(),
	format.CompressionAc21: NewAc21Codec(),
}

// GetPageCodec retrieves a built-in PageCodec for the specified compression type.
func GetPageCodec(compressionType format.CompressionType) (PageCodec, error) {
	if codec, ok := builtinPageCodecs[compressionType]; ok {
		return codec, nil
	}

	return nil, fmt.Errorf("unsupported page compression type: %s", compressionType)
}

// RawPageCodec stores pages uncompressed. Readers detect raw pages by
// compressedSize == decompressedSize in the page header, so Compress is the
// identity and Decompress only validates sizes.
type RawPageCodec struct{}

var _ PageCodec = (*RawPageCodec)(nil)

// NewRawPageCodec creates a pass-through page codec.
func NewRawPageCodec() RawPageCodec {
	return RawPageCodec{}
}

// Compress returns the input unchanged.
func (c RawPageCodec) Compress(data []byte) ([]byte, error) {
	return data, nil
}

// Decompress copies out exactly decompressedSize bytes of raw page data.
func (c RawPageCodec) Decompress(data []byte, decompressedSize int) ([]byte, error) {
	if decompressedSize < 0 || decompressedSize > len(data) {
		return nil, fmt.Errorf("%w: raw page holds %d bytes, need %d", ErrDecompression, len(data), decompressedSize)
	}
	out := make([]byte, decompressedSize)
	copy(out, data[:decompressedSize])

	return out, nil
}
