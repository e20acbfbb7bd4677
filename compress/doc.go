// Package compress provides the compression codecs of the drawing file
// transport layer.
//
// Two codec families live here and they are not interchangeable:
//
//  1. Page codecs (PageCodec) implement the wire encodings the drawing
//     format mandates for section pages: the LZ77 variant of the
//     2004-generation layouts (Ac18Codec), the R2007 variant (Ac21Codec,
//     decompression only) and raw storage (RawPageCodec). These are the
//     only codecs that ever touch on-disk drawing bytes. Their Decompress
//     takes the decompressed size as a parameter because the surrounding
//     page header stores it out of band.
//
//  2. Cache codecs (Codec) are general-purpose algorithms (Zstd, S2, LZ4,
//     or none) used for in-memory payloads such as the section framer's
//     resolved-section cache. They carry their own framing and never
//     appear in a drawing file.
//
// # Page Codecs
//
//	codec, _ := compress.GetPageCodec(format.CompressionAc18)
//	page, err := codec.Decompress(raw, int(header.DecompressedSize))
//
// Page decompression is hardened against corrupted and adversarial input:
// every literal run and back-reference is bounds-checked on both the source
// and the destination, and malformed streams return ErrDecompression rather
// than reading or writing out of bounds.
//
// # Cache Codecs
//
//	codec, _ := compress.GetCodec(format.CompressionZstd)
//	compressed, _ := codec.Compress(sectionData)
//
// Cache codec selection is a throughput/ratio trade-off: Zstd for the best
// ratio, S2 for balance, LZ4 for the fastest decompression, None to skip
// compression entirely for incompressible sections.
//
// # Thread Safety
//
// All codec values are stateless or use internal pooling and are safe for
// concurrent use.
package compress
