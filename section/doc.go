// Package section implements the version-gated file framing of drawing
// files: the outer container that locates, stores and protects every
// named section payload.
//
// # Overview
//
// Three generations of the on-disk layout are supported, selected by the
// drawing version tag in the first six bytes of the file:
//
//   - Sequential (AC1012 through AC1015): a 0x61-byte file header carries
//     a locator table of up to six numbered records, each pointing at one
//     contiguous section. The header is protected by the 8-bit CRC and
//     closed by a 16-byte sentinel.
//   - Paged LZ77 (AC1018, AC1024, AC1027, AC1032): sections are split
//     into pages of at most 0x7400 decompressed bytes, individually
//     LZ77-compressed, and fronted by a 32-byte header XOR-masked with a
//     value derived from the page's file position. A page map and a
//     section map, themselves stored as compressed pages, tie the file
//     together; an encrypted 0x6C-byte header at offset 0x80 of the
//     0x100-byte preamble locates the page map and carries a CRC-32.
//   - Paged Reed-Solomon (AC1021): the same paged structure with a
//     0x480-byte preamble whose metadata block of 34 little-endian 64-bit
//     fields is LZ77-compressed and then Reed-Solomon encoded at offset
//     0x80, interleaved in 255-byte blocks of 239 data bytes each.
//
// # Writing
//
// NewFileWriter returns the FileWriter for a version. Callers register
// section payloads with AddSection in file order and call WriteFile once
// to obtain the complete file image. HandleSectionOffset reports the
// offset the object-map entries must be rebased by, which is only
// nonzero for the sequential layout.
//
// # Reading
//
// NewFramer parses the preamble, the maps and the integrity envelopes of
// a file image eagerly and fails fast on damage. ResolveSection
// reassembles one named section from its pages, verifying the masked
// page headers and both page checksums on the way. Resolved sections are
// cached recompressed in memory; WithCacheCodec selects the cache codec
// and WithoutCache disables caching.
//
// # Integrity
//
// Every stored checksum is verified on read: the sequential header CRC
// and sentinel, the encrypted header CRC-32, the per-page checksum pair
// and the chained map-page checksums. Mismatches surface as
// *checksum.ChecksumMismatchError.
package section
