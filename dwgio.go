// Package dwgio implements the binary transport layer of AutoCAD drawing
// files: bit-packed field codecs, the wire LZ77 variants, the
// CRC-protected object map and the version-gated section framing, for
// every release from AC1012 (R13) through AC1032 (R2018).
//
// # Core Features
//
//   - Bit-level cursors with the full field vocabulary (bit-coded
//     shorts, longs and doubles, defaulting doubles, extrusions, handle
//     references, version-gated text)
//   - Merged object records with separate main, string and handle
//     sub-streams from AC1021 on
//   - Handle-to-offset object map in delta-encoded, CRC-guarded chunks
//   - Section framing for three on-disk generations: sequential
//     locators, paged LZ77 with masked page headers, and the AC1021
//     layout with Reed-Solomon protected metadata
//   - Every stored checksum verified on read (CRC-8, CRC-32, page
//     checksum pairs, sentinels)
//   - General-purpose cache codecs (None, Zstd, S2, LZ4) for resolved
//     sections
//
// # Basic Usage
//
// Assembling a drawing file from section payloads:
//
//	import "github.com/draftbench/dwgio"
//
//	w, _ := dwgio.NewFileWriter(format.AC1018, 30, 104)
//	w.AddSection(format.SectionHeader, headerData, true, 0)
//	w.AddSection(format.SectionAcDbObjects, objectData, true, 0)
//	w.AddSection(format.SectionHandles, handleData, true, 0)
//	file, _ := w.WriteFile()
//
// Resolving sections back out of a file image:
//
//	f, _ := dwgio.NewFramer(file)
//	objects, _ := f.ResolveSection(format.SectionAcDbObjects)
//
// Reading one object record out of the object data:
//
//	r, _ := dwgio.SplitRecord(objects, f.Version(), recordStart)
//	kind, _ := r.ReadBitShort()
//	name, _ := r.ReadVariableText()
//	owner, _ := r.HandleReference()
//
// # Package Structure
//
// This package provides convenient top-level wrappers around the
// section, objstream, handlemap and bitcode packages, simplifying the
// most common use cases. For fine-grained control, use those packages
// directly:
//
//   - format: version tags, section names and hashes, sentinels
//   - bitcode: the bit-packed field readers and writers
//   - objstream: merged object-record streams
//   - handlemap: the object map codec
//   - section: file framing, page maps and integrity envelopes
//   - compress, checksum, rscode: the underlying wire primitives
package dwgio

import (
	"github.com/draftbench/dwgio/bitcode"
	"github.com/draftbench/dwgio/format"
	"github.com/draftbench/dwgio/handlemap"
	"github.com/draftbench/dwgio/objstream"
	"github.com/draftbench/dwgio/section"
)

// ParseVersion resolves a six-character version tag such as "AC1018" to
// its Version. Unsupported tags return format.ErrUnsupportedVersion.
func ParseVersion(tag string) (format.Version, error) {
	return format.ParseVersion(tag)
}

// NewFileWriter creates the section file writer for the given drawing
// version.
//
// Parameters:
//   - version: Target drawing version (format.AC1012 .. format.AC1032)
//   - codePage: Drawing code page identifier (30 is ANSI_1252)
//   - maintenanceVersion: Maintenance release byte stored in the header
//
// Returns:
//   - section.FileWriter: The writer for the version's on-disk layout.
//   - error: format.ErrUnsupportedVersion for unknown versions.
//
// Sections are registered with AddSection in file order and the image is
// produced by WriteFile. Register the object data section before asking
// for HandleSectionOffset: sequential layouts need everything in front
// of it to compute the object map base.
func NewFileWriter(version format.Version, codePage uint16, maintenanceVersion uint8) (section.FileWriter, error) {
	return section.NewFileWriter(version, codePage, maintenanceVersion)
}

// NewFramer opens a drawing file image for section resolution.
//
// The framing is parsed eagerly: the version tag, the file header or
// preamble, the page and section maps, and every checksum on the way.
// Damage surfaces here or at ResolveSection as
// *checksum.ChecksumMismatchError or section.ErrMalformed.
//
// Example:
//
//	f, err := dwgio.NewFramer(file, section.WithCacheCodec(format.CompressionLZ4))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	header, err := f.ResolveSection(format.SectionHeader)
func NewFramer(data []byte, opts ...section.Option) (*section.Framer, error) {
	return section.NewFramer(data, opts...)
}

// NewMergedWriter creates a writer for one AC1021+ object record with
// separate main, string and handle sub-streams. Call SavePositionForSize
// before the first field and WriteSpearShift to merge the streams.
func NewMergedWriter(version format.Version) *objstream.MergedWriter {
	return objstream.NewMergedWriter(version)
}

// NewMergedWriterAC14 creates a writer for a pre-AC1021 object record:
// text stays inline and only the handle references are split out.
func NewMergedWriterAC14(version format.Version) *objstream.MergedWriterAC14 {
	return objstream.NewMergedWriterAC14(version)
}

// SplitRecord opens an AC1021+ object record at the given bit position
// and positions the three sub-streams from its trailing size and flag
// fields.
func SplitRecord(data []byte, version format.Version, startBits int64) (*objstream.MergedReader, error) {
	return objstream.SplitRecord(data, version, startBits)
}

// SplitRecordAC14 opens a pre-AC1021 object record at the given bit
// position.
func SplitRecordAC14(data []byte, version format.Version, startBits int64) (*objstream.MergedReader, error) {
	return objstream.SplitRecordAC14(data, version, startBits)
}

// NewHandleMapCodec creates the codec for the handle-to-offset object
// map of the given drawing version.
func NewHandleMapCodec(version format.Version) *handlemap.Codec {
	return handlemap.NewCodec(version)
}

// NewBitReader creates a bit-level reader over raw object data.
func NewBitReader(data []byte, version format.Version) *bitcode.Reader {
	return bitcode.NewReader(data, version)
}

// NewBitWriter creates a bit-level writer for the given drawing version.
func NewBitWriter(version format.Version) *bitcode.Writer {
	return bitcode.NewWriter(version)
}

// SectionHash converts a section name to its wire hash identifier, as
// stored in the AC1021 section map.
//
// Known names return their fixed hash codes; other names run through
// the checksum-style name hash. The function is deterministic, so the
// same name always maps to the same identifier across files.
func SectionHash(name string) format.SectionHash {
	return format.NameHash(name)
}
