package objstream

import (
	"errors"

	"github.com/draftbench/dwgio/bitcode"
	"github.com/draftbench/dwgio/format"
)

// ErrUnsupported is returned for operations that only make sense on a
// single flat stream, not on a merged record.
var ErrUnsupported = errors.New("operation not supported on merged stream")

// MergedReader reads one object record through its sub-streams. The
// embedded reader is the main stream, so numeric and structural fields
// read directly; text reads are rerouted to the string sub-stream and
// handle references to the handle sub-stream.
//
// For pre-AC1021 records the string sub-stream is the main reader itself,
// which keeps text reads inline.
type MergedReader struct {
	*bitcode.Reader

	text   *bitcode.Reader
	handle *bitcode.Reader
	flags  format.Flags
}

// NewMergedReader wraps three positioned sub-readers.
func NewMergedReader(main, text, handle *bitcode.Reader) *MergedReader {
	return &MergedReader{
		Reader: main,
		text:   text,
		handle: handle,
		flags:  format.VersionFlags(main.Version()),
	}
}

// SplitRecord opens an AC1021+ record whose size field starts at the
// given bit position. The leading raw long holds the record size in bits;
// the bit at the end of that span flags whether a string sub-stream was
// written, with its size words just before the flag, and the handle
// sub-stream follows the flag.
func SplitRecord(data []byte, version format.Version, startBits int64) (*MergedReader, error) {
	main := bitcode.NewReader(data, version)
	if err := main.SetPositionInBits(startBits); err != nil {
		return nil, err
	}
	sizeInBits, err := main.ReadRawLong()
	if err != nil {
		return nil, err
	}

	lastPositionInBits := startBits + int64(sizeInBits) - 1

	text := bitcode.NewReader(data, version)
	if _, err := text.SetPositionByFlag(lastPositionInBits); err != nil {
		return nil, err
	}

	handle := bitcode.NewReader(data, version)
	if err := handle.SetPositionInBits(lastPositionInBits + 1); err != nil {
		return nil, err
	}

	return NewMergedReader(main, text, handle), nil
}

// SplitRecordAC14 opens a pre-AC1021 record whose size field starts at
// the given bit position. The leading raw long holds the main stream size
// in bits; the handle sub-stream starts right after. Text stays inline in
// the main stream.
func SplitRecordAC14(data []byte, version format.Version, startBits int64) (*MergedReader, error) {
	main := bitcode.NewReader(data, version)
	if err := main.SetPositionInBits(startBits); err != nil {
		return nil, err
	}
	sizeInBits, err := main.ReadRawLong()
	if err != nil {
		return nil, err
	}

	handle := bitcode.NewReader(data, version)
	if err := handle.SetPositionInBits(startBits + int64(sizeInBits)); err != nil {
		return nil, err
	}

	return NewMergedReader(main, main, handle), nil
}

// Main returns the main sub-stream.
func (r *MergedReader) Main() *bitcode.Reader {
	return r.Reader
}

// Text returns the string sub-stream.
func (r *MergedReader) Text() *bitcode.Reader {
	return r.text
}

// Handle returns the handle sub-stream.
func (r *MergedReader) Handle() *bitcode.Reader {
	return r.handle
}

// SetCodePage selects the encoding on all sub-streams.
func (r *MergedReader) SetCodePage(key byte) {
	r.Reader.SetCodePage(key)
	r.text.SetCodePage(key)
	r.handle.SetCodePage(key)
}

// IsEmpty always reports false: emptiness is a property of the string
// sub-stream and is handled inside the text reads.
func (r *MergedReader) IsEmpty() bool {
	return false
}

// ReadVariableText reads a TV from the string sub-stream, or an empty
// string when the record carried no string data.
func (r *MergedReader) ReadVariableText() (string, error) {
	if r.text.IsEmpty() {
		return "", nil
	}
	return r.text.ReadVariableText()
}

// ReadTextUnicode reads a length-prefixed string from the string
// sub-stream, or an empty string when the record carried no string data.
func (r *MergedReader) ReadTextUnicode() (string, error) {
	if r.text.IsEmpty() {
		return "", nil
	}
	return r.text.ReadTextUnicode()
}

// HandleReference reads a handle reference from the handle sub-stream.
func (r *MergedReader) HandleReference() (uint64, error) {
	return r.handle.HandleReference()
}

// HandleReferenceResolved reads a handle reference from the handle
// sub-stream, resolving offset forms against the owner's handle.
func (r *MergedReader) HandleReferenceResolved(ownerHandle uint64) (uint64, error) {
	return r.handle.HandleReferenceResolved(ownerHandle)
}

// HandleReferenceTyped reads a typed handle reference from the handle
// sub-stream.
func (r *MergedReader) HandleReferenceTyped(ownerHandle uint64) (uint64, bitcode.ReferenceType, error) {
	return r.handle.HandleReferenceTyped(ownerHandle)
}

// ReadCmColor reads a CMC. From AC1018 on the structural fields sit in
// the main stream while the optional color and book name strings live in
// the string sub-stream, so the merged form cannot delegate wholesale.
func (r *MergedReader) ReadCmColor() (bitcode.Color, error) {
	if !r.flags.R2004Plus {
		return r.Reader.ReadCmColor()
	}

	if _, err := r.Reader.ReadBitShort(); err != nil {
		return bitcode.Color{}, err
	}
	rgb, err := r.Reader.ReadBitLong()
	if err != nil {
		return bitcode.Color{}, err
	}

	var color bitcode.Color
	word := uint32(rgb)
	switch {
	case word == 0xC0000000:
		color = bitcode.Color{Mode: bitcode.ColorByLayer}
	case word&0x01000000 != 0:
		color = bitcode.Color{Mode: bitcode.ColorIndexed, Index: int16(word & 0xFF)}
	default:
		color = bitcode.ColorFromRGB(byte(word>>16), byte(word>>8), byte(word))
	}

	id, err := r.Reader.ReadByte()
	if err != nil {
		return bitcode.Color{}, err
	}
	if id&1 != 0 {
		if _, err := r.ReadVariableText(); err != nil {
			return bitcode.Color{}, err
		}
	}
	if id&2 != 0 {
		if _, err := r.ReadVariableText(); err != nil {
			return bitcode.Color{}, err
		}
	}

	return color, nil
}

// SetPositionByFlag is not meaningful once the sub-streams are split.
func (r *MergedReader) SetPositionByFlag(int64) (int64, error) {
	return 0, ErrUnsupported
}
