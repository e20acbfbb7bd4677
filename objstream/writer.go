package objstream

import (
	"github.com/draftbench/dwgio/bitcode"
	"github.com/draftbench/dwgio/format"
)

// MergedWriter assembles one object record from three sub-streams for
// AC1021 and later: main data, string data and handle references, each
// bit-packed independently. The embedded writer is the main stream, so
// numeric and structural fields are written directly; text and handle
// methods are rerouted to their sub-streams. WriteSpearShift performs the
// final merge.
type MergedWriter struct {
	*bitcode.Writer

	text   *bitcode.Writer
	handle *bitcode.Writer

	savedPosition      bool
	sizePositionInBits int64
	handleStartInBits  int64
}

// NewMergedWriter creates a three-stream writer for an AC1021+ record.
func NewMergedWriter(version format.Version) *MergedWriter {
	return &MergedWriter{
		Writer: bitcode.NewWriter(version),
		text:   bitcode.NewWriter(version),
		handle: bitcode.NewWriter(version),
	}
}

// Main returns the main sub-stream.
func (w *MergedWriter) Main() *bitcode.Writer {
	return w.Writer
}

// Text returns the string sub-stream.
func (w *MergedWriter) Text() *bitcode.Writer {
	return w.text
}

// Handle returns the handle sub-stream.
func (w *MergedWriter) Handle() *bitcode.Writer {
	return w.handle
}

// SetCodePage selects the encoding on all sub-streams.
func (w *MergedWriter) SetCodePage(key byte) {
	w.Writer.SetCodePage(key)
	w.text.SetCodePage(key)
	w.handle.SetCodePage(key)
}

// WriteVariableText writes a TV to the string sub-stream.
func (w *MergedWriter) WriteVariableText(value string) error {
	return w.text.WriteVariableText(value)
}

// WriteTextUnicode writes a length-prefixed string to the string
// sub-stream.
func (w *MergedWriter) WriteTextUnicode(value string) error {
	return w.text.WriteTextUnicode(value)
}

// HandleReference writes a handle reference to the handle sub-stream.
func (w *MergedWriter) HandleReference(handle uint64) {
	w.handle.HandleReference(handle)
}

// HandleReferenceTyped writes a typed handle reference to the handle
// sub-stream.
func (w *MergedWriter) HandleReferenceTyped(refType bitcode.ReferenceType, handle uint64) {
	w.handle.HandleReferenceTyped(refType, handle)
}

// HandleReferenceOnMain writes a handle reference to the main stream.
// Used for the record's own handle, which readers need before the handle
// sub-stream is located.
func (w *MergedWriter) HandleReferenceOnMain(handle uint64) {
	w.Writer.HandleReference(handle)
}

// SavePositionForSize reserves a raw long at the current main position for
// the record's total size in bits, patched in by WriteSpearShift. Must be
// called at the start of the record for the reader-side arithmetic to
// hold.
func (w *MergedWriter) SavePositionForSize() {
	w.savedPosition = true
	w.sizePositionInBits = w.Writer.PositionInBits()
	w.Writer.WriteRawLong(0)
}

// SavedPositionInBits returns the bit offset of the handle sub-stream
// within the merged record, valid after WriteSpearShift.
func (w *MergedWriter) SavedPositionInBits() int64 {
	return w.handleStartInBits
}

// WriteSpearShift merges the three sub-streams into the main buffer:
// main data, then (when any text was written) the byte-aligned string
// stream followed by its size words and a presence bit, then the
// byte-aligned handle stream. When SavePositionForSize was called, the
// reserved long is patched with the total record size in bits, counting
// the size words the string stream needs.
func (w *MergedWriter) WriteSpearShift() error {
	mainSizeBits := w.Writer.PositionInBits()
	textSizeBits := w.text.PositionInBits()

	w.Writer.WriteSpearShift()

	if w.savedPosition {
		total := int32(mainSizeBits + textSizeBits + 1)
		if textSizeBits > 0 {
			total += 16
			if textSizeBits >= 0x8000 {
				total += 16
				if textSizeBits >= 0x40000000 {
					total += 16
				}
			}
		}

		if err := w.Writer.SetPositionInBits(w.sizePositionInBits); err != nil {
			return err
		}
		w.Writer.WriteRawLong(total)
		w.Writer.WriteShiftValue()
	}

	if err := w.Writer.SetPositionInBits(mainSizeBits); err != nil {
		return err
	}

	if textSizeBits > 0 {
		w.text.WriteSpearShift()
		w.Writer.WriteBytes(w.text.Bytes())
		w.Writer.WriteSpearShift()
		if err := w.Writer.SetPositionInBits(mainSizeBits + textSizeBits); err != nil {
			return err
		}
		w.Writer.SetPositionByFlag(textSizeBits)
		w.Writer.WriteBit(true)
	} else {
		w.Writer.WriteBit(false)
	}

	w.handle.WriteSpearShift()
	w.handleStartInBits = w.Writer.PositionInBits()
	w.Writer.WriteBytes(w.handle.Bytes())
	w.Writer.WriteSpearShift()

	return nil
}

// MergedWriterAC14 assembles a record from two sub-streams for versions
// before AC1021: text is inlined in the main stream and only handle
// references are split out.
type MergedWriterAC14 struct {
	*bitcode.Writer

	handle *bitcode.Writer

	savedPosition      bool
	sizePositionInBits int64
	handleStartInBits  int64
}

// NewMergedWriterAC14 creates a two-stream writer for a pre-AC1021 record.
func NewMergedWriterAC14(version format.Version) *MergedWriterAC14 {
	return &MergedWriterAC14{
		Writer: bitcode.NewWriter(version),
		handle: bitcode.NewWriter(version),
	}
}

// Main returns the main sub-stream.
func (w *MergedWriterAC14) Main() *bitcode.Writer {
	return w.Writer
}

// Handle returns the handle sub-stream.
func (w *MergedWriterAC14) Handle() *bitcode.Writer {
	return w.handle
}

// SetCodePage selects the encoding on both sub-streams.
func (w *MergedWriterAC14) SetCodePage(key byte) {
	w.Writer.SetCodePage(key)
	w.handle.SetCodePage(key)
}

// HandleReference writes a handle reference to the handle sub-stream.
func (w *MergedWriterAC14) HandleReference(handle uint64) {
	w.handle.HandleReference(handle)
}

// HandleReferenceTyped writes a typed handle reference to the handle
// sub-stream.
func (w *MergedWriterAC14) HandleReferenceTyped(refType bitcode.ReferenceType, handle uint64) {
	w.handle.HandleReferenceTyped(refType, handle)
}

// HandleReferenceOnMain writes a handle reference to the main stream.
func (w *MergedWriterAC14) HandleReferenceOnMain(handle uint64) {
	w.Writer.HandleReference(handle)
}

// SavePositionForSize reserves a raw long for the main stream size in
// bits, patched in by WriteSpearShift.
func (w *MergedWriterAC14) SavePositionForSize() {
	w.savedPosition = true
	w.sizePositionInBits = w.Writer.PositionInBits()
	w.Writer.WriteRawLong(0)
}

// SavedPositionInBits returns the bit offset of the handle sub-stream
// within the merged record, valid after WriteSpearShift.
func (w *MergedWriterAC14) SavedPositionInBits() int64 {
	return w.handleStartInBits
}

// WriteSpearShift appends the byte-aligned handle sub-stream to the main
// stream. When SavePositionForSize was called, the reserved long is
// patched with the main stream size in bits, handle data excluded.
func (w *MergedWriterAC14) WriteSpearShift() error {
	pos := w.Writer.PositionInBits()

	if w.savedPosition {
		w.Writer.WriteSpearShift()
		if err := w.Writer.SetPositionInBits(w.sizePositionInBits); err != nil {
			return err
		}
		w.Writer.WriteRawLong(int32(pos))
		w.Writer.WriteShiftValue()
		if err := w.Writer.SetPositionInBits(pos); err != nil {
			return err
		}
	}

	w.handle.WriteSpearShift()
	w.handleStartInBits = w.Writer.PositionInBits()
	w.Writer.WriteBytes(w.handle.Bytes())
	w.Writer.WriteSpearShift()

	return nil
}
