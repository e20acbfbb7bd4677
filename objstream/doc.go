// Package objstream implements the merged object-record protocol layered
// on the bitcode readers and writers.
//
// From AC1021 on, each object record interleaves three independently
// bit-packed streams: main data, string data and handle references. The
// writer collects the three streams separately and merges them at
// finalization; string presence is announced by a single bit at a known
// offset from the record end, with the string stream's bit length encoded
// just before it in 15-bit words. Earlier versions split out only the
// handle references and keep text inline.
//
// MergedWriter/MergedWriterAC14 produce the merged record and
// SplitRecord/SplitRecordAC14 reopen it, handing back a MergedReader
// whose field reads dispatch to the right sub-stream transparently.
package objstream
