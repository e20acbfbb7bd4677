// Package bitcode implements the bit-packed field encoding used inside
// drawing object streams.
//
// # Overview
//
// Object data is not byte aligned. Fields are packed bit by bit, most
// significant bit first, and most field types open with a two- or
// three-bit code that selects a short form for common values:
//
//   - BS / BL / BLL: integers with one-byte and constant short forms
//   - BD / DD: doubles with 0.0 and 1.0 short forms, and a variant that
//     patches only the bytes differing from a default
//   - MC / MS: modular (variable-length) integers used for sizes and
//     handle deltas
//   - H: handle references with a type code and big-endian payload
//   - TV / TU: strings, UTF-16LE from AC1021 on, code-page encoded before
//   - CMC / ENC / OT / BE / BT: colors, object types, extrusions and
//     thicknesses, whose layout changed across format revisions
//
// Reader and Writer are exact inverses over the same version. Both hold a
// partially consumed byte so that byte-sized reads and writes stitch
// values across bit boundaries.
//
// # Versioning
//
// The wire layout of several field types depends on the drawing version:
// construct readers and writers with the format.Version of the stream
// they decode, and the version gates are applied internally.
//
// # Error handling
//
// Reads past the end of data return ErrEndOfStream and impossible field
// codes return ErrMalformed; values are never silently zero-filled.
// Writes into the in-memory buffer cannot fail and return nothing.
package bitcode
