// Package rscode implements the byte interleaving scheme the R2007 layout
// labels "Reed-Solomon". Despite the name it performs no error correction:
// payload bytes are distributed round-robin across a number of fixed-width
// tracks, with the parity positions of each 255-byte track left zero.
//
// The file header uses 3 tracks of 239 data bytes; section pages use tracks
// of 251 data bytes with a count derived from the page size and the
// correction factor stored in the header metadata.
package rscode

// Track geometry of the R2007 layout.
const (
	// TrackSize is the full encoded width of one track.
	TrackSize = 255
	// HeaderBlockSize is the data width per track in the file header.
	HeaderBlockSize = 239
	// HeaderFactor is the track count of the file header.
	HeaderFactor = 3
	// PageBlockSize is the data width per track in section pages.
	PageBlockSize = 251
)

// Decode de-interleaves encoded data back into outputSize payload bytes.
// Track i contributes up to blockSize bytes gathered from positions
// i, i+factor, i+2*factor and so on. Positions past the end of encoded read
// as zero, so a short input yields a zero-padded tail rather than an error.
func Decode(encoded []byte, outputSize, factor, blockSize int) []byte {
	buffer := make([]byte, outputSize)
	index := 0
	length := outputSize

	for n := 0; n < factor; n++ {
		cindex := n
		if n < len(encoded) {
			size := min(length, blockSize)
			length -= size
			for offset := index + size; index < offset; index++ {
				if cindex < len(encoded) {
					buffer[index] = encoded[cindex]
				}
				cindex += factor
			}
		}
	}

	return buffer
}

// Encode interleaves data across factor tracks of blockSize data bytes.
// The output is always factor*255 bytes; the trailing positions of each
// track stay zero.
func Encode(data []byte, factor, blockSize int) []byte {
	encodedSize := factor * TrackSize
	encoded := make([]byte, encodedSize)

	index := 0
	length := len(data)

	for n := 0; n < factor; n++ {
		cindex := n
		size := min(length, blockSize)
		length -= size
		for offset := index + size; index < offset; index++ {
			if cindex < encodedSize && index < len(data) {
				encoded[cindex] = data[index]
			}
			cindex += factor
		}
	}

	return encoded
}

// PageBufferParams computes the track count and the on-disk read size for a
// section page, from the compressed size in the section descriptor and the
// correction factor in the header metadata. The compressed size is rounded
// down to an 8-byte boundary after adding 7, matching the on-disk layout.
func PageBufferParams(compressedSize, correctionFactor uint64, blockSize int) (factor, readSize int) {
	v1 := (compressedSize + 7) &^ 7
	totalSize := int(v1 * correctionFactor)
	factor = (totalSize + blockSize - 1) / blockSize
	readSize = factor * TrackSize

	return factor, readSize
}
