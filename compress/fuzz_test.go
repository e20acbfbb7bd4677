package compress

import "testing"

// fuzzMaxOutput caps the claimed decompressed size so a fuzzed size field
// cannot force a huge allocation before the stream is even read.
const fuzzMaxOutput = 0x20000

// FuzzAc18Decompress feeds arbitrary streams and claimed sizes to the
// 2004-generation decompressor. Any input must either fail with an error
// or produce exactly the claimed number of bytes; it must never panic or
// read past a slice bound.
func FuzzAc18Decompress(f *testing.F) {
	f.Add([]byte{0x11, 0x00, 0x00}, 0)
	f.Add([]byte{0x01, 0xDE, 0xAD, 0xBE, 0xEF, 0x11}, 8)
	f.Add([]byte{0x08, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 0x11}, 4)
	f.Add([]byte{0x40, 0x00}, 16)
	f.Add([]byte{0x00, 0x00, 0x05}, 1024)

	codec := NewAc18Codec()
	f.Fuzz(func(t *testing.T, data []byte, size int) {
		if size > fuzzMaxOutput {
			size %= fuzzMaxOutput
		}

		out, err := codec.Decompress(data, size)
		if err != nil {
			return
		}
		if len(out) != size {
			t.Fatalf("decoded %d bytes, declared %d", len(out), size)
		}
	})
}

// FuzzAc21Decompress is the same exercise for the R2007 decompressor,
// whose back-reference offsets must always stay within the bytes already
// produced.
func FuzzAc21Decompress(f *testing.F) {
	f.Add([]byte{0x20, 0x00, 0x00, 0x03, 'a', 'b', 'c', 0x62, 0x00}, 9)
	f.Add([]byte{0x20, 0x00, 0x00, 0x07, 1, 2, 3, 4, 5, 6, 7}, 4)
	f.Add([]byte{0x0F, 0xFF, 0xFF, 0xFF}, 512)
	f.Add(EncodeAc21Literal([]byte("AcDb:SectionMap stream")), 22)

	codec := NewAc21Codec()
	f.Fuzz(func(t *testing.T, data []byte, size int) {
		if size > fuzzMaxOutput {
			size %= fuzzMaxOutput
		}

		out, err := codec.Decompress(data, size)
		if err != nil {
			return
		}
		if len(out) != size {
			t.Fatalf("decoded %d bytes, declared %d", len(out), size)
		}
	})
}
