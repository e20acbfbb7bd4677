package bitcode

import (
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/encoding/unicode"
)

// utf16LE decodes the two-byte text of AC1021 and later streams.
var utf16LE = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// EncodingFromCodePage maps a drawing code-page index byte to a text
// encoding. Pre-AC1021 strings are stored in the document code page; the
// most common value by far is 0x1E (Windows-1252). Unknown indices fall
// back to Windows-1252.
func EncodingFromCodePage(key byte) encoding.Encoding {
	switch key {
	case 0x02:
		return charmap.Windows1250 // Central European
	case 0x03:
		return charmap.Windows1251 // Cyrillic
	case 0x04:
		return charmap.Windows1253 // Greek
	case 0x05:
		return charmap.Windows1254 // Turkish
	case 0x06:
		return charmap.Windows1255 // Hebrew
	case 0x07:
		return charmap.Windows1256 // Arabic
	case 0x08:
		return charmap.Windows1257 // Baltic
	case 0x0A:
		return charmap.Windows874 // Thai
	case 0x0B:
		return japanese.ShiftJIS
	case 0x0C:
		return simplifiedchinese.GBK
	case 0x0D:
		return korean.EUCKR
	case 0x0E:
		return traditionalchinese.Big5
	default:
		return charmap.Windows1252
	}
}

func decodeText(data []byte, enc encoding.Encoding) (string, error) {
	decoded, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", err
	}

	return strings.ReplaceAll(string(decoded), "\x00", ""), nil
}

// encodeText converts a string into the given encoding, substituting
// characters the code page cannot represent.
func encodeText(text string, enc encoding.Encoding) ([]byte, error) {
	return encoding.ReplaceUnsupported(enc.NewEncoder()).Bytes([]byte(text))
}
