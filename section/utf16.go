package section

import "golang.org/x/text/encoding/unicode"

var utf16LE = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

func utf16Encode(s string) ([]byte, error) {
	return utf16LE.NewEncoder().Bytes([]byte(s))
}

func utf16Decode(data []byte) (string, error) {
	decoded, err := utf16LE.NewDecoder().Bytes(data)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}
