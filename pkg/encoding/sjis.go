// Package encoding converts the Shift-JIS text used by MMD pose and motion
// files.
package encoding

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

var utf8BOM = []byte("\xef\xbb\xbf")

// DecodeShiftJIS converts Shift-JIS bytes to a UTF-8 string. Invalid
// sequences decode to U+FFFD.
func DecodeShiftJIS(data []byte) (string, error) {
	out, _, err := transform.Bytes(japanese.ShiftJIS.NewDecoder(), data)
	if err != nil {
		return "", fmt.Errorf("decode shift-jis: %w", err)
	}
	return string(out), nil
}

// EncodeShiftJIS converts a UTF-8 string to Shift-JIS. Runes without a
// Shift-JIS code point are an error.
func EncodeShiftJIS(s string) ([]byte, error) {
	out, _, err := transform.Bytes(japanese.ShiftJIS.NewEncoder(), []byte(s))
	if err != nil {
		return nil, fmt.Errorf("encode shift-jis: %w", err)
	}
	return out, nil
}

// DecodeText returns data as a string when it is valid UTF-8, dropping a
// leading byte order mark, and decodes it as Shift-JIS otherwise.
func DecodeText(data []byte) (string, error) {
	if utf8.Valid(data) {
		return string(bytes.TrimPrefix(data, utf8BOM)), nil
	}
	return DecodeShiftJIS(data)
}
