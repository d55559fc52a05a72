package mmd

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

const (
	yenSign   = '¥'
	backslash = '\\'
)

// DecodeText decodes zero terminated Shift_JIS (Windows-31J) bytes.
// Bytes after the first NUL are ignored. The yen sign never appears in the
// result: the legacy encoding shares one byte value between yen and backslash.
func DecodeText(b []byte) (string, error) {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	if len(b) == 0 {
		return "", nil
	}
	utf8Data, _, err := transform.Bytes(japanese.ShiftJIS.NewDecoder(), b)
	if err != nil {
		return "", errIllegalEncoding
	}
	if bytes.ContainsRune(utf8Data, utf8.RuneError) {
		return "", errIllegalEncoding
	}
	text := string(utf8Data)
	if strings.ContainsRune(text, yenSign) {
		text = strings.ReplaceAll(text, string(yenSign), string(backslash))
	}
	return text, nil
}

// EncodeText encodes s into Shift_JIS (Windows-31J) bytes.
func EncodeText(s string) ([]byte, error) {
	if !utf8.ValidString(s) {
		return nil, &TextError{Text: s, Reason: ReasonInvalidUnicode}
	}
	if s == "" {
		return nil, nil
	}
	b, _, err := transform.Bytes(japanese.ShiftJIS.NewEncoder(), []byte(s))
	if err != nil {
		return nil, &TextError{Text: s, Reason: ReasonUnmappable}
	}
	return b, nil
}

// TextByteLength returns the encoded length of s, or an error when s cannot be encoded.
func TextByteLength(s string) (int, error) {
	b, err := EncodeText(s)
	if err != nil {
		return 0, err
	}
	return len(b), nil
}

// NormalizeLineBreaks converts CRLF and lone CR into LF.
func NormalizeLineBreaks(s string) string {
	if !strings.ContainsRune(s, '\r') {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}
