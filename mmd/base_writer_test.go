package mmd

import (
	"bytes"
	"errors"
	"testing"
)

var (
	fillerFD = []byte{0x00, 0xfd}
	fillerLF = []byte{0x0a, 0x00, 0xfd}
)

func TestSinkWriteText(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		size   int
		filler []byte
		want   []byte
	}{
		{"fd", "ab", 6, fillerFD, []byte{'a', 'b', 0x00, 0xfd, 0xfd, 0xfd}},
		{"lf", "ab", 6, fillerLF, []byte{'a', 'b', 0x0a, 0x00, 0xfd, 0xfd}},
		{"nul", "", 4, []byte{0x00}, []byte{0, 0, 0, 0}},
		{"empty filler", "a", 3, nil, []byte{'a', 0, 0}},
		{"exact", "abcd", 4, fillerFD, []byte("abcd")},
		{"sjis", "モ", 4, fillerFD, []byte{0x83, 0x82, 0x00, 0xfd}},
		{"backslash", `\`, 2, fillerFD, []byte{0x5c, 0x00}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			w := NewSink(&buf)
			if err := w.WriteText(tt.text, tt.size, tt.filler); err != nil {
				t.Fatal(err)
			}
			w.Flush()
			if !bytes.Equal(buf.Bytes(), tt.want) {
				t.Errorf("got % x, want % x", buf.Bytes(), tt.want)
			}
		})
	}
}

func TestSinkWriteTextErrors(t *testing.T) {
	var buf bytes.Buffer
	w := NewSink(&buf)

	err := w.WriteText("abcde", 4, fillerFD)
	var te *TextError
	if !errors.As(err, &te) || te.Reason != ReasonTooLong || te.MaxBytes != 4 {
		t.Error("too long text", err)
	}
	if !errors.Is(err, ErrNotExportable) || errors.Is(err, ErrFormat) {
		t.Error("text errors are export errors", err)
	}

	err = w.WriteText("\U0001F600", 20, fillerFD)
	if !errors.As(err, &te) || te.Reason != ReasonUnmappable {
		t.Error("unmappable text", err)
	}

	err = w.WriteText(string([]byte{0xff, 0xfe}), 20, fillerFD)
	if !errors.As(err, &te) || te.Reason != ReasonInvalidUnicode {
		t.Error("invalid utf-8", err)
	}

	w.Flush()
	if buf.Len() != 0 || w.Position() != 0 {
		t.Error("failed writes must not emit bytes", buf.Len())
	}
}

func TestTextYen(t *testing.T) {
	s, err := DecodeText([]byte{'C', 0x5c, 0})
	if err != nil || s != `C\` {
		t.Errorf("DecodeText = %q, %v", s, err)
	}
	b, err := EncodeText(`a\b`)
	if err != nil || !bytes.Equal(b, []byte{'a', 0x5c, 'b'}) {
		t.Errorf("EncodeText = % x, %v", b, err)
	}
	if NormalizeLineBreaks("a\r\nb\rc\n") != "a\nb\nc\n" {
		t.Error("NormalizeLineBreaks")
	}
	if n, _ := TextByteLength("モデル"); n != 6 {
		t.Error("TextByteLength", n)
	}
}
