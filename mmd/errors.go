package mmd

import (
	"errors"
	"fmt"
	"io"
)

var (
	// ErrFormat matches every structural error raised while loading a file.
	ErrFormat = errors.New("mmd: format error")

	// ErrNotExportable matches every error raised while saving a model that
	// cannot be represented in the file format.
	ErrNotExportable = errors.New("mmd: model is not exportable")

	errIllegalEncoding = errors.New("illegal character encoding")
)

// FormatError is a structural or content violation found while loading.
// Offset is -1 when the position is unknown.
type FormatError struct {
	Msg    string
	Offset int64
}

func (e *FormatError) Error() string {
	if e.Offset < 0 {
		return "mmd: " + e.Msg
	}
	return fmt.Sprintf("mmd: %s (offset %d)", e.Msg, e.Offset)
}

func (e *FormatError) Is(target error) bool {
	return target == ErrFormat
}

// NewFormatError returns a FormatError without position information.
func NewFormatError(format string, args ...interface{}) *FormatError {
	return &FormatError{Msg: fmt.Sprintf(format, args...), Offset: -1}
}

// EOFError reports truncated input. It matches ErrFormat and io.ErrUnexpectedEOF.
type EOFError struct {
	Offset int64
}

func (e *EOFError) Error() string {
	return fmt.Sprintf("mmd: unexpected end of data (offset %d)", e.Offset)
}

func (e *EOFError) Is(target error) bool {
	return target == ErrFormat || target == io.ErrUnexpectedEOF
}

// TextErrorReason describes why a text could not be exported.
type TextErrorReason int

const (
	ReasonTooLong TextErrorReason = iota
	ReasonInvalidUnicode
	ReasonUnmappable
)

func (r TextErrorReason) String() string {
	switch r {
	case ReasonTooLong:
		return "too long text"
	case ReasonInvalidUnicode:
		return "invalid unicode sequence"
	case ReasonUnmappable:
		return "no character in win31j"
	default:
		return fmt.Sprintf("Unknown(%d)", int(r))
	}
}

// TextError is raised on save for text that does not fit its field.
type TextError struct {
	Text     string
	Reason   TextErrorReason
	MaxBytes int
}

func (e *TextError) Error() string {
	if e.Reason == ReasonTooLong {
		return fmt.Sprintf("mmd: %s: %q exceeds %d bytes", e.Reason, e.Text, e.MaxBytes)
	}
	return fmt.Sprintf("mmd: %s: %q", e.Reason, e.Text)
}

func (e *TextError) Is(target error) bool {
	return target == ErrNotExportable
}
