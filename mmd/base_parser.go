package mmd

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// MaxTextBytes is the largest fixed text field accepted by ReadText and WriteText.
const MaxTextBytes = 512

// Source is a position tracking little-endian reader.
//
// Read errors are sticky: after the first failure every read returns a zero
// value and Err reports the failure. Callers check Err once per record.
type Source struct {
	r   *bufio.Reader
	pos int64
	err error
	buf [8]byte
}

// NewSource returns a Source reading from r.
func NewSource(r io.Reader) *Source {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &Source{r: br}
}

// Position returns the number of bytes consumed so far.
func (s *Source) Position() int64 {
	return s.pos
}

// Err returns the first error encountered.
func (s *Source) Err() error {
	return s.err
}

func (s *Source) fail(err error) {
	if s.err == nil {
		s.err = err
	}
}

func (s *Source) fill(n int) []byte {
	if s.err != nil {
		return nil
	}
	b := s.buf[:n]
	read, err := io.ReadFull(s.r, b)
	s.pos += int64(read)
	if err != nil {
		s.fail(s.wrapReadError(err))
		return nil
	}
	return b
}

func (s *Source) wrapReadError(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return &EOFError{Offset: s.pos}
	}
	return fmt.Errorf("mmd: read error at %d: %w", s.pos, err)
}

// HasMore reports whether at least one more byte is available without consuming it.
func (s *Source) HasMore() bool {
	if s.err != nil {
		return false
	}
	_, err := s.r.Peek(1)
	if err != nil {
		if !errors.Is(err, io.EOF) {
			s.fail(s.wrapReadError(err))
		}
		return false
	}
	return true
}

// Skip advances n bytes without decoding them.
func (s *Source) Skip(n int64) {
	if s.err != nil || n <= 0 {
		return
	}
	for n > 0 {
		chunk := n
		if chunk > math.MaxInt32 {
			chunk = math.MaxInt32
		}
		d, err := s.r.Discard(int(chunk))
		s.pos += int64(d)
		n -= int64(d)
		if err != nil {
			s.fail(s.wrapReadError(err))
			return
		}
	}
}

func (s *Source) ReadUint8() uint8 {
	b := s.fill(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (s *Source) ReadInt8() int8 {
	return int8(s.ReadUint8())
}

// ReadBool decodes one byte; any non-zero value is true.
func (s *Source) ReadBool() bool {
	return s.ReadUint8() != 0
}

func (s *Source) ReadUint16() uint16 {
	b := s.fill(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (s *Source) ReadInt16() int16 {
	return int16(s.ReadUint16())
}

func (s *Source) ReadUint32() uint32 {
	b := s.fill(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (s *Source) ReadInt32() int32 {
	return int32(s.ReadUint32())
}

func (s *Source) ReadFloat() float32 {
	return math.Float32frombits(s.ReadUint32())
}

// ReadFloats fills dst with consecutive floats.
func (s *Source) ReadFloats(dst []float32) {
	for i := range dst {
		dst[i] = s.ReadFloat()
	}
}

// ReadBytes fills dst.
func (s *Source) ReadBytes(dst []byte) {
	if s.err != nil {
		return
	}
	n, err := io.ReadFull(s.r, dst)
	s.pos += int64(n)
	if err != nil {
		s.fail(s.wrapReadError(err))
	}
}

// ReadText reads a fixed size field of maxLen bytes holding zero terminated
// legacy encoded text.
func (s *Source) ReadText(maxLen int) string {
	if maxLen < 0 || maxLen > MaxTextBytes {
		s.fail(&FormatError{Msg: fmt.Sprintf("text field length %d out of range", maxLen), Offset: s.pos})
		return ""
	}
	var raw [MaxTextBytes]byte
	b := raw[:maxLen]
	s.ReadBytes(b)
	if s.err != nil {
		return ""
	}
	text, err := DecodeText(b)
	if err != nil {
		s.fail(&FormatError{Msg: err.Error(), Offset: s.pos})
		return ""
	}
	return text
}
