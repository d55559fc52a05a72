package mmd

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Sink is the write counterpart of Source. Write errors are sticky.
type Sink struct {
	w   *bufio.Writer
	pos int64
	err error
	buf [8]byte
}

// NewSink returns a Sink writing to w. Call Flush when done.
func NewSink(w io.Writer) *Sink {
	bw, ok := w.(*bufio.Writer)
	if !ok {
		bw = bufio.NewWriter(w)
	}
	return &Sink{w: bw}
}

// Position returns the number of bytes written so far.
func (s *Sink) Position() int64 {
	return s.pos
}

// Err returns the first write error.
func (s *Sink) Err() error {
	return s.err
}

// Flush writes buffered data to the underlying writer.
func (s *Sink) Flush() error {
	if s.err != nil {
		return s.err
	}
	if err := s.w.Flush(); err != nil {
		s.err = fmt.Errorf("mmd: write error at %d: %w", s.pos, err)
	}
	return s.err
}

func (s *Sink) put(b []byte) {
	if s.err != nil {
		return
	}
	n, err := s.w.Write(b)
	s.pos += int64(n)
	if err != nil {
		s.err = fmt.Errorf("mmd: write error at %d: %w", s.pos, err)
	}
}

func (s *Sink) WriteUint8(v uint8) {
	s.buf[0] = v
	s.put(s.buf[:1])
}

func (s *Sink) WriteInt8(v int8) {
	s.WriteUint8(uint8(v))
}

// WriteBool writes 1 for true and 0 for false.
func (s *Sink) WriteBool(v bool) {
	if v {
		s.WriteUint8(1)
	} else {
		s.WriteUint8(0)
	}
}

func (s *Sink) WriteUint16(v uint16) {
	binary.LittleEndian.PutUint16(s.buf[:2], v)
	s.put(s.buf[:2])
}

func (s *Sink) WriteInt16(v int16) {
	s.WriteUint16(uint16(v))
}

func (s *Sink) WriteUint32(v uint32) {
	binary.LittleEndian.PutUint32(s.buf[:4], v)
	s.put(s.buf[:4])
}

func (s *Sink) WriteInt32(v int32) {
	s.WriteUint32(uint32(v))
}

func (s *Sink) WriteFloat(v float32) {
	s.WriteUint32(math.Float32bits(v))
}

func (s *Sink) WriteFloats(v ...float32) {
	for _, f := range v {
		s.WriteFloat(f)
	}
}

func (s *Sink) WriteBytes(b []byte) {
	s.put(b)
}

// WriteText encodes text into a field of exactly maxLen bytes. When the
// encoded text is shorter, the rest is padded from filler: filler bytes are
// used in order and the last one repeats. Text longer than maxLen is a TextError
// and nothing is written.
func (s *Sink) WriteText(text string, maxLen int, filler []byte) error {
	b, err := EncodeText(text)
	if err != nil {
		if te, ok := err.(*TextError); ok {
			te.MaxBytes = maxLen
		}
		return err
	}
	if len(b) > maxLen {
		return &TextError{Text: text, Reason: ReasonTooLong, MaxBytes: maxLen}
	}
	s.put(b)
	remain := maxLen - len(b)
	for i := 0; remain > 0; i++ {
		if i >= len(filler) {
			i = len(filler) - 1
		}
		if i < 0 {
			s.WriteUint8(0)
		} else {
			s.WriteUint8(filler[i])
		}
		remain--
	}
	return nil
}
