// Package loader builds a pmd.Model from a .pmd stream.
package loader

import (
	"errors"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/binzume/pmdconv/pmd"
	"github.com/binzume/pmdconv/pmd/parser"
)

// ErrAlreadyLoaded is returned by a second call to Loader.Load.
var ErrAlreadyLoaded = errors.New("loader: already loaded")

// Loader loads one model. It is not reusable.
type Loader struct {
	log    *zap.Logger
	loaded bool
	parser *parser.Parser
}

type Option func(*Loader)

// WithLogger sets the logger receiving section summaries and warnings.
func WithLogger(log *zap.Logger) Option {
	return func(l *Loader) {
		if log != nil {
			l.log = log
		}
	}
}

func New(opts ...Option) *Loader {
	l := &Loader{log: zap.NewNop()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads a model from r. On failure no model is returned and the error
// matches mmd.ErrFormat unless the reader itself failed.
func (l *Loader) Load(r io.Reader) (*pmd.Model, error) {
	if l.loaded {
		return nil, ErrAlreadyLoaded
	}
	l.loaded = true

	st := newState(l.log)
	p := parser.New(r, st.handlers())
	if err := p.Parse(); err != nil {
		return nil, err
	}
	st.finish()
	l.parser = p

	if p.HasMoreData() {
		l.log.Warn("unread data after the last known section",
			zap.Int64("offset", p.Position()), zap.Stringer("extension", p.Extension()))
	}
	l.log.Debug("model loaded", zap.String("name", st.m.Name.Primary),
		zap.Stringer("extension", p.Extension()), zap.Int64("bytes", p.Position()))
	return st.m, nil
}

// HasMoreData reports whether the loaded stream had bytes after the last
// section this loader understands.
func (l *Loader) HasMoreData() bool {
	return l.parser != nil && l.parser.HasMoreData()
}

// Extension returns the last optional section found by Load.
func (l *Loader) Extension() pmd.Extension {
	if l.parser == nil {
		return pmd.ExtBase
	}
	return l.parser.Extension()
}

// Load reads a model from r with a new Loader.
func Load(r io.Reader, opts ...Option) (*pmd.Model, error) {
	return New(opts...).Load(r)
}

// LoadFile reads a model from a file.
func (l *Loader) LoadFile(path string) (*pmd.Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return l.Load(f)
}

// LoadFile reads a model from a file with a new Loader.
func LoadFile(path string, opts ...Option) (*pmd.Model, error) {
	return New(opts...).LoadFile(path)
}
