package codec

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/handiism/moviedata/internal/model"
)

const (
	// MagicNumber opens every binary file.
	MagicNumber = 0x3051E

	// FileVersion is the only binary and XML format version this package reads.
	FileVersion = 100
)

// Codec converts a sequence of movies to and from one file format.
type Codec interface {
	// Name is a short human-readable format name.
	Name() string

	// Encode writes movies in the given order.
	Encode(w io.Writer, movies []*model.Movie) error

	// Decode reads every movie in the stream. On error the returned slice is nil.
	Decode(r io.Reader) ([]*model.Movie, error)
}

// Registry maps file extensions to codecs.
//
// A Registry is built once and then only read, so it may be shared between
// goroutines after setup.
type Registry struct {
	order  []string
	codecs map[string]Codec
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{codecs: make(map[string]Codec)}
}

// DefaultRegistry returns the four native collection formats.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(".mqb", Binary{})
	r.Register(".mpb", Dump{})
	r.Register(".mqt", Text{})
	r.Register(".mpt", Text{})
	return r
}

// Register binds ext (with or without the leading dot) to c, replacing any
// previous binding.
func (r *Registry) Register(ext string, c Codec) {
	ext = normalizeExt(ext)
	if _, ok := r.codecs[ext]; !ok {
		r.order = append(r.order, ext)
	}
	r.codecs[ext] = c
}

// Lookup returns the codec for path's extension. Matching ignores case.
func (r *Registry) Lookup(path string) (Codec, error) {
	ext := normalizeExt(filepath.Ext(path))
	if c, ok := r.codecs[ext]; ok {
		return c, nil
	}
	if ext == "." {
		return nil, fmt.Errorf("%w: %q has no extension", ErrInvalidExtension, filepath.Base(path))
	}
	return nil, fmt.Errorf("%w %q", ErrInvalidExtension, ext)
}

// Extensions returns the registered extensions in registration order.
func (r *Registry) Extensions() []string {
	return append([]string(nil), r.order...)
}

// Formats returns a file-dialog style pattern list, e.g. "*.mqb *.mpb".
func (r *Registry) Formats() string {
	patterns := make([]string, len(r.order))
	for i, ext := range r.order {
		patterns[i] = "*" + ext
	}
	return strings.Join(patterns, " ")
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
