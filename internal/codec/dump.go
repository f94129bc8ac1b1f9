package codec

import (
	"compress/gzip"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/handiism/moviedata/internal/model"
	"github.com/vmihailenco/msgpack/v5"
)

// Dump is the compressed object-dump format: a gzip stream holding one
// msgpack document. It carries record identities, so a collection reloaded
// from a dump keeps its IDs.
type Dump struct{}

type dumpDocument struct {
	Movies []dumpMovie `msgpack:"movies"`
}

type dumpMovie struct {
	ID       string `msgpack:"id"`
	Title    string `msgpack:"title"`
	Year     int    `msgpack:"year"`
	Minutes  int    `msgpack:"minutes"`
	Acquired string `msgpack:"acquired"`
	Notes    string `msgpack:"notes"`
}

func (Dump) Name() string { return "compressed dump" }

func (Dump) Encode(w io.Writer, movies []*model.Movie) error {
	doc := dumpDocument{Movies: make([]dumpMovie, len(movies))}
	for i, m := range movies {
		doc.Movies[i] = dumpMovie{
			ID:       m.ID.String(),
			Title:    m.Title,
			Year:     m.Year,
			Minutes:  m.Minutes,
			Acquired: model.FormatDate(m.Acquired),
			Notes:    m.Notes,
		}
	}

	zw := gzip.NewWriter(w)
	enc := msgpack.NewEncoder(zw)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(&doc); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

func (Dump) Decode(r io.Reader) ([]*model.Movie, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnrecognizedFormat, err)
	}
	defer zr.Close()

	var doc dumpDocument
	if err := msgpack.NewDecoder(zr).Decode(&doc); err != nil {
		return nil, &FormatError{Msg: "cannot decode dump", Err: err}
	}

	movies := make([]*model.Movie, 0, len(doc.Movies))
	for i, dm := range doc.Movies {
		acquired, err := model.ParseDate(dm.Acquired)
		if err != nil {
			return nil, &FormatError{Record: i + 1, Field: "acquired", Msg: "invalid acquired date", Err: err}
		}
		m := model.NewMovie(dm.Title, dm.Year, dm.Minutes, acquired, dm.Notes)
		if id, err := uuid.Parse(dm.ID); err == nil {
			m.ID = id
		}
		movies = append(movies, m)
	}
	return movies, nil
}
