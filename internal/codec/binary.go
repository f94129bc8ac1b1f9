package codec

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/handiism/moviedata/internal/model"
	"golang.org/x/text/encoding/unicode"
)

// nullString marks a null string in the data stream.
const nullString = 0xFFFFFFFF

// maxStringBytes bounds a single string so a corrupt length cannot trigger a
// huge allocation.
const maxStringBytes = 64 << 20

var utf16BE = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)

// Binary is the compact data-stream format.
//
// Layout (big-endian):
//
//	int32   magic (0x3051E)
//	int32   version (100)
//	repeated until EOF:
//	  string  title
//	  int16   year
//	  int16   minutes
//	  string  acquired (yyyy-mm-dd)
//	  string  notes
//
// A string is a uint32 byte count followed by UTF-16BE code units; the count
// 0xFFFFFFFF denotes a null string and reads back as "".
type Binary struct{}

func (Binary) Name() string { return "binary" }

func (Binary) Encode(w io.Writer, movies []*model.Movie) error {
	for i, m := range movies {
		if err := checkInt16("year", m.Year); err != nil {
			return fmt.Errorf("record %d: %w", i+1, err)
		}
		if err := checkInt16("minutes", m.Minutes); err != nil {
			return fmt.Errorf("record %d: %w", i+1, err)
		}
	}

	sw := &streamWriter{w: bufio.NewWriter(w)}
	sw.int32(MagicNumber)
	sw.int32(FileVersion)
	for _, m := range movies {
		sw.string(m.Title)
		sw.int16(m.Year)
		sw.int16(m.Minutes)
		sw.string(model.FormatDate(m.Acquired))
		sw.string(m.Notes)
	}
	return sw.flush()
}

func (Binary) Decode(r io.Reader) ([]*model.Movie, error) {
	sr := &streamReader{r: bufio.NewReader(r)}

	magic, err := sr.int32()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnrecognizedFormat, err)
	}
	if magic != MagicNumber {
		return nil, ErrUnrecognizedFormat
	}
	version, err := sr.int32()
	if err != nil {
		return nil, &FormatError{Field: "version", Msg: "cannot read header", Err: err}
	}
	if err := checkVersion(int(version)); err != nil {
		return nil, err
	}

	var movies []*model.Movie
	for rec := 1; ; rec++ {
		end, err := sr.atEnd()
		if err != nil {
			return nil, err
		}
		if end {
			return movies, nil
		}
		m, err := sr.movie()
		if err != nil {
			var fe *FormatError
			if errors.As(err, &fe) {
				fe.Record = rec
			}
			return nil, err
		}
		movies = append(movies, m)
	}
}

func checkInt16(field string, v int) error {
	if v < math.MinInt16 || v > math.MaxInt16 {
		return fmt.Errorf("%s %d does not fit in 16 bits", field, v)
	}
	return nil
}

// streamWriter keeps the first write error so callers can check once.
type streamWriter struct {
	w   *bufio.Writer
	err error
}

func (sw *streamWriter) write(v any) {
	if sw.err != nil {
		return
	}
	sw.err = binary.Write(sw.w, binary.BigEndian, v)
}

func (sw *streamWriter) int32(v int32) { sw.write(v) }
func (sw *streamWriter) int16(v int)   { sw.write(int16(v)) }

func (sw *streamWriter) string(s string) {
	if sw.err != nil {
		return
	}
	b, err := utf16BE.NewEncoder().Bytes([]byte(s))
	if err != nil {
		sw.err = err
		return
	}
	sw.write(uint32(len(b)))
	if sw.err == nil {
		_, sw.err = sw.w.Write(b)
	}
}

func (sw *streamWriter) flush() error {
	if sw.err != nil {
		return sw.err
	}
	return sw.w.Flush()
}

type streamReader struct {
	r *bufio.Reader
}

func (sr *streamReader) atEnd() (bool, error) {
	_, err := sr.r.Peek(1)
	if errors.Is(err, io.EOF) {
		return true, nil
	}
	return false, err
}

func (sr *streamReader) int32() (int32, error) {
	var v int32
	err := binary.Read(sr.r, binary.BigEndian, &v)
	return v, err
}

func (sr *streamReader) int16() (int, error) {
	var v int16
	err := binary.Read(sr.r, binary.BigEndian, &v)
	return int(v), err
}

func (sr *streamReader) string() (string, error) {
	var n uint32
	if err := binary.Read(sr.r, binary.BigEndian, &n); err != nil {
		return "", err
	}
	if n == nullString {
		return "", nil
	}
	if n%2 != 0 || n > maxStringBytes {
		return "", fmt.Errorf("invalid string length %d", n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(sr.r, buf); err != nil {
		return "", err
	}
	b, err := utf16BE.NewDecoder().Bytes(buf)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (sr *streamReader) movie() (*model.Movie, error) {
	title, err := sr.string()
	if err != nil {
		return nil, truncated("title", err)
	}
	year, err := sr.int16()
	if err != nil {
		return nil, truncated("year", err)
	}
	minutes, err := sr.int16()
	if err != nil {
		return nil, truncated("minutes", err)
	}
	date, err := sr.string()
	if err != nil {
		return nil, truncated("acquired", err)
	}
	acquired, err := model.ParseDate(date)
	if err != nil {
		return nil, &FormatError{Field: "acquired", Msg: "invalid acquired date", Err: err}
	}
	notes, err := sr.string()
	if err != nil {
		return nil, truncated("notes", err)
	}
	return model.NewMovie(title, year, minutes, acquired, notes), nil
}

func truncated(field string, err error) error {
	if errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	return &FormatError{Field: field, Msg: "cannot read record", Err: err}
}
