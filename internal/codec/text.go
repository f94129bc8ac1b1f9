package codec

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/handiism/moviedata/internal/model"
)

const (
	movieMarker    = "{MOVIE}"
	notesMarker    = "{NOTES}"
	endMovieMarker = "{ENDMOVIE}"
)

// Text is the human-readable line format:
//
//	{MOVIE} The Matrix
//	1999 136 2024-01-31
//	{NOTES}
//	Notes on one line, newlines folded by EncodeNewlines
//	{ENDMOVIE}
//
// Notes written by hand over several lines are joined with "\n" when read.
type Text struct{}

func (Text) Name() string { return "text" }

func (Text) Encode(w io.Writer, movies []*model.Movie) error {
	for i, m := range movies {
		if err := m.Validate(); err != nil {
			return fmt.Errorf("record %d: %w", i+1, err)
		}
		if err := checkTextNotes(m.Notes); err != nil {
			err.Record = i + 1
			return err
		}
	}

	bw := bufio.NewWriter(w)
	for _, m := range movies {
		fmt.Fprintf(bw, "%s %s\n", movieMarker, m.Title)
		fmt.Fprintf(bw, "%d %d %s\n", m.Year, m.Minutes, model.FormatDate(m.Acquired))
		bw.WriteString(notesMarker)
		if m.Notes != "" {
			bw.WriteString("\n")
			bw.WriteString(EncodeNewlines(m.Notes))
		}
		bw.WriteString("\n" + endMovieMarker + "\n")
	}
	return bw.Flush()
}

// checkTextNotes rejects notes that would not read back unchanged: an encoded
// line equal to the end marker ends the record early, and a trailing carriage
// return is taken for part of a CRLF terminator.
func checkTextNotes(notes string) *FormatError {
	encoded := EncodeNewlines(notes)
	switch {
	case encoded == endMovieMarker:
		return &FormatError{Field: "notes", Msg: "notes cannot be " + endMovieMarker}
	case strings.HasSuffix(encoded, "\r"):
		return &FormatError{Field: "notes", Msg: "notes cannot end with a carriage return"}
	}
	return nil
}

func (Text) Decode(r io.Reader) ([]*model.Movie, error) {
	lr := &lineReader{r: bufio.NewReader(r)}
	var movies []*model.Movie
	for {
		line, ok, err := lr.next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return movies, nil
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		m, err := lr.movie(line)
		if err != nil {
			return nil, err
		}
		movies = append(movies, m)
	}
}

// lineReader yields lines without their terminators and counts them.
type lineReader struct {
	r    *bufio.Reader
	line int
}

func (lr *lineReader) next() (string, bool, error) {
	s, err := lr.r.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", false, formatErrf(lr.line+1, err, "read failed")
	}
	if s == "" && err != nil {
		return "", false, nil
	}
	lr.line++
	s = strings.TrimSuffix(s, "\n")
	s = strings.TrimSuffix(s, "\r")
	return s, true, nil
}

func (lr *lineReader) mustNext() (string, error) {
	line, ok, err := lr.next()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", formatErrf(lr.line, nil, "premature end of file")
	}
	return line, nil
}

// movie parses one record whose header line has already been read.
func (lr *lineReader) movie(header string) (*model.Movie, error) {
	if !strings.HasPrefix(header, movieMarker) {
		return nil, formatErrf(lr.line, nil, "no movie record found")
	}
	title := strings.TrimSpace(header[len(movieMarker):])
	if title == "" {
		return nil, formatErrf(lr.line, nil, "missing title")
	}

	line, err := lr.mustNext()
	if err != nil {
		return nil, err
	}
	parts := strings.Split(line, " ")
	if len(parts) != 3 {
		return nil, formatErrf(lr.line, nil, "invalid numeric data")
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return nil, formatErrf(lr.line, err, "invalid numeric data")
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil {
		return nil, formatErrf(lr.line, err, "invalid numeric data")
	}
	acquired, err := model.ParseDate(parts[2])
	if err != nil {
		return nil, formatErrf(lr.line, err, "invalid acquired date")
	}

	line, err = lr.mustNext()
	if err != nil {
		return nil, err
	}
	if line != notesMarker {
		return nil, formatErrf(lr.line, nil, "notes expected")
	}

	var notes []string
	for {
		line, ok, err := lr.next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, formatErrf(lr.line, nil, "missing endmovie marker")
		}
		if line == endMovieMarker {
			break
		}
		notes = append(notes, line)
	}

	return model.NewMovie(title, year, minutes, acquired, DecodeNewlines(strings.Join(notes, "\n"))), nil
}
