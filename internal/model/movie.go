package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// UnknownYear is stored when the release year is not known.
	UnknownYear = 1890

	// UnknownMinutes is stored when the running time is not known.
	UnknownMinutes = 0

	// DateLayout is the ISO-8601 calendar date layout used by every file format.
	DateLayout = "2006-01-02"
)

var (
	ErrEmptyTitle   = errors.New("title is empty")
	ErrInvalidTitle = errors.New("title contains a newline or tab")
)

// Movie represents one catalog entry.
//
// Title is plain text without newlines or tabs. Notes is free text and may
// contain blank lines, newlines and any Unicode characters.
//
// Title and Year determine the record's position in a collection, so they
// must only be changed through the collection's Update method once the
// movie has been added. Minutes and Notes may be edited through Update as
// well, which keeps the dirty flag accurate.
type Movie struct {
	// ID is the record identity. Collections use it to tell records apart.
	ID uuid.UUID

	// Title is the movie title.
	Title string

	// Year is the release year, or UnknownYear.
	Year int

	// Minutes is the running time, or UnknownMinutes.
	Minutes int

	// Acquired is the date the movie was added to the catalog,
	// normalised to midnight UTC.
	Acquired time.Time

	// Notes holds free-form notes.
	Notes string
}

// NewMovie creates a Movie with a fresh identity.
//
// A zero acquired date is replaced with today's date. Non-zero dates are
// truncated to the calendar day.
//
// Example:
//
//	m := NewMovie("Avatar", 2009, 162, time.Time{}, "")
//	// m.Acquired == Today()
func NewMovie(title string, year, minutes int, acquired time.Time, notes string) *Movie {
	if acquired.IsZero() {
		acquired = Today()
	} else {
		acquired = DateOf(acquired)
	}
	return &Movie{
		ID:       uuid.New(),
		Title:    title,
		Year:     year,
		Minutes:  minutes,
		Acquired: acquired,
		Notes:    notes,
	}
}

// Validate reports whether the movie can be written to any file format.
func (m *Movie) Validate() error {
	if strings.TrimSpace(m.Title) == "" {
		return ErrEmptyTitle
	}
	if strings.ContainsAny(m.Title, "\r\n\t") {
		return fmt.Errorf("%w: %q", ErrInvalidTitle, m.Title)
	}
	return nil
}

// Equal reports whether two movies hold the same data. Identity is ignored.
func (m *Movie) Equal(o *Movie) bool {
	if m == nil || o == nil {
		return m == o
	}
	return m.Title == o.Title &&
		m.Year == o.Year &&
		m.Minutes == o.Minutes &&
		m.Acquired.Equal(o.Acquired) &&
		m.Notes == o.Notes
}

// String returns "Title (Year)", or just the title when the year is unknown.
func (m *Movie) String() string {
	if m.Year == UnknownYear {
		return m.Title
	}
	return fmt.Sprintf("%s (%d)", m.Title, m.Year)
}

// Today returns the current local calendar date at midnight UTC.
func Today() time.Time {
	return DateOf(time.Now())
}

// DateOf drops the clock part of t, keeping t's calendar day.
func DateOf(t time.Time) time.Time {
	y, mo, d := t.Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a yyyy-mm-dd date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}

// FormatDate formats a date as yyyy-mm-dd.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
