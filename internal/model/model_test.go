package model

import (
	"errors"
	"testing"
	"time"
)

func TestNewMovie_Defaults(t *testing.T) {
	m := NewMovie("Heat", UnknownYear, UnknownMinutes, time.Time{}, "")

	if m.Acquired.IsZero() {
		t.Fatal("Acquired should default to today")
	}
	if !m.Acquired.Equal(Today()) {
		t.Errorf("Acquired = %v, want %v", m.Acquired, Today())
	}
	if m.Year != 1890 {
		t.Errorf("Year = %d, want 1890", m.Year)
	}
	if m.Minutes != 0 {
		t.Errorf("Minutes = %d, want 0", m.Minutes)
	}
}

func TestNewMovie_UniqueIdentity(t *testing.T) {
	a := NewMovie("Heat", 1995, 170, time.Time{}, "")
	b := NewMovie("Heat", 1995, 170, time.Time{}, "")

	if a.ID == b.ID {
		t.Error("two movies should not share an ID")
	}
	if !a.Equal(b) {
		t.Error("movies with the same fields should be Equal")
	}
}

func TestNewMovie_TruncatesDate(t *testing.T) {
	at := time.Date(2021, 7, 4, 18, 30, 15, 0, time.FixedZone("X", 3*3600))
	m := NewMovie("Jaws", 1975, 124, at, "")

	want := time.Date(2021, 7, 4, 0, 0, 0, 0, time.UTC)
	if !m.Acquired.Equal(want) {
		t.Errorf("Acquired = %v, want %v", m.Acquired, want)
	}
}

func TestMovie_Validate(t *testing.T) {
	tests := []struct {
		title string
		want  error
	}{
		{"Alien", nil},
		{"", ErrEmptyTitle},
		{"   ", ErrEmptyTitle},
		{"Two\nLines", ErrInvalidTitle},
		{"Tab\tbed", ErrInvalidTitle},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			m := NewMovie(tt.title, 1979, 117, time.Time{}, "")
			err := m.Validate()
			if tt.want == nil {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestMovie_String(t *testing.T) {
	if got := NewMovie("Alien", 1979, 0, time.Time{}, "").String(); got != "Alien (1979)" {
		t.Errorf("String() = %q, want %q", got, "Alien (1979)")
	}
	if got := NewMovie("Alien", UnknownYear, 0, time.Time{}, "").String(); got != "Alien" {
		t.Errorf("String() = %q, want %q", got, "Alien")
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-03-09")
	if err != nil {
		t.Fatalf("ParseDate() error = %v", err)
	}
	if got := FormatDate(d); got != "2024-03-09" {
		t.Errorf("FormatDate() = %q, want %q", got, "2024-03-09")
	}

	for _, bad := range []string{"", "2024-3-9", "09/03/2024", "2024-13-01"} {
		if _, err := ParseDate(bad); err == nil {
			t.Errorf("ParseDate(%q) should fail", bad)
		}
	}
}
