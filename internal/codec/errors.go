package codec

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnrecognizedFormat = errors.New("unrecognized file type")
	ErrOldVersion         = errors.New("old and unreadable file format")
	ErrNewVersion         = errors.New("new and unreadable file format")
	ErrInvalidExtension   = errors.New("invalid file extension")
)

// FormatError describes malformed content found while decoding.
//
// Line is set by line-oriented formats, Field by formats that address data by
// attribute or element name, Record by formats without either.
type FormatError struct {
	Line   int
	Record int
	Field  string
	Msg    string
	Err    error
}

func formatErrf(line int, err error, format string, args ...any) error {
	return &FormatError{Line: line, Msg: fmt.Sprintf(format, args...), Err: err}
}

func fieldErrf(field string, err error, format string, args ...any) error {
	return &FormatError{Field: field, Msg: fmt.Sprintf(format, args...), Err: err}
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

func (e *FormatError) Error() string {
	var buf strings.Builder
	buf.WriteString(e.Msg)
	if e.Err != nil {
		buf.WriteString(": ")
		buf.WriteString(e.Err.Error())
	}
	if e.Field != "" {
		fmt.Fprintf(&buf, " (field %s)", e.Field)
	}
	if e.Record > 0 {
		fmt.Fprintf(&buf, " in record %d", e.Record)
	}
	if e.Line > 0 {
		fmt.Fprintf(&buf, " on line %d", e.Line)
	}
	return buf.String()
}

// checkVersion accepts exactly FileVersion.
func checkVersion(version int) error {
	switch {
	case version < FileVersion:
		return fmt.Errorf("%w (version %d)", ErrOldVersion, version)
	case version > FileVersion:
		return fmt.Errorf("%w (version %d)", ErrNewVersion, version)
	}
	return nil
}
