package codec

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/beevik/etree"
	"github.com/handiism/moviedata/internal/model"
)

const (
	xmlRootTag  = "MOVIES"
	xmlMovieTag = "MOVIE"
	xmlTitleTag = "TITLE"
	xmlNotesTag = "NOTES"

	xmlVersionAttr  = "VERSION"
	xmlYearAttr     = "YEAR"
	xmlMinutesAttr  = "MINUTES"
	xmlAcquiredAttr = "ACQUIRED"
)

// XML is the interchange format. Encode writes the document by hand;
// Decode loads it into an element tree and walks it.
//
//	<?xml version='1.0' encoding='UTF-8'?>
//	<!DOCTYPE MOVIES>
//	<MOVIES VERSION='100'>
//	<MOVIE YEAR='1999' MINUTES='136' ACQUIRED='2024-01-31'>
//	<TITLE>The Matrix</TITLE>
//	<NOTES>
//	encoded notes
//	</NOTES>
//	</MOVIE>
//	</MOVIES>
type XML struct{}

func (XML) Name() string { return "XML" }

func (XML) Encode(w io.Writer, movies []*model.Movie) error {
	return encodeXML(w, movies)
}

func (XML) Decode(r io.Reader) ([]*model.Movie, error) {
	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(r); err != nil {
		return nil, &FormatError{Msg: "could not parse XML", Err: err}
	}

	root := doc.Root()
	if root == nil || root.Tag != xmlRootTag {
		return nil, fmt.Errorf("%w: not a Movies XML file", ErrUnrecognizedFormat)
	}
	if err := checkXMLVersion(elementAttrs(root)); err != nil {
		return nil, err
	}

	var movies []*model.Movie
	for _, el := range root.ChildElements() {
		if el.Tag != xmlMovieTag {
			continue
		}
		m, err := movieFromElement(el)
		if err != nil {
			return nil, err
		}
		movies = append(movies, m)
	}
	return movies, nil
}

func movieFromElement(el *etree.Element) (*model.Movie, error) {
	m, err := movieFromAttrs(elementAttrs(el))
	if err != nil {
		return nil, err
	}

	var title, notes *string
	for _, child := range el.ChildElements() {
		switch child.Tag {
		case xmlTitleTag:
			s := strings.TrimSpace(elementText(child))
			title = &s
		case xmlNotesTag:
			s := unwrapNotes(elementText(child))
			notes = &s
		}
	}
	if title == nil || notes == nil {
		return nil, fieldErrf(xmlMovieTag, nil, "missing title or notes")
	}
	if *title == "" {
		return nil, fieldErrf(xmlTitleTag, nil, "missing title")
	}
	m.Title = *title
	m.Notes = DecodeNewlines(*notes)
	return m, nil
}

// elementText concatenates the element's own character data.
func elementText(el *etree.Element) string {
	var buf strings.Builder
	for _, tok := range el.Child {
		if cd, ok := tok.(*etree.CharData); ok {
			buf.WriteString(cd.Data)
		}
	}
	return buf.String()
}

func elementAttrs(el *etree.Element) attrLookup {
	return func(name string) (string, bool) {
		a := el.SelectAttr(name)
		if a == nil {
			return "", false
		}
		return a.Value, true
	}
}

// attrLookup returns the value of the named attribute on the current element.
type attrLookup func(name string) (string, bool)

func checkXMLVersion(attr attrLookup) error {
	v, ok := attr(xmlVersionAttr)
	if !ok {
		return fieldErrf(xmlVersionAttr, ErrUnrecognizedFormat, "missing version")
	}
	version, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fieldErrf(xmlVersionAttr, err, "invalid version")
	}
	return checkVersion(version)
}

// movieFromAttrs builds a movie from the MOVIE element's attributes. Title
// and notes are filled in by the caller.
func movieFromAttrs(attr attrLookup) (*model.Movie, error) {
	year, err := intAttr(attr, xmlYearAttr)
	if err != nil {
		return nil, err
	}
	minutes, err := intAttr(attr, xmlMinutesAttr)
	if err != nil {
		return nil, err
	}
	v, ok := attr(xmlAcquiredAttr)
	if !ok {
		return nil, fieldErrf(xmlAcquiredAttr, nil, "missing attribute")
	}
	acquired, err := model.ParseDate(v)
	if err != nil {
		return nil, fieldErrf(xmlAcquiredAttr, err, "invalid acquired date %q", v)
	}
	return model.NewMovie("", year, minutes, acquired, ""), nil
}

func intAttr(attr attrLookup, name string) (int, error) {
	v, ok := attr(name)
	if !ok {
		return 0, fieldErrf(name, nil, "missing attribute")
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fieldErrf(name, err, "invalid attribute")
	}
	return n, nil
}

// unwrapNotes strips the newline pair the exporter puts around notes text,
// or surrounding ASCII whitespace for hand-written documents. Notes never
// contain raw newlines after EncodeNewlines, so the separators survive.
func unwrapNotes(s string) string {
	if s == "\n" {
		return ""
	}
	if len(s) >= 2 && s[0] == '\n' && s[len(s)-1] == '\n' {
		return s[1 : len(s)-1]
	}
	return strings.Trim(s, " \t\r\n")
}

func encodeXML(w io.Writer, movies []*model.Movie) error {
	for i, m := range movies {
		if err := m.Validate(); err != nil {
			return fmt.Errorf("record %d: %w", i+1, err)
		}
		if r, ok := invalidXMLChar(m.Title); ok {
			return &FormatError{Record: i + 1, Field: xmlTitleTag, Msg: fmt.Sprintf("character %U is not allowed in XML", r)}
		}
		if r, ok := invalidXMLChar(m.Notes); ok {
			return &FormatError{Record: i + 1, Field: xmlNotesTag, Msg: fmt.Sprintf("character %U is not allowed in XML", r)}
		}
	}

	bw := bufio.NewWriter(w)
	bw.WriteString("<?xml version='1.0' encoding='UTF-8'?>\n")
	bw.WriteString("<!DOCTYPE " + xmlRootTag + ">\n")
	fmt.Fprintf(bw, "<%s %s='%d'>\n", xmlRootTag, xmlVersionAttr, FileVersion)
	for _, m := range movies {
		fmt.Fprintf(bw, "<%s %s='%d' %s='%d' %s='%s'>\n",
			xmlMovieTag,
			xmlYearAttr, m.Year,
			xmlMinutesAttr, m.Minutes,
			xmlAcquiredAttr, model.FormatDate(m.Acquired))
		fmt.Fprintf(bw, "<%s>%s</%s>\n", xmlTitleTag, escapeXML(m.Title), xmlTitleTag)
		bw.WriteString("<" + xmlNotesTag + ">")
		if m.Notes != "" {
			bw.WriteString("\n")
			bw.WriteString(escapeXML(EncodeNewlines(m.Notes)))
		}
		bw.WriteString("\n</" + xmlNotesTag + ">\n")
		bw.WriteString("</" + xmlMovieTag + ">\n")
	}
	bw.WriteString("</" + xmlRootTag + ">\n")
	return bw.Flush()
}

// invalidXMLChar returns the first rune of s outside the XML 1.0 Char
// production. Invalid UTF-8 is reported as utf8.RuneError.
func invalidXMLChar(s string) (rune, bool) {
	for i, r := range s {
		if r == utf8.RuneError {
			if _, size := utf8.DecodeRuneInString(s[i:]); size == 1 {
				return r, true
			}
		}
		switch {
		case r == '\t', r == '\n', r == '\r':
		case r >= 0x20 && r <= 0xD7FF:
		case r >= 0xE000 && r <= 0xFFFD:
		case r >= 0x10000 && r <= 0x10FFFF:
		default:
			return r, true
		}
	}
	return 0, false
}

// escapeXML escapes special XML characters in a string.
//
// Replaces: & < > " ' and carriage return
// With:     &amp; &lt; &gt; &quot; &apos; &#xD;
//
// Parsers normalise a literal carriage return to "\n", so it is written as a
// character reference.
func escapeXML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, "\"", "&quot;")
	s = strings.ReplaceAll(s, "'", "&apos;")
	s = strings.ReplaceAll(s, "\r", "&#xD;")
	return s
}
