package codec

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/handiism/moviedata/internal/model"
)

// XMLStream reads the XML format as a forward-only token stream instead of
// building a tree, keeping only the record under construction in memory.
// Encode is identical to XML.Encode.
type XMLStream struct{}

func (XMLStream) Name() string { return "XML stream" }

func (XMLStream) Encode(w io.Writer, movies []*model.Movie) error {
	return encodeXML(w, movies)
}

type streamState int

const (
	expectDoctype streamState = iota
	expectRoot
	expectMovie
	inMovie
	inTitle
	inNotes
	afterRoot
)

// streamParser tracks where in the document the decoder is. Each token is
// checked against the current state; nothing is buffered beyond the open
// record.
type streamParser struct {
	d      *xml.Decoder
	state  streamState
	movies []*model.Movie

	cur          *model.Movie
	text         strings.Builder
	title, notes *string
}

func (XMLStream) Decode(r io.Reader) ([]*model.Movie, error) {
	p := &streamParser{d: xml.NewDecoder(r)}
	for {
		tok, err := p.d.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &FormatError{Line: p.line(), Msg: "could not parse XML", Err: err}
		}
		if err := p.handle(tok); err != nil {
			return nil, err
		}
	}
	if p.state != afterRoot {
		return nil, formatErrf(p.line(), nil, "premature end of file")
	}
	return p.movies, nil
}

func (p *streamParser) line() int {
	line, _ := p.d.InputPos()
	return line
}

func (p *streamParser) errorf(field string, err error, format string, args ...any) error {
	return &FormatError{Line: p.line(), Field: field, Msg: fmt.Sprintf(format, args...), Err: err}
}

func (p *streamParser) handle(tok xml.Token) error {
	switch t := tok.(type) {
	case xml.ProcInst, xml.Comment:
		return nil
	case xml.Directive:
		return p.directive(t)
	case xml.StartElement:
		return p.start(t)
	case xml.EndElement:
		return p.end(t)
	case xml.CharData:
		return p.charData(t)
	}
	return nil
}

func (p *streamParser) directive(d xml.Directive) error {
	if p.state != expectDoctype {
		return nil
	}
	fields := strings.Fields(string(d))
	if len(fields) < 2 || fields[0] != "DOCTYPE" || fields[1] != xmlRootTag {
		return fmt.Errorf("%w: doctype %q", ErrUnrecognizedFormat, string(d))
	}
	p.state = expectRoot
	return nil
}

func (p *streamParser) start(el xml.StartElement) error {
	name := el.Name.Local
	switch p.state {
	case expectDoctype:
		return fmt.Errorf("%w: missing doctype", ErrUnrecognizedFormat)
	case expectRoot:
		if name != xmlRootTag {
			return fmt.Errorf("%w: root element %s", ErrUnrecognizedFormat, name)
		}
		if err := checkXMLVersion(tokenAttrs(el)); err != nil {
			return err
		}
		p.state = expectMovie
	case expectMovie:
		if name != xmlMovieTag {
			return p.errorf(name, nil, "unexpected element")
		}
		m, err := movieFromAttrs(tokenAttrs(el))
		if err != nil {
			var fe *FormatError
			if errors.As(err, &fe) {
				fe.Line = p.line()
			}
			return err
		}
		p.cur, p.title, p.notes = m, nil, nil
		p.state = inMovie
	case inMovie:
		switch name {
		case xmlTitleTag:
			p.state = inTitle
		case xmlNotesTag:
			p.state = inNotes
		default:
			return p.errorf(name, nil, "unexpected element")
		}
		p.text.Reset()
	default:
		return p.errorf(name, nil, "unexpected element")
	}
	return nil
}

func (p *streamParser) end(el xml.EndElement) error {
	switch p.state {
	case inTitle:
		s := strings.TrimSpace(p.text.String())
		p.title = &s
		p.state = inMovie
	case inNotes:
		s := unwrapNotes(p.text.String())
		p.notes = &s
		p.state = inMovie
	case inMovie:
		if p.title == nil || p.notes == nil {
			return p.errorf(xmlMovieTag, nil, "missing title or notes")
		}
		if *p.title == "" {
			return p.errorf(xmlTitleTag, nil, "missing title")
		}
		p.cur.Title = *p.title
		p.cur.Notes = DecodeNewlines(*p.notes)
		p.movies = append(p.movies, p.cur)
		p.cur = nil
		p.state = expectMovie
	case expectMovie:
		p.state = afterRoot
	default:
		return p.errorf(el.Name.Local, nil, "unexpected end element")
	}
	return nil
}

func (p *streamParser) charData(cd xml.CharData) error {
	switch p.state {
	case inTitle, inNotes:
		p.text.Write(cd)
		return nil
	}
	if strings.TrimSpace(string(cd)) != "" {
		return p.errorf("", nil, "unexpected text %q", strings.TrimSpace(string(cd)))
	}
	return nil
}

func tokenAttrs(el xml.StartElement) attrLookup {
	return func(name string) (string, bool) {
		for _, a := range el.Attr {
			if a.Name.Local == name {
				return a.Value, true
			}
		}
		return "", false
	}
}
