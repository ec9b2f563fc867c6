// Package markup turns markup documents into a flat stream of element-start,
// text and element-end events. The corpus loader consumes sources through
// the Source interface and never sees the decoder behind it.
package markup

import (
	"encoding/xml"
	"errors"
	"io"
	"strings"

	qerrors "github.com/FocuswithJustin/JuniperQuran/core/errors"
)

// Kind is the type of a markup event.
type Kind int

const (
	// StartElement opens an element.
	StartElement Kind = iota + 1
	// Text carries character data of the innermost open element.
	Text
	// EndElement closes an element.
	EndElement
)

func (k Kind) String() string {
	switch k {
	case StartElement:
		return "start"
	case Text:
		return "text"
	case EndElement:
		return "end"
	default:
		return "unknown"
	}
}

// Event is one item of a markup stream.
type Event struct {
	Kind  Kind
	Name  string            // element local name, for StartElement and EndElement
	Attrs map[string]string // attributes by local name, StartElement only
	Text  string            // raw character data, Text only
}

// Attr returns the named attribute of a StartElement event.
func (e Event) Attr(name string) (string, bool) {
	v, ok := e.Attrs[name]
	return v, ok
}

// Source yields markup events in document order. Next returns io.EOF when
// the stream ends normally; any other error is terminal and is a
// *errors.MarkupStreamError.
type Source interface {
	Next() (Event, error)
}

// Decoder is a Source backed by encoding/xml.
type Decoder struct {
	name string
	dec  *xml.Decoder
	err  error
}

// NewDecoder returns a Source reading XML from r. The name is used in error
// reports only.
func NewDecoder(name string, r io.Reader) *Decoder {
	dec := xml.NewDecoder(r)
	// XXE Protection (CWE-611): no entity expansion beyond the XML builtins.
	dec.Entity = map[string]string{}
	return &Decoder{name: name, dec: dec}
}

// NewStringDecoder is a convenience for in-memory documents.
func NewStringDecoder(name, doc string) *Decoder {
	return NewDecoder(name, strings.NewReader(doc))
}

// Next implements Source. Comments, processing instructions and directives
// are skipped. Once an error is returned every later call returns it again.
func (d *Decoder) Next() (Event, error) {
	if d.err != nil {
		return Event{}, d.err
	}

	for {
		tok, err := d.dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				d.err = io.EOF
				return Event{}, io.EOF
			}
			line, col := d.dec.InputPos()
			d.err = &qerrors.MarkupStreamError{Source: d.name, Line: line, Column: col, Err: err}
			return Event{}, d.err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			ev := Event{Kind: StartElement, Name: t.Name.Local}
			if len(t.Attr) > 0 {
				ev.Attrs = make(map[string]string, len(t.Attr))
				for _, a := range t.Attr {
					ev.Attrs[a.Name.Local] = a.Value
				}
			}
			return ev, nil
		case xml.EndElement:
			return Event{Kind: EndElement, Name: t.Name.Local}, nil
		case xml.CharData:
			return Event{Kind: Text, Text: string(t)}, nil
		}
	}
}

// Events is an in-memory Source, handy for tests and for replaying a
// recorded stream. A non-nil Err is returned after the events run out.
type Events struct {
	List []Event
	Err  error
	pos  int
}

// Next implements Source.
func (s *Events) Next() (Event, error) {
	if s.pos < len(s.List) {
		ev := s.List[s.pos]
		s.pos++
		return ev, nil
	}
	if s.Err != nil {
		return Event{}, s.Err
	}
	return Event{}, io.EOF
}
