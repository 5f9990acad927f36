package ntriples

import (
	"fmt"
	"io"

	"github.com/lakesuperior/lsup-store/term"
)

// Encoder writes N-Triples lines, optionally shrinking IRIs through a
// PrefixMap. Encode is called once per triple rather than once per whole
// graph, so cmd/lsup-admin can write a dump line by line as it walks a
// store.Cursor, without building the whole output in memory first.
type Encoder struct {
	w      io.Writer
	prefix *PrefixMap
}

// NewEncoder returns an Encoder writing to w. prefix may be nil, in
// which case every IRI is written in full.
func NewEncoder(w io.Writer, prefix *PrefixMap) *Encoder {
	return &Encoder{w: w, prefix: prefix}
}

func (e *Encoder) renderIRI(u term.IRI) string {
	if e.prefix == nil {
		return "<" + string(u) + ">"
	}
	return e.prefix.Shrink(u)
}

// Encode writes one N-Triples line for tr.
func (e *Encoder) Encode(tr Triple) error {
	s, err := e.renderTerm(tr.S)
	if err != nil {
		return err
	}
	p, err := e.renderTerm(tr.P)
	if err != nil {
		return err
	}
	o, err := e.renderTerm(tr.O)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(e.w, "%s %s %s .\n", s, p, o)
	return err
}

func (e *Encoder) renderTerm(t term.Term) (string, error) {
	switch v := t.(type) {
	case term.IRI:
		return e.renderIRI(v), nil
	case term.Blank:
		return v.String(), nil
	case term.Literal:
		switch v.DataType() {
		case term.RDFlangString:
			return fmt.Sprintf("%q@%s", v.String(), v.Lang()), nil
		case term.XSDstring:
			return fmt.Sprintf("%q", v.String()), nil
		default:
			return fmt.Sprintf("%q^^%s", v.String(), e.renderIRI(v.DataType())), nil
		}
	default:
		return "", fmt.Errorf("ntriples: unencodable term type %T", t)
	}
}
