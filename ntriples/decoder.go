// Package ntriples implements a streaming N-Triples decoder and encoder
// used by cmd/lsup-admin's import and dump subcommands: a hand-rolled
// lexer and recursive-descent parser, narrowed to plain N-Triples (no
// prefixed names, no predicate-object lists, no semicolon/comma
// continuations).
package ntriples

import (
	"fmt"
	"io"

	"github.com/lakesuperior/lsup-store/term"
)

// Triple is one decoded line of an N-Triples stream.
type Triple struct {
	S, P, O term.Term
}

// Decoder reads one Triple at a time from a stream.
type Decoder struct {
	scanner *scanner
	tr      Triple
}

// NewDecoder returns a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{scanner: newScanner(r)}
}

// Decode returns the next Triple, or io.EOF once the stream is
// exhausted.
func (d *Decoder) Decode() (Triple, error) {
	for {
		tok := d.scanner.Scan()
		switch tok.Type {
		case tokenEOL:
			continue
		case tokenEOF:
			return Triple{}, io.EOF
		case tokenURI:
			d.tr.S = term.NewIRI(tok.Text)
		case tokenBNode:
			d.tr.S = term.Blank(tok.Text)
		default:
			return Triple{}, d.errorf("expected subject, got %s %q", tok.Type, tok.Text)
		}
		break
	}

	predTok := d.scanner.Scan()
	if predTok.Type != tokenURI {
		return Triple{}, d.errorf("expected predicate URI, got %s %q", predTok.Type, predTok.Text)
	}
	d.tr.P = term.NewIRI(predTok.Text)

	obj, dotConsumed, err := d.parseObject()
	if err != nil {
		return Triple{}, err
	}
	d.tr.O = obj

	if !dotConsumed {
		dot := d.scanner.Scan()
		if dot.Type != tokenDot {
			return Triple{}, d.errorf("expected '.', got %s %q", dot.Type, dot.Text)
		}
	}
	return d.tr, nil
}

// parseObject scans the triple's object. For a plain literal it must
// also look one token ahead to tell a bare xsd:string literal from one
// carrying a language tag or datatype, so it reports whether that
// lookahead already consumed the triple's terminating dot.
func (d *Decoder) parseObject() (t term.Term, dotConsumed bool, err error) {
	tok := d.scanner.Scan()
	switch tok.Type {
	case tokenURI:
		return term.NewIRI(tok.Text), false, nil
	case tokenBNode:
		return term.Blank(tok.Text), false, nil
	case tokenLiteral:
		lexical := tok.Text
		next := d.scanner.Scan()
		switch next.Type {
		case tokenDot:
			return term.NewTypedLiteral(lexical, term.XSDstring), true, nil
		case tokenLangTag:
			return term.NewLangLiteral(lexical, next.Text), false, nil
		case tokenTypeMarker:
			dt := d.scanner.Scan()
			if dt.Type != tokenURI {
				return nil, false, d.errorf("expected datatype URI, got %s %q", dt.Type, dt.Text)
			}
			return term.NewTypedLiteral(lexical, term.IRI(dt.Text)), false, nil
		default:
			return nil, false, d.errorf("expected datatype, lang tag or '.', got %s %q", next.Type, next.Text)
		}
	case tokenEOF:
		return nil, false, io.EOF
	default:
		return nil, false, d.errorf("expected object, got %s %q", tok.Type, tok.Text)
	}
}

func (d *Decoder) errorf(format string, args ...interface{}) error {
	return fmt.Errorf("ntriples: line %d: %s", d.scanner.Row, fmt.Sprintf(format, args...))
}

// DecodeAll parses every triple in the stream.
func (d *Decoder) DecodeAll() ([]Triple, error) {
	var out []Triple
	for {
		tr, err := d.Decode()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, tr)
	}
}
