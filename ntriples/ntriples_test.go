package ntriples

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/lakesuperior/lsup-store/term"
)

func TestDecodeAllPlainTriple(t *testing.T) {
	in := `<http://ex/s> <http://ex/p> <http://ex/o> .` + "\n"
	trs, err := NewDecoder(strings.NewReader(in)).DecodeAll()
	if err != nil {
		t.Fatalf("DecodeAll: %v", err)
	}
	if len(trs) != 1 {
		t.Fatalf("DecodeAll => %d triples; want 1", len(trs))
	}
	tr := trs[0]
	if tr.S != term.Term(term.IRI("http://ex/s")) || tr.P != term.Term(term.IRI("http://ex/p")) || tr.O != term.Term(term.IRI("http://ex/o")) {
		t.Fatalf("decoded triple %+v", tr)
	}
}

func TestDecodeBlankNodeSubjectAndObject(t *testing.T) {
	in := `_:b0 <http://ex/p> _:b1 .` + "\n"
	tr, err := NewDecoder(strings.NewReader(in)).Decode()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if tr.S != term.Term(term.Blank("b0")) {
		t.Fatalf("subject => %#v; want Blank(b0)", tr.S)
	}
	if tr.O != term.Term(term.Blank("b1")) {
		t.Fatalf("object => %#v; want Blank(b1)", tr.O)
	}
}

func TestDecodePlainLiteral(t *testing.T) {
	in := `<http://ex/s> <http://ex/p> "hello" .` + "\n"
	tr, err := NewDecoder(strings.NewReader(in)).Decode()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	lit, ok := tr.O.(term.Literal)
	if !ok {
		t.Fatalf("object => %#v; want a Literal", tr.O)
	}
	if lit.String() != "hello" || lit.DataType() != term.XSDstring {
		t.Fatalf("literal => %q/%q; want hello/xsd:string", lit.String(), lit.DataType())
	}
}

func TestDecodeLangTaggedLiteral(t *testing.T) {
	in := `<http://ex/s> <http://ex/p> "bonjour"@fr .` + "\n"
	tr, err := NewDecoder(strings.NewReader(in)).Decode()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	lit, ok := tr.O.(term.Literal)
	if !ok {
		t.Fatalf("object => %#v; want a Literal", tr.O)
	}
	if lit.String() != "bonjour" || lit.Lang() != "fr" || lit.DataType() != term.RDFlangString {
		t.Fatalf("literal => %q/%q/%q; want bonjour/fr/rdf:langString", lit.String(), lit.Lang(), lit.DataType())
	}
}

func TestDecodeTypedLiteral(t *testing.T) {
	in := `<http://ex/s> <http://ex/p> "42"^^<http://www.w3.org/2001/XMLSchema#integer> .` + "\n"
	tr, err := NewDecoder(strings.NewReader(in)).Decode()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	lit, ok := tr.O.(term.Literal)
	if !ok {
		t.Fatalf("object => %#v; want a Literal", tr.O)
	}
	if lit.String() != "42" || lit.DataType() != term.XSDinteger {
		t.Fatalf("literal => %q/%q; want 42/xsd:integer", lit.String(), lit.DataType())
	}
}

func TestDecodeAllMultipleLines(t *testing.T) {
	in := `<http://ex/1> <http://ex/p> <http://ex/o> .
<http://ex/2> <http://ex/p> <http://ex/o> .
`
	trs, err := NewDecoder(strings.NewReader(in)).DecodeAll()
	if err != nil {
		t.Fatalf("DecodeAll: %v", err)
	}
	if len(trs) != 2 {
		t.Fatalf("DecodeAll => %d triples; want 2", len(trs))
	}
}

func TestDecodeEOFOnEmptyInput(t *testing.T) {
	_, err := NewDecoder(strings.NewReader("")).Decode()
	if err != io.EOF {
		t.Fatalf("Decode on empty input => %v; want io.EOF", err)
	}
}

func TestDecodeMalformedMissingDot(t *testing.T) {
	in := `<http://ex/s> <http://ex/p> <http://ex/o>` + "\n"
	_, err := NewDecoder(strings.NewReader(in)).Decode()
	if err == nil {
		t.Fatal("Decode with a missing terminating dot => nil error; want error")
	}
}

func TestDecodeMalformedBadPredicate(t *testing.T) {
	in := `<http://ex/s> "not a uri" <http://ex/o> .` + "\n"
	_, err := NewDecoder(strings.NewReader(in)).Decode()
	if err == nil {
		t.Fatal("Decode with a literal predicate => nil error; want error")
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	original := []Triple{
		{S: term.IRI("http://ex/s1"), P: term.IRI("http://ex/p"), O: term.IRI("http://ex/o1")},
		{S: term.Blank("b0"), P: term.IRI("http://ex/p"), O: term.NewLangLiteral("hei", "no")},
		{S: term.IRI("http://ex/s2"), P: term.IRI("http://ex/p"), O: term.NewTypedLiteral("42", term.XSDinteger)},
	}

	var buf bytes.Buffer
	enc := NewEncoder(&buf, nil)
	for _, tr := range original {
		if err := enc.Encode(tr); err != nil {
			t.Fatalf("Encode(%+v): %v", tr, err)
		}
	}

	got, err := NewDecoder(&buf).DecodeAll()
	if err != nil {
		t.Fatalf("DecodeAll on encoded output: %v", err)
	}
	if len(got) != len(original) {
		t.Fatalf("round-tripped %d triples; want %d", len(got), len(original))
	}
	for i, tr := range got {
		if tr.S != original[i].S || tr.P != original[i].P || tr.O != original[i].O {
			t.Fatalf("round-trip mismatch at %d: got %+v, want %+v", i, tr, original[i])
		}
	}
}

func TestPrefixMapShrink(t *testing.T) {
	pm := NewPrefixMap()
	pm.Set("ex", term.IRI("http://example.org/"))
	if got := pm.Shrink(term.IRI("http://example.org/thing")); got != "ex:thing" {
		t.Fatalf("Shrink => %q; want ex:thing", got)
	}
	if got := pm.Shrink(term.IRI("http://other.org/thing")); got != "<http://other.org/thing>" {
		t.Fatalf("Shrink of an unregistered namespace => %q; want the bracketed full IRI", got)
	}
}
