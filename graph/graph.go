// Package graph implements the storage engine's in-memory quad set
// value object: a self-contained, persistence-free collection of quads
// used to stage a batch before a transactional Add/AddMany, or to hold a
// Describe/Lookup result for the caller to inspect without an open
// transaction.
//
// Graph interns every term once into an append-only byte buffer (reusing
// the term package's encoding as the dedup key) and stores quads as a set
// of integer-id tuples, rather than as a map nested per subject and
// predicate URI: that shape would need another map layer per node to
// express the context dimension, and would pay a hash lookup per
// distinct URI/literal object each time the same term recurs.
package graph

import (
	"fmt"

	"github.com/lakesuperior/lsup-store/term"
)

// termID indexes into a Graph's term buffer.
type termID int32

type quadRecord struct {
	s, p, o, c termID
}

// Graph is an in-memory, mutable quad set. The zero value is not usable;
// construct one with New.
type Graph struct {
	termBuf []byte
	offsets []int
	ids     map[string]termID
	quads   map[quadRecord]struct{}
}

// New returns an empty Graph.
func New() *Graph {
	return &Graph{
		ids:   map[string]termID{},
		quads: map[quadRecord]struct{}{},
	}
}

func (g *Graph) intern(t term.Term) termID {
	enc := term.Encode(t)
	if id, ok := g.ids[string(enc)]; ok {
		return id
	}
	id := termID(len(g.offsets))
	g.offsets = append(g.offsets, len(g.termBuf))
	g.termBuf = append(g.termBuf, enc...)
	g.ids[string(enc)] = id
	return id
}

func (g *Graph) termAt(id termID) term.Term {
	start := g.offsets[id]
	end := len(g.termBuf)
	if int(id)+1 < len(g.offsets) {
		end = g.offsets[id+1]
	}
	t, err := term.Decode(g.termBuf[start:end])
	if err != nil {
		// The bytes at this offset were produced by term.Encode in
		// intern and never touched again; a decode failure here means
		// the Graph's own invariant (offsets always point at a
		// complete, valid encoding) has been violated by a bug.
		panic(fmt.Sprintf("graph: corrupt term buffer at id %d: %v", id, err))
	}
	return t
}

// Quad is a fully resolved quad, as returned by Iter and Describe.
type Quad struct {
	S, P, O, C term.Term
}

// Add inserts the quad, interning any term not already known to g. It
// returns true if the quad was not already present.
func (g *Graph) Add(s, p, o, c term.Term) bool {
	rec := quadRecord{g.intern(s), g.intern(p), g.intern(o), g.intern(c)}
	if _, ok := g.quads[rec]; ok {
		return false
	}
	g.quads[rec] = struct{}{}
	return true
}

// Remove deletes the quad if present, returning true if it was. The
// terms are looked up read-only, never interned: if any of s, p, o, c
// was never interned, the quad cannot be present, and Remove returns
// false without growing the term buffer.
func (g *Graph) Remove(s, p, o, c term.Term) bool {
	id, ok := g.lookupID(s)
	if !ok {
		return false
	}
	pid, ok := g.lookupID(p)
	if !ok {
		return false
	}
	oid, ok := g.lookupID(o)
	if !ok {
		return false
	}
	cid, ok := g.lookupID(c)
	if !ok {
		return false
	}
	rec := quadRecord{id, pid, oid, cid}
	if _, ok := g.quads[rec]; !ok {
		return false
	}
	delete(g.quads, rec)
	return true
}

func (g *Graph) lookupID(t term.Term) (termID, bool) {
	id, ok := g.ids[string(term.Encode(t))]
	return id, ok
}

// Contains reports whether the quad is present.
func (g *Graph) Contains(s, p, o, c term.Term) bool {
	sid, ok := g.lookupID(s)
	if !ok {
		return false
	}
	pid, ok := g.lookupID(p)
	if !ok {
		return false
	}
	oid, ok := g.lookupID(o)
	if !ok {
		return false
	}
	cid, ok := g.lookupID(c)
	if !ok {
		return false
	}
	_, found := g.quads[quadRecord{sid, pid, oid, cid}]
	return found
}

// Len returns the number of quads in the graph.
func (g *Graph) Len() int { return len(g.quads) }

// Iter calls visit once per quad, in unspecified order. Iteration stops
// early if visit returns false.
func (g *Graph) Iter(visit func(Quad) bool) {
	for rec := range g.quads {
		q := Quad{g.termAt(rec.s), g.termAt(rec.p), g.termAt(rec.o), g.termAt(rec.c)}
		if !visit(q) {
			return
		}
	}
}

// Union returns a new Graph containing every quad in g or other.
func (g *Graph) Union(other *Graph) *Graph {
	out := New()
	g.Iter(func(q Quad) bool { out.Add(q.S, q.P, q.O, q.C); return true })
	other.Iter(func(q Quad) bool { out.Add(q.S, q.P, q.O, q.C); return true })
	return out
}

// Intersect returns a new Graph containing only the quads present in
// both g and other.
func (g *Graph) Intersect(other *Graph) *Graph {
	out := New()
	g.Iter(func(q Quad) bool {
		if other.Contains(q.S, q.P, q.O, q.C) {
			out.Add(q.S, q.P, q.O, q.C)
		}
		return true
	})
	return out
}

// Difference returns a new Graph containing the quads in g that are not
// in other.
func (g *Graph) Difference(other *Graph) *Graph {
	out := New()
	g.Iter(func(q Quad) bool {
		if !other.Contains(q.S, q.P, q.O, q.C) {
			out.Add(q.S, q.P, q.O, q.C)
		}
		return true
	})
	return out
}

// Describe returns a new Graph of every quad where node is the subject,
// and (if asObject) also every quad where node is the object. Matching
// quads keep their original context rather than being flattened into a
// single default graph.
func (g *Graph) Describe(node term.Term, asObject bool) *Graph {
	out := New()
	nodeEnc := string(term.Encode(node))
	g.Iter(func(q Quad) bool {
		if string(term.Encode(q.S)) == nodeEnc || (asObject && string(term.Encode(q.O)) == nodeEnc) {
			out.Add(q.S, q.P, q.O, q.C)
		}
		return true
	})
	return out
}
