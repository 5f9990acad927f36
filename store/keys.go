package store

import (
	"encoding/binary"

	"github.com/lakesuperior/lsup-store/term"
)

// DoubleKey is the big-endian concatenation of two term keys: the
// bound prefix of the two-bound permutation indices (po:s, so:p, sp:o).
type DoubleKey [16]byte

// TripleKey is the big-endian concatenation of three term keys: the full
// bucket key of each of the six permutation indices, and the (s,p,o)
// prefix of a spo:c key.
type TripleKey [24]byte

// QuadKey is the big-endian concatenation of four term keys: the bucket
// key of the primary spo:c index (s,p,o,c) and of the context-enumeration
// index c:spo (c,s,p,o).
type QuadKey [32]byte

func putKey(b []byte, k term.Key) {
	binary.BigEndian.PutUint64(b, uint64(k))
}

func getKey(b []byte) term.Key {
	return term.Key(binary.BigEndian.Uint64(b))
}

func keyBytes(k term.Key) []byte {
	b := make([]byte, 8)
	putKey(b, k)
	return b
}

func newDoubleKey(a, b term.Key) DoubleKey {
	var dk DoubleKey
	putKey(dk[:8], a)
	putKey(dk[8:], b)
	return dk
}

func (dk DoubleKey) split() (a, b term.Key) {
	return getKey(dk[:8]), getKey(dk[8:])
}

func newTripleKey(a, b, c term.Key) TripleKey {
	var tk TripleKey
	putKey(tk[:8], a)
	putKey(tk[8:16], b)
	putKey(tk[16:], c)
	return tk
}

func (tk TripleKey) split() (a, b, c term.Key) {
	return getKey(tk[:8]), getKey(tk[8:16]), getKey(tk[16:])
}

func newQuadKey(s, p, o, c term.Key) QuadKey {
	var qk QuadKey
	putKey(qk[:8], s)
	putKey(qk[8:16], p)
	putKey(qk[16:24], o)
	putKey(qk[24:], c)
	return qk
}

// Quad is an ordered (subject, predicate, object, context) tuple of term
// keys, the unit every persistent index operates on internally.
type Quad struct {
	S, P, O, C term.Key
}

func (q Quad) key() QuadKey { return newQuadKey(q.S, q.P, q.O, q.C) }
