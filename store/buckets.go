package store

import "github.com/lakesuperior/lsup-store/term"

// Bucket names for the KV environment's sub-databases. Every dup-set
// bucket folds its member into the key (bound prefix ++ member) and
// stores a one-byte marker as the value, emulating bbolt's lack of
// native multi-value (dup-sort) buckets via prefix scanning instead.
var (
	// Term dictionary.
	bucketT2K = []byte("t2k") // encoded term bytes -> term key
	bucketK2T = []byte("k2t") // term key -> encoded term bytes

	// Primary index and the six permutation indices. A permutation
	// index's key is the full 24-byte rotated composite (spo:c's is the
	// 32-byte quad); bound-prefix length determines what a pattern lookup
	// can scan by.
	bucketSPOtoC = []byte("spo:c") // Key(s)++Key(p)++Key(o)++Key(c), 32B
	bucketStoPO  = []byte("s:po")  // Key(s)++Key(p)++Key(o), bound=8
	bucketPtoSO  = []byte("p:so")  // Key(p)++Key(s)++Key(o), bound=8
	bucketOtoSP  = []byte("o:sp")  // Key(o)++Key(s)++Key(p), bound=8
	bucketPOtoS  = []byte("po:s")  // Key(p)++Key(o)++Key(s), bound=16
	bucketSOtoP  = []byte("so:p")  // Key(s)++Key(o)++Key(p), bound=16
	bucketSPtoO  = []byte("sp:o")  // Key(s)++Key(p)++Key(o), bound=16

	// Context enumeration index.
	bucketCtoSPO = []byte("c:spo") // Key(c)++Key(s)++Key(p)++Key(o), 32B

	// Store-wide metadata (bootstrap marker, configured hash seed).
	bucketMeta = []byte("meta")
)

var allBuckets = [][]byte{
	bucketT2K, bucketK2T,
	bucketSPOtoC, bucketStoPO, bucketPtoSO, bucketOtoSP,
	bucketPOtoS, bucketSOtoP, bucketSPtoO,
	bucketCtoSPO,
	bucketMeta,
}

// permIndex describes one of the six permutation indices: how to build
// its full composite key from a bound triple, and how many leading bytes
// of that key are the "bound prefix" a partial pattern can scan by.
// Index names sort lexically in this slice's declared order, which is
// what the pattern tie-break rule (longest bound-prefix, then index name)
// uses to break ties between indices with an equal bound-prefix length.
type permIndex struct {
	name       string
	bucket     []byte
	boundVars  string // e.g. "s", "po" — which positions this index keys on, in key order
	boundBytes int    // length in bytes of the bound-prefix
	keyOf      func(s, p, o term.Key) []byte
	// split recovers (s,p,o) from the three term keys found, in this
	// index's own key order, when scanning its bucket directly.
	split func(a, b, c term.Key) (s, p, o term.Key)
}

// perms lists the six permutation indices in a fixed, lexicographic
// order by name.
var perms = []permIndex{
	{name: "o:sp", bucket: bucketOtoSP, boundVars: "o", boundBytes: 8,
		keyOf: func(s, p, o term.Key) []byte { tk := newTripleKey(o, s, p); return tk[:] },
		split: func(o, s, p term.Key) (term.Key, term.Key, term.Key) { return s, p, o },
	},
	{name: "p:so", bucket: bucketPtoSO, boundVars: "p", boundBytes: 8,
		keyOf: func(s, p, o term.Key) []byte { tk := newTripleKey(p, s, o); return tk[:] },
		split: func(p, s, o term.Key) (term.Key, term.Key, term.Key) { return s, p, o },
	},
	{name: "po:s", bucket: bucketPOtoS, boundVars: "po", boundBytes: 16,
		keyOf: func(s, p, o term.Key) []byte { tk := newTripleKey(p, o, s); return tk[:] },
		split: func(p, o, s term.Key) (term.Key, term.Key, term.Key) { return s, p, o },
	},
	{name: "s:po", bucket: bucketStoPO, boundVars: "s", boundBytes: 8,
		keyOf: func(s, p, o term.Key) []byte { tk := newTripleKey(s, p, o); return tk[:] },
		split: func(s, p, o term.Key) (term.Key, term.Key, term.Key) { return s, p, o },
	},
	{name: "so:p", bucket: bucketSOtoP, boundVars: "so", boundBytes: 16,
		keyOf: func(s, p, o term.Key) []byte { tk := newTripleKey(s, o, p); return tk[:] },
		split: func(s, o, p term.Key) (term.Key, term.Key, term.Key) { return s, p, o },
	},
	{name: "sp:o", bucket: bucketSPtoO, boundVars: "sp", boundBytes: 16,
		keyOf: func(s, p, o term.Key) []byte { tk := newTripleKey(s, p, o); return tk[:] },
		split: func(s, p, o term.Key) (term.Key, term.Key, term.Key) { return s, p, o },
	},
}

// marker is the dup-set membership value stored under every composite
// key; its content is unused, only its presence.
var marker = []byte{1}
