package store

import (
	"github.com/lakesuperior/lsup-store/lsuperrors"
	"github.com/lakesuperior/lsup-store/term"
	"github.com/lakesuperior/lsup-store/txn"
)

// Pattern is a quad pattern: each field is either a bound term key or a
// wildcard (nil). Lookup selects whichever index can answer it with the
// fewest candidate rows to post-filter.
type Pattern struct {
	S, P, O, C *term.Key
}

func bound(k *term.Key) (term.Key, bool) {
	if k == nil {
		return 0, false
	}
	return *k, true
}

// chooseIndex implements the index-selection tie-break rule: among the permutation
// indices whose bound positions are all satisfied by pat, pick the one
// with the longest bound-prefix; if several tie, pick the
// lexicographically first index name. perms is already declared in that
// order, so a simple linear scan keeping the first max is sufficient.
func chooseIndex(sBound, pBound, oBound bool) (permIndex, bool) {
	best := permIndex{}
	found := false
	for _, idx := range perms {
		satisfied := true
		for _, v := range idx.boundVars {
			switch v {
			case 's':
				satisfied = satisfied && sBound
			case 'p':
				satisfied = satisfied && pBound
			case 'o':
				satisfied = satisfied && oBound
			}
		}
		if !satisfied {
			continue
		}
		if !found || idx.boundBytes > best.boundBytes {
			best = idx
			found = true
		}
	}
	return best, found
}

// Lookup enumerates every quad matching pat, calling visit for each. It
// selects the narrowest available index per chooseIndex, reconstructing
// full quads and post-filtering on any position that index doesn't key
// on (in particular, context is always post-filtered unless the chosen
// strategy is the c:spo context-enumeration scan).
func Lookup(tx *txn.Txn, pat Pattern, visit func(s, p, o, c term.Key) error) error {
	s, sBound := bound(pat.S)
	p, pBound := bound(pat.P)
	o, oBound := bound(pat.O)
	c, cBound := bound(pat.C)

	emit := func(s, p, o, candidateC term.Key) error {
		if cBound && candidateC != c {
			return nil
		}
		return visit(s, p, o, candidateC)
	}

	switch {
	case sBound && pBound && oBound:
		prefix := tripleBoundPrefix(s, p, o)
		return tx.ForEachPrefix(bucketSPOtoC, prefix, func(k, _ []byte) error {
			_, _, _, kc := splitQuadKey(k)
			return emit(s, p, o, kc)
		})

	case sBound || pBound || oBound:
		idx, ok := chooseIndex(sBound, pBound, oBound)
		if !ok {
			return lsuperrors.ErrInvalidState
		}
		prefix := idx.keyOf(s, p, o)[:idx.boundBytes]
		return tx.ForEachPrefix(idx.bucket, prefix, func(k, _ []byte) error {
			a, b, c := splitTripleKey(k)
			ts, tp, to := idx.split(a, b, c)
			return tx.ForEachPrefix(bucketSPOtoC, tripleBoundPrefix(ts, tp, to), func(k2, _ []byte) error {
				_, _, _, kc := splitQuadKey(k2)
				return emit(ts, tp, to, kc)
			})
		})

	case cBound:
		prefix := keyBytes(c)
		return tx.ForEachPrefix(bucketCtoSPO, prefix, func(k, _ []byte) error {
			_, ks, kp, ko := splitQuadKey(k)
			return visit(ks, kp, ko, c)
		})
	}

	// Full wildcard: scan the primary index.
	return tx.ForEachPrefix(bucketSPOtoC, nil, func(k, _ []byte) error {
		ks, kp, ko, kc := splitQuadKey(k)
		return emit(ks, kp, ko, kc)
	})
}

func splitTripleKey(b []byte) (a, b2, c term.Key) {
	var tk TripleKey
	copy(tk[:], b)
	return tk.split()
}

func splitQuadKey(b []byte) (a, b2, c, d term.Key) {
	a = getKey(b[0:8])
	b2 = getKey(b[8:16])
	c = getKey(b[16:24])
	d = getKey(b[24:32])
	return
}
