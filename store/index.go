package store

import (
	"github.com/lakesuperior/lsup-store/lsuperrors"
	"github.com/lakesuperior/lsup-store/term"
	"github.com/lakesuperior/lsup-store/txn"
)

// spoCKey builds the primary index's composite key: Key(s)++Key(p)++Key(o)++Key(c).
func spoCKey(s, p, o, c term.Key) []byte {
	qk := newQuadKey(s, p, o, c)
	return qk[:]
}

// cSPOKey builds the context-enumeration index's composite key:
// Key(c)++Key(s)++Key(p)++Key(o).
func cSPOKey(c, s, p, o term.Key) []byte {
	qk := newQuadKey(c, s, p, o)
	return qk[:]
}

// tripleBoundPrefix is the 24-byte s,p,o prefix of spo:c, used to scan
// every context a given triple is stored under.
func tripleBoundPrefix(s, p, o term.Key) []byte {
	tk := newTripleKey(s, p, o)
	return tk[:]
}

// hasTriple reports whether (s,p,o) exists in spo:c under any context.
func hasTriple(tx *txn.Txn, s, p, o term.Key) (bool, error) {
	found := false
	err := tx.ForEachPrefix(bucketSPOtoC, tripleBoundPrefix(s, p, o), func(_, _ []byte) error {
		found = true
		return errStopIteration
	})
	if err != nil && err != errStopIteration {
		return false, err
	}
	return found, nil
}

// storeQuad adds (s,p,o,c) to the primary index, all six permutation
// indices, and the context-enumeration index. It is idempotent: storing
// an already-present quad returns lsuperrors.ErrAlreadyPresent without
// otherwise changing anything in the transaction.
func storeQuad(tx *txn.Txn, s, p, o, c term.Key) error {
	primaryKey := spoCKey(s, p, o, c)
	if _, ok := tx.Get(bucketSPOtoC, primaryKey); ok {
		return lsuperrors.ErrAlreadyPresent
	}

	wasPresent, err := hasTriple(tx, s, p, o)
	if err != nil {
		return err
	}

	tx.Put(bucketSPOtoC, primaryKey, marker)
	tx.Put(bucketCtoSPO, cSPOKey(c, s, p, o), marker)

	if !wasPresent {
		for _, idx := range perms {
			tx.Put(idx.bucket, idx.keyOf(s, p, o), marker)
		}
	}
	return nil
}

// removeQuad removes (s,p,o,c) from the primary and context-enumeration
// indices. If that was the triple's last remaining context, the six
// permutation-index entries are removed too. Returns lsuperrors.ErrNotFound
// if the quad was not present.
func removeQuad(tx *txn.Txn, s, p, o, c term.Key) error {
	primaryKey := spoCKey(s, p, o, c)
	if _, ok := tx.Get(bucketSPOtoC, primaryKey); !ok {
		return lsuperrors.ErrNotFound
	}
	tx.Delete(bucketSPOtoC, primaryKey)
	tx.Delete(bucketCtoSPO, cSPOKey(c, s, p, o))

	stillPresent, err := hasTriple(tx, s, p, o)
	if err != nil {
		return err
	}
	if !stillPresent {
		for _, idx := range perms {
			tx.Delete(idx.bucket, idx.keyOf(s, p, o))
		}
	}
	return nil
}

// errStopIteration is an internal sentinel used to short-circuit a
// ForEachPrefix scan once the caller has seen enough (e.g. a single hit
// is sufficient to answer a membership question). It never escapes this
// package's exported functions.
var errStopIteration = &stopIteration{}

type stopIteration struct{}

func (*stopIteration) Error() string { return "lsup: internal iteration stop" }
