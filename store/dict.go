package store

import (
	"bytes"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/lakesuperior/lsup-store/lsuperrors"
	"github.com/lakesuperior/lsup-store/term"
	"github.com/lakesuperior/lsup-store/txn"
)

// dictLog records dictionary integrity failures with the offending key.
var dictLog = zerolog.New(os.Stderr).With().Timestamp().Str("component", "store").Logger()

// intern resolves t to its key, assigning and persisting a new one if t
// has never been seen before. Since keys are derived by hashing rather
// than assigned from a monotonic sequence, a collision is possible: it is
// detected by comparing the stored bytes for the candidate key against
// t's own encoding, and reported as lsuperrors.ErrCollision instead of
// silently aliasing the two terms.
func intern(tx *txn.Txn, seed term.Seed, t term.Term) (term.Key, error) {
	enc := term.Encode(t)
	if v, ok := tx.Get(bucketT2K, enc); ok {
		// Already interned, possibly under a reserved key (Bootstrap
		// stores the default graph at term.KeyDefaultGraph).
		return getKey(v), nil
	}
	k := term.HashKey(seed, enc)

	if existing, ok := tx.Get(bucketK2T, keyBytes(k)); ok {
		if bytes.Equal(existing, enc) {
			return k, nil
		}
		return 0, fmt.Errorf("%w: key %d already maps to a different term", lsuperrors.ErrCollision, k)
	}

	tx.Put(bucketK2T, keyBytes(k), enc)
	tx.Put(bucketT2K, enc, keyBytes(k))
	return k, nil
}

// lookup resolves t to its existing key without creating one, returning
// lsuperrors.ErrNotFound if t has never been interned.
func lookup(tx *txn.Txn, t term.Term) (term.Key, error) {
	enc := term.Encode(t)
	v, ok := tx.Get(bucketT2K, enc)
	if !ok {
		return 0, lsuperrors.ErrNotFound
	}
	return getKey(v), nil
}

// resolve translates a key back to its term, returning
// lsuperrors.ErrMissingTerm if the dictionary has no entry for it — an
// index-integrity violation, since every key stored in any permutation
// index must have a corresponding dictionary entry.
func resolve(tx *txn.Txn, k term.Key) (term.Term, error) {
	enc, ok := tx.Get(bucketK2T, keyBytes(k))
	if !ok {
		dictLog.Error().Hex("key", keyBytes(k)).Msg("term key missing from dictionary")
		return nil, fmt.Errorf("%w: key %d", lsuperrors.ErrMissingTerm, k)
	}
	t, err := term.Decode(enc)
	if err != nil {
		dictLog.Error().Hex("key", keyBytes(k)).Err(err).Msg("dictionary entry failed to decode")
		return nil, fmt.Errorf("%w: key %d: %v", lsuperrors.ErrDecode, k, err)
	}
	return t, nil
}
