// Package lsuperrors defines the error taxonomy the storage engine
// reports to its callers. Every error the store and txn packages return
// is, or wraps, one of these sentinels, so callers can branch on them
// with errors.Is.
package lsuperrors

import "errors"

var (
	// ErrStore signals an underlying KV backend failure: I/O, a full
	// map, or detected corruption. Fatal to the enclosing transaction;
	// the caller should abort and may retry against a larger map.
	ErrStore = errors.New("lsup: store error")

	// ErrDecode signals malformed term bytes read back from storage.
	// It means either the on-disk data is corrupt or the reader's
	// term-hash seed does not match the one the store was bootstrapped
	// with. Never recovered internally.
	ErrDecode = errors.New("lsup: decode error")

	// ErrCollision signals that two distinct canonical term encodings
	// hashed to the same key. The engine never silently merges the two
	// terms; the write that triggered the collision fails.
	ErrCollision = errors.New("lsup: hash collision")

	// ErrMissingTerm signals that an index entry references a term key
	// with no corresponding entry in the term dictionary. This is
	// always an integrity-invariant violation, never an expected
	// runtime condition.
	ErrMissingTerm = errors.New("lsup: missing term")

	// ErrAlreadyPresent is returned by Add when the quad is already
	// stored. It is informational: it never aborts the transaction.
	ErrAlreadyPresent = errors.New("lsup: already present")

	// ErrNotFound is returned when a pattern lookup yields no results
	// where the caller expected exactly one.
	ErrNotFound = errors.New("lsup: not found")

	// ErrConflict is returned by a non-blocking write-transaction
	// acquisition when another writer is already active.
	ErrConflict = errors.New("lsup: write conflict")

	// ErrInvalidState is returned for an operation attempted in a state
	// that does not allow it: a transaction already committed or
	// aborted, a commit with nested scopes still open, or an Open whose
	// configured seed differs from the store's. A closed environment
	// surfaces as ErrStore from the backend, and a closed or exhausted
	// Cursor reports ok=false from Next rather than an error.
	ErrInvalidState = errors.New("lsup: invalid state")

	// ErrAlreadyInit is returned by Bootstrap against a populated store
	// when force was not requested.
	ErrAlreadyInit = errors.New("lsup: store already initialized")
)

// ExitCode maps an engine error to the lsup-admin process exit code
// convention: 0 ok, 1 invalid args, 2 store inconsistent, 3 I/O.
// Unrecognized errors map to 3, the most conservative (I/O/unknown)
// classification.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrDecode), errors.Is(err, ErrMissingTerm), errors.Is(err, ErrCollision):
		return 2
	case errors.Is(err, ErrAlreadyInit), errors.Is(err, ErrInvalidState):
		return 1
	default:
		return 3
	}
}
