package store

import (
	"fmt"
	"time"

	"github.com/lakesuperior/lsup-store/events"
	"github.com/lakesuperior/lsup-store/lsuperrors"
	"github.com/lakesuperior/lsup-store/metrics"
	"github.com/lakesuperior/lsup-store/term"
	"github.com/lakesuperior/lsup-store/txn"
)

// Store is the public triple-store API: term/quad boundary translation
// over the index set, from triples in the default graph to quads across
// arbitrary contexts. Every method takes the caller's open transaction
// rather than owning one itself, so a caller can batch several calls
// (AddMany, a pattern-based Remove) inside one commit/abort scope.
type Store struct {
	seed term.Seed
	sink events.Sink
	mc   *metrics.Collector
}

// NewStore builds a Store bound to the given term-hashing seed. The seed
// must match the one the backing Engine was bootstrapped with. sink
// receives a Delta of every quad added or removed through this Store once
// the transaction that performed the change commits; a nil sink discards
// deltas.
func NewStore(seed term.Seed, sink events.Sink) *Store {
	if sink == nil {
		sink = events.NopSink{}
	}
	return &Store{seed: seed, sink: sink}
}

// SetMetrics attaches a metrics.Collector that Lookup reports its
// index-selection latency to. Returns st for chaining at construction
// time.
func (st *Store) SetMetrics(mc *metrics.Collector) *Store {
	st.mc = mc
	return st
}

// Triple is a resolved (subject, predicate, object) with no context,
// returned by Describe-style callers that already know their context.
type Triple struct {
	S, P, O term.Term
}

// ResolvedQuad is a fully resolved (subject, predicate, object, context).
type ResolvedQuad struct {
	S, P, O, C term.Term
}

// Add interns s, p, o, c if necessary and stores the quad. It returns
// lsuperrors.ErrAlreadyPresent (without aborting tx) if the quad was
// already stored.
func (st *Store) Add(tx *txn.Txn, s, p, o, c term.Term) error {
	sk, err := intern(tx, st.seed, s)
	if err != nil {
		return err
	}
	pk, err := intern(tx, st.seed, p)
	if err != nil {
		return err
	}
	ok, err := intern(tx, st.seed, o)
	if err != nil {
		return err
	}
	ck, err := intern(tx, st.seed, c)
	if err != nil {
		return err
	}
	if err := storeQuad(tx, sk, pk, ok, ck); err != nil {
		return err
	}
	tx.AfterCommit(func() {
		st.sink.Publish(events.Delta{
			Added: map[term.Key][]events.Quad{ck: {{S: s, P: p, O: o, C: c}}},
		})
	})
	return nil
}

// AddMany adds every quad in quads, continuing past
// lsuperrors.ErrAlreadyPresent for individual quads but stopping and
// returning any other error immediately.
func (st *Store) AddMany(tx *txn.Txn, quads []ResolvedQuad) (added int, err error) {
	for _, q := range quads {
		if addErr := st.Add(tx, q.S, q.P, q.O, q.C); addErr != nil {
			if addErr == lsuperrors.ErrAlreadyPresent {
				continue
			}
			return added, addErr
		}
		added++
	}
	return added, nil
}

// Remove removes every quad matching pat. s, p, o, c are term.Term values
// where non-nil, translated to keys via lookup (not intern: removing a
// term that was never stored is simply a no-op, not an error).
func (st *Store) Remove(tx *txn.Txn, pat TermPattern) (removed int, err error) {
	kp, ok, err := st.resolvePattern(tx, pat)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}

	var toRemove []quadRow
	scanErr := Lookup(tx, kp, func(s, p, o, c term.Key) error {
		toRemove = append(toRemove, quadRow{s: s, p: p, o: o, c: c})
		return nil
	})
	if scanErr != nil {
		return 0, scanErr
	}

	removedByCtx := map[term.Key][]events.Quad{}
	for _, q := range toRemove {
		if err := removeQuad(tx, q.s, q.p, q.o, q.c); err != nil {
			return removed, err
		}
		quad, err := st.resolveQuad(tx, q)
		if err != nil {
			return removed, err
		}
		removedByCtx[q.c] = append(removedByCtx[q.c], quad)
		removed++
	}
	if removed > 0 {
		tx.AfterCommit(func() {
			st.sink.Publish(events.Delta{Removed: removedByCtx})
		})
	}
	return removed, nil
}

// resolveQuad translates a quadRow's dictionary keys back to terms, for
// building the events.Quad a Remove publishes.
func (st *Store) resolveQuad(tx *txn.Txn, q quadRow) (events.Quad, error) {
	s, err := resolve(tx, q.s)
	if err != nil {
		return events.Quad{}, err
	}
	p, err := resolve(tx, q.p)
	if err != nil {
		return events.Quad{}, err
	}
	o, err := resolve(tx, q.o)
	if err != nil {
		return events.Quad{}, err
	}
	c, err := resolve(tx, q.c)
	if err != nil {
		return events.Quad{}, err
	}
	return events.Quad{S: s, P: p, O: o, C: c}, nil
}

// Resolve translates a dictionary key back to its term. Exposed so callers
// iterating a Cursor (which only yields keys) can recover terms without
// reaching into the package's unexported dictionary helpers.
func (st *Store) Resolve(tx *txn.Txn, k term.Key) (term.Term, error) {
	return resolve(tx, k)
}

// Contains reports whether the fully bound quad (s,p,o,c) is stored.
func (st *Store) Contains(tx *txn.Txn, s, p, o, c term.Term) (bool, error) {
	sk, err := lookup(tx, s)
	if err == lsuperrors.ErrNotFound {
		return false, nil
	} else if err != nil {
		return false, err
	}
	pk, err := lookup(tx, p)
	if err == lsuperrors.ErrNotFound {
		return false, nil
	} else if err != nil {
		return false, err
	}
	ook, err := lookup(tx, o)
	if err == lsuperrors.ErrNotFound {
		return false, nil
	} else if err != nil {
		return false, err
	}
	ck, err := lookup(tx, c)
	if err == lsuperrors.ErrNotFound {
		return false, nil
	} else if err != nil {
		return false, err
	}
	_, found := tx.Get(bucketSPOtoC, spoCKey(sk, pk, ook, ck))
	return found, nil
}

// Len returns the number of stored quads, counted by scanning an index.
// O(n): there is no maintained running total. If ctx is nil, every quad
// in the store is counted by scanning the primary index; otherwise only
// quads in that context are counted, by scanning the context-enumeration
// index under ctx's key prefix. A ctx that was never interned counts as
// empty rather than an error.
func (st *Store) Len(tx *txn.Txn, ctx term.Term) (int, error) {
	if ctx == nil {
		n := 0
		err := tx.ForEachPrefix(bucketSPOtoC, nil, func(_, _ []byte) error {
			n++
			return nil
		})
		return n, err
	}

	ck, err := lookup(tx, ctx)
	if err == lsuperrors.ErrNotFound {
		return 0, nil
	} else if err != nil {
		return 0, err
	}

	n := 0
	err = tx.ForEachPrefix(bucketCtoSPO, keyBytes(ck), func(_, _ []byte) error {
		n++
		return nil
	})
	return n, err
}

// TermPattern is a quad pattern expressed in terms rather than keys —
// the public counterpart of Pattern, used at the Store API boundary.
type TermPattern struct {
	S, P, O, C term.Term
}

// Lookup opens a Cursor over every stored quad matching pat. The cursor
// is scoped to tx and must be closed (or exhausted) before tx ends.
func (st *Store) Lookup(tx *txn.Txn, pat TermPattern) (*Cursor, error) {
	var start time.Time
	if st.mc != nil {
		start = time.Now()
	}
	kp, ok, err := st.resolvePattern(tx, pat)
	if err != nil {
		return nil, err
	}
	if !ok {
		cur := newCursor(func(func(s, p, o, c term.Key) error) error { return nil })
		if st.mc != nil {
			st.mc.LookupDuration.Observe(time.Since(start).Seconds())
		}
		return cur, nil
	}
	cur := newCursor(func(visit func(s, p, o, c term.Key) error) error {
		return Lookup(tx, kp, visit)
	})
	if st.mc != nil {
		st.mc.LookupDuration.Observe(time.Since(start).Seconds())
	}
	return cur, nil
}

// resolvePattern translates a TermPattern's bound positions to key
// Pattern. ok is false (with no error) if any bound term has never been
// interned, since that makes the pattern trivially unsatisfiable.
func (st *Store) resolvePattern(tx *txn.Txn, pat TermPattern) (Pattern, bool, error) {
	var kp Pattern
	for _, kv := range []struct {
		t term.Term
		k **term.Key
	}{{pat.S, &kp.S}, {pat.P, &kp.P}, {pat.O, &kp.O}, {pat.C, &kp.C}} {
		if kv.t == nil {
			continue
		}
		k, err := lookup(tx, kv.t)
		if err == lsuperrors.ErrNotFound {
			return Pattern{}, false, nil
		} else if err != nil {
			return Pattern{}, false, err
		}
		kk := k
		*kv.k = &kk
	}
	return kp, true, nil
}

// Contexts returns every distinct context term with at least one stored
// quad, by scanning the keys of c:spo for distinct 8-byte prefixes.
func (st *Store) Contexts(tx *txn.Txn) ([]term.Term, error) {
	seen := map[term.Key]bool{}
	var out []term.Term
	err := tx.ForEachPrefix(bucketCtoSPO, nil, func(k, _ []byte) error {
		ck := getKey(k[:8])
		if seen[ck] {
			return nil
		}
		seen[ck] = true
		t, err := resolve(tx, ck)
		if err != nil {
			return err
		}
		out = append(out, t)
		return nil
	})
	return out, err
}

// AllTerms returns every term currently in the dictionary.
func (st *Store) AllTerms(tx *txn.Txn) ([]term.Term, error) {
	var out []term.Term
	err := tx.ForEachPrefix(bucketT2K, nil, func(enc, _ []byte) error {
		t, err := term.Decode(enc)
		if err != nil {
			return fmt.Errorf("%w: %v", lsuperrors.ErrDecode, err)
		}
		out = append(out, t)
		return nil
	})
	return out, err
}
