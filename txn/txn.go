// Package txn implements the storage engine's scoped read/write
// transaction construct, layered over go.etcd.io/bbolt's native
// single-writer/many-reader MVCC transactions.
//
// bbolt gives every transaction read/write isolation and commit atomicity
// for free. What it does not give is nested sub-transactions. Txn
// supplies nesting itself, as a stack of in-memory overlay scopes: writes
// accumulate in the top scope until a nested Commit merges it into its
// parent, or a nested Abort discards it; only the outermost Commit ever
// touches the real bbolt transaction.
package txn

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"go.etcd.io/bbolt"

	"github.com/lakesuperior/lsup-store/lsuperrors"
)

// Txn is a single logical transaction, possibly containing nested scopes.
// A Txn must not be used from more than one goroutine, and must not
// outlive the Manager it came from.
type Txn struct {
	mgr      *Manager
	bolt     *bbolt.Tx
	writable bool
	scopes   []*scope
	done     bool
}

func newTxn(mgr *Manager, bolt *bbolt.Tx, writable bool) *Txn {
	return &Txn{mgr: mgr, bolt: bolt, writable: writable, scopes: []*scope{newScope()}}
}

// Writable reports whether this transaction may mutate the store.
func (t *Txn) Writable() bool { return t.writable }

// Depth returns the current nesting depth; 0 at the outermost scope.
func (t *Txn) Depth() int { return len(t.scopes) - 1 }

// Nested runs fn inside a new nested write scope. If fn returns an error,
// only that scope's writes (and any AfterCommit callbacks it registered)
// are discarded; otherwise they are merged into the parent scope. Nested
// is a no-op wrapper around the same Txn value: fn is handed the same
// *Txn, now one level deeper.
func (t *Txn) Nested(fn func(*Txn) error) (err error) {
	if !t.writable {
		return fmt.Errorf("%w: nested scope opened on a read-only transaction", lsuperrors.ErrInvalidState)
	}
	if t.done {
		return fmt.Errorf("%w: transaction already closed", lsuperrors.ErrInvalidState)
	}
	t.scopes = append(t.scopes, newScope())
	defer func() {
		top := t.scopes[len(t.scopes)-1]
		t.scopes = t.scopes[:len(t.scopes)-1]
		if err == nil {
			t.scopes[len(t.scopes)-1].mergeFrom(top)
		}
	}()
	return fn(t)
}

// Commit flushes all accumulated writes to the underlying store and ends
// the transaction. It must be called at depth 0 (all nested scopes
// resolved). Read-only transactions may also call Commit; it behaves the
// same as Abort for them. On a successful writable commit, every
// callback registered with AfterCommit runs, in registration order.
func (t *Txn) Commit() error {
	if t.done {
		return fmt.Errorf("%w: transaction already closed", lsuperrors.ErrInvalidState)
	}
	if len(t.scopes) != 1 {
		return fmt.Errorf("%w: cannot commit with %d nested scope(s) still open", lsuperrors.ErrInvalidState, len(t.scopes)-1)
	}
	t.done = true
	defer t.mgr.release(t)

	if !t.writable {
		if err := t.bolt.Rollback(); err != nil {
			return fmt.Errorf("%w: %v", lsuperrors.ErrStore, err)
		}
		return nil
	}

	start := time.Now()
	if t.writable {
		if err := t.scopes[0].flush(t.bolt); err != nil {
			t.bolt.Rollback()
			return fmt.Errorf("%w: %v", lsuperrors.ErrStore, err)
		}
	}
	if err := t.bolt.Commit(); err != nil {
		return fmt.Errorf("%w: %v", lsuperrors.ErrStore, err)
	}
	if t.writable {
		if mc := t.mgr.metrics(); mc != nil {
			mc.CommitDuration.Observe(time.Since(start).Seconds())
		}
		for _, fn := range t.scopes[0].after {
			fn()
		}
	}
	return nil
}

// Abort discards every write performed in this transaction, at every
// scope depth, and ends the transaction. Any AfterCommit callbacks
// registered are discarded along with the writes; they never run.
func (t *Txn) Abort() error {
	if t.done {
		return nil
	}
	t.done = true
	defer t.mgr.release(t)
	if err := t.bolt.Rollback(); err != nil {
		return fmt.Errorf("%w: %v", lsuperrors.ErrStore, err)
	}
	if t.writable {
		if mc := t.mgr.metrics(); mc != nil {
			mc.AbortTotal.Inc()
		}
	}
	return nil
}

// AfterCommit registers fn to run once this transaction's outermost
// scope successfully commits. fn never runs if the transaction (or the
// scope it was registered in) aborts. Used by callers that need to take
// an action — such as publishing a change notification — only once a
// write is durable, not merely staged.
func (t *Txn) AfterCommit(fn func()) {
	top := t.scopes[len(t.scopes)-1]
	top.after = append(top.after, fn)
}

// --- bucket-level primitives, used by the store package ---

// Get returns the current value stored for key in bucket, whether
// committed or only pending in an open write scope.
func (t *Txn) Get(bucket, key []byte) ([]byte, bool) { return t.get(bucket, key) }

// Put stages a write of key to value in bucket, visible to later reads
// in this transaction but not flushed to the backing store until the
// outermost scope commits.
func (t *Txn) Put(bucket, key, value []byte) {
	if !t.writable {
		panic("txn: Put called on a read-only transaction")
	}
	t.put(bucket, key, value)
}

// Delete stages a tombstone for key in bucket.
func (t *Txn) Delete(bucket, key []byte) {
	if !t.writable {
		panic("txn: Delete called on a read-only transaction")
	}
	t.del(bucket, key)
}

// ForEachPrefix visits every key with the given prefix in bucket, in
// ascending lexicographic order, stopping early if walker returns an
// error (including a sentinel the caller uses purely to short-circuit).
func (t *Txn) ForEachPrefix(bucket, prefix []byte, walker func(k, v []byte) error) error {
	return t.forEachPrefix(bucket, prefix, walker)
}

func (t *Txn) realBucket(name []byte) *bbolt.Bucket {
	return t.bolt.Bucket(name)
}

// get returns the current value for key in bucket, checking nested
// scopes from innermost to outermost before falling through to bbolt.
func (t *Txn) get(bucket []byte, key []byte) ([]byte, bool) {
	bname := string(bucket)
	for i := len(t.scopes) - 1; i >= 0; i-- {
		if v, tomb, ok := t.scopes[i].lookup(bname, string(key)); ok {
			if tomb {
				return nil, false
			}
			return v, true
		}
	}
	bkt := t.realBucket(bucket)
	if bkt == nil {
		return nil, false
	}
	if v := bkt.Get(key); v != nil {
		return append([]byte(nil), v...), true
	}
	return nil, false
}

func (t *Txn) put(bucket, key, value []byte) {
	t.scopes[len(t.scopes)-1].put(string(bucket), string(key), append([]byte(nil), value...))
}

func (t *Txn) del(bucket, key []byte) {
	t.scopes[len(t.scopes)-1].del(string(bucket), string(key))
}

// forEachPrefix visits every key with the given prefix in bucket, in
// ascending lexicographic order, merging pending scope writes with the
// committed bbolt state.
func (t *Txn) forEachPrefix(bucket, prefix []byte, walker func(k, v []byte) error) error {
	bname := string(bucket)
	merged := map[string][]byte{}

	if bkt := t.realBucket(bucket); bkt != nil {
		c := bkt.Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			merged[string(k)] = append([]byte(nil), v...)
		}
	}
	for _, sc := range t.scopes {
		sc.applyPrefix(bname, prefix, merged)
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := walker([]byte(k), merged[k]); err != nil {
			return err
		}
	}
	return nil
}
