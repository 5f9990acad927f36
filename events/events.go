// Package events defines the storage engine's change-notification shape,
// published by store.Store's mutating operations once the transaction
// that performed them commits, and handed to an optional Sink supplied
// at Engine.Open time.
package events

import "github.com/lakesuperior/lsup-store/term"

// Quad is the change-event representation of a stored quad: resolved
// terms, not keys, since a Sink lives outside the transaction that
// produced the event and should not need a *txn.Txn to interpret it.
type Quad struct {
	S, P, O, C term.Term
}

// Delta describes the quads added and removed by a single Store
// operation, grouped by context. It is passed to Sink.Publish by value
// and is not retained by the engine afterwards — a Sink that needs the
// data beyond the call must copy it.
type Delta struct {
	Added   map[term.Key][]Quad
	Removed map[term.Key][]Quad
}

// Empty reports whether the delta carries no changes at all.
func (d Delta) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0
}

// Sink receives deltas produced by committed transactions. Publish must
// not block the caller for long; a Sink that needs to do slow work
// (network I/O, disk) should hand the delta off to its own buffered
// queue instead of blocking inline.
type Sink interface {
	Publish(Delta)
}

// NopSink discards every delta. It is the default Sink when Engine is
// opened without one.
type NopSink struct{}

// Publish implements Sink.
func (NopSink) Publish(Delta) {}
