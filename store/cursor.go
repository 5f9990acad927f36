package store

import "github.com/lakesuperior/lsup-store/term"

// Cursor is a transaction-scoped iterator over a pattern lookup's
// results, yielding one matching quad per Next call. A Cursor is bound
// to the Txn it was opened against and becomes invalid once that
// transaction ends; it is not restartable — once exhausted or closed, a
// new Cursor must be opened to scan again.
//
// The scan runs to completion before newCursor returns, since the
// underlying index walk (txn.Txn.ForEachPrefix) already buffers an
// entire bucket prefix into memory before visiting it; holding the
// background transaction open across Next calls from a second goroutine
// would let that goroutine and the caller's touch the same *txn.Txn
// concurrently, which txn.Txn does not allow. Next and Close therefore
// only ever run on the goroutine that opened the cursor.
type Cursor struct {
	rows   []quadRow
	pos    int
	err    error
	closed bool
}

type quadRow struct {
	s, p, o, c term.Key
}

// newCursor runs the scan pat via Lookup immediately, collecting every
// matching row before returning.
func newCursor(run func(visit func(s, p, o, c term.Key) error) error) *Cursor {
	cur := &Cursor{}
	cur.err = run(func(s, p, o, c term.Key) error {
		cur.rows = append(cur.rows, quadRow{s: s, p: p, o: o, c: c})
		return nil
	})
	return cur
}

// Next advances the cursor and reports the next matching quad. ok is
// false once the scan is exhausted, the cursor has been closed, or the
// scan failed; check Err after a false return to tell a failed scan from
// a clean end.
func (c *Cursor) Next() (s, p, o, ctx term.Key, ok bool) {
	if c.closed || c.err != nil || c.pos >= len(c.rows) {
		return 0, 0, 0, 0, false
	}
	row := c.rows[c.pos]
	c.pos++
	return row.s, row.p, row.o, row.c, true
}

// Err returns the error that stopped the scan, if any.
func (c *Cursor) Err() error { return c.err }

// Close stops the cursor. Safe to call more than once, and safe to call
// before the scan is exhausted.
func (c *Cursor) Close() {
	c.closed = true
}
