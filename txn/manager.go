package txn

import (
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/lakesuperior/lsup-store/lsuperrors"
	"github.com/lakesuperior/lsup-store/metrics"
)

// Manager is the storage engine's transaction manager: the single
// gateway through which callers acquire read or write transactions
// against an open bbolt environment. One Manager per open Engine.
type Manager struct {
	db       *bbolt.DB
	writeSem chan struct{}
	mc       *metrics.Collector
}

// NewManager wraps an already-open bbolt database. The caller retains
// ownership of db's lifecycle (Open/Close).
func NewManager(db *bbolt.DB) *Manager {
	sem := make(chan struct{}, 1)
	sem <- struct{}{}
	return &Manager{db: db, writeSem: sem}
}

// SetMetrics attaches a metrics.Collector that transaction lifecycle
// events (commit duration, aborts, non-blocking acquisition conflicts)
// are reported to. A nil Collector (the default) disables instrumentation.
func (m *Manager) SetMetrics(mc *metrics.Collector) {
	m.mc = mc
}

func (m *Manager) metrics() *metrics.Collector { return m.mc }

// BeginRead opens a read-only transaction. Any number of readers may run
// concurrently with each other and with the single active writer.
func (m *Manager) BeginRead() (*Txn, error) {
	btx, err := m.db.Begin(false)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", lsuperrors.ErrStore, err)
	}
	return newTxn(m, btx, false), nil
}

// BeginWrite opens a write transaction, blocking until any other active
// writer commits or aborts.
func (m *Manager) BeginWrite() (*Txn, error) {
	<-m.writeSem
	btx, err := m.db.Begin(true)
	if err != nil {
		m.writeSem <- struct{}{}
		return nil, fmt.Errorf("%w: %v", lsuperrors.ErrStore, err)
	}
	return newTxn(m, btx, true), nil
}

// BeginWriteNonBlocking opens a write transaction only if none is
// currently active, returning lsuperrors.ErrConflict immediately
// otherwise.
func (m *Manager) BeginWriteNonBlocking() (*Txn, error) {
	select {
	case <-m.writeSem:
	default:
		if m.mc != nil {
			m.mc.TxnConflictTotal.Inc()
		}
		return nil, lsuperrors.ErrConflict
	}
	btx, err := m.db.Begin(true)
	if err != nil {
		m.writeSem <- struct{}{}
		return nil, fmt.Errorf("%w: %v", lsuperrors.ErrStore, err)
	}
	return newTxn(m, btx, true), nil
}

// release returns the write-transaction slot a writable Txn held. It is a
// no-op for read-only transactions.
func (m *Manager) release(t *Txn) {
	if t.writable {
		m.writeSem <- struct{}{}
	}
}

// View runs fn in a read-only transaction, always releasing it
// afterwards regardless of fn's outcome.
func (m *Manager) View(fn func(*Txn) error) error {
	tx, err := m.BeginRead()
	if err != nil {
		return err
	}
	ferr := fn(tx)
	if cerr := tx.Abort(); cerr != nil && ferr == nil {
		return cerr
	}
	return ferr
}

// Update runs fn in a write transaction, committing if fn succeeds and
// aborting if it returns an error.
func (m *Manager) Update(fn func(*Txn) error) error {
	tx, err := m.BeginWrite()
	if err != nil {
		return err
	}
	if ferr := fn(tx); ferr != nil {
		tx.Abort()
		return ferr
	}
	return tx.Commit()
}

// UpdateNonBlocking is Update, but fails fast with lsuperrors.ErrConflict
// instead of blocking when another writer is already active.
func (m *Manager) UpdateNonBlocking(fn func(*Txn) error) error {
	tx, err := m.BeginWriteNonBlocking()
	if err != nil {
		return err
	}
	if ferr := fn(tx); ferr != nil {
		tx.Abort()
		return ferr
	}
	return tx.Commit()
}
