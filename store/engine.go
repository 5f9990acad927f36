package store

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"go.etcd.io/bbolt"

	"github.com/lakesuperior/lsup-store/config"
	"github.com/lakesuperior/lsup-store/events"
	"github.com/lakesuperior/lsup-store/lsuperrors"
	"github.com/lakesuperior/lsup-store/metrics"
	"github.com/lakesuperior/lsup-store/term"
	"github.com/lakesuperior/lsup-store/txn"
)

// metaSeedKey is the meta bucket key under which the configured hash
// seed is stamped at bootstrap time, so a later Open with a mismatched
// seed is rejected rather than silently producing undecodable terms.
var metaSeedKey = []byte("hash_seed")

// Engine owns the open bbolt environment, the transaction manager built
// on it, and the engine-wide hash seed. It is the unit of lifecycle
// (Open/Close) for the storage engine.
type Engine struct {
	db   *bbolt.DB
	mgr  *txn.Manager
	seed term.Seed
	sink events.Sink
	mc   *metrics.Collector
	log  zerolog.Logger
}

// Open opens (creating if necessary) the bbolt file at cfg.StorePath and
// wraps it in an Engine. It does not bootstrap the store; call Bootstrap
// separately on a fresh file. If the file is already bootstrapped, Open
// verifies cfg.HashSeed matches the seed it was bootstrapped with.
func Open(cfg config.Config, sink events.Sink) (*Engine, error) {
	log := zerolog.New(os.Stderr).With().Timestamp().Str("component", "store").Logger()

	db, err := bbolt.Open(cfg.StorePath, 0600, &bbolt.Options{
		Timeout:         time.Second,
		NoSync:          cfg.NoSync,
		InitialMmapSize: int(cfg.MapSize),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %v", lsuperrors.ErrStore, cfg.StorePath, err)
	}

	if sink == nil {
		sink = events.NopSink{}
	}
	e := &Engine{db: db, mgr: txn.NewManager(db), seed: cfg.HashSeed, sink: sink, log: log}

	bootstrapped, existingSeed, err := e.readMetaSeed()
	if err != nil {
		db.Close()
		return nil, err
	}
	if bootstrapped && existingSeed != cfg.HashSeed {
		db.Close()
		return nil, fmt.Errorf("%w: configured hash seed does not match the seed this store was bootstrapped with", lsuperrors.ErrInvalidState)
	}

	log.Info().Str("path", cfg.StorePath).Bool("bootstrapped", bootstrapped).Msg("store opened")
	return e, nil
}

// Close releases the underlying bbolt file.
func (e *Engine) Close() error {
	return e.db.Close()
}

// BeginRead opens a read transaction.
func (e *Engine) BeginRead() (*txn.Txn, error) { return e.mgr.BeginRead() }

// BeginWrite opens a write transaction, blocking for any other active
// writer.
func (e *Engine) BeginWrite() (*txn.Txn, error) { return e.mgr.BeginWrite() }

// BeginWriteNonBlocking opens a write transaction or fails immediately
// with lsuperrors.ErrConflict.
func (e *Engine) BeginWriteNonBlocking() (*txn.Txn, error) { return e.mgr.BeginWriteNonBlocking() }

// Seed returns the engine's term-hashing seed.
func (e *Engine) Seed() term.Seed { return e.seed }

// SetMetrics attaches a metrics.Collector to the engine's transaction
// manager and to every Store this engine constructs afterward via
// NewStore. Call it once, after Open, before serving traffic; a nil
// Collector (the default) disables instrumentation.
func (e *Engine) SetMetrics(mc *metrics.Collector) {
	e.mc = mc
	e.mgr.SetMetrics(mc)
}

// NewStore builds a Store bound to this engine's hash seed, event sink,
// and metrics collector (if any).
func (e *Engine) NewStore() *Store {
	return NewStore(e.seed, e.sink).SetMetrics(e.mc)
}

// readMetaSeed reports whether the store has been bootstrapped, and if
// so, what seed it was bootstrapped with.
func (e *Engine) readMetaSeed() (bootstrapped bool, seed term.Seed, err error) {
	err = e.db.View(func(tx *bbolt.Tx) error {
		bkt := tx.Bucket(bucketMeta)
		if bkt == nil {
			return nil
		}
		v := bkt.Get(metaSeedKey)
		if v == nil || len(v) != len(seed) {
			return nil
		}
		copy(seed[:], v)
		bootstrapped = true
		return nil
	})
	if err != nil {
		err = fmt.Errorf("%w: %v", lsuperrors.ErrStore, err)
	}
	return bootstrapped, seed, err
}

// Bootstrap creates every bucket in allBuckets, stamps the engine's hash
// seed into the meta bucket, and seeds the default-graph context term at
// term.KeyDefaultGraph. Bootstrap fails with lsuperrors.ErrAlreadyInit
// against an already-bootstrapped store unless force is true.
func Bootstrap(e *Engine, force bool) error {
	bootstrapped, _, err := e.readMetaSeed()
	if err != nil {
		return err
	}
	if bootstrapped && !force {
		return lsuperrors.ErrAlreadyInit
	}

	return e.db.Update(func(tx *bbolt.Tx) error {
		for _, b := range allBuckets {
			if force {
				_ = tx.DeleteBucket(b) // ignore "bucket not found"; fresh create follows
			}
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("%w: creating bucket %s: %v", lsuperrors.ErrStore, b, err)
			}
		}
		meta := tx.Bucket(bucketMeta)
		if err := meta.Put(metaSeedKey, e.seed[:]); err != nil {
			return fmt.Errorf("%w: %v", lsuperrors.ErrStore, err)
		}
		k2t := tx.Bucket(bucketK2T)
		t2k := tx.Bucket(bucketT2K)
		defaultGraph := term.IRI("")
		enc := term.Encode(defaultGraph)
		kb := keyBytes(term.KeyDefaultGraph)
		if err := k2t.Put(kb, enc); err != nil {
			return fmt.Errorf("%w: %v", lsuperrors.ErrStore, err)
		}
		if err := t2k.Put(enc, kb); err != nil {
			return fmt.Errorf("%w: %v", lsuperrors.ErrStore, err)
		}
		return nil
	})
}

// Rebuild re-derives the six permutation indices and the context-
// enumeration index from the primary spo:c index, discarding and
// recreating them first. Used for recovery after suspected index
// corruption, or after a representation change.
func Rebuild(e *Engine) error {
	return e.db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{
			bucketStoPO, bucketPtoSO, bucketOtoSP,
			bucketPOtoS, bucketSOtoP, bucketSPtoO,
			bucketCtoSPO,
		} {
			_ = tx.DeleteBucket(b)
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("%w: recreating bucket %s: %v", lsuperrors.ErrStore, b, err)
			}
		}

		primary := tx.Bucket(bucketSPOtoC)
		if primary == nil {
			return fmt.Errorf("%w: spo:c bucket missing, cannot rebuild", lsuperrors.ErrInvalidState)
		}
		seen := map[TripleKey]bool{}
		c := primary.Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			if len(k) != 32 {
				continue
			}
			s := getKey(k[0:8])
			p := getKey(k[8:16])
			o := getKey(k[16:24])
			ctx := getKey(k[24:32])

			ctoSPO := tx.Bucket(bucketCtoSPO)
			if err := ctoSPO.Put(cSPOKey(ctx, s, p, o), marker); err != nil {
				return fmt.Errorf("%w: %v", lsuperrors.ErrStore, err)
			}

			tk := newTripleKey(s, p, o)
			if seen[tk] {
				continue
			}
			seen[tk] = true
			for _, idx := range perms {
				bkt := tx.Bucket(idx.bucket)
				if err := bkt.Put(idx.keyOf(s, p, o), marker); err != nil {
					return fmt.Errorf("%w: %v", lsuperrors.ErrStore, err)
				}
			}
		}
		return nil
	})
}

// Stats reports summary counts for operational visibility (lsup-admin's
// `stats` subcommand).
type Stats struct {
	Quads int
	Terms int
}

// Stats computes current store-wide counts by scanning the primary index
// and the term dictionary.
func (e *Engine) Stats() (Stats, error) {
	var st Stats
	tx, err := e.BeginRead()
	if err != nil {
		return st, err
	}
	defer tx.Abort()

	if err := tx.ForEachPrefix(bucketSPOtoC, nil, func(_, _ []byte) error {
		st.Quads++
		return nil
	}); err != nil {
		return st, err
	}
	if err := tx.ForEachPrefix(bucketT2K, nil, func(_, _ []byte) error {
		st.Terms++
		return nil
	}); err != nil {
		return st, err
	}
	if e.mc != nil {
		e.mc.QuadsTotal.Set(float64(st.Quads))
	}
	return st, nil
}
