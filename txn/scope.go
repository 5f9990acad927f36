package txn

import "go.etcd.io/bbolt"

// scope is one level of a Txn's nested-write overlay: the set of pending
// puts and tombstoned deletes a single (possibly nested) write scope has
// accumulated, keyed by bucket name then by key.
type scope struct {
	puts    map[string]map[string][]byte
	deletes map[string]map[string]bool
	after   []func()
}

func newScope() *scope {
	return &scope{
		puts:    map[string]map[string][]byte{},
		deletes: map[string]map[string]bool{},
	}
}

// lookup reports whether this scope has a pending write for bucket/key.
// tomb is true if the pending write is a deletion.
func (s *scope) lookup(bucket, key string) (value []byte, tomb bool, found bool) {
	if dels := s.deletes[bucket]; dels != nil && dels[key] {
		return nil, true, true
	}
	if puts := s.puts[bucket]; puts != nil {
		if v, ok := puts[key]; ok {
			return v, false, true
		}
	}
	return nil, false, false
}

func (s *scope) put(bucket, key string, value []byte) {
	if s.puts[bucket] == nil {
		s.puts[bucket] = map[string][]byte{}
	}
	s.puts[bucket][key] = value
	if dels := s.deletes[bucket]; dels != nil {
		delete(dels, key)
	}
}

func (s *scope) del(bucket, key string) {
	if s.deletes[bucket] == nil {
		s.deletes[bucket] = map[string]bool{}
	}
	s.deletes[bucket][key] = true
	if puts := s.puts[bucket]; puts != nil {
		delete(puts, key)
	}
}

// mergeFrom folds a child scope's writes into s, as happens when a nested
// scope commits into its parent. The child's writes take precedence,
// since they happened after whatever s already held for the same key.
func (s *scope) mergeFrom(child *scope) {
	for bucket, dels := range child.deletes {
		for key := range dels {
			s.del(bucket, key)
		}
	}
	for bucket, puts := range child.puts {
		for key, v := range puts {
			s.put(bucket, key, v)
		}
	}
	s.after = append(s.after, child.after...)
}

// applyPrefix overlays this scope's pending writes for keys under prefix
// in bucket onto merged, which already holds the committed bbolt state
// (or a lower scope's overlay of it).
func (s *scope) applyPrefix(bucket string, prefix []byte, merged map[string][]byte) {
	p := string(prefix)
	if dels := s.deletes[bucket]; dels != nil {
		for k := range dels {
			if hasPrefix(k, p) {
				delete(merged, k)
			}
		}
	}
	if puts := s.puts[bucket]; puts != nil {
		for k, v := range puts {
			if hasPrefix(k, p) {
				merged[k] = v
			}
		}
	}
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

// flush writes every pending put and delete in s directly to the real
// bbolt transaction. Called exactly once, when the outermost scope of a
// writable Txn commits.
func (s *scope) flush(tx *bbolt.Tx) error {
	for bucket, dels := range s.deletes {
		bkt := tx.Bucket([]byte(bucket))
		if bkt == nil {
			continue
		}
		for key := range dels {
			if err := bkt.Delete([]byte(key)); err != nil {
				return err
			}
		}
	}
	for bucket, puts := range s.puts {
		bkt := tx.Bucket([]byte(bucket))
		if bkt == nil {
			continue
		}
		for key, v := range puts {
			if err := bkt.Put([]byte(key), v); err != nil {
				return err
			}
		}
	}
	return nil
}
