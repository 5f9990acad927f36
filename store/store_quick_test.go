package store

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"reflect"
	"sort"
	"strings"
	"testing"
	"testing/quick"
	"time"

	"github.com/lakesuperior/lsup-store/term"
	"github.com/lakesuperior/lsup-store/txn"
)

// These quick checks default to 5 iterations and a random seed. Override
// from the command line:
//
//   -quick.count     The number of iterations to perform.
//   -quick.seed      The seed to use for randomizing.
//   -quick.maxnodes  The maximum number of quads generated per iteration.

var (
	qcount, qseed, qmaxnodes int
	rnd                      *rand.Rand
)

func init() {
	flag.IntVar(&qcount, "quick.count", 5, "")
	flag.IntVar(&qseed, "quick.seed", int(time.Now().UnixNano())%100000, "")
	flag.IntVar(&qmaxnodes, "quick.maxnodes", 8, "")
	if !flag.Parsed() {
		flag.Parse()
	}
	fmt.Fprintln(os.Stderr, "random seed:", qseed)
	rnd = rand.New(rand.NewSource(int64(qseed)))
}

func qconfig() *quick.Config {
	return &quick.Config{
		MaxCount: qcount,
		Rand:     rand.New(rand.NewSource(int64(qseed))),
	}
}

// quadKey is a canonical string form of a quad, used to dedupe generated
// fixtures and to compare two resolved quad sets for equality.
func quadKey(q ResolvedQuad) string {
	return q.S.String() + "\x00" + q.P.String() + "\x00" + q.O.String() + "\x00" + q.C.String()
}

// quadSet is a generated batch of candidate quads, implementing
// quick.Generator.
type quadSet []ResolvedQuad

// Generate produces a random set of quads over a small, overlapping pool
// of subjects/predicates/objects/contexts: overlap, not pairwise
// distinctness, is what stresses index sharing.
func (quadSet) Generate(rnd *rand.Rand, size int) reflect.Value {
	const base = "http://quick.test/"

	n := rnd.Intn(qmaxnodes) + 1
	subjs := make([]term.Term, rnd.Intn(n)+1)
	for i := range subjs {
		subjs[i] = term.NewIRI(fmt.Sprintf("%ss%d", base, rnd.Intn(1000)))
	}
	preds := make([]term.Term, rnd.Intn(5)+1)
	for i := range preds {
		preds[i] = term.NewIRI(fmt.Sprintf("%sp%d", base, rnd.Intn(1000)))
	}
	ctxs := []term.Term{term.IRI(""), term.NewIRI(base + "g1"), term.NewIRI(base + "g2")}

	out := make(quadSet, 0, n)
	for i := 0; i < n; i++ {
		var o term.Term
		if rnd.Intn(2) == 0 {
			o = term.NewIRI(fmt.Sprintf("%so%d", base, rnd.Intn(1000)))
		} else {
			o = term.NewLiteral(fmt.Sprintf("v%d", rnd.Intn(1000)))
		}
		out = append(out, ResolvedQuad{
			S: subjs[rnd.Intn(len(subjs))],
			P: preds[rnd.Intn(len(preds))],
			O: o,
			C: ctxs[rnd.Intn(len(ctxs))],
		})
	}
	return reflect.ValueOf(out)
}

// dedupe removes quads that repeat (by quadKey), keeping the first
// occurrence, so callers can reason about "added exactly once" without
// tripping over lsuperrors.ErrAlreadyPresent from AddMany.
func dedupe(qs quadSet) quadSet {
	seen := map[string]bool{}
	out := make(quadSet, 0, len(qs))
	for _, q := range qs {
		k := quadKey(q)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, q)
	}
	return out
}

// scanAll resolves every quad matching pat into a sorted []string of
// quadKeys, for set comparison between index-selection strategies.
func scanAll(st *Store, tx *txn.Txn, pat TermPattern) ([]string, error) {
	cur, err := st.Lookup(tx, pat)
	if err != nil {
		return nil, err
	}
	defer cur.Close()

	var keys []string
	for {
		sk, pk, ok, ck, more := cur.Next()
		if !more {
			if err := cur.Err(); err != nil {
				return nil, err
			}
			break
		}
		s, err := st.Resolve(tx, sk)
		if err != nil {
			return nil, err
		}
		p, err := st.Resolve(tx, pk)
		if err != nil {
			return nil, err
		}
		o, err := st.Resolve(tx, ok)
		if err != nil {
			return nil, err
		}
		c, err := st.Resolve(tx, ck)
		if err != nil {
			return nil, err
		}
		keys = append(keys, quadKey(ResolvedQuad{S: s, P: p, O: o, C: c}))
	}
	sort.Strings(keys)
	return keys, nil
}

func sameStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// filterKeys returns the sorted subset of full matching keep.
func filterKeys(full []string, keep func(string) bool) []string {
	var out []string
	for _, k := range full {
		if keep(k) {
			out = append(out, k)
		}
	}
	return out
}

// TestInternIdempotence_Quick is P1: two successive intern calls on the
// same term, in separate transactions, return the same key.
func TestInternIdempotence_Quick(t *testing.T) {
	f := func(qs quadSet) bool {
		mgr := newTestManager(t)
		seed := term.Seed{}
		for _, q := range dedupe(qs) {
			for _, tm := range []term.Term{q.S, q.P, q.O, q.C} {
				var k1, k2 term.Key
				if err := mgr.Update(func(tx *txn.Txn) error {
					k, err := intern(tx, seed, tm)
					k1 = k
					return err
				}); err != nil {
					t.Logf("intern (1st): %v", err)
					return false
				}
				if err := mgr.Update(func(tx *txn.Txn) error {
					k, err := intern(tx, seed, tm)
					k2 = k
					return err
				}); err != nil {
					t.Logf("intern (2nd): %v", err)
					return false
				}
				if k1 != k2 {
					t.Logf("intern(%v) gave %d then %d", tm, k1, k2)
					return false
				}
			}
		}
		return true
	}
	if err := quick.Check(f, qconfig()); err != nil {
		t.Error(err)
	}
}

// TestTermRoundTrip_Quick is P2: lookup(intern(t)) == t for every
// generated term.
func TestTermRoundTrip_Quick(t *testing.T) {
	f := func(qs quadSet) bool {
		mgr := newTestManager(t)
		seed := term.Seed{}
		for _, q := range dedupe(qs) {
			for _, tm := range []term.Term{q.S, q.P, q.O, q.C} {
				var k term.Key
				if err := mgr.Update(func(tx *txn.Txn) error {
					var err error
					k, err = intern(tx, seed, tm)
					return err
				}); err != nil {
					t.Logf("intern: %v", err)
					return false
				}
				var resolved term.Term
				if err := mgr.View(func(tx *txn.Txn) error {
					var err error
					resolved, err = resolve(tx, k)
					return err
				}); err != nil {
					t.Logf("resolve: %v", err)
					return false
				}
				if resolved != tm {
					t.Logf("resolve(intern(%v)) => %v", tm, resolved)
					return false
				}
			}
		}
		return true
	}
	if err := quick.Check(f, qconfig()); err != nil {
		t.Error(err)
	}
}

// TestIndexConsistency_Quick is P3: after committing an arbitrary batch
// of adds, the quads recoverable by a full primary-index scan agree,
// once both are filtered to the same bound value, with what each
// single-bound permutation index (s:po, p:so, o:sp) recovers.
func TestIndexConsistency_Quick(t *testing.T) {
	f := func(qs quadSet) bool {
		qs = dedupe(qs)
		if len(qs) == 0 {
			return true
		}
		mgr := newTestManager(t)
		st := newTestStore()
		if err := mgr.Update(func(tx *txn.Txn) error {
			_, err := st.AddMany(tx, qs)
			return err
		}); err != nil {
			t.Logf("AddMany: %v", err)
			return false
		}

		ok := true
		if err := mgr.View(func(tx *txn.Txn) error {
			full, err := scanAll(st, tx, TermPattern{})
			if err != nil {
				return err
			}
			for _, sample := range qs {
				bySubj, err := scanAll(st, tx, TermPattern{S: sample.S})
				if err != nil {
					return err
				}
				expectSubj := filterKeys(full, func(k string) bool {
					return strings.HasPrefix(k, sample.S.String()+"\x00")
				})
				if !sameStrings(bySubj, expectSubj) {
					t.Logf("s:po for %v => %v; primary-filtered => %v", sample.S, bySubj, expectSubj)
					ok = false
				}

				byPred, err := scanAll(st, tx, TermPattern{P: sample.P})
				if err != nil {
					return err
				}
				expectPred := filterKeys(full, func(k string) bool {
					parts := strings.SplitN(k, "\x00", 4)
					return len(parts) > 1 && parts[1] == sample.P.String()
				})
				if !sameStrings(byPred, expectPred) {
					t.Logf("p:so for %v => %v; primary-filtered => %v", sample.P, byPred, expectPred)
					ok = false
				}

				byObj, err := scanAll(st, tx, TermPattern{O: sample.O})
				if err != nil {
					return err
				}
				expectObj := filterKeys(full, func(k string) bool {
					parts := strings.SplitN(k, "\x00", 4)
					return len(parts) > 2 && parts[2] == sample.O.String()
				})
				if !sameStrings(byObj, expectObj) {
					t.Logf("o:sp for %v => %v; primary-filtered => %v", sample.O, byObj, expectObj)
					ok = false
				}
			}
			return nil
		}); err != nil {
			t.Logf("View: %v", err)
			return false
		}
		return ok
	}
	if err := quick.Check(f, qconfig()); err != nil {
		t.Error(err)
	}
}

// TestPatternCompleteness_Quick is P5: for a committed quad set and any
// pattern derived from it by binding a subset of positions, Lookup
// returns exactly the matching quads, with no duplicates.
func TestPatternCompleteness_Quick(t *testing.T) {
	f := func(qs quadSet) bool {
		qs = dedupe(qs)
		if len(qs) == 0 {
			return true
		}
		mgr := newTestManager(t)
		st := newTestStore()
		if err := mgr.Update(func(tx *txn.Txn) error {
			_, err := st.AddMany(tx, qs)
			return err
		}); err != nil {
			t.Logf("AddMany: %v", err)
			return false
		}

		ok := true
		if err := mgr.View(func(tx *txn.Txn) error {
			for i, sample := range qs {
				pat := TermPattern{}
				// Bind a subset of positions chosen by the sample's index,
				// so different samples exercise different combinations.
				if i%2 == 0 {
					pat.S = sample.S
				}
				if i%3 == 0 {
					pat.P = sample.P
				}
				if i%5 == 0 {
					pat.O = sample.O
				}
				if i%7 == 0 {
					pat.C = sample.C
				}

				got, err := scanAll(st, tx, pat)
				if err != nil {
					return err
				}

				var want []string
				for _, q := range qs {
					if pat.S != nil && q.S != pat.S {
						continue
					}
					if pat.P != nil && q.P != pat.P {
						continue
					}
					if pat.O != nil && q.O != pat.O {
						continue
					}
					if pat.C != nil && q.C != pat.C {
						continue
					}
					want = append(want, quadKey(q))
				}
				sort.Strings(want)
				want = dedupeStrings(want)

				if !sameStrings(got, want) {
					t.Logf("pattern %+v => %v; want %v", pat, got, want)
					ok = false
				}
			}
			return nil
		}); err != nil {
			t.Logf("View: %v", err)
			return false
		}
		return ok
	}
	if err := quick.Check(f, qconfig()); err != nil {
		t.Error(err)
	}
}

func dedupeStrings(ss []string) []string {
	var out []string
	for i, s := range ss {
		if i == 0 || s != ss[i-1] {
			out = append(out, s)
		}
	}
	return out
}

// TestAddRemoveInverse_Quick is P4: for a quad not initially present,
// add then remove leaves index state (as measured by Len and Contains)
// unchanged from before the add.
func TestAddRemoveInverse_Quick(t *testing.T) {
	f := func(qs quadSet) bool {
		qs = dedupe(qs)
		if len(qs) == 0 {
			return true
		}
		mgr := newTestManager(t)
		st := newTestStore()

		// Store every quad but the last, so the last is guaranteed to be
		// "not initially present".
		fixture, probe := qs[:len(qs)-1], qs[len(qs)-1]
		if err := mgr.Update(func(tx *txn.Txn) error {
			_, err := st.AddMany(tx, fixture)
			return err
		}); err != nil {
			t.Logf("AddMany(fixture): %v", err)
			return false
		}

		var before int
		if err := mgr.View(func(tx *txn.Txn) error {
			var err error
			before, err = st.Len(tx, nil)
			return err
		}); err != nil {
			t.Logf("Len before: %v", err)
			return false
		}

		if err := mgr.Update(func(tx *txn.Txn) error {
			return st.Add(tx, probe.S, probe.P, probe.O, probe.C)
		}); err != nil {
			t.Logf("Add(probe): %v", err)
			return false
		}
		if n, err := removeAll(mgr, st, TermPattern{S: probe.S, P: probe.P, O: probe.O, C: probe.C}); err != nil || n != 1 {
			t.Logf("Remove(probe) => %d, %v; want 1, nil", n, err)
			return false
		}

		ok := true
		if err := mgr.View(func(tx *txn.Txn) error {
			after, err := st.Len(tx, nil)
			if err != nil {
				return err
			}
			if after != before {
				t.Logf("Len after add+remove => %d; want %d", after, before)
				ok = false
			}
			present, err := st.Contains(tx, probe.S, probe.P, probe.O, probe.C)
			if err != nil {
				return err
			}
			if present {
				t.Logf("Contains(probe) => true after remove; want false")
				ok = false
			}
			return nil
		}); err != nil {
			t.Logf("View: %v", err)
			return false
		}
		return ok
	}
	if err := quick.Check(f, qconfig()); err != nil {
		t.Error(err)
	}
}

// TestSnapshotIsolation_Quick is P6: a reader transaction opened before a
// concurrent writer commits never observes that writer's changes.
func TestSnapshotIsolation_Quick(t *testing.T) {
	f := func(qs quadSet) bool {
		qs = dedupe(qs)
		if len(qs) == 0 {
			return true
		}
		mgr := newTestManager(t)
		st := newTestStore()

		reader, err := mgr.BeginRead()
		if err != nil {
			t.Logf("BeginRead: %v", err)
			return false
		}
		defer reader.Abort()

		beforeLen, err := st.Len(reader, nil)
		if err != nil {
			t.Logf("Len(reader): %v", err)
			return false
		}

		if err := mgr.Update(func(tx *txn.Txn) error {
			_, err := st.AddMany(tx, qs)
			return err
		}); err != nil {
			t.Logf("AddMany: %v", err)
			return false
		}

		afterLen, err := st.Len(reader, nil)
		if err != nil {
			t.Logf("Len(reader) after writer commit: %v", err)
			return false
		}
		if afterLen != beforeLen {
			t.Logf("reader observed a committed write: Len %d -> %d", beforeLen, afterLen)
			return false
		}
		for _, q := range qs {
			present, err := st.Contains(reader, q.S, q.P, q.O, q.C)
			if err != nil {
				t.Logf("Contains(reader): %v", err)
				return false
			}
			if present {
				t.Logf("reader observed quad %+v committed after it opened", q)
				return false
			}
		}
		return true
	}
	if err := quick.Check(f, qconfig()); err != nil {
		t.Error(err)
	}
}

// TestAbortAtomicity_Quick is P7: a write transaction that aborts after
// some sub-writes leaves no trace of any of them in any index.
func TestAbortAtomicity_Quick(t *testing.T) {
	f := func(qs quadSet) bool {
		qs = dedupe(qs)
		if len(qs) == 0 {
			return true
		}
		mgr := newTestManager(t)
		st := newTestStore()

		tx, err := mgr.BeginWrite()
		if err != nil {
			t.Logf("BeginWrite: %v", err)
			return false
		}
		for i, q := range qs {
			if err := st.Add(tx, q.S, q.P, q.O, q.C); err != nil {
				t.Logf("Add(%d): %v", i, err)
				tx.Abort()
				return false
			}
			if i == len(qs)/2 {
				break // simulate a failure partway through the batch
			}
		}
		if err := tx.Abort(); err != nil {
			t.Logf("Abort: %v", err)
			return false
		}

		ok := true
		if err := mgr.View(func(tx *txn.Txn) error {
			n, err := st.Len(tx, nil)
			if err != nil {
				return err
			}
			if n != 0 {
				t.Logf("Len after abort => %d; want 0", n)
				ok = false
			}
			for _, q := range qs {
				present, err := st.Contains(tx, q.S, q.P, q.O, q.C)
				if err != nil {
					return err
				}
				if present {
					t.Logf("Contains(%+v) => true after abort; want false", q)
					ok = false
				}
			}
			return nil
		}); err != nil {
			t.Logf("View: %v", err)
			return false
		}
		return ok
	}
	if err := quick.Check(f, qconfig()); err != nil {
		t.Error(err)
	}
}
