package main

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/alexhholmes/blinktree"
)

// Report summarizes a finished run.
type Report struct {
	Inserts   uint64
	Deletes   uint64
	Lookups   uint64
	Present   int
	Elapsed   time.Duration
	TreeStats blinktree.Stats
	Height    int
}

// Ops returns the total number of tree operations.
func (r Report) Ops() uint64 {
	return r.Inserts + r.Deletes + r.Lookups
}

// Run executes the workload: every thread mutates only the keys it owns but
// looks up any key, so the final presence of each key is known exactly. After
// all threads finish every key is checked and the tree is validated.
func Run(cfg Config, options ...blinktree.Option) (Report, error) {
	if err := cfg.Validate(); err != nil {
		return Report{}, err
	}
	strategy, _ := cfg.insertStrategy()

	tree, err := blinktree.New(cfg.Capacity, append(options, blinktree.WithInsertStrategy(strategy))...)
	if err != nil {
		return Report{}, errors.Wrap(err, "create tree")
	}

	keys := GenerateKeys(cfg.Keys, cfg.Seed)
	expected := make([]bool, len(keys))

	var (
		wg     sync.WaitGroup
		counts = make([]Report, cfg.Threads)
	)
	start := time.Now()
	for w := 0; w < cfg.Threads; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			counts[w] = work(tree, keys, expected, w, cfg)
		}(w)
	}
	wg.Wait()

	report := Report{Elapsed: time.Since(start)}
	for _, c := range counts {
		report.Inserts += c.Inserts
		report.Deletes += c.Deletes
		report.Lookups += c.Lookups
	}

	if err := verify(tree, keys, expected); err != nil {
		return report, err
	}
	for _, present := range expected {
		if present {
			report.Present++
		}
	}

	ls := blinktree.NewLockSet(tree, blinktree.ReadOnly)
	err = tree.Check(ls)
	ls.Close()
	if err != nil {
		return report, errors.Wrap(err, "validate")
	}

	report.Height = tree.Height()
	report.TreeStats = tree.Stats()
	return report, nil
}

// GenerateKeys returns n distinct keys in a seeded random order.
func GenerateKeys(n int, seed int64) []string {
	keys := make([]string, n)
	for i := range keys {
		keys[i] = fmt.Sprintf("key-%08d", i)
	}
	rng := rand.New(rand.NewPCG(uint64(seed), 0x9e3779b97f4a7c15))
	rng.Shuffle(len(keys), func(i, j int) {
		keys[i], keys[j] = keys[j], keys[i]
	})
	return keys
}

// work runs one thread. Thread w owns the keys whose index is w modulo the
// thread count and is the only writer of expected for them.
func work(tree *blinktree.BTree, keys []string, expected []bool, w int, cfg Config) Report {
	var r Report
	rng := rand.New(rand.NewPCG(uint64(cfg.Seed), uint64(w)+1))

	for i := 0; i < cfg.Ops; i++ {
		idx := rng.IntN(len(keys))
		if idx%cfg.Threads != w || rng.IntN(3) == 0 {
			ls := blinktree.NewLockSet(tree, blinktree.ReadOnly)
			tree.ContainsKey(ls, keys[idx])
			ls.Close()
			r.Lookups++
			continue
		}

		ls := blinktree.NewLockSet(tree, blinktree.ReadWrite)
		if rng.IntN(3) == 0 {
			tree.Delete(ls, keys[idx])
			expected[idx] = false
			r.Deletes++
		} else {
			tree.Insert(ls, keys[idx])
			expected[idx] = true
			r.Inserts++
		}
		ls.Close()
	}
	return r
}

func verify(tree *blinktree.BTree, keys []string, expected []bool) error {
	var missing, unexpected int
	for i, key := range keys {
		ls := blinktree.NewLockSet(tree, blinktree.ReadOnly)
		found := tree.ContainsKey(ls, key)
		ls.Close()

		switch {
		case expected[i] && !found:
			missing++
		case !expected[i] && found:
			unexpected++
		}
	}
	if missing > 0 || unexpected > 0 {
		return errors.Errorf("verification failed: %d keys missing, %d deleted keys still present", missing, unexpected)
	}
	return nil
}
