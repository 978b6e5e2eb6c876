package blinktree

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stressConfig struct {
	capacity int
	threads  int
	keys     int
	ops      int
}

// runStress has every goroutine insert and delete only the keys it owns while
// looking up any key, then checks the final tree against what each owner did.
func runStress(t *testing.T, tree *BTree, cfg stressConfig) {
	t.Helper()

	keys := testKeys(cfg.keys, uint64(cfg.keys))
	present := make([]atomic.Bool, cfg.keys)

	var wg sync.WaitGroup
	wg.Add(cfg.threads)
	for w := 0; w < cfg.threads; w++ {
		go func(w int) {
			defer wg.Done()
			rng := rand.New(rand.NewPCG(uint64(w), uint64(cfg.threads)))

			for op := 0; op < cfg.ops; op++ {
				idx := rng.IntN(cfg.keys)
				key := keys[idx]
				owned := idx%cfg.threads == w

				switch choice := rng.IntN(3); {
				case choice == 0 || !owned:
					got := contains(tree, key)
					if owned && !assert.Equal(t, present[idx].Load(), got, "lookup of owned key %s", key) {
						return
					}
				case choice == 1:
					result := insert(tree, key)
					if !assert.Equal(t, present[idx].Load(), result == AlreadyPresent, "insert %s: %s", key, result) {
						return
					}
					present[idx].Store(true)
				default:
					result := remove(tree, key)
					if !assert.Equal(t, !present[idx].Load(), result == NotPresent, "delete %s: %s", key, result) {
						return
					}
					present[idx].Store(false)
				}
			}
		}(w)
	}
	wg.Wait()

	requireValid(t, tree)
	for idx, key := range keys {
		assert.Equal(t, present[idx].Load(), contains(tree, key), key)
	}
}

func TestConcurrentStress(t *testing.T) {
	t.Parallel()

	cfg := stressConfig{capacity: 32, threads: 32, keys: 32 * 32 * 32, ops: 32 * 32 * 32}
	if testing.Short() {
		cfg = stressConfig{capacity: 8, threads: 8, keys: 2048, ops: 2048}
	}

	tree := setup(t, cfg.capacity)
	runStress(t, tree, cfg)

	st := tree.Stats()
	t.Logf("splits=%d merges=%d rotations=%d restarts=%d right-scans=%d",
		st.Splits, st.Merges, st.Rotations, st.Restarts, st.RightScans)
}

func TestConcurrentStressSmallNodes(t *testing.T) {
	t.Parallel()

	// Small nodes make every operation structural.
	for _, strategy := range []InsertStrategy{Optimistic, Pessimistic} {
		t.Run(strategy.String(), func(t *testing.T) {
			t.Parallel()

			cfg := stressConfig{capacity: 2, threads: 16, keys: 1024, ops: 4000}
			if testing.Short() {
				cfg.ops = 500
			}
			tree := setup(t, cfg.capacity, WithInsertStrategy(strategy))
			runStress(t, tree, cfg)
		})
	}
}

func TestConcurrentReadersDuringSplits(t *testing.T) {
	t.Parallel()

	tree := setup(t, 3)
	stable := testKeys(500, 21)
	for _, key := range stable {
		insert(tree, key)
	}

	stop := make(chan struct{})
	var readers sync.WaitGroup
	for r := 0; r < 8; r++ {
		readers.Add(1)
		go func(r int) {
			defer readers.Done()
			for i := r; ; i++ {
				select {
				case <-stop:
					return
				default:
				}
				key := stable[i%len(stable)]
				if !assert.True(t, contains(tree, key), "reader lost %s", key) {
					return
				}
			}
		}(r)
	}

	var writers sync.WaitGroup
	for w := 0; w < 4; w++ {
		writers.Add(1)
		go func(w int) {
			defer writers.Done()
			for i := 0; i < 500; i++ {
				insert(tree, fmt.Sprintf("new-%d-%04d", w, i))
			}
		}(w)
	}
	writers.Wait()
	close(stop)
	readers.Wait()

	requireValid(t, tree)
	assert.Equal(t, 500+4*500, countKeys(t, tree))
}

func TestConcurrentTransactions(t *testing.T) {
	t.Parallel()

	// Test multi-operation transactions touching keys in opposite orders
	// - Each goroutine inserts a batch ascending or descending inside Update
	// - Conflicting transactions abort and rerun instead of deadlocking
	// - Every key ends up in the tree

	tree := setup(t, 4)
	const goroutines, batches, batchSize = 8, 20, 6

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for g := 0; g < goroutines; g++ {
		go func(g int) {
			defer wg.Done()
			for b := 0; b < batches; b++ {
				keys := make([]string, batchSize)
				for i := range keys {
					keys[i] = fmt.Sprintf("b%02d-%02d-%d", b, i, g)
				}
				if g%2 == 1 {
					for i, j := 0, len(keys)-1; i < j; i, j = i+1, j-1 {
						keys[i], keys[j] = keys[j], keys[i]
					}
				}

				err := tree.Update(func(ls *LockSet) error {
					for _, key := range keys {
						tree.Insert(ls, key)
					}
					return nil
				})
				if !assert.NoError(t, err) {
					return
				}
			}
		}(g)
	}
	wg.Wait()

	requireValid(t, tree)
	assert.Equal(t, goroutines*batches*batchSize, countKeys(t, tree))
}

// countKeys sums the keys of all leaves reachable from the root. Only for
// quiescent trees.
func countKeys(t *testing.T, tree *BTree) int {
	t.Helper()

	var count func(id NodeID) int
	count = func(id NodeID) int {
		n := peek(tree, id)
		require.False(t, n.Retired, "retired node %s reachable", id)
		if n.Leaf {
			return len(n.Keys)
		}
		total := 0
		for _, child := range n.Children {
			total += count(child)
		}
		return total
	}
	return count(tree.store.Root().ID())
}
