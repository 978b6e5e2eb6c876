// Package blinktree is an in-memory B-link tree of string keys that many
// goroutines can insert into, delete from and query at once.
//
// Every node has its own reader/writer latch and the root identifier has one
// more. Operations run inside a LockSet, the lock registry of one
// transaction, which retains every lock an operation depends on until Close
// (strict two-phase locking).
//
//	ls := blinktree.NewLockSet(tree, blinktree.ReadWrite)
//	tree.Insert(ls, "k")
//	ls.Close()
package blinktree

import (
	"fmt"
	"sync/atomic"

	"github.com/alexhholmes/blinktree/internal/base"
	"github.com/alexhholmes/blinktree/internal/store"
)

// MinKeyCapacity is the smallest fan-out bound a tree accepts. Splitting
// needs at least one key on each side.
const MinKeyCapacity = 2

// NodeID identifies a node of the tree.
type NodeID = base.NodeID

// BTree is a concurrent B-link tree. All methods are safe for concurrent use;
// each goroutine drives its own LockSet.
type BTree struct {
	capacity int
	store    *store.Store
	opts     Options
	logger   Logger
	stats    treeStats
}

// New creates a tree whose nodes hold at most maxKeyCapacity keys or
// separators. The tree starts as a single empty leaf.
func New(maxKeyCapacity int, options ...Option) (*BTree, error) {
	if maxKeyCapacity < MinKeyCapacity {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidCapacity, maxKeyCapacity)
	}

	// Apply options
	opts := DefaultOptions()
	for _, opt := range options {
		opt(&opts)
	}

	s, err := store.New(maxKeyCapacity, store.Config{
		CacheSize: opts.lookupCacheSize,
		NewID:     opts.newIdentifier,
	})
	if err != nil {
		return nil, err
	}

	return &BTree{
		capacity: maxKeyCapacity,
		store:    s,
		opts:     opts,
		logger:   opts.logger,
	}, nil
}

// Capacity returns the fan-out bound the tree was created with.
func (t *BTree) Capacity() int {
	return t.capacity
}

// NewIdentifier returns a node identifier never issued before by this tree,
// whether to one of its nodes or by an earlier call. Nodes allocated later
// never take it either.
func (t *BTree) NewIdentifier() NodeID {
	return t.store.NewIdentifier()
}

// Height returns the number of levels, 1 for a tree that is a single leaf.
func (t *BTree) Height() int {
	ls := NewLockSet(t, ReadOnly)
	defer ls.Close()

	rg := ls.tempRead(rootTarget)
	root := ls.tempRead(nodeTarget(rg.rootID()))
	defer root.release()
	rg.release()
	return root.node().Level + 1
}

func (t *BTree) checkLockSet(ls *LockSet) {
	if ls.tree != t {
		panic("blinktree: lock set belongs to a different tree")
	}
	ls.checkOpen()
}

// treeStats are the structural event counters behind Stats.
type treeStats struct {
	splits      atomic.Uint64
	rootGrowths atomic.Uint64
	merges      atomic.Uint64
	rotations   atomic.Uint64
	rootShrinks atomic.Uint64
	restarts    atomic.Uint64
	rightScans  atomic.Uint64
	aborts      atomic.Uint64
}
