package blinktree

import (
	"fmt"
	"slices"
	"time"

	"github.com/alexhholmes/blinktree/internal/base"
	"github.com/alexhholmes/blinktree/internal/store"
)

// TransactionMode fixes which locks a LockSet may take. It cannot change
// after NewLockSet.
type TransactionMode int

const (
	// ReadOnly transactions only take read locks. Every operation run with
	// them is a lookup.
	ReadOnly TransactionMode = iota

	// ReadWrite transactions take write locks for everything they retain,
	// even for lookups, so a later step of the same transaction never has
	// to upgrade a read lock it already holds.
	ReadWrite
)

func (m TransactionMode) String() string {
	if m == ReadWrite {
		return "read-write"
	}
	return "read-only"
}

// lockTarget is either the root identifier or one node.
type lockTarget struct {
	root bool
	id   base.NodeID
}

var rootTarget = lockTarget{root: true}

func nodeTarget(id base.NodeID) lockTarget {
	if id == "" {
		panic("blinktree: lock requested for empty node identifier")
	}
	return lockTarget{id: id}
}

func (t lockTarget) String() string {
	if t.root {
		return "root identifier"
	}
	return "node " + string(t.id)
}

type lockMode uint8

const (
	readLock lockMode = iota
	writeLock
)

// LockSet is the lock registry of one transaction. A target is either absent
// (not held), temporarily held with a reference count, or held until Close.
//
// Temporary locks are read locks taken to pass through a node; they are
// released as soon as the traversal moves on. Held locks are never released
// before Close, which is what makes the transaction two-phase.
//
// A LockSet is confined to the goroutine driving its transaction.
type LockSet struct {
	tree   *BTree
	mode   TransactionMode
	guards map[lockTarget]*guard
	order  []*guard // live guards in acquisition order, released backwards by Close
	held   int
	closed bool

	// Abortable lock sets stop waiting once they retain locks from an
	// earlier operation; see lock.
	abortable bool
	timeout   time.Duration
	mutating  bool
}

// NewLockSet begins a transaction on t. Each of Insert, Delete and
// ContainsKey may be called any number of times with it before Close.
// Several write operations on one LockSet can deadlock against another
// transaction doing the same in a different order; Update avoids that by
// aborting and rerunning.
func NewLockSet(t *BTree, mode TransactionMode) *LockSet {
	return newLockSet(t, mode, false)
}

func newLockSet(t *BTree, mode TransactionMode, abortable bool) *LockSet {
	return &LockSet{
		tree:      t,
		mode:      mode,
		guards:    make(map[lockTarget]*guard),
		abortable: abortable && t.opts.lockTimeout > 0,
		timeout:   t.opts.lockTimeout,
	}
}

// Mode returns the transaction mode.
func (ls *LockSet) Mode() TransactionMode {
	return ls.mode
}

// Close ends the transaction and releases every lock it still has, newest
// first. Closing twice is a no-op.
func (ls *LockSet) Close() {
	if ls.closed {
		return
	}
	for i := len(ls.order) - 1; i >= 0; i-- {
		if g := ls.order[i]; g.live {
			g.unlock()
		}
	}
	ls.guards = nil
	ls.order = nil
	ls.held = 0
	ls.closed = true
}

// forget drops a released guard from the acquisition order. Temporary guards
// are usually the newest, so the scan starts at the end.
func (ls *LockSet) forget(g *guard) {
	for i := len(ls.order) - 1; i >= 0; i-- {
		if ls.order[i] == g {
			ls.order = slices.Delete(ls.order, i, i+1)
			return
		}
	}
}

func (ls *LockSet) checkOpen() {
	if ls.closed {
		panic("blinktree: lock set used after Close")
	}
}

// tempRead takes a temporary read lock, or returns the lock the transaction
// already has on target in any mode.
func (ls *LockSet) tempRead(target lockTarget) *guard {
	if g, ok := ls.guards[target]; ok {
		g.refs++
		return g
	}
	return ls.acquire(target, readLock)
}

// write takes a write lock that stays releasable until hold is called.
func (ls *LockSet) write(target lockTarget) *guard {
	if ls.mode == ReadOnly {
		panic(fmt.Sprintf("blinktree: write lock on %s requested in a read-only transaction", target))
	}
	if g, ok := ls.guards[target]; ok {
		if g.mode == readLock {
			panic(fmt.Sprintf("blinktree: write lock on %s requested while a temporary read lock on it is live", target))
		}
		g.refs++
		return g
	}
	return ls.acquire(target, writeLock)
}

// holdRead takes a lock retained until Close for reading target: a read lock
// in ReadOnly mode, a write lock in ReadWrite mode.
func (ls *LockSet) holdRead(target lockTarget) *guard {
	if ls.mode == ReadWrite {
		return ls.holdWrite(target)
	}
	if g, ok := ls.guards[target]; ok {
		if !g.held {
			panic(fmt.Sprintf("blinktree: held lock on %s requested while a temporary read lock on it is live", target))
		}
		return g
	}
	g := ls.acquire(target, readLock)
	g.hold()
	return g
}

// holdWrite takes a write lock retained until Close.
func (ls *LockSet) holdWrite(target lockTarget) *guard {
	g := ls.write(target)
	g.hold()
	return g
}

func (ls *LockSet) acquire(target lockTarget, mode lockMode) *guard {
	ls.checkOpen()
	g := &guard{
		ls:     ls,
		target: target,
		mode:   mode,
		refs:   1,
	}
	if target.root {
		g.latch = ls.tree.store.Root()
	} else {
		g.entry = ls.tree.store.Get(target.id)
		g.latch = g.entry
	}

	if !ls.lock(g.latch, mode) {
		panic(&lockConflict{target: target, mode: ls.mode})
	}

	g.live = true
	ls.guards[target] = g
	ls.order = append(ls.order, g)
	return g
}

// lock blocks until latch is acquired, except in an abortable transaction
// that already retains locks and has not started mutating: there a bounded
// wait stands in for deadlock detection, and false means give up.
func (ls *LockSet) lock(latch store.Latch, mode lockMode) bool {
	if !ls.abortable || ls.mutating || ls.held == 0 {
		if mode == writeLock {
			latch.Lock()
		} else {
			latch.RLock()
		}
		return true
	}

	try := latch.TryRLock
	if mode == writeLock {
		try = latch.TryLock
	}
	return tryFor(ls.timeout, try)
}

const (
	minRetryDelay = 50 * time.Microsecond
	maxRetryDelay = 5 * time.Millisecond
)

// tryFor polls try with exponential backoff until it succeeds or timeout
// passes.
func tryFor(timeout time.Duration, try func() bool) bool {
	deadline := time.Now().Add(timeout)
	delay := minRetryDelay
	for {
		if try() {
			return true
		}
		if !time.Now().Before(deadline) {
			return false
		}
		time.Sleep(min(delay, time.Until(deadline)))
		delay = min(delay*2, maxRetryDelay)
	}
}

// lockConflict is the panic value that aborts an abortable transaction.
type lockConflict struct {
	target lockTarget
	mode   TransactionMode
}

func (c *lockConflict) Error() string {
	return fmt.Sprintf("blinktree: %s transaction gave up waiting for %s", c.mode, c.target)
}

// guard is one acquired lock. A temporary guard is shared by reference count
// and unlocks when the count drops to zero; a held guard ignores release.
type guard struct {
	ls     *LockSet
	target lockTarget
	mode   lockMode
	latch  store.Latch
	entry  *store.Entry // nil for the root identifier
	refs   int
	held   bool
	live   bool
}

// hold retains the guard until Close.
func (g *guard) hold() {
	if g.held {
		return
	}
	if g.ls.mode == ReadWrite && g.mode == readLock {
		panic(fmt.Sprintf("blinktree: temporary read lock on %s cannot be held in a read-write transaction", g.target))
	}
	g.held = true
	g.ls.held++
}

// release gives back one reference to a temporary guard.
func (g *guard) release() {
	if g.held {
		return
	}
	if !g.live {
		panic(fmt.Sprintf("blinktree: lock on %s released twice", g.target))
	}
	g.refs--
	if g.refs > 0 {
		return
	}
	g.unlock()
	delete(g.ls.guards, g.target)
	g.ls.forget(g)
}

func (g *guard) unlock() {
	if g.mode == writeLock {
		g.latch.Unlock()
	} else {
		g.latch.RUnlock()
	}
	g.live = false
}

func (g *guard) node() *base.Node {
	if g.entry == nil {
		panic(fmt.Sprintf("blinktree: %s is not a node", g.target))
	}
	return g.entry.Node()
}

func (g *guard) setNode(n *base.Node) {
	g.mustWrite()
	g.entry.SetNode(n)
}

func (g *guard) rootID() base.NodeID {
	if !g.target.root {
		panic(fmt.Sprintf("blinktree: %s is not the root identifier", g.target))
	}
	return g.ls.tree.store.Root().ID()
}

func (g *guard) setRootID(id base.NodeID) {
	g.mustWrite()
	if !g.target.root {
		panic(fmt.Sprintf("blinktree: %s is not the root identifier", g.target))
	}
	g.ls.tree.store.Root().SetID(id)
}

func (g *guard) mustWrite() {
	if g.mode != writeLock {
		panic(fmt.Sprintf("blinktree: mutation of %s under a read lock", g.target))
	}
}
