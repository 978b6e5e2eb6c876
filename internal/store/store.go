// Package store maps node identifiers to independently latched nodes and
// keeps the root identifier behind its own latch.
//
// The map only grows. Nodes orphaned by merges or root shrinks stay reachable
// by identifier, which lets latches and cached entry pointers outlive any
// structural change.
package store

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sys/cpu"

	"github.com/alexhholmes/blinktree/internal/base"
	"github.com/alexhholmes/blinktree/internal/cache"
)

// Latch is the reader/writer lock guarding one lock target.
type Latch interface {
	Lock()
	Unlock()
	RLock()
	RUnlock()
	TryLock() bool
	TryRLock() bool
}

// Entry is one stored node and its latch. Node and SetNode must only be used
// while the latch is held.
type Entry struct {
	sync.RWMutex
	id   base.NodeID
	node *base.Node
	_    cpu.CacheLinePad
}

func (e *Entry) ID() base.NodeID {
	return e.id
}

func (e *Entry) Node() *base.Node {
	return e.node
}

// SetNode installs the node content of a freshly allocated entry. Requires
// the write latch.
func (e *Entry) SetNode(n *base.Node) {
	if n.ID != e.id {
		panic(fmt.Sprintf("blinktree: node %s stored under identifier %s", n.ID, e.id))
	}
	e.node = n
}

// RootCell holds the root identifier. ID and SetID require the latch.
type RootCell struct {
	sync.RWMutex
	id base.NodeID
	_  cpu.CacheLinePad
}

func (r *RootCell) ID() base.NodeID {
	return r.id
}

func (r *RootCell) SetID(id base.NodeID) {
	r.id = id
}

// Config configures a Store.
type Config struct {
	// CacheSize is the size of the lookup cache in front of the map. Zero
	// disables it.
	CacheSize int

	// NewID generates candidate identifiers. Defaults to random UUIDs.
	NewID func() base.NodeID
}

// Stats are cumulative store counters.
type Stats struct {
	Nodes       int
	Lookups     uint64
	CacheHits   uint64
	CacheMisses uint64
	Collisions  uint64
}

// Store is the identifier to node arena of one tree.
type Store struct {
	mu      sync.RWMutex // guards entries and issued, never held across a node latch
	entries map[base.NodeID]*Entry
	issued  map[base.NodeID]struct{} // handed out by NewIdentifier, never stored
	root    RootCell
	lookup  *cache.Cache[*Entry] // nil when disabled
	newID   func() base.NodeID

	// Stats
	lookups    atomic.Uint64
	collisions atomic.Uint64
}

// New creates a store whose root is an empty leaf with the given capacity.
func New(capacity int, cfg Config) (*Store, error) {
	s := &Store{
		entries: make(map[base.NodeID]*Entry),
		issued:  make(map[base.NodeID]struct{}),
		newID:   cfg.NewID,
	}
	if s.newID == nil {
		s.newID = randomID
	}
	if cfg.CacheSize > 0 {
		lookup, err := cache.NewCache[*Entry](cfg.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("lookup cache: %w", err)
		}
		s.lookup = lookup
	}

	root := s.Allocate()
	root.node = base.NewLeaf(root.id, capacity)
	s.root.id = root.id
	return s, nil
}

func randomID() base.NodeID {
	return base.NodeID(uuid.NewString())
}

// Root returns the root identifier cell.
func (s *Store) Root() *RootCell {
	return &s.root
}

// Get returns the entry for id. Unknown identifiers are a broken invariant.
func (s *Store) Get(id base.NodeID) *Entry {
	s.lookups.Add(1)
	if s.lookup != nil {
		if e, ok := s.lookup.Get(id); ok {
			return e
		}
	}

	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		panic(fmt.Sprintf("blinktree: unknown node identifier %q", id))
	}

	if s.lookup != nil {
		s.lookup.Put(id, e)
	}
	return e
}

// Allocate registers a new entry under a fresh identifier. The entry has no
// node until the caller, holding its write latch, calls SetNode.
func (s *Store) Allocate() *Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.freshID()
	e := &Entry{id: id}
	s.entries[id] = e
	return e
}

// NewIdentifier returns an identifier that no stored node uses and that is
// never handed out again, neither by NewIdentifier nor by Allocate.
func (s *Store) NewIdentifier() base.NodeID {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.freshID()
	s.issued[id] = struct{}{}
	return id
}

// freshID draws identifiers until one is neither stored nor issued. Requires
// the write lock.
func (s *Store) freshID() base.NodeID {
	for {
		id := s.newID()
		_, stored := s.entries[id]
		_, issued := s.issued[id]
		if !stored && !issued && id != "" {
			return id
		}
		s.collisions.Add(1)
	}
}

// Len returns the number of stored nodes, orphans included.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *Store) Stats() Stats {
	st := Stats{
		Nodes:      s.Len(),
		Lookups:    s.lookups.Load(),
		Collisions: s.collisions.Load(),
	}
	if s.lookup != nil {
		st.CacheHits, st.CacheMisses = s.lookup.Stats()
	}
	return st
}
