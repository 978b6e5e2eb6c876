package blinktree

import (
	"time"

	"github.com/alexhholmes/blinktree/internal/base"
)

// InsertStrategy selects how an insert acquires its write path.
type InsertStrategy int

const (
	// Optimistic finds the deepest node that can absorb the insert under
	// read locks and write-locks only from there down. Falls back to locking
	// from the root when no such node exists.
	Optimistic InsertStrategy = iota

	// Pessimistic write-locks from the root identifier down, releasing the
	// ancestors above every node that can absorb the insert.
	Pessimistic
)

func (s InsertStrategy) String() string {
	if s == Pessimistic {
		return "pessimistic"
	}
	return "optimistic"
}

// Options configures tree behavior.
type Options struct {
	logger          Logger
	insertStrategy  InsertStrategy
	lookupCacheSize int           // Entries in the node lookup cache. 0 disables it.
	lockTimeout     time.Duration // Bounded wait inside Update/View once a lock is held.
	maxTxRetries    int           // Attempts before Update/View give up. 0 means unbounded.
	newIdentifier   func() base.NodeID
}

// DefaultOptions returns the default configuration.
//
//goland:noinspection GoUnusedExportedFunction
func DefaultOptions() Options {
	return Options{
		logger:          DiscardLogger{},
		insertStrategy:  Optimistic,
		lookupCacheSize: 4096,
		lockTimeout:     50 * time.Millisecond,
	}
}

// Option configures tree options using the functional options pattern.
type Option func(*Options)

// WithLogger sets the logger for structural events and transaction aborts.
//
//goland:noinspection GoUnusedExportedFunction
func WithLogger(logger Logger) Option {
	return func(opts *Options) {
		if logger == nil {
			logger = DiscardLogger{}
		}
		opts.logger = logger
	}
}

// WithInsertStrategy selects optimistic or pessimistic write-path acquisition.
//
//goland:noinspection GoUnusedExportedFunction
func WithInsertStrategy(strategy InsertStrategy) Option {
	return func(opts *Options) {
		opts.insertStrategy = strategy
	}
}

// WithLookupCacheSize sets the size of the identifier lookup cache in front of
// the node map. Zero disables the cache.
//
//goland:noinspection GoUnusedExportedFunction
func WithLookupCacheSize(entries int) Option {
	return func(opts *Options) {
		opts.lookupCacheSize = max(entries, 0)
	}
}

// WithLockTimeout bounds how long a transaction run by Update or View waits
// for a lock once it already holds locks from an earlier operation. On
// timeout the transaction releases everything and reruns.
//
//goland:noinspection GoUnusedExportedFunction
func WithLockTimeout(d time.Duration) Option {
	return func(opts *Options) {
		opts.lockTimeout = d
	}
}

// WithMaxTxRetries caps the attempts of Update and View. After the last
// aborted attempt they return ErrTxConflict.
//
//goland:noinspection GoUnusedExportedFunction
func WithMaxTxRetries(n int) Option {
	return func(opts *Options) {
		opts.maxTxRetries = max(n, 0)
	}
}

// WithIdentifierSource replaces the random UUID node identifier generator.
// Collisions with existing nodes are detected and retried.
//
//goland:noinspection GoUnusedExportedFunction
func WithIdentifierSource(next func() string) Option {
	return func(opts *Options) {
		opts.newIdentifier = func() base.NodeID {
			return base.NodeID(next())
		}
	}
}
