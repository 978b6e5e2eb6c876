package blinktree

// Stats holds cumulative tree counters.
type Stats struct {
	Splits      uint64 // node splits, leaves and interior
	RootGrowths uint64
	Merges      uint64
	Rotations   uint64
	RootShrinks uint64
	Restarts    uint64 // stable ancestors found unstable once write-locked
	RightScans  uint64 // B-link moves along next pointers
	Aborts      uint64 // Update/View attempts aborted on lock conflict

	Nodes                int // stored nodes, orphans included
	Lookups              uint64
	CacheHits            uint64
	CacheMisses          uint64
	IdentifierCollisions uint64
}

// Stats returns a snapshot of the tree counters.
func (t *BTree) Stats() Stats {
	st := t.store.Stats()
	return Stats{
		Splits:               t.stats.splits.Load(),
		RootGrowths:          t.stats.rootGrowths.Load(),
		Merges:               t.stats.merges.Load(),
		Rotations:            t.stats.rotations.Load(),
		RootShrinks:          t.stats.rootShrinks.Load(),
		Restarts:             t.stats.restarts.Load(),
		RightScans:           t.stats.rightScans.Load(),
		Aborts:               t.stats.aborts.Load(),
		Nodes:                st.Nodes,
		Lookups:              st.Lookups,
		CacheHits:            st.CacheHits,
		CacheMisses:          st.CacheMisses,
		IdentifierCollisions: st.Collisions,
	}
}

// ResetStats zeroes the structural counters. Store counters are cumulative.
func (t *BTree) ResetStats() {
	t.stats.splits.Store(0)
	t.stats.rootGrowths.Store(0)
	t.stats.merges.Store(0)
	t.stats.rotations.Store(0)
	t.stats.rootShrinks.Store(0)
	t.stats.restarts.Store(0)
	t.stats.rightScans.Store(0)
	t.stats.aborts.Store(0)
}
