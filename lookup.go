package blinktree

import "github.com/alexhholmes/blinktree/internal/algo"

// ContainsKey reports whether key is in the tree. The leaf that answered is
// retained by the LockSet until Close: read-locked in a ReadOnly transaction,
// write-locked in a ReadWrite one.
func (t *BTree) ContainsKey(ls *LockSet, key string) bool {
	t.checkLockSet(ls)
	return algo.ContainsKey(t.holdLeaf(ls, key).node(), key)
}

// holdLeaf descends to the leaf for key and trades its temporary lock for a
// held one while the lock that led to it is still taken.
func (t *BTree) holdLeaf(ls *LockSet, key string) *guard {
	pred, cur := t.descendForRead(ls, key, 0)

	id := cur.node().ID
	cur.release()
	leaf := ls.holdRead(nodeTarget(id))
	pred.release()

	for leaf.node().MustMoveRight(key) {
		leaf = ls.holdRead(nodeTarget(leaf.node().Next))
		t.stats.rightScans.Add(1)
	}
	return leaf
}
