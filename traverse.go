package blinktree

import (
	"github.com/alexhholmes/blinktree/internal/algo"
	"github.com/alexhholmes/blinktree/internal/base"
)

// stability reports whether a node can absorb a pending change without a
// structural modification of its own.
type stability func(n *base.Node) bool

func canGrow(n *base.Node) bool {
	return n.CanGrowWithoutSplit()
}

func canShrink(n *base.Node) bool {
	return n.CanDeleteWithoutBecomingDeficient()
}

// stableAncestor is the deepest stable node on a key's path and the read
// guard that was held when it was reached: its parent, the root identifier
// for the root, or its left neighbour after a right-scan. Keeping pred
// locked stops the stable node from being split, merged or rotated away
// before the caller write-locks it.
type stableAncestor struct {
	pred *guard
	id   base.NodeID
}

// findStableAncestor descends toward key with coupled temporary read locks
// and returns the deepest node satisfying stable. ok is false when nothing
// on the path, root included, is stable; no lock is kept in that case.
func (t *BTree) findStableAncestor(ls *LockSet, key string, stable stability) (found stableAncestor, ok bool) {
	keep := func(g *guard) bool {
		return ok && g == found.pred
	}

	pred := ls.tempRead(rootTarget)
	cur := ls.tempRead(nodeTarget(pred.rootID()))
	for {
		for cur.node().MustMoveRight(key) {
			next := ls.tempRead(nodeTarget(cur.node().Next))
			if !keep(pred) {
				pred.release()
			}
			pred, cur = cur, next
			t.stats.rightScans.Add(1)
		}

		n := cur.node()
		if stable(n) {
			if ok && found.pred != pred {
				found.pred.release()
			}
			found, ok = stableAncestor{pred: pred, id: n.ID}, true
		}
		if n.Leaf {
			break
		}

		child := ls.tempRead(nodeTarget(algo.ChildByKey(n, key)))
		if !keep(pred) {
			pred.release()
		}
		pred, cur = cur, child
	}

	cur.release()
	if !keep(pred) {
		pred.release()
	}
	return found, ok
}

// lockStable write-locks the node found by findStableAncestor and then lets
// go of its predecessor. The node may have changed between the two; when it
// no longer covers key or is no longer stable, nothing stays locked and ok is
// false.
func (t *BTree) lockStable(ls *LockSet, anc stableAncestor, key string, stable stability) (top *guard, ok bool) {
	top = ls.write(nodeTarget(anc.id))
	anc.pred.release()
	if n := top.node(); covers(n, key) && stable(n) {
		return top, true
	}

	top.release()
	t.stats.restarts.Add(1)
	return nil, false
}

// moveRightForRead follows next pointers under coupled temporary read locks
// until g covers key. pred is released on every move.
func (t *BTree) moveRightForRead(ls *LockSet, pred, g *guard, key string) (*guard, *guard) {
	for g.node().MustMoveRight(key) {
		next := ls.tempRead(nodeTarget(g.node().Next))
		pred.release()
		pred, g = g, next
		t.stats.rightScans.Add(1)
	}
	return pred, g
}

// moveRightForWrite follows next pointers with write locks until g covers
// key. Guards passed over are released unless already held.
func (t *BTree) moveRightForWrite(ls *LockSet, g *guard, key string) *guard {
	for g.node().MustMoveRight(key) {
		next := ls.write(nodeTarget(g.node().Next))
		g.release()
		g = next
		t.stats.rightScans.Add(1)
	}
	return g
}

// descendForRead walks from the root to the node at level covering key with
// coupled temporary read locks. It returns that node's guard and the guard
// held when it was reached; both must be released by the caller.
func (t *BTree) descendForRead(ls *LockSet, key string, level int) (pred, cur *guard) {
	pred = ls.tempRead(rootTarget)
	cur = ls.tempRead(nodeTarget(pred.rootID()))
	for {
		pred, cur = t.moveRightForRead(ls, pred, cur, key)
		n := cur.node()
		if n.Level <= level {
			return pred, cur
		}
		child := ls.tempRead(nodeTarget(algo.ChildByKey(n, key)))
		pred.release()
		pred, cur = cur, child
	}
}

// covers reports whether a write-locked node is still the right place for
// key after the read locks that led to it were dropped.
func covers(n *base.Node, key string) bool {
	return !n.Retired && n.MaxValue.Covers(key)
}
