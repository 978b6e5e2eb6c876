package blinktree

import (
	"fmt"

	"github.com/alexhholmes/blinktree/internal/algo"
	"github.com/alexhholmes/blinktree/internal/base"
)

// writePath is the chain of write-locked nodes an insert may modify, top
// first. root is set while the root identifier may have to change.
type writePath struct {
	root  *guard
	nodes []*guard
}

func (p *writePath) push(g *guard) {
	p.nodes = append(p.nodes, g)
}

func (p *writePath) pop() *guard {
	g := p.nodes[len(p.nodes)-1]
	p.nodes = p.nodes[:len(p.nodes)-1]
	return g
}

func (p *writePath) last() *guard {
	return p.nodes[len(p.nodes)-1]
}

// releaseAncestors drops everything above the newest node, which can absorb
// the change on its own.
func (p *writePath) releaseAncestors() {
	if p.root != nil {
		p.root.release()
		p.root = nil
	}
	last := p.last()
	for _, g := range p.nodes[:len(p.nodes)-1] {
		g.release()
	}
	p.nodes = append(p.nodes[:0], last)
}

// hold retains the whole path until the transaction ends.
func (p *writePath) hold() {
	if p.root != nil {
		p.root.hold()
	}
	for _, g := range p.nodes {
		g.hold()
	}
}

// Insert adds key to the tree. Inserting a present key changes nothing and
// reports AlreadyPresent. The LockSet must be ReadWrite; every node the
// insert modified stays write-locked until it is closed.
func (t *BTree) Insert(ls *LockSet, key string) InsertionResult {
	t.checkLockSet(ls)

	var path *writePath
	if t.opts.insertStrategy == Pessimistic {
		path = t.pessimisticInsertPath(ls, key)
	} else {
		path = t.optimisticInsertPath(ls, key)
	}
	path.hold()

	ls.mutating = true
	defer func() { ls.mutating = false }()

	leaf := path.pop()
	n := leaf.node()
	if !algo.InsertKey(n, key) {
		return AlreadyPresent
	}
	if !n.IsOverfull() {
		return Inserted
	}

	t.propagateSplit(ls, path, t.split(ls, leaf))
	return InsertedWithSplit
}

// optimisticInsertPath write-locks from the deepest node that can take one
// more entry. When that node filled up between the read and the write lock
// the search starts over.
func (t *BTree) optimisticInsertPath(ls *LockSet, key string) *writePath {
	for {
		anc, ok := t.findStableAncestor(ls, key, canGrow)
		if !ok {
			return t.descendForInsert(ls, key, t.lockRoot(ls))
		}

		if top, ok := t.lockStable(ls, anc, key, canGrow); ok {
			return t.descendForInsert(ls, key, &writePath{nodes: []*guard{top}})
		}
	}
}

// pessimisticInsertPath write-locks from the root identifier down.
func (t *BTree) pessimisticInsertPath(ls *LockSet, key string) *writePath {
	path := t.lockRoot(ls)
	if canGrow(path.last().node()) {
		path.releaseAncestors()
	}
	return t.descendForInsert(ls, key, path)
}

// lockRoot write-locks the root identifier and the current root node.
func (t *BTree) lockRoot(ls *LockSet) *writePath {
	rg := ls.write(rootTarget)
	root := ls.write(nodeTarget(rg.rootID()))
	return &writePath{root: rg, nodes: []*guard{root}}
}

// descendForInsert extends path down to the leaf for key. Passing a node
// that can take one more entry releases everything above it.
func (t *BTree) descendForInsert(ls *LockSet, key string, path *writePath) *writePath {
	for {
		n := path.last().node()
		if n.Leaf {
			return path
		}

		child := ls.write(nodeTarget(algo.ChildByKey(n, key)))
		child = t.moveRightForWrite(ls, child, key)
		path.push(child)
		if canGrow(child.node()) {
			path.releaseAncestors()
		}
	}
}

// split divides an overfull node, storing the upper half in a new right
// sibling that stays write-locked for the rest of the transaction.
func (t *BTree) split(ls *LockSet, g *guard) base.SplitInfo {
	entry := t.store.Allocate()
	rg := ls.holdWrite(nodeTarget(entry.ID()))

	info, right := algo.Split(g.node(), entry.ID())
	rg.setNode(right)

	t.stats.splits.Add(1)
	return info
}

// propagateSplit publishes split in the level above, splitting ancestors as
// long as they overflow.
func (t *BTree) propagateSplit(ls *LockSet, path *writePath, split base.SplitInfo) {
	for {
		if len(path.nodes) == 0 {
			if path.root == nil {
				path = t.redescendTowardSplit(ls, split)
				continue
			}

			// The root identifier stays locked from lockRoot or
			// redescendTowardSplit on, and split.Left is held, so the
			// root cannot have moved.
			rg := path.root
			if rg.rootID() != split.Left {
				panic(fmt.Sprintf("blinktree: split of %s at level %d reached the root identifier, which names %s", split.Left, split.Level, rg.rootID()))
			}
			path.root = nil
			t.growRoot(ls, rg, split)
			return
		}

		parent := t.moveRightForWrite(ls, path.pop(), split.Median)
		parent.hold()

		n := parent.node()
		algo.InsertSeparator(n, split)
		if !n.IsOverfull() {
			return
		}
		split = t.split(ls, parent)
	}
}

// growRoot installs a new root above the two halves of the old one.
func (t *BTree) growRoot(ls *LockSet, rg *guard, split base.SplitInfo) {
	entry := t.store.Allocate()
	g := ls.holdWrite(nodeTarget(entry.ID()))
	g.setNode(base.NewRoot(entry.ID(), split, t.capacity))

	rg.hold()
	rg.setRootID(entry.ID())

	t.stats.rootGrowths.Add(1)
	t.logger.Info("root grew", "root", entry.ID(), "height", split.Level+2)
}

// redescendTowardSplit finds the node that must receive split when the
// locked path no longer reaches it. If the split node is at root level, the
// returned path only holds the root identifier.
func (t *BTree) redescendTowardSplit(ls *LockSet, split base.SplitInfo) *writePath {
	pred, cur := t.descendForRead(ls, split.Median, split.Level+1)
	if cur.node().Level <= split.Level {
		cur.release()
		pred.release()
		return &writePath{root: ls.holdWrite(rootTarget)}
	}

	id := cur.node().ID
	cur.release()
	parent := ls.write(nodeTarget(id))
	pred.release()
	return &writePath{nodes: []*guard{parent}}
}
