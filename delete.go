package blinktree

import (
	"fmt"

	"github.com/alexhholmes/blinktree/internal/algo"
	"github.com/alexhholmes/blinktree/internal/base"
)

// deletionStep is one level below the top of a deletion path: a node, its
// parent and the sibling it would rebalance with.
type deletionStep struct {
	parent  *guard
	node    *guard
	sibling *guard
}

// deletionPath holds every write lock a delete may need. root is set when the
// top of the path is the root node and the root identifier may change.
type deletionPath struct {
	root  *guard
	top   *guard
	steps []deletionStep
}

func (p *deletionPath) leaf() *guard {
	if len(p.steps) == 0 {
		return p.top
	}
	return p.steps[len(p.steps)-1].node
}

func (p *deletionPath) hold() {
	if p.root != nil {
		p.root.hold()
	}
	p.top.hold()
	for _, s := range p.steps {
		s.node.hold()
		s.sibling.hold()
	}
}

// Delete removes key from the tree. Deleting an absent key changes nothing
// and reports NotPresent. The LockSet must be ReadWrite; every node the
// delete modified or rebalanced against stays write-locked until it is
// closed.
func (t *BTree) Delete(ls *LockSet, key string) DeletionResult {
	t.checkLockSet(ls)

	path := t.deletionPath(ls, key)
	path.hold()

	ls.mutating = true
	defer func() { ls.mutating = false }()

	if !algo.DeleteKey(path.leaf().node(), key) {
		return NotPresent
	}

	result := Deleted
	for i := len(path.steps) - 1; i >= 0; i-- {
		step := path.steps[i]
		if !step.node.node().IsDeficient() {
			break
		}
		if t.rebalance(ls, step) == algo.NoRebalance {
			break
		}
		result = DeletedWithRebalance
	}

	if path.root != nil {
		t.shrinkRoot(path.root, path.top)
	}
	return result
}

// deletionPath write-locks from the deepest node that can lose an entry
// without becoming deficient, or from the root, down to the leaf for key.
func (t *BTree) deletionPath(ls *LockSet, key string) *deletionPath {
	path := t.deletionTop(ls, key)

	cur := path.top
	for !cur.node().Leaf {
		n := cur.node()
		idx := algo.FindChildIndex(n, key)
		left, right := n.Siblings(idx)

		// Siblings are locked left to right, like every right-scan.
		var child, sibling *guard
		switch {
		case left == "" && right == "":
			panic(fmt.Sprintf("blinktree: node %s under %s has no siblings", n.Children[idx], n.ID))
		case left != "" && (right == "" || t.canSpare(ls, left)):
			sibling = ls.write(nodeTarget(left))
			child = ls.write(nodeTarget(n.Children[idx]))
		default:
			child = ls.write(nodeTarget(n.Children[idx]))
			sibling = ls.write(nodeTarget(right))
		}

		path.steps = append(path.steps, deletionStep{parent: cur, node: child, sibling: sibling})
		cur = child
	}
	return path
}

func (t *BTree) deletionTop(ls *LockSet, key string) *deletionPath {
	for {
		anc, ok := t.findStableAncestor(ls, key, canShrink)
		if !ok {
			rg := ls.write(rootTarget)
			return &deletionPath{root: rg, top: ls.write(nodeTarget(rg.rootID()))}
		}

		if top, ok := t.lockStable(ls, anc, key, canShrink); ok {
			return &deletionPath{top: top}
		}
	}
}

// canSpare peeks whether the node can lose an entry without becoming
// deficient. The caller holds the parent's write lock.
func (t *BTree) canSpare(ls *LockSet, id base.NodeID) bool {
	g := ls.tempRead(nodeTarget(id))
	defer g.release()
	return canShrink(g.node())
}

// rebalance fixes a deficient node with its pre-locked sibling.
func (t *BTree) rebalance(ls *LockSet, step deletionStep) algo.Rebalance {
	parent := step.parent.node()
	left, right := step.sibling.node(), step.node.node()
	if parent.IndexOfChild(left.ID) > parent.IndexOfChild(right.ID) {
		left, right = right, left
	}
	leftIdx := parent.IndexOfChild(left.ID)

	plan := algo.PlanRebalance(left, right)
	switch plan {
	case algo.RotateLeft:
		algo.ApplyRotateLeft(parent, leftIdx, left, right)
		t.stats.rotations.Add(1)
	case algo.RotateRight:
		algo.ApplyRotateRight(parent, leftIdx, left, right)
		t.stats.rotations.Add(1)
	case algo.Merge:
		entry := t.store.Allocate()
		g := ls.holdWrite(nodeTarget(entry.ID()))
		g.setNode(algo.ApplyMerge(parent, leftIdx, left, right, entry.ID()))
		t.stats.merges.Add(1)
	}
	return plan
}

// shrinkRoot makes the only child of an interior root the new root.
func (t *BTree) shrinkRoot(rg, top *guard) {
	n := top.node()
	if n.Leaf || len(n.Children) != 1 {
		return
	}
	if rg.rootID() != n.ID {
		panic(fmt.Sprintf("blinktree: root identifier %s moved while node %s was locked as root", rg.rootID(), n.ID))
	}

	rg.setRootID(n.Children[0])
	t.stats.rootShrinks.Add(1)
	t.logger.Info("root shrank", "root", n.Children[0], "height", n.Level)
}
