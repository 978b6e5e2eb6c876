package blinktree

import (
	"fmt"
	"strconv"

	"github.com/alexhholmes/blinktree/internal/base"
)

// Validate walks the whole tree and panics with the first violated invariant.
// It is a diagnostic for quiescent trees: it read-locks every node and holds
// the locks of a whole root-to-leaf path at once.
func (t *BTree) Validate(ls *LockSet) {
	if err := t.validate(ls); err != nil {
		panic(err)
	}
}

// Check is Validate returning the violation, wrapped in ErrCorruption,
// instead of panicking.
func (t *BTree) Check(ls *LockSet) error {
	err := t.validate(ls)
	if err != nil {
		t.logger.Error("tree validation failed", "error", err)
	}
	return err
}

func (t *BTree) validate(ls *LockSet) error {
	t.checkLockSet(ls)

	rg := ls.tempRead(rootTarget)
	defer rg.release()

	v := validator{ls: ls}
	_, err := v.node(rg.rootID(), lowerBound{}, base.Infinity())
	return err
}

// lowerBound is the exclusive lower bound of a subtree. The zero value is
// negative infinity.
type lowerBound struct {
	key string
	set bool
}

func (b lowerBound) below(key string) bool {
	return !b.set || b.key < key
}

func (b lowerBound) String() string {
	if !b.set {
		return "-inf"
	}
	return strconv.Quote(b.key)
}

type validator struct {
	ls *LockSet
}

func corrupt(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCorruption, fmt.Sprintf(format, args...))
}

// node checks the subtree rooted at id against the bounds its parent implies
// and returns its level.
func (v *validator) node(id base.NodeID, lo lowerBound, hi base.MaxValue) (int, error) {
	g := v.ls.tempRead(nodeTarget(id))
	defer g.release()
	n := g.node()

	if n.Retired {
		return 0, corrupt("retired node %s is still referenced", id)
	}
	if n.MaxValue != hi {
		return 0, corrupt("node %s declares max value %s, parent expects %s", id, n.MaxValue, hi)
	}
	if n.Len() > n.Capacity {
		return 0, corrupt("node %s holds %d entries, capacity is %d", id, n.Len(), n.Capacity)
	}
	for i, key := range n.Keys {
		if i > 0 && n.Keys[i-1] >= key {
			return 0, corrupt("node %s keys not strictly ascending: %q then %q", id, n.Keys[i-1], key)
		}
		if !lo.below(key) {
			return 0, corrupt("node %s key %q not above lower bound %s", id, key, lo)
		}
		if !hi.Covers(key) {
			return 0, corrupt("node %s key %q above max value %s", id, key, hi)
		}
	}

	if n.Leaf {
		if n.Level != 0 {
			return 0, corrupt("leaf %s at level %d", id, n.Level)
		}
		return 0, nil
	}

	if len(n.Children) != len(n.Keys)+1 {
		return 0, corrupt("node %s has %d separators and %d children", id, len(n.Keys), len(n.Children))
	}
	for i, child := range n.Children {
		level, err := v.node(child, lo, n.ExpectedChildMax(i))
		if err != nil {
			return 0, err
		}
		if level != n.Level-1 {
			return 0, corrupt("child %s of node %s at level %d, expected %d", child, id, level, n.Level-1)
		}
		if i+1 < len(n.Children) {
			if err := v.link(child, n.Children[i+1]); err != nil {
				return 0, err
			}
		}
		if i < len(n.Keys) {
			lo = lowerBound{key: n.Keys[i], set: true}
		}
	}
	return n.Level, nil
}

// link checks that the right pointer of from reaches to, passing only
// through nodes retired by merges.
func (v *validator) link(from, to base.NodeID) error {
	g := v.ls.tempRead(nodeTarget(from))
	next := g.node().Next
	g.release()

	seen := map[base.NodeID]bool{from: true}
	for next != to {
		if next == "" || seen[next] {
			return corrupt("right link of node %s does not reach sibling %s", from, to)
		}
		seen[next] = true

		g := v.ls.tempRead(nodeTarget(next))
		n := g.node()
		retired, forward := n.Retired, n.Next
		g.release()
		if !retired {
			return corrupt("node %s links to %s, expected sibling %s", from, next, to)
		}
		next = forward
	}
	return nil
}
