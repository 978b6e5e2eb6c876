// Package algo contains algorithms used for traversing and editing nodes of a
// b-link tree. Nothing here takes locks: callers hold the write latch of every
// node passed in.
package algo

import (
	"fmt"
	"slices"
	"sort"

	"github.com/alexhholmes/blinktree/internal/base"
)

const searchThreshold = 32

// Search returns the position of the first key >= key and whether it is an
// exact match.
func Search(keys []string, key string) (int, bool) {
	if len(keys) < searchThreshold {
		i := 0
		for i < len(keys) && keys[i] < key {
			i++
		}
		return i, i < len(keys) && keys[i] == key
	}

	i := sort.SearchStrings(keys, key)
	return i, i < len(keys) && keys[i] == key
}

// FindChildIndex returns the index of the child pointer to follow for key.
// Keys equal to a separator live on its left.
func FindChildIndex(node *base.Node, key string) int {
	if node.Leaf {
		panic(fmt.Sprintf("blinktree: child lookup on leaf %s", node.ID))
	}
	i, _ := Search(node.Keys, key)
	return i
}

// ChildByKey returns the child identifier to follow for key.
func ChildByKey(node *base.Node, key string) base.NodeID {
	return node.Children[FindChildIndex(node, key)]
}

// ContainsKey reports whether leaf holds key.
func ContainsKey(leaf *base.Node, key string) bool {
	_, found := Search(leaf.Keys, key)
	return found
}

// InsertKey adds key to leaf in sorted position. Returns false if the key was
// already present.
func InsertKey(leaf *base.Node, key string) bool {
	if !leaf.Leaf {
		panic(fmt.Sprintf("blinktree: key insert into interior node %s", leaf.ID))
	}
	i, found := Search(leaf.Keys, key)
	if found {
		return false
	}
	leaf.Keys = slices.Insert(leaf.Keys, i, key)
	return true
}

// DeleteKey removes key from leaf. Returns false if it was not present.
func DeleteKey(leaf *base.Node, key string) bool {
	if !leaf.Leaf {
		panic(fmt.Sprintf("blinktree: key delete from interior node %s", leaf.ID))
	}
	i, found := Search(leaf.Keys, key)
	if !found {
		return false
	}
	leaf.Keys = slices.Delete(leaf.Keys, i, i+1)
	return true
}

// InsertSeparator publishes a child split in its parent: the median goes into
// the separators and the new right node becomes the child directly after the
// split node.
func InsertSeparator(parent *base.Node, split base.SplitInfo) {
	if parent.Leaf {
		panic(fmt.Sprintf("blinktree: separator insert into leaf %s", parent.ID))
	}
	i, found := Search(parent.Keys, split.Median)
	if found {
		panic(fmt.Sprintf("blinktree: separator %q already present in node %s", split.Median, parent.ID))
	}
	if parent.Children[i] != split.Left {
		panic(fmt.Sprintf("blinktree: node %s routes %q to %s, not to split node %s", parent.ID, split.Median, parent.Children[i], split.Left))
	}
	parent.Keys = slices.Insert(parent.Keys, i, split.Median)
	parent.Children = slices.Insert(parent.Children, i+1, split.Right)
}

// Split moves the upper half of node into a new right sibling identified by
// rightID. node keeps the lower half, its MaxValue drops to the median and its
// Next points at the new sibling, which inherits the old bound and link.
func Split(node *base.Node, rightID base.NodeID) (base.SplitInfo, *base.Node) {
	right := &base.Node{
		ID:       rightID,
		Leaf:     node.Leaf,
		Level:    node.Level,
		Capacity: node.Capacity,
		MaxValue: node.MaxValue,
		Next:     node.Next,
	}

	var median string
	if node.Leaf {
		if len(node.Keys) < 2 {
			panic(fmt.Sprintf("blinktree: cannot split leaf %s with %d keys", node.ID, len(node.Keys)))
		}
		keep := (len(node.Keys) + 1) / 2
		median = node.Keys[keep-1]
		right.Keys = growable(node.Keys[keep:], node.Capacity+1)
		clear(node.Keys[keep:])
		node.Keys = node.Keys[:keep]
	} else {
		if len(node.Keys) < 3 {
			panic(fmt.Sprintf("blinktree: cannot split interior node %s with %d separators", node.ID, len(node.Keys)))
		}
		m := (len(node.Keys) - 1) / 2
		median = node.Keys[m]
		right.Keys = growable(node.Keys[m+1:], node.Capacity+1)
		right.Children = growableIDs(node.Children[m+1:], node.Capacity+2)
		clear(node.Keys[m:])
		clear(node.Children[m+1:])
		node.Keys = node.Keys[:m]
		node.Children = node.Children[:m+1]
	}

	node.MaxValue = base.Bounded(median)
	node.Next = rightID

	return base.SplitInfo{
		Median: median,
		Left:   node.ID,
		Right:  rightID,
		Level:  node.Level,
	}, right
}

func growable(src []string, capacity int) []string {
	dst := make([]string, len(src), max(capacity, len(src)))
	copy(dst, src)
	return dst
}

func growableIDs(src []base.NodeID, capacity int) []base.NodeID {
	dst := make([]base.NodeID, len(src), max(capacity, len(src)))
	copy(dst, src)
	return dst
}
