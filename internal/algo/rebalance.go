package algo

import (
	"fmt"
	"slices"

	"github.com/alexhholmes/blinktree/internal/base"
)

// Rebalance is the fix chosen for a deficient node and its sibling.
type Rebalance int

const (
	// NoRebalance leaves the pair alone.
	NoRebalance Rebalance = iota
	// RotateLeft moves entries from the right sibling into the left one.
	RotateLeft
	// RotateRight moves entries from the left sibling into the right one.
	RotateRight
	// Merge folds both siblings into one new node.
	Merge
)

func (r Rebalance) String() string {
	switch r {
	case RotateLeft:
		return "rotate-left"
	case RotateRight:
		return "rotate-right"
	case Merge:
		return "merge"
	default:
		return "none"
	}
}

// PlanRebalance picks how to fix an adjacent pair after one of them became
// deficient. Rotation wins whenever a side can spare entries; otherwise the
// pair merges if the result fits in one node.
func PlanRebalance(left, right *base.Node) Rebalance {
	leftSpare := left.CanDeleteWithoutBecomingDeficient()
	rightSpare := right.CanDeleteWithoutBecomingDeficient()

	switch {
	case leftSpare && rightSpare:
		return NoRebalance
	case rightSpare:
		return RotateLeft
	case leftSpare:
		return RotateRight
	case MergedLen(left, right) <= left.Capacity:
		return Merge
	default:
		return NoRebalance
	}
}

// MergedLen is the entry count of the node a merge of left and right produces.
// Interior merges pull the parent separator down between the halves.
func MergedLen(left, right *base.Node) int {
	n := len(left.Keys) + len(right.Keys)
	if !left.Leaf {
		n++
	}
	return n
}

func rotateCount(from, to *base.Node) int {
	return max(1, (len(from.Keys)-len(to.Keys))/2)
}

// ApplyRotateLeft moves entries from right into left and updates the
// separator at parent.Keys[leftIdx].
func ApplyRotateLeft(parent *base.Node, leftIdx int, left, right *base.Node) {
	checkPair(parent, leftIdx, left, right)
	m := rotateCount(right, left)

	var sep string
	if left.Leaf {
		left.Keys = append(left.Keys, right.Keys[:m]...)
		right.Keys = slices.Delete(right.Keys, 0, m)
		sep = left.Keys[len(left.Keys)-1]
	} else {
		left.Keys = append(left.Keys, parent.Keys[leftIdx])
		left.Keys = append(left.Keys, right.Keys[:m-1]...)
		left.Children = append(left.Children, right.Children[:m]...)
		sep = right.Keys[m-1]
		right.Keys = slices.Delete(right.Keys, 0, m)
		right.Children = slices.Delete(right.Children, 0, m)
	}

	parent.Keys[leftIdx] = sep
	left.MaxValue = base.Bounded(sep)
}

// ApplyRotateRight moves entries from left into right and updates the
// separator at parent.Keys[leftIdx].
func ApplyRotateRight(parent *base.Node, leftIdx int, left, right *base.Node) {
	checkPair(parent, leftIdx, left, right)
	m := rotateCount(left, right)
	k := len(left.Keys)

	var sep string
	if left.Leaf {
		right.Keys = slices.Insert(right.Keys, 0, left.Keys[k-m:]...)
		clear(left.Keys[k-m:])
		left.Keys = left.Keys[:k-m]
		sep = left.Keys[len(left.Keys)-1]
	} else {
		moved := make([]string, 0, m)
		moved = append(moved, left.Keys[k-m+1:]...)
		moved = append(moved, parent.Keys[leftIdx])
		right.Keys = slices.Insert(right.Keys, 0, moved...)
		right.Children = slices.Insert(right.Children, 0, left.Children[k+1-m:]...)
		sep = left.Keys[k-m]
		clear(left.Keys[k-m:])
		clear(left.Children[k+1-m:])
		left.Keys = left.Keys[:k-m]
		left.Children = left.Children[:k+1-m]
	}

	parent.Keys[leftIdx] = sep
	left.MaxValue = base.Bounded(sep)
}

// ApplyMerge folds left and right into a new node identified by mergedID.
// The parent loses the separator between them and the right child pointer;
// both inputs are retired and forward to the merged node.
func ApplyMerge(parent *base.Node, leftIdx int, left, right *base.Node, mergedID base.NodeID) *base.Node {
	checkPair(parent, leftIdx, left, right)

	keys := make([]string, 0, max(left.Capacity+1, MergedLen(left, right)))
	keys = append(keys, left.Keys...)
	if !left.Leaf {
		keys = append(keys, parent.Keys[leftIdx])
	}
	keys = append(keys, right.Keys...)

	merged := &base.Node{
		ID:       mergedID,
		Leaf:     left.Leaf,
		Level:    left.Level,
		Capacity: left.Capacity,
		Keys:     keys,
		MaxValue: right.MaxValue,
		Next:     right.Next,
	}
	if !left.Leaf {
		merged.Children = make([]base.NodeID, 0, left.Capacity+2)
		merged.Children = append(merged.Children, left.Children...)
		merged.Children = append(merged.Children, right.Children...)
	}

	parent.Keys = slices.Delete(parent.Keys, leftIdx, leftIdx+1)
	parent.Children = slices.Delete(parent.Children, leftIdx+1, leftIdx+2)
	parent.Children[leftIdx] = mergedID

	left.Retire(mergedID)
	right.Retire(mergedID)
	return merged
}

func checkPair(parent *base.Node, leftIdx int, left, right *base.Node) {
	if leftIdx < 0 || leftIdx+1 >= len(parent.Children) ||
		parent.Children[leftIdx] != left.ID || parent.Children[leftIdx+1] != right.ID {
		panic(fmt.Sprintf("blinktree: nodes %s and %s are not adjacent children of %s at %d", left.ID, right.ID, parent.ID, leftIdx))
	}
	if left.Leaf != right.Leaf || left.Level != right.Level {
		panic(fmt.Sprintf("blinktree: nodes %s and %s are on different levels", left.ID, right.ID))
	}
}
