package base

import "fmt"

// NodeID identifies a node in the store. The zero value names no node.
type NodeID string

// Node is a leaf or interior node of the B-link tree.
//
// Leaves keep their keys in Keys. Interior nodes keep separators in Keys and
// len(Keys)+1 child identifiers in Children: keys <= Keys[i] live under
// Children[i], keys greater than every separator live under the last child.
type Node struct {
	ID       NodeID
	Leaf     bool
	Level    int // 0 for leaves, parent level is child level + 1
	Capacity int // max keys (leaf) or separators (interior) before a split

	Keys     []string
	Children []NodeID

	// MaxValue is the largest key reachable through this node. Keys above it
	// moved right and are reached through Next.
	MaxValue MaxValue
	Next     NodeID

	// Retired nodes were replaced by a merge. Their content is gone and Next
	// points at the replacement.
	Retired bool
}

// SplitInfo describes a split that still has to be published in the parent
// level: Median separates Left from the freshly created Right.
type SplitInfo struct {
	Median string
	Left   NodeID
	Right  NodeID
	Level  int
}

// NewLeaf returns an empty leaf covering the whole key space.
func NewLeaf(id NodeID, capacity int) *Node {
	return &Node{
		ID:       id,
		Leaf:     true,
		Capacity: capacity,
		Keys:     make([]string, 0, capacity+1),
		MaxValue: Infinity(),
	}
}

// NewRoot returns the interior node that becomes the root when the old root
// split.
func NewRoot(id NodeID, split SplitInfo, capacity int) *Node {
	keys := make([]string, 1, capacity+1)
	keys[0] = split.Median
	children := make([]NodeID, 2, capacity+2)
	children[0], children[1] = split.Left, split.Right

	return &Node{
		ID:       id,
		Level:    split.Level + 1,
		Capacity: capacity,
		Keys:     keys,
		Children: children,
		MaxValue: Infinity(),
	}
}

// IsDeficientSize reports whether a node holding k entries is deficient: the
// largest deficient node can merge with the smallest sufficient one without
// exceeding capacity.
func IsDeficientSize(k, capacity int) bool {
	return k+(k+1) <= capacity
}

// Len returns the number of keys (leaf) or separators (interior).
func (n *Node) Len() int {
	return len(n.Keys)
}

func (n *Node) IsDeficient() bool {
	return IsDeficientSize(len(n.Keys), n.Capacity)
}

func (n *Node) IsOverfull() bool {
	return len(n.Keys) > n.Capacity
}

// CanGrowWithoutSplit reports whether one more entry fits.
func (n *Node) CanGrowWithoutSplit() bool {
	return len(n.Keys) < n.Capacity
}

// CanDeleteWithoutBecomingDeficient reports whether one entry can be removed
// without triggering a rebalance.
func (n *Node) CanDeleteWithoutBecomingDeficient() bool {
	if len(n.Keys) == 0 {
		return false
	}
	return !IsDeficientSize(len(n.Keys)-1, n.Capacity)
}

// MustMoveRight reports whether key lives to the right of this node, either
// because a split moved the boundary or because the node was retired.
func (n *Node) MustMoveRight(key string) bool {
	if n.Retired {
		if n.Next == "" {
			panic(fmt.Sprintf("blinktree: retired node %s has no forward pointer", n.ID))
		}
		return true
	}
	if n.MaxValue.Covers(key) {
		return false
	}
	if n.Next == "" {
		panic(fmt.Sprintf("blinktree: key %q above max value %s of node %s without right sibling", key, n.MaxValue, n.ID))
	}
	return true
}

// IndexOfChild returns the position of id in Children, or -1.
func (n *Node) IndexOfChild(id NodeID) int {
	for i, child := range n.Children {
		if child == id {
			return i
		}
	}
	return -1
}

// Siblings returns the children left and right of position idx. Missing
// siblings are returned as the zero NodeID.
func (n *Node) Siblings(idx int) (left, right NodeID) {
	if idx > 0 {
		left = n.Children[idx-1]
	}
	if idx+1 < len(n.Children) {
		right = n.Children[idx+1]
	}
	return left, right
}

// ExpectedChildMax returns the MaxValue child i must declare.
func (n *Node) ExpectedChildMax(i int) MaxValue {
	if i < len(n.Keys) {
		return Bounded(n.Keys[i])
	}
	return n.MaxValue
}

// Retire empties a node replaced by a merge and forwards it to replacement.
func (n *Node) Retire(replacement NodeID) {
	n.Retired = true
	n.Next = replacement
	n.Keys = nil
	n.Children = nil
}

func (n *Node) String() string {
	kind := "interior"
	if n.Leaf {
		kind = "leaf"
	}
	return fmt.Sprintf("%s %s level=%d keys=%d max=%s next=%q", kind, n.ID, n.Level, len(n.Keys), n.MaxValue, n.Next)
}
