package algo

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alexhholmes/blinktree/internal/base"
)

func TestPlanRebalance(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		left  *base.Node
		right *base.Node
		want  Rebalance
	}{
		{
			name:  "right_can_spare",
			left:  makeLeaf("l", 4, "a"),
			right: makeLeaf("r", 4, "c", "d", "e"),
			want:  RotateLeft,
		},
		{
			name:  "left_can_spare",
			left:  makeLeaf("l", 4, "a", "b", "c"),
			right: makeLeaf("r", 4, "e"),
			want:  RotateRight,
		},
		{
			name:  "neither_can_spare",
			left:  makeLeaf("l", 4, "a"),
			right: makeLeaf("r", 4, "c", "d"),
			want:  Merge,
		},
		{
			name:  "both_can_spare",
			left:  makeLeaf("l", 4, "a", "b", "c"),
			right: makeLeaf("r", 4, "d", "e", "f"),
			want:  NoRebalance,
		},
		{
			name:  "odd_capacity_leaf_merge_fits",
			left:  makeLeaf("l", 5, "a", "b"),
			right: makeLeaf("r", 5, "c", "d", "e"),
			want:  Merge,
		},
		{
			name:  "odd_capacity_interior_merge_overflows",
			left:  makeInterior("l", 5, []string{"b", "d"}, []base.NodeID{"c0", "c1", "c2"}),
			right: makeInterior("r", 5, []string{"h", "j", "l"}, []base.NodeID{"c3", "c4", "c5", "c6"}),
			want:  NoRebalance,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PlanRebalance(tt.left, tt.right), tt.want.String())
		})
	}
}

func TestRotateLeftLeaf(t *testing.T) {
	t.Parallel()

	left := makeLeaf("l", 4, "a")
	left.MaxValue, left.Next = base.Bounded("b"), "r"
	right := makeLeaf("r", 4, "c", "d", "e", "f")
	parent := makeInterior("p", 4, []string{"b"}, []base.NodeID{"l", "r"})

	ApplyRotateLeft(parent, 0, left, right)

	assert.Equal(t, []string{"a", "c"}, left.Keys)
	assert.Equal(t, []string{"d", "e", "f"}, right.Keys)
	assert.Equal(t, []string{"c"}, parent.Keys)
	assert.Equal(t, base.Bounded("c"), left.MaxValue)
	assert.True(t, right.MaxValue.IsInfinity())
}

func TestRotateRightLeaf(t *testing.T) {
	t.Parallel()

	left := makeLeaf("l", 4, "a", "b", "c", "d")
	left.MaxValue, left.Next = base.Bounded("e"), "r"
	right := makeLeaf("r", 4, "f")
	parent := makeInterior("p", 4, []string{"e"}, []base.NodeID{"l", "r"})

	ApplyRotateRight(parent, 0, left, right)

	assert.Equal(t, []string{"a", "b", "c"}, left.Keys)
	assert.Equal(t, []string{"d", "f"}, right.Keys)
	assert.Equal(t, []string{"c"}, parent.Keys)
	assert.Equal(t, base.Bounded("c"), left.MaxValue)
}

func TestRotateLeftInterior(t *testing.T) {
	t.Parallel()

	left := makeInterior("l", 4, []string{"b"}, []base.NodeID{"l0", "l1"})
	left.Level = 2
	left.MaxValue, left.Next = base.Bounded("d"), "r"
	right := makeInterior("r", 4, []string{"f", "h", "j"}, []base.NodeID{"r0", "r1", "r2", "r3"})
	right.Level = 2
	parent := makeInterior("p", 4, []string{"d"}, []base.NodeID{"l", "r"})

	ApplyRotateLeft(parent, 0, left, right)

	assert.Equal(t, []string{"b", "d"}, left.Keys)
	assert.Equal(t, []base.NodeID{"l0", "l1", "r0"}, left.Children)
	assert.Equal(t, []string{"h", "j"}, right.Keys)
	assert.Equal(t, []base.NodeID{"r1", "r2", "r3"}, right.Children)
	assert.Equal(t, []string{"f"}, parent.Keys)
	assert.Equal(t, base.Bounded("f"), left.MaxValue)
}

func TestRotateRightInterior(t *testing.T) {
	t.Parallel()

	left := makeInterior("l", 4, []string{"b", "d", "f"}, []base.NodeID{"l0", "l1", "l2", "l3"})
	left.MaxValue, left.Next = base.Bounded("h"), "r"
	right := makeInterior("r", 4, []string{"j"}, []base.NodeID{"r0", "r1"})
	parent := makeInterior("p", 4, []string{"h"}, []base.NodeID{"l", "r"})
	parent.Level = 2

	ApplyRotateRight(parent, 0, left, right)

	assert.Equal(t, []string{"b", "d"}, left.Keys)
	assert.Equal(t, []base.NodeID{"l0", "l1", "l2"}, left.Children)
	assert.Equal(t, []string{"h", "j"}, right.Keys)
	assert.Equal(t, []base.NodeID{"l3", "r0", "r1"}, right.Children)
	assert.Equal(t, []string{"f"}, parent.Keys)
	assert.Equal(t, base.Bounded("f"), left.MaxValue)
}

func TestMergeLeaves(t *testing.T) {
	t.Parallel()

	left := makeLeaf("l", 4, "a")
	left.MaxValue, left.Next = base.Bounded("b"), "r"
	right := makeLeaf("r", 4, "c", "d")
	right.MaxValue, right.Next = base.Bounded("g"), "x"
	parent := makeInterior("p", 4, []string{"b", "g"}, []base.NodeID{"l", "r", "x"})

	merged := ApplyMerge(parent, 0, left, right, "m")

	assert.Equal(t, base.NodeID("m"), merged.ID)
	assert.True(t, merged.Leaf)
	assert.Equal(t, []string{"a", "c", "d"}, merged.Keys)
	assert.Equal(t, base.Bounded("g"), merged.MaxValue)
	assert.Equal(t, base.NodeID("x"), merged.Next)

	assert.Equal(t, []string{"g"}, parent.Keys)
	assert.Equal(t, []base.NodeID{"m", "x"}, parent.Children)

	for _, old := range []*base.Node{left, right} {
		assert.True(t, old.Retired)
		assert.Equal(t, base.NodeID("m"), old.Next)
		assert.True(t, old.MustMoveRight("a"))
	}
}

func TestMergeInterior(t *testing.T) {
	t.Parallel()

	left := makeInterior("l", 4, []string{"b"}, []base.NodeID{"l0", "l1"})
	left.MaxValue, left.Next = base.Bounded("d"), "r"
	right := makeInterior("r", 4, []string{"f", "h"}, []base.NodeID{"r0", "r1", "r2"})
	parent := makeInterior("p", 4, []string{"d"}, []base.NodeID{"l", "r"})
	parent.Level = 2

	assert.Equal(t, Merge, PlanRebalance(left, right))
	merged := ApplyMerge(parent, 0, left, right, "m")

	assert.Equal(t, []string{"b", "d", "f", "h"}, merged.Keys)
	assert.Equal(t, []base.NodeID{"l0", "l1", "r0", "r1", "r2"}, merged.Children)
	assert.True(t, merged.MaxValue.IsInfinity())
	assert.Empty(t, parent.Keys)
	assert.Equal(t, []base.NodeID{"m"}, parent.Children)
}

func TestRebalanceRejectsNonAdjacent(t *testing.T) {
	t.Parallel()

	left := makeLeaf("l", 4, "a")
	right := makeLeaf("r", 4, "c", "d", "e")
	parent := makeInterior("p", 4, []string{"b", "f"}, []base.NodeID{"l", "x", "r"})

	assert.Panics(t, func() { ApplyRotateLeft(parent, 0, left, right) })
	assert.Panics(t, func() { ApplyMerge(parent, 1, left, right, "m") })
}
