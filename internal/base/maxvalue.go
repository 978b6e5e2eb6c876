package base

import "strconv"

// MaxValue is the upper bound of the keys reachable through a node: either a
// definite key or Infinity for the rightmost node of a level.
type MaxValue struct {
	key     string
	bounded bool
}

// Infinity returns the bound of the rightmost node on each level.
func Infinity() MaxValue {
	return MaxValue{}
}

// Bounded returns a definite bound.
func Bounded(key string) MaxValue {
	return MaxValue{key: key, bounded: true}
}

func (m MaxValue) IsInfinity() bool {
	return !m.bounded
}

// Key returns the definite bound, if any.
func (m MaxValue) Key() (string, bool) {
	return m.key, m.bounded
}

// Covers reports key <= m.
func (m MaxValue) Covers(key string) bool {
	return !m.bounded || key <= m.key
}

func (m MaxValue) String() string {
	if !m.bounded {
		return "+inf"
	}
	return strconv.Quote(m.key)
}
