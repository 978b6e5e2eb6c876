package blinktree

// InsertionResult reports what an insert did.
type InsertionResult int

const (
	Inserted InsertionResult = iota
	InsertedWithSplit
	AlreadyPresent
)

func (r InsertionResult) String() string {
	switch r {
	case Inserted:
		return "inserted"
	case InsertedWithSplit:
		return "inserted with split"
	case AlreadyPresent:
		return "already present"
	default:
		return "unknown"
	}
}

// DeletionResult reports what a delete did.
type DeletionResult int

const (
	Deleted DeletionResult = iota
	DeletedWithRebalance
	NotPresent
)

func (r DeletionResult) String() string {
	switch r {
	case Deleted:
		return "deleted"
	case DeletedWithRebalance:
		return "deleted with rebalance"
	case NotPresent:
		return "not present"
	default:
		return "unknown"
	}
}
