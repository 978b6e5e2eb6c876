package blinktree

import "errors"

//goland:noinspection GoUnusedGlobalVariable
var (
	ErrInvalidCapacity = errors.New("max key capacity must be at least 2")
	ErrCorruption      = errors.New("tree corruption detected")

	ErrTxConflict = errors.New("transaction aborted after repeated lock conflicts")
)
