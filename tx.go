package blinktree

import (
	"math/rand/v2"
	"time"
)

// View runs fn in a ReadOnly transaction and closes it afterwards.
//
// If a lookup inside fn waits too long for a lock while the transaction
// already retains others, the transaction is aborted: every lock is released
// and fn runs again from the start. fn may therefore run more than once.
func (t *BTree) View(fn func(ls *LockSet) error) error {
	return t.runTx(ReadOnly, fn)
}

// Update runs fn in a ReadWrite transaction and closes it afterwards.
//
// Lock conflicts between transactions running several operations are
// resolved like in View, by aborting and rerunning fn. Operations completed
// by an aborted attempt stay applied; since inserts and deletes are
// idempotent, the rerun converges to the same tree. The error returned by fn
// is returned as is.
func (t *BTree) Update(fn func(ls *LockSet) error) error {
	return t.runTx(ReadWrite, fn)
}

func (t *BTree) runTx(mode TransactionMode, fn func(ls *LockSet) error) error {
	for attempt := 1; ; attempt++ {
		conflict, err := runAbortable(newLockSet(t, mode, true), fn)
		if conflict == nil {
			return err
		}

		t.stats.aborts.Add(1)
		t.logger.Warn("transaction aborted on lock conflict",
			"mode", mode.String(), "attempt", attempt, "target", conflict.target.String())
		if t.opts.maxTxRetries > 0 && attempt >= t.opts.maxTxRetries {
			return ErrTxConflict
		}
		time.Sleep(retryDelay(attempt))
	}
}

// runAbortable runs fn and always closes ls. A lock conflict abort is turned
// into a return value; any other panic continues.
func runAbortable(ls *LockSet, fn func(ls *LockSet) error) (conflict *lockConflict, err error) {
	defer func() {
		ls.Close()
		if r := recover(); r != nil {
			c, ok := r.(*lockConflict)
			if !ok {
				panic(r)
			}
			conflict = c
		}
	}()
	return nil, fn(ls)
}

// retryDelay backs off exponentially with jitter so that transactions that
// aborted each other do not collide again in lockstep.
func retryDelay(attempt int) time.Duration {
	d := minRetryDelay << min(attempt, 10)
	d = min(d, 10*maxRetryDelay)
	return d/2 + rand.N(d/2+1)
}
