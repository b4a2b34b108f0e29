package services

import "sync/atomic"

// CancelFlag is the cooperative cancellation signal shared by a job and the
// loops it drives. Loops check it between units of work; setting it never
// interrupts a unit already in progress. A nil flag is never canceled.
type CancelFlag struct {
	set atomic.Bool
}

// NewCancelFlag returns an unset flag.
func NewCancelFlag() *CancelFlag {
	return &CancelFlag{}
}

// Cancel sets the flag. It is safe to call repeatedly and concurrently.
func (f *CancelFlag) Cancel() {
	if f == nil {
		return
	}
	f.set.Store(true)
}

// Canceled reports whether Cancel has been called.
func (f *CancelFlag) Canceled() bool {
	if f == nil {
		return false
	}
	return f.set.Load()
}
