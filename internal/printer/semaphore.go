package printer

import "context"

// semaphore is a counting semaphore whose Acquire honours a context, so time
// spent waiting for the device counts against the caller's deadline.
type semaphore struct {
	ch chan struct{}
}

func newSemaphore(size uint) *semaphore {
	return &semaphore{ch: make(chan struct{}, size)}
}

// Acquire increments the semaphore, blocking until a slot is free or ctx is done.
func (s *semaphore) Acquire(ctx context.Context) error {
	select {
	case s.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release decrements the semaphore. Releasing without a matching Acquire panics.
func (s *semaphore) Release() {
	select {
	case <-s.ch:
	default:
		panic("printer: semaphore released without being acquired")
	}
}
