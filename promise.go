package udtnet

import (
	"context"
	"sync"
)

// WaitHandle is a one-shot promise for a single readiness event. It is
// completed exactly once: with nil by the poller loop, or with an error at
// teardown.
type WaitHandle struct {
	once sync.Once
	done chan struct{}
	err  error
}

func newWaitHandle() *WaitHandle {
	return &WaitHandle{done: make(chan struct{})}
}

func (h *WaitHandle) complete(err error) {
	h.once.Do(func() {
		h.err = err
		close(h.done)
	})
}

func (h *WaitHandle) completed() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// Wait suspends the caller until the handle is completed or ctx is done.
func (h *WaitHandle) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		return h.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
