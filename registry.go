package udtnet

import "sync"

const registryStripes = 8

// waitRegistry maps a socket descriptor to the single pending wait handle for
// one direction. Locks are striped by descriptor and held only for the map
// operation itself, never across arming or fulfillment.
type waitRegistry struct {
	stripes []*registryStripe
}

type registryStripe struct {
	lock    sync.Mutex
	waiters map[int]*WaitHandle
}

func newWaitRegistry() *waitRegistry {
	stripes := make([]*registryStripe, registryStripes)
	for i := range stripes {
		stripes[i] = &registryStripe{waiters: make(map[int]*WaitHandle)}
	}
	return &waitRegistry{stripes: stripes}
}

func (r *waitRegistry) stripe(fd int) *registryStripe {
	return r.stripes[JumpHash(uint64(fd), registryStripes)]
}

// register inserts the handle for fd. A second live handle for the same
// descriptor is a usage error: overwriting would orphan the first waiter.
func (r *waitRegistry) register(fd int, handle *WaitHandle) error {
	s := r.stripe(fd)
	s.lock.Lock()
	defer s.lock.Unlock()
	if _, ok := s.waiters[fd]; ok {
		return ErrWaitConflict
	}
	s.waiters[fd] = handle
	return nil
}

// takeAndRemove atomically removes and returns the handle for fd, or nil when
// no one is waiting.
func (r *waitRegistry) takeAndRemove(fd int) *WaitHandle {
	s := r.stripe(fd)
	s.lock.Lock()
	defer s.lock.Unlock()
	handle, ok := s.waiters[fd]
	if !ok {
		return nil
	}
	delete(s.waiters, fd)
	return handle
}

// drain removes and returns every pending handle.
func (r *waitRegistry) drain() []*WaitHandle {
	var handles []*WaitHandle
	for _, s := range r.stripes {
		s.lock.Lock()
		for fd, handle := range s.waiters {
			handles = append(handles, handle)
			delete(s.waiters, fd)
		}
		s.lock.Unlock()
	}
	return handles
}

func (r *waitRegistry) pending() int {
	total := 0
	for _, s := range r.stripes {
		s.lock.Lock()
		total += len(s.waiters)
		s.lock.Unlock()
	}
	return total
}
