package udtnet

import (
	"context"
	"runtime"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"go.uber.org/atomic"
)

const defPollTimeoutMs = 1000

type PollerConfig struct {
	Name            string
	LockOsThread    bool
	EventBufferSize int
	PollTimeoutMs   int
}

// Poller owns the readiness query and both wait registries and drives the
// background loop that resolves pending wait handles. It is an explicit
// service with a Start/Stop lifecycle, one per transport subsystem.
type Poller struct {
	Name         string
	lockOsThread bool
	timeoutMs    int
	started      *atomic.Bool
	running      *atomic.Bool
	closed       *atomic.Bool
	teardownOnce sync.Once
	loopDone     chan struct{}
	query        readinessQuery
	readWaiters  *waitRegistry
	writeWaiters *waitRegistry
}

func NewPoller(config PollerConfig) (*Poller, error) {
	query, err := openReadinessQuery(config.EventBufferSize)
	if err != nil {
		log.Error().Msgf("can't open readiness query: %+v", err)
		return nil, err
	}
	return newPoller(config, query), nil
}

func newPoller(config PollerConfig, query readinessQuery) *Poller {
	if log.Debug().Enabled() {
		log.Debug().Msgf("init poller:%+v", config)
	} else {
		log.Info().Msgf("init poller:%s", config.Name)
	}
	timeoutMs := config.PollTimeoutMs
	if timeoutMs <= 0 {
		timeoutMs = defPollTimeoutMs
	}
	return &Poller{
		Name:         config.Name,
		lockOsThread: config.LockOsThread,
		timeoutMs:    timeoutMs,
		started:      atomic.NewBool(false),
		running:      atomic.NewBool(false),
		closed:       atomic.NewBool(false),
		loopDone:     make(chan struct{}),
		query:        query,
		readWaiters:  newWaitRegistry(),
		writeWaiters: newWaitRegistry(),
	}
}

// Start runs the readiness loop until Stop is called or the readiness query
// fails. It blocks, so it is normally launched in its own goroutine.
func (p *Poller) Start() {
	if !p.started.CAS(false, true) {
		return
	}
	if p.lockOsThread {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
	}
	defer close(p.loopDone)
	p.running.Store(true)
	for p.running.Load() && !p.closed.Load() {
		readReady, writeReady, err := p.query.wait(p.timeoutMs)
		if err != nil {
			log.Error().Msgf("got error while waiting for readiness events: %+v", err)
			p.fail(errors.Wrap(err, "readiness query failed"))
			return
		}
		for _, fd := range readReady {
			if handle := p.readWaiters.takeAndRemove(fd); handle != nil {
				handle.complete(nil)
			}
		}
		for _, fd := range writeReady {
			if handle := p.writeWaiters.takeAndRemove(fd); handle != nil {
				handle.complete(nil)
			}
		}
	}
}

// Stop terminates the loop and fails every still-pending wait handle so no
// suspended caller is left hanging. Registrations arriving afterwards fail
// fast with ErrPollerClosed.
func (p *Poller) Stop() {
	p.closed.Store(true)
	p.running.Store(false)
	if p.started.Load() {
		<-p.loopDone
	}
	p.teardown(ErrPollerClosed)
}

// fail is the loop's own teardown path for a broken readiness query.
func (p *Poller) fail(err error) {
	p.closed.Store(true)
	p.running.Store(false)
	p.teardown(err)
}

// teardown fails every pending handle and closes the readiness query. It
// runs at most once: Stop and a loop failure can race, and closing the query
// descriptor twice could hit an unrelated descriptor reusing its number.
func (p *Poller) teardown(err error) {
	p.teardownOnce.Do(func() {
		p.drainAll(err)
		closeErr := p.query.close()
		if closeErr != nil {
			log.Error().Msgf("got error while closing readiness query: %+v", closeErr)
		}
	})
}

func (p *Poller) drainAll(err error) {
	for _, handle := range p.readWaiters.drain() {
		handle.complete(err)
	}
	for _, handle := range p.writeWaiters.drain() {
		handle.complete(err)
	}
}

// WaitForRead suspends the caller until fd is reported readable, the poller
// is torn down, or ctx is done.
func (p *Poller) WaitForRead(ctx context.Context, fd int) error {
	return p.waitFor(ctx, fd, directionRead, p.readWaiters)
}

// WaitForWrite suspends the caller until fd is reported writable, the poller
// is torn down, or ctx is done.
func (p *Poller) WaitForWrite(ctx context.Context, fd int) error {
	return p.waitFor(ctx, fd, directionWrite, p.writeWaiters)
}

func (p *Poller) waitFor(ctx context.Context, fd int, dir direction, registry *waitRegistry) error {
	if p.closed.Load() {
		return ErrPollerClosed
	}
	handle := newWaitHandle()
	err := registry.register(fd, handle)
	if err != nil {
		log.Debug().Msgf("[%d] can't register %s waiter: %+v", fd, dir, err)
		return err
	}
	if p.closed.Load() {
		// Lost the race with teardown: the drain may already have passed this
		// entry, so withdraw it ourselves if it is still there.
		if h := registry.takeAndRemove(fd); h != nil {
			h.complete(ErrPollerClosed)
		}
		return handle.Wait(ctx)
	}
	// Register before arming: the loop disarms a direction when it fires, so
	// an event must never be able to beat its own registration.
	err = p.query.arm(fd, dir)
	if err != nil {
		log.Error().Msgf("[%d] got error while arming %s readiness: %+v", fd, dir, err)
		if h := registry.takeAndRemove(fd); h != nil {
			h.complete(err)
		}
		return handle.Wait(ctx)
	}
	select {
	case <-handle.done:
		return handle.err
	case <-ctx.Done():
		if h := registry.takeAndRemove(fd); h != nil {
			h.complete(ctx.Err())
			return ctx.Err()
		}
		// Fulfillment won the race; report it rather than the cancellation.
		return handle.Wait(context.Background())
	}
}

// PendingWaiters reports the number of registered read and write waiters.
func (p *Poller) PendingWaiters() (int, int) {
	return p.readWaiters.pending(), p.writeWaiters.pending()
}
