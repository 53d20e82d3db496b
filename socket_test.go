package udtnet

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"
)

// fakeTransport buffers datagrams in memory and reports would-block when the
// queue is empty. Send behavior is scripted through sendSteps.
type fakeTransport struct {
	lock      sync.Mutex
	fd        int
	recvQueue [][]byte
	sendSteps []sendStep
	sent      [][]byte
	closed    bool
}

type sendStep struct {
	written int
	err     error
}

func (f *fakeTransport) Fd() int {
	return f.fd
}

func (f *fakeTransport) Recv(buffer []byte) (int, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	if len(f.recvQueue) == 0 {
		return 0, ErrWouldBlock
	}
	data := f.recvQueue[0]
	f.recvQueue = f.recvQueue[1:]
	return copy(buffer, data), nil
}

func (f *fakeTransport) Send(buffer []byte) (int, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	if len(f.sendSteps) > 0 {
		step := f.sendSteps[0]
		f.sendSteps = f.sendSteps[1:]
		return step.written, step.err
	}
	f.sent = append(f.sent, append([]byte(nil), buffer...))
	return len(buffer), nil
}

func (f *fakeTransport) Close() error {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.closed = true
	return nil
}

func (f *fakeTransport) push(data []byte) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.recvQueue = append(f.recvQueue, data)
}

func TestSocketReadParksUntilReadable(t *testing.T) {
	query := newFakeQuery()
	poller := startTestPoller(query)
	defer poller.Stop()

	transport := &fakeTransport{fd: 17}
	socket := NewSocket(transport, poller)

	type readResult struct {
		n   int
		err error
	}
	result := make(chan readResult, 1)
	buffer := make([]byte, 64)
	go func() {
		n, err := socket.ReadSome(context.Background(), buffer)
		result <- readResult{n: n, err: err}
	}()
	eventually(t, func() bool { return query.isArmed(17, directionRead) })

	transport.push([]byte("hello"))
	query.events <- fakeEvents{readReady: []int{17}}
	select {
	case r := <-result:
		if r.err != nil {
			t.Fatalf("expected successful read, got: %+v", r.err)
		}
		if !bytes.Equal(buffer[:r.n], []byte("hello")) {
			t.Fatalf("unexpected read payload: %q", buffer[:r.n])
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("reader was not resumed")
	}
	if stats := socket.GetStats(); stats.TotalReceivedBytes != 5 {
		t.Fatalf("expected 5 received bytes in stats, got %d", stats.TotalReceivedBytes)
	}
}

func TestSocketSpuriousWakeupParksAgain(t *testing.T) {
	query := newFakeQuery()
	poller := startTestPoller(query)
	defer poller.Stop()

	transport := &fakeTransport{fd: 18}
	socket := NewSocket(transport, poller)

	result := make(chan error, 1)
	go func() {
		_, err := socket.ReadSome(context.Background(), make([]byte, 8))
		result <- err
	}()
	eventually(t, func() bool { return query.armCount(18, directionRead) == 1 })

	// Readiness without data: the retry hits would-block and parks again.
	query.events <- fakeEvents{readReady: []int{18}}
	eventually(t, func() bool { return query.armCount(18, directionRead) == 2 })

	transport.push([]byte("x"))
	query.events <- fakeEvents{readReady: []int{18}}
	if err := <-result; err != nil {
		t.Fatalf("expected successful read after requeue, got: %+v", err)
	}
}

func TestSocketWriteRetriesZeroByteSend(t *testing.T) {
	query := newFakeQuery()
	poller := startTestPoller(query)
	defer poller.Stop()

	transport := &fakeTransport{
		fd: 42,
		sendSteps: []sendStep{
			{written: 0, err: nil},
			{written: 0, err: ErrWouldBlock},
		},
	}
	socket := NewSocket(transport, poller)

	type writeResult struct {
		n   int
		err error
	}
	result := make(chan writeResult, 1)
	go func() {
		n, err := socket.WriteSome(context.Background(), []byte("payload"))
		result <- writeResult{n: n, err: err}
	}()

	// Two stalled attempts, two parks on write readiness.
	eventually(t, func() bool { return query.armCount(42, directionWrite) == 1 })
	query.events <- fakeEvents{writeReady: []int{42}}
	eventually(t, func() bool { return query.armCount(42, directionWrite) == 2 })
	query.events <- fakeEvents{writeReady: []int{42}}

	select {
	case r := <-result:
		if r.err != nil {
			t.Fatalf("expected successful write, got: %+v", r.err)
		}
		if r.n != len("payload") {
			t.Fatalf("expected full write, got %d bytes", r.n)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("writer was not resumed")
	}
	if stats := socket.GetStats(); stats.TotalSentBytes != uint64(len("payload")) {
		t.Fatalf("expected %d sent bytes in stats, got %d", len("payload"), stats.TotalSentBytes)
	}
}

func TestSocketStatsReadableWhileReading(t *testing.T) {
	query := newFakeQuery()
	poller := startTestPoller(query)
	defer poller.Stop()

	transport := &fakeTransport{fd: 23}
	socket := NewSocket(transport, poller)

	const datagrams = 200
	for i := 0; i < datagrams; i++ {
		transport.push([]byte("datagram"))
	}

	// Another goroutine polls the stats while reads are in flight, the way
	// the holder's ticker does.
	stopStats := make(chan struct{})
	statsDone := make(chan struct{})
	readsDone := make(chan error, 1)
	go func() {
		defer close(statsDone)
		for {
			select {
			case <-stopStats:
				return
			default:
				socket.GetStats()
			}
		}
	}()
	go func() {
		buffer := make([]byte, 64)
		for i := 0; i < datagrams; i++ {
			if _, err := socket.ReadSome(context.Background(), buffer); err != nil {
				readsDone <- err
				return
			}
		}
		readsDone <- nil
	}()

	select {
	case err := <-readsDone:
		if err != nil {
			t.Fatalf("got error while reading: %+v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("reads did not finish")
	}
	close(stopStats)
	<-statsDone
	expected := uint64(datagrams * len("datagram"))
	if stats := socket.GetStats(); stats.TotalReceivedBytes != expected {
		t.Fatalf("expected %d received bytes in stats, got %d", expected, stats.TotalReceivedBytes)
	}
}

func TestSocketClose(t *testing.T) {
	query := newFakeQuery()
	poller := startTestPoller(query)
	defer poller.Stop()

	transport := &fakeTransport{fd: 19}
	socket := NewSocket(transport, poller)
	if err := socket.Close(); err != nil {
		t.Fatalf("close failed: %+v", err)
	}
	if !transport.closed {
		t.Fatalf("transport was not closed")
	}
}
