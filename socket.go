package udtnet

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"go.uber.org/atomic"
)

// Socket pairs a non-blocking transport with the poller and exposes blocking
// read/write calls: attempt the I/O, park on readiness when it would block,
// retry on resume.
type Socket struct {
	id        string
	fd        int
	transport Transport
	poller    *Poller
	stats     *socketStats
}

// socketStats is written by the I/O goroutine and read by the holder's
// ticker goroutine, so the counters are atomic.
type socketStats struct {
	lastActivityTime   *atomic.Int64
	totalSentBytes     *atomic.Uint64
	totalReceivedBytes *atomic.Uint64
}

func NewSocket(transport Transport, poller *Poller) *Socket {
	fd := transport.Fd()
	return &Socket{
		id:        strconv.Itoa(fd),
		fd:        fd,
		transport: transport,
		poller:    poller,
		stats: &socketStats{
			lastActivityTime:   atomic.NewInt64(0),
			totalSentBytes:     atomic.NewUint64(0),
			totalReceivedBytes: atomic.NewUint64(0),
		},
	}
}

// ReadSome reads whatever the transport has buffered, suspending the caller
// until the socket becomes readable. Resumed waits requeue immediately: a
// spurious wakeup simply parks again.
func (s *Socket) ReadSome(ctx context.Context, buffer []byte) (int, error) {
	for {
		read, err := s.transport.Recv(buffer)
		if err == nil {
			s.stats.lastActivityTime.Store(time.Now().UnixMilli())
			s.stats.totalReceivedBytes.Add(uint64(read))
			return read, nil
		}
		if err != ErrWouldBlock {
			log.Debug().Msgf("[%d] got error while reading data from transport: %+v", s.fd, err)
			return 0, err
		}
		err = s.poller.WaitForRead(ctx, s.fd)
		if err != nil {
			return 0, err
		}
	}
}

// WriteSome writes as much of buffer as the transport accepts, suspending the
// caller until the socket becomes writable. A zero-byte send with data left
// is treated the same as would-block.
func (s *Socket) WriteSome(ctx context.Context, buffer []byte) (int, error) {
	for {
		written, err := s.transport.Send(buffer)
		if err == nil && (written > 0 || len(buffer) == 0) {
			s.stats.lastActivityTime.Store(time.Now().UnixMilli())
			s.stats.totalSentBytes.Add(uint64(written))
			return written, nil
		}
		if err != nil && err != ErrWouldBlock {
			log.Debug().Msgf("[%d] got error while writing data to transport: %+v", s.fd, err)
			return 0, err
		}
		err = s.poller.WaitForWrite(ctx, s.fd)
		if err != nil {
			return 0, err
		}
	}
}

func (s *Socket) Close() error {
	err := s.transport.Close()
	if err != nil {
		log.Debug().Msgf("closed socket error: %+v", err)
	}
	if log.Debug().Enabled() {
		log.Debug().Msgf("closed socket: %s", s.id)
	}
	return err
}

func (s *Socket) Fd() int {
	return s.fd
}

func (s *Socket) GetId() string {
	return s.id
}

func (s *Socket) GetStats() SocketStats {
	return SocketStats{
		LastActivityTime:   s.stats.lastActivityTime.Load(),
		TotalSentBytes:     s.stats.totalSentBytes.Load(),
		TotalReceivedBytes: s.stats.totalReceivedBytes.Load(),
	}
}
