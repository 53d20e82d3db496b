package udtnet

import (
	"math"
	"os"
	"runtime"
	"sync"
	"syscall"
	"unsafe"

	"github.com/rs/zerolog/log"
	"golang.org/x/sys/unix"
)

const defEventsBufferSize = 256

const (
	readEvents  = unix.EPOLLPRI | unix.EPOLLIN
	writeEvents = unix.EPOLLOUT
	errorEvents = unix.EPOLLERR | unix.EPOLLHUP
)

type epollQuery struct {
	fd     int
	events []unix.EpollEvent
	lock   sync.Mutex
	armed  map[int]uint32
}

func openReadinessQuery(eventsBufferSize int) (readinessQuery, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, os.NewSyscallError("epoll_create1", err)
	}
	bufferSize := int(math.Max(float64(eventsBufferSize), defEventsBufferSize))
	return &epollQuery{
		fd:     fd,
		events: make([]unix.EpollEvent, bufferSize),
		armed:  make(map[int]uint32),
	}, nil
}

func directionEvents(dir direction) uint32 {
	if dir == directionRead {
		return readEvents
	}
	return writeEvents
}

func (q *epollQuery) arm(fd int, dir direction) error {
	if log.Debug().Enabled() {
		log.Debug().Msgf("[%d] arm %s readiness", fd, dir)
	}
	q.lock.Lock()
	defer q.lock.Unlock()
	mask := q.armed[fd]
	next := mask | directionEvents(dir)
	if next == mask {
		return nil
	}
	op := unix.EPOLL_CTL_MOD
	if mask == 0 {
		op = unix.EPOLL_CTL_ADD
	}
	err := unix.EpollCtl(q.fd, op, fd, &unix.EpollEvent{Fd: int32(fd), Events: next | errorEvents})
	if err != nil {
		return os.NewSyscallError("epoll_ctl", err)
	}
	q.armed[fd] = next
	return nil
}

// disarm clears fired direction bits so a level-triggered event with no
// registered waiter cannot keep the loop hot.
func (q *epollQuery) disarm(fd int, fired uint32) {
	q.lock.Lock()
	defer q.lock.Unlock()
	mask, ok := q.armed[fd]
	if !ok {
		return
	}
	next := mask &^ fired
	if next == mask {
		return
	}
	var err error
	if next == 0 {
		err = unix.EpollCtl(q.fd, unix.EPOLL_CTL_DEL, fd, nil)
		delete(q.armed, fd)
	} else {
		err = unix.EpollCtl(q.fd, unix.EPOLL_CTL_MOD, fd, &unix.EpollEvent{Fd: int32(fd), Events: next | errorEvents})
		q.armed[fd] = next
	}
	if err != nil {
		// The descriptor was likely closed by its owner; forget it either way.
		log.Debug().Msgf("[%d] got error while disarming readiness events: %+v", fd, os.NewSyscallError("epoll_ctl", err))
		delete(q.armed, fd)
	}
}

func (q *epollQuery) wait(timeoutMs int) ([]int, []int, error) {
	evCount, err := epollWait(q.fd, q.events, timeoutMs)
	if evCount < 0 && err == unix.EINTR {
		runtime.Gosched()
		return nil, nil, nil
	} else if err != nil {
		return nil, nil, os.NewSyscallError("epoll_pwait", err)
	}
	var readReady, writeReady []int
	for i := 0; i < evCount; i++ {
		event := q.events[i]
		fd := int(event.Fd)
		fired := event.Events
		if log.Debug().Enabled() {
			log.Debug().Msgf("[%d] readiness event: %d", fd, fired)
		}
		if fired&errorEvents > 0 {
			// Wake both directions so a parked caller retries the transport
			// call and observes the real error there.
			fired |= readEvents | writeEvents
		}
		if fired&readEvents > 0 {
			readReady = append(readReady, fd)
		}
		if fired&writeEvents > 0 {
			writeReady = append(writeReady, fd)
		}
		q.disarm(fd, fired&(readEvents|writeEvents))
	}
	return readReady, writeReady, nil
}

func (q *epollQuery) close() error {
	err := os.NewSyscallError("close", unix.Close(q.fd))
	if err != nil {
		return err
	}
	return nil
}

func epollWait(epfd int, events []unix.EpollEvent, msec int) (n int, err error) {
	var r0 uintptr
	var _p0 = unsafe.Pointer(&events[0])
	if msec == 0 {
		r0, _, err = syscall.RawSyscall6(syscall.SYS_EPOLL_PWAIT, uintptr(epfd), uintptr(_p0), uintptr(len(events)), 0, 0, 0)
	} else {
		r0, _, err = syscall.Syscall6(syscall.SYS_EPOLL_PWAIT, uintptr(epfd), uintptr(_p0), uintptr(len(events)), uintptr(msec), 0, 0)
	}
	if err == syscall.Errno(0) {
		err = nil
	}
	return int(r0), err
}
