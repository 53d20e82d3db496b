package udtnet

import (
	"os"
	"sync"
	"syscall"

	"github.com/rs/zerolog/log"
	"golang.org/x/sys/unix"
)

// udpTransport is a non-blocking AF_INET datagram socket, the reference
// Transport implementation used by cmd/ and examples/. A connected socket
// sends to its peer; an unconnected one replies to the source of the last
// received datagram.
type udpTransport struct {
	fd        int
	connected bool
	lock      sync.Mutex
	peer      unix.Sockaddr
}

// OpenUDPTransport opens a non-blocking datagram socket bound to local and,
// when remote is set, connected to it.
func OpenUDPTransport(local, remote Endpoint) (Transport, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM, 0)
	if err != nil {
		return nil, os.NewSyscallError("socket", err)
	}
	setDatagramSocketOptions(fd)
	if local.IP != nil || local.Port != 0 {
		sa, err := local.toSockaddr()
		if err == nil {
			err = os.NewSyscallError("bind", unix.Bind(fd, sa))
		}
		if err != nil {
			closeFd(fd)
			return nil, err
		}
	}
	connected := false
	if remote.IP != nil {
		sa, err := remote.toSockaddr()
		if err == nil {
			err = os.NewSyscallError("connect", unix.Connect(fd, sa))
		}
		if err != nil {
			closeFd(fd)
			return nil, err
		}
		connected = true
	}
	return &udpTransport{fd: fd, connected: connected}, nil
}

func setDatagramSocketOptions(fd int) {
	err := unix.SetNonblock(fd, true)
	if err != nil {
		log.Error().Msgf("got error while setting socket options O_NONBLOCK: %+v", err)
	}
	err = syscall.SetsockoptInt(fd, syscall.SOL_SOCKET, syscall.SO_RCVBUF, 1<<16)
	if err != nil {
		log.Error().Msgf("got error while setting socket options SO_RCVBUF: %+v", err)
	}
	err = syscall.SetsockoptInt(fd, syscall.SOL_SOCKET, syscall.SO_SNDBUF, 1<<16)
	if err != nil {
		log.Error().Msgf("got error while setting socket options SO_SNDBUF: %+v", err)
	}
}

func closeFd(fd int) {
	err := unix.Close(fd)
	if err != nil {
		log.Error().Msgf("[%d] got error while closing socket: %+v", fd, err)
	}
}

func (t *udpTransport) Fd() int {
	return t.fd
}

func (t *udpTransport) Recv(buffer []byte) (int, error) {
	read, from, err := unix.Recvfrom(t.fd, buffer, 0)
	if err == unix.EAGAIN {
		return 0, ErrWouldBlock
	}
	if err != nil {
		return 0, os.NewSyscallError("recvfrom", err)
	}
	if !t.connected && from != nil {
		t.lock.Lock()
		t.peer = from
		t.lock.Unlock()
	}
	return read, nil
}

func (t *udpTransport) Send(buffer []byte) (int, error) {
	var err error
	if t.connected {
		var written int
		written, err = unix.Write(t.fd, buffer)
		if err == nil {
			return written, nil
		}
	} else {
		t.lock.Lock()
		peer := t.peer
		t.lock.Unlock()
		if peer == nil {
			return 0, os.NewSyscallError("sendto", unix.EDESTADDRREQ)
		}
		err = unix.Sendto(t.fd, buffer, 0, peer)
		if err == nil {
			return len(buffer), nil
		}
	}
	if err == unix.EAGAIN {
		return 0, ErrWouldBlock
	}
	return 0, os.NewSyscallError("sendto", err)
}

func (t *udpTransport) Close() error {
	return os.NewSyscallError("close", unix.Close(t.fd))
}

// LocalEndpoint reports the bound address, useful after binding port 0.
func (t *udpTransport) LocalEndpoint() (Endpoint, error) {
	sa, err := unix.Getsockname(t.fd)
	if err != nil {
		return Endpoint{}, os.NewSyscallError("getsockname", err)
	}
	return endpointFromSockaddr(sa)
}

// RemoteEndpoint reports the connected peer address.
func (t *udpTransport) RemoteEndpoint() (Endpoint, error) {
	sa, err := unix.Getpeername(t.fd)
	if err != nil {
		return Endpoint{}, os.NewSyscallError("getpeername", err)
	}
	return endpointFromSockaddr(sa)
}
