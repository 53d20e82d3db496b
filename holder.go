package udtnet

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

type SocketHolder interface {
	FindSocketByFd(fd int) (*Socket, error)
	AddSocket(socket *Socket)
	RemoveSocket(socket *Socket)
}

func NewMapSocketHolder(ctx context.Context) SocketHolder {
	socketHolder := &mapSocketHolder{
		ctx:     ctx,
		lock:    &sync.RWMutex{},
		sockets: make(map[int]*Socket),
	}
	go socketHolder.init()
	return socketHolder
}

type mapSocketHolder struct {
	ctx     context.Context
	lock    *sync.RWMutex
	sockets map[int]*Socket
}

func (sh *mapSocketHolder) FindSocketByFd(fd int) (*Socket, error) {
	sh.lock.RLock()
	defer sh.lock.RUnlock()
	socket, ok := sh.sockets[fd]
	if ok {
		return socket, nil
	}
	return nil, socketNotFound
}

func (sh *mapSocketHolder) AddSocket(socket *Socket) {
	sh.lock.Lock()
	defer sh.lock.Unlock()
	sh.sockets[socket.Fd()] = socket
}

func (sh *mapSocketHolder) RemoveSocket(socket *Socket) {
	sh.lock.Lock()
	defer sh.lock.Unlock()
	delete(sh.sockets, socket.Fd())
}

func (sh *mapSocketHolder) init() {
	ticker := time.NewTicker(20 * time.Second)
	for {
		select {
		case <-sh.ctx.Done():
			ticker.Stop()
			return
		case <-ticker.C:
			sh.lock.RLock()
			log.Debug().Msgf("Total sockets: %d", len(sh.sockets))
			for _, socket := range sh.sockets {
				stats := socket.GetStats()
				log.Debug().Msgf("[%d] socket:[%s] lastActiveTime: %d sent: %d received: %d", socket.Fd(), socket.GetId(), stats.LastActivityTime, stats.TotalSentBytes, stats.TotalReceivedBytes)
			}
			sh.lock.RUnlock()
		}
	}
}
