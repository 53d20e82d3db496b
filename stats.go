package udtnet

type SocketStats struct {
	LastActivityTime   int64
	TotalSentBytes     uint64
	TotalReceivedBytes uint64
}

type PollerStats struct {
	Name              string
	PendingReadWaits  int
	PendingWriteWaits int
}

func (p *Poller) GetStats() PollerStats {
	readWaits, writeWaits := p.PendingWaiters()
	return PollerStats{
		Name:              p.Name,
		PendingReadWaits:  readWaits,
		PendingWriteWaits: writeWaits,
	}
}
