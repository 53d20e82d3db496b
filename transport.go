package udtnet

// Transport is the non-blocking socket collaborator the poller multiplexes.
// Recv and Send must never block: when the operation cannot make progress
// they return ErrWouldBlock and the caller parks on the poller instead. The
// descriptor stays valid until Close.
type Transport interface {
	Fd() int
	Recv(buffer []byte) (int, error)
	Send(buffer []byte) (int, error)
	Close() error
}
