package udtnet

type direction int8

const (
	directionRead  = direction(0)
	directionWrite = direction(1)
)

func (d direction) String() string {
	if d == directionRead {
		return "read"
	}
	return "write"
}

// readinessQuery is the OS facility the poller blocks on. Arming is additive
// and safe to call concurrently with wait. Fired directions are disarmed
// before wait reports them, so an event without a matching waiter is not
// redelivered on the next iteration.
type readinessQuery interface {
	arm(fd int, dir direction) error
	wait(timeoutMs int) (readReady []int, writeReady []int, err error)
	close() error
}
