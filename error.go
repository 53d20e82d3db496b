package udtnet

import "errors"

// Errors callers are expected to match with errors.Is.
var ErrWouldBlock = errors.New("transport would block")
var ErrPollerClosed = errors.New("poller is closed")
var ErrWaitConflict = errors.New("waiter already registered for this socket and direction")

var socketNotFound = errors.New("no socket found for descriptor")
