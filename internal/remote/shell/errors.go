package shell

import (
	"errors"
	"fmt"
)

// errSessionClosed is returned when a closed session is used.
var errSessionClosed = errors.New("session is closed")

// ConnectionError reports a failed handshake or a connection lost mid-command.
type ConnectionError struct {
	// Address is the host:port the session targets.
	Address string
	// Err is the underlying network error.
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect to %s: %v", e.Address, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// TimeoutError reports that no prompt arrived within the execution timeout.
type TimeoutError struct {
	// Address is the host:port the session targets.
	Address string
	// Command is the command line that was waiting for its prompt.
	Command string
	// Err is the underlying deadline error.
	Err error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("execute %q on %s: no prompt received: %v", e.Command, e.Address, e.Err)
}

func (e *TimeoutError) Unwrap() error {
	return e.Err
}
