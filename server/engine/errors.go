package engine

import (
	"errors"
	"fmt"
)

// ListenFailure says which step of opening the listening socket failed
type ListenFailure int

const (
	SocketFailed ListenFailure = iota
	BindFailed
	ListenFailed
)

func (f ListenFailure) String() string {
	switch f {
	case SocketFailed:
		return "socket failed"
	case BindFailed:
		return "bind failed"
	case ListenFailed:
		return "listen failed"
	default:
		return fmt.Sprintf("unknown listen failure: %d", int(f))
	}
}

// ListenError wraps the os error of a failed Listen
type ListenError struct {
	Kind ListenFailure
	Port int
	Err  error
}

func (e *ListenError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("listen on port %d: %s: %v", e.Port, e.Kind, e.Err)
	}
	return fmt.Sprintf("listen on port %d: %s", e.Port, e.Kind)
}

func (e *ListenError) Unwrap() error {
	return e.Err
}

var (
	errIdle       = errors.New("idle timeout")
	errFirstWait  = errors.New("no request before first request timeout")
	errPeerClosed = errors.New("peer closed connection")
)
