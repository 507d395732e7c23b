// listening socket and accept loop
// only low level socket functional, no http here
package engine

import (
	"errors"
	"net"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

const (
	Backlog = 1024 // backlog for listening

	minAcceptDelay = 5 * time.Millisecond
	maxAcceptDelay = time.Second
)

// Listen binds a TCP socket on all interfaces with SO_REUSEADDR and
// starts listening with Backlog. Port 0 picks a free port.
func Listen(port int) (net.Listener, error) {
	fd, err := listenFD(port)
	if err != nil {
		return nil, err
	}

	// hand the descriptor to the runtime poller, FileListener dups it
	f := os.NewFile(uintptr(fd), "httpd-listener")
	defer f.Close()

	ln, err := net.FileListener(f)
	if err != nil {
		return nil, &ListenError{Kind: ListenFailed, Port: port, Err: err}
	}
	return ln, nil
}

// raw listening socket, close-on-exec
func listenFD(port int) (int, error) {
	// SOCK_STREAM = TCP
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return -1, &ListenError{Kind: SocketFailed, Port: port, Err: err}
	}
	// SOCK_CLOEXEC is linux only, fcntl works on every unix
	unix.CloseOnExec(fd)

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return -1, &ListenError{Kind: SocketFailed, Port: port, Err: err}
	}

	// bind socket to 0.0.0.0:port
	if err := unix.Bind(fd, &unix.SockaddrInet4{Port: port}); err != nil {
		unix.Close(fd)
		return -1, &ListenError{Kind: BindFailed, Port: port, Err: err}
	}
	if err := unix.Listen(fd, Backlog); err != nil {
		unix.Close(fd)
		return -1, &ListenError{Kind: ListenFailed, Port: port, Err: err}
	}
	return fd, nil
}

// Serve accepts connections until ln is closed, every connection gets its own
// goroutine that owns it until the session ends.
func (e *Engine) Serve(ln net.Listener) error {
	e.log.Info().Str("addr", ln.Addr().String()).Msg("accepting connections")

	var delay time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return err
			}

			// transient (EMFILE, ECONNABORTED, ...), back off and retry
			if delay == 0 {
				delay = minAcceptDelay
			} else {
				delay *= 2
			}
			if delay > maxAcceptDelay {
				delay = maxAcceptDelay
			}
			e.log.Warn().Err(err).Dur("retry_in", delay).Msg("accept failed")
			time.Sleep(delay)
			continue
		}
		delay = 0

		go e.ServeConn(conn)
	}
}
