package engine

import (
	"errors"
	"io"
	"net"
	"os"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog"
)

// session state, Closing is terminal
type State uint8

const (
	StateAwaitingFirst State = iota
	StateActive
	StateClosing
)

func (st State) String() string {
	switch st {
	case StateAwaitingFirst:
		return "awaiting-first-request"
	case StateActive:
		return "active"
	case StateClosing:
		return "closing"
	}
	return "unknown"
}

// Session owns one connection for its whole life.
// It is never shared between goroutines, so no locking here.
type Session struct {
	ID   uint64
	Conn net.Conn
	Buf  []byte // read buffer, raw passed to HandleFunc is a window into it

	State        State
	KeepAlive    bool
	Proto        string // version of the latest request, set by the handler
	LastActivity time.Time

	Log zerolog.Logger

	eng    *Engine
	recv   *[]byte
	closed bool
}

// ServeConn runs a session on conn and returns when it is closed.
// Serve calls it in a new goroutine for every accepted connection.
func (e *Engine) ServeConn(conn net.Conn) {
	s := e.newSession(conn)
	defer s.close()
	defer func() {
		if r := recover(); r != nil {
			s.Log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("session panicked")
		}
	}()

	err := s.run()
	switch {
	case err == nil:
		s.Log.Debug().Msg("connection not kept alive")
	case errors.Is(err, errIdle), errors.Is(err, errFirstWait), errors.Is(err, errPeerClosed):
		s.Log.Debug().Err(err).Msg("closing connection")
	default:
		s.Log.Warn().Err(err).Msg("closing connection")
	}
}

func (e *Engine) newSession(conn net.Conn) *Session {
	recv := e.getRecv()
	id := e.nextID.Add(1)

	lc := e.log.With().Uint64("conn", id)
	if ra := conn.RemoteAddr(); ra != nil {
		lc = lc.Str("remote", ra.String())
	}

	return &Session{
		ID:           id,
		Conn:         conn,
		Buf:          *recv,
		State:        StateAwaitingFirst,
		LastActivity: e.cfg.Now(),
		Log:          lc.Logger(),
		eng:          e,
		recv:         recv,
	}
}

// request loop: read -> handle -> keep-alive or close
func (s *Session) run() error {
	for {
		n, err := s.read()
		if n > 0 {
			s.State = StateActive
			s.LastActivity = s.eng.cfg.Now()
			s.Log.Debug().Int("bytes", n).Msg("request received")

			keepAlive, herr := s.eng.handle(s, s.Buf[:n])
			if herr != nil {
				return herr
			}
			s.KeepAlive = keepAlive
			if !keepAlive {
				return nil
			}
			continue
		}

		if err != nil && !errors.Is(err, os.ErrDeadlineExceeded) {
			if errors.Is(err, io.EOF) {
				return errPeerClosed
			}
			return err
		}

		// nothing arrived within the poll interval
		if err := s.checkIdle(); err != nil {
			return err
		}
	}
}

func (s *Session) read() (int, error) {
	if err := s.Conn.SetReadDeadline(time.Now().Add(s.eng.cfg.PollInterval)); err != nil {
		return 0, err
	}
	return s.Conn.Read(s.Buf)
}

// before the first request we wait (slow clients connect first and send later),
// after it only a keep-alive session within the idle timeout may wait
func (s *Session) checkIdle() error {
	elapsed := s.eng.cfg.Now().Sub(s.LastActivity)

	if s.State == StateAwaitingFirst {
		if t := s.eng.cfg.FirstRequestTimeout; t > 0 && elapsed >= t {
			return errFirstWait
		}
		return nil
	}

	if s.KeepAlive && elapsed < s.eng.cfg.IdleTimeout {
		return nil
	}
	return errIdle
}

// Write sends p completely or fails.
func (s *Session) Write(p []byte) error {
	if err := s.setWriteDeadline(); err != nil {
		return err
	}
	return WriteFull(s.Conn, p)
}

// SendBody sends header followed by exactly length bytes read from body.
func (s *Session) SendBody(header []byte, body io.Reader, length int64) (int64, error) {
	if err := s.setWriteDeadline(); err != nil {
		return 0, err
	}
	buf := s.eng.getSend()
	defer s.eng.putSend(buf)

	return StreamBody(s.Conn, header, body, length, *buf)
}

func (s *Session) setWriteDeadline() error {
	if t := s.eng.cfg.WriteTimeout; t > 0 {
		return s.Conn.SetWriteDeadline(time.Now().Add(t))
	}
	return nil
}

// close socket exactly once and give buffers back
func (s *Session) close() {
	s.State = StateClosing
	if s.closed {
		return
	}
	s.closed = true

	if err := s.Conn.Close(); err != nil {
		s.Log.Debug().Err(err).Msg("close failed")
	}

	s.Buf = nil
	s.eng.putRecv(s.recv)
	s.recv = nil
}
