// Package server wires the engine, parser, router and file handlers together.
package server

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/s00inx/httpd/server/engine"
	"github.com/s00inx/httpd/server/handler"
	"github.com/s00inx/httpd/server/protocol"
	"github.com/s00inx/httpd/server/router"
	"github.com/s00inx/httpd/server/static"
)

const DefaultRoot = "www"

type Config struct {
	Port int
	Root string // served directory

	IdleTimeout         time.Duration
	PollInterval        time.Duration
	FirstRequestTimeout time.Duration // 0 waits forever
	WriteTimeout        time.Duration // 0 means none
	ReadBufferSize      int

	UseIOURing bool // read file bodies through io_uring, linux only

	Logger zerolog.Logger
	Now    func() time.Time
}

func DefaultConfig() Config {
	return Config{
		Root:           DefaultRoot,
		IdleTimeout:    engine.DefaultIdleTimeout,
		PollInterval:   engine.DefaultPollInterval,
		ReadBufferSize: engine.DefaultBufferSize,
		Logger:         zerolog.Nop(),
		Now:            time.Now,
	}
}

type Server struct {
	R   *router.HTTPRouter
	prs protocol.HTTPParser

	cfg   Config
	eng   *engine.Engine
	files *static.Resolver
	ring  *static.Ring
	log   zerolog.Logger

	mu     sync.Mutex
	ln     net.Listener
	closed bool
}

// request + context of one exchange, reused between requests
type exchange struct {
	req protocol.Request
	ctx router.Context
}

var exPool = sync.Pool{
	New: func() any { return new(exchange) },
}

// New opens the served root and registers the file handlers.
// Zero fields of cfg fall back to DefaultConfig.
func New(cfg Config) (*Server, error) {
	if cfg.Root == "" {
		cfg.Root = DefaultRoot
	}

	s := &Server{
		R:   router.NewHTTPRouter(),
		prs: protocol.HTTPParser{},
		cfg: cfg,
		log: cfg.Logger,
	}

	if cfg.UseIOURing {
		ring, err := static.NewRing()
		if err != nil {
			s.log.Warn().Err(err).Msg("io_uring unavailable, reading files with read(2)")
		} else {
			s.ring = ring
		}
	}

	files, err := static.Open(cfg.Root, static.Config{Ring: s.ring, Log: s.log})
	if err != nil {
		if s.ring != nil {
			s.ring.Close()
		}
		return nil, err
	}
	s.files = files
	handler.New(files).Register(s.R)

	s.eng = engine.New(engine.Config{
		ReadBufferSize:      cfg.ReadBufferSize,
		IdleTimeout:         cfg.IdleTimeout,
		PollInterval:        cfg.PollInterval,
		FirstRequestTimeout: cfg.FirstRequestTimeout,
		WriteTimeout:        cfg.WriteTimeout,
		Now:                 cfg.Now,
	}, s.handle, s.log)

	return s, nil
}

// ListenAndServe listens on cfg.Port and serves until the listener is closed.
func (s *Server) ListenAndServe() error {
	ln, err := engine.Listen(s.cfg.Port)
	if err != nil {
		s.log.Error().Err(err).Msg("listen failed")
		return err
	}
	s.log.Info().
		Int("port", s.cfg.Port).
		Str("root", s.files.Dir()).
		Bool("uring", s.ring != nil).
		Msg("server started")

	return s.Serve(ln)
}

func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()

	return s.eng.Serve(ln)
}

// ServeConn runs one session on conn in the calling goroutine.
func (s *Server) ServeConn(conn net.Conn) {
	s.eng.ServeConn(conn)
}

// Close stops accepting, running sessions are left to finish on their own.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	ln := s.ln
	s.ln = nil

	var errs []error
	if ln != nil {
		errs = append(errs, ln.Close())
	}
	errs = append(errs, s.files.Close())
	if s.ring != nil {
		errs = append(errs, s.ring.Close())
	}
	return errors.Join(errs...)
}

// engine callback: one read is one request
func (s *Server) handle(sess *engine.Session, raw []byte) (bool, error) {
	// a full buffer may be a cut request, we never reassemble
	if len(raw) == len(sess.Buf) {
		return false, s.fail(sess, nil, fmt.Errorf("%w: request fills the %d byte read buffer", protocol.ErrTooLarge, len(raw)))
	}

	ex := exPool.Get().(*exchange)
	defer func() {
		ex.ctx.Reset(nil, nil)
		exPool.Put(ex)
	}()

	req := &ex.req
	if err := s.prs.Parse(raw, req); err != nil {
		return false, s.fail(sess, nil, err)
	}
	sess.Proto = req.Version.String()

	sess.Log.Debug().
		Stringer("method", req.Method).
		Str("target", req.RawTarget).
		Str("proto", sess.Proto).
		Bool("keepalive", req.KeepAlive).
		Msg("request parsed")

	h := s.R.Serve(req)
	if h == nil {
		return false, s.fail(sess, nil, fmt.Errorf("%w: no handler for %s", protocol.ErrUnsupportedMethod, req.Method))
	}

	c := &ex.ctx
	c.Reset(sess, req)
	if err := h(c); err != nil {
		return false, s.fail(sess, c, err)
	}

	sess.Log.Info().
		Stringer("method", req.Method).
		Str("target", req.RawTarget).
		Int("status", c.Status()).
		Int64("bytes", c.BytesSent()).
		Bool("keepalive", req.KeepAlive).
		Msg("served")

	return req.KeepAlive, nil
}

// fatal path: the bare 500 line, then the session closes.
// If a response already started nothing more is written.
func (s *Server) fail(sess *engine.Session, c *router.Context, err error) error {
	if c != nil && c.WroteHeader() {
		sess.Log.Error().
			Err(err).
			Int("status", c.Status()).
			Int64("bytes", c.BytesSent()).
			Msg("response aborted")
		return err
	}

	sess.Log.Warn().Err(err).Msg("request failed, sending 500")
	if werr := sess.Write(protocol.ServerError); werr != nil {
		return errors.Join(err, werr)
	}
	return err
}
