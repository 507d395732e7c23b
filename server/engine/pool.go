// engine setup and buffer pools
package engine

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

const (
	DefaultBufferSize   = 8 << 10
	DefaultIdleTimeout  = 10 * time.Second
	DefaultPollInterval = 250 * time.Millisecond
)

// Config holds session limits and timers, zero values are replaced by defaults
type Config struct {
	ReadBufferSize int // one read is one request, so this bounds the request
	SendBufferSize int // header + first body chunk go out in one write of this size

	IdleTimeout         time.Duration // keep-alive idle limit
	PollInterval        time.Duration // read deadline per attempt
	FirstRequestTimeout time.Duration // 0 waits for the first request forever
	WriteTimeout        time.Duration // 0 means no write deadline

	Now func() time.Time // clock for idle accounting
}

func (c *Config) setDefaults() {
	if c.ReadBufferSize <= 0 {
		c.ReadBufferSize = DefaultBufferSize
	}
	if c.SendBufferSize <= 0 {
		c.SendBufferSize = DefaultBufferSize
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = DefaultIdleTimeout
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

// HandleFunc gets the bytes of one read and answers them on s.
// keepAlive false or a non-nil error end the session.
type HandleFunc func(s *Session, raw []byte) (keepAlive bool, err error)

// Engine runs sessions, it works only w bytes, no HTTP logic
type Engine struct {
	cfg    Config
	handle HandleFunc
	log    zerolog.Logger

	nextID atomic.Uint64

	// recv and send bufs are separate pools so they never overlap
	recvPool sync.Pool
	sendPool sync.Pool
}

func New(cfg Config, handle HandleFunc, log zerolog.Logger) *Engine {
	cfg.setDefaults()
	e := &Engine{
		cfg:    cfg,
		handle: handle,
		log:    log,
	}
	e.recvPool.New = func() any {
		b := make([]byte, e.cfg.ReadBufferSize)
		return &b
	}
	e.sendPool.New = func() any {
		b := make([]byte, e.cfg.SendBufferSize)
		return &b
	}
	return e
}

func (e *Engine) getRecv() *[]byte  { return e.recvPool.Get().(*[]byte) }
func (e *Engine) putRecv(b *[]byte) { e.recvPool.Put(b) }
func (e *Engine) getSend() *[]byte  { return e.sendPool.Get().(*[]byte) }
func (e *Engine) putSend(b *[]byte) { e.sendPool.Put(b) }
