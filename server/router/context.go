// context is Session + Request + what was answered so far
package router

import (
	"io"

	"github.com/s00inx/httpd/server/engine"
	"github.com/s00inx/httpd/server/protocol"
)

// handler func signature, it works only with context.
// A returned error sends the request down the fatal path.
type Handler func(c *Context) error

type Context struct {
	Session *engine.Session
	Req     *protocol.Request

	status      int
	wroteHeader bool
	sent        int64 // body bytes only

	hbuf [256]byte
}

// NewContext binds a request to the session answering it.
func NewContext(s *engine.Session, req *protocol.Request) *Context {
	c := &Context{}
	c.Reset(s, req)
	return c
}

func (c *Context) Reset(s *engine.Session, req *protocol.Request) {
	c.Session = s
	c.Req = req
	c.status = 0
	c.wroteHeader = false
	c.sent = 0
}

// !! Context as abstraction upon Request (getters)
func (c *Context) Method() protocol.Method {
	return c.Req.Method
}

// target relative to the served root
func (c *Context) Target() string {
	return c.Req.Target
}

func (c *Context) Version() protocol.Version {
	return c.Req.Version
}

func (c *Context) KeepAlive() bool {
	return c.Req.KeepAlive
}

func (c *Context) Header(key string) []byte {
	return c.Req.Header(key)
}

func (c *Context) Body() []byte {
	return c.Req.Body
}

// ! Context as response writer (setters)
func (c *Context) header(status int, ctype string, length int64) ([]byte, error) {
	return protocol.AppendHeader(c.hbuf[:0], c.Req.Version, status, ctype, length, c.Req.KeepAlive)
}

// SendHeader writes a response with no body, length is still announced as is.
// Used for 404 and HEAD.
func (c *Context) SendHeader(status int, ctype string, length int64) error {
	h, err := c.header(status, ctype, length)
	if err != nil {
		return err
	}

	c.status = status
	c.wroteHeader = true
	return c.Session.Write(h)
}

// SendFile writes header and exactly length bytes of body.
func (c *Context) SendFile(status int, ctype string, body io.Reader, length int64) error {
	h, err := c.header(status, ctype, length)
	if err != nil {
		return err
	}

	c.status = status
	c.wroteHeader = true
	n, err := c.Session.SendBody(h, body, length)
	c.sent += n
	return err
}

// NotFound is the 404 answer: empty type, zero length, no body
func (c *Context) NotFound() error {
	return c.SendHeader(404, "", 0)
}

// WroteHeader reports whether any part of a response may be on the wire.
// After that the fatal path can't send its 500 anymore.
func (c *Context) WroteHeader() bool {
	return c.wroteHeader
}

func (c *Context) Status() int {
	return c.status
}

func (c *Context) BytesSent() int64 {
	return c.sent
}
