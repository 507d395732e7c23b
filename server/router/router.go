package router

import (
	"github.com/s00inx/httpd/server/protocol"
)

// every target is a file, so routing is only by method
type HTTPRouter struct {
	handlers [protocol.MethodPost + 1]Handler
}

// init a new router, nothing is registered
func NewHTTPRouter() *HTTPRouter {
	return &HTTPRouter{}
}

// Handle registers h for m, registering twice replaces the handler.
func (r *HTTPRouter) Handle(m protocol.Method, h Handler) {
	if m == protocol.MethodUnknown || int(m) >= len(r.handlers) {
		panic("router: can't route method " + m.String())
	}
	r.handlers[m] = h
}

func (r *HTTPRouter) Get(h Handler)  { r.Handle(protocol.MethodGet, h) }
func (r *HTTPRouter) Head(h Handler) { r.Handle(protocol.MethodHead, h) }
func (r *HTTPRouter) Post(h Handler) { r.Handle(protocol.MethodPost, h) }

// Serve returns the handler for req or nil
func (r *HTTPRouter) Serve(req *protocol.Request) Handler {
	if int(req.Method) >= len(r.handlers) {
		return nil
	}
	return r.handlers[req.Method]
}
