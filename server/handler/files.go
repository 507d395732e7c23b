// Package handler answers GET, HEAD and POST from the served root.
package handler

import (
	"errors"
	"fmt"

	"github.com/s00inx/httpd/server/router"
	"github.com/s00inx/httpd/server/static"
)

// ErrNotHTML is returned for a POST whose target isn't a text/html document,
// the file is left untouched.
var ErrNotHTML = errors.New("post target is not html")

var (
	postPrefix = []byte("<h1>POST DATA</h1>\r\n<pre>")
	postSuffix = []byte("</pre>")
)

type Files struct {
	Root *static.Resolver
}

func New(root *static.Resolver) *Files {
	return &Files{Root: root}
}

// Register routes all three methods to f.
func (f *Files) Register(r *router.HTTPRouter) {
	r.Get(f.Get)
	r.Head(f.Head)
	r.Post(f.Post)
}

func (f *Files) Get(c *router.Context) error {
	return f.serve(c, false)
}

// Head is Get without the body, the header is byte for byte the same.
func (f *Files) Head(c *router.Context) error {
	return f.serve(c, true)
}

func (f *Files) serve(c *router.Context, headersOnly bool) error {
	res, err := f.Root.Resolve(c.Target())
	if errors.Is(err, static.ErrNotFound) {
		return c.NotFound()
	}
	if err != nil {
		return err
	}
	defer res.Close()

	if headersOnly {
		return c.SendHeader(200, res.ContentType, res.Size)
	}
	return c.SendFile(200, res.ContentType, res, res.Size)
}

// Post appends the request body wrapped in a small html fragment to the
// target and then answers exactly like Get would.
func (f *Files) Post(c *router.Context) error {
	if ct := static.ContentTypeFromName(c.Target()); ct != "text/html" {
		return fmt.Errorf("%w: %s has type %q", ErrNotHTML, c.Target(), ct)
	}

	if err := f.Root.Append(c.Target(), AppendFragment(nil, c.Body())); err != nil {
		return err
	}
	return f.serve(c, false)
}

// AppendFragment appends the html wrapping of a POST body to dst.
func AppendFragment(dst, body []byte) []byte {
	if dst == nil {
		dst = make([]byte, 0, len(postPrefix)+len(body)+len(postSuffix))
	}
	dst = append(dst, postPrefix...)
	dst = append(dst, body...)
	return append(dst, postSuffix...)
}
