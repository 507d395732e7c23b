// parse raw bytes of one read into a Request
// only parser logic, no io here
package protocol

import (
	"bytes"
	"fmt"
	"strings"
)

var (
	http10 = []byte("HTTP/1.0")
	http11 = []byte("HTTP/1.1")

	connKeepAlive = []byte("Connection: Keep-alive")
	connClose     = []byte("Connection: Close")
)

// stateless HTTPParser struct
// should be init in server.go
type HTTPParser struct{}

// Parse fills req from raw, raw is exactly what one read returned.
// Headers point into raw, Body is copied into the request's own buffer.
func (p *HTTPParser) Parse(raw []byte, req *Request) error {
	req.Reset()
	crs := 0

	// find a separator starting from start, -1 if there is none
	findsep := func(start int, sep byte) int {
		idx := bytes.IndexByte(raw[start:], sep)
		if idx == -1 {
			return -1
		}
		return start + idx
	}

	// request line ends at the first LF or at the end of the read
	eol := findsep(crs, '\n')
	if eol == -1 {
		eol = len(raw)
	}
	line := bytes.TrimSuffix(raw[:eol], []byte{'\r'})

	// method, target and version-with-trailer are split on single spaces
	sp := bytes.IndexByte(line, ' ')
	if sp == -1 {
		return fmt.Errorf("%w: no request target", ErrMalformed)
	}
	method := line[:sp]
	rest := line[sp+1:]

	sp = bytes.IndexByte(rest, ' ')
	if sp == -1 {
		return fmt.Errorf("%w: no http version", ErrMalformed)
	}
	target := rest[:sp]
	version := rest[sp+1:]

	// only fixed 8 byte prefix is checked, trailer after it is ignored
	switch {
	case bytes.HasPrefix(version, http10):
		req.Version = Version10
	case bytes.HasPrefix(version, http11):
		req.Version = Version11
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedVersion, version)
	}

	if eol < len(raw) {
		crs = eol + 1
	} else {
		crs = len(raw)
	}

	// header lines until an empty or CR-only line, the rest is body
	keepAlive := false
	req.Headers = req.hbuf[:0]
	for crs < len(raw) {
		lf := findsep(crs, '\n')
		end := lf
		if lf == -1 {
			end = len(raw)
		}
		hl := bytes.TrimSuffix(raw[crs:end], []byte{'\r'})

		if lf == -1 {
			crs = len(raw)
		} else {
			crs = lf + 1
		}

		if len(hl) == 0 {
			if err := req.setBody(raw[crs:]); err != nil {
				return err
			}
			break
		}

		// last Connection header wins
		if bytes.HasPrefix(hl, connKeepAlive) {
			keepAlive = true
		} else if bytes.HasPrefix(hl, connClose) {
			keepAlive = false
		}

		coloni := bytes.IndexByte(hl, ':')
		if coloni == -1 {
			continue
		}
		if len(req.Headers) == cap(req.hbuf) {
			return fmt.Errorf("%w: more than %d headers", ErrTooLarge, MaxHeaders)
		}

		vals := coloni + 1
		for vals < len(hl) && hl[vals] == ' ' {
			vals++
		}
		req.Headers = append(req.Headers, Header{Key: hl[:coloni], Val: hl[vals:]})
	}

	// http/1.0 connections are never persistent
	req.KeepAlive = keepAlive && req.Version == Version11

	t, err := normalizeTarget(target)
	if err != nil {
		return err
	}
	req.RawTarget = string(target)
	req.Target = t

	req.Method = parseMethod(method)
	if req.Method == MethodUnknown {
		return fmt.Errorf("%w: %q", ErrUnsupportedMethod, method)
	}

	return nil
}

// copy body into request buffer with checked capacity
func (r *Request) setBody(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	if len(b) > MaxBodySize {
		return fmt.Errorf("%w: body of %d bytes", ErrTooLarge, len(b))
	}
	if r.bbuf == nil {
		r.bbuf = make([]byte, 0, MaxBodySize)
	}
	r.bbuf = append(r.bbuf[:0], b...)
	r.Body = r.bbuf
	return nil
}

func parseMethod(b []byte) Method {
	switch string(b) {
	case "GET":
		return MethodGet
	case "HEAD":
		return MethodHead
	case "POST":
		return MethodPost
	}
	return MethodUnknown
}

// "/" and "/inside/..." go to the index document, everything else
// loses exactly one leading slash
func normalizeTarget(t []byte) (string, error) {
	s := string(t)
	if s == "/" || strings.HasPrefix(s, InsidePrefix) {
		return IndexDocument, nil
	}
	if !strings.HasPrefix(s, "/") {
		return "", fmt.Errorf("%w: target %q is not absolute", ErrMalformed, s)
	}
	s = s[1:]
	if s == "" {
		return "", fmt.Errorf("%w: empty target", ErrMalformed)
	}
	return s, nil
}
