package protocol

// request methods, anything else is rejected by the parser
type Method uint8

const (
	MethodUnknown Method = iota
	MethodGet
	MethodHead
	MethodPost
)

var methodNames = [...]string{
	MethodUnknown: "UNKNOWN",
	MethodGet:     "GET",
	MethodHead:    "HEAD",
	MethodPost:    "POST",
}

func (m Method) String() string {
	if int(m) < len(methodNames) {
		return methodNames[m]
	}
	return methodNames[MethodUnknown]
}

// http version negotiated from the request line
type Version uint8

const (
	VersionUnknown Version = iota
	Version10
	Version11
)

func (v Version) String() string {
	switch v {
	case Version10:
		return "HTTP/1.0"
	case Version11:
		return "HTTP/1.1"
	}
	return "HTTP/?"
}

// header pair, key and val refer to the raw read buffer
// so they are valid only while the request is dispatched
type Header struct {
	Key, Val []byte
}

const (
	MaxHeaders  = 64
	MaxBodySize = 8 << 10

	// default document for "/" and the internal redirect prefix
	IndexDocument = "index.html"
	InsidePrefix  = "/inside/"
)

// Request is built fresh for every request and discarded after dispatch.
// Target is already normalized: root-relative, no leading slash.
type Request struct {
	Method    Method
	Target    string
	RawTarget string
	Version   Version
	KeepAlive bool

	Headers []Header
	Body    []byte

	hbuf [MaxHeaders]Header
	bbuf []byte
}

// Header returns the value of the last header named key (case-sensitive), or nil.
func (r *Request) Header(key string) []byte {
	for i := len(r.Headers) - 1; i >= 0; i-- {
		if string(r.Headers[i].Key) == key {
			return r.Headers[i].Val
		}
	}
	return nil
}

// Reset clears the request but keeps its body buffer for reuse.
func (r *Request) Reset() {
	bbuf := r.bbuf
	*r = Request{}
	r.bbuf = bbuf[:0]
}
