package protocol

import (
	"fmt"
	"strconv"
)

// lookup table for status lines, only what the file server answers with
// i use flat list instead of map bc codes is fixed
var statusTable = [405][]byte{
	200: []byte(" 200 Document Follows\r\n"),
	404: []byte(" 404 File Not Found\r\n"),
}

// for fast access
var (
	crlf          = []byte("\r\n")
	contentType   = []byte("Content-Type: ")
	contentLength = []byte("Content-Length: ")
	keepAliveLine = []byte("Connection: Keep-alive\r\n")
	closeLine     = []byte("Connection: Close\r\n")
)

// ServerError is the whole fatal-path response, it is sent as is and the
// connection is closed after it.
var ServerError = []byte("HTTP/1.1 500 Internal Server Error\r\n")

// AppendHeader appends status line and headers for a response to dst.
// Only 200 and 404 are valid here, other codes go through ServerError.
func AppendHeader(dst []byte, v Version, status int, ctype string, length int64, keepAlive bool) ([]byte, error) {
	if status < 0 || status >= len(statusTable) || statusTable[status] == nil {
		return dst, fmt.Errorf("%w: %d", ErrStatus, status)
	}
	if v != Version10 && v != Version11 {
		return dst, fmt.Errorf("%w: %s", ErrUnsupportedVersion, v)
	}

	dst = append(dst, v.String()...)
	dst = append(dst, statusTable[status]...)

	dst = append(dst, contentType...)
	dst = append(dst, ctype...)
	dst = append(dst, crlf...)

	dst = append(dst, contentLength...)
	dst = strconv.AppendInt(dst, length, 10)
	dst = append(dst, crlf...)

	// 1.0 doesn't advertise persistence at all
	if v == Version11 {
		if keepAlive {
			dst = append(dst, keepAliveLine...)
		} else {
			dst = append(dst, closeLine...)
		}
	}

	return append(dst, crlf...), nil
}
