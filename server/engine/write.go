package engine

import (
	"fmt"
	"io"
)

// WriteFull writes all of p, short writes are retried with the rest.
// A write that makes no progress and reports no error is io.ErrShortWrite.
func WriteFull(w io.Writer, p []byte) error {
	for len(p) > 0 {
		n, err := w.Write(p)
		p = p[n:]
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
	}
	return nil
}

// StreamBody writes header and exactly length bytes of body to w using buf.
// Header and the first body chunk share one write when the header fits in buf,
// then body goes out chunk by chunk. Returns the number of body bytes sent.
func StreamBody(w io.Writer, header []byte, body io.Reader, length int64, buf []byte) (int64, error) {
	if len(header) > len(buf) {
		if err := WriteFull(w, header); err != nil {
			return 0, err
		}
		header = nil
	}
	off := copy(buf, header)

	var sent int64
	lr := io.LimitReader(body, length)
	for {
		n, rerr := io.ReadFull(lr, buf[off:])
		if off+n > 0 {
			if err := WriteFull(w, buf[:off+n]); err != nil {
				return sent, err
			}
		}
		sent += int64(n)
		off = 0

		if rerr == io.EOF || rerr == io.ErrUnexpectedEOF || sent == length {
			break
		}
		if rerr != nil {
			return sent, rerr
		}
	}

	if sent < length {
		return sent, fmt.Errorf("body ended after %d of %d bytes: %w", sent, length, io.ErrUnexpectedEOF)
	}
	return sent, nil
}
