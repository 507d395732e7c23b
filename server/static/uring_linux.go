//go:build linux

package static

import (
	"fmt"
	"io"
	"os"

	"github.com/iceber/iouring-go"
)

// entries in the submission queue
const ringEntries = 32

// Ring is a shared io_uring instance for reading file bodies.
// SubmitRequest is safe to call from many sessions at once.
type Ring struct {
	iour *iouring.IOURing
}

func NewRing() (*Ring, error) {
	iour, err := iouring.New(ringEntries)
	if err != nil {
		return nil, fmt.Errorf("io_uring setup: %w", err)
	}
	return &Ring{iour: iour}, nil
}

// Reader reads f from offset 0 with pread submitted to the ring.
func (r *Ring) Reader(f *os.File) io.Reader {
	return &ringReader{ring: r, fd: int(f.Fd())}
}

func (r *Ring) Close() error {
	return r.iour.Close()
}

type ringReader struct {
	ring *Ring
	fd   int
	off  uint64
}

func (rr *ringReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	ch := make(chan iouring.Result, 1)
	if _, err := rr.ring.iour.SubmitRequest(iouring.Pread(rr.fd, p, rr.off), ch); err != nil {
		return 0, fmt.Errorf("submit pread: %w", err)
	}

	result := <-ch
	n, err := result.ReturnInt()
	if err != nil {
		return 0, fmt.Errorf("pread: %w", err)
	}
	if n == 0 {
		return 0, io.EOF
	}

	rr.off += uint64(n)
	return n, nil
}
