// Package static maps request targets to files under the served root.
package static

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Config for the resolver, Ring is optional
type Config struct {
	Ring *Ring
	Log  zerolog.Logger
}

// Resolver opens files strictly inside one directory. Nothing is cached,
// every Resolve goes to the filesystem.
type Resolver struct {
	root *os.Root
	ring *Ring
	log  zerolog.Logger
}

// Open returns a Resolver serving dir.
func Open(dir string, cfg Config) (*Resolver, error) {
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, fmt.Errorf("open served root %q: %w", dir, err)
	}
	return &Resolver{root: root, ring: cfg.Ring, log: cfg.Log}, nil
}

// Dir is the served root as it was given to Open.
func (r *Resolver) Dir() string {
	return r.root.Name()
}

// Resource is an open file with its metadata, the caller must Close it.
type Resource struct {
	Name        string
	ContentType string
	Size        int64

	f    *os.File
	body io.Reader
}

func (res *Resource) Read(p []byte) (int, error) {
	return res.body.Read(p)
}

func (res *Resource) Close() error {
	return res.f.Close()
}

// Resolve opens name for reading. Any failure, including names that would
// leave the root and directories, is ErrNotFound.
func (r *Resolver) Resolve(name string) (*Resource, error) {
	f, err := r.root.Open(name)
	if err != nil {
		r.log.Debug().Err(err).Str("file", name).Msg("resolve failed")
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	fi, err := f.Stat()
	if err != nil || fi.IsDir() {
		f.Close()
		r.log.Debug().Err(err).Str("file", name).Msg("not a regular file")
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	res := &Resource{
		Name:        name,
		ContentType: ContentTypeFromName(name),
		Size:        fi.Size(),
		f:           f,
		body:        f,
	}
	if r.ring != nil {
		res.body = r.ring.Reader(f)
	}
	return res, nil
}

// Append appends data to name, creating it if needed.
func (r *Resolver) Append(name string, data []byte) error {
	f, err := r.root.OpenFile(name, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("open %s for append: %w", name, err)
	}

	_, werr := f.Write(data)
	cerr := f.Close()
	if werr != nil {
		return fmt.Errorf("append to %s: %w", name, werr)
	}
	if cerr != nil {
		return fmt.Errorf("close %s: %w", name, cerr)
	}
	return nil
}

func (r *Resolver) Close() error {
	return r.root.Close()
}
