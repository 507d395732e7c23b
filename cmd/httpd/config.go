package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/s00inx/httpd/server"
)

const usage = "usage: %s [-root dir] [-idle dur] [-uring] [-v] <port>\n"

// options from env and command line, flags win over env
type options struct {
	root    string
	idle    time.Duration
	uring   bool
	verbose bool
	port    int
}

var errUsage = errors.New("bad arguments")

// parseOptions reads HTTPD_* variables first and then args, so an explicit
// flag always overrides the environment.
func parseOptions(name string, args []string, getenv func(string) string, stderr io.Writer) (options, error) {
	opts := options{
		root: server.DefaultRoot,
		idle: server.DefaultConfig().IdleTimeout,
	}

	if v := getenv("HTTPD_ROOT"); v != "" {
		opts.root = v
	}
	if v := getenv("HTTPD_IDLE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return opts, fmt.Errorf("HTTPD_IDLE_TIMEOUT=%q: not a positive duration", v)
		}
		opts.idle = d
	}
	if v := getenv("HTTPD_URING"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return opts, fmt.Errorf("HTTPD_URING=%q: %w", v, err)
		}
		opts.uring = b
	}

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, usage, name)
		fs.PrintDefaults()
	}
	fs.StringVar(&opts.root, "root", opts.root, "directory to serve")
	fs.DurationVar(&opts.idle, "idle", opts.idle, "keep-alive idle timeout")
	fs.BoolVar(&opts.uring, "uring", opts.uring, "read files through io_uring (linux)")
	fs.BoolVar(&opts.verbose, "v", false, "debug logging")

	if err := fs.Parse(args); err != nil {
		return opts, errUsage
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return opts, errUsage
	}

	port, err := strconv.Atoi(fs.Arg(0))
	if err != nil || port < 0 || port > 65535 {
		fs.Usage()
		return opts, errUsage
	}
	opts.port = port

	if opts.idle <= 0 {
		return opts, fmt.Errorf("idle timeout must be positive, got %s", opts.idle)
	}
	return opts, nil
}
