package main

import (
	"errors"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/s00inx/httpd/server"
)

func main() {
	opts, err := parseOptions(os.Args[0], os.Args[1:], os.Getenv, os.Stderr)
	if errors.Is(err, errUsage) {
		// usage was printed, wrong arguments are not an error exit
		os.Exit(0)
	}

	level := zerolog.InfoLevel
	if opts.verbose {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).
		With().
		Timestamp().
		Logger()

	if err != nil {
		log.Fatal().Err(err).Msg("bad configuration")
	}

	// every target is relative to the served root
	if err := os.Chdir(opts.root); err != nil {
		log.Fatal().Err(err).Str("root", opts.root).Msg("can't enter served root")
	}

	cfg := server.DefaultConfig()
	cfg.Port = opts.port
	cfg.Root = "."
	cfg.IdleTimeout = opts.idle
	cfg.UseIOURing = opts.uring
	cfg.Logger = log

	srv, err := server.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("init failed")
	}
	if err := srv.ListenAndServe(); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
