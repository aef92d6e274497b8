// Package log provides logpager's structured logging facade.
//
// # Overview
//
// The package exposes a small Logger interface with leveled methods and a
// Field type for structured context. Internally it is backed by log/slog via
// a bridge handler that feeds the package's formatters and outputs, so the
// output stays consistent whether a record comes from the facade or from a
// library logging through slog.
//
// Quick start
//
//	l := log.NewLogger(
//	    log.WithLevel(log.InfoLevel),
//	    log.WithFormatter(&log.TextFormatter{}),
//	    log.WithOutput(log.NewConsoleOutput()),
//	)
//	l = l.With(log.Component("loader"), log.Str("stream", "app/web-1"))
//	l.Info("initial page loaded", log.Int("entries", 100))
//
// # Configuration
//
// ApplyConfig builds a logger from a declarative Config with JSON or text
// formatting, several outputs (console, file, null), key redaction and
// per-message sampling.
//
// # Interop
//
// RedirectStdLog sends the standard library logger (used by Pebble) through
// a facade logger; ToStdLogger returns a *log.Logger for APIs that want one.
package log
