package serverrun

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	cfgpkg "github.com/rzbill/logpager/internal/config"
	"github.com/rzbill/logpager/internal/logstore"
	"github.com/rzbill/logpager/internal/runtime"
	httpserver "github.com/rzbill/logpager/internal/server/http"
	pebblestore "github.com/rzbill/logpager/internal/storage/pebble"
	logpkg "github.com/rzbill/logpager/pkg/log"
)

type Options struct {
	DataDir       string
	HTTPAddr      string
	Fsync         pebblestore.FsyncMode
	FsyncInterval time.Duration
	Config        cfgpkg.Config
	// Logger overrides the logger built from Config.Log.
	Logger logpkg.Logger
	// Registry receives and serves metrics. Defaults to the process registry.
	Registry *prometheus.Registry
}

// Run starts the HTTP server and the retention loop and blocks until ctx is
// cancelled or a signal arrives.
func Run(ctx context.Context, opts Options) error {
	sctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if opts.DataDir == "" {
		opts.DataDir = opts.Config.DataDir
	}
	if opts.DataDir == "" {
		opts.DataDir = cfgpkg.DefaultDataDir()
	}
	if opts.HTTPAddr == "" {
		opts.HTTPAddr = opts.Config.HTTPAddr
	}

	procLogger := opts.Logger
	if procLogger == nil {
		procLogger = buildLogger(opts.Config.Log)
		// Redirect stdlib logs to our logger
		logpkg.RedirectStdLog(procLogger)
	}

	var reg prometheus.Registerer = prometheus.DefaultRegisterer
	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if opts.Registry != nil {
		reg, gatherer = opts.Registry, opts.Registry
	}

	storeDir := filepath.Join(opts.DataDir, "store")
	rt, err := runtime.Open(runtime.Options{
		DataDir:       storeDir,
		Fsync:         opts.Fsync,
		FsyncInterval: opts.FsyncInterval,
		Config:        opts.Config,
		Logger:        procLogger,
		Registerer:    reg,
	})
	if err != nil {
		return err
	}
	defer rt.Close()

	procLogger.Info("Starting logpager server",
		logpkg.Str("http", opts.HTTPAddr),
		logpkg.Str("data_dir", storeDir),
		logpkg.Int("page_size", opts.Config.PageSize),
		logpkg.Int64("retention_max_age_ms", opts.Config.Retention.MaxAgeMs),
	)

	hsrv := httpserver.New(rt, procLogger, httpserver.WithGatherer(gatherer))
	g, gctx := errgroup.WithContext(sctx)
	g.Go(func() error {
		return hsrv.ListenAndServe(gctx, opts.HTTPAddr)
	})
	if maxAge := opts.Config.Retention.MaxAgeMs; maxAge > 0 {
		interval := time.Duration(opts.Config.Retention.IntervalMs) * time.Millisecond
		g.Go(func() error {
			runRetention(gctx, rt.Store(), time.Duration(maxAge)*time.Millisecond, interval, procLogger)
			return nil
		})
	}

	err = g.Wait()
	// Shut the server down before the deferred runtime close.
	hsrv.Close()
	if err != nil && sctx.Err() == nil {
		procLogger.Error("server stopped", logpkg.Err(err))
		return err
	}
	return nil
}

func buildLogger(lc cfgpkg.LogConfig) logpkg.Logger {
	cfg := &logpkg.Config{Level: lc.Level, Format: lc.Format}
	l, err := logpkg.ApplyConfig(cfg)
	if err == nil {
		return l
	}
	lvl := logpkg.InfoLevel
	if parsed, e := logpkg.ParseLevel(cfg.Level); e == nil {
		lvl = parsed
	}
	return logpkg.NewLogger(logpkg.WithLevel(lvl), logpkg.WithFormatter(&logpkg.TextFormatter{}))
}

// runRetention trims records older than maxAge every interval until ctx is done.
func runRetention(ctx context.Context, store *logstore.Store, maxAge, interval time.Duration, logger logpkg.Logger) {
	if interval <= 0 {
		interval = time.Minute
	}
	logger = logger.WithComponent("retention")
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			cutoff := now.Add(-maxAge).UnixMilli()
			n, err := store.TrimOlderThan(ctx, cutoff)
			if err != nil {
				if ctx.Err() == nil {
					logger.Warn("trim failed", logpkg.Err(err))
				}
				continue
			}
			if n > 0 {
				logger.Info("trimmed records", logpkg.Int("count", n), logpkg.Int64("cutoff_ms", cutoff))
			}
		}
	}
}
