package runtime

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	cfgpkg "github.com/rzbill/logpager/internal/config"
	"github.com/rzbill/logpager/internal/logstore"
	"github.com/rzbill/logpager/internal/metrics"
	pebblestore "github.com/rzbill/logpager/internal/storage/pebble"
	"github.com/rzbill/logpager/pkg/log"
)

// Options for building the Runtime.
type Options struct {
	DataDir       string
	Fsync         pebblestore.FsyncMode
	// FsyncInterval applies when Fsync is FsyncModeInterval.
	FsyncInterval time.Duration
	Config        cfgpkg.Config
	Logger        log.Logger
	// Registerer receives storage metrics. Optional.
	Registerer prometheus.Registerer
}

// Runtime wires storage, config and the log store for a single node.
type Runtime struct {
	db     *pebblestore.DB
	store  *logstore.Store
	config cfgpkg.Config
	logger log.Logger
}

// Open initializes the underlying storage and returns a Runtime.
func Open(opts Options) (*Runtime, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.NewNopLogger()
	}
	dataDir := opts.DataDir
	if dataDir == "" {
		dataDir = opts.Config.DataDir
	}
	var hook pebblestore.MetricsHook
	if opts.Registerer != nil {
		hook = metrics.NewStorage(opts.Registerer)
	}
	db, err := pebblestore.Open(pebblestore.Options{
		DataDir: dataDir,
		Fsync:         opts.Fsync,
		FsyncInterval: opts.FsyncInterval,
		Metrics:       hook,
		Logger:        logger,
	})
	if err != nil {
		return nil, err
	}
	store, err := logstore.Open(db, logstore.Options{NameRegex: opts.Config.NameRegex, Logger: logger})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.Info("runtime opened", log.Str("data_dir", dataDir))
	return &Runtime{db: db, store: store, config: opts.Config, logger: logger}, nil
}

// Close closes underlying resources.
func (r *Runtime) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// CheckHealth verifies the database can serve an iterator.
func (r *Runtime) CheckHealth(ctx context.Context) error {
	if r.db == nil {
		return errors.New("db not open")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	it, err := r.db.NewIter(nil)
	if err != nil {
		return err
	}
	return it.Close()
}

// Store returns the log store.
func (r *Runtime) Store() *logstore.Store { return r.store }

// DB exposes the underlying DB for advanced operations (internal use only).
func (r *Runtime) DB() *pebblestore.DB { return r.db }

// Config returns the runtime configuration.
func (r *Runtime) Config() cfgpkg.Config { return r.config }
