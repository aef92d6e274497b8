package client

import (
	"context"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/rzbill/logpager/internal/api"
	cfgpkg "github.com/rzbill/logpager/internal/config"
	"github.com/rzbill/logpager/internal/loader"
	"github.com/rzbill/logpager/internal/runtime"
	"github.com/rzbill/logpager/internal/source/local"
	"github.com/rzbill/logpager/internal/source/remote"
	pebblestore "github.com/rzbill/logpager/internal/storage/pebble"
	"github.com/rzbill/logpager/pkg/log"
)

// env carries what every command needs before it resolves a backend.
type env struct {
	baseURL BaseURLFunc
	logger  log.Logger
}

// backend is either a local data directory or a remote server.
type backend struct {
	fetcher loader.Fetcher
	groups  func() loader.ListFetcher[api.Group]
	streams func(group string) loader.ListFetcher[api.Stream]
	ingest  func(ctx context.Context, group, stream string, events []api.Event) ([]uint64, error)
	close   func() error
}

func (e *env) config(cmd *cobra.Command) (cfgpkg.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := cfgpkg.Load(path)
	if err != nil {
		return cfgpkg.Config{}, err
	}
	cfgpkg.FromEnv(&cfg)
	return cfg, nil
}

// apiURL resolves --api-url, then the embedding application's default,
// then the config file.
func (e *env) apiURL(cmd *cobra.Command, cfg cfgpkg.Config) string {
	if v, _ := cmd.Flags().GetString("api-url"); v != "" {
		return v
	}
	if e.baseURL != nil {
		if v := e.baseURL(); v != "" {
			return v
		}
	}
	return cfg.APIURL
}

// open resolves the backend. longPoll only applies to remote servers.
func (e *env) open(cmd *cobra.Command, cfg cfgpkg.Config, longPoll time.Duration) (*backend, error) {
	if dataDir, _ := cmd.Flags().GetString("data-dir"); dataDir != "" {
		rt, err := runtime.Open(runtime.Options{
			DataDir: filepath.Join(dataDir, "store"),
			Fsync:   pebblestore.FsyncModeAlways,
			Config:  cfg,
			Logger:  e.logger,
		})
		if err != nil {
			return nil, err
		}
		src := local.New(rt.Store(), local.WithPageSize(cfg.PageSize), local.WithLogger(e.logger))
		return &backend{
			fetcher: src,
			groups:  src.Groups,
			streams: src.Streams,
			ingest: func(ctx context.Context, group, stream string, events []api.Event) ([]uint64, error) {
				entries := make([]loader.Entry, 0, len(events))
				for _, ev := range events {
					ent := loader.Entry{Message: ev.Message, Source: ev.Source}
					if ev.Timestamp != 0 {
						ent.Timestamp = time.UnixMilli(ev.Timestamp)
					}
					entries = append(entries, ent)
				}
				return src.Append(ctx, local.StreamID(group, stream), entries)
			},
			close: rt.Close,
		}, nil
	}

	var opts []remote.Option
	if longPoll > 0 {
		opts = append(opts, remote.WithLongPoll(longPoll))
	}
	c := remote.New(e.apiURL(cmd, cfg), opts...)
	return &backend{
		fetcher: c,
		groups:  c.Groups,
		streams: c.Streams,
		ingest:  c.Ingest,
		close:   func() error { return nil },
	}, nil
}

// actorOptions applies the config to an actor.
func (e *env) actorOptions(cfg cfgpkg.Config, extra ...loader.Option) []loader.Option {
	opts := []loader.Option{
		loader.WithLogger(e.logger),
		loader.WithInboxSize(cfg.InboxSize),
		loader.WithEmptyText(cfg.EmptyText),
	}
	return append(opts, extra...)
}
