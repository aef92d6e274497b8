package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/rzbill/logpager/internal/export"
	"github.com/rzbill/logpager/internal/loader"
	"github.com/rzbill/logpager/pkg/log"
)

// newViewCommand constructs the `view` command: an initial load followed by
// optional pagination in either direction and an optional follow loop.
func newViewCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view",
		Short: "Show a log stream page by page",
		RunE: func(cmd *cobra.Command, _ []string) error {
			stream, _ := cmd.Flags().GetString("stream")
			at, _ := cmd.Flags().GetString("at")
			window, _ := cmd.Flags().GetDuration("window")
			filter, _ := cmd.Flags().GetString("filter")
			forward, _ := cmd.Flags().GetInt("forward")
			backward, _ := cmd.Flags().GetInt("backward")
			follow, _ := cmd.Flags().GetBool("follow")
			poll, _ := cmd.Flags().GetDuration("poll")
			metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
			if stream == "" {
				return fmt.Errorf("--stream is required (group/stream)")
			}
			if filter != "" && at != "" {
				return fmt.Errorf("--filter and --at are mutually exclusive")
			}

			var initial loader.Message = loader.LoadInitial{}
			switch {
			case filter != "":
				initial = loader.LoadInitialFilter{Expression: filter}
			case at != "":
				anchor, err := parseAt(at)
				if err != nil {
					return err
				}
				initial = loader.LoadInitialRange{Anchor: anchor, Window: window}
			}

			cfg, err := e.config(cmd)
			if err != nil {
				return err
			}
			var longPoll time.Duration
			if follow {
				longPoll = poll
			}
			b, err := e.open(cmd, cfg, longPoll)
			if err != nil {
				return err
			}
			defer b.close()

			ctx := cmd.Context()
			extra := []loader.Option{}
			if metricsAddr != "" {
				reg := prometheus.NewRegistry()
				extra = append(extra, loader.WithMetrics(loader.NewMetrics(reg)))
				stop := serveMetrics(metricsAddr, reg, e.logger)
				defer stop()
			}

			v := &viewer{
				out:   cmd.OutOrStdout(),
				model: loader.NewListModel[loader.Entry](),
				sw:    newStatusWaiter(),
			}
			a := loader.NewActor(ctx, stream, b.fetcher, v.model, e.actorOptions(cfg, append(extra, v.sw.option())...)...)
			defer a.Dispose()
			v.actor = a

			if err := v.run(ctx, initial, backward, forward); err != nil {
				return err
			}
			v.print()
			if follow {
				return v.follow(ctx, poll)
			}
			return nil
		},
	}
	cmd.Flags().StringP("stream", "s", "", "Stream id: group/stream")
	cmd.Flags().String("at", "", "Anchor time (RFC3339 or ms); loads events from at-window on")
	cmd.Flags().Duration("window", time.Minute, "Window before --at")
	cmd.Flags().String("filter", "", "CEL filter expression")
	cmd.Flags().Int("forward", 0, "Load N more pages forward")
	cmd.Flags().Int("backward", 0, "Load N more pages backward (not with --filter)")
	cmd.Flags().BoolP("follow", "f", false, "Keep loading new events until interrupted")
	cmd.Flags().Duration("poll", 2*time.Second, "Follow poll interval")
	cmd.Flags().String("metrics-addr", "", "Serve loader metrics on this address while running")
	return cmd
}

type viewer struct {
	out     io.Writer
	model   *loader.ListModel[loader.Entry]
	sw      statusWaiter
	actor   *loader.Actor
	printed int
}

// run performs the initial load, then up to backward and forward extra pages.
// Pagination stops early at the first page that loads nothing.
func (v *viewer) run(ctx context.Context, initial loader.Message, backward, forward int) error {
	st, err := v.sw.request(ctx, v.actor, initial)
	if err != nil {
		return err
	}
	if st.Kind == loader.StatusFailed {
		return st.Err
	}
	for i := 0; i < backward; i++ {
		if more, err := v.page(ctx, loader.LoadBackward{}); err != nil || !more {
			return err
		}
	}
	for i := 0; i < forward; i++ {
		if more, err := v.page(ctx, loader.LoadForward{}); err != nil || !more {
			return err
		}
	}
	return nil
}

func (v *viewer) page(ctx context.Context, msg loader.Message) (bool, error) {
	st, err := v.sw.request(ctx, v.actor, msg)
	if err != nil {
		return false, err
	}
	switch st.Kind {
	case loader.StatusFailed:
		return false, st.Err
	case loader.StatusRejected:
		if errors.Is(st.Err, loader.ErrNoCursor) {
			return false, nil
		}
		return false, st.Err
	case loader.StatusEmpty:
		return false, nil
	}
	return true, nil
}

func (v *viewer) print() {
	items := v.model.Items()
	if len(items) == 0 {
		fmt.Fprintln(v.out, v.model.EmptyText())
	}
	for _, it := range items {
		fmt.Fprint(v.out, export.FormatEntry(it))
	}
	v.printed = len(items)
}

// follow loads forward until ctx is done, printing only new rows.
func (v *viewer) follow(ctx context.Context, poll time.Duration) error {
	for {
		more, err := v.page(ctx, loader.LoadForward{})
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if more {
			items := v.model.Items()
			for _, it := range items[v.printed:] {
				fmt.Fprint(v.out, export.FormatEntry(it))
			}
			v.printed = len(items)
			continue
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(poll):
		}
	}
}

func serveMetrics(addr string, reg *prometheus.Registry, logger log.Logger) func() {
	srv := &http.Server{Addr: addr, Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Warn("metrics server stopped", log.Err(err))
		}
	}()
	return func() {
		sctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}
}
