package export

import (
	"context"
	"fmt"
	"io"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/rzbill/logpager/internal/loader"
)

// Target is one stream of a multi-stream export together with its sink.
type Target struct {
	Stream string
	Open   func() (io.WriteCloser, error)
}

// Many exports targets concurrently, at most parallel at a time (zero means
// one per target). The first failure cancels the remaining exports. Results
// are keyed by stream.
func Many(ctx context.Context, f loader.Fetcher, targets []Target, parallel int, opts Options) (map[string]Result, error) {
	g, gctx := errgroup.WithContext(ctx)
	if parallel > 0 {
		g.SetLimit(parallel)
	}
	var mu sync.Mutex
	results := make(map[string]Result, len(targets))
	for _, t := range targets {
		t := t
		g.Go(func() error {
			w, err := t.Open()
			if err != nil {
				return fmt.Errorf("export %q: %w", t.Stream, err)
			}
			res, err := Stream(gctx, f, t.Stream, w, opts)
			if cerr := w.Close(); err == nil && cerr != nil {
				err = cerr
			}
			mu.Lock()
			results[t.Stream] = res
			mu.Unlock()
			return err
		})
	}
	err := g.Wait()
	return results, err
}
