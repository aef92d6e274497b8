// Package export writes whole streams to files or terminals by paging
// forward from the head up to a fixed end time.
package export

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rzbill/logpager/internal/loader"
	"github.com/rzbill/logpager/pkg/log"
)

// Options controls one export.
type Options struct {
	// Start is the earliest timestamp to export. Zero means the head.
	Start time.Time
	// Until fixes the end of the export. Zero means the time Stream is called,
	// so events appended while exporting are left out.
	Until time.Time
	// MaxPages stops the export after that many pages with Truncated set.
	// Zero means no limit.
	MaxPages int
	// Resume continues a truncated export from its Result.Resume token.
	Resume loader.Token
	// Filter is passed on every request.
	Filter string
	Logger log.Logger
}

// Result summarises an export.
type Result struct {
	Pages   int
	Entries int
	Bytes   int64
	// Resume is set when Truncated; pass it back as Options.Resume together
	// with Until so the continuation stops at the same cutoff.
	Resume    loader.Token
	Until     time.Time
	Truncated bool
}

// FormatEntry renders one exported line.
func FormatEntry(e loader.Entry) string {
	return e.Timestamp.UTC().Format(time.RFC3339Nano) + " " + e.Message + "\n"
}

// Stream pages through stream and writes every entry up to Until to w. It
// stops when a page is empty, when the forward token stops advancing, or at
// the first entry past Until. ctx is checked between pages; on cancellation
// what was written so far is flushed and ctx.Err() returned.
func Stream(ctx context.Context, f loader.Fetcher, stream string, w io.Writer, opts Options) (Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.NewNopLogger()
	}
	logger = logger.WithComponent("export").With(log.Str("stream", stream))

	if opts.Filter != "" {
		if fs, ok := f.(loader.FilterSupporter); !ok || !fs.SupportsFilter() {
			return Result{}, fmt.Errorf("export %q: %w: filter", stream, loader.ErrUnsupportedOperation)
		}
	}
	until := opts.Until
	if until.IsZero() {
		until = time.Now()
	}

	req := loader.ForwardRequest{Token: opts.Resume, Filter: opts.Filter}
	if req.Token.IsZero() {
		req.Range = &loader.TimeRange{Start: opts.Start, End: until}
	}

	bw := bufio.NewWriter(w)
	res := Result{Until: until}
	finish := func(err error) (Result, error) {
		if ferr := bw.Flush(); err == nil && ferr != nil {
			err = ferr
		}
		logger.Debug("export finished",
			log.Int("pages", res.Pages),
			log.Int("entries", res.Entries),
			log.Bool("truncated", res.Truncated))
		return res, err
	}

	for {
		if err := ctx.Err(); err != nil {
			return finish(err)
		}
		if opts.MaxPages > 0 && res.Pages >= opts.MaxPages {
			res.Truncated = true
			res.Resume = req.Token
			return finish(nil)
		}
		page, err := f.FetchForward(ctx, stream, req)
		if err != nil {
			if ctx.Err() != nil {
				return finish(ctx.Err())
			}
			return finish(&loader.FetchError{Op: "export", Stream: stream, Err: err})
		}
		res.Pages++

		past := false
		for _, e := range page.Entries {
			if e.Timestamp.After(until) {
				past = true
				break
			}
			n, err := bw.WriteString(FormatEntry(e))
			res.Bytes += int64(n)
			if err != nil {
				return finish(err)
			}
			res.Entries++
		}
		if past || len(page.Entries) == 0 || page.NextForward.IsZero() || page.NextForward == req.Token {
			return finish(nil)
		}
		req = loader.ForwardRequest{Token: page.NextForward, Filter: opts.Filter}
	}
}
