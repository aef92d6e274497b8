package client

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/rzbill/logpager/internal/export"
	"github.com/rzbill/logpager/internal/loader"
)

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// newExportCommand constructs the `export` command.
func newExportCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write whole streams to stdout or to files",
		Long: "Export pages each stream from its head up to the time the command started. " +
			"With --max-pages the export stops early and prints a resume token for --resume.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			streams, _ := cmd.Flags().GetStringArray("stream")
			outDir, _ := cmd.Flags().GetString("out")
			maxPages, _ := cmd.Flags().GetInt("max-pages")
			resume, _ := cmd.Flags().GetString("resume")
			filter, _ := cmd.Flags().GetString("filter")
			parallel, _ := cmd.Flags().GetInt("parallel")
			since, _ := cmd.Flags().GetString("since")
			until, _ := cmd.Flags().GetString("until")
			if len(streams) == 0 {
				return fmt.Errorf("at least one --stream is required")
			}
			if len(streams) > 1 && outDir == "" {
				return fmt.Errorf("--out is required when exporting several streams")
			}
			if resume != "" && len(streams) > 1 {
				return fmt.Errorf("--resume applies to a single stream")
			}

			cfg, err := e.config(cmd)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("max-pages") && outDir == "" {
				maxPages = cfg.Export.MaxPages
			}
			opts := export.Options{
				MaxPages: maxPages,
				Resume:   loader.Token(resume),
				Filter:   filter,
				Logger:   e.logger,
			}
			if since != "" {
				if opts.Start, err = parseAt(since); err != nil {
					return err
				}
			}
			if until != "" {
				if opts.Until, err = parseAt(until); err != nil {
					return err
				}
			}

			b, err := e.open(cmd, cfg, 0)
			if err != nil {
				return err
			}
			defer b.close()

			targets := make([]export.Target, 0, len(streams))
			for _, s := range streams {
				s := s
				open := func() (io.WriteCloser, error) { return nopWriteCloser{cmd.OutOrStdout()}, nil }
				if outDir != "" {
					path := filepath.Join(outDir, strings.ReplaceAll(s, "/", "_")+".log")
					open = func() (io.WriteCloser, error) { return createFile(path, resume != "") }
				}
				targets = append(targets, export.Target{Stream: s, Open: open})
			}

			start := time.Now()
			results, err := export.Many(cmd.Context(), b.fetcher, targets, parallel, opts)
			printSummary(cmd.ErrOrStderr(), results, time.Since(start))
			return err
		},
	}
	cmd.Flags().StringArrayP("stream", "s", nil, "Stream id group/stream (repeatable)")
	cmd.Flags().StringP("out", "o", "", "Directory for one <group>_<stream>.log file per stream")
	cmd.Flags().Int("max-pages", 0, "Stop after N pages and print a resume token (default from config when writing to stdout)")
	cmd.Flags().String("resume", "", "Continue a truncated export")
	cmd.Flags().String("filter", "", "CEL filter expression")
	cmd.Flags().String("since", "", "Start time (RFC3339 or ms); default is the head of the stream")
	cmd.Flags().String("until", "", "End time (RFC3339 or ms); default is when the command starts")
	cmd.Flags().Int("parallel", 4, "Streams exported concurrently")
	return cmd
}

type bufferedFile struct {
	*bufio.Writer
	f *os.File
}

func (b bufferedFile) Close() error {
	if err := b.Flush(); err != nil {
		_ = b.f.Close()
		return err
	}
	return b.f.Close()
}

// createFile truncates path, or appends to it when resuming.
func createFile(path string, appendTo bool) (io.WriteCloser, error) {
	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if appendTo {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, err
	}
	return bufferedFile{Writer: bufio.NewWriter(f), f: f}, nil
}

func printSummary(w io.Writer, results map[string]export.Result, elapsed time.Duration) {
	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		r := results[name]
		fmt.Fprintf(w, "%s: %s events, %s in %d pages (%s)\n",
			name, humanize.Comma(int64(r.Entries)), humanize.Bytes(uint64(r.Bytes)), r.Pages, elapsed.Round(time.Millisecond))
		if r.Truncated {
			fmt.Fprintf(w, "%s: stopped early; continue with --resume %s --until %d\n", name, r.Resume, r.Until.UnixMilli())
		}
	}
}
