package client

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/rzbill/logpager/internal/api"
)

const ingestBatch = 500

// newIngestCommand constructs the `ingest` command: one event per input line.
func newIngestCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Append lines from stdin or a file to a stream",
		RunE: func(cmd *cobra.Command, _ []string) error {
			group, _ := cmd.Flags().GetString("group")
			stream, _ := cmd.Flags().GetString("stream")
			source, _ := cmd.Flags().GetString("source")
			file, _ := cmd.Flags().GetString("file")
			if group == "" || stream == "" {
				return fmt.Errorf("--group and --stream are required")
			}

			var in io.Reader = cmd.InOrStdin()
			if file != "" {
				f, err := os.Open(file)
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			cfg, err := e.config(cmd)
			if err != nil {
				return err
			}
			b, err := e.open(cmd, cfg, 0)
			if err != nil {
				return err
			}
			defer b.close()

			var total, bytes int
			batch := make([]api.Event, 0, ingestBatch)
			flush := func() error {
				if len(batch) == 0 {
					return nil
				}
				if _, err := b.ingest(cmd.Context(), group, stream, batch); err != nil {
					return err
				}
				total += len(batch)
				batch = batch[:0]
				return nil
			}
			sc := bufio.NewScanner(in)
			sc.Buffer(make([]byte, 64*1024), 1<<20)
			for sc.Scan() {
				line := sc.Text()
				if line == "" {
					continue
				}
				bytes += len(line)
				batch = append(batch, api.Event{Message: line, Source: source})
				if len(batch) == ingestBatch {
					if err := flush(); err != nil {
						return err
					}
				}
			}
			if err := sc.Err(); err != nil {
				return err
			}
			if err := flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "ingested %s events (%s) into %s/%s\n",
				humanize.Comma(int64(total)), humanize.Bytes(uint64(bytes)), group, stream)
			return nil
		},
	}
	cmd.Flags().StringP("group", "g", "", "Log group")
	cmd.Flags().StringP("stream", "s", "", "Stream name")
	cmd.Flags().String("source", "", "Source label stored with every event")
	cmd.Flags().String("file", "", "Read from this file instead of stdin")
	return cmd
}
