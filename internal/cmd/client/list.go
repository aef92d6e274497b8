package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/kataras/tablewriter"
	"github.com/lensesio/tableprinter"
	"github.com/spf13/cobra"

	cfgpkg "github.com/rzbill/logpager/internal/config"
	"github.com/rzbill/logpager/internal/loader"
)

type groupRow struct {
	Name    string `header:"group"`
	Created string `header:"created"`
}

type streamRow struct {
	Group     string `header:"group"`
	Name      string `header:"stream"`
	LastEvent string `header:"last event"`
}

// newGroupsCommand constructs the `groups` command.
func newGroupsCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "groups",
		Short: "List log groups",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := e.config(cmd)
			if err != nil {
				return err
			}
			b, err := e.open(cmd, cfg, 0)
			if err != nil {
				return err
			}
			defer b.close()
			groups, err := listAll(cmd.Context(), e, cfg, b.groups())
			if err != nil {
				return err
			}
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				return writeJSONLines(cmd.OutOrStdout(), groups)
			}
			rows := make([]groupRow, 0, len(groups))
			for _, g := range groups {
				rows = append(rows, groupRow{Name: g.Name, Created: humanize.Time(time.UnixMilli(g.CreatedAtMs))})
			}
			printTable(cmd.OutOrStdout(), rows, len(rows), cfg.EmptyText)
			return nil
		},
	}
	cmd.Flags().Bool("json", false, "Print one JSON object per line")
	return cmd
}

// newStreamsCommand constructs the `streams` command.
func newStreamsCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "streams",
		Short: "List the streams of a log group",
		RunE: func(cmd *cobra.Command, _ []string) error {
			group, _ := cmd.Flags().GetString("group")
			if group == "" {
				return fmt.Errorf("--group is required")
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
			streams, err := listAll(cmd.Context(), e, cfg, b.streams(group))
			if err != nil {
				return err
			}
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				return writeJSONLines(cmd.OutOrStdout(), streams)
			}
			rows := make([]streamRow, 0, len(streams))
			for _, s := range streams {
				last := "-"
				if s.LastEventMs > 0 {
					last = humanize.Time(time.UnixMilli(s.LastEventMs))
				}
				rows = append(rows, streamRow{Group: s.Group, Name: s.Name, LastEvent: last})
			}
			printTable(cmd.OutOrStdout(), rows, len(rows), cfg.EmptyText)
			return nil
		},
	}
	cmd.Flags().StringP("group", "g", "", "Log group")
	cmd.Flags().Bool("json", false, "Print one JSON object per line")
	return cmd
}

// listAll runs an exhaustive list actor and returns the loaded items.
func listAll[T any](ctx context.Context, e *env, cfg cfgpkg.Config, f loader.ListFetcher[T]) ([]T, error) {
	model := loader.NewListModel[T]()
	sw := newStatusWaiter()
	a := loader.NewListActor[T](ctx, f, model, e.actorOptions(cfg, sw.option(), loader.WithExhaustive())...)
	defer a.Dispose()
	st, err := sw.request(ctx, a, loader.LoadInitial{})
	if err != nil {
		return nil, err
	}
	if st.Kind == loader.StatusFailed {
		return nil, st.Err
	}
	return model.Items(), nil
}

func printTable(w io.Writer, rows any, n int, emptyText string) {
	if n == 0 {
		fmt.Fprintln(w, emptyText)
		return
	}
	printer := tableprinter.New(w)
	printer.BorderTop, printer.BorderBottom, printer.BorderLeft, printer.BorderRight = true, true, true, true
	printer.CenterSeparator = "│"
	printer.ColumnSeparator = "│"
	printer.RowSeparator = "─"
	printer.HeaderBgColor = tablewriter.BgBlackColor
	printer.HeaderFgColor = tablewriter.FgGreenColor
	printer.Print(rows)
}

func writeJSONLines[T any](w io.Writer, items []T) error {
	enc := json.NewEncoder(w)
	for _, it := range items {
		if err := enc.Encode(it); err != nil {
			return err
		}
	}
	return nil
}
