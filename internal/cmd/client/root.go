package client

import (
	"github.com/spf13/cobra"

	"github.com/rzbill/logpager/pkg/log"
)

// BaseURLFunc provides the base HTTP API URL (e.g., from env or flag).
type BaseURLFunc func() string

// NewRoot constructs a root Cobra command for the logpager client.
func NewRoot(baseURL BaseURLFunc, logger log.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:   "logpager",
		Short: "logpager client commands",
	}
	AddPersistentFlags(root)
	for _, c := range Commands(baseURL, logger) {
		root.AddCommand(c)
	}
	return root
}

// AddPersistentFlags registers the flags shared by every client command.
func AddPersistentFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("config", "", "JSON config file")
	cmd.PersistentFlags().String("api-url", "", "Server base URL (default from config or LOGPAGER_API_URL)")
	cmd.PersistentFlags().String("data-dir", "", "Read a local data directory instead of a server")
}

// Commands returns the client subcommands.
func Commands(baseURL BaseURLFunc, logger log.Logger) []*cobra.Command {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	e := &env{baseURL: baseURL, logger: logger}
	return []*cobra.Command{
		newGroupsCommand(e),
		newStreamsCommand(e),
		newViewCommand(e),
		newExportCommand(e),
		newIngestCommand(e),
	}
}
