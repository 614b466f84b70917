package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/boorucrawl/internal/config"
)

// NewRootCmd creates the root command. Without a subcommand it opens the
// crawl form.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "boorucrawl",
		Short: "Collect image board pictures into a training data set",
		Long: `boorucrawl downloads images matching a search term from Danbooru or
Gelbooru, drops near-duplicate pictures, resizes them and
writes image + caption pairs for textual inversion training.

Running boorucrawl without a subcommand opens an interactive form.
The last used values are remembered between runs. Progress is written to
the log file because the form owns the terminal.

Network traffic can be routed through a SOCKS5 proxy (--proxy) or an
embedded Tor daemon (--tor).`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE:          runFormCmd,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .boorucrawl in current or home directory)")

	cmd.Flags().StringP("proxy", "p", "",
		"SOCKS5 proxy address (host:port) for all requests")
	cmd.Flags().Bool("tor", false,
		"Start an embedded Tor daemon and route requests through it")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each HTTP request")
	cmd.Flags().String("log-file", "",
		"Log file path (default: boorucrawl.log in the XDG state directory)")

	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
