package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/nao1215/boorucrawl/internal/autocomplete"
	"github.com/nao1215/boorucrawl/internal/config"
	"github.com/nao1215/boorucrawl/internal/database"
	"github.com/nao1215/boorucrawl/internal/form"
	"github.com/nao1215/boorucrawl/internal/log"
	"github.com/nao1215/boorucrawl/internal/runner"
	"github.com/nao1215/boorucrawl/internal/transport"
)

// runFormCmd opens the crawl form and blocks until the user quits.
func runFormCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	// The form owns the terminal, so logs go to a file.
	logger, closer, err := log.NewFileLogger(cfg.LogFile, cfg.Verbose)
	if err != nil {
		return err
	}
	defer closer.Close()
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return runForm(ctx, cmd.ErrOrStderr(), cfg, logger)
}

func runForm(ctx context.Context, stderr io.Writer, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting boorucrawl",
		"version", getVersion(),
		"config", cfg.ConfigFilePath,
		"dataDir", cfg.DataDir,
	)

	store := openStore(cfg.DataDir, logger)
	if store != nil {
		defer store.Close()
	}

	client, stop, err := newHTTPClient(ctx, stderr, cfg, logger)
	if err != nil {
		return err
	}
	defer stop()

	words := autocomplete.Load(cfg.AutocompleteFile, logger)
	completer := autocomplete.NewMatcher(words, autocomplete.WithLimit(form.MaxSuggestions))

	taggerClient, err := transport.NewClient(
		transport.WithTimeout(cfg.Timeout),
		transport.WithUserAgent(cfg.UserAgent),
	)
	if err != nil {
		return fmt.Errorf("failed to create tagger client: %w", err)
	}

	factory := runner.NewBooruFactory(cfg, client.HTTPClient(), logger,
		runner.WithTaggerClient(taggerClient.HTTPClient()),
	)
	r := runner.New(factory, runnerOptions(store, logger)...)
	// An unfinished run is cancelled on exit, then its record is saved
	// before the database closes.
	runCtx, cancelRuns := context.WithCancel(ctx)
	defer func() {
		cancelRuns()
		r.Wait()
	}()

	ctrl := newController(ctx, store, r, logger)
	m := form.NewModel(runCtx, ctrl, form.WithCompleter(completer))

	p := tea.NewProgram(m, tea.WithContext(ctx), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("form exited: %w", err)
	}
	return nil
}

// openStore opens the settings and history database. An unreadable file
// is moved aside and replaced by a fresh one. When that fails too, nil is
// returned and the form runs with defaults and without history.
func openStore(dataDir string, logger *slog.Logger) *database.Store {
	store, err := database.Open(dataDir, database.DefaultOptions())
	if err == nil {
		return store
	}
	logger.Warn("failed to open database", "dir", dataDir, "error", err)

	path := filepath.Join(dataDir, database.DBFileName)
	if _, statErr := os.Stat(path); statErr != nil {
		return nil
	}

	aside := fmt.Sprintf("%s.corrupt-%d", path, time.Now().UnixNano())
	if err := os.Rename(path, aside); err != nil {
		logger.Warn("failed to move unreadable database aside", "path", path, "error", err)
		return nil
	}
	// Journal files belong to the old database.
	_ = os.Remove(path + "-wal") //nolint:errcheck // may not exist
	_ = os.Remove(path + "-shm") //nolint:errcheck // may not exist
	logger.Warn("moved unreadable database aside", "path", aside)

	store, err = database.Open(dataDir, database.DefaultOptions())
	if err != nil {
		logger.Warn("continuing without settings and history", "error", err)
		return nil
	}
	return store
}

// newController restores the form from store. A nil store means defaults.
func newController(ctx context.Context, store *database.Store, starter form.Starter, logger *slog.Logger) *form.Controller {
	var settings form.SettingsStore
	if store != nil {
		settings = store
	}
	return form.NewController(ctx, settings, starter, form.WithLogger(logger))
}

// runnerOptions records history in store when there is one.
func runnerOptions(store *database.Store, logger *slog.Logger) []runner.Option {
	opts := []runner.Option{runner.WithLogger(logger)}
	if store != nil {
		opts = append(opts, runner.WithHistory(store))
	}
	return opts
}

// newHTTPClient creates the client all requests go through: a SOCKS5
// proxy, an embedded Tor daemon or direct connections. The returned
// function releases whatever was started.
func newHTTPClient(ctx context.Context, stderr io.Writer, cfg *config.Config, logger *slog.Logger) (*transport.Client, func(), error) {
	opts := []transport.Option{
		transport.WithTimeout(cfg.Timeout),
		transport.WithUserAgent(cfg.UserAgent),
	}

	switch {
	case cfg.UseTor:
		return startEmbeddedTor(ctx, stderr, cfg, logger, opts)
	case cfg.ProxyAddress != "":
		client, err := transport.NewClient(append(opts, transport.WithProxy(cfg.ProxyAddress))...)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create proxy client: %w", err)
		}

		status := client.CheckProxy(ctx)
		if status != transport.ProxyStatusOK {
			return nil, nil, fmt.Errorf("proxy check failed: %s (make sure a SOCKS5 proxy is running at %s): %w",
				status, cfg.ProxyAddress, status.Err())
		}

		logger.Info("proxy connection verified", "address", cfg.ProxyAddress)
		return client, func() {}, nil
	default:
		client, err := transport.NewClient(opts...)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create HTTP client: %w", err)
		}
		return client, func() {}, nil
	}
}

// startEmbeddedTor starts a Tor daemon and returns a client routed
// through it. Progress is printed before the form takes the terminal.
func startEmbeddedTor(ctx context.Context, stderr io.Writer, cfg *config.Config, logger *slog.Logger, opts []transport.Option) (*transport.Client, func(), error) {
	fmt.Fprintln(stderr, "Starting embedded Tor daemon...")
	fmt.Fprintf(stderr, "This may take 1-3 minutes while Tor bootstraps and connects to the network.\n\n")

	embeddedTor := transport.NewEmbeddedTor(
		transport.WithStartupTimeout(cfg.TorStartupTimeout),
	)

	if err := embeddedTor.Start(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to start embedded Tor: %w", err)
	}

	stop := func() {
		logger.Info("stopping embedded Tor daemon...")
		if err := embeddedTor.Stop(); err != nil {
			logger.Error("failed to stop embedded Tor", "error", err)
		}
	}

	logger.Info("embedded Tor daemon started", "socksAddr", embeddedTor.SocksAddr())
	fmt.Fprintf(stderr, "Embedded Tor daemon started successfully!\n")
	fmt.Fprintf(stderr, "SOCKS proxy: %s\n\n", embeddedTor.SocksAddr())

	client, err := embeddedTor.NewClient(opts...)
	if err != nil {
		stop()
		return nil, nil, fmt.Errorf("failed to create Tor client: %w", err)
	}

	if status := client.CheckProxy(ctx); status != transport.ProxyStatusOK {
		stop()
		return nil, nil, fmt.Errorf("embedded Tor proxy check failed: %s", status)
	}

	return client, stop, nil
}

// buildConfig creates a Config from defaults, the configuration file and
// command line flags, in that order.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// An explicit path must exist; otherwise a missing file means defaults.
	path := config.FindConfigFile(configPath)
	switch {
	case path != "":
		file, err := config.LoadConfigFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
		cfg.ApplyFile(file)
		cfg.ConfigFilePath = path
	case configPath != "":
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}

	if err := applyFlags(cmd, cfg); err != nil {
		return nil, err
	}
	cfg.Verbose = getVerboseFlag(cmd)

	return cfg, nil
}

// applyFlags overrides configuration values with explicitly set flags.
// Subcommands without these flags are left untouched.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()

	if f := flags.Lookup("proxy"); f != nil && f.Changed {
		cfg.ProxyAddress = f.Value.String()
	}
	if f := flags.Lookup("tor"); f != nil && f.Changed {
		useTor, err := flags.GetBool("tor")
		if err != nil {
			return err
		}
		cfg.UseTor = useTor
	}
	if f := flags.Lookup("timeout"); f != nil && f.Changed {
		timeout, err := flags.GetDuration("timeout")
		if err != nil {
			return err
		}
		cfg.Timeout = timeout
	}
	if f := flags.Lookup("log-file"); f != nil && f.Changed {
		cfg.LogFile = f.Value.String()
	}
	return nil
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}
