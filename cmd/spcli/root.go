package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	sharepoint "github.com/AllenInstitute/wnm-sharepoint-client"
	"github.com/AllenInstitute/wnm-sharepoint-client/auth"
	"github.com/AllenInstitute/wnm-sharepoint-client/config"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath string
	flagSite       string
	flagJSON       bool
	flagVerbose    bool
	flagQuiet      bool
)

// loadedCfg holds the configuration loaded by PersistentPreRunE,
// available to all subcommands after the root pre-run phase completes.
var loadedCfg *config.Config

// httpClientTimeout bounds every Graph request so a hung connection
// cannot block a CLI command indefinitely.
const httpClientTimeout = 60 * time.Second

func defaultHTTPClient() *http.Client {
	return &http.Client{Timeout: httpClientTimeout}
}

// newRootCmd builds the fully-assembled root command with all
// subcommands registered. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "spcli",
		Short:   "SharePoint document library CLI",
		Long:    "A CLI for file operations against SharePoint document libraries via Microsoft Graph.",
		Version: version,
		// Silence Cobra's default error/usage printing — main() handles it.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return loadConfig()
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path (default: CONFIG_JSON_PATH, then env vars)")
	cmd.PersistentFlags().StringVar(&flagSite, "site", config.DefaultSiteName, "named site from the configuration")
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output in JSON format")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")

	cmd.AddCommand(newDrivesCmd())
	cmd.AddCommand(newLsCmd())
	cmd.AddCommand(newTreeCmd())
	cmd.AddCommand(newStatCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newPutCmd())
	cmd.AddCommand(newMkdirCmd())
	cmd.AddCommand(newMvCmd())
	cmd.AddCommand(newRmCmd())

	return cmd
}

// loadConfig loads configuration from --config if set, otherwise through
// the CONFIG_JSON_PATH / environment-variable chain.
func loadConfig() error {
	var (
		cfg *config.Config
		err error
	)

	if flagConfigPath != "" {
		cfg, err = config.LoadFile(flagConfigPath)
	} else {
		cfg, err = config.Load()
	}

	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	loadedCfg = cfg

	return nil
}

// buildLogger creates an slog.Logger on stderr. --verbose and --quiet
// set the level; --quiet wins when both are given.
func buildLogger() *slog.Logger {
	level := slog.LevelInfo

	if flagVerbose {
		level = slog.LevelDebug
	}

	if flagQuiet {
		level = slog.LevelError
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// buildClient wires the token manager and the SharePoint client for the
// selected site. Every subcommand goes through here.
func buildClient() (*sharepoint.Client, *slog.Logger, error) {
	logger := buildLogger()

	tokens, err := auth.NewTokenManager(loadedCfg.Auth,
		auth.WithLogger(logger),
		auth.WithHTTPClient(defaultHTTPClient()),
	)
	if err != nil {
		return nil, nil, err
	}

	client, err := sharepoint.New(loadedCfg, flagSite, tokens,
		sharepoint.WithLogger(logger),
		sharepoint.WithHTTPClient(defaultHTTPClient()),
		sharepoint.WithPathCache(),
	)
	if err != nil {
		return nil, nil, err
	}

	return client, logger, nil
}
