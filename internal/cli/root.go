// Package cli provides the command-line interface for the scanner.
package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"wse-scanner/internal/analysis/patterns"
	"wse-scanner/internal/config"
	"wse-scanner/internal/logging"
	"wse-scanner/internal/quotes"
	"wse-scanner/internal/store"
	"wse-scanner/pkg/utils"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2026-10-15"
)

// App holds the application dependencies. Config and Logger are set before
// any subcommand runs; the store is opened on first use.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	Store  store.DataStore
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd() *cobra.Command {
	app := &App{Logger: zerolog.Nop()}

	rootCmd := &cobra.Command{
		Use:   "scanner",
		Short: "Warsaw Stock Exchange candlestick pattern scanner",
		Long: `Scans Warsaw Stock Exchange end-of-day quotes for candlestick patterns.

Instruments are admitted when they are liquid, priced above a floor and show
rising activity. Admitted instruments are checked against the pattern registry
and the hits are published per pattern, ranked by turnover.

Run 'scanner update' to download quotes, then 'scanner scan'.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(configDir)
			if err != nil {
				return err
			}
			app.Config = cfg

			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				cfg.Logging.Level = "debug"
			}
			app.Logger = logging.NewLoggerWithConfig(cfg.Logging)
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return app.Close()
		},
	}

	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/wse-scanner)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
	rootCmd.AddCommand(newScanCmd(app))
	rootCmd.AddCommand(newPatternsCmd(app))
	rootCmd.AddCommand(newHistoryCmd(app))
	addDataCommands(rootCmd, app)

	return rootCmd
}

// OpenStore opens the SQLite store once.
func (a *App) OpenStore() (store.DataStore, error) {
	if a.Store != nil {
		return a.Store, nil
	}
	st, err := store.NewSQLiteStore(a.Config.Quotes.DBPath)
	if err != nil {
		return nil, err
	}
	a.Logger.Debug().Str("path", a.Config.Quotes.DBPath).Msg("SQLite store initialized")
	a.Store = st
	return st, nil
}

// Close releases the store if it was opened.
func (a *App) Close() error {
	if a.Store == nil {
		return nil
	}
	err := a.Store.Close()
	a.Store = nil
	return err
}

// Source returns the quotes source, wrapped with the SQLite cache when enabled.
// A cache that cannot be opened is skipped with a warning.
func (a *App) Source() quotes.Source {
	mst := quotes.NewMSTSource(a.Config.Quotes.DataDir)
	if !a.Config.Quotes.CacheEnabled {
		return mst
	}
	st, err := a.OpenStore()
	if err != nil {
		a.Logger.Warn().Err(err).Msg("Quote cache unavailable, reading files directly")
		return mst
	}
	return quotes.NewCachedSource(mst, st, a.Config.Quotes.CacheTTL, a.Logger)
}

// Registry builds the configured pattern registry.
func (a *App) Registry() *patterns.Registry {
	if a.Config.Scanner.ExtendedPatterns {
		return patterns.NewExtendedRegistry(a.Config.Scanner.HammerRatio)
	}
	return patterns.NewRegistry(a.Config.Scanner.HammerRatio)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			}
			output.Printf("WSE Scanner v%s\n", Version)
			output.Dim("Build date: %s", BuildDate)
			return nil
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			showConfig(output, app.Config)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			dir, _ := cmd.Flags().GetString("config")
			if dir == "" {
				dir = config.DefaultConfigDir()
			}
			if output.IsJSON() {
				return output.JSON(map[string]string{"path": dir})
			}
			output.Println(dir)
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) {
	s := cfg.Scanner
	output.Bold("Scanner")
	output.Printf("  Granularity:     %s\n", s.Granularity)
	output.Printf("  Min Turnover:    %s\n", utils.FormatPLN(s.MinTurnover))
	output.Printf("  Min Price:       %.2f\n", s.MinPrice)
	output.Printf("  Rise:            %s x%.2f\n", s.RiseMode, s.RiseFactor)
	output.Printf("  Hammer Ratio:    %.2f\n", s.HammerRatio)
	output.Printf("  Extended:        %v\n", s.ExtendedPatterns)
	output.Printf("  Date Check:      %v\n", s.DateCheck)
	output.Println()

	output.Bold("Quotes")
	output.Printf("  Data Dir:        %s\n", cfg.Quotes.DataDir)
	output.Printf("  URL:             %s\n", cfg.Quotes.URL)
	output.Printf("  Instruments:     %s\n", cfg.Quotes.InstrumentsFile)
	output.Printf("  Cache:           %v (%s)\n", cfg.Quotes.CacheEnabled, cfg.Quotes.CacheTTL)
	output.Println()

	output.Bold("Notifications")
	output.Printf("  Dry Run:         %v\n", cfg.Notifications.DryRun)
	output.Printf("  Max Length:      %d\n", cfg.Notifications.MaxLength)
	output.Printf("  Webhook:         %v\n", cfg.Notifications.Webhook.Enabled)
	output.Printf("  Telegram:        %v\n", cfg.Notifications.Telegram.Enabled)
}
