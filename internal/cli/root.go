// Package cli provides the command-line interface for sakhi.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/raphaelgruber/sakhi-go/internal/api"
	"github.com/raphaelgruber/sakhi-go/internal/auth"
	"github.com/raphaelgruber/sakhi-go/internal/config"
	"github.com/raphaelgruber/sakhi-go/internal/token"
	"github.com/spf13/cobra"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose bool

	// Global config and clients
	cfg        config.Config
	logger     *slog.Logger
	logCleanup func() error
	tokens     *token.Store
	apiClient  *api.Client
	authCtl    *auth.Controller
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "sakhi",
	Short: "Terminal client for the Sakhi chat service",
	Long: `Sakhi is a terminal client for the Sakhi support chat service.

Chat anonymously with canned guidance, or log in to talk to the real
assistant with server-side conversation history.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip client setup for version and help commands
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		cfg = config.Load()

		level := cfg.LogLevel
		if verbose {
			level = slog.LevelDebug
		}
		logger, logCleanup = config.SetupLogger(cfg.LogFile, level)

		var err error
		tokens, err = token.NewStore(cfg.TokenPath())
		if err != nil {
			return fmt.Errorf("open token store: %w", err)
		}

		apiClient = api.New(cfg.ServerURL, tokens, logger)
		apiClient.SetTimeout(cfg.ClientTimeout)
		authCtl = auth.NewController(apiClient, logger)

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCleanup != nil {
			if err := logCleanup(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close log file: %v\n", err)
			}
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Add subcommands
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(chatCmd)
}
