package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/storefront/internal/config"
	"github.com/JonMunkholm/storefront/internal/core"
	"github.com/JonMunkholm/storefront/internal/logging"
)

var (
	// Global flags
	envFile string

	cfg       *config.Config
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "storefront",
	Short: "Stage and normalize the storefront registry",
	Long: `storefront retrieves the regional storefront registry archive, converts
each region into a Parquet partition, publishes the partitions to shared
storage, and merges them into one normalized dataset.

All paths and backends come from the environment (or an .env file).`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Overload lets the .env file win over inherited variables.
		if err := godotenv.Overload(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return core.Fail(core.KindConfig, "config", err)
			}
			slog.Debug("no env file found, using environment variables", "path", envFile)
		}

		c, err := config.Load()
		if err != nil {
			return core.Fail(core.KindConfig, "config", err)
		}
		cfg = c

		closer, err := logging.Setup(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.File)
		if err != nil {
			return core.Fail(core.KindConfig, "logging", err)
		}
		logCloser = closer

		slog.Debug("configuration loaded", "config", cfg.String())
		return nil
	},
}

// noArgs rejects positional arguments as a configuration error.
func noArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.NoArgs(cmd, args); err != nil {
		return core.Fail(core.KindConfig, "usage", err)
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "environment file loaded before configuration")
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return core.Fail(core.KindConfig, "usage", err)
	})
	rootCmd.AddCommand(acquireCmd, normalizeCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if logCloser != nil {
		_ = logCloser.Close()
	}

	if err != nil {
		// Stage failures already printed their status line.
		var se *core.StageError
		if !errors.As(err, &se) || se.Kind == core.KindConfig {
			fmt.Fprintf(os.Stderr, "storefront: %v\n", err)
		}
		if !errors.As(err, &se) {
			err = core.Fail(core.KindConfig, "usage", err)
		}
	}
	os.Exit(core.ExitCode(err))
}
