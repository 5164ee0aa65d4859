// Package cli implements syncctl, the operator command line for the sync service.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"archie-core-commerce-sync/internal/app"
	"archie-core-commerce-sync/internal/infrastructure/config"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// OpenFunc builds the service graph a command operates on
type OpenFunc func(ctx context.Context, logger zerolog.Logger) (*app.App, error)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool

	// Open overrides how the App is built (for testing).
	// If nil, configuration is read from the environment.
	Open OpenFunc
}

// NewRootCommand creates the root command for syncctl.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "syncctl",
		Short: "Operate the commerce sync service",
		Long: `syncctl runs syncs and inspects the sync queue against the same
backends as the API server. Configuration comes from the environment
and an optional .env file.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(NewRunSyncCommand(opts))
	cmd.AddCommand(NewRunScheduledCommand(opts))
	cmd.AddCommand(NewQueueCommand(opts))
	cmd.AddCommand(NewIntegrationCommand(opts))

	return cmd
}

func (o *RootOptions) logger(cmd *cobra.Command) zerolog.Logger {
	level := zerolog.WarnLevel
	if o.Verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(cmd.ErrOrStderr()).Level(level).With().Timestamp().Logger()
}

// withApp opens the App, runs fn and closes it again
func (o *RootOptions) withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	open := o.Open
	if open == nil {
		open = openFromEnv
	}
	a, err := open(ctx, o.logger(cmd))
	if err != nil {
		return err
	}
	defer a.Close(context.WithoutCancel(ctx))
	return fn(ctx, a)
}

func openFromEnv(ctx context.Context, logger zerolog.Logger) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg, logger)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// Execute runs the root command and exits non-zero on failure
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
