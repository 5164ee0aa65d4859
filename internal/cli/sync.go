package cli

import (
	"context"
	"fmt"

	"archie-core-commerce-sync/internal/app"
	"archie-core-commerce-sync/internal/application"
	"archie-core-commerce-sync/internal/domain"

	"github.com/spf13/cobra"
)

// RunSyncOptions holds flags for the run-sync command.
type RunSyncOptions struct {
	*RootOptions
	UserID    string
	SyncTypes []string
	Platforms []string
	Full      bool
}

// NewRunSyncCommand creates the run-sync command.
func NewRunSyncCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunSyncOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run-sync",
		Short: "Run the enabled sync types of one user's integrations",
		Long: `Run a sync orchestration for one user and print one result per
integration.

Example:
  syncctl run-sync --user u1
  syncctl run-sync --user u1 --type products,stock --platform shopify --full`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app.App) error {
				return runSync(ctx, cmd, opts, a)
			})
		},
	}

	cmd.Flags().StringVar(&opts.UserID, "user", "", "user whose integrations are synced (required)")
	cmd.Flags().StringSliceVar(&opts.SyncTypes, "type", nil, "sync types to run (default all)")
	cmd.Flags().StringSliceVar(&opts.Platforms, "platform", nil, "limit to these platforms")
	cmd.Flags().BoolVar(&opts.Full, "full", false, "ignore last sync timestamps")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func runSync(ctx context.Context, cmd *cobra.Command, opts *RunSyncOptions, a *app.App) error {
	req := application.RunSyncRequest{
		UserID:        opts.UserID,
		ForceFullSync: opts.Full,
	}
	for _, raw := range opts.SyncTypes {
		syncType := domain.SyncType(raw)
		if !syncType.IsValid() {
			return fmt.Errorf("unknown sync type %q", raw)
		}
		req.SyncTypes = append(req.SyncTypes, syncType)
	}
	for _, raw := range opts.Platforms {
		req.Platforms = append(req.Platforms, domain.ParsePlatform(raw))
	}

	results, err := a.Orchestrator.RunSync(ctx, req)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), results)
}

// RunScheduledOptions holds flags for the run-scheduled command.
type RunScheduledOptions struct {
	*RootOptions
	IntegrationID string
	UserID        string
	SyncType      string
}

// NewRunScheduledCommand creates the run-scheduled command.
func NewRunScheduledCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunScheduledOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run-scheduled",
		Short: "Run one scheduled auto-sync pass now",
		Long: `Run the scheduled auto-sync over every active integration, or the
subset selected by --integration or --user, and print the summary.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app.App) error {
				scope := domain.ScheduleScope{IntegrationID: opts.IntegrationID, UserID: opts.UserID}
				summary, err := a.Scheduler.RunScheduled(ctx, scope, domain.SyncType(opts.SyncType))
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), summary)
			})
		},
	}

	cmd.Flags().StringVar(&opts.IntegrationID, "integration", "", "only this integration")
	cmd.Flags().StringVar(&opts.UserID, "user", "", "only this user's integrations")
	cmd.Flags().StringVar(&opts.SyncType, "type", "", "single sync type instead of a full sync")

	return cmd
}
