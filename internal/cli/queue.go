package cli

import (
	"context"
	"fmt"

	"archie-core-commerce-sync/internal/app"
	"archie-core-commerce-sync/internal/domain"

	"github.com/spf13/cobra"
)

// NewQueueCommand creates the queue command group.
func NewQueueCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and repair the sync queue",
	}
	cmd.AddCommand(newQueueFailedCommand(rootOpts))
	cmd.AddCommand(newQueueRequeueCommand(rootOpts))
	return cmd
}

func newQueueFailedCommand(opts *RootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "failed",
		Short: "List queue items that exhausted their retries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit <= 0 {
				return fmt.Errorf("--limit must be positive")
			}
			return opts.withApp(cmd, func(ctx context.Context, a *app.App) error {
				items, err := a.Queue.ListFailed(ctx, limit)
				if err != nil {
					return err
				}
				if items == nil {
					items = []*domain.QueueItem{}
				}
				return printJSON(cmd.OutOrStdout(), items)
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of items")
	return cmd
}

func newQueueRequeueCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "requeue <id>...",
		Short: "Reset failed items to pending with a fresh retry budget",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app.App) error {
				for _, id := range args {
					if err := a.Queue.Requeue(ctx, id); err != nil {
						return fmt.Errorf("failed to requeue %s: %w", id, err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "requeued %s\n", id)
				}
				return nil
			})
		},
	}
}
