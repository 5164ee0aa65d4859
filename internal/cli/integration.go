package cli

import (
	"context"
	"fmt"

	"archie-core-commerce-sync/internal/app"
	"archie-core-commerce-sync/internal/application"
	"archie-core-commerce-sync/internal/domain"

	"github.com/spf13/cobra"
)

// NewIntegrationCommand creates the integration command group.
func NewIntegrationCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "integration",
		Short: "Manage connected stores",
	}
	cmd.AddCommand(newIntegrationConnectCommand(rootOpts))
	cmd.AddCommand(newIntegrationListCommand(rootOpts))
	cmd.AddCommand(newIntegrationDeactivateCommand(rootOpts))
	return cmd
}

func newIntegrationConnectCommand(opts *RootOptions) *cobra.Command {
	input := application.ConnectInput{}
	var (
		platform string
		creds    map[string]string
	)

	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Connect a store, or refresh the credentials of a connected one",
		Long: `Connect a store to a user. Credentials are encrypted before they
are stored.

Example:
  syncctl integration connect --user u1 --platform shopify \
    --store demo.myshopify.com --cred access_token=shpat_xxx --webhook-secret s3cret`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			input.Platform = domain.Platform(platform)
			input.Credentials = domain.Credentials(creds)
			return opts.withApp(cmd, func(ctx context.Context, a *app.App) error {
				integration, err := a.Integration.Connect(ctx, input)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), integration)
			})
		},
	}

	cmd.Flags().StringVar(&input.UserID, "user", "", "owning user (required)")
	cmd.Flags().StringVar(&platform, "platform", "", "platform name or alias (required)")
	cmd.Flags().StringVar(&input.StoreIdentifier, "store", "", "shop domain, seller id or shop id (required)")
	cmd.Flags().StringVar(&input.StoreURL, "store-url", "", "public store URL")
	cmd.Flags().StringVar(&input.WebhookSecret, "webhook-secret", "", "secret used to sign this store's webhooks")
	cmd.Flags().StringToStringVar(&creds, "cred", nil, "credential key=value pairs")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("platform")
	_ = cmd.MarkFlagRequired("store")

	return cmd
}

func newIntegrationListCommand(opts *RootOptions) *cobra.Command {
	var (
		userID     string
		activeOnly bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List integrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app.App) error {
				integrations, err := a.Integration.List(ctx, domain.IntegrationFilter{
					UserID:     userID,
					ActiveOnly: activeOnly,
				})
				if err != nil {
					return err
				}
				if integrations == nil {
					integrations = []*domain.Integration{}
				}
				return printJSON(cmd.OutOrStdout(), integrations)
			})
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "only this user's integrations")
	cmd.Flags().BoolVar(&activeOnly, "active", false, "only active integrations")
	return cmd
}

func newIntegrationDeactivateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate <id>",
		Short: "Deactivate an integration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.Integration.Deactivate(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deactivated %s\n", args[0])
				return nil
			})
		},
	}
}
