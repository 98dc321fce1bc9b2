package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openwebindex/cdxq/internal/cdx"
	"github.com/openwebindex/cdxq/internal/config"
	"github.com/openwebindex/cdxq/internal/logging"
)

func newIndexesCmd(src *sourceFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "indexes",
		Short: "List the resolved index endpoints",
		Long: `Prints the CDX endpoints a query would iterate, in iteration order.
With --cc this shows which monthly indexes fall inside --crawl-duration.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := src.resolve(); err != nil {
				return err
			}
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			ctx := cmd.Context()
			client, err := cdx.NewClient(ctx, newFetchClient(cfg), src.clientOptions(cfg), logging.L)
			if err != nil {
				return err
			}

			for _, endpoint := range client.Endpoints() {
				fmt.Fprintln(cmd.OutOrStdout(), endpoint)
			}
			return nil
		},
	}
}
