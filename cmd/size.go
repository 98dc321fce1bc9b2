package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openwebindex/cdxq/internal/cdx"
	"github.com/openwebindex/cdxq/internal/config"
	"github.com/openwebindex/cdxq/internal/logging"
)

func newSizeCmd(src *sourceFlags) *cobra.Command {
	var asPages bool
	cmd := &cobra.Command{
		Use:   "size <url-pattern>",
		Short: "Estimate how many captures match a URL pattern",
		Long: `Asks each resolved endpoint for its page count and prints an estimated
record total. The estimate discounts the partial page at each end of the
match range; use --as-pages for the raw page count instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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

			n, err := client.SizeEstimate(ctx, cdx.Query{URL: args[0]}, asPages)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asPages, "as-pages", false, "print raw index pages instead of estimated records")
	return cmd
}
