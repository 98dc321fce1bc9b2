// Package cmd defines and implements the CLI commands for the cdxq executable.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/openwebindex/cdxq/internal/cdx"
	"github.com/openwebindex/cdxq/internal/config"
	"github.com/openwebindex/cdxq/internal/fetch"
	"github.com/openwebindex/cdxq/internal/logging"
	"github.com/openwebindex/cdxq/internal/ratelimit"
)

var cfgFile string

// sourceFlags holds the index selection shared by all subcommands.
type sourceFlags struct {
	cc            bool
	ia            bool
	source        string
	crawlDuration string
	ccSort        string
}

func (f *sourceFlags) register(cmd *cobra.Command) {
	cmd.PersistentFlags().BoolVar(&f.cc, "cc", false, "query the Common Crawl index")
	cmd.PersistentFlags().BoolVar(&f.ia, "ia", false, "query the Internet Archive Wayback index")
	cmd.PersistentFlags().StringVar(&f.source, "source", "", "query a custom pywb CDX endpoint URL")
	cmd.PersistentFlags().StringVar(&f.crawlDuration, "crawl-duration", "90d",
		"Common Crawl index window, e.g. 90d (only with --cc)")
	cmd.PersistentFlags().StringVar(&f.ccSort, "cc-sort", "mixed",
		"Common Crawl endpoint order; anything but mixed iterates oldest-first")
}

// resolve validates that exactly one source was selected and returns the
// cdx source string. It runs before any network I/O.
func (f *sourceFlags) resolve() (string, error) {
	selected := 0
	src := ""
	if f.cc {
		selected++
		src = cdx.SourceCC
	}
	if f.ia {
		selected++
		src = cdx.SourceIA
	}
	if f.source != "" {
		selected++
		src = f.source
	}
	switch selected {
	case 0:
		return "", fmt.Errorf("exactly one of --cc, --ia or --source is required")
	case 1:
		return src, nil
	default:
		return "", fmt.Errorf("--cc, --ia and --source are mutually exclusive")
	}
}

func (f *sourceFlags) clientOptions(cfg config.Config) cdx.Options {
	src, _ := f.resolve()
	return cdx.Options{
		Source:        src,
		CrawlDuration: f.crawlDuration,
		CCSort:        f.ccSort,
		CollInfoURL:   cfg.Client.CollInfoURL,
		MinEndpoints:  cfg.Client.MinEndpoints,
		PageLimit:     cfg.Client.PageLimit,
	}
}

// newFetchClient assembles the rate-limited HTTP client from config.
func newFetchClient(cfg config.Config) *fetch.Client {
	limiter := ratelimit.New(ratelimit.Config{
		RPS:   cfg.Limiter.RPS,
		Burst: cfg.Limiter.Burst,
	})
	return fetch.New(fetch.Config{
		UserAgent:        cfg.Client.UserAgent,
		Timeout:          cfg.Timeout(),
		RetryWait:        cfg.RetryWait(),
		MaxConnectErrors: cfg.HTTP.MaxConnectErrors,
	}, limiter, logging.L)
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cdxq",
		Short: "Query CDX web archive indexes",
		Long: `cdxq queries CDX-style web archive indexes and streams matching capture
records to stdout as text, JSON lines, or CSV.

Supported indexes: the Common Crawl index cluster (--cc), the Internet
Archive Wayback index (--ia), or any pywb CDX endpoint (--source URL).`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default none; env CDXQ_* applies)")

	src := &sourceFlags{}
	src.register(cmd)

	cmd.AddCommand(newQueryCmd(src))
	cmd.AddCommand(newSizeCmd(src))
	cmd.AddCommand(newIndexesCmd(src))

	return cmd
}

// Execute is the main entry point.
func Execute() {
	// Initialize the logger once at the very start; LOGLEVEL selects the level.
	logging.InitLogger()

	if err := newRootCmd().Execute(); err != nil {
		logging.L.Fatal("Command execution failed", zap.Error(err))
	}
}
