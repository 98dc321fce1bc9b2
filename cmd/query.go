package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/openwebindex/cdxq/internal/api"
	"github.com/openwebindex/cdxq/internal/cdx"
	"github.com/openwebindex/cdxq/internal/config"
	"github.com/openwebindex/cdxq/internal/logging"
	"github.com/openwebindex/cdxq/internal/output"
	"github.com/openwebindex/cdxq/internal/progress"
	"github.com/openwebindex/cdxq/internal/progress/sinks"
)

type queryFlags struct {
	limit       int
	fields      string
	allFields   bool
	jsonl       bool
	csv         bool
	fromTS      string
	toTS        string
	closest     string
	matchType   string
	filter      []string
	metricsAddr string
}

func newQueryCmd(src *sourceFlags) *cobra.Command {
	flags := &queryFlags{}
	cmd := &cobra.Command{
		Use:   "query <url-pattern>",
		Short: "Stream matching capture records to stdout",
		Long: `Streams CDX records matching the URL pattern. Records arrive lazily,
one index page at a time, until the pattern is exhausted or --limit is hit.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, src, flags, args[0])
		},
	}

	cmd.Flags().IntVar(&flags.limit, "limit", 1000000, "maximum records to print")
	cmd.Flags().StringVar(&flags.fields, "fields", "url,status,timestamp", "comma-separated fields to print")
	cmd.Flags().BoolVar(&flags.allFields, "all-fields", false, "print all record fields, bypassing --fields")
	cmd.Flags().BoolVar(&flags.jsonl, "jsonl", false, "print records as JSON lines")
	cmd.Flags().BoolVar(&flags.csv, "csv", false, "print records as CSV")
	cmd.Flags().StringVar(&flags.fromTS, "from", "", "earliest capture timestamp (14-digit or prefix)")
	cmd.Flags().StringVar(&flags.toTS, "to", "", "latest capture timestamp (14-digit or prefix)")
	cmd.Flags().StringVar(&flags.closest, "closest", "", "prefer captures nearest this timestamp (--ia only)")
	cmd.Flags().StringVar(&flags.matchType, "match-type", "", "override wildcard inference (exact, prefix, host, domain)")
	cmd.Flags().StringArrayVar(&flags.filter, "filter", nil, "server-side field filter, e.g. status:200 (repeatable)")
	cmd.Flags().StringVar(&flags.metricsAddr, "metrics-addr", "", "serve /metrics and /healthz on this address while running")

	return cmd
}

// chooseMode resolves the output flags; requesting both formats is a usage
// error rather than picking one silently.
func chooseMode(jsonl, csv bool) (output.Mode, error) {
	switch {
	case jsonl && csv:
		return "", fmt.Errorf("--jsonl and --csv are mutually exclusive")
	case jsonl:
		return output.ModeJSONL, nil
	case csv:
		return output.ModeCSV, nil
	default:
		return output.ModeText, nil
	}
}

// parseFields splits the --fields list; all-fields mode returns nil.
func parseFields(spec string, allFields bool) ([]string, error) {
	if allFields {
		return nil, nil
	}
	var fields []string
	for _, f := range strings.Split(spec, ",") {
		f = strings.TrimSpace(f)
		if f != "" {
			fields = append(fields, f)
		}
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("--fields must name at least one field")
	}
	return fields, nil
}

func runQuery(cmd *cobra.Command, src *sourceFlags, flags *queryFlags, pattern string) error {
	// All argument validation happens before any network I/O.
	if _, err := src.resolve(); err != nil {
		return err
	}
	mode, err := chooseMode(flags.jsonl, flags.csv)
	if err != nil {
		return err
	}
	if flags.allFields && mode == output.ModeCSV {
		return fmt.Errorf("--all-fields cannot be combined with --csv: CSV needs a fixed header")
	}
	fields, err := parseFields(flags.fields, flags.allFields)
	if err != nil {
		return err
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx := cmd.Context()
	hub, shutdownMetrics, err := buildProgress(flags.metricsAddr)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := hub.Close(context.Background()); cerr != nil {
			logging.L.Warn("progress hub close failed", zap.Error(cerr))
		}
		shutdownMetrics()
	}()

	opts := src.clientOptions(cfg)
	opts.Emitter = hub
	client, err := cdx.NewClient(ctx, newFetchClient(cfg), opts, logging.L)
	if err != nil {
		return err
	}

	writer, err := output.New(mode, cmd.OutOrStdout(), fields)
	if err != nil {
		return err
	}

	start := time.Now()
	hub.Emit(progress.Event{
		QueryID: progress.UUIDToBytes(client.ID()),
		TS:      start.UTC(),
		Stage:   progress.StageQueryStart,
		Note:    pattern,
	})

	it := client.Items(cdx.Query{
		URL:       pattern,
		Limit:     flags.limit,
		FromTS:    flags.fromTS,
		ToTS:      flags.toTS,
		Closest:   flags.closest,
		MatchType: flags.matchType,
		Filter:    flags.filter,
	})
	written, err := writeRecords(ctx, it, writer, flags.limit)

	if cerr := writer.Close(); cerr != nil && err == nil {
		err = cerr
	}

	evt := progress.Event{
		QueryID: progress.UUIDToBytes(client.ID()),
		TS:      time.Now().UTC(),
		Stage:   progress.StageQueryDone,
		Records: int64(written),
		Dur:     time.Since(start),
	}
	if err != nil {
		evt.Stage = progress.StageQueryError
		evt.Note = err.Error()
	}
	hub.Emit(evt)

	if err != nil {
		return err
	}
	logging.L.Info("query finished",
		zap.Int("records", written),
		zap.Duration("dur", time.Since(start)),
	)
	return nil
}

// recordSource is the slice of the iterator the formatting loop needs.
type recordSource interface {
	Scan(ctx context.Context) bool
	Record() cdx.Record
	Err() error
}

// writeRecords drives the per-record formatting loop: pull, format, stop at
// the limit. A formatting failure (missing field in strict mode) terminates
// the run with the writer's diagnostic.
func writeRecords(ctx context.Context, it recordSource, w output.Writer, limit int) (int, error) {
	written := 0
	for (limit <= 0 || written < limit) && it.Scan(ctx) {
		if err := w.Write(it.Record()); err != nil {
			return written, err
		}
		written++
	}
	if err := it.Err(); err != nil {
		return written, err
	}
	return written, nil
}

// buildProgress assembles the hub. The log sink is always on; a metrics
// address adds the Prometheus sink and an HTTP server for scraping.
func buildProgress(metricsAddr string) (*progress.Hub, func(), error) {
	sinkList := []progress.Sink{sinks.NewLogSink(logging.L)}
	shutdown := func() {}

	if metricsAddr != "" {
		reg := prometheus.NewRegistry()
		promSink, err := sinks.NewPrometheusSink(reg)
		if err != nil {
			return nil, nil, err
		}
		sinkList = append(sinkList, promSink)

		srv := api.NewServer(metricsAddr, reg, logging.L)
		srv.Start()
		shutdown = func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(sctx); err != nil {
				logging.L.Warn("metrics shutdown failed", zap.Error(err))
			}
		}
	}

	hub := progress.NewHub(progress.Config{Logger: logging.L}, sinkList...)
	return hub, shutdown, nil
}
