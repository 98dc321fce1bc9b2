package sinks

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/openwebindex/cdxq/internal/progress"
)

// PrometheusSink exports query progress metrics via Prometheus. It owns all
// collectors for query lifecycle and per-endpoint page fetches.
type PrometheusSink struct {
	queriesStarted   prometheus.Counter
	queriesCompleted *prometheus.CounterVec
	queryRuntime     *prometheus.HistogramVec

	pageRequests *prometheus.CounterVec
	pageRecords  *prometheus.CounterVec
	pageBytes    *prometheus.CounterVec
	pageDuration *prometheus.HistogramVec
}

// NewPrometheusSink registers the collectors against the provided registry.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		queriesStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cdxq_queries_started_total",
			Help: "Total queries that have started.",
		}),
		queriesCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cdxq_queries_completed_total",
			Help: "Total queries completed partitioned by result.",
		}, []string{"result"}),
		queryRuntime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cdxq_query_runtime_seconds",
			Help:    "Wall time per completed query.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		}, []string{"result"}),
		pageRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cdxq_page_requests_total",
			Help: "Page fetches partitioned by endpoint and status class.",
		}, []string{"endpoint", "status_class"}),
		pageRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cdxq_page_records_total",
			Help: "Records received per endpoint.",
		}, []string{"endpoint"}),
		pageBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cdxq_page_bytes_total",
			Help: "Bytes downloaded per endpoint.",
		}, []string{"endpoint"}),
		pageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cdxq_page_duration_seconds",
			Help:    "Page fetch duration partitioned by endpoint and status class.",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		}, []string{"endpoint", "status_class"}),
	}
	for _, collector := range []prometheus.Collector{
		s.queriesStarted,
		s.queriesCompleted,
		s.queryRuntime,
		s.pageRequests,
		s.pageRecords,
		s.pageBytes,
		s.pageDuration,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register progress collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the Prometheus collectors using the provided batch. It is
// safe for concurrent use by multiple goroutines.
func (s *PrometheusSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		s.consumeEvent(evt)
	}
	return nil
}

func (s *PrometheusSink) consumeEvent(evt progress.Event) {
	switch evt.Stage {
	case progress.StageQueryStart:
		s.queriesStarted.Inc()
	case progress.StageQueryDone:
		s.queriesCompleted.WithLabelValues("success").Inc()
		s.observeRuntime(evt, "success")
	case progress.StageQueryError:
		s.queriesCompleted.WithLabelValues("error").Inc()
		s.observeRuntime(evt, "error")
	case progress.StagePageDone:
		s.handlePageEvent(evt)
	}
}

func (s *PrometheusSink) observeRuntime(evt progress.Event, label string) {
	if evt.Dur > 0 {
		s.queryRuntime.WithLabelValues(label).Observe(evt.Dur.Seconds())
	}
}

func (s *PrometheusSink) handlePageEvent(evt progress.Event) {
	endpoint := evt.Endpoint
	if endpoint == "" {
		endpoint = "unknown"
	}
	statusClass := string(evt.StatusClass)
	if statusClass == "" {
		statusClass = string(progress.StatusOther)
	}
	s.pageRequests.WithLabelValues(endpoint, statusClass).Inc()
	if evt.Records > 0 {
		s.pageRecords.WithLabelValues(endpoint).Add(float64(evt.Records))
	}
	if evt.Bytes > 0 {
		s.pageBytes.WithLabelValues(endpoint).Add(float64(evt.Bytes))
	}
	if evt.Dur > 0 {
		s.pageDuration.WithLabelValues(endpoint, statusClass).Observe(evt.Dur.Seconds())
	}
}

// Close implements the Sink interface; it performs no action.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}
