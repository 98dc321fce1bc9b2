package sinks

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/openwebindex/cdxq/internal/progress"
)

func pageEvent(endpoint string, records, bytes int64) progress.Event {
	return progress.Event{
		QueryID:     progress.UUIDToBytes(uuid.New()),
		TS:          time.Now().UTC(),
		Stage:       progress.StagePageDone,
		Endpoint:    endpoint,
		Records:     records,
		Bytes:       bytes,
		StatusClass: progress.Status2xx,
		Dur:         200 * time.Millisecond,
	}
}

func TestPrometheusSinkCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPrometheusSink(reg)
	require.NoError(t, err)

	id := progress.UUIDToBytes(uuid.New())
	batch := []progress.Event{
		{QueryID: id, TS: time.Now().UTC(), Stage: progress.StageQueryStart},
		pageEvent("index.commoncrawl.org", 3000, 1 << 20),
		pageEvent("index.commoncrawl.org", 1500, 1 << 19),
		pageEvent("web.archive.org", 10, 2048),
		{QueryID: id, TS: time.Now().UTC(), Stage: progress.StageQueryDone, Dur: 2 * time.Second},
	}
	require.NoError(t, sink.Consume(context.Background(), batch))

	require.Equal(t, float64(1), testutil.ToFloat64(sink.queriesStarted))
	require.Equal(t, float64(1), testutil.ToFloat64(sink.queriesCompleted.WithLabelValues("success")))
	require.Equal(t, float64(2), testutil.ToFloat64(
		sink.pageRequests.WithLabelValues("index.commoncrawl.org", "2xx")))
	require.Equal(t, float64(4500), testutil.ToFloat64(
		sink.pageRecords.WithLabelValues("index.commoncrawl.org")))
	require.Equal(t, float64(10), testutil.ToFloat64(
		sink.pageRecords.WithLabelValues("web.archive.org")))
}

func TestPrometheusSinkDoubleRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewPrometheusSink(reg)
	require.NoError(t, err)
	_, err = NewPrometheusSink(reg)
	require.Error(t, err)
}
