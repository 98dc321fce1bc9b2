package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/openwebindex/cdxq/internal/progress"
)

// LogSink emits structured logs for query progress. Page events log at
// debug so a default INFO run only reports lifecycle milestones.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume logs each event in the batch using structured fields.
func (s *LogSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		fields := []zap.Field{
			zap.String("query_id", evt.QueryUUID().String()),
			zap.String("stage", string(evt.Stage)),
			zap.String("endpoint", evt.Endpoint),
			zap.Int64("records", evt.Records),
			zap.Int64("bytes", evt.Bytes),
			zap.String("status_class", string(evt.StatusClass)),
			zap.Duration("dur", evt.Dur),
		}
		if evt.Note != "" {
			fields = append(fields, zap.String("note", evt.Note))
		}
		if evt.Stage == progress.StagePageDone {
			s.logger.Debug("progress event", fields...)
		} else {
			s.logger.Info("progress event", fields...)
		}
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *LogSink) Close(context.Context) error {
	return nil
}
