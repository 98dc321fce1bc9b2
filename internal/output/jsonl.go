package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/openwebindex/cdxq/internal/cdx"
)

// JSONLWriter emits one JSON object per record. Keys come out sorted, which
// encoding/json guarantees for map values.
type JSONLWriter struct {
	w      io.Writer
	fields []string
}

// NewJSONL builds a JSONL writer; nil fields means all-fields mode.
func NewJSONL(w io.Writer, fields []string) *JSONLWriter {
	return &JSONLWriter{w: w, fields: fields}
}

// Write emits the record, projected onto the requested fields when set.
// Requested fields absent from the record are dropped silently.
func (j *JSONLWriter) Write(rec cdx.Record) error {
	out := rec
	if j.fields != nil {
		out = make(cdx.Record, len(j.fields))
		for _, f := range j.fields {
			if v, ok := rec[f]; ok {
				out[f] = v
			}
		}
	}
	data, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	if _, err := fmt.Fprintf(j.w, "%s\n", data); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}

// Close implements Writer; JSONL output is unbuffered.
func (j *JSONLWriter) Close() error {
	return nil
}
