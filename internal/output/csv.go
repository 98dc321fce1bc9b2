package output

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/openwebindex/cdxq/internal/cdx"
)

// CSVWriter emits RFC-4180 rows against a header fixed at startup: the
// sorted requested field set.
type CSVWriter struct {
	w      *csv.Writer
	header []string
}

// NewCSV builds a CSV writer and emits the header row immediately. CSV mode
// requires an explicit field set; all-fields mode has no stable header.
func NewCSV(w io.Writer, fields []string) (*CSVWriter, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("csv output requires a field list")
	}
	cw := &CSVWriter{w: csv.NewWriter(w), header: sortedFields(fields)}
	if err := cw.w.Write(cw.header); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	return cw, nil
}

// Write emits one row aligned with the header; a field the record lacks
// renders as an empty string.
func (c *CSVWriter) Write(rec cdx.Record) error {
	row := make([]string, len(c.header))
	for i, f := range c.header {
		row[i] = rec[f]
	}
	if err := c.w.Write(row); err != nil {
		return fmt.Errorf("write csv row: %w", err)
	}
	return nil
}

// Close flushes buffered rows.
func (c *CSVWriter) Close() error {
	c.w.Flush()
	if err := c.w.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}
