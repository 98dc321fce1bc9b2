package output

import (
	"fmt"
	"io"

	"github.com/openwebindex/cdxq/internal/cdx"
)

// TextWriter emits records as sorted key=value pairs, one record per line.
// This is the default mode and the strict one: a requested field missing
// from a record fails the run with a diagnostic instead of skipping.
type TextWriter struct {
	w      io.Writer
	fields []string
}

// NewText builds a text writer; nil fields means all-fields mode.
func NewText(w io.Writer, fields []string) *TextWriter {
	return &TextWriter{w: w, fields: fields}
}

// Write emits the record. With a field set, projection is strict.
func (t *TextWriter) Write(rec cdx.Record) error {
	out := rec
	if t.fields != nil {
		projected, err := rec.Project(t.fields)
		if err != nil {
			return err
		}
		out = projected
	}
	if _, err := fmt.Fprintln(t.w, out.String()); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}

// Close implements Writer; text output is unbuffered.
func (t *TextWriter) Close() error {
	return nil
}
