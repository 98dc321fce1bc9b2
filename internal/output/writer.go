// Package output renders CDX records as text, JSON lines, or CSV.
//
// The three modes pin different behaviors for a requested field that a
// record lacks: JSONL silently drops it, CSV emits an empty cell, and the
// default text dump fails the run with a diagnostic. This mirrors how the
// formats have always behaved for CDX consumers and keeps output scripts
// from quietly mis-aligning.
package output

import (
	"fmt"
	"io"
	"sort"

	"github.com/openwebindex/cdxq/internal/cdx"
)

// Writer renders records one at a time. Close flushes any buffered output.
type Writer interface {
	Write(rec cdx.Record) error
	Close() error
}

// Mode names an output format.
type Mode string

// Supported output modes.
const (
	ModeText  Mode = "text"
	ModeJSONL Mode = "jsonl"
	ModeCSV   Mode = "csv"
)

// New builds a Writer for the mode. fields is the requested projection set;
// nil means all-fields mode.
func New(mode Mode, w io.Writer, fields []string) (Writer, error) {
	switch mode {
	case ModeText:
		return NewText(w, fields), nil
	case ModeJSONL:
		return NewJSONL(w, fields), nil
	case ModeCSV:
		return NewCSV(w, fields)
	default:
		return nil, fmt.Errorf("unknown output mode %q", mode)
	}
}

// sortedFields returns a sorted copy of the field set.
func sortedFields(fields []string) []string {
	out := append([]string(nil), fields...)
	sort.Strings(out)
	return out
}
