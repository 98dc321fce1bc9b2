package cdx

import (
	"fmt"
	"sort"
	"strings"
)

// Record is a single capture: a flat mapping of CDX field name to value.
type Record map[string]string

// iaFieldMap translates Internet Archive field names to the Common Crawl
// convention the rest of the pipeline expects.
var iaFieldMap = map[string]string{
	"statuscode": "status",
	"original":   "url",
}

// Remap rewrites keys per the given correspondence table, dropping the
// original key. A nil table leaves the record untouched.
func (r Record) Remap(table map[string]string) {
	for from, to := range table {
		if v, ok := r[from]; ok {
			r[to] = v
			delete(r, from)
		}
	}
}

// SortedKeys returns the record's field names in sorted order.
func (r Record) SortedKeys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Project returns a copy holding exactly the requested fields. A requested
// field missing from the record is an error naming the field set and the
// offending record, so a bad --fields choice fails loudly instead of
// silently emitting holes.
func (r Record) Project(fields []string) (Record, error) {
	out := make(Record, len(fields))
	for _, f := range fields {
		v, ok := r[f]
		if !ok {
			return nil, fmt.Errorf("record has no field %q (requested fields: %s; record: %s)",
				f, strings.Join(fields, ","), r.String())
		}
		out[f] = v
	}
	return out, nil
}

// String renders the record as sorted key=value pairs.
func (r Record) String() string {
	parts := make([]string, 0, len(r))
	for _, k := range r.SortedKeys() {
		parts = append(parts, k+"="+r[k])
	}
	return strings.Join(parts, " ")
}
