package cdx

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/openwebindex/cdxq/internal/fetch"
)

// ParseResponse decodes a CDX server response into records.
//
// Both index families speak output=json but disagree on the framing: pywb
// (Common Crawl) answers JSON lines of objects, while the Internet Archive
// answers a single JSON list of lists whose first row names the fields.
// A 404 means no captures and decodes to an empty result.
func ParseResponse(resp *fetch.Response) ([]Record, error) {
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}

	body := bytes.TrimSpace(resp.Body)
	if len(body) == 0 {
		return nil, nil
	}

	switch body[0] {
	case '{':
		return parseJSONLines(body)
	case '[':
		return parseListOfLists(body)
	default:
		return nil, fmt.Errorf("cannot decode response, first bytes are %q", truncate(body, 50))
	}
}

func parseJSONLines(body []byte) ([]Record, error) {
	var out []Record
	scanner := bufio.NewScanner(bytes.NewReader(body))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("decode jsonl record: %w", err)
		}
		out = append(out, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan jsonl response: %w", err)
	}
	return out, nil
}

func parseListOfLists(body []byte) ([]Record, error) {
	var rows [][]string
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("cannot decode response, first bytes are %q", truncate(body, 50))
	}
	if len(rows) == 0 {
		return nil, nil
	}

	fields := rows[0]
	out := make([]Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := make(Record, len(fields))
		for i, f := range fields {
			if i < len(row) {
				rec[f] = row[i]
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		b = b[:n]
	}
	return string(b)
}
