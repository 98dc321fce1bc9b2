package cdx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/openwebindex/cdxq/internal/fetch"
)

// IAEndpoint is the Internet Archive's Wayback CDX search endpoint.
const IAEndpoint = "https://web.archive.org/cdx/search/cdx"

// DefaultCollInfoURL lists the Common Crawl monthly index endpoints.
const DefaultCollInfoURL = "http://index.commoncrawl.org/collinfo.json"

// defaultMinEndpoints guards against a truncated collinfo answer; the real
// list was last seen at 39 entries and only grows.
const defaultMinEndpoints = 30

var ccLabelRe = regexp.MustCompile(`CC-MAIN-(\d{4}-\d{2})`)

type collInfoEntry struct {
	CDXAPI string `json:"cdx-api"`
}

// commonCrawlEndpoints discovers the Common Crawl index endpoints covering
// the given duration window ("90d" style). Endpoints come back newest to
// oldest; a ccSort other than "mixed" reverses them to oldest-first so
// iteration yields captures in rough chronological order.
func commonCrawlEndpoints(
	ctx context.Context,
	client *fetch.Client,
	collInfoURL string,
	duration string,
	ccSort string,
	minEndpoints int,
	now time.Time,
) ([]string, error) {
	days, err := parseDurationDays(duration)
	if err != nil {
		return nil, err
	}

	if collInfoURL == "" {
		collInfoURL = DefaultCollInfoURL
	}
	if minEndpoints <= 0 {
		minEndpoints = defaultMinEndpoints
	}

	resp, err := client.Get(ctx, collInfoURL, url.Values{})
	if err != nil {
		return nil, fmt.Errorf("get common crawl index list: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get common crawl index list: status %d", resp.StatusCode)
	}

	var entries []collInfoEntry
	if err := json.Unmarshal(resp.Body, &entries); err != nil {
		return nil, fmt.Errorf("decode collinfo: %w", err)
	}

	endpoints := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.CDXAPI != "" {
			endpoints = append(endpoints, e.CDXAPI)
		}
	}
	if len(endpoints) < minEndpoints {
		return nil, fmt.Errorf("surprisingly few endpoints for common crawl index: %d", len(endpoints))
	}

	// Newest first, so the duration window trims from the tail.
	sort.Sort(sort.Reverse(sort.StringSlice(endpoints)))

	startDate := now.AddDate(0, 0, -days).Format("20060102")
	kept := endpoints[:0]
	for _, ep := range endpoints {
		m := ccLabelRe.FindStringSubmatch(ep)
		if m == nil {
			continue
		}
		d, err := weekLabelDate(m[1])
		if err != nil {
			return nil, fmt.Errorf("endpoint %s: %w", ep, err)
		}
		if d.Format("20060102") > startDate {
			kept = append(kept, ep)
		}
	}

	if ccSort != "mixed" {
		for i, j := 0, len(kept)-1; i < j; i, j = i+1, j-1 {
			kept[i], kept[j] = kept[j], kept[i]
		}
	}
	return kept, nil
}

// parseDurationDays accepts the "<days>d" crawl window syntax.
func parseDurationDays(duration string) (int, error) {
	if strings.HasSuffix(duration, "d") {
		if days, err := strconv.Atoi(strings.TrimSuffix(duration, "d")); err == nil && days > 0 {
			return days, nil
		}
	}
	return 0, fmt.Errorf("unknown crawl duration %q, expected e.g. 90d", duration)
}

// weekLabelDate converts a CC-MAIN "YYYY-WW" label to a date. The label is a
// Monday-start week-of-year; we resolve it to the Sunday closing that week,
// which is how the upstream index names have always been interpreted.
func weekLabelDate(label string) (time.Time, error) {
	parts := strings.SplitN(label, "-", 2)
	if len(parts) != 2 {
		return time.Time{}, fmt.Errorf("bad crawl week label %q", label)
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return time.Time{}, fmt.Errorf("bad crawl week label %q", label)
	}
	week, err := strconv.Atoi(parts[1])
	if err != nil || week < 0 || week > 53 {
		return time.Time{}, fmt.Errorf("bad crawl week label %q", label)
	}

	firstMonday := firstMondayOfYear(year)
	if week == 0 {
		d := firstMonday.AddDate(0, 0, -1)
		jan1 := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
		if d.Before(jan1) {
			d = jan1
		}
		return d, nil
	}
	return firstMonday.AddDate(0, 0, (week-1)*7+6), nil
}

func firstMondayOfYear(year int) time.Time {
	d := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	for d.Weekday() != time.Monday {
		d = d.AddDate(0, 0, 1)
	}
	return d
}
