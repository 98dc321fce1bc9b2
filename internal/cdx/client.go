package cdx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/openwebindex/cdxq/internal/fetch"
	"github.com/openwebindex/cdxq/internal/progress"
)

// linesPerPage is the pywb page size; there is no way to get this from the
// API without fetching a page.
const linesPerPage = 3000

// defaultGetLimit caps one-shot Get calls that specify no limit.
const defaultGetLimit = 10000

// Options configures a Client.
type Options struct {
	// Source selects the index: SourceCC, SourceIA, or a pywb endpoint URL.
	Source string
	// CrawlDuration is the Common Crawl window, e.g. "90d".
	CrawlDuration string
	// CCSort orders Common Crawl endpoints; "mixed" keeps newest-first
	// discovery order, anything else iterates oldest-first.
	CCSort string
	// CollInfoURL overrides the Common Crawl collinfo location.
	CollInfoURL string
	// MinEndpoints guards collinfo answers; zero means the default.
	MinEndpoints int
	// PageLimit caps one-shot Get calls without an explicit limit.
	PageLimit int
	// Emitter receives progress events; nil disables them.
	Emitter progress.Emitter
	// Now supplies the clock for the duration window; nil means time.Now.
	Now func() time.Time
}

// Recognized source names.
const (
	SourceCC = "cc"
	SourceIA = "ia"
)

// Client queries one or more CDX index endpoints.
type Client struct {
	fetch     *fetch.Client
	endpoints []string
	fieldMap  map[string]string
	pageLimit int
	id        uuid.UUID
	emitter   progress.Emitter
	logger    *zap.Logger
}

// Query describes a single CDX search.
type Query struct {
	// URL is the pattern to search for; it may carry * wildcards.
	URL string
	// Limit caps total records; zero or negative means no explicit limit.
	Limit int
	// FromTS and ToTS bound capture timestamps (14-digit or prefix).
	FromTS string
	ToTS   string
	// MatchType overrides wildcard inference (exact, prefix, host, domain).
	MatchType string
	// Filter holds server-side field filters, e.g. "status:200".
	Filter []string
	// Closest asks for captures nearest this timestamp (IA only).
	Closest string
}

func (q Query) values() url.Values {
	params := url.Values{}
	params.Set("url", q.URL)
	params.Set("output", "json")
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.FromTS != "" {
		params.Set("from_ts", q.FromTS)
	}
	if q.ToTS != "" {
		params.Set("to", q.ToTS)
	}
	if q.MatchType != "" {
		params.Set("matchType", q.MatchType)
	}
	if q.Closest != "" {
		params.Set("closest", q.Closest)
	}
	for _, f := range q.Filter {
		params.Add("filter", f)
	}
	return params
}

// NewClient resolves the source into an endpoint list and returns a Client.
// Common Crawl resolution performs network I/O for collinfo.json.
func NewClient(ctx context.Context, fc *fetch.Client, opts Options, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		fetch:     fc,
		pageLimit: opts.PageLimit,
		id:        uuid.New(),
		emitter:   opts.Emitter,
		logger:    logger,
	}
	if c.pageLimit <= 0 {
		c.pageLimit = defaultGetLimit
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	switch {
	case opts.Source == SourceCC:
		duration := opts.CrawlDuration
		if duration == "" {
			duration = "90d"
		}
		ccSort := opts.CCSort
		if ccSort == "" {
			ccSort = "mixed"
		}
		endpoints, err := commonCrawlEndpoints(ctx, fc, opts.CollInfoURL, duration, ccSort, opts.MinEndpoints, now())
		if err != nil {
			return nil, err
		}
		c.endpoints = endpoints
	case opts.Source == SourceIA:
		c.endpoints = []string{IAEndpoint}
		c.fieldMap = iaFieldMap
	case strings.HasPrefix(opts.Source, "http://"), strings.HasPrefix(opts.Source, "https://"):
		c.endpoints = []string{opts.Source}
	default:
		return nil, fmt.Errorf("could not understand source %q", opts.Source)
	}

	c.logger.Debug("resolved endpoints",
		zap.String("source", opts.Source),
		zap.Int("count", len(c.endpoints)),
	)
	return c, nil
}

// ID identifies this client's query run for progress events.
func (c *Client) ID() uuid.UUID {
	return c.id
}

// Endpoints returns the resolved endpoint list in iteration order.
func (c *Client) Endpoints() []string {
	return append([]string(nil), c.endpoints...)
}

// Get runs a one-shot query across all endpoints, applying the query limit
// (or the client page limit) as records accumulate.
func (c *Client) Get(ctx context.Context, q Query) ([]Record, error) {
	if q.Limit <= 0 {
		q.Limit = c.pageLimit
	}
	params := q.values()

	var out []Record
	remaining := q.Limit
	for _, endpoint := range c.endpoints {
		params.Set("limit", strconv.Itoa(remaining))
		records, err := c.fetchPage(ctx, endpoint, params)
		if err != nil {
			return nil, err
		}
		out = append(out, records...)
		remaining -= len(records)
		if remaining <= 0 {
			break
		}
	}
	return out, nil
}

// Items returns a lazy iterator over matching records. The query limit, if
// set, bounds the total yield; otherwise iteration runs until the last page
// of the last endpoint.
func (c *Client) Items(q Query) *Iterator {
	return newIterator(c, q)
}

// SizeEstimate sums the server-side page counts for the query across all
// endpoints. With asPages it returns raw pages; otherwise pages convert to
// an approximate record count, discounting the partial first and last page.
func (c *Client) SizeEstimate(ctx context.Context, q Query, asPages bool) (int, error) {
	params := q.values()
	params.Set("showNumPages", "true")
	params.Del("limit")

	pages := 0
	for _, endpoint := range c.endpoints {
		resp, err := c.fetch.Get(ctx, endpoint, params)
		if err != nil {
			return 0, fmt.Errorf("size estimate %s: %w", endpoint, err)
		}
		if resp.StatusCode != http.StatusOK {
			// Silently ignore empty answers.
			continue
		}
		n, err := parseNumPages(resp.Body)
		if err != nil {
			return 0, fmt.Errorf("size estimate %s: %w", endpoint, err)
		}
		pages += n
	}

	if asPages {
		return pages, nil
	}
	return pagesToSamples(pages), nil
}

// parseNumPages handles both showNumPages framings: pywb answers a JSON
// object carrying "blocks", IA answers a bare int.
func parseNumPages(body []byte) (int, error) {
	body = bytes.TrimSpace(body)
	if len(body) > 0 && body[0] == '{' {
		var obj struct {
			Blocks int `json:"blocks"`
		}
		if err := json.Unmarshal(body, &obj); err != nil {
			return 0, fmt.Errorf("decode page count object: %w", err)
		}
		return obj.Blocks, nil
	}
	n, err := strconv.Atoi(string(body))
	if err != nil {
		return 0, fmt.Errorf("surprised by showNumPages value %q", truncate(body, 50))
	}
	return n, nil
}

// pagesToSamples discounts the partial page at the start and end of the
// match range before scaling by the pywb page size.
func pagesToSamples(pages int) int {
	p := float64(pages)
	if p > 1 {
		p -= 1.0
	} else if p >= 1 {
		p -= 0.5
	}
	return int(p * linesPerPage)
}

// fetchPage performs one endpoint request, decodes it, applies the source
// field map, and reports progress.
func (c *Client) fetchPage(ctx context.Context, endpoint string, params url.Values) ([]Record, error) {
	start := time.Now()
	resp, err := c.fetch.Get(ctx, endpoint, params)
	if err != nil {
		return nil, err
	}

	records, err := ParseResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", endpoint, err)
	}
	if c.fieldMap != nil {
		for _, rec := range records {
			rec.Remap(c.fieldMap)
		}
	}

	c.emitPage(endpoint, resp, len(records), time.Since(start))
	return records, nil
}

func (c *Client) emitPage(endpoint string, resp *fetch.Response, records int, dur time.Duration) {
	if c.emitter == nil {
		return
	}
	host := endpoint
	if u, err := url.Parse(endpoint); err == nil && u.Hostname() != "" {
		host = u.Hostname()
	}
	c.emitter.Emit(progress.Event{
		QueryID:     progress.UUIDToBytes(c.id),
		TS:          time.Now().UTC(),
		Stage:       progress.StagePageDone,
		Endpoint:    host,
		Records:     int64(records),
		Bytes:       int64(len(resp.Body)),
		StatusClass: progress.ClassifyStatus(resp.StatusCode),
		Dur:         dur,
	})
}
