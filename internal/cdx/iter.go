package cdx

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
)

type iterStatus int

const (
	statusOK iterStatus = iota
	statusLastPage
	statusLastEndpoint
)

// Iterator lazily streams records page by page across the client's
// endpoints. It follows the bufio.Scanner shape:
//
//	it := client.Items(q)
//	for it.Scan(ctx) {
//		rec := it.Record()
//	}
//	if err := it.Err(); err != nil { ... }
type Iterator struct {
	client *Client
	query  Query

	endpoint  int
	page      int
	remaining int // -1 means unlimited
	buf       []Record
	cur       Record
	err       error
	done      bool
}

func newIterator(c *Client, q Query) *Iterator {
	remaining := -1
	if q.Limit > 0 {
		remaining = q.Limit
	}
	return &Iterator{
		client:    c,
		query:     q,
		page:      -1,
		remaining: remaining,
	}
}

// Scan advances to the next record, fetching pages as needed. It returns
// false once the last endpoint's last page is exhausted, the limit is
// reached, or an error occurs.
func (it *Iterator) Scan(ctx context.Context) bool {
	if it.err != nil {
		return false
	}
	for len(it.buf) == 0 {
		if it.done || !it.getMore(ctx) {
			return false
		}
	}
	it.cur = it.buf[0]
	it.buf = it.buf[1:]
	return true
}

// Record returns the record produced by the last successful Scan.
func (it *Iterator) Record() Record {
	return it.cur
}

// Err reports the first error encountered while scanning.
func (it *Iterator) Err() error {
	return it.err
}

// getMore fetches pages until the buffer grows or iteration ends.
func (it *Iterator) getMore(ctx context.Context) bool {
	for {
		it.page++
		status, records, err := it.fetchIterPage(ctx)
		if err != nil {
			it.err = err
			return false
		}
		switch status {
		case statusLastEndpoint:
			it.client.logger.Debug("iterator reached the end")
			it.done = true
			return false
		case statusLastPage:
			it.client.logger.Debug("iterator moving to next endpoint",
				zap.Int("endpoint", it.endpoint+1))
			it.endpoint++
			it.page = -1
			continue
		}
		if it.remaining > 0 {
			it.remaining -= len(records)
			if it.remaining < 0 {
				it.remaining = 0
			}
		}
		if len(records) == 0 {
			// An empty OK page means this endpoint has nothing more.
			it.endpoint++
			it.page = -1
			continue
		}
		it.buf = append(it.buf, records...)
		return true
	}
}

// fetchIterPage requests one page from the current endpoint. A 400 on a
// paged request marks the last page of that endpoint.
func (it *Iterator) fetchIterPage(ctx context.Context) (iterStatus, []Record, error) {
	if it.endpoint >= len(it.client.endpoints) {
		return statusLastEndpoint, nil, nil
	}
	if it.remaining == 0 {
		return statusLastEndpoint, nil, nil
	}

	params := it.query.values()
	params.Del("limit")
	if it.remaining > 0 {
		params.Set("limit", strconv.Itoa(it.remaining))
	}
	params.Set("page", strconv.Itoa(it.page))

	endpoint := it.client.endpoints[it.endpoint]
	start := time.Now()
	resp, err := it.client.fetch.Get(ctx, endpoint, params)
	if err != nil {
		return statusOK, nil, err
	}
	if resp.StatusCode == http.StatusBadRequest {
		return statusLastPage, nil, nil
	}

	records, err := ParseResponse(resp)
	if err != nil {
		return statusOK, nil, err
	}
	if it.client.fieldMap != nil {
		for _, rec := range records {
			rec.Remap(it.client.fieldMap)
		}
	}
	it.client.emitPage(endpoint, resp, len(records), time.Since(start))
	return statusOK, records, nil
}
