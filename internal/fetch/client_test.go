package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, cfg Config) *Client {
	t.Helper()
	if cfg.RetryWait == 0 {
		cfg.RetryWait = time.Millisecond
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "cdxq-test/0.0"
	}
	return New(cfg, nil, nil)
}

func TestGetSuccess(t *testing.T) {
	var gotUA, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := testClient(t, Config{})
	params := url.Values{}
	params.Set("url", "example.com/*")
	params.Set("output", "json")

	resp, err := c.Get(context.Background(), srv.URL, params)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, []byte(`[]`), resp.Body)
	require.Equal(t, "cdxq-test/0.0", gotUA)
	require.Contains(t, gotQuery, "url=example.com")
}

func TestGetRenamesFromTS(t *testing.T) {
	var gotQuery url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := testClient(t, Config{})
	params := url.Values{}
	params.Set("from_ts", "20200101000000")

	_, err := c.Get(context.Background(), srv.URL, params)
	require.NoError(t, err)
	require.Equal(t, "20200101000000", gotQuery.Get("from"))
	require.False(t, gotQuery.Has("from_ts"))
}

func TestGetRetriesSlowDown(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := testClient(t, Config{})
	resp, err := c.Get(context.Background(), srv.URL, url.Values{})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, int32(3), calls.Load())
}

func TestGetGivesUpOn404(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error": "No Captures found"}`))
	}))
	defer srv.Close()

	c := testClient(t, Config{})
	resp, err := c.Get(context.Background(), srv.URL, url.Values{})
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGet400WithoutPageIsInvalidQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := testClient(t, Config{})
	_, err := c.Get(context.Background(), srv.URL, url.Values{})
	require.ErrorIs(t, err, ErrInvalidQuery)
}

func TestGet400WithPageIsTerminal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := testClient(t, Config{})
	params := url.Values{}
	params.Set("page", "17")
	resp, err := c.Get(context.Background(), srv.URL, params)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetUnexpectedStatusFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer srv.Close()

	c := testClient(t, Config{})
	_, err := c.Get(context.Background(), srv.URL, url.Values{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unexpected status 418")
}

func TestGetConnectionErrorCap(t *testing.T) {
	// Server that is immediately closed produces connection refused.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := testClient(t, Config{MaxConnectErrors: 2})
	start := time.Now()
	_, err := c.Get(context.Background(), srv.URL, url.Values{})
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrInvalidQuery))
	// 2 retries at 1ms each, then the final failure.
	require.Less(t, time.Since(start), time.Second)
}

func TestGetContextCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	c := testClient(t, Config{RetryWait: 10 * time.Millisecond})
	_, err := c.Get(ctx, srv.URL, url.Values{})
	require.Error(t, err)
}
