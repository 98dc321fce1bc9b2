// Package fetch implements the retrying HTTP GET used for all CDX requests.
//
// CDX servers have a peculiar error vocabulary: 503 means "slow down", 400
// usually means the requested page number ran past the end of the index, and
// 404 means no captures matched. The client folds that vocabulary into the
// retry loop so callers only ever see terminal responses.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// ErrInvalidQuery reports a 400 on a request that carried no page parameter,
// which means the query itself (not pagination) was rejected.
var ErrInvalidQuery = errors.New("invalid CDX query")

// Waiter gates requests; satisfied by ratelimit.Limiter.
type Waiter interface {
	Wait(ctx context.Context, url string) error
}

// Response is a terminal CDX server response.
type Response struct {
	StatusCode int
	Body       []byte
}

// Config controls client behavior.
type Config struct {
	UserAgent        string
	Timeout          time.Duration
	RetryWait        time.Duration
	MaxConnectErrors int
}

// Client issues GETs with CDX-aware retry semantics.
type Client struct {
	http    *http.Client
	limiter Waiter
	cfg     Config
	logger  *zap.Logger
}

// New builds a Client. The limiter may be nil to disable rate limiting.
func New(cfg Config, limiter Waiter, logger *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RetryWait <= 0 {
		cfg.RetryWait = time.Second
	}
	if cfg.MaxConnectErrors <= 0 {
		cfg.MaxConnectErrors = 10
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: limiter,
		cfg:     cfg,
		logger:  logger,
	}
}

// Get issues a GET against endpoint with the given query parameters,
// retrying transient failures. The from_ts parameter is sent on the wire as
// "from", matching the CDX API while avoiding the reserved word in callers.
//
// Terminal statuses returned to the caller are 2xx, 400 and 404; everything
// retryable (503 slow-down, 5xx outages, connection errors) is handled here.
func (c *Client) Get(ctx context.Context, endpoint string, params url.Values) (*Response, error) {
	params = normalizeParams(params)
	hasPage := params.Has("page")

	connectErrors := 0
	for {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx, endpoint); err != nil {
				return nil, err
			}
		}

		resp, err := c.do(ctx, endpoint, params)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("fetch %s: %w", endpoint, ctx.Err())
			}
			connectErrors++
			if connectErrors > c.cfg.MaxConnectErrors {
				c.logger.Error("final failure for url", zap.String("url", endpoint), zap.Error(err))
				return nil, fmt.Errorf("fetch %s: %w", endpoint, err)
			}
			c.logger.Warn("retrying after connection error", zap.String("url", endpoint), zap.Error(err))
			if err := c.sleep(ctx); err != nil {
				return nil, err
			}
			continue
		}

		switch {
		case resp.StatusCode == http.StatusBadRequest && !hasPage:
			return nil, fmt.Errorf("%w: %s", ErrInvalidQuery, endpoint)
		case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusNotFound:
			// 400: page= ran past the end of the index.
			// 404: no captures found; not an error.
			c.logger.Debug("giving up", zap.Int("status", resp.StatusCode), zap.String("url", endpoint))
			return resp, nil
		case resp.StatusCode == http.StatusServiceUnavailable,
			resp.StatusCode == http.StatusBadGateway,
			resp.StatusCode == http.StatusGatewayTimeout,
			resp.StatusCode == http.StatusInternalServerError:
			c.logger.Info("retrying", zap.Int("status", resp.StatusCode), zap.String("url", endpoint))
			if err := c.sleep(ctx); err != nil {
				return nil, err
			}
			continue
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return resp, nil
		default:
			return nil, fmt.Errorf("fetch %s: unexpected status %d", endpoint, resp.StatusCode)
		}
	}
}

func (c *Client) do(ctx context.Context, endpoint string, params url.Values) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.URL.RawQuery = params.Encode()
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	c.logger.Debug("getting", zap.String("url", endpoint), zap.String("params", params.Encode()))
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Debug("close response body", zap.Error(cerr))
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return &Response{StatusCode: resp.StatusCode, Body: body}, nil
}

func (c *Client) sleep(ctx context.Context) error {
	timer := time.NewTimer(c.cfg.RetryWait)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func normalizeParams(params url.Values) url.Values {
	out := url.Values{}
	for key, vals := range params {
		if key == "from_ts" {
			key = "from"
		}
		for _, v := range vals {
			out.Add(key, v)
		}
	}
	return out
}
