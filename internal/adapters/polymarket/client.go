package polymarket

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://clob.polymarket.com"

	// Rate limits well under the documented venue ceilings.
	marketsRatePerSec = 18
	ordersRatePerSec  = 30

	maxRetries    = 3
	baseRetryWait = 500 * time.Millisecond
)

// Client is the venue HTTP client with rate limiting and retries. It
// backs the MarketProvider, OrderExecutor, and SettlementOracle ports.
type Client struct {
	http           *http.Client
	baseURL        string
	apiKey         string
	marketsLimiter *rate.Limiter
	ordersLimiter  *rate.Limiter

	cache marketCache
}

// NewClient creates a client for the given base URL. An empty baseURL
// falls back to the production endpoint; apiKey may be empty for
// read-only (paper) use.
func NewClient(baseURL, apiKey string, cacheTTL time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		http:           &http.Client{Timeout: 10 * time.Second},
		baseURL:        baseURL,
		apiKey:         apiKey,
		marketsLimiter: rate.NewLimiter(marketsRatePerSec, 10),
		ordersLimiter:  rate.NewLimiter(ordersRatePerSec, 5),
		cache:          marketCache{ttl: cacheTTL},
	}
}

// get performs a rate-limited GET with retries.
func (c *Client) get(ctx context.Context, limiter *rate.Limiter, path string, out any) error {
	return c.doWithRetry(ctx, limiter, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return nil, err
		}
		c.setHeaders(req)
		return c.http.Do(req)
	}, out)
}

// post performs a rate-limited JSON POST with retries.
func (c *Client) post(ctx context.Context, limiter *rate.Limiter, path string, body, out any) error {
	return c.doWithRetry(ctx, limiter, func() (*http.Response, error) {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(b))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		c.setHeaders(req)
		return c.http.Do(req)
	}, out)
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

// doWithRetry runs the request with exponential backoff. 4xx responses
// are returned to the caller without retrying.
func (c *Client) doWithRetry(ctx context.Context, limiter *rate.Limiter, fn func() (*http.Response, error), out any) error {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		resp, err := fn()
		if err != nil {
			if attempt == maxRetries {
				return fmt.Errorf("request failed after %d retries: %w", maxRetries, err)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			slog.Warn("venue: rate limited", "attempt", attempt+1)
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			if attempt == maxRetries {
				return fmt.Errorf("server error %d after %d retries", resp.StatusCode, maxRetries)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 400 {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return fmt.Errorf("client error %d: %s", resp.StatusCode, string(body))
		}

		defer resp.Body.Close()
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}
	return fmt.Errorf("exhausted %d retries", maxRetries)
}

// sleep waits with exponential backoff, respecting the context.
func (c *Client) sleep(ctx context.Context, attempt int) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * baseRetryWait
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}
