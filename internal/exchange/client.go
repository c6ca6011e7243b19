package exchange

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"cryptosnap/config"
	ratemetrics "cryptosnap/internal/metrics/rate"
	"cryptosnap/logger"

	"golang.org/x/time/rate"
)

const maxErrorBody = 512

// Client performs rate limited JSON GETs against one exchange.
type Client struct {
	exchange string
	http     *http.Client
	limiter  *rate.Limiter
	log      *logger.Log
}

// NewLimiter converts the rate limit config into a limiter. A non-positive
// rate disables limiting.
func NewLimiter(cfg config.RateLimitConfig) *rate.Limiter {
	if cfg.RequestsPerSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	burst := cfg.BurstSize
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
}

func NewClient(exchange string, httpClient *http.Client, limiter *rate.Limiter) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}
	return &Client{
		exchange: exchange,
		http:     httpClient,
		limiter:  limiter,
		log:      logger.GetLogger(),
	}
}

func (c *Client) Exchange() string { return c.exchange }

// HTTPClient exposes the underlying client so SDKs can share its transport.
func (c *Client) HTTPClient() *http.Client { return c.http }

// Wait blocks until the limiter admits one more request.
func (c *Client) Wait(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return Transport(err)
	}
	return nil
}

// GetJSON fetches url and decodes the body into dest. Network failures and
// non-200 statuses wrap ErrTransport; undecodable bodies wrap
// ErrInvalidResponse.
func (c *Client) GetJSON(ctx context.Context, url string, dest any) error {
	if err := c.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Transport(err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Transport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		statusErr := &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
		ratemetrics.ReportLimitFromMessage(c.log, c.exchange, "", statusErr.Error())
		return statusErr
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return Invalid("decode %s response: %v", c.exchange, err)
	}
	return nil
}
