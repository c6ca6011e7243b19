package exchange

import (
	"math/rand"
	"net"
	"net/http"
	"time"

	"cryptosnap/config"
	ratemetrics "cryptosnap/internal/metrics/rate"
	"cryptosnap/logger"
)

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
}

// exchangeTransport sets browser-like headers on outgoing requests and
// reports the rate limit headers of every response.
type exchangeTransport struct {
	exchange string
	base     http.RoundTripper
	log      *logger.Log
}

// RoundTrip implements http.RoundTripper.
func (t exchangeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", userAgents[rand.Intn(len(userAgents))])
	req.Header.Set("Accept", "application/json")

	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	resp, err := base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	ratemetrics.ReportUsedWeight(t.log, t.exchange, resp.Header)
	return resp, nil
}

// NewHTTPClient builds the HTTP client used for one exchange. timeout bounds
// every call; the pool settings and optional local IP come from src.
func NewHTTPClient(exchange string, src config.ExchangeSourceConfig, timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if src.ConnectionPool.MaxIdleConns > 0 {
		transport.MaxIdleConns = src.ConnectionPool.MaxIdleConns
		transport.MaxIdleConnsPerHost = src.ConnectionPool.MaxIdleConns
	}
	if src.ConnectionPool.MaxConnsPerHost > 0 {
		transport.MaxConnsPerHost = src.ConnectionPool.MaxConnsPerHost
	}
	if src.ConnectionPool.IdleConnTimeout > 0 {
		transport.IdleConnTimeout = src.ConnectionPool.IdleConnTimeout
	}

	if src.LocalIP != "" {
		if ip := net.ParseIP(src.LocalIP); ip != nil {
			dialer := &net.Dialer{LocalAddr: &net.TCPAddr{IP: ip}, Timeout: timeout}
			transport.DialContext = dialer.DialContext
		}
	}

	return &http.Client{
		Transport: exchangeTransport{exchange: exchange, base: transport, log: logger.GetLogger()},
		Timeout:   timeout,
	}
}
