package coins

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cryptosnap/config"
	"cryptosnap/internal/exchange"
	"cryptosnap/internal/models"
	"cryptosnap/internal/symbols"
	"cryptosnap/logger"
)

// ErrNoCoins is returned when a provider yields an empty list.
var ErrNoCoins = errors.New("coin list is empty")

// Provider supplies the coins a job run covers.
type Provider interface {
	Fetch(ctx context.Context) ([]models.Coin, error)
}

// Static serves the coins listed in configuration.
type Static struct {
	coins []models.Coin
}

func NewStatic(cfg []config.CoinConfig) *Static {
	coins := make([]models.Coin, 0, len(cfg))
	for _, c := range cfg {
		coins = append(coins, models.Coin{Symbol: c.Symbol, Exchanges: c.Exchanges, Category: c.Category})
	}
	return &Static{coins: coins}
}

func (s *Static) Fetch(context.Context) ([]models.Coin, error) {
	return normalize(s.coins)
}

// Remote downloads a JSON coin list of the form {"coins": [...]}.
type Remote struct {
	url    string
	client *exchange.Client
}

func NewRemote(url string, client *exchange.Client) *Remote {
	return &Remote{url: url, client: client}
}

func (r *Remote) Fetch(ctx context.Context) ([]models.Coin, error) {
	var resp models.CoinListResp
	if err := r.client.GetJSON(ctx, r.url, &resp); err != nil {
		return nil, fmt.Errorf("fetch coin list: %w", err)
	}
	return normalize(resp.Coins)
}

// New picks the remote list when coins_source.url is set and the static list
// otherwise.
func New(cfg *config.Config) Provider {
	log := logger.GetLogger().WithComponent("coins")
	if cfg.CoinsSource.URL == "" {
		log.WithFields(logger.Fields{"coins": len(cfg.Coins)}).Info("using static coin list")
		return NewStatic(cfg.Coins)
	}

	timeout := cfg.CoinsSource.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := exchange.NewClient("coins", &http.Client{Timeout: timeout}, nil)
	log.WithFields(logger.Fields{"url": cfg.CoinsSource.URL}).Info("using remote coin list")
	return NewRemote(cfg.CoinsSource.URL, client)
}

// normalize canonicalises symbols and venues and drops duplicate symbols,
// keeping the first occurrence.
func normalize(in []models.Coin) ([]models.Coin, error) {
	out := make([]models.Coin, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, c := range in {
		sym := symbols.Normalize(c.Symbol)
		if sym == "" {
			continue
		}
		if _, ok := seen[sym]; ok {
			continue
		}
		seen[sym] = struct{}{}
		out = append(out, models.Coin{
			Symbol:    sym,
			Exchanges: symbols.NormalizeExchanges(c.Exchanges),
			Category:  c.Category,
		})
	}
	if len(out) == 0 {
		return nil, ErrNoCoins
	}
	return out, nil
}
