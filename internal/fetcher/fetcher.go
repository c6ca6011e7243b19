package fetcher

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"cryptosnap/internal/metrics"
	"cryptosnap/internal/models"
	"cryptosnap/internal/queue"
	"cryptosnap/logger"
)

// Source fetches one symbol's history from one exchange.
type Source interface {
	Exchange() string
	FundingRate(ctx context.Context, symbol string, limit int) ([]models.NormalizedCandle, error)
	Klines(ctx context.Context, symbol string, tf models.Timeframe, limit int) ([]models.Kline, error)
	OpenInterest(ctx context.Context, symbol string, period models.Timeframe, limit int) ([]models.OIPoint, error)
}

// Venue pairs an exchange source with the queue admitting its calls.
type Venue struct {
	Source Source
	Queue  *queue.Queue
}

// Venues is the set of exchanges a fetcher can route to.
type Venues struct {
	byName map[string]Venue
}

func NewVenues(venues ...Venue) *Venues {
	v := &Venues{byName: make(map[string]Venue, len(venues))}
	for _, venue := range venues {
		v.byName[strings.ToLower(venue.Source.Exchange())] = venue
	}
	return v
}

func (v *Venues) lookup(exchange string) (Venue, bool) {
	venue, ok := v.byName[strings.ToLower(exchange)]
	return venue, ok
}

// Groups maps an exchange name to the coins fetched from it.
type Groups map[string][]models.Coin

// Total returns the number of coins across all groups.
func (g Groups) Total() int {
	n := 0
	for _, coins := range g {
		n += len(coins)
	}
	return n
}

// exchangePreference is the order in which a listing venue is picked.
var exchangePreference = []string{models.ExchangeBinance, models.ExchangeBybit}

// SplitByExchange assigns every coin to its preferred listing venue. Coins
// listed on no supported venue are returned as failures.
func SplitByExchange(coins []models.Coin) (Groups, []models.FailedCoin) {
	groups := make(Groups, len(exchangePreference))
	var unsupported []models.FailedCoin
	for _, c := range coins {
		assigned := false
		for _, ex := range exchangePreference {
			if c.Supports(ex) {
				groups[ex] = append(groups[ex], c)
				assigned = true
				break
			}
		}
		if !assigned {
			unsupported = append(unsupported, models.FailedCoin{
				Symbol: c.Symbol,
				Error:  fmt.Sprintf("no supported exchange in %v", c.Exchanges),
			})
		}
	}
	return groups, unsupported
}

// call performs one per-symbol fetch against a source.
type call[T any] func(ctx context.Context, src Source, symbol string) ([]T, error)

// fanOut enqueues one task per coin on the exchange's queue, waits for every
// task and partitions the outcomes. It never retries.
func fanOut[T any](ctx context.Context, venues *Venues, kind string, coins []models.Coin, exchange string, fn call[T]) models.FetcherResult[T] {
	label := strings.ToUpper(exchange) + " " + kind
	log := logger.GetLogger().WithComponent(kind + "_fetcher").WithFields(logger.Fields{
		"exchange": exchange,
		"label":    label,
	})

	outcomes := make([]models.FetchOutcome[T], len(coins))
	venue, ok := venues.lookup(exchange)
	if !ok {
		for i, c := range coins {
			outcomes[i] = models.Failure[T](c, fmt.Errorf("unsupported exchange %q", exchange))
		}
		log.WithFields(logger.Fields{"coins": len(coins)}).Warn("no venue configured for exchange")
		return models.NewFetcherResult(outcomes)
	}

	log.WithFields(logger.Fields{"coins": len(coins)}).Info("queueing fetch tasks")

	futures := make([]*queue.Future[[]T], len(coins))
	for i, c := range coins {
		symbol := c.Symbol
		futures[i] = queue.Submit(venue.Queue, func() ([]T, error) {
			return fn(ctx, venue.Source, symbol)
		})
	}

	for i, fut := range futures {
		data, err := fut.Wait()
		coin := coins[i]
		if err != nil {
			log.WithFields(logger.Fields{"symbol": coin.Symbol}).WithError(err).Error("fetch failed")
			outcomes[i] = models.Failure[T](coin, err)
		} else {
			outcomes[i] = models.Success(coin, data)
		}
		metrics.RecordFetch(exchange, kind, err == nil)
	}

	res := models.NewFetcherResult(outcomes)
	entry := log.WithFields(logger.Fields{
		"successful": len(res.Successful),
		"failed":     len(res.Failed),
	})
	if len(res.Successful) > 0 {
		entry.Info("fetch complete")
	} else {
		entry.Warn("fetch complete without successful coins")
	}
	return res
}

// fanGroups runs fetch for every exchange group concurrently and merges the
// results in exchange name order.
func fanGroups[T any](groups Groups, fetch func(exchange string, coins []models.Coin) models.FetcherResult[T]) models.FetcherResult[T] {
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make([]models.FetcherResult[T], len(names))
	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			results[i] = fetch(name, groups[name])
		}(i, name)
	}
	wg.Wait()

	merged := models.NewFetcherResult[T](nil)
	for _, r := range results {
		merged = merged.Merge(r)
	}
	return merged
}
