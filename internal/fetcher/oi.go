package fetcher

import (
	"context"

	"cryptosnap/internal/models"
)

const kindOpenInterest = "oi"

// OpenInterest fans open interest fetches out across exchange queues.
type OpenInterest struct {
	venues *Venues
}

func NewOpenInterest(venues *Venues) *OpenInterest {
	return &OpenInterest{venues: venues}
}

func (o *OpenInterest) Fetch(ctx context.Context, coins []models.Coin, exchange string, period models.Timeframe, limit int) models.FetcherResult[models.OIPoint] {
	return fanOut(ctx, o.venues, kindOpenInterest, coins, exchange, func(ctx context.Context, src Source, symbol string) ([]models.OIPoint, error) {
		return src.OpenInterest(ctx, symbol, period, limit)
	})
}

func (o *OpenInterest) FetchGroups(ctx context.Context, groups Groups, period models.Timeframe, limit int) models.FetcherResult[models.OIPoint] {
	return fanGroups(groups, func(exchange string, coins []models.Coin) models.FetcherResult[models.OIPoint] {
		return o.Fetch(ctx, coins, exchange, period, limit)
	})
}
