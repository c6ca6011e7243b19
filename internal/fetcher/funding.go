package fetcher

import (
	"context"

	"cryptosnap/internal/models"
)

const kindFunding = "fr"

// FundingRate fans funding rate fetches out across exchange queues.
type FundingRate struct {
	venues *Venues
}

func NewFundingRate(venues *Venues) *FundingRate {
	return &FundingRate{venues: venues}
}

// Fetch returns one outcome per coin; failures never abort siblings.
func (f *FundingRate) Fetch(ctx context.Context, coins []models.Coin, exchange string, limit int) models.FetcherResult[models.NormalizedCandle] {
	return fanOut(ctx, f.venues, kindFunding, coins, exchange, func(ctx context.Context, src Source, symbol string) ([]models.NormalizedCandle, error) {
		return src.FundingRate(ctx, symbol, limit)
	})
}

func (f *FundingRate) FetchGroups(ctx context.Context, groups Groups, limit int) models.FetcherResult[models.NormalizedCandle] {
	return fanGroups(groups, func(exchange string, coins []models.Coin) models.FetcherResult[models.NormalizedCandle] {
		return f.Fetch(ctx, coins, exchange, limit)
	})
}
