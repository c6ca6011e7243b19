package fetcher

import (
	"context"

	"cryptosnap/internal/models"
)

const kindKline = "kline"

// Kline fans candle fetches out across exchange queues.
type Kline struct {
	venues *Venues
}

func NewKline(venues *Venues) *Kline {
	return &Kline{venues: venues}
}

func (k *Kline) Fetch(ctx context.Context, coins []models.Coin, exchange string, tf models.Timeframe, limit int) models.FetcherResult[models.Kline] {
	return fanOut(ctx, k.venues, kindKline, coins, exchange, func(ctx context.Context, src Source, symbol string) ([]models.Kline, error) {
		return src.Klines(ctx, symbol, tf, limit)
	})
}

func (k *Kline) FetchGroups(ctx context.Context, groups Groups, tf models.Timeframe, limit int) models.FetcherResult[models.Kline] {
	return fanGroups(groups, func(exchange string, coins []models.Coin) models.FetcherResult[models.Kline] {
		return k.Fetch(ctx, coins, exchange, tf, limit)
	})
}
