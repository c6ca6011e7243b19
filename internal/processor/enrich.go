package processor

import (
	"sort"

	"cryptosnap/internal/models"
)

// Enrich joins each kline series with the open interest and funding rate of
// the same symbol. The funding rate is matched on the candle open time; open
// interest is the last observation inside [openTime, openTime+tf). Symbols
// without a kline series are dropped.
func Enrich(
	klines []models.CoinMarketData[models.Kline],
	oi models.FetcherResult[models.OIPoint],
	tf models.Timeframe,
	fr models.FetcherResult[models.NormalizedCandle],
) []models.CoinMarketData[models.EnrichedCandle] {
	oiBySymbol := make(map[string][]models.OIPoint, len(oi.Successful))
	for _, s := range oi.Successful {
		points := append([]models.OIPoint(nil), s.Candles...)
		sort.Slice(points, func(i, j int) bool { return points[i].Timestamp < points[j].Timestamp })
		oiBySymbol[s.Symbol] = points
	}
	frBySymbol := make(map[string]map[int64]float64, len(fr.Successful))
	for _, s := range fr.Successful {
		rates := make(map[int64]float64, len(s.Candles))
		for _, c := range s.Candles {
			rates[c.OpenTime] = c.FundingRate
		}
		frBySymbol[s.Symbol] = rates
	}

	width := tf.Millis()
	out := make([]models.CoinMarketData[models.EnrichedCandle], 0, len(klines))
	for _, series := range klines {
		points := oiBySymbol[series.Symbol]
		rates := frBySymbol[series.Symbol]

		candles := make([]models.EnrichedCandle, 0, len(series.Candles))
		for _, k := range series.Candles {
			ec := models.EnrichedCandle{Kline: k}
			if rate, ok := rates[k.OpenTime]; ok {
				r := rate
				ec.FundingRate = &r
			}
			if v, ok := lastInWindow(points, k.OpenTime, k.OpenTime+width); ok {
				ec.OpenInterest = &v
			}
			candles = append(candles, ec)
		}

		out = append(out, models.CoinMarketData[models.EnrichedCandle]{
			Symbol:    series.Symbol,
			Exchanges: series.Exchanges,
			Category:  series.Category,
			Candles:   candles,
		})
	}
	return out
}

// lastInWindow returns the open interest of the latest point in [from, to)
// of an ascending series.
func lastInWindow(points []models.OIPoint, from, to int64) (float64, bool) {
	i := sort.Search(len(points), func(i int) bool { return points[i].Timestamp >= to })
	if i == 0 || points[i-1].Timestamp < from {
		return 0, false
	}
	return points[i-1].OpenInterest, true
}
