package processor

import (
	"cryptosnap/internal/models"
)

// Combine merges consecutive 4h candles into 8h candles. A pair starts on an
// 8h-aligned open time and is completed by the candle opening 4h later;
// candles without a partner are skipped.
func Combine(base []models.CoinMarketData[models.Kline]) []models.CoinMarketData[models.Kline] {
	out := make([]models.CoinMarketData[models.Kline], 0, len(base))
	for _, series := range base {
		out = append(out, models.CoinMarketData[models.Kline]{
			Symbol:    series.Symbol,
			Exchanges: series.Exchanges,
			Category:  series.Category,
			Candles:   combineSeries(series.Candles),
		})
	}
	return out
}

func combineSeries(candles []models.Kline) []models.Kline {
	out := make([]models.Kline, 0, len(candles)/2)
	for i := 0; i+1 < len(candles); {
		first, second := candles[i], candles[i+1]
		if first.OpenTime%models.EightHoursMs != 0 || second.OpenTime != first.OpenTime+models.FourHoursMs {
			i++
			continue
		}
		out = append(out, mergePair(first, second))
		i += 2
	}
	return out
}

func mergePair(a, b models.Kline) models.Kline {
	merged := models.Kline{
		OpenTime:    a.OpenTime,
		CloseTime:   b.CloseTime,
		Open:        a.Open,
		Close:       b.Close,
		High:        a.High,
		Low:         a.Low,
		Volume:      a.Volume + b.Volume,
		QuoteVolume: a.QuoteVolume + b.QuoteVolume,
	}
	if b.High > merged.High {
		merged.High = b.High
	}
	if b.Low < merged.Low {
		merged.Low = b.Low
	}
	if merged.CloseTime == 0 {
		merged.CloseTime = a.OpenTime + models.EightHoursMs - 1
	}
	return merged
}
