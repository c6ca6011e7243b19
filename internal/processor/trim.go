package processor

import "cryptosnap/internal/models"

// Trim keeps the most recent n candles of every ascending series. The input
// is not modified.
func Trim(series []models.CoinMarketData[models.Kline], n int) []models.CoinMarketData[models.Kline] {
	out := make([]models.CoinMarketData[models.Kline], 0, len(series))
	for _, s := range series {
		candles := s.Candles
		if n >= 0 && len(candles) > n {
			candles = candles[len(candles)-n:]
		}
		s.Candles = make([]models.Kline, len(candles))
		copy(s.Candles, candles)
		out = append(out, s)
	}
	return out
}
