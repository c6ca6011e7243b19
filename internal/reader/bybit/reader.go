package bybit

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"cryptosnap/internal/exchange"
	"cryptosnap/internal/models"
	"cryptosnap/internal/processor"
	"cryptosnap/logger"
)

// Bybit interval notation per timeframe.
var (
	klineIntervals = map[models.Timeframe]string{
		models.TF1h: "60",
		models.TF4h: "240",
	}
	oiIntervals = map[models.Timeframe]string{
		models.TF1h: "1h",
		models.TF4h: "4h",
	}
)

// Reader fetches per-symbol linear perpetual history from the Bybit v5 API.
type Reader struct {
	api     *exchange.Client
	baseURL string
	log     *logger.Log
}

func NewReader(api *exchange.Client, baseURL string) *Reader {
	return &Reader{api: api, baseURL: baseURL, log: logger.GetLogger()}
}

func (r *Reader) Exchange() string { return models.ExchangeBybit }

// FundingRate pages backwards through the funding history until limit events
// are collected or the history ends, then maps the most recent limit events
// onto the 4h grid according to the detected cadence.
func (r *Reader) FundingRate(ctx context.Context, symbol string, limit int) ([]models.NormalizedCandle, error) {
	raw, err := r.fundingHistory(ctx, symbol, limit)
	if err != nil {
		return nil, err
	}
	window := processor.LastN(processor.DedupObservations(raw), limit)
	return processor.DistributeBybit(window), nil
}

func (r *Reader) fundingHistory(ctx context.Context, symbol string, limit int) ([]models.FundingObservation, error) {
	log := r.log.WithComponent("bybit_reader").WithFields(logger.Fields{"symbol": symbol, "operation": "funding_history"})

	var (
		raw    []models.FundingObservation
		cursor int64
		pages  int
	)
	for len(raw) < limit {
		var resp models.BybitResponse[models.BybitFundingHistory]
		if err := r.api.GetJSON(ctx, exchange.BybitFundingURL(r.baseURL, symbol, exchange.BybitPageLimit, cursor), &resp); err != nil {
			return nil, err
		}
		pages++
		if resp.RetCode != 0 {
			return nil, exchange.Invalid("bybit retCode %d for %s: %s", resp.RetCode, symbol, resp.RetMsg)
		}
		if resp.Result == nil || resp.Result.List == nil {
			if len(raw) == 0 {
				return nil, exchange.Invalid("missing funding list for %s", symbol)
			}
			break
		}

		list := resp.Result.List
		if len(list) == 0 {
			if len(raw) == 0 {
				return nil, exchange.NoData(symbol)
			}
			break
		}

		minTime := int64(0)
		for _, e := range list {
			obs, err := parseFunding(e)
			if err != nil {
				return nil, exchange.Invalid("funding entry for %s: %v", symbol, err)
			}
			raw = append(raw, obs)
			if minTime == 0 || obs.FundingTime < minTime {
				minTime = obs.FundingTime
			}
		}
		// endTime is inclusive, the boundary event is fetched twice and
		// collapsed by the dedup step.
		cursor = minTime

		if len(list) < exchange.BybitPageLimit {
			break
		}
	}

	log.WithFields(logger.Fields{"pages": pages, "events": len(raw)}).Debug("funding history fetched")
	return raw, nil
}

func parseFunding(e models.BybitFundingEntry) (models.FundingObservation, error) {
	ts, err := strconv.ParseInt(e.FundingRateTimestamp, 10, 64)
	if err != nil {
		return models.FundingObservation{}, fmt.Errorf("timestamp %q", e.FundingRateTimestamp)
	}
	rate, err := strconv.ParseFloat(e.FundingRate, 64)
	if err != nil {
		return models.FundingObservation{}, fmt.Errorf("rate %q", e.FundingRate)
	}
	return models.FundingObservation{FundingTime: ts, FundingRate: rate}, nil
}

// Klines returns up to limit candles of width tf, oldest first.
func (r *Reader) Klines(ctx context.Context, symbol string, tf models.Timeframe, limit int) ([]models.Kline, error) {
	interval, ok := klineIntervals[tf]
	if !ok {
		return nil, fmt.Errorf("bybit kline interval %s not supported", tf)
	}

	var resp models.BybitResponse[models.BybitKlineList]
	if err := r.api.GetJSON(ctx, exchange.BybitKlineURL(r.baseURL, symbol, interval, limit), &resp); err != nil {
		return nil, err
	}
	if resp.RetCode != 0 {
		return nil, exchange.Invalid("bybit retCode %d for %s: %s", resp.RetCode, symbol, resp.RetMsg)
	}
	if resp.Result == nil || resp.Result.List == nil {
		return nil, exchange.Invalid("missing kline list for %s", symbol)
	}
	if len(resp.Result.List) == 0 {
		return nil, exchange.NoData(symbol)
	}

	width := tf.Millis()
	out := make([]models.Kline, 0, len(resp.Result.List))
	for _, row := range resp.Result.List {
		k, err := parseKlineRow(row, width)
		if err != nil {
			return nil, exchange.Invalid("kline row for %s: %v", symbol, err)
		}
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OpenTime < out[j].OpenTime })
	return out, nil
}

// parseKlineRow decodes [start, open, high, low, close, volume, turnover].
func parseKlineRow(row []string, width int64) (models.Kline, error) {
	if len(row) < 7 {
		return models.Kline{}, fmt.Errorf("expected 7 fields, got %d", len(row))
	}
	start, err := strconv.ParseInt(row[0], 10, 64)
	if err != nil {
		return models.Kline{}, fmt.Errorf("start %q", row[0])
	}
	vals := make([]float64, 6)
	for i := range vals {
		v, err := strconv.ParseFloat(row[i+1], 64)
		if err != nil {
			return models.Kline{}, fmt.Errorf("field %d %q", i+1, row[i+1])
		}
		vals[i] = v
	}
	return models.Kline{
		OpenTime:    start,
		CloseTime:   start + width - 1,
		Open:        vals[0],
		High:        vals[1],
		Low:         vals[2],
		Close:       vals[3],
		Volume:      vals[4],
		QuoteVolume: vals[5],
	}, nil
}

// OpenInterest follows nextPageCursor until limit points are collected.
func (r *Reader) OpenInterest(ctx context.Context, symbol string, period models.Timeframe, limit int) ([]models.OIPoint, error) {
	interval, ok := oiIntervals[period]
	if !ok {
		return nil, fmt.Errorf("bybit open interest interval %s not supported", period)
	}

	byTime := make(map[int64]float64)
	cursor := ""
	for len(byTime) < limit {
		var resp models.BybitResponse[models.BybitOpenInterestList]
		url := exchange.BybitOpenInterestURL(r.baseURL, symbol, interval, exchange.BybitPageLimit, cursor)
		if err := r.api.GetJSON(ctx, url, &resp); err != nil {
			return nil, err
		}
		if resp.RetCode != 0 {
			return nil, exchange.Invalid("bybit retCode %d for %s: %s", resp.RetCode, symbol, resp.RetMsg)
		}
		if resp.Result == nil || resp.Result.List == nil {
			if len(byTime) == 0 {
				return nil, exchange.Invalid("missing open interest list for %s", symbol)
			}
			break
		}
		if len(resp.Result.List) == 0 {
			break
		}

		for _, e := range resp.Result.List {
			ts, err := strconv.ParseInt(e.Timestamp, 10, 64)
			if err != nil {
				return nil, exchange.Invalid("open interest timestamp %q for %s", e.Timestamp, symbol)
			}
			oi, err := strconv.ParseFloat(e.OpenInterest, 64)
			if err != nil {
				return nil, exchange.Invalid("open interest %q for %s", e.OpenInterest, symbol)
			}
			byTime[ts] = oi
		}

		if resp.Result.NextPageCursor == "" || resp.Result.NextPageCursor == cursor {
			break
		}
		cursor = resp.Result.NextPageCursor
	}

	if len(byTime) == 0 {
		return nil, exchange.NoData(symbol)
	}

	out := make([]models.OIPoint, 0, len(byTime))
	for ts, oi := range byTime {
		out = append(out, models.OIPoint{Timestamp: ts, OpenInterest: oi})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}
