package binance

import (
	"context"
	"strconv"

	"github.com/adshao/go-binance/v2/futures"

	"cryptosnap/internal/exchange"
	ratemetrics "cryptosnap/internal/metrics/rate"
	"cryptosnap/internal/models"
	"cryptosnap/internal/processor"
	"cryptosnap/logger"
)

// Reader fetches per-symbol futures history from the Binance REST API.
type Reader struct {
	client *futures.Client
	api    *exchange.Client
	log    *logger.Log
}

// NewReader builds a futures client sharing api's HTTP client and limiter.
// An empty baseURL keeps the library default.
func NewReader(api *exchange.Client, baseURL string) *Reader {
	client := futures.NewClient("", "")
	client.HTTPClient = api.HTTPClient()
	if baseURL != "" {
		client.SetApiEndpoint(baseURL)
	}

	log := logger.GetLogger()
	log.WithComponent("binance_reader").WithFields(logger.Fields{
		"base_url": baseURL,
	}).Debug("binance reader initialized")

	return &Reader{client: client, api: api, log: log}
}

func (r *Reader) Exchange() string { return models.ExchangeBinance }

// FundingRate returns the funding history of symbol on the 4h grid.
func (r *Reader) FundingRate(ctx context.Context, symbol string, limit int) ([]models.NormalizedCandle, error) {
	if err := r.api.Wait(ctx); err != nil {
		return nil, err
	}
	raw, err := r.client.NewFundingRateService().Symbol(symbol).Limit(limit).Do(ctx)
	if err != nil {
		return nil, r.transport(symbol, err)
	}
	if len(raw) == 0 {
		return nil, exchange.NoData(symbol)
	}

	events := make([]models.FundingObservation, 0, len(raw))
	for _, fr := range raw {
		if fr == nil {
			continue
		}
		rate, err := strconv.ParseFloat(fr.FundingRate, 64)
		if err != nil {
			return nil, exchange.Invalid("funding rate %q for %s", fr.FundingRate, symbol)
		}
		events = append(events, models.FundingObservation{FundingTime: fr.FundingTime, FundingRate: rate})
	}
	return processor.NormalizeBinance(events), nil
}

// Klines returns up to limit candles of width tf, oldest first.
func (r *Reader) Klines(ctx context.Context, symbol string, tf models.Timeframe, limit int) ([]models.Kline, error) {
	if err := r.api.Wait(ctx); err != nil {
		return nil, err
	}
	raw, err := r.client.NewKlinesService().Symbol(symbol).Interval(tf.String()).Limit(limit).Do(ctx)
	if err != nil {
		return nil, r.transport(symbol, err)
	}
	if len(raw) == 0 {
		return nil, exchange.NoData(symbol)
	}

	out := make([]models.Kline, 0, len(raw))
	for _, k := range raw {
		if k == nil {
			continue
		}
		kl, err := parseKline(k)
		if err != nil {
			return nil, exchange.Invalid("kline for %s: %v", symbol, err)
		}
		out = append(out, kl)
	}
	return out, nil
}

// OpenInterest returns the open interest history sampled every period.
func (r *Reader) OpenInterest(ctx context.Context, symbol string, period models.Timeframe, limit int) ([]models.OIPoint, error) {
	if err := r.api.Wait(ctx); err != nil {
		return nil, err
	}
	raw, err := r.client.NewOpenInterestStatisticsService().Symbol(symbol).Period(period.String()).Limit(limit).Do(ctx)
	if err != nil {
		return nil, r.transport(symbol, err)
	}
	if len(raw) == 0 {
		return nil, exchange.NoData(symbol)
	}

	out := make([]models.OIPoint, 0, len(raw))
	for _, s := range raw {
		if s == nil {
			continue
		}
		oi, err := strconv.ParseFloat(s.SumOpenInterest, 64)
		if err != nil {
			return nil, exchange.Invalid("open interest %q for %s", s.SumOpenInterest, symbol)
		}
		value, _ := strconv.ParseFloat(s.SumOpenInterestValue, 64)
		out = append(out, models.OIPoint{Timestamp: s.Timestamp, OpenInterest: oi, OpenInterestValue: value})
	}
	return out, nil
}

func (r *Reader) transport(symbol string, err error) error {
	ratemetrics.ReportLimitFromMessage(r.log, models.ExchangeBinance, symbol, err.Error())
	return exchange.Transport(err)
}

func parseKline(k *futures.Kline) (models.Kline, error) {
	fields := []string{k.Open, k.High, k.Low, k.Close, k.Volume, k.QuoteAssetVolume}
	vals := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return models.Kline{}, err
		}
		vals[i] = v
	}
	return models.Kline{
		OpenTime:    k.OpenTime,
		CloseTime:   k.CloseTime,
		Open:        vals[0],
		High:        vals[1],
		Low:         vals[2],
		Close:       vals[3],
		Volume:      vals[4],
		QuoteVolume: vals[5],
	}, nil
}
