package fetcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"cryptosnap/internal/models"
	"cryptosnap/internal/queue"
)

type fakeSource struct {
	name string
	fail map[string]error

	mu    sync.Mutex
	calls []string
}

func (s *fakeSource) Exchange() string { return s.name }

func (s *fakeSource) record(symbol string) error {
	s.mu.Lock()
	s.calls = append(s.calls, symbol)
	s.mu.Unlock()
	if err, ok := s.fail[symbol]; ok {
		if err == nil {
			panic("boom " + symbol)
		}
		return err
	}
	return nil
}

func (s *fakeSource) FundingRate(_ context.Context, symbol string, limit int) ([]models.NormalizedCandle, error) {
	if err := s.record(symbol); err != nil {
		return nil, err
	}
	return []models.NormalizedCandle{{OpenTime: int64(limit), FundingRate: 0.0001}}, nil
}

func (s *fakeSource) Klines(_ context.Context, symbol string, tf models.Timeframe, limit int) ([]models.Kline, error) {
	if err := s.record(symbol); err != nil {
		return nil, err
	}
	return []models.Kline{{OpenTime: tf.Millis(), Close: float64(limit)}}, nil
}

func (s *fakeSource) OpenInterest(_ context.Context, symbol string, period models.Timeframe, limit int) ([]models.OIPoint, error) {
	if err := s.record(symbol); err != nil {
		return nil, err
	}
	return []models.OIPoint{{Timestamp: period.Millis(), OpenInterest: float64(limit)}}, nil
}

func coinsOn(exchange string, symbols ...string) []models.Coin {
	out := make([]models.Coin, len(symbols))
	for i, s := range symbols {
		out[i] = models.Coin{Symbol: s, Exchanges: []string{exchange}, Category: i}
	}
	return out
}

func venue(src *fakeSource) Venue {
	return Venue{Source: src, Queue: queue.New(src.name, 2, time.Millisecond)}
}

func TestFetchIsolatesFailures(t *testing.T) {
	src := &fakeSource{name: models.ExchangeBybit, fail: map[string]error{
		"ETHUSDT": errors.New("HTTP 500"),
		"SOLUSDT": nil, // panics
	}}
	fr := NewFundingRate(NewVenues(venue(src)))
	coins := coinsOn(models.ExchangeBybit, "BTCUSDT", "ETHUSDT", "SOLUSDT", "XRPUSDT")

	res := fr.Fetch(context.Background(), coins, models.ExchangeBybit, 400)
	if len(res.Successful)+len(res.Failed) != len(coins) {
		t.Fatalf("outcomes = %d, want %d", res.Total(), len(coins))
	}
	if len(res.Failed) != 2 || len(res.Successful) != 2 {
		t.Fatalf("unexpected partition: %+v", res)
	}
	if res.Successful[0].Symbol != "BTCUSDT" || res.Successful[1].Symbol != "XRPUSDT" || res.Successful[1].Category != 3 {
		t.Fatalf("successful = %+v", res.Successful)
	}
	if res.Successful[0].Candles[0].OpenTime != 400 {
		t.Fatalf("limit not forwarded: %+v", res.Successful[0].Candles)
	}
	if res.Failed[0].Symbol != "ETHUSDT" || res.Failed[0].Error != "HTTP 500" {
		t.Fatalf("failed = %+v", res.Failed)
	}
}

func TestFetchUnsupportedExchangeFailsEveryCoin(t *testing.T) {
	k := NewKline(NewVenues())
	res := k.Fetch(context.Background(), coinsOn("okx", "BTCUSDT", "ETHUSDT"), "okx", models.TF4h, 10)
	if len(res.Successful) != 0 || len(res.Failed) != 2 {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestSplitByExchangePrefersBinance(t *testing.T) {
	coins := []models.Coin{
		{Symbol: "BTCUSDT", Exchanges: []string{"bybit", "binance"}},
		{Symbol: "ABCUSDT", Exchanges: []string{"bybit"}},
		{Symbol: "XYZUSDT", Exchanges: []string{"okx"}},
	}
	groups, unsupported := SplitByExchange(coins)
	if len(groups[models.ExchangeBinance]) != 1 || groups[models.ExchangeBinance][0].Symbol != "BTCUSDT" {
		t.Fatalf("binance group = %+v", groups[models.ExchangeBinance])
	}
	if len(groups[models.ExchangeBybit]) != 1 || groups[models.ExchangeBybit][0].Symbol != "ABCUSDT" {
		t.Fatalf("bybit group = %+v", groups[models.ExchangeBybit])
	}
	if len(unsupported) != 1 || unsupported[0].Symbol != "XYZUSDT" || groups.Total() != 2 {
		t.Fatalf("unsupported = %+v", unsupported)
	}
}

func TestFetchGroupsMergesExchanges(t *testing.T) {
	binance := &fakeSource{name: models.ExchangeBinance}
	bybit := &fakeSource{name: models.ExchangeBybit, fail: map[string]error{"B2": fmt.Errorf("no data")}}
	venues := NewVenues(venue(binance), venue(bybit))

	groups := Groups{
		models.ExchangeBinance: coinsOn(models.ExchangeBinance, "A1", "A2", "A3"),
		models.ExchangeBybit:   coinsOn(models.ExchangeBybit, "B1", "B2"),
	}

	oi := NewOpenInterest(venues).FetchGroups(context.Background(), groups, models.TF1h, 500)
	if oi.Total() != 5 || len(oi.Failed) != 1 || oi.Failed[0].Symbol != "B2" {
		t.Fatalf("merged result = %+v", oi)
	}
	if oi.Successful[0].Symbol != "A1" || oi.Successful[0].Candles[0].Timestamp != models.TF1h.Millis() {
		t.Fatalf("unexpected first record %+v", oi.Successful[0])
	}
	if len(binance.calls) != 3 || len(bybit.calls) != 2 {
		t.Fatalf("calls routed wrong: binance=%v bybit=%v", binance.calls, bybit.calls)
	}
}
