package jobs

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"cryptosnap/internal/fetcher"
	"cryptosnap/internal/models"
	"cryptosnap/internal/processor"
)

const (
	hour = int64(3600 * 1000)
	t0   = int64(1_700_006_400_000) // 8h aligned
)

type staticCoins struct {
	coins []models.Coin
	err   error
}

func (s staticCoins) Fetch(context.Context) ([]models.Coin, error) { return s.coins, s.err }

// fakeMarket serves every fetch phase from canned per-symbol data.
type fakeMarket struct {
	mu          sync.Mutex
	klineCalls  []int
	klineTFs    []models.Timeframe
	klines      map[string][]models.Kline
	failKlines  map[string]bool
	failFunding map[string]bool
}

func (m *fakeMarket) symbols(groups fetcher.Groups) []models.Coin {
	var out []models.Coin
	for _, ex := range []string{models.ExchangeBinance, models.ExchangeBybit} {
		out = append(out, groups[ex]...)
	}
	return out
}

func (m *fakeMarket) FetchKlines(_ context.Context, groups fetcher.Groups, tf models.Timeframe, limit int) models.FetcherResult[models.Kline] {
	m.mu.Lock()
	m.klineCalls = append(m.klineCalls, limit)
	m.klineTFs = append(m.klineTFs, tf)
	m.mu.Unlock()

	var outcomes []models.FetchOutcome[models.Kline]
	for _, c := range m.symbols(groups) {
		if m.failKlines[c.Symbol] {
			outcomes = append(outcomes, models.Failure[models.Kline](c, errors.New("HTTP 500")))
			continue
		}
		candles := m.klines[c.Symbol]
		if len(candles) > limit {
			candles = candles[len(candles)-limit:]
		}
		outcomes = append(outcomes, models.Success(c, candles))
	}
	return models.NewFetcherResult(outcomes)
}

type klineAdapter struct{ m *fakeMarket }

func (a klineAdapter) FetchGroups(ctx context.Context, g fetcher.Groups, tf models.Timeframe, limit int) models.FetcherResult[models.Kline] {
	return a.m.FetchKlines(ctx, g, tf, limit)
}

type fundingAdapter struct{ m *fakeMarket }

func (a fundingAdapter) FetchGroups(_ context.Context, g fetcher.Groups, limit int) models.FetcherResult[models.NormalizedCandle] {
	var outcomes []models.FetchOutcome[models.NormalizedCandle]
	for _, c := range a.m.symbols(g) {
		if a.m.failFunding[c.Symbol] {
			outcomes = append(outcomes, models.Failure[models.NormalizedCandle](c, errors.New("no data")))
			continue
		}
		outcomes = append(outcomes, models.Success(c, processor.NormalizeBinance([]models.FundingObservation{
			{FundingTime: t0 + 8*hour, FundingRate: 0.0001},
		})))
	}
	return models.NewFetcherResult(outcomes)
}

type oiAdapter struct{ m *fakeMarket }

func (a oiAdapter) FetchGroups(_ context.Context, g fetcher.Groups, _ models.Timeframe, _ int) models.FetcherResult[models.OIPoint] {
	var outcomes []models.FetchOutcome[models.OIPoint]
	for _, c := range a.m.symbols(g) {
		outcomes = append(outcomes, models.Success(c, []models.OIPoint{{Timestamp: t0 + 9*hour, OpenInterest: 42}}))
	}
	return models.NewFetcherResult(outcomes)
}

type memStore struct {
	mu    sync.Mutex
	saved map[models.Timeframe]models.MarketSnapshot
	order []models.Timeframe
	fail  map[models.Timeframe]error
}

func newMemStore() *memStore {
	return &memStore{saved: map[models.Timeframe]models.MarketSnapshot{}, fail: map[models.Timeframe]error{}}
}

func (s *memStore) Save(_ context.Context, tf models.Timeframe, snap models.MarketSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = append(s.order, tf)
	if err := s.fail[tf]; err != nil {
		return err
	}
	s.saved[tf] = snap
	return nil
}

func baseCandles(n int) []models.Kline {
	out := make([]models.Kline, n)
	for i := range out {
		open := t0 + int64(i)*4*hour
		out[i] = models.Kline{OpenTime: open, CloseTime: open + 4*hour - 1, Open: float64(i), High: float64(i) + 1, Low: float64(i) - 1, Close: float64(i) + 0.5, Volume: 1}
	}
	return out
}

func newTestRunner(m *fakeMarket, coins CoinProvider, st *memStore) *Runner {
	r := NewRunner(coins, fundingAdapter{m}, klineAdapter{m}, oiAdapter{m}, st, Limits{
		FundingRate:  400,
		OpenInterest: 500,
		KlineDirect:  4,
		KlineBase:    8,
		SaveLimit:    3,
	})
	r.now = func() time.Time { return time.UnixMilli(t0 + 30*hour) }
	return r
}

func threeCoins() staticCoins {
	return staticCoins{coins: []models.Coin{
		{Symbol: "BTCUSDT", Exchanges: []string{"binance"}},
		{Symbol: "ETHUSDT", Exchanges: []string{"binance", "bybit"}},
		{Symbol: "SOLUSDT", Exchanges: []string{"bybit"}},
	}}
}

func TestRun8hDerivesBothTimeframesFromOneFetch(t *testing.T) {
	m := &fakeMarket{klines: map[string][]models.Kline{
		"BTCUSDT": baseCandles(10),
		"ETHUSDT": baseCandles(10),
		"SOLUSDT": baseCandles(10),
	}}
	st := newMemStore()
	res := newTestRunner(m, threeCoins(), st).Run8h(context.Background())

	if !res.Success || res.Timeframe != models.TF8h || res.TotalCoins != 3 || res.SuccessfulCoins != 3 {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(m.klineCalls) != 1 || m.klineCalls[0] != 8 || m.klineTFs[0] != models.TF4h {
		t.Fatalf("base klines should be fetched once at the base size: %v %v", m.klineCalls, m.klineTFs)
	}
	if len(st.order) != 2 || st.order[0] != models.TF4h || st.order[1] != models.TF8h {
		t.Fatalf("save order = %v", st.order)
	}

	base := m.klines["BTCUSDT"][2:] // the 8 candles served
	snap4h := st.saved[models.TF4h]
	btc4h := snap4h.Data[0].Candles
	if len(btc4h) != 3 {
		t.Fatalf("4h candles = %d, want 3", len(btc4h))
	}
	for i, c := range btc4h {
		if c.Kline != base[len(base)-3+i] {
			t.Fatalf("4h candle %d is not a suffix of the base fetch", i)
		}
	}

	snap8h := st.saved[models.TF8h]
	want := processor.Combine([]models.CoinMarketData[models.Kline]{{Symbol: "BTCUSDT", Candles: base}})[0].Candles
	btc8h := snap8h.Data[0].Candles
	if len(btc8h) != len(want) || len(want) != 4 {
		t.Fatalf("8h candles = %d, want %d", len(btc8h), len(want))
	}
	for i := range want {
		if btc8h[i].Kline != want[i] {
			t.Fatalf("8h candle %d differs from the pairwise merge", i)
		}
	}

	if snap8h.OpenTime != t0+24*hour || snap4h.OpenTime != t0+28*hour {
		t.Fatalf("open times = %d / %d", snap4h.OpenTime, snap8h.OpenTime)
	}
	if snap8h.CoinsNumber != 3 || snap8h.UpdatedAt != t0+30*hour {
		t.Fatalf("snapshot header = %+v", snap8h)
	}
	first := btc8h[0]
	if first.FundingRate == nil || *first.FundingRate != 0.0001 || first.OpenInterest == nil || *first.OpenInterest != 42 {
		t.Fatalf("8h candle not enriched: %+v", first)
	}
}

func TestRun4hUsesDirectLimit(t *testing.T) {
	m := &fakeMarket{
		klines:      map[string][]models.Kline{"BTCUSDT": baseCandles(10), "ETHUSDT": baseCandles(10), "SOLUSDT": baseCandles(10)},
		failKlines:  map[string]bool{"SOLUSDT": true},
		failFunding: map[string]bool{"ETHUSDT": true},
	}
	st := newMemStore()
	res := newTestRunner(m, threeCoins(), st).Run4h(context.Background())

	if !res.Success || res.SuccessfulCoins != 2 || res.FailedCoins != 1 || res.TotalCoins != 3 {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(m.klineCalls) != 1 || m.klineCalls[0] != 4 {
		t.Fatalf("kline limits = %v", m.klineCalls)
	}
	joined := strings.Join(res.Errors, "|")
	if !strings.Contains(joined, "FR fetch failed for 1 coins") || !strings.Contains(joined, "4h Kline fetch failed for 1 coins") {
		t.Fatalf("errors = %v", res.Errors)
	}
	if _, ok := st.saved[models.TF8h]; ok {
		t.Fatalf("4h job must not save 8h")
	}
	eth := st.saved[models.TF4h].Data[1]
	if eth.Symbol != "ETHUSDT" || eth.Candles[0].FundingRate != nil {
		t.Fatalf("ETH should have no funding rate: %+v", eth.Candles[0])
	}
}

func TestCoinProviderFailureIsFatal(t *testing.T) {
	st := newMemStore()
	res := newTestRunner(&fakeMarket{}, staticCoins{err: errors.New("coin api down")}, st).Run8h(context.Background())

	if res.Success || res.TotalCoins != 0 || res.SuccessfulCoins != 0 {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(res.Errors) == 0 || !strings.Contains(res.Errors[0], "coin api down") {
		t.Fatalf("errors = %v", res.Errors)
	}
	if len(st.order) != 0 {
		t.Fatalf("nothing should be saved")
	}
}

func TestRun8hSecondary4hSaveFailureContinues(t *testing.T) {
	m := &fakeMarket{klines: map[string][]models.Kline{"BTCUSDT": baseCandles(8)}}
	st := newMemStore()
	st.fail[models.TF4h] = errors.New("redis timeout")
	coins := staticCoins{coins: []models.Coin{{Symbol: "BTCUSDT", Exchanges: []string{"binance"}}}}

	res := newTestRunner(m, coins, st).Run8h(context.Background())
	if !res.Success {
		t.Fatalf("8h job should succeed when only 4h save fails: %+v", res)
	}
	if _, ok := st.saved[models.TF8h]; !ok {
		t.Fatalf("8h snapshot not saved")
	}
	if !strings.Contains(strings.Join(res.Errors, "|"), "redis timeout") {
		t.Fatalf("errors = %v", res.Errors)
	}
}

func TestRun8hPrimarySaveFailureFails(t *testing.T) {
	m := &fakeMarket{klines: map[string][]models.Kline{"BTCUSDT": baseCandles(8)}}
	st := newMemStore()
	st.fail[models.TF8h] = errors.New("redis timeout")
	coins := staticCoins{coins: []models.Coin{{Symbol: "BTCUSDT", Exchanges: []string{"binance"}}, {Symbol: "X", Exchanges: []string{"okx"}}}}

	res := newTestRunner(m, coins, st).Run8h(context.Background())
	if res.Success || !strings.Contains(res.Errors[0], "redis timeout") {
		t.Fatalf("unexpected result %+v", res)
	}
	if !strings.Contains(strings.Join(res.Errors, "|"), "1 coins have no supported exchange") {
		t.Fatalf("run errors should follow the fatal one: %v", res.Errors)
	}
}

func TestRunDispatch(t *testing.T) {
	r := newTestRunner(&fakeMarket{}, staticCoins{err: errors.New("x")}, newMemStore())
	if _, err := r.Run(context.Background(), models.TF1h); err == nil {
		t.Fatalf("1h has no job")
	}
	res, err := r.Run(context.Background(), models.TF4h)
	if err != nil || res.Timeframe != models.TF4h {
		t.Fatalf("dispatch 4h: %+v, %v", res, err)
	}
}
