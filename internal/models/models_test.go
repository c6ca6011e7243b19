package models

import (
	"errors"
	"testing"
	"time"
)

func TestCurrentCandleTime(t *testing.T) {
	now := time.Date(2024, 3, 1, 13, 45, 10, 0, time.UTC)

	cases := map[Timeframe]time.Time{
		TF1h: time.Date(2024, 3, 1, 13, 0, 0, 0, time.UTC),
		TF4h: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		TF8h: time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC),
	}
	for tf, want := range cases {
		if got := CurrentCandleTime(tf, now); got != want.UnixMilli() {
			t.Errorf("%s: got %d want %d", tf, got, want.UnixMilli())
		}
	}
}

func TestParseTimeframe(t *testing.T) {
	if tf, err := ParseTimeframe("8h"); err != nil || tf != TF8h {
		t.Fatalf("ParseTimeframe(8h) = %q, %v", tf, err)
	}
	if _, err := ParseTimeframe("3h"); err == nil {
		t.Fatalf("expected error for unsupported timeframe")
	}
	if TF4h.Millis() != FourHoursMs {
		t.Fatalf("4h millis = %d", TF4h.Millis())
	}
}

func TestCoinSupports(t *testing.T) {
	c := Coin{Symbol: "BTCUSDT", Exchanges: []string{"Binance", "bybit"}}
	if !c.Supports(ExchangeBinance) || !c.Supports(ExchangeBybit) {
		t.Fatalf("expected both exchanges supported")
	}
	if c.Supports("okx") {
		t.Fatalf("okx should not be supported")
	}
}

func TestNewFetcherResultPartitions(t *testing.T) {
	outcomes := []FetchOutcome[NormalizedCandle]{
		Success(Coin{Symbol: "BTCUSDT", Category: 1}, []NormalizedCandle{{OpenTime: 0, FundingRate: 0.1}}),
		Failure[NormalizedCandle](Coin{Symbol: "ETHUSDT"}, errors.New("HTTP 500")),
		Success[NormalizedCandle](Coin{Symbol: "SOLUSDT"}, nil),
	}

	res := NewFetcherResult(outcomes)
	if res.Total() != len(outcomes) {
		t.Fatalf("total = %d, want %d", res.Total(), len(outcomes))
	}
	if len(res.Successful) != 2 || len(res.Failed) != 1 {
		t.Fatalf("unexpected partition: %+v", res)
	}
	if res.Successful[0].Category != 1 || res.Successful[1].Candles == nil || res.Successful[1].Exchanges == nil {
		t.Fatalf("unexpected successful records: %+v", res.Successful)
	}
	if res.Failed[0].Symbol != "ETHUSDT" || res.Failed[0].Error != "HTTP 500" {
		t.Fatalf("unexpected failure: %+v", res.Failed[0])
	}

	merged := res.Merge(NewFetcherResult([]FetchOutcome[NormalizedCandle]{
		Failure[NormalizedCandle](Coin{Symbol: "XRPUSDT"}, errors.New("no data")),
	}))
	if merged.Total() != 4 || len(res.Failed) != 1 {
		t.Fatalf("merge should not mutate the receiver: merged=%d failed=%d", merged.Total(), len(res.Failed))
	}
}
