package models

// FetchOutcome is the result of one per-symbol fetch. Exactly one of Data or
// Err is meaningful: Err == nil marks success.
type FetchOutcome[T any] struct {
	Coin Coin
	Data []T
	Err  error
}

func Success[T any](coin Coin, data []T) FetchOutcome[T] {
	return FetchOutcome[T]{Coin: coin, Data: data}
}

func Failure[T any](coin Coin, err error) FetchOutcome[T] {
	return FetchOutcome[T]{Coin: coin, Err: err}
}

func (o FetchOutcome[T]) OK() bool {
	return o.Err == nil
}

// FailedCoin reports a symbol whose fetch did not succeed.
type FailedCoin struct {
	Symbol string `json:"symbol"`
	Error  string `json:"error"`
}

// CoinMarketData is one symbol's ordered series.
type CoinMarketData[T any] struct {
	Symbol    string   `json:"symbol"`
	Exchanges []string `json:"exchanges"`
	Category  int      `json:"category"`
	Candles   []T      `json:"candles"`
}

// FetcherResult aggregates the outcomes of one fan-out.
type FetcherResult[T any] struct {
	Successful []CoinMarketData[T]
	Failed     []FailedCoin
}

// NewFetcherResult partitions outcomes by success, keeping their order.
func NewFetcherResult[T any](outcomes []FetchOutcome[T]) FetcherResult[T] {
	res := FetcherResult[T]{
		Successful: make([]CoinMarketData[T], 0, len(outcomes)),
		Failed:     []FailedCoin{},
	}
	for _, o := range outcomes {
		if !o.OK() {
			res.Failed = append(res.Failed, FailedCoin{Symbol: o.Coin.Symbol, Error: o.Err.Error()})
			continue
		}
		exchanges := o.Coin.Exchanges
		if exchanges == nil {
			exchanges = []string{}
		}
		candles := o.Data
		if candles == nil {
			candles = []T{}
		}
		res.Successful = append(res.Successful, CoinMarketData[T]{
			Symbol:    o.Coin.Symbol,
			Exchanges: exchanges,
			Category:  o.Coin.Category,
			Candles:   candles,
		})
	}
	return res
}

// Merge appends other's outcomes to r.
func (r FetcherResult[T]) Merge(other FetcherResult[T]) FetcherResult[T] {
	return FetcherResult[T]{
		Successful: append(append([]CoinMarketData[T]{}, r.Successful...), other.Successful...),
		Failed:     append(append([]FailedCoin{}, r.Failed...), other.Failed...),
	}
}

func (r FetcherResult[T]) Total() int {
	return len(r.Successful) + len(r.Failed)
}
