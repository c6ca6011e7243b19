package models

/////////////////////////////////////////////////////////////////////////////
///////////////////////////////// BYBIT /////////////////////////////////////
/////////////////////////////////////////////////////////////////////////////

// BybitResponse is the v5 envelope shared by every market endpoint.
type BybitResponse[T any] struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  *T     `json:"result"`
	Time    int64  `json:"time"`
}

// BybitFundingHistory (e.g., /v5/market/funding/history). List is newest first.
type BybitFundingHistory struct {
	Category string              `json:"category"`
	List     []BybitFundingEntry `json:"list"`
}

type BybitFundingEntry struct {
	Symbol               string `json:"symbol"`
	FundingRate          string `json:"fundingRate"`
	FundingRateTimestamp string `json:"fundingRateTimestamp"` // ms as string
}

// BybitKlineList (e.g., /v5/market/kline). Each row is
// [startTime, open, high, low, close, volume, turnover], newest first.
type BybitKlineList struct {
	Category string     `json:"category"`
	Symbol   string     `json:"symbol"`
	List     [][]string `json:"list"`
}

// BybitOpenInterestList (e.g., /v5/market/open-interest). Newest first.
type BybitOpenInterestList struct {
	Category       string                   `json:"category"`
	Symbol         string                   `json:"symbol"`
	List           []BybitOpenInterestEntry `json:"list"`
	NextPageCursor string                   `json:"nextPageCursor"`
}

type BybitOpenInterestEntry struct {
	OpenInterest string `json:"openInterest"`
	Timestamp    string `json:"timestamp"` // ms as string
}

/////////////////////////////////////////////////////////////////////////////
///////////////////////////////// COINS /////////////////////////////////////
/////////////////////////////////////////////////////////////////////////////

// CoinListResp is the payload served by a remote coin list.
type CoinListResp struct {
	Coins []Coin `json:"coins"`
}
