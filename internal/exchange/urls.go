package exchange

import (
	"net/url"
	"strconv"
	"strings"
)

// BybitPageLimit is the maximum number of records Bybit returns per call.
const BybitPageLimit = 200

// BybitFundingURL builds the funding history URL. endTime <= 0 omits the
// cursor.
func BybitFundingURL(base, symbol string, limit int, endTime int64) string {
	q := url.Values{}
	q.Set("category", "linear")
	q.Set("symbol", symbol)
	q.Set("limit", strconv.Itoa(limit))
	if endTime > 0 {
		q.Set("endTime", strconv.FormatInt(endTime, 10))
	}
	return join(base, "/v5/market/funding/history", q)
}

// BybitKlineURL builds the kline URL. interval uses Bybit notation, e.g. "240".
func BybitKlineURL(base, symbol, interval string, limit int) string {
	q := url.Values{}
	q.Set("category", "linear")
	q.Set("symbol", symbol)
	q.Set("interval", interval)
	q.Set("limit", strconv.Itoa(limit))
	return join(base, "/v5/market/kline", q)
}

// BybitOpenInterestURL builds the open interest URL. cursor continues a
// previous page when non-empty.
func BybitOpenInterestURL(base, symbol, intervalTime string, limit int, cursor string) string {
	q := url.Values{}
	q.Set("category", "linear")
	q.Set("symbol", symbol)
	q.Set("intervalTime", intervalTime)
	q.Set("limit", strconv.Itoa(limit))
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	return join(base, "/v5/market/open-interest", q)
}

func join(base, path string, q url.Values) string {
	return strings.TrimRight(base, "/") + path + "?" + q.Encode()
}
