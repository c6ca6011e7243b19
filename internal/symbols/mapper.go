package symbols

import "strings"

// Normalize converts a perpetual symbol to the USDT-margined linear form both
// venues use for REST lookups: uppercase, no separators, no swap suffix.
//
//	btc-usdt-swap -> BTCUSDT
//	ETH/USDT      -> ETHUSDT
func Normalize(sym string) string {
	sym = strings.ToUpper(strings.TrimSpace(sym))
	sym = strings.TrimSuffix(sym, "-SWAP")
	sym = strings.TrimSuffix(sym, ".P")
	for _, sep := range []string{"-", "/", "_", ":"} {
		sym = strings.ReplaceAll(sym, sep, "")
	}
	return sym
}

// NormalizeExchanges lowercases venue names and drops blanks and duplicates.
func NormalizeExchanges(exchanges []string) []string {
	out := make([]string, 0, len(exchanges))
	seen := make(map[string]struct{}, len(exchanges))
	for _, e := range exchanges {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if _, ok := seen[e]; ok {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	return out
}
