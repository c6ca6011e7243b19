package rate

import (
	"net/http"
	"strconv"

	"cryptosnap/internal/metrics"
	"cryptosnap/logger"
)

var binanceWeightHeaders = []struct {
	key    string
	window string
}{
	{"X-MBX-USED-WEIGHT-1M", "1m"},
	{"X-MBX-USED-WEIGHT", "1m"},
	{"X-MBX-USED-WEIGHT-1S", "1s"},
}

// ReportUsedWeight inspects the rate limit headers of an exchange response and
// emits a used_weight gauge. It returns the parsed weight and whether one was
// found.
func ReportUsedWeight(log *logger.Log, exchange string, header http.Header) (float64, bool) {
	if header == nil {
		return 0, false
	}
	if log == nil {
		log = logger.GetLogger()
	}

	var (
		used   float64
		window string
		found  bool
	)
	switch exchange {
	case "binance":
		used, window, found = binanceUsedWeight(log, header)
	case "bybit":
		used, found = bybitUsedWeight(log, header)
		window = "5s"
	}
	if !found {
		return 0, false
	}

	component := exchange + "_client"
	metrics.SetUsedWeight(exchange, used)
	metrics.EmitMetric(log, component, "used_weight", used, "gauge", logger.Fields{
		"exchange": exchange,
		"window":   window,
	})
	return used, true
}

func binanceUsedWeight(log *logger.Log, header http.Header) (float64, string, bool) {
	for _, h := range binanceWeightHeaders {
		value := header.Get(h.key)
		if value == "" {
			continue
		}
		used, err := strconv.ParseFloat(value, 64)
		if err != nil {
			log.WithComponent("binance_client").WithFields(logger.Fields{
				"header": h.key,
				"value":  value,
			}).WithError(err).Debug("failed to parse used weight header")
			continue
		}
		return used, h.window, true
	}
	return 0, "", false
}

// bybitUsedWeight derives consumption from limit minus remaining. Bybit has
// served both the X-Bapi-* and X-RateLimit-* header families.
func bybitUsedWeight(log *logger.Log, header http.Header) (float64, bool) {
	limitStr := header.Get("X-Bapi-Limit")
	if limitStr == "" {
		limitStr = header.Get("X-RateLimit-Limit")
	}
	remainingStr := header.Get("X-Bapi-Limit-Status")
	if remainingStr == "" {
		remainingStr = header.Get("X-RateLimit-Remaining")
	}
	if limitStr == "" || remainingStr == "" {
		return 0, false
	}

	limit, err := strconv.ParseFloat(limitStr, 64)
	if err != nil {
		log.WithComponent("bybit_client").WithField("value", limitStr).WithError(err).Debug("failed to parse bybit limit header")
		return 0, false
	}
	remaining, err := strconv.ParseFloat(remainingStr, 64)
	if err != nil {
		log.WithComponent("bybit_client").WithField("value", remainingStr).WithError(err).Debug("failed to parse bybit remaining header")
		return 0, false
	}

	used := limit - remaining
	if used < 0 {
		used = 0
	}
	return used, true
}
