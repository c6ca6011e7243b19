package rate

import (
	"strings"

	"cryptosnap/internal/metrics"
	"cryptosnap/logger"
)

// ReportRateLimitExceeded counts a rate limit rejection for exchange.
func ReportRateLimitExceeded(log *logger.Log, exchange, symbol string) {
	component := strings.ToLower(exchange) + "_client"
	fields := logger.Fields{
		"exchange": strings.ToLower(exchange),
		"symbol":   symbol,
	}
	metrics.EmitMetric(log, component, "rate_limit_exceeded", int64(1), "counter", fields)
	log.WithComponent(component).WithFields(fields).Warn("rate limit exceeded")
}

// ReportIPBan counts an IP ban reported by exchange.
func ReportIPBan(log *logger.Log, exchange, symbol string) {
	component := strings.ToLower(exchange) + "_client"
	fields := logger.Fields{
		"exchange": strings.ToLower(exchange),
		"symbol":   symbol,
	}
	metrics.EmitMetric(log, component, "ip_ban", int64(1), "counter", fields)
	log.WithComponent(component).WithFields(fields).Error("ip banned")
}

// detectLimit inspects an exchange error message for rate limit or IP ban
// wording. Each venue phrases these differently.
func detectLimit(exchange, msg string) (rateLimit bool, ipBan bool) {
	lowerMsg := strings.ToLower(msg)
	switch strings.ToLower(exchange) {
	case "binance":
		rateLimit = strings.Contains(lowerMsg, "too many requests") || strings.Contains(lowerMsg, "rate limit")
		ipBan = strings.Contains(lowerMsg, "ip") && strings.Contains(lowerMsg, "ban")
	case "bybit":
		ipBan = strings.Contains(lowerMsg, "ip rate limit") || (strings.Contains(lowerMsg, "ip") && strings.Contains(lowerMsg, "ban"))
		rateLimit = !ipBan && (strings.Contains(lowerMsg, "rate limit") || strings.Contains(lowerMsg, "too many requests") || strings.Contains(lowerMsg, "too many visits"))
	default:
		rateLimit = strings.Contains(lowerMsg, "rate limit") || strings.Contains(lowerMsg, "too many requests")
		ipBan = strings.Contains(lowerMsg, "ip") && strings.Contains(lowerMsg, "ban")
	}
	return
}

// ReportLimitFromMessage records rate limit or IP ban metrics when msg matches
// the exchange's wording. It reports whether anything was recorded.
func ReportLimitFromMessage(log *logger.Log, exchange, symbol, msg string) bool {
	if log == nil {
		log = logger.GetLogger()
	}
	rateLimit, ipBan := detectLimit(exchange, msg)
	if rateLimit {
		ReportRateLimitExceeded(log, exchange, symbol)
	}
	if ipBan {
		ReportIPBan(log, exchange, symbol)
	}
	return rateLimit || ipBan
}
