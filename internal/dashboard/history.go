package dashboard

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"cryptosnap/internal/metrics"
)

const defaultHistory = 200

// metricHistory keeps the most recent metric events. Safe for concurrent use.
type metricHistory struct {
	mu    sync.RWMutex
	items []metrics.Metric
	limit int
}

func newMetricHistory(limit int) *metricHistory {
	if limit <= 0 {
		limit = defaultHistory
	}
	return &metricHistory{limit: limit}
}

func (h *metricHistory) handle(metric metrics.Metric) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.items = append(h.items, metric)
	if len(h.items) > h.limit {
		h.items = append([]metrics.Metric(nil), h.items[len(h.items)-h.limit:]...)
	}
}

func (h *metricHistory) snapshot() []metrics.Metric {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]metrics.Metric, len(h.items))
	copy(out, h.items)
	return out
}

type logRecord struct {
	Timestamp time.Time              `json:"timestamp"`
	Level     string                 `json:"level"`
	Component string                 `json:"component,omitempty"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// logHistory is a logrus hook retaining the most recent warnings and errors
// of a job run.
type logHistory struct {
	mu      sync.RWMutex
	items   []logRecord
	limit   int
	enabled atomic.Bool
}

func newLogHistory(limit int) *logHistory {
	if limit <= 0 {
		limit = defaultHistory
	}
	h := &logHistory{limit: limit}
	h.enabled.Store(true)
	return h
}

func (h *logHistory) Levels() []logrus.Level {
	return []logrus.Level{logrus.PanicLevel, logrus.FatalLevel, logrus.ErrorLevel, logrus.WarnLevel, logrus.InfoLevel}
}

func (h *logHistory) Fire(entry *logrus.Entry) error {
	if !h.enabled.Load() {
		return nil
	}

	record := logRecord{
		Timestamp: entry.Time,
		Level:     entry.Level.String(),
		Message:   entry.Message,
	}
	if component, ok := entry.Data["component"].(string); ok {
		record.Component = component
	}
	if len(entry.Data) > 0 {
		record.Fields = make(map[string]interface{}, len(entry.Data))
		for k, v := range entry.Data {
			if k == "component" {
				continue
			}
			switch val := v.(type) {
			case error:
				record.Fields[k] = val.Error()
			case fmt.Stringer:
				record.Fields[k] = val.String()
			default:
				record.Fields[k] = val
			}
		}
	}

	h.mu.Lock()
	h.items = append(h.items, record)
	if len(h.items) > h.limit {
		h.items = append([]logRecord(nil), h.items[len(h.items)-h.limit:]...)
	}
	h.mu.Unlock()
	return nil
}

func (h *logHistory) snapshot() []logRecord {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]logRecord, len(h.items))
	copy(out, h.items)
	return out
}

func (h *logHistory) close() {
	h.enabled.Store(false)
}
