package metrics

import (
	"io"
	"sync"
	"testing"

	"cryptosnap/config"
	"cryptosnap/logger"
)

// collect registers a handler for the duration of the test and returns the
// events it saw. Dispatch is synchronous.
func collect(t *testing.T) func() []Metric {
	t.Helper()
	var (
		mu  sync.Mutex
		got []Metric
	)
	id := RegisterMetricHandler(func(m Metric) {
		mu.Lock()
		got = append(got, m)
		mu.Unlock()
	})
	t.Cleanup(func() { UnregisterMetricHandler(id) })
	return func() []Metric {
		mu.Lock()
		defer mu.Unlock()
		return append([]Metric(nil), got...)
	}
}

func quietLogger() *logger.Log {
	log := logger.Logger()
	log.SetOutput(io.Discard)
	return log
}

func TestRegisterMetricHandler(t *testing.T) {
	if id := RegisterMetricHandler(nil); id != 0 {
		t.Fatalf("nil handler got id %d", id)
	}
	a := RegisterMetricHandler(func(Metric) {})
	b := RegisterMetricHandler(func(Metric) {})
	defer UnregisterMetricHandler(a)
	defer UnregisterMetricHandler(b)
	if a == 0 || b == 0 || a == b {
		t.Fatalf("expected distinct non-zero ids, got %d and %d", a, b)
	}
	UnregisterMetricHandler(0)
}

func TestEmitMetricDispatch(t *testing.T) {
	Configure(config.MetricsConfig{UsedWeight: false})
	t.Cleanup(func() { Configure(config.MetricsConfig{UsedWeight: true}) })

	cases := []struct {
		name      string
		component string
		metric    string
		typ       string
		wantType  string
		delivered bool
	}{
		{"explicit type", "job", "job_execution_time_ms", "gauge", "gauge", true},
		{"default type", "queue", "queue_batches", "", "counter", true},
		{"no name", "queue", "", "counter", "", false},
		{"disabled family", "binance_client", string(FeatureUsedWeight), "gauge", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			events := collect(t)
			fields := logger.Fields{"timeframe": "8h"}

			EmitMetric(quietLogger(), tc.component, tc.metric, 7, tc.typ, fields)

			got := events()
			if !tc.delivered {
				if len(got) != 0 {
					t.Fatalf("expected no dispatch, got %+v", got)
				}
				return
			}
			if len(got) != 1 {
				t.Fatalf("expected one event, got %d", len(got))
			}
			ev := got[0]
			if ev.Component != tc.component || ev.Name != tc.metric || ev.Type != tc.wantType || ev.Value != 7 {
				t.Fatalf("unexpected event: %+v", ev)
			}
			if _, ok := fields["metric"]; ok {
				t.Fatalf("caller fields mutated: %v", fields)
			}
			if _, ok := ev.Fields["metric"]; ok || ev.Fields["timeframe"] != "8h" {
				t.Fatalf("unexpected event fields: %v", ev.Fields)
			}
		})
	}
}
