// Registers:
//
//	#cryptosnap_queue_depth
//	#cryptosnap_queue_batches_total
//	#cryptosnap_queue_batch_duration_seconds
//	#cryptosnap_fetch_total
//	#cryptosnap_job_runs_total
//	#cryptosnap_job_duration_seconds
//	#cryptosnap_job_coins
//	#cryptosnap_snapshot_saves_total
//	#cryptosnap_exchange_used_weight
//	#go_* and process_* system metrics
//
// Serve exposes them on <listen_addr>/metrics using the Prometheus HTTP handler,
// next to any extra routes handed in by the caller.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cryptosnap/logger"
)

var (
	once sync.Once

	queueDepth    *prometheus.GaugeVec
	queueBatches  *prometheus.CounterVec
	queueDuration *prometheus.HistogramVec
	fetchTotal    *prometheus.CounterVec
	jobRuns       *prometheus.CounterVec
	jobDuration   *prometheus.HistogramVec
	jobCoins      *prometheus.GaugeVec
	snapshotSaves *prometheus.CounterVec
	usedWeight    *prometheus.GaugeVec
)

// Init creates and registers the collectors with the default registry. It is
// safe to call more than once.
func Init() {
	once.Do(func() {
		queueDepth = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "cryptosnap_queue_depth",
				Help: "Tasks waiting in an exchange queue",
			},
			[]string{"queue"},
		)
		queueBatches = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cryptosnap_queue_batches_total",
				Help: "Batches executed by an exchange queue",
			},
			[]string{"queue"},
		)
		queueDuration = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cryptosnap_queue_batch_duration_seconds",
				Help:    "Wall time of one queue batch",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"queue"},
		)
		fetchTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cryptosnap_fetch_total",
				Help: "Per-symbol fetch outcomes",
			},
			[]string{"exchange", "kind", "result"},
		)
		jobRuns = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cryptosnap_job_runs_total",
				Help: "Job executions by outcome",
			},
			[]string{"timeframe", "result"},
		)
		jobDuration = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cryptosnap_job_duration_seconds",
				Help:    "Job execution time",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
			[]string{"timeframe"},
		)
		jobCoins = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "cryptosnap_job_coins",
				Help: "Coins per state in the last job run",
			},
			[]string{"timeframe", "state"},
		)
		snapshotSaves = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cryptosnap_snapshot_saves_total",
				Help: "Snapshot store writes by outcome",
			},
			[]string{"timeframe", "result"},
		)
		usedWeight = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "cryptosnap_exchange_used_weight",
				Help: "Request weight consumed as reported by the exchange",
			},
			[]string{"exchange"},
		)

		for _, c := range []prometheus.Collector{
			queueDepth, queueBatches, queueDuration, fetchTotal,
			jobRuns, jobDuration, jobCoins, snapshotSaves, usedWeight,
		} {
			_ = prometheus.Register(c)
		}
		_ = prometheus.Register(collectors.NewGoCollector())
		_ = prometheus.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

// Serve runs the /metrics listener until ctx is cancelled. routes are
// mounted on the same mux.
func Serve(ctx context.Context, addr string, routes map[string]http.Handler) {
	Init()
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	for pattern, h := range routes {
		mux.Handle(pattern, h)
	}
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.GetLogger().WithComponent("metrics").WithError(err).Error("metrics server failed")
		}
	}()
}

// QueueObserver feeds queue activity into the queue collectors.
type QueueObserver struct{}

func (QueueObserver) QueueDepth(label string, depth int) {
	if queueDepth != nil {
		queueDepth.WithLabelValues(label).Set(float64(depth))
	}
}

func (QueueObserver) BatchExecuted(label string, size int, elapsed time.Duration) {
	if queueBatches != nil {
		queueBatches.WithLabelValues(label).Inc()
	}
	if queueDuration != nil {
		queueDuration.WithLabelValues(label).Observe(elapsed.Seconds())
	}
}

// RecordFetch counts one per-symbol fetch outcome.
func RecordFetch(exchange, kind string, ok bool) {
	logger.RecordFetch(exchange, ok)
	if fetchTotal == nil {
		return
	}
	result := "success"
	if !ok {
		result = "failure"
	}
	fetchTotal.WithLabelValues(exchange, kind, result).Inc()
}

// RecordJob records a finished job run.
func RecordJob(timeframe string, success bool, elapsed time.Duration, successful, failed int) {
	if jobRuns == nil {
		return
	}
	result := "success"
	if !success {
		result = "failure"
	}
	jobRuns.WithLabelValues(timeframe, result).Inc()
	jobDuration.WithLabelValues(timeframe).Observe(elapsed.Seconds())
	jobCoins.WithLabelValues(timeframe, "successful").Set(float64(successful))
	jobCoins.WithLabelValues(timeframe, "failed").Set(float64(failed))
}

// RecordSnapshotSave counts one store write.
func RecordSnapshotSave(timeframe string, err error) {
	if err == nil {
		logger.IncrementSnapshotSaved()
	}
	if snapshotSaves == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	snapshotSaves.WithLabelValues(timeframe, result).Inc()
}

// SetUsedWeight publishes the latest exchange reported weight.
func SetUsedWeight(exchange string, used float64) {
	if usedWeight != nil {
		usedWeight.WithLabelValues(exchange).Set(used)
	}
}
