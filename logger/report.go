package logger

import (
	"context"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aws/aws-sdk-go-v2/aws"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

type exchangeStat struct {
	ok     int64
	failed int64
}

var (
	errorsFetch    int64
	errorsStore    int64
	warnsFetch     int64
	warnsStore     int64
	snapshotsSaved int64
	exchanges      sync.Map // map[string]*exchangeStat
)

func recordWarn(component string) {
	switch {
	case strings.Contains(component, "reader"), strings.Contains(component, "fetcher"):
		atomic.AddInt64(&warnsFetch, 1)
	case strings.Contains(component, "store"):
		atomic.AddInt64(&warnsStore, 1)
	}
}

func recordError(component string) {
	switch {
	case strings.Contains(component, "reader"), strings.Contains(component, "fetcher"):
		atomic.AddInt64(&errorsFetch, 1)
	case strings.Contains(component, "store"):
		atomic.AddInt64(&errorsStore, 1)
	}
}

// RecordFetch counts one per-symbol fetch outcome for an exchange.
func RecordFetch(exchange string, ok bool) {
	v, _ := exchanges.LoadOrStore(exchange, &exchangeStat{})
	es := v.(*exchangeStat)
	if ok {
		atomic.AddInt64(&es.ok, 1)
	} else {
		atomic.AddInt64(&es.failed, 1)
	}
}

// IncrementSnapshotSaved counts one persisted snapshot.
func IncrementSnapshotSaved() {
	atomic.AddInt64(&snapshotsSaved, 1)
}

// StartReport begins periodic logging of system and fetch statistics.
func StartReport(ctx context.Context, log *Log, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				logReport(ctx, log)
			}
		}
	}()
}

func logReport(ctx context.Context, log *Log) {
	cpuPercent, _ := cpu.Percent(0, false)
	memStats, _ := mem.VirtualMemory()

	exchangeData := map[string]map[string]int64{}
	exchanges.Range(func(k, v any) bool {
		es := v.(*exchangeStat)
		exchangeData[k.(string)] = map[string]int64{
			"ok":     atomic.LoadInt64(&es.ok),
			"failed": atomic.LoadInt64(&es.failed),
		}
		return true
	})

	cpuPct := 0.0
	if len(cpuPercent) > 0 {
		cpuPct = cpuPercent[0]
	}
	memMB := 0.0
	if memStats != nil {
		memMB = float64(memStats.Used) / 1024 / 1024
	}

	fields := Fields{
		"errors_fetch":    atomic.LoadInt64(&errorsFetch),
		"errors_store":    atomic.LoadInt64(&errorsStore),
		"warns_fetch":     atomic.LoadInt64(&warnsFetch),
		"warns_store":     atomic.LoadInt64(&warnsStore),
		"snapshots_saved": atomic.LoadInt64(&snapshotsSaved),
		"goroutines":      runtime.NumGoroutine(),
		"cpu_percent":     cpuPct,
		"memory_mb":       int64(memMB),
		"exchanges":       exchangeData,
	}

	log.WithComponent("report").WithFields(fields).Info("runtime report")

	data := []cwtypes.MetricDatum{
		{MetricName: aws.String("CPUPercent"), Unit: cwtypes.StandardUnitPercent, Value: aws.Float64(cpuPct)},
		{MetricName: aws.String("MemoryMB"), Unit: cwtypes.StandardUnitMegabytes, Value: aws.Float64(memMB)},
		{MetricName: aws.String("ErrorsFetch"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["errors_fetch"].(int64)))},
		{MetricName: aws.String("ErrorsStore"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["errors_store"].(int64)))},
		{MetricName: aws.String("SnapshotsSaved"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["snapshots_saved"].(int64)))},
	}
	for name, stats := range exchangeData {
		dims := []cwtypes.Dimension{{Name: aws.String("Exchange"), Value: aws.String(name)}}
		data = append(data,
			cwtypes.MetricDatum{MetricName: aws.String("FetchOK"), Unit: cwtypes.StandardUnitCount, Dimensions: dims, Value: aws.Float64(float64(stats["ok"]))},
			cwtypes.MetricDatum{MetricName: aws.String("FetchFailed"), Unit: cwtypes.StandardUnitCount, Dimensions: dims, Value: aws.Float64(float64(stats["failed"]))},
		)
	}

	publishMetrics(ctx, data)
}
