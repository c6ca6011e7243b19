package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"cryptosnap/config"
	"cryptosnap/internal/fetcher"
	"cryptosnap/internal/metrics"
	"cryptosnap/internal/models"
	"cryptosnap/logger"
)

// ErrJobFatal marks a failure that ends a run before it can report data.
var ErrJobFatal = errors.New("job failed")

type CoinProvider interface {
	Fetch(ctx context.Context) ([]models.Coin, error)
}

type FundingFetcher interface {
	FetchGroups(ctx context.Context, groups fetcher.Groups, limit int) models.FetcherResult[models.NormalizedCandle]
}

type KlineFetcher interface {
	FetchGroups(ctx context.Context, groups fetcher.Groups, tf models.Timeframe, limit int) models.FetcherResult[models.Kline]
}

type OpenInterestFetcher interface {
	FetchGroups(ctx context.Context, groups fetcher.Groups, period models.Timeframe, limit int) models.FetcherResult[models.OIPoint]
}

type SnapshotStore interface {
	Save(ctx context.Context, tf models.Timeframe, snap models.MarketSnapshot) error
}

// Limits are the per-phase record counts.
type Limits struct {
	FundingRate  int // 4h slots of funding history
	OpenInterest int // 1h open interest points
	KlineDirect  int // 4h candles for the 4h job
	KlineBase    int // 4h candles the 8h job derives both outputs from
	SaveLimit    int // 4h candles kept when deriving 4h from the base
}

func LimitsFromConfig(cfg *config.Config) Limits {
	return Limits{
		FundingRate:  cfg.FR.H4Recent,
		OpenInterest: cfg.OI.H1Global,
		KlineDirect:  cfg.Kline.H4Direct,
		KlineBase:    cfg.Kline.H4Base,
		SaveLimit:    cfg.SaveLimit,
	}
}

// Runner executes the timeframe jobs against shared fetchers and store.
type Runner struct {
	coins  CoinProvider
	fr     FundingFetcher
	klines KlineFetcher
	oi     OpenInterestFetcher
	store  SnapshotStore
	limits Limits
	now    func() time.Time
	log    *logger.Log
}

func NewRunner(coins CoinProvider, fr FundingFetcher, klines KlineFetcher, oi OpenInterestFetcher, store SnapshotStore, limits Limits) *Runner {
	return &Runner{
		coins:  coins,
		fr:     fr,
		klines: klines,
		oi:     oi,
		store:  store,
		limits: limits,
		now:    time.Now,
		log:    logger.GetLogger(),
	}
}

// Run dispatches to the job producing tf.
func (r *Runner) Run(ctx context.Context, tf models.Timeframe) (models.JobResult, error) {
	switch tf {
	case models.TF4h:
		return r.Run4h(ctx), nil
	case models.TF8h:
		return r.Run8h(ctx), nil
	default:
		return models.JobResult{}, fmt.Errorf("no job for timeframe %s", tf)
	}
}

// run carries the state of one job execution.
type run struct {
	tf     models.Timeframe
	id     string
	start  time.Time
	log    *logger.Entry
	errors []string
}

func (r *Runner) newRun(tf models.Timeframe) *run {
	id := uuid.NewString()
	return &run{
		tf:     tf,
		id:     id,
		start:  r.now(),
		log:    r.log.WithRun(id, tf.String()),
		errors: []string{},
	}
}

// marketData is the joined output of the three fetch phases.
type marketData struct {
	oi     models.FetcherResult[models.OIPoint]
	fr     models.FetcherResult[models.NormalizedCandle]
	klines models.FetcherResult[models.Kline]
}

// fetchAll runs the open interest, funding rate and 4h kline phases
// concurrently and records their per-coin failures on the run.
func (r *Runner) fetchAll(ctx context.Context, jr *run, groups fetcher.Groups, klineLimit int) marketData {
	var (
		data marketData
		wg   sync.WaitGroup
	)
	wg.Add(3)
	go func() {
		defer wg.Done()
		data.oi = r.oi.FetchGroups(ctx, groups, models.TF1h, r.limits.OpenInterest)
	}()
	go func() {
		defer wg.Done()
		data.fr = r.fr.FetchGroups(ctx, groups, r.limits.FundingRate)
	}()
	go func() {
		defer wg.Done()
		data.klines = r.klines.FetchGroups(ctx, groups, models.TF4h, klineLimit)
	}()
	wg.Wait()

	if n := len(data.oi.Failed); n > 0 {
		jr.errors = append(jr.errors, fmt.Sprintf("OI fetch failed for %d coins", n))
	}
	if n := len(data.fr.Failed); n > 0 {
		jr.errors = append(jr.errors, fmt.Sprintf("FR fetch failed for %d coins", n))
	}
	if n := len(data.klines.Failed); n > 0 {
		jr.errors = append(jr.errors, fmt.Sprintf("4h Kline fetch failed for %d coins", n))
	}

	jr.log.WithFields(logger.Fields{
		"oi_successful":    len(data.oi.Successful),
		"oi_failed":        len(data.oi.Failed),
		"fr_successful":    len(data.fr.Successful),
		"fr_failed":        len(data.fr.Failed),
		"kline_successful": len(data.klines.Successful),
		"kline_failed":     len(data.klines.Failed),
		"kline_limit":      klineLimit,
	}).Info("fetch phases complete")
	return data
}

// loadCoins fetches and groups the coin list.
func (r *Runner) loadCoins(ctx context.Context, jr *run) ([]models.Coin, fetcher.Groups, []models.FailedCoin, error) {
	coins, err := r.coins.Fetch(ctx)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w: coin list: %v", ErrJobFatal, err)
	}
	groups, unsupported := fetcher.SplitByExchange(coins)
	if n := len(unsupported); n > 0 {
		jr.errors = append(jr.errors, fmt.Sprintf("%d coins have no supported exchange", n))
		jr.log.WithFields(logger.Fields{"coins": n}).Warn("coins without supported exchange skipped")
	}
	jr.log.WithFields(logger.Fields{
		"coins":   len(coins),
		"binance": len(groups[models.ExchangeBinance]),
		"bybit":   len(groups[models.ExchangeBybit]),
	}).Info("starting job")
	return coins, groups, unsupported, nil
}

// save wraps enriched records in a snapshot stamped for tf and persists it.
func (r *Runner) save(ctx context.Context, jr *run, tf models.Timeframe, data []models.CoinMarketData[models.EnrichedCandle]) error {
	now := r.now()
	snap := models.MarketSnapshot{
		Timeframe:   tf,
		OpenTime:    models.CurrentCandleTime(tf, now),
		UpdatedAt:   now.UnixMilli(),
		CoinsNumber: len(data),
		Data:        data,
	}
	logger.LogDataFlowEntry(jr.log, "enricher", "store", snap.CoinsNumber, tf.String())
	if err := r.store.Save(ctx, tf, snap); err != nil {
		return fmt.Errorf("save %s snapshot: %w", tf, err)
	}
	jr.log.WithFields(logger.Fields{"saved_timeframe": tf.String(), "coins_number": snap.CoinsNumber}).Info("snapshot saved")
	return nil
}

func (r *Runner) succeed(jr *run, total, successful, failed int) models.JobResult {
	res := models.JobResult{
		Success:         true,
		Timeframe:       jr.tf,
		TotalCoins:      total,
		SuccessfulCoins: successful,
		FailedCoins:     failed,
		Errors:          jr.errors,
		ExecutionTime:   r.now().Sub(jr.start).Milliseconds(),
	}
	r.report(jr, res)
	return res
}

func (r *Runner) fail(jr *run, err error) models.JobResult {
	res := models.JobResult{
		Success:       false,
		Timeframe:     jr.tf,
		Errors:        append([]string{err.Error()}, jr.errors...),
		ExecutionTime: r.now().Sub(jr.start).Milliseconds(),
	}
	jr.log.WithError(err).Error("job failed")
	r.report(jr, res)
	return res
}

func (r *Runner) report(jr *run, res models.JobResult) {
	elapsed := time.Duration(res.ExecutionTime) * time.Millisecond
	fields := logger.Fields{
		"run_id":           jr.id,
		"timeframe":        jr.tf.String(),
		"success":          res.Success,
		"total_coins":      res.TotalCoins,
		"successful_coins": res.SuccessfulCoins,
		"failed_coins":     res.FailedCoins,
		"errors":           len(res.Errors),
	}

	metrics.RecordJob(jr.tf.String(), res.Success, elapsed, res.SuccessfulCoins, res.FailedCoins)
	metrics.EmitMetric(r.log, "job", "job_execution_time_ms", res.ExecutionTime, "gauge", fields)
	logger.LogPerformanceEntry(jr.log, "job", "run_"+jr.tf.String(), elapsed, fields)

	if res.Success {
		jr.log.WithFields(fields).Info("job completed")
	}
}
