package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"cryptosnap/config"
	"cryptosnap/internal/coins"
	"cryptosnap/internal/dashboard"
	"cryptosnap/internal/exchange"
	"cryptosnap/internal/fetcher"
	"cryptosnap/internal/jobs"
	"cryptosnap/internal/metrics"
	"cryptosnap/internal/models"
	"cryptosnap/internal/queue"
	"cryptosnap/internal/reader/binance"
	"cryptosnap/internal/reader/bybit"
	"cryptosnap/internal/store"
	"cryptosnap/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", config.DefaultConfigPath, "Path to configuration file")
	jobName := flag.String("job", "4h", "Job to run: 4h or 8h")
	flag.Parse()

	tf, err := models.ParseTimeframe(*jobName)
	if err != nil || tf == models.TF1h {
		log.WithFields(logger.Fields{"job": *jobName}).Error("unknown job, expected 4h or 8h")
		return 2
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		return 1
	}

	if err := log.Configure(logger.Options{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		MaxAgeDays: cfg.Logging.MaxAge,
		MaxSizeMB:  cfg.Logging.MaxSize,
	}); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		return 1
	}

	log.WithFields(logger.Fields{
		"service": cfg.Cryptosnap.Name,
		"version": cfg.Cryptosnap.Version,
		"job":     tf.String(),
		"env":     config.CurrentEnvironment(),
	}).Info("starting cryptosnap")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		select {
		case sig := <-sigChan:
			log.WithFields(logger.Fields{"signal": sig.String()}).Warn("shutdown signal received, cancelling job")
			cancel()
		case <-ctx.Done():
		}
	}()

	if cfg.Metrics.CloudWatch.Enabled {
		logger.InitCloudWatch(ctx, cfg.Metrics.CloudWatch.Region, cfg.Metrics.CloudWatch.Namespace, cfg.Cryptosnap.Name)
	}
	if strings.ToLower(cfg.Logging.Level) == "report" || cfg.Metrics.ReportInterval > 0 {
		interval := cfg.Metrics.ReportInterval
		if interval <= 0 {
			interval = 30 * time.Second
		}
		logger.StartReport(ctx, log, interval)
	}

	snapshots, err := store.New(ctx, cfg)
	if err != nil {
		log.WithError(err).Error("failed to create snapshot store")
		return 1
	}
	defer snapshots.Close()

	metrics.Configure(cfg.Metrics)
	metrics.Init()
	if cfg.Metrics.Enabled {
		var routes map[string]http.Handler
		if cfg.Metrics.Dashboard.Enabled {
			dash := dashboard.NewServer(log, snapshots, cfg.Metrics.Dashboard.History)
			defer dash.Close()
			routes = dash.Routes()
		}
		metrics.Serve(ctx, cfg.Metrics.ListenAddr, routes)
	}

	venues := fetcher.NewVenues(
		fetcher.Venue{
			Source: binance.NewReader(newClient(cfg, models.ExchangeBinance, cfg.Source.Binance), cfg.Source.Binance.URL),
			Queue:  newQueue(cfg, models.ExchangeBinance, cfg.Throttling.Delay.Binance),
		},
		fetcher.Venue{
			Source: bybit.NewReader(newClient(cfg, models.ExchangeBybit, cfg.Source.Bybit), cfg.Source.Bybit.URL),
			Queue:  newQueue(cfg, models.ExchangeBybit, cfg.Throttling.Delay.Bybit),
		},
	)

	runner := jobs.NewRunner(
		coins.New(cfg),
		fetcher.NewFundingRate(venues),
		fetcher.NewKline(venues),
		fetcher.NewOpenInterest(venues),
		snapshots,
		jobs.LimitsFromConfig(cfg),
	)

	res, err := runner.Run(ctx, tf)
	if err != nil {
		log.WithError(err).Error("job dispatch failed")
		return 1
	}

	entry := log.WithComponent("main").WithFields(logger.Fields{
		"success":          res.Success,
		"timeframe":        res.Timeframe.String(),
		"total_coins":      res.TotalCoins,
		"successful_coins": res.SuccessfulCoins,
		"failed_coins":     res.FailedCoins,
		"errors":           res.Errors,
		"execution_ms":     res.ExecutionTime,
	})
	if !res.Success {
		entry.Error("job finished with failure")
		return 1
	}
	entry.Info("job finished")
	return 0
}

func newClient(cfg *config.Config, name string, src config.ExchangeSourceConfig) *exchange.Client {
	return exchange.NewClient(
		name,
		exchange.NewHTTPClient(name, src, cfg.Reader.Timeout),
		exchange.NewLimiter(cfg.Reader.RateLimit),
	)
}

func newQueue(cfg *config.Config, name string, delay time.Duration) *queue.Queue {
	return queue.New(name, cfg.Throttling.BatchSize, delay,
		queue.WithLogger(logger.GetLogger()),
		queue.WithObserver(metrics.QueueObserver{}),
	)
}
