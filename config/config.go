package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigPath = "config/config.yml"

	defaultBatchSize     = 2
	defaultBatchDelay    = 600 * time.Millisecond
	defaultReaderTimeout = 15 * time.Second
)

type Config struct {
	Cryptosnap  CryptosnapConfig  `yaml:"cryptosnap"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Reader      ReaderConfig      `yaml:"reader"`
	Throttling  ThrottlingConfig  `yaml:"throttling"`
	FR          FRConfig          `yaml:"fr"`
	OI          OIConfig          `yaml:"oi"`
	Kline       KlineConfig       `yaml:"kline"`
	SaveLimit   int               `yaml:"save_limit"`
	Source      SourceConfig      `yaml:"source"`
	Coins       []CoinConfig      `yaml:"coins"`
	CoinsSource CoinsSourceConfig `yaml:"coins_source"`
	Storage     StorageConfig     `yaml:"storage"`
	Logging     LoggingConfig     `yaml:"logging"`
}

type CryptosnapConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

type MetricsConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ListenAddr string `yaml:"listen_addr"`
	UsedWeight bool   `yaml:"used_weight"`
	// Dashboard mounts the /api status routes on the metrics listener.
	Dashboard struct {
		Enabled bool `yaml:"enabled"`
		History int  `yaml:"history"`
	} `yaml:"dashboard"`
	// ReportInterval enables the periodic runtime report when positive.
	ReportInterval time.Duration `yaml:"report_interval"`
	CloudWatch     struct {
		Enabled   bool   `yaml:"enabled"`
		Region    string `yaml:"region"`
		Namespace string `yaml:"namespace"`
	} `yaml:"cloudwatch"`
}

type ReaderConfig struct {
	Timeout   time.Duration   `yaml:"timeout"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

type RateLimitConfig struct {
	RequestsPerSecond int `yaml:"requests_per_second"`
	BurstSize         int `yaml:"burst_size"`
}

// ThrottlingConfig drives the per-exchange task queues.
type ThrottlingConfig struct {
	BatchSize int                 `yaml:"batch_size"`
	Delay     ExchangeDelayConfig `yaml:"delay"`
}

type ExchangeDelayConfig struct {
	Binance time.Duration `yaml:"binance"`
	Bybit   time.Duration `yaml:"bybit"`
}

type FRConfig struct {
	H4Recent int `yaml:"h4_recent"`
}

type OIConfig struct {
	H1Global int `yaml:"h1_global"`
}

type KlineConfig struct {
	H4Direct int `yaml:"h4_direct"`
	H4Base   int `yaml:"h4_base"`
}

type ConnectionPoolConfig struct {
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	MaxConnsPerHost int           `yaml:"max_conns_per_host"`
	IdleConnTimeout time.Duration `yaml:"idle_conn_timeout"`
}

type ExchangeSourceConfig struct {
	URL            string               `yaml:"url"`
	LocalIP        string               `yaml:"local_ip"`
	ConnectionPool ConnectionPoolConfig `yaml:"connection_pool"`
}

type SourceConfig struct {
	Binance ExchangeSourceConfig `yaml:"binance"`
	Bybit   ExchangeSourceConfig `yaml:"bybit"`
}

type CoinConfig struct {
	Symbol    string   `yaml:"symbol"`
	Exchanges []string `yaml:"exchanges"`
	Category  int      `yaml:"category"`
}

// CoinsSourceConfig points at a remote JSON coin list. When URL is empty the
// static coins list is used.
type CoinsSourceConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

type StorageConfig struct {
	Backend string      `yaml:"backend"`
	Redis   RedisConfig `yaml:"redis"`
	S3      S3Config    `yaml:"s3"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

type S3Config struct {
	Bucket             string `yaml:"bucket"`
	Region             string `yaml:"region"`
	Endpoint           string `yaml:"endpoint"`
	PathStyle          bool   `yaml:"path_style"`
	Prefix             string `yaml:"prefix"`
	Parquet            bool   `yaml:"parquet"`
	ParquetCompression string `yaml:"parquet_compression"`
	AccessKeyID        string `yaml:"access_key_id"`
	SecretAccessKey    string `yaml:"secret_access_key"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	MaxAge int    `yaml:"max_age"`
	// MaxSize is the rotation size in MB when MaxAge is set.
	MaxSize int `yaml:"max_size"`
}

// LoadConfig reads the YAML file at path (or its APP_ENV specific sibling),
// applies defaults and environment overrides and validates the result.
func LoadConfig(path string) (*Config, error) {
	path = resolveConfigPath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Config{}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&config)
	applyEnv(&config)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Throttling.BatchSize <= 0 {
		cfg.Throttling.BatchSize = defaultBatchSize
	}
	if cfg.Throttling.Delay.Binance <= 0 {
		cfg.Throttling.Delay.Binance = defaultBatchDelay
	}
	if cfg.Throttling.Delay.Bybit <= 0 {
		cfg.Throttling.Delay.Bybit = defaultBatchDelay
	}
	if cfg.Reader.Timeout <= 0 {
		cfg.Reader.Timeout = defaultReaderTimeout
	}
	if cfg.FR.H4Recent <= 0 {
		cfg.FR.H4Recent = 400
	}
	if cfg.OI.H1Global <= 0 {
		cfg.OI.H1Global = 500
	}
	if cfg.Kline.H4Direct <= 0 {
		cfg.Kline.H4Direct = 400
	}
	if cfg.Kline.H4Base <= 0 {
		cfg.Kline.H4Base = 800
	}
	if cfg.SaveLimit <= 0 {
		cfg.SaveLimit = 400
	}
	if cfg.Source.Binance.URL == "" {
		cfg.Source.Binance.URL = "https://fapi.binance.com"
	}
	if cfg.Source.Bybit.URL == "" {
		cfg.Source.Bybit.URL = "https://api.bybit.com"
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "redis"
	}
	if cfg.Storage.Redis.Addr == "" && !CurrentEnvironment().ProductionLike() {
		cfg.Storage.Redis.Addr = "localhost:6379"
	}
	if cfg.Storage.Redis.Prefix == "" {
		cfg.Storage.Redis.Prefix = "market"
	}
	if cfg.Storage.S3.Prefix == "" {
		cfg.Storage.S3.Prefix = "snapshots"
	}
	if cfg.Metrics.ListenAddr == "" {
		cfg.Metrics.ListenAddr = "0.0.0.0:2112"
	}
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Storage.Redis.Addr = strings.TrimSpace(v)
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Storage.Redis.Password = v
	}
	if v := os.Getenv("THROTTLING_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			cfg.Throttling.BatchSize = n
		}
	}
	if v := os.Getenv("COINS_SOURCE_URL"); v != "" {
		cfg.CoinsSource.URL = strings.TrimSpace(v)
	}

	if cfg.Storage.Backend == "s3" {
		if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
			cfg.Storage.S3.AccessKeyID = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
			cfg.Storage.S3.SecretAccessKey = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_REGION"); v != "" {
			cfg.Storage.S3.Region = strings.TrimSpace(v)
		}
		if v := os.Getenv("S3_BUCKET"); v != "" {
			cfg.Storage.S3.Bucket = strings.TrimSpace(v)
		}
	}
	cfg.Storage.S3.Bucket = strings.TrimSpace(cfg.Storage.S3.Bucket)
}

func validateConfig(cfg *Config) error {
	if cfg.Cryptosnap.Name == "" {
		return fmt.Errorf("cryptosnap.name is required")
	}

	if cfg.Kline.H4Base < cfg.SaveLimit {
		return fmt.Errorf("kline.h4_base (%d) must be at least save_limit (%d)", cfg.Kline.H4Base, cfg.SaveLimit)
	}

	if len(cfg.Coins) == 0 && cfg.CoinsSource.URL == "" {
		return fmt.Errorf("either coins or coins_source.url must be configured")
	}
	for i, c := range cfg.Coins {
		if strings.TrimSpace(c.Symbol) == "" {
			return fmt.Errorf("coins[%d].symbol is required", i)
		}
	}

	switch cfg.Storage.Backend {
	case "redis":
		if cfg.Storage.Redis.Addr == "" {
			return fmt.Errorf("storage.redis.addr is required for the redis backend")
		}
	case "s3":
		if cfg.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket is required for the s3 backend")
		}
		if cfg.Storage.S3.Region == "" {
			return fmt.Errorf("storage.s3.region is required for the s3 backend")
		}
		if !isValidS3Bucket(cfg.Storage.S3.Bucket) {
			return fmt.Errorf("storage.s3.bucket '%s' is invalid", cfg.Storage.S3.Bucket)
		}
	default:
		return fmt.Errorf("storage.backend must be 'redis' or 's3', got '%s'", cfg.Storage.Backend)
	}

	return nil
}

var s3BucketRegexp = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$`)

func isValidS3Bucket(name string) bool {
	if len(name) < 3 || len(name) > 63 {
		return false
	}
	if strings.Contains(name, "..") || strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".") {
		return false
	}
	return s3BucketRegexp.MatchString(name)
}
