package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

const minimalConfig = `cryptosnap:
  name: "TestApp"
  version: "1.0"
coins:
  - symbol: BTC
    exchanges: [binance, bybit]
    category: 1
storage:
  backend: redis
  redis:
    addr: "127.0.0.1:6379"
`

// writeTempConfig creates a configuration file for LoadConfig and returns its
// path.
func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "cfg-*.yml")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close temp file: %v", err)
	}
	return f.Name()
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("THROTTLING_BATCH_SIZE", "")

	cfg, err := LoadConfig(writeTempConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Cryptosnap.Name != "TestApp" {
		t.Errorf("unexpected name: %s", cfg.Cryptosnap.Name)
	}
	if len(cfg.Coins) != 1 || cfg.Coins[0].Symbol != "BTC" || len(cfg.Coins[0].Exchanges) != 2 {
		t.Errorf("unexpected coins: %+v", cfg.Coins)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("THROTTLING_BATCH_SIZE", "")

	cfg, err := LoadConfig(writeTempConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Throttling.BatchSize != 2 {
		t.Errorf("batch size = %d, want 2", cfg.Throttling.BatchSize)
	}
	if cfg.Throttling.Delay.Binance != 600*time.Millisecond || cfg.Throttling.Delay.Bybit != 600*time.Millisecond {
		t.Errorf("unexpected delays: %+v", cfg.Throttling.Delay)
	}
	if cfg.SaveLimit != 400 || cfg.Kline.H4Base != 800 {
		t.Errorf("unexpected limits: save=%d base=%d", cfg.SaveLimit, cfg.Kline.H4Base)
	}
	if cfg.Source.Bybit.URL != "https://api.bybit.com" {
		t.Errorf("unexpected bybit url: %s", cfg.Source.Bybit.URL)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("REDIS_ADDR", " redis:6380 ")
	t.Setenv("THROTTLING_BATCH_SIZE", "5")

	cfg, err := LoadConfig(writeTempConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Storage.Redis.Addr != "redis:6380" {
		t.Errorf("redis addr = %q", cfg.Storage.Redis.Addr)
	}
	if cfg.Throttling.BatchSize != 5 {
		t.Errorf("batch size = %d, want 5", cfg.Throttling.BatchSize)
	}
}

func TestLoadConfigValidation(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("THROTTLING_BATCH_SIZE", "")
	t.Setenv("S3_BUCKET", "")

	cases := map[string]struct {
		content string
		want    string
	}{
		"missing name": {
			content: strings.Replace(minimalConfig, `name: "TestApp"`, `name: ""`, 1),
			want:    "cryptosnap.name",
		},
		"no coins": {
			content: "cryptosnap:\n  name: x\n",
			want:    "coins",
		},
		"base below save limit": {
			content: minimalConfig + "save_limit: 500\nkline:\n  h4_base: 100\n",
			want:    "h4_base",
		},
		"unknown backend": {
			content: strings.Replace(minimalConfig, "backend: redis", "backend: disk", 1),
			want:    "storage.backend",
		},
		"s3 without bucket": {
			content: strings.Replace(minimalConfig, "backend: redis", "backend: s3", 1),
			want:    "storage.s3.bucket",
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadConfig(writeTempConfig(t, tc.content))
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestProductionRequiresRedisAddr(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	t.Setenv("REDIS_ADDR", "")

	content := strings.Replace(minimalConfig, `addr: "127.0.0.1:6379"`, `prefix: market`, 1)
	if _, err := LoadConfig(writeTempConfig(t, content)); err == nil {
		t.Fatalf("expected missing redis addr to fail in production")
	}
}

func TestResolveConfigPath(t *testing.T) {
	t.Setenv("APP_ENV", "stagging")
	if CurrentEnvironment() != Staging || !Staging.ProductionLike() {
		t.Fatalf("stagging should resolve to a production-like staging env, got %q", CurrentEnvironment())
	}
	if got := resolveConfigPath(""); got != "config/config.staging.yml" {
		t.Fatalf("unexpected path %q", got)
	}
	if got := resolveConfigPath("custom.yml"); got != "custom.yml" {
		t.Fatalf("explicit path should win, got %q", got)
	}

	t.Setenv("APP_ENV", "")
	if got := resolveConfigPath(""); got != DefaultConfigPath {
		t.Fatalf("development should read the default file, got %q", got)
	}
}

func TestIsValidS3Bucket(t *testing.T) {
	cases := []struct {
		name  string
		valid bool
	}{
		{"valid-bucket", true},
		{"Invalid", false},
		{"ab", false},
		{"my..bucket", false},
	}
	for _, c := range cases {
		if got := isValidS3Bucket(c.name); got != c.valid {
			t.Errorf("isValidS3Bucket(%q) = %v, want %v", c.name, got, c.valid)
		}
	}
}
