package app

import (
	"testing"
	"time"
)

func withEnv(t *testing.T, env map[string]string) {
	t.Helper()
	prev := lookupEnv
	lookupEnv = func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
	t.Cleanup(func() { lookupEnv = prev })
}

func TestEnvHelpers(t *testing.T) {
	withEnv(t, map[string]string{
		"S":        "  value ",
		"B":        "true",
		"B_BAD":    "maybe",
		"I":        "42",
		"I_NEG":    "-3",
		"I32_ZERO": "0",
		"D":        "90s",
		"D_BAD":    "soon",
		"BLANK":    "   ",
	})

	if got := EnvString("S", "def"); got != "value" {
		t.Fatalf("EnvString=%q", got)
	}
	if got := EnvString("BLANK", "def"); got != "def" {
		t.Fatalf("EnvString(blank)=%q", got)
	}
	if !EnvBool("B", false) || EnvBool("B_BAD", false) || !EnvBool("MISSING", true) {
		t.Fatalf("EnvBool mismatch")
	}
	if EnvInt("I", 1) != 42 || EnvInt("I_NEG", 7) != 7 {
		t.Fatalf("EnvInt mismatch")
	}
	if EnvInt32("I32_ZERO", 5) != 0 || EnvInt32("I_NEG", 5) != 5 {
		t.Fatalf("EnvInt32 mismatch")
	}
	if EnvDuration("D", time.Second) != 90*time.Second || EnvDuration("D_BAD", time.Second) != time.Second {
		t.Fatalf("EnvDuration mismatch")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	withEnv(t, map[string]string{})

	cfg := LoadConfig()
	if cfg.HTTPAddr != "0.0.0.0:8080" {
		t.Fatalf("HTTPAddr=%q", cfg.HTTPAddr)
	}
	if cfg.LogFormat != "json" || cfg.LogLevel != "info" {
		t.Fatalf("log defaults: %q %q", cfg.LogFormat, cfg.LogLevel)
	}
	if cfg.RedisCacheTTL != 5*time.Minute {
		t.Fatalf("RedisCacheTTL=%v", cfg.RedisCacheTTL)
	}
	if cfg.NATSSubjectPrefix != "kwlnk" {
		t.Fatalf("NATSSubjectPrefix=%q", cfg.NATSSubjectPrefix)
	}
	if cfg.DBMaxConns != 10 || cfg.AutoMigrate {
		t.Fatalf("db defaults: %+v", cfg)
	}
}

func TestLoadConfig_Overrides(t *testing.T) {
	withEnv(t, map[string]string{
		"KWLNK_HTTP_ADDR":       "127.0.0.1:9000",
		"KWLNK_DATABASE_URL":    "postgres://localhost/kwlnk",
		"KWLNK_DB_AUTO_MIGRATE": "1",
		"KWLNK_REDIS_CACHE_TTL": "30s",
		"KWLNK_LOG_FORMAT":      "pretty",
	})

	cfg := LoadConfig()
	if cfg.HTTPAddr != "127.0.0.1:9000" || cfg.DatabaseURL == "" || !cfg.AutoMigrate {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.RedisCacheTTL != 30*time.Second || cfg.LogFormat != "pretty" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
}
