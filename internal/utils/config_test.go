package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "cfg.yaml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestLoadConfigFrom_Valid(t *testing.T) {
	p := writeConfig(t, `server:
  port: ":9000"
rate_limiter:
  interval: 1h
  user_limit: 20
cache:
  report_cache_ttl: 1h
compare:
  timeout_secs: 10
  worker_pool_size: 2
`)
	cfg := LoadConfigFrom(p)
	if cfg.Server.Port != ":9000" {
		t.Fatalf("unexpected port: %q", cfg.Server.Port)
	}
	if cfg.RateLimiter.Interval != time.Hour {
		t.Fatalf("unexpected interval: %v", cfg.RateLimiter.Interval)
	}
	if cfg.RateLimiter.UserLimit != 20 {
		t.Fatalf("unexpected user_limit: %d", cfg.RateLimiter.UserLimit)
	}
	if cfg.Cache.ReportCacheTTL != time.Hour {
		t.Fatalf("unexpected report cache ttl: %v", cfg.Cache.ReportCacheTTL)
	}
	if cfg.Compare.WorkerPoolSize != 2 {
		t.Fatalf("unexpected worker pool size: %d", cfg.Compare.WorkerPoolSize)
	}
}

func TestLoadConfigFrom_MissingFileUsesDefaults(t *testing.T) {
	cfg := LoadConfigFrom(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if cfg.Limits.MaxPDFBytes <= 0 {
		t.Fatalf("expected default limits, got %+v", cfg.Limits)
	}
	if cfg.LLM.Model != "gpt-4o-mini" {
		t.Fatalf("expected default llm model, got %q", cfg.LLM.Model)
	}
	if cfg.Compare.TopTerms != 15 {
		t.Fatalf("expected default top_terms, got %d", cfg.Compare.TopTerms)
	}
}

func TestLoadConfigFrom_PanicsOnInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		yml  string
	}{
		{name: "zero rate interval", yml: "rate_limiter:\n  interval: 0s\n"},
		{name: "bad rate interval", yml: "rate_limiter:\n  interval: nope\n"},
		{name: "negative user limit", yml: "rate_limiter:\n  user_limit: -1\n"},
		{name: "zero pdf limit", yml: "limits:\n  max_pdf_bytes: 0\n  max_docx_bytes: 1\n  max_report_bytes: 1\n"},
		{name: "zero timeout", yml: "compare:\n  timeout_secs: 0\n"},
		{name: "not yaml", yml: "{{{"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := writeConfig(t, tc.yml)
			defer func() {
				if recover() == nil {
					t.Fatalf("expected panic")
				}
			}()
			_ = LoadConfigFrom(p)
		})
	}
}

func TestLoadConfig_UsesConfigPathEnv(t *testing.T) {
	p := writeConfig(t, `server:
  port: ":7777"
`)
	t.Setenv("CONFIG_PATH", p)
	cfg := LoadConfig()
	if cfg.Server.Port != ":7777" {
		t.Fatalf("expected CONFIG_PATH to be used")
	}
}
