package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
server:
  port: 9090
crawl:
  user_agent: harvester-test
  max_pages_per_source: 10
  detail_workers: 8
  page_error_tolerance: 5
  min_delay: 1s
  max_delay: 3s
proxy:
  url: http://proxy.internal:3128
  probe_url: https://example.com/health
  check_interval: 90s
source_catalog:
  path: /etc/harvester/sources.yaml
db:
  dsn: postgres://harvester@localhost/harvester
redis:
  addr: localhost:6379
elastic:
  addresses: ["http://localhost:9200"]
  index: offers-test
company_denylist:
  pl:
    - "spamcorp"
stale:
  after: 30m
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Fatalf("server.port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Crawl.MaxPagesPerSource != 10 {
		t.Fatalf("crawl.max_pages_per_source = %d, want 10", cfg.Crawl.MaxPagesPerSource)
	}
	if cfg.Crawl.MinDelay != time.Second {
		t.Fatalf("crawl.min_delay = %v, want 1s", cfg.Crawl.MinDelay)
	}
	if cfg.Proxy.CheckInterval != 90*time.Second {
		t.Fatalf("proxy.check_interval = %v, want 90s", cfg.Proxy.CheckInterval)
	}
	if got := cfg.Denylist["pl"]; len(got) != 1 || got[0] != "spamcorp" {
		t.Fatalf("company_denylist.pl = %v", got)
	}
	if cfg.Stale.After != 30*time.Minute {
		t.Fatalf("stale.after = %v, want 30m", cfg.Stale.After)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Fatalf("server.port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Crawl.DetailWorkers != 4 {
		t.Fatalf("crawl.detail_workers = %d, want 4", cfg.Crawl.DetailWorkers)
	}
	if cfg.Proxy.CheckInterval != 2*time.Minute {
		t.Fatalf("proxy.check_interval = %v, want 2m", cfg.Proxy.CheckInterval)
	}
	if !cfg.Logging.Development {
		t.Fatal("logging.development should default to true")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	cfg.Crawl.MinDelay = 10 * time.Second
	cfg.Crawl.MaxDelay = time.Second
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "min_delay") {
		t.Fatalf("Validate() error = %v, want min_delay complaint", err)
	}

	cfg, _ = Load("")
	cfg.Proxy.URL = "http://proxy.internal:3128"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "probe_url") {
		t.Fatalf("Validate() error = %v, want probe_url complaint", err)
	}
}
