// Package config loads and validates harvester configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig        `mapstructure:"server"`
	Crawl     CrawlConfig         `mapstructure:"crawl"`
	Proxy     ProxyConfig         `mapstructure:"proxy"`
	Sources   SourcesConfig       `mapstructure:"source_catalog"`
	DB        DBConfig            `mapstructure:"db"`
	Redis     RedisConfig         `mapstructure:"redis"`
	Elastic   ElasticConfig       `mapstructure:"elastic"`
	Storage   StorageConfig       `mapstructure:"storage"`
	PubSub    PubSubConfig        `mapstructure:"pubsub"`
	Denylist  map[string][]string `mapstructure:"company_denylist"`
	Keywords  KeywordsConfig      `mapstructure:"keywords"`
	Schedule  ScheduleConfig      `mapstructure:"schedule"`
	Logging   LoggingConfig       `mapstructure:"logging"`
	Stale     StaleConfig         `mapstructure:"stale"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// CrawlConfig governs the extraction pipeline.
type CrawlConfig struct {
	UserAgent          string        `mapstructure:"user_agent"`
	MaxPagesPerSource  int           `mapstructure:"max_pages_per_source"`
	DetailWorkers      int           `mapstructure:"detail_workers"`
	PageErrorTolerance int           `mapstructure:"page_error_tolerance"`
	SortedLatest       bool          `mapstructure:"sorted_latest"`
	MinDelay           time.Duration `mapstructure:"min_delay"`
	MaxDelay           time.Duration `mapstructure:"max_delay"`
	BrowserParallel    int           `mapstructure:"browser_parallel"`
	FetchTimeout       time.Duration `mapstructure:"fetch_timeout"`
}

// ProxyConfig configures the outbound proxy and its reachability breaker.
type ProxyConfig struct {
	URL           string        `mapstructure:"url"`
	ProbeURL      string        `mapstructure:"probe_url"`
	CheckInterval time.Duration `mapstructure:"check_interval"`
}

// SourcesConfig points at the source-definition file.
type SourcesConfig struct {
	Path string `mapstructure:"path"`
}

// DBConfig controls access to the relational database.
type DBConfig struct {
	DSN string `mapstructure:"dsn"`
}

// RedisConfig configures the dedup cache connection.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// ElasticConfig configures the offer index.
type ElasticConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Index     string   `mapstructure:"index"`
}

// StorageConfig sets the snapshot-archive destination.
type StorageConfig struct {
	GCSBucket string `mapstructure:"gcs_bucket"`
}

// PubSubConfig holds metadata for the async messaging transport.
type PubSubConfig struct {
	ProjectID    string `mapstructure:"project_id"`
	TopicName    string `mapstructure:"topic_name"`
	Subscription string `mapstructure:"subscription"`
}

// KeywordsConfig carries the enrichment vocabulary.
type KeywordsConfig struct {
	Vocabulary []string `mapstructure:"vocabulary"`
}

// ScheduleConfig maps countries to cron expressions for full runs.
type ScheduleConfig struct {
	Countries   map[string]string `mapstructure:"countries"`
	OffersLimit int               `mapstructure:"offers_limit"`
	Keywords    []string          `mapstructure:"keywords"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	File        string `mapstructure:"file"`
}

// StaleConfig sets the threshold after which a running extraction is flagged.
type StaleConfig struct {
	After time.Duration `mapstructure:"after"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("HARVESTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("crawl.user_agent", "jobradar-harvester/0.1")
	v.SetDefault("crawl.max_pages_per_source", 20)
	v.SetDefault("crawl.detail_workers", 4)
	v.SetDefault("crawl.page_error_tolerance", 3)
	v.SetDefault("crawl.min_delay", "2s")
	v.SetDefault("crawl.max_delay", "8s")
	v.SetDefault("crawl.browser_parallel", 2)
	v.SetDefault("crawl.fetch_timeout", "45s")
	v.SetDefault("proxy.check_interval", "2m")
	v.SetDefault("source_catalog.path", "sources.yaml")
	v.SetDefault("redis.ttl", "720h")
	v.SetDefault("elastic.index", "offers")
	v.SetDefault("schedule.offers_limit", 1000)
	v.SetDefault("logging.development", true)
	v.SetDefault("stale.after", "1h")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Crawl.MaxPagesPerSource <= 0 {
		return fmt.Errorf("crawl.max_pages_per_source must be > 0")
	}
	if c.Crawl.DetailWorkers <= 0 {
		return fmt.Errorf("crawl.detail_workers must be > 0")
	}
	if c.Crawl.MinDelay > c.Crawl.MaxDelay {
		return fmt.Errorf("crawl.min_delay must not exceed crawl.max_delay")
	}
	if c.Sources.Path == "" {
		return fmt.Errorf("source_catalog.path is required")
	}
	if c.Proxy.URL != "" && c.Proxy.ProbeURL == "" {
		return fmt.Errorf("proxy.probe_url must be set when a proxy is configured")
	}
	if c.Stale.After <= 0 {
		return fmt.Errorf("stale.after must be > 0")
	}
	return nil
}
