// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server  ServerConfig            `mapstructure:"server"`
	HTTP    HTTPConfig              `mapstructure:"http"`
	Ingest  IngestConfig            `mapstructure:"ingest"`
	Store   StoreConfig             `mapstructure:"store"`
	Logging LoggingConfig           `mapstructure:"logging"`
	Sources map[string]SourceConfig `mapstructure:"sources"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// HTTPConfig configures the outbound HTTP client shared by all sources.
type HTTPConfig struct {
	TimeoutSeconds        int    `mapstructure:"timeout_seconds"`
	ConnectTimeoutSeconds int    `mapstructure:"connect_timeout_seconds"`
	UserAgent             string `mapstructure:"user_agent"`
}

// IngestConfig governs the ingestion cycle.
type IngestConfig struct {
	Timezone   string `mapstructure:"timezone"`
	Utility    string `mapstructure:"utility"`
	SampleSize int    `mapstructure:"sample_size"`
}

// StoreConfig sets the on-disk layout for the schedule store.
type StoreConfig struct {
	Dir string `mapstructure:"dir"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// SourceConfig describes one upstream source adapter.
type SourceConfig struct {
	Enabled    bool     `mapstructure:"enabled"`
	URL        string   `mapstructure:"url"`
	Discover   []string `mapstructure:"discover"`
	Fallbacks  []string `mapstructure:"fallbacks"`
	Note       string   `mapstructure:"note"`
	Confidence float64  `mapstructure:"confidence"`
}

// SourceOrder is the fixed iteration order for configured sources; map
// iteration is randomized in Go and the run report should be stable.
var SourceOrder = []string{"official", "ccms", "facebook", "pdf", "manual"}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SHUTDOWN")
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
	v.SetDefault("http.timeout_seconds", 20)
	v.SetDefault("http.connect_timeout_seconds", 10)
	v.SetDefault("http.user_agent", "shutdown-crawler/1.0 (+schedule)")
	v.SetDefault("ingest.timezone", "Asia/Karachi")
	v.SetDefault("ingest.utility", "LESCO")
	v.SetDefault("ingest.sample_size", 5)
	v.SetDefault("store.dir", "data")
	v.SetDefault("logging.development", true)

	v.SetDefault("sources.official.enabled", true)
	v.SetDefault("sources.official.url", "https://www.lesco.gov.pk/shutdownschedule")
	v.SetDefault("sources.official.confidence", 0.9)
	v.SetDefault("sources.ccms.enabled", true)
	v.SetDefault("sources.ccms.url", "https://ccms.pitc.com.pk/FeederDetails")
	v.SetDefault("sources.ccms.note", "PITC CCMS official schedule (JSON/HTML)")
	v.SetDefault("sources.ccms.confidence", 0.8)
	v.SetDefault("sources.facebook.enabled", false)
	v.SetDefault("sources.facebook.url", "https://www.facebook.com/PRLESCO/")
	v.SetDefault("sources.facebook.confidence", 0.5)
	v.SetDefault("sources.pdf.enabled", true)
	v.SetDefault("sources.pdf.url", "")
	v.SetDefault("sources.pdf.discover", []string{
		"https://www.lesco.gov.pk/shutdownschedule",
		"https://www.lesco.gov.pk/LoadSheddingShutdownSchedule",
		"https://www.lesco.gov.pk/LoadManagement",
	})
	v.SetDefault("sources.pdf.note", "Automatically discovers the latest bulletin when URL is empty")
	v.SetDefault("sources.pdf.confidence", 0.75)
	v.SetDefault("sources.manual.enabled", true)
	v.SetDefault("sources.manual.confidence", 0.8)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.Ingest.Timezone == "" {
		return fmt.Errorf("ingest.timezone must be set")
	}
	if c.Store.Dir == "" {
		return fmt.Errorf("store.dir must be set")
	}
	for name, src := range c.Sources {
		if src.Confidence < 0 || src.Confidence > 1 {
			return fmt.Errorf("sources.%s.confidence must be within [0,1]", name)
		}
	}
	return nil
}

// RequestTimeout converts the HTTP timeout config into a duration.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// ConnectTimeout converts the connect timeout config into a duration.
func (c Config) ConnectTimeout() time.Duration {
	return time.Duration(c.HTTP.ConnectTimeoutSeconds) * time.Second
}
