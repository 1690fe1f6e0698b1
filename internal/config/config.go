package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv      = "WHEREAMI_CONFIG"
	mapboxTokenEnv     = "MAPBOX_TOKEN"
	databaseDSNEnv     = "DATABASE_DSN"
	sentryDSNEnv       = "SENTRY_DSN"
	environmentEnv     = "ENV"
	httpAddrEnv        = "HTTP_ADDR"
	logLevelEnv        = "LOG_LEVEL"
	narrationBucketEnv = "NARRATION_BUCKET"
	metricsBackendEnv  = "METRICS_BACKEND"
)

// Config holds high-level settings required across the application.
type Config struct {
	Environment string          `yaml:"environment"`
	Server      ServerConfig    `yaml:"server"`
	Logging     LoggingConfig   `yaml:"logging"`
	Mapbox      MapboxConfig    `yaml:"mapbox"`
	Wikipedia   WikiConfig      `yaml:"wikipedia"`
	Wikidata    WikiConfig      `yaml:"wikidata"`
	Images      ImagesConfig    `yaml:"images"`
	Polly       AWSConfig       `yaml:"polly"`
	Narration   NarrationConfig `yaml:"narration"`
	Metrics     MetricsConfig   `yaml:"metrics"`
	RateLimit   RateLimitConfig `yaml:"rateLimit"`
	Sentry      SentryConfig    `yaml:"sentry"`
	Speech      SpeechConfig    `yaml:"speech"`
	Transform   TransformConfig `yaml:"transform"`
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// LoggingConfig sets the slog level and handler format ("text" or "json").
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MapboxConfig wires the reverse geocoder.
type MapboxConfig struct {
	BaseURL string        `yaml:"baseUrl"`
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"timeout"`
}

// WikiConfig points at a MediaWiki-style API.
type WikiConfig struct {
	APIURL  string        `yaml:"apiUrl"`
	Timeout time.Duration `yaml:"timeout"`
}

// ImagesConfig tunes thumbnail resolution.
type ImagesConfig struct {
	ThumbnailSize int `yaml:"thumbnailSize"`
	Workers       int `yaml:"workers"`
}

// AWSConfig holds the region and an optional endpoint override for one AWS service.
type AWSConfig struct {
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"`
}

// NarrationConfig describes the S3 bucket that caches narrations.
type NarrationConfig struct {
	AWSConfig   `yaml:",inline"`
	Bucket      string        `yaml:"bucket"`
	PresignTTL  time.Duration `yaml:"presignTtl"`
	ContentType string        `yaml:"contentType"`
}

// MetricsConfig selects the metrics backend.
type MetricsConfig struct {
	Backend string    `yaml:"backend"`
	DSN     string    `yaml:"dsn"`
	Table   string    `yaml:"table"`
	Dynamo  AWSConfig `yaml:"dynamo"`
}

// RateLimitConfig enables the per-client limiter.
type RateLimitConfig struct {
	Enabled bool          `yaml:"enabled"`
	Table   string        `yaml:"table"`
	Window  time.Duration `yaml:"window"`
	Expiry  time.Duration `yaml:"expiry"`
	Dynamo  AWSConfig     `yaml:"dynamo"`
}

// SentryConfig enables error reporting when DSN is set.
type SentryConfig struct {
	DSN              string  `yaml:"dsn"`
	TracesSampleRate float64 `yaml:"tracesSampleRate"`
}

// SpeechConfig sets the synthesis defaults.
type SpeechConfig struct {
	DefaultVoice string `yaml:"defaultVoice"`
	Engine       string `yaml:"engine"`
	OutputFormat string `yaml:"outputFormat"`
}

// TransformConfig overrides the article budget.
type TransformConfig struct {
	MaxChars            int      `yaml:"maxChars"`
	SentencesPerSection int      `yaml:"sentencesPerSection"`
	UnwantedHeadings    []string `yaml:"unwantedHeadings"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()

	if cfg.Metrics.Table == "" {
		cfg.Metrics.Table = "youareheremetrics-" + cfg.Environment
	}
	if cfg.RateLimit.Table == "" {
		cfg.RateLimit.Table = "youarehereratelimiting-" + cfg.Environment
	}

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(environmentEnv); v != "" {
		c.Environment = v
	}

	if v := os.Getenv(httpAddrEnv); v != "" {
		c.Server.Addr = v
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(mapboxTokenEnv); v != "" {
		c.Mapbox.Token = v
	}

	if v := os.Getenv(narrationBucketEnv); v != "" {
		c.Narration.Bucket = v
	}

	if v := os.Getenv(metricsBackendEnv); v != "" {
		c.Metrics.Backend = v
	}

	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Metrics.DSN = v
	}

	if v := os.Getenv(sentryDSNEnv); v != "" {
		c.Sentry.DSN = v
	}
}

func mergeConfig(base, override Config) Config {
	if override.Environment != "" {
		base.Environment = override.Environment
	}

	if override.Server.Addr != "" {
		base.Server.Addr = override.Server.Addr
	}
	if override.Server.ShutdownTimeout > 0 {
		base.Server.ShutdownTimeout = override.Server.ShutdownTimeout
	}

	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}

	if override.Mapbox.BaseURL != "" {
		base.Mapbox.BaseURL = override.Mapbox.BaseURL
	}
	if override.Mapbox.Token != "" {
		base.Mapbox.Token = override.Mapbox.Token
	}
	if override.Mapbox.Timeout > 0 {
		base.Mapbox.Timeout = override.Mapbox.Timeout
	}

	base.Wikipedia = mergeWiki(base.Wikipedia, override.Wikipedia)
	base.Wikidata = mergeWiki(base.Wikidata, override.Wikidata)

	if override.Images.ThumbnailSize > 0 {
		base.Images.ThumbnailSize = override.Images.ThumbnailSize
	}
	if override.Images.Workers > 0 {
		base.Images.Workers = override.Images.Workers
	}

	base.Polly = mergeAWS(base.Polly, override.Polly)

	base.Narration.AWSConfig = mergeAWS(base.Narration.AWSConfig, override.Narration.AWSConfig)
	if override.Narration.Bucket != "" {
		base.Narration.Bucket = override.Narration.Bucket
	}
	if override.Narration.PresignTTL > 0 {
		base.Narration.PresignTTL = override.Narration.PresignTTL
	}
	if override.Narration.ContentType != "" {
		base.Narration.ContentType = override.Narration.ContentType
	}

	if override.Metrics.Backend != "" {
		base.Metrics.Backend = override.Metrics.Backend
	}
	if override.Metrics.DSN != "" {
		base.Metrics.DSN = override.Metrics.DSN
	}
	if override.Metrics.Table != "" {
		base.Metrics.Table = override.Metrics.Table
	}
	base.Metrics.Dynamo = mergeAWS(base.Metrics.Dynamo, override.Metrics.Dynamo)

	if override.RateLimit.Enabled {
		base.RateLimit.Enabled = true
	}
	if override.RateLimit.Table != "" {
		base.RateLimit.Table = override.RateLimit.Table
	}
	if override.RateLimit.Window > 0 {
		base.RateLimit.Window = override.RateLimit.Window
	}
	if override.RateLimit.Expiry > 0 {
		base.RateLimit.Expiry = override.RateLimit.Expiry
	}
	base.RateLimit.Dynamo = mergeAWS(base.RateLimit.Dynamo, override.RateLimit.Dynamo)

	if override.Sentry.DSN != "" {
		base.Sentry.DSN = override.Sentry.DSN
	}
	if override.Sentry.TracesSampleRate > 0 {
		base.Sentry.TracesSampleRate = override.Sentry.TracesSampleRate
	}

	if override.Speech.DefaultVoice != "" {
		base.Speech.DefaultVoice = override.Speech.DefaultVoice
	}
	if override.Speech.Engine != "" {
		base.Speech.Engine = override.Speech.Engine
	}
	if override.Speech.OutputFormat != "" {
		base.Speech.OutputFormat = override.Speech.OutputFormat
	}

	if override.Transform.MaxChars > 0 {
		base.Transform.MaxChars = override.Transform.MaxChars
	}
	if override.Transform.SentencesPerSection > 0 {
		base.Transform.SentencesPerSection = override.Transform.SentencesPerSection
	}
	if len(override.Transform.UnwantedHeadings) > 0 {
		base.Transform.UnwantedHeadings = override.Transform.UnwantedHeadings
	}

	return base
}

func mergeWiki(base, override WikiConfig) WikiConfig {
	if override.APIURL != "" {
		base.APIURL = override.APIURL
	}
	if override.Timeout > 0 {
		base.Timeout = override.Timeout
	}
	return base
}

func mergeAWS(base, override AWSConfig) AWSConfig {
	if override.Region != "" {
		base.Region = override.Region
	}
	if override.Endpoint != "" {
		base.Endpoint = override.Endpoint
	}
	return base
}

// Transform values left at zero fall back to the transformer's own defaults.
func defaultConfig() Config {
	return Config{
		Environment: "dev",
		Server:      ServerConfig{Addr: ":8080", ShutdownTimeout: 10 * time.Second},
		Logging:     LoggingConfig{Level: "info", Format: "text"},
		Mapbox: MapboxConfig{
			BaseURL: "https://api.mapbox.com",
			Timeout: 10 * time.Second,
		},
		Wikipedia: WikiConfig{APIURL: "https://en.wikipedia.org/w/api.php", Timeout: 10 * time.Second},
		Wikidata:  WikiConfig{APIURL: "https://www.wikidata.org/w/api.php", Timeout: 10 * time.Second},
		Images:    ImagesConfig{ThumbnailSize: 400, Workers: 16},
		Polly:     AWSConfig{Region: "us-east-1"},
		Narration: NarrationConfig{
			AWSConfig:   AWSConfig{Region: "ap-southeast-2"},
			Bucket:      "whereami-speech",
			PresignTTL:  15 * time.Minute,
			ContentType: "audio/mpeg",
		},
		Metrics: MetricsConfig{
			Backend: "log",
			Dynamo:  AWSConfig{Region: "ap-southeast-2"},
		},
		RateLimit: RateLimitConfig{
			Window: 500 * time.Millisecond,
			Expiry: time.Minute,
			Dynamo: AWSConfig{Region: "ap-southeast-2"},
		},
		Sentry: SentryConfig{TracesSampleRate: 0.2},
		Speech: SpeechConfig{DefaultVoice: "Brian", Engine: "neural", OutputFormat: "mp3"},
	}
}
