package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/therealutkarshpriyadarshi/thumbnailer/internal/timecode"
)

// MaxOffset is the largest extract.offset in seconds, the span of the
// longest timecode a table can hold
const MaxOffset = float64(timecode.MaxHours * 3600)

// Config holds all configuration for the application
type Config struct {
	Movies   MoviesConfig
	Extract  ExtractConfig
	Logging  LoggingConfig
	Metrics  MetricsConfig
	Cache    CacheConfig
	Storage  StorageConfig
	Database DatabaseConfig
	Tracing  TracingConfig
}

// MoviesConfig describes where source videos live on disk
type MoviesConfig struct {
	Root        string
	Shard       string // hundreds, leading
	ShardDigits int
	Extensions  []string
}

// ExtractConfig holds frame extraction settings
type ExtractConfig struct {
	FrameRate       int
	Frames          int
	Offset          float64
	OffsetDirection string // before, after
	OutputRoot      string
	DryRun          bool
	ImageAsDefault  bool
	FFmpegPath      string
	Timeout         time.Duration
	VerifyOutput    bool
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level  string
	Format string
	Output string
}

// MetricsConfig holds Prometheus Pushgateway settings
type MetricsConfig struct {
	PushgatewayURL string
	Job            string
	ListenPort     int // serve /metrics during the run when > 0
}

// CacheConfig holds Redis configuration for the source file cache
type CacheConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
	TTL      time.Duration
}

// StorageConfig holds object storage configuration
type StorageConfig struct {
	Enabled         bool
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	Region          string
	UseSSL          bool
	Prefix          string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
	MinConns int
}

// TracingConfig holds Jaeger configuration
type TracingConfig struct {
	Enabled     bool
	ServiceName string
	Endpoint    string
	SampleRate  float64 // 1 samples every run, below 1 is probabilistic
}

const (
	OffsetBefore = "before"
	OffsetAfter  = "after"
)

// Load reads configuration from file and environment variables.
// An empty path skips the file and uses defaults plus environment.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("THUMBNAILER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

// Validate checks values that would otherwise fail deep inside a run
func (c *Config) Validate() error {
	if c.Extract.FrameRate <= 0 {
		return fmt.Errorf("extract.frameRate must be positive, got %d", c.Extract.FrameRate)
	}
	if c.Extract.Frames < 1 {
		return fmt.Errorf("extract.frames must be at least 1, got %d", c.Extract.Frames)
	}
	if !(c.Extract.Offset >= 0) {
		return fmt.Errorf("extract.offset must not be negative, got %g", c.Extract.Offset)
	}
	if c.Extract.Offset > MaxOffset {
		return fmt.Errorf("extract.offset must be at most %g seconds, got %g", MaxOffset, c.Extract.Offset)
	}
	switch c.Extract.OffsetDirection {
	case OffsetBefore, OffsetAfter:
	default:
		return fmt.Errorf("unknown extract.offsetDirection %q", c.Extract.OffsetDirection)
	}
	if c.Extract.OutputRoot == "" {
		return fmt.Errorf("extract.outputRoot must not be empty")
	}
	if c.Movies.Root == "" {
		return fmt.Errorf("movies.root must not be empty")
	}
	if len(c.Movies.Extensions) == 0 {
		return fmt.Errorf("movies.extensions must list at least one extension")
	}
	return nil
}

// SignedOffset returns the offset in seconds with the configured direction applied
func (e ExtractConfig) SignedOffset() float64 {
	if e.OffsetDirection == OffsetAfter {
		return e.Offset
	}
	return -e.Offset
}

func setDefaults(v *viper.Viper) {
	// Movies defaults
	v.SetDefault("movies.root", "/movies")
	v.SetDefault("movies.shard", "hundreds")
	v.SetDefault("movies.shardDigits", 1)
	v.SetDefault("movies.extensions", []string{"mp4"})

	// Extract defaults
	v.SetDefault("extract.frameRate", 24)
	v.SetDefault("extract.frames", 1)
	v.SetDefault("extract.offset", 0.0)
	v.SetDefault("extract.offsetDirection", OffsetBefore)
	v.SetDefault("extract.outputRoot", "./new_thumbnails")
	v.SetDefault("extract.dryRun", false)
	v.SetDefault("extract.imageAsDefault", true)
	v.SetDefault("extract.ffmpegPath", "ffmpeg")
	v.SetDefault("extract.timeout", "0s")
	v.SetDefault("extract.verifyOutput", false)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output", "stdout")

	// Metrics defaults
	v.SetDefault("metrics.pushgatewayURL", "")
	v.SetDefault("metrics.job", "thumbnailer")
	v.SetDefault("metrics.listenPort", 0)

	// Cache defaults
	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.host", "localhost")
	v.SetDefault("cache.port", 6379)
	v.SetDefault("cache.password", "")
	v.SetDefault("cache.db", 0)
	v.SetDefault("cache.ttl", "24h")

	// Storage defaults
	v.SetDefault("storage.enabled", false)
	v.SetDefault("storage.endpoint", "localhost:9000")
	v.SetDefault("storage.accessKeyID", "minioadmin")
	v.SetDefault("storage.secretAccessKey", "minioadmin")
	v.SetDefault("storage.bucketName", "thumbnails")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.useSSL", false)
	v.SetDefault("storage.prefix", "")

	// Database defaults
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "thumbnailer")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.maxConns", 4)
	v.SetDefault("database.minConns", 1)

	// Tracing defaults
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.serviceName", "thumbnailer")
	v.SetDefault("tracing.endpoint", "http://localhost:14268/api/traces")
	v.SetDefault("tracing.sampleRate", 1.0)
}
