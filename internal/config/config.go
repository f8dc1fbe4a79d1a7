package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the autopilot worker and tools.
type Config struct {
	Database     DatabaseConfig     `yaml:"database"`
	Redis        RedisConfig        `yaml:"redis"`
	Autopilot    AutopilotConfig    `yaml:"autopilot"`
	CampaignStop CampaignStopConfig `yaml:"campaign_stop"`
	Sources      SourcesConfig      `yaml:"sources"`
	Archive      ArchiveConfig      `yaml:"archive"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	URL          string `yaml:"url"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// RedisConfig holds the Redis connection used for campaign-stop state and locking.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// AutopilotConfig controls the nightly budget job.
type AutopilotConfig struct {
	ChunkSize       int  `yaml:"chunk_size"`        // Max ad groups per chunk
	RunHourUTC      int  `yaml:"run_hour_utc"`      // Hour of day the job starts
	MaxChunkRetries int  `yaml:"max_chunk_retries"` // Retries for a chunk whose I/O failed
	LockTTLMinutes  int  `yaml:"lock_ttl_minutes"`
	WriteResults    bool `yaml:"write_results"` // false = dry run, compute and log only
}

// LockTTL returns the configured lock TTL as a duration
func (c AutopilotConfig) LockTTL() time.Duration {
	return time.Duration(c.LockTTLMinutes) * time.Minute
}

// CampaignStopConfig holds real-time campaign stop settings
type CampaignStopConfig struct {
	Enabled   bool   `yaml:"enabled"`
	KeyPrefix string `yaml:"key_prefix"`
}

// SourcesConfig names the sources that keep their own bucket when RTB
// sources are grouped.
type SourcesConfig struct {
	OutbrainID int64 `yaml:"outbrain_id"`
	YahooID    int64 `yaml:"yahoo_id"`
}

// ArchiveConfig holds S3 settings for archiving nightly run output
type ArchiveConfig struct {
	Enabled  bool   `yaml:"enabled"`
	S3Bucket string `yaml:"s3_bucket"`
	S3Region string `yaml:"s3_region"`
	Prefix   string `yaml:"prefix"`
	Compress bool   `yaml:"compress"`
}

// LoggingConfig holds log settings
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads configuration from a YAML file and applies defaults
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.Autopilot.ChunkSize == 0 {
		cfg.Autopilot.ChunkSize = 2000
	}
	if cfg.Autopilot.RunHourUTC == 0 {
		cfg.Autopilot.RunHourUTC = 2
	}
	if cfg.Autopilot.MaxChunkRetries == 0 {
		cfg.Autopilot.MaxChunkRetries = 3
	}
	if cfg.Autopilot.LockTTLMinutes == 0 {
		cfg.Autopilot.LockTTLMinutes = 60
	}
	if cfg.CampaignStop.KeyPrefix == "" {
		cfg.CampaignStop.KeyPrefix = "campaignstop:"
	}
	if cfg.Archive.Prefix == "" {
		cfg.Archive.Prefix = "autopilot/runs/"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	return &cfg, nil
}

// LoadFromEnv loads config from file, then overrides with environment variables
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	// Override with environment variables if present
	if url := os.Getenv("DATABASE_URL"); url != "" {
		cfg.Database.URL = url
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Redis.Addr = addr
	}
	if pw := os.Getenv("REDIS_PASSWORD"); pw != "" {
		cfg.Redis.Password = pw
	}
	if bucket := os.Getenv("ARCHIVE_S3_BUCKET"); bucket != "" {
		cfg.Archive.S3Bucket = bucket
	}
	if region := os.Getenv("AWS_REGION"); region != "" && cfg.Archive.S3Region == "" {
		cfg.Archive.S3Region = region
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if size := os.Getenv("AUTOPILOT_CHUNK_SIZE"); size != "" {
		n, err := strconv.Atoi(size)
		if err != nil {
			return nil, fmt.Errorf("AUTOPILOT_CHUNK_SIZE: %w", err)
		}
		cfg.Autopilot.ChunkSize = n
	}

	return cfg, cfg.Validate()
}

// Validate rejects settings the worker cannot run with
func (c *Config) Validate() error {
	if c.Autopilot.ChunkSize <= 0 {
		return fmt.Errorf("autopilot.chunk_size must be positive, got %d", c.Autopilot.ChunkSize)
	}
	if c.Autopilot.RunHourUTC < 0 || c.Autopilot.RunHourUTC > 23 {
		return fmt.Errorf("autopilot.run_hour_utc must be 0-23, got %d", c.Autopilot.RunHourUTC)
	}
	if c.Autopilot.MaxChunkRetries < 0 {
		return fmt.Errorf("autopilot.max_chunk_retries must not be negative")
	}
	if c.Archive.Enabled && c.Archive.S3Bucket == "" {
		return fmt.Errorf("archive.s3_bucket is required when archive is enabled")
	}
	return nil
}
