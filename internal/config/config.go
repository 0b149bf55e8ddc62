package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/tejusbharadwaj/smardexporter/internal/models"
	"github.com/tejusbharadwaj/smardexporter/internal/parser"
)

// Config holds all configuration for the exporter
type Config struct {
	Feed    FeedConfig    `mapstructure:"feed"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Poll    PollConfig    `mapstructure:"poll"`
	Server  ServerConfig  `mapstructure:"server"`
	Kafka   KafkaConfig   `mapstructure:"kafka"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type FeedConfig struct {
	URL               string        `mapstructure:"url"`
	Region            string        `mapstructure:"region"`
	Type              string        `mapstructure:"type"`
	Language          string        `mapstructure:"language"`
	NumberFormat      string        `mapstructure:"number_format"`
	Modules           string        `mapstructure:"modules"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
}

type CacheConfig struct {
	Backend  string         `mapstructure:"backend"`
	Dir      string         `mapstructure:"dir"`
	TTL      time.Duration  `mapstructure:"ttl"`
	LRUSize  int            `mapstructure:"lru_size"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	S3       S3Config       `mapstructure:"s3"`
}

type PostgresConfig struct {
	DSN string `mapstructure:"dsn"`
}

type S3Config struct {
	Region string `mapstructure:"region"`
	Bucket string `mapstructure:"bucket"`
	Prefix string `mapstructure:"prefix"`
}

type PollConfig struct {
	Interval          time.Duration `mapstructure:"interval"`
	ObservationOffset time.Duration `mapstructure:"observation_offset"`
	CycleTimeout      time.Duration `mapstructure:"cycle_timeout"`
}

type ServerConfig struct {
	Port           int     `mapstructure:"port"`
	GRPCPort       int     `mapstructure:"grpc_port"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// Cache backends.
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendS3       = "s3"
)

const DefaultFeedURL = "https://www.smard.de/nip-download-manager/nip/download/market-data"

var (
	ErrInvalidPort     = errors.New("port must be between 1 and 65535")
	ErrUnknownBackend  = errors.New("unknown cache backend")
	ErrMissingStorage  = errors.New("storage directory is required for the file backend")
	ErrInvalidInterval = errors.New("poll interval must be positive")
	ErrInvalidSelector = errors.New("invalid module selector")
)

// Load reads configuration from file and environment variables.
// An empty path yields defaults plus SMARD_* overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("SMARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		// Expand environment variables
		expanded := os.ExpandEnv(string(data))

		var raw map[string]interface{}
		if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
		if err := v.MergeConfigMap(raw); err != nil {
			return nil, fmt.Errorf("failed to merge config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("feed.url", DefaultFeedURL)
	v.SetDefault("feed.region", "DE")
	v.SetDefault("feed.type", "discrete")
	v.SetDefault("feed.language", "de")
	v.SetDefault("feed.number_format", "german")
	v.SetDefault("feed.modules", "all")
	v.SetDefault("feed.timeout", 30*time.Second)
	v.SetDefault("feed.requests_per_second", 1.0)
	v.SetDefault("feed.burst", 1)

	v.SetDefault("cache.backend", BackendFile)
	v.SetDefault("cache.dir", "downloads/")
	v.SetDefault("cache.ttl", 15*time.Minute)
	v.SetDefault("cache.lru_size", 16)
	v.SetDefault("cache.s3.prefix", "feed-cache/")

	v.SetDefault("poll.interval", 15*time.Minute)
	v.SetDefault("poll.observation_offset", 10*time.Minute)
	v.SetDefault("poll.cycle_timeout", 0)

	v.SetDefault("server.port", 8000)
	v.SetDefault("server.grpc_port", 0)
	v.SetDefault("server.rate_limit", 10.0)
	v.SetDefault("server.rate_limit_burst", 20)

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "smard-energydata")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.max_age_days", 0)
}

// Validate rejects configurations the exporter cannot start with.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPort, c.Server.Port)
	}
	if c.Server.GRPCPort < 0 || c.Server.GRPCPort > 65535 {
		return fmt.Errorf("%w: grpc %d", ErrInvalidPort, c.Server.GRPCPort)
	}

	switch c.Cache.Backend {
	case BackendFile:
		if strings.TrimSpace(c.Cache.Dir) == "" {
			return ErrMissingStorage
		}
	case BackendPostgres:
		if c.Cache.Postgres.DSN == "" {
			return fmt.Errorf("%w: postgres backend needs a dsn", ErrUnknownBackend)
		}
	case BackendS3:
		if c.Cache.S3.Bucket == "" {
			return fmt.Errorf("%w: s3 backend needs a bucket", ErrUnknownBackend)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, c.Cache.Backend)
	}

	if c.Poll.Interval <= 0 {
		return ErrInvalidInterval
	}
	if _, err := parser.FormatByName(c.Feed.NumberFormat); err != nil {
		return err
	}
	if _, _, err := ParseModuleSelector(c.Feed.Modules); err != nil {
		return err
	}
	return nil
}

// RequestKey builds the request key for the configured module selector.
func (c *Config) RequestKey() (models.RequestKey, error) {
	ids, all, err := ParseModuleSelector(c.Feed.Modules)
	if err != nil {
		return models.RequestKey{}, err
	}
	if all {
		return models.NewAllRequestKey(c.Feed.Region, c.Feed.Type), nil
	}
	return models.NewRequestKey(ids, c.Feed.Region, c.Feed.Type), nil
}

// ParseModuleSelector reads "all" or a comma separated list of module ids.
// The returned ids are sorted ascending.
func ParseModuleSelector(s string) ([]int, bool, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, models.AllSlot) {
		return nil, true, nil
	}
	if s == "" {
		return nil, false, fmt.Errorf("%w: empty", ErrInvalidSelector)
	}

	seen := make(map[int]bool)
	var ids []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		id, err := strconv.Atoi(part)
		if err != nil || id <= 0 {
			return nil, false, fmt.Errorf("%w: %q", ErrInvalidSelector, part)
		}
		if seen[id] {
			return nil, false, fmt.Errorf("%w: duplicate id %d", ErrInvalidSelector, id)
		}
		seen[id] = true
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids, false, nil
}
