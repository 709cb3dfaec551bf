// Package config loads server configuration from PARTYGAMES_* environment
// variables.
package config

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"golang.org/x/time/rate"

	"github.com/mcoot/partygames/internal/api"
	"github.com/mcoot/partygames/internal/model"
	"github.com/mcoot/partygames/internal/realtime"
	"github.com/mcoot/partygames/internal/services/content"
	"github.com/mcoot/partygames/internal/services/dispatcher"
	"github.com/mcoot/partygames/internal/services/transfer"
)

// Prefix of every environment variable
const Prefix = "PARTYGAMES"

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
	StorageTypeBolt   = "bolt"
)

// Config is the complete server configuration
type Config struct {
	Host     string `envconfig:"HOST" default:""`
	Port     int    `envconfig:"PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	StorageType string `envconfig:"STORAGE_TYPE" default:"memory"`
	RedisURL    string `envconfig:"REDIS_URL"`
	BoltPath    string `envconfig:"BOLT_PATH" default:"partygames.db"`

	TurnTimeout       time.Duration   `envconfig:"TURN_TIMEOUT" default:"30s"`
	RoundTimeLimit    time.Duration   `envconfig:"ROUND_TIME_LIMIT" default:"120s"`
	TriviaTimeLimit   time.Duration   `envconfig:"TRIVIA_TIME_LIMIT" default:"30s"`
	BusTimeLimit      time.Duration   `envconfig:"BUS_TIME_LIMIT" default:"180s"`
	HintOffsets       []time.Duration `envconfig:"HINT_OFFSETS" default:"30s,60s,90s"`
	RevealDelay       time.Duration   `envconfig:"REVEAL_DELAY" default:"3s"`
	TimeoutPenalty    int             `envconfig:"TIMEOUT_PENALTY" default:"5"`
	AutoCloseSolo     bool            `envconfig:"AUTO_CLOSE_SOLO" default:"true"`
	LeaveOnDisconnect bool            `envconfig:"LEAVE_ON_DISCONNECT" default:"true"`

	ItemBatchSize    int               `envconfig:"ITEM_BATCH_SIZE" default:"30"`
	RefetchThreshold int               `envconfig:"REFETCH_THRESHOLD" default:"10"`
	ItemCacheSize    int               `envconfig:"ITEM_CACHE_SIZE" default:"64"`
	ScrapeURLs       map[string]string `envconfig:"SCRAPE_URLS"`
	ScrapeSelector   string            `envconfig:"SCRAPE_SELECTOR" default:"li"`
	ScrapeRate       float64           `envconfig:"SCRAPE_RATE" default:"1"`
	DictionaryDir    string            `envconfig:"DICTIONARY_DIR"`

	TransferTokenTTL time.Duration `envconfig:"TRANSFER_TOKEN_TTL" default:"5m"`

	// Inbound WebSocket messages per second per connection
	MessageRate  float64 `envconfig:"MESSAGE_RATE" default:"20"`
	MessageBurst int     `envconfig:"MESSAGE_BURST" default:"40"`
}

// Load reads the configuration from the environment and validates it
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("processing the config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values envconfig cannot check on its own
func (c Config) Validate() error {
	switch c.StorageType {
	case StorageTypeMemory, StorageTypeBolt:
	case StorageTypeRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("%s_REDIS_URL required when %s_STORAGE_TYPE=redis", Prefix, Prefix)
		}
	default:
		return fmt.Errorf("invalid storage type %q: must be memory, redis or bolt", c.StorageType)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	for gameType := range c.ScrapeURLs {
		if !model.GameType(gameType).Valid() {
			return fmt.Errorf("invalid scrape game type %q", gameType)
		}
	}
	for _, offset := range c.HintOffsets {
		if offset <= 0 {
			return fmt.Errorf("invalid hint offset %s", offset)
		}
	}
	return nil
}

// Level parses LogLevel
func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

// Server returns the HTTP server settings
func (c Config) Server() api.ServerConfig {
	cfg := api.DefaultServerConfig()
	cfg.Host = c.Host
	cfg.Port = c.Port
	return cfg
}

// Dispatcher returns the room timing and policy settings
func (c Config) Dispatcher() dispatcher.Config {
	cfg := dispatcher.DefaultConfig()
	cfg.TurnTimeout = c.TurnTimeout
	cfg.RoundTimeLimit = c.RoundTimeLimit
	cfg.TriviaTimeLimit = c.TriviaTimeLimit
	cfg.BusTimeLimit = c.BusTimeLimit
	cfg.HintOffsets = c.HintOffsets
	cfg.RevealDelay = c.RevealDelay
	cfg.TimeoutPenalty = c.TimeoutPenalty
	cfg.AutoCloseSolo = c.AutoCloseSolo
	cfg.LeaveOnDisconnect = c.LeaveOnDisconnect
	return cfg
}

// Content returns the catalog settings
func (c Config) Content() content.Config {
	cfg := content.DefaultConfig()
	cfg.BatchSize = c.ItemBatchSize
	cfg.RefetchThreshold = c.RefetchThreshold
	cfg.CacheSize = c.ItemCacheSize
	return cfg
}

// ScrapeSources returns one HTML source per configured URL, sorted by game type
func (c Config) ScrapeSources() []content.Source {
	sources := make([]content.Source, 0, len(c.ScrapeURLs))
	for gameType, url := range c.ScrapeURLs {
		sources = append(sources, content.Source{
			GameType:     model.GameType(gameType),
			URL:          url,
			ItemSelector: c.ScrapeSelector,
		})
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i].GameType < sources[j].GameType })
	return sources
}

// ScrapeInterval is the minimum gap between scrape requests
func (c Config) ScrapeInterval() time.Duration {
	if c.ScrapeRate <= 0 {
		return time.Second
	}
	return time.Duration(float64(time.Second) / c.ScrapeRate)
}

// Transfer returns the transfer token settings
func (c Config) Transfer() transfer.Config {
	return transfer.Config{TokenTTL: c.TransferTokenTTL}
}

// Realtime returns the WebSocket connection settings
func (c Config) Realtime() realtime.Config {
	cfg := realtime.DefaultConfig()
	cfg.RateLimit = rate.Limit(c.MessageRate)
	cfg.RateBurst = c.MessageBurst
	return cfg
}
