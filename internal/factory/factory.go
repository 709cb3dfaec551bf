package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/mcoot/partygames/internal/api"
	"github.com/mcoot/partygames/internal/dependencies/clock"
	"github.com/mcoot/partygames/internal/dependencies/random"
	"github.com/mcoot/partygames/internal/realtime"
	"github.com/mcoot/partygames/internal/services/content"
	"github.com/mcoot/partygames/internal/services/dictionary"
	"github.com/mcoot/partygames/internal/services/dispatcher"
	"github.com/mcoot/partygames/internal/services/registry"
	"github.com/mcoot/partygames/internal/services/scheduler"
	"github.com/mcoot/partygames/internal/services/transfer"
	"github.com/mcoot/partygames/internal/storage"
	boltstorage "github.com/mcoot/partygames/internal/storage/bolt"
	"github.com/mcoot/partygames/internal/storage/memory"
	redisstorage "github.com/mcoot/partygames/internal/storage/redis"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
	StorageTypeBolt   = "bolt"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Services
	Registry          *registry.Registry
	Scheduler         *scheduler.Scheduler
	ContentService    *content.Service
	DictionaryService *dictionary.Service
	TransferService   *transfer.Service
	Rooms             *dispatcher.Manager

	// Transport
	Spectators *realtime.Spectators
	Outbox     *realtime.Outbox
	WebSocket  *realtime.Handler

	logger *slog.Logger
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory", "redis" or "bolt")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// BoltPath is the database file (required if StorageType is "bolt")
	BoltPath string

	Dispatcher dispatcher.Config
	Content    content.Config
	Transfer   transfer.Config
	Realtime   realtime.Config

	// ScrapeSources are tried before the built-in seed catalog
	ScrapeSources  []content.Source
	ScrapeInterval time.Duration
	HTTPClient     *http.Client
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	store, err := newStorage(cfg)
	if err != nil {
		return nil, err
	}

	// Create external dependencies
	clk := clock.New()
	rnd := random.New()

	var fetchers []content.Fetcher
	if len(cfg.ScrapeSources) > 0 {
		fetchers = append(fetchers, content.NewHTMLFetcher(cfg.HTTPClient, cfg.ScrapeSources, cfg.ScrapeInterval, clk, logger))
	}

	app, err := newWithDependencies(store, fetchers, clk, rnd, cfg, logger)
	if err != nil {
		closeStorage(store)
		return nil, err
	}
	return app, nil
}

func newStorage(cfg Config) (storage.Storage, error) {
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		return memory.New(), nil
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		return redisstorage.New(*cfg.RedisConfig)
	case StorageTypeBolt:
		if cfg.BoltPath == "" {
			return nil, errors.New("BoltPath required when StorageType is bolt")
		}
		return boltstorage.Open(cfg.BoltPath)
	default:
		return nil, fmt.Errorf("invalid StorageType %q: must be 'memory', 'redis' or 'bolt'", storageType)
	}
}

// newWithDependencies creates an App with the given dependencies (useful for testing).
// The static seed fetcher is always appended as the last resort.
func newWithDependencies(
	store storage.Storage,
	fetchers []content.Fetcher,
	clk clock.Clock,
	rnd random.Random,
	cfg Config,
	logger *slog.Logger,
) (*App, error) {
	static, err := content.NewStaticFetcher(clk)
	if err != nil {
		return nil, err
	}
	fetchers = append(fetchers, static)

	contentService, err := content.New(store, fetchers, clk, rnd, logger, cfg.Content)
	if err != nil {
		return nil, err
	}

	reg := registry.New()
	sched := scheduler.New(clk, logger)
	dictService := dictionary.New(store, logger)
	transferService := transfer.New(store, clk, logger, cfg.Transfer)
	spectators := realtime.NewSpectators(logger)
	outbox := realtime.NewOutbox(reg, spectators, clk, logger)
	rooms := dispatcher.NewManager(reg, sched, contentService, dictService, outbox, clk, rnd, logger, cfg.Dispatcher)
	ws := realtime.NewHandler(rooms, outbox, cfg.Realtime, logger)

	return &App{
		Storage:           store,
		Clock:             clk,
		Random:            rnd,
		Registry:          reg,
		Scheduler:         sched,
		ContentService:    contentService,
		DictionaryService: dictService,
		TransferService:   transferService,
		Rooms:             rooms,
		Spectators:        spectators,
		Outbox:            outbox,
		WebSocket:         ws,
		logger:            logger,
	}, nil
}

// LoadDictionary loads word lists from storage, then from dir if given.
// The word race still runs without a dictionary; answers are then not checked.
func (a *App) LoadDictionary(ctx context.Context, dir string) error {
	if err := a.DictionaryService.LoadFromStorage(ctx); err != nil {
		return fmt.Errorf("loading dictionary from storage: %w", err)
	}
	if dir == "" {
		return nil
	}
	if err := a.DictionaryService.LoadFromDir(ctx, dir); err != nil {
		return fmt.Errorf("loading dictionary from %s: %w", dir, err)
	}
	return nil
}

// WarmContent fills the catalog of every catalog-backed game type. Failures
// are logged; rooms retry on demand.
func (a *App) WarmContent(ctx context.Context) {
	for _, gameType := range content.GameTypes {
		if err := a.ContentService.Prefetch(ctx, gameType); err != nil {
			a.logger.Warn("content prefetch failed",
				slog.String("game_type", string(gameType)),
				slog.String("error", err.Error()))
		}
	}
}

// Router builds the HTTP handler serving the JSON API and the WebSocket endpoint
func (a *App) Router() http.Handler {
	return api.NewRouter(api.RouterConfig{
		Logger:          a.logger,
		Clock:           a.Clock,
		Rooms:           a.Rooms,
		Scheduler:       a.Scheduler,
		ContentService:  a.ContentService,
		TransferService: a.TransferService,
		Spectators:      a.Spectators,
		WebSocket:       a.WebSocket,
	})
}

// Close stops every room and releases storage
func (a *App) Close() {
	a.Rooms.Shutdown()
	a.Spectators.Close()
	closeStorage(a.Storage)
}

func closeStorage(store storage.Storage) {
	if c, ok := store.(io.Closer); ok {
		_ = c.Close()
	}
}
