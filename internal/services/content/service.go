// Package content is the Item Source: a persistent catalog of game content
// filled by fetchers, served least-used first and never repeated within a room.
package content

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/mcoot/partygames/internal/dependencies/clock"
	"github.com/mcoot/partygames/internal/dependencies/random"
	"github.com/mcoot/partygames/internal/model"
	"github.com/mcoot/partygames/internal/storage"
)

// GameTypes lists the game types whose content comes from the catalog
var GameTypes = []model.GameType{model.GameCharades, model.GamePictionary, model.GameTrivia}

// Config holds configuration for the content service
type Config struct {
	BatchSize          int
	RefetchThreshold   int
	CacheSize          int
	MinRefetchInterval time.Duration
}

// DefaultConfig returns default content configuration
func DefaultConfig() Config {
	return Config{
		BatchSize:          30,
		RefetchThreshold:   10,
		CacheSize:          64,
		MinRefetchInterval: 30 * time.Second,
	}
}

// Service hands out catalog items to rooms
type Service struct {
	storage  storage.Storage
	fetchers []Fetcher
	clock    clock.Clock
	random   random.Random
	logger   *slog.Logger
	cfg      Config

	cache *lru.Cache[model.GameType, []*model.Item]
	group singleflight.Group

	// pickMu serialises select-and-mark so concurrent rooms see each other's usage
	pickMu      sync.Mutex
	refetchMu   sync.Mutex
	lastRefetch map[model.GameType]time.Time
}

// New creates a new content Service. Fetchers are tried in order on refetch.
func New(
	storage storage.Storage,
	fetchers []Fetcher,
	clock clock.Clock,
	random random.Random,
	logger *slog.Logger,
	cfg Config,
) (*Service, error) {
	defaults := DefaultConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaults.BatchSize
	}
	if cfg.RefetchThreshold <= 0 {
		cfg.RefetchThreshold = defaults.RefetchThreshold
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = defaults.CacheSize
	}
	cache, err := lru.New[model.GameType, []*model.Item](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating catalog cache: %w", err)
	}
	return &Service{
		storage:     storage,
		fetchers:    fetchers,
		clock:       clock,
		random:      random,
		logger:      logger.With(slog.String("component", "content")),
		cfg:         cfg,
		cache:       cache,
		lastRefetch: make(map[model.GameType]time.Time),
	}, nil
}

// FetchNext returns an item the room has not seen yet, preferring items used
// least recently across all rooms. Any failure is reported as ErrContentUnavailable.
func (s *Service) FetchNext(ctx context.Context, roomID model.RoomID, gameType model.GameType, category string) (*model.Item, error) {
	if !isCatalogType(gameType) {
		return nil, fmt.Errorf("%w: no catalog for %s", model.ErrContentUnavailable, gameType)
	}

	count, err := s.storage.CountItems(ctx, gameType)
	if err != nil {
		return nil, unavailable(err)
	}
	if count < s.cfg.RefetchThreshold {
		s.refetch(ctx, gameType)
	}

	item, err := s.pick(ctx, roomID, gameType, category)
	if err != nil {
		return nil, unavailable(err)
	}
	if item == nil {
		// Room has exhausted the catalog; try to grow it once
		if s.refetch(ctx, gameType) > 0 {
			item, err = s.pick(ctx, roomID, gameType, category)
			if err != nil {
				return nil, unavailable(err)
			}
		}
	}
	if item == nil {
		return nil, fmt.Errorf("%w: catalog exhausted for room %s", model.ErrContentUnavailable, roomID)
	}
	return item, nil
}

// Prefetch makes sure the catalog for a game type is above the refetch threshold
func (s *Service) Prefetch(ctx context.Context, gameType model.GameType) error {
	if !isCatalogType(gameType) {
		return nil
	}
	count, err := s.storage.CountItems(ctx, gameType)
	if err != nil {
		return unavailable(err)
	}
	if count < s.cfg.RefetchThreshold {
		s.refetch(ctx, gameType)
	}
	return nil
}

// CleanupRoom forgets which items a closed room has seen
func (s *Service) CleanupRoom(ctx context.Context, roomID model.RoomID) error {
	return s.storage.ClearRoomUsage(ctx, roomID)
}

// Stats reports catalog size per game type
func (s *Service) Stats(ctx context.Context) ([]model.CatalogStats, error) {
	stats := make([]model.CatalogStats, 0, len(GameTypes))
	for _, gt := range GameTypes {
		items, err := s.catalog(ctx, gt)
		if err != nil {
			return nil, err
		}
		unused := 0
		for _, item := range items {
			if item.UseCount == 0 {
				unused++
			}
		}
		stats = append(stats, model.CatalogStats{
			GameType:     gt,
			TotalItems:   len(items),
			UnusedItems:  unused,
			NeedsRefetch: len(items) < s.cfg.RefetchThreshold,
		})
	}
	return stats, nil
}

func (s *Service) pick(ctx context.Context, roomID model.RoomID, gameType model.GameType, category string) (*model.Item, error) {
	s.pickMu.Lock()
	defer s.pickMu.Unlock()

	items, err := s.catalog(ctx, gameType)
	if err != nil {
		return nil, err
	}
	used, err := s.storage.GetRoomUsage(ctx, roomID)
	if err != nil {
		return nil, err
	}
	seen := make(map[model.ItemID]bool, len(used))
	for _, id := range used {
		seen[id] = true
	}

	var fresh, inCategory []*model.Item
	for _, item := range items {
		if seen[item.ID] {
			continue
		}
		fresh = append(fresh, item)
		if category != "" && item.Category == category {
			inCategory = append(inCategory, item)
		}
	}
	candidates := fresh
	if len(inCategory) > 0 {
		candidates = inCategory
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	s.random.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	sort.SliceStable(candidates, func(i, j int) bool {
		return lessUsed(candidates[i], candidates[j])
	})
	chosen := candidates[0]

	now := s.clock.Now()
	if err := s.storage.AddRoomUsage(ctx, roomID, chosen.ID); err != nil {
		return nil, err
	}
	if err := s.storage.MarkItemUsed(ctx, chosen.ID, now); err != nil {
		return nil, err
	}

	updated := *chosen
	updated.UseCount++
	updated.LastUsed = &now
	s.replaceCached(gameType, items, &updated)

	s.logger.Debug("item assigned",
		slog.String("room", string(roomID)),
		slog.String("game_type", string(gameType)),
		slog.String("item", string(chosen.ID)))

	result := updated
	return &result, nil
}

// lessUsed orders never-used items first, then oldest use, then fewest uses
func lessUsed(a, b *model.Item) bool {
	switch {
	case a.LastUsed == nil && b.LastUsed != nil:
		return true
	case a.LastUsed != nil && b.LastUsed == nil:
		return false
	case a.LastUsed != nil && b.LastUsed != nil && !a.LastUsed.Equal(*b.LastUsed):
		return a.LastUsed.Before(*b.LastUsed)
	}
	return a.UseCount < b.UseCount
}

// catalog returns the cached catalog for a game type. Cached slices are never mutated.
func (s *Service) catalog(ctx context.Context, gameType model.GameType) ([]*model.Item, error) {
	if items, ok := s.cache.Get(gameType); ok {
		return items, nil
	}
	items, err := s.storage.ListItems(ctx, gameType)
	if err != nil {
		return nil, err
	}
	s.cache.Add(gameType, items)
	return items, nil
}

func (s *Service) replaceCached(gameType model.GameType, items []*model.Item, updated *model.Item) {
	next := make([]*model.Item, len(items))
	for i, item := range items {
		if item.ID == updated.ID {
			next[i] = updated
		} else {
			next[i] = item
		}
	}
	s.cache.Add(gameType, next)
}

// refetch asks the fetchers for a new batch and stores items not already in
// the catalog. Concurrent callers for the same game type share one run.
// Returns the number of new items.
func (s *Service) refetch(ctx context.Context, gameType model.GameType) int {
	v, _, _ := s.group.Do(string(gameType), func() (any, error) {
		if !s.allowRefetch(gameType) {
			return 0, nil
		}
		added, err := s.runFetchers(ctx, gameType)
		if err != nil {
			s.logger.Warn("refetch failed",
				slog.String("game_type", string(gameType)),
				slog.String("error", err.Error()))
		}
		return added, nil
	})
	return v.(int)
}

func (s *Service) allowRefetch(gameType model.GameType) bool {
	s.refetchMu.Lock()
	defer s.refetchMu.Unlock()
	now := s.clock.Now()
	if last, ok := s.lastRefetch[gameType]; ok && now.Sub(last) < s.cfg.MinRefetchInterval {
		return false
	}
	s.lastRefetch[gameType] = now
	return true
}

func (s *Service) runFetchers(ctx context.Context, gameType model.GameType) (int, error) {
	existing, err := s.storage.ListItems(ctx, gameType)
	if err != nil {
		return 0, err
	}
	known := make(map[model.ItemID]bool, len(existing))
	for _, item := range existing {
		known[item.ID] = true
	}

	var batch []*model.Item
	var errs []error
	for _, f := range s.fetchers {
		if len(batch) >= s.cfg.BatchSize {
			break
		}
		items, err := f.Fetch(ctx, gameType, s.cfg.BatchSize)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", f.Name(), err))
			continue
		}
		for _, item := range items {
			if known[item.ID] || len(batch) >= s.cfg.BatchSize {
				continue
			}
			known[item.ID] = true
			batch = append(batch, item)
		}
	}

	if len(batch) > 0 {
		if err := s.storage.SaveItems(ctx, batch); err != nil {
			return 0, err
		}
		s.pickMu.Lock()
		s.cache.Remove(gameType)
		s.pickMu.Unlock()
		s.logger.Info("catalog refetched",
			slog.String("game_type", string(gameType)),
			slog.Int("added", len(batch)))
	}
	return len(batch), errors.Join(errs...)
}

func isCatalogType(gameType model.GameType) bool {
	for _, gt := range GameTypes {
		if gt == gameType {
			return true
		}
	}
	return false
}

func unavailable(err error) error {
	if errors.Is(err, model.ErrContentUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", model.ErrContentUnavailable, err)
}
