package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mcoot/partygames/internal/model"
	"github.com/mcoot/partygames/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu sync.RWMutex

	items          map[model.ItemID]*model.Item
	roomUsage      map[model.RoomID]map[model.ItemID]struct{}
	dictionaries   map[string][]string
	transferTokens map[string]*model.TransferToken
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		items:          make(map[model.ItemID]*model.Item),
		roomUsage:      make(map[model.RoomID]map[model.ItemID]struct{}),
		dictionaries:   make(map[string][]string),
		transferTokens: make(map[string]*model.TransferToken),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Item catalog operations

func (s *Storage) SaveItems(ctx context.Context, items []*model.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range items {
		cp := *item
		s.items[item.ID] = &cp
	}
	return nil
}

func (s *Storage) GetItem(ctx context.Context, id model.ItemID) (*model.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[id]
	if !ok {
		return nil, model.ErrItemNotFound
	}
	cp := *item
	return &cp, nil
}

func (s *Storage) ListItems(ctx context.Context, gameType model.GameType) ([]*model.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var items []*model.Item
	for _, item := range s.items {
		if item.GameType == gameType {
			cp := *item
			items = append(items, &cp)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

func (s *Storage) CountItems(ctx context.Context, gameType model.GameType) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, item := range s.items {
		if item.GameType == gameType {
			n++
		}
	}
	return n, nil
}

func (s *Storage) MarkItemUsed(ctx context.Context, id model.ItemID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return model.ErrItemNotFound
	}
	item.UseCount++
	item.LastUsed = &at
	return nil
}

// Room usage operations

func (s *Storage) AddRoomUsage(ctx context.Context, roomID model.RoomID, id model.ItemID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	used, ok := s.roomUsage[roomID]
	if !ok {
		used = make(map[model.ItemID]struct{})
		s.roomUsage[roomID] = used
	}
	used[id] = struct{}{}
	return nil
}

func (s *Storage) GetRoomUsage(ctx context.Context, roomID model.RoomID) ([]model.ItemID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]model.ItemID, 0, len(s.roomUsage[roomID]))
	for id := range s.roomUsage[roomID] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (s *Storage) ClearRoomUsage(ctx context.Context, roomID model.RoomID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.roomUsage, roomID)
	return nil
}

// Dictionary operations

func (s *Storage) GetDictionaryWords(ctx context.Context, category string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	words, ok := s.dictionaries[category]
	if !ok {
		return nil, model.ErrDictionaryNotLoaded
	}
	return append([]string(nil), words...), nil
}

func (s *Storage) SaveDictionaryWords(ctx context.Context, category string, words []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dictionaries[category] = append([]string(nil), words...)
	return nil
}

func (s *Storage) ListDictionaryCategories(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cats := make([]string, 0, len(s.dictionaries))
	for cat := range s.dictionaries {
		cats = append(cats, cat)
	}
	sort.Strings(cats)
	return cats, nil
}

// Transfer token operations

func (s *Storage) SaveTransferToken(ctx context.Context, token *model.TransferToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *token
	s.transferTokens[token.Token] = &cp
	return nil
}

func (s *Storage) ConsumeTransferToken(ctx context.Context, token string) (*model.TransferToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transferTokens[token]
	if !ok {
		return nil, model.ErrTransferTokenInvalid
	}
	delete(s.transferTokens, token)
	return t, nil
}
