package redis

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/partygames/internal/model"
	"github.com/mcoot/partygames/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Item catalog operations

func (s *Storage) SaveItems(ctx context.Context, items []*model.Item) error {
	if len(items) == 0 {
		return nil
	}
	pipe := s.client.TxPipeline()
	for _, item := range items {
		data, err := json.Marshal(item)
		if err != nil {
			return err
		}
		pipe.Set(ctx, itemKey(item.ID), data, 0)
		pipe.SAdd(ctx, itemsForTypeIndexKey(item.GameType), string(item.ID))
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (s *Storage) GetItem(ctx context.Context, id model.ItemID) (*model.Item, error) {
	data, err := s.client.Get(ctx, itemKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrItemNotFound
		}
		return nil, err
	}

	var item model.Item
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Storage) ListItems(ctx context.Context, gameType model.GameType) ([]*model.Item, error) {
	ids, err := s.client.SMembers(ctx, itemsForTypeIndexKey(gameType)).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	sort.Strings(ids)

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = itemKey(model.ItemID(id))
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	items := make([]*model.Item, 0, len(values))
	for _, v := range values {
		// Index entries may outlive their item
		str, ok := v.(string)
		if !ok {
			continue
		}
		var item model.Item
		if err := json.Unmarshal([]byte(str), &item); err != nil {
			return nil, err
		}
		items = append(items, &item)
	}
	return items, nil
}

func (s *Storage) CountItems(ctx context.Context, gameType model.GameType) (int, error) {
	n, err := s.client.SCard(ctx, itemsForTypeIndexKey(gameType)).Result()
	return int(n), err
}

// MarkItemUsed increments the use count with an optimistic transaction
func (s *Storage) MarkItemUsed(ctx context.Context, id model.ItemID, at time.Time) error {
	key := itemKey(id)
	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return model.ErrItemNotFound
			}
			return err
		}
		var item model.Item
		if err := json.Unmarshal(data, &item); err != nil {
			return err
		}
		item.UseCount++
		item.LastUsed = &at
		updated, err := json.Marshal(&item)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, 0)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < 5; attempt++ {
		err := s.client.Watch(ctx, txf, key)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return redis.TxFailedErr
}

// Room usage operations

func (s *Storage) AddRoomUsage(ctx context.Context, roomID model.RoomID, id model.ItemID) error {
	key := roomUsageKey(roomID)
	pipe := s.client.TxPipeline()
	pipe.SAdd(ctx, key, string(id))
	if s.cfg.RoomUsageTTL > 0 {
		pipe.Expire(ctx, key, s.cfg.RoomUsageTTL)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (s *Storage) GetRoomUsage(ctx context.Context, roomID model.RoomID) ([]model.ItemID, error) {
	members, err := s.client.SMembers(ctx, roomUsageKey(roomID)).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(members)
	ids := make([]model.ItemID, len(members))
	for i, m := range members {
		ids[i] = model.ItemID(m)
	}
	return ids, nil
}

func (s *Storage) ClearRoomUsage(ctx context.Context, roomID model.RoomID) error {
	return s.client.Del(ctx, roomUsageKey(roomID)).Err()
}

// Dictionary operations

func (s *Storage) GetDictionaryWords(ctx context.Context, category string) ([]string, error) {
	key := dictionaryKey(category)
	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, model.ErrDictionaryNotLoaded
	}

	words, err := s.client.SMembers(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(words)
	return words, nil
}

func (s *Storage) SaveDictionaryWords(ctx context.Context, category string, words []string) error {
	key := dictionaryKey(category)

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, key)
	if len(words) > 0 {
		// Convert []string to []interface{} for SAdd
		members := make([]interface{}, len(words))
		for i, w := range words {
			members[i] = w
		}
		pipe.SAdd(ctx, key, members...)
	}
	pipe.SAdd(ctx, dictionaryIndexKey(), category)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *Storage) ListDictionaryCategories(ctx context.Context) ([]string, error) {
	cats, err := s.client.SMembers(ctx, dictionaryIndexKey()).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(cats)
	return cats, nil
}

// Transfer token operations

func (s *Storage) SaveTransferToken(ctx context.Context, token *model.TransferToken) error {
	data, err := json.Marshal(token)
	if err != nil {
		return err
	}
	ttl := token.ExpiresAt.Sub(token.CreatedAt)
	if ttl <= 0 {
		return model.ErrTransferTokenInvalid
	}
	return s.client.Set(ctx, transferTokenKey(token.Token), data, ttl).Err()
}

// ConsumeTransferToken reads and deletes the token atomically
func (s *Storage) ConsumeTransferToken(ctx context.Context, token string) (*model.TransferToken, error) {
	data, err := s.client.GetDel(ctx, transferTokenKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrTransferTokenInvalid
		}
		return nil, err
	}

	var t model.TransferToken
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, err
	}
	return &t, nil
}
