// Package bolt is an embedded, single-file implementation of the storage interface.
package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"go.etcd.io/bbolt"

	"github.com/mcoot/partygames/internal/model"
	"github.com/mcoot/partygames/internal/storage"
)

var (
	itemsBucket      = []byte("items")
	roomUsageBucket  = []byte("room_usage")
	dictionaryBucket = []byte("dictionaries")
	transferBucket   = []byte("transfer_tokens")
)

// Storage is a bbolt-backed implementation of the storage interface
type Storage struct {
	db *bbolt.DB
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Open opens (creating if needed) the database file at path
func Open(path string) (*Storage, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{itemsBucket, roomUsageBucket, dictionaryBucket, transferBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Storage{db: db}, nil
}

// Close closes the database file
func (s *Storage) Close() error {
	return s.db.Close()
}

// Item catalog operations

func (s *Storage) SaveItems(ctx context.Context, items []*model.Item) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(itemsBucket)
		for _, item := range items {
			data, err := json.Marshal(item)
			if err != nil {
				return err
			}
			if err := b.Put([]byte(item.ID), data); err != nil {
				return fmt.Errorf("put item: %w", err)
			}
		}
		return nil
	})
}

func (s *Storage) GetItem(ctx context.Context, id model.ItemID) (*model.Item, error) {
	var item model.Item
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(itemsBucket).Get([]byte(id))
		if data == nil {
			return model.ErrItemNotFound
		}
		return json.Unmarshal(data, &item)
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Storage) ListItems(ctx context.Context, gameType model.GameType) ([]*model.Item, error) {
	var items []*model.Item
	err := s.db.View(func(tx *bbolt.Tx) error {
		// Keys are item ids, so the cursor yields them sorted
		return tx.Bucket(itemsBucket).ForEach(func(k, v []byte) error {
			var item model.Item
			if err := json.Unmarshal(v, &item); err != nil {
				return fmt.Errorf("json unmarshal error, %q", err)
			}
			if item.GameType == gameType {
				items = append(items, &item)
			}
			return nil
		})
	})
	return items, err
}

func (s *Storage) CountItems(ctx context.Context, gameType model.GameType) (int, error) {
	items, err := s.ListItems(ctx, gameType)
	return len(items), err
}

func (s *Storage) MarkItemUsed(ctx context.Context, id model.ItemID, at time.Time) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(itemsBucket)
		data := b.Get([]byte(id))
		if data == nil {
			return model.ErrItemNotFound
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
		return b.Put([]byte(id), updated)
	})
}

// Room usage operations. Each room gets a nested bucket of item ids.

func (s *Storage) AddRoomUsage(ctx context.Context, roomID model.RoomID, id model.ItemID) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		rb, err := tx.Bucket(roomUsageBucket).CreateBucketIfNotExists([]byte(roomID))
		if err != nil {
			return fmt.Errorf("create room bucket: %w", err)
		}
		return rb.Put([]byte(id), []byte{1})
	})
}

func (s *Storage) GetRoomUsage(ctx context.Context, roomID model.RoomID) ([]model.ItemID, error) {
	ids := []model.ItemID{}
	err := s.db.View(func(tx *bbolt.Tx) error {
		rb := tx.Bucket(roomUsageBucket).Bucket([]byte(roomID))
		if rb == nil {
			return nil
		}
		return rb.ForEach(func(k, _ []byte) error {
			ids = append(ids, model.ItemID(k))
			return nil
		})
	})
	return ids, err
}

func (s *Storage) ClearRoomUsage(ctx context.Context, roomID model.RoomID) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		err := tx.Bucket(roomUsageBucket).DeleteBucket([]byte(roomID))
		if err != nil && err != bbolt.ErrBucketNotFound {
			return err
		}
		return nil
	})
}

// Dictionary operations

func (s *Storage) GetDictionaryWords(ctx context.Context, category string) ([]string, error) {
	var words []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(dictionaryBucket).Get([]byte(category))
		if data == nil {
			return model.ErrDictionaryNotLoaded
		}
		return json.Unmarshal(data, &words)
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(words)
	return words, nil
}

func (s *Storage) SaveDictionaryWords(ctx context.Context, category string, words []string) error {
	if words == nil {
		words = []string{}
	}
	data, err := json.Marshal(words)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(dictionaryBucket).Put([]byte(category), data)
	})
}

func (s *Storage) ListDictionaryCategories(ctx context.Context) ([]string, error) {
	var cats []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(dictionaryBucket).ForEach(func(k, _ []byte) error {
			cats = append(cats, string(k))
			return nil
		})
	})
	return cats, err
}

// Transfer token operations

func (s *Storage) SaveTransferToken(ctx context.Context, token *model.TransferToken) error {
	data, err := json.Marshal(token)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(transferBucket).Put([]byte(token.Token), data)
	})
}

// ConsumeTransferToken reads and deletes the token in one write transaction
func (s *Storage) ConsumeTransferToken(ctx context.Context, token string) (*model.TransferToken, error) {
	var t model.TransferToken
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(transferBucket)
		data := b.Get([]byte(token))
		if data == nil {
			return model.ErrTransferTokenInvalid
		}
		if err := json.Unmarshal(data, &t); err != nil {
			return err
		}
		return b.Delete([]byte(token))
	})
	if err != nil {
		return nil, err
	}
	return &t, nil
}
