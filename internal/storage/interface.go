package storage

import (
	"context"
	"time"

	"github.com/mcoot/partygames/internal/model"
)

// GeneralDictionary is the category under which the category-independent word list is stored
const GeneralDictionary = "_general"

// Storage defines the interface for data persistence
type Storage interface {
	// Item catalog operations
	SaveItems(ctx context.Context, items []*model.Item) error
	GetItem(ctx context.Context, id model.ItemID) (*model.Item, error)
	ListItems(ctx context.Context, gameType model.GameType) ([]*model.Item, error)
	CountItems(ctx context.Context, gameType model.GameType) (int, error)
	MarkItemUsed(ctx context.Context, id model.ItemID, at time.Time) error

	// Per-room usage, so a room never sees the same item twice
	AddRoomUsage(ctx context.Context, roomID model.RoomID, id model.ItemID) error
	GetRoomUsage(ctx context.Context, roomID model.RoomID) ([]model.ItemID, error)
	ClearRoomUsage(ctx context.Context, roomID model.RoomID) error

	// Dictionary operations
	GetDictionaryWords(ctx context.Context, category string) ([]string, error)
	SaveDictionaryWords(ctx context.Context, category string, words []string) error
	ListDictionaryCategories(ctx context.Context) ([]string, error)

	// Transfer token operations. Consume is single-use.
	SaveTransferToken(ctx context.Context, token *model.TransferToken) error
	ConsumeTransferToken(ctx context.Context, token string) (*model.TransferToken, error)
}
