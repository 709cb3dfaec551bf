package redis

import (
	"fmt"

	"github.com/mcoot/partygames/internal/model"
)

// Key prefix for all party game data
const keyPrefix = "partygames"

// itemKey returns the Redis key for an Item
func itemKey(id model.ItemID) string {
	return fmt.Sprintf("%s:item:%s", keyPrefix, id)
}

// itemsForTypeIndexKey returns the Redis key for the SET of item ids of a game type
func itemsForTypeIndexKey(gameType model.GameType) string {
	return fmt.Sprintf("%s:idx:items:%s", keyPrefix, gameType)
}

// roomUsageKey returns the Redis key for the SET of item ids a room has used
func roomUsageKey(roomID model.RoomID) string {
	return fmt.Sprintf("%s:room_usage:%s", keyPrefix, roomID)
}

// dictionaryKey returns the Redis key for a category's word set
func dictionaryKey(category string) string {
	return fmt.Sprintf("%s:dictionary:%s", keyPrefix, category)
}

// dictionaryIndexKey returns the Redis key for the SET of dictionary categories
func dictionaryIndexKey() string {
	return fmt.Sprintf("%s:idx:dictionaries", keyPrefix)
}

// transferTokenKey returns the Redis key for a transfer token
func transferTokenKey(token string) string {
	return fmt.Sprintf("%s:transfer:%s", keyPrefix, token)
}
