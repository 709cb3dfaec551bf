package model

import "time"

// ItemID uniquely identifies a catalog item
type ItemID string

// Item is one unit of game content: a word, title, question or drawing prompt
type Item struct {
	ID       ItemID            `json:"id"`
	GameType GameType          `json:"game_type"`
	Category string            `json:"category,omitempty"`
	Prompt   string            `json:"prompt"`
	Answer   string            `json:"answer,omitempty"`  // Trivia only
	Choices  []string          `json:"choices,omitempty"` // Trivia only
	Metadata map[string]string `json:"metadata,omitempty"`
	Source   string            `json:"source,omitempty"`

	// Catalog bookkeeping
	UseCount  int        `json:"use_count"`
	LastUsed  *time.Time `json:"last_used,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// ItemView is the portion of an item a particular viewer may see
type ItemView struct {
	Prompt   string            `json:"prompt,omitempty"`
	Category string            `json:"category,omitempty"`
	Choices  []string          `json:"choices,omitempty"`
	Answer   string            `json:"answer,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Length   int               `json:"length,omitempty"`
	Hidden   bool              `json:"hidden,omitempty"`
}

// FullView exposes everything about the item
func (i *Item) FullView() *ItemView {
	return &ItemView{
		Prompt:   i.Prompt,
		Category: i.Category,
		Choices:  i.Choices,
		Answer:   i.Answer,
		Metadata: i.Metadata,
	}
}

// CatalogStats summarises the catalog for one game type
type CatalogStats struct {
	GameType     GameType `json:"game_type"`
	TotalItems   int      `json:"total_items"`
	UnusedItems  int      `json:"unused_items"`
	NeedsRefetch bool     `json:"needs_refetch"`
}

// TransferToken carries room id and identity across page navigation
type TransferToken struct {
	Token     string    `json:"token"`
	RoomID    RoomID    `json:"room_id"`
	Identity  string    `json:"identity"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
