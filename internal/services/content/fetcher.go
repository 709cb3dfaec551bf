package content

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/mcoot/partygames/internal/dependencies/clock"
	"github.com/mcoot/partygames/internal/model"
)

// Fetcher acquires new catalog items from some source
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context, gameType model.GameType, count int) ([]*model.Item, error)
}

// itemNamespace derives stable item ids from content, so refetching the
// same content upserts instead of duplicating
var itemNamespace = uuid.MustParse("6f1c1e0a-3c55-4c1a-9f57-5d8b6e0f2a11")

func itemID(gameType model.GameType, prompt string) model.ItemID {
	return model.ItemID(uuid.NewSHA1(itemNamespace, []byte(string(gameType)+"\x00"+prompt)).String())
}

//go:embed seed/items.json
var seedJSON []byte

type seedItem struct {
	Prompt   string            `json:"prompt"`
	Answer   string            `json:"answer,omitempty"`
	Choices  []string          `json:"choices,omitempty"`
	Category string            `json:"category,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// StaticFetcher serves the built-in seed catalog. It is the fallback when
// no other source produces content.
type StaticFetcher struct {
	clock clock.Clock
	seed  map[model.GameType][]seedItem
}

// NewStaticFetcher parses the embedded seed catalog
func NewStaticFetcher(clk clock.Clock) (*StaticFetcher, error) {
	var seed map[model.GameType][]seedItem
	if err := json.Unmarshal(seedJSON, &seed); err != nil {
		return nil, fmt.Errorf("parsing seed catalog: %w", err)
	}
	return &StaticFetcher{clock: clk, seed: seed}, nil
}

func (f *StaticFetcher) Name() string { return "static" }

// Fetch returns up to count seed items for the game type
func (f *StaticFetcher) Fetch(ctx context.Context, gameType model.GameType, count int) ([]*model.Item, error) {
	seeds := f.seed[gameType]
	if count > 0 && count < len(seeds) {
		seeds = seeds[:count]
	}
	now := f.clock.Now()
	items := make([]*model.Item, 0, len(seeds))
	for _, s := range seeds {
		items = append(items, &model.Item{
			ID:        itemID(gameType, s.Prompt),
			GameType:  gameType,
			Category:  s.Category,
			Prompt:    s.Prompt,
			Answer:    s.Answer,
			Choices:   s.Choices,
			Metadata:  s.Metadata,
			Source:    f.Name(),
			CreatedAt: now,
		})
	}
	return items, nil
}

var _ Fetcher = (*StaticFetcher)(nil)
