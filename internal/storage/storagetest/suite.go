// Package storagetest holds the behaviour every storage backend must share.
package storagetest

import (
	"context"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/partygames/internal/model"
	"github.com/mcoot/partygames/internal/storage"
)

// Suite is embedded by each backend's test suite, which sets Storage and Ctx in SetupTest
type Suite struct {
	suite.Suite
	Storage storage.Storage
	Ctx     context.Context
}

var created = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func newItem(id string, gameType model.GameType) *model.Item {
	return &model.Item{
		ID:        model.ItemID(id),
		GameType:  gameType,
		Prompt:    "prompt " + id,
		CreatedAt: created,
	}
}

// Item tests

func (s *Suite) TestSaveAndGetItem() {
	item := newItem("i1", model.GameCharades)
	item.Metadata = map[string]string{"year": "1999"}
	s.Require().NoError(s.Storage.SaveItems(s.Ctx, []*model.Item{item}))

	got, err := s.Storage.GetItem(s.Ctx, "i1")
	s.Require().NoError(err)
	s.Equal("prompt i1", got.Prompt)
	s.Equal("1999", got.Metadata["year"])
	s.Equal(0, got.UseCount)
}

func (s *Suite) TestGetItemNotFound() {
	_, err := s.Storage.GetItem(s.Ctx, "missing")
	s.ErrorIs(err, model.ErrItemNotFound)
}

func (s *Suite) TestListItemsFiltersByType() {
	s.Require().NoError(s.Storage.SaveItems(s.Ctx, []*model.Item{
		newItem("b", model.GameCharades),
		newItem("a", model.GameCharades),
		newItem("q", model.GameTrivia),
	}))

	items, err := s.Storage.ListItems(s.Ctx, model.GameCharades)
	s.Require().NoError(err)
	s.Require().Len(items, 2)
	s.Equal(model.ItemID("a"), items[0].ID)
	s.Equal(model.ItemID("b"), items[1].ID)

	n, err := s.Storage.CountItems(s.Ctx, model.GameTrivia)
	s.Require().NoError(err)
	s.Equal(1, n)

	n, err = s.Storage.CountItems(s.Ctx, model.GamePictionary)
	s.Require().NoError(err)
	s.Equal(0, n)
}

func (s *Suite) TestSaveItemsUpserts() {
	item := newItem("i1", model.GameCharades)
	s.Require().NoError(s.Storage.SaveItems(s.Ctx, []*model.Item{item}))
	item.Prompt = "changed"
	s.Require().NoError(s.Storage.SaveItems(s.Ctx, []*model.Item{item}))

	n, _ := s.Storage.CountItems(s.Ctx, model.GameCharades)
	s.Equal(1, n)
	got, _ := s.Storage.GetItem(s.Ctx, "i1")
	s.Equal("changed", got.Prompt)
}

func (s *Suite) TestMarkItemUsed() {
	s.Require().NoError(s.Storage.SaveItems(s.Ctx, []*model.Item{newItem("i1", model.GameCharades)}))
	at := created.Add(time.Hour)

	s.Require().NoError(s.Storage.MarkItemUsed(s.Ctx, "i1", at))
	s.Require().NoError(s.Storage.MarkItemUsed(s.Ctx, "i1", at))

	got, err := s.Storage.GetItem(s.Ctx, "i1")
	s.Require().NoError(err)
	s.Equal(2, got.UseCount)
	s.Require().NotNil(got.LastUsed)
	s.True(at.Equal(*got.LastUsed))

	s.ErrorIs(s.Storage.MarkItemUsed(s.Ctx, "missing", at), model.ErrItemNotFound)
}

// Room usage tests

func (s *Suite) TestRoomUsage() {
	s.Require().NoError(s.Storage.AddRoomUsage(s.Ctx, "room", "b"))
	s.Require().NoError(s.Storage.AddRoomUsage(s.Ctx, "room", "a"))
	s.Require().NoError(s.Storage.AddRoomUsage(s.Ctx, "room", "a"))
	s.Require().NoError(s.Storage.AddRoomUsage(s.Ctx, "other", "c"))

	used, err := s.Storage.GetRoomUsage(s.Ctx, "room")
	s.Require().NoError(err)
	s.Equal([]model.ItemID{"a", "b"}, used)

	s.Require().NoError(s.Storage.ClearRoomUsage(s.Ctx, "room"))
	used, err = s.Storage.GetRoomUsage(s.Ctx, "room")
	s.Require().NoError(err)
	s.Empty(used)

	used, _ = s.Storage.GetRoomUsage(s.Ctx, "other")
	s.Len(used, 1)
}

func (s *Suite) TestClearUnknownRoomUsage() {
	s.NoError(s.Storage.ClearRoomUsage(s.Ctx, "never-used"))
}

// Dictionary tests

func (s *Suite) TestDictionaryRoundTrip() {
	s.Require().NoError(s.Storage.SaveDictionaryWords(s.Ctx, "animal", []string{"dog", "cat"}))
	s.Require().NoError(s.Storage.SaveDictionaryWords(s.Ctx, storage.GeneralDictionary, []string{"table"}))

	words, err := s.Storage.GetDictionaryWords(s.Ctx, "animal")
	s.Require().NoError(err)
	s.ElementsMatch([]string{"cat", "dog"}, words)

	cats, err := s.Storage.ListDictionaryCategories(s.Ctx)
	s.Require().NoError(err)
	s.ElementsMatch([]string{"animal", storage.GeneralDictionary}, cats)
}

func (s *Suite) TestDictionaryReplace() {
	s.Require().NoError(s.Storage.SaveDictionaryWords(s.Ctx, "animal", []string{"dog"}))
	s.Require().NoError(s.Storage.SaveDictionaryWords(s.Ctx, "animal", []string{"emu"}))

	words, err := s.Storage.GetDictionaryWords(s.Ctx, "animal")
	s.Require().NoError(err)
	s.Equal([]string{"emu"}, words)
}

func (s *Suite) TestDictionaryNotLoaded() {
	_, err := s.Storage.GetDictionaryWords(s.Ctx, "plant")
	s.ErrorIs(err, model.ErrDictionaryNotLoaded)
}

// Transfer token tests

func (s *Suite) TestTransferTokenIsSingleUse() {
	token := &model.TransferToken{
		Token:     "tok",
		RoomID:    "1234",
		Identity:  "Alice",
		CreatedAt: created,
		ExpiresAt: created.Add(5 * time.Minute),
	}
	s.Require().NoError(s.Storage.SaveTransferToken(s.Ctx, token))

	got, err := s.Storage.ConsumeTransferToken(s.Ctx, "tok")
	s.Require().NoError(err)
	s.Equal(model.RoomID("1234"), got.RoomID)
	s.Equal("Alice", got.Identity)

	_, err = s.Storage.ConsumeTransferToken(s.Ctx, "tok")
	s.ErrorIs(err, model.ErrTransferTokenInvalid)
}

func (s *Suite) TestConsumeUnknownToken() {
	_, err := s.Storage.ConsumeTransferToken(s.Ctx, "nope")
	s.ErrorIs(err, model.ErrTransferTokenInvalid)
}
