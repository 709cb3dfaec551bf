package response

import (
	"time"

	"github.com/mcoot/partygames/internal/model"
)

// RoomList is the response for listing rooms
type RoomList struct {
	Rooms []model.RoomSummary `json:"rooms"`
}

// RoomTimers is the pending timer count of one room
type RoomTimers struct {
	RoomID     model.RoomID `json:"room_id"`
	TurnTimer  int          `json:"turn_timer"`
	HintTimers int          `json:"hint_timers"`
}

// TimerList is the response for the active timer endpoint
type TimerList struct {
	Timers []RoomTimers `json:"timers"`
}

// ContentStats is the response for catalog statistics
type ContentStats struct {
	Catalogs []model.CatalogStats `json:"catalogs"`
}

// Transfer is the response for an issued transfer token
type Transfer struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// TransferFromModel converts a model.TransferToken to a response Transfer
func TransferFromModel(t *model.TransferToken) Transfer {
	return Transfer{
		Token:     t.Token,
		ExpiresAt: t.ExpiresAt,
	}
}

// Redeemed is the response for a redeemed transfer token
type Redeemed struct {
	RoomID   model.RoomID `json:"room_id"`
	Identity string       `json:"identity"`
}
