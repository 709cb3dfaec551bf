package dispatcher

import (
	"context"

	"github.com/mcoot/partygames/internal/model"
	"github.com/mcoot/partygames/internal/services/registry"
)

// ItemSource supplies round content. Any failure means ErrContentUnavailable.
// The room id passed in is a usage key unique to one room instance.
type ItemSource interface {
	FetchNext(ctx context.Context, roomID model.RoomID, gameType model.GameType, category string) (*model.Item, error)
	CleanupRoom(ctx context.Context, roomID model.RoomID) error
}

// AnswerValidator checks word race answers, returning the invalid ones
// keyed by player then category
type AnswerValidator interface {
	Validate(ctx context.Context, submissions map[string]map[string]string) (map[string]map[string]string, error)
}

// Outbox delivers outbound envelopes. Implementations must not block the caller.
type Outbox interface {
	// ToRoom delivers to every connection bound in the room
	ToRoom(roomID model.RoomID, env model.Envelope)
	// ToPlayer delivers to the identity's most recently bound connection
	ToPlayer(roomID model.RoomID, identity string, env model.Envelope)
	// ToConn replies on one connection
	ToConn(conn registry.Conn, env model.Envelope)
	// Reject reports a failed action on the originating connection only
	Reject(conn registry.Conn, action model.ActionType, err error)
}
