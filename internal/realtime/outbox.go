package realtime

import (
	"encoding/json"
	"log/slog"

	"github.com/mcoot/partygames/internal/api/apierr"
	"github.com/mcoot/partygames/internal/dependencies/clock"
	"github.com/mcoot/partygames/internal/model"
	"github.com/mcoot/partygames/internal/services/dispatcher"
	"github.com/mcoot/partygames/internal/services/registry"
)

// Outbox encodes envelopes and delivers them through the connection registry.
// Room-wide events are mirrored to spectators.
type Outbox struct {
	registry   *registry.Registry
	spectators *Spectators
	clock      clock.Clock
	logger     *slog.Logger
}

var _ dispatcher.Outbox = (*Outbox)(nil)

// NewOutbox creates an Outbox. spectators may be nil.
func NewOutbox(reg *registry.Registry, spectators *Spectators, clk clock.Clock, logger *slog.Logger) *Outbox {
	return &Outbox{
		registry:   reg,
		spectators: spectators,
		clock:      clk,
		logger:     logger.With(slog.String("component", "outbox")),
	}
}

// ToRoom delivers to every connection bound in the room
func (o *Outbox) ToRoom(roomID model.RoomID, env model.Envelope) {
	data, ok := o.encode(env)
	if !ok {
		return
	}
	for _, c := range o.registry.RoomConnections(roomID) {
		c.Send(data)
	}
	if o.spectators == nil {
		return
	}
	o.spectators.Publish(roomID, env.Type, data)
	if env.Type == model.EventRoomClosed {
		o.spectators.Remove(roomID)
	}
}

// ToPlayer delivers to the identity's most recently bound connection
func (o *Outbox) ToPlayer(roomID model.RoomID, identity string, env model.Envelope) {
	conn, ok := o.registry.Resolve(roomID, identity)
	if !ok {
		return
	}
	o.ToConn(conn, env)
}

// ToConn replies on one connection
func (o *Outbox) ToConn(conn registry.Conn, env model.Envelope) {
	if data, ok := o.encode(env); ok {
		conn.Send(data)
	}
}

// Reject sends a private error envelope with the API error code
func (o *Outbox) Reject(conn registry.Conn, action model.ActionType, err error) {
	_, apiErr := apierr.Lookup(err)
	o.ToConn(conn, model.Envelope{
		Type:      model.EventError,
		Timestamp: o.clock.Now(),
		Payload: model.ErrorPayload{
			Code:    apiErr.Code,
			Message: apiErr.Message,
			Action:  action,
		},
	})
}

func (o *Outbox) encode(env model.Envelope) ([]byte, bool) {
	data, err := json.Marshal(env)
	if err != nil {
		o.logger.Error("failed to encode envelope",
			slog.String("type", string(env.Type)),
			slog.String("error", err.Error()))
		return nil, false
	}
	return data, true
}
