// Package dispatcher routes player actions to rooms. Each room is owned by a
// single goroutine that validates and applies actions, timer fires and
// async results one at a time, in arrival order.
package dispatcher

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/mcoot/partygames/internal/dependencies/clock"
	"github.com/mcoot/partygames/internal/dependencies/random"
	"github.com/mcoot/partygames/internal/model"
	"github.com/mcoot/partygames/internal/services/registry"
	"github.com/mcoot/partygames/internal/services/scheduler"
	"github.com/mcoot/partygames/internal/services/session"
)

type binding struct {
	room     model.RoomID
	identity string
}

// Manager is the supervising registry of rooms. It only guards the room
// table; in-room state belongs to each room's goroutine.
type Manager struct {
	registry  *registry.Registry
	scheduler *scheduler.Scheduler
	items     ItemSource
	validator AnswerValidator
	outbox    Outbox
	clock     clock.Clock
	random    random.Random
	logger    *slog.Logger
	cfg       Config

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu    sync.RWMutex
	rooms map[model.RoomID]*room

	// Numbers room instances so a reused room id gets fresh content usage
	instances atomic.Uint64

	connMu sync.Mutex
	conns  map[string]binding
}

// NewManager creates a Manager. validator may be nil, in which case word
// race answers are never rejected.
func NewManager(
	reg *registry.Registry,
	sched *scheduler.Scheduler,
	items ItemSource,
	validator AnswerValidator,
	outbox Outbox,
	clock clock.Clock,
	random random.Random,
	logger *slog.Logger,
	cfg Config,
) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		registry:  reg,
		scheduler: sched,
		items:     items,
		validator: validator,
		outbox:    outbox,
		clock:     clock,
		random:    random,
		logger:    logger.With(slog.String("component", "dispatcher")),
		cfg:       cfg.withDefaults(),
		ctx:       ctx,
		cancel:    cancel,
		rooms:     make(map[model.RoomID]*room),
		conns:     make(map[string]binding),
	}
}

// Submit routes an inbound action from conn. Errors are reported to conn
// through the outbox, never returned.
func (m *Manager) Submit(conn registry.Conn, in model.Inbound) {
	if in.Type == model.ActionCreateRoom {
		m.create(conn, in)
		return
	}

	r, ok := m.room(in.RoomID)
	if !ok || !r.post(actionEvent{conn: conn, in: in}) {
		m.outbox.Reject(conn, in.Type, model.ErrRoomNotFound)
	}
}

// Disconnect reports that a transport connection has gone away
func (m *Manager) Disconnect(conn registry.Conn) {
	m.connMu.Lock()
	b, ok := m.conns[conn.ID()]
	m.connMu.Unlock()
	if !ok {
		return
	}
	if r, ok := m.room(b.room); ok {
		r.post(disconnectEvent{conn: conn, identity: b.identity})
	}
}

func (m *Manager) create(conn registry.Conn, in model.Inbound) {
	var payload model.CreateRoomPayload
	if len(in.Payload) > 0 {
		if err := json.Unmarshal(in.Payload, &payload); err != nil {
			m.outbox.Reject(conn, in.Type, model.ErrInvalidPayload)
			return
		}
	}
	if !payload.GameType.Valid() {
		m.outbox.Reject(conn, in.Type, model.ErrUnknownGameType)
		return
	}
	variant, err := session.NewVariant(payload.GameType, payload.Settings, m.random)
	if err != nil {
		m.outbox.Reject(conn, in.Type, err)
		return
	}
	sess, err := session.New(in.RoomID, in.Identity, payload.Avatar, payload.Settings, variant, m.clock)
	if err != nil {
		m.outbox.Reject(conn, in.Type, err)
		return
	}

	m.mu.Lock()
	if _, exists := m.rooms[in.RoomID]; exists {
		m.mu.Unlock()
		m.outbox.Reject(conn, in.Type, model.ErrRoomExists)
		return
	}
	r := newRoom(m, sess)
	m.rooms[in.RoomID] = r
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		r.run()
	}()
	r.post(createdEvent{conn: conn, host: in.Identity})

	m.logger.Info("room created",
		slog.String("room", string(in.RoomID)),
		slog.String("game_type", string(payload.GameType)),
		slog.String("host", in.Identity))
}

// List returns a summary of every open room, sorted by id
func (m *Manager) List() []model.RoomSummary {
	m.mu.RLock()
	rooms := make([]*room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	m.mu.RUnlock()

	summaries := make([]model.RoomSummary, 0, len(rooms))
	for _, r := range rooms {
		summaries = append(summaries, r.summary())
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].ID < summaries[j].ID })
	return summaries
}

// Count returns the number of open rooms
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms)
}

// Snapshot returns the room as seen by viewer; an empty viewer gets the public view
func (m *Manager) Snapshot(ctx context.Context, roomID model.RoomID, viewer string) (model.RoomState, error) {
	var state model.RoomState
	err := m.Inspect(ctx, roomID, func(s *session.Session) {
		state = s.Snapshot(viewer)
	})
	return state, err
}

// IsMember reports whether identity is on the room's roster
func (m *Manager) IsMember(ctx context.Context, roomID model.RoomID, identity string) (bool, error) {
	var member bool
	err := m.Inspect(ctx, roomID, func(s *session.Session) {
		member = s.Has(identity)
	})
	return member, err
}

// Inspect runs fn on the room's goroutine and waits for it. fn must not
// retain the session.
func (m *Manager) Inspect(ctx context.Context, roomID model.RoomID, fn func(*session.Session)) error {
	r, ok := m.room(roomID)
	if !ok {
		return model.ErrRoomNotFound
	}
	done := make(chan struct{})
	if !r.postCtx(ctx, inspectEvent{fn: fn, done: done}) {
		if err := ctx.Err(); err != nil {
			return err
		}
		return model.ErrRoomNotFound
	}
	select {
	case <-done:
		return nil
	case <-r.done:
		return model.ErrRoomNotFound
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops every room goroutine and cancels all timers
func (m *Manager) Shutdown() {
	m.cancel()
	m.wg.Wait()

	m.mu.Lock()
	defer m.mu.Unlock()
	for id := range m.rooms {
		m.scheduler.CleanupRoom(id)
		delete(m.rooms, id)
	}
	m.logger.Info("dispatcher stopped")
}

func (m *Manager) room(roomID model.RoomID) (*room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[roomID]
	return r, ok
}

func (m *Manager) remove(roomID model.RoomID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rooms, roomID)
}

// bind records which room and identity a connection speaks for. It returns
// the binding the connection held before when that one differs.
func (m *Manager) bind(conn registry.Conn, roomID model.RoomID, identity string) (binding, bool) {
	m.registry.Bind(roomID, identity, conn)

	m.connMu.Lock()
	prev, had := m.conns[conn.ID()]
	next := binding{room: roomID, identity: identity}
	m.conns[conn.ID()] = next
	m.connMu.Unlock()

	return prev, had && prev != next
}

// unbind forgets conns, but only where they still speak for roomID/identity
func (m *Manager) unbind(roomID model.RoomID, identity string, conns ...registry.Conn) {
	m.connMu.Lock()
	defer m.connMu.Unlock()
	for _, c := range conns {
		if b, ok := m.conns[c.ID()]; ok && b.room == roomID && (identity == "" || b.identity == identity) {
			delete(m.conns, c.ID())
		}
	}
}

// authenticated reports whether conn is bound to the identity and room it claims
func (m *Manager) authenticated(conn registry.Conn, roomID model.RoomID, identity string) bool {
	m.connMu.Lock()
	defer m.connMu.Unlock()
	b, ok := m.conns[conn.ID()]
	return ok && b.room == roomID && b.identity == identity
}
