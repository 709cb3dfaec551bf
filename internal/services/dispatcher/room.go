package dispatcher

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mcoot/partygames/internal/model"
	"github.com/mcoot/partygames/internal/services/registry"
	"github.com/mcoot/partygames/internal/services/scheduler"
	"github.com/mcoot/partygames/internal/services/session"
)

// Events delivered to a room goroutine
type (
	createdEvent struct {
		conn registry.Conn
		host string
	}
	actionEvent struct {
		conn registry.Conn
		in   model.Inbound
	}
	disconnectEvent struct {
		conn     registry.Conn
		identity string
		moved    bool // Connection rebound elsewhere rather than closed
	}
	timerEvent struct {
		fire scheduler.Fire
	}
	itemEvent struct {
		item *model.Item
		err  error
	}
	validationEvent struct {
		round   int
		invalid map[string]map[string]string
		err     error
	}
	inspectEvent struct {
		fn   func(*session.Session)
		done chan struct{}
	}
)

// Turn timer purposes
const (
	tagReady    = "ready"    // Performer must ready up
	tagRound    = "round"    // Turn-based scored countdown
	tagQuestion = "question" // Trivia question countdown
	tagAdvance  = "advance"  // Delayed move to the next question
	tagBus      = "bus"      // Word race round countdown
)

// What the in-flight item fetch is for
type itemNeed int

const (
	needNone itemNeed = iota
	needStart
	needAssign
	needAdvance
)

// room owns one session. Everything below is touched only by run().
type room struct {
	m       *Manager
	id      model.RoomID
	usage   model.RoomID // Content usage key of this room instance
	session *session.Session
	logger  *slog.Logger

	inbox chan any
	done  chan struct{}

	// Content
	buffer   *model.Item
	custom   []string
	customN  int
	fetching bool
	need     itemNeed
	starter  registry.Conn

	// Turn timer state frozen by pause
	pausedTag       string
	pausedRemaining model.Seconds

	closed bool

	summaryMu sync.Mutex
	cached    model.RoomSummary
}

func newRoom(m *Manager, sess *session.Session) *room {
	r := &room{
		m:       m,
		id:      sess.ID(),
		usage:   model.RoomID(fmt.Sprintf("%s#%d", sess.ID(), m.instances.Add(1))),
		session: sess,
		logger:  m.logger.With(slog.String("room", string(sess.ID()))),
		inbox:   make(chan any, m.cfg.InboxSize),
		done:    make(chan struct{}),
		cached:  sess.Summary(),
	}
	if sess.Variant().TurnBased() {
		r.custom = append(r.custom, sess.Settings().CustomItems...)
		m.random.Shuffle(len(r.custom), func(i, j int) {
			r.custom[i], r.custom[j] = r.custom[j], r.custom[i]
		})
	}
	return r
}

// post queues an event. It reports false once the room has shut down.
// It must never be called from run(): a full inbox would block it forever.
func (r *room) post(ev any) bool {
	return r.postCtx(context.Background(), ev)
}

// postCtx is post that also gives up when ctx is done
func (r *room) postCtx(ctx context.Context, ev any) bool {
	select {
	case <-r.done:
		return false
	default:
	}
	select {
	case r.inbox <- ev:
		return true
	case <-r.done:
		return false
	case <-r.m.ctx.Done():
		return false
	case <-ctx.Done():
		return false
	}
}

// bind points conn at identity in this room. The returned func releases
// the connection's previous binding and runs once the action has replied.
func (r *room) bind(conn registry.Conn, identity string) func() {
	prev, moved := r.m.bind(conn, r.id, identity)
	if !moved {
		return func() {}
	}
	ev := disconnectEvent{conn: conn, identity: prev.identity, moved: true}
	if prev.room == r.id {
		return func() { r.onDisconnect(ev) }
	}
	return func() {
		if other, ok := r.m.room(prev.room); ok {
			go other.post(ev)
		}
	}
}

func (r *room) run() {
	defer close(r.done)
	for {
		select {
		case ev := <-r.inbox:
			r.handle(ev)
			if r.closed {
				return
			}
			r.publishSummary()
		case <-r.m.ctx.Done():
			return
		}
	}
}

func (r *room) handle(ev any) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("panic handling room event", slog.Any("panic", rec))
		}
	}()

	switch e := ev.(type) {
	case createdEvent:
		r.onCreated(e)
	case actionEvent:
		r.onAction(e)
	case disconnectEvent:
		r.onDisconnect(e)
	case timerEvent:
		r.onTimer(e.fire)
	case itemEvent:
		r.onItem(e)
	case validationEvent:
		r.onValidation(e)
	case inspectEvent:
		e.fn(r.session)
		close(e.done)
	}
}

func (r *room) summary() model.RoomSummary {
	r.summaryMu.Lock()
	defer r.summaryMu.Unlock()
	return r.cached
}

func (r *room) publishSummary() {
	s := r.session.Summary()
	r.summaryMu.Lock()
	r.cached = s
	r.summaryMu.Unlock()
}

// Delivery helpers

func (r *room) envelope(t model.EventType, payload any) model.Envelope {
	return model.Envelope{Type: t, RoomID: r.id, Timestamp: r.m.clock.Now(), Payload: payload}
}

func (r *room) broadcast(t model.EventType, payload any) {
	r.m.outbox.ToRoom(r.id, r.envelope(t, payload))
}

func (r *room) sendTo(identity string, t model.EventType, payload any) {
	r.m.outbox.ToPlayer(r.id, identity, r.envelope(t, payload))
}

func (r *room) reply(conn registry.Conn, t model.EventType, payload any) {
	r.m.outbox.ToConn(conn, r.envelope(t, payload))
}

func (r *room) reject(conn registry.Conn, action model.ActionType, err error) {
	r.logger.Debug("action rejected",
		slog.String("action", string(action)),
		slog.String("error", err.Error()))
	r.m.outbox.Reject(conn, action, err)
}

// sendExcept delivers privately to every roster member but one
func (r *room) sendExcept(except string, t model.EventType, payload any) {
	for _, name := range r.session.Names() {
		if name != except {
			r.sendTo(name, t, payload)
		}
	}
}

func (r *room) roomPayload(viewer string) model.RoomPayload {
	return model.RoomPayload{Room: r.session.Snapshot(viewer)}
}

// close destroys the room: one broadcast, then every timer, binding and
// usage record is released
func (r *room) close(reason string) {
	if r.closed {
		return
	}
	r.closed = true
	r.broadcast(model.EventRoomClosed, model.RoomClosedPayload{Reason: reason})

	r.m.scheduler.CleanupRoom(r.id)
	conns := r.m.registry.RemoveRoom(r.id)
	r.m.unbind(r.id, "", conns...)
	r.m.remove(r.id)

	go func(usage model.RoomID) {
		if err := r.m.items.CleanupRoom(r.m.ctx, usage); err != nil {
			r.logger.Warn("failed to clear room usage", slog.String("error", err.Error()))
		}
	}(r.usage)

	r.logger.Info("room closed", slog.String("reason", reason))
}
