package dispatcher

import (
	"context"
	"fmt"
	"sync"

	"github.com/mcoot/partygames/internal/model"
	"github.com/mcoot/partygames/internal/services/registry"
)

type fakeConn struct {
	id string
}

var _ registry.Conn = (*fakeConn)(nil)

func (c *fakeConn) ID() string         { return c.id }
func (c *fakeConn) Send(_ []byte) bool { return true }
func (c *fakeConn) Close()             {}

type sent struct {
	target string // room:<id>, player:<identity> or conn:<id>
	env    model.Envelope
}

type rejection struct {
	conn   string
	action model.ActionType
	err    error
}

// recordingOutbox keeps everything the rooms try to deliver
type recordingOutbox struct {
	mu       sync.Mutex
	sent     []sent
	rejected []rejection
}

var _ Outbox = (*recordingOutbox)(nil)

func (o *recordingOutbox) record(target string, env model.Envelope) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, sent{target: target, env: env})
}

func (o *recordingOutbox) ToRoom(roomID model.RoomID, env model.Envelope) {
	o.record("room:"+string(roomID), env)
}

func (o *recordingOutbox) ToPlayer(_ model.RoomID, identity string, env model.Envelope) {
	o.record("player:"+identity, env)
}

func (o *recordingOutbox) ToConn(conn registry.Conn, env model.Envelope) {
	o.record("conn:"+conn.ID(), env)
}

func (o *recordingOutbox) Reject(conn registry.Conn, action model.ActionType, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rejected = append(o.rejected, rejection{conn: conn.ID(), action: action, err: err})
}

// events returns the envelopes of type t sent to target, oldest first
func (o *recordingOutbox) events(target string, t model.EventType) []model.Envelope {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []model.Envelope
	for _, s := range o.sent {
		if s.target == target && s.env.Type == t {
			out = append(out, s.env)
		}
	}
	return out
}

// anywhere returns envelopes of type t regardless of target
func (o *recordingOutbox) anywhere(t model.EventType) []sent {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []sent
	for _, s := range o.sent {
		if s.env.Type == t {
			out = append(out, s)
		}
	}
	return out
}

func (o *recordingOutbox) rejections(connID string) []rejection {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []rejection
	for _, r := range o.rejected {
		if r.conn == connID {
			out = append(out, r)
		}
	}
	return out
}

func (o *recordingOutbox) reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = nil
	o.rejected = nil
}

// fakeItems hands out numbered items. With a gate set, fetches wait for it.
type fakeItems struct {
	mu      sync.Mutex
	next    int
	fail    bool
	gate    chan struct{}
	calls   int
	fetched []model.RoomID
	cleaned []model.RoomID
}

var _ ItemSource = (*fakeItems)(nil)

func (f *fakeItems) FetchNext(ctx context.Context, roomID model.RoomID, gameType model.GameType, category string) (*model.Item, error) {
	f.mu.Lock()
	f.calls++
	f.fetched = append(f.fetched, roomID)
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return nil, fmt.Errorf("%w: catalog is empty", model.ErrContentUnavailable)
	}
	f.next++
	return &model.Item{
		ID:       model.ItemID(fmt.Sprintf("item-%d", f.next)),
		GameType: gameType,
		Category: category,
		Prompt:   fmt.Sprintf("prompt %d", f.next),
		Answer:   fmt.Sprintf("answer %d", f.next),
	}, nil
}

func (f *fakeItems) CleanupRoom(_ context.Context, roomID model.RoomID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleaned = append(f.cleaned, roomID)
	return nil
}

func (f *fakeItems) setFail(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = fail
}

func (f *fakeItems) cleanedRooms() []model.RoomID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.RoomID(nil), f.cleaned...)
}

type fakeValidator struct {
	invalid map[string]map[string]string
	err     error
}

var _ AnswerValidator = (*fakeValidator)(nil)

func (v *fakeValidator) Validate(_ context.Context, _ map[string]map[string]string) (map[string]map[string]string, error) {
	return v.invalid, v.err
}

func (f *fakeItems) fetchedRooms() []model.RoomID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.RoomID(nil), f.fetched...)
}
