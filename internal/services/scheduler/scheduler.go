// Package scheduler is the per-room registry of cancellable delayed callbacks.
//
// Every armed timer carries a generation token. A fire is only acted upon if
// the receiver can Consume its token, which fails once the timer has been
// cancelled, replaced, cleaned up or already consumed. This makes cancel
// racing fire, and duplicate fires, harmless no-ops.
package scheduler

import (
	"log/slog"
	"sync"
	"time"

	"github.com/mcoot/partygames/internal/dependencies/clock"
	"github.com/mcoot/partygames/internal/model"
)

// Kind identifies the timer family
type Kind string

const (
	KindTurn Kind = "turn"
	KindHint Kind = "hint"
)

// Fire describes an elapsed (or armed) timer
type Fire struct {
	RoomID model.RoomID
	Kind   Kind
	Token  uint64
	Tag    string // Purpose of a turn timer, chosen by the caller
	Hint   int    // 1-based hint number for KindHint
	Armed  time.Time
}

// FireFunc receives fires. It runs on the clock's goroutine and must not block
// on the scheduler.
type FireFunc func(Fire)

// Counts is the number of pending timers of each family for one room
type Counts struct {
	TurnTimer  int `json:"turn_timer"`
	HintTimers int `json:"hint_timers"`
}

type entry struct {
	fire     Fire
	timer    clock.Timer
	deadline time.Time
}

type roomTimers struct {
	turn  *entry
	hints []*entry
}

// Scheduler manages turn and hint timers for all rooms
type Scheduler struct {
	clock  clock.Clock
	logger *slog.Logger

	mu        sync.Mutex
	rooms     map[model.RoomID]*roomTimers
	nextToken uint64
}

// New creates a Scheduler
func New(clk clock.Clock, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		clock:  clk,
		logger: logger.With(slog.String("component", "scheduler")),
		rooms:  make(map[model.RoomID]*roomTimers),
	}
}

// StartTurnTimer arms the room's turn timer, replacing any existing one
func (s *Scheduler) StartTurnTimer(roomID model.RoomID, d time.Duration, tag string, fn FireFunc) Fire {
	s.mu.Lock()
	defer s.mu.Unlock()

	rt := s.roomLocked(roomID)
	if rt.turn != nil {
		rt.turn.timer.Stop()
		rt.turn = nil
	}

	now := s.clock.Now()
	s.nextToken++
	fire := Fire{RoomID: roomID, Kind: KindTurn, Token: s.nextToken, Tag: tag, Armed: now}
	e := &entry{fire: fire, deadline: now.Add(d)}
	e.timer = s.clock.AfterFunc(d, func() { fn(fire) })
	rt.turn = e

	s.logger.Debug("turn timer armed",
		slog.String("room", string(roomID)),
		slog.String("tag", tag),
		slog.Duration("delay", d))
	return fire
}

// CancelTurnTimer stops the room's turn timer. It reports whether one was pending.
func (s *Scheduler) CancelTurnTimer(roomID model.RoomID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	rt, ok := s.rooms[roomID]
	if !ok || rt.turn == nil {
		return false
	}
	rt.turn.timer.Stop()
	rt.turn = nil
	s.pruneLocked(roomID, rt)
	return true
}

// TurnDeadline returns when the pending turn timer is due
func (s *Scheduler) TurnDeadline(roomID model.RoomID) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rt, ok := s.rooms[roomID]
	if !ok || rt.turn == nil {
		return time.Time{}, false
	}
	return rt.turn.deadline, true
}

// PendingTurn returns the pending turn timer and when it is due
func (s *Scheduler) PendingTurn(roomID model.RoomID) (Fire, time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rt, ok := s.rooms[roomID]
	if !ok || rt.turn == nil {
		return Fire{}, time.Time{}, false
	}
	return rt.turn.fire, rt.turn.deadline, true
}

// StartHintCycle arms one hint timer per delay, numbered from firstHint.
// Any existing hint cycle for the room is cancelled first.
func (s *Scheduler) StartHintCycle(roomID model.RoomID, delays []time.Duration, firstHint int, fn FireFunc) []Fire {
	s.mu.Lock()
	defer s.mu.Unlock()

	rt := s.roomLocked(roomID)
	s.cancelHintsLocked(rt)

	now := s.clock.Now()
	fires := make([]Fire, 0, len(delays))
	for i, d := range delays {
		s.nextToken++
		fire := Fire{RoomID: roomID, Kind: KindHint, Token: s.nextToken, Hint: firstHint + i, Armed: now}
		e := &entry{fire: fire, deadline: now.Add(d)}
		e.timer = s.clock.AfterFunc(d, func() { fn(fire) })
		rt.hints = append(rt.hints, e)
		fires = append(fires, fire)
	}
	s.pruneLocked(roomID, rt)
	return fires
}

// CancelHints stops every not-yet-consumed hint timer for the room
func (s *Scheduler) CancelHints(roomID model.RoomID) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	rt, ok := s.rooms[roomID]
	if !ok {
		return 0
	}
	n := s.cancelHintsLocked(rt)
	s.pruneLocked(roomID, rt)
	return n
}

// Consume claims a fire. It returns true exactly once per armed timer, and
// only while that timer is still the current one of its family.
func (s *Scheduler) Consume(f Fire) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	rt, ok := s.rooms[f.RoomID]
	if !ok {
		return false
	}

	switch f.Kind {
	case KindTurn:
		if rt.turn == nil || rt.turn.fire.Token != f.Token {
			return false
		}
		rt.turn = nil
	case KindHint:
		idx := -1
		for i, e := range rt.hints {
			if e.fire.Token == f.Token {
				idx = i
				break
			}
		}
		if idx < 0 {
			return false
		}
		rt.hints = append(rt.hints[:idx], rt.hints[idx+1:]...)
	default:
		return false
	}

	s.pruneLocked(f.RoomID, rt)
	return true
}

// CleanupRoom cancels both timer families and forgets the room. Safe to call
// repeatedly and for rooms that never had timers.
func (s *Scheduler) CleanupRoom(roomID model.RoomID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rt, ok := s.rooms[roomID]
	if !ok {
		return
	}
	if rt.turn != nil {
		rt.turn.timer.Stop()
	}
	s.cancelHintsLocked(rt)
	delete(s.rooms, roomID)
	s.logger.Debug("room timers cleaned up", slog.String("room", string(roomID)))
}

// ActiveTimers reports pending timer counts per room
func (s *Scheduler) ActiveTimers() map[model.RoomID]Counts {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make(map[model.RoomID]Counts, len(s.rooms))
	for id, rt := range s.rooms {
		c := Counts{HintTimers: len(rt.hints)}
		if rt.turn != nil {
			c.TurnTimer = 1
		}
		result[id] = c
	}
	return result
}

func (s *Scheduler) roomLocked(roomID model.RoomID) *roomTimers {
	rt, ok := s.rooms[roomID]
	if !ok {
		rt = &roomTimers{}
		s.rooms[roomID] = rt
	}
	return rt
}

func (s *Scheduler) cancelHintsLocked(rt *roomTimers) int {
	n := len(rt.hints)
	for _, e := range rt.hints {
		e.timer.Stop()
	}
	rt.hints = nil
	return n
}

func (s *Scheduler) pruneLocked(roomID model.RoomID, rt *roomTimers) {
	if rt.turn == nil && len(rt.hints) == 0 {
		delete(s.rooms, roomID)
	}
}
