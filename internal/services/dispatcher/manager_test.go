package dispatcher

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/partygames/internal/dependencies/mocks"
	"github.com/mcoot/partygames/internal/model"
	"github.com/mcoot/partygames/internal/services/registry"
	"github.com/mcoot/partygames/internal/services/scheduler"
	"github.com/mcoot/partygames/internal/services/session"
	"github.com/mcoot/partygames/internal/testutil"
)

type ManagerSuite struct {
	suite.Suite
	clock     *mocks.MockClock
	random    *mocks.MockRandom
	registry  *registry.Registry
	scheduler *scheduler.Scheduler
	items     *fakeItems
	validator *fakeValidator
	outbox    *recordingOutbox
	manager   *Manager
	conns     map[string]*fakeConn
}

func TestManagerSuite(t *testing.T) {
	suite.Run(t, new(ManagerSuite))
}

func (s *ManagerSuite) SetupTest() {
	s.build(DefaultConfig())
}

func (s *ManagerSuite) TearDownTest() {
	s.manager.Shutdown()
}

func (s *ManagerSuite) build(cfg Config) {
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.random = mocks.NewMockRandom()
	s.registry = registry.New()
	s.scheduler = scheduler.New(s.clock, testutil.NopLogger())
	s.items = &fakeItems{}
	s.validator = &fakeValidator{}
	s.outbox = &recordingOutbox{}
	s.conns = make(map[string]*fakeConn)
	s.manager = NewManager(s.registry, s.scheduler, s.items, s.validator, s.outbox, s.clock, s.random, testutil.NopLogger(), cfg)
}

func (s *ManagerSuite) rebuild(cfg Config) {
	s.manager.Shutdown()
	s.build(cfg)
}

// Helpers

func (s *ManagerSuite) conn(name string) *fakeConn {
	c, ok := s.conns[name]
	if !ok {
		c = &fakeConn{id: "conn-" + name}
		s.conns[name] = c
	}
	return c
}

func (s *ManagerSuite) sendAs(c *fakeConn, identity string, action model.ActionType, roomID model.RoomID, payload any) {
	in := model.Inbound{Type: action, RoomID: roomID, Identity: identity}
	if payload != nil {
		raw, err := json.Marshal(payload)
		s.Require().NoError(err)
		in.Payload = raw
	}
	s.manager.Submit(c, in)
}

func (s *ManagerSuite) send(name string, action model.ActionType, roomID model.RoomID, payload any) {
	s.sendAs(s.conn(name), name, action, roomID, payload)
	s.settle(roomID)
}

// barrier waits until every event queued for the room so far is handled
func (s *ManagerSuite) barrier(roomID model.RoomID) {
	_ = s.manager.Inspect(context.Background(), roomID, func(*session.Session) {})
}

// settle waits until the room has no item fetch in flight
func (s *ManagerSuite) settle(roomID model.RoomID) {
	s.Require().Eventually(func() bool {
		r, ok := s.manager.room(roomID)
		if !ok {
			return true
		}
		idle := false
		if err := s.manager.Inspect(context.Background(), roomID, func(*session.Session) {
			idle = !r.fetching
		}); err != nil {
			return true
		}
		return idle
	}, time.Second, time.Millisecond)
}

func (s *ManagerSuite) advance(roomID model.RoomID, d time.Duration) {
	s.clock.Advance(d)
	s.settle(roomID)
}

func (s *ManagerSuite) create(roomID model.RoomID, host string, gameType model.GameType, settings model.Settings) {
	s.send(host, model.ActionCreateRoom, roomID, model.CreateRoomPayload{GameType: gameType, Settings: settings})
	s.Require().Len(s.outbox.events("conn:"+s.conn(host).ID(), model.EventRoomCreated), 1)
}

func (s *ManagerSuite) join(roomID model.RoomID, names ...string) {
	for _, name := range names {
		s.send(name, model.ActionJoinRoom, roomID, nil)
		s.Require().Empty(s.outbox.rejections(s.conn(name).ID()), "join %s", name)
	}
}

// started creates a room with the given players and starts the game
func (s *ManagerSuite) started(roomID model.RoomID, gameType model.GameType, settings model.Settings, players ...string) {
	s.create(roomID, players[0], gameType, settings)
	s.join(roomID, players[1:]...)
	s.send(players[0], model.ActionStartGame, roomID, nil)
	s.Require().Len(s.outbox.events("room:"+string(roomID), model.EventGameStarted), 1)
}

func (s *ManagerSuite) state(roomID model.RoomID) model.RoomState {
	state, err := s.manager.Snapshot(context.Background(), roomID, "")
	s.Require().NoError(err)
	return state
}

func (s *ManagerSuite) lastRejection(name string) rejection {
	rejected := s.outbox.rejections(s.conn(name).ID())
	s.Require().NotEmpty(rejected, "expected a rejection for %s", name)
	return rejected[len(rejected)-1]
}

func (s *ManagerSuite) assigned(name string) []string {
	var prompts []string
	for _, env := range s.outbox.events("player:"+name, model.EventItemAssigned) {
		prompts = append(prompts, env.Payload.(model.ItemAssignedPayload).Item.Prompt)
	}
	return prompts
}

// Room lifecycle

func (s *ManagerSuite) TestCreateRoom() {
	s.create("1234", "Alice", model.GameCharades, model.Settings{})

	created := s.outbox.events("conn:conn-Alice", model.EventRoomCreated)[0].Payload.(model.RoomPayload)
	s.Equal(model.RoomID("1234"), created.Room.ID)
	s.Equal(model.StatusWaiting, created.Room.Status)
	s.Equal([]model.Player{{Name: "Alice", IsHost: true}}, created.Room.Players)
	s.Equal("Alice", created.Room.Host)

	s.Equal(1, s.manager.Count())
	summaries := s.manager.List()
	s.Require().Len(summaries, 1)
	s.Equal(1, summaries[0].PlayerCount)
	s.Equal(model.GameCharades, summaries[0].GameType)

	conn, ok := s.registry.Resolve("1234", "Alice")
	s.Require().True(ok)
	s.Equal("conn-Alice", conn.ID())
}

func (s *ManagerSuite) TestCreateRoomErrors() {
	s.create("1234", "Alice", model.GameCharades, model.Settings{})

	s.send("Bob", model.ActionCreateRoom, "1234", model.CreateRoomPayload{GameType: model.GameTrivia})
	s.ErrorIs(s.lastRejection("Bob").err, model.ErrRoomExists)

	s.send("Bob", model.ActionCreateRoom, "5678", model.CreateRoomPayload{GameType: "chess"})
	s.ErrorIs(s.lastRejection("Bob").err, model.ErrUnknownGameType)

	s.manager.Submit(s.conn("Bob"), model.Inbound{
		Type:     model.ActionCreateRoom,
		RoomID:   "5678",
		Identity: "Bob",
		Payload:  json.RawMessage(`{"game_type":`),
	})
	s.ErrorIs(s.lastRejection("Bob").err, model.ErrInvalidPayload)

	s.send("Bob", model.ActionCreateRoom, "", model.CreateRoomPayload{GameType: model.GameTrivia})
	s.ErrorIs(s.lastRejection("Bob").err, model.ErrInvalidRoomID)

	s.Equal(1, s.manager.Count())
}

func (s *ManagerSuite) TestJoinRoom() {
	s.create("1234", "Alice", model.GameCharades, model.Settings{})
	s.join("1234", "Bob")

	joined := s.outbox.events("conn:conn-Bob", model.EventJoined)
	s.Require().Len(joined, 1)
	s.Equal(model.RoomID("1234"), joined[0].Payload.(model.RoomPayload).Room.ID)

	roster := s.outbox.events("room:1234", model.EventRosterUpdated)
	s.Require().Len(roster, 1)
	s.Equal([]model.Player{{Name: "Alice", IsHost: true}, {Name: "Bob"}}, roster[0].Payload.(model.RosterPayload).Players)
	s.Equal("Alice", roster[0].Payload.(model.RosterPayload).Host)
}

func (s *ManagerSuite) TestJoinRoomErrors() {
	s.send("Dave", model.ActionJoinRoom, "nope", nil)
	s.ErrorIs(s.lastRejection("Dave").err, model.ErrRoomNotFound)

	s.create("1234", "Alice", model.GameCharades, model.Settings{})
	s.sendAs(&fakeConn{id: "conn-Alice-2"}, "Alice", model.ActionJoinRoom, "1234", nil)
	s.barrier("1234")
	s.Require().Len(s.outbox.rejections("conn-Alice-2"), 1)
	s.ErrorIs(s.outbox.rejections("conn-Alice-2")[0].err, model.ErrDuplicateName)

	s.join("1234", "Bob")
	s.send("Alice", model.ActionStartGame, "1234", nil)

	s.send("Carol", model.ActionJoinRoom, "1234", nil)
	s.ErrorIs(s.lastRejection("Carol").err, model.ErrGameAlreadyStarted)
}

func (s *ManagerSuite) TestRoomFull() {
	s.create("1234", "P0", model.GameCharades, model.Settings{})
	for _, name := range []string{"P1", "P2", "P3", "P4", "P5", "P6", "P7"} {
		s.join("1234", name)
	}
	s.send("P8", model.ActionJoinRoom, "1234", nil)
	s.ErrorIs(s.lastRejection("P8").err, model.ErrRoomFull)
}

func (s *ManagerSuite) TestActionsRequireBoundConnection() {
	s.create("1234", "Alice", model.GameCharades, model.Settings{})
	s.join("1234", "Bob")

	s.sendAs(s.conn("Mallory"), "Alice", model.ActionStartGame, "1234", nil)
	s.barrier("1234")
	s.ErrorIs(s.lastRejection("Mallory").err, model.ErrNotInRoom)

	s.sendAs(s.conn("Bob"), "Alice", model.ActionStartGame, "1234", nil)
	s.barrier("1234")
	s.ErrorIs(s.lastRejection("Bob").err, model.ErrNotInRoom)

	s.Equal(model.StatusWaiting, s.state("1234").Status)
	s.send("Bob", model.ActionReady, "nope", nil)
	s.ErrorIs(s.lastRejection("Bob").err, model.ErrRoomNotFound)
}

func (s *ManagerSuite) TestRequestState() {
	s.started("1234", model.GameCharades, model.Settings{}, "Alice", "Bob")

	s.send("Bob", model.ActionRequestState, "1234", nil)
	states := s.outbox.events("conn:conn-Bob", model.EventState)
	s.Require().Len(states, 1)
	room := states[0].Payload.(model.RoomPayload).Room
	s.Equal("Alice", room.CurrentTurn)
	s.Require().NotNil(room.Item)
	s.True(room.Item.Hidden)
	s.Empty(room.Item.Prompt)

	s.send("Alice", model.ActionRequestState, "1234", nil)
	room = s.outbox.events("conn:conn-Alice", model.EventState)[0].Payload.(model.RoomPayload).Room
	s.Equal("prompt 1", room.Item.Prompt)
}

func (s *ManagerSuite) TestCloseRoom() {
	s.create("1234", "Alice", model.GameCharades, model.Settings{})
	s.join("1234", "Bob")

	s.send("Bob", model.ActionCloseRoom, "1234", nil)
	s.ErrorIs(s.lastRejection("Bob").err, model.ErrNotHost)

	s.send("Alice", model.ActionCloseRoom, "1234", nil)
	closed := s.outbox.events("room:1234", model.EventRoomClosed)
	s.Require().Len(closed, 1)
	s.Equal("closed by host", closed[0].Payload.(model.RoomClosedPayload).Reason)
	s.Equal(0, s.manager.Count())
	s.Empty(s.registry.RoomConnections("1234"))

	s.Eventually(func() bool {
		return len(s.items.cleanedRooms()) == 1
	}, time.Second, time.Millisecond)

	s.send("Bob", model.ActionRequestState, "1234", nil)
	s.ErrorIs(s.lastRejection("Bob").err, model.ErrRoomNotFound)
}

func (s *ManagerSuite) TestLastPlayerLeavingClosesRoom() {
	s.create("1234", "Alice", model.GameCharades, model.Settings{})
	s.send("Alice", model.ActionLeaveRoom, "1234", nil)

	s.Len(s.outbox.events("conn:conn-Alice", model.EventPlayerLeft), 1)
	s.Len(s.outbox.events("room:1234", model.EventRoomClosed), 1)
	s.Equal(0, s.manager.Count())
}

// Game flow

// Alice creates and Bob joins; only the performer sees the item
func (s *ManagerSuite) TestStartGame() {
	s.started("1234", model.GameCharades, model.Settings{}, "Alice", "Bob")

	started := s.outbox.events("room:1234", model.EventGameStarted)[0].Payload.(model.GameStartedPayload)
	s.Equal("Alice", started.CurrentTurn)
	s.Equal(model.StatusPlaying, started.Status)
	s.Equal(map[string]int{"Alice": 0, "Bob": 0}, started.Scores)

	s.Equal([]string{"prompt 1"}, s.assigned("Alice"))
	s.Empty(s.assigned("Bob"))

	fire, _, ok := s.scheduler.PendingTurn("1234")
	s.Require().True(ok)
	s.Equal(tagReady, fire.Tag)
}

func (s *ManagerSuite) TestStartGameErrors() {
	s.create("1234", "Alice", model.GameCharades, model.Settings{})

	s.send("Alice", model.ActionStartGame, "1234", nil)
	s.ErrorIs(s.lastRejection("Alice").err, model.ErrNotEnoughPlayers)

	s.join("1234", "Bob")
	s.send("Bob", model.ActionStartGame, "1234", nil)
	s.ErrorIs(s.lastRejection("Bob").err, model.ErrNotHost)

	s.send("Alice", model.ActionStartGame, "1234", nil)
	s.send("Alice", model.ActionStartGame, "1234", nil)
	s.ErrorIs(s.lastRejection("Alice").err, model.ErrGameAlreadyStarted)
}

func (s *ManagerSuite) TestStartWaitsForContent() {
	gate := make(chan struct{})
	s.items.gate = gate

	s.sendAs(s.conn("Alice"), "Alice", model.ActionCreateRoom, "1234", model.CreateRoomPayload{GameType: model.GameCharades})
	s.barrier("1234")
	s.sendAs(s.conn("Bob"), "Bob", model.ActionJoinRoom, "1234", nil)
	s.sendAs(s.conn("Alice"), "Alice", model.ActionStartGame, "1234", nil)
	s.barrier("1234")

	s.Empty(s.outbox.events("room:1234", model.EventGameStarted))
	s.Equal(model.StatusWaiting, s.state("1234").Status)

	close(gate)
	s.settle("1234")

	s.Len(s.outbox.events("room:1234", model.EventGameStarted), 1)
	s.Equal([]string{"prompt 1"}, s.assigned("Alice"))
	s.Empty(s.outbox.rejections("conn-Alice"))
}

func (s *ManagerSuite) TestStartFailsWithoutContent() {
	s.items.setFail(true)
	s.create("1234", "Alice", model.GameCharades, model.Settings{})
	s.join("1234", "Bob")

	s.send("Alice", model.ActionStartGame, "1234", nil)
	rejected := s.lastRejection("Alice")
	s.Equal(model.ActionStartGame, rejected.action)
	s.ErrorIs(rejected.err, model.ErrContentUnavailable)
	s.Equal(model.StatusWaiting, s.state("1234").Status)
	s.Empty(s.outbox.events("room:1234", model.EventGameStarted))
}

// Alice readies, Bob guesses after 45s, both score and the turn moves on
func (s *ManagerSuite) TestCorrectGuessAdvancesTurn() {
	s.started("1234", model.GameCharades, model.Settings{}, "Alice", "Bob")

	s.send("Alice", model.ActionReady, "1234", nil)
	active := s.outbox.events("room:1234", model.EventRoundActive)
	s.Require().Len(active, 1)
	s.Equal(model.Seconds(120*time.Second), active[0].Payload.(model.RoundActivePayload).Duration)

	s.advance("1234", 45*time.Second)
	s.send("Alice", model.ActionCorrectGuess, "1234", model.CorrectGuessPayload{Guesser: "Bob"})

	updates := s.outbox.events("room:1234", model.EventScoreUpdate)
	s.Require().Len(updates, 1)
	update := updates[0].Payload.(model.ScoreUpdatePayload)
	s.Equal("Alice", update.Performer)
	s.Equal("Bob", update.Guesser)
	s.Equal(10, update.Points)
	s.Equal("prompt 1", update.Item.Prompt)
	s.Equal(map[string]int{"Alice": 10, "Bob": 10}, update.Scores)

	changed := s.outbox.events("room:1234", model.EventTurnChanged)
	s.Require().Len(changed, 1)
	s.Equal("Bob", changed[0].Payload.(model.TurnChangedPayload).CurrentTurn)
	s.Equal("correct_guess", changed[0].Payload.(model.TurnChangedPayload).Reason)
	s.Equal([]string{"prompt 2"}, s.assigned("Bob"))

	state := s.state("1234")
	s.Equal(model.StatusPlaying, state.Status)
	s.Nil(state.RoundStartedAt)
	s.Equal(2, state.Round)

	fire, _, ok := s.scheduler.PendingTurn("1234")
	s.Require().True(ok)
	s.Equal(tagReady, fire.Tag)
	s.Equal(0, s.scheduler.ActiveTimers()["1234"].HintTimers)

	// Wraps back to Alice
	s.send("Bob", model.ActionReady, "1234", nil)
	s.send("Alice", model.ActionGuess, "1234", model.GuessPayload{Text: "PROMPT 2"})
	s.Equal("Alice", s.state("1234").CurrentTurn)
	s.Equal([]string{"prompt 1", "prompt 3"}, s.assigned("Alice"))
}

func (s *ManagerSuite) TestGuessing() {
	s.started("1234", model.GameCharades, model.Settings{}, "Alice", "Bob", "Carol")
	s.send("Alice", model.ActionReady, "1234", nil)

	s.send("Bob", model.ActionGuess, "1234", model.GuessPayload{Text: "wrong"})
	results := s.outbox.events("conn:conn-Bob", model.EventAnswerResult)
	s.Require().Len(results, 1)
	s.False(results[0].Payload.(model.AnswerResultPayload).Correct)

	s.send("Alice", model.ActionGuess, "1234", model.GuessPayload{Text: "prompt 1"})
	s.ErrorIs(s.lastRejection("Alice").err, model.ErrCannotGuessOwn)

	s.send("Bob", model.ActionCorrectGuess, "1234", model.CorrectGuessPayload{Guesser: "Carol"})
	s.ErrorIs(s.lastRejection("Bob").err, model.ErrNotYourTurn)

	s.send("Alice", model.ActionCorrectGuess, "1234", model.CorrectGuessPayload{Guesser: "Zed"})
	s.ErrorIs(s.lastRejection("Alice").err, model.ErrNotInRoom)

	s.send("Carol", model.ActionGuess, "1234", model.GuessPayload{Text: " Prompt 1 "})
	s.True(s.outbox.events("conn:conn-Carol", model.EventAnswerResult)[0].Payload.(model.AnswerResultPayload).Correct)
	s.Equal(map[string]int{"Alice": 10, "Bob": 0, "Carol": 10}, s.state("1234").Scores)
}

func (s *ManagerSuite) TestReadyErrors() {
	s.started("1234", model.GameCharades, model.Settings{}, "Alice", "Bob")

	s.send("Bob", model.ActionReady, "1234", nil)
	s.ErrorIs(s.lastRejection("Bob").err, model.ErrNotYourTurn)

	s.send("Alice", model.ActionReady, "1234", nil)
	s.send("Alice", model.ActionReady, "1234", nil)
	s.ErrorIs(s.lastRejection("Alice").err, model.ErrWrongGameStatus)
}

// A ready timeout advances the turn exactly once, even if the fire is delivered twice
func (s *ManagerSuite) TestTurnTimeoutFiresOnce() {
	s.started("1234", model.GameCharades, model.Settings{}, "Alice", "Bob")

	fire, deadline, ok := s.scheduler.PendingTurn("1234")
	s.Require().True(ok)
	s.Equal(s.clock.Now().Add(30*time.Second), deadline)

	s.advance("1234", 30*time.Second)

	r, ok := s.manager.room("1234")
	s.Require().True(ok)
	r.post(timerEvent{fire: fire})
	s.settle("1234")

	timeouts := s.outbox.events("room:1234", model.EventTurnTimeout)
	s.Require().Len(timeouts, 1)
	ended := timeouts[0].Payload.(model.TurnEndedPayload)
	s.Equal("Alice", ended.Performer)
	s.Equal("prompt 1", ended.Item.Prompt)
	s.Zero(ended.Penalty)

	s.Len(s.outbox.events("room:1234", model.EventTurnChanged), 1)
	s.Equal("Bob", s.state("1234").CurrentTurn)
	s.Equal(map[string]int{"Alice": 0, "Bob": 0}, s.state("1234").Scores)

	next, _, ok := s.scheduler.PendingTurn("1234")
	s.Require().True(ok)
	s.NotEqual(fire.Token, next.Token)
	s.Equal(tagReady, next.Tag)
}

func (s *ManagerSuite) TestRoundTimeoutPenalizesPerformer() {
	s.started("1234", model.GameCharades, model.Settings{TimeLimit: model.Seconds(60 * time.Second)}, "Alice", "Bob")
	s.send("Alice", model.ActionReady, "1234", nil)

	s.advance("1234", 59*time.Second)
	s.Empty(s.outbox.events("room:1234", model.EventTurnTimeout))

	s.advance("1234", time.Second)
	timeouts := s.outbox.events("room:1234", model.EventTurnTimeout)
	s.Require().Len(timeouts, 1)
	s.Equal(5, timeouts[0].Payload.(model.TurnEndedPayload).Penalty)
	s.Equal(map[string]int{"Alice": -5, "Bob": 0}, s.state("1234").Scores)
	s.Equal("Bob", s.state("1234").CurrentTurn)
}

func (s *ManagerSuite) TestHintsSkipPerformer() {
	s.started("1234", model.GameCharades, model.Settings{}, "Alice", "Bob", "Carol")
	s.send("Alice", model.ActionReady, "1234", nil)

	s.advance("1234", 30*time.Second)
	for _, name := range []string{"Bob", "Carol"} {
		hints := s.outbox.events("player:"+name, model.EventHint)
		s.Require().Len(hints, 1, name)
		s.Equal(1, hints[0].Payload.(model.HintPayload).Number)
		s.Equal("7 letters, 2 words", hints[0].Payload.(model.HintPayload).Text)
	}
	s.Empty(s.outbox.events("player:Alice", model.EventHint))

	s.advance("1234", 60*time.Second)
	s.Len(s.outbox.events("player:Bob", model.EventHint), 3)
	s.Len(s.state("1234").Hints, 3)
}

func (s *ManagerSuite) TestPassTurn() {
	s.started("1234", model.GameCharades, model.Settings{}, "Alice", "Bob", "Carol")

	s.send("Bob", model.ActionPassTurn, "1234", nil)
	s.ErrorIs(s.lastRejection("Bob").err, model.ErrNotYourTurn)

	s.send("Alice", model.ActionPassTurn, "1234", nil)
	passed := s.outbox.events("room:1234", model.EventTurnPassed)
	s.Require().Len(passed, 1)
	s.Equal("Alice", passed[0].Payload.(model.TurnEndedPayload).Performer)
	s.Equal("prompt 1", passed[0].Payload.(model.TurnEndedPayload).Item.Prompt)
	s.Equal("Bob", s.state("1234").CurrentTurn)

	// The host may skip someone else's turn
	s.send("Alice", model.ActionPassTurn, "1234", nil)
	s.Equal("Carol", s.state("1234").CurrentTurn)
	s.Equal("passed", s.outbox.events("room:1234", model.EventTurnChanged)[1].Payload.(model.TurnChangedPayload).Reason)
}

func (s *ManagerSuite) TestPauseFreezesTimers() {
	s.started("1234", model.GameCharades, model.Settings{}, "Alice", "Bob")
	s.send("Alice", model.ActionReady, "1234", nil)
	s.advance("1234", 20*time.Second)

	s.send("Bob", model.ActionPause, "1234", nil)
	s.ErrorIs(s.lastRejection("Bob").err, model.ErrNotHost)

	s.send("Alice", model.ActionPause, "1234", nil)
	paused := s.outbox.events("room:1234", model.EventGamePaused)
	s.Require().Len(paused, 1)
	s.Equal(model.Seconds(100*time.Second), paused[0].Payload.(model.PausePayload).Remaining)
	s.Empty(s.scheduler.ActiveTimers()["1234"])

	s.send("Bob", model.ActionGuess, "1234", model.GuessPayload{Text: "prompt 1"})
	s.ErrorIs(s.lastRejection("Bob").err, model.ErrWrongGameStatus)

	s.advance("1234", 10*time.Minute)
	s.Empty(s.outbox.events("room:1234", model.EventTurnTimeout))
	s.Empty(s.outbox.events("player:Bob", model.EventHint))

	s.send("Alice", model.ActionResume, "1234", nil)
	resumed := s.outbox.events("room:1234", model.EventGameResumed)
	s.Require().Len(resumed, 1)
	s.Equal(model.StatusRoundActive, resumed[0].Payload.(model.PausePayload).Status)
	s.Equal(model.Seconds(100*time.Second), resumed[0].Payload.(model.PausePayload).Remaining)

	// Hint 1 was due at 30s of round time
	s.advance("1234", 10*time.Second)
	s.Len(s.outbox.events("player:Bob", model.EventHint), 1)

	s.advance("1234", 90*time.Second)
	s.Len(s.outbox.events("room:1234", model.EventTurnTimeout), 1)
	s.Equal(-5, s.state("1234").Scores["Alice"])
}

func (s *ManagerSuite) TestPauseBeforeReady() {
	s.started("1234", model.GameCharades, model.Settings{}, "Alice", "Bob")
	s.advance("1234", 10*time.Second)

	s.send("Alice", model.ActionPause, "1234", nil)
	s.Equal(model.StatusPlaying, s.state("1234").PausedFrom)
	s.send("Alice", model.ActionResume, "1234", nil)
	s.Equal(model.StatusPlaying, s.state("1234").Status)

	s.advance("1234", 20*time.Second)
	s.Len(s.outbox.events("room:1234", model.EventTurnTimeout), 1)
}

func (s *ManagerSuite) TestEndGame() {
	s.started("1234", model.GameCharades, model.Settings{}, "Alice", "Bob")
	s.send("Alice", model.ActionReady, "1234", nil)

	s.send("Bob", model.ActionEndGame, "1234", nil)
	s.ErrorIs(s.lastRejection("Bob").err, model.ErrNotHost)

	s.send("Alice", model.ActionEndGame, "1234", nil)
	s.Len(s.outbox.events("room:1234", model.EventGameEnded), 1)
	state := s.state("1234")
	s.Equal(model.StatusWaiting, state.Status)
	s.Empty(state.CurrentTurn)
	s.NotContains(s.scheduler.ActiveTimers(), model.RoomID("1234"))

	s.send("Alice", model.ActionEndGame, "1234", nil)
	s.ErrorIs(s.lastRejection("Alice").err, model.ErrWrongGameStatus)

	// The room can be played again
	s.send("Alice", model.ActionStartGame, "1234", nil)
	s.Len(s.outbox.events("room:1234", model.EventGameStarted), 2)
}

func (s *ManagerSuite) TestCustomItemsComeFirst() {
	s.started("1234", model.GameCharades, model.Settings{CustomItems: []string{"alpha", "beta"}}, "Alice", "Bob")
	s.Equal([]string{"alpha"}, s.assigned("Alice"))

	s.send("Alice", model.ActionPassTurn, "1234", nil)
	s.Equal([]string{"beta"}, s.assigned("Bob"))

	s.send("Bob", model.ActionPassTurn, "1234", nil)
	s.Equal([]string{"alpha", "prompt 1"}, s.assigned("Alice"))
}

func (s *ManagerSuite) TestDrawing() {
	s.started("1234", model.GamePictionary, model.Settings{}, "Alice", "Bob")

	stroke := model.StrokePayload{Stroke: json.RawMessage(`{"points":[[1,2],[3,4]],"color":"#000"}`)}
	s.send("Alice", model.ActionDrawStroke, "1234", stroke)
	s.ErrorIs(s.lastRejection("Alice").err, model.ErrWrongGameStatus)

	s.send("Alice", model.ActionReady, "1234", nil)
	s.send("Alice", model.ActionDrawStroke, "1234", stroke)
	s.send("Bob", model.ActionDrawStroke, "1234", stroke)
	s.ErrorIs(s.lastRejection("Bob").err, model.ErrNotYourTurn)

	s.Len(s.outbox.events("room:1234", model.EventStroke), 1)
	s.Len(s.state("1234").Canvas, 1)

	s.send("Alice", model.ActionClearCanvas, "1234", nil)
	s.Len(s.outbox.events("room:1234", model.EventCanvasCleared), 1)
	s.Empty(s.state("1234").Canvas)
}

func (s *ManagerSuite) TestVariantMismatch() {
	s.started("1234", model.GameCharades, model.Settings{}, "Alice", "Bob")

	s.send("Alice", model.ActionDrawStroke, "1234", model.StrokePayload{Stroke: json.RawMessage(`{}`)})
	s.ErrorIs(s.lastRejection("Alice").err, model.ErrInvalidAction)
	s.send("Bob", model.ActionSubmitAnswer, "1234", model.SubmitAnswerPayload{Answer: "x"})
	s.ErrorIs(s.lastRejection("Bob").err, model.ErrInvalidAction)
	s.send("Bob", model.ActionStopBus, "1234", nil)
	s.ErrorIs(s.lastRejection("Bob").err, model.ErrInvalidAction)
	s.send("Alice", model.ActionNextRound, "1234", nil)
	s.ErrorIs(s.lastRejection("Alice").err, model.ErrInvalidAction)
}

// Departures

// The host and performer drops mid-round: host and turn pass to Bob, then the room closes
func (s *ManagerSuite) TestHostDisconnectClosesRoom() {
	s.started("1234", model.GameCharades, model.Settings{}, "Alice", "Bob")
	s.send("Alice", model.ActionReady, "1234", nil)

	s.manager.Disconnect(s.conn("Alice"))
	s.settle("1234")

	left := s.outbox.events("room:1234", model.EventPlayerLeft)
	s.Require().Len(left, 1)
	s.Equal("disconnected", left[0].Payload.(model.PlayerLeftPayload).Reason)
	s.Equal([]model.Player{{Name: "Bob", IsHost: true}}, left[0].Payload.(model.PlayerLeftPayload).Players)

	changed := s.outbox.events("room:1234", model.EventHostChanged)
	s.Require().Len(changed, 1)
	s.Equal(model.HostChangedPayload{OldHost: "Alice", NewHost: "Bob"}, changed[0].Payload)

	closed := s.outbox.events("room:1234", model.EventRoomClosed)
	s.Require().Len(closed, 1)
	s.Equal("not enough players", closed[0].Payload.(model.RoomClosedPayload).Reason)

	s.Equal(0, s.manager.Count())
	s.Empty(s.scheduler.ActiveTimers())
	s.Empty(s.registry.RoomConnections("1234"))
}

func (s *ManagerSuite) TestSoloRoomStaysOpenWhenDisabled() {
	cfg := DefaultConfig()
	cfg.AutoCloseSolo = false
	s.rebuild(cfg)

	s.started("1234", model.GameCharades, model.Settings{}, "Alice", "Bob")
	s.send("Alice", model.ActionLeaveRoom, "1234", nil)

	s.Empty(s.outbox.events("room:1234", model.EventRoomClosed))
	state := s.state("1234")
	s.Equal("Bob", state.Host)
	s.Equal("Bob", state.CurrentTurn)
}

func (s *ManagerSuite) TestPerformerLeavingRestartsTurn() {
	s.started("1234", model.GameCharades, model.Settings{}, "Alice", "Bob", "Carol")
	s.send("Alice", model.ActionReady, "1234", nil)
	s.advance("1234", 30*time.Second)

	s.send("Alice", model.ActionLeaveRoom, "1234", nil)

	changed := s.outbox.events("room:1234", model.EventTurnChanged)
	s.Require().Len(changed, 1)
	s.Equal("Bob", changed[0].Payload.(model.TurnChangedPayload).CurrentTurn)
	s.Equal("player_left", changed[0].Payload.(model.TurnChangedPayload).Reason)
	s.Equal([]string{"prompt 1"}, s.assigned("Bob"))

	state := s.state("1234")
	s.Equal(model.StatusPlaying, state.Status)
	s.Empty(state.Hints)
	fire, _, ok := s.scheduler.PendingTurn("1234")
	s.Require().True(ok)
	s.Equal(tagReady, fire.Tag)
	s.Equal(0, s.scheduler.ActiveTimers()["1234"].HintTimers)
}

func (s *ManagerSuite) TestPerformerLeavingWhilePaused() {
	s.started("1234", model.GameCharades, model.Settings{}, "Alice", "Bob", "Carol")
	s.send("Alice", model.ActionReady, "1234", nil)
	s.send("Alice", model.ActionPause, "1234", nil)

	s.send("Alice", model.ActionLeaveRoom, "1234", nil)
	state := s.state("1234")
	s.Equal(model.StatusPaused, state.Status)
	s.Equal(model.StatusPlaying, state.PausedFrom)
	s.Empty(s.scheduler.ActiveTimers()["1234"])

	s.send("Bob", model.ActionResume, "1234", nil)
	resumed := s.outbox.events("room:1234", model.EventGameResumed)
	s.Require().Len(resumed, 1)
	s.Equal(model.Seconds(30*time.Second), resumed[0].Payload.(model.PausePayload).Remaining)
	fire, _, ok := s.scheduler.PendingTurn("1234")
	s.Require().True(ok)
	s.Equal(tagReady, fire.Tag)
}

func (s *ManagerSuite) TestDisconnectKeepsPlayerWithOtherConnections() {
	s.create("1234", "Alice", model.GameCharades, model.Settings{})
	s.join("1234", "Bob")

	second := &fakeConn{id: "conn-Bob-2"}
	s.sendAs(second, "Bob", model.ActionAttach, "1234", nil)
	s.barrier("1234")
	s.Len(s.outbox.events("conn:conn-Bob-2", model.EventState), 1)

	s.manager.Disconnect(s.conn("Bob"))
	s.settle("1234")
	member, err := s.manager.IsMember(context.Background(), "1234", "Bob")
	s.Require().NoError(err)
	s.True(member)

	s.manager.Disconnect(second)
	s.settle("1234")
	member, err = s.manager.IsMember(context.Background(), "1234", "Bob")
	s.Require().NoError(err)
	s.False(member)
	s.Len(s.outbox.events("room:1234", model.EventPlayerLeft), 1)
}

func (s *ManagerSuite) TestDisconnectWithoutLeaving() {
	cfg := DefaultConfig()
	cfg.LeaveOnDisconnect = false
	s.rebuild(cfg)

	s.create("1234", "Alice", model.GameCharades, model.Settings{})
	s.join("1234", "Bob")

	s.manager.Disconnect(s.conn("Bob"))
	s.settle("1234")
	member, err := s.manager.IsMember(context.Background(), "1234", "Bob")
	s.Require().NoError(err)
	s.True(member)
	_, ok := s.registry.Resolve("1234", "Bob")
	s.False(ok)

	// The old connection no longer speaks for Bob
	s.send("Bob", model.ActionRequestState, "1234", nil)
	s.ErrorIs(s.lastRejection("Bob").err, model.ErrNotInRoom)

	s.sendAs(&fakeConn{id: "conn-Bob-2"}, "Bob", model.ActionAttach, "1234", nil)
	s.barrier("1234")
	s.Len(s.outbox.events("conn:conn-Bob-2", model.EventState), 1)
}

func (s *ManagerSuite) TestAttachRequiresMembership() {
	s.create("1234", "Alice", model.GameCharades, model.Settings{})
	s.send("Mallory", model.ActionAttach, "1234", nil)
	s.ErrorIs(s.lastRejection("Mallory").err, model.ErrNotInRoom)
}

// Trivia

func (s *ManagerSuite) TestTriviaFirstCorrectAnswerWins() {
	s.started("1234", model.GameTrivia, model.Settings{}, "Alice", "Bob")

	questions := s.outbox.events("room:1234", model.EventQuestion)
	s.Require().Len(questions, 1)
	q := questions[0].Payload.(model.QuestionPayload)
	s.Equal(1, q.Round)
	s.Equal("prompt 1", q.Question.Prompt)
	s.Empty(q.Question.Answer)
	s.Equal(model.Seconds(30*time.Second), q.Duration)

	s.send("Bob", model.ActionSubmitAnswer, "1234", model.SubmitAnswerPayload{Answer: "nope"})
	s.False(s.outbox.events("conn:conn-Bob", model.EventAnswerResult)[0].Payload.(model.AnswerResultPayload).Correct)
	s.send("Bob", model.ActionSubmitAnswer, "1234", model.SubmitAnswerPayload{Answer: "answer 1"})
	s.ErrorIs(s.lastRejection("Bob").err, model.ErrAlreadyAnswered)

	s.send("Alice", model.ActionSubmitAnswer, "1234", model.SubmitAnswerPayload{Answer: "Answer 1"})
	s.Equal(model.AnswerResultPayload{Correct: true, Points: 10},
		s.outbox.events("conn:conn-Alice", model.EventAnswerResult)[0].Payload)

	revealed := s.outbox.events("room:1234", model.EventQuestionRevealed)
	s.Require().Len(revealed, 1)
	s.Equal("Alice", revealed[0].Payload.(model.QuestionRevealedPayload).Winner)
	s.Equal("answer 1", revealed[0].Payload.(model.QuestionRevealedPayload).Answer)
	s.Equal(map[string]int{"Alice": 10, "Bob": 0}, revealed[0].Payload.(model.QuestionRevealedPayload).Scores)

	s.advance("1234", 3*time.Second)
	questions = s.outbox.events("room:1234", model.EventQuestion)
	s.Require().Len(questions, 2)
	s.Equal(2, questions[1].Payload.(model.QuestionPayload).Round)
	s.Equal("prompt 2", questions[1].Payload.(model.QuestionPayload).Question.Prompt)
}

func (s *ManagerSuite) TestTriviaQuestionTimeout() {
	s.started("1234", model.GameTrivia, model.Settings{}, "Alice", "Bob")

	s.advance("1234", 30*time.Second)
	revealed := s.outbox.events("room:1234", model.EventQuestionRevealed)
	s.Require().Len(revealed, 1)
	s.Empty(revealed[0].Payload.(model.QuestionRevealedPayload).Winner)
	s.Equal("answer 1", revealed[0].Payload.(model.QuestionRevealedPayload).Answer)

	s.send("Bob", model.ActionSubmitAnswer, "1234", model.SubmitAnswerPayload{Answer: "answer 1"})
	s.ErrorIs(s.lastRejection("Bob").err, model.ErrQuestionLocked)

	s.advance("1234", 3*time.Second)
	s.Len(s.outbox.events("room:1234", model.EventQuestion), 2)
}

func (s *ManagerSuite) TestTriviaAllWrongMovesOn() {
	s.started("1234", model.GameTrivia, model.Settings{}, "Alice", "Bob")

	s.send("Alice", model.ActionSubmitAnswer, "1234", model.SubmitAnswerPayload{Answer: "x"})
	s.send("Bob", model.ActionSubmitAnswer, "1234", model.SubmitAnswerPayload{Answer: "y"})

	fire, _, ok := s.scheduler.PendingTurn("1234")
	s.Require().True(ok)
	s.Equal(tagAdvance, fire.Tag)

	s.advance("1234", 3*time.Second)
	s.Empty(s.outbox.events("room:1234", model.EventQuestionRevealed))
	s.Len(s.outbox.events("room:1234", model.EventQuestion), 2)
}

func (s *ManagerSuite) TestTriviaEndsWhenContentRunsOut() {
	s.started("1234", model.GameTrivia, model.Settings{}, "Alice", "Bob")

	// Drop the prefetched question, then fail the next fetch
	r, ok := s.manager.room("1234")
	s.Require().True(ok)
	s.Require().NoError(s.manager.Inspect(context.Background(), "1234", func(*session.Session) { r.buffer = nil }))
	s.items.setFail(true)

	s.advance("1234", 30*time.Second)
	s.Len(s.outbox.events("room:1234", model.EventQuestionRevealed), 1)
	s.advance("1234", 3*time.Second)
	s.Len(s.outbox.events("room:1234", model.EventGameEnded), 1)
	s.Equal(model.StatusWaiting, s.state("1234").Status)
}

// Word race

func (s *ManagerSuite) wordRace() {
	settings := model.Settings{Categories: []string{"name", "city"}, Alphabet: []string{"A"}}
	s.started("1234", model.GameBusComplete, settings, "Alice", "Bob")
}

func (s *ManagerSuite) TestWordRaceRound() {
	s.wordRace()

	active := s.outbox.events("room:1234", model.EventRoundActive)
	s.Require().Len(active, 1)
	s.Equal(model.Seconds(180*time.Second), active[0].Payload.(model.RoundActivePayload).Duration)
	s.Equal("A", s.state("1234").Letter)

	s.send("Alice", model.ActionSubmitWords, "1234", model.SubmitWordsPayload{Answers: map[string]string{"name": "Anna", "city": "Amsterdam"}})
	s.send("Bob", model.ActionSubmitWords, "1234", model.SubmitWordsPayload{Answers: map[string]string{"name": "anna", "city": "Berlin"}})
	submitted := s.outbox.events("room:1234", model.EventWordsSubmitted)
	s.Require().Len(submitted, 2)
	s.Equal([]string{"Alice", "Bob"}, submitted[1].Payload.(model.WordsSubmittedPayload).Submitted)

	s.send("Bob", model.ActionNextRound, "1234", nil)
	s.ErrorIs(s.lastRejection("Bob").err, model.ErrNotHost)

	s.send("Alice", model.ActionStopBus, "1234", nil)
	stopped := s.outbox.events("room:1234", model.EventBusStopped)
	s.Require().Len(stopped, 1)
	s.Equal("Alice", stopped[0].Payload.(model.BusStoppedPayload).StoppedBy)

	s.Eventually(func() bool {
		return len(s.outbox.events("room:1234", model.EventRoundResults)) == 1
	}, time.Second, time.Millisecond)
	results := s.outbox.events("room:1234", model.EventRoundResults)[0].Payload.(*model.RoundResults)
	s.Equal(map[string]int{"Alice": 15, "Bob": 5}, results.Scores)
	s.Equal(map[string]string{"city": "Berlin"}, results.WrongLetter["Bob"])

	s.send("Alice", model.ActionNextRound, "1234", nil)
	active = s.outbox.events("room:1234", model.EventRoundActive)
	s.Require().Len(active, 2)
	s.Equal(2, active[1].Payload.(model.RoundActivePayload).Round)
	s.Equal(model.StatusRoundActive, s.state("1234").Status)
}

func (s *ManagerSuite) TestWordRaceNextRoundWaitsForScoring() {
	s.wordRace()
	s.send("Alice", model.ActionNextRound, "1234", nil)
	s.ErrorIs(s.lastRejection("Alice").err, model.ErrWrongGameStatus)
}

func (s *ManagerSuite) TestWordRaceInvalidAnswers() {
	s.validator.invalid = map[string]map[string]string{"Alice": {"city": "Amsterdam"}}
	s.wordRace()

	s.send("Alice", model.ActionSubmitWords, "1234", model.SubmitWordsPayload{Answers: map[string]string{"name": "Anna", "city": "Amsterdam"}})
	s.send("Bob", model.ActionSubmitWords, "1234", model.SubmitWordsPayload{Answers: map[string]string{"name": "Anna"}})
	s.send("Bob", model.ActionStopBus, "1234", nil)

	s.Eventually(func() bool {
		return len(s.outbox.events("room:1234", model.EventRoundResults)) == 1
	}, time.Second, time.Millisecond)
	results := s.outbox.events("room:1234", model.EventRoundResults)[0].Payload.(*model.RoundResults)
	s.Equal(map[string]int{"Alice": 5, "Bob": 5}, results.Scores)
	s.Equal(map[string]string{"city": "Amsterdam"}, results.Invalid["Alice"])
}

func (s *ManagerSuite) TestWordRaceTimerEndsRound() {
	s.wordRace()

	s.advance("1234", 180*time.Second)
	stopped := s.outbox.events("room:1234", model.EventBusStopped)
	s.Require().Len(stopped, 1)
	s.Empty(stopped[0].Payload.(model.BusStoppedPayload).StoppedBy)

	// Nothing was submitted, so scoring completes without validation
	s.Len(s.outbox.events("room:1234", model.EventRoundResults), 1)
	s.Equal(model.StatusScoring, s.state("1234").Status)
}

// Supervision

func (s *ManagerSuite) TestRoomsAreIndependent() {
	s.started("1111", model.GameCharades, model.Settings{}, "Alice", "Bob")
	s.outbox.reset()
	s.create("2222", "Carol", model.GameTrivia, model.Settings{})

	s.send("Alice", model.ActionCloseRoom, "1111", nil)
	s.Equal(1, s.manager.Count())
	s.Equal(model.RoomID("2222"), s.manager.List()[0].ID)
	s.Empty(s.outbox.events("room:2222", model.EventRoomClosed))
}

func (s *ManagerSuite) TestSummariesFollowRoomState() {
	s.started("1234", model.GameCharades, model.Settings{}, "Alice", "Bob")
	s.barrier("1234")

	summaries := s.manager.List()
	s.Require().Len(summaries, 1)
	s.Equal(model.StatusPlaying, summaries[0].Status)
	s.Equal(2, summaries[0].PlayerCount)
}

func (s *ManagerSuite) TestShutdownStopsRooms() {
	s.started("1234", model.GameCharades, model.Settings{}, "Alice", "Bob")

	s.manager.Shutdown()
	s.Equal(0, s.manager.Count())
	s.Empty(s.scheduler.ActiveTimers())

	_, err := s.manager.Snapshot(context.Background(), "1234", "")
	s.ErrorIs(err, model.ErrRoomNotFound)
}

// hold parks the room goroutine inside an inspection until the returned
// func is called
func (s *ManagerSuite) hold(roomID model.RoomID) func() {
	entered := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = s.manager.Inspect(context.Background(), roomID, func(*session.Session) {
			close(entered)
			<-release
		})
	}()
	<-entered
	return func() { close(release) }
}

func (s *ManagerSuite) TestRebindWithinRoomWithFullInbox() {
	cfg := DefaultConfig()
	cfg.InboxSize = 1
	s.rebuild(cfg)

	s.create("1234", "Alice", model.GameCharades, model.Settings{})
	s.join("1234", "Bob")

	release := s.hold("1234")
	// Bob's connection takes over Alice; a second action fills the inbox behind it
	s.sendAs(s.conn("Bob"), "Alice", model.ActionAttach, "1234", nil)
	queued := make(chan struct{})
	go func() {
		defer close(queued)
		s.sendAs(s.conn("Alice"), "Alice", model.ActionRequestState, "1234", nil)
	}()
	release()

	select {
	case <-queued:
	case <-time.After(2 * time.Second):
		s.FailNow("room stopped consuming its inbox")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	member, err := s.manager.IsMember(ctx, "1234", "Bob")
	s.Require().NoError(err)
	s.False(member)

	s.Len(s.outbox.events("conn:conn-Bob", model.EventState), 1)
	left := s.outbox.events("room:1234", model.EventPlayerLeft)
	s.Require().Len(left, 1)
	s.Equal("Bob", left[0].Payload.(model.PlayerLeftPayload).Name)
	s.Equal([]model.Player{{Name: "Alice", IsHost: true}}, s.state("1234").Players)
}

func (s *ManagerSuite) TestInspectGivesUpOnBusyRoom() {
	cfg := DefaultConfig()
	cfg.InboxSize = 1
	s.rebuild(cfg)

	s.create("1234", "Alice", model.GameCharades, model.Settings{})
	release := s.hold("1234")
	defer release()
	s.sendAs(s.conn("Alice"), "Alice", model.ActionRequestState, "1234", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := s.manager.Snapshot(ctx, "1234", "")
	s.ErrorIs(err, context.DeadlineExceeded)
	s.Less(time.Since(start), time.Second)
}

func (s *ManagerSuite) TestCreateRejectsBlankWordRaceLetter() {
	s.send("Alice", model.ActionCreateRoom, "1234", model.CreateRoomPayload{
		GameType: model.GameBusComplete,
		Settings: model.Settings{Alphabet: []string{"A", " "}},
	})
	s.ErrorIs(s.lastRejection("Alice").err, model.ErrInvalidPayload)
	s.Zero(s.manager.Count())
}

func (s *ManagerSuite) TestReusedRoomIDKeepsItsOwnContentUsage() {
	s.create("1234", "Alice", model.GameCharades, model.Settings{})
	s.send("Alice", model.ActionCloseRoom, "1234", nil)
	s.Require().Zero(s.manager.Count())

	s.send("Alice", model.ActionCreateRoom, "1234", model.CreateRoomPayload{GameType: model.GameCharades})
	s.Require().Equal(1, s.manager.Count())

	s.Require().Eventually(func() bool {
		return len(s.items.cleanedRooms()) == 1
	}, time.Second, time.Millisecond)
	fetched := s.items.fetchedRooms()
	s.Require().Len(fetched, 2)
	s.NotEqual(fetched[0], fetched[1])
	// Late cleanup of the first room never touches the second one's usage
	s.Equal([]model.RoomID{fetched[0]}, s.items.cleanedRooms())
}
