// Package session holds the per-room game state machine.
//
// A Session is owned by exactly one goroutine (its room actor) and is not
// safe for concurrent use. Every mutator validates before it changes
// anything, so a returned error always means the session is untouched.
package session

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mcoot/partygames/internal/dependencies/clock"
	"github.com/mcoot/partygames/internal/model"
)

// MaxIdentityLength bounds player display names
const MaxIdentityLength = 24

// Session is one room's game: roster, host, scores, turn and round state
type Session struct {
	id        model.RoomID
	settings  model.Settings
	createdAt time.Time
	clock     clock.Clock
	variant   Variant

	players     []model.Player
	status      model.Status
	pausedFrom  model.Status
	pausedAt    time.Time
	scores      map[string]int
	teamScores  map[int]int
	currentTurn string
	round       int
	item        *model.Item

	roundStartedAt *time.Time
	ready          map[string]struct{}
	hints          []string
}

// Removal describes the effect of removing a player
type Removal struct {
	Player      model.Player
	Empty       bool // Roster is now empty and the session should be destroyed
	HostChanged bool
	OldHost     string
	NewHost     string
	TurnChanged bool
}

// ValidateRoomID checks a creator-chosen room id
func ValidateRoomID(id model.RoomID) error {
	trimmed := strings.TrimSpace(string(id))
	if trimmed == "" || trimmed != string(id) || len(id) > model.MaxRoomIDLength {
		return model.ErrInvalidRoomID
	}
	return nil
}

// ValidateIdentity checks a player display name
func ValidateIdentity(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || trimmed != name || utf8.RuneCountInString(name) > MaxIdentityLength {
		return model.ErrInvalidIdentity
	}
	return nil
}

// New creates a session whose roster is the host alone
func New(id model.RoomID, host, avatar string, settings model.Settings, variant Variant, clk clock.Clock) (*Session, error) {
	if err := ValidateRoomID(id); err != nil {
		return nil, err
	}
	if err := ValidateIdentity(host); err != nil {
		return nil, err
	}

	s := &Session{
		id:         id,
		settings:   settings,
		createdAt:  clk.Now(),
		clock:      clk,
		variant:    variant,
		status:     model.StatusWaiting,
		scores:     map[string]int{host: 0},
		teamScores: make(map[int]int),
		ready:      make(map[string]struct{}),
	}
	if settings.Teams {
		s.teamScores[model.TeamOne] = 0
		s.teamScores[model.TeamTwo] = 0
	}
	s.players = []model.Player{{Name: host, IsHost: true, Avatar: avatar, Team: s.assignTeam()}}
	return s, nil
}

// Accessors

func (s *Session) ID() model.RoomID { return s.id }
func (s *Session) GameType() model.GameType { return s.variant.GameType() }
func (s *Session) Settings() model.Settings { return s.settings }
func (s *Session) Status() model.Status { return s.status }
func (s *Session) PausedFrom() model.Status { return s.pausedFrom }
func (s *Session) CurrentTurn() string { return s.currentTurn }
func (s *Session) Round() int { return s.round }
func (s *Session) Item() *model.Item { return s.item }
func (s *Session) Variant() Variant { return s.variant }
func (s *Session) Len() int { return len(s.players) }
func (s *Session) RoundStartedAt() *time.Time { return s.roundStartedAt }
func (s *Session) HintsRevealed() int { return len(s.hints) }

// Host returns the identity holding host privileges
func (s *Session) Host() string {
	for _, p := range s.players {
		if p.IsHost {
			return p.Name
		}
	}
	return ""
}

// IsHost reports whether identity is the host
func (s *Session) IsHost(identity string) bool {
	return identity != "" && s.Host() == identity
}

// Has reports whether identity is on the roster
func (s *Session) Has(identity string) bool {
	_, ok := s.player(identity)
	return ok
}

// Players returns a copy of the roster in turn order
func (s *Session) Players() []model.Player {
	return append([]model.Player(nil), s.players...)
}

// Names returns the roster identities in turn order
func (s *Session) Names() []string {
	names := make([]string, len(s.players))
	for i, p := range s.players {
		names[i] = p.Name
	}
	return names
}

// Scores returns a copy of the individual scores
func (s *Session) Scores() map[string]int {
	out := make(map[string]int, len(s.scores))
	for k, v := range s.scores {
		out[k] = v
	}
	return out
}

// TeamScores returns a copy of the team totals, or nil outside team mode
func (s *Session) TeamScores() map[int]int {
	if !s.settings.Teams {
		return nil
	}
	out := make(map[int]int, len(s.teamScores))
	for k, v := range s.teamScores {
		out[k] = v
	}
	return out
}

// Elapsed is the scored time of the current round, excluding pauses
func (s *Session) Elapsed() time.Duration {
	if s.roundStartedAt == nil {
		return 0
	}
	now := s.clock.Now()
	if s.status == model.StatusPaused {
		now = s.pausedAt
	}
	return now.Sub(*s.roundStartedAt)
}

// Roster operations

// AddPlayer appends a player, assigning the smaller team in team mode
func (s *Session) AddPlayer(identity, avatar string) (model.Player, error) {
	if err := ValidateIdentity(identity); err != nil {
		return model.Player{}, err
	}
	if len(s.players) >= model.MaxPlayers {
		return model.Player{}, model.ErrRoomFull
	}
	if s.Has(identity) {
		return model.Player{}, model.ErrDuplicateName
	}

	p := model.Player{Name: identity, Avatar: avatar, Team: s.assignTeam()}
	s.players = append(s.players, p)
	s.scores[identity] = 0
	return p, nil
}

func (s *Session) assignTeam() int {
	if !s.settings.Teams {
		return 0
	}
	var one, two int
	for _, p := range s.players {
		switch p.Team {
		case model.TeamOne:
			one++
		case model.TeamTwo:
			two++
		}
	}
	if two < one {
		return model.TeamTwo
	}
	return model.TeamOne
}

// RemovePlayer drops a player from the roster and scores. Host and turn are
// reassigned in the same step so no observer ever sees them dangling.
func (s *Session) RemovePlayer(identity string) (Removal, error) {
	idx := s.index(identity)
	if idx < 0 {
		return Removal{}, model.ErrNotInRoom
	}

	removed := s.players[idx]
	wasTurn := s.currentTurn == identity

	s.players = append(s.players[:idx:idx], s.players[idx+1:]...)
	delete(s.scores, identity)
	delete(s.ready, identity)
	s.variant.Forget(identity)

	result := Removal{Player: removed}
	if len(s.players) == 0 {
		s.currentTurn = ""
		result.Empty = true
		return result, nil
	}

	if removed.IsHost {
		s.players[0].IsHost = true
		result.HostChanged = true
		result.OldHost = identity
		result.NewHost = s.players[0].Name
	}

	if wasTurn {
		s.currentTurn = s.players[0].Name
		if s.variant.TurnBased() && s.midRound() {
			s.restartTurn()
			result.TurnChanged = true
		}
	}
	return result, nil
}

// midRound reports whether a turn is in progress, including while paused
func (s *Session) midRound() bool {
	switch s.status {
	case model.StatusPlaying, model.StatusRoundActive, model.StatusPaused:
		return true
	}
	return false
}

// restartTurn puts the new turn holder back at the ready step with the same item
func (s *Session) restartTurn() {
	if s.status == model.StatusPaused {
		s.pausedFrom = model.StatusPlaying
	} else {
		s.status = model.StatusPlaying
	}
	s.roundStartedAt = nil
	s.hints = nil
	s.ready = make(map[string]struct{})
	s.variant.Reset()
}

// Game flow operations

// StartGame resets scores and begins the first round. item may be nil for
// variants that do not draw content.
func (s *Session) StartGame(item *model.Item) error {
	if s.status != model.StatusWaiting {
		return model.ErrGameAlreadyStarted
	}
	if len(s.players) < model.MinPlayers {
		return model.ErrNotEnoughPlayers
	}
	if s.variant.NeedsItem() && item == nil {
		return model.ErrContentUnavailable
	}

	for name := range s.scores {
		s.scores[name] = 0
	}
	for team := range s.teamScores {
		s.teamScores[team] = 0
	}
	s.ready = make(map[string]struct{})
	s.hints = nil
	s.round = 0
	s.currentTurn = ""
	s.item = nil
	s.roundStartedAt = nil
	s.variant.Reset()

	return s.variant.AdvanceRound(s, item)
}

// AdvanceRound moves to the next round (next turn holder for turn-based variants)
func (s *Session) AdvanceRound(item *model.Item) error {
	return s.variant.AdvanceRound(s, item)
}

// Ready starts the scored countdown for the current turn holder
func (s *Session) Ready(identity string) error {
	if !s.variant.TurnBased() {
		return model.ErrInvalidAction
	}
	if s.status != model.StatusPlaying {
		return model.ErrWrongGameStatus
	}
	if identity != s.currentTurn {
		return model.ErrNotYourTurn
	}
	if s.item == nil {
		return model.ErrContentUnavailable
	}

	s.ready[identity] = struct{}{}
	s.StartRoundTimer()
	s.mustTransition(model.StatusRoundActive)
	return nil
}

// StartRoundTimer marks the start of the scored countdown
func (s *Session) StartRoundTimer() {
	now := s.clock.Now()
	s.roundStartedAt = &now
}

// SetItem installs content for the current round without advancing it
func (s *Session) SetItem(item *model.Item) {
	s.item = item
}

// ScoreSubmission scores a guess, quiz answer or word race entry
func (s *Session) ScoreSubmission(sub Submission) (Award, error) {
	if !s.Has(sub.Player) {
		return Award{}, model.ErrNotInRoom
	}
	return s.variant.ScoreSubmission(s, sub)
}

// Penalize deducts points from a player. Scores may go negative.
func (s *Session) Penalize(identity string, points int) {
	if !s.Has(identity) || points <= 0 {
		return
	}
	s.addScore(identity, -points)
}

// RevealHint records and returns hint n for the current round
func (s *Session) RevealHint(n int) (string, bool) {
	if s.status != model.StatusRoundActive || n != len(s.hints)+1 {
		return "", false
	}
	text := s.variant.HintText(s, n)
	if text == "" {
		return "", false
	}
	s.hints = append(s.hints, text)
	return text, true
}

// Pause freezes a round in progress
func (s *Session) Pause() error {
	if s.status != model.StatusPlaying && s.status != model.StatusRoundActive {
		return model.ErrWrongGameStatus
	}
	s.pausedFrom = s.status
	s.pausedAt = s.clock.Now()
	s.mustTransition(model.StatusPaused)
	return nil
}

// Resume returns to the frozen status. The round start is shifted by the
// paused duration, which is returned.
func (s *Session) Resume() (time.Duration, error) {
	if s.status != model.StatusPaused {
		return 0, model.ErrWrongGameStatus
	}
	paused := s.clock.Now().Sub(s.pausedAt)
	if s.roundStartedAt != nil {
		shifted := s.roundStartedAt.Add(paused)
		s.roundStartedAt = &shifted
	}
	s.mustTransition(s.pausedFrom)
	s.pausedFrom = ""
	s.pausedAt = time.Time{}
	return paused, nil
}

// EndGame returns the room to waiting, keeping final scores until the next start
func (s *Session) EndGame() error {
	if s.status == model.StatusWaiting {
		return model.ErrWrongGameStatus
	}
	s.mustTransition(model.StatusWaiting)
	s.pausedFrom = ""
	s.currentTurn = ""
	s.item = nil
	s.roundStartedAt = nil
	s.hints = nil
	s.ready = make(map[string]struct{})
	s.variant.Reset()
	return nil
}

// Views

// Snapshot returns the room as seen by viewer. An empty viewer sees the
// public spectator view.
func (s *Session) Snapshot(viewer string) model.RoomState {
	state := model.RoomState{
		ID:          s.id,
		GameType:    s.variant.GameType(),
		Status:      s.status,
		PausedFrom:  s.pausedFrom,
		Host:        s.Host(),
		Players:     s.Players(),
		Scores:      s.Scores(),
		TeamScores:  s.TeamScores(),
		CurrentTurn: s.currentTurn,
		Round:       s.round,
		Item:        s.variant.VisibleContentFor(s, viewer),
		Settings:    s.settings,
	}
	if s.roundStartedAt != nil {
		started := *s.roundStartedAt
		state.RoundStartedAt = &started
	}
	for name := range s.ready {
		state.ReadyPlayers = append(state.ReadyPlayers, name)
	}
	sort.Strings(state.ReadyPlayers)
	if viewer == "" || viewer != s.currentTurn {
		state.Hints = append([]string(nil), s.hints...)
	}
	s.variant.Describe(s, viewer, &state)
	return state
}

// Summary returns the lightweight listing of the room
func (s *Session) Summary() model.RoomSummary {
	return model.RoomSummary{
		ID:          s.id,
		GameType:    s.variant.GameType(),
		Status:      s.status,
		Host:        s.Host(),
		PlayerCount: len(s.players),
		CreatedAt:   s.createdAt,
	}
}

func (s *Session) String() string {
	return fmt.Sprintf("session(%s, %s, %s)", s.id, s.variant.GameType(), s.status)
}

func (s *Session) index(identity string) int {
	for i, p := range s.players {
		if p.Name == identity {
			return i
		}
	}
	return -1
}

func (s *Session) player(identity string) (model.Player, bool) {
	if i := s.index(identity); i >= 0 {
		return s.players[i], true
	}
	return model.Player{}, false
}

// successor is the cyclic next turn holder after the current one
func (s *Session) successor() string {
	if len(s.players) == 0 {
		return ""
	}
	idx := s.index(s.currentTurn)
	if idx < 0 {
		return s.players[0].Name
	}
	return s.players[(idx+1)%len(s.players)].Name
}
