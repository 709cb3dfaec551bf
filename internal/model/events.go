package model

import (
	"encoding/json"
	"time"
)

// ActionType identifies an inbound player action
type ActionType string

const (
	// Room lifecycle
	ActionCreateRoom   ActionType = "create_room"
	ActionJoinRoom     ActionType = "join_room"
	ActionAttach       ActionType = "attach"
	ActionLeaveRoom    ActionType = "leave_room"
	ActionCloseRoom    ActionType = "close_room"
	ActionRequestState ActionType = "request_state"

	// Game flow
	ActionStartGame ActionType = "start_game"
	ActionReady     ActionType = "ready"
	ActionPassTurn  ActionType = "pass_turn"
	ActionNextRound ActionType = "next_round"
	ActionEndGame   ActionType = "end_game"
	ActionPause     ActionType = "pause"
	ActionResume    ActionType = "resume"

	// Turn-based guessing and drawing
	ActionCorrectGuess ActionType = "correct_guess"
	ActionGuess        ActionType = "guess"
	ActionDrawStroke   ActionType = "draw_stroke"
	ActionClearCanvas  ActionType = "clear_canvas"

	// Simultaneous variants
	ActionSubmitAnswer ActionType = "submit_answer"
	ActionSubmitWords  ActionType = "submit_words"
	ActionStopBus      ActionType = "stop_bus"
)

// Inbound is the wire format of a client message
type Inbound struct {
	Type     ActionType      `json:"type"`
	RoomID   RoomID          `json:"room_id"`
	Identity string          `json:"identity"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

// CreateRoomPayload is the payload of create_room
type CreateRoomPayload struct {
	GameType GameType `json:"game_type"`
	Avatar   string   `json:"avatar,omitempty"`
	Settings Settings `json:"settings"`
}

// JoinRoomPayload is the payload of join_room
type JoinRoomPayload struct {
	Avatar string `json:"avatar,omitempty"`
}

// CorrectGuessPayload names the player who guessed the item
type CorrectGuessPayload struct {
	Guesser string `json:"guesser"`
}

// GuessPayload is a free-text guess
type GuessPayload struct {
	Text string `json:"text"`
}

// StrokePayload carries one opaque drawing stroke
type StrokePayload struct {
	Stroke json.RawMessage `json:"stroke"`
}

// SubmitAnswerPayload is a quiz answer
type SubmitAnswerPayload struct {
	Answer string `json:"answer"`
}

// SubmitWordsPayload maps category to answer for the word race
type SubmitWordsPayload struct {
	Answers map[string]string `json:"answers"`
}

// EventType identifies an outbound message
type EventType string

const (
	// Room events
	EventRoomCreated   EventType = "room_created"
	EventJoined        EventType = "joined"
	EventRosterUpdated EventType = "roster_updated"
	EventPlayerLeft    EventType = "player_left"
	EventHostChanged   EventType = "host_changed"
	EventRoomClosed    EventType = "room_closed"
	EventState         EventType = "state"
	EventError         EventType = "error"

	// Game flow events
	EventGameStarted  EventType = "game_started"
	EventItemAssigned EventType = "item_assigned"
	EventTurnChanged  EventType = "turn_changed"
	EventRoundActive  EventType = "round_active"
	EventHint         EventType = "hint"
	EventScoreUpdate  EventType = "score_update"
	EventTurnTimeout  EventType = "turn_timeout"
	EventTurnPassed   EventType = "turn_passed"
	EventGamePaused   EventType = "game_paused"
	EventGameResumed  EventType = "game_resumed"
	EventGameEnded    EventType = "game_ended"

	// Drawing events
	EventStroke        EventType = "stroke"
	EventCanvasCleared EventType = "canvas_cleared"

	// Quiz events
	EventQuestion         EventType = "question"
	EventAnswerResult     EventType = "answer_result"
	EventQuestionRevealed EventType = "question_revealed"

	// Word race events
	EventWordsSubmitted EventType = "words_submitted"
	EventBusStopped     EventType = "bus_stopped"
	EventRoundResults   EventType = "round_results"
)

// Envelope is the wire format of a server message
type Envelope struct {
	Type      EventType `json:"type"`
	RoomID    RoomID    `json:"room_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload,omitempty"`
}

// RoomState is a viewer-specific snapshot of a room
type RoomState struct {
	ID             RoomID         `json:"id"`
	GameType       GameType       `json:"game_type"`
	Status         Status         `json:"status"`
	PausedFrom     Status         `json:"paused_from,omitempty"`
	Host           string         `json:"host"`
	Players        []Player       `json:"players"`
	Scores         map[string]int `json:"scores"`
	TeamScores     map[int]int    `json:"team_scores,omitempty"`
	CurrentTurn    string         `json:"current_turn,omitempty"`
	Round          int            `json:"round"`
	Item           *ItemView      `json:"item,omitempty"`
	RoundStartedAt *time.Time     `json:"round_started_at,omitempty"`
	Settings       Settings       `json:"settings"`
	ReadyPlayers   []string       `json:"ready_players,omitempty"`
	Hints          []string       `json:"hints,omitempty"`

	// Variant specific
	Canvas     []json.RawMessage `json:"canvas,omitempty"`
	Answered   []string          `json:"answered,omitempty"`
	Letter     string            `json:"letter,omitempty"`
	Categories []string          `json:"categories,omitempty"`
	Submitted  []string          `json:"submitted,omitempty"`
	StoppedBy  string            `json:"stopped_by,omitempty"`
	Results    *RoundResults     `json:"results,omitempty"`
}

// RoundResults is the scored outcome of a word race round
type RoundResults struct {
	Letter      string                       `json:"letter"`
	StoppedBy   string                       `json:"stopped_by,omitempty"`
	Submissions map[string]map[string]string `json:"submissions"`
	RoundScores map[string]map[string]int    `json:"round_scores"`
	Invalid     map[string]map[string]string `json:"invalid,omitempty"`
	WrongLetter map[string]map[string]string `json:"wrong_letter,omitempty"`
	Scores      map[string]int               `json:"scores"`
	TeamScores  map[int]int                  `json:"team_scores,omitempty"`
}

// RoomPayload wraps a room snapshot
type RoomPayload struct {
	Room RoomState `json:"room"`
}

// RosterPayload contains the current roster
type RosterPayload struct {
	Players []Player `json:"players"`
	Host    string   `json:"host"`
}

// PlayerLeftPayload contains data for player left events
type PlayerLeftPayload struct {
	Name    string   `json:"name"`
	Reason  string   `json:"reason"`
	Players []Player `json:"players"`
}

// HostChangedPayload contains data for host changed events
type HostChangedPayload struct {
	OldHost string `json:"old_host"`
	NewHost string `json:"new_host"`
}

// RoomClosedPayload says why a room was destroyed
type RoomClosedPayload struct {
	Reason string `json:"reason"`
}

// GameStartedPayload contains data for game started events
type GameStartedPayload struct {
	GameType    GameType       `json:"game_type"`
	Status      Status         `json:"status"`
	CurrentTurn string         `json:"current_turn,omitempty"`
	Scores      map[string]int `json:"scores"`
	TeamScores  map[int]int    `json:"team_scores,omitempty"`
}

// ItemAssignedPayload delivers content privately to the performer
type ItemAssignedPayload struct {
	Round int       `json:"round"`
	Item  *ItemView `json:"item"`
}

// TurnChangedPayload announces the next turn holder
type TurnChangedPayload struct {
	CurrentTurn string `json:"current_turn"`
	Round       int    `json:"round"`
	Status      Status `json:"status"`
	Reason      string `json:"reason"`
}

// RoundActivePayload starts the client countdown
type RoundActivePayload struct {
	CurrentTurn string    `json:"current_turn,omitempty"`
	Round       int       `json:"round"`
	Duration    Seconds   `json:"duration"`
	StartedAt   time.Time `json:"started_at"`
}

// HintPayload reveals part of the item to non-performers
type HintPayload struct {
	Number int    `json:"number"`
	Text   string `json:"text"`
}

// ScoreUpdatePayload follows a correct guess
type ScoreUpdatePayload struct {
	Performer  string         `json:"performer"`
	Guesser    string         `json:"guesser"`
	Points     int            `json:"points"`
	Item       *ItemView      `json:"item,omitempty"`
	Scores     map[string]int `json:"scores"`
	TeamScores map[int]int    `json:"team_scores,omitempty"`
}

// TurnEndedPayload reports an unsolved item being revealed
type TurnEndedPayload struct {
	Performer string         `json:"performer"`
	By        string         `json:"by,omitempty"`
	Item      *ItemView      `json:"item,omitempty"`
	Penalty   int            `json:"penalty,omitempty"`
	Scores    map[string]int `json:"scores"`
}

// PausePayload reports the frozen countdown
type PausePayload struct {
	Status    Status  `json:"status"`
	Remaining Seconds `json:"remaining"`
}

// GameEndedPayload carries the final scores
type GameEndedPayload struct {
	Scores     map[string]int `json:"scores"`
	TeamScores map[int]int    `json:"team_scores,omitempty"`
}

// QuestionPayload broadcasts a quiz question without its answer
type QuestionPayload struct {
	Round    int       `json:"round"`
	Question *ItemView `json:"question"`
	Duration Seconds   `json:"duration"`
}

// AnswerResultPayload is the private result of a quiz answer
type AnswerResultPayload struct {
	Correct bool `json:"correct"`
	Points  int  `json:"points"`
}

// QuestionRevealedPayload closes a quiz question
type QuestionRevealedPayload struct {
	Answer     string         `json:"answer,omitempty"`
	Winner     string         `json:"winner,omitempty"`
	Scores     map[string]int `json:"scores"`
	TeamScores map[int]int    `json:"team_scores,omitempty"`
}

// WordsSubmittedPayload lists who has submitted in the word race
type WordsSubmittedPayload struct {
	Submitted []string `json:"submitted"`
}

// BusStoppedPayload says who ended the word race round
type BusStoppedPayload struct {
	StoppedBy string `json:"stopped_by"`
}

// ErrorPayload is sent privately to the originating connection
type ErrorPayload struct {
	Code    string     `json:"code"`
	Message string     `json:"message"`
	Action  ActionType `json:"action,omitempty"`
}
