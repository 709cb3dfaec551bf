package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// RoomID is the creator-chosen identifier for a room
type RoomID string

// MaxRoomIDLength bounds the free-form room id
const MaxRoomIDLength = 32

// MaxPlayers is the roster capacity of every room
const MaxPlayers = 8

// MinPlayers is the roster size required to start a game
const MinPlayers = 2

// GameType selects the variant behaviour of a room
type GameType string

const (
	GameCharades    GameType = "charades"
	GamePictionary  GameType = "pictionary"
	GameTrivia      GameType = "trivia"
	GameBusComplete GameType = "bus_complete"
)

// GameTypes lists every supported game type
var GameTypes = []GameType{GameCharades, GamePictionary, GameTrivia, GameBusComplete}

// Valid reports whether the game type is supported
func (g GameType) Valid() bool {
	for _, t := range GameTypes {
		if t == g {
			return true
		}
	}
	return false
}

// Status is the game session state
type Status string

const (
	StatusWaiting     Status = "waiting"      // Open for joins
	StatusPlaying     Status = "playing"      // Turn assigned, clock not started
	StatusRoundActive Status = "round_active" // Scored countdown running
	StatusScoring     Status = "scoring"      // Submissions being validated and scored
	StatusPaused      Status = "paused"       // Host freeze
)

// Settings is the immutable per-room configuration chosen at creation
type Settings struct {
	Teams       bool     `json:"teams"`
	Difficulty  string   `json:"difficulty,omitempty"`
	TimeLimit   Seconds  `json:"time_limit,omitempty"` // 0 means the server default
	Category    string   `json:"category,omitempty"`
	CustomItems []string `json:"custom_items,omitempty"`

	// Word race options
	Categories      []string `json:"categories,omitempty"`
	Alphabet        []string `json:"alphabet,omitempty"`
	ValidateAnswers *bool    `json:"validate_answers,omitempty"`
}

// ShouldValidateAnswers defaults to true when unset
func (s Settings) ShouldValidateAnswers() bool {
	return s.ValidateAnswers == nil || *s.ValidateAnswers
}

// Seconds is a duration carried on the wire as whole seconds
type Seconds time.Duration

// Duration converts to time.Duration
func (s Seconds) Duration() time.Duration {
	return time.Duration(s)
}

// MarshalJSON encodes as whole seconds
func (s Seconds) MarshalJSON() ([]byte, error) {
	return json.Marshal(int64(time.Duration(s) / time.Second))
}

// MaxSeconds bounds every duration a client may configure
const MaxSeconds = 24 * 60 * 60

// UnmarshalJSON decodes whole seconds between 0 and MaxSeconds
func (s *Seconds) UnmarshalJSON(data []byte) error {
	var secs int64
	if err := json.Unmarshal(data, &secs); err != nil {
		return err
	}
	if secs < 0 || secs > MaxSeconds {
		return fmt.Errorf("%w: %d seconds is out of range", ErrInvalidPayload, secs)
	}
	*s = Seconds(time.Duration(secs) * time.Second)
	return nil
}

// RoomSummary is the lightweight listing of an open room
type RoomSummary struct {
	ID          RoomID    `json:"id"`
	GameType    GameType  `json:"game_type"`
	Status      Status    `json:"status"`
	Host        string    `json:"host"`
	PlayerCount int       `json:"player_count"`
	CreatedAt   time.Time `json:"created_at"`
}
