package dispatcher

import "time"

// Config holds timing and policy settings for all rooms
type Config struct {
	TurnTimeout     time.Duration   // Time a performer has to ready up
	RoundTimeLimit  time.Duration   // Turn-based scored countdown
	TriviaTimeLimit time.Duration   // Per question
	BusTimeLimit    time.Duration   // Word race round
	HintOffsets     []time.Duration // From round start
	RevealDelay     time.Duration   // Pause between a closed question and the next
	TimeoutPenalty  int             // Deducted from a performer whose round ran out

	// AutoCloseSolo closes a room when a game in progress drops to one player
	AutoCloseSolo bool
	// LeaveOnDisconnect removes a player once their last connection drops
	LeaveOnDisconnect bool

	InboxSize    int
	FetchTimeout time.Duration
}

// DefaultConfig returns default dispatcher configuration
func DefaultConfig() Config {
	return Config{
		TurnTimeout:       30 * time.Second,
		RoundTimeLimit:    120 * time.Second,
		TriviaTimeLimit:   30 * time.Second,
		BusTimeLimit:      180 * time.Second,
		HintOffsets:       []time.Duration{30 * time.Second, 60 * time.Second, 90 * time.Second},
		RevealDelay:       3 * time.Second,
		TimeoutPenalty:    5,
		AutoCloseSolo:     true,
		LeaveOnDisconnect: true,
		InboxSize:         256,
		FetchTimeout:      10 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.TurnTimeout <= 0 {
		c.TurnTimeout = d.TurnTimeout
	}
	if c.RoundTimeLimit <= 0 {
		c.RoundTimeLimit = d.RoundTimeLimit
	}
	if c.TriviaTimeLimit <= 0 {
		c.TriviaTimeLimit = d.TriviaTimeLimit
	}
	if c.BusTimeLimit <= 0 {
		c.BusTimeLimit = d.BusTimeLimit
	}
	if c.RevealDelay <= 0 {
		c.RevealDelay = d.RevealDelay
	}
	if c.TimeoutPenalty < 0 {
		c.TimeoutPenalty = 0
	}
	if c.InboxSize <= 0 {
		c.InboxSize = d.InboxSize
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = d.FetchTimeout
	}
	return c
}
