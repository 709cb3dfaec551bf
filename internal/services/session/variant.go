package session

import (
	"github.com/mcoot/partygames/internal/dependencies/random"
	"github.com/mcoot/partygames/internal/model"
)

// Variant is the game-mode specific behaviour of a session. Variants keep
// their own per-round state and mutate the session only through its
// unexported helpers.
type Variant interface {
	GameType() model.GameType
	// TurnBased reports whether a single performer rotates through the roster
	TurnBased() bool
	// NeedsItem reports whether each round requires content from the item source
	NeedsItem() bool
	// RequiresScoring reports whether rounds must pass through the scoring status
	RequiresScoring() bool

	AdvanceRound(s *Session, item *model.Item) error
	ScoreSubmission(s *Session, sub Submission) (Award, error)
	VisibleContentFor(s *Session, viewer string) *model.ItemView
	HintText(s *Session, n int) string
	Describe(s *Session, viewer string, state *model.RoomState)

	// Forget drops any per-round state held for a departing player
	Forget(identity string)
	// Reset clears per-round state
	Reset()
}

// Submission is a player's scored contribution to the current round
type Submission struct {
	Player  string
	Answer  string            // Free-text guess or quiz answer
	Answers map[string]string // Word race answers per category
}

// Award is the score effect of a submission
type Award struct {
	Correct bool
	Points  int
}

// NewVariant builds the behaviour for a game type
func NewVariant(gameType model.GameType, settings model.Settings, rnd random.Random) (Variant, error) {
	switch gameType {
	case model.GameCharades:
		return NewTurns(model.GameCharades, false), nil
	case model.GamePictionary:
		return NewTurns(model.GamePictionary, true), nil
	case model.GameTrivia:
		return NewQuiz(), nil
	case model.GameBusComplete:
		w, err := NewWordRace(settings, rnd)
		if err != nil {
			return nil, err
		}
		return w, nil
	default:
		return nil, model.ErrUnknownGameType
	}
}
