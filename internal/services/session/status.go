package session

import (
	"fmt"

	"github.com/mcoot/partygames/internal/model"
)

// Allowed status edges. paused only ever returns to the status it froze.
var transitions = map[model.Status][]model.Status{
	model.StatusWaiting:     {model.StatusPlaying},
	model.StatusPlaying:     {model.StatusPlaying, model.StatusRoundActive, model.StatusPaused, model.StatusWaiting},
	model.StatusRoundActive: {model.StatusPlaying, model.StatusScoring, model.StatusPaused, model.StatusWaiting},
	model.StatusScoring:     {model.StatusPlaying, model.StatusWaiting},
	model.StatusPaused:      {model.StatusPlaying, model.StatusRoundActive, model.StatusWaiting},
}

func (s *Session) canTransition(to model.Status) error {
	from := s.status
	if from == model.StatusPaused && to != model.StatusWaiting && to != s.pausedFrom {
		return fmt.Errorf("%w: %s -> %s", model.ErrWrongGameStatus, from, to)
	}
	// Variants that score rounds must pass through scoring
	if from == model.StatusRoundActive && to == model.StatusPlaying && s.variant.RequiresScoring() {
		return fmt.Errorf("%w: %s -> %s", model.ErrWrongGameStatus, from, to)
	}
	for _, allowed := range transitions[from] {
		if allowed == to {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", model.ErrWrongGameStatus, from, to)
}

// mustTransition moves to a new status. Callers validate with canTransition
// first, so a failure here is a programming error.
func (s *Session) mustTransition(to model.Status) {
	if err := s.canTransition(to); err != nil {
		panic(err)
	}
	s.status = to
}
