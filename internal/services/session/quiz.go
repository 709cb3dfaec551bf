package session

import (
	"sort"

	"github.com/mcoot/partygames/internal/model"
	"github.com/mcoot/partygames/internal/services/dictionary"
)

// QuizPoints is awarded for the first correct answer to a question
const QuizPoints = 10

// Quiz is the simultaneous-answer trivia behaviour: everyone answers the
// same question and the first correct answer locks it.
type Quiz struct {
	answered map[string]struct{}
	locked   bool
	revealed bool
	winner   string
}

var _ Variant = (*Quiz)(nil)

// NewQuiz creates the trivia variant
func NewQuiz() *Quiz {
	return &Quiz{answered: make(map[string]struct{})}
}

func (q *Quiz) GameType() model.GameType { return model.GameTrivia }
func (q *Quiz) TurnBased() bool { return false }
func (q *Quiz) NeedsItem() bool { return true }
func (q *Quiz) RequiresScoring() bool { return false }

// AdvanceRound puts the next question live immediately
func (q *Quiz) AdvanceRound(s *Session, item *model.Item) error {
	if item == nil {
		return model.ErrContentUnavailable
	}
	if err := s.canTransition(model.StatusPlaying); err != nil {
		return err
	}

	q.Reset()
	s.item = item
	s.round++
	s.hints = nil
	s.mustTransition(model.StatusPlaying)
	s.StartRoundTimer()
	s.mustTransition(model.StatusRoundActive)
	return nil
}

// ScoreSubmission records an answer. The first correct one locks the question.
func (q *Quiz) ScoreSubmission(s *Session, sub Submission) (Award, error) {
	if s.status != model.StatusRoundActive || s.item == nil {
		return Award{}, model.ErrWrongGameStatus
	}
	if q.locked || q.revealed {
		return Award{}, model.ErrQuestionLocked
	}
	if _, ok := q.answered[sub.Player]; ok {
		return Award{}, model.ErrAlreadyAnswered
	}

	q.answered[sub.Player] = struct{}{}
	if !dictionary.EqualFold(sub.Answer, s.item.Answer) {
		return Award{}, nil
	}

	q.locked = true
	q.winner = sub.Player
	s.addScore(sub.Player, QuizPoints)
	return Award{Correct: true, Points: QuizPoints}, nil
}

// VisibleContentFor shows the question to everyone and the answer once it is out
func (q *Quiz) VisibleContentFor(s *Session, viewer string) *model.ItemView {
	if s.item == nil {
		return nil
	}
	view := &model.ItemView{
		Prompt:   s.item.Prompt,
		Category: s.item.Category,
		Choices:  s.item.Choices,
		Metadata: s.item.Metadata,
	}
	if q.locked || q.revealed {
		view.Answer = s.item.Answer
	}
	return view
}

func (q *Quiz) HintText(s *Session, n int) string { return "" }

// Describe lists who has answered
func (q *Quiz) Describe(s *Session, viewer string, state *model.RoomState) {
	for name := range q.answered {
		state.Answered = append(state.Answered, name)
	}
	sort.Strings(state.Answered)
}

func (q *Quiz) Forget(identity string) {
	delete(q.answered, identity)
}

func (q *Quiz) Reset() {
	q.answered = make(map[string]struct{})
	q.locked = false
	q.revealed = false
	q.winner = ""
}

// Reveal closes the question without a winner. It reports false if the
// question was already closed.
func (q *Quiz) Reveal() bool {
	if q.locked || q.revealed {
		return false
	}
	q.revealed = true
	return true
}

// Closed reports whether the question is locked or revealed
func (q *Quiz) Closed() bool { return q.locked || q.revealed }

// Winner returns who answered correctly, if anyone
func (q *Quiz) Winner() string { return q.winner }

// AllAnswered reports whether every roster member has answered
func (q *Quiz) AllAnswered(s *Session) bool {
	for _, p := range s.players {
		if _, ok := q.answered[p.Name]; !ok {
			return false
		}
	}
	return len(s.players) > 0
}
