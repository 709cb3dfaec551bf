package session

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mcoot/partygames/internal/model"
	"github.com/mcoot/partygames/internal/services/dictionary"
)

// MaxCanvasStrokes bounds the strokes kept for canvas resync
const MaxCanvasStrokes = 5000

// Turns is the acting (charades) and drawing (pictionary) behaviour: one
// performer per round, everyone else guesses.
type Turns struct {
	gameType model.GameType
	drawing  bool
	canvas   []json.RawMessage
}

var _ Variant = (*Turns)(nil)

// NewTurns creates a turn-based variant. drawing enables the shared canvas.
func NewTurns(gameType model.GameType, drawing bool) *Turns {
	return &Turns{gameType: gameType, drawing: drawing}
}

func (t *Turns) GameType() model.GameType { return t.gameType }
func (t *Turns) TurnBased() bool { return true }
func (t *Turns) NeedsItem() bool { return true }
func (t *Turns) RequiresScoring() bool { return false }

// AdvanceRound hands the turn to the next roster member. item may be nil
// when content is still being fetched; the performer cannot ready up until
// it arrives.
func (t *Turns) AdvanceRound(s *Session, item *model.Item) error {
	if len(s.players) == 0 {
		return model.ErrNotEnoughPlayers
	}
	if err := s.canTransition(model.StatusPlaying); err != nil {
		return err
	}

	s.currentTurn = s.successor()
	s.item = item
	s.round++
	s.roundStartedAt = nil
	s.hints = nil
	s.ready = make(map[string]struct{})
	t.canvas = nil
	s.mustTransition(model.StatusPlaying)
	return nil
}

// ScoreSubmission awards a correct guess to both performer and guesser.
// With an Answer set it is a free-text guess, checked against the prompt.
func (t *Turns) ScoreSubmission(s *Session, sub Submission) (Award, error) {
	if s.status != model.StatusRoundActive {
		return Award{}, model.ErrWrongGameStatus
	}
	if sub.Player == s.currentTurn {
		return Award{}, model.ErrCannotGuessOwn
	}
	if s.item == nil {
		return Award{}, model.ErrContentUnavailable
	}
	if sub.Answer != "" && !dictionary.EqualFold(sub.Answer, s.item.Prompt) {
		return Award{}, nil
	}

	points := ScoreForElapsed(s.Elapsed())
	s.awardPair(s.currentTurn, sub.Player, points)
	return Award{Correct: true, Points: points}, nil
}

// VisibleContentFor shows the full item to the performer only
func (t *Turns) VisibleContentFor(s *Session, viewer string) *model.ItemView {
	if s.item == nil {
		return nil
	}
	if viewer != "" && viewer == s.currentTurn {
		return s.item.FullView()
	}
	return &model.ItemView{Hidden: true}
}

// HintText reveals the length, then the first letter, then metadata or the last letter
func (t *Turns) HintText(s *Session, n int) string {
	if s.item == nil {
		return ""
	}
	word := strings.TrimSpace(s.item.Prompt)
	if word == "" {
		return ""
	}

	switch n {
	case 1:
		hint := fmt.Sprintf("%d letters, %d words", letterCount(word), len(strings.Fields(word)))
		if s.item.Category != "" {
			hint = s.item.Category + ": " + hint
		}
		return hint
	case 2:
		first, _ := utf8.DecodeRuneInString(word)
		return fmt.Sprintf("starts with %q", string(first))
	case 3:
		if extra := metadataHint(s.item.Metadata); extra != "" {
			return extra
		}
		last, _ := utf8.DecodeLastRuneInString(word)
		return fmt.Sprintf("ends with %q", string(last))
	default:
		return ""
	}
}

// Describe adds the canvas for drawing games
func (t *Turns) Describe(s *Session, viewer string, state *model.RoomState) {
	if t.drawing {
		state.Canvas = append([]json.RawMessage(nil), t.canvas...)
	}
}

func (t *Turns) Forget(identity string) {}

func (t *Turns) Reset() {
	t.canvas = nil
}

// Drawing reports whether the variant has a canvas
func (t *Turns) Drawing() bool { return t.drawing }

// AddStroke appends a stroke drawn by the performer
func (t *Turns) AddStroke(s *Session, identity string, stroke json.RawMessage) error {
	if !t.drawing {
		return model.ErrInvalidAction
	}
	if s.status != model.StatusRoundActive {
		return model.ErrWrongGameStatus
	}
	if identity != s.currentTurn {
		return model.ErrNotYourTurn
	}
	if len(stroke) == 0 || !json.Valid(stroke) || len(t.canvas) >= MaxCanvasStrokes {
		return model.ErrInvalidPayload
	}
	t.canvas = append(t.canvas, stroke)
	return nil
}

// ClearCanvas wipes the canvas
func (t *Turns) ClearCanvas(s *Session, identity string) error {
	if !t.drawing {
		return model.ErrInvalidAction
	}
	if s.status != model.StatusRoundActive {
		return model.ErrWrongGameStatus
	}
	if identity != s.currentTurn {
		return model.ErrNotYourTurn
	}
	t.canvas = nil
	return nil
}

func letterCount(word string) int {
	n := 0
	for _, r := range word {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			n++
		}
	}
	return n
}

func metadataHint(meta map[string]string) string {
	if len(meta) == 0 {
		return ""
	}
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return fmt.Sprintf("%s: %s", keys[0], meta[keys[0]])
}
