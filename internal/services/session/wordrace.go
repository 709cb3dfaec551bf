package session

import (
	"sort"
	"strings"

	"github.com/mcoot/partygames/internal/dependencies/random"
	"github.com/mcoot/partygames/internal/model"
	"github.com/mcoot/partygames/internal/services/dictionary"
)

// Word race points per category
const (
	UniqueAnswerPoints = 10
	SharedAnswerPoints = 5
)

// DefaultCategories are used when the room does not configure its own
var DefaultCategories = []string{"name", "animal", "plant", "object", "country", "food", "profession"}

// DefaultAlphabet is used when the room does not configure its own
var DefaultAlphabet = strings.Split("ABCDEFGHIJKLMNOPQRSTUVWXYZ", "")

// WordRace is the simultaneous free-form word game: each round has a letter
// and every player fills one word per category.
type WordRace struct {
	random     random.Random
	categories []string
	alphabet   []string

	letter      string
	submissions map[string]map[string]string
	wrongLetter map[string]map[string]string
	stoppedBy   string
	results     *model.RoundResults
}

var _ Variant = (*WordRace)(nil)

// NewWordRace creates the word race variant. Categories are trimmed and
// deduplicated; a blank category or letter is rejected.
func NewWordRace(settings model.Settings, rnd random.Random) (*WordRace, error) {
	categories, err := cleanList(settings.Categories, strings.TrimSpace)
	if err != nil {
		return nil, err
	}
	alphabet, err := cleanList(settings.Alphabet, func(l string) string {
		return strings.ToUpper(strings.TrimSpace(l))
	})
	if err != nil {
		return nil, err
	}

	w := &WordRace{
		random:     rnd,
		categories: categories,
		alphabet:   alphabet,
	}
	if len(w.categories) == 0 {
		w.categories = DefaultCategories
	}
	if len(w.alphabet) == 0 {
		w.alphabet = DefaultAlphabet
	}
	w.Reset()
	return w, nil
}

// cleanList applies clean to every entry and drops folded duplicates
func cleanList(values []string, clean func(string) string) ([]string, error) {
	var out []string
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		v = clean(v)
		if v == "" {
			return nil, model.ErrInvalidPayload
		}
		key := dictionary.Normalize(v)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
	}
	return out, nil
}

func (w *WordRace) GameType() model.GameType { return model.GameBusComplete }
func (w *WordRace) TurnBased() bool { return false }
func (w *WordRace) NeedsItem() bool { return false }
func (w *WordRace) RequiresScoring() bool { return true }

// AdvanceRound draws a new letter and opens the round
func (w *WordRace) AdvanceRound(s *Session, _ *model.Item) error {
	if err := s.canTransition(model.StatusPlaying); err != nil {
		return err
	}

	w.Reset()
	w.letter = w.alphabet[w.random.Intn(len(w.alphabet))]
	s.round++
	s.item = nil
	s.mustTransition(model.StatusPlaying)
	s.StartRoundTimer()
	s.mustTransition(model.StatusRoundActive)
	return nil
}

// ScoreSubmission stores a player's answers. Answers that do not start with
// the round letter are blanked and kept aside. Points are assigned by ScoreRound.
func (w *WordRace) ScoreSubmission(s *Session, sub Submission) (Award, error) {
	if s.status != model.StatusRoundActive {
		return Award{}, model.ErrWrongGameStatus
	}
	if sub.Answers == nil {
		return Award{}, model.ErrInvalidPayload
	}

	answers := make(map[string]string, len(w.categories))
	wrong := make(map[string]string)
	for _, cat := range w.categories {
		value := strings.TrimSpace(sub.Answers[cat])
		switch {
		case value == "":
			answers[cat] = ""
		case !dictionary.HasPrefixFold(value, w.letter):
			wrong[cat] = value
			answers[cat] = ""
		default:
			answers[cat] = value
		}
	}

	w.submissions[sub.Player] = answers
	if len(wrong) > 0 {
		w.wrongLetter[sub.Player] = wrong
	} else {
		delete(w.wrongLetter, sub.Player)
	}
	return Award{}, nil
}

// EndRound closes submissions and moves to scoring. stoppedBy is empty when
// the round expired.
func (w *WordRace) EndRound(s *Session, stoppedBy string) error {
	if s.status != model.StatusRoundActive {
		return model.ErrWrongGameStatus
	}
	w.stoppedBy = stoppedBy
	s.mustTransition(model.StatusScoring)
	return nil
}

// PendingAnswers returns the non-empty answers awaiting validation
func (w *WordRace) PendingAnswers() map[string]map[string]string {
	out := make(map[string]map[string]string, len(w.submissions))
	for player, answers := range w.submissions {
		for cat, ans := range answers {
			if ans == "" {
				continue
			}
			if out[player] == nil {
				out[player] = make(map[string]string)
			}
			out[player][cat] = ans
		}
	}
	return out
}

// ScoreRound blanks invalid answers and assigns points: a unique answer in a
// category scores 10, an answer shared with others scores 5.
func (w *WordRace) ScoreRound(s *Session, invalid map[string]map[string]string) (*model.RoundResults, error) {
	if s.status != model.StatusScoring || w.results != nil {
		return nil, model.ErrWrongGameStatus
	}

	for player, cats := range invalid {
		for cat := range cats {
			if answers, ok := w.submissions[player]; ok {
				answers[cat] = ""
			}
		}
	}

	roundScores := make(map[string]map[string]int, len(s.players))
	for _, p := range s.players {
		roundScores[p.Name] = make(map[string]int, len(w.categories))
		for _, cat := range w.categories {
			roundScores[p.Name][cat] = 0
		}
	}

	for _, cat := range w.categories {
		byAnswer := make(map[string][]string)
		for _, p := range s.players {
			ans := w.submissions[p.Name][cat]
			if ans == "" {
				continue
			}
			key := dictionary.Normalize(ans)
			byAnswer[key] = append(byAnswer[key], p.Name)
		}
		for _, players := range byAnswer {
			points := UniqueAnswerPoints
			if len(players) > 1 {
				points = SharedAnswerPoints
			}
			for _, name := range players {
				roundScores[name][cat] = points
				s.addScore(name, points)
			}
		}
	}

	w.results = &model.RoundResults{
		Letter:      w.letter,
		StoppedBy:   w.stoppedBy,
		Submissions: copyNested(w.submissions),
		RoundScores: roundScores,
		Invalid:     copyNested(invalid),
		WrongLetter: copyNested(w.wrongLetter),
		Scores:      s.Scores(),
		TeamScores:  s.TeamScores(),
	}
	return w.results, nil
}

// Scored reports whether the current round's results are in
func (w *WordRace) Scored() bool { return w.results != nil }

// Letter returns the round letter
func (w *WordRace) Letter() string { return w.letter }

// Categories returns the configured categories
func (w *WordRace) Categories() []string { return append([]string(nil), w.categories...) }

// Submitted lists players who have submitted this round
func (w *WordRace) Submitted() []string {
	names := make([]string, 0, len(w.submissions))
	for name := range w.submissions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (w *WordRace) VisibleContentFor(s *Session, viewer string) *model.ItemView { return nil }

func (w *WordRace) HintText(s *Session, n int) string { return "" }

// Describe adds the letter, categories and either who has submitted or the results
func (w *WordRace) Describe(s *Session, viewer string, state *model.RoomState) {
	state.Letter = w.letter
	state.Categories = w.Categories()
	state.StoppedBy = w.stoppedBy
	if w.results != nil {
		state.Results = w.results
		return
	}
	state.Submitted = w.Submitted()
}

func (w *WordRace) Forget(identity string) {
	delete(w.submissions, identity)
	delete(w.wrongLetter, identity)
}

func (w *WordRace) Reset() {
	w.letter = ""
	w.submissions = make(map[string]map[string]string)
	w.wrongLetter = make(map[string]map[string]string)
	w.stoppedBy = ""
	w.results = nil
}

func copyNested(in map[string]map[string]string) map[string]map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]map[string]string, len(in))
	for k, inner := range in {
		cp := make(map[string]string, len(inner))
		for ik, iv := range inner {
			cp[ik] = iv
		}
		out[k] = cp
	}
	return out
}
