package session

import "time"

// Time-decayed points for a solved turn
const (
	FastPoints   = 10
	MediumPoints = 5
	FastWindow   = 60 * time.Second
	MediumWindow = 120 * time.Second
)

// ScoreForElapsed returns 10 within the first minute of a round, 5 within
// the second and 0 afterwards.
func ScoreForElapsed(elapsed time.Duration) int {
	switch {
	case elapsed <= FastWindow:
		return FastPoints
	case elapsed <= MediumWindow:
		return MediumPoints
	default:
		return 0
	}
}

// addScore credits a player, mirroring into their team total in team mode
func (s *Session) addScore(identity string, points int) {
	s.scores[identity] += points
	if s.settings.Teams {
		if p, ok := s.player(identity); ok && p.Team != 0 {
			s.teamScores[p.Team] += points
		}
	}
}

// awardPair credits both performer and guesser. A shared team is credited once.
func (s *Session) awardPair(performer, guesser string, points int) {
	s.scores[performer] += points
	s.scores[guesser] += points
	if !s.settings.Teams {
		return
	}

	pTeam, gTeam := s.teamOf(performer), s.teamOf(guesser)
	if pTeam != 0 {
		s.teamScores[pTeam] += points
	}
	if gTeam != 0 && gTeam != pTeam {
		s.teamScores[gTeam] += points
	}
}

func (s *Session) teamOf(identity string) int {
	p, _ := s.player(identity)
	return p.Team
}
