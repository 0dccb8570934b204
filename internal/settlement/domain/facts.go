package domain

import "time"

// MatchFacts é o resultado consolidado de uma partida.
// Apenas fatos com IsFinal=true liquidam apostas.
type MatchFacts struct {
	MatchID         string `json:"match_id"`
	HomeGoals       *int   `json:"home_goals,omitempty"`
	AwayGoals       *int   `json:"away_goals,omitempty"`
	HalfTimeHome    *int   `json:"ht_home_goals,omitempty"`
	HalfTimeAway    *int   `json:"ht_away_goals,omitempty"`
	FirstGoalMinute *int   `json:"first_goal_minute,omitempty"`
	IsFinal         bool   `json:"is_final"`
}

// HasScore indica se os dois placares finais estão presentes
func (f MatchFacts) HasScore() bool {
	return f.HomeGoals != nil && f.AwayGoals != nil
}

// Settleable indica se os fatos podem liquidar apostas
func (f MatchFacts) Settleable() bool {
	return f.IsFinal && f.HasScore()
}

// ForWager completa fatos auxiliares ausentes com os gravados na aposta
func (f MatchFacts) ForWager(w Wager) MatchFacts {
	out := f
	if out.FirstGoalMinute == nil {
		out.FirstGoalMinute = w.FirstGoalMinute
	}
	if out.HalfTimeHome == nil && out.HalfTimeAway == nil {
		out.HalfTimeHome = w.HalfTimeHome
		out.HalfTimeAway = w.HalfTimeAway
	}
	return out
}

// MatchSnapshot é a linha da própria partida (status e placar),
// usada como fallback quando ainda não existe registro de resultado.
type MatchSnapshot struct {
	MatchID         string
	Completed       bool
	HomeScore       *int
	AwayScore       *int
	HalfTimeHome    *int
	HalfTimeAway    *int
	FirstGoalMinute *int
	KickoffAt       *time.Time
}

// Facts sintetiza fatos finais a partir de uma partida concluída
func (s MatchSnapshot) Facts() (MatchFacts, bool) {
	if !s.Completed || s.HomeScore == nil || s.AwayScore == nil {
		return MatchFacts{}, false
	}
	return MatchFacts{
		MatchID:         s.MatchID,
		HomeGoals:       s.HomeScore,
		AwayGoals:       s.AwayScore,
		HalfTimeHome:    s.HalfTimeHome,
		HalfTimeAway:    s.HalfTimeAway,
		FirstGoalMinute: s.FirstGoalMinute,
		IsFinal:         true,
	}, true
}

func IntPtr(v int) *int { return &v }
