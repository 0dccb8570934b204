package events

import "time"

// Evento publicado no tópico "match_finished" pelo feed de resultados.
// Campos de placar ausentes significam dado ainda indisponível.
type MatchFinished struct {
	MatchID         string    `json:"match_id"`
	HomeGoals       *int      `json:"home_goals,omitempty"`
	AwayGoals       *int      `json:"away_goals,omitempty"`
	HTHomeGoals     *int      `json:"ht_home_goals,omitempty"`
	HTAwayGoals     *int      `json:"ht_away_goals,omitempty"`
	FirstGoalMinute *int      `json:"first_goal_minute,omitempty"`
	IsFinal         bool      `json:"is_final"`
	FinishedAt      time.Time `json:"finished_at"`
	Source          string    `json:"source,omitempty"`
}
