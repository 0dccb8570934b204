package events

// Evento emitido pelo settlement-worker quando uma aposta chega a estado terminal.
type BetSettled struct {
	BetID       string `json:"bet_id"`
	UserID      string `json:"user_id"`
	MatchID     string `json:"match_id"`
	Status      string `json:"status"` // "WON" | "LOST" | "CANCELLED"
	AmountCents int64  `json:"amount_cents"`
	SettledAt   int64  `json:"settled_at_unix_ms"`
	TsUnixMs    int64  `json:"ts_unix_ms"`
}
