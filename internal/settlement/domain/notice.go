package domain

import "time"

// SettlementNotice é a mensagem enviada ao usuário quando uma aposta é resolvida
type SettlementNotice struct {
	WagerID     string    `json:"bet_id"`
	UserID      string    `json:"user_id"`
	MatchID     string    `json:"match_id"`
	Status      Status    `json:"status"`
	AmountCents int64     `json:"amount_cents"`
	SettledAt   time.Time `json:"settled_at"`
}
