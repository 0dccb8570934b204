package dto

import "time"

// WagerResponse é a visão de uma aposta exposta pela API de administração.
// Status já é o status de exibição: WON/LOST só com is_final e is_complete gravados.
type WagerResponse struct {
	BetID          string     `json:"betId"`
	UserID         string     `json:"userId"`
	MatchID        string     `json:"matchId"`
	Market         string     `json:"market,omitempty"`
	Selection      string     `json:"selection"`
	MarketKind     string     `json:"market_kind"`
	StakeCents     int64      `json:"stake_cents"`
	OddValue       float64    `json:"odd_value"`
	Status         string     `json:"status"`
	SettledAmount  int64      `json:"settled_amount_cents"`
	SettledAt      *time.Time `json:"settled_at,omitempty"`
	AwaitingCredit bool       `json:"awaiting_credit,omitempty"`
}

type BalanceResponse struct {
	UserID       string `json:"userId"`
	BalanceCents int64  `json:"balance_cents"`
}

type RetryCreditsResponse struct {
	Credited int `json:"credited"`
}

type InFlightResponse struct {
	MatchID  string `json:"matchId"`
	InFlight bool   `json:"in_flight"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
