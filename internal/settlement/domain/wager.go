package domain

import "time"

// Status é o estado persistido de uma aposta
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusWon       Status = "WON"
	StatusLost      Status = "LOST"
	StatusCancelled Status = "CANCELLED"
)

// Terminal indica se o status nunca mais será reavaliado
func (s Status) Terminal() bool {
	return s == StatusWon || s == StatusLost || s == StatusCancelled
}

// Wager é uma aposta simples ligada a uma partida e a um mercado.
// Os campos HalfTime*/FirstGoalMinute são fatos auxiliares gravados junto da aposta;
// quando presentes completam os fatos da partida.
type Wager struct {
	ID        string
	UserID    string
	MatchID   string
	Selection string
	BetType   string // opcional; vazio => mercado inferido pela seleção

	StakeCents int64
	OddValue   float64

	Status             Status
	IsFinal            bool
	IsComplete         bool
	SettledAt          *time.Time
	SettledAmountCents int64
	CreditedAt         *time.Time

	PlacedAt  time.Time
	KickoffAt *time.Time

	FirstGoalMinute *int
	HalfTimeHome    *int
	HalfTimeAway    *int
}

// DisplayStatus retorna o status visível ao usuário.
// WON/LOST só aparecem quando is_final e is_complete estão ambos gravados.
func (w Wager) DisplayStatus() Status {
	switch w.Status {
	case StatusWon, StatusLost:
		if w.IsFinal && w.IsComplete {
			return w.Status
		}
		return StatusPending
	case StatusCancelled:
		return StatusCancelled
	default:
		return StatusPending
	}
}

// CreditDue retorna o valor devido ao usuário por uma aposta terminal e a ref do ledger:
// prêmio de aposta ganha ("win:<id>") ou devolução da stake de aposta cancelada ("cancel:<id>").
func (w Wager) CreditDue() (int64, string) {
	switch w.DisplayStatus() {
	case StatusWon:
		return w.SettledAmountCents, "win:" + w.ID
	case StatusCancelled:
		return w.StakeCents, "cancel:" + w.ID
	default:
		return 0, ""
	}
}

// AwaitingCredit indica prêmio ou devolução cujo crédito ainda não foi confirmado
func (w Wager) AwaitingCredit() bool {
	amount, _ := w.CreditDue()
	return amount > 0 && w.CreditedAt == nil
}

// Settlement é a escrita única que leva uma aposta PENDING a um estado terminal
type Settlement struct {
	WagerID     string
	Status      Status
	IsFinal     bool
	IsComplete  bool
	AmountCents int64
	SettledAt   time.Time
}
