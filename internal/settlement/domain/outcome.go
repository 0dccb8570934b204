package domain

// Outcome é o resultado da avaliação de um mercado
type Outcome int

const (
	OutcomePending Outcome = iota
	OutcomeWon
	OutcomeLost
)

func (o Outcome) String() string {
	switch o {
	case OutcomeWon:
		return "WON"
	case OutcomeLost:
		return "LOST"
	default:
		return "PENDING"
	}
}

// Status converte o resultado no status persistido da aposta
func (o Outcome) Status() Status {
	switch o {
	case OutcomeWon:
		return StatusWon
	case OutcomeLost:
		return StatusLost
	default:
		return StatusPending
	}
}
