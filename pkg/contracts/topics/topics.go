package topics

const (
	// Partidas
	MatchFinished = "match_finished"

	// Apostas
	BetSettled = "bet_settled"

	// DLQs
	MatchFinishedDLQ = "match_finished_dlq"
)
