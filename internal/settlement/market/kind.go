package market

// Kind identifica a família de proposição de uma aposta
type Kind int

const (
	Unknown Kind = iota
	MatchResult
	DoubleChance
	OverUnder
	BothTeamsToScore
	CorrectScore
	TotalGoalsRange
	FirstGoalTime
	OddEven
	HalfTimeFullTime
	DrawNoBet
)

var kindNames = map[Kind]string{
	Unknown:          "UNKNOWN",
	MatchResult:      "MATCH_RESULT",
	DoubleChance:     "DOUBLE_CHANCE",
	OverUnder:        "OVER_UNDER",
	BothTeamsToScore: "BTTS",
	CorrectScore:     "CORRECT_SCORE",
	TotalGoalsRange:  "TOTAL_GOALS_RANGE",
	FirstGoalTime:    "FIRST_GOAL_TIME",
	OddEven:          "ODD_EVEN",
	HalfTimeFullTime: "HT_FT",
	DrawNoBet:        "DRAW_NO_BET",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return kindNames[Unknown]
}

// Market é o par canônico (tipo, seleção) produzido pelo normalizador.
// Selection carrega os parâmetros do mercado (linha, placar, faixa de minutos),
// interpretados apenas pelo avaliador.
type Market struct {
	Kind      Kind
	Selection string
}
