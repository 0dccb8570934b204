package market

import (
	"regexp"
	"strings"
)

var (
	separatorRuns = regexp.MustCompile(`[_\-]+`)
	underscores   = regexp.MustCompile(`_+`)
	spaces        = regexp.MustCompile(`\s+`)
	trailingLine  = regexp.MustCompile(`\s*\d+(\.\d+)?$`)
)

// keyTable mapeia rótulos de mercado (já canônicos) para o tipo
var keyTable = map[string]Kind{
	"MATCH RESULT":     MatchResult,
	"1X2":              MatchResult,
	"RESULT":           MatchResult,
	"FULL TIME RESULT": MatchResult,
	"FT RESULT":        MatchResult,
	"MATCH WINNER":     MatchResult,
	"MATCH ODDS":       MatchResult,
	"H2H":              MatchResult,
	"WINNER":           MatchResult,

	"DOUBLE CHANCE": DoubleChance,
	"DC":            DoubleChance,

	"OVER UNDER":  OverUnder,
	"OVER/UNDER":  OverUnder,
	"OV/UN":       OverUnder,
	"OVUN":        OverUnder,
	"OU":          OverUnder,
	"O/U":         OverUnder,
	"TOTAL GOALS": OverUnder,
	"TOTALS":      OverUnder,

	"BTTS":                BothTeamsToScore,
	"BOTH TEAMS TO SCORE": BothTeamsToScore,
	"GG/NG":               BothTeamsToScore,
	"GG NG":               BothTeamsToScore,

	"CORRECT SCORE": CorrectScore,
	"CS":            CorrectScore,
	"EXACT SCORE":   CorrectScore,

	"TG":                TotalGoalsRange,
	"TOTAL GOALS RANGE": TotalGoalsRange,
	"GOALS RANGE":       TotalGoalsRange,

	"FIRST GOAL TIME":    FirstGoalTime,
	"FIRST GOAL":         FirstGoalTime,
	"FGT":                FirstGoalTime,
	"TIME OF FIRST GOAL": FirstGoalTime,

	"ODD EVEN":       OddEven,
	"ODD/EVEN":       OddEven,
	"OE":             OddEven,
	"GOALS ODD EVEN": OddEven,

	"HT/FT":               HalfTimeFullTime,
	"HTFT":                HalfTimeFullTime,
	"HT FT":               HalfTimeFullTime,
	"HALF TIME FULL TIME": HalfTimeFullTime,
	"HALF TIME/FULL TIME": HalfTimeFullTime,

	"DRAW NO BET": DrawNoBet,
	"DNB":         DrawNoBet,
}

// inferRules são aplicadas em ordem à seleção canônica; a primeira que casar vence
var inferRules = []struct {
	re   *regexp.Regexp
	kind Kind
}{
	{regexp.MustCompile(`^(1|2|X|HOME|AWAY|DRAW)$`), MatchResult},
	{regexp.MustCompile(`^(1X|12|X2|HOME OR DRAW|HOME OR AWAY|DRAW OR AWAY)$`), DoubleChance},
	{regexp.MustCompile(`^(OV|OVER|UNDER|UN) ?[0-9.]`), OverUnder},
	{regexp.MustCompile(`^BTTS`), BothTeamsToScore},
	{regexp.MustCompile(`^CS \d+-\d+`), CorrectScore},
	{regexp.MustCompile(`^TG (OVER|UNDER)`), TotalGoalsRange},
	{regexp.MustCompile(`^FIRST GOAL`), FirstGoalTime},
	{regexp.MustCompile(`^(ODD|EVEN|GOALS ODD|GOALS EVEN)$`), OddEven},
	{regexp.MustCompile(`^HT/FT`), HalfTimeFullTime},
}

// Normalize resolve o mercado de uma aposta.
// O tipo explícito (betTypeRaw) tem prioridade; sem ele o tipo é inferido da seleção.
func Normalize(selectionRaw, betTypeRaw string) Market {
	selection := CanonicalSelection(selectionRaw)
	if key := CanonicalKey(betTypeRaw); key != "" {
		return Market{Kind: LookupKey(key), Selection: selection}
	}
	return Market{Kind: Infer(selection), Selection: selection}
}

// CanonicalKey normaliza um rótulo de mercado: trim, "_"/"-" viram espaço,
// espaços colapsados e caixa alta.
func CanonicalKey(raw string) string {
	s := separatorRuns.ReplaceAllString(raw, " ")
	s = spaces.ReplaceAllString(strings.TrimSpace(s), " ")
	return strings.ToUpper(s)
}

// CanonicalSelection aplica a mesma normalização do rótulo, mas preserva "-",
// usado por placares ("CS 2-1") e faixas de minutos ("FIRST GOAL 0-15").
func CanonicalSelection(raw string) string {
	s := underscores.ReplaceAllString(raw, " ")
	s = spaces.ReplaceAllString(strings.TrimSpace(s), " ")
	return strings.ToUpper(s)
}

// LookupKey busca o rótulo na tabela; sem acerto exato tenta novamente
// sem a linha numérica final ("OVUN2.5" -> "OVUN").
func LookupKey(key string) Kind {
	if k, ok := keyTable[key]; ok {
		return k
	}
	if base := trailingLine.ReplaceAllString(key, ""); base != "" && base != key {
		if k, ok := keyTable[base]; ok {
			return k
		}
	}
	return Unknown
}

// Infer deduz o tipo a partir de uma seleção já canônica
func Infer(selection string) Kind {
	for _, r := range inferRules {
		if r.re.MatchString(selection) {
			return r.kind
		}
	}
	return Unknown
}
