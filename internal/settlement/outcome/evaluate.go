// Package outcome avalia um mercado normalizado contra os fatos finais de uma partida.
// Todas as funções são puras: mesma entrada, mesmo resultado.
package outcome

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/radieske/bet-settlement-engine/internal/settlement/domain"
	"github.com/radieske/bet-settlement-engine/internal/settlement/market"
)

var (
	overUnderRe    = regexp.MustCompile(`(?i)(OVER|UNDER|OV|UN)[ _]?(\d+(\.\d+)?)`)
	correctScoreRe = regexp.MustCompile(`(?i)CS[ _-]?(\d+)[ _-]?(\d+)`)
	totalGoalsRe   = regexp.MustCompile(`^TG (OVER|UNDER) ([\d.]+)$`)
	firstGoalRe    = regexp.MustCompile(`^FIRST GOAL (\d+)-(\d+)$`)
	htftRe         = regexp.MustCompile(`^HT/FT (\d|X)/(\d|X)$`)
)

type score struct{ home, away int }

func (s score) total() int { return s.home + s.away }

func (s score) homeWins() bool { return s.home > s.away }

func (s score) awayWins() bool { return s.away > s.home }

func (s score) isDraw() bool { return s.home == s.away }

func (s score) bothScored() bool { return s.home > 0 && s.away > 0 }

// result retorna "1", "2" ou "X"
func (s score) result() string {
	switch {
	case s.homeWins():
		return "1"
	case s.awayWins():
		return "2"
	default:
		return "X"
	}
}

func wonIf(cond bool) domain.Outcome {
	if cond {
		return domain.OutcomeWon
	}
	return domain.OutcomeLost
}

// Evaluate decide o resultado de um mercado.
// Sem placar final completo o resultado é sempre PENDING.
func Evaluate(m market.Market, facts domain.MatchFacts) domain.Outcome {
	if !facts.HasScore() {
		return domain.OutcomePending
	}
	s := score{home: *facts.HomeGoals, away: *facts.AwayGoals}
	sel := m.Selection

	switch m.Kind {
	case market.MatchResult:
		return matchResult(sel, s)
	case market.DoubleChance:
		return doubleChance(sel, s)
	case market.OverUnder:
		return overUnder(sel, s)
	case market.BothTeamsToScore:
		return bothTeamsToScore(sel, s)
	case market.CorrectScore:
		return correctScore(sel, s)
	case market.TotalGoalsRange:
		return totalGoalsRange(sel, s)
	case market.FirstGoalTime:
		return firstGoalTime(sel, facts.FirstGoalMinute)
	case market.OddEven:
		return oddEven(sel, s)
	case market.HalfTimeFullTime:
		return halfTimeFullTime(sel, s, facts)
	case market.DrawNoBet:
		return drawNoBet(sel, s)
	case market.Unknown:
		return bestEffort(sel, s)
	default:
		return domain.OutcomePending
	}
}

func matchResult(sel string, s score) domain.Outcome {
	switch sel {
	case "1", "HOME":
		return wonIf(s.homeWins())
	case "2", "AWAY":
		return wonIf(s.awayWins())
	case "X", "DRAW":
		return wonIf(s.isDraw())
	default:
		return domain.OutcomeLost
	}
}

func doubleChance(sel string, s score) domain.Outcome {
	switch sel {
	case "1X", "HOME OR DRAW":
		return wonIf(s.homeWins() || s.isDraw())
	case "12", "HOME OR AWAY":
		return wonIf(!s.isDraw())
	case "X2", "DRAW OR AWAY":
		return wonIf(s.awayWins() || s.isDraw())
	default:
		return domain.OutcomeLost
	}
}

// compareLine aplica desigualdade estrita; total igual à linha perde nos dois lados
func compareLine(direction string, total int, line float64) domain.Outcome {
	t := float64(total)
	switch strings.ToUpper(direction) {
	case "OVER", "OV":
		return wonIf(t > line)
	case "UNDER", "UN":
		return wonIf(t < line)
	default:
		return domain.OutcomeLost
	}
}

func overUnder(sel string, s score) domain.Outcome {
	m := overUnderRe.FindStringSubmatch(sel)
	if m == nil {
		return domain.OutcomeLost
	}
	line, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return domain.OutcomeLost
	}
	return compareLine(m[1], s.total(), line)
}

func bothTeamsToScore(sel string, s score) domain.Outcome {
	switch sel {
	case "YES", "BTTS YES":
		return wonIf(s.bothScored())
	case "NO", "BTTS NO":
		return wonIf(!s.bothScored())
	default:
		return domain.OutcomeLost
	}
}

func correctScore(sel string, s score) domain.Outcome {
	m := correctScoreRe.FindStringSubmatch(sel)
	if m == nil {
		return domain.OutcomeLost
	}
	home, err1 := strconv.Atoi(m[1])
	away, err2 := strconv.Atoi(m[2])
	if err1 != nil || err2 != nil {
		return domain.OutcomeLost
	}
	return wonIf(s.home == home && s.away == away)
}

func totalGoalsRange(sel string, s score) domain.Outcome {
	m := totalGoalsRe.FindStringSubmatch(sel)
	if m == nil {
		return domain.OutcomeLost
	}
	line, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return domain.OutcomeLost
	}
	return compareLine(m[1], s.total(), line)
}

// firstGoalTime precisa do minuto do primeiro gol; sem ele a aposta aguarda, mesmo num 0-0
func firstGoalTime(sel string, minute *int) domain.Outcome {
	m := firstGoalRe.FindStringSubmatch(sel)
	if m == nil {
		return domain.OutcomeLost
	}
	from, err1 := strconv.Atoi(m[1])
	to, err2 := strconv.Atoi(m[2])
	if err1 != nil || err2 != nil {
		return domain.OutcomeLost
	}
	if minute == nil {
		return domain.OutcomePending
	}
	return wonIf(*minute >= from && *minute <= to)
}

func oddEven(sel string, s score) domain.Outcome {
	switch {
	case strings.Contains(sel, "ODD"):
		return wonIf(s.total()%2 == 1)
	case strings.Contains(sel, "EVEN"):
		return wonIf(s.total()%2 == 0)
	default:
		return domain.OutcomeLost
	}
}

// halfTimeFullTime: intervalo ausente conta como 0-0
func halfTimeFullTime(sel string, s score, facts domain.MatchFacts) domain.Outcome {
	m := htftRe.FindStringSubmatch(sel)
	if m == nil {
		return domain.OutcomePending
	}
	ht := score{}
	if facts.HalfTimeHome != nil {
		ht.home = *facts.HalfTimeHome
	}
	if facts.HalfTimeAway != nil {
		ht.away = *facts.HalfTimeAway
	}
	return wonIf(m[1] == ht.result() && m[2] == s.result())
}

// drawNoBet em empate fica PENDING (aposta anulada não tem estado próprio)
func drawNoBet(sel string, s score) domain.Outcome {
	if s.isDraw() {
		return domain.OutcomePending
	}
	switch sel {
	case "1", "HOME":
		return wonIf(s.homeWins())
	case "2", "AWAY":
		return wonIf(s.awayWins())
	default:
		return domain.OutcomeLost
	}
}

// bestEffort redireciona seleções reconhecíveis de mercados desconhecidos
func bestEffort(sel string, s score) domain.Outcome {
	switch {
	case strings.HasPrefix(sel, "CS"):
		return correctScore(sel, s)
	case strings.HasPrefix(sel, "TG"):
		return totalGoalsRange(sel, s)
	case strings.HasPrefix(sel, "OV"), strings.HasPrefix(sel, "UN"):
		return overUnder(sel, s)
	default:
		return domain.OutcomePending
	}
}
