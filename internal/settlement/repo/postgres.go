package repo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/radieske/bet-settlement-engine/internal/settlement/domain"
)

// PostgresSchema cria as tabelas usadas pela liquidação (idempotente)
const PostgresSchema = `
CREATE TABLE IF NOT EXISTS matches (
	id                TEXT PRIMARY KEY,
	status            TEXT NOT NULL DEFAULT 'SCHEDULED',
	home_score        INT,
	away_score        INT,
	ht_home_score     INT,
	ht_away_score     INT,
	first_goal_minute INT,
	kickoff_at        TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS match_results (
	match_id          TEXT PRIMARY KEY,
	home_goals        INT,
	away_goals        INT,
	ht_home_goals     INT,
	ht_away_goals     INT,
	first_goal_minute INT,
	is_final          BOOLEAN NOT NULL DEFAULT FALSE,
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS bets (
	id                   TEXT PRIMARY KEY,
	user_id              TEXT NOT NULL,
	event_id             TEXT NOT NULL,
	market               TEXT NOT NULL DEFAULT '',
	selection            TEXT NOT NULL,
	stake_cents          BIGINT NOT NULL,
	odd_value            DOUBLE PRECISION NOT NULL,
	status               TEXT NOT NULL DEFAULT 'PENDING',
	is_final             BOOLEAN NOT NULL DEFAULT FALSE,
	is_complete          BOOLEAN NOT NULL DEFAULT FALSE,
	settled_at           TIMESTAMPTZ,
	settled_amount_cents BIGINT NOT NULL DEFAULT 0,
	credited_at          TIMESTAMPTZ,
	first_goal_minute    INT,
	ht_home_goals        INT,
	ht_away_goals        INT,
	created_at           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at           TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS bets_event_status_idx ON bets (event_id, status);
CREATE INDEX IF NOT EXISTS bets_uncredited_idx ON bets (status) WHERE credited_at IS NULL;
`

const pgWagerColumns = `
	b.id, b.user_id, b.event_id, b.selection, b.market, b.stake_cents, b.odd_value,
	b.status, b.is_final, b.is_complete, b.settled_at, b.settled_amount_cents, b.credited_at,
	b.created_at, m.kickoff_at, b.first_goal_minute, b.ht_home_goals, b.ht_away_goals`

// Postgres implementa a persistência de apostas e resultados em banco Postgres
type Postgres struct{ db *sql.DB }

// NewPostgres retorna uma instância do repositório de liquidação
func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// CreateTables aplica PostgresSchema
func (p *Postgres) CreateTables(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, PostgresSchema)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPgWager(s rowScanner) (domain.Wager, error) {
	var (
		w                         domain.Wager
		status                    string
		settledAt, creditedAt     sql.NullTime
		kickoff                   sql.NullTime
		firstGoal, htHome, htAway sql.NullInt64
	)
	err := s.Scan(&w.ID, &w.UserID, &w.MatchID, &w.Selection, &w.BetType, &w.StakeCents, &w.OddValue,
		&status, &w.IsFinal, &w.IsComplete, &settledAt, &w.SettledAmountCents, &creditedAt,
		&w.PlacedAt, &kickoff, &firstGoal, &htHome, &htAway)
	if err != nil {
		return w, err
	}
	w.Status = domain.Status(status)
	w.SettledAt = nullTime(settledAt)
	w.CreditedAt = nullTime(creditedAt)
	w.KickoffAt = nullTime(kickoff)
	w.FirstGoalMinute = nullInt(firstGoal)
	w.HalfTimeHome = nullInt(htHome)
	w.HalfTimeAway = nullInt(htAway)
	return w, nil
}

func (p *Postgres) queryWagers(ctx context.Context, q string, args ...any) ([]domain.Wager, error) {
	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Wager
	for rows.Next() {
		w, err := scanPgWager(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// PendingWagers lista as apostas PENDING de uma partida
func (p *Postgres) PendingWagers(ctx context.Context, matchID string) ([]domain.Wager, error) {
	q := `SELECT ` + pgWagerColumns + `
		FROM bets b LEFT JOIN matches m ON m.id = b.event_id
		WHERE b.event_id = $1 AND b.status = 'PENDING'
		ORDER BY b.id`
	return p.queryWagers(ctx, q, matchID)
}

// GetWager retorna uma aposta pelo id
func (p *Postgres) GetWager(ctx context.Context, wagerID string) (*domain.Wager, error) {
	q := `SELECT ` + pgWagerColumns + `
		FROM bets b LEFT JOIN matches m ON m.id = b.event_id
		WHERE b.id = $1`
	w, err := scanPgWager(p.db.QueryRowContext(ctx, q, wagerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// WriteSettlement grava o estado terminal numa única instrução condicionada a status PENDING
func (p *Postgres) WriteSettlement(ctx context.Context, s domain.Settlement) (bool, error) {
	res, err := p.db.ExecContext(ctx, `
		UPDATE bets
		SET status=$2, is_final=$3, is_complete=$4, settled_amount_cents=$5, settled_at=$6, updated_at=NOW()
		WHERE id=$1 AND status='PENDING'`,
		s.WagerID, string(s.Status), s.IsFinal, s.IsComplete, s.AmountCents, s.SettledAt,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (p *Postgres) MarkCredited(ctx context.Context, wagerID string, at time.Time) error {
	_, err := p.db.ExecContext(ctx,
		`UPDATE bets SET credited_at=$2, updated_at=NOW() WHERE id=$1 AND credited_at IS NULL`,
		wagerID, at)
	return err
}

// UncreditedPayouts lista apostas com crédito pendente: WON finalizadas e CANCELLED a devolver
func (p *Postgres) UncreditedPayouts(ctx context.Context, limit int) ([]domain.Wager, error) {
	q := `SELECT ` + pgWagerColumns + `
		FROM bets b LEFT JOIN matches m ON m.id = b.event_id
		WHERE b.credited_at IS NULL AND (
		      (b.status = 'WON' AND b.is_final AND b.is_complete AND b.settled_amount_cents > 0)
		   OR (b.status = 'CANCELLED' AND b.stake_cents > 0))
		ORDER BY b.settled_at
		LIMIT $1`
	return p.queryWagers(ctx, q, limit)
}

// StalePendingMatches lista partidas com apostas pendentes e kickoff (ou criação) anterior ao corte
func (p *Postgres) StalePendingMatches(ctx context.Context, kickoffBefore time.Time) ([]string, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT DISTINCT b.event_id
		FROM bets b LEFT JOIN matches m ON m.id = b.event_id
		WHERE b.status = 'PENDING' AND COALESCE(m.kickoff_at, b.created_at) < $1
		ORDER BY b.event_id`, kickoffBefore)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (p *Postgres) CancelPending(ctx context.Context, wagerID string, at time.Time) (bool, error) {
	res, err := p.db.ExecContext(ctx,
		`UPDATE bets SET status='CANCELLED', settled_at=$2, updated_at=NOW() WHERE id=$1 AND status='PENDING'`,
		wagerID, at)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// MatchFacts lê o registro de resultado; (nil, nil) se não existir
func (p *Postgres) MatchFacts(ctx context.Context, matchID string) (*domain.MatchFacts, error) {
	var (
		f                                     domain.MatchFacts
		home, away, htHome, htAway, firstGoal sql.NullInt64
	)
	err := p.db.QueryRowContext(ctx, `
		SELECT match_id, home_goals, away_goals, ht_home_goals, ht_away_goals, first_goal_minute, is_final
		FROM match_results WHERE match_id=$1`, matchID).
		Scan(&f.MatchID, &home, &away, &htHome, &htAway, &firstGoal, &f.IsFinal)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	f.HomeGoals, f.AwayGoals = nullInt(home), nullInt(away)
	f.HalfTimeHome, f.HalfTimeAway = nullInt(htHome), nullInt(htAway)
	f.FirstGoalMinute = nullInt(firstGoal)
	return &f, nil
}

// MatchSnapshot lê status e placar da própria partida
func (p *Postgres) MatchSnapshot(ctx context.Context, matchID string) (*domain.MatchSnapshot, error) {
	var (
		s                                     domain.MatchSnapshot
		status                                string
		home, away, htHome, htAway, firstGoal sql.NullInt64
		kickoff                               sql.NullTime
	)
	err := p.db.QueryRowContext(ctx, `
		SELECT id, status, home_score, away_score, ht_home_score, ht_away_score, first_goal_minute, kickoff_at
		FROM matches WHERE id=$1`, matchID).
		Scan(&s.MatchID, &status, &home, &away, &htHome, &htAway, &firstGoal, &kickoff)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s.Completed = completedStatus(status)
	s.HomeScore, s.AwayScore = nullInt(home), nullInt(away)
	s.HalfTimeHome, s.HalfTimeAway = nullInt(htHome), nullInt(htAway)
	s.FirstGoalMinute = nullInt(firstGoal)
	s.KickoffAt = nullTime(kickoff)
	return &s, nil
}

// SaveMatchFacts faz upsert do resultado. Num resultado já final o placar e is_final não mudam;
// só fatos auxiliares ainda nulos (intervalo, minuto do primeiro gol) são completados.
func (p *Postgres) SaveMatchFacts(ctx context.Context, f domain.MatchFacts) error {
	const q = `
		INSERT INTO match_results AS r
		  (match_id, home_goals, away_goals, ht_home_goals, ht_away_goals, first_goal_minute, is_final, updated_at)
		VALUES
		  ($1,$2,$3,$4,$5,$6,$7,NOW())
		ON CONFLICT (match_id) DO UPDATE SET
		  home_goals        = CASE WHEN r.is_final THEN r.home_goals ELSE EXCLUDED.home_goals END,
		  away_goals        = CASE WHEN r.is_final THEN r.away_goals ELSE EXCLUDED.away_goals END,
		  ht_home_goals     = CASE WHEN r.is_final THEN COALESCE(r.ht_home_goals, EXCLUDED.ht_home_goals) ELSE EXCLUDED.ht_home_goals END,
		  ht_away_goals     = CASE WHEN r.is_final THEN COALESCE(r.ht_away_goals, EXCLUDED.ht_away_goals) ELSE EXCLUDED.ht_away_goals END,
		  first_goal_minute = CASE WHEN r.is_final THEN COALESCE(r.first_goal_minute, EXCLUDED.first_goal_minute) ELSE EXCLUDED.first_goal_minute END,
		  is_final          = r.is_final OR EXCLUDED.is_final,
		  updated_at        = EXCLUDED.updated_at
	`
	_, err := p.db.ExecContext(ctx, q,
		f.MatchID, intArg(f.HomeGoals), intArg(f.AwayGoals),
		intArg(f.HalfTimeHome), intArg(f.HalfTimeAway), intArg(f.FirstGoalMinute), f.IsFinal,
	)
	return err
}
