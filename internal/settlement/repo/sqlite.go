package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/radieske/bet-settlement-engine/internal/settlement/domain"
)

// SQLiteSchema espelha PostgresSchema para o modo local (datas em unix millis, booleanos 0/1)
const SQLiteSchema = `
CREATE TABLE IF NOT EXISTS matches (
	id                TEXT PRIMARY KEY,
	status            TEXT NOT NULL DEFAULT 'SCHEDULED',
	home_score        INTEGER,
	away_score        INTEGER,
	ht_home_score     INTEGER,
	ht_away_score     INTEGER,
	first_goal_minute INTEGER,
	kickoff_at        INTEGER
);

CREATE TABLE IF NOT EXISTS match_results (
	match_id          TEXT PRIMARY KEY,
	home_goals        INTEGER,
	away_goals        INTEGER,
	ht_home_goals     INTEGER,
	ht_away_goals     INTEGER,
	first_goal_minute INTEGER,
	is_final          INTEGER NOT NULL DEFAULT 0,
	updated_at        INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS bets (
	id                   TEXT PRIMARY KEY,
	user_id              TEXT NOT NULL,
	event_id             TEXT NOT NULL,
	market               TEXT NOT NULL DEFAULT '',
	selection            TEXT NOT NULL,
	stake_cents          INTEGER NOT NULL,
	odd_value            REAL NOT NULL,
	status               TEXT NOT NULL DEFAULT 'PENDING',
	is_final             INTEGER NOT NULL DEFAULT 0,
	is_complete          INTEGER NOT NULL DEFAULT 0,
	settled_at           INTEGER,
	settled_amount_cents INTEGER NOT NULL DEFAULT 0,
	credited_at          INTEGER,
	first_goal_minute    INTEGER,
	ht_home_goals        INTEGER,
	ht_away_goals        INTEGER,
	created_at           INTEGER NOT NULL,
	updated_at           INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS bets_event_status_idx ON bets (event_id, status);
`

const liteWagerColumns = `
	b.id, b.user_id, b.event_id, b.selection, b.market, b.stake_cents, b.odd_value,
	b.status, b.is_final, b.is_complete, b.settled_at, b.settled_amount_cents, b.credited_at,
	b.created_at, m.kickoff_at, b.first_goal_minute, b.ht_home_goals, b.ht_away_goals`

// SQLite implementa o mesmo contrato de Postgres sobre um arquivo local
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLite(db *sql.DB) *SQLite { return &SQLite{db: db, now: time.Now} }

func (s *SQLite) CreateTables(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, SQLiteSchema); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	return nil
}

func scanLiteWager(sc rowScanner) (domain.Wager, error) {
	var (
		w                         domain.Wager
		status                    string
		isFinal, isComplete       int64
		settledAt, creditedAt     sql.NullInt64
		createdAt                 int64
		kickoff                   sql.NullInt64
		firstGoal, htHome, htAway sql.NullInt64
	)
	err := sc.Scan(&w.ID, &w.UserID, &w.MatchID, &w.Selection, &w.BetType, &w.StakeCents, &w.OddValue,
		&status, &isFinal, &isComplete, &settledAt, &w.SettledAmountCents, &creditedAt,
		&createdAt, &kickoff, &firstGoal, &htHome, &htAway)
	if err != nil {
		return w, err
	}
	w.Status = domain.Status(status)
	w.IsFinal, w.IsComplete = isFinal != 0, isComplete != 0
	w.SettledAt = fromMillis(settledAt)
	w.CreditedAt = fromMillis(creditedAt)
	w.PlacedAt = time.UnixMilli(createdAt).UTC()
	w.KickoffAt = fromMillis(kickoff)
	w.FirstGoalMinute = nullInt(firstGoal)
	w.HalfTimeHome = nullInt(htHome)
	w.HalfTimeAway = nullInt(htAway)
	return w, nil
}

func (s *SQLite) queryWagers(ctx context.Context, q string, args ...any) ([]domain.Wager, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Wager
	for rows.Next() {
		w, err := scanLiteWager(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// CreatePending insere uma aposta PENDING; gera o id quando vazio
func (s *SQLite) CreatePending(ctx context.Context, w domain.Wager) (string, error) {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	if w.PlacedAt.IsZero() {
		w.PlacedAt = s.now()
	}
	now := millis(s.now())
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO bets (id, user_id, event_id, market, selection, stake_cents, odd_value, status,
		                  first_goal_minute, ht_home_goals, ht_away_goals, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,'PENDING',?,?,?,?,?)`,
		w.ID, w.UserID, w.MatchID, w.BetType, w.Selection, w.StakeCents, w.OddValue,
		intArg(w.FirstGoalMinute), intArg(w.HalfTimeHome), intArg(w.HalfTimeAway),
		millis(w.PlacedAt), now,
	)
	if err != nil {
		return "", err
	}
	return w.ID, nil
}

// UpsertMatch grava a linha da partida (status, placar e kickoff)
func (s *SQLite) UpsertMatch(ctx context.Context, m domain.MatchSnapshot, status string) error {
	var kickoff any
	if m.KickoffAt != nil {
		kickoff = millis(*m.KickoffAt)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO matches (id, status, home_score, away_score, ht_home_score, ht_away_score, first_goal_minute, kickoff_at)
		VALUES (?,?,?,?,?,?,?,?)
		ON CONFLICT (id) DO UPDATE SET
		  status=excluded.status, home_score=excluded.home_score, away_score=excluded.away_score,
		  ht_home_score=excluded.ht_home_score, ht_away_score=excluded.ht_away_score,
		  first_goal_minute=excluded.first_goal_minute, kickoff_at=excluded.kickoff_at`,
		m.MatchID, status, intArg(m.HomeScore), intArg(m.AwayScore),
		intArg(m.HalfTimeHome), intArg(m.HalfTimeAway), intArg(m.FirstGoalMinute), kickoff,
	)
	return err
}

func (s *SQLite) PendingWagers(ctx context.Context, matchID string) ([]domain.Wager, error) {
	q := `SELECT ` + liteWagerColumns + `
		FROM bets b LEFT JOIN matches m ON m.id = b.event_id
		WHERE b.event_id = ? AND b.status = 'PENDING'
		ORDER BY b.id`
	return s.queryWagers(ctx, q, matchID)
}

func (s *SQLite) GetWager(ctx context.Context, wagerID string) (*domain.Wager, error) {
	q := `SELECT ` + liteWagerColumns + `
		FROM bets b LEFT JOIN matches m ON m.id = b.event_id
		WHERE b.id = ?`
	w, err := scanLiteWager(s.db.QueryRowContext(ctx, q, wagerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (s *SQLite) WriteSettlement(ctx context.Context, st domain.Settlement) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE bets
		SET status=?, is_final=?, is_complete=?, settled_amount_cents=?, settled_at=?, updated_at=?
		WHERE id=? AND status='PENDING'`,
		string(st.Status), boolInt(st.IsFinal), boolInt(st.IsComplete), st.AmountCents,
		millis(st.SettledAt), millis(s.now()), st.WagerID,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (s *SQLite) MarkCredited(ctx context.Context, wagerID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE bets SET credited_at=?, updated_at=? WHERE id=? AND credited_at IS NULL`,
		millis(at), millis(s.now()), wagerID)
	return err
}

func (s *SQLite) UncreditedPayouts(ctx context.Context, limit int) ([]domain.Wager, error) {
	q := `SELECT ` + liteWagerColumns + `
		FROM bets b LEFT JOIN matches m ON m.id = b.event_id
		WHERE b.credited_at IS NULL AND (
		      (b.status = 'WON' AND b.is_final = 1 AND b.is_complete = 1 AND b.settled_amount_cents > 0)
		   OR (b.status = 'CANCELLED' AND b.stake_cents > 0))
		ORDER BY b.settled_at
		LIMIT ?`
	return s.queryWagers(ctx, q, limit)
}

func (s *SQLite) StalePendingMatches(ctx context.Context, kickoffBefore time.Time) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT b.event_id
		FROM bets b LEFT JOIN matches m ON m.id = b.event_id
		WHERE b.status = 'PENDING' AND COALESCE(m.kickoff_at, b.created_at) < ?
		ORDER BY b.event_id`, millis(kickoffBefore))
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

func (s *SQLite) CancelPending(ctx context.Context, wagerID string, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE bets SET status='CANCELLED', settled_at=?, updated_at=? WHERE id=? AND status='PENDING'`,
		millis(at), millis(s.now()), wagerID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (s *SQLite) MatchFacts(ctx context.Context, matchID string) (*domain.MatchFacts, error) {
	var (
		f                                     domain.MatchFacts
		isFinal                               int64
		home, away, htHome, htAway, firstGoal sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT match_id, home_goals, away_goals, ht_home_goals, ht_away_goals, first_goal_minute, is_final
		FROM match_results WHERE match_id=?`, matchID).
		Scan(&f.MatchID, &home, &away, &htHome, &htAway, &firstGoal, &isFinal)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	f.IsFinal = isFinal != 0
	f.HomeGoals, f.AwayGoals = nullInt(home), nullInt(away)
	f.HalfTimeHome, f.HalfTimeAway = nullInt(htHome), nullInt(htAway)
	f.FirstGoalMinute = nullInt(firstGoal)
	return &f, nil
}

func (s *SQLite) MatchSnapshot(ctx context.Context, matchID string) (*domain.MatchSnapshot, error) {
	var (
		snap                                  domain.MatchSnapshot
		status                                string
		home, away, htHome, htAway, firstGoal sql.NullInt64
		kickoff                               sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, status, home_score, away_score, ht_home_score, ht_away_score, first_goal_minute, kickoff_at
		FROM matches WHERE id=?`, matchID).
		Scan(&snap.MatchID, &status, &home, &away, &htHome, &htAway, &firstGoal, &kickoff)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	snap.Completed = completedStatus(status)
	snap.HomeScore, snap.AwayScore = nullInt(home), nullInt(away)
	snap.HalfTimeHome, snap.HalfTimeAway = nullInt(htHome), nullInt(htAway)
	snap.FirstGoalMinute = nullInt(firstGoal)
	snap.KickoffAt = fromMillis(kickoff)
	return &snap, nil
}

func (s *SQLite) SaveMatchFacts(ctx context.Context, f domain.MatchFacts) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO match_results
		  (match_id, home_goals, away_goals, ht_home_goals, ht_away_goals, first_goal_minute, is_final, updated_at)
		VALUES (?,?,?,?,?,?,?,?)
		ON CONFLICT (match_id) DO UPDATE SET
		  home_goals        = CASE WHEN match_results.is_final = 1 THEN match_results.home_goals ELSE excluded.home_goals END,
		  away_goals        = CASE WHEN match_results.is_final = 1 THEN match_results.away_goals ELSE excluded.away_goals END,
		  ht_home_goals     = CASE WHEN match_results.is_final = 1 THEN COALESCE(match_results.ht_home_goals, excluded.ht_home_goals) ELSE excluded.ht_home_goals END,
		  ht_away_goals     = CASE WHEN match_results.is_final = 1 THEN COALESCE(match_results.ht_away_goals, excluded.ht_away_goals) ELSE excluded.ht_away_goals END,
		  first_goal_minute = CASE WHEN match_results.is_final = 1 THEN COALESCE(match_results.first_goal_minute, excluded.first_goal_minute) ELSE excluded.first_goal_minute END,
		  is_final          = MAX(match_results.is_final, excluded.is_final),
		  updated_at        = excluded.updated_at`,
		f.MatchID, intArg(f.HomeGoals), intArg(f.AwayGoals),
		intArg(f.HalfTimeHome), intArg(f.HalfTimeAway), intArg(f.FirstGoalMinute),
		boolInt(f.IsFinal), millis(s.now()),
	)
	return err
}
