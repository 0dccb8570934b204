package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const SQLiteSchema = `
CREATE TABLE IF NOT EXISTS wallets (
	id            TEXT PRIMARY KEY,
	user_id       TEXT NOT NULL UNIQUE,
	balance_cents INTEGER NOT NULL DEFAULT 0,
	version       INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS wallet_ledger (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	wallet_id      TEXT NOT NULL REFERENCES wallets(id),
	operation_type TEXT NOT NULL,
	amount_cents   INTEGER NOT NULL,
	description    TEXT NOT NULL,
	related_bet_id TEXT,
	created_at     INTEGER NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS wallet_ledger_ref_idx ON wallet_ledger (wallet_id, description);
`

// SQLite é o ledger do modo local; a escrita é serializada pelo próprio banco
type SQLite struct{ db *sql.DB }

func NewSQLite(db *sql.DB) *SQLite { return &SQLite{db: db} }

func (s *SQLite) CreateTables(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, SQLiteSchema); err != nil {
		return fmt.Errorf("create ledger tables: %w", err)
	}
	return nil
}

// OpenWallet cria a carteira do usuário se ainda não existir
func (s *SQLite) OpenWallet(ctx context.Context, userID string, balanceCents int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO wallets(id, user_id, balance_cents, version) VALUES(?,?,?,1) ON CONFLICT (user_id) DO NOTHING`,
		uuid.NewString(), userID, balanceCents)
	return err
}

func (s *SQLite) Credit(ctx context.Context, userID string, amountCents int64, ref string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var walletID string
	err = tx.QueryRowContext(ctx, `SELECT id FROM wallets WHERE user_id=?`, userID).Scan(&walletID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: user %s", ErrWalletNotFound, userID)
	}
	if err != nil {
		return err
	}

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM wallet_ledger WHERE wallet_id=? AND description=?`, walletID, ref).Scan(&exists)
	if err == nil {
		return nil
	} else if !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	if _, err = tx.ExecContext(ctx, `UPDATE wallets SET balance_cents = balance_cents + ?, version = version + 1 WHERE id=?`, amountCents, walletID); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `INSERT INTO wallet_ledger(wallet_id, operation_type, amount_cents, description, related_bet_id, created_at)
		VALUES(?,'CREDIT',?,?,?,?)`, walletID, amountCents, ref, betRef(ref), time.Now().UnixMilli()); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLite) Balance(ctx context.Context, userID string) (int64, error) {
	var bal int64
	err := s.db.QueryRowContext(ctx, `SELECT balance_cents FROM wallets WHERE user_id=?`, userID).Scan(&bal)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrWalletNotFound
	}
	return bal, err
}
