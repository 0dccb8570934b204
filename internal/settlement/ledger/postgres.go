package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var ErrWalletNotFound = errors.New("wallet not found")

// PostgresSchema cria carteira e ledger; description carrega a ref do crédito
const PostgresSchema = `
CREATE TABLE IF NOT EXISTS wallets (
	id            TEXT PRIMARY KEY,
	user_id       TEXT NOT NULL UNIQUE,
	balance_cents BIGINT NOT NULL DEFAULT 0,
	version       BIGINT NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS wallet_ledger (
	id             BIGSERIAL PRIMARY KEY,
	wallet_id      TEXT NOT NULL REFERENCES wallets(id),
	operation_type TEXT NOT NULL,
	amount_cents   BIGINT NOT NULL,
	description    TEXT NOT NULL,
	related_bet_id TEXT,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS wallet_ledger_ref_idx ON wallet_ledger (wallet_id, description);
`

// Postgres credita saldo direto nas tabelas de carteira
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

func (p *Postgres) CreateTables(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, PostgresSchema)
	return err
}

// Credit incrementa o saldo e registra a operação no ledger numa única transação.
// Lock pessimista na linha da carteira; uma ref já registrada não credita de novo.
func (p *Postgres) Credit(ctx context.Context, userID string, amountCents int64, ref string) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var walletID string
	err = tx.QueryRowContext(ctx, `SELECT id FROM wallets WHERE user_id=$1 FOR UPDATE`, userID).Scan(&walletID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: user %s", ErrWalletNotFound, userID)
	}
	if err != nil {
		return err
	}

	// Idempotência por (wallet_id, ref)
	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM wallet_ledger WHERE wallet_id=$1 AND description=$2`, walletID, ref).Scan(&exists)
	if err == nil {
		return nil
	} else if !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	if _, err = tx.ExecContext(ctx, `UPDATE wallets SET balance_cents = balance_cents + $1, version = version + 1 WHERE id=$2`, amountCents, walletID); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `INSERT INTO wallet_ledger(wallet_id, operation_type, amount_cents, description, related_bet_id)
		VALUES($1,'CREDIT',$2,$3,$4)`, walletID, amountCents, ref, betRef(ref)); err != nil {
		return err
	}
	return tx.Commit()
}

// Balance retorna o saldo atual do usuário
func (p *Postgres) Balance(ctx context.Context, userID string) (int64, error) {
	var bal int64
	err := p.db.QueryRowContext(ctx, `SELECT balance_cents FROM wallets WHERE user_id=$1`, userID).Scan(&bal)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrWalletNotFound
	}
	return bal, err
}
