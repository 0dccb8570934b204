package coordinator

import (
	"context"
	"time"

	"github.com/radieske/bet-settlement-engine/internal/settlement/domain"
)

// WagerStore é o contrato mínimo de persistência de apostas usado pela liquidação
type WagerStore interface {
	PendingWagers(ctx context.Context, matchID string) ([]domain.Wager, error)
	GetWager(ctx context.Context, wagerID string) (*domain.Wager, error)
	// WriteSettlement grava status, is_final, is_complete, valor e data numa única escrita,
	// somente se a aposta ainda estiver PENDING. applied=false quando outra escrita venceu.
	WriteSettlement(ctx context.Context, s domain.Settlement) (applied bool, err error)
	MarkCredited(ctx context.Context, wagerID string, at time.Time) error
	// UncreditedPayouts lista apostas WON e CANCELLED com credited_at nulo
	UncreditedPayouts(ctx context.Context, limit int) ([]domain.Wager, error)
	StalePendingMatches(ctx context.Context, kickoffBefore time.Time) ([]string, error)
	CancelPending(ctx context.Context, wagerID string, at time.Time) (applied bool, err error)
}

// FactsStore fornece os fatos finais de uma partida.
// MatchFacts e MatchSnapshot retornam (nil, nil) quando não há registro.
type FactsStore interface {
	MatchFacts(ctx context.Context, matchID string) (*domain.MatchFacts, error)
	MatchSnapshot(ctx context.Context, matchID string) (*domain.MatchSnapshot, error)
	SaveMatchFacts(ctx context.Context, f domain.MatchFacts) error
}

// Ledger credita saldo de forma atômica; ref identifica o crédito para idempotência
type Ledger interface {
	Credit(ctx context.Context, userID string, amountCents int64, ref string) error
}

// Notifier envia avisos de liquidação; falhas nunca desfazem a liquidação
type Notifier interface {
	NotifySettlement(ctx context.Context, n domain.SettlementNotice) error
}

// Locker garante no máximo uma resolução em andamento por partida
type Locker interface {
	Acquire(ctx context.Context, matchID string) (bool, error)
	Release(ctx context.Context, matchID string) error
	InFlight(ctx context.Context, matchID string) (bool, error)
}
