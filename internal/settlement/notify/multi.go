package notify

import (
	"context"
	"errors"

	"github.com/radieske/bet-settlement-engine/internal/settlement/domain"
)

// Notifier é implementado por cada canal de aviso
type Notifier interface {
	NotifySettlement(ctx context.Context, n domain.SettlementNotice) error
}

// Multi envia o aviso a todos os canais; a falha de um não impede os outros
type Multi []Notifier

func (m Multi) NotifySettlement(ctx context.Context, n domain.SettlementNotice) error {
	var errs []error
	for _, x := range m {
		if err := x.NotifySettlement(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
