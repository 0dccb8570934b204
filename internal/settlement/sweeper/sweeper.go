package sweeper

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/bet-settlement-engine/internal/settlement/coordinator"
)

// Coordinator é o subconjunto do coordenador usado pelas varreduras
type Coordinator interface {
	SweepStale(ctx context.Context) ([]*coordinator.Report, error)
	RetryCredits(ctx context.Context) (int, error)
}

// Sweeper roda periodicamente a resolução forçada de apostas velhas
// e a repetição de créditos que falharam
type Sweeper struct {
	log           *zap.Logger
	coord         Coordinator
	sweepInterval time.Duration
	retryInterval time.Duration
}

func New(log *zap.Logger, c Coordinator, sweepInterval, retryInterval time.Duration) *Sweeper {
	return &Sweeper{log: log, coord: c, sweepInterval: sweepInterval, retryInterval: retryInterval}
}

// Start bloqueia até o contexto ser cancelado. Intervalo <= 0 desliga o loop correspondente.
func (s *Sweeper) Start(ctx context.Context) {
	done := make(chan struct{}, 2)
	go func() { s.loop(ctx, s.sweepInterval, s.sweepOnce); done <- struct{}{} }()
	go func() { s.loop(ctx, s.retryInterval, s.retryOnce); done <- struct{}{} }()
	<-done
	<-done
}

func (s *Sweeper) loop(ctx context.Context, every time.Duration, fn func(context.Context)) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	// roda já na partida
	fn(ctx)
	for {
		select {
		case <-ticker.C:
			fn(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (s *Sweeper) sweepOnce(ctx context.Context) {
	reports, err := s.coord.SweepStale(ctx)
	if err != nil {
		s.log.Warn("stale sweep", zap.Error(err))
		return
	}
	settled := 0
	for _, r := range reports {
		settled += len(r.Resolutions)
	}
	if len(reports) > 0 {
		s.log.Info("stale sweep done", zap.Int("matches", len(reports)), zap.Int("settled", settled))
	}
}

func (s *Sweeper) retryOnce(ctx context.Context) {
	if _, err := s.coord.RetryCredits(ctx); err != nil {
		s.log.Warn("credit retry", zap.Error(err))
	}
}
