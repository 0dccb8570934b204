package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/bet-settlement-engine/internal/settlement/coordinator"
	"github.com/radieske/bet-settlement-engine/internal/settlement/domain"
	"github.com/radieske/bet-settlement-engine/pkg/contracts/events"
)

// MessageReader é o subconjunto de *kafka.Reader usado pelo consumer
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

// MessageWriter é o subconjunto de *kafka.Writer usado na DLQ
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// FactsWriter grava o resultado recebido
type FactsWriter interface {
	SaveMatchFacts(ctx context.Context, f domain.MatchFacts) error
}

// Resolver dispara a liquidação de uma partida
type Resolver interface {
	ResolveMatch(ctx context.Context, matchID string) (*coordinator.Report, error)
}

// Processor consome match_finished, grava o resultado e resolve as apostas da partida.
// Falhas são repetidas Retries vezes; depois a mensagem original vai para a DLQ.
type Processor struct {
	Log      *zap.Logger
	Reader   MessageReader
	Facts    FactsWriter
	Resolver Resolver
	DLQ      MessageWriter // opcional

	Retries int
	Backoff time.Duration // multiplicado pela tentativa

	OnConsumed func()                    // métricas (counter++)
	OnResolved func(*coordinator.Report) // métricas
	OnError    func(string)              // métricas por fase
}

// Run inicia o loop principal de consumo até o contexto ser cancelado
func (p *Processor) Run(ctx context.Context) error {
	for {
		m, err := p.Reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.Log.Warn("kafka read failed", zap.Error(err))
			p.fail("read")
			time.Sleep(500 * time.Millisecond)
			continue
		}
		p.Handle(ctx, m)
	}
}

// Handle processa uma mensagem; nunca retorna erro, falhas terminam na DLQ
func (p *Processor) Handle(ctx context.Context, m kafka.Message) {
	if p.OnConsumed != nil {
		p.OnConsumed()
	}

	var ev events.MatchFinished
	if err := json.Unmarshal(m.Value, &ev); err != nil || ev.MatchID == "" {
		p.Log.Warn("invalid match_finished message", zap.Error(err))
		p.fail("decode")
		p.deadLetter(ctx, m, "decode")
		return
	}

	err := p.withRetry(ctx, func() error { return p.process(ctx, ev) })
	if err != nil {
		p.Log.Error("match_finished processing failed",
			zap.String("matchId", ev.MatchID),
			zap.Error(err),
		)
		p.fail("resolve")
		p.deadLetter(ctx, m, err.Error())
	}
}

func (p *Processor) process(ctx context.Context, ev events.MatchFinished) error {
	facts := domain.MatchFacts{
		MatchID:         ev.MatchID,
		HomeGoals:       ev.HomeGoals,
		AwayGoals:       ev.AwayGoals,
		HalfTimeHome:    ev.HTHomeGoals,
		HalfTimeAway:    ev.HTAwayGoals,
		FirstGoalMinute: ev.FirstGoalMinute,
		IsFinal:         ev.IsFinal,
	}
	if err := p.Facts.SaveMatchFacts(ctx, facts); err != nil {
		return fmt.Errorf("save facts: %w", err)
	}
	if !facts.Settleable() {
		p.Log.Debug("facts not final yet", zap.String("matchId", ev.MatchID))
		return nil
	}

	rep, err := p.Resolver.ResolveMatch(ctx, ev.MatchID)
	if err != nil {
		return fmt.Errorf("resolve match: %w", err)
	}
	if p.OnResolved != nil {
		p.OnResolved(rep)
	}
	return nil
}

func (p *Processor) withRetry(ctx context.Context, fn func() error) error {
	err := fn()
	for i := 0; err != nil && i < p.Retries; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(i+1) * p.Backoff):
		}
		err = fn()
	}
	return err
}

func (p *Processor) deadLetter(ctx context.Context, m kafka.Message, reason string) {
	if p.DLQ == nil {
		return
	}
	msg := kafka.Message{
		Key:     m.Key,
		Value:   m.Value,
		Time:    time.Now(),
		Headers: []kafka.Header{{Key: "error", Value: []byte(reason)}},
	}
	if err := p.DLQ.WriteMessages(ctx, msg); err != nil {
		p.Log.Error("dlq write failed", zap.Error(err))
		p.fail("dlq")
	}
}

func (p *Processor) fail(stage string) {
	if p.OnError != nil {
		p.OnError(stage)
	}
}
