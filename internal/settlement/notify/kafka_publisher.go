package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/radieske/bet-settlement-engine/internal/settlement/domain"
	"github.com/radieske/bet-settlement-engine/pkg/contracts/events"
)

// MessageWriter é o subconjunto de *kafka.Writer usado pelo publisher
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaPublisher publica bet_settled; a chave é o id da aposta
type KafkaPublisher struct {
	Writer MessageWriter
}

func NewKafkaPublisher(w MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{Writer: w}
}

func (p *KafkaPublisher) NotifySettlement(ctx context.Context, n domain.SettlementNotice) error {
	e := events.BetSettled{
		BetID:       n.WagerID,
		UserID:      n.UserID,
		MatchID:     n.MatchID,
		Status:      string(n.Status),
		AmountCents: n.AmountCents,
		SettledAt:   n.SettledAt.UnixMilli(),
		TsUnixMs:    time.Now().UnixMilli(),
	}
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return p.Writer.WriteMessages(ctx, kafka.Message{Key: []byte(n.WagerID), Value: b})
}
