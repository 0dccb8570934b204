package notify

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/bet-settlement-engine/internal/settlement/domain"
)

const ChannelSettlementBroadcast = "bet_settlements_broadcast"

// RedisBroadcaster publica avisos de liquidação no Redis Pub/Sub para quem entrega ao usuário
type RedisBroadcaster struct {
	r       *redis.Client
	channel string
}

func NewRedisBroadcaster(r *redis.Client, channel string) *RedisBroadcaster {
	if channel == "" {
		channel = ChannelSettlementBroadcast
	}
	return &RedisBroadcaster{r: r, channel: channel}
}

// UserUpdate é o payload padrão do canal, endereçado por usuário
type UserUpdate struct {
	UserID  string                  `json:"userId"`
	Payload domain.SettlementNotice `json:"payload"`
}

func (b *RedisBroadcaster) NotifySettlement(ctx context.Context, n domain.SettlementNotice) error {
	payload, err := json.Marshal(UserUpdate{UserID: n.UserID, Payload: n})
	if err != nil {
		return err
	}
	return b.r.Publish(ctx, b.channel, payload).Err()
}
