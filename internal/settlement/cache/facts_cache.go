package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/radieske/bet-settlement-engine/internal/settlement/domain"
)

// Source é o armazenamento de fatos que o cache envolve
type Source interface {
	MatchFacts(ctx context.Context, matchID string) (*domain.MatchFacts, error)
	MatchSnapshot(ctx context.Context, matchID string) (*domain.MatchSnapshot, error)
	SaveMatchFacts(ctx context.Context, f domain.MatchFacts) error
}

// Facts é um cache read-through de fatos finais no Redis.
// Só fatos finais com placar completo são cacheados: eles não mudam mais.
// Erros de Redis nunca falham a leitura, caem para o banco.
type Facts struct {
	Client *redis.Client
	TTL    time.Duration
	src    Source
	log    *zap.Logger
}

func NewFacts(log *zap.Logger, c *redis.Client, src Source, ttl time.Duration) *Facts {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Facts{Client: c, TTL: ttl, src: src, log: log}
}

func key(matchID string) string { return "settlement:facts:" + matchID }

func (f *Facts) MatchFacts(ctx context.Context, matchID string) (*domain.MatchFacts, error) {
	b, err := f.Client.Get(ctx, key(matchID)).Bytes()
	switch {
	case err == nil:
		var out domain.MatchFacts
		if jerr := json.Unmarshal(b, &out); jerr == nil {
			return &out, nil
		}
		f.log.Warn("facts cache entry corrupted", zap.String("matchId", matchID))
	case !errors.Is(err, redis.Nil):
		f.log.Warn("facts cache get failed", zap.String("matchId", matchID), zap.Error(err))
	}

	facts, err := f.src.MatchFacts(ctx, matchID)
	if err != nil || facts == nil {
		return facts, err
	}
	f.put(ctx, *facts)
	return facts, nil
}

func (f *Facts) MatchSnapshot(ctx context.Context, matchID string) (*domain.MatchSnapshot, error) {
	return f.src.MatchSnapshot(ctx, matchID)
}

// SaveMatchFacts grava no banco e invalida o cache; a próxima leitura traz o que ficou gravado
func (f *Facts) SaveMatchFacts(ctx context.Context, facts domain.MatchFacts) error {
	if err := f.src.SaveMatchFacts(ctx, facts); err != nil {
		return err
	}
	if err := f.Client.Del(ctx, key(facts.MatchID)).Err(); err != nil {
		f.log.Warn("facts cache invalidate failed", zap.String("matchId", facts.MatchID), zap.Error(err))
	}
	return nil
}

func (f *Facts) put(ctx context.Context, facts domain.MatchFacts) {
	if !facts.Settleable() {
		return
	}
	b, err := json.Marshal(facts)
	if err != nil {
		return
	}
	if err := f.Client.Set(ctx, key(facts.MatchID), b, f.TTL).Err(); err != nil {
		f.log.Warn("facts cache set failed", zap.String("matchId", facts.MatchID), zap.Error(err))
	}
}
