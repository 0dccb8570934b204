package lock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript só apaga a chave se o token ainda for o nosso
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis é o lock distribuído (SET NX PX) para várias instâncias do worker.
// O TTL limita quanto tempo uma passada travada segura a partida.
type Redis struct {
	Client *redis.Client
	TTL    time.Duration
	Prefix string

	mu     sync.Mutex
	tokens map[string]string
}

func NewRedis(c *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &Redis{
		Client: c,
		TTL:    ttl,
		Prefix: "settlement:inflight:",
		tokens: make(map[string]string),
	}
}

func (r *Redis) key(matchID string) string { return r.Prefix + matchID }

func (r *Redis) Acquire(ctx context.Context, matchID string) (bool, error) {
	token := uuid.NewString()
	ok, err := r.Client.SetNX(ctx, r.key(matchID), token, r.TTL).Result()
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	r.mu.Lock()
	r.tokens[matchID] = token
	r.mu.Unlock()
	return true, nil
}

func (r *Redis) Release(ctx context.Context, matchID string) error {
	r.mu.Lock()
	token, ok := r.tokens[matchID]
	delete(r.tokens, matchID)
	r.mu.Unlock()
	if !ok {
		return nil
	}
	return releaseScript.Run(ctx, r.Client, []string{r.key(matchID)}, token).Err()
}

func (r *Redis) InFlight(ctx context.Context, matchID string) (bool, error) {
	n, err := r.Client.Exists(ctx, r.key(matchID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
