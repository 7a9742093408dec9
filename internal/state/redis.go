package state

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"

	"github.com/quantpulse/tradeaudit/internal/health"
)

// RedisStore persists the run state as a single JSON value under one
// key. Redis SET is atomic, satisfying the single-writer contract.
type RedisStore struct {
	client redis.Cmdable
	key    string
}

// NewRedisStore creates a redis-backed state store
func NewRedisStore(client redis.Cmdable, key string) *RedisStore {
	return &RedisStore{client: client, key: key}
}

// Load reads the persisted state. A missing key yields an empty state;
// a malformed value resets to empty rather than blocking the run.
func (s *RedisStore) Load(ctx context.Context) (*health.RunState, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return health.NewRunState(), nil
		}
		return nil, fmt.Errorf("failed to read state key: %w", err)
	}

	var st health.RunState
	if err := json.Unmarshal(data, &st); err != nil {
		log.Warn().Err(err).Str("key", s.key).Msg("State value malformed, resetting")
		return health.NewRunState(), nil
	}
	if st.FlaggedGaps == nil {
		st.FlaggedGaps = make(map[string]string)
	}
	return &st, nil
}

// Save replaces the persisted state in one SET
func (s *RedisStore) Save(ctx context.Context, st *health.RunState) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to write state key: %w", err)
	}
	return nil
}
