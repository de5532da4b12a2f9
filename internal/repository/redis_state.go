package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"CoinSim/internal/domain/models"
	domrepo "CoinSim/internal/domain/repository"
)

const defaultStateKey = "coinsim:state:snapshot"

// RedisStateStore persists simulator snapshots as one JSON blob. Snapshots
// carry no TTL; a missing key means a fresh start, not an error.
type RedisStateStore struct {
	client *redis.Client
	key    string
}

// NewRedisStateStore creates a Redis-backed state store.
func NewRedisStateStore(client *redis.Client, key string) *RedisStateStore {
	if key == "" {
		key = defaultStateKey
	}
	return &RedisStateStore{client: client, key: key}
}

func (s *RedisStateStore) Load(ctx context.Context) (*models.SimState, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("load state: %w", err)
	}
	var st models.SimState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	return &st, nil
}

func (s *RedisStateStore) Save(ctx context.Context, st *models.SimState) error {
	if st == nil {
		return fmt.Errorf("state is nil")
	}
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

var _ domrepo.StateStore = (*RedisStateStore)(nil)
