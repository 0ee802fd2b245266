// Package oauthstate keeps PKCE verifiers between the authorize redirect and
// the provider callback.
package oauthstate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aydiegithub/ai-agent-for-social-content/pkg/utils"
	"github.com/go-redis/redis/v8"
)

const (
	keyPrefix  = "oauth:pkce:"
	DefaultTTL = 10 * time.Minute
)

var ErrStateNotFound = errors.New("oauth state not found or expired")

type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{rdb: rdb, ttl: ttl}
}

// Key hashes the state so bearer tokens never appear in Redis keys.
func Key(state string) string {
	return keyPrefix + utils.HashKey(state)
}

func (s *Store) SaveVerifier(ctx context.Context, state, verifier string) error {
	if err := s.rdb.Set(ctx, Key(state), verifier, s.ttl).Err(); err != nil {
		return fmt.Errorf("save pkce verifier: %w", err)
	}
	return nil
}

// TakeVerifier returns the verifier for state and deletes it, so each
// authorization code can be exchanged at most once.
func (s *Store) TakeVerifier(ctx context.Context, state string) (string, error) {
	key := Key(state)

	verifier, err := s.rdb.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrStateNotFound
		}
		return "", fmt.Errorf("load pkce verifier: %w", err)
	}

	n, err := s.rdb.Del(ctx, key).Result()
	if err != nil {
		return "", fmt.Errorf("delete pkce verifier: %w", err)
	}
	if n == 0 {
		// Another callback consumed it first.
		return "", ErrStateNotFound
	}
	return verifier, nil
}
