// Package localstore is the agent's small keyed storage: the session auth
// token and a handful of user preferences, with TTLs. It plays the role the
// browser's local storage plays for the web client.
package localstore

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const (
	tokenKey   = "session:token"
	prefPrefix = "pref:"
)

type Store struct {
	c *redis.Client
}

func New(addr string) *Store {
	return &Store{
		c: redis.NewClient(&redis.Options{
			Addr: addr,
		}),
	}
}

// Token implements shipapi.TokenSource. A missing token is returned as empty
// with no error; requests then go out unauthenticated and the backend answers
// 401 with its own message.
func (s *Store) Token(ctx context.Context) (string, error) {
	val, err := s.c.Get(ctx, tokenKey).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", errors.Wrap(err, "redis get token")
	}
	return val, nil
}

func (s *Store) SetToken(ctx context.Context, token string, ttl time.Duration) error {
	if err := s.c.Set(ctx, tokenKey, token, ttl).Err(); err != nil {
		return errors.Wrap(err, "redis set token")
	}
	return nil
}

func (s *Store) ClearToken(ctx context.Context) error {
	if err := s.c.Del(ctx, tokenKey).Err(); err != nil {
		return errors.Wrap(err, "redis del token")
	}
	return nil
}

func (s *Store) Preference(ctx context.Context, name string) (string, bool, error) {
	val, err := s.c.Get(ctx, prefPrefix+name).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrap(err, "redis get preference")
	}
	return val, true, nil
}

// SetPreference stores without TTL; preferences survive until overwritten.
func (s *Store) SetPreference(ctx context.Context, name, value string) error {
	if err := s.c.Set(ctx, prefPrefix+name, value, 0).Err(); err != nil {
		return errors.Wrap(err, "redis set preference")
	}
	return nil
}
