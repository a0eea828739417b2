// Package redisstore persists session credentials in Redis, with the session
// cookie TTL applied so abandoned sessions expire on their own.
package redisstore

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/session"
)

type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

var _ session.Store = (*Store)(nil)

func NewStore(conf *core.Config) *Store {
	rdb := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Addr,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
	return &Store{rdb: rdb, ttl: conf.Session.CookieTTL}
}

func (s *Store) Ping(ctx context.Context) error {
	return errors.Wrap(s.rdb.Ping(ctx).Err(), "pinging redis")
}

func (s *Store) Close() error {
	return s.rdb.Close()
}

func sessionKey(sid string) string {
	return "session:" + sid
}

func (s *Store) Get(ctx context.Context, sid, key string) (string, error) {
	val, err := s.rdb.HGet(ctx, sessionKey(sid), key).Result()
	if err == redis.Nil {
		return "", session.ErrNotFound
	}
	if err != nil {
		return "", errors.Wrap(err, "querying credential")
	}
	return val, nil
}

func (s *Store) Set(ctx context.Context, sid, key, value string) error {
	k := sessionKey(sid)
	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, k, key, value)
	pipe.Expire(ctx, k, s.ttl)
	_, err := pipe.Exec(ctx)
	return errors.Wrap(err, "storing credential")
}

func (s *Store) Clear(ctx context.Context, sid, key string) error {
	return errors.Wrap(s.rdb.HDel(ctx, sessionKey(sid), key).Err(), "deleting credential")
}

func (s *Store) ClearAll(ctx context.Context, sid string) error {
	return errors.Wrap(s.rdb.Del(ctx, sessionKey(sid)).Err(), "deleting credentials")
}

// Flush drops every stored session. Used by the admin CLI.
func (s *Store) Flush(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := s.rdb.Scan(ctx, cursor, sessionKey("*"), 100).Result()
		if err != nil {
			return errors.Wrap(err, "scanning sessions")
		}
		if len(keys) > 0 {
			if err = s.rdb.Del(ctx, keys...).Err(); err != nil {
				return errors.Wrap(err, "flushing sessions")
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}
