// Package redisstore persists the fulfillment collection in Redis as one
// JSON blob under a well-known key.
package redisstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/eluv-io/errors-go"
	elog "github.com/eluv-io/log-go"
	"github.com/redis/go-redis/v9"

	"handoffd/fulfillment"
	"handoffd/server/config"
)

var log = elog.Get("/hd/redis")

type Store struct {
	client *redis.Client
	key    string
}

// NewStore connects to Redis and verifies the connection with a ping.
func NewStore(cfg config.RedisConfig) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.E("redis connect", errors.K.IO, err, "addr", cfg.Addr)
	}

	log.Info("init redis store", "addr", cfg.Addr, "key", cfg.Key)
	return &Store{client: client, key: cfg.Key}, nil
}

func (s *Store) Load(ctx context.Context) ([]*fulfillment.Fulfillment, error) {
	data, err := s.client.Get(ctx, s.key).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, errors.E("load state", errors.K.IO, err)
	}

	var records []*fulfillment.Fulfillment
	if err = json.Unmarshal([]byte(data), &records); err != nil {
		return nil, errors.E("load state", errors.K.Invalid, err)
	}
	return records, nil
}

func (s *Store) Save(ctx context.Context, records []*fulfillment.Fulfillment) error {
	data, err := json.Marshal(records)
	if err != nil {
		return errors.E("save state", errors.K.Invalid, err)
	}
	// records never expire on their own, so no TTL
	if err = s.client.Set(ctx, s.key, string(data), 0).Err(); err != nil {
		return errors.E("save state", errors.K.IO, err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.client.Close()
}
