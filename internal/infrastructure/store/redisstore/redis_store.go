package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"jan-server/services/dm-api/internal/domain/conversation"
	"jan-server/services/dm-api/internal/utils/platformerrors"
)

const (
	keyPrefix = "dm-api:v1:conversation:"
	// indexKey is a sorted set of conversation keys scored by last write time.
	indexKey = "dm-api:v1:conversations:updated"
)

// RedisStore keeps each transcript as a JSON string with a sliding TTL.
type RedisStore struct {
	client redis.UniversalClient
	ttl    time.Duration
	log    zerolog.Logger
}

var _ conversation.Store = (*RedisStore)(nil)

// New connects to redisURL and verifies the connection.
func New(ctx context.Context, redisURL string, ttl time.Duration, log zerolog.Logger) (*RedisStore, error) {
	if redisURL == "" {
		return nil, fmt.Errorf("Redis URL must be provided")
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Info().Msg("Successfully connected to Redis conversation store")
	return NewWithClient(client, ttl, log), nil
}

func NewWithClient(client redis.UniversalClient, ttl time.Duration, log zerolog.Logger) *RedisStore {
	return &RedisStore{client: client, ttl: ttl, log: log.With().Str("store", "redis").Logger()}
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func redisKey(key conversation.Key) string {
	return keyPrefix + key.String()
}

// Load implements conversation.Store.
func (s *RedisStore) Load(ctx context.Context, key conversation.Key) ([]conversation.Message, error) {
	raw, err := s.client.Get(ctx, redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return []conversation.Message{}, nil
	}
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"failed to load conversation", err, "redisstore-get")
	}
	messages := []conversation.Message{}
	if err := json.Unmarshal(raw, &messages); err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeMalformed,
			"stored conversation is corrupt", err, "redisstore-decode")
	}
	return messages, nil
}

// Save implements conversation.Store.
func (s *RedisStore) Save(ctx context.Context, key conversation.Key, messages []conversation.Message) error {
	if messages == nil {
		messages = []conversation.Message{}
	}
	raw, err := json.Marshal(messages)
	if err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeInternal,
			"failed to encode conversation", err, "redisstore-encode")
	}

	rk := redisKey(key)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, rk, raw, s.ttl)
		pipe.ZAdd(ctx, indexKey, redis.Z{Score: float64(time.Now().Unix()), Member: rk})
		return nil
	})
	if err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"failed to save conversation", err, "redisstore-set")
	}
	return nil
}

// Delete implements conversation.Store.
func (s *RedisStore) Delete(ctx context.Context, key conversation.Key) error {
	rk := redisKey(key)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, rk)
		pipe.ZRem(ctx, indexKey, rk)
		return nil
	})
	if err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"failed to delete conversation", err, "redisstore-del")
	}
	return nil
}

// Purge implements conversation.Store. Entries the TTL already expired are only dropped from the index.
func (s *RedisStore) Purge(ctx context.Context, cutoff time.Time) (int, error) {
	stale, err := s.client.ZRangeByScore(ctx, indexKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatInt(cutoff.Unix(), 10),
	}).Result()
	if err != nil {
		return 0, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"failed to list stale conversations", err, "redisstore-zrange")
	}
	if len(stale) == 0 {
		return 0, nil
	}

	members := make([]interface{}, len(stale))
	for i, k := range stale {
		members[i] = k
	}
	var deleted *redis.IntCmd
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		deleted = pipe.Del(ctx, stale...)
		pipe.ZRem(ctx, indexKey, members...)
		return nil
	})
	if err != nil {
		return 0, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"failed to purge conversations", err, "redisstore-purge")
	}
	return int(deleted.Val()), nil
}
