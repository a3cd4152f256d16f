package experiment

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig configures the Redis-backed assignment store. Fields can be
// populated from environment variables via github.com/caarlos0/env.
type RedisConfig struct {
	ConnectionURL    string        `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`            // ConnectionURL is the Redis URL, e.g. "redis://:password@localhost:6379/0".
	RetryAttempts    int           `env:"REDIS_RETRY_ATTEMPTS" envDefault:"3"`                        // RetryAttempts is the number of connection attempts.
	RetryInterval    time.Duration `env:"REDIS_RETRY_INTERVAL" envDefault:"5s"`                       // RetryInterval is the delay between connection attempts.
	ConnectTimeout   time.Duration `env:"REDIS_CONNECT_TIMEOUT" envDefault:"30s"`                     // ConnectTimeout bounds the whole connection phase.
	KeyPrefix        string        `env:"EXPERIMENT_REDIS_KEY_PREFIX" envDefault:"experiment"`        // KeyPrefix namespaces assignment hashes.
	ConversionStream string        `env:"EXPERIMENT_CONVERSION_STREAM" envDefault:"experiment:conv"` // ConversionStream is the stream conversions are appended to.
}

// ErrRedisNotReady indicates the Redis server could not be reached within
// the configured retry budget.
var ErrRedisNotReady = errors.New("redis server is not ready")

// ConnectRedis establishes a Redis connection with retries.
func ConnectRedis(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	opt, err := redis.ParseURL(cfg.ConnectionURL)
	if err != nil {
		return nil, errors.Join(ErrStoreUnavailable, err)
	}

	attempts := max(cfg.RetryAttempts, 1)
	for range attempts {
		client := redis.NewClient(opt)
		if err := client.Ping(ctx).Err(); err == nil {
			return client, nil
		}
		_ = client.Close()

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrRedisNotReady, ctx.Err())
		case <-time.After(cfg.RetryInterval):
		}
	}
	return nil, ErrRedisNotReady
}

// RedisAssignmentStore keeps one hash per user (experiment id → variant id)
// and appends conversions to a Redis stream. HSETNX gives the write-once
// assignment semantics the engine relies on without a round trip to check
// for an existing record.
type RedisAssignmentStore struct {
	client    *redis.Client
	keyPrefix string
	stream    string
}

// NewRedisAssignmentStore creates a store over an existing client.
func NewRedisAssignmentStore(client *redis.Client, cfg RedisConfig) (*RedisAssignmentStore, error) {
	if client == nil {
		return nil, ErrStoreNil
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "experiment"
	}
	if cfg.ConversionStream == "" {
		cfg.ConversionStream = "experiment:conv"
	}
	return &RedisAssignmentStore{
		client:    client,
		keyPrefix: cfg.KeyPrefix,
		stream:    cfg.ConversionStream,
	}, nil
}

func (s *RedisAssignmentStore) assignmentsKey(userID string) string {
	return s.keyPrefix + ":assignments:" + userID
}

// LoadAssignments returns the user's assignment hash.
func (s *RedisAssignmentStore) LoadAssignments(ctx context.Context, userID string) (map[string]string, error) {
	result, err := s.client.HGetAll(ctx, s.assignmentsKey(userID)).Result()
	if err != nil {
		return nil, errors.Join(ErrStoreUnavailable, err)
	}
	return result, nil
}

// SaveAssignment records the assignment unless one already exists for the
// (experiment, user) pair.
func (s *RedisAssignmentStore) SaveAssignment(ctx context.Context, a Assignment) error {
	err := s.client.HSetNX(ctx, s.assignmentsKey(a.UserID), a.ExperimentID, a.VariantID).Err()
	if err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}

// SaveConversion appends the conversion to the configured stream.
func (s *RedisAssignmentStore) SaveConversion(ctx context.Context, c Conversion) error {
	err := s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]any{
			"experiment_id": c.ExperimentID,
			"user_id":       c.UserID,
			"variant_id":    c.VariantID,
			"metric_id":     c.MetricID,
			"value":         c.Value,
			"occurred_at":   c.OccurredAt.UTC().Format(time.RFC3339Nano),
		},
	}).Err()
	if err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}
