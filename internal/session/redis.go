package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	log "log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"voxmail/internal/assistant"
)

const (
	DefaultTTL       = 24 * time.Hour
	sessionPrefix    = "voxmail:session:"
	transcriptPrefix = "voxmail:transcript:"
)

// redisAPI is the part of *redis.Client used here.
type redisAPI interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// Redis keeps the assistant snapshot under voxmail:session:<uid> and fans
// transcript entries out on voxmail:transcript:<uid>.
type Redis struct {
	rdb redisAPI
	ttl time.Duration
	uid string
}

// NewRedis binds the store to uid for transcript publishing. A zero ttl means
// DefaultTTL.
func NewRedis(rdb redisAPI, uid string, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{rdb: rdb, ttl: ttl, uid: uid}
}

func SessionKey(uid string) string { return sessionPrefix + uid }

func TranscriptChannel(uid string) string { return transcriptPrefix + uid }

func (r *Redis) Save(ctx context.Context, uid string, s assistant.Snapshot) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := r.rdb.Set(ctx, SessionKey(uid), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (r *Redis) Load(ctx context.Context, uid string) (assistant.Snapshot, error) {
	data, err := r.rdb.Get(ctx, SessionKey(uid)).Bytes()
	if errors.Is(err, redis.Nil) {
		return assistant.Snapshot{}, assistant.ErrNoSnapshot
	}
	if err != nil {
		return assistant.Snapshot{}, fmt.Errorf("failed to load session: %w", err)
	}

	var s assistant.Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return assistant.Snapshot{}, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return s, nil
}

// Publish implements assistant.Sink. Failures are logged; the transcript
// stays authoritative in the controller.
func (r *Redis) Publish(ctx context.Context, e assistant.Entry) {
	data, err := json.Marshal(e)
	if err != nil {
		log.Warn("Failed to marshal transcript entry", "err", err)
		return
	}
	if err := r.rdb.Publish(ctx, TranscriptChannel(r.uid), data).Err(); err != nil {
		log.Warn("Failed to publish transcript entry", "err", err)
	}
}
