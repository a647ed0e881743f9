package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"ticketnepal/internal/logger"
	"ticketnepal/internal/models"

	"github.com/go-redis/redis/v8"
)

const (
	// actorKeyPrefix namespaces verified tokens in Redis
	actorKeyPrefix = "auth_actor:"
	// MaxCacheTTL caps how long a verified token is remembered
	MaxCacheTTL = 5 * time.Minute
)

// CachedActor is what is stored for a verified token.
type CachedActor struct {
	Actor     models.Actor `json:"actor"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// CachingVerifier remembers verified tokens in Redis so repeated scans at
// the door skip signature and provider checks. Cache errors fall through
// to the wrapped verifier.
type CachingVerifier struct {
	Next   Verifier
	Client *redis.Client
	Logger *logger.Logger
	now    func() time.Time
}

func NewCachingVerifier(next Verifier, client *redis.Client, log *logger.Logger) *CachingVerifier {
	return &CachingVerifier{Next: next, Client: client, Logger: log, now: time.Now}
}

func tokenKey(rawToken string) string {
	sum := sha256.Sum256([]byte(rawToken))
	return actorKeyPrefix + hex.EncodeToString(sum[:])
}

func (c *CachingVerifier) Verify(ctx context.Context, rawToken string) (models.Actor, time.Time, error) {
	key := tokenKey(rawToken)

	raw, err := c.Client.Get(ctx, key).Result()
	switch {
	case err == nil:
		var cached CachedActor
		if jsonErr := json.Unmarshal([]byte(raw), &cached); jsonErr == nil && c.now().Before(cached.ExpiresAt) {
			return cached.Actor, cached.ExpiresAt, nil
		}
	case err != redis.Nil:
		c.Logger.Warn("AUTH", fmt.Sprintf("Token cache read failed: %v", err))
	}

	actor, exp, err := c.Next.Verify(ctx, rawToken)
	if err != nil {
		return models.Actor{}, exp, err
	}

	ttl := MaxCacheTTL
	if !exp.IsZero() {
		if left := exp.Sub(c.now()); left < ttl {
			ttl = left
		}
	}
	if ttl > 0 {
		value, _ := json.Marshal(CachedActor{Actor: actor, ExpiresAt: c.now().Add(ttl)})
		if err := c.Client.Set(ctx, key, value, ttl).Err(); err != nil {
			c.Logger.Warn("AUTH", fmt.Sprintf("Token cache write failed: %v", err))
		}
	}
	return actor, exp, nil
}
