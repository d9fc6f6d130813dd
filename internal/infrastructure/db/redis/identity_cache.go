package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/filevault/vault-api/internal/core/domain"
	"github.com/filevault/vault-api/internal/core/ports"
)

const identityTTL = 5 * time.Minute

// IdentityCache fronts the credential store for the identity resolver: token
// subjects are looked up on every authenticated request, so resolved users
// are cached in Redis for a short TTL. Cache failures degrade to direct
// lookups. Password hashes are never cached.
// Key format: identity:<username>
type IdentityCache struct {
	client *redis.Client
	users  ports.UserRepository
	log    zerolog.Logger
}

func NewIdentityCache(client *redis.Client, users ports.UserRepository, log zerolog.Logger) *IdentityCache {
	return &IdentityCache{client: client, users: users, log: log}
}

type cachedIdentity struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// FindByUsername resolves a user, preferring the cache. The returned user
// carries no password hash regardless of the source.
func (c *IdentityCache) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	key := c.key(username)

	if raw, err := c.client.Get(ctx, key).Result(); err == nil {
		var ci cachedIdentity
		if jsonErr := json.Unmarshal([]byte(raw), &ci); jsonErr == nil {
			return &domain.User{ID: ci.ID, Username: ci.Username, Role: ci.Role}, nil
		}
	} else if err != redis.Nil {
		c.log.Warn().Err(err).Str("username", username).Msg("identity cache read failed, falling through")
	}

	user, err := c.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(cachedIdentity{ID: user.ID, Username: user.Username, Role: user.Role})
	if err == nil {
		if setErr := c.client.Set(ctx, key, payload, identityTTL).Err(); setErr != nil {
			c.log.Warn().Err(setErr).Str("username", username).Msg("identity cache write failed")
		}
	}

	return &domain.User{ID: user.ID, Username: user.Username, Role: user.Role}, nil
}

func (c *IdentityCache) key(username string) string {
	return fmt.Sprintf("identity:%s", username)
}
