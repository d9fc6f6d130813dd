package ports

import "context"

// AuthService registers new identities and authenticates login attempts.
// Both operations return a freshly issued token on success.
type AuthService interface {
	// Register creates the user and returns a token for the new identity.
	// An empty role defaults to domain.RoleUser.
	Register(ctx context.Context, username, password, role string) (string, error)
	Login(ctx context.Context, username, password string) (string, error)
}
