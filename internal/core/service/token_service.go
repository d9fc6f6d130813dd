package service

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenService issues and validates HS256-signed identity tokens. The signing
// key is process-wide and read-only after startup; there is no revocation, so
// rotating the key invalidates every outstanding token.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenService(secret string, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenService{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue produces a token embedding the subject and role claims, issued now
// and expiring after the configured TTL.
func (s *TokenService) Issue(username, role string) (string, error) {
	now := s.now().UTC()
	claims := jwt.MapClaims{
		"sub":   username,
		"roles": []string{role},
		"iat":   now.Unix(),
		"exp":   now.Add(s.ttl).Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(s.secret)
}

// Validate reports whether token is authentic, unexpired, and issued for
// expectedSubject. It fails closed: any signature, claim, or subject problem
// yields false.
func (s *TokenService) Validate(token, expectedSubject string) bool {
	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return s.secret, nil
	}, jwt.WithExpirationRequired(), jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid {
		return false
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return false
	}
	return sub == expectedSubject
}

// Subject decodes the subject claim without verifying the signature.
// Callers must Validate first.
func (s *TokenService) Subject(token string) string {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return ""
	}
	sub, _ := claims.GetSubject()
	return sub
}

// Roles decodes the roles claim without verifying the signature.
// Callers must Validate first.
func (s *TokenService) Roles(token string) []string {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil
	}

	raw, ok := claims["roles"].([]interface{})
	if !ok {
		return nil
	}
	roles := make([]string, 0, len(raw))
	for _, r := range raw {
		if s, ok := r.(string); ok {
			roles = append(roles, s)
		}
	}
	return roles
}
