package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/filevault/vault-api/internal/core/domain"
)

func TestTokenService_IssueAndValidate(t *testing.T) {
	svc := NewTokenService("secret", time.Hour)

	token, err := svc.Issue("alice", domain.RoleUser)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	if token == "" {
		t.Fatalf("expected token, got empty")
	}

	if !svc.Validate(token, "alice") {
		t.Fatalf("expected token to validate for its subject")
	}
	if svc.Validate(token, "bob") {
		t.Fatalf("token must not validate for a different subject")
	}
}

func TestTokenService_Claims(t *testing.T) {
	svc := NewTokenService("secret", time.Hour)

	token, err := svc.Issue("carol", domain.RoleAdmin)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	if got := svc.Subject(token); got != "carol" {
		t.Fatalf("expected subject carol, got %q", got)
	}
	roles := svc.Roles(token)
	if len(roles) != 1 || roles[0] != domain.RoleAdmin {
		t.Fatalf("unexpected roles: %v", roles)
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		t.Fatalf("decode claims: %v", err)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		t.Fatalf("expected exp claim: %v", err)
	}
	iat, err := claims.GetIssuedAt()
	if err != nil || iat == nil {
		t.Fatalf("expected iat claim: %v", err)
	}
	if got := exp.Sub(iat.Time); got != time.Hour {
		t.Fatalf("expected 1h lifetime, got %s", got)
	}
}

func TestTokenService_DefaultLifetime(t *testing.T) {
	svc := NewTokenService("secret", 0)

	token, err := svc.Issue("dave", domain.RoleUser)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		t.Fatalf("decode claims: %v", err)
	}
	exp, _ := claims.GetExpirationTime()
	iat, _ := claims.GetIssuedAt()
	if got := exp.Sub(iat.Time); got != 24*time.Hour {
		t.Fatalf("expected 24h default lifetime, got %s", got)
	}
}

func TestTokenService_ValidateFailsClosed(t *testing.T) {
	svc := NewTokenService("secret", time.Hour)

	if svc.Validate("not-a-token", "alice") {
		t.Fatalf("malformed token must not validate")
	}

	other := NewTokenService("other-secret", time.Hour)
	forged, err := other.Issue("alice", domain.RoleUser)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	if svc.Validate(forged, "alice") {
		t.Fatalf("token signed with a different key must not validate")
	}

	// Token without an exp claim is rejected outright.
	bare := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "alice"})
	signed, err := bare.SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if svc.Validate(signed, "alice") {
		t.Fatalf("token without expiry must not validate")
	}
}

func TestTokenService_ValidateExpired(t *testing.T) {
	svc := NewTokenService("secret", time.Hour)

	token, err := svc.Issue("alice", domain.RoleUser)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	// Move the validation clock past the expiry.
	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if svc.Validate(token, "alice") {
		t.Fatalf("expired token must not validate")
	}
}

func TestTokenService_FreshTokensDiffer(t *testing.T) {
	svc := NewTokenService("secret", time.Hour)

	issued := time.Unix(1700000000, 0)
	svc.now = func() time.Time { return issued }
	first, err := svc.Issue("alice", domain.RoleUser)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	svc.now = func() time.Time { return issued.Add(time.Second) }
	second, err := svc.Issue("alice", domain.RoleUser)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	if first == second {
		t.Fatalf("tokens issued at different times must differ")
	}
	if svc.Subject(first) != svc.Subject(second) {
		t.Fatalf("both tokens must carry the same subject")
	}
}
