package ports

// TokenService issues and validates signed, time-bounded identity tokens.
type TokenService interface {
	Issue(username, role string) (string, error)
	// Validate fails closed: false on bad signature, malformed claims,
	// subject mismatch, or expiry. It never panics or returns an error.
	Validate(token, expectedSubject string) bool
	// Subject and Roles decode claims without verifying the signature.
	// Callers must Validate first; results are undefined otherwise.
	Subject(token string) string
	Roles(token string) []string
}
