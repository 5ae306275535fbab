package domain

import "time"

// Session is one authenticated client instance, owned by exactly one user and
// independently revocable. Active and expiry are orthogonal: a session can be
// active but past ExpiresAt (invalid) or revoked long before expiry.
type Session struct {
	ID           string     `json:"id"`
	UserID       string     `json:"user_id"`
	TenantID     string     `json:"tenant_id"`
	IPAddress    string     `json:"ip_address,omitempty"`
	UserAgent    string     `json:"user_agent,omitempty"`
	Active       bool       `json:"active"`
	ExpiresAt    time.Time  `json:"expires_at"`
	LastActiveAt time.Time  `json:"last_active_at"`
	CreatedAt    time.Time  `json:"created_at"`
	RevokedAt    *time.Time `json:"revoked_at,omitempty"`
}

// Valid reports whether the session authorizes requests at the given instant.
// ExpiresAt equal to now counts as expired (strict >).
func (s *Session) Valid(now time.Time) bool {
	return s.Active && s.ExpiresAt.After(now)
}
