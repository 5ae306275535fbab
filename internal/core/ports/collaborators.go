package ports

import (
	"context"
	"time"
)

// Decision is the outcome of a rate-limit check.
type Decision struct {
	Allowed   bool
	Remaining int64
	ResetAt   time.Time
}

// RateLimiter is consulted before expensive auth operations. Implementations
// share counters safely across requests (striped in-process counters or an
// external store); the auth core itself holds no limiter state.
type RateLimiter interface {
	Check(ctx context.Context, key string, maxRequests int64, window time.Duration) (Decision, error)
}

// AuditEvent is one fire-and-forget audit record.
type AuditEvent struct {
	Action   string
	Result   string
	UserID   string
	TenantID string
	Metadata map[string]string
	At       time.Time
}

// AuditLogger records auth events. Record never blocks the primary flow and
// never returns an error; delivery failures are logged by the implementation.
type AuditLogger interface {
	Record(event AuditEvent)
}

// Mailer delivers auth-related email out of band. Implementations send
// asynchronously; failures are logged, never surfaced to the auth flow.
type Mailer interface {
	SendMagicLink(email, token, tenantID string)
	SendPasswordReset(email, token, tenantID string)
	SendVerification(email, token, tenantID string)
}

// RoleStore answers privilege questions for the elevated authorization gate.
// Role CRUD is owned elsewhere.
type RoleStore interface {
	IsAdmin(ctx context.Context, userID, tenantID string) (bool, error)
}

// OAuthProfile is the provider identity resolved during an OAuth callback.
type OAuthProfile struct {
	Provider       string
	ProviderUserID string
	Email          string
	Name           string
	AccessToken    string
	RefreshToken   string
}

// OAuthProvider exchanges an authorization code for the provider's profile.
type OAuthProvider interface {
	// AuthURL builds the provider redirect carrying the CSRF state parameter.
	AuthURL(provider, state string) (string, error)

	// Exchange swaps code for tokens and fetches the user profile.
	Exchange(ctx context.Context, provider, code string) (*OAuthProfile, error)
}
