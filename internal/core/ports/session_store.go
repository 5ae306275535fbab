package ports

import (
	"context"

	"github.com/tenantkit/identity-api/internal/core/domain"
)

// SessionStore manages server-side session records. Implementations must
// treat ExpiresAt with a strict "later than now" comparison: a session whose
// expiry equals the current instant is already invalid.
type SessionStore interface {
	// Create inserts an active session expiring after the store's configured
	// TTL (30 days by default).
	Create(ctx context.Context, userID, tenantID, ip, userAgent string) (*domain.Session, error)

	// Find returns the session by id, or domain.ErrSessionNotFound.
	Find(ctx context.Context, sessionID string) (*domain.Session, error)

	// Touch sets lastActiveAt to now. Idempotent; touching a missing session
	// is not an error.
	Touch(ctx context.Context, sessionID string) error

	// IsValid reports whether the session exists, is owned by userID, is
	// active, and has not expired.
	IsValid(ctx context.Context, userID, sessionID string) (bool, error)

	// Revoke deactivates the session and stamps revokedAt. Revoking an
	// already-revoked or missing session is a no-op.
	Revoke(ctx context.Context, sessionID string) error

	// RevokeAll deactivates every active session owned by userID except the
	// optional exceptID, returning the number of sessions revoked.
	RevokeAll(ctx context.Context, userID, exceptID string) (int64, error)
}
