package ports

import (
	"context"

	"github.com/tenantkit/identity-api/internal/core/domain"
)

// MagicLinkStore persists single-use out-of-band tokens. Only token hashes
// are stored.
type MagicLinkStore interface {
	// Create inserts a new link record.
	Create(ctx context.Context, link domain.MagicLink) error

	// Consume atomically claims the link matching tokenHash: it sets usedAt
	// and returns the record, exactly once. Returns domain.ErrTokenAlreadyUsed
	// when usedAt is already set, domain.ErrTokenExpired when past expiry and
	// domain.ErrTokenNotFound when no record matches.
	Consume(ctx context.Context, tokenHash string) (*domain.MagicLink, error)
}
