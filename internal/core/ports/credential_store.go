package ports

import (
	"context"
	"time"

	"github.com/tenantkit/identity-api/internal/core/domain"
)

// NewUser carries the fields needed to create a user row.
type NewUser struct {
	Email         string
	FirstName     string
	LastName      string
	DisplayName   string
	EmailVerified bool
	TenantID      string
}

// CredentialStore is the persistence adapter for users, password credentials
// and social accounts. It contains no business logic; it is the only layer
// allowed to coerce raw store documents into domain structs.
type CredentialStore interface {
	// FindUserByEmail returns the user owning email. A non-empty tenantID
	// restricts the lookup to members of that tenant. Returns
	// domain.ErrUserNotFound when no user matches.
	FindUserByEmail(ctx context.Context, email, tenantID string) (*domain.User, error)

	// FindUserByID returns the user with the given id, or domain.ErrUserNotFound.
	FindUserByID(ctx context.Context, id string) (*domain.User, error)

	// CreateUser inserts a user linked to fields.TenantID. A duplicate email
	// returns domain.ErrAlreadyExists.
	CreateUser(ctx context.Context, fields NewUser) (*domain.User, error)

	// CreateUserWithPassword inserts the user and its password credential as
	// one atomic write. Duplicate email returns domain.ErrAlreadyExists.
	CreateUserWithPassword(ctx context.Context, fields NewUser, hash string, strength int) (*domain.User, error)

	// FindPasswordCredential returns the user's password credential, or
	// domain.ErrUserNotFound when the user has none (social-only account).
	FindPasswordCredential(ctx context.Context, userID string) (*domain.PasswordCredential, error)

	// SetPasswordCredential creates or replaces the user's password credential.
	SetPasswordCredential(ctx context.Context, userID, hash string, strength int) error

	// UpsertSocialAccount creates the (user, provider) link on first login and
	// refreshes provider tokens on repeat logins.
	UpsertSocialAccount(ctx context.Context, account domain.SocialAccount) error

	// LinkUserToTenant adds the user to the tenant's membership. Idempotent.
	LinkUserToTenant(ctx context.Context, userID, tenantID string) error

	// RecordSignIn updates lastSignInAt/lastSignInIp. Best-effort bookkeeping.
	RecordSignIn(ctx context.Context, userID, ip string, at time.Time) error

	// FindTenant returns the tenant with the given id, or domain.ErrTenantNotFound.
	FindTenant(ctx context.Context, id string) (*domain.Tenant, error)
}
