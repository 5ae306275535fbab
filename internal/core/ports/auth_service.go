package ports

import (
	"context"

	"github.com/tenantkit/identity-api/internal/core/domain"
	"github.com/tenantkit/identity-api/pkg/token"
)

// SignUpInput carries everything needed to create an account. Password may be
// empty when the caller intends to attach a credential later (invite flows).
type SignUpInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	TenantID  string
	IPAddress string
	UserAgent string
}

// SignInInput carries a password sign-in attempt.
type SignInInput struct {
	Email     string
	Password  string
	TenantID  string
	IPAddress string
	UserAgent string
}

// AuthResult is the common outcome of every successful authentication flow.
type AuthResult struct {
	User      *domain.User
	Tokens    *token.Pair
	SessionID string
}

// AuthService orchestrates the authentication and session lifecycle.
type AuthService interface {
	SignUp(ctx context.Context, in SignUpInput) (*AuthResult, error)
	SignIn(ctx context.Context, in SignInInput) (*AuthResult, error)

	// SignInOAuth resolves a provider profile into a local account, creating
	// or linking it as needed, and opens a session.
	SignInOAuth(ctx context.Context, profile OAuthProfile, tenantID, ip, userAgent string) (*AuthResult, error)

	// SignOut revokes the session referenced by the presented access token.
	// It never fails from the caller's point of view.
	SignOut(ctx context.Context, accessToken string)

	// SignOutAll revokes every session of the user except the current one,
	// returning how many were revoked.
	SignOutAll(ctx context.Context, userID, currentSessionID string) (int64, error)

	// IssueMagicLink creates and mails a single-use sign-in link. It is
	// enumeration-safe: it succeeds regardless of account existence.
	IssueMagicLink(ctx context.Context, email, tenantID, purpose string) error

	// VerifyMagicLink consumes a link token and opens a session for its email.
	VerifyMagicLink(ctx context.Context, rawToken, ip, userAgent string) (*AuthResult, error)

	// ResetPassword consumes a password-reset link and replaces the account's
	// password credential. Every session of the account is revoked.
	ResetPassword(ctx context.Context, rawToken, newPassword string) error

	// CurrentUser loads the user and tenant for an authorized principal.
	CurrentUser(ctx context.Context, userID, tenantID string) (*domain.User, *domain.Tenant, error)
}
