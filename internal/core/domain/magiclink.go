package domain

import "time"

// Magic-link purposes. Password reset reuses the same single-use machinery.
const (
	MagicLinkSignIn        = "sign_in"
	MagicLinkPasswordReset = "password_reset"
	MagicLinkVerifyEmail   = "verify_email"
)

// MagicLink is a single-use, time-boxed out-of-band token. Only a hash of the
// token is stored; UsedAt is set atomically on first successful verification.
type MagicLink struct {
	ID        string
	TokenHash string
	Email     string
	TenantID  string
	Purpose   string
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}
