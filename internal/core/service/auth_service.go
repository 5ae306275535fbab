package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tenantkit/identity-api/internal/core/domain"
	"github.com/tenantkit/identity-api/internal/core/ports"
	"github.com/tenantkit/identity-api/pkg/password"
	"github.com/tenantkit/identity-api/pkg/token"
)

const (
	// minPasswordStrength is the sign-up gate: scores below it are rejected.
	minPasswordStrength = 3

	magicLinkTTL = 15 * time.Minute
)

// Options tunes AuthService behaviour.
type Options struct {
	// DisposableDomains are email domains rejected at sign-up.
	DisposableDomains []string

	// ImplicitTenantLink restores the legacy behaviour of silently linking a
	// user to a tenant at sign-in time. When false (the default), signing in
	// against a tenant the user is not a member of fails with ErrNotAMember.
	ImplicitTenantLink bool
}

// AuthService orchestrates sign-up, sign-in, sign-out, OAuth resolution and
// magic links over the credential store, session store and token issuer.
type AuthService struct {
	users    ports.CredentialStore
	sessions ports.SessionStore
	links    ports.MagicLinkStore
	issuer   *token.Issuer
	hasher   *password.Hasher
	mailer   ports.Mailer
	audit    ports.AuditLogger
	log      zerolog.Logger

	disposable         map[string]struct{}
	implicitTenantLink bool
}

func NewAuthService(
	users ports.CredentialStore,
	sessions ports.SessionStore,
	links ports.MagicLinkStore,
	issuer *token.Issuer,
	hasher *password.Hasher,
	mailer ports.Mailer,
	audit ports.AuditLogger,
	log zerolog.Logger,
	opts Options,
) *AuthService {
	disposable := make(map[string]struct{}, len(opts.DisposableDomains))
	for _, d := range opts.DisposableDomains {
		disposable[strings.ToLower(strings.TrimSpace(d))] = struct{}{}
	}
	return &AuthService{
		users:              users,
		sessions:           sessions,
		links:              links,
		issuer:             issuer,
		hasher:             hasher,
		mailer:             mailer,
		audit:              audit,
		log:                log,
		disposable:         disposable,
		implicitTenantLink: opts.ImplicitTenantLink,
	}
}

// SignUp validates the email and password policy, creates the user (and its
// password credential, atomically) and opens the first session. A crash after
// the user write but before session creation leaves a valid account the
// client can sign in to, so no cleanup is needed.
func (s *AuthService) SignUp(ctx context.Context, in ports.SignUpInput) (*ports.AuthResult, error) {
	email := normalizeEmail(in.Email)
	if s.isDisposable(email) {
		return nil, domain.ErrDisposableEmail
	}

	var (
		hash     string
		strength int
	)
	if in.Password != "" {
		strength = password.Strength(in.Password)
		if strength < minPasswordStrength {
			return nil, domain.ErrWeakPassword
		}
		var err error
		hash, err = s.hasher.Hash(in.Password)
		if err != nil {
			return nil, domain.ErrServiceUnavailable
		}
	}

	// Pre-check for a friendly 409; the store's unique index is the backstop
	// against a concurrent sign-up with the same email.
	if _, err := s.users.FindUserByEmail(ctx, email, in.TenantID); err == nil {
		return nil, domain.ErrAlreadyExists
	}

	fields := ports.NewUser{
		Email:       email,
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		DisplayName: displayName(in.FirstName, in.LastName, email),
		TenantID:    in.TenantID,
	}

	var (
		user *domain.User
		err  error
	)
	if hash != "" {
		user, err = s.users.CreateUserWithPassword(ctx, fields, hash, strength)
	} else {
		user, err = s.users.CreateUser(ctx, fields)
	}
	if err != nil {
		return nil, err
	}

	result, err := s.openSession(ctx, user, in.TenantID, in.IPAddress, in.UserAgent)
	if err != nil {
		return nil, err
	}

	s.audit.Record(ports.AuditEvent{
		Action: "sign_up", Result: "success",
		UserID: user.ID, TenantID: in.TenantID, At: time.Now().UTC(),
	})
	return result, nil
}

// SignIn verifies a password sign-in. Lookup failures and password mismatches
// collapse into the one ErrInvalidCredentials so callers cannot tell accounts
// apart.
func (s *AuthService) SignIn(ctx context.Context, in ports.SignInInput) (*ports.AuthResult, error) {
	email := normalizeEmail(in.Email)

	// Tenant-independent lookup: the account may exist under another tenant.
	user, err := s.users.FindUserByEmail(ctx, email, "")
	if err != nil {
		if err == domain.ErrUserNotFound {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	cred, err := s.users.FindPasswordCredential(ctx, user.ID)
	if err != nil {
		if err == domain.ErrUserNotFound {
			// Social-only account; same generic failure.
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if user.Banned {
		s.recordSignInFailure(user, in.TenantID, "suspended")
		return nil, domain.ErrAccountSuspended
	}
	if user.Locked {
		s.recordSignInFailure(user, in.TenantID, "locked")
		return nil, domain.ErrAccountLocked
	}

	if !s.hasher.Verify(in.Password, cred.Hash) {
		s.recordSignInFailure(user, in.TenantID, "bad_password")
		return nil, domain.ErrInvalidCredentials
	}

	if !user.MemberOf(in.TenantID) {
		if !s.implicitTenantLink {
			return nil, domain.ErrNotAMember
		}
		if err := s.users.LinkUserToTenant(ctx, user.ID, in.TenantID); err != nil {
			return nil, err
		}
	}

	if err := s.users.RecordSignIn(ctx, user.ID, in.IPAddress, time.Now().UTC()); err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("record sign-in failed")
	}

	result, err := s.openSession(ctx, user, in.TenantID, in.IPAddress, in.UserAgent)
	if err != nil {
		return nil, err
	}

	s.audit.Record(ports.AuditEvent{
		Action: "sign_in", Result: "success",
		UserID: user.ID, TenantID: in.TenantID, At: time.Now().UTC(),
	})
	return result, nil
}

// SignInOAuth resolves a verified provider profile into a local account. An
// existing account gets its social link upserted; a first-time profile
// creates a user with emailVerified=true and its social account in one write.
func (s *AuthService) SignInOAuth(ctx context.Context, profile ports.OAuthProfile, tenantID, ip, userAgent string) (*ports.AuthResult, error) {
	if profile.Email == "" {
		return nil, domain.ErrNoEmailFromProvider
	}
	email := normalizeEmail(profile.Email)

	now := time.Now().UTC()
	user, err := s.users.FindUserByEmail(ctx, email, tenantID)
	switch err {
	case nil:
		// Known account: refresh the provider link.
	case domain.ErrUserNotFound:
		user, err = s.users.CreateUser(ctx, ports.NewUser{
			Email:         email,
			DisplayName:   firstNonEmpty(profile.Name, email),
			EmailVerified: true,
			TenantID:      tenantID,
		})
		if err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	if user.Banned {
		return nil, domain.ErrAccountSuspended
	}
	if user.Locked {
		return nil, domain.ErrAccountLocked
	}

	if err := s.users.UpsertSocialAccount(ctx, domain.SocialAccount{
		UserID:         user.ID,
		Provider:       profile.Provider,
		ProviderUserID: profile.ProviderUserID,
		AccessToken:    profile.AccessToken,
		RefreshToken:   profile.RefreshToken,
		UpdatedAt:      now,
	}); err != nil {
		return nil, err
	}

	if err := s.users.RecordSignIn(ctx, user.ID, ip, now); err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("record sign-in failed")
	}

	result, err := s.openSession(ctx, user, tenantID, ip, userAgent)
	if err != nil {
		return nil, err
	}

	s.audit.Record(ports.AuditEvent{
		Action: "sign_in_oauth", Result: "success",
		UserID: user.ID, TenantID: tenantID,
		Metadata: map[string]string{"provider": profile.Provider},
		At:       now,
	})
	return result, nil
}

// SignOut revokes the session named by the presented access token. It always
// appears to succeed: an invalid token or a failed revocation is logged and
// swallowed so the client can clear its local tokens either way.
func (s *AuthService) SignOut(ctx context.Context, accessToken string) {
	claims, err := s.issuer.VerifyAccess(accessToken)
	if err != nil {
		s.log.Debug().Msg("sign-out with unverifiable token")
		return
	}
	if err := s.sessions.Revoke(ctx, claims.SessionID); err != nil {
		s.log.Warn().Err(err).Str("session_id", claims.SessionID).Msg("sign-out revoke failed")
		return
	}
	s.audit.Record(ports.AuditEvent{
		Action: "sign_out", Result: "success",
		UserID: claims.UserID, TenantID: claims.TenantID, At: time.Now().UTC(),
	})
}

// SignOutAll revokes every other session of the user ("sign out everywhere
// but here").
func (s *AuthService) SignOutAll(ctx context.Context, userID, currentSessionID string) (int64, error) {
	n, err := s.sessions.RevokeAll(ctx, userID, currentSessionID)
	if err != nil {
		return 0, err
	}
	s.audit.Record(ports.AuditEvent{
		Action: "sign_out_all", Result: "success",
		UserID: userID, At: time.Now().UTC(),
	})
	return n, nil
}

// IssueMagicLink creates a single-use link and mails it asynchronously. It
// returns nil whether or not the email belongs to an account; only the token
// record and the outgoing mail reveal anything, and neither goes to the caller.
func (s *AuthService) IssueMagicLink(ctx context.Context, email, tenantID, purpose string) error {
	email = normalizeEmail(email)
	if purpose == "" {
		purpose = domain.MagicLinkSignIn
	}

	raw, err := randomToken()
	if err != nil {
		return domain.ErrServiceUnavailable
	}

	now := time.Now().UTC()
	if err := s.links.Create(ctx, domain.MagicLink{
		TokenHash: hashToken(raw),
		Email:     email,
		TenantID:  tenantID,
		Purpose:   purpose,
		ExpiresAt: now.Add(magicLinkTTL),
		CreatedAt: now,
	}); err != nil {
		return err
	}

	switch purpose {
	case domain.MagicLinkPasswordReset:
		s.mailer.SendPasswordReset(email, raw, tenantID)
	case domain.MagicLinkVerifyEmail:
		s.mailer.SendVerification(email, raw, tenantID)
	default:
		s.mailer.SendMagicLink(email, raw, tenantID)
	}

	s.audit.Record(ports.AuditEvent{
		Action: "magic_link_issued", Result: "success",
		TenantID: tenantID,
		Metadata: map[string]string{"purpose": purpose},
		At:       now,
	})
	return nil
}

// VerifyMagicLink consumes a link token exactly once and opens a session for
// the account it names. Reuse fails with ErrTokenAlreadyUsed; the HTTP layer
// collapses used/expired/unknown into one generic message.
func (s *AuthService) VerifyMagicLink(ctx context.Context, rawToken, ip, userAgent string) (*ports.AuthResult, error) {
	link, err := s.links.Consume(ctx, hashToken(rawToken))
	if err != nil {
		return nil, err
	}

	user, err := s.users.FindUserByEmail(ctx, link.Email, link.TenantID)
	if err != nil {
		return nil, err
	}
	if user.Banned {
		return nil, domain.ErrAccountSuspended
	}
	if user.Locked {
		return nil, domain.ErrAccountLocked
	}

	result, err := s.openSession(ctx, user, link.TenantID, ip, userAgent)
	if err != nil {
		return nil, err
	}

	s.audit.Record(ports.AuditEvent{
		Action: "magic_link_verified", Result: "success",
		UserID: user.ID, TenantID: link.TenantID, At: time.Now().UTC(),
	})
	return result, nil
}

// ResetPassword consumes a password-reset link and replaces the password
// credential. The strength gate runs before the token is consumed so a weak
// submission does not burn the single-use link. All sessions are revoked; the
// user signs in again with the new password.
func (s *AuthService) ResetPassword(ctx context.Context, rawToken, newPassword string) error {
	strength := password.Strength(newPassword)
	if strength < minPasswordStrength {
		return domain.ErrWeakPassword
	}

	link, err := s.links.Consume(ctx, hashToken(rawToken))
	if err != nil {
		return err
	}
	if link.Purpose != domain.MagicLinkPasswordReset {
		return domain.ErrTokenNotFound
	}

	user, err := s.users.FindUserByEmail(ctx, link.Email, link.TenantID)
	if err != nil {
		return err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return domain.ErrServiceUnavailable
	}
	if err := s.users.SetPasswordCredential(ctx, user.ID, hash, strength); err != nil {
		return err
	}

	if _, err := s.sessions.RevokeAll(ctx, user.ID, ""); err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("post-reset session revocation failed")
	}

	s.audit.Record(ports.AuditEvent{
		Action: "password_reset", Result: "success",
		UserID: user.ID, TenantID: link.TenantID, At: time.Now().UTC(),
	})
	return nil
}

// CurrentUser resolves the authorized principal into its user and tenant.
func (s *AuthService) CurrentUser(ctx context.Context, userID, tenantID string) (*domain.User, *domain.Tenant, error) {
	user, err := s.users.FindUserByID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	tenant, err := s.users.FindTenant(ctx, tenantID)
	if err != nil {
		return nil, nil, err
	}
	return user, tenant, nil
}

// openSession creates the session row and mints the token pair bound to it.
func (s *AuthService) openSession(ctx context.Context, user *domain.User, tenantID, ip, userAgent string) (*ports.AuthResult, error) {
	sess, err := s.sessions.Create(ctx, user.ID, tenantID, ip, userAgent)
	if err != nil {
		return nil, err
	}
	pair, err := s.issuer.IssuePair(user.ID, tenantID, user.Email, sess.ID)
	if err != nil {
		return nil, domain.ErrServiceUnavailable
	}
	return &ports.AuthResult{User: user, Tokens: pair, SessionID: sess.ID}, nil
}

func (s *AuthService) recordSignInFailure(user *domain.User, tenantID, reason string) {
	s.audit.Record(ports.AuditEvent{
		Action: "sign_in", Result: reason,
		UserID: user.ID, TenantID: tenantID, At: time.Now().UTC(),
	})
}

func (s *AuthService) isDisposable(email string) bool {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return false
	}
	_, ok := s.disposable[email[at+1:]]
	return ok
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func displayName(first, last, email string) string {
	name := strings.TrimSpace(first + " " + last)
	if name == "" {
		return email
	}
	return name
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// randomToken returns a 256-bit hex token for magic links.
func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// hashToken derives the storable digest of a raw link token.
func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
