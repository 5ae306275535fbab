package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tenantkit/identity-api/internal/core/domain"
	"github.com/tenantkit/identity-api/internal/core/ports"
	"github.com/tenantkit/identity-api/pkg/password"
	"github.com/tenantkit/identity-api/pkg/token"
)

type stubUserStore struct {
	mu     sync.Mutex
	users  map[string]*domain.User // by id
	creds  map[string]*domain.PasswordCredential
	social map[string]domain.SocialAccount // key user|provider
	seq    int
}

func newStubUserStore() *stubUserStore {
	return &stubUserStore{
		users:  make(map[string]*domain.User),
		creds:  make(map[string]*domain.PasswordCredential),
		social: make(map[string]domain.SocialAccount),
	}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	clone.TenantIDs = append([]string(nil), u.TenantIDs...)
	return &clone
}

func (s *stubUserStore) FindUserByEmail(_ context.Context, email, tenantID string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email != email {
			continue
		}
		if tenantID != "" && !u.MemberOf(tenantID) {
			continue
		}
		return cloneUser(u), nil
	}
	return nil, domain.ErrUserNotFound
}

func (s *stubUserStore) FindUserByID(_ context.Context, id string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		return cloneUser(u), nil
	}
	return nil, domain.ErrUserNotFound
}

func (s *stubUserStore) insert(fields ports.NewUser) (*domain.User, error) {
	for _, u := range s.users {
		if u.Email == fields.Email {
			return nil, domain.ErrAlreadyExists
		}
	}
	s.seq++
	now := time.Now().UTC()
	u := &domain.User{
		ID:            fmt.Sprintf("user-%d", s.seq),
		Email:         fields.Email,
		FirstName:     fields.FirstName,
		LastName:      fields.LastName,
		DisplayName:   fields.DisplayName,
		EmailVerified: fields.EmailVerified,
		TenantIDs:     []string{fields.TenantID},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	s.users[u.ID] = u
	return cloneUser(u), nil
}

func (s *stubUserStore) CreateUser(_ context.Context, fields ports.NewUser) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insert(fields)
}

func (s *stubUserStore) CreateUserWithPassword(_ context.Context, fields ports.NewUser, hash string, strength int) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, err := s.insert(fields)
	if err != nil {
		return nil, err
	}
	s.creds[u.ID] = &domain.PasswordCredential{UserID: u.ID, Hash: hash, Strength: strength, CreatedAt: u.CreatedAt}
	return u, nil
}

func (s *stubUserStore) FindPasswordCredential(_ context.Context, userID string) (*domain.PasswordCredential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.creds[userID]; ok {
		clone := *c
		return &clone, nil
	}
	return nil, domain.ErrUserNotFound
}

func (s *stubUserStore) SetPasswordCredential(_ context.Context, userID, hash string, strength int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds[userID] = &domain.PasswordCredential{UserID: userID, Hash: hash, Strength: strength}
	return nil
}

func (s *stubUserStore) UpsertSocialAccount(_ context.Context, account domain.SocialAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.social[account.UserID+"|"+account.Provider] = account
	return nil
}

func (s *stubUserStore) LinkUserToTenant(_ context.Context, userID, tenantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	if !u.MemberOf(tenantID) {
		u.TenantIDs = append(u.TenantIDs, tenantID)
	}
	return nil
}

func (s *stubUserStore) RecordSignIn(_ context.Context, userID, ip string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[userID]; ok {
		u.LastSignInAt = &at
		u.LastSignInIP = ip
	}
	return nil
}

func (s *stubUserStore) FindTenant(_ context.Context, id string) (*domain.Tenant, error) {
	return &domain.Tenant{ID: id, Name: "Acme", Slug: "acme"}, nil
}

type stubSessionStore struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
	seq      int
}

func newStubSessionStore() *stubSessionStore {
	return &stubSessionStore{sessions: make(map[string]*domain.Session)}
}

func (s *stubSessionStore) Create(_ context.Context, userID, tenantID, ip, userAgent string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	now := time.Now().UTC()
	sess := &domain.Session{
		ID:           fmt.Sprintf("sess-%d", s.seq),
		UserID:       userID,
		TenantID:     tenantID,
		IPAddress:    ip,
		UserAgent:    userAgent,
		Active:       true,
		ExpiresAt:    now.Add(30 * 24 * time.Hour),
		LastActiveAt: now,
		CreatedAt:    now,
	}
	s.sessions[sess.ID] = sess
	clone := *sess
	return &clone, nil
}

func (s *stubSessionStore) Find(_ context.Context, id string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		clone := *sess
		return &clone, nil
	}
	return nil, domain.ErrSessionNotFound
}

func (s *stubSessionStore) Touch(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		sess.LastActiveAt = time.Now().UTC()
	}
	return nil
}

func (s *stubSessionStore) IsValid(_ context.Context, userID, sessionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok || sess.UserID != userID {
		return false, nil
	}
	return sess.Valid(time.Now().UTC()), nil
}

func (s *stubSessionStore) Revoke(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[sessionID]; ok && sess.Active {
		now := time.Now().UTC()
		sess.Active = false
		sess.RevokedAt = &now
	}
	return nil
}

func (s *stubSessionStore) RevokeAll(_ context.Context, userID, exceptID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	now := time.Now().UTC()
	for _, sess := range s.sessions {
		if sess.UserID == userID && sess.Active && sess.ID != exceptID {
			sess.Active = false
			sess.RevokedAt = &now
			n++
		}
	}
	return n, nil
}

type stubLinkStore struct {
	mu    sync.Mutex
	links map[string]*domain.MagicLink
}

func newStubLinkStore() *stubLinkStore {
	return &stubLinkStore{links: make(map[string]*domain.MagicLink)}
}

func (s *stubLinkStore) Create(_ context.Context, link domain.MagicLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := link
	s.links[link.TokenHash] = &clone
	return nil
}

func (s *stubLinkStore) Consume(_ context.Context, tokenHash string) (*domain.MagicLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	link, ok := s.links[tokenHash]
	if !ok {
		return nil, domain.ErrTokenNotFound
	}
	if link.UsedAt != nil {
		return nil, domain.ErrTokenAlreadyUsed
	}
	now := time.Now().UTC()
	if !now.Before(link.ExpiresAt) {
		return nil, domain.ErrTokenExpired
	}
	link.UsedAt = &now
	clone := *link
	return &clone, nil
}

type stubMailer struct {
	mu   sync.Mutex
	sent []string // "<kind>:<email>:<token>"
}

func (m *stubMailer) record(kind, email, tok string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, kind+":"+email+":"+tok)
}

type recordingMailer struct{ stubMailer }

func (m *recordingMailer) SendMagicLink(email, tok, _ string)     { m.record("magic", email, tok) }
func (m *recordingMailer) SendPasswordReset(email, tok, _ string) { m.record("reset", email, tok) }
func (m *recordingMailer) SendVerification(email, tok, _ string)  { m.record("verify", email, tok) }

type stubAudit struct {
	mu     sync.Mutex
	events []ports.AuditEvent
}

func (a *stubAudit) Record(event ports.AuditEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, event)
}

type fixture struct {
	svc      *AuthService
	users    *stubUserStore
	sessions *stubSessionStore
	links    *stubLinkStore
	mailer   *recordingMailer
	audit    *stubAudit
	issuer   *token.Issuer
}

func newFixture(opts Options) *fixture {
	f := &fixture{
		users:    newStubUserStore(),
		sessions: newStubSessionStore(),
		links:    newStubLinkStore(),
		mailer:   &recordingMailer{},
		audit:    &stubAudit{},
		issuer:   token.NewIssuer("test-secret", 15*time.Minute, time.Hour),
	}
	if opts.DisposableDomains == nil {
		opts.DisposableDomains = []string{"mailinator.com"}
	}
	f.svc = NewAuthService(
		f.users, f.sessions, f.links,
		f.issuer, password.NewHasher(4), f.mailer, f.audit,
		zerolog.Nop(), opts,
	)
	return f
}

func (f *fixture) mustSignUp(t *testing.T, email, pass, tenant string) *ports.AuthResult {
	t.Helper()
	res, err := f.svc.SignUp(context.Background(), ports.SignUpInput{
		Email: email, Password: pass, TenantID: tenant,
	})
	if err != nil {
		t.Fatalf("sign-up failed: %v", err)
	}
	return res
}

func TestSignUp_Success(t *testing.T) {
	f := newFixture(Options{})

	res := f.mustSignUp(t, "alice@example.com", "Str0ng-enough!", "tenant-1")
	if res.User == nil || res.Tokens == nil || res.SessionID == "" {
		t.Fatalf("incomplete result: %+v", res)
	}

	claims, err := f.issuer.VerifyAccess(res.Tokens.AccessToken)
	if err != nil {
		t.Fatalf("access token did not verify: %v", err)
	}
	if claims.UserID != res.User.ID || claims.TenantID != "tenant-1" || claims.SessionID != res.SessionID {
		t.Fatalf("claims do not match created identity: %+v", claims)
	}

	ok, err := f.sessions.IsValid(context.Background(), res.User.ID, res.SessionID)
	if err != nil || !ok {
		t.Fatalf("session should be valid immediately after sign-up (ok=%v err=%v)", ok, err)
	}
}

func TestSignUp_DisposableEmail(t *testing.T) {
	f := newFixture(Options{})

	_, err := f.svc.SignUp(context.Background(), ports.SignUpInput{
		Email: "a@mailinator.com", Password: "Str0ng-enough!", TenantID: "tenant-1",
	})
	if err != domain.ErrDisposableEmail {
		t.Fatalf("expected ErrDisposableEmail, got %v", err)
	}
	if len(f.users.users) != 0 {
		t.Fatalf("no user row should exist after rejection")
	}
}

func TestSignUp_WeakPassword(t *testing.T) {
	f := newFixture(Options{})

	_, err := f.svc.SignUp(context.Background(), ports.SignUpInput{
		Email: "bob@example.com", Password: "abc", TenantID: "tenant-1",
	})
	if err != domain.ErrWeakPassword {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
	if len(f.users.users) != 0 || len(f.sessions.sessions) != 0 {
		t.Fatalf("weak-password rejection must leave no persistence side effects")
	}
}

func TestSignUp_DuplicateEmail(t *testing.T) {
	f := newFixture(Options{})

	f.mustSignUp(t, "carol@example.com", "Str0ng-enough!", "tenant-1")
	_, err := f.svc.SignUp(context.Background(), ports.SignUpInput{
		Email: "carol@example.com", Password: "An0ther-good1!", TenantID: "tenant-1",
	})
	if err != domain.ErrAlreadyExists {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestSignIn_EnumerationSafety(t *testing.T) {
	f := newFixture(Options{})
	f.mustSignUp(t, "dave@example.com", "Str0ng-enough!", "tenant-1")

	_, unknownErr := f.svc.SignIn(context.Background(), ports.SignInInput{
		Email: "ghost@example.com", Password: "whatever", TenantID: "tenant-1",
	})
	_, wrongErr := f.svc.SignIn(context.Background(), ports.SignInInput{
		Email: "dave@example.com", Password: "wrong-password", TenantID: "tenant-1",
	})

	if unknownErr != domain.ErrInvalidCredentials || wrongErr != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials for both, got %v / %v", unknownErr, wrongErr)
	}
	if unknownErr.Error() != wrongErr.Error() {
		t.Fatalf("unknown-email and wrong-password must be indistinguishable")
	}
}

func TestSignIn_Success(t *testing.T) {
	f := newFixture(Options{})
	created := f.mustSignUp(t, "erin@example.com", "Str0ng-enough!", "tenant-1")

	res, err := f.svc.SignIn(context.Background(), ports.SignInInput{
		Email: "erin@example.com", Password: "Str0ng-enough!", TenantID: "tenant-1",
		IPAddress: "203.0.113.9",
	})
	if err != nil {
		t.Fatalf("sign-in failed: %v", err)
	}
	if res.User.ID != created.User.ID {
		t.Fatalf("signed in as wrong user")
	}
	if res.SessionID == created.SessionID {
		t.Fatalf("sign-in must open a fresh session")
	}

	u, _ := f.users.FindUserByID(context.Background(), res.User.ID)
	if u.LastSignInAt == nil || u.LastSignInIP != "203.0.113.9" {
		t.Fatalf("last sign-in bookkeeping missing: %+v", u)
	}
}

func TestSignIn_SuspendedAccount(t *testing.T) {
	f := newFixture(Options{})
	created := f.mustSignUp(t, "frank@example.com", "Str0ng-enough!", "tenant-1")
	f.users.users[created.User.ID].Banned = true

	// Correct password, still rejected.
	_, err := f.svc.SignIn(context.Background(), ports.SignInInput{
		Email: "frank@example.com", Password: "Str0ng-enough!", TenantID: "tenant-1",
	})
	if err != domain.ErrAccountSuspended {
		t.Fatalf("expected ErrAccountSuspended, got %v", err)
	}
}

func TestSignIn_LockedAccount(t *testing.T) {
	f := newFixture(Options{})
	created := f.mustSignUp(t, "grace@example.com", "Str0ng-enough!", "tenant-1")
	f.users.users[created.User.ID].Locked = true

	_, err := f.svc.SignIn(context.Background(), ports.SignInInput{
		Email: "grace@example.com", Password: "Str0ng-enough!", TenantID: "tenant-1",
	})
	if err != domain.ErrAccountLocked {
		t.Fatalf("expected ErrAccountLocked, got %v", err)
	}
}

func TestSignIn_TenantMembership(t *testing.T) {
	f := newFixture(Options{})
	f.mustSignUp(t, "heidi@example.com", "Str0ng-enough!", "tenant-1")

	// Default: no implicit linking.
	_, err := f.svc.SignIn(context.Background(), ports.SignInInput{
		Email: "heidi@example.com", Password: "Str0ng-enough!", TenantID: "tenant-2",
	})
	if err != domain.ErrNotAMember {
		t.Fatalf("expected ErrNotAMember, got %v", err)
	}
}

func TestSignIn_ImplicitTenantLink(t *testing.T) {
	f := newFixture(Options{ImplicitTenantLink: true})
	created := f.mustSignUp(t, "ivan@example.com", "Str0ng-enough!", "tenant-1")

	res, err := f.svc.SignIn(context.Background(), ports.SignInInput{
		Email: "ivan@example.com", Password: "Str0ng-enough!", TenantID: "tenant-2",
	})
	if err != nil {
		t.Fatalf("legacy implicit link should allow the sign-in: %v", err)
	}
	u, _ := f.users.FindUserByID(context.Background(), created.User.ID)
	if !u.MemberOf("tenant-2") {
		t.Fatalf("user should be linked to tenant-2 after implicit link")
	}
	if res.SessionID == "" {
		t.Fatalf("missing session")
	}
}

func TestSignIn_ConcurrentSessionsAreIndependent(t *testing.T) {
	f := newFixture(Options{})
	f.mustSignUp(t, "judy@example.com", "Str0ng-enough!", "tenant-1")

	in := ports.SignInInput{Email: "judy@example.com", Password: "Str0ng-enough!", TenantID: "tenant-1"}
	first, err := f.svc.SignIn(context.Background(), in)
	if err != nil {
		t.Fatalf("first sign-in failed: %v", err)
	}
	second, err := f.svc.SignIn(context.Background(), in)
	if err != nil {
		t.Fatalf("second sign-in failed: %v", err)
	}
	if first.SessionID == second.SessionID {
		t.Fatalf("concurrent sign-ins must produce distinct sessions")
	}

	if err := f.sessions.Revoke(context.Background(), first.SessionID); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	ok, _ := f.sessions.IsValid(context.Background(), first.User.ID, second.SessionID)
	if !ok {
		t.Fatalf("revoking one session must not invalidate the other")
	}
}

func TestSignOut_RevokesSession(t *testing.T) {
	f := newFixture(Options{})
	res := f.mustSignUp(t, "kim@example.com", "Str0ng-enough!", "tenant-1")

	f.svc.SignOut(context.Background(), res.Tokens.AccessToken)

	ok, _ := f.sessions.IsValid(context.Background(), res.User.ID, res.SessionID)
	if ok {
		t.Fatalf("session should be revoked after sign-out")
	}

	// Revoking again, or signing out with garbage, must be silent.
	f.svc.SignOut(context.Background(), res.Tokens.AccessToken)
	f.svc.SignOut(context.Background(), "not-a-token")
}

func TestRevoke_Idempotent(t *testing.T) {
	f := newFixture(Options{})
	res := f.mustSignUp(t, "leo@example.com", "Str0ng-enough!", "tenant-1")

	for i := 0; i < 2; i++ {
		if err := f.sessions.Revoke(context.Background(), res.SessionID); err != nil {
			t.Fatalf("revoke call %d returned error: %v", i+1, err)
		}
	}
	sess, _ := f.sessions.Find(context.Background(), res.SessionID)
	if sess.Active {
		t.Fatalf("session still active after revoke")
	}
}

func TestSignOutAll_SparesCurrentSession(t *testing.T) {
	f := newFixture(Options{})
	res := f.mustSignUp(t, "mallory@example.com", "Str0ng-enough!", "tenant-1")

	in := ports.SignInInput{Email: "mallory@example.com", Password: "Str0ng-enough!", TenantID: "tenant-1"}
	other1, _ := f.svc.SignIn(context.Background(), in)
	other2, _ := f.svc.SignIn(context.Background(), in)

	n, err := f.svc.SignOutAll(context.Background(), res.User.ID, other2.SessionID)
	if err != nil {
		t.Fatalf("sign-out-all failed: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 revoked sessions, got %d", n)
	}

	if ok, _ := f.sessions.IsValid(context.Background(), res.User.ID, other2.SessionID); !ok {
		t.Fatalf("current session must survive sign-out-all")
	}
	if ok, _ := f.sessions.IsValid(context.Background(), res.User.ID, other1.SessionID); ok {
		t.Fatalf("other sessions must be revoked")
	}
}

func TestSignInOAuth_FirstLoginCreatesVerifiedUser(t *testing.T) {
	f := newFixture(Options{})

	res, err := f.svc.SignInOAuth(context.Background(), ports.OAuthProfile{
		Provider:       "google",
		ProviderUserID: "g-123",
		Email:          "nina@example.com",
		Name:           "Nina",
		AccessToken:    "prov-access",
	}, "tenant-1", "198.51.100.7", "test-agent")
	if err != nil {
		t.Fatalf("oauth sign-in failed: %v", err)
	}
	if !res.User.EmailVerified {
		t.Fatalf("oauth-created user should have a verified email")
	}

	acct, ok := f.users.social[res.User.ID+"|google"]
	if !ok || acct.ProviderUserID != "g-123" {
		t.Fatalf("social account not linked: %+v", acct)
	}
}

func TestSignInOAuth_RepeatLoginUpdatesTokens(t *testing.T) {
	f := newFixture(Options{})

	profile := ports.OAuthProfile{
		Provider: "google", ProviderUserID: "g-9", Email: "oscar@example.com", AccessToken: "first",
	}
	first, err := f.svc.SignInOAuth(context.Background(), profile, "tenant-1", "", "")
	if err != nil {
		t.Fatalf("first oauth sign-in failed: %v", err)
	}

	profile.AccessToken = "second"
	repeat, err := f.svc.SignInOAuth(context.Background(), profile, "tenant-1", "", "")
	if err != nil {
		t.Fatalf("repeat oauth sign-in failed: %v", err)
	}
	if repeat.User.ID != first.User.ID {
		t.Fatalf("repeat login must resolve to the same user")
	}
	if acct := f.users.social[first.User.ID+"|google"]; acct.AccessToken != "second" {
		t.Fatalf("provider tokens not refreshed: %+v", acct)
	}
}

func TestSignInOAuth_RequiresEmail(t *testing.T) {
	f := newFixture(Options{})

	_, err := f.svc.SignInOAuth(context.Background(), ports.OAuthProfile{
		Provider: "github", ProviderUserID: "gh-1",
	}, "tenant-1", "", "")
	if err != domain.ErrNoEmailFromProvider {
		t.Fatalf("expected ErrNoEmailFromProvider, got %v", err)
	}
}

func TestMagicLink_SingleUse(t *testing.T) {
	f := newFixture(Options{})
	f.mustSignUp(t, "peggy@example.com", "Str0ng-enough!", "tenant-1")

	if err := f.svc.IssueMagicLink(context.Background(), "peggy@example.com", "tenant-1", domain.MagicLinkSignIn); err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if len(f.mailer.sent) != 1 {
		t.Fatalf("expected one outbound mail, got %d", len(f.mailer.sent))
	}

	// The raw token travels only in the email.
	var raw string
	if _, err := fmt.Sscanf(f.mailer.sent[0], "magic:peggy@example.com:%s", &raw); err != nil {
		t.Fatalf("could not recover token from mail %q: %v", f.mailer.sent[0], err)
	}

	res, err := f.svc.VerifyMagicLink(context.Background(), raw, "", "")
	if err != nil {
		t.Fatalf("first verification failed: %v", err)
	}
	if res.User.Email != "peggy@example.com" {
		t.Fatalf("verified wrong account: %s", res.User.Email)
	}

	if _, err := f.svc.VerifyMagicLink(context.Background(), raw, "", ""); err != domain.ErrTokenAlreadyUsed {
		t.Fatalf("expected ErrTokenAlreadyUsed on reuse, got %v", err)
	}
}

func TestResetPassword_Flow(t *testing.T) {
	f := newFixture(Options{})
	res := f.mustSignUp(t, "quentin@example.com", "Str0ng-enough!", "tenant-1")

	if err := f.svc.IssueMagicLink(context.Background(), "quentin@example.com", "tenant-1", domain.MagicLinkPasswordReset); err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	var raw string
	if _, err := fmt.Sscanf(f.mailer.sent[0], "reset:quentin@example.com:%s", &raw); err != nil {
		t.Fatalf("could not recover token from mail %q: %v", f.mailer.sent[0], err)
	}

	// A weak replacement is rejected without consuming the token.
	if err := f.svc.ResetPassword(context.Background(), raw, "abc"); err != domain.ErrWeakPassword {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}

	if err := f.svc.ResetPassword(context.Background(), raw, "Fr3sh-Passw0rd!"); err != nil {
		t.Fatalf("reset failed: %v", err)
	}

	// The old session is gone and only the new password signs in.
	if ok, _ := f.sessions.IsValid(context.Background(), res.User.ID, res.SessionID); ok {
		t.Fatalf("existing sessions must be revoked by a password reset")
	}
	if _, err := f.svc.SignIn(context.Background(), ports.SignInInput{
		Email: "quentin@example.com", Password: "Str0ng-enough!", TenantID: "tenant-1",
	}); err != domain.ErrInvalidCredentials {
		t.Fatalf("old password should no longer work, got %v", err)
	}
	if _, err := f.svc.SignIn(context.Background(), ports.SignInInput{
		Email: "quentin@example.com", Password: "Fr3sh-Passw0rd!", TenantID: "tenant-1",
	}); err != nil {
		t.Fatalf("new password should sign in: %v", err)
	}

	// The link was single-use.
	if err := f.svc.ResetPassword(context.Background(), raw, "An0ther-g00d-1!"); err != domain.ErrTokenAlreadyUsed {
		t.Fatalf("expected ErrTokenAlreadyUsed on reuse, got %v", err)
	}
}

func TestResetPassword_RejectsSignInToken(t *testing.T) {
	f := newFixture(Options{})
	f.mustSignUp(t, "rupert@example.com", "Str0ng-enough!", "tenant-1")

	if err := f.svc.IssueMagicLink(context.Background(), "rupert@example.com", "tenant-1", domain.MagicLinkSignIn); err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	var raw string
	if _, err := fmt.Sscanf(f.mailer.sent[0], "magic:rupert@example.com:%s", &raw); err != nil {
		t.Fatalf("could not recover token: %v", err)
	}

	if err := f.svc.ResetPassword(context.Background(), raw, "Fr3sh-Passw0rd!"); err != domain.ErrTokenNotFound {
		t.Fatalf("a sign-in link must not reset a password, got %v", err)
	}
}

func TestMagicLink_UnknownToken(t *testing.T) {
	f := newFixture(Options{})

	if _, err := f.svc.VerifyMagicLink(context.Background(), "bogus", "", ""); err != domain.ErrTokenNotFound {
		t.Fatalf("expected ErrTokenNotFound, got %v", err)
	}
}

func TestMagicLink_IssuanceIsEnumerationSafe(t *testing.T) {
	f := newFixture(Options{})

	// No account exists for this address; issuance still succeeds.
	if err := f.svc.IssueMagicLink(context.Background(), "nobody@example.com", "tenant-1", domain.MagicLinkSignIn); err != nil {
		t.Fatalf("issuance must not reveal account absence: %v", err)
	}
}
