// Package token issues and verifies the stateless HS256 token pair used by
// the auth core. Tokens are self-contained; the issuer holds no state and
// performs no I/O.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for every verification failure: bad signature,
// malformed token, wrong signing method, wrong token use, or expiry. Callers
// must not be able to distinguish the reasons.
var ErrInvalidToken = errors.New("invalid token")

// Token uses carried in the token_use claim.
const (
	UseAccess  = "access"
	UseRefresh = "refresh"
)

// Default lifetimes, overridable through NewIssuer.
const (
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 30 * 24 * time.Hour
)

// Claims is the fixed claim shape minted by the Issuer. Dynamic payloads are
// rejected at verification time by decoding into this struct only.
type Claims struct {
	UserID    string `json:"sub"`
	TenantID  string `json:"tid"`
	Email     string `json:"email,omitempty"`
	SessionID string `json:"sid"`
	TokenUse  string `json:"token_use"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies access/refresh token pairs with a shared secret.
type Issuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewIssuer creates an Issuer. Non-positive TTLs fall back to the defaults.
func NewIssuer(secret string, accessTTL, refreshTTL time.Duration) *Issuer {
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTTL
	}
	return &Issuer{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// Pair is an access/refresh token pair returned by sign-in flows.
type Pair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// IssuePair mints both tokens for the given identity and session.
func (i *Issuer) IssuePair(userID, tenantID, email, sessionID string) (*Pair, error) {
	access, err := i.IssueAccess(userID, tenantID, email, sessionID)
	if err != nil {
		return nil, err
	}
	refresh, err := i.IssueRefresh(userID, tenantID, sessionID)
	if err != nil {
		return nil, err
	}
	return &Pair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(i.accessTTL.Seconds()),
	}, nil
}

// IssueAccess mints a short-lived access token.
func (i *Issuer) IssueAccess(userID, tenantID, email, sessionID string) (string, error) {
	return i.sign(Claims{
		UserID:    userID,
		TenantID:  tenantID,
		Email:     email,
		SessionID: sessionID,
		TokenUse:  UseAccess,
	}, i.accessTTL)
}

// IssueRefresh mints a long-lived refresh token. It carries no email claim.
func (i *Issuer) IssueRefresh(userID, tenantID, sessionID string) (string, error) {
	return i.sign(Claims{
		UserID:    userID,
		TenantID:  tenantID,
		SessionID: sessionID,
		TokenUse:  UseRefresh,
	}, i.refreshTTL)
}

func (i *Issuer) sign(claims Claims, ttl time.Duration) (string, error) {
	now := i.now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

// VerifyAccess validates an access token and returns its claims.
func (i *Issuer) VerifyAccess(tokenString string) (*Claims, error) {
	return i.verify(tokenString, UseAccess)
}

// VerifyRefresh validates a refresh token and returns its claims.
func (i *Issuer) VerifyRefresh(tokenString string) (*Claims, error) {
	return i.verify(tokenString, UseRefresh)
}

func (i *Issuer) verify(tokenString, use string) (*Claims, error) {
	claims := &Claims{}
	tkn, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return i.now() }))
	if err != nil || !tkn.Valid {
		return nil, ErrInvalidToken
	}
	if claims.TokenUse != use || claims.UserID == "" || claims.SessionID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
