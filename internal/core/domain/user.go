package domain

import "time"

// User is an identity record. Email is unique across the platform; the same
// user may be linked to several tenants through TenantIDs.
type User struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	FirstName     string     `json:"first_name,omitempty"`
	LastName      string     `json:"last_name,omitempty"`
	DisplayName   string     `json:"display_name,omitempty"`
	EmailVerified bool       `json:"email_verified"`
	Banned        bool       `json:"-"`
	Locked        bool       `json:"-"`
	TenantIDs     []string   `json:"-"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	LastSignInAt  *time.Time `json:"last_sign_in_at,omitempty"`
	LastSignInIP  string     `json:"-"`
}

// MemberOf reports whether the user is linked to the given tenant.
func (u *User) MemberOf(tenantID string) bool {
	for _, id := range u.TenantIDs {
		if id == tenantID {
			return true
		}
	}
	return false
}

// PasswordCredential is the zero-or-one password record owned by a user.
type PasswordCredential struct {
	UserID    string
	Hash      string
	Strength  int
	CreatedAt time.Time
}

// SocialAccount links a user to an external OAuth identity, unique per
// (user, provider).
type SocialAccount struct {
	UserID         string
	Provider       string
	ProviderUserID string
	AccessToken    string
	RefreshToken   string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Tenant is the isolation boundary for email uniqueness and membership.
// Tenant CRUD lives elsewhere; the auth core only reads it.
type Tenant struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
}
