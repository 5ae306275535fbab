package domain

import "errors"

// Sentinel errors for every auth outcome the API can surface. Handlers never
// build status codes themselves; the central HTTP error handler maps these.
var (
	// ErrInvalidCredentials deliberately covers both "no such user" and
	// "wrong password" so callers cannot tell accounts apart.
	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrAccountSuspended = errors.New("account suspended")
	ErrAccountLocked    = errors.New("account locked")
	ErrNotAMember       = errors.New("not a member of this organization")

	ErrWeakPassword    = errors.New("password does not meet strength requirements")
	ErrDisposableEmail = errors.New("disposable email addresses are not allowed")
	ErrAlreadyExists   = errors.New("an account with this email already exists")

	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrTooManyRequests = errors.New("too many requests")

	ErrTokenAlreadyUsed = errors.New("token already used")
	ErrTokenExpired     = errors.New("token expired")
	ErrTokenNotFound    = errors.New("token not found")

	ErrNoEmailFromProvider = errors.New("provider did not return an email address")
	ErrUserNotFound        = errors.New("user not found")
	ErrTenantNotFound      = errors.New("tenant not found")
	ErrSessionNotFound     = errors.New("session not found")

	ErrServiceUnavailable = errors.New("service unavailable")
)
