package handler

import (
	"github.com/tenantkit/identity-api/internal/core/domain"
)

type signUpRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	TenantID  string `json:"tenant_id" validate:"required"`
}

type signInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	TenantID string `json:"tenant_id" validate:"required"`
}

type resetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type magicLinkRequest struct {
	Email    string `json:"email" validate:"required,email"`
	TenantID string `json:"tenant_id" validate:"required"`
	Purpose  string `json:"purpose,omitempty" validate:"omitempty,oneof=sign_in password_reset verify_email"`
}

// authResponse is the body of every successful authentication flow.
type authResponse struct {
	User         *domain.User `json:"user"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int64        `json:"expires_in"`
	SessionID    string       `json:"session_id"`
}

type meResponse struct {
	User         *domain.User   `json:"user"`
	Organization *domain.Tenant `json:"organization"`
}

type signOutAllResponse struct {
	Revoked int64 `json:"revoked"`
}

type messageResponse struct {
	Message string `json:"message"`
}
