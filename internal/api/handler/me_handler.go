package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tenantkit/identity-api/internal/core/ports"
)

// MeHandler resolves the authorized principal into its profile.
type MeHandler struct {
	svc ports.AuthService
}

func NewMeHandler(svc ports.AuthService) *MeHandler {
	return &MeHandler{svc: svc}
}

// Me returns the caller's user record and organization.
//
// @Summary      Current user
// @Tags         auth
// @Produce      json
// @Success      200  {object}  meResponse
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /me [get]
func (h *MeHandler) Me(c echo.Context) error {
	p, err := requirePrincipal(c)
	if err != nil {
		return err
	}

	user, tenant, err := h.svc.CurrentUser(c.Request().Context(), p.UserID, p.TenantID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, meResponse{User: user, Organization: tenant})
}
