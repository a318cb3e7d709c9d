package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tutor-cockpit-api/internal/models"
	"github.com/noah-isme/tutor-cockpit-api/pkg/response"
)

type authService interface {
	Status(ctx context.Context) (*models.AuthStatus, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error)
	Logout(ctx context.Context) error
	ChangePassphrase(ctx context.Context, req models.ChangePassphraseRequest) error
}

// AuthHandler wires HTTP endpoints to the auth service.
type AuthHandler struct {
	service authService
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc authService) *AuthHandler {
	return &AuthHandler{service: svc}
}

// Status godoc
// @Summary Passphrase setup status
// @Description Reports whether the first login already stored a passphrase
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /auth/status [get]
func (h *AuthHandler) Status(c *gin.Context) {
	status, err := h.service.Status(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, status)
}

// Login godoc
// @Summary Unlock the dashboard
// @Description Exchange the passphrase for an access token. The first login sets the passphrase.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if !bindJSON(c, &req) {
		return
	}
	req.IP = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	res, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Logout godoc
// @Summary Lock the dashboard
// @Description Revokes every access token issued so far
// @Tags Authentication
// @Produce json
// @Success 204
// @Failure 401 {object} response.Envelope
// @Security BearerAuth
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.service.Logout(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ChangePassphrase godoc
// @Summary Change passphrase
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.ChangePassphraseRequest true "Passphrase payload"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /auth/passphrase [post]
func (h *AuthHandler) ChangePassphrase(c *gin.Context) {
	var req models.ChangePassphraseRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.service.ChangePassphrase(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
