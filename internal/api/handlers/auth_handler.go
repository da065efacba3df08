package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"shiftmarket/internal/domain"
	"shiftmarket/internal/services"
	"shiftmarket/pkg/logger"
)

type AuthHandler struct {
	auth *services.AuthService
	log  logger.Logger
}

type LoginRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}

func NewAuthHandler(auth *services.AuthService, log logger.Logger) *AuthHandler {
	return &AuthHandler{
		auth: auth,
		log:  log,
	}
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		h.log.Error("Failed to bind request", "error", err)
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	if req.UserID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "User id required"})
	}
	role := domain.UserRole(req.Role)
	switch role {
	case domain.RoleStaff, domain.RoleCompany, domain.RoleAgency, domain.RoleAdmin:
	default:
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Unknown role"})
	}

	session, err := h.auth.Login(c.Request().Context(), req.UserID, role)
	if err != nil {
		h.log.Error("Failed to create session", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to log in"})
	}

	return c.JSON(http.StatusOK, LoginResponse{
		Token:     session.Token,
		UserID:    session.UserID,
		Role:      string(session.Role),
		ExpiresAt: session.ExpiresAt,
	})
}

func (h *AuthHandler) Logout(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Token required"})
	}

	if err := h.auth.Logout(c.Request().Context(), token); err != nil {
		h.log.Error("Failed to log out", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to log out"})
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "Logged out"})
}
