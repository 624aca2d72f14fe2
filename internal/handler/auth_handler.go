package handler

import (
	"errors"

	"go-pos-invoice/internal/service"
	"go-pos-invoice/pkg/jwt"

	"github.com/gofiber/fiber/v2"
)

type AuthHandler struct {
	authService service.AuthService
}

func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles user authentication
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}

	if req.Email == "" || req.Password == "" {
		return badRequest(c, "Email and password are required")
	}

	response, err := h.authService.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return respondAuthError(c, err)
	}

	return c.JSON(response)
}

// ValidateTokenRequest represents the validate token request body
type ValidateTokenRequest struct {
	Token string `json:"token"`
}

// ValidateToken handles JWT token validation
// POST /api/v1/auth/validate-token
func (h *AuthHandler) ValidateToken(c *fiber.Ctx) error {
	var req ValidateTokenRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}

	if req.Token == "" {
		return badRequest(c, "Token is required")
	}

	response, err := h.authService.ValidateToken(c.UserContext(), req.Token)
	if err != nil {
		return respondAuthError(c, err)
	}

	return c.JSON(response)
}

var authFailures = []error{
	service.ErrInvalidCredentials,
	service.ErrUserNotFound,
	service.ErrUserInactive,
	service.ErrSessionReplaced,
	jwt.ErrInvalidToken,
	jwt.ErrMissingToken,
}

// respondAuthError answers 401 for rejected credentials or tokens only;
// storage and other failures go through respondError without their details.
func respondAuthError(c *fiber.Ctx, err error) error {
	for _, target := range authFailures {
		if errors.Is(err, target) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error(), "code": "UNAUTHORIZED"})
		}
	}
	return respondError(c, err)
}
