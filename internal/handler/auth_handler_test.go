package handler

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go-pos-invoice/internal/service"
	"go-pos-invoice/pkg/jwt"

	"github.com/gofiber/fiber/v2"
)

type stubAuth struct {
	err error
}

func (s stubAuth) Login(context.Context, string, string) (*service.LoginResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &service.LoginResponse{Token: "t"}, nil
}

func (s stubAuth) ValidateToken(context.Context, string) (*service.TokenValidationResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &service.TokenValidationResponse{}, nil
}

func (s stubAuth) ResetPassword(context.Context, string, string) error { return s.err }

func TestAuthErrorStatus(t *testing.T) {
	dbErr := errors.New("pq: connection refused to 10.0.0.5")
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"ok", nil, 200, ""},
		{"bad password", service.ErrInvalidCredentials, 401, "UNAUTHORIZED"},
		{"inactive", service.ErrUserInactive, 401, "UNAUTHORIZED"},
		{"replaced session", service.ErrSessionReplaced, 401, "UNAUTHORIZED"},
		{"bad token", jwt.ErrInvalidToken, 401, "UNAUTHORIZED"},
		{"storage down", &service.PersistenceError{Op: "update session", Err: dbErr}, 503, "PERSISTENCE_FAILURE"},
		{"unexpected", errors.New("failed to generate token: boom"), 500, "INTERNAL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewAuthHandler(stubAuth{err: tt.err})
			app := fiber.New()
			app.Post("/login", h.Login)
			app.Post("/validate-token", h.ValidateToken)
			a := &testApp{app: app}

			for _, call := range []struct {
				path string
				body map[string]any
			}{
				{"/login", map[string]any{"email": "a@b.test", "password": "pw"}},
				{"/validate-token", map[string]any{"token": "abc"}},
			} {
				status, body, raw := a.do(t, "POST", call.path, call.body)
				if status != tt.status {
					t.Fatalf("%s: status = %d, want %d (%s)", call.path, status, tt.status, raw)
				}
				if tt.code != "" && body["code"] != tt.code {
					t.Fatalf("%s: code = %v, want %s", call.path, body["code"], tt.code)
				}
				if msg, _ := body["error"].(string); tt.status >= 500 && msg != "" && (strings.Contains(msg, "10.0.0.5") || strings.Contains(msg, "boom")) {
					t.Fatalf("%s: internal detail leaked: %s", call.path, msg)
				}
			}
		})
	}
}

