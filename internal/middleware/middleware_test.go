package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"foodgram/pkg/jwt"
)

func newProtectedApp(jwtService jwt.JWTService) (*fiber.App, *uint) {
	var seen uint
	app := fiber.New()
	app.Get("/protected", NewMiddleware().AuthMiddleware(jwtService), func(c *fiber.Ctx) error {
		seen = c.Locals("user_id").(uint)
		return c.SendStatus(fiber.StatusOK)
	})
	return app, &seen
}

func TestAuthMiddlewareAcceptsUserToken(t *testing.T) {
	jwtService := jwt.NewJWTService()
	app, seen := newProtectedApp(jwtService)

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+jwtService.GenerateTokenUser(42))

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, uint(42), *seen)
}

func TestAuthMiddlewareRejectsNonUserTokens(t *testing.T) {
	jwtService := jwt.NewJWTService()

	resetToken, err := jwtService.GenerateTokenResetPassword("julia@example.com", 15*time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"malformed header", "Token abc"},
		{"garbage token", "Bearer not-a-token"},
		// A password-reset token is valid HS256 but not a credential.
		{"reset token", "Bearer " + resetToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, _ := newProtectedApp(jwtService)

			req := httptest.NewRequest("GET", "/protected", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
		})
	}
}
