package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"rental-backend/internal/apperror"
	"rental-backend/internal/auth"
	"rental-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

// Caller is the identity a test request runs as.
type Caller struct {
	UserID   uint
	Role     models.UserRole
	TenantID *uint
}

// NewApp returns a fiber app with the production error handler and a
// middleware that authenticates every request as who.
func NewApp(who Caller) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			status, body := apperror.ToHTTP(err)
			return c.Status(status).JSON(body)
		},
	})
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(auth.CtxUserIDKey, who.UserID)
		c.Locals(auth.CtxUserRoleKey, who.Role)
		c.Locals(auth.CtxTenantIDKey, who.TenantID)
		return c.Next()
	})
	return app
}

// Do sends a JSON request and decodes the JSON response into out when out
// is non-nil. It returns the status code.
func Do(t *testing.T, app *fiber.App, method, path string, body any, out any) int {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil && resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}
