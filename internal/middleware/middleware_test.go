package middleware

import (
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"carquote_backend/internal/model"
	"carquote_backend/pkg/database"
	"carquote_backend/pkg/utils/jwt"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceAuthMiddleware(t *testing.T) {
	app := fiber.New()
	app.Post("/cb", ServiceAuthMiddleware("s3cret", jwt.CallbackAudience), func(c *fiber.Ctx) error {
		claims := c.Locals("service").(*jwt.Claims)
		return c.SendString(claims.Service)
	})

	resp, err := app.Test(httptest.NewRequest("POST", "/cb", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	req := httptest.NewRequest("POST", "/cb", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	token, err := jwt.GenerateServiceToken("s3cret", "voice-agent", jwt.CallbackAudience, time.Minute)
	require.NoError(t, err)
	req = httptest.NewRequest("POST", "/cb", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestServiceAuthMiddlewareRefusesWithoutSecret(t *testing.T) {
	reached := false
	app := fiber.New()
	app.Post("/cb", ServiceAuthMiddleware("", jwt.CallbackAudience), func(c *fiber.Ctx) error {
		reached = true
		return c.SendStatus(fiber.StatusNoContent)
	})

	resp, err := app.Test(httptest.NewRequest("POST", "/cb", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)

	token, err := jwt.GenerateServiceToken("any-secret", "voice-agent", jwt.CallbackAudience, time.Minute)
	require.NoError(t, err)
	req := httptest.NewRequest("POST", "/cb", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
	assert.False(t, reached)
}

func TestLoadSession(t *testing.T) {
	db, err := database.Open(sqlite.Open(filepath.Join(t.TempDir(), "mw.db")))
	require.NoError(t, err)
	require.NoError(t, database.MigrateDatabase(db, model.Models()...))
	database.DB = db

	session := model.Session{UserID: "u1", CarType: "Toyota Camry", CarModel: "Camry", Version: "LE",
		ZipCode: "94105", RadiusMiles: 10, Status: model.SessionStatusDraft}
	require.NoError(t, db.Create(&session).Error)

	app := fiber.New()
	app.Get("/sessions/:id", LoadSession(), func(c *fiber.Ctx) error {
		return c.JSON(CurrentSession(c))
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/sessions/abc", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/sessions/999", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/sessions/1", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
