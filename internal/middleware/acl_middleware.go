package middleware

import (
	"strconv"

	"carquote_backend/internal/model"
	"carquote_backend/pkg/database"

	"github.com/gofiber/fiber/v2"
)

// SessionLocal is the Locals key LoadSession stores the session under.
const SessionLocal = "session"

// LoadSession resolves the :id route param to a session or answers 404.
func LoadSession() fiber.Handler {
	return func(c *fiber.Ctx) error {
		sessionID, err := strconv.ParseUint(c.Params("id"), 10, 32)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid session ID",
			})
		}

		var session model.Session
		if err := database.DB.First(&session, uint(sessionID)).Error; err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Session not found",
			})
		}

		c.Locals(SessionLocal, &session)
		return c.Next()
	}
}

// CurrentSession returns the session LoadSession attached to c.
func CurrentSession(c *fiber.Ctx) *model.Session {
	session, _ := c.Locals(SessionLocal).(*model.Session)
	return session
}
