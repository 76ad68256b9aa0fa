package controller

import (
	"strings"

	"carquote_backend/internal/middleware"
	"carquote_backend/internal/model"
	"carquote_backend/internal/service"
	"carquote_backend/pkg/database"

	"github.com/gofiber/fiber/v2"
)

type SessionStatusInput struct {
	Status model.SessionStatus `json:"status"`
}

func CreateSession(c *fiber.Ctx) error {
	input := new(service.CreateSessionInput)
	if err := c.BodyParser(input); err != nil {
		return badRequest(c, "Invalid input")
	}

	session, err := service.CreateSession(database.GetDB(), *input)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(session)
}

func GetSessions(c *fiber.Ctx) error {
	userID := strings.TrimSpace(c.Query("user_id"))
	if userID == "" {
		return badRequest(c, "user_id is required")
	}

	sessions, err := service.ListSessionsByUser(database.GetDB(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(sessions)
}

func GetSession(c *fiber.Ctx) error {
	return c.JSON(middleware.CurrentSession(c))
}

func UpdateSessionStatus(c *fiber.Ctx) error {
	input := new(SessionStatusInput)
	if err := c.BodyParser(input); err != nil {
		return badRequest(c, "Invalid input")
	}

	session, err := service.UpdateSessionStatus(database.GetDB(), middleware.CurrentSession(c).ID, input.Status)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(session)
}

func DeleteSession(c *fiber.Ctx) error {
	if err := service.DeleteSession(database.GetDB(), middleware.CurrentSession(c).ID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Session deleted successfully",
	})
}

func GetSessionStats(c *fiber.Ctx) error {
	stats, err := service.GetSessionStats(database.GetDB(), middleware.CurrentSession(c).ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(stats)
}
