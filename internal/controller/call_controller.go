package controller

import (
	"time"

	"carquote_backend/internal/middleware"
	"carquote_backend/internal/service"
	"carquote_backend/pkg/database"

	"github.com/gofiber/fiber/v2"
)

func GetSessionCalls(c *fiber.Ctx) error {
	calls, err := service.ListCallsBySession(database.GetDB(), middleware.CurrentSession(c).ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(calls)
}

func CreateCall(c *fiber.Ctx) error {
	input := new(service.CreateCallInput)
	if err := c.BodyParser(input); err != nil {
		return badRequest(c, "Invalid input")
	}

	call, err := service.CreateCall(database.GetDB(), *input)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(call)
}

func GetOverdueCalls(c *fiber.Ctx) error {
	calls, err := service.ListOverdueCalls(database.GetDB(), time.Now())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(calls)
}

func GetCall(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "Invalid call ID")
	}
	call, err := service.GetCall(database.GetDB(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(call)
}

func UpdateCallStatus(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "Invalid call ID")
	}
	input := new(service.CallPatch)
	if err := c.BodyParser(input); err != nil {
		return badRequest(c, "Invalid input")
	}

	call, err := service.UpdateCallStatus(database.GetDB(), id, *input)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(call)
}

func DeleteCall(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "Invalid call ID")
	}
	if err := service.DeleteCall(database.GetDB(), id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Call deleted successfully",
	})
}

// FinishCall is the voice agent's end-of-call callback.
func FinishCall(c *fiber.Ctx) error {
	input := new(service.FinishInput)
	if err := c.BodyParser(input); err != nil {
		return badRequest(c, "Invalid input")
	}

	call, err := service.FinishCall(database.GetDB(), *input, time.Now())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(call)
}

func GetCallQuote(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "Invalid call ID")
	}
	quote, err := service.GetQuoteByCall(database.GetDB(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(quote)
}
