package controller

import (
	"carquote_backend/internal/middleware"
	"carquote_backend/internal/service"
	"carquote_backend/pkg/database"

	"github.com/gofiber/fiber/v2"
)

var workflow *service.Workflow

// InitWorkflowController installs the inventory and voice collaborators.
// The workflow's DB is taken from the database package on each request.
func InitWorkflowController(w *service.Workflow) {
	workflow = w
}

type SubmitCallsInput struct {
	ListingIDs []uint `json:"listing_ids"`
}

func currentWorkflow() *service.Workflow {
	w := *workflow
	w.DB = database.GetDB()
	return &w
}

func FetchDealers(c *fiber.Ctx) error {
	res, err := currentWorkflow().FetchDealers(c.UserContext(), middleware.CurrentSession(c).ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}

func SubmitCalls(c *fiber.Ctx) error {
	input := new(SubmitCallsInput)
	if len(c.Body()) > 0 {
		if err := c.BodyParser(input); err != nil {
			return badRequest(c, "Invalid input")
		}
	}

	calls, err := currentWorkflow().SubmitCalls(c.UserContext(), middleware.CurrentSession(c).ID, input.ListingIDs)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"count": len(calls),
		"calls": calls,
	})
}

func GetCallStatus(c *fiber.Ctx) error {
	views, err := currentWorkflow().CallStatuses(c.UserContext(), middleware.CurrentSession(c).ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(views)
}
