package controller

import (
	"carquote_backend/internal/middleware"
	"carquote_backend/internal/service"
	"carquote_backend/pkg/database"

	"github.com/gofiber/fiber/v2"
)

type SelectInput struct {
	Selected *bool `json:"selected"`
}

type BulkSelectInput struct {
	ListingIDs []uint `json:"listing_ids"`
	Selected   *bool  `json:"selected"`
}

type BulkListingInput struct {
	Listings []service.ListingInput `json:"listings"`
}

func GetSessionListings(c *fiber.Ctx) error {
	var selected *bool
	if v := c.Query("selected"); v != "" {
		b := v == "true"
		selected = &b
	}

	listings, err := service.ListListings(database.GetDB(), middleware.CurrentSession(c).ID, selected)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(listings)
}

func GetSelectedListings(c *fiber.Ctx) error {
	listings, err := service.ListSelectedListings(database.GetDB(), middleware.CurrentSession(c).ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(listings)
}

// CreateListings accepts either a single listing or {"listings": [...]}.
func CreateListings(c *fiber.Ctx) error {
	sessionID := middleware.CurrentSession(c).ID

	bulk := new(BulkListingInput)
	if err := c.BodyParser(bulk); err == nil && len(bulk.Listings) > 0 {
		ids, err := service.BulkCreateListings(database.GetDB(), sessionID, bulk.Listings)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"count":       len(ids),
			"listing_ids": ids,
		})
	}

	input := new(service.ListingInput)
	if err := c.BodyParser(input); err != nil {
		return badRequest(c, "Invalid input")
	}
	listing, err := service.CreateListing(database.GetDB(), sessionID, *input)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(listing)
}

func GetListing(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "Invalid listing ID")
	}

	listing, err := service.GetListing(database.GetDB(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(listing)
}

func SelectListing(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "Invalid listing ID")
	}
	input := new(SelectInput)
	if err := c.BodyParser(input); err != nil || input.Selected == nil {
		return badRequest(c, "selected is required")
	}

	listing, err := service.SetListingSelected(database.GetDB(), id, *input.Selected)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(listing)
}

func BulkSelectListings(c *fiber.Ctx) error {
	input := new(BulkSelectInput)
	if err := c.BodyParser(input); err != nil || input.Selected == nil {
		return badRequest(c, "listing_ids and selected are required")
	}

	updated, err := service.SetListingsSelected(database.GetDB(), input.ListingIDs, *input.Selected)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"updated": updated,
	})
}

func DeleteListing(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "Invalid listing ID")
	}
	if err := service.DeleteListing(database.GetDB(), id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Listing deleted successfully",
	})
}

func GetListingCall(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "Invalid listing ID")
	}
	call, err := service.GetLatestCallForListing(database.GetDB(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(call)
}

func GetListingQuote(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "Invalid listing ID")
	}
	quote, err := service.GetQuoteByListing(database.GetDB(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(quote)
}
