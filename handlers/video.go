package handlers

import (
	"github.com/gofiber/fiber/v2"

	"clipflow/middleware"
	"clipflow/services/catalog"
)

type VideoHandler struct {
	catalog catalog.Service
}

func NewVideoHandler(catalogService catalog.Service) *VideoHandler {
	return &VideoHandler{catalog: catalogService}
}

// Fetch refreshes the user's video catalog from their source channels.
func (h *VideoHandler) Fetch(c *fiber.Ctx) error {
	results, err := h.catalog.RefreshUser(c.Context(), middleware.UserID(c))
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    results,
	})
}
