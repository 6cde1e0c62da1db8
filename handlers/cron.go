package handlers

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"

	"clipflow/errors"
	"clipflow/services/catalog"
)

type CronHandler struct {
	catalog catalog.Service
	secret  string
}

func NewCronHandler(catalogService catalog.Service, secret string) *CronHandler {
	return &CronHandler{
		catalog: catalogService,
		secret:  secret,
	}
}

// DailyFetch refreshes every user's catalog. Called by the external cron.
func (h *CronHandler) DailyFetch(c *fiber.Ctx) error {
	const op = "CronHandler.DailyFetch"

	if h.secret == "" {
		return errors.Unauthorized(op, nil, "Cron endpoint is disabled")
	}

	token, ok := strings.CutPrefix(c.Get("Authorization"), "Bearer ")
	if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(h.secret)) != 1 {
		return errors.Unauthorized(op, nil, "Invalid cron secret")
	}

	results, err := h.catalog.RefreshAllUsers(c.Context())
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    results,
	})
}
