package handlers

import (
	"github.com/gofiber/fiber/v2"

	"clipflow/errors"
	"clipflow/middleware"
	"clipflow/models"
	"clipflow/repository"
)

// sharedSettingKeys are the installation-wide settings the API exposes.
var sharedSettingKeys = []string{
	"youtube_api_key",
	"deepseek_api_key",
	"telegram_bot_token",
	"telegram_chat_id",
}

type SettingsHandler struct {
	users    repository.UserRepository
	settings repository.SettingsRepository
}

func NewSettingsHandler(users repository.UserRepository, settings repository.SettingsRepository) *SettingsHandler {
	return &SettingsHandler{
		users:    users,
		settings: settings,
	}
}

func (h *SettingsHandler) Get(c *fiber.Ctx) error {
	const op = "SettingsHandler.Get"
	userID := middleware.UserID(c)

	settings, err := h.users.Settings(c.Context(), userID)
	if err != nil && !errors.IsNotFound(err) {
		return errors.Internal(op, err, "Failed to load settings")
	}
	if settings == nil {
		settings = &models.UserSettings{UserID: userID}
	}

	shared := make(map[string]string, len(sharedSettingKeys))
	for _, key := range sharedSettingKeys {
		value, err := h.settings.SharedSetting(c.Context(), key)
		if err != nil {
			continue
		}
		shared[key] = value
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"settings": settings,
			"shared":   shared,
		},
	})
}

type updateSettingsRequest struct {
	VideosPerDay   *int              `json:"videos_per_day"`
	PromptTemplate *string           `json:"prompt_template"`
	Shared         map[string]string `json:"shared"`
}

func (h *SettingsHandler) Update(c *fiber.Ctx) error {
	const op = "SettingsHandler.Update"
	userID := middleware.UserID(c)

	var req updateSettingsRequest
	if err := c.BodyParser(&req); err != nil {
		return errors.InvalidInput(op, err, "Invalid request body")
	}

	settings, err := h.users.Settings(c.Context(), userID)
	if err != nil && !errors.IsNotFound(err) {
		return errors.Internal(op, err, "Failed to load settings")
	}
	if settings == nil {
		settings = &models.UserSettings{UserID: userID}
	}

	if req.VideosPerDay != nil {
		if *req.VideosPerDay <= 0 {
			return errors.InvalidInput(op, nil, "videos_per_day must be positive")
		}
		settings.VideosPerDay = *req.VideosPerDay
	}
	if req.PromptTemplate != nil {
		settings.PromptTemplate = *req.PromptTemplate
	}

	if err := h.users.SaveSettings(c.Context(), settings); err != nil {
		return errors.Internal(op, err, "Failed to save settings")
	}

	for key, value := range req.Shared {
		if !isSharedKey(key) {
			return errors.InvalidInput(op, nil, "Unknown shared setting: "+key)
		}
		if err := h.settings.SetSharedSetting(c.Context(), key, value); err != nil {
			return errors.Internal(op, err, "Failed to save shared setting")
		}
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    settings,
	})
}

func isSharedKey(key string) bool {
	for _, k := range sharedSettingKeys {
		if k == key {
			return true
		}
	}
	return false
}
