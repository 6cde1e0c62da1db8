package handlers

import (
	"github.com/gofiber/fiber/v2"

	"clipflow/errors"
	"clipflow/middleware"
	"clipflow/models"
	"clipflow/repository"
	"clipflow/validation"
)

type ChannelsHandler struct {
	users     repository.UserRepository
	validator *validation.Validator
}

func NewChannelsHandler(users repository.UserRepository, validator *validation.Validator) *ChannelsHandler {
	return &ChannelsHandler{
		users:     users,
		validator: validator,
	}
}

func (h *ChannelsHandler) List(c *fiber.Ctx) error {
	const op = "ChannelsHandler.List"

	channels, err := h.users.UserChannels(c.Context(), middleware.UserID(c))
	if err != nil {
		return errors.Internal(op, err, "Failed to load channels")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    channels,
	})
}

type channelRequest struct {
	ChannelURL         *string `json:"channel_url"`
	MinDurationSeconds *int    `json:"min_duration_seconds"`
	ReferenceAudioURL  *string `json:"reference_audio_url"`
}

func (h *ChannelsHandler) Create(c *fiber.Ctx) error {
	const op = "ChannelsHandler.Create"

	var req channelRequest
	if err := c.BodyParser(&req); err != nil {
		return errors.InvalidInput(op, err, "Invalid request body")
	}
	if req.ChannelURL == nil {
		return errors.InvalidInput(op, nil, "Channel URL is required")
	}
	if err := h.validator.ValidateChannelURL(*req.ChannelURL); err != nil {
		return err
	}
	if req.MinDurationSeconds != nil && *req.MinDurationSeconds < 0 {
		return errors.InvalidInput(op, nil, "min_duration_seconds must not be negative")
	}

	channel := &models.SourceChannel{
		UserID:     middleware.UserID(c),
		ChannelURL: *req.ChannelURL,
	}
	if req.MinDurationSeconds != nil {
		channel.MinDurationSeconds = *req.MinDurationSeconds
	}
	if req.ReferenceAudioURL != nil {
		channel.ReferenceAudioURL = *req.ReferenceAudioURL
	}

	if err := h.users.SaveChannel(c.Context(), channel); err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    channel,
	})
}

func (h *ChannelsHandler) Update(c *fiber.Ctx) error {
	const op = "ChannelsHandler.Update"
	userID := middleware.UserID(c)

	channelID := c.Params("id")
	if channelID == "" {
		return errors.InvalidInput(op, nil, "Channel ID is required")
	}

	var req channelRequest
	if err := c.BodyParser(&req); err != nil {
		return errors.InvalidInput(op, err, "Invalid request body")
	}

	channel, err := h.findChannel(c, userID, channelID)
	if err != nil {
		return err
	}

	if req.ChannelURL != nil {
		if err := h.validator.ValidateChannelURL(*req.ChannelURL); err != nil {
			return err
		}
		channel.ChannelURL = *req.ChannelURL
	}
	if req.MinDurationSeconds != nil {
		if *req.MinDurationSeconds < 0 {
			return errors.InvalidInput(op, nil, "min_duration_seconds must not be negative")
		}
		channel.MinDurationSeconds = *req.MinDurationSeconds
	}
	if req.ReferenceAudioURL != nil {
		channel.ReferenceAudioURL = *req.ReferenceAudioURL
	}

	if err := h.users.SaveChannel(c.Context(), channel); err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    channel,
	})
}

func (h *ChannelsHandler) Delete(c *fiber.Ctx) error {
	const op = "ChannelsHandler.Delete"

	channelID := c.Params("id")
	if channelID == "" {
		return errors.InvalidInput(op, nil, "Channel ID is required")
	}

	if err := h.users.DeleteChannel(c.Context(), middleware.UserID(c), channelID); err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true})
}

func (h *ChannelsHandler) findChannel(c *fiber.Ctx, userID, channelID string) (*models.SourceChannel, error) {
	const op = "ChannelsHandler.findChannel"

	channels, err := h.users.UserChannels(c.Context(), userID)
	if err != nil {
		return nil, errors.Internal(op, err, "Failed to load channels")
	}
	for i := range channels {
		if channels[i].ID == channelID {
			return &channels[i], nil
		}
	}
	return nil, errors.NotFound(op, nil, "Channel not found")
}
