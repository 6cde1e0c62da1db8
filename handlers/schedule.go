package handlers

import (
	"github.com/gofiber/fiber/v2"

	"clipflow/errors"
	"clipflow/middleware"
	"clipflow/services/pipeline"
	"clipflow/services/schedule"
)

type ScheduleHandler struct {
	schedules schedule.Service
	pipeline  pipeline.Service
}

func NewScheduleHandler(schedules schedule.Service, pipelineService pipeline.Service) *ScheduleHandler {
	return &ScheduleHandler{
		schedules: schedules,
		pipeline:  pipelineService,
	}
}

// Generate fills the upcoming horizon with randomized daily selections.
func (h *ScheduleHandler) Generate(c *fiber.Ctx) error {
	result, err := h.schedules.Generate(c.Context(), middleware.UserID(c))
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success":         true,
		"daysScheduled":   result.DaysScheduled,
		"videosScheduled": result.VideosScheduled,
		"dates":           result.Dates,
	})
}

// Today returns the current date's entries with video details.
func (h *ScheduleHandler) Today(c *fiber.Ctx) error {
	entries, err := h.schedules.Today(c.Context(), middleware.UserID(c))
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    entries,
	})
}

type processRequest struct {
	Date string `json:"date"`
}

// Process runs the transcript and rewrite pipeline over one date.
func (h *ScheduleHandler) Process(c *fiber.Ctx) error {
	const op = "ScheduleHandler.Process"

	var req processRequest
	if err := c.BodyParser(&req); err != nil {
		return errors.InvalidInput(op, err, "Invalid request body")
	}
	if req.Date == "" {
		return errors.InvalidInput(op, nil, "Date is required")
	}

	result, err := h.pipeline.ProcessDay(c.Context(), middleware.UserID(c), req.Date)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    result,
	})
}
