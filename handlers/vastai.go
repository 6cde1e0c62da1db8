package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"clipflow/clients/vastai"
	"clipflow/errors"
)

// GPURenter is the slice of the VastAI API the dashboard proxies.
type GPURenter interface {
	RentInstance(ctx context.Context, gpuName string) (*vastai.Instance, error)
	InstanceStatus(ctx context.Context, instanceID int) (*vastai.Instance, error)
	ExecuteCommand(ctx context.Context, instanceID int, command string) (*vastai.ExecResult, error)
	UploadScript(ctx context.Context, instanceID int, name, content string) error
	RequestLogs(ctx context.Context, instanceID int) (string, error)
	StopInstance(ctx context.Context, instanceID int) error
}

type VastAIHandler struct {
	client GPURenter
}

func NewVastAIHandler(client GPURenter) *VastAIHandler {
	return &VastAIHandler{client: client}
}

type rentRequest struct {
	GPUName string `json:"gpu_name"`
}

func (h *VastAIHandler) Rent(c *fiber.Ctx) error {
	const op = "VastAIHandler.Rent"

	var req rentRequest
	if err := c.BodyParser(&req); err != nil {
		return errors.InvalidInput(op, err, "Invalid request body")
	}
	if req.GPUName == "" {
		req.GPUName = "RTX 4090"
	}

	instance, err := h.client.RentInstance(c.Context(), req.GPUName)
	if err != nil {
		return errors.Internal(op, err, "Failed to rent instance")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    instance,
	})
}

type instanceRequest struct {
	InstanceID int    `json:"instance_id"`
	Command    string `json:"command,omitempty"`
}

func (h *VastAIHandler) Status(c *fiber.Ctx) error {
	const op = "VastAIHandler.Status"

	var req instanceRequest
	if err := c.BodyParser(&req); err != nil {
		return errors.InvalidInput(op, err, "Invalid request body")
	}
	if req.InstanceID == 0 {
		return errors.InvalidInput(op, nil, "instance_id is required")
	}

	instance, err := h.client.InstanceStatus(c.Context(), req.InstanceID)
	if err != nil {
		return errors.Internal(op, err, "Failed to get instance status")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    instance,
	})
}

func (h *VastAIHandler) Execute(c *fiber.Ctx) error {
	const op = "VastAIHandler.Execute"

	var req instanceRequest
	if err := c.BodyParser(&req); err != nil {
		return errors.InvalidInput(op, err, "Invalid request body")
	}
	if req.InstanceID == 0 {
		return errors.InvalidInput(op, nil, "instance_id is required")
	}
	if req.Command == "" {
		return errors.InvalidInput(op, nil, "command is required")
	}

	result, err := h.client.ExecuteCommand(c.Context(), req.InstanceID, req.Command)
	if err != nil {
		return errors.Internal(op, err, "Failed to execute command")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    result,
	})
}

type uploadScriptRequest struct {
	InstanceID int    `json:"instance_id"`
	Name       string `json:"name"`
	Content    string `json:"content"`
}

func (h *VastAIHandler) UploadScript(c *fiber.Ctx) error {
	const op = "VastAIHandler.UploadScript"

	var req uploadScriptRequest
	if err := c.BodyParser(&req); err != nil {
		return errors.InvalidInput(op, err, "Invalid request body")
	}
	if req.InstanceID == 0 {
		return errors.InvalidInput(op, nil, "instance_id is required")
	}
	if req.Name == "" {
		return errors.InvalidInput(op, nil, "name is required")
	}
	if req.Content == "" {
		return errors.InvalidInput(op, nil, "content is required")
	}

	if err := h.client.UploadScript(c.Context(), req.InstanceID, req.Name, req.Content); err != nil {
		return errors.Internal(op, err, "Failed to upload script")
	}

	return c.JSON(fiber.Map{"success": true})
}

func (h *VastAIHandler) Logs(c *fiber.Ctx) error {
	const op = "VastAIHandler.Logs"

	var req instanceRequest
	if err := c.BodyParser(&req); err != nil {
		return errors.InvalidInput(op, err, "Invalid request body")
	}
	if req.InstanceID == 0 {
		return errors.InvalidInput(op, nil, "instance_id is required")
	}

	logs, err := h.client.RequestLogs(c.Context(), req.InstanceID)
	if err != nil {
		return errors.Internal(op, err, "Failed to fetch instance logs")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    fiber.Map{"logs": logs},
	})
}

func (h *VastAIHandler) Stop(c *fiber.Ctx) error {
	const op = "VastAIHandler.Stop"

	var req instanceRequest
	if err := c.BodyParser(&req); err != nil {
		return errors.InvalidInput(op, err, "Invalid request body")
	}
	if req.InstanceID == 0 {
		return errors.InvalidInput(op, nil, "instance_id is required")
	}

	if err := h.client.StopInstance(c.Context(), req.InstanceID); err != nil {
		return errors.Internal(op, err, "Failed to stop instance")
	}

	return c.JSON(fiber.Map{"success": true})
}
