package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"clipflow/config"
	"clipflow/errors"
	"clipflow/models"
	"clipflow/repository"
	"clipflow/validation"
)

type AuthHandler struct {
	users     repository.UserRepository
	validator *validation.Validator
	config    config.AuthConfig
}

func NewAuthHandler(users repository.UserRepository, validator *validation.Validator, cfg config.AuthConfig) *AuthHandler {
	return &AuthHandler{
		users:     users,
		validator: validator,
		config:    cfg,
	}
}

// Login exchanges a username and PIN for a signed token.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	const op = "AuthHandler.Login"

	var req models.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return errors.InvalidInput(op, err, "Invalid request body")
	}
	if req.Username == "" {
		return errors.InvalidInput(op, nil, "Username is required")
	}
	if err := h.validator.ValidatePin(req.Pin); err != nil {
		return err
	}

	user, err := h.users.FindByUsername(c.Context(), req.Username)
	if err != nil {
		// Same message for unknown user and wrong PIN.
		return errors.Unauthorized(op, err, "Invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PinHash), []byte(req.Pin)); err != nil {
		return errors.Unauthorized(op, err, "Invalid credentials")
	}

	token, err := h.signToken(user)
	if err != nil {
		return errors.Internal(op, err, "Failed to sign token")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": models.LoginResponse{
			Token: token,
			User:  user,
		},
	})
}

func (h *AuthHandler) signToken(user *models.User) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   user.ID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(h.config.TokenTTL)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.config.JWTSecret))
}
