package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"clipflow/errors"
)

// UserIDKey is the locals key the auth middleware stores the authenticated
// user id under.
const UserIDKey = "user_id"

// JWTAuth validates the bearer token and stores the subject in locals.
func JWTAuth(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		const op = "middleware.JWTAuth"

		header := c.Get("Authorization")
		if header == "" {
			return errors.Unauthorized(op, nil, "Authorization header is required")
		}

		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			return errors.Unauthorized(op, nil, "Authorization header must be a bearer token")
		}

		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			return errors.Unauthorized(op, err, "Invalid or expired token")
		}

		subject, err := token.Claims.GetSubject()
		if err != nil || subject == "" {
			return errors.Unauthorized(op, err, "Invalid token claims")
		}

		c.Locals(UserIDKey, subject)
		return c.Next()
	}
}

// UserID returns the authenticated user id stored by JWTAuth.
func UserID(c *fiber.Ctx) string {
	if id, ok := c.Locals(UserIDKey).(string); ok {
		return id
	}
	return ""
}
