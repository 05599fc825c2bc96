package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/storefront-checkout/internal/config"
)

// Locals keys set by Auth.
const (
	LocalUserID = "user_id"
	LocalRole   = "role"
)

// RoleAdmin is the role claim required by RequireAdmin.
const RoleAdmin = "admin"

// Claims is the access token payload. The subject is the user id.
type Claims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Auth verifies an HS256 access token taken from the configured cookie or,
// failing that, an "Authorization: Bearer" header.
func Auth(cfg config.AuthConfig) fiber.Handler {
	secret := []byte(cfg.JWTSecret)
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	keyFunc := func(*jwt.Token) (any, error) { return secret, nil }

	return func(c *fiber.Ctx) error {
		raw := tokenFromRequest(c, cfg.CookieName)
		if raw == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "authentication required"})
		}

		claims := &Claims{}
		if _, err := parser.ParseWithClaims(raw, claims, keyFunc); err != nil {
			log.Debug().Err(err).Str("path", c.Path()).Msg("rejected access token")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid or expired token"})
		}
		if claims.Subject == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid or expired token"})
		}

		c.Locals(LocalUserID, claims.Subject)
		c.Locals(LocalRole, claims.Role)
		return c.Next()
	}
}

// RequireAdmin must run after Auth.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if Role(c) != RoleAdmin {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "admin access required"})
		}
		return c.Next()
	}
}

// UserID returns the authenticated user id, or "" outside Auth.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(LocalUserID).(string)
	return id
}

// Role returns the authenticated role, or "" outside Auth.
func Role(c *fiber.Ctx) string {
	role, _ := c.Locals(LocalRole).(string)
	return role
}

func tokenFromRequest(c *fiber.Ctx, cookieName string) string {
	if cookieName != "" {
		if v := c.Cookies(cookieName); v != "" {
			return v
		}
	}
	header := c.Get(fiber.HeaderAuthorization)
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
