package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

const defaultPingTimeout = 2 * time.Second

// Pinger is an interface for health check ping operations.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports liveness and database readiness.
type HealthHandler struct {
	db          Pinger
	pingTimeout time.Duration
}

// NewHealthHandler creates a new HealthHandler with the given database pool.
func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db, pingTimeout: defaultPingTimeout}
}

// Live handles GET /health/live. It never touches dependencies.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "alive"})
}

// Check handles GET /health: 200 when the database answers a ping in time, 503 otherwise.
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), h.pingTimeout)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		log.Error().Err(err).Msg("health check failed: database unreachable")
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "unhealthy",
			"checks": fiber.Map{"database": "down"},
			"error":  "database connection failed",
		})
	}
	return c.JSON(fiber.Map{
		"status": "healthy",
		"checks": fiber.Map{"database": "up"},
	})
}
