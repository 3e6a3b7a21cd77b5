package controllers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthController answers liveness and readiness checks.
type HealthController struct {
	db Pinger
}

// NewHealthController takes the database to check for readiness. A nil db
// is always ready.
func NewHealthController(db Pinger) *HealthController {
	return &HealthController{db: db}
}

// Health reports that the process is up
func (hc *HealthController) Health(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
}

// Ready reports whether the database answers a ping
func (hc *HealthController) Ready(c *fiber.Ctx) error {
	if hc.db != nil {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := hc.db.Ping(ctx); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
		}
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ready"})
}
