package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/service"
	"github.com/spec-kit/helpdesk/internal/worker"
)

// AdminHandler exposes operational endpoints.
type AdminHandler struct {
	scheduler *worker.SweepScheduler
	relay     *service.OutboxRelay
	metrics   *observability.Metrics
}

// NewAdminHandler constructs handler.
func NewAdminHandler(scheduler *worker.SweepScheduler, relay *service.OutboxRelay, metrics *observability.Metrics) *AdminHandler {
	return &AdminHandler{scheduler: scheduler, relay: relay, metrics: metrics}
}

// Sweep POST /admin/sweep runs the expiry sweep now.
func (h *AdminHandler) Sweep(c *fiber.Ctx) error {
	report, ran, err := h.scheduler.RunOnce(c.UserContext())
	if err != nil {
		return err
	}
	if !ran {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": fiber.Map{
			"code":    "SWEEP_IN_PROGRESS",
			"message": "another sweep is running",
		}})
	}
	return c.JSON(fiber.Map{"data": report})
}

// Metrics GET /admin/metrics.
func (h *AdminHandler) Metrics(c *fiber.Ctx) error {
	pending, err := h.relay.Pending(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"counters":       h.metrics.Snapshot(),
		"outbox_pending": pending,
	}})
}
