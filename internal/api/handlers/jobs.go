/**
 * @description
 * Internal job trigger handlers.
 * Lets the external scheduler kick the ingestion pipeline and the alert batch
 * over HTTP, guarded by a shared secret header.
 *
 * @dependencies
 * - github.com/gofiber/fiber/v2
 * - backend/internal/services
 */

package handlers

import (
	"crypto/subtle"

	"github.com/fuelwatch-project/backend/internal/logger"
	"github.com/fuelwatch-project/backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

// JobsHandler handles scheduled job triggers
type JobsHandler struct {
	sync   *services.SyncService
	alerts *services.AlertService
	secret string
}

// NewJobsHandler creates a new JobsHandler
func NewJobsHandler(sync *services.SyncService, alerts *services.AlertService, secret string) *JobsHandler {
	return &JobsHandler{
		sync:   sync,
		alerts: alerts,
		secret: secret,
	}
}

// RunSync triggers one ingestion run.
// POST /api/v1/internal/jobs/sync
func (h *JobsHandler) RunSync(c *fiber.Ctx) error {
	if !h.authorized(c) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	result, err := h.sync.RunSync(c.Context())
	if err != nil {
		logger.Error("JobsHandler: sync run failed: %v", err)
		return c.Status(fiber.StatusBadGateway).JSON(result)
	}
	return c.JSON(result)
}

// RunAlerts triggers one alert evaluation batch.
// POST /api/v1/internal/jobs/alerts
func (h *JobsHandler) RunAlerts(c *fiber.Ctx) error {
	if !h.authorized(c) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	summary, err := h.alerts.EvaluateAll(c.Context())
	if err != nil {
		logger.Error("JobsHandler: alert run failed: %v", err)
		return c.Status(fiber.StatusBadGateway).JSON(summary)
	}
	return c.JSON(summary)
}

func (h *JobsHandler) authorized(c *fiber.Ctx) bool {
	if h.secret == "" {
		return false
	}
	provided := c.Get("X-Job-Secret")
	return subtle.ConstantTimeCompare([]byte(provided), []byte(h.secret)) == 1
}
