package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/studyaid/lecture-jobs/database"
	"github.com/studyaid/lecture-jobs/utils/response"
)

// HandleCheckHealth is the liveness probe
func HandleCheckHealth(c *fiber.Ctx, store database.Storage) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// HandleCheckReadiness verifies the database is reachable and reports the
// current job queue depth
func HandleCheckReadiness(c *fiber.Ctx, store database.Storage) error {
	if err := store.HealthCheck(); err != nil {
		return response.ServiceUnavailable(c, "Database is not reachable")
	}

	pending, err := store.PendingJobCount()
	if err != nil {
		return response.ServiceUnavailable(c, "Failed to read job queue depth")
	}

	return response.Success(c, fiber.Map{
		"status":       "ready",
		"pending_jobs": pending,
	})
}
