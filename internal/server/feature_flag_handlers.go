package server

import (
	"github.com/gofiber/fiber/v2"

	"crewdesk/internal/models"
)

// GetFeatureFlags handles GET /api/admin/feature-flags. It returns the
// raw flag configuration plus the evaluated state for the caller.
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	actor, err := s.requireActor(c)
	if err != nil {
		return nil
	}
	if !actor.CanAdmin() {
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewPermissionError("Only admins can inspect feature flags"))
	}
	return c.JSON(fiber.Map{
		"flags":     s.featureFlags.Raw(),
		"evaluated": s.featureFlags.Snapshot(actor.ID),
	})
}
