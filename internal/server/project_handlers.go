package server

import (
	"github.com/gofiber/fiber/v2"

	"crewdesk/internal/models"
	"crewdesk/internal/notifications"
	"crewdesk/internal/service"
)

// ListProjects handles GET /api/projects. Admins see every project,
// everyone else only projects they created or belong to.
func (s *Server) ListProjects(c *fiber.Ctx) error {
	actor, err := s.requireActor(c)
	if err != nil {
		return nil
	}
	p := parsePagination(c, 20)

	projects, total, err := s.projectService.ListProjects(c.UserContext(), actor, p.Limit, p.Offset)
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(fiber.Map{
		"projects": projects,
		"total":    total,
		"limit":    p.Limit,
		"offset":   p.Offset,
	})
}

// CreateProject handles POST /api/projects (staff only).
func (s *Server) CreateProject(c *fiber.Ctx) error {
	actor, err := s.requireActor(c)
	if err != nil {
		return nil
	}

	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		MemberIDs   []uint `json:"member_ids"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	project, err := s.projectService.CreateProject(c.UserContext(), actor, service.CreateProjectInput{
		Name:        req.Name,
		Description: req.Description,
		MemberIDs:   req.MemberIDs,
	})
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(project)
}

// GetProject handles GET /api/projects/:id.
func (s *Server) GetProject(c *fiber.Ctx) error {
	actor, err := s.requireActor(c)
	if err != nil {
		return nil
	}
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	project, err := s.projectService.GetProject(c.UserContext(), actor, id)
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(project)
}

// UpdateProject handles PUT /api/projects/:id (staff only).
func (s *Server) UpdateProject(c *fiber.Ctx) error {
	actor, err := s.requireActor(c)
	if err != nil {
		return nil
	}
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
		IsActive    *bool   `json:"is_active"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	project, err := s.projectService.UpdateProject(c.UserContext(), actor, id, service.UpdateProjectInput{
		Name:        req.Name,
		Description: req.Description,
		IsActive:    req.IsActive,
	})
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(project)
}

// DeleteProject handles DELETE /api/projects/:id (staff only).
func (s *Server) DeleteProject(c *fiber.Ctx) error {
	actor, err := s.requireActor(c)
	if err != nil {
		return nil
	}
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.projectService.DeleteProject(c.UserContext(), actor, id); err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Project deleted"})
}

// AddProjectMember handles POST /api/projects/:id/members (staff only).
func (s *Server) AddProjectMember(c *fiber.Ctx) error {
	actor, err := s.requireActor(c)
	if err != nil {
		return nil
	}
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		UserID uint `json:"user_id"`
	}
	if err := c.BodyParser(&req); err != nil || req.UserID == 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("user_id is required"))
	}

	project, err := s.projectService.AddMember(c.UserContext(), actor, id, req.UserID)
	if err != nil {
		return models.RespondError(c, err)
	}
	s.notify(c, req.UserID, notifications.Event{
		Kind:      notifications.EventProjectMemberAdded,
		ActorID:   actor.ID,
		SubjectID: project.ID,
		Message:   "You were added to the project " + project.Name,
	})
	return c.JSON(project)
}

// RemoveProjectMember handles DELETE /api/projects/:id/members/:userId.
func (s *Server) RemoveProjectMember(c *fiber.Ctx) error {
	actor, err := s.requireActor(c)
	if err != nil {
		return nil
	}
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	userID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}
	project, err := s.projectService.RemoveMember(c.UserContext(), actor, id, userID)
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(project)
}
