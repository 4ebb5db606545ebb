package server

import (
	"github.com/gofiber/fiber/v2"

	"crewdesk/internal/models"
	"crewdesk/internal/service"
)

// ListCategories handles GET /api/categories. Staff may pass
// ?include_inactive=true to see deactivated categories too.
func (s *Server) ListCategories(c *fiber.Ctx) error {
	categories, err := s.categoryService.ListCategories(c.UserContext(), s.actor(c), c.QueryBool("include_inactive"))
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(fiber.Map{"categories": categories})
}

// CreateCategory handles POST /api/categories (staff only).
func (s *Server) CreateCategory(c *fiber.Ctx) error {
	actor, err := s.requireActor(c)
	if err != nil {
		return nil
	}

	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Color       string `json:"color"`
		Icon        string `json:"icon"`
		Order       int    `json:"order"`
		ParentID    *uint  `json:"parent_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	category, err := s.categoryService.CreateCategory(c.UserContext(), actor, service.CreateCategoryInput{
		Name:        req.Name,
		Description: req.Description,
		Color:       req.Color,
		Icon:        req.Icon,
		Order:       req.Order,
		ParentID:    req.ParentID,
	})
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(category)
}

// CategoryTree handles GET /api/categories/tree.
func (s *Server) CategoryTree(c *fiber.Ctx) error {
	tree, err := s.categoryService.CategoryTree(c.UserContext())
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(fiber.Map{"categories": tree})
}

// GetCategory handles GET /api/categories/:slug.
func (s *Server) GetCategory(c *fiber.Ctx) error {
	category, err := s.categoryService.GetCategory(c.UserContext(), c.Params("slug"))
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(category)
}

// UpdateCategory handles PUT /api/categories/:slug (staff only).
func (s *Server) UpdateCategory(c *fiber.Ctx) error {
	actor, err := s.requireActor(c)
	if err != nil {
		return nil
	}

	var req struct {
		Description *string `json:"description"`
		Color       *string `json:"color"`
		Icon        *string `json:"icon"`
		Order       *int    `json:"order"`
		ParentID    *uint   `json:"parent_id"`
		IsActive    *bool   `json:"is_active"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	category, err := s.categoryService.UpdateCategory(c.UserContext(), actor, c.Params("slug"), service.UpdateCategoryInput{
		Description: req.Description,
		Color:       req.Color,
		Icon:        req.Icon,
		Order:       req.Order,
		ParentID:    req.ParentID,
		IsActive:    req.IsActive,
	})
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(category)
}

// DeleteCategory handles DELETE /api/categories/:slug. The category is
// deactivated, not removed, so existing posts keep their association.
func (s *Server) DeleteCategory(c *fiber.Ctx) error {
	actor, err := s.requireActor(c)
	if err != nil {
		return nil
	}
	if err := s.categoryService.DeleteCategory(c.UserContext(), actor, c.Params("slug")); err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Category deactivated"})
}

// CategoryStats handles GET /api/categories/:slug/stats (staff only).
func (s *Server) CategoryStats(c *fiber.Ctx) error {
	actor, err := s.requireActor(c)
	if err != nil {
		return nil
	}
	stats, err := s.categoryService.CategoryStats(c.UserContext(), actor, c.Params("slug"))
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(stats)
}

// ListTags handles GET /api/tags.
func (s *Server) ListTags(c *fiber.Ctx) error {
	tags, err := s.tagService.ListTags(c.UserContext())
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(fiber.Map{"tags": tags})
}

// GetTag handles GET /api/tags/:slug.
func (s *Server) GetTag(c *fiber.Ctx) error {
	tag, err := s.tagService.GetTag(c.UserContext(), c.Params("slug"))
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(tag)
}

// CreateTag handles POST /api/tags. Any authenticated user may create a
// tag; duplicates resolve to the existing row.
func (s *Server) CreateTag(c *fiber.Ctx) error {
	if _, err := s.requireActor(c); err != nil {
		return nil
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	tag, err := s.tagService.CreateTag(c.UserContext(), req.Name)
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(tag)
}
