package server

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"crewdesk/internal/models"
	"crewdesk/internal/service"
)

// GetMe handles GET /api/users/me.
func (s *Server) GetMe(c *fiber.Ctx) error {
	actor, err := s.requireActor(c)
	if err != nil {
		return nil
	}
	user, err := s.userService.GetUser(c.UserContext(), actor.ID)
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(user)
}

// UpdateMe handles PUT /api/users/me.
func (s *Server) UpdateMe(c *fiber.Ctx) error {
	actor, err := s.requireActor(c)
	if err != nil {
		return nil
	}

	var req struct {
		FirstName   *string    `json:"first_name"`
		LastName    *string    `json:"last_name"`
		Bio         *string    `json:"bio"`
		Location    *string    `json:"location"`
		AvatarURL   *string    `json:"avatar_url"`
		PhoneNumber *string    `json:"phone_number"`
		BirthDate   *time.Time `json:"birth_date"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.userService.UpdateAccount(c.UserContext(), service.UpdateAccountInput{
		UserID:      actor.ID,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Bio:         req.Bio,
		Location:    req.Location,
		AvatarURL:   req.AvatarURL,
		PhoneNumber: req.PhoneNumber,
		BirthDate:   req.BirthDate,
	})
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(user)
}

// ChangePassword handles POST /api/users/me/password.
func (s *Server) ChangePassword(c *fiber.Ctx) error {
	actor, err := s.requireActor(c)
	if err != nil {
		return nil
	}

	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if err := s.userService.ChangePassword(c.UserContext(), actor.ID, req.CurrentPassword, req.NewPassword); err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Password updated"})
}

// GetMyProfile handles GET /api/users/me/profile.
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	actor, err := s.requireActor(c)
	if err != nil {
		return nil
	}
	user, err := s.userService.GetUser(c.UserContext(), actor.ID)
	if err != nil {
		return models.RespondError(c, err)
	}
	if user.Profile == nil {
		return c.JSON(fiber.Map{})
	}
	return c.JSON(user.Profile)
}

// UpdateMyProfile handles PUT /api/users/me/profile.
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	actor, err := s.requireActor(c)
	if err != nil {
		return nil
	}

	var req struct {
		Website               *string `json:"website"`
		TwitterUsername       *string `json:"twitter_username"`
		GithubUsername        *string `json:"github_username"`
		LinkedinUsername      *string `json:"linkedin_username"`
		Company               *string `json:"company"`
		JobTitle              *string `json:"job_title"`
		Skills                *string `json:"skills"`
		Interests             *string `json:"interests"`
		ReceivesNotifications *bool   `json:"receives_notifications"`
		IsPublic              *bool   `json:"is_public"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.userService.UpsertProfile(c.UserContext(), service.UpsertProfileInput{
		UserID:                actor.ID,
		Website:               req.Website,
		TwitterUsername:       req.TwitterUsername,
		GithubUsername:        req.GithubUsername,
		LinkedinUsername:      req.LinkedinUsername,
		Company:               req.Company,
		JobTitle:              req.JobTitle,
		Skills:                req.Skills,
		Interests:             req.Interests,
		ReceivesNotifications: req.ReceivesNotifications,
		IsPublic:              req.IsPublic,
	})
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(user)
}

// ListUsers handles GET /api/users (staff only).
func (s *Server) ListUsers(c *fiber.Ctx) error {
	actor, err := s.requireActor(c)
	if err != nil {
		return nil
	}
	p := parsePagination(c, 20)

	users, total, err := s.userService.ListUsers(c.UserContext(), actor, p.Limit, p.Offset)
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(fiber.Map{
		"users":  users,
		"total":  total,
		"limit":  p.Limit,
		"offset": p.Offset,
	})
}

// GetUser handles GET /api/users/:id.
func (s *Server) GetUser(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	user, err := s.userService.GetUser(c.UserContext(), id)
	if err != nil {
		return models.RespondError(c, err)
	}
	// Non-staff callers only see public profiles.
	if user.Profile != nil && !user.Profile.IsPublic && !s.actor(c).CanModerate() {
		user.Profile = nil
	}
	return c.JSON(user)
}

// GetUserPosts handles GET /api/users/:id/posts. Visibility narrows the
// result: only the author and staff see unpublished posts here.
func (s *Server) GetUserPosts(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	p := parsePagination(c, 20)

	posts, total, err := s.postService.ListPosts(c.UserContext(), s.actor(c), service.ListPostsInput{
		AuthorID: id,
		Sort:     c.Query("sort"),
		Limit:    p.Limit,
		Offset:   p.Offset,
	})
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(fiber.Map{
		"posts":  posts,
		"total":  total,
		"limit":  p.Limit,
		"offset": p.Offset,
	})
}

// PromoteUser handles POST /api/users/:id/promote (admin only).
func (s *Server) PromoteUser(c *fiber.Ctx) error {
	actor, err := s.requireActor(c)
	if err != nil {
		return nil
	}
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	user, err := s.userService.Promote(c.UserContext(), actor, id)
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(user)
}

// DemoteUser handles POST /api/users/:id/demote (admin only).
func (s *Server) DemoteUser(c *fiber.Ctx) error {
	actor, err := s.requireActor(c)
	if err != nil {
		return nil
	}
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	user, err := s.userService.Demote(c.UserContext(), actor, id)
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(user)
}

// DeactivateUser handles DELETE /api/users/:id (admin only).
func (s *Server) DeactivateUser(c *fiber.Ctx) error {
	actor, err := s.requireActor(c)
	if err != nil {
		return nil
	}
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.userService.Deactivate(c.UserContext(), actor, id); err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "User deactivated"})
}
