package server

import (
	"github.com/gofiber/fiber/v2"

	"crewdesk/internal/models"
	"crewdesk/internal/notifications"
	"crewdesk/internal/service"
)

// ListComments handles GET /api/posts/:slug/comments. Staff also see
// comments awaiting approval.
func (s *Server) ListComments(c *fiber.Ctx) error {
	comments, err := s.commentService.ListComments(c.UserContext(), s.actor(c), c.Params("slug"))
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(fiber.Map{"comments": comments})
}

// CreateComment handles POST /api/posts/:slug/comments.
func (s *Server) CreateComment(c *fiber.Ctx) error {
	actor, err := s.requireActor(c)
	if err != nil {
		return nil
	}

	var req struct {
		Content  string `json:"content"`
		ParentID *uint  `json:"parent_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	comment, err := s.commentService.CreateComment(c.UserContext(), actor, service.CreateCommentInput{
		PostSlug: c.Params("slug"),
		Content:  req.Content,
		ParentID: req.ParentID,
	})
	if err != nil {
		return models.RespondError(c, err)
	}
	// Moderation dashboards listen on the broadcast channel.
	if s.notifier != nil {
		_ = s.notifier.Broadcast(c.UserContext(), notifications.Event{
			Kind:      notifications.EventCommentCreated,
			ActorID:   actor.ID,
			SubjectID: comment.ID,
			Message:   "New comment on " + c.Params("slug"),
		})
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}

// ListReplies handles GET /api/comments/:id/replies.
func (s *Server) ListReplies(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	replies, err := s.commentService.ListReplies(c.UserContext(), s.actor(c), id)
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(fiber.Map{"comments": replies})
}

// UpdateComment handles PUT /api/comments/:id.
func (s *Server) UpdateComment(c *fiber.Ctx) error {
	actor, err := s.requireActor(c)
	if err != nil {
		return nil
	}
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	comment, err := s.commentService.UpdateComment(c.UserContext(), actor, id, req.Content)
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(comment)
}

// DeleteComment handles DELETE /api/comments/:id.
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	actor, err := s.requireActor(c)
	if err != nil {
		return nil
	}
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.commentService.DeleteComment(c.UserContext(), actor, id); err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Comment deleted"})
}

// ApproveComment handles POST /api/comments/:id/approve (staff only).
func (s *Server) ApproveComment(c *fiber.Ctx) error {
	return s.setCommentApproval(c, true)
}

// RejectComment handles POST /api/comments/:id/reject (staff only).
func (s *Server) RejectComment(c *fiber.Ctx) error {
	return s.setCommentApproval(c, false)
}

func (s *Server) setCommentApproval(c *fiber.Ctx, approved bool) error {
	actor, err := s.requireActor(c)
	if err != nil {
		return nil
	}
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	comment, err := s.commentService.SetApproval(c.UserContext(), actor, id, approved)
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(comment)
}

// ListPendingComments handles GET /api/comments/pending (staff only).
func (s *Server) ListPendingComments(c *fiber.Ctx) error {
	actor, err := s.requireActor(c)
	if err != nil {
		return nil
	}
	p := parsePagination(c, 20)

	comments, total, err := s.commentService.ListPending(c.UserContext(), actor, p.Limit, p.Offset)
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(fiber.Map{
		"comments": comments,
		"total":    total,
		"limit":    p.Limit,
		"offset":   p.Offset,
	})
}
