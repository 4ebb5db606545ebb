package server

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"crewdesk/internal/featureflags"
	"crewdesk/internal/models"
	"crewdesk/internal/service"
)

// ListPosts handles GET /api/posts. Anonymous callers only see published
// posts; authors additionally see their own drafts, staff see everything.
func (s *Server) ListPosts(c *fiber.Ctx) error {
	p := parsePagination(c, 20)

	in := service.ListPostsInput{
		CategorySlug: c.Query("category"),
		TagSlug:      c.Query("tag"),
		Status:       models.PostStatus(c.Query("status")),
		Search:       c.Query("q"),
		Sort:         c.Query("sort"),
		Limit:        p.Limit,
		Offset:       p.Offset,
	}
	if author := c.Query("author"); author != "" {
		id, err := strconv.ParseUint(author, 10, 32)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Invalid author id"))
		}
		in.AuthorID = uint(id)
	}
	// The featured filter only applies while the featured_feed flag is on
	// for this viewer.
	if featured := c.Query("featured"); featured != "" &&
		s.featureFlags.Enabled(featureflags.FlagFeaturedFeed, s.actor(c).ID) {
		v := featured == "true"
		in.Featured = &v
	}

	posts, total, err := s.postService.ListPosts(c.UserContext(), s.actor(c), in)
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

// CreatePost handles POST /api/posts.
func (s *Server) CreatePost(c *fiber.Ctx) error {
	actor, err := s.requireActor(c)
	if err != nil {
		return nil
	}

	var req struct {
		Title            string   `json:"title"`
		Content          string   `json:"content"`
		Excerpt          string   `json:"excerpt"`
		CategoryID       *uint    `json:"category_id"`
		Tags             []string `json:"tags"`
		Status           string   `json:"status"`
		FeaturedImageURL string   `json:"featured_image_url"`
		AllowComments    *bool    `json:"allow_comments"`
		IsFeatured       bool     `json:"is_featured"`
		MetaTitle        string   `json:"meta_title"`
		MetaDescription  string   `json:"meta_description"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	post, err := s.postService.CreatePost(c.UserContext(), actor, service.CreatePostInput{
		AuthorID:         actor.ID,
		Title:            req.Title,
		Content:          req.Content,
		Excerpt:          req.Excerpt,
		CategoryID:       req.CategoryID,
		Tags:             req.Tags,
		Status:           models.PostStatus(req.Status),
		FeaturedImageURL: req.FeaturedImageURL,
		AllowComments:    req.AllowComments,
		IsFeatured:       req.IsFeatured,
		MetaTitle:        req.MetaTitle,
		MetaDescription:  req.MetaDescription,
	})
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// GetPost handles GET /api/posts/:slug and counts the view.
func (s *Server) GetPost(c *fiber.Ctx) error {
	post, err := s.postService.GetPost(c.UserContext(), s.actor(c), c.Params("slug"))
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(post)
}

// UpdatePost handles PUT /api/posts/:slug.
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	actor, err := s.requireActor(c)
	if err != nil {
		return nil
	}

	var req struct {
		Title            *string  `json:"title"`
		Content          *string  `json:"content"`
		Excerpt          *string  `json:"excerpt"`
		CategoryID       *uint    `json:"category_id"`
		Tags             []string `json:"tags"`
		Status           *string  `json:"status"`
		FeaturedImageURL *string  `json:"featured_image_url"`
		AllowComments    *bool    `json:"allow_comments"`
		IsFeatured       *bool    `json:"is_featured"`
		MetaTitle        *string  `json:"meta_title"`
		MetaDescription  *string  `json:"meta_description"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	in := service.UpdatePostInput{
		Title:            req.Title,
		Content:          req.Content,
		Excerpt:          req.Excerpt,
		CategoryID:       req.CategoryID,
		Tags:             req.Tags,
		FeaturedImageURL: req.FeaturedImageURL,
		AllowComments:    req.AllowComments,
		IsFeatured:       req.IsFeatured,
		MetaTitle:        req.MetaTitle,
		MetaDescription:  req.MetaDescription,
	}
	if req.Status != nil {
		status := models.PostStatus(*req.Status)
		in.Status = &status
	}

	post, err := s.postService.UpdatePost(c.UserContext(), actor, c.Params("slug"), in)
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(post)
}

// DeletePost handles DELETE /api/posts/:slug.
func (s *Server) DeletePost(c *fiber.Ctx) error {
	actor, err := s.requireActor(c)
	if err != nil {
		return nil
	}
	if err := s.postService.DeletePost(c.UserContext(), actor, c.Params("slug")); err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Post deleted"})
}

// ToggleLike handles POST /api/posts/:slug/like.
func (s *Server) ToggleLike(c *fiber.Ctx) error {
	actor, err := s.requireActor(c)
	if err != nil {
		return nil
	}
	liked, count, err := s.postService.ToggleLike(c.UserContext(), actor, c.Params("slug"))
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(fiber.Map{"liked": liked, "likes_count": count})
}

// ToggleBookmark handles POST /api/posts/:slug/bookmark.
func (s *Server) ToggleBookmark(c *fiber.Ctx) error {
	actor, err := s.requireActor(c)
	if err != nil {
		return nil
	}
	bookmarked, err := s.postService.ToggleBookmark(c.UserContext(), actor, c.Params("slug"))
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(fiber.Map{"bookmarked": bookmarked})
}

// ListBookmarkedPosts handles GET /api/posts/bookmarks.
func (s *Server) ListBookmarkedPosts(c *fiber.Ctx) error {
	actor, err := s.requireActor(c)
	if err != nil {
		return nil
	}
	p := parsePagination(c, 20)

	posts, total, err := s.postService.ListBookmarked(c.UserContext(), actor, p.Limit, p.Offset)
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

// PostStats handles GET /api/posts/:slug/stats.
func (s *Server) PostStats(c *fiber.Ctx) error {
	actor, err := s.requireActor(c)
	if err != nil {
		return nil
	}
	stats, err := s.postService.PostStats(c.UserContext(), actor, c.Params("slug"))
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(stats)
}
