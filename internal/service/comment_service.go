package service

import (
	"context"
	"strings"

	"crewdesk/internal/authz"
	"crewdesk/internal/models"
	"crewdesk/internal/repository"
)

type CommentService struct {
	commentRepo repository.CommentRepository
	postRepo    repository.PostRepository
}

func NewCommentService(commentRepo repository.CommentRepository, postRepo repository.PostRepository) *CommentService {
	return &CommentService{commentRepo: commentRepo, postRepo: postRepo}
}

type CreateCommentInput struct {
	PostSlug string
	Content  string
	ParentID *uint
}

const maxCommentLen = 10000

// CreateComment adds a comment to a post the actor can see. Replies must
// reference a parent on the same post.
func (s *CommentService) CreateComment(ctx context.Context, actor authz.Actor, in CreateCommentInput) (*models.Comment, error) {
	if !actor.Authenticated() {
		return nil, models.NewUnauthorizedError("Authentication required")
	}
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, models.NewValidationError("Content is required")
	}
	if len(content) > maxCommentLen {
		return nil, models.NewValidationError("Content too long (max 10000 characters)")
	}

	post, err := s.postRepo.GetBySlug(ctx, in.PostSlug, viewerFor(actor))
	if err != nil {
		return nil, err
	}
	if !post.AllowComments {
		return nil, models.NewValidationError("Comments are disabled on this post")
	}
	if in.ParentID != nil {
		parent, err := s.commentRepo.GetByID(ctx, *in.ParentID)
		if err != nil {
			return nil, err
		}
		if parent.PostID != post.ID {
			return nil, models.NewValidationError("Parent comment belongs to a different post")
		}
	}

	comment := &models.Comment{
		Content:    content,
		PostID:     post.ID,
		AuthorID:   actor.ID,
		ParentID:   in.ParentID,
		IsApproved: true,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}
	return s.commentRepo.GetByID(ctx, comment.ID)
}

// ListComments returns the approved top-level comments of a post. Staff
// also see unapproved ones.
func (s *CommentService) ListComments(ctx context.Context, actor authz.Actor, postSlug string) ([]*models.Comment, error) {
	post, err := s.postRepo.GetBySlug(ctx, postSlug, viewerFor(actor))
	if err != nil {
		return nil, err
	}
	return s.commentRepo.ListByPost(ctx, post.ID, actor.CanModerate())
}

// ListReplies returns the replies of a single comment. A comment whose post
// the actor cannot see reads as missing.
func (s *CommentService) ListReplies(ctx context.Context, actor authz.Actor, commentID uint) ([]*models.Comment, error) {
	comment, err := s.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		return nil, err
	}
	post, err := s.postRepo.GetByID(ctx, comment.PostID, repository.Viewer{Staff: true})
	if err != nil {
		return nil, err
	}
	if !authz.CanViewPost(actor, post) {
		return nil, models.NewNotFoundError("Comment")
	}
	return s.commentRepo.ListReplies(ctx, commentID, actor.CanModerate())
}

// UpdateComment edits the content; author or staff only.
func (s *CommentService) UpdateComment(ctx context.Context, actor authz.Actor, commentID uint, content string) (*models.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, models.NewValidationError("Content is required")
	}
	if len(content) > maxCommentLen {
		return nil, models.NewValidationError("Content too long (max 10000 characters)")
	}
	comment, err := s.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if !authz.CanEditComment(actor, comment) {
		return nil, models.NewPermissionError("Not allowed to edit this comment")
	}
	comment.Content = content
	if err := s.commentRepo.Update(ctx, comment); err != nil {
		return nil, err
	}
	return s.commentRepo.GetByID(ctx, commentID)
}

func (s *CommentService) DeleteComment(ctx context.Context, actor authz.Actor, commentID uint) error {
	comment, err := s.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		return err
	}
	if !authz.CanEditComment(actor, comment) {
		return models.NewPermissionError("Not allowed to delete this comment")
	}
	return s.commentRepo.Delete(ctx, commentID)
}

// SetApproval hides or restores a comment; staff only. Unapproved comments
// drop out of public listings and counts but stay visible to moderators.
func (s *CommentService) SetApproval(ctx context.Context, actor authz.Actor, commentID uint, approved bool) (*models.Comment, error) {
	if !authz.CanModerateComments(actor) {
		return nil, models.NewPermissionError("Only staff can moderate comments")
	}
	if err := s.commentRepo.SetApproval(ctx, commentID, approved); err != nil {
		return nil, err
	}
	return s.commentRepo.GetByID(ctx, commentID)
}

// ListPending pages unapproved comments for the moderation queue.
func (s *CommentService) ListPending(ctx context.Context, actor authz.Actor, limit, offset int) ([]*models.Comment, int64, error) {
	if !authz.CanModerateComments(actor) {
		return nil, 0, models.NewPermissionError("Only staff can moderate comments")
	}
	return s.commentRepo.ListPending(ctx, limit, offset)
}
