package repository

import (
	"context"
	"errors"

	"crewdesk/internal/models"

	"gorm.io/gorm"
)

// CommentRepository defines persistence operations for post comments.
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id uint) (*models.Comment, error)
	ListByPost(ctx context.Context, postID uint, includeUnapproved bool) ([]*models.Comment, error)
	ListReplies(ctx context.Context, parentID uint, includeUnapproved bool) ([]*models.Comment, error)
	ListPending(ctx context.Context, limit, offset int) ([]*models.Comment, int64, error)
	Update(ctx context.Context, comment *models.Comment) error
	SetApproval(ctx context.Context, id uint, approved bool) error
	Delete(ctx context.Context, id uint) error
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new CommentRepository.
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

// withRepliesCount selects comments together with their approved reply count.
func (r *commentRepository) withRepliesCount(db *gorm.DB) *gorm.DB {
	return db.Select("comments.*, " +
		"(SELECT COUNT(*) FROM comments replies WHERE replies.parent_id = comments.id AND replies.is_approved) as replies_count")
}

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	if err := r.db.WithContext(ctx).Omit("Author", "Post", "Parent").Create(comment).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *commentRepository) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	err := r.withRepliesCount(readDB(r.db).WithContext(ctx).Model(&models.Comment{})).
		Preload("Author").
		First(&comment, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Comment")
		}
		return nil, models.NewInternalError(err)
	}
	return &comment, nil
}

// ListByPost returns top-level comments for a post, newest first.
func (r *commentRepository) ListByPost(ctx context.Context, postID uint, includeUnapproved bool) ([]*models.Comment, error) {
	var comments []*models.Comment
	db := r.withRepliesCount(readDB(r.db).WithContext(ctx).Model(&models.Comment{})).
		Preload("Author").
		Where("comments.post_id = ? AND comments.parent_id IS NULL", postID)
	if !includeUnapproved {
		db = db.Where("comments.is_approved")
	}
	if err := db.Order("comments.created_at DESC").Find(&comments).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return comments, nil
}

// ListReplies returns direct replies to a comment, oldest first.
func (r *commentRepository) ListReplies(ctx context.Context, parentID uint, includeUnapproved bool) ([]*models.Comment, error) {
	var replies []*models.Comment
	db := r.withRepliesCount(readDB(r.db).WithContext(ctx).Model(&models.Comment{})).
		Preload("Author").
		Where("comments.parent_id = ?", parentID)
	if !includeUnapproved {
		db = db.Where("comments.is_approved")
	}
	if err := db.Order("comments.created_at ASC").Find(&replies).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return replies, nil
}

// ListPending returns unapproved comments awaiting moderation.
func (r *commentRepository) ListPending(ctx context.Context, limit, offset int) ([]*models.Comment, int64, error) {
	base := readDB(r.db).WithContext(ctx).Model(&models.Comment{}).
		Where("is_approved = ?", false)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	var comments []*models.Comment
	err := base.Preload("Author").
		Order("created_at ASC").
		Limit(limit).
		Offset(offset).
		Find(&comments).Error
	if err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return comments, total, nil
}

func (r *commentRepository) Update(ctx context.Context, comment *models.Comment) error {
	if err := r.db.WithContext(ctx).Omit("Author", "Post", "Parent").Save(comment).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *commentRepository) SetApproval(ctx context.Context, id uint, approved bool) error {
	res := r.db.WithContext(ctx).Model(&models.Comment{}).Where("id = ?", id).Update("is_approved", approved)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Comment")
	}
	return nil
}

func (r *commentRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Comment{}, id)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Comment")
	}
	return nil
}
