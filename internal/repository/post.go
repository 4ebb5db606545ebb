// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"
	"errors"

	"crewdesk/internal/cache"
	"crewdesk/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Viewer identifies who is reading. Staff viewers see every post; regular
// viewers see published posts plus their own; anonymous viewers (UserID 0)
// see published posts only.
type Viewer struct {
	UserID uint
	Staff  bool
}

// PostFilter narrows and pages post listings.
type PostFilter struct {
	CategorySlug string
	TagSlug      string
	AuthorID     uint
	Status       models.PostStatus
	Featured     *bool
	Search       string
	Sort         string
	Limit        int
	Offset       int
}

// PostStats aggregates engagement numbers for a single post.
type PostStats struct {
	PostID        uint  `json:"post_id"`
	ViewsCount    int64 `json:"views_count"`
	LikesCount    int64 `json:"likes_count"`
	CommentsCount int64 `json:"comments_count"`
	Bookmarks     int64 `json:"bookmarks_count"`
}

// PostRepository defines the interface for post data operations.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint, viewer Viewer) (*models.Post, error)
	GetBySlug(ctx context.Context, slug string, viewer Viewer) (*models.Post, error)
	List(ctx context.Context, viewer Viewer, filter PostFilter) ([]*models.Post, int64, error)
	Update(ctx context.Context, post *models.Post) error
	ReplaceTags(ctx context.Context, post *models.Post, tags []models.Tag) error
	Delete(ctx context.Context, post *models.Post) error
	IncrementViews(ctx context.Context, id uint) error
	ToggleLike(ctx context.Context, postID, userID uint) (bool, int64, error)
	ToggleBookmark(ctx context.Context, postID, userID uint) (bool, error)
	ListBookmarked(ctx context.Context, userID uint, limit, offset int) ([]*models.Post, int64, error)
	Stats(ctx context.Context, postID uint) (*PostStats, error)
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository.
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

// applyPostDetails adds subqueries to fetch counts and reaction flags in a single query.
func (r *postRepository) applyPostDetails(db *gorm.DB, viewer Viewer) *gorm.DB {
	selectQuery := "posts.*, " +
		"(SELECT COUNT(*) FROM comments WHERE comments.post_id = posts.id AND comments.is_approved) as comments_count"

	if viewer.UserID != 0 {
		return db.Select(selectQuery+
			", EXISTS(SELECT 1 FROM likes WHERE likes.post_id = posts.id AND likes.user_id = ?) as is_liked"+
			", EXISTS(SELECT 1 FROM bookmarks WHERE bookmarks.post_id = posts.id AND bookmarks.user_id = ?) as is_bookmarked",
			viewer.UserID, viewer.UserID)
	}

	return db.Select(selectQuery)
}

// applyVisibility narrows the query to posts the viewer may see.
func (r *postRepository) applyVisibility(db *gorm.DB, viewer Viewer) *gorm.DB {
	if viewer.Staff {
		return db
	}
	if viewer.UserID != 0 {
		return db.Where("(posts.is_published AND posts.status = ?) OR posts.author_id = ?",
			models.PostStatusPublished, viewer.UserID)
	}
	return db.Where("posts.is_published AND posts.status = ?", models.PostStatusPublished)
}

func (r *postRepository) applySort(db *gorm.DB, sort string) *gorm.DB {
	switch sort {
	case "popular":
		return db.Order("likes_count DESC, views_count DESC, posts.created_at DESC")
	case "views":
		return db.Order("views_count DESC, posts.created_at DESC")
	case "oldest":
		return db.Order("posts.created_at ASC")
	default: // "newest" and anything unrecognized
		return db.Order("posts.created_at DESC")
	}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Omit("Author", "Category", "Tags").Create(post).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("A post with this slug already exists")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint, viewer Viewer) (*models.Post, error) {
	var post models.Post
	base := r.applyVisibility(readDB(r.db).WithContext(ctx).Model(&models.Post{}), viewer)
	err := r.applyPostDetails(base, viewer).
		Preload("Author").
		Preload("Category").
		Preload("Tags").
		First(&post, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post")
		}
		return nil, models.NewInternalError(err)
	}
	post.ComputeReadState()
	return &post, nil
}

func (r *postRepository) GetBySlug(ctx context.Context, slug string, viewer Viewer) (*models.Post, error) {
	var post models.Post
	base := r.applyVisibility(readDB(r.db).WithContext(ctx).Model(&models.Post{}), viewer)
	err := r.applyPostDetails(base, viewer).
		Preload("Author").
		Preload("Category").
		Preload("Tags").
		Where("posts.slug = ?", slug).
		First(&post).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post")
		}
		return nil, models.NewInternalError(err)
	}
	post.ComputeReadState()
	return &post, nil
}

func (r *postRepository) List(ctx context.Context, viewer Viewer, filter PostFilter) ([]*models.Post, int64, error) {
	base := readDB(r.db).WithContext(ctx).Model(&models.Post{})
	base = r.applyVisibility(base, viewer)

	if filter.CategorySlug != "" {
		base = base.Joins("JOIN categories ON categories.id = posts.category_id").
			Where("categories.slug = ?", filter.CategorySlug)
	}
	if filter.TagSlug != "" {
		base = base.Joins("JOIN post_tags ON post_tags.post_id = posts.id").
			Joins("JOIN tags ON tags.id = post_tags.tag_id").
			Where("tags.slug = ?", filter.TagSlug)
	}
	if filter.AuthorID != 0 {
		base = base.Where("posts.author_id = ?", filter.AuthorID)
	}
	if filter.Status != "" {
		base = base.Where("posts.status = ?", filter.Status)
	}
	if filter.Featured != nil {
		base = base.Where("posts.is_featured = ?", *filter.Featured)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		base = base.Where("posts.title LIKE ? OR posts.content LIKE ?", like, like)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Distinct("posts.id").Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	var posts []*models.Post
	query := r.applyPostDetails(base, viewer).
		Preload("Author").
		Preload("Category").
		Preload("Tags")
	err := r.applySort(query, filter.Sort).
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&posts).Error
	if err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	for _, p := range posts {
		p.ComputeReadState()
	}
	return posts, total, nil
}

func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	err := r.db.WithContext(ctx).
		Omit("Author", "Category", "Tags", "Comments", "views_count", "likes_count").
		Save(post).Error
	if err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("A post with this slug already exists")
		}
		return models.NewInternalError(err)
	}
	cache.InvalidatePost(ctx, post.ID, post.Slug)
	return nil
}

// ReplaceTags clears the post's tag set and attaches the given tags.
func (r *postRepository) ReplaceTags(ctx context.Context, post *models.Post, tags []models.Tag) error {
	if err := r.db.WithContext(ctx).Model(post).Association("Tags").Replace(tags); err != nil {
		return models.NewInternalError(err)
	}
	post.Tags = tags
	cache.InvalidatePost(ctx, post.ID, post.Slug)
	return nil
}

func (r *postRepository) Delete(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Select(clause.Associations).Delete(post).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidatePost(ctx, post.ID, post.Slug)
	return nil
}

// IncrementViews bumps the persisted view counter with a single field-level
// UPDATE so concurrent reads never lose increments.
func (r *postRepository) IncrementViews(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Model(&models.Post{}).
		Where("id = ?", id).
		UpdateColumn("views_count", gorm.Expr("views_count + 1")).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// ToggleLike flips the (post, user) like row and keeps likes_count in step.
// The insert races are absorbed by ON CONFLICT DO NOTHING on the unique
// index; zero rows affected means the like already existed and is removed
// instead. Returns the resulting liked state and counter value.
func (r *postRepository) ToggleLike(ctx context.Context, postID, userID uint) (bool, int64, error) {
	var liked bool

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		like := models.Like{PostID: postID, UserID: userID}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&like)
		if res.Error != nil {
			return res.Error
		}

		if res.RowsAffected > 0 {
			liked = true
			return tx.Model(&models.Post{}).
				Where("id = ?", postID).
				UpdateColumn("likes_count", gorm.Expr("likes_count + 1")).Error
		}

		liked = false
		if err := tx.Where("post_id = ? AND user_id = ?", postID, userID).
			Delete(&models.Like{}).Error; err != nil {
			return err
		}
		// Guard against going below zero if the counter ever drifts.
		return tx.Model(&models.Post{}).
			Where("id = ? AND likes_count > 0", postID).
			UpdateColumn("likes_count", gorm.Expr("likes_count - 1")).Error
	})
	if err != nil {
		return false, 0, models.NewInternalError(err)
	}

	var post models.Post
	if err := r.db.WithContext(ctx).Select("id", "slug", "likes_count").First(&post, postID).Error; err != nil {
		return liked, 0, models.NewInternalError(err)
	}
	cache.InvalidatePost(ctx, post.ID, post.Slug)
	return liked, int64(post.LikesCount), nil
}

// ToggleBookmark flips the (post, user) bookmark row. No counter is kept.
func (r *postRepository) ToggleBookmark(ctx context.Context, postID, userID uint) (bool, error) {
	bookmark := models.Bookmark{PostID: postID, UserID: userID}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&bookmark)
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	if res.RowsAffected > 0 {
		return true, nil
	}

	if err := r.db.WithContext(ctx).Where("post_id = ? AND user_id = ?", postID, userID).
		Delete(&models.Bookmark{}).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return false, nil
}

func (r *postRepository) ListBookmarked(ctx context.Context, userID uint, limit, offset int) ([]*models.Post, int64, error) {
	base := readDB(r.db).WithContext(ctx).Model(&models.Post{}).
		Joins("JOIN bookmarks ON bookmarks.post_id = posts.id").
		Where("bookmarks.user_id = ?", userID)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	var posts []*models.Post
	err := r.applyPostDetails(base, Viewer{UserID: userID}).
		Preload("Author").
		Preload("Category").
		Preload("Tags").
		Order("bookmarks.created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	for _, p := range posts {
		p.ComputeReadState()
	}
	return posts, total, nil
}

func (r *postRepository) Stats(ctx context.Context, postID uint) (*PostStats, error) {
	var post models.Post
	if err := readDB(r.db).WithContext(ctx).First(&post, postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post")
		}
		return nil, models.NewInternalError(err)
	}

	stats := &PostStats{
		PostID:     post.ID,
		ViewsCount: int64(post.ViewsCount),
		LikesCount: int64(post.LikesCount),
	}

	if err := readDB(r.db).WithContext(ctx).Model(&models.Comment{}).
		Where("post_id = ? AND is_approved", postID).
		Count(&stats.CommentsCount).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	if err := readDB(r.db).WithContext(ctx).Model(&models.Bookmark{}).
		Where("post_id = ?", postID).
		Count(&stats.Bookmarks).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return stats, nil
}
