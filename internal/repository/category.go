package repository

import (
	"context"
	"errors"

	"crewdesk/internal/cache"
	"crewdesk/internal/models"

	"gorm.io/gorm"
)

// CategoryStats aggregates post counts for a single category.
type CategoryStats struct {
	CategoryID     uint   `json:"category_id"`
	Name           string `json:"name"`
	Slug           string `json:"slug"`
	TotalPosts     int64  `json:"total_posts"`
	PublishedPosts int64  `json:"published_posts"`
	DraftPosts     int64  `json:"draft_posts"`
}

// CategoryRepository defines persistence operations for categories.
type CategoryRepository interface {
	Create(ctx context.Context, category *models.Category) error
	GetByID(ctx context.Context, id uint) (*models.Category, error)
	GetBySlug(ctx context.Context, slug string) (*models.Category, error)
	List(ctx context.Context, includeInactive bool) ([]*models.Category, error)
	ListChildren(ctx context.Context, parentID uint) ([]*models.Category, error)
	Update(ctx context.Context, category *models.Category) error
	Deactivate(ctx context.Context, id uint) error
	Stats(ctx context.Context, id uint) (*CategoryStats, error)
	HasActiveChildren(ctx context.Context, id uint) (bool, error)
}

type categoryRepository struct {
	db *gorm.DB
}

// NewCategoryRepository returns a new CategoryRepository implementation.
func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

// withPostsCount selects categories together with their published post count.
func (r *categoryRepository) withPostsCount(db *gorm.DB) *gorm.DB {
	return db.Select("categories.*, " +
		"(SELECT COUNT(*) FROM posts WHERE posts.category_id = categories.id AND posts.is_published AND posts.status = 'published') as posts_count")
}

func (r *categoryRepository) Create(ctx context.Context, category *models.Category) error {
	if err := r.db.WithContext(ctx).Create(category).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("Category name or slug already exists")
		}
		return models.NewInternalError(err)
	}
	cache.InvalidateCategories(ctx, "")
	return nil
}

func (r *categoryRepository) GetByID(ctx context.Context, id uint) (*models.Category, error) {
	var category models.Category
	err := r.withPostsCount(readDB(r.db).WithContext(ctx).Model(&models.Category{})).
		First(&category, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Category")
		}
		return nil, models.NewInternalError(err)
	}
	return &category, nil
}

func (r *categoryRepository) GetBySlug(ctx context.Context, slug string) (*models.Category, error) {
	var category models.Category
	err := r.withPostsCount(readDB(r.db).WithContext(ctx).Model(&models.Category{})).
		Where("slug = ?", slug).
		First(&category).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Category")
		}
		return nil, models.NewInternalError(err)
	}
	return &category, nil
}

func (r *categoryRepository) List(ctx context.Context, includeInactive bool) ([]*models.Category, error) {
	var categories []*models.Category
	db := r.withPostsCount(readDB(r.db).WithContext(ctx).Model(&models.Category{}))
	if !includeInactive {
		db = db.Where("is_active = ?", true)
	}
	if err := db.Order(`"order" ASC, name ASC`).Find(&categories).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return categories, nil
}

func (r *categoryRepository) ListChildren(ctx context.Context, parentID uint) ([]*models.Category, error) {
	var categories []*models.Category
	err := r.withPostsCount(readDB(r.db).WithContext(ctx).Model(&models.Category{})).
		Where("parent_id = ? AND is_active = ?", parentID, true).
		Order(`"order" ASC, name ASC`).
		Find(&categories).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return categories, nil
}

func (r *categoryRepository) Update(ctx context.Context, category *models.Category) error {
	if err := r.db.WithContext(ctx).Save(category).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("Category name or slug already exists")
		}
		return models.NewInternalError(err)
	}
	cache.InvalidateCategories(ctx, category.Slug)
	return nil
}

// Deactivate soft deletes the category. Rows are never removed; posts keep
// their category reference and history.
func (r *categoryRepository) Deactivate(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Model(&models.Category{}).Where("id = ?", id).Update("is_active", false)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Category")
	}
	cache.InvalidateCategories(ctx, "")
	return nil
}

func (r *categoryRepository) Stats(ctx context.Context, id uint) (*CategoryStats, error) {
	category, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	stats := &CategoryStats{
		CategoryID: category.ID,
		Name:       category.Name,
		Slug:       category.Slug,
	}

	db := readDB(r.db).WithContext(ctx).Model(&models.Post{}).Where("category_id = ?", id)
	if err := db.Count(&stats.TotalPosts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	if err := readDB(r.db).WithContext(ctx).Model(&models.Post{}).
		Where("category_id = ? AND is_published AND status = ?", id, models.PostStatusPublished).
		Count(&stats.PublishedPosts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	if err := readDB(r.db).WithContext(ctx).Model(&models.Post{}).
		Where("category_id = ? AND status = ?", id, models.PostStatusDraft).
		Count(&stats.DraftPosts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return stats, nil
}

func (r *categoryRepository) HasActiveChildren(ctx context.Context, id uint) (bool, error) {
	var count int64
	err := readDB(r.db).WithContext(ctx).Model(&models.Category{}).
		Where("parent_id = ? AND is_active = ?", id, true).
		Count(&count).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}
