package repository

import (
	"context"
	"errors"

	"crewdesk/internal/cache"
	"crewdesk/internal/models"

	"gorm.io/gorm"
)

// TagRepository defines persistence operations for tags.
type TagRepository interface {
	GetOrCreate(ctx context.Context, name, slug string) (*models.Tag, error)
	GetBySlug(ctx context.Context, slug string) (*models.Tag, error)
	List(ctx context.Context) ([]*models.Tag, error)
	Delete(ctx context.Context, id uint) error
}

type tagRepository struct {
	db *gorm.DB
}

// NewTagRepository returns a new TagRepository implementation.
func NewTagRepository(db *gorm.DB) TagRepository {
	return &tagRepository{db: db}
}

// GetOrCreate resolves a normalized tag name to a row, creating it on first
// use. A concurrent create racing on the unique name index is retried as a
// lookup.
func (r *tagRepository) GetOrCreate(ctx context.Context, name, slug string) (*models.Tag, error) {
	var tag models.Tag
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&tag).Error
	if err == nil {
		return &tag, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NewInternalError(err)
	}

	tag = models.Tag{Name: name, Slug: slug}
	if err := r.db.WithContext(ctx).Create(&tag).Error; err != nil {
		if isUniqueConstraintError(err) {
			if err := r.db.WithContext(ctx).Where("name = ?", name).First(&tag).Error; err != nil {
				return nil, models.NewInternalError(err)
			}
			return &tag, nil
		}
		return nil, models.NewInternalError(err)
	}
	cache.InvalidateTags(ctx)
	return &tag, nil
}

func (r *tagRepository) GetBySlug(ctx context.Context, slug string) (*models.Tag, error) {
	var tag models.Tag
	err := readDB(r.db).WithContext(ctx).Model(&models.Tag{}).
		Select("tags.*, " +
			"(SELECT COUNT(*) FROM post_tags JOIN posts ON posts.id = post_tags.post_id " +
			"WHERE post_tags.tag_id = tags.id AND posts.is_published AND posts.status = 'published') as posts_count").
		Where("slug = ?", slug).
		First(&tag).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Tag")
		}
		return nil, models.NewInternalError(err)
	}
	return &tag, nil
}

func (r *tagRepository) List(ctx context.Context) ([]*models.Tag, error) {
	var tags []*models.Tag
	err := readDB(r.db).WithContext(ctx).Model(&models.Tag{}).
		Select("tags.*, " +
			"(SELECT COUNT(*) FROM post_tags JOIN posts ON posts.id = post_tags.post_id " +
			"WHERE post_tags.tag_id = tags.id AND posts.is_published AND posts.status = 'published') as posts_count").
		Order("name ASC").
		Find(&tags).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return tags, nil
}

func (r *tagRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Tag{}, id)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Tag")
	}
	cache.InvalidateTags(ctx)
	return nil
}
