package service

import (
	"context"

	"crewdesk/internal/cache"
	"crewdesk/internal/models"
	"crewdesk/internal/repository"
)

type TagService struct {
	tagRepo repository.TagRepository
}

func NewTagService(tagRepo repository.TagRepository) *TagService {
	return &TagService{tagRepo: tagRepo}
}

const maxTagNameLen = 50

// ListTags returns all tags with their published post counts.
func (s *TagService) ListTags(ctx context.Context) ([]*models.Tag, error) {
	return cache.CacheAside(ctx, cache.TagListKey, cache.TagListTTL, func(ctx context.Context) ([]*models.Tag, error) {
		return s.tagRepo.List(ctx)
	})
}

func (s *TagService) GetTag(ctx context.Context, slug string) (*models.Tag, error) {
	return s.tagRepo.GetBySlug(ctx, slug)
}

// CreateTag resolves the normalized name via get-or-create; creating a tag
// that already exists returns the existing row rather than an error.
func (s *TagService) CreateTag(ctx context.Context, name string) (*models.Tag, error) {
	normalized := models.NormalizeTagName(name)
	if normalized == "" {
		return nil, models.NewValidationError("Tag name is required")
	}
	if len(normalized) > maxTagNameLen {
		return nil, models.NewValidationError("Tag name too long (max 50 characters)")
	}
	tag, err := s.tagRepo.GetOrCreate(ctx, normalized, models.Slugify(normalized))
	if err != nil {
		return nil, err
	}
	cache.InvalidateTags(ctx)
	return tag, nil
}
