package service

import (
	"context"
	"strings"

	"crewdesk/internal/authz"
	"crewdesk/internal/cache"
	"crewdesk/internal/models"
	"crewdesk/internal/repository"
)

type CategoryService struct {
	categoryRepo repository.CategoryRepository
}

func NewCategoryService(categoryRepo repository.CategoryRepository) *CategoryService {
	return &CategoryService{categoryRepo: categoryRepo}
}

type CreateCategoryInput struct {
	Name        string
	Description string
	Color       string
	Icon        string
	Order       int
	ParentID    *uint
}

type UpdateCategoryInput struct {
	Description *string
	Color       *string
	Icon        *string
	Order       *int
	ParentID    *uint
	IsActive    *bool
}

const maxCategoryNameLen = 100

// CreateCategory derives the slug from the name once; the slug is never
// regenerated afterwards, even if the name changes.
func (s *CategoryService) CreateCategory(ctx context.Context, actor authz.Actor, in CreateCategoryInput) (*models.Category, error) {
	if !authz.CanEditCategory(actor) {
		return nil, models.NewPermissionError("Only staff can manage categories")
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, models.NewValidationError("Name is required")
	}
	if len(name) > maxCategoryNameLen {
		return nil, models.NewValidationError("Name too long (max 100 characters)")
	}
	if in.ParentID != nil {
		parent, err := s.categoryRepo.GetByID(ctx, *in.ParentID)
		if err != nil {
			return nil, err
		}
		if !parent.IsActive {
			return nil, models.NewValidationError("Parent category is inactive")
		}
	}

	category := &models.Category{
		Name:        name,
		Slug:        models.Slugify(name),
		Description: in.Description,
		Color:       in.Color,
		Icon:        in.Icon,
		Order:       in.Order,
		ParentID:    in.ParentID,
		IsActive:    true,
	}
	if err := s.categoryRepo.Create(ctx, category); err != nil {
		return nil, err
	}
	cache.InvalidateCategories(ctx, category.Slug)
	return s.categoryRepo.GetByID(ctx, category.ID)
}

func (s *CategoryService) GetCategory(ctx context.Context, slug string) (*models.Category, error) {
	return cache.CacheAside(ctx, cache.CategoryKey(slug), cache.CategoryTreeTTL, func(ctx context.Context) (*models.Category, error) {
		return s.categoryRepo.GetBySlug(ctx, slug)
	})
}

// ListCategories returns active categories; staff may include inactive ones.
func (s *CategoryService) ListCategories(ctx context.Context, actor authz.Actor, includeInactive bool) ([]*models.Category, error) {
	includeInactive = includeInactive && actor.CanModerate()
	return s.categoryRepo.List(ctx, includeInactive)
}

// UpdateCategory applies partial changes. A category can never become its
// own parent, directly or by pointing at a missing row.
func (s *CategoryService) UpdateCategory(ctx context.Context, actor authz.Actor, slug string, in UpdateCategoryInput) (*models.Category, error) {
	if !authz.CanEditCategory(actor) {
		return nil, models.NewPermissionError("Only staff can manage categories")
	}
	category, err := s.categoryRepo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	if in.ParentID != nil {
		if *in.ParentID == category.ID {
			return nil, models.NewValidationError("A category cannot be its own parent")
		}
		if _, err := s.categoryRepo.GetByID(ctx, *in.ParentID); err != nil {
			return nil, err
		}
		category.ParentID = in.ParentID
	}
	applyString(&category.Description, in.Description)
	applyString(&category.Color, in.Color)
	applyString(&category.Icon, in.Icon)
	if in.Order != nil {
		category.Order = *in.Order
	}
	if in.IsActive != nil {
		category.IsActive = *in.IsActive
	}

	if err := s.categoryRepo.Update(ctx, category); err != nil {
		return nil, err
	}
	cache.InvalidateCategories(ctx, category.Slug)
	return s.categoryRepo.GetBySlug(ctx, category.Slug)
}

// DeleteCategory is always soft: the row stays with IsActive=false so posts
// keep their category reference. Children are left untouched.
func (s *CategoryService) DeleteCategory(ctx context.Context, actor authz.Actor, slug string) error {
	if !authz.CanEditCategory(actor) {
		return models.NewPermissionError("Only staff can manage categories")
	}
	category, err := s.categoryRepo.GetBySlug(ctx, slug)
	if err != nil {
		return err
	}
	if err := s.categoryRepo.Deactivate(ctx, category.ID); err != nil {
		return err
	}
	cache.InvalidateCategories(ctx, category.Slug)
	return nil
}

// CategoryTree assembles active categories into a parent/children tree.
// A child whose parent is inactive surfaces at the top level.
func (s *CategoryService) CategoryTree(ctx context.Context) ([]*models.Category, error) {
	return cache.CacheAside(ctx, cache.CategoryTreeKey, cache.CategoryTreeTTL, func(ctx context.Context) ([]*models.Category, error) {
		categories, err := s.categoryRepo.List(ctx, false)
		if err != nil {
			return nil, err
		}
		byID := make(map[uint]*models.Category, len(categories))
		for _, c := range categories {
			byID[c.ID] = c
		}
		var roots []*models.Category
		for _, c := range categories {
			if c.ParentID != nil {
				if parent, ok := byID[*c.ParentID]; ok {
					parent.Children = append(parent.Children, c)
					continue
				}
			}
			roots = append(roots, c)
		}
		return roots, nil
	})
}

// CategoryStats reports post totals per category, staff only since it
// exposes draft counts.
func (s *CategoryService) CategoryStats(ctx context.Context, actor authz.Actor, slug string) (*repository.CategoryStats, error) {
	if !actor.CanModerate() {
		return nil, models.NewPermissionError("Only staff can view category stats")
	}
	category, err := s.categoryRepo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	return s.categoryRepo.Stats(ctx, category.ID)
}
