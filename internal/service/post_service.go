package service

import (
	"context"
	"strings"
	"time"

	"crewdesk/internal/authz"
	"crewdesk/internal/cache"
	"crewdesk/internal/models"
	"crewdesk/internal/observability"
	"crewdesk/internal/repository"
)

type PostService struct {
	postRepo     repository.PostRepository
	tagRepo      repository.TagRepository
	categoryRepo repository.CategoryRepository
}

func NewPostService(
	postRepo repository.PostRepository,
	tagRepo repository.TagRepository,
	categoryRepo repository.CategoryRepository,
) *PostService {
	return &PostService{
		postRepo:     postRepo,
		tagRepo:      tagRepo,
		categoryRepo: categoryRepo,
	}
}

type CreatePostInput struct {
	AuthorID         uint
	Title            string
	Content          string
	Excerpt          string
	CategoryID       *uint
	Tags             []string
	Status           models.PostStatus
	FeaturedImageURL string
	AllowComments    *bool
	IsFeatured       bool
	MetaTitle        string
	MetaDescription  string
}

type UpdatePostInput struct {
	Title            *string
	Content          *string
	Excerpt          *string
	CategoryID       *uint
	Tags             []string
	Status           *models.PostStatus
	FeaturedImageURL *string
	AllowComments    *bool
	IsFeatured       *bool
	MetaTitle        *string
	MetaDescription  *string
}

type ListPostsInput struct {
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

const (
	maxPostTitleLen   = 200
	maxPostContentLen = 100000
	maxPostExcerptLen = 300
	maxPostTags       = 10
)

// viewerFor maps an actor onto the repository's visibility carrier.
func viewerFor(a authz.Actor) repository.Viewer {
	return repository.Viewer{UserID: a.ID, Staff: a.CanModerate()}
}

// CreatePost derives slug, excerpt, and meta fields once at creation.
// Supplied values win; only absent ones are derived. A slug collision is a
// conflict surfaced to the caller, never silently uniquified.
func (s *PostService) CreatePost(ctx context.Context, actor authz.Actor, in CreatePostInput) (*models.Post, error) {
	if !actor.Authenticated() {
		return nil, models.NewUnauthorizedError("Authentication required")
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, models.NewValidationError("Title is required")
	}
	if len(title) > maxPostTitleLen {
		return nil, models.NewValidationError("Title too long (max 200 characters)")
	}
	if strings.TrimSpace(in.Content) == "" {
		return nil, models.NewValidationError("Content is required")
	}
	if len(in.Content) > maxPostContentLen {
		return nil, models.NewValidationError("Content too long (max 100000 characters)")
	}
	if len(in.Excerpt) > maxPostExcerptLen {
		return nil, models.NewValidationError("Excerpt too long (max 300 characters)")
	}
	status := in.Status
	if status == "" {
		status = models.PostStatusDraft
	}
	if !models.ValidPostStatus(status) {
		return nil, models.NewValidationError("Invalid status")
	}
	if in.CategoryID != nil {
		category, err := s.categoryRepo.GetByID(ctx, *in.CategoryID)
		if err != nil {
			return nil, err
		}
		if !category.IsActive {
			return nil, models.NewValidationError("Category is inactive")
		}
	}

	tags, err := s.resolveTags(ctx, in.Tags)
	if err != nil {
		return nil, err
	}

	excerpt := in.Excerpt
	if excerpt == "" {
		excerpt = models.DeriveExcerpt(in.Content)
	}
	metaTitle := in.MetaTitle
	if metaTitle == "" {
		metaTitle = models.DeriveMetaTitle(title)
	}
	metaDescription := in.MetaDescription
	if metaDescription == "" {
		metaDescription = models.DeriveMetaDescription(excerpt)
	}
	allowComments := true
	if in.AllowComments != nil {
		allowComments = *in.AllowComments
	}

	post := &models.Post{
		Title:            title,
		Slug:             models.Slugify(title),
		Content:          in.Content,
		Excerpt:          excerpt,
		FeaturedImageURL: in.FeaturedImageURL,
		AuthorID:         actor.ID,
		CategoryID:       in.CategoryID,
		Status:           status,
		IsFeatured:       in.IsFeatured,
		AllowComments:    allowComments,
		MetaTitle:        metaTitle,
		MetaDescription:  metaDescription,
	}
	if status == models.PostStatusPublished {
		now := time.Now()
		post.IsPublished = true
		post.PublishedAt = &now
	}

	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}
	if len(tags) > 0 {
		if err := s.postRepo.ReplaceTags(ctx, post, tags); err != nil {
			return nil, err
		}
	}
	if post.IsPublished {
		observability.PostsPublished.Inc()
	}
	return s.postRepo.GetByID(ctx, post.ID, viewerFor(actor))
}

// GetPost resolves a post by slug for the actor, counting the view. The
// increment is a single atomic UPDATE; the refetch returns the fresh count.
func (s *PostService) GetPost(ctx context.Context, actor authz.Actor, slug string) (*models.Post, error) {
	post, err := s.postRepo.GetBySlug(ctx, slug, viewerFor(actor))
	if err != nil {
		return nil, err
	}
	if err := s.postRepo.IncrementViews(ctx, post.ID); err != nil {
		return nil, err
	}
	observability.PostViews.Inc()
	return s.postRepo.GetByID(ctx, post.ID, viewerFor(actor))
}

func (s *PostService) ListPosts(ctx context.Context, actor authz.Actor, in ListPostsInput) ([]*models.Post, int64, error) {
	filter := repository.PostFilter{
		CategorySlug: in.CategorySlug,
		TagSlug:      in.TagSlug,
		AuthorID:     in.AuthorID,
		Status:       in.Status,
		Featured:     in.Featured,
		Search:       in.Search,
		Sort:         in.Sort,
		Limit:        in.Limit,
		Offset:       in.Offset,
	}
	return s.postRepo.List(ctx, viewerFor(actor), filter)
}

// UpdatePost applies partial changes. The slug is never regenerated, even
// when the title changes; published_at is set on first publish and kept
// thereafter.
func (s *PostService) UpdatePost(ctx context.Context, actor authz.Actor, slug string, in UpdatePostInput) (*models.Post, error) {
	post, err := s.postRepo.GetBySlug(ctx, slug, viewerFor(actor))
	if err != nil {
		return nil, err
	}
	if !authz.CanEditPost(actor, post) {
		return nil, models.NewPermissionError("Not allowed to edit this post")
	}

	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, models.NewValidationError("Title is required")
		}
		if len(title) > maxPostTitleLen {
			return nil, models.NewValidationError("Title too long (max 200 characters)")
		}
		post.Title = title
	}
	if in.Content != nil {
		if strings.TrimSpace(*in.Content) == "" {
			return nil, models.NewValidationError("Content is required")
		}
		if len(*in.Content) > maxPostContentLen {
			return nil, models.NewValidationError("Content too long (max 100000 characters)")
		}
		post.Content = *in.Content
	}
	if in.Excerpt != nil {
		if len(*in.Excerpt) > maxPostExcerptLen {
			return nil, models.NewValidationError("Excerpt too long (max 300 characters)")
		}
		post.Excerpt = *in.Excerpt
	}
	if in.CategoryID != nil {
		category, err := s.categoryRepo.GetByID(ctx, *in.CategoryID)
		if err != nil {
			return nil, err
		}
		if !category.IsActive {
			return nil, models.NewValidationError("Category is inactive")
		}
		post.CategoryID = in.CategoryID
	}
	if in.Status != nil {
		if !models.ValidPostStatus(*in.Status) {
			return nil, models.NewValidationError("Invalid status")
		}
		post.Status = *in.Status
		post.IsPublished = *in.Status == models.PostStatusPublished
		if post.IsPublished && post.PublishedAt == nil {
			now := time.Now()
			post.PublishedAt = &now
			observability.PostsPublished.Inc()
		}
	}
	applyString(&post.FeaturedImageURL, in.FeaturedImageURL)
	applyString(&post.MetaTitle, in.MetaTitle)
	applyString(&post.MetaDescription, in.MetaDescription)
	if in.AllowComments != nil {
		post.AllowComments = *in.AllowComments
	}
	if in.IsFeatured != nil {
		post.IsFeatured = *in.IsFeatured
	}

	if err := s.postRepo.Update(ctx, post); err != nil {
		return nil, err
	}
	if in.Tags != nil {
		tags, err := s.resolveTags(ctx, in.Tags)
		if err != nil {
			return nil, err
		}
		if err := s.postRepo.ReplaceTags(ctx, post, tags); err != nil {
			return nil, err
		}
	}
	cache.InvalidatePost(ctx, post.ID, post.Slug)
	return s.postRepo.GetByID(ctx, post.ID, viewerFor(actor))
}

func (s *PostService) DeletePost(ctx context.Context, actor authz.Actor, slug string) error {
	post, err := s.postRepo.GetBySlug(ctx, slug, viewerFor(actor))
	if err != nil {
		return err
	}
	if !authz.CanEditPost(actor, post) {
		return models.NewPermissionError("Not allowed to delete this post")
	}
	if err := s.postRepo.Delete(ctx, post); err != nil {
		return err
	}
	cache.InvalidatePost(ctx, post.ID, post.Slug)
	return nil
}

// ToggleLike flips the actor's like on a post and returns the new state
// with the fresh counter.
func (s *PostService) ToggleLike(ctx context.Context, actor authz.Actor, slug string) (bool, int64, error) {
	if !actor.Authenticated() {
		return false, 0, models.NewUnauthorizedError("Authentication required")
	}
	post, err := s.postRepo.GetBySlug(ctx, slug, viewerFor(actor))
	if err != nil {
		return false, 0, err
	}
	liked, count, err := s.postRepo.ToggleLike(ctx, post.ID, actor.ID)
	if err != nil {
		return false, 0, err
	}
	observability.RecordToggle("like", liked)
	return liked, count, nil
}

// ToggleBookmark flips the actor's bookmark on a post.
func (s *PostService) ToggleBookmark(ctx context.Context, actor authz.Actor, slug string) (bool, error) {
	if !actor.Authenticated() {
		return false, models.NewUnauthorizedError("Authentication required")
	}
	post, err := s.postRepo.GetBySlug(ctx, slug, viewerFor(actor))
	if err != nil {
		return false, err
	}
	bookmarked, err := s.postRepo.ToggleBookmark(ctx, post.ID, actor.ID)
	if err != nil {
		return false, err
	}
	observability.RecordToggle("bookmark", bookmarked)
	return bookmarked, nil
}

func (s *PostService) ListBookmarked(ctx context.Context, actor authz.Actor, limit, offset int) ([]*models.Post, int64, error) {
	if !actor.Authenticated() {
		return nil, 0, models.NewUnauthorizedError("Authentication required")
	}
	return s.postRepo.ListBookmarked(ctx, actor.ID, limit, offset)
}

// PostStats reports engagement numbers for a single post the actor can see.
func (s *PostService) PostStats(ctx context.Context, actor authz.Actor, slug string) (*repository.PostStats, error) {
	post, err := s.postRepo.GetBySlug(ctx, slug, viewerFor(actor))
	if err != nil {
		return nil, err
	}
	return cache.CacheAside(ctx, cache.PostStatsKey(post.ID), cache.StatsTTL, func(ctx context.Context) (*repository.PostStats, error) {
		return s.postRepo.Stats(ctx, post.ID)
	})
}

// resolveTags normalizes names and resolves each through get-or-create.
// Duplicate names collapse to one tag.
func (s *PostService) resolveTags(ctx context.Context, names []string) ([]models.Tag, error) {
	if len(names) > maxPostTags {
		return nil, models.NewValidationError("Too many tags (max 10)")
	}
	seen := make(map[string]bool, len(names))
	tags := make([]models.Tag, 0, len(names))
	for _, name := range names {
		normalized := models.NormalizeTagName(name)
		if normalized == "" || seen[normalized] {
			continue
		}
		if len(normalized) > maxTagNameLen {
			return nil, models.NewValidationError("Tag name too long (max 50 characters)")
		}
		seen[normalized] = true
		tag, err := s.tagRepo.GetOrCreate(ctx, normalized, models.Slugify(normalized))
		if err != nil {
			return nil, err
		}
		tags = append(tags, *tag)
	}
	return tags, nil
}
