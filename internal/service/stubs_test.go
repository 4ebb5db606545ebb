package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"crewdesk/internal/authz"
	"crewdesk/internal/models"
	"crewdesk/internal/repository"
)

// Repo stubs used across the service tests. Each mirrors a repository
// interface with one overridable func per method; the noop constructors
// return permissive defaults so tests override only what they assert on.

type userRepoStub struct {
	getByIDFn            func(context.Context, uint) (*models.User, error)
	getByIDWithProfileFn func(context.Context, uint) (*models.User, error)
	getByEmailFn         func(context.Context, string) (*models.User, error)
	getByUsernameFn      func(context.Context, string) (*models.User, error)
	createFn             func(context.Context, *models.User) error
	updateFn             func(context.Context, *models.User) error
	updateRoleFn         func(context.Context, uint, models.Role) error
	deleteFn             func(context.Context, uint) error
	listFn               func(context.Context, int, int) ([]models.User, int64, error)
	upsertProfileFn      func(context.Context, *models.Profile) error
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByIDWithProfile(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDWithProfileFn(ctx, id)
}
func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getByEmailFn(ctx, email)
}
func (s *userRepoStub) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getByUsernameFn(ctx, username)
}
func (s *userRepoStub) Create(ctx context.Context, u *models.User) error { return s.createFn(ctx, u) }
func (s *userRepoStub) Update(ctx context.Context, u *models.User) error { return s.updateFn(ctx, u) }
func (s *userRepoStub) UpdateRole(ctx context.Context, id uint, role models.Role) error {
	return s.updateRoleFn(ctx, id, role)
}
func (s *userRepoStub) Delete(ctx context.Context, id uint) error { return s.deleteFn(ctx, id) }
func (s *userRepoStub) List(ctx context.Context, limit, offset int) ([]models.User, int64, error) {
	return s.listFn(ctx, limit, offset)
}
func (s *userRepoStub) UpsertProfile(ctx context.Context, p *models.Profile) error {
	return s.upsertProfileFn(ctx, p)
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		getByIDFn: func(_ context.Context, id uint) (*models.User, error) {
			return &models.User{ID: id, IsActive: true, Role: models.RoleUser}, nil
		},
		getByIDWithProfileFn: func(_ context.Context, id uint) (*models.User, error) {
			return &models.User{ID: id, IsActive: true, Role: models.RoleUser}, nil
		},
		getByEmailFn:    func(_ context.Context, _ string) (*models.User, error) { return nil, nil },
		getByUsernameFn: func(_ context.Context, _ string) (*models.User, error) { return nil, nil },
		createFn:        func(_ context.Context, _ *models.User) error { return nil },
		updateFn:        func(_ context.Context, _ *models.User) error { return nil },
		updateRoleFn:    func(_ context.Context, _ uint, _ models.Role) error { return nil },
		deleteFn:        func(_ context.Context, _ uint) error { return nil },
		listFn:          func(_ context.Context, _, _ int) ([]models.User, int64, error) { return nil, 0, nil },
		upsertProfileFn: func(_ context.Context, _ *models.Profile) error { return nil },
	}
}

type postRepoStub struct {
	createFn         func(context.Context, *models.Post) error
	getByIDFn        func(context.Context, uint, repository.Viewer) (*models.Post, error)
	getBySlugFn      func(context.Context, string, repository.Viewer) (*models.Post, error)
	listFn           func(context.Context, repository.Viewer, repository.PostFilter) ([]*models.Post, int64, error)
	updateFn         func(context.Context, *models.Post) error
	replaceTagsFn    func(context.Context, *models.Post, []models.Tag) error
	deleteFn         func(context.Context, *models.Post) error
	incrementViewsFn func(context.Context, uint) error
	toggleLikeFn     func(context.Context, uint, uint) (bool, int64, error)
	toggleBookmarkFn func(context.Context, uint, uint) (bool, error)
	listBookmarkedFn func(context.Context, uint, int, int) ([]*models.Post, int64, error)
	statsFn          func(context.Context, uint) (*repository.PostStats, error)
}

func (s *postRepoStub) Create(ctx context.Context, p *models.Post) error { return s.createFn(ctx, p) }
func (s *postRepoStub) GetByID(ctx context.Context, id uint, v repository.Viewer) (*models.Post, error) {
	return s.getByIDFn(ctx, id, v)
}
func (s *postRepoStub) GetBySlug(ctx context.Context, slug string, v repository.Viewer) (*models.Post, error) {
	return s.getBySlugFn(ctx, slug, v)
}
func (s *postRepoStub) List(ctx context.Context, v repository.Viewer, f repository.PostFilter) ([]*models.Post, int64, error) {
	return s.listFn(ctx, v, f)
}
func (s *postRepoStub) Update(ctx context.Context, p *models.Post) error { return s.updateFn(ctx, p) }
func (s *postRepoStub) ReplaceTags(ctx context.Context, p *models.Post, tags []models.Tag) error {
	return s.replaceTagsFn(ctx, p, tags)
}
func (s *postRepoStub) Delete(ctx context.Context, p *models.Post) error { return s.deleteFn(ctx, p) }
func (s *postRepoStub) IncrementViews(ctx context.Context, id uint) error {
	return s.incrementViewsFn(ctx, id)
}
func (s *postRepoStub) ToggleLike(ctx context.Context, postID, userID uint) (bool, int64, error) {
	return s.toggleLikeFn(ctx, postID, userID)
}
func (s *postRepoStub) ToggleBookmark(ctx context.Context, postID, userID uint) (bool, error) {
	return s.toggleBookmarkFn(ctx, postID, userID)
}
func (s *postRepoStub) ListBookmarked(ctx context.Context, userID uint, limit, offset int) ([]*models.Post, int64, error) {
	return s.listBookmarkedFn(ctx, userID, limit, offset)
}
func (s *postRepoStub) Stats(ctx context.Context, postID uint) (*repository.PostStats, error) {
	return s.statsFn(ctx, postID)
}

func noopPostRepo() *postRepoStub {
	return &postRepoStub{
		createFn: func(_ context.Context, p *models.Post) error {
			p.ID = 1
			return nil
		},
		getByIDFn: func(_ context.Context, id uint, _ repository.Viewer) (*models.Post, error) {
			return &models.Post{ID: id, AllowComments: true}, nil
		},
		getBySlugFn: func(_ context.Context, slug string, _ repository.Viewer) (*models.Post, error) {
			return &models.Post{ID: 1, Slug: slug, AllowComments: true}, nil
		},
		listFn: func(_ context.Context, _ repository.Viewer, _ repository.PostFilter) ([]*models.Post, int64, error) {
			return nil, 0, nil
		},
		updateFn:         func(_ context.Context, _ *models.Post) error { return nil },
		replaceTagsFn:    func(_ context.Context, _ *models.Post, _ []models.Tag) error { return nil },
		deleteFn:         func(_ context.Context, _ *models.Post) error { return nil },
		incrementViewsFn: func(_ context.Context, _ uint) error { return nil },
		toggleLikeFn:     func(_ context.Context, _, _ uint) (bool, int64, error) { return true, 1, nil },
		toggleBookmarkFn: func(_ context.Context, _, _ uint) (bool, error) { return true, nil },
		listBookmarkedFn: func(_ context.Context, _ uint, _, _ int) ([]*models.Post, int64, error) {
			return nil, 0, nil
		},
		statsFn: func(_ context.Context, postID uint) (*repository.PostStats, error) {
			return &repository.PostStats{PostID: postID}, nil
		},
	}
}

type tagRepoStub struct {
	getOrCreateFn func(context.Context, string, string) (*models.Tag, error)
	getBySlugFn   func(context.Context, string) (*models.Tag, error)
	listFn        func(context.Context) ([]*models.Tag, error)
	deleteFn      func(context.Context, uint) error
}

func (s *tagRepoStub) GetOrCreate(ctx context.Context, name, slug string) (*models.Tag, error) {
	return s.getOrCreateFn(ctx, name, slug)
}
func (s *tagRepoStub) GetBySlug(ctx context.Context, slug string) (*models.Tag, error) {
	return s.getBySlugFn(ctx, slug)
}
func (s *tagRepoStub) List(ctx context.Context) ([]*models.Tag, error) { return s.listFn(ctx) }
func (s *tagRepoStub) Delete(ctx context.Context, id uint) error       { return s.deleteFn(ctx, id) }

func noopTagRepo() *tagRepoStub {
	var nextID uint
	return &tagRepoStub{
		getOrCreateFn: func(_ context.Context, name, slug string) (*models.Tag, error) {
			nextID++
			return &models.Tag{ID: nextID, Name: name, Slug: slug}, nil
		},
		getBySlugFn: func(_ context.Context, slug string) (*models.Tag, error) {
			return &models.Tag{ID: 1, Slug: slug}, nil
		},
		listFn:   func(_ context.Context) ([]*models.Tag, error) { return nil, nil },
		deleteFn: func(_ context.Context, _ uint) error { return nil },
	}
}

type categoryRepoStub struct {
	createFn            func(context.Context, *models.Category) error
	getByIDFn           func(context.Context, uint) (*models.Category, error)
	getBySlugFn         func(context.Context, string) (*models.Category, error)
	listFn              func(context.Context, bool) ([]*models.Category, error)
	listChildrenFn      func(context.Context, uint) ([]*models.Category, error)
	updateFn            func(context.Context, *models.Category) error
	deactivateFn        func(context.Context, uint) error
	statsFn             func(context.Context, uint) (*repository.CategoryStats, error)
	hasActiveChildrenFn func(context.Context, uint) (bool, error)
}

func (s *categoryRepoStub) Create(ctx context.Context, c *models.Category) error {
	return s.createFn(ctx, c)
}
func (s *categoryRepoStub) GetByID(ctx context.Context, id uint) (*models.Category, error) {
	return s.getByIDFn(ctx, id)
}
func (s *categoryRepoStub) GetBySlug(ctx context.Context, slug string) (*models.Category, error) {
	return s.getBySlugFn(ctx, slug)
}
func (s *categoryRepoStub) List(ctx context.Context, includeInactive bool) ([]*models.Category, error) {
	return s.listFn(ctx, includeInactive)
}
func (s *categoryRepoStub) ListChildren(ctx context.Context, parentID uint) ([]*models.Category, error) {
	return s.listChildrenFn(ctx, parentID)
}
func (s *categoryRepoStub) Update(ctx context.Context, c *models.Category) error {
	return s.updateFn(ctx, c)
}
func (s *categoryRepoStub) Deactivate(ctx context.Context, id uint) error {
	return s.deactivateFn(ctx, id)
}
func (s *categoryRepoStub) Stats(ctx context.Context, id uint) (*repository.CategoryStats, error) {
	return s.statsFn(ctx, id)
}
func (s *categoryRepoStub) HasActiveChildren(ctx context.Context, id uint) (bool, error) {
	return s.hasActiveChildrenFn(ctx, id)
}

func noopCategoryRepo() *categoryRepoStub {
	return &categoryRepoStub{
		createFn: func(_ context.Context, c *models.Category) error {
			c.ID = 1
			return nil
		},
		getByIDFn: func(_ context.Context, id uint) (*models.Category, error) {
			return &models.Category{ID: id, IsActive: true}, nil
		},
		getBySlugFn: func(_ context.Context, slug string) (*models.Category, error) {
			return &models.Category{ID: 1, Slug: slug, IsActive: true}, nil
		},
		listFn:              func(_ context.Context, _ bool) ([]*models.Category, error) { return nil, nil },
		listChildrenFn:      func(_ context.Context, _ uint) ([]*models.Category, error) { return nil, nil },
		updateFn:            func(_ context.Context, _ *models.Category) error { return nil },
		deactivateFn:        func(_ context.Context, _ uint) error { return nil },
		statsFn:             func(_ context.Context, id uint) (*repository.CategoryStats, error) { return &repository.CategoryStats{CategoryID: id}, nil },
		hasActiveChildrenFn: func(_ context.Context, _ uint) (bool, error) { return false, nil },
	}
}

type commentRepoStub struct {
	createFn      func(context.Context, *models.Comment) error
	getByIDFn     func(context.Context, uint) (*models.Comment, error)
	listByPostFn  func(context.Context, uint, bool) ([]*models.Comment, error)
	listRepliesFn func(context.Context, uint, bool) ([]*models.Comment, error)
	listPendingFn func(context.Context, int, int) ([]*models.Comment, int64, error)
	updateFn      func(context.Context, *models.Comment) error
	setApprovalFn func(context.Context, uint, bool) error
	deleteFn      func(context.Context, uint) error
}

func (s *commentRepoStub) Create(ctx context.Context, c *models.Comment) error {
	return s.createFn(ctx, c)
}
func (s *commentRepoStub) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	return s.getByIDFn(ctx, id)
}
func (s *commentRepoStub) ListByPost(ctx context.Context, postID uint, includeUnapproved bool) ([]*models.Comment, error) {
	return s.listByPostFn(ctx, postID, includeUnapproved)
}
func (s *commentRepoStub) ListReplies(ctx context.Context, parentID uint, includeUnapproved bool) ([]*models.Comment, error) {
	return s.listRepliesFn(ctx, parentID, includeUnapproved)
}
func (s *commentRepoStub) ListPending(ctx context.Context, limit, offset int) ([]*models.Comment, int64, error) {
	return s.listPendingFn(ctx, limit, offset)
}
func (s *commentRepoStub) Update(ctx context.Context, c *models.Comment) error {
	return s.updateFn(ctx, c)
}
func (s *commentRepoStub) SetApproval(ctx context.Context, id uint, approved bool) error {
	return s.setApprovalFn(ctx, id, approved)
}
func (s *commentRepoStub) Delete(ctx context.Context, id uint) error { return s.deleteFn(ctx, id) }

func noopCommentRepo() *commentRepoStub {
	return &commentRepoStub{
		createFn: func(_ context.Context, c *models.Comment) error {
			c.ID = 1
			return nil
		},
		getByIDFn: func(_ context.Context, id uint) (*models.Comment, error) {
			return &models.Comment{ID: id, PostID: 1, AuthorID: 1, IsApproved: true}, nil
		},
		listByPostFn:  func(_ context.Context, _ uint, _ bool) ([]*models.Comment, error) { return nil, nil },
		listRepliesFn: func(_ context.Context, _ uint, _ bool) ([]*models.Comment, error) { return nil, nil },
		listPendingFn: func(_ context.Context, _, _ int) ([]*models.Comment, int64, error) {
			return nil, 0, nil
		},
		updateFn:      func(_ context.Context, _ *models.Comment) error { return nil },
		setApprovalFn: func(_ context.Context, _ uint, _ bool) error { return nil },
		deleteFn:      func(_ context.Context, _ uint) error { return nil },
	}
}

type projectRepoStub struct {
	createFn       func(context.Context, *models.Project) error
	getByIDFn      func(context.Context, uint) (*models.Project, error)
	listVisibleFn  func(context.Context, repository.Viewer, int, int) ([]*models.Project, int64, error)
	updateFn       func(context.Context, *models.Project) error
	deleteFn       func(context.Context, uint) error
	addMemberFn    func(context.Context, uint, uint) error
	removeMemberFn func(context.Context, uint, uint) error
	isMemberFn     func(context.Context, uint, uint) (bool, error)
}

func (s *projectRepoStub) Create(ctx context.Context, p *models.Project) error {
	return s.createFn(ctx, p)
}
func (s *projectRepoStub) GetByID(ctx context.Context, id uint) (*models.Project, error) {
	return s.getByIDFn(ctx, id)
}
func (s *projectRepoStub) ListVisible(ctx context.Context, v repository.Viewer, limit, offset int) ([]*models.Project, int64, error) {
	return s.listVisibleFn(ctx, v, limit, offset)
}
func (s *projectRepoStub) Update(ctx context.Context, p *models.Project) error {
	return s.updateFn(ctx, p)
}
func (s *projectRepoStub) Delete(ctx context.Context, id uint) error { return s.deleteFn(ctx, id) }
func (s *projectRepoStub) AddMember(ctx context.Context, projectID, userID uint) error {
	return s.addMemberFn(ctx, projectID, userID)
}
func (s *projectRepoStub) RemoveMember(ctx context.Context, projectID, userID uint) error {
	return s.removeMemberFn(ctx, projectID, userID)
}
func (s *projectRepoStub) IsMember(ctx context.Context, projectID, userID uint) (bool, error) {
	return s.isMemberFn(ctx, projectID, userID)
}

func noopProjectRepo() *projectRepoStub {
	return &projectRepoStub{
		createFn: func(_ context.Context, p *models.Project) error {
			p.ID = 1
			return nil
		},
		getByIDFn: func(_ context.Context, id uint) (*models.Project, error) {
			return &models.Project{ID: id, CreatedByID: 1, IsActive: true}, nil
		},
		listVisibleFn: func(_ context.Context, _ repository.Viewer, _, _ int) ([]*models.Project, int64, error) {
			return nil, 0, nil
		},
		updateFn:       func(_ context.Context, _ *models.Project) error { return nil },
		deleteFn:       func(_ context.Context, _ uint) error { return nil },
		addMemberFn:    func(_ context.Context, _, _ uint) error { return nil },
		removeMemberFn: func(_ context.Context, _, _ uint) error { return nil },
		isMemberFn:     func(_ context.Context, _, _ uint) (bool, error) { return false, nil },
	}
}

type taskRepoStub struct {
	createFn                func(context.Context, *models.Task) error
	getByIDFn               func(context.Context, uint) (*models.Task, error)
	listVisibleFn           func(context.Context, repository.Viewer, repository.TaskFilter) ([]*models.Task, int64, error)
	listAssignedOrCreatedFn func(context.Context, uint, int, int) ([]*models.Task, int64, error)
	listOverdueFn           func(context.Context, repository.Viewer, int, int) ([]*models.Task, int64, error)
	updateFn                func(context.Context, *models.Task) error
	deleteFn                func(context.Context, uint) error
	statsFn                 func(context.Context, repository.Viewer) (*repository.TaskStats, error)
	addCommentFn            func(context.Context, *models.TaskComment) error
	listCommentsFn          func(context.Context, uint) ([]*models.TaskComment, error)
	addAttachmentFn         func(context.Context, *models.TaskAttachment) error
	listAttachmentsFn       func(context.Context, uint) ([]*models.TaskAttachment, error)
	getAttachmentFn         func(context.Context, uint) (*models.TaskAttachment, error)
	deleteAttachmentFn      func(context.Context, uint) error
}

func (s *taskRepoStub) Create(ctx context.Context, t *models.Task) error { return s.createFn(ctx, t) }
func (s *taskRepoStub) GetByID(ctx context.Context, id uint) (*models.Task, error) {
	return s.getByIDFn(ctx, id)
}
func (s *taskRepoStub) ListVisible(ctx context.Context, v repository.Viewer, f repository.TaskFilter) ([]*models.Task, int64, error) {
	return s.listVisibleFn(ctx, v, f)
}
func (s *taskRepoStub) ListAssignedOrCreated(ctx context.Context, userID uint, limit, offset int) ([]*models.Task, int64, error) {
	return s.listAssignedOrCreatedFn(ctx, userID, limit, offset)
}
func (s *taskRepoStub) ListOverdue(ctx context.Context, v repository.Viewer, limit, offset int) ([]*models.Task, int64, error) {
	return s.listOverdueFn(ctx, v, limit, offset)
}
func (s *taskRepoStub) Update(ctx context.Context, t *models.Task) error { return s.updateFn(ctx, t) }
func (s *taskRepoStub) Delete(ctx context.Context, id uint) error        { return s.deleteFn(ctx, id) }
func (s *taskRepoStub) Stats(ctx context.Context, v repository.Viewer) (*repository.TaskStats, error) {
	return s.statsFn(ctx, v)
}
func (s *taskRepoStub) AddComment(ctx context.Context, c *models.TaskComment) error {
	return s.addCommentFn(ctx, c)
}
func (s *taskRepoStub) ListComments(ctx context.Context, taskID uint) ([]*models.TaskComment, error) {
	return s.listCommentsFn(ctx, taskID)
}
func (s *taskRepoStub) AddAttachment(ctx context.Context, a *models.TaskAttachment) error {
	return s.addAttachmentFn(ctx, a)
}
func (s *taskRepoStub) ListAttachments(ctx context.Context, taskID uint) ([]*models.TaskAttachment, error) {
	return s.listAttachmentsFn(ctx, taskID)
}
func (s *taskRepoStub) GetAttachment(ctx context.Context, id uint) (*models.TaskAttachment, error) {
	return s.getAttachmentFn(ctx, id)
}
func (s *taskRepoStub) DeleteAttachment(ctx context.Context, id uint) error {
	return s.deleteAttachmentFn(ctx, id)
}

func noopTaskRepo() *taskRepoStub {
	return &taskRepoStub{
		createFn: func(_ context.Context, t *models.Task) error {
			t.ID = 1
			return nil
		},
		getByIDFn: func(_ context.Context, id uint) (*models.Task, error) {
			return &models.Task{ID: id, ProjectID: 1, CreatedByID: 1, Status: models.TaskStatusTodo}, nil
		},
		listVisibleFn: func(_ context.Context, _ repository.Viewer, _ repository.TaskFilter) ([]*models.Task, int64, error) {
			return nil, 0, nil
		},
		listAssignedOrCreatedFn: func(_ context.Context, _ uint, _, _ int) ([]*models.Task, int64, error) {
			return nil, 0, nil
		},
		listOverdueFn: func(_ context.Context, _ repository.Viewer, _, _ int) ([]*models.Task, int64, error) {
			return nil, 0, nil
		},
		updateFn: func(_ context.Context, _ *models.Task) error { return nil },
		deleteFn: func(_ context.Context, _ uint) error { return nil },
		statsFn: func(_ context.Context, _ repository.Viewer) (*repository.TaskStats, error) {
			return &repository.TaskStats{}, nil
		},
		addCommentFn: func(_ context.Context, c *models.TaskComment) error {
			c.ID = 1
			return nil
		},
		listCommentsFn: func(_ context.Context, _ uint) ([]*models.TaskComment, error) { return nil, nil },
		addAttachmentFn: func(_ context.Context, a *models.TaskAttachment) error {
			a.ID = 1
			return nil
		},
		listAttachmentsFn: func(_ context.Context, _ uint) ([]*models.TaskAttachment, error) {
			return nil, nil
		},
		getAttachmentFn: func(_ context.Context, id uint) (*models.TaskAttachment, error) {
			return &models.TaskAttachment{ID: id, TaskID: 1, UploadedByID: 1}, nil
		},
		deleteAttachmentFn: func(_ context.Context, _ uint) error { return nil },
	}
}

// Actor helpers.

func adminActor(id uint) authz.Actor {
	return authz.Actor{ID: id, Role: models.RoleAdmin, IsActive: true}
}

func moderatorActor(id uint) authz.Actor {
	return authz.Actor{ID: id, Role: models.RoleModerator, IsActive: true}
}

func userActor(id uint) authz.Actor {
	return authz.Actor{ID: id, Role: models.RoleUser, IsActive: true}
}

// Error assertions.

func assertAppErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, code, appErr.Code)
}

func assertValidationError(t *testing.T, err error) {
	t.Helper()
	assertAppErrorCode(t, err, models.CodeValidation)
}

func assertPermissionError(t *testing.T, err error) {
	t.Helper()
	assertAppErrorCode(t, err, models.CodeForbidden)
}

func assertNotFoundError(t *testing.T, err error) {
	t.Helper()
	assertAppErrorCode(t, err, models.CodeNotFound)
}

var errBoom = errors.New("boom")
