package service

import (
	"context"
	"strings"

	"crewdesk/internal/authz"
	"crewdesk/internal/models"
	"crewdesk/internal/repository"
)

type ProjectService struct {
	projectRepo repository.ProjectRepository
	userRepo    repository.UserRepository
}

func NewProjectService(projectRepo repository.ProjectRepository, userRepo repository.UserRepository) *ProjectService {
	return &ProjectService{projectRepo: projectRepo, userRepo: userRepo}
}

type CreateProjectInput struct {
	Name        string
	Description string
	MemberIDs   []uint
}

type UpdateProjectInput struct {
	Name        *string
	Description *string
	IsActive    *bool
}

const maxProjectNameLen = 200

// CreateProject is restricted to staff. The creator is recorded and always
// retains access even when not in the member list.
func (s *ProjectService) CreateProject(ctx context.Context, actor authz.Actor, in CreateProjectInput) (*models.Project, error) {
	if !authz.CanEditProject(actor) {
		return nil, models.NewPermissionError("Only staff can manage projects")
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, models.NewValidationError("Name is required")
	}
	if len(name) > maxProjectNameLen {
		return nil, models.NewValidationError("Name too long (max 200 characters)")
	}

	project := &models.Project{
		Name:        name,
		Description: in.Description,
		CreatedByID: actor.ID,
		IsActive:    true,
	}
	if err := s.projectRepo.Create(ctx, project); err != nil {
		return nil, err
	}
	for _, userID := range in.MemberIDs {
		if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
			return nil, err
		}
		if err := s.projectRepo.AddMember(ctx, project.ID, userID); err != nil {
			return nil, err
		}
	}
	return s.projectRepo.GetByID(ctx, project.ID)
}

// GetProject resolves a project the actor can see. An invisible project is
// indistinguishable from a missing one.
func (s *ProjectService) GetProject(ctx context.Context, actor authz.Actor, id uint) (*models.Project, error) {
	project, err := s.projectRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	isMember, err := s.projectRepo.IsMember(ctx, id, actor.ID)
	if err != nil {
		return nil, err
	}
	if !authz.CanViewProject(actor, project, isMember) {
		return nil, models.NewNotFoundError("Project")
	}
	return project, nil
}

func (s *ProjectService) ListProjects(ctx context.Context, actor authz.Actor, limit, offset int) ([]*models.Project, int64, error) {
	if !actor.Authenticated() {
		return nil, 0, models.NewUnauthorizedError("Authentication required")
	}
	return s.projectRepo.ListVisible(ctx, viewerProjects(actor), limit, offset)
}

func (s *ProjectService) UpdateProject(ctx context.Context, actor authz.Actor, id uint, in UpdateProjectInput) (*models.Project, error) {
	project, err := s.GetProject(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !authz.CanEditProject(actor) {
		return nil, models.NewPermissionError("Only staff can manage projects")
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, models.NewValidationError("Name is required")
		}
		if len(name) > maxProjectNameLen {
			return nil, models.NewValidationError("Name too long (max 200 characters)")
		}
		project.Name = name
	}
	applyString(&project.Description, in.Description)
	if in.IsActive != nil {
		project.IsActive = *in.IsActive
	}

	if err := s.projectRepo.Update(ctx, project); err != nil {
		return nil, err
	}
	return s.projectRepo.GetByID(ctx, id)
}

func (s *ProjectService) DeleteProject(ctx context.Context, actor authz.Actor, id uint) error {
	if _, err := s.GetProject(ctx, actor, id); err != nil {
		return err
	}
	if !authz.CanEditProject(actor) {
		return models.NewPermissionError("Only staff can manage projects")
	}
	return s.projectRepo.Delete(ctx, id)
}

// AddMember grants a user access to the project's tasks. Adding an
// existing member is a no-op.
func (s *ProjectService) AddMember(ctx context.Context, actor authz.Actor, projectID, userID uint) (*models.Project, error) {
	if _, err := s.GetProject(ctx, actor, projectID); err != nil {
		return nil, err
	}
	if !authz.CanEditProject(actor) {
		return nil, models.NewPermissionError("Only staff can manage project members")
	}
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	already, err := s.projectRepo.IsMember(ctx, projectID, userID)
	if err != nil {
		return nil, err
	}
	if !already {
		if err := s.projectRepo.AddMember(ctx, projectID, userID); err != nil {
			return nil, err
		}
	}
	return s.projectRepo.GetByID(ctx, projectID)
}

func (s *ProjectService) RemoveMember(ctx context.Context, actor authz.Actor, projectID, userID uint) (*models.Project, error) {
	if _, err := s.GetProject(ctx, actor, projectID); err != nil {
		return nil, err
	}
	if !authz.CanEditProject(actor) {
		return nil, models.NewPermissionError("Only staff can manage project members")
	}
	if err := s.projectRepo.RemoveMember(ctx, projectID, userID); err != nil {
		return nil, err
	}
	return s.projectRepo.GetByID(ctx, projectID)
}

// viewerProjects maps an actor for project listings, where only admins see
// everything. Moderators still only see their own projects.
func viewerProjects(a authz.Actor) repository.Viewer {
	return repository.Viewer{UserID: a.ID, Staff: a.CanAdmin()}
}
