package repository

import (
	"context"
	"errors"

	"crewdesk/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProjectRepository defines persistence operations for projects.
type ProjectRepository interface {
	Create(ctx context.Context, project *models.Project) error
	GetByID(ctx context.Context, id uint) (*models.Project, error)
	ListVisible(ctx context.Context, viewer Viewer, limit, offset int) ([]*models.Project, int64, error)
	Update(ctx context.Context, project *models.Project) error
	Delete(ctx context.Context, id uint) error
	AddMember(ctx context.Context, projectID, userID uint) error
	RemoveMember(ctx context.Context, projectID, userID uint) error
	IsMember(ctx context.Context, projectID, userID uint) (bool, error)
}

type projectRepository struct {
	db *gorm.DB
}

// NewProjectRepository returns a new ProjectRepository implementation.
func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &projectRepository{db: db}
}

// withTaskCount selects projects together with their task count.
func (r *projectRepository) withTaskCount(db *gorm.DB) *gorm.DB {
	return db.Select("projects.*, " +
		"(SELECT COUNT(*) FROM tasks WHERE tasks.project_id = projects.id) as task_count")
}

func (r *projectRepository) Create(ctx context.Context, project *models.Project) error {
	if err := r.db.WithContext(ctx).Omit("CreatedBy", "Members").Create(project).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *projectRepository) GetByID(ctx context.Context, id uint) (*models.Project, error) {
	var project models.Project
	err := r.withTaskCount(readDB(r.db).WithContext(ctx).Model(&models.Project{})).
		Preload("CreatedBy").
		Preload("Members").
		First(&project, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Project")
		}
		return nil, models.NewInternalError(err)
	}
	return &project, nil
}

// ListVisible returns projects the viewer may see: admins see every project,
// everyone else sees projects they created or belong to.
func (r *projectRepository) ListVisible(ctx context.Context, viewer Viewer, limit, offset int) ([]*models.Project, int64, error) {
	base := readDB(r.db).WithContext(ctx).Model(&models.Project{})
	if !viewer.Staff {
		base = base.Where(
			"projects.created_by_id = ? OR EXISTS(SELECT 1 FROM project_members WHERE project_members.project_id = projects.id AND project_members.user_id = ?)",
			viewer.UserID, viewer.UserID)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	var projects []*models.Project
	err := r.withTaskCount(base).
		Preload("CreatedBy").
		Preload("Members").
		Order("projects.created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&projects).Error
	if err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return projects, total, nil
}

func (r *projectRepository) Update(ctx context.Context, project *models.Project) error {
	if err := r.db.WithContext(ctx).Omit("CreatedBy", "Members").Save(project).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *projectRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Select(clause.Associations).Delete(&models.Project{ID: id})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Project")
	}
	return nil
}

func (r *projectRepository) AddMember(ctx context.Context, projectID, userID uint) error {
	project := models.Project{ID: projectID}
	user := models.User{ID: userID}
	if err := r.db.WithContext(ctx).Model(&project).Association("Members").Append(&user); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *projectRepository) RemoveMember(ctx context.Context, projectID, userID uint) error {
	project := models.Project{ID: projectID}
	user := models.User{ID: userID}
	if err := r.db.WithContext(ctx).Model(&project).Association("Members").Delete(&user); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *projectRepository) IsMember(ctx context.Context, projectID, userID uint) (bool, error) {
	var count int64
	err := readDB(r.db).WithContext(ctx).
		Table("project_members").
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Count(&count).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}
