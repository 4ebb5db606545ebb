package repository

import (
	"context"
	"errors"
	"time"

	"crewdesk/internal/models"

	"gorm.io/gorm"
)

// TaskFilter narrows and pages task listings.
type TaskFilter struct {
	ProjectID    uint
	Status       models.TaskStatus
	Priority     models.TaskPriority
	AssignedToID uint
	Search       string
	Sort         string
	Limit        int
	Offset       int
}

// TaskStats aggregates task counts over a visible set.
type TaskStats struct {
	Total      int64            `json:"total"`
	ByStatus   map[string]int64 `json:"by_status"`
	ByPriority map[string]int64 `json:"by_priority"`
	Overdue    int64            `json:"overdue"`
}

// TaskRepository defines persistence operations for tasks.
type TaskRepository interface {
	Create(ctx context.Context, task *models.Task) error
	GetByID(ctx context.Context, id uint) (*models.Task, error)
	ListVisible(ctx context.Context, viewer Viewer, filter TaskFilter) ([]*models.Task, int64, error)
	ListAssignedOrCreated(ctx context.Context, userID uint, limit, offset int) ([]*models.Task, int64, error)
	ListOverdue(ctx context.Context, viewer Viewer, limit, offset int) ([]*models.Task, int64, error)
	Update(ctx context.Context, task *models.Task) error
	Delete(ctx context.Context, id uint) error
	Stats(ctx context.Context, viewer Viewer) (*TaskStats, error)

	AddComment(ctx context.Context, comment *models.TaskComment) error
	ListComments(ctx context.Context, taskID uint) ([]*models.TaskComment, error)

	AddAttachment(ctx context.Context, attachment *models.TaskAttachment) error
	ListAttachments(ctx context.Context, taskID uint) ([]*models.TaskAttachment, error)
	GetAttachment(ctx context.Context, id uint) (*models.TaskAttachment, error)
	DeleteAttachment(ctx context.Context, id uint) error
}

type taskRepository struct {
	db *gorm.DB
}

// NewTaskRepository returns a new TaskRepository implementation.
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &taskRepository{db: db}
}

// applyVisibility narrows the query to tasks the viewer may see: staff see
// everything, others see tasks in projects they created or belong to, plus
// tasks they created or were assigned.
func (r *taskRepository) applyVisibility(db *gorm.DB, viewer Viewer) *gorm.DB {
	if viewer.Staff {
		return db
	}
	return db.
		Joins("JOIN projects ON projects.id = tasks.project_id").
		Where("projects.created_by_id = ? "+
			"OR EXISTS(SELECT 1 FROM project_members WHERE project_members.project_id = projects.id AND project_members.user_id = ?) "+
			"OR tasks.created_by_id = ? OR tasks.assigned_to_id = ?",
			viewer.UserID, viewer.UserID, viewer.UserID, viewer.UserID)
}

func (r *taskRepository) applySort(db *gorm.DB, sort string) *gorm.DB {
	switch sort {
	case "due_date":
		return db.Order("tasks.due_date ASC")
	case "priority":
		// urgent > high > medium > low
		return db.Order("CASE tasks.priority WHEN 'urgent' THEN 0 WHEN 'high' THEN 1 WHEN 'medium' THEN 2 ELSE 3 END ASC, tasks.due_date ASC")
	case "oldest":
		return db.Order("tasks.created_at ASC")
	default:
		return db.Order("tasks.created_at DESC")
	}
}

func (r *taskRepository) Create(ctx context.Context, task *models.Task) error {
	if err := r.db.WithContext(ctx).
		Omit("Project", "AssignedTo", "CreatedBy", "Comments", "Attachments").
		Create(task).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *taskRepository) GetByID(ctx context.Context, id uint) (*models.Task, error) {
	var task models.Task
	err := readDB(r.db).WithContext(ctx).
		Preload("Project").
		Preload("AssignedTo").
		Preload("CreatedBy").
		First(&task, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Task")
		}
		return nil, models.NewInternalError(err)
	}
	task.ComputeDueState(time.Now())
	return &task, nil
}

func (r *taskRepository) ListVisible(ctx context.Context, viewer Viewer, filter TaskFilter) ([]*models.Task, int64, error) {
	base := r.applyVisibility(readDB(r.db).WithContext(ctx).Model(&models.Task{}), viewer)

	if filter.ProjectID != 0 {
		base = base.Where("tasks.project_id = ?", filter.ProjectID)
	}
	if filter.Status != "" {
		base = base.Where("tasks.status = ?", filter.Status)
	}
	if filter.Priority != "" {
		base = base.Where("tasks.priority = ?", filter.Priority)
	}
	if filter.AssignedToID != 0 {
		base = base.Where("tasks.assigned_to_id = ?", filter.AssignedToID)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		base = base.Where("tasks.title LIKE ? OR tasks.description LIKE ?", like, like)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Distinct("tasks.id").Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	var tasks []*models.Task
	err := r.applySort(base, filter.Sort).
		Preload("Project").
		Preload("AssignedTo").
		Preload("CreatedBy").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&tasks).Error
	if err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	now := time.Now()
	for _, t := range tasks {
		t.ComputeDueState(now)
	}
	return tasks, total, nil
}

// ListAssignedOrCreated returns the user's own tasks regardless of project.
func (r *taskRepository) ListAssignedOrCreated(ctx context.Context, userID uint, limit, offset int) ([]*models.Task, int64, error) {
	base := readDB(r.db).WithContext(ctx).Model(&models.Task{}).
		Where("tasks.created_by_id = ? OR tasks.assigned_to_id = ?", userID, userID)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	var tasks []*models.Task
	err := base.Preload("Project").
		Preload("AssignedTo").
		Preload("CreatedBy").
		Order("tasks.due_date ASC").
		Limit(limit).
		Offset(offset).
		Find(&tasks).Error
	if err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	now := time.Now()
	for _, t := range tasks {
		t.ComputeDueState(now)
	}
	return tasks, total, nil
}

// overdueStatuses are the workflow states counted as actionable when a task
// slips past its due date. Tasks in review, completed, or cancelled are not
// listed as overdue.
var overdueStatuses = []models.TaskStatus{models.TaskStatusTodo, models.TaskStatusInProgress}

// ListOverdue returns visible tasks past their due date still awaiting work.
func (r *taskRepository) ListOverdue(ctx context.Context, viewer Viewer, limit, offset int) ([]*models.Task, int64, error) {
	base := r.applyVisibility(readDB(r.db).WithContext(ctx).Model(&models.Task{}), viewer).
		Where("tasks.due_date < ? AND tasks.status IN ?", time.Now(), overdueStatuses)

	var total int64
	if err := base.Session(&gorm.Session{}).Distinct("tasks.id").Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	var tasks []*models.Task
	err := base.Preload("Project").
		Preload("AssignedTo").
		Preload("CreatedBy").
		Order("tasks.due_date ASC").
		Limit(limit).
		Offset(offset).
		Find(&tasks).Error
	if err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	now := time.Now()
	for _, t := range tasks {
		t.ComputeDueState(now)
	}
	return tasks, total, nil
}

func (r *taskRepository) Update(ctx context.Context, task *models.Task) error {
	if err := r.db.WithContext(ctx).
		Omit("Project", "AssignedTo", "CreatedBy", "Comments", "Attachments").
		Save(task).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *taskRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Task{}, id)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Task")
	}
	return nil
}

func (r *taskRepository) Stats(ctx context.Context, viewer Viewer) (*TaskStats, error) {
	stats := &TaskStats{
		ByStatus:   make(map[string]int64),
		ByPriority: make(map[string]int64),
	}

	visible := func() *gorm.DB {
		return r.applyVisibility(readDB(r.db).WithContext(ctx).Model(&models.Task{}), viewer)
	}

	if err := visible().Distinct("tasks.id").Count(&stats.Total).Error; err != nil {
		return nil, models.NewInternalError(err)
	}

	type bucket struct {
		Key   string
		Count int64
	}

	var byStatus []bucket
	if err := visible().
		Select("tasks.status as key, COUNT(DISTINCT tasks.id) as count").
		Group("tasks.status").
		Scan(&byStatus).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, b := range byStatus {
		stats.ByStatus[b.Key] = b.Count
	}

	var byPriority []bucket
	if err := visible().
		Select("tasks.priority as key, COUNT(DISTINCT tasks.id) as count").
		Group("tasks.priority").
		Scan(&byPriority).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, b := range byPriority {
		stats.ByPriority[b.Key] = b.Count
	}

	if err := visible().
		Where("tasks.due_date < ? AND tasks.status IN ?", time.Now(), overdueStatuses).
		Distinct("tasks.id").
		Count(&stats.Overdue).Error; err != nil {
		return nil, models.NewInternalError(err)
	}

	return stats, nil
}

func (r *taskRepository) AddComment(ctx context.Context, comment *models.TaskComment) error {
	if err := r.db.WithContext(ctx).Omit("User", "Task").Create(comment).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *taskRepository) ListComments(ctx context.Context, taskID uint) ([]*models.TaskComment, error) {
	var comments []*models.TaskComment
	err := readDB(r.db).WithContext(ctx).
		Preload("User").
		Where("task_id = ?", taskID).
		Order("created_at ASC").
		Find(&comments).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return comments, nil
}

func (r *taskRepository) AddAttachment(ctx context.Context, attachment *models.TaskAttachment) error {
	if err := r.db.WithContext(ctx).Omit("UploadedBy", "Task").Create(attachment).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("Attachment already exists")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *taskRepository) ListAttachments(ctx context.Context, taskID uint) ([]*models.TaskAttachment, error) {
	var attachments []*models.TaskAttachment
	err := readDB(r.db).WithContext(ctx).
		Preload("UploadedBy").
		Where("task_id = ?", taskID).
		Order("created_at ASC").
		Find(&attachments).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return attachments, nil
}

func (r *taskRepository) GetAttachment(ctx context.Context, id uint) (*models.TaskAttachment, error) {
	var attachment models.TaskAttachment
	err := readDB(r.db).WithContext(ctx).Preload("UploadedBy").First(&attachment, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Attachment")
		}
		return nil, models.NewInternalError(err)
	}
	return &attachment, nil
}

func (r *taskRepository) DeleteAttachment(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.TaskAttachment{}, id)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Attachment")
	}
	return nil
}
