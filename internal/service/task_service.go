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

type TaskService struct {
	taskRepo    repository.TaskRepository
	projectRepo repository.ProjectRepository
	userRepo    repository.UserRepository
}

func NewTaskService(
	taskRepo repository.TaskRepository,
	projectRepo repository.ProjectRepository,
	userRepo repository.UserRepository,
) *TaskService {
	return &TaskService{
		taskRepo:    taskRepo,
		projectRepo: projectRepo,
		userRepo:    userRepo,
	}
}

type CreateTaskInput struct {
	Title          string
	Description    string
	DueDate        time.Time
	Priority       models.TaskPriority
	Status         models.TaskStatus
	ProjectID      uint
	AssignedToID   *uint
	EstimatedHours *uint
	Labels         string
}

type UpdateTaskInput struct {
	Title          *string
	Description    *string
	DueDate        *time.Time
	Priority       *models.TaskPriority
	Status         *models.TaskStatus
	AssignedToID   *uint
	// Unassign clears the assignee; it wins over AssignedToID.
	Unassign       bool
	EstimatedHours *uint
	ActualHours    *uint
	Labels         *string
}

type ListTasksInput struct {
	ProjectID    uint
	Status       models.TaskStatus
	Priority     models.TaskPriority
	AssignedToID uint
	Search       string
	Sort         string
	Limit        int
	Offset       int
}

const (
	maxTaskTitleLen = 200
	maxTaskLabels   = 500
	maxTaskHours    = 1000
)

// viewerTasks maps an actor for task queries: only admins see everything.
func viewerTasks(a authz.Actor) repository.Viewer {
	return repository.Viewer{UserID: a.ID, Staff: a.CanAdmin()}
}

// CreateTask creates a task in a project the actor can see. The assignee,
// when set, must be a member of the project or its creator.
func (s *TaskService) CreateTask(ctx context.Context, actor authz.Actor, in CreateTaskInput) (*models.Task, error) {
	if !authz.CanCreateTask(actor) {
		return nil, models.NewUnauthorizedError("Authentication required")
	}
	if err := validateTaskFields(in.Title, in.DueDate, in.EstimatedHours, nil, in.Labels); err != nil {
		return nil, err
	}
	priority := in.Priority
	if priority == "" {
		priority = models.TaskPriorityMedium
	}
	if !models.ValidTaskPriority(priority) {
		return nil, models.NewValidationError("Invalid priority")
	}
	status := in.Status
	if status == "" {
		status = models.TaskStatusTodo
	}
	if !models.ValidTaskStatus(status) {
		return nil, models.NewValidationError("Invalid status")
	}

	project, err := s.projectRepo.GetByID(ctx, in.ProjectID)
	if err != nil {
		return nil, err
	}
	isMember, err := s.projectRepo.IsMember(ctx, project.ID, actor.ID)
	if err != nil {
		return nil, err
	}
	if !authz.CanViewProject(actor, project, isMember) {
		return nil, models.NewNotFoundError("Project")
	}
	if in.AssignedToID != nil {
		if err := s.checkAssignee(ctx, project, *in.AssignedToID); err != nil {
			return nil, err
		}
	}

	task := &models.Task{
		Title:          strings.TrimSpace(in.Title),
		Description:    in.Description,
		DueDate:        in.DueDate,
		Priority:       priority,
		Status:         status,
		ProjectID:      project.ID,
		AssignedToID:   in.AssignedToID,
		CreatedByID:    actor.ID,
		EstimatedHours: in.EstimatedHours,
		Labels:         in.Labels,
	}
	if status == models.TaskStatusCompleted {
		now := time.Now()
		task.CompletedAt = &now
	}
	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, err
	}
	cache.Invalidate(ctx, cache.TaskStatsKey(actor.ID))
	return s.taskRepo.GetByID(ctx, task.ID)
}

// GetTask resolves a task the actor can see; invisible tasks read as
// missing.
func (s *TaskService) GetTask(ctx context.Context, actor authz.Actor, id uint) (*models.Task, error) {
	task, err := s.taskRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkTaskVisible(ctx, actor, task); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *TaskService) ListTasks(ctx context.Context, actor authz.Actor, in ListTasksInput) ([]*models.Task, int64, error) {
	if !actor.Authenticated() {
		return nil, 0, models.NewUnauthorizedError("Authentication required")
	}
	filter := repository.TaskFilter{
		ProjectID:    in.ProjectID,
		Status:       in.Status,
		Priority:     in.Priority,
		AssignedToID: in.AssignedToID,
		Search:       in.Search,
		Sort:         in.Sort,
		Limit:        in.Limit,
		Offset:       in.Offset,
	}
	return s.taskRepo.ListVisible(ctx, viewerTasks(actor), filter)
}

// MyTasks lists tasks the actor created or was assigned, across projects.
func (s *TaskService) MyTasks(ctx context.Context, actor authz.Actor, limit, offset int) ([]*models.Task, int64, error) {
	if !actor.Authenticated() {
		return nil, 0, models.NewUnauthorizedError("Authentication required")
	}
	return s.taskRepo.ListAssignedOrCreated(ctx, actor.ID, limit, offset)
}

func (s *TaskService) OverdueTasks(ctx context.Context, actor authz.Actor, limit, offset int) ([]*models.Task, int64, error) {
	if !actor.Authenticated() {
		return nil, 0, models.NewUnauthorizedError("Authentication required")
	}
	return s.taskRepo.ListOverdue(ctx, viewerTasks(actor), limit, offset)
}

// UpdateTask applies partial changes. Entering completed stamps
// CompletedAt; leaving completed clears it.
func (s *TaskService) UpdateTask(ctx context.Context, actor authz.Actor, id uint, in UpdateTaskInput) (*models.Task, error) {
	task, err := s.GetTask(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !authz.CanEditTask(actor, task) {
		return nil, models.NewPermissionError("Not allowed to edit this task")
	}

	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, models.NewValidationError("Title is required")
		}
		if len(title) > maxTaskTitleLen {
			return nil, models.NewValidationError("Title too long (max 200 characters)")
		}
		task.Title = title
	}
	if in.Description != nil {
		task.Description = *in.Description
	}
	if in.DueDate != nil {
		task.DueDate = *in.DueDate
	}
	if in.Priority != nil {
		if !models.ValidTaskPriority(*in.Priority) {
			return nil, models.NewValidationError("Invalid priority")
		}
		task.Priority = *in.Priority
	}
	if in.EstimatedHours != nil {
		if err := validateHours(*in.EstimatedHours); err != nil {
			return nil, err
		}
		task.EstimatedHours = in.EstimatedHours
	}
	if in.ActualHours != nil {
		if err := validateHours(*in.ActualHours); err != nil {
			return nil, err
		}
		task.ActualHours = in.ActualHours
	}
	if in.Labels != nil {
		if len(*in.Labels) > maxTaskLabels {
			return nil, models.NewValidationError("Labels too long (max 500 characters)")
		}
		task.Labels = *in.Labels
	}
	if in.Unassign {
		task.AssignedToID = nil
	} else if in.AssignedToID != nil {
		project, err := s.projectRepo.GetByID(ctx, task.ProjectID)
		if err != nil {
			return nil, err
		}
		if err := s.checkAssignee(ctx, project, *in.AssignedToID); err != nil {
			return nil, err
		}
		task.AssignedToID = in.AssignedToID
	}
	if in.Status != nil {
		if err := s.applyStatus(task, *in.Status); err != nil {
			return nil, err
		}
	}

	if err := s.taskRepo.Update(ctx, task); err != nil {
		return nil, err
	}
	cache.Invalidate(ctx, cache.TaskStatsKey(actor.ID))
	return s.taskRepo.GetByID(ctx, id)
}

// ChangeStatus is the single-field status action. Same coupling as
// UpdateTask: completed_at follows the status.
func (s *TaskService) ChangeStatus(ctx context.Context, actor authz.Actor, id uint, status models.TaskStatus) (*models.Task, error) {
	return s.UpdateTask(ctx, actor, id, UpdateTaskInput{Status: &status})
}

func (s *TaskService) DeleteTask(ctx context.Context, actor authz.Actor, id uint) error {
	task, err := s.GetTask(ctx, actor, id)
	if err != nil {
		return err
	}
	if !authz.CanEditTask(actor, task) {
		return models.NewPermissionError("Not allowed to delete this task")
	}
	if err := s.taskRepo.Delete(ctx, id); err != nil {
		return err
	}
	cache.Invalidate(ctx, cache.TaskStatsKey(actor.ID))
	return nil
}

// DashboardStats aggregates over the actor's visible set only.
func (s *TaskService) DashboardStats(ctx context.Context, actor authz.Actor) (*repository.TaskStats, error) {
	if !actor.Authenticated() {
		return nil, models.NewUnauthorizedError("Authentication required")
	}
	return cache.CacheAside(ctx, cache.TaskStatsKey(actor.ID), cache.StatsTTL, func(ctx context.Context) (*repository.TaskStats, error) {
		return s.taskRepo.Stats(ctx, viewerTasks(actor))
	})
}

// AddComment attaches a collaboration note to a task the actor can see.
func (s *TaskService) AddComment(ctx context.Context, actor authz.Actor, taskID uint, text string) (*models.TaskComment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, models.NewValidationError("Comment is required")
	}
	if _, err := s.GetTask(ctx, actor, taskID); err != nil {
		return nil, err
	}
	comment := &models.TaskComment{TaskID: taskID, UserID: actor.ID, Comment: text}
	if err := s.taskRepo.AddComment(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

func (s *TaskService) ListComments(ctx context.Context, actor authz.Actor, taskID uint) ([]*models.TaskComment, error) {
	if _, err := s.GetTask(ctx, actor, taskID); err != nil {
		return nil, err
	}
	return s.taskRepo.ListComments(ctx, taskID)
}

// AddAttachment records file metadata for a task the actor can see. The
// storage key must be unique; the blob itself lives elsewhere.
func (s *TaskService) AddAttachment(ctx context.Context, actor authz.Actor, taskID uint, filename, storageKey string) (*models.TaskAttachment, error) {
	if strings.TrimSpace(filename) == "" {
		return nil, models.NewValidationError("Filename is required")
	}
	if strings.TrimSpace(storageKey) == "" {
		return nil, models.NewValidationError("Storage key is required")
	}
	if _, err := s.GetTask(ctx, actor, taskID); err != nil {
		return nil, err
	}
	attachment := &models.TaskAttachment{
		TaskID:       taskID,
		Filename:     filename,
		StorageKey:   storageKey,
		UploadedByID: actor.ID,
	}
	if err := s.taskRepo.AddAttachment(ctx, attachment); err != nil {
		return nil, err
	}
	return attachment, nil
}

func (s *TaskService) ListAttachments(ctx context.Context, actor authz.Actor, taskID uint) ([]*models.TaskAttachment, error) {
	if _, err := s.GetTask(ctx, actor, taskID); err != nil {
		return nil, err
	}
	return s.taskRepo.ListAttachments(ctx, taskID)
}

// DeleteAttachment removes attachment metadata; the uploader, the task's
// editors, or staff may remove it.
func (s *TaskService) DeleteAttachment(ctx context.Context, actor authz.Actor, attachmentID uint) error {
	attachment, err := s.taskRepo.GetAttachment(ctx, attachmentID)
	if err != nil {
		return err
	}
	task, err := s.GetTask(ctx, actor, attachment.TaskID)
	if err != nil {
		return err
	}
	if attachment.UploadedByID != actor.ID && !authz.CanEditTask(actor, task) {
		return models.NewPermissionError("Not allowed to delete this attachment")
	}
	return s.taskRepo.DeleteAttachment(ctx, attachmentID)
}

// applyStatus moves the task to the new status. Any status is reachable
// from any other; the only side effect is the completed_at coupling.
func (s *TaskService) applyStatus(task *models.Task, status models.TaskStatus) error {
	if !models.ValidTaskStatus(status) {
		return models.NewValidationError("Invalid status")
	}
	entering := status == models.TaskStatusCompleted && task.Status != models.TaskStatusCompleted
	leaving := status != models.TaskStatusCompleted && task.Status == models.TaskStatusCompleted
	task.Status = status
	if entering {
		now := time.Now()
		task.CompletedAt = &now
		observability.TasksCompleted.Inc()
	}
	if leaving {
		task.CompletedAt = nil
	}
	return nil
}

// checkTaskVisible enforces the uniform not-found contract for tasks.
func (s *TaskService) checkTaskVisible(ctx context.Context, actor authz.Actor, task *models.Task) error {
	project, err := s.projectRepo.GetByID(ctx, task.ProjectID)
	if err != nil {
		return err
	}
	isMember, err := s.projectRepo.IsMember(ctx, task.ProjectID, actor.ID)
	if err != nil {
		return err
	}
	if !authz.CanViewTask(actor, task, project.CreatedByID, isMember) {
		return models.NewNotFoundError("Task")
	}
	return nil
}

func (s *TaskService) checkAssignee(ctx context.Context, project *models.Project, userID uint) error {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return err
	}
	if userID == project.CreatedByID {
		return nil
	}
	isMember, err := s.projectRepo.IsMember(ctx, project.ID, userID)
	if err != nil {
		return err
	}
	if !isMember {
		return models.NewValidationError("Assignee must be a member of the project")
	}
	return nil
}

func validateTaskFields(title string, due time.Time, estimated, actual *uint, labels string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return models.NewValidationError("Title is required")
	}
	if len(title) > maxTaskTitleLen {
		return models.NewValidationError("Title too long (max 200 characters)")
	}
	if due.IsZero() {
		return models.NewValidationError("Due date is required")
	}
	if len(labels) > maxTaskLabels {
		return models.NewValidationError("Labels too long (max 500 characters)")
	}
	if estimated != nil {
		if err := validateHours(*estimated); err != nil {
			return err
		}
	}
	if actual != nil {
		if err := validateHours(*actual); err != nil {
			return err
		}
	}
	return nil
}

func validateHours(h uint) error {
	if h < 1 || h > maxTaskHours {
		return models.NewValidationError("Hours must be between 1 and 1000")
	}
	return nil
}
