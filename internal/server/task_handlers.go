package server

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"crewdesk/internal/featureflags"
	"crewdesk/internal/models"
	"crewdesk/internal/notifications"
	"crewdesk/internal/service"
)

// ListTasks handles GET /api/tasks. Admins see all tasks, everyone else
// only tasks in projects they can see.
func (s *Server) ListTasks(c *fiber.Ctx) error {
	actor, err := s.requireActor(c)
	if err != nil {
		return nil
	}
	p := parsePagination(c, 20)

	in := service.ListTasksInput{
		Status:   models.TaskStatus(c.Query("status")),
		Priority: models.TaskPriority(c.Query("priority")),
		Search:   c.Query("q"),
		Sort:     c.Query("sort"),
		Limit:    p.Limit,
		Offset:   p.Offset,
	}
	if project := c.Query("project_id"); project != "" {
		id, err := strconv.ParseUint(project, 10, 32)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Invalid project id"))
		}
		in.ProjectID = uint(id)
	}
	if assignee := c.Query("assigned_to"); assignee != "" {
		id, err := strconv.ParseUint(assignee, 10, 32)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Invalid assignee id"))
		}
		in.AssignedToID = uint(id)
	}

	tasks, total, err := s.taskService.ListTasks(c.UserContext(), actor, in)
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(fiber.Map{
		"tasks":  tasks,
		"total":  total,
		"limit":  p.Limit,
		"offset": p.Offset,
	})
}

// CreateTask handles POST /api/tasks.
func (s *Server) CreateTask(c *fiber.Ctx) error {
	actor, err := s.requireActor(c)
	if err != nil {
		return nil
	}

	var req struct {
		Title          string    `json:"title"`
		Description    string    `json:"description"`
		DueDate        time.Time `json:"due_date"`
		Priority       string    `json:"priority"`
		Status         string    `json:"status"`
		ProjectID      uint      `json:"project_id"`
		AssignedToID   *uint     `json:"assigned_to_id"`
		EstimatedHours *uint     `json:"estimated_hours"`
		Labels         string    `json:"labels"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	task, err := s.taskService.CreateTask(c.UserContext(), actor, service.CreateTaskInput{
		Title:          req.Title,
		Description:    req.Description,
		DueDate:        req.DueDate,
		Priority:       models.TaskPriority(req.Priority),
		Status:         models.TaskStatus(req.Status),
		ProjectID:      req.ProjectID,
		AssignedToID:   req.AssignedToID,
		EstimatedHours: req.EstimatedHours,
		Labels:         req.Labels,
	})
	if err != nil {
		return models.RespondError(c, err)
	}
	if task.AssignedToID != nil {
		s.notify(c, *task.AssignedToID, notifications.Event{
			Kind:      notifications.EventTaskAssigned,
			ActorID:   actor.ID,
			SubjectID: task.ID,
			Message:   "You were assigned the task " + task.Title,
		})
	}
	return c.Status(fiber.StatusCreated).JSON(task)
}

// GetTask handles GET /api/tasks/:id.
func (s *Server) GetTask(c *fiber.Ctx) error {
	actor, err := s.requireActor(c)
	if err != nil {
		return nil
	}
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	task, err := s.taskService.GetTask(c.UserContext(), actor, id)
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(task)
}

// UpdateTask handles PUT and PATCH /api/tasks/:id.
func (s *Server) UpdateTask(c *fiber.Ctx) error {
	actor, err := s.requireActor(c)
	if err != nil {
		return nil
	}
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Title          *string    `json:"title"`
		Description    *string    `json:"description"`
		DueDate        *time.Time `json:"due_date"`
		Priority       *string    `json:"priority"`
		Status         *string    `json:"status"`
		AssignedToID   optionalID `json:"assigned_to_id"`
		EstimatedHours *uint      `json:"estimated_hours"`
		ActualHours    *uint      `json:"actual_hours"`
		Labels         *string    `json:"labels"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	in := service.UpdateTaskInput{
		Title:          req.Title,
		Description:    req.Description,
		DueDate:        req.DueDate,
		EstimatedHours: req.EstimatedHours,
		ActualHours:    req.ActualHours,
		Labels:         req.Labels,
	}
	// assigned_to_id: null unassigns; absence leaves the assignee alone.
	if req.AssignedToID.Present {
		if req.AssignedToID.Value == nil {
			in.Unassign = true
		} else {
			in.AssignedToID = req.AssignedToID.Value
		}
	}
	if req.Priority != nil {
		priority := models.TaskPriority(*req.Priority)
		in.Priority = &priority
	}
	if req.Status != nil {
		status := models.TaskStatus(*req.Status)
		in.Status = &status
	}

	task, err := s.taskService.UpdateTask(c.UserContext(), actor, id, in)
	if err != nil {
		return models.RespondError(c, err)
	}
	if req.AssignedToID.Value != nil && task.AssignedToID != nil {
		s.notify(c, *task.AssignedToID, notifications.Event{
			Kind:      notifications.EventTaskAssigned,
			ActorID:   actor.ID,
			SubjectID: task.ID,
			Message:   "You were assigned the task " + task.Title,
		})
	}
	return c.JSON(task)
}

// DeleteTask handles DELETE /api/tasks/:id.
func (s *Server) DeleteTask(c *fiber.Ctx) error {
	actor, err := s.requireActor(c)
	if err != nil {
		return nil
	}
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.taskService.DeleteTask(c.UserContext(), actor, id); err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Task deleted"})
}

// ChangeTaskStatus handles POST /api/tasks/:id/status.
func (s *Server) ChangeTaskStatus(c *fiber.Ctx) error {
	actor, err := s.requireActor(c)
	if err != nil {
		return nil
	}
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	task, err := s.taskService.ChangeStatus(c.UserContext(), actor, id, models.TaskStatus(req.Status))
	if err != nil {
		return models.RespondError(c, err)
	}
	if task.Status == models.TaskStatusCompleted {
		s.notify(c, task.CreatedByID, notifications.Event{
			Kind:      notifications.EventTaskCompleted,
			ActorID:   actor.ID,
			SubjectID: task.ID,
			Message:   "The task " + task.Title + " was completed",
		})
	}
	return c.JSON(task)
}

// MyTasks handles GET /api/tasks/mine.
func (s *Server) MyTasks(c *fiber.Ctx) error {
	actor, err := s.requireActor(c)
	if err != nil {
		return nil
	}
	p := parsePagination(c, 20)

	tasks, total, err := s.taskService.MyTasks(c.UserContext(), actor, p.Limit, p.Offset)
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(fiber.Map{
		"tasks":  tasks,
		"total":  total,
		"limit":  p.Limit,
		"offset": p.Offset,
	})
}

// OverdueTasks handles GET /api/tasks/overdue.
func (s *Server) OverdueTasks(c *fiber.Ctx) error {
	actor, err := s.requireActor(c)
	if err != nil {
		return nil
	}
	p := parsePagination(c, 20)

	tasks, total, err := s.taskService.OverdueTasks(c.UserContext(), actor, p.Limit, p.Offset)
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(fiber.Map{
		"tasks":  tasks,
		"total":  total,
		"limit":  p.Limit,
		"offset": p.Offset,
	})
}

// TaskStats handles GET /api/tasks/stats.
func (s *Server) TaskStats(c *fiber.Ctx) error {
	actor, err := s.requireActor(c)
	if err != nil {
		return nil
	}
	stats, err := s.taskService.DashboardStats(c.UserContext(), actor)
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(stats)
}

// ListTaskComments handles GET /api/tasks/:id/comments.
func (s *Server) ListTaskComments(c *fiber.Ctx) error {
	actor, err := s.requireActor(c)
	if err != nil {
		return nil
	}
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	comments, err := s.taskService.ListComments(c.UserContext(), actor, id)
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(fiber.Map{"comments": comments})
}

// AddTaskComment handles POST /api/tasks/:id/comments.
func (s *Server) AddTaskComment(c *fiber.Ctx) error {
	actor, err := s.requireActor(c)
	if err != nil {
		return nil
	}
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Comment string `json:"comment"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	comment, err := s.taskService.AddComment(c.UserContext(), actor, id, req.Comment)
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}

// ListTaskAttachments handles GET /api/tasks/:id/attachments.
func (s *Server) ListTaskAttachments(c *fiber.Ctx) error {
	actor, err := s.requireActor(c)
	if err != nil {
		return nil
	}
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	attachments, err := s.taskService.ListAttachments(c.UserContext(), actor, id)
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(fiber.Map{"attachments": attachments})
}

// AddTaskAttachment handles POST /api/tasks/:id/attachments. Only the
// metadata is recorded; the blob is uploaded out of band. The endpoint
// sits behind the task_attachments feature flag.
func (s *Server) AddTaskAttachment(c *fiber.Ctx) error {
	actor, err := s.requireActor(c)
	if err != nil {
		return nil
	}
	if !s.featureFlags.Enabled(featureflags.FlagTaskAttachments, actor.ID) {
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewPermissionError("Task attachments are not enabled for this account"))
	}
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Filename   string `json:"filename"`
		StorageKey string `json:"storage_key"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	attachment, err := s.taskService.AddAttachment(c.UserContext(), actor, id, req.Filename, req.StorageKey)
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(attachment)
}

// DeleteTaskAttachment handles DELETE /api/tasks/:id/attachments/:attachmentId.
func (s *Server) DeleteTaskAttachment(c *fiber.Ctx) error {
	actor, err := s.requireActor(c)
	if err != nil {
		return nil
	}
	attachmentID, err := s.parseID(c, "attachmentId")
	if err != nil {
		return nil
	}
	if err := s.taskService.DeleteAttachment(c.UserContext(), actor, attachmentID); err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Attachment deleted"})
}
