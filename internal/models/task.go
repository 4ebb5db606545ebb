package models

import "time"

// TaskPriority defines a task's urgency.
type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
	TaskPriorityUrgent TaskPriority = "urgent"
)

// ValidTaskPriority reports whether p is one of the known priorities.
func ValidTaskPriority(p TaskPriority) bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh, TaskPriorityUrgent:
		return true
	}
	return false
}

// TaskStatus defines a task's workflow state. There is no enforced
// transition graph; any state is reachable from any state. The only side
// effect is the CompletedAt coupling: entering completed sets it, leaving
// completed clears it.
type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusReview     TaskStatus = "review"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusCancelled  TaskStatus = "cancelled"
)

// ValidTaskStatus reports whether s is one of the known task statuses.
func ValidTaskStatus(s TaskStatus) bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusReview, TaskStatusCompleted, TaskStatusCancelled:
		return true
	}
	return false
}

// Task belongs to a project and may be assigned to a user.
type Task struct {
	ID             uint         `gorm:"primaryKey" json:"id"`
	Title          string       `gorm:"size:200;not null" json:"title"`
	Description    string       `gorm:"type:text;not null" json:"description"`
	DueDate        time.Time    `gorm:"not null" json:"due_date"`
	Priority       TaskPriority `gorm:"type:varchar(10);not null;default:'medium';index" json:"priority"`
	Status         TaskStatus   `gorm:"type:varchar(15);not null;default:'todo';index" json:"status"`
	ProjectID      uint         `gorm:"not null;index" json:"project_id"`
	Project        *Project     `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"project,omitempty"`
	AssignedToID   *uint        `gorm:"index" json:"assigned_to_id,omitempty"`
	AssignedTo     *User        `gorm:"foreignKey:AssignedToID;constraint:OnDelete:SET NULL" json:"assigned_to,omitempty"`
	CreatedByID    uint         `gorm:"not null;index" json:"created_by_id"`
	CreatedBy      User         `gorm:"foreignKey:CreatedByID;constraint:OnDelete:CASCADE" json:"created_by"`
	CompletedAt    *time.Time   `json:"completed_at,omitempty"`
	EstimatedHours *uint        `json:"estimated_hours,omitempty"`
	ActualHours    *uint        `json:"actual_hours,omitempty"`
	Labels         string       `gorm:"size:500" json:"labels"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`

	// IsOverdue is not persisted; recomputed on every read.
	IsOverdue    bool `gorm:"-" json:"is_overdue"`
	DaysUntilDue int  `gorm:"-" json:"days_until_due"`

	Comments    []*TaskComment    `gorm:"foreignKey:TaskID" json:"comments,omitempty"`
	Attachments []*TaskAttachment `gorm:"foreignKey:TaskID" json:"attachments,omitempty"`
}

// TableName specifies the table name for GORM.
func (Task) TableName() string {
	return "tasks"
}

// TaskComment is a collaboration note on a task.
type TaskComment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TaskID    uint      `gorm:"not null;index" json:"task_id"`
	Task      *Task     `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE" json:"-"`
	UserID    uint      `gorm:"not null" json:"user_id"`
	User      User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user"`
	Comment   string    `gorm:"type:text;not null" json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM.
func (TaskComment) TableName() string {
	return "task_comments"
}

// TaskAttachment records a file attached to a task. Only metadata is
// stored here; the blob lives in external storage under StorageKey.
type TaskAttachment struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	TaskID       uint      `gorm:"not null;index" json:"task_id"`
	Task         *Task     `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE" json:"-"`
	Filename     string    `gorm:"size:255;not null" json:"filename"`
	StorageKey   string    `gorm:"size:64;uniqueIndex;not null" json:"storage_key"`
	UploadedByID uint      `gorm:"not null" json:"uploaded_by_id"`
	UploadedBy   User      `gorm:"foreignKey:UploadedByID;constraint:OnDelete:CASCADE" json:"uploaded_by"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM.
func (TaskAttachment) TableName() string {
	return "task_attachments"
}
