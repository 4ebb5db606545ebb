package models

import "time"

// Project groups tasks and carries a member list. The creator always has
// access even when not listed as a member.
type Project struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:200;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedByID uint      `gorm:"not null;index" json:"created_by_id"`
	CreatedBy   User      `gorm:"foreignKey:CreatedByID;constraint:OnDelete:CASCADE" json:"created_by"`
	Members     []User    `gorm:"many2many:project_members" json:"members"`
	IsActive    bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// TaskCount is not persisted; computed at query time.
	TaskCount int `gorm:"->" json:"task_count"`
}

// TableName specifies the table name for GORM.
func (Project) TableName() string {
	return "projects"
}
