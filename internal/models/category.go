package models

import "time"

// Category organizes posts into a tree. Deletion is always soft
// (IsActive=false); rows are never removed so posts keep their history.
type Category struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:100;uniqueIndex;not null" json:"name"`
	Slug        string    `gorm:"size:100;uniqueIndex;not null" json:"slug"`
	Description string    `gorm:"type:text" json:"description"`
	Color       string    `gorm:"size:7;default:'#007bff'" json:"color"`
	Icon        string    `gorm:"size:50" json:"icon"`
	IsActive    bool      `gorm:"not null;default:true;index" json:"is_active"`
	Order       int       `gorm:"not null;default:0" json:"order"`
	ParentID    *uint     `gorm:"index" json:"parent_id,omitempty"`
	Parent      *Category `gorm:"foreignKey:ParentID" json:"-"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// PostsCount is not persisted; computed at query time (published posts only).
	PostsCount int `gorm:"->" json:"posts_count"`

	Children []*Category `gorm:"-" json:"children,omitempty"`
}

// TableName specifies the table name for GORM.
func (Category) TableName() string {
	return "categories"
}

// IsParent reports whether the category has children loaded.
func (c *Category) IsParent() bool {
	return len(c.Children) > 0
}
