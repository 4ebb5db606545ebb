package models

import "time"

// Tag labels posts. Tags are created lazily on first use: names are
// normalized (trimmed, lowercased) and resolved via get-or-create.
type Tag struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:50;uniqueIndex;not null" json:"name"`
	Slug      string    `gorm:"size:50;uniqueIndex;not null" json:"slug"`
	Color     string    `gorm:"size:7;default:'#6c757d'" json:"color"`
	CreatedAt time.Time `json:"created_at"`

	// PostsCount is not persisted; computed at query time (published posts only).
	PostsCount int `gorm:"->" json:"posts_count"`
}

// TableName specifies the table name for GORM.
func (Tag) TableName() string {
	return "tags"
}
