package models

import "time"

// Comment is a threaded comment on a post. Replies reference their parent
// comment by ID; depth is unbounded. Only approved comments are publicly
// visible.
type Comment struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	IsApproved bool      `gorm:"not null;default:true;index" json:"is_approved"`
	PostID     uint      `gorm:"not null;index" json:"post_id"`
	Post       *Post     `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
	AuthorID   uint      `gorm:"not null;index" json:"author_id"`
	Author     User      `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"author"`
	ParentID   *uint     `gorm:"index" json:"parent_id,omitempty"`
	Parent     *Comment  `gorm:"foreignKey:ParentID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	// RepliesCount is not persisted; computed at query time (approved replies only).
	RepliesCount int `gorm:"->" json:"replies_count"`

	Replies []*Comment `gorm:"-" json:"replies,omitempty"`
}

// TableName specifies the table name for GORM.
func (Comment) TableName() string {
	return "comments"
}
