package models

import "time"

// Like marks that a user liked a post. The (post, user) pair is unique;
// liking twice toggles the like off rather than inserting a duplicate.
type Like struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_likes_post_user" json:"post_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_likes_post_user" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`

	Post *Post `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for GORM.
func (Like) TableName() string {
	return "likes"
}

// Bookmark marks that a user saved a post. Same toggle semantics as Like,
// but no counter is maintained; only existence matters.
type Bookmark struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_bookmarks_post_user" json:"post_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_bookmarks_post_user" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`

	Post *Post `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for GORM.
func (Bookmark) TableName() string {
	return "bookmarks"
}
