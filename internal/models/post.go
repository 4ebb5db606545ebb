package models

import "time"

// PostStatus defines a post's lifecycle state.
type PostStatus string

const (
	// PostStatusDraft is the initial, non-public state.
	PostStatusDraft PostStatus = "draft"
	// PostStatusPublished makes the post publicly visible (with IsPublished).
	PostStatusPublished PostStatus = "published"
	// PostStatusArchived removes the post from public view without deleting it.
	PostStatusArchived PostStatus = "archived"
)

// ValidPostStatus reports whether s is one of the known post statuses.
func ValidPostStatus(s PostStatus) bool {
	switch s {
	case PostStatusDraft, PostStatusPublished, PostStatusArchived:
		return true
	}
	return false
}

// Post represents a piece of content in the Crewdesk application.
//
// ViewsCount and LikesCount are the only derived values persisted; both are
// maintained with atomic field-level increments. Everything else derived
// (reading time, comment counts, liked/bookmarked flags) is computed at read
// time.
type Post struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	Title            string     `gorm:"size:200;not null" json:"title"`
	Slug             string     `gorm:"size:200;uniqueIndex;not null" json:"slug"`
	Content          string     `gorm:"type:text;not null" json:"content"`
	Excerpt          string     `gorm:"size:300" json:"excerpt"`
	FeaturedImageURL string     `json:"featured_image_url"`
	AuthorID         uint       `gorm:"not null;index" json:"author_id"`
	Author           User       `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"author"`
	CategoryID       *uint      `gorm:"index" json:"category_id,omitempty"`
	Category         *Category  `gorm:"foreignKey:CategoryID;constraint:OnDelete:SET NULL" json:"category,omitempty"`
	Tags             []Tag      `gorm:"many2many:post_tags" json:"tags"`
	Status           PostStatus `gorm:"type:varchar(20);not null;default:'draft';index:idx_posts_visibility" json:"status"`
	IsPublished      bool       `gorm:"not null;default:false;index:idx_posts_visibility" json:"is_published"`
	IsFeatured       bool       `gorm:"not null;default:false" json:"is_featured"`
	AllowComments    bool       `gorm:"not null;default:true" json:"allow_comments"`
	MetaTitle        string     `gorm:"size:60" json:"meta_title"`
	MetaDescription  string     `gorm:"size:160" json:"meta_description"`
	PublishedAt      *time.Time `json:"published_at,omitempty"`
	ViewsCount       uint       `gorm:"not null;default:0" json:"views_count"`
	LikesCount       uint       `gorm:"not null;default:0" json:"likes_count"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`

	// CommentsCount is not persisted; computed at query time (approved comments only).
	CommentsCount int `gorm:"->" json:"comments_count"`
	// IsLiked indicates whether the current requesting user liked this post (computed).
	IsLiked bool `gorm:"->" json:"is_liked"`
	// IsBookmarked indicates whether the current requesting user bookmarked this post (computed).
	IsBookmarked bool `gorm:"->" json:"is_bookmarked"`

	ReadingTimeMinutes int `gorm:"-" json:"reading_time"`

	Comments []*Comment `gorm:"foreignKey:PostID" json:"comments,omitempty"`
}

// TableName specifies the table name for GORM.
func (Post) TableName() string {
	return "posts"
}

// PubliclyVisible reports whether the post is visible to anonymous readers.
func (p *Post) PubliclyVisible() bool {
	return p.IsPublished && p.Status == PostStatusPublished
}
