// Package models contains data structures for the application's domain models.
package models

import "time"

// Role defines a user's global role.
type Role string

const (
	// RoleAdmin can manage every resource and assign roles.
	RoleAdmin Role = "admin"
	// RoleModerator can moderate content and manage projects.
	RoleModerator Role = "moderator"
	// RoleUser is the default role for regular accounts.
	RoleUser Role = "user"
)

// ValidRole reports whether r is one of the known roles.
func ValidRole(r Role) bool {
	switch r {
	case RoleAdmin, RoleModerator, RoleUser:
		return true
	}
	return false
}

// User represents an account in the Crewdesk application.
// Email is the login identifier.
type User struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Email       string     `gorm:"size:254;uniqueIndex;not null" json:"email"`
	Username    string     `gorm:"size:150;uniqueIndex;not null" json:"username"`
	Password    string     `gorm:"not null" json:"-"`
	FirstName   string     `gorm:"size:30" json:"first_name"`
	LastName    string     `gorm:"size:30" json:"last_name"`
	Bio         string     `gorm:"size:500" json:"bio"`
	Location    string     `gorm:"size:30" json:"location"`
	BirthDate   *time.Time `json:"birth_date,omitempty"`
	AvatarURL   string     `json:"avatar_url"`
	PhoneNumber string     `gorm:"size:15" json:"phone_number"`
	IsActive    bool       `gorm:"not null;default:true" json:"is_active"`
	IsVerified  bool       `gorm:"not null;default:false" json:"is_verified"`
	Role        Role       `gorm:"type:varchar(10);not null;default:'user';index" json:"role"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	Profile *Profile `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"profile,omitempty"`
}

// TableName specifies the table name for GORM.
func (User) TableName() string {
	return "users"
}

// FullName returns the user's display name.
func (u *User) FullName() string {
	if u.FirstName == "" && u.LastName == "" {
		return u.Username
	}
	return u.FirstName + " " + u.LastName
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// CanModerate reports whether the user may moderate content.
// Evaluated from role alone, not per-object state.
func (u *User) CanModerate() bool {
	return u.Role == RoleAdmin || u.Role == RoleModerator
}

// CanAdmin reports whether the user may perform admin-only actions.
func (u *User) CanAdmin() bool {
	return u.Role == RoleAdmin
}

// Profile holds extended, optional user profile information.
type Profile struct {
	ID                    uint      `gorm:"primaryKey" json:"id"`
	UserID                uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	Website               string    `json:"website"`
	TwitterUsername       string    `gorm:"size:50" json:"twitter_username"`
	GithubUsername        string    `gorm:"size:50" json:"github_username"`
	LinkedinUsername      string    `gorm:"size:50" json:"linkedin_username"`
	Company               string    `gorm:"size:100" json:"company"`
	JobTitle              string    `gorm:"size:100" json:"job_title"`
	Skills                string    `gorm:"type:text" json:"skills"`
	Interests             string    `gorm:"type:text" json:"interests"`
	ReceivesNotifications bool      `gorm:"not null;default:true" json:"receives_notifications"`
	IsPublic              bool      `gorm:"not null;default:true" json:"is_public"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (Profile) TableName() string {
	return "user_profiles"
}

// SkillsList splits the comma-separated skills field.
func (p *Profile) SkillsList() []string {
	return splitCommaList(p.Skills)
}

// InterestsList splits the comma-separated interests field.
func (p *Profile) InterestsList() []string {
	return splitCommaList(p.Interests)
}
