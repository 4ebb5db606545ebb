// Package service contains the application's lifecycle rules: validation,
// authorization, and derived-field computation sit here, between the HTTP
// handlers and the repositories.
package service

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"

	"crewdesk/internal/authz"
	"crewdesk/internal/cache"
	"crewdesk/internal/models"
	"crewdesk/internal/repository"
)

type UserService struct {
	userRepo repository.UserRepository
}

func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

type UpdateAccountInput struct {
	UserID      uint
	FirstName   *string
	LastName    *string
	Bio         *string
	Location    *string
	AvatarURL   *string
	PhoneNumber *string
	BirthDate   *time.Time
}

type UpsertProfileInput struct {
	UserID                uint
	Website               *string
	TwitterUsername       *string
	GithubUsername        *string
	LinkedinUsername      *string
	Company               *string
	JobTitle              *string
	Skills                *string
	Interests             *string
	ReceivesNotifications *bool
	IsPublic              *bool
}

const (
	maxBioLen      = 500
	maxLocationLen = 30
	minPasswordLen = 8
)

// GetUser loads a user with their profile, using the per-user cache.
func (s *UserService) GetUser(ctx context.Context, id uint) (*models.User, error) {
	return cache.CacheAside(ctx, cache.UserKey(id), cache.UserTTL, func(ctx context.Context) (*models.User, error) {
		return s.userRepo.GetByIDWithProfile(ctx, id)
	})
}

// ListUsers is restricted to staff.
func (s *UserService) ListUsers(ctx context.Context, actor authz.Actor, limit, offset int) ([]models.User, int64, error) {
	if !actor.CanModerate() {
		return nil, 0, models.NewPermissionError("Not allowed to list users")
	}
	return s.userRepo.List(ctx, limit, offset)
}

func (s *UserService) UpdateAccount(ctx context.Context, in UpdateAccountInput) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	if in.Bio != nil && len(*in.Bio) > maxBioLen {
		return nil, models.NewValidationError("Bio too long (max 500 characters)")
	}
	if in.Location != nil && len(*in.Location) > maxLocationLen {
		return nil, models.NewValidationError("Location too long (max 30 characters)")
	}

	applyString(&user.FirstName, in.FirstName)
	applyString(&user.LastName, in.LastName)
	applyString(&user.Bio, in.Bio)
	applyString(&user.Location, in.Location)
	applyString(&user.AvatarURL, in.AvatarURL)
	applyString(&user.PhoneNumber, in.PhoneNumber)
	if in.BirthDate != nil {
		user.BirthDate = in.BirthDate
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	cache.InvalidateUser(ctx, user.ID)
	return s.userRepo.GetByIDWithProfile(ctx, user.ID)
}

func (s *UserService) UpsertProfile(ctx context.Context, in UpsertProfileInput) (*models.User, error) {
	user, err := s.userRepo.GetByIDWithProfile(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	profile := user.Profile
	if profile == nil {
		profile = &models.Profile{UserID: user.ID, ReceivesNotifications: true, IsPublic: true}
	}

	applyString(&profile.Website, in.Website)
	applyString(&profile.TwitterUsername, in.TwitterUsername)
	applyString(&profile.GithubUsername, in.GithubUsername)
	applyString(&profile.LinkedinUsername, in.LinkedinUsername)
	applyString(&profile.Company, in.Company)
	applyString(&profile.JobTitle, in.JobTitle)
	applyString(&profile.Skills, in.Skills)
	applyString(&profile.Interests, in.Interests)
	if in.ReceivesNotifications != nil {
		profile.ReceivesNotifications = *in.ReceivesNotifications
	}
	if in.IsPublic != nil {
		profile.IsPublic = *in.IsPublic
	}

	if err := s.userRepo.UpsertProfile(ctx, profile); err != nil {
		return nil, err
	}
	cache.InvalidateUser(ctx, user.ID)
	return s.userRepo.GetByIDWithProfile(ctx, user.ID)
}

// ChangePassword verifies the current password before storing the new hash.
func (s *UserService) ChangePassword(ctx context.Context, userID uint, current, next string) error {
	if len(next) < minPasswordLen {
		return models.NewValidationError("Password must be at least 8 characters")
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(current)); err != nil {
		return models.NewUnauthorizedError("Current password is incorrect")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return models.NewInternalError(err)
	}
	user.Password = string(hash)
	return s.userRepo.Update(ctx, user)
}

// SetRole assigns a role. Only admins may assign roles, and an admin cannot
// strip their own admin role, which would lock the last admin out.
func (s *UserService) SetRole(ctx context.Context, actor authz.Actor, userID uint, role models.Role) (*models.User, error) {
	if !authz.CanAssignRole(actor) {
		return nil, models.NewPermissionError("Only admins can assign roles")
	}
	if !models.ValidRole(role) {
		return nil, models.NewValidationError("Invalid role")
	}
	if userID == actor.ID && role != models.RoleAdmin {
		return nil, models.NewValidationError("Cannot remove your own admin role")
	}
	if err := s.userRepo.UpdateRole(ctx, userID, role); err != nil {
		return nil, err
	}
	cache.InvalidateUser(ctx, userID)
	return s.userRepo.GetByID(ctx, userID)
}

// Promote raises a regular user to moderator.
func (s *UserService) Promote(ctx context.Context, actor authz.Actor, userID uint) (*models.User, error) {
	return s.SetRole(ctx, actor, userID, models.RoleModerator)
}

// Demote returns a moderator to the regular role.
func (s *UserService) Demote(ctx context.Context, actor authz.Actor, userID uint) (*models.User, error) {
	return s.SetRole(ctx, actor, userID, models.RoleUser)
}

// Deactivate disables an account without deleting it. Admin only.
func (s *UserService) Deactivate(ctx context.Context, actor authz.Actor, userID uint) error {
	if !actor.CanAdmin() {
		return models.NewPermissionError("Only admins can deactivate accounts")
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	user.IsActive = false
	if err := s.userRepo.Update(ctx, user); err != nil {
		return err
	}
	cache.InvalidateUser(ctx, userID)
	return nil
}

func applyString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
