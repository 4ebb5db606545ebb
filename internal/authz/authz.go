// Package authz contains the pure authorization rules applied to every
// protected resource. Each rule answers one of two independent questions
// about an actor and a resource instance: visibility (may the actor read
// it) and mutability (may the actor write or delete it).
//
// Rules evaluate in a fixed order: unauthenticated writes are rejected
// first, an admin short-circuits to allow, then the resource-specific
// ownership or membership check runs. List endpoints never call these for
// denial; repositories narrow list queries silently instead.
package authz

import "crewdesk/internal/models"

// Actor is the identity a request acts as. A zero Actor is anonymous.
type Actor struct {
	ID       uint
	Role     models.Role
	IsActive bool
}

// Anonymous is the unauthenticated actor.
var Anonymous = Actor{}

// ActorFromUser builds an Actor from a loaded user record.
func ActorFromUser(u *models.User) Actor {
	if u == nil {
		return Anonymous
	}
	return Actor{ID: u.ID, Role: u.Role, IsActive: u.IsActive}
}

// Authenticated reports whether the actor is a signed-in, active account.
func (a Actor) Authenticated() bool {
	return a.ID != 0 && a.IsActive
}

// CanModerate reports the role-level moderation capability.
func (a Actor) CanModerate() bool {
	return a.Authenticated() && (a.Role == models.RoleAdmin || a.Role == models.RoleModerator)
}

// CanAdmin reports the role-level admin capability.
func (a Actor) CanAdmin() bool {
	return a.Authenticated() && a.Role == models.RoleAdmin
}

// CanViewPost: staff see all; authors see their own in any status;
// everyone sees published posts.
func CanViewPost(a Actor, post *models.Post) bool {
	if post.PubliclyVisible() {
		return true
	}
	if !a.Authenticated() {
		return false
	}
	if a.CanModerate() {
		return true
	}
	return post.AuthorID == a.ID
}

// CanEditPost: author or staff only.
func CanEditPost(a Actor, post *models.Post) bool {
	if !a.Authenticated() {
		return false
	}
	if a.CanModerate() {
		return true
	}
	return post.AuthorID == a.ID
}

// CanEditCategory: categories are moderated content; only staff may write.
func CanEditCategory(a Actor) bool {
	return a.CanModerate()
}

// CanViewProject: admins see all; otherwise only the creator or a member.
// The creator always has access even when not in the member list.
func CanViewProject(a Actor, project *models.Project, isMember bool) bool {
	if !a.Authenticated() {
		return false
	}
	if a.CanAdmin() {
		return true
	}
	return project.CreatedByID == a.ID || isMember
}

// CanEditProject: admin or moderator only; ordinary members cannot mutate
// the project itself.
func CanEditProject(a Actor) bool {
	return a.CanModerate()
}

// CanViewTask: admins see all; otherwise the creator, the assignee, the
// project creator, or a project member.
func CanViewTask(a Actor, task *models.Task, projectCreatorID uint, isProjectMember bool) bool {
	if !a.Authenticated() {
		return false
	}
	if a.CanAdmin() {
		return true
	}
	if task.CreatedByID == a.ID {
		return true
	}
	if task.AssignedToID != nil && *task.AssignedToID == a.ID {
		return true
	}
	return projectCreatorID == a.ID || isProjectMember
}

// CanCreateTask: any authenticated user may create tasks (in projects they
// can see; that check belongs to the service resolving the project).
func CanCreateTask(a Actor) bool {
	return a.Authenticated()
}

// CanEditTask: admins always; otherwise only the creator or the assignee.
// Applies identically to PATCH, PUT, and DELETE.
func CanEditTask(a Actor, task *models.Task) bool {
	if !a.Authenticated() {
		return false
	}
	if a.CanAdmin() {
		return true
	}
	if task.CreatedByID == a.ID {
		return true
	}
	return task.AssignedToID != nil && *task.AssignedToID == a.ID
}

// CanEditComment: the comment's author, or staff for moderation actions.
func CanEditComment(a Actor, comment *models.Comment) bool {
	if !a.Authenticated() {
		return false
	}
	if a.CanModerate() {
		return true
	}
	return comment.AuthorID == a.ID
}

// CanModerateComments gates approval and other moderation-only actions.
func CanModerateComments(a Actor) bool {
	return a.CanModerate()
}

// CanAssignRole: roles are assignable by admins only.
func CanAssignRole(a Actor) bool {
	return a.CanAdmin()
}
