package repository

import (
	"fmt"
	"testing"
	"time"

	"crewdesk/internal/database"
	"crewdesk/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// newTestDB opens a fresh in-memory SQLite database with the full schema.
// Each test gets its own database so tests stay independent.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(database.PersistentModels()...))
	return db
}

var userSeq int

func seedUser(t *testing.T, db *gorm.DB, role models.Role) *models.User {
	t.Helper()
	userSeq++
	user := &models.User{
		Email:    fmt.Sprintf("user%d@example.com", userSeq),
		Username: fmt.Sprintf("user%d", userSeq),
		Password: "hashed-password",
		IsActive: true,
		Role:     role,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func seedPost(t *testing.T, db *gorm.DB, author *models.User, slug string, published bool) *models.Post {
	t.Helper()
	post := &models.Post{
		Title:    "Post " + slug,
		Slug:     slug,
		Content:  "content for " + slug,
		AuthorID: author.ID,
		Status:   models.PostStatusDraft,
	}
	if published {
		now := time.Now()
		post.Status = models.PostStatusPublished
		post.IsPublished = true
		post.PublishedAt = &now
	}
	require.NoError(t, db.Omit("Author", "Category", "Tags").Create(post).Error)
	return post
}

func seedProject(t *testing.T, db *gorm.DB, creator *models.User, members ...*models.User) *models.Project {
	t.Helper()
	project := &models.Project{
		Name:        "Project by " + creator.Username,
		CreatedByID: creator.ID,
		IsActive:    true,
	}
	require.NoError(t, db.Omit("CreatedBy", "Members").Create(project).Error)
	for _, m := range members {
		require.NoError(t, db.Exec(
			"INSERT INTO project_members (project_id, user_id) VALUES (?, ?)", project.ID, m.ID).Error)
	}
	return project
}

func seedTask(t *testing.T, db *gorm.DB, project *models.Project, creator *models.User, due time.Time, status models.TaskStatus) *models.Task {
	t.Helper()
	task := &models.Task{
		Title:       "Task",
		Description: "task description",
		DueDate:     due,
		Priority:    models.TaskPriorityMedium,
		Status:      status,
		ProjectID:   project.ID,
		CreatedByID: creator.ID,
	}
	require.NoError(t, db.Omit("Project", "AssignedTo", "CreatedBy").Create(task).Error)
	return task
}
