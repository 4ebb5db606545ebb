package models

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"Simple", "Hello World", "hello-world"},
		{"Punctuation", "Go, Fiber & GORM!", "go-fiber-gorm"},
		{"Leading and trailing space", "  Spaced Out  ", "spaced-out"},
		{"Repeated separators", "a -- b", "a-b"},
		{"Already slug", "already-a-slug", "already-a-slug"},
		{"Digits", "Release 2.1", "release-2-1"},
		{"Empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.in))
		})
	}
}

func TestDeriveExcerpt(t *testing.T) {
	t.Run("Short content kept verbatim", func(t *testing.T) {
		assert.Equal(t, "just a few words", DeriveExcerpt("just a few words"))
	})

	t.Run("Long content truncated to thirty words with ellipsis", func(t *testing.T) {
		content := strings.Repeat("word ", 50)
		got := DeriveExcerpt(content)
		assert.True(t, strings.HasSuffix(got, "..."))
		assert.Len(t, strings.Fields(strings.TrimSuffix(got, "...")), 30)
	})

	t.Run("Empty content", func(t *testing.T) {
		assert.Equal(t, "", DeriveExcerpt("   "))
	})
}

func TestReadingTime(t *testing.T) {
	assert.Equal(t, 1, ReadingTime("short"))
	assert.Equal(t, 1, ReadingTime(""))
	assert.Equal(t, 2, ReadingTime(strings.Repeat("word ", 400)))
	assert.Equal(t, 5, ReadingTime(strings.Repeat("word ", 1000)))
}

func TestDeriveMetaFields(t *testing.T) {
	long := strings.Repeat("x", 200)
	assert.Len(t, DeriveMetaTitle(long), 60)
	assert.Len(t, DeriveMetaDescription(long), 160)
	assert.Equal(t, "short", DeriveMetaTitle("short"))
}

func TestTaskComputeDueState(t *testing.T) {
	now := time.Now()

	t.Run("Past due and not completed is overdue", func(t *testing.T) {
		task := &Task{DueDate: now.Add(-48 * time.Hour), Status: TaskStatusInProgress}
		task.ComputeDueState(now)
		assert.True(t, task.IsOverdue)
		assert.Equal(t, -2, task.DaysUntilDue)
	})

	t.Run("Past due but completed is not overdue", func(t *testing.T) {
		task := &Task{DueDate: now.Add(-48 * time.Hour), Status: TaskStatusCompleted}
		task.ComputeDueState(now)
		assert.False(t, task.IsOverdue)
	})

	t.Run("Future due date", func(t *testing.T) {
		task := &Task{DueDate: now.Add(72 * time.Hour), Status: TaskStatusTodo}
		task.ComputeDueState(now)
		assert.False(t, task.IsOverdue)
		assert.Equal(t, 3, task.DaysUntilDue)
	})
}

func TestNormalizeTagName(t *testing.T) {
	assert.Equal(t, "go", NormalizeTagName("Go"))
	assert.Equal(t, "go", NormalizeTagName(" go "))
	assert.Equal(t, "go", NormalizeTagName("GO"))
	assert.Equal(t, "web dev", NormalizeTagName("  Web Dev  "))
}

func TestRoleCapabilities(t *testing.T) {
	admin := &User{Role: RoleAdmin}
	mod := &User{Role: RoleModerator}
	regular := &User{Role: RoleUser}

	assert.True(t, admin.CanModerate())
	assert.True(t, admin.CanAdmin())
	assert.True(t, mod.CanModerate())
	assert.False(t, mod.CanAdmin())
	assert.False(t, regular.CanModerate())
	assert.False(t, regular.CanAdmin())
}

func TestProfileLists(t *testing.T) {
	p := &Profile{Skills: "go, sql ,  docker", Interests: ""}
	assert.Equal(t, []string{"go", "sql", "docker"}, p.SkillsList())
	assert.Nil(t, p.InterestsList())
}
