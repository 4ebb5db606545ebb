package repository

import (
	"context"
	"testing"

	"crewdesk/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostRepository_ListVisibility(t *testing.T) {
	db := newTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	alice := seedUser(t, db, models.RoleUser)
	bob := seedUser(t, db, models.RoleUser)
	moderator := seedUser(t, db, models.RoleModerator)

	seedPost(t, db, alice, "alice-published", true)
	seedPost(t, db, alice, "alice-draft", false)
	seedPost(t, db, bob, "bob-draft", false)

	filter := PostFilter{Limit: 50}

	t.Run("anonymous sees published only", func(t *testing.T) {
		posts, total, err := repo.List(ctx, Viewer{}, filter)
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
		require.Len(t, posts, 1)
		assert.Equal(t, "alice-published", posts[0].Slug)
	})

	t.Run("author sees own drafts plus published", func(t *testing.T) {
		posts, total, err := repo.List(ctx, Viewer{UserID: alice.ID}, filter)
		require.NoError(t, err)
		assert.EqualValues(t, 2, total)
		slugs := make([]string, 0, len(posts))
		for _, p := range posts {
			slugs = append(slugs, p.Slug)
		}
		assert.ElementsMatch(t, []string{"alice-published", "alice-draft"}, slugs)
	})

	t.Run("other user does not see foreign drafts", func(t *testing.T) {
		posts, _, err := repo.List(ctx, Viewer{UserID: bob.ID}, filter)
		require.NoError(t, err)
		for _, p := range posts {
			assert.NotEqual(t, "alice-draft", p.Slug)
		}
	})

	t.Run("staff sees everything", func(t *testing.T) {
		_, total, err := repo.List(ctx, Viewer{UserID: moderator.ID, Staff: true}, filter)
		require.NoError(t, err)
		assert.EqualValues(t, 3, total)
	})
}

func TestPostRepository_GetVisibility(t *testing.T) {
	db := newTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	alice := seedUser(t, db, models.RoleUser)
	bob := seedUser(t, db, models.RoleUser)
	moderator := seedUser(t, db, models.RoleModerator)

	draft := seedPost(t, db, alice, "quiet-draft", false)

	assertNotFound := func(t *testing.T, err error) {
		t.Helper()
		var appErr *models.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, models.CodeNotFound, appErr.Code)
	}

	t.Run("anonymous cannot fetch a draft", func(t *testing.T) {
		_, err := repo.GetBySlug(ctx, "quiet-draft", Viewer{})
		assertNotFound(t, err)
	})

	t.Run("stranger cannot fetch a foreign draft", func(t *testing.T) {
		_, err := repo.GetBySlug(ctx, "quiet-draft", Viewer{UserID: bob.ID})
		assertNotFound(t, err)
		_, err = repo.GetByID(ctx, draft.ID, Viewer{UserID: bob.ID})
		assertNotFound(t, err)
	})

	t.Run("author reads own draft", func(t *testing.T) {
		got, err := repo.GetBySlug(ctx, "quiet-draft", Viewer{UserID: alice.ID})
		require.NoError(t, err)
		assert.Equal(t, draft.ID, got.ID)
	})

	t.Run("staff reads any draft", func(t *testing.T) {
		got, err := repo.GetByID(ctx, draft.ID, Viewer{UserID: moderator.ID, Staff: true})
		require.NoError(t, err)
		assert.Equal(t, "quiet-draft", got.Slug)
	})
}

func TestPostRepository_ToggleLike(t *testing.T) {
	db := newTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	author := seedUser(t, db, models.RoleUser)
	reader := seedUser(t, db, models.RoleUser)
	post := seedPost(t, db, author, "likeable", true)

	liked, count, err := repo.ToggleLike(ctx, post.ID, reader.ID)
	require.NoError(t, err)
	assert.True(t, liked)
	assert.EqualValues(t, 1, count)

	// Second toggle removes the like and decrements the counter.
	liked, count, err = repo.ToggleLike(ctx, post.ID, reader.ID)
	require.NoError(t, err)
	assert.False(t, liked)
	assert.EqualValues(t, 0, count)

	// Third toggle likes again; the counter never drifts.
	liked, count, err = repo.ToggleLike(ctx, post.ID, reader.ID)
	require.NoError(t, err)
	assert.True(t, liked)
	assert.EqualValues(t, 1, count)

	var likeRows int64
	require.NoError(t, db.Model(&models.Like{}).Where("post_id = ?", post.ID).Count(&likeRows).Error)
	assert.EqualValues(t, 1, likeRows)
}

func TestPostRepository_ToggleBookmark(t *testing.T) {
	db := newTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	author := seedUser(t, db, models.RoleUser)
	reader := seedUser(t, db, models.RoleUser)
	post := seedPost(t, db, author, "saveable", true)

	saved, err := repo.ToggleBookmark(ctx, post.ID, reader.ID)
	require.NoError(t, err)
	assert.True(t, saved)

	saved, err = repo.ToggleBookmark(ctx, post.ID, reader.ID)
	require.NoError(t, err)
	assert.False(t, saved)

	var rows int64
	require.NoError(t, db.Model(&models.Bookmark{}).Count(&rows).Error)
	assert.EqualValues(t, 0, rows)
}

func TestPostRepository_IncrementViews(t *testing.T) {
	db := newTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	author := seedUser(t, db, models.RoleUser)
	post := seedPost(t, db, author, "viewed", true)

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.IncrementViews(ctx, post.ID))
	}

	got, err := repo.GetByID(ctx, post.ID, Viewer{})
	require.NoError(t, err)
	assert.EqualValues(t, 3, got.ViewsCount)
}

func TestPostRepository_ComputedFlags(t *testing.T) {
	db := newTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	author := seedUser(t, db, models.RoleUser)
	reader := seedUser(t, db, models.RoleUser)
	post := seedPost(t, db, author, "flagged", true)

	_, _, err := repo.ToggleLike(ctx, post.ID, reader.ID)
	require.NoError(t, err)
	_, err = repo.ToggleBookmark(ctx, post.ID, reader.ID)
	require.NoError(t, err)

	require.NoError(t, db.Omit("Author", "Post", "Parent").Create(&models.Comment{
		Content:    "nice",
		IsApproved: true,
		PostID:     post.ID,
		AuthorID:   reader.ID,
	}).Error)
	require.NoError(t, db.Omit("Author", "Post", "Parent").Create(&models.Comment{
		Content:    "spam",
		IsApproved: false,
		PostID:     post.ID,
		AuthorID:   reader.ID,
	}).Error)

	got, err := repo.GetByID(ctx, post.ID, Viewer{UserID: reader.ID})
	require.NoError(t, err)
	assert.True(t, got.IsLiked)
	assert.True(t, got.IsBookmarked)
	// Only approved comments count.
	assert.Equal(t, 1, got.CommentsCount)
	assert.GreaterOrEqual(t, got.ReadingTimeMinutes, 1)

	// Flags stay false for a different viewer.
	other, err := repo.GetByID(ctx, post.ID, Viewer{UserID: author.ID})
	require.NoError(t, err)
	assert.False(t, other.IsLiked)
	assert.False(t, other.IsBookmarked)
}

func TestPostRepository_ListBookmarked(t *testing.T) {
	db := newTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	author := seedUser(t, db, models.RoleUser)
	reader := seedUser(t, db, models.RoleUser)
	first := seedPost(t, db, author, "saved-1", true)
	seedPost(t, db, author, "not-saved", true)

	_, err := repo.ToggleBookmark(ctx, first.ID, reader.ID)
	require.NoError(t, err)

	posts, total, err := repo.ListBookmarked(ctx, reader.ID, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, posts, 1)
	assert.Equal(t, "saved-1", posts[0].Slug)
}

func TestPostRepository_SlugConflict(t *testing.T) {
	db := newTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	author := seedUser(t, db, models.RoleUser)
	seedPost(t, db, author, "taken", true)

	err := repo.Create(ctx, &models.Post{
		Title:    "Duplicate",
		Slug:     "taken",
		Content:  "body",
		AuthorID: author.ID,
		Status:   models.PostStatusDraft,
	})
	require.Error(t, err)

	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeConflict, appErr.Code)
}
