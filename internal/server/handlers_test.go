package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"crewdesk/internal/config"
	"crewdesk/internal/database"
	"crewdesk/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupHandlerTestServer(t *testing.T, flags string) (*Server, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(database.PersistentModels()...); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}

	cfg := &config.Config{JWTSecret: "handler-test-secret", FeatureFlags: flags}
	s, err := NewServerWithDeps(cfg, db, nil)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return s, db
}

// appAs builds a fiber app whose requests run as the given user ID, the
// way AuthRequired would populate locals. ID 0 means anonymous.
func appAs(userID uint) *fiber.App {
	app := fiber.New()
	if userID != 0 {
		app.Use(func(c *fiber.Ctx) error {
			c.Locals("userID", userID)
			return c.Next()
		})
	}
	return app
}

func createTestUser(t *testing.T, db *gorm.DB, username string, role models.Role) *models.User {
	t.Helper()
	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: "hashed",
		IsActive: true,
		Role:     role,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return user
}

func doJSON(t *testing.T, app *fiber.App, method, target string, body interface{}) *http.Response {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test %s %s: %v", method, target, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dest interface{}) {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestSignupAndLoginFlow(t *testing.T) {
	s, _ := setupHandlerTestServer(t, "")

	app := fiber.New()
	s.SetupRoutes(app)

	signupResp := doJSON(t, app, http.MethodPost, "/api/auth/signup", fiber.Map{
		"username": "firstuser",
		"email":    "firstuser@example.com",
		"password": "Str0ng!Passw0rd",
	})
	if signupResp.StatusCode != http.StatusCreated {
		t.Fatalf("signup: expected 201, got %d", signupResp.StatusCode)
	}
	var signupBody struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}
	decodeBody(t, signupResp, &signupBody)
	if signupBody.Token == "" {
		t.Fatal("signup returned no token")
	}
	if signupBody.User.Role != models.RoleUser {
		t.Fatalf("expected role user, got %s", signupBody.User.Role)
	}

	loginResp := doJSON(t, app, http.MethodPost, "/api/auth/login", fiber.Map{
		"email":    "firstuser@example.com",
		"password": "Str0ng!Passw0rd",
	})
	if loginResp.StatusCode != http.StatusOK {
		t.Fatalf("login: expected 200, got %d", loginResp.StatusCode)
	}
	var loginBody struct {
		Token string `json:"token"`
	}
	decodeBody(t, loginResp, &loginBody)
	if loginBody.Token == "" {
		t.Fatal("login returned no token")
	}

	// The issued token authenticates /users/me.
	meReq := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	meReq.Header.Set("Authorization", "Bearer "+loginBody.Token)
	meResp, err := app.Test(meReq, -1)
	if err != nil {
		t.Fatalf("app.Test me: %v", err)
	}
	if meResp.StatusCode != http.StatusOK {
		t.Fatalf("me: expected 200, got %d", meResp.StatusCode)
	}
	var me models.User
	decodeBody(t, meResp, &me)
	if me.Username != "firstuser" {
		t.Fatalf("expected firstuser, got %s", me.Username)
	}
}

func TestSignup_WrongPasswordRejected(t *testing.T) {
	s, db := setupHandlerTestServer(t, "")
	app := fiber.New()
	s.SetupRoutes(app)

	resp := doJSON(t, app, http.MethodPost, "/api/auth/signup", fiber.Map{
		"username": "weakling",
		"email":    "weakling@example.com",
		"password": "short",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	_ = resp.Body.Close()

	var count int64
	db.Model(&models.User{}).Count(&count)
	if count != 0 {
		t.Fatalf("expected no users created, got %d", count)
	}
}

func TestSignup_DisabledByFlag(t *testing.T) {
	s, _ := setupHandlerTestServer(t, "signups_disabled=on")
	app := fiber.New()
	s.SetupRoutes(app)

	resp := doJSON(t, app, http.MethodPost, "/api/auth/signup", fiber.Map{
		"username": "latecomer",
		"email":    "latecomer@example.com",
		"password": "Str0ng!Passw0rd",
	})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
	_ = resp.Body.Close()
}

func TestGetPost_DraftHiddenFromStrangers(t *testing.T) {
	s, db := setupHandlerTestServer(t, "")

	author := createTestUser(t, db, "draftauthor", models.RoleUser)
	stranger := createTestUser(t, db, "strangerone", models.RoleUser)

	draft := &models.Post{
		Title:         "Work in progress",
		Slug:          "work-in-progress",
		Content:       "not ready yet",
		AuthorID:      author.ID,
		Status:        models.PostStatusDraft,
		AllowComments: true,
	}
	if err := db.Create(draft).Error; err != nil {
		t.Fatalf("create draft: %v", err)
	}

	// A stranger gets a 404, not a 403; the draft's existence stays hidden.
	app := appAs(stranger.ID)
	app.Get("/posts/:slug", s.GetPost)
	resp := doJSON(t, app, http.MethodGet, "/posts/work-in-progress", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("stranger: expected 404, got %d", resp.StatusCode)
	}
	_ = resp.Body.Close()

	// The author sees their own draft.
	ownApp := appAs(author.ID)
	ownApp.Get("/posts/:slug", s.GetPost)
	ownResp := doJSON(t, ownApp, http.MethodGet, "/posts/work-in-progress", nil)
	if ownResp.StatusCode != http.StatusOK {
		t.Fatalf("author: expected 200, got %d", ownResp.StatusCode)
	}
	_ = ownResp.Body.Close()
}

func TestGetPost_CountsView(t *testing.T) {
	s, db := setupHandlerTestServer(t, "")

	author := createTestUser(t, db, "viewauthor", models.RoleUser)
	post := &models.Post{
		Title:       "Published piece",
		Slug:        "published-piece",
		Content:     "hello readers",
		AuthorID:    author.ID,
		Status:      models.PostStatusPublished,
		IsPublished: true,
	}
	if err := db.Create(post).Error; err != nil {
		t.Fatalf("create post: %v", err)
	}

	app := appAs(0)
	app.Get("/posts/:slug", s.GetPost)
	for i := 0; i < 3; i++ {
		resp := doJSON(t, app, http.MethodGet, "/posts/published-piece", nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		_ = resp.Body.Close()
	}

	var reloaded models.Post
	if err := db.First(&reloaded, post.ID).Error; err != nil {
		t.Fatalf("reload post: %v", err)
	}
	if reloaded.ViewsCount != 3 {
		t.Fatalf("expected 3 views, got %d", reloaded.ViewsCount)
	}
}

func TestToggleLike_FlipsState(t *testing.T) {
	s, db := setupHandlerTestServer(t, "")

	author := createTestUser(t, db, "likeauthor", models.RoleUser)
	fan := createTestUser(t, db, "likefan", models.RoleUser)
	post := &models.Post{
		Title:       "Likeable",
		Slug:        "likeable",
		Content:     "like me",
		AuthorID:    author.ID,
		Status:      models.PostStatusPublished,
		IsPublished: true,
	}
	if err := db.Create(post).Error; err != nil {
		t.Fatalf("create post: %v", err)
	}

	app := appAs(fan.ID)
	app.Post("/posts/:slug/like", s.ToggleLike)

	var body struct {
		Liked      bool  `json:"liked"`
		LikesCount int64 `json:"likes_count"`
	}

	resp := doJSON(t, app, http.MethodPost, "/posts/likeable/like", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	decodeBody(t, resp, &body)
	if !body.Liked || body.LikesCount != 1 {
		t.Fatalf("first toggle: expected liked with count 1, got %+v", body)
	}

	resp = doJSON(t, app, http.MethodPost, "/posts/likeable/like", nil)
	decodeBody(t, resp, &body)
	if body.Liked || body.LikesCount != 0 {
		t.Fatalf("second toggle: expected unliked with count 0, got %+v", body)
	}
}

func TestCreateCategory_RequiresStaff(t *testing.T) {
	s, db := setupHandlerTestServer(t, "")

	regular := createTestUser(t, db, "plainuser", models.RoleUser)
	mod := createTestUser(t, db, "moduser", models.RoleModerator)

	app := appAs(regular.ID)
	app.Post("/categories", s.CreateCategory)
	resp := doJSON(t, app, http.MethodPost, "/categories", fiber.Map{"name": "Forbidden Fruit"})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("regular user: expected 403, got %d", resp.StatusCode)
	}
	_ = resp.Body.Close()

	modApp := appAs(mod.ID)
	modApp.Post("/categories", s.CreateCategory)
	modResp := doJSON(t, modApp, http.MethodPost, "/categories", fiber.Map{"name": "Engineering Notes"})
	if modResp.StatusCode != http.StatusCreated {
		t.Fatalf("moderator: expected 201, got %d", modResp.StatusCode)
	}
	var category models.Category
	decodeBody(t, modResp, &category)
	if category.Slug != "engineering-notes" {
		t.Fatalf("expected slug engineering-notes, got %s", category.Slug)
	}
}

func TestGetProject_HiddenFromOutsiders(t *testing.T) {
	s, db := setupHandlerTestServer(t, "")

	creator := createTestUser(t, db, "projcreator", models.RoleModerator)
	member := createTestUser(t, db, "projmember", models.RoleUser)
	outsider := createTestUser(t, db, "projoutsider", models.RoleUser)

	project := &models.Project{Name: "Internal Tooling", CreatedByID: creator.ID, IsActive: true}
	if err := db.Create(project).Error; err != nil {
		t.Fatalf("create project: %v", err)
	}
	if err := db.Model(project).Association("Members").Append(member); err != nil {
		t.Fatalf("add member: %v", err)
	}

	target := fmt.Sprintf("/projects/%d", project.ID)

	memberApp := appAs(member.ID)
	memberApp.Get("/projects/:id", s.GetProject)
	memberResp := doJSON(t, memberApp, http.MethodGet, target, nil)
	if memberResp.StatusCode != http.StatusOK {
		t.Fatalf("member: expected 200, got %d", memberResp.StatusCode)
	}
	_ = memberResp.Body.Close()

	// Outsiders get a 404 rather than a 403.
	outApp := appAs(outsider.ID)
	outApp.Get("/projects/:id", s.GetProject)
	outResp := doJSON(t, outApp, http.MethodGet, target, nil)
	if outResp.StatusCode != http.StatusNotFound {
		t.Fatalf("outsider: expected 404, got %d", outResp.StatusCode)
	}
	_ = outResp.Body.Close()
}

func TestAddTaskAttachment_BehindFeatureFlag(t *testing.T) {
	run := func(t *testing.T, flags string, wantStatus int) {
		s, db := setupHandlerTestServer(t, flags)

		creator := createTestUser(t, db, "attachcreator", models.RoleModerator)
		project := &models.Project{Name: "Attachments", CreatedByID: creator.ID, IsActive: true}
		if err := db.Create(project).Error; err != nil {
			t.Fatalf("create project: %v", err)
		}
		task := &models.Task{
			Title:       "Document the rollout",
			ProjectID:   project.ID,
			CreatedByID: creator.ID,
			Status:      models.TaskStatusTodo,
			Priority:    models.TaskPriorityMedium,
		}
		if err := db.Create(task).Error; err != nil {
			t.Fatalf("create task: %v", err)
		}

		app := appAs(creator.ID)
		app.Post("/tasks/:id/attachments", s.AddTaskAttachment)
		resp := doJSON(t, app, http.MethodPost, fmt.Sprintf("/tasks/%d/attachments", task.ID), fiber.Map{
			"filename":    "rollout.pdf",
			"storage_key": "tasks/1/rollout.pdf",
		})
		if resp.StatusCode != wantStatus {
			t.Fatalf("flags %q: expected %d, got %d", flags, wantStatus, resp.StatusCode)
		}
		_ = resp.Body.Close()
	}

	t.Run("disabled", func(t *testing.T) { run(t, "", http.StatusForbidden) })
	t.Run("enabled", func(t *testing.T) { run(t, "task_attachments=on", http.StatusCreated) })
}

func TestUpdateTask_NullAssigneeUnassigns(t *testing.T) {
	s, db := setupHandlerTestServer(t, "")

	creator := createTestUser(t, db, "taskowner", models.RoleUser)
	helper := createTestUser(t, db, "taskhelper", models.RoleUser)
	project := &models.Project{Name: "Handoffs", CreatedByID: creator.ID, IsActive: true}
	if err := db.Create(project).Error; err != nil {
		t.Fatalf("create project: %v", err)
	}
	task := &models.Task{
		Title:        "Rotate credentials",
		ProjectID:    project.ID,
		CreatedByID:  creator.ID,
		AssignedToID: &helper.ID,
		Status:       models.TaskStatusTodo,
		Priority:     models.TaskPriorityMedium,
	}
	if err := db.Create(task).Error; err != nil {
		t.Fatalf("create task: %v", err)
	}

	app := appAs(creator.ID)
	app.Patch("/tasks/:id", s.UpdateTask)

	// A body without the key leaves the assignee untouched.
	resp := doJSON(t, app, http.MethodPatch, fmt.Sprintf("/tasks/%d", task.ID), fiber.Map{
		"title": "Rotate the credentials",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("rename: expected 200, got %d", resp.StatusCode)
	}
	_ = resp.Body.Close()

	var kept models.Task
	if err := db.First(&kept, task.ID).Error; err != nil {
		t.Fatalf("reload task: %v", err)
	}
	if kept.AssignedToID == nil || *kept.AssignedToID != helper.ID {
		t.Fatalf("assignee changed by unrelated update: %v", kept.AssignedToID)
	}

	// An explicit null clears it.
	resp = doJSON(t, app, http.MethodPatch, fmt.Sprintf("/tasks/%d", task.ID), fiber.Map{
		"assigned_to_id": nil,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unassign: expected 200, got %d", resp.StatusCode)
	}
	_ = resp.Body.Close()

	var cleared models.Task
	if err := db.First(&cleared, task.ID).Error; err != nil {
		t.Fatalf("reload task: %v", err)
	}
	if cleared.AssignedToID != nil {
		t.Fatalf("expected assignee cleared, got %d", *cleared.AssignedToID)
	}
}

func TestPromoteUser_AdminOnly(t *testing.T) {
	s, db := setupHandlerTestServer(t, "")

	admin := createTestUser(t, db, "realadmin", models.RoleAdmin)
	mod := createTestUser(t, db, "wannabeadmin", models.RoleModerator)
	target := createTestUser(t, db, "promotee", models.RoleUser)

	path := fmt.Sprintf("/users/%d/promote", target.ID)

	modApp := appAs(mod.ID)
	modApp.Post("/users/:id/promote", s.PromoteUser)
	modResp := doJSON(t, modApp, http.MethodPost, path, nil)
	if modResp.StatusCode != http.StatusForbidden {
		t.Fatalf("moderator: expected 403, got %d", modResp.StatusCode)
	}
	_ = modResp.Body.Close()

	adminApp := appAs(admin.ID)
	adminApp.Post("/users/:id/promote", s.PromoteUser)
	adminResp := doJSON(t, adminApp, http.MethodPost, path, nil)
	if adminResp.StatusCode != http.StatusOK {
		t.Fatalf("admin: expected 200, got %d", adminResp.StatusCode)
	}
	_ = adminResp.Body.Close()

	var reloaded models.User
	if err := db.First(&reloaded, target.ID).Error; err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if reloaded.Role != models.RoleModerator {
		t.Fatalf("expected moderator, got %s", reloaded.Role)
	}
}

func TestRequireActor_StaleTokenGets401(t *testing.T) {
	s, db := setupHandlerTestServer(t, "")

	ghost := createTestUser(t, db, "ghostuser", models.RoleUser)
	if err := db.Model(ghost).Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	app := appAs(ghost.ID)
	app.Get("/users/me", s.GetMe)
	resp := doJSON(t, app, http.MethodGet, "/users/me", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	_ = resp.Body.Close()
}
