// Package seed provides helpers to create demo and test data for the
// application database. These helpers are intended for development and
// testing only.
package seed

import (
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"crewdesk/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// SeedOptions tune factory behavior.
type SeedOptions struct {
	// DryRun builds entities without persisting them.
	DryRun bool
	// MaxDays caps how far in the past created_at timestamps spread.
	MaxDays int
}

// Factory builds domain entities and persists them to the database.
// It is a thin helper used by seed presets and tests.
type Factory struct {
	db   *gorm.DB
	opts SeedOptions
	rng  *rand.Rand
	// synthetic ID counter when running in DryRun mode
	nextID uint
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB, opts SeedOptions) *Factory {
	seed := time.Now().UnixNano()
	gofakeit.Seed(seed)
	return &Factory{db: db, opts: opts, rng: rand.New(rand.NewSource(seed)), nextID: 1000}
}

// DemoPasswordHash is the bcrypt hash shared by all seeded users; the
// plaintext is "Demo!Passw0rd123".
var demoPasswordHash string

func passwordHash() string {
	if demoPasswordHash == "" {
		hash, err := bcrypt.GenerateFromPassword([]byte("Demo!Passw0rd123"), bcrypt.MinCost)
		if err != nil {
			panic(err)
		}
		demoPasswordHash = string(hash)
	}
	return demoPasswordHash
}

func (f *Factory) pastTime() time.Time {
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	back := time.Duration(f.rng.Intn(maxDays))*24*time.Hour +
		time.Duration(f.rng.Intn(24))*time.Hour +
		time.Duration(f.rng.Intn(60))*time.Minute
	return time.Now().Add(-back)
}

func (f *Factory) persist(value interface{}) error {
	if f.opts.DryRun {
		f.nextID++
		switch v := value.(type) {
		case *models.User:
			v.ID = f.nextID
		case *models.Category:
			v.ID = f.nextID
		case *models.Post:
			v.ID = f.nextID
		case *models.Comment:
			v.ID = f.nextID
		case *models.Project:
			v.ID = f.nextID
		case *models.Task:
			v.ID = f.nextID
		}
		return nil
	}
	return f.db.Create(value).Error
}

// CreateUser persists a fake user. The i-th user of a run gets a stable
// username so reruns stay readable.
func (f *Factory) CreateUser(i int, role models.Role, overrides ...func(*models.User)) (*models.User, error) {
	first := gofakeit.FirstName()
	last := gofakeit.LastName()
	user := &models.User{
		Username:  fmt.Sprintf("%s%s%d", strings.ToLower(first), strings.ToLower(last), i),
		Email:     fmt.Sprintf("%s.%s%d@example.com", strings.ToLower(first), strings.ToLower(last), i),
		Password:  passwordHash(),
		FirstName: first,
		LastName:  last,
		Bio:       gofakeit.Sentence(8),
		Location:  gofakeit.City(),
		IsActive:  true,
		Role:      role,
	}
	user.CreatedAt = f.pastTime()

	for _, override := range overrides {
		override(user)
	}
	if err := f.persist(user); err != nil {
		return nil, err
	}
	return user, nil
}

// BuildPost constructs a post without persisting it. Useful for batching.
func (f *Factory) BuildPost(author *models.User, category *models.Category, overrides ...func(*models.Post)) *models.Post {
	title := strings.TrimSuffix(gofakeit.Sentence(6), ".")
	content := gofakeit.Paragraph(3, 5, 12, "\n\n")

	post := &models.Post{
		Title:         title,
		Slug:          models.Slugify(fmt.Sprintf("%s-%s", title, gofakeit.LetterN(6))),
		Content:       content,
		AuthorID:      author.ID,
		Status:        models.PostStatusDraft,
		AllowComments: true,
	}
	post.CreatedAt = f.pastTime()
	if category != nil {
		post.CategoryID = &category.ID
	}

	// Most seeded posts are published with derived fields filled in the
	// same way the publish path does it.
	if f.rng.Intn(10) < 8 {
		publishedAt := post.CreatedAt.Add(time.Duration(f.rng.Intn(48)) * time.Hour)
		post.Status = models.PostStatusPublished
		post.IsPublished = true
		post.PublishedAt = &publishedAt
		post.Excerpt = models.DeriveExcerpt(content)
		post.MetaTitle = models.DeriveMetaTitle(title)
		post.MetaDescription = models.DeriveMetaDescription(content)
		post.ViewsCount = uint(f.rng.Intn(500))
	}

	for _, override := range overrides {
		override(post)
	}
	return post
}

// CreatePostsBatch persists multiple posts in a single DB call when possible.
func (f *Factory) CreatePostsBatch(posts []*models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	if f.opts.DryRun {
		for _, p := range posts {
			f.nextID++
			p.ID = f.nextID
		}
		log.Printf("[dry-run] CreatePostsBatch: %d posts (no DB write)", len(posts))
		return nil
	}
	return f.db.Create(&posts).Error
}

// CreateComment persists a fake approved comment on a post.
func (f *Factory) CreateComment(post *models.Post, author *models.User) (*models.Comment, error) {
	comment := &models.Comment{
		Content:    gofakeit.Sentence(12),
		PostID:     post.ID,
		AuthorID:   author.ID,
		IsApproved: true,
	}
	comment.CreatedAt = f.pastTime()
	if err := f.persist(comment); err != nil {
		return nil, err
	}
	return comment, nil
}

// CreateProject persists a fake project with the given creator.
func (f *Factory) CreateProject(creator *models.User, overrides ...func(*models.Project)) (*models.Project, error) {
	project := &models.Project{
		Name:        fmt.Sprintf("%s %s", gofakeit.BuzzWord(), gofakeit.NounAbstract()),
		Description: gofakeit.Sentence(10),
		CreatedByID: creator.ID,
		IsActive:    true,
	}
	project.CreatedAt = f.pastTime()

	for _, override := range overrides {
		override(project)
	}
	if err := f.persist(project); err != nil {
		return nil, err
	}
	return project, nil
}

var taskLabelPool = []string{
	"backend", "frontend", "infra", "docs", "bug", "research", "design", "urgent",
}

// CreateTask persists a fake task in a project. Roughly a third of seeded
// tasks come out completed with CompletedAt stamped.
func (f *Factory) CreateTask(project *models.Project, creator *models.User, assignee *models.User, overrides ...func(*models.Task)) (*models.Task, error) {
	priorities := []models.TaskPriority{
		models.TaskPriorityLow, models.TaskPriorityMedium,
		models.TaskPriorityHigh, models.TaskPriorityUrgent,
	}
	statuses := []models.TaskStatus{
		models.TaskStatusTodo, models.TaskStatusInProgress, models.TaskStatusCompleted,
	}

	hours := uint(1 + f.rng.Intn(40))
	task := &models.Task{
		Title:          strings.TrimSuffix(gofakeit.Sentence(5), "."),
		Description:    gofakeit.Sentence(15),
		DueDate:        time.Now().AddDate(0, 0, f.rng.Intn(30)-7),
		Priority:       priorities[f.rng.Intn(len(priorities))],
		Status:         statuses[f.rng.Intn(len(statuses))],
		ProjectID:      project.ID,
		CreatedByID:    creator.ID,
		EstimatedHours: &hours,
		Labels:         strings.Join(pick(f.rng, taskLabelPool, 1+f.rng.Intn(3)), ","),
	}
	task.CreatedAt = f.pastTime()
	if assignee != nil {
		task.AssignedToID = &assignee.ID
	}
	if task.Status == models.TaskStatusCompleted {
		done := task.CreatedAt.Add(time.Duration(1+f.rng.Intn(120)) * time.Hour)
		task.CompletedAt = &done
		actual := uint(1 + f.rng.Intn(50))
		task.ActualHours = &actual
	}

	for _, override := range overrides {
		override(task)
	}
	if err := f.persist(task); err != nil {
		return nil, err
	}
	return task, nil
}

func pick(rng *rand.Rand, pool []string, n int) []string {
	if n > len(pool) {
		n = len(pool)
	}
	idx := rng.Perm(len(pool))[:n]
	out := make([]string, 0, n)
	for _, i := range idx {
		out = append(out, pool[i])
	}
	return out
}
