package seed

import (
	"fmt"
	"log"

	"crewdesk/internal/models"

	"gorm.io/gorm"
)

// Options configuration for the seeder.
type Options struct {
	NumUsers    int
	NumPosts    int
	NumProjects int
	ShouldClean bool
}

// Seed populates the database with demo data: users of every role,
// built-in categories, tagged posts with comments and likes, and projects
// with members and tasks.
func Seed(db *gorm.DB, opts Options) error {
	log.Printf("Seeding database: %d users, %d posts, %d projects", opts.NumUsers, opts.NumPosts, opts.NumProjects)

	if opts.ShouldClean {
		if err := clearData(db); err != nil {
			log.Println("Warning: could not clear all existing data, continuing anyway")
		}
	}

	if err := Categories(db); err != nil {
		return fmt.Errorf("seed built-in categories: %w", err)
	}

	factory := NewFactory(db, SeedOptions{})

	users, err := createUsers(factory, opts.NumUsers)
	if err != nil {
		return fmt.Errorf("create users: %w", err)
	}
	log.Printf("Created %d users", len(users))

	tags, err := createTags(db)
	if err != nil {
		return fmt.Errorf("create tags: %w", err)
	}

	posts, err := createPosts(db, factory, users, tags, opts.NumPosts)
	if err != nil {
		return fmt.Errorf("create posts: %w", err)
	}
	log.Printf("Created %d posts", len(posts))

	if err := createEngagement(db, factory, users, posts); err != nil {
		return fmt.Errorf("create engagement: %w", err)
	}

	projects, err := createProjects(db, factory, users, opts.NumProjects)
	if err != nil {
		return fmt.Errorf("create projects: %w", err)
	}
	log.Printf("Created %d projects with tasks", len(projects))

	log.Println("Seeding complete")
	return nil
}

// clearData truncates seedable tables in dependency order.
func clearData(db *gorm.DB) error {
	tables := []string{
		"task_attachments", "task_comments", "tasks", "project_members", "projects",
		"likes", "bookmarks", "comments", "post_tags", "posts", "tags",
		"profiles", "users",
	}
	for _, table := range tables {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return err
		}
	}
	return nil
}

// createUsers builds one admin, a couple of moderators, and regular users
// for the rest.
func createUsers(factory *Factory, n int) ([]*models.User, error) {
	if n < 4 {
		n = 4
	}
	users := make([]*models.User, 0, n)
	for i := 0; i < n; i++ {
		role := models.RoleUser
		switch {
		case i == 0:
			role = models.RoleAdmin
		case i <= 2:
			role = models.RoleModerator
		}
		user, err := factory.CreateUser(i, role)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

var seedTagNames = []string{
	"go", "postgres", "redis", "testing", "performance", "tooling",
	"deployment", "observability", "api-design", "security",
}

func createTags(db *gorm.DB) ([]*models.Tag, error) {
	tags := make([]*models.Tag, 0, len(seedTagNames))
	for _, name := range seedTagNames {
		tag := &models.Tag{Name: name, Slug: models.Slugify(name)}
		if err := db.Where("slug = ?", tag.Slug).FirstOrCreate(tag).Error; err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

func createPosts(db *gorm.DB, factory *Factory, users []*models.User, tags []*models.Tag, n int) ([]*models.Post, error) {
	var categories []*models.Category
	if err := db.Where("is_active = ?", true).Find(&categories).Error; err != nil {
		return nil, err
	}

	posts := make([]*models.Post, 0, n)
	for i := 0; i < n; i++ {
		author := users[factory.rng.Intn(len(users))]
		var category *models.Category
		if len(categories) > 0 && factory.rng.Intn(10) < 8 {
			category = categories[factory.rng.Intn(len(categories))]
		}
		posts = append(posts, factory.BuildPost(author, category))
	}
	if err := factory.CreatePostsBatch(posts); err != nil {
		return nil, err
	}

	// Attach one to three tags per post.
	for _, post := range posts {
		count := 1 + factory.rng.Intn(3)
		assigned := make([]models.Tag, 0, count)
		for _, idx := range factory.rng.Perm(len(tags))[:count] {
			assigned = append(assigned, *tags[idx])
		}
		if err := db.Model(post).Association("Tags").Replace(assigned); err != nil {
			return nil, err
		}
	}
	return posts, nil
}

// createEngagement spreads comments, likes, and bookmarks over published
// posts and keeps the persisted counters in line with the rows.
func createEngagement(db *gorm.DB, factory *Factory, users []*models.User, posts []*models.Post) error {
	for _, post := range posts {
		if !post.IsPublished {
			continue
		}

		for i := 0; i < factory.rng.Intn(4); i++ {
			commenter := users[factory.rng.Intn(len(users))]
			if _, err := factory.CreateComment(post, commenter); err != nil {
				return err
			}
		}

		likers := factory.rng.Perm(len(users))[:factory.rng.Intn(len(users)/2+1)]
		for _, idx := range likers {
			like := &models.Like{PostID: post.ID, UserID: users[idx].ID}
			if err := db.Create(like).Error; err != nil {
				return err
			}
		}
		if len(likers) > 0 {
			if err := db.Model(post).Update("likes_count", len(likers)).Error; err != nil {
				return err
			}
		}

		if factory.rng.Intn(4) == 0 {
			bookmark := &models.Bookmark{PostID: post.ID, UserID: users[factory.rng.Intn(len(users))].ID}
			if err := db.Create(bookmark).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

func createProjects(db *gorm.DB, factory *Factory, users []*models.User, n int) ([]*models.Project, error) {
	staff := make([]*models.User, 0, len(users))
	for _, u := range users {
		if u.Role == models.RoleAdmin || u.Role == models.RoleModerator {
			staff = append(staff, u)
		}
	}
	if len(staff) == 0 {
		return nil, fmt.Errorf("no staff users available to own projects")
	}

	projects := make([]*models.Project, 0, n)
	for i := 0; i < n; i++ {
		creator := staff[factory.rng.Intn(len(staff))]
		project, err := factory.CreateProject(creator)
		if err != nil {
			return nil, err
		}

		// Every project gets a few members and a batch of tasks assigned
		// to them.
		memberCount := 2 + factory.rng.Intn(4)
		members := make([]*models.User, 0, memberCount)
		for _, idx := range factory.rng.Perm(len(users))[:memberCount] {
			members = append(members, users[idx])
			if err := db.Model(project).Association("Members").Append(users[idx]); err != nil {
				return nil, err
			}
		}

		taskCount := 3 + factory.rng.Intn(8)
		for j := 0; j < taskCount; j++ {
			var assignee *models.User
			if factory.rng.Intn(4) > 0 {
				assignee = members[factory.rng.Intn(len(members))]
			}
			task, err := factory.CreateTask(project, creator, assignee)
			if err != nil {
				return nil, err
			}
			if factory.rng.Intn(3) == 0 {
				note := &models.TaskComment{TaskID: task.ID, UserID: creator.ID, Comment: "Scoped during planning."}
				if err := db.Create(note).Error; err != nil {
					return nil, err
				}
			}
		}
		projects = append(projects, project)
	}
	return projects, nil
}
