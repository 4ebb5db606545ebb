package seed

import (
	"crewdesk/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BuiltInCategory is a permanent system category.
type BuiltInCategory struct {
	Name        string
	Slug        string
	Description string
	Color       string
	Icon        string
	Order       int
}

// BuiltInCategories defines the permanent system categories every
// deployment starts with.
var BuiltInCategories = []BuiltInCategory{
	{Name: "Announcements", Slug: "announcements", Description: "Platform updates and release notes.", Color: "#e74c3c", Icon: "megaphone", Order: 1},
	{Name: "Engineering", Slug: "engineering", Description: "Software development and architecture.", Color: "#2980b9", Icon: "wrench", Order: 2},
	{Name: "Product", Slug: "product", Description: "Product planning and roadmaps.", Color: "#27ae60", Icon: "map", Order: 3},
	{Name: "Design", Slug: "design", Description: "UX, UI, and visual design.", Color: "#8e44ad", Icon: "palette", Order: 4},
	{Name: "Operations", Slug: "operations", Description: "Infrastructure, deployment, and on-call.", Color: "#f39c12", Icon: "server", Order: 5},
	{Name: "Culture", Slug: "culture", Description: "Team practices and ways of working.", Color: "#16a085", Icon: "users", Order: 6},
}

// Categories seeds the permanent built-in categories. Reruns update the
// descriptive fields in place and reactivate any that were deactivated.
func Categories(db *gorm.DB) error {
	for _, item := range BuiltInCategories {
		category := models.Category{
			Name:        item.Name,
			Slug:        item.Slug,
			Description: item.Description,
			Color:       item.Color,
			Icon:        item.Icon,
			Order:       item.Order,
			IsActive:    true,
		}
		if err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "slug"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "description", "color", "icon", "order", "is_active", "updated_at"}),
		}).Create(&category).Error; err != nil {
			return err
		}
	}
	return nil
}
