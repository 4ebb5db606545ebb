package repository

import (
	"crewdesk/internal/database"

	"gorm.io/gorm"
)

// readDB returns the replica connection for read paths when one is
// configured, otherwise the primary.
func readDB(primary *gorm.DB) *gorm.DB {
	if db := database.GetReadDB(); db != nil {
		return db
	}
	return primary
}
