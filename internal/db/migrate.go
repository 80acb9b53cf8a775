package db

import (
	"fmt"

	"github.com/campusconnect/campus/internal/models"
	"gorm.io/gorm"
)

// AllModels returns every GORM model in dependency order for migration.
func AllModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Education{},
		&models.Experience{},
		&models.Project{},
		&models.Skill{},
		&models.Interest{},
		&models.Post{},
		&models.PostLike{},
		&models.SavedPost{},
		&models.Thread{},
		&models.ThreadVote{},
		&models.SavedThread{},
		&models.Comment{},
		&models.Assessment{},
		&models.Interview{},
		&models.RevokedToken{},
		&models.LiveSession{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}

// Reset drops every table and recreates the schema. Only used for local
// SQLite databases; MySQL resets drop the whole database instead.
func Reset(db *gorm.DB) error {
	all := AllModels()
	for i := len(all) - 1; i >= 0; i-- {
		if err := db.Migrator().DropTable(all[i]); err != nil {
			return fmt.Errorf("db: drop table: %w", err)
		}
	}
	return AutoMigrate(db)
}
