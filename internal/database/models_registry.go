package database

import "blogicum/internal/models"

// PersistentModels lists every GORM model the schema manager owns.
// Migration and the test harness both build their table set from here.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Category{},
		&models.Location{},
		&models.Post{},
		&models.Comment{},
		&models.Image{},
	}
}
