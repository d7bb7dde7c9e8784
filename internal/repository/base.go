package repository

import (
	"blogicum/internal/database"

	"gorm.io/gorm"
)

// readDB picks the connection for read-only queries: the replica when one is
// configured and healthy, otherwise the primary.
func readDB(primary *gorm.DB) *gorm.DB {
	replica := database.GetReadDB()
	if replica == nil {
		return primary
	}
	return replica
}
