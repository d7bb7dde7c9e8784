package seed

import (
	"testing"

	"blogicum/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestBuiltins_Idempotent(t *testing.T) {
	t.Parallel()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	if err := db.AutoMigrate(&models.Category{}, &models.Location{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	if err := Builtins(db); err != nil {
		t.Fatalf("first seed: %v", err)
	}
	if err := Builtins(db); err != nil {
		t.Fatalf("second seed: %v", err)
	}

	var categoryCount int64
	if err := db.Model(&models.Category{}).Count(&categoryCount).Error; err != nil {
		t.Fatalf("count categories: %v", err)
	}
	if categoryCount != int64(len(BuiltInCategories)) {
		t.Fatalf("expected %d categories, got %d", len(BuiltInCategories), categoryCount)
	}

	var locationCount int64
	if err := db.Model(&models.Location{}).Count(&locationCount).Error; err != nil {
		t.Fatalf("count locations: %v", err)
	}
	if locationCount != int64(len(BuiltInLocations)) {
		t.Fatalf("expected %d locations, got %d", len(BuiltInLocations), locationCount)
	}

	for _, item := range BuiltInCategories {
		var category models.Category
		if err := db.Where("slug = ?", item.Slug).First(&category).Error; err != nil {
			t.Fatalf("missing category %s: %v", item.Slug, err)
		}
		if category.Title != item.Title {
			t.Fatalf("category %s title mismatch: got %q", item.Slug, category.Title)
		}
	}
}

func TestBuiltins_KeepsAdminUnpublish(t *testing.T) {
	t.Parallel()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.Category{}, &models.Location{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := Builtins(db); err != nil {
		t.Fatalf("seed: %v", err)
	}

	// An admin takes travel offline; a redeploy reseed must not flip it back.
	if err := db.Model(&models.Category{}).
		Where("slug = ?", "travel").
		Update("is_published", false).Error; err != nil {
		t.Fatalf("unpublish travel: %v", err)
	}

	if err := Builtins(db); err != nil {
		t.Fatalf("reseed: %v", err)
	}

	var travel models.Category
	if err := db.Where("slug = ?", "travel").First(&travel).Error; err != nil {
		t.Fatalf("load travel: %v", err)
	}
	if travel.IsPublished {
		t.Fatal("reseed republished an admin-unpublished category")
	}
}
