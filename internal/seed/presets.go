package seed

import (
	"fmt"
	"strings"

	"blogicum/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BuiltInCategory is a permanent starter category.
type BuiltInCategory struct {
	Title       string
	Slug        string
	Description string
}

// BuiltInCategories defines the starter categories every fresh install gets.
var BuiltInCategories = []BuiltInCategory{
	{Title: "Travel", Slug: "travel", Description: "Trip reports, itineraries, and places worth the detour."},
	{Title: "Food & Drink", Slug: "food", Description: "Recipes, restaurants, and kitchen experiments."},
	{Title: "Technology", Slug: "tech", Description: "Software, hardware, and the tools we argue about."},
	{Title: "Books", Slug: "books", Description: "Reading lists, reviews, and the occasional rant."},
	{Title: "Music", Slug: "music", Description: "New releases, old favorites, and live shows."},
	{Title: "Photography", Slug: "photography", Description: "Photo essays and notes on how the shot happened."},
	{Title: "City Life", Slug: "city-life", Description: "Urban wandering, hidden corners, and local history."},
	{Title: "Outdoors", Slug: "outdoors", Description: "Hikes, camps, and weather that did not cooperate."},
	{Title: "Science", Slug: "science", Description: "Plain-language writeups of things worth knowing."},
	{Title: "Personal", Slug: "personal", Description: "Diaries, milestones, and everything uncategorizable."},
}

// BuiltInLocations defines the starter locations posts can be tagged with.
var BuiltInLocations = []string{
	"Lisbon", "Tbilisi", "Kyoto", "Oaxaca", "Tallinn",
	"Valparaíso", "Marseille", "Bergen", "Hanoi", "Montevideo",
}

// Builtins seeds the starter categories and locations. Safe to run on every
// startup: categories upsert by slug and keep their publication state, so an
// admin who unpublished one does not see it flip back.
func Builtins(db *gorm.DB) error {
	for _, item := range BuiltInCategories {
		category := models.Category{
			Title:       item.Title,
			Slug:        item.Slug,
			Description: item.Description,
			IsPublished: true,
		}
		if err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "slug"}},
			DoUpdates: clause.AssignmentColumns([]string{"title", "description", "updated_at"}),
		}).Create(&category).Error; err != nil {
			return fmt.Errorf("seed built-in category %s: %w", item.Slug, err)
		}
	}

	for _, name := range BuiltInLocations {
		var location models.Location
		if err := db.Where(models.Location{Name: name}).
			Attrs(models.Location{IsPublished: true}).
			FirstOrCreate(&location).Error; err != nil {
			return fmt.Errorf("seed built-in location %s: %w", name, err)
		}
	}

	return nil
}

// ApplyPreset runs a named seeding scenario.
func (s *Seeder) ApplyPreset(name string) error {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "showcase":
		return s.presetShowcase()
	case "megablog":
		return s.presetMegaBlog()
	default:
		return fmt.Errorf("unknown preset %q (available: showcase, megablog)", name)
	}
}

// presetShowcase builds a small, browsable blog: every publication state is
// represented, including posts trapped under an unpublished category.
func (s *Seeder) presetShowcase() error {
	if err := Builtins(s.db); err != nil {
		return err
	}

	users, err := s.SeedAuthors(6)
	if err != nil {
		return err
	}

	hidden, err := s.factory.CreateCategory(func(c *models.Category) {
		c.Title = "Backstage"
		c.Slug = "backstage"
		c.Description = "Unpublished category; its posts are invisible to readers."
		c.IsPublished = false
	})
	if err != nil {
		return fmt.Errorf("create hidden category: %w", err)
	}

	if _, err := s.SeedActivity(users, 40); err != nil {
		return err
	}

	// A couple of posts readers can never see, but their authors can.
	for i := 0; i < 2; i++ {
		author := users[i%len(users)]
		if _, err := s.factory.CreatePost(&author, func(p *models.Post) {
			p.CategoryID = &hidden.ID
		}); err != nil {
			return fmt.Errorf("create backstage post: %w", err)
		}
	}

	return nil
}

// presetMegaBlog builds a large dataset for pagination and load testing.
func (s *Seeder) presetMegaBlog() error {
	if err := Builtins(s.db); err != nil {
		return err
	}
	users, err := s.SeedAuthors(100)
	if err != nil {
		return err
	}
	_, err = s.SeedActivity(users, 1000)
	return err
}
