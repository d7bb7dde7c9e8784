// Package seed provides database seeding utilities for development and testing.
package seed

import (
	"fmt"
	"log"
	"time"

	"blogicum/internal/models"

	"gorm.io/gorm"
)

// Options configuration for the seeder.
type Options struct {
	// SkipBcrypt stores the seed password in plain text instead of hashing
	// it. Logins will not work, but seeding thousands of users gets fast.
	SkipBcrypt bool
	// DryRun builds entities without touching the database.
	DryRun bool
	// BatchSize is the insert chunk size for bulk post creation.
	BatchSize int
	// MaxDays is how far back publication dates are spread.
	MaxDays int
}

// Distribution controls how seeded posts split across publication states,
// in percent. The remainder after integer division goes to published posts.
type Distribution struct {
	Published int
	Draft     int
	Scheduled int
}

var defaultDistribution = Distribution{Published: 70, Draft: 20, Scheduled: 10}

func computeCounts(total int, d Distribution) (published, draft, scheduled int) {
	published = total * d.Published / 100
	draft = total * d.Draft / 100
	scheduled = total * d.Scheduled / 100
	published += total - published - draft - scheduled
	return published, draft, scheduled
}

// Seeder populates the database with demo content.
type Seeder struct {
	db      *gorm.DB
	opts    Options
	factory *Factory
}

// NewSeeder creates a Seeder bound to the provided Gorm DB.
func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	return &Seeder{db: db, opts: opts, factory: NewFactory(db, opts)}
}

// Factory exposes the underlying entity factory for fine-grained seeding.
func (s *Seeder) Factory() *Factory {
	return s.factory
}

// ClearAll removes every seeded row. On PostgreSQL identity sequences are
// reset too; other dialects fall back to ordered deletes.
func (s *Seeder) ClearAll() error {
	log.Println("🗑️  Clearing existing data...")

	if s.db.Dialector.Name() == "postgres" {
		return s.db.Exec(
			`TRUNCATE TABLE comments, posts, images, categories, locations, users RESTART IDENTITY CASCADE`,
		).Error
	}

	// Children before parents so foreign keys stay satisfied.
	for _, model := range []any{
		&models.Comment{}, &models.Post{}, &models.Image{},
		&models.Category{}, &models.Location{}, &models.User{},
	} {
		if err := s.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Unscoped().Delete(model).Error; err != nil {
			return err
		}
	}
	return nil
}

// SeedAuthors creates count users. The first three are fixed well-known
// accounts so local logins stay predictable across reseeds.
func (s *Seeder) SeedAuthors(count int) ([]models.User, error) {
	users := make([]models.User, 0, count)

	if count >= 3 {
		for _, fixed := range []struct {
			username, first, last, bio string
		}{
			{"frida", "Frida", "Romero", "Paints first, writes about it later."},
			{"maria", "Maria", "Stern", "Travel notes and bad coffee reviews."},
			{"test", "Test", "User", "The account everyone logs into."},
		} {
			user, err := s.factory.CreateUser(func(u *models.User) {
				u.Username = fixed.username
				u.Email = fmt.Sprintf("%s@example.com", fixed.username)
				u.FirstName = fixed.first
				u.LastName = fixed.last
				u.Bio = fixed.bio
			})
			if err != nil {
				return nil, fmt.Errorf("create fixed user %s: %w", fixed.username, err)
			}
			users = append(users, *user)
		}
	}

	for i := len(users); i < count; i++ {
		user, err := s.factory.CreateUser()
		if err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
		users = append(users, *user)

		if i > 0 && i%100 == 0 {
			log.Printf("Created %d users...", i)
		}
	}

	return users, nil
}

// SeedActivity creates numPosts posts spread across the seeded authors and
// the existing categories and locations, then sprinkles comments on the
// published ones. Posts follow the default publication-state distribution.
func (s *Seeder) SeedActivity(users []models.User, numPosts int) ([]*models.Post, error) {
	if len(users) == 0 {
		return nil, fmt.Errorf("no users to attribute posts to")
	}

	var categories []models.Category
	if err := s.db.Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}
	var locations []models.Location
	if err := s.db.Find(&locations).Error; err != nil {
		return nil, fmt.Errorf("load locations: %w", err)
	}

	published, draft, scheduled := computeCounts(numPosts, defaultDistribution)
	states := make([]string, 0, numPosts)
	for i := 0; i < published; i++ {
		states = append(states, PostStatePublished)
	}
	for i := 0; i < draft; i++ {
		states = append(states, PostStateDraft)
	}
	for i := 0; i < scheduled; i++ {
		states = append(states, PostStateScheduled)
	}

	posts := make([]*models.Post, 0, numPosts)
	for _, state := range states {
		author := users[s.factory.rng.Intn(len(users))]
		post := s.factory.BuildPostWithState(&author, state, func(p *models.Post) {
			if len(categories) > 0 && s.factory.rng.Float32() < 0.8 {
				id := categories[s.factory.rng.Intn(len(categories))].ID
				p.CategoryID = &id
			}
			if len(locations) > 0 && s.factory.rng.Float32() < 0.5 {
				id := locations[s.factory.rng.Intn(len(locations))].ID
				p.LocationID = &id
			}
		})
		posts = append(posts, post)
	}

	if err := s.factory.CreatePostsBatch(posts); err != nil {
		return nil, fmt.Errorf("create posts: %w", err)
	}
	log.Printf("✓ %d posts created (%d published, %d drafts, %d scheduled)",
		len(posts), published, draft, scheduled)

	comments := 0
	for _, post := range posts {
		if !post.IsPublished || post.PubDate.After(time.Now()) {
			continue
		}
		for i := 0; i < s.factory.rng.Intn(5); i++ {
			commenter := users[s.factory.rng.Intn(len(users))]
			if _, err := s.factory.CreateComment(&commenter, post); err != nil {
				return nil, fmt.Errorf("create comment: %w", err)
			}
			comments++
		}
	}
	log.Printf("✓ %d comments created", comments)

	return posts, nil
}
