// Command seed populates the development database with demo authors, posts
// and comments. Presets build themed datasets; the default path seeds the
// requested volume on top of the built-in categories and locations.
package main

import (
	"flag"
	"fmt"
	"log"

	"blogicum/internal/config"
	"blogicum/internal/database"
	"blogicum/internal/seed"
)

func main() {
	users := flag.Int("users", 25, "number of authors to create")
	posts := flag.Int("posts", 200, "number of posts to create")
	clean := flag.Bool("clean", true, "wipe seeded tables first")
	skipBcrypt := flag.Bool("skip-bcrypt", false, "store plain seed passwords (fast, logins will not work)")
	preset := flag.String("preset", "", "apply a named preset (showcase, megablog)")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Println("==================")
	if *preset != "" {
		log.Printf("Applying preset %q (volume flags ignored)", *preset)
	} else {
		log.Printf("Target: %d authors, %d posts, clean=%v", *users, *posts, *clean)
	}

	if err := run(*users, *posts, *clean, *skipBcrypt, *preset); err != nil {
		log.Fatalf("❌ %v", err)
	}

	log.Println("✨ All done! Your database is now populated with test data.")
	log.Printf("📧 All test users have the password: %s", seed.SeedPassword)
}

func run(users, posts int, clean, skipBcrypt bool, preset string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if cfg.IsProduction() {
		return fmt.Errorf("refusing to seed a production database (APP_ENV=%s)", cfg.Env)
	}
	db, err := database.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	s := seed.NewSeeder(db, seed.Options{SkipBcrypt: skipBcrypt, MaxDays: 90})
	if clean {
		if err := s.ClearAll(); err != nil {
			return fmt.Errorf("cleanup: %w", err)
		}
	}

	if preset != "" {
		return s.ApplyPreset(preset)
	}

	if err := seed.Builtins(db); err != nil {
		return fmt.Errorf("seed built-in categories: %w", err)
	}
	authors, err := s.SeedAuthors(users)
	if err != nil {
		return fmt.Errorf("seed authors: %w", err)
	}
	if _, err := s.SeedActivity(authors, posts); err != nil {
		return fmt.Errorf("seed posts and comments: %w", err)
	}
	return nil
}
