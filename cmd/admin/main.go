// Package main is the operator CLI for managing admin accounts. Admin
// rights are never granted over the API; promotion happens here or through
// the development root bootstrap.
package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"

	"blogicum/internal/config"
	"blogicum/internal/database"
	"blogicum/internal/models"

	"gorm.io/gorm"
)

func usage() {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  go run ./cmd/admin promote <user_id>    - grant admin rights")
	fmt.Fprintln(os.Stderr, "  go run ./cmd/admin demote <user_id>     - revoke admin rights")
	fmt.Fprintln(os.Stderr, "  go run ./cmd/admin find <username>      - look up a user by name")
	fmt.Fprintln(os.Stderr, "  go run ./cmd/admin list-admins          - list all admins")
	os.Exit(1)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Load config: %v", err)
	}
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Connect database: %v", err)
	}

	switch os.Args[1] {
	case "promote":
		setAdmin(db, argUserID(), true)
	case "demote":
		setAdmin(db, argUserID(), false)
	case "find":
		if len(os.Args) < 3 {
			usage()
		}
		findUser(db, os.Args[2])
	case "list-admins":
		listAdmins(db)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		usage()
	}
}

// argUserID parses os.Args[2] as a user ID or exits with usage help.
func argUserID() uint {
	if len(os.Args) < 3 {
		usage()
	}
	id, err := strconv.ParseUint(os.Args[2], 10, 32)
	if err != nil || id == 0 {
		fmt.Fprintf(os.Stderr, "Invalid user ID %q\n", os.Args[2])
		os.Exit(1)
	}
	return uint(id)
}

func loadUser(db *gorm.DB, id uint) models.User {
	var user models.User
	if err := db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fmt.Printf("User with ID %d not found\n", id)
			os.Exit(1)
		}
		log.Fatalf("Database error: %v", err)
	}
	return user
}

func setAdmin(db *gorm.DB, id uint, admin bool) {
	user := loadUser(db, id)

	if user.IsAdmin == admin {
		state := "is not an admin"
		if admin {
			state = "is already an admin"
		}
		fmt.Printf("User %s (ID: %d) %s\n", user.Username, user.ID, state)
		return
	}

	user.IsAdmin = admin
	if err := db.Save(&user).Error; err != nil {
		log.Fatalf("Failed to update user: %v", err)
	}

	if admin {
		fmt.Printf("✅ Promoted %s (ID: %d) to admin\n", user.Username, user.ID)
	} else {
		fmt.Printf("✅ Demoted %s (ID: %d) from admin\n", user.Username, user.ID)
	}
}

func findUser(db *gorm.DB, username string) {
	var user models.User
	err := db.Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		fmt.Printf("No user named %q\n", username)
		os.Exit(1)
	}
	if err != nil {
		log.Fatalf("Database error: %v", err)
	}

	role := "member"
	if user.IsAdmin {
		role = "admin"
	}
	fmt.Printf("ID: %d | Username: %s | Email: %s | Role: %s\n", user.ID, user.Username, user.Email, role)
}

func listAdmins(db *gorm.DB) {
	var admins []models.User
	if err := db.Where("is_admin = ?", true).Order("id").Find(&admins).Error; err != nil {
		log.Fatalf("Query admins: %v", err)
	}

	if len(admins) == 0 {
		fmt.Println("No admins found")
		return
	}

	fmt.Printf("\n👑 Admins (%d):\n", len(admins))
	for _, admin := range admins {
		fmt.Printf("  #%d  %s <%s>\n", admin.ID, admin.Username, admin.Email)
	}
}
