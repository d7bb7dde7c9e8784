// Command nuke_db drops and recreates the public schema. Development only;
// pair with `cmd/migrate up` to rebuild from scratch.
package main

import (
	"fmt"
	"log"
	"strings"

	"blogicum/internal/config"
	"blogicum/internal/database"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}
	if strings.EqualFold(cfg.Env, "production") || strings.EqualFold(cfg.Env, "prod") {
		log.Fatal("refusing to nuke a production database")
	}

	db, err := database.ConnectWithOptions(cfg, database.ConnectOptions{ApplySchema: false})
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("Dropping public schema...")
	for _, stmt := range []string{
		"DROP SCHEMA public CASCADE",
		"CREATE SCHEMA public",
		"GRANT ALL ON SCHEMA public TO public",
	} {
		if err := db.Exec(stmt).Error; err != nil {
			log.Fatalf("%s: %v", stmt, err)
		}
	}
	fmt.Println("Schema recreated. Run cmd/migrate to rebuild tables.")
}
