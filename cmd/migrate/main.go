package main

import (
	"fmt"
	"log"
	"os"

	"guardpost-backend/internal/database"

	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Get database URL
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	// Connect to database
	db, err := database.Connect(dbURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Run schema migrations
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	// Optional seed pass
	if os.Getenv("SEED") == "true" {
		if err := database.SeedUsers(db); err != nil {
			log.Fatalf("User seeding failed: %v", err)
		}
		if err := database.SeedSites(db); err != nil {
			log.Fatalf("Site seeding failed: %v", err)
		}
	}

	// Query and display summary
	var result struct {
		Users      int `db:"users"`
		Sites      int `db:"sites"`
		Shifts     int `db:"shifts"`
		Timesheets int `db:"timesheets"`
	}

	query := `
		SELECT
			(SELECT COUNT(*) FROM users) AS users,
			(SELECT COUNT(*) FROM sites) AS sites,
			(SELECT COUNT(*) FROM shifts) AS shifts,
			(SELECT COUNT(*) FROM timesheets) AS timesheets
	`

	if err := db.Get(&result, query); err != nil {
		log.Fatalf("Failed to query summary: %v", err)
	}

	fmt.Println("\n============================================================")
	fmt.Println("MIGRATION SUMMARY")
	fmt.Println("============================================================")
	fmt.Printf("Users:       %d\n", result.Users)
	fmt.Printf("Sites:       %d\n", result.Sites)
	fmt.Printf("Shifts:      %d\n", result.Shifts)
	fmt.Printf("Timesheets:  %d\n", result.Timesheets)
	fmt.Println("============================================================")
}
