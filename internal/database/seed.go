package database

import (
	"log"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
)

func SeedSites(db *sqlx.DB) error {
	// Check if sites already exist
	var count int
	if err := db.Get(&count, "SELECT COUNT(*) FROM sites"); err != nil {
		return err
	}

	if count > 0 {
		log.Println("✓ Sites already seeded, skipping...")
		return nil
	}

	log.Println("🌱 Seeding sites...")

	sites := []map[string]interface{}{
		{"name": "Riverside Business Park", "address": "14 Quayside Rd, London SE1 9PX", "latitude": 51.5045, "longitude": -0.0865, "radius_meters": 120.0, "timezone": "Europe/London"},
		{"name": "Northgate Shopping Centre", "address": "221 High St, Manchester M4 1AZ", "latitude": 53.4839, "longitude": -2.2446, "radius_meters": 200.0, "timezone": "Europe/London"},
		{"name": "Harbour Point Warehouse", "address": "8 Dock Lane, Liverpool L3 4AD", "latitude": 53.4031, "longitude": -2.9916, "radius_meters": 150.0, "timezone": "Europe/London"},
		{"name": "Summit Tower", "address": "55 King William St, London EC4R 9AD", "latitude": 51.5107, "longitude": -0.0877, "radius_meters": 80.0, "timezone": "Europe/London"},
		{"name": "Westfield Construction Site", "address": "Plot 7, Ariel Way, London W12 7GF", "latitude": 51.5074, "longitude": -0.2211, "radius_meters": 250.0, "timezone": "Europe/London"},
	}

	for _, site := range sites {
		id := uuid.New().String()
		_, err := db.Exec(`
			INSERT INTO sites (id, name, address, latitude, longitude, radius_meters, timezone)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, id, site["name"], site["address"], site["latitude"], site["longitude"], site["radius_meters"], site["timezone"])

		if err != nil {
			return err
		}
	}

	log.Printf("✓ Successfully seeded %d sites", len(sites))
	return nil
}

func SeedUsers(db *sqlx.DB) error {
	// Check if users already exist
	var count int
	if err := db.Get(&count, "SELECT COUNT(*) FROM users"); err != nil {
		return err
	}

	if count > 0 {
		log.Println("✓ Users already seeded, skipping...")
		return nil
	}

	log.Println("🌱 Seeding test users...")

	// Hash passwords
	guardPassword, err := bcrypt.GenerateFromPassword([]byte("guard123"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	managerPassword, err := bcrypt.GenerateFromPassword([]byte("manager123"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	companyID := uuid.New().String()

	users := []map[string]interface{}{
		{
			"id":         uuid.New().String(),
			"email":      "guard@guardpost.io",
			"password":   string(guardPassword),
			"name":       "Sam Reynolds",
			"role":       "guard",
			"company_id": companyID,
		},
		{
			"id":         uuid.New().String(),
			"email":      "guard2@guardpost.io",
			"password":   string(guardPassword),
			"name":       "Priya Nair",
			"role":       "guard",
			"company_id": companyID,
		},
		{
			"id":         uuid.New().String(),
			"email":      "manager@guardpost.io",
			"password":   string(managerPassword),
			"name":       "Control Room",
			"role":       "manager",
			"company_id": companyID,
		},
	}

	for _, user := range users {
		query := `
			INSERT INTO users (id, email, password, name, role, company_id)
			VALUES (:id, :email, :password, :name, :role, :company_id)
		`
		if _, err := db.NamedExec(query, user); err != nil {
			return err
		}
		log.Printf("  ✓ Created user: %s (%s)", user["email"], user["role"])
	}

	log.Println("✓ Successfully seeded test users")
	log.Println("  📧 Guard:   guard@guardpost.io / guard123")
	log.Println("  📧 Manager: manager@guardpost.io / manager123")
	return nil
}
