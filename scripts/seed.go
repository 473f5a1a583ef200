//go:build ignore

package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/meritan/go-curator/internal/auth"
	"github.com/meritan/go-curator/internal/database"
	"github.com/meritan/go-curator/internal/taxonomy"
	"github.com/meritan/go-curator/pkg/config"
	"github.com/meritan/go-curator/pkg/util"
)

// Seeds an admin user and, when TAXONOMY_CSV is set, a category taxonomy
// from a flat CSV export. The CSV must carry "code", "name" and "parent_code"
// columns; rows referencing a parent outside the file become roots.
func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLogger(cfg.Server.Env)

	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	ctx := context.Background()

	// Create admin user
	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Expiry())
	authService := auth.NewService(db, jwtService)

	email := os.Getenv("ADMIN_EMAIL")
	password := os.Getenv("ADMIN_PASSWORD")
	name := os.Getenv("ADMIN_NAME")

	if email == "" {
		email = "admin@example.com"
	}
	if password == "" {
		password = "admin123!"
	}
	if name == "" {
		name = "Admin"
	}

	resp, err := authService.Register(ctx, auth.RegisterInput{
		Email:    email,
		Password: password,
		Name:     name,
		OrgName:  "Default Organization",
	})
	if err != nil {
		if err == auth.ErrUserExists {
			fmt.Printf("Admin user already exists: %s\n", email)
		} else {
			log.Fatalf("failed to create admin user: %v", err)
		}
	} else {
		fmt.Printf("Admin user created successfully!\n")
		fmt.Printf("Email: %s\n", resp.User.Email)
		fmt.Printf("Token: %s\n", resp.Token)
	}

	// Optionally seed a taxonomy from CSV
	csvPath := os.Getenv("TAXONOMY_CSV")
	if csvPath == "" {
		return
	}

	taxName := os.Getenv("TAXONOMY_NAME")
	taxVersion := os.Getenv("TAXONOMY_VERSION")
	if taxName == "" {
		taxName = "default"
	}
	if taxVersion == "" {
		taxVersion = "v1"
	}

	f, err := os.Open(csvPath)
	if err != nil {
		log.Fatalf("failed to open taxonomy csv: %v", err)
	}
	defer f.Close()

	rows, err := taxonomy.LoadRowsCSV(f, "code", "name")
	if err != nil {
		log.Fatalf("failed to parse taxonomy csv: %v", err)
	}

	svc := taxonomy.NewService(db, logger)
	tax, created, err := svc.EnsureTaxonomy(ctx, taxName, taxVersion, "Seeded from CSV", csvPath, "")
	if err != nil {
		log.Fatalf("failed to ensure taxonomy: %v", err)
	}
	if !created {
		fmt.Printf("Taxonomy %s %s already exists, skipping category seeding\n", taxName, taxVersion)
		return
	}

	createdCount, linked, err := svc.SeedCategories(ctx, tax.ID, rows, func(r taxonomy.Row) string {
		return r.Data["parent_code"]
	})
	if err != nil {
		log.Fatalf("failed to seed categories: %v", err)
	}

	fmt.Printf("Seeded %d categories (%d linked to parents) into %s %s\n", createdCount, linked, taxName, taxVersion)
}
