package main

import (
	"log"
	"os"

	"move-quote-be/internal/model"
	"move-quote-be/pkg/database"

	"github.com/joho/godotenv"
)

func main() {
	// 1. Environment
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	// 2. Connect
	opts := database.DefaultOptions()
	opts.Verbose = true
	db, err := database.NewGormDBFromDSN(dsn, opts)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	log.Println("Step 1: Setting up extensions...")
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS pgcrypto;`).Error; err != nil {
		log.Printf("Warn: Failed to create pgcrypto extension: %v. Continuing...", err)
	}

	// 3. Tables
	log.Println("Step 2: Running AutoMigrate...")
	models := []interface{}{
		&model.Quote{},
		&model.SessionRecord{},
		&model.UploadedImage{},
	}
	if err := db.AutoMigrate(models...); err != nil {
		log.Fatalf("Error: AutoMigrate failed: %v", err)
	}

	// 4. Constraints AutoMigrate does not express
	log.Println("Step 3: Adding check constraints...")
	postMigrationSQL := []string{
		`DO $$ BEGIN
		   ALTER TABLE quotes ADD CONSTRAINT quotes_status_check
		   CHECK (status IN ('submitted', 'processing', 'completed', 'cancelled'));
		 EXCEPTION WHEN duplicate_object THEN NULL; END $$;`,
		`DO $$ BEGIN
		   ALTER TABLE uploaded_images ADD CONSTRAINT uploaded_images_status_check
		   CHECK (status IN ('pending', 'recognized', 'failed'));
		 EXCEPTION WHEN duplicate_object THEN NULL; END $$;`,
	}
	for _, sql := range postMigrationSQL {
		if err := db.Exec(sql).Error; err != nil {
			log.Printf("Warn: Failed to execute post-migration SQL: %v", err)
		}
	}

	log.Println("Success: Database migration completed.")
}
