package main

import (
	"log"
	_ "time/tzdata"

	"github.com/wacampaign/campaign-scheduler/environments"
	"github.com/wacampaign/campaign-scheduler/pkg/database"
)

func main() {
	cfg := environments.Load()

	loc, err := cfg.Scheduler.Location()
	if err != nil {
		log.Fatalf("Invalid SCHEDULE_TIMEZONE: %v", err)
	}

	db, err := database.NewMySQLDB(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Failed to close database: %v", err)
		}
	}()

	if err := database.RunMigrations(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	if err := database.SeedTestData(db, loc); err != nil {
		log.Fatalf("Failed to seed test data: %v", err)
	}

	log.Println("Seed completed successfully")
}
