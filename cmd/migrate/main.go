// Command migrate applies or rolls back database schema changes.
//
//	migrate up              apply pending SQL migrations
//	migrate auto            sync the schema from the model registry
//	migrate down <version>  roll back one applied migration
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"crewdesk/internal/config"
	"crewdesk/internal/database"

	"gorm.io/gorm"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: migrate <up|auto|down> [version]")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}

	ctx := context.Background()
	if err := runCommand(ctx, db, flag.Args()); err != nil {
		log.Fatal(err)
	}
}

func runCommand(ctx context.Context, db *gorm.DB, args []string) error {
	switch args[0] {
	case "up":
		if err := database.RunMigrations(ctx, db); err != nil {
			return err
		}
		log.Println("sql migrations applied")
		return nil
	case "auto":
		if err := db.AutoMigrate(database.PersistentModels()...); err != nil {
			return fmt.Errorf("automigrate: %w", err)
		}
		log.Println("schema synced from model registry")
		return nil
	case "down":
		if len(args) < 2 {
			return fmt.Errorf("down requires a version, e.g. migrate down 1")
		}
		version, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid version %q", args[1])
		}
		if err := database.RollbackMigration(ctx, db, version); err != nil {
			return err
		}
		log.Printf("rolled back migration %06d", version)
		return nil
	default:
		return fmt.Errorf("unknown command %q (want up, auto, or down)", args[0])
	}
}
