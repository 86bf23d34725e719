package main

import (
	"context"
	"log"

	"github.com/diewo77/facturacion/internal/config"
	"github.com/diewo77/facturacion/internal/db"
	"github.com/diewo77/facturacion/internal/services"
	"gorm.io/gorm"
)

// migrationsDir holds the versioned SQL files applied when MIGRATIONS=true.
const migrationsDir = "migrations"

// migrateSchema applies the versioned SQL migrations on postgres when enabled,
// and falls back to gorm AutoMigrate otherwise (always for sqlite).
func migrateSchema(cfg *config.Config, conn *gorm.DB) error {
	if cfg.App.Migrations && !cfg.Database.IsSQLite() {
		if err := db.RunSQLMigrations(cfg.Database.DSN(), migrationsDir); err != nil {
			return err
		}
		return db.CheckSchema(conn)
	}
	return db.Migrate(conn)
}

// prepareDatabase brings the schema up to date and seeds demo data if asked.
func prepareDatabase(cfg *config.Config, conn *gorm.DB) error {
	if err := migrateSchema(cfg, conn); err != nil {
		return err
	}
	if cfg.App.Seed {
		if err := db.Seed(conn); err != nil {
			return err
		}
		log.Println("Seed data loaded")
	}
	return nil
}

func reprint(ctx context.Context, cfg *config.Config, conn *gorm.DB, id uint) (string, error) {
	return services.NewBillingService(conn, cfg.App.InvoicesDir).Reprint(ctx, id)
}
