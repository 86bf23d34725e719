package db

import (
	"errors"
	"fmt"
	"log"

	"github.com/diewo77/facturacion/internal/models"
	migrate "github.com/golang-migrate/migrate/v4"
	// Register the postgres driver and file source for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"gorm.io/gorm"
)

// requiredTables must exist once the schema is in place.
var requiredTables = []string{"clientes", "productos", "facturas", "detalle_facturas", "usuarios"}

// Migrate applies the schema with gorm AutoMigrate.
func Migrate(conn *gorm.DB) error {
	for _, m := range models.All() {
		if err := conn.AutoMigrate(m); err != nil {
			return fmt.Errorf("automigrate %T: %w", m, err)
		}
	}
	return CheckSchema(conn)
}

// CheckSchema verifies that every table the services use exists.
func CheckSchema(conn *gorm.DB) error {
	for _, table := range requiredTables {
		if !conn.Migrator().HasTable(table) {
			return errors.New("missing table after migration: " + table)
		}
	}
	return nil
}

// RunSQLMigrations applies the versioned SQL files in dir to a postgres
// database. dsn may be in key=value or URL form.
func RunSQLMigrations(dsn, dir string) error {
	m, err := migrate.New("file://"+dir, ToURLDSN(NormalizeDSN(dsn)))
	if err != nil {
		return fmt.Errorf("init migrate: %w", err)
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			log.Printf("[DB] migrate close: source=%v db=%v", srcErr, dbErr)
		}
	}()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	v, dirty, verr := m.Version()
	if verr == nil {
		log.Printf("[DB] schema at version %d (dirty=%v)", v, dirty)
	}
	return nil
}
