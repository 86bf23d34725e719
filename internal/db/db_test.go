package db

import (
	"testing"

	"github.com/diewo77/facturacion/internal/config"
	"github.com/diewo77/facturacion/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), false)
	if err != nil {
		t.Fatal(err)
	}
	return conn
}

func TestMigrateCreatesTables(t *testing.T) {
	conn := openTestDB(t)
	if err := CheckSchema(conn); err == nil {
		t.Fatal("expected missing tables before migrate")
	}
	if err := Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := Migrate(conn); err != nil {
		t.Fatalf("second migrate should be a no-op: %v", err)
	}
}

func TestSeedIdempotent(t *testing.T) {
	conn := openTestDB(t)
	if err := Migrate(conn); err != nil {
		t.Fatal(err)
	}
	if err := Seed(conn); err != nil {
		t.Fatal(err)
	}
	if err := Seed(conn); err != nil {
		t.Fatal(err)
	}
	var customers, products int64
	conn.Model(&models.Customer{}).Count(&customers)
	conn.Model(&models.Product{}).Count(&products)
	if customers != 2 {
		t.Fatalf("expected 2 customers got %d", customers)
	}
	if products != 4 {
		t.Fatalf("expected 4 products got %d", products)
	}
}

func TestDialector(t *testing.T) {
	if _, err := Dialector(config.DatabaseConfig{Driver: "oracle"}); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
	d, err := Dialector(config.DatabaseConfig{Driver: "sqlite", SQLitePath: ":memory:"})
	if err != nil || d.Name() != "sqlite" {
		t.Fatalf("expected sqlite dialector, got %v %v", d, err)
	}
	d, err = Dialector(config.DatabaseConfig{Driver: "postgres", Host: "h", Port: 5432, User: "u", DBName: "f", SSLMode: "disable"})
	if err != nil || d.Name() != "postgres" {
		t.Fatalf("expected postgres dialector, got %v %v", d, err)
	}
}

func TestConnectSQLite(t *testing.T) {
	conn, err := Connect(config.DatabaseConfig{Driver: "sqlite", SQLitePath: "file:" + t.Name() + "?mode=memory&cache=shared"})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}
