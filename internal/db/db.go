package db

import (
	"fmt"
	"os"
	"strings"
	"time"

	migrate "github.com/golang-migrate/migrate/v4"
	// Blank imports register the postgres driver and file source for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/diewo77/facturas/internal/models"
)

// ConnectAndMigrate opens the database behind dsn and brings the schema up
// to date. A postgres:// (or key=value) DSN selects the postgres driver,
// anything else is treated as a sqlite file path. With MIGRATIONS=1 the SQL
// migrations in ./migrations run via golang-migrate (postgres only);
// otherwise gorm AutoMigrate keeps the dev loop simple.
func ConnectAndMigrate(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("empty database DSN")
	}
	logLevel := logger.Silent
	if os.Getenv("DB_DEBUG") == "1" {
		logLevel = logger.Info
	}
	cfg := &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true, // unique violations surface as gorm.ErrDuplicatedKey
	}

	var (
		db  *gorm.DB
		err error
	)
	pg := isPostgres(dsn)
	for i := 0; i < 10; i++ {
		if pg {
			db, err = gorm.Open(postgres.Open(dsn), cfg)
		} else {
			db, err = gorm.Open(sqlite.Open(dsn), cfg)
		}
		if err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect database after retries: %w", err)
	}
	if pingErr := db.Exec("SELECT 1").Error; pingErr != nil {
		return nil, fmt.Errorf("db ping failed: %w", pingErr)
	}

	if v := strings.ToLower(os.Getenv("MIGRATIONS")); pg && (v == "1" || v == "true" || v == "yes") {
		if err := runSQLMigrations(dsn); err != nil {
			return nil, fmt.Errorf("sql migrations failed: %w", err)
		}
	} else {
		if err := db.AutoMigrate(models.All()...); err != nil {
			return nil, fmt.Errorf("automigrate: %w", err)
		}
	}

	if v := strings.ToLower(os.Getenv("DB_SEED")); v == "1" || v == "true" || v == "yes" {
		seed(db)
	}
	return db, nil
}

func isPostgres(dsn string) bool {
	lower := strings.ToLower(dsn)
	return strings.HasPrefix(lower, "postgres://") ||
		strings.HasPrefix(lower, "postgresql://") ||
		strings.Contains(lower, "host=")
}

// seed inserts a couple of demo products for development databases.
func seed(db *gorm.DB) {
	demo := []models.Product{
		{Name: "Tornillo M6", Description: "Caja de 100", UnitPrice: 4.84, TaxRate: 21, Active: true},
		{Name: "Mano de obra", Description: "Hora de taller", UnitPrice: 36.30, TaxRate: 21, Active: true},
	}
	for _, p := range demo {
		var existing models.Product
		if err := db.Where("UPPER(name) = ? AND active = ?", strings.ToUpper(p.Name), true).
			First(&existing).Error; err == gorm.ErrRecordNotFound {
			db.Create(&p)
		}
	}
}

// runSQLMigrations executes the migrations in ./migrations against postgres.
func runSQLMigrations(dsn string) error {
	m, err := migrate.New("file://migrations", dsn)
	if err != nil {
		return err
	}
	if err = m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}
