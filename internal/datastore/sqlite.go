package datastore

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/pcbaoi/aoi-go/internal/conf"
	"github.com/pcbaoi/aoi-go/internal/logging"
)

// SQLiteStore implements DataStore for SQLite
type SQLiteStore struct {
	DataStore
	Settings *conf.Settings
}

func validateSQLiteConfig(settings *conf.Settings) error {
	if settings.Output.SQLite.Path == "" {
		return validationError("sqlite database path is required", "output.sqlite.path", "")
	}
	return nil
}

// Open sets up the SQLite database connection and migrates the schema.
func (store *SQLiteStore) Open() error {
	if err := validateSQLiteConfig(store.Settings); err != nil {
		return err
	}

	// _busy_timeout keeps concurrent writers from failing immediately with
	// SQLITE_BUSY; failures past the timeout surface as ErrStorageUnavailable.
	dsn := fmt.Sprintf("%s?_busy_timeout=5000&_journal_mode=WAL", store.Settings.Output.SQLite.Path)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: createGormLogger()})
	if err != nil {
		return storageError(err, "open", "db_type", "sqlite")
	}

	store.DB = db
	store.SetLogger(logging.ForService("datastore"))

	if err := performAutoMigration(db, store.Settings.Debug, "SQLite", store.Settings.Output.SQLite.Path); err != nil {
		return err
	}
	return store.SeedBoxes(store.Settings.Sorting.BoxCapacity)
}

// Close releases the underlying connection pool.
func (store *SQLiteStore) Close() error {
	if store.DB == nil {
		return nil
	}
	sqlDB, err := store.DB.DB()
	if err != nil {
		return storageError(err, "close", "db_type", "sqlite")
	}
	return sqlDB.Close()
}
