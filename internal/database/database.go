package database

import (
	"fmt"
	"log"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/librarian/internal/entities"
)

// Models lists every entity managed by AutoMigrate, parents first.
var Models = []any{
	&entities.User{},
	&entities.Profile{},
	&entities.Author{},
	&entities.Genre{},
	&entities.Book{},
	&entities.BookInstance{},
	&entities.BookReview{},
	&entities.AuditEvent{},
}

type Database struct {
	DB *gorm.DB
}

type Options struct {
	LogSQL bool
}

func NewDatabase(dbPath string, opts ...Options) (*Database, error) {
	var o Options
	if len(opts) > 0 {
		o = opts[0]
	}

	level := logger.Warn
	if o.LogSQL {
		level = logger.Info
	}

	db, err := gorm.Open(sqlite.Open(connectionDSN(dbPath)), &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(Models...); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	log.Printf("Database initialized successfully at %s", dbPath)

	return &Database{DB: db}, nil
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// connectionParams are applied to every pooled connection. Foreign keys make
// the ON DELETE constraints hold. WAL with a busy timeout lets the audit
// writer, the session store and request transactions share the file, and
// immediate transactions take the write lock up front instead of failing
// when a read lock cannot be upgraded.
var connectionParams = []struct{ key, value string }{
	{"_foreign_keys", "on"},
	{"_journal_mode", "WAL"},
	{"_busy_timeout", "5000"},
	{"_txlock", "immediate"},
}

// connectionDSN appends the connection parameters the DSN does not set yet.
func connectionDSN(dsn string) string {
	for _, param := range connectionParams {
		if strings.Contains(dsn, param.key+"=") {
			continue
		}
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + param.key + "=" + param.value
	}
	return dsn
}
