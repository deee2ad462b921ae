// ShiftDB holds the work shift records written by shift_tracker.
// The shift key is the primary key, so a machine's shift can only ever have one row.
// Other services may read it but should not write to it.
package shiftdb

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/NotCoffee418/dbmigrator"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

type ShiftDB struct {
	db *sql.DB
}

// Open creates the database file if needed and applies pending migrations.
func Open(path string) (*ShiftDB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open shift db: %w", err)
	}
	// Single writer, pollers queue on the pool instead of fighting over the file lock
	db.SetMaxOpenConns(1)

	// Create DB before migrations
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping shift db %s: %w", path, err)
	}

	dbmigrator.SetDatabaseType(dbmigrator.SQLite)
	<-dbmigrator.MigrateUpCh(
		db,
		migrationFS,
		"migrations",
	)

	return &ShiftDB{db: db}, nil
}

func (s *ShiftDB) Close() error {
	return s.db.Close()
}
