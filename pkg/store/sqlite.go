package store

import (
	"strings"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	*sqlStore
}

// NewSQLite creates a SQLite-based store at path.
func NewSQLite(path string) (*SQLiteStore, error) {
	s, err := openSQL(sqliteDialect, sqliteDSN(path))
	if err != nil {
		return nil, err
	}
	return &SQLiteStore{sqlStore: s}, nil
}

// sqliteDSN adds the connection pragmas unless the caller supplied a query.
func sqliteDSN(path string) string {
	if strings.Contains(path, "?") {
		return path
	}
	dsn := path + "?_pragma=busy_timeout(5000)"
	if path != MemoryPath {
		dsn += "&_pragma=journal_mode(WAL)"
	}
	return dsn
}
