package store

import (
	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresStore implements Store using PostgreSQL through the pgx driver.
type PostgresStore struct {
	*sqlStore
}

// NewPostgres connects to the database at dsn and creates the schema.
func NewPostgres(dsn string) (*PostgresStore, error) {
	s, err := openSQL(postgresDialect, dsn)
	if err != nil {
		return nil, err
	}
	return &PostgresStore{sqlStore: s}, nil
}
