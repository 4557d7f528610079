package store

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
)

// SchemaVersion is the current datastore schema version.
const SchemaVersion = 1

// dialect captures the differences between the SQL backends.
type dialect struct {
	name      string
	driver    string
	serialKey string // auto-incrementing primary key column definition
	bytesType string
	numbered  bool // placeholders are $1, $2, ... instead of ?
	oneConn   bool // database is not safe for concurrent connections
}

var (
	sqliteDialect = dialect{
		name:      "sqlite",
		driver:    "sqlite",
		serialKey: "INTEGER PRIMARY KEY AUTOINCREMENT",
		bytesType: "BLOB",
		oneConn:   true,
	}
	postgresDialect = dialect{
		name:      "postgres",
		driver:    "pgx",
		serialKey: "BIGSERIAL PRIMARY KEY",
		bytesType: "BYTEA",
		numbered:  true,
	}
)

// rebind rewrites ? placeholders for dialects that number them.
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func (d dialect) schema() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS blobs (
			id TEXT PRIMARY KEY,
			size BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS machines (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			pattern TEXT NOT NULL DEFAULT '',
			structural_id TEXT NOT NULL,
			keywords_json TEXT NOT NULL DEFAULT '[]',
			categories_json TEXT NOT NULL DEFAULT '[]',
			references_json TEXT NOT NULL DEFAULT '[]'
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS matches (
			id %s,
			blob_id TEXT NOT NULL,
			machine_id TEXT NOT NULL,
			machine_name TEXT NOT NULL DEFAULT '',
			structural_id TEXT NOT NULL UNIQUE,
			finding_id TEXT NOT NULL,
			tags_json TEXT NOT NULL,
			offset_start BIGINT NOT NULL,
			offset_end BIGINT NOT NULL,
			start_line INTEGER NOT NULL DEFAULT 0,
			start_column INTEGER NOT NULL DEFAULT 0,
			end_line INTEGER NOT NULL DEFAULT 0,
			end_column INTEGER NOT NULL DEFAULT 0,
			snippet_before %[2]s,
			snippet_matching %[2]s,
			snippet_after %[2]s
		)`, d.serialKey, d.bytesType),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS findings (
			id TEXT PRIMARY KEY,
			machine_id TEXT NOT NULL,
			tags_json TEXT NOT NULL,
			content %s
		)`, d.bytesType),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS provenance (
			id %s,
			blob_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			path TEXT NOT NULL DEFAULT '',
			repo_path TEXT NOT NULL DEFAULT '',
			commit_hash TEXT NOT NULL DEFAULT '',
			detail TEXT NOT NULL DEFAULT '',
			UNIQUE(blob_id, kind, path, repo_path, commit_hash)
		)`, d.serialKey),
		`CREATE INDEX IF NOT EXISTS idx_matches_blob ON matches(blob_id)`,
		`CREATE INDEX IF NOT EXISTS idx_matches_finding ON matches(finding_id)`,
		`CREATE INDEX IF NOT EXISTS idx_provenance_blob ON provenance(blob_id)`,
	}
}

// CreateSchema initializes the SQLite schema. It is idempotent.
func CreateSchema(db *sql.DB) error {
	return createSchema(db, sqliteDialect)
}

func createSchema(db *sql.DB, d dialect) error {
	for _, stmt := range d.schema() {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM schema_version").Scan(&count); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}
	if count == 0 {
		if _, err := db.Exec(d.rebind("INSERT INTO schema_version (version) VALUES (?)"), SchemaVersion); err != nil {
			return fmt.Errorf("recording schema version: %w", err)
		}
		return nil
	}

	var version int
	if err := db.QueryRow("SELECT MAX(version) FROM schema_version").Scan(&version); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}
	if version != SchemaVersion {
		return fmt.Errorf("unsupported schema version %d (want %d)", version, SchemaVersion)
	}
	return nil
}
