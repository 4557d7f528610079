package store

import (
	"database/sql"
	"fmt"
	"os"
	"strings"
)

// MergeConfig configures the merge operation.
type MergeConfig struct {
	// SourcePaths are the SQLite datastores to merge from.
	SourcePaths []string
	// DestPath is the destination SQLite datastore, created if missing.
	DestPath string
}

// MergeStats counts the rows that were new to the destination.
type MergeStats struct {
	BlobsMerged      int
	MachinesMerged   int
	MatchesMerged    int
	FindingsMerged   int
	ProvenanceMerged int
	SourcesProcessed int
}

// mergedTable lists the columns copied for one table. Surrogate keys are
// left out so rows from different sources never collide on them.
type mergedTable struct {
	name    string
	columns []string
	count   func(*MergeStats) *int
}

var mergedTables = []mergedTable{
	{"blobs", []string{"id", "size"}, func(s *MergeStats) *int { return &s.BlobsMerged }},
	{"machines", []string{"id", "name", "description", "pattern", "structural_id", "keywords_json", "categories_json", "references_json"},
		func(s *MergeStats) *int { return &s.MachinesMerged }},
	{"matches", []string{"blob_id", "machine_id", "machine_name", "structural_id", "finding_id", "tags_json",
		"offset_start", "offset_end", "start_line", "start_column", "end_line", "end_column",
		"snippet_before", "snippet_matching", "snippet_after"},
		func(s *MergeStats) *int { return &s.MatchesMerged }},
	{"findings", []string{"id", "machine_id", "tags_json", "content"}, func(s *MergeStats) *int { return &s.FindingsMerged }},
	{"provenance", []string{"blob_id", "kind", "path", "repo_path", "commit_hash", "detail"},
		func(s *MergeStats) *int { return &s.ProvenanceMerged }},
}

// Merge combines multiple datastores into one. Rows already present in the
// destination are skipped through the unique keys of each table.
func Merge(cfg MergeConfig) (*MergeStats, error) {
	if len(cfg.SourcePaths) == 0 {
		return nil, fmt.Errorf("no source databases specified")
	}
	if cfg.DestPath == "" {
		return nil, fmt.Errorf("destination path is required")
	}

	dest, err := NewSQLite(cfg.DestPath)
	if err != nil {
		return nil, fmt.Errorf("opening destination database: %w", err)
	}
	defer dest.Close()

	stats := &MergeStats{}
	for _, sourcePath := range cfg.SourcePaths {
		if err := mergeFrom(dest.db, sourcePath, stats); err != nil {
			return stats, fmt.Errorf("merging from %s: %w", sourcePath, err)
		}
		stats.SourcesProcessed++
	}
	return stats, nil
}

// mergeFrom copies every table of one source inside a single transaction.
func mergeFrom(destDB *sql.DB, sourcePath string, stats *MergeStats) error {
	if _, err := os.Stat(sourcePath); err != nil {
		return err
	}
	source, err := sql.Open(sqliteDialect.driver, sqliteDSN(sourcePath))
	if err != nil {
		return fmt.Errorf("opening source database: %w", err)
	}
	defer source.Close()

	var version int
	if err := source.QueryRow("SELECT MAX(version) FROM schema_version").Scan(&version); err != nil {
		return fmt.Errorf("reading source schema version: %w", err)
	}
	if version != SchemaVersion {
		return fmt.Errorf("source schema version %d does not match %d", version, SchemaVersion)
	}

	tx, err := destDB.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range mergedTables {
		n, err := mergeTable(tx, source, table)
		if err != nil {
			return fmt.Errorf("merging %s: %w", table.name, err)
		}
		*table.count(stats) += n
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func mergeTable(tx *sql.Tx, source *sql.DB, table mergedTable) (int, error) {
	columns := strings.Join(table.columns, ", ")

	rows, err := source.Query(fmt.Sprintf("SELECT %s FROM %s", columns, table.name))
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(table.columns)), ", ")
	stmt, err := tx.Prepare(fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT DO NOTHING",
		table.name, columns, placeholders))
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	values := make([]any, len(table.columns))
	dest := make([]any, len(table.columns))
	for i := range values {
		dest[i] = &values[i]
	}

	count := 0
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return count, err
		}
		result, err := stmt.Exec(values...)
		if err != nil {
			return count, err
		}
		if affected, _ := result.RowsAffected(); affected > 0 {
			count++
		}
	}
	return count, rows.Err()
}
