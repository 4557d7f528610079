package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/praetorian-inc/dfamatch/pkg/types"
)

// sqlStore implements Store on top of database/sql. The SQLite and
// PostgreSQL backends differ only in their dialect.
type sqlStore struct {
	db *sql.DB
	d  dialect
}

func openSQL(d dialect, dsn string) (*sqlStore, error) {
	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s database: %w", d.name, err)
	}
	if d.oneConn {
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to %s database: %w", d.name, err)
	}
	return newSQLStore(db, d)
}

func newSQLStore(db *sql.DB, d dialect) (*sqlStore, error) {
	if err := createSchema(db, d); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &sqlStore{db: db, d: d}, nil
}

// DB returns the underlying database handle.
func (s *sqlStore) DB() *sql.DB {
	return s.db
}

func (s *sqlStore) exec(query string, args ...any) error {
	_, err := s.db.Exec(s.d.rebind(query), args...)
	return err
}

// AddBlob stores a blob record.
func (s *sqlStore) AddBlob(id types.BlobID, size int64) error {
	err := s.exec("INSERT INTO blobs (id, size) VALUES (?, ?) ON CONFLICT DO NOTHING", id, size)
	if err != nil {
		return fmt.Errorf("inserting blob: %w", err)
	}
	return nil
}

// AddMachine records machine metadata, replacing an earlier record.
func (s *sqlStore) AddMachine(m *types.Machine) error {
	keywords, err := marshalStrings(m.Keywords)
	if err != nil {
		return err
	}
	categories, err := marshalStrings(m.Categories)
	if err != nil {
		return err
	}
	references, err := marshalStrings(m.References)
	if err != nil {
		return err
	}

	err = s.exec(`
		INSERT INTO machines (id, name, description, pattern, structural_id, keywords_json, categories_json, references_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			pattern = excluded.pattern,
			structural_id = excluded.structural_id,
			keywords_json = excluded.keywords_json,
			categories_json = excluded.categories_json,
			references_json = excluded.references_json
	`, m.ID, m.Name, m.Description, m.Pattern, m.StructuralID, keywords, categories, references)
	if err != nil {
		return fmt.Errorf("inserting machine: %w", err)
	}
	return nil
}

// AddMatch stores a match record.
func (s *sqlStore) AddMatch(m *types.Match) error {
	tags, err := marshalStrings(m.Tags)
	if err != nil {
		return err
	}

	err = s.exec(`
		INSERT INTO matches (blob_id, machine_id, machine_name, structural_id, finding_id, tags_json,
			offset_start, offset_end, start_line, start_column, end_line, end_column,
			snippet_before, snippet_matching, snippet_after)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		m.BlobID,
		m.MachineID,
		m.MachineName,
		m.StructuralID,
		m.FindingID,
		tags,
		m.Location.Offset.Start,
		m.Location.Offset.End,
		m.Location.Source.Start.Line,
		m.Location.Source.Start.Column,
		m.Location.Source.End.Line,
		m.Location.Source.End.Column,
		nonNil(m.Snippet.Before),
		nonNil(m.Snippet.Matching),
		nonNil(m.Snippet.After),
	)
	if err != nil {
		return fmt.Errorf("inserting match: %w", err)
	}
	return nil
}

// AddFinding stores a finding (deduplicated).
func (s *sqlStore) AddFinding(f *types.Finding) error {
	tags, err := marshalStrings(f.Tags)
	if err != nil {
		return err
	}

	err = s.exec(`
		INSERT INTO findings (id, machine_id, tags_json, content)
		VALUES (?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`, f.ID, f.MachineID, tags, nonNil(f.Content))
	if err != nil {
		return fmt.Errorf("inserting finding: %w", err)
	}
	return nil
}

// AddProvenance associates provenance with a blob.
func (s *sqlStore) AddProvenance(blobID types.BlobID, prov types.Provenance) error {
	row, err := provenanceRowOf(blobID, prov)
	if err != nil {
		return err
	}

	err = s.exec(`
		INSERT INTO provenance (blob_id, kind, path, repo_path, commit_hash, detail)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`, row.blobID, row.kind, row.path, row.repoPath, row.commitHash, row.detail)
	if err != nil {
		return fmt.Errorf("inserting provenance: %w", err)
	}
	return nil
}

const selectMatches = `
	SELECT blob_id, machine_id, machine_name, structural_id, finding_id, tags_json,
		offset_start, offset_end, start_line, start_column, end_line, end_column,
		snippet_before, snippet_matching, snippet_after
	FROM matches`

// GetMatches retrieves matches for a blob.
func (s *sqlStore) GetMatches(blobID types.BlobID) ([]*types.Match, error) {
	return s.queryMatches(selectMatches+" WHERE blob_id = ? ORDER BY offset_start, offset_end, machine_id", blobID)
}

// GetAllMatches retrieves all matches.
func (s *sqlStore) GetAllMatches() ([]*types.Match, error) {
	return s.queryMatches(selectMatches + " ORDER BY blob_id, offset_start, offset_end, machine_id")
}

func (s *sqlStore) queryMatches(query string, args ...any) ([]*types.Match, error) {
	rows, err := s.db.Query(s.d.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("querying matches: %w", err)
	}
	defer rows.Close()

	matches := []*types.Match{}
	for rows.Next() {
		var m types.Match
		var tagsJSON string

		err := rows.Scan(
			&m.BlobID,
			&m.MachineID,
			&m.MachineName,
			&m.StructuralID,
			&m.FindingID,
			&tagsJSON,
			&m.Location.Offset.Start,
			&m.Location.Offset.End,
			&m.Location.Source.Start.Line,
			&m.Location.Source.Start.Column,
			&m.Location.Source.End.Line,
			&m.Location.Source.End.Column,
			&m.Snippet.Before,
			&m.Snippet.Matching,
			&m.Snippet.After,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning match: %w", err)
		}
		if m.Tags, err = unmarshalStrings(tagsJSON); err != nil {
			return nil, err
		}
		matches = append(matches, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating matches: %w", err)
	}
	return matches, nil
}

// GetFindings retrieves all findings ordered by machine and ID.
func (s *sqlStore) GetFindings() ([]*types.Finding, error) {
	rows, err := s.db.Query("SELECT id, machine_id, tags_json, content FROM findings ORDER BY machine_id, id")
	if err != nil {
		return nil, fmt.Errorf("querying findings: %w", err)
	}
	defer rows.Close()

	findings := []*types.Finding{}
	for rows.Next() {
		var f types.Finding
		var tagsJSON string
		if err := rows.Scan(&f.ID, &f.MachineID, &tagsJSON, &f.Content); err != nil {
			return nil, fmt.Errorf("scanning finding: %w", err)
		}
		if f.Tags, err = unmarshalStrings(tagsJSON); err != nil {
			return nil, err
		}
		findings = append(findings, &f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating findings: %w", err)
	}
	return findings, nil
}

// GetMachines retrieves recorded machines ordered by ID.
func (s *sqlStore) GetMachines() ([]*types.Machine, error) {
	rows, err := s.db.Query(`
		SELECT id, name, description, pattern, structural_id, keywords_json, categories_json, references_json
		FROM machines ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying machines: %w", err)
	}
	defer rows.Close()

	machines := []*types.Machine{}
	for rows.Next() {
		var m types.Machine
		var keywords, categories, references string
		err := rows.Scan(&m.ID, &m.Name, &m.Description, &m.Pattern, &m.StructuralID, &keywords, &categories, &references)
		if err != nil {
			return nil, fmt.Errorf("scanning machine: %w", err)
		}
		if m.Keywords, err = unmarshalStrings(keywords); err != nil {
			return nil, err
		}
		if m.Categories, err = unmarshalStrings(categories); err != nil {
			return nil, err
		}
		if m.References, err = unmarshalStrings(references); err != nil {
			return nil, err
		}
		machines = append(machines, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating machines: %w", err)
	}
	return machines, nil
}

// GetProvenance retrieves all provenance records for a blob.
func (s *sqlStore) GetProvenance(blobID types.BlobID) ([]types.Provenance, error) {
	rows, err := s.db.Query(s.d.rebind(`
		SELECT kind, path, repo_path, commit_hash, detail
		FROM provenance WHERE blob_id = ? ORDER BY id
	`), blobID)
	if err != nil {
		return nil, fmt.Errorf("querying provenance: %w", err)
	}
	defer rows.Close()

	provs := []types.Provenance{}
	for rows.Next() {
		row := provenanceRow{blobID: blobID.Hex()}
		if err := rows.Scan(&row.kind, &row.path, &row.repoPath, &row.commitHash, &row.detail); err != nil {
			return nil, fmt.Errorf("scanning provenance: %w", err)
		}
		prov, err := row.provenance()
		if err != nil {
			return nil, err
		}
		provs = append(provs, prov)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating provenance: %w", err)
	}
	return provs, nil
}

// FindingExists checks if a finding with this ID exists.
func (s *sqlStore) FindingExists(id string) (bool, error) {
	return s.exists("SELECT COUNT(*) FROM findings WHERE id = ?", id)
}

// BlobExists checks if a blob has already been scanned.
func (s *sqlStore) BlobExists(id types.BlobID) (bool, error) {
	return s.exists("SELECT COUNT(*) FROM blobs WHERE id = ?", id)
}

func (s *sqlStore) exists(query string, arg any) (bool, error) {
	var count int
	if err := s.db.QueryRow(s.d.rebind(query), arg).Scan(&count); err != nil {
		return false, fmt.Errorf("checking existence: %w", err)
	}
	return count > 0, nil
}

// Close closes the database connection.
func (s *sqlStore) Close() error {
	return s.db.Close()
}

func marshalStrings(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("marshaling strings: %w", err)
	}
	return string(data), nil
}

func unmarshalStrings(data string) ([]string, error) {
	var values []string
	if err := json.Unmarshal([]byte(data), &values); err != nil {
		return nil, fmt.Errorf("unmarshaling strings: %w", err)
	}
	return values, nil
}

// nonNil keeps empty byte slices from being stored as NULL.
func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}
