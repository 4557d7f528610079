package store

import (
	"encoding/json"
	"fmt"

	"github.com/praetorian-inc/dfamatch/pkg/types"
)

// provenanceRow is the flattened column form of a provenance record.
// Absent values are stored as empty strings so the unique constraint on
// (blob_id, kind, path, repo_path, commit_hash) holds for every kind.
type provenanceRow struct {
	blobID     string
	kind       string
	path       string
	repoPath   string
	commitHash string
	detail     string // commit metadata or extended payload as JSON
}

func (r provenanceRow) key() string {
	return r.blobID + "\x00" + r.kind + "\x00" + r.path + "\x00" + r.repoPath + "\x00" + r.commitHash
}

func provenanceRowOf(blobID types.BlobID, prov types.Provenance) (provenanceRow, error) {
	row := provenanceRow{blobID: blobID.Hex(), kind: prov.Kind()}

	switch p := prov.(type) {
	case types.FileProvenance:
		row.path = p.FilePath
	case types.GitProvenance:
		row.path = p.BlobPath
		row.repoPath = p.RepoPath
		if p.Commit != nil {
			row.commitHash = p.Commit.CommitID
			detail, err := json.Marshal(p.Commit)
			if err != nil {
				return row, fmt.Errorf("marshaling commit metadata: %w", err)
			}
			row.detail = string(detail)
		}
	case types.ExtendedProvenance:
		row.path = p.Path()
		detail, err := json.Marshal(p.Payload)
		if err != nil {
			return row, fmt.Errorf("marshaling provenance payload: %w", err)
		}
		row.detail = string(detail)
	default:
		return row, fmt.Errorf("unknown provenance type: %T", prov)
	}
	return row, nil
}

func (r provenanceRow) provenance() (types.Provenance, error) {
	switch r.kind {
	case "file":
		return types.FileProvenance{FilePath: r.path}, nil
	case "git":
		p := types.GitProvenance{RepoPath: r.repoPath, BlobPath: r.path}
		if r.detail != "" {
			p.Commit = &types.CommitMetadata{}
			if err := json.Unmarshal([]byte(r.detail), p.Commit); err != nil {
				return nil, fmt.Errorf("unmarshaling commit metadata: %w", err)
			}
		}
		return p, nil
	case "extended":
		p := types.ExtendedProvenance{}
		if r.detail != "" {
			if err := json.Unmarshal([]byte(r.detail), &p.Payload); err != nil {
				return nil, fmt.Errorf("unmarshaling provenance payload: %w", err)
			}
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown provenance kind %q", r.kind)
	}
}
