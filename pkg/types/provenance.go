package types

import "time"

// Provenance records where a blob came from.
type Provenance interface {
	Kind() string
	// Path returns a displayable location, or "".
	Path() string
}

// FileProvenance is a file read from the filesystem.
type FileProvenance struct {
	FilePath string
}

// Kind returns "file".
func (f FileProvenance) Kind() string { return "file" }

// Path returns the file path.
func (f FileProvenance) Path() string { return f.FilePath }

// GitProvenance is a blob read from a git repository.
type GitProvenance struct {
	RepoPath string
	Commit   *CommitMetadata // nil when commit info is not tracked
	BlobPath string          // path within the tree at Commit
}

// Kind returns "git".
func (g GitProvenance) Kind() string { return "git" }

// Path returns the blob path within the repository.
func (g GitProvenance) Path() string { return g.BlobPath }

// CommitMetadata holds git commit information.
type CommitMetadata struct {
	CommitID           string
	AuthorName         string
	AuthorEmail        string
	AuthorTimestamp    time.Time
	CommitterName      string
	CommitterEmail     string
	CommitterTimestamp time.Time
	Message            string
}

// ExtendedProvenance is content handed in by a caller, such as a serve
// request, with a free-form description.
type ExtendedProvenance struct {
	Payload map[string]any
}

// Kind returns "extended".
func (e ExtendedProvenance) Kind() string { return "extended" }

// Path returns the "path" or "source" entry of the payload, if it is a string.
func (e ExtendedProvenance) Path() string {
	for _, key := range []string{"path", "source"} {
		if s, ok := e.Payload[key].(string); ok {
			return s
		}
	}
	return ""
}
