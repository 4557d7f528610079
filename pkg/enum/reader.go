package enum

import (
	"context"
	"fmt"
	"io"

	"github.com/praetorian-inc/dfamatch/pkg/types"
)

// ReaderEnumerator yields the whole content of a reader as one blob, such as
// standard input.
type ReaderEnumerator struct {
	r      io.Reader
	source string
}

// NewReaderEnumerator reads r; source names it in the provenance.
func NewReaderEnumerator(r io.Reader, source string) *ReaderEnumerator {
	return &ReaderEnumerator{r: r, source: source}
}

// Enumerate reads the reader to EOF and yields its content.
func (e *ReaderEnumerator) Enumerate(ctx context.Context, fn BlobFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	content, err := io.ReadAll(e.r)
	if err != nil {
		return fmt.Errorf("reading %s: %w", e.source, err)
	}
	prov := types.ExtendedProvenance{Payload: map[string]any{"source": e.source}}
	return fn(content, types.ComputeBlobID(content), prov)
}
