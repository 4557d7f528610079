package enum

import (
	"context"
	"sync"

	"github.com/praetorian-inc/dfamatch/pkg/types"
)

// CombinedEnumerator runs several enumerators in order and yields each
// unique blob at most once across all of them.
type CombinedEnumerator struct {
	enumerators []Enumerator
}

// NewCombinedEnumerator wraps the provided enumerators.
func NewCombinedEnumerator(enumerators ...Enumerator) *CombinedEnumerator {
	return &CombinedEnumerator{enumerators: enumerators}
}

// Enumerate runs each child enumerator in sequence, suppressing blobs whose
// BlobID was already yielded.
func (c *CombinedEnumerator) Enumerate(ctx context.Context, fn BlobFunc) error {
	var mu sync.Mutex
	seen := make(map[types.BlobID]struct{})

	for _, e := range c.enumerators {
		err := e.Enumerate(ctx, func(content []byte, blobID types.BlobID, prov types.Provenance) error {
			mu.Lock()
			_, dup := seen[blobID]
			seen[blobID] = struct{}{}
			mu.Unlock()
			if dup {
				return nil
			}
			return fn(content, blobID, prov)
		})
		if err != nil {
			return err
		}
	}
	return nil
}
