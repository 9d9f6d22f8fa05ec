// Package labelcache caches resolved display labels for reference fields,
// so rendering a review queue does not re-fetch every referenced record.
package labelcache

import (
	"context"
)

// Store is keyed by subject type and primary key. Get returns the empty
// string on a miss; misses are not errors.
type Store interface {
	Get(ctx context.Context, subjectType, id string) (string, error)
	Set(ctx context.Context, subjectType, id, label string) error
	Purge(ctx context.Context, subjectType, id string) error
}
