// Package repository persists allocation indexes between queries, one
// durable entry per registry. Backends report how long ago an entry was
// written; the freshness decision itself belongs to the service layer.
package repository

import (
	"context"
	"time"

	"rirblocks/internal/model"
)

// Store is the cache behind the allocation service.
//
// Load returns model.ErrCacheMiss when no entry exists for the registry
// and model.ErrCacheCorrupt when one exists but cannot be deserialized;
// the two are distinct on purpose. Save overwrites the entry so that a
// concurrent reader never observes a partial write.
type Store interface {
	Load(ctx context.Context, registry string) (model.AllocationIndex, time.Duration, error)
	Save(ctx context.Context, registry string, index model.AllocationIndex) error
}
