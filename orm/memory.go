package orm

import (
	"context"
	"sync"
)

// MemoryRepository keeps records in process memory in insertion order.
// Used for local development and tests.
type MemoryRepository struct {
	mu      sync.RWMutex
	records []ArtifactRecord
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) Insert(
	ctx context.Context,
	record *ArtifactRecord,
) (*ArtifactRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, &DatabaseError{Inner: err}
	}

	stored, err := prepareInsert(record)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.records = append(r.records, *stored)
	r.mu.Unlock()

	return stored, nil
}

func (r *MemoryRepository) Find(
	ctx context.Context,
	filter RecordFilter,
) ([]ArtifactRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, &DatabaseError{Inner: err}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]ArtifactRecord, 0, len(r.records))
	for i := range r.records {
		if filter.Matches(&r.records[i]) {
			result = append(result, r.records[i])
		}
	}

	return result, nil
}

func (r *MemoryRepository) Close(context.Context) error {
	return nil
}

// Count returns the number of stored records (useful for testing)
func (r *MemoryRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.records)
}
