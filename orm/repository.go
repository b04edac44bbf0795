package orm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Repository persists artifact records. Records are inserted once and never
// updated or removed.
type Repository interface {
	// Insert assigns an ID and creation time and stores every other field
	// verbatim. The argument is not modified.
	Insert(ctx context.Context, record *ArtifactRecord) (*ArtifactRecord, error)
	// Find returns every record matching filter. Result order is not part of
	// the contract.
	Find(ctx context.Context, filter RecordFilter) ([]ArtifactRecord, error)
	Close(ctx context.Context) error
}

// prepareInsert validates record and returns the copy that gets persisted.
func prepareInsert(record *ArtifactRecord) (*ArtifactRecord, error) {
	if record == nil {
		return nil, &BadInputError{Reason: "nil artifact record"}
	}

	if strings.TrimSpace(record.StoragePath) == "" {
		return nil, &BadInputError{
			Reason: fmt.Sprintf("storage path must be provided for record %q", record.Name),
		}
	}

	stored := *record
	if record.Owner != nil {
		owner := *record.Owner
		stored.Owner = &owner
	}
	stored.ID = uuid.NewString()
	stored.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)

	return &stored, nil
}

func recordDetails(record *ArtifactRecord) string {
	owner := "<none>"
	if record.Owner != nil {
		owner = *record.Owner
	}

	return fmt.Sprintf(
		"name=%q, path=%q, owner=%q, category=%q",
		record.Name,
		record.StoragePath,
		owner,
		record.Category,
	)
}
