package orm

import "fmt"

// CategoryPredicate selects records by category.
type CategoryPredicate int

const (
	AnyCategory CategoryPredicate = iota
	OnlyGenerated
	ExceptGenerated
)

func (p CategoryPredicate) String() string {
	switch p {
	case OnlyGenerated:
		return "category=generated"
	case ExceptGenerated:
		return "category!=generated"
	default:
		return "any"
	}
}

// RecordFilter is a conjunction of an optional category predicate and an
// optional owner equality. Both clauses are evaluated independently.
type RecordFilter struct {
	Category CategoryPredicate
	Owner    *string
}

func AllRecords() RecordFilter {
	return RecordFilter{}
}

func GeneratedRecords() RecordFilter {
	return RecordFilter{Category: OnlyGenerated}
}

func GeneratedRecordsOf(owner string) RecordFilter {
	return RecordFilter{Category: OnlyGenerated, Owner: &owner}
}

func OtherRecords() RecordFilter {
	return RecordFilter{Category: ExceptGenerated}
}

func OtherRecordsOf(owner string) RecordFilter {
	return RecordFilter{Category: ExceptGenerated, Owner: &owner}
}

// Matches evaluates the filter against a record in memory.
func (f RecordFilter) Matches(record *ArtifactRecord) bool {
	switch f.Category {
	case OnlyGenerated:
		if record.Category != CategoryGenerated {
			return false
		}
	case ExceptGenerated:
		if record.Category == CategoryGenerated {
			return false
		}
	case AnyCategory:
	}

	if f.Owner != nil && !record.IsOwnedBy(*f.Owner) {
		return false
	}

	return true
}

func (f RecordFilter) String() string {
	if f.Owner == nil {
		return f.Category.String()
	}

	return fmt.Sprintf("%s, owner=%q", f.Category, *f.Owner)
}
