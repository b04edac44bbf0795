package orm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func ptr(s string) *string {
	return &s
}

func TestParseCategory(t *testing.T) {
	assert.Equal(t, CategoryGenerated, ParseCategory("generatedImage"))
	assert.Equal(t, CategoryGenerated, ParseCategory("generated"))
	assert.Equal(t, CategoryOther, ParseCategory("photo"))
	assert.Equal(t, Category(""), ParseCategory("  "))

	assert.Equal(t, CategoryOther, Category("").Effective())
	assert.Equal(t, CategoryGenerated, CategoryGenerated.Effective())
}

func TestRecordFilterMatches(t *testing.T) {
	records := map[string]*ArtifactRecord{
		"generated-a":   {Category: CategoryGenerated, Owner: ptr("a@b.com")},
		"generated-nil": {Category: CategoryGenerated},
		"other-a":       {Category: CategoryOther, Owner: ptr("a@b.com")},
		"unset-a":       {Owner: ptr("a@b.com")},
		"other-upper":   {Category: CategoryOther, Owner: ptr("A@b.com")},
	}

	tests := []struct {
		name    string
		filter  RecordFilter
		matches []string
	}{
		{"all", AllRecords(), []string{"generated-a", "generated-nil", "other-a", "unset-a", "other-upper"}},
		{"generated", GeneratedRecords(), []string{"generated-a", "generated-nil"}},
		{"generated of owner", GeneratedRecordsOf("a@b.com"), []string{"generated-a"}},
		{"other", OtherRecords(), []string{"other-a", "unset-a", "other-upper"}},
		{"other of owner", OtherRecordsOf("a@b.com"), []string{"other-a", "unset-a"}},
		{"other of unknown owner", OtherRecordsOf("x@y.com"), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for name, record := range records {
				if tt.filter.Matches(record) {
					got = append(got, name)
				}
			}
			assert.ElementsMatch(t, tt.matches, got)
		})
	}
}

func TestMongoFilter(t *testing.T) {
	t.Run("all", func(t *testing.T) {
		assert.Equal(t, bson.D{}, mongoFilter(AllRecords()))
	})

	t.Run("other of owner keeps both clauses at top level", func(t *testing.T) {
		assert.Equal(t, bson.D{
			{Key: "category", Value: bson.D{{Key: "$ne", Value: "generated"}}},
			{Key: "owner", Value: "a@b.com"},
		}, mongoFilter(OtherRecordsOf("a@b.com")))
	})

	t.Run("generated of owner", func(t *testing.T) {
		assert.Equal(t, bson.D{
			{Key: "category", Value: "generated"},
			{Key: "owner", Value: "a@b.com"},
		}, mongoFilter(GeneratedRecordsOf("a@b.com")))
	})
}

func TestFilterString(t *testing.T) {
	assert.Equal(t, "any", AllRecords().String())
	assert.Equal(t, `category!=generated, owner="a@b.com"`, OtherRecordsOf("a@b.com").String())
}
