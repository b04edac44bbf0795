package orm

import (
	"strings"
	"time"
)

// Category classifies an artifact. The zero value means the uploader did not
// declare a category and is read as CategoryOther.
type Category string

const (
	CategoryGenerated Category = "generated"
	CategoryOther     Category = "other"
)

// legacyGeneratedType is the discriminator older clients send in the "type"
// form field.
const legacyGeneratedType = "generatedImage"

// ParseCategory maps an uploader-declared type onto a Category. Empty input
// stays undeclared.
func ParseCategory(declared string) Category {
	switch strings.TrimSpace(declared) {
	case "":
		return ""
	case legacyGeneratedType, string(CategoryGenerated):
		return CategoryGenerated
	default:
		return CategoryOther
	}
}

// Effective resolves the undeclared category to CategoryOther.
func (c Category) Effective() Category {
	if c == CategoryGenerated {
		return CategoryGenerated
	}

	return CategoryOther
}

// ArtifactRecord is the catalog entry for one stored map image.
type ArtifactRecord struct {
	ID          string    `gorm:"primaryKey;size:36"                json:"id"                 bson:"_id"`
	Name        string    `gorm:"size:255;not null"                 json:"name"               bson:"name"`
	StoragePath string    `gorm:"size:1024;not null"                json:"storagePath"        bson:"storage_path"`
	Owner       *string   `gorm:"size:255;index"                    json:"owner"              bson:"owner"`
	Category    Category  `gorm:"size:32;not null;default:'';index" json:"category,omitempty" bson:"category,omitempty"`
	CreatedAt   time.Time `gorm:"not null"                          json:"createdAt"          bson:"created_at"`
}

func (ArtifactRecord) TableName() string {
	return "artifact_records"
}

// IsOwnedBy reports whether the record is attributed to owner. Owners are
// compared byte for byte.
func (r *ArtifactRecord) IsOwnedBy(owner string) bool {
	return r.Owner != nil && *r.Owner == owner
}
