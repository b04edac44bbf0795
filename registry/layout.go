package registry

import (
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"

	"map-artifact-registry/orm"
)

// Layout maps categories onto storage partitions. Keys look like
// "<partition prefix>/<filename>" and the storage path handed to clients is
// the key with a leading slash.
type Layout struct {
	generalPrefix   string
	generatedPrefix string
}

func NewLayout(generalPrefix, generatedPrefix string) (Layout, error) {
	general := cleanPrefix(generalPrefix)
	generated := cleanPrefix(generatedPrefix)

	if general == "" || generated == "" {
		return Layout{}, fmt.Errorf(
			"%w: both partition prefixes are required",
			ErrValidationFailure,
		)
	}
	if general == generated {
		return Layout{}, fmt.Errorf(
			"%w: general and generated partitions must differ, both are %q",
			ErrValidationFailure,
			general,
		)
	}

	return Layout{generalPrefix: general, generatedPrefix: generated}, nil
}

// PartitionPrefix returns the prefix bytes of the given category live under.
// Undeclared categories land in the general partition.
func (l Layout) PartitionPrefix(category orm.Category) string {
	if category.Effective() == orm.CategoryGenerated {
		return l.generatedPrefix
	}

	return l.generalPrefix
}

func (l Layout) KeyFor(category orm.Category, filename string) string {
	return l.PartitionPrefix(category) + "/" + filename
}

func (l Layout) StoragePath(key string) string {
	return "/" + key
}

// KeyOf turns a client-facing storage path back into a store key. Paths that
// do not name a file directly inside one of the partitions are rejected.
func (l Layout) KeyOf(storagePath string) (string, bool) {
	if _, ok := l.CategoryOf(storagePath); !ok {
		return "", false
	}

	return strings.TrimPrefix(path.Clean("/"+storagePath), "/"), true
}

// CategoryOf reports which partition a storage path points into.
func (l Layout) CategoryOf(storagePath string) (orm.Category, bool) {
	if strings.Contains(storagePath, "..") || strings.HasSuffix(storagePath, "/") {
		return "", false
	}

	key := strings.TrimPrefix(path.Clean("/"+storagePath), "/")
	dir, file := path.Split(key)
	if file == "" {
		return "", false
	}

	switch strings.TrimSuffix(dir, "/") {
	case l.generatedPrefix:
		return orm.CategoryGenerated, true
	case l.generalPrefix:
		return orm.CategoryOther, true
	default:
		return "", false
	}
}

// Roots returns the distinct first path segments of both partitions.
func (l Layout) Roots() []string {
	roots := []string{firstSegment(l.generalPrefix)}
	if generatedRoot := firstSegment(l.generatedPrefix); generatedRoot != roots[0] {
		roots = append(roots, generatedRoot)
	}

	return roots
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// artifactFilename prefixes the sanitized original name with a unique token.
func artifactFilename(token int64, originalName string) string {
	return strconv.FormatInt(token, 10) + "-" + sanitizeFilename(originalName)
}

func sanitizeFilename(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	base = unsafeFilenameChars.ReplaceAllString(base, "_")
	for strings.Contains(base, "..") {
		base = strings.ReplaceAll(base, "..", ".")
	}
	base = strings.TrimLeft(base, ".")
	if base == "" || base == "_" {
		return "image"
	}

	return base
}

func cleanPrefix(prefix string) string {
	if strings.Contains(prefix, "..") {
		return ""
	}

	return strings.Trim(path.Clean("/"+strings.TrimSpace(prefix)), "/")
}

func firstSegment(prefix string) string {
	segment, _, _ := strings.Cut(prefix, "/")

	return segment
}
