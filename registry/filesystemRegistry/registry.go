package filesystemRegistry

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"map-artifact-registry/registry"
)

// ErrInvalidKey is returned for keys that would resolve outside the base
// directory
var ErrInvalidKey = errors.New("invalid artifact key")

// FilesystemRegistry implements the registry interface using simple filesystem
// storage. Keys map onto relative paths below baseDir.
type FilesystemRegistry struct {
	baseDir string
}

// New creates a new filesystem-based registry
func New(baseDir string) (*FilesystemRegistry, error) {
	//nolint:gosec,mnd // Directory permissions 0755 are intentional
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &FilesystemRegistry{baseDir: filepath.Clean(baseDir)}, nil
}

// StoreArtifact writes content to a new file. An existing file is never
// replaced.
func (r *FilesystemRegistry) StoreArtifact(
	ctx context.Context,
	key string,
	content []byte,
	_ string,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	artifactPath, err := r.getArtifactPath(key)
	if err != nil {
		return err
	}

	//nolint:gosec,mnd // Directory permissions 0755 are intentional
	if err := os.MkdirAll(filepath.Dir(artifactPath), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	//nolint:gosec,mnd // G304: path is confined to baseDir; filemode constant
	file, err := os.OpenFile(artifactPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return registry.ErrArtifactExists
		}

		return fmt.Errorf("failed to create file: %w", err)
	}

	_, writeErr := file.Write(content)
	closeErr := file.Close()
	if err := errors.Join(writeErr, closeErr); err != nil {
		_ = os.Remove(artifactPath)

		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

// GetArtifact retrieves an artifact by key
func (r *FilesystemRegistry) GetArtifact(
	ctx context.Context,
	key string,
) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	artifactPath, err := r.getArtifactPath(key)
	if err != nil {
		return nil, err
	}

	//nolint:gosec // G304: File path is constructed internally and validated
	content, err := os.ReadFile(artifactPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, registry.ErrArtifactNotFound
		}

		return nil, fmt.Errorf("failed to read artifact: %w", err)
	}

	return content, nil
}

// DeleteArtifact deletes an artifact by key
func (r *FilesystemRegistry) DeleteArtifact(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	artifactPath, err := r.getArtifactPath(key)
	if err != nil {
		return err
	}

	if err := os.Remove(artifactPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return registry.ErrArtifactNotFound
		}

		return fmt.Errorf("failed to remove artifact: %w", err)
	}

	return nil
}

// getArtifactPath returns the file path for an artifact
func (r *FilesystemRegistry) getArtifactPath(key string) (string, error) {
	artifactPath := filepath.Join(r.baseDir, filepath.FromSlash(key))

	rel, err := filepath.Rel(r.baseDir, artifactPath)
	if err != nil || rel == "." || rel == ".." ||
		strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}

	return artifactPath, nil
}
