package memoryRegistry

import (
	"context"
	"sync"

	"map-artifact-registry/registry"
)

type storedArtifact struct {
	content     []byte
	contentType string
}

// MemoryRegistry implements the registry interface using in-memory storage.
// Used for testing and throwaway deployments.
type MemoryRegistry struct {
	mu        sync.RWMutex
	artifacts map[string]storedArtifact
}

// New creates a new memory-based registry
func New() *MemoryRegistry {
	return &MemoryRegistry{
		artifacts: make(map[string]storedArtifact),
	}
}

// StoreArtifact keeps a copy of content under key unless the key is taken
func (r *MemoryRegistry) StoreArtifact(
	ctx context.Context,
	key string,
	content []byte,
	contentType string,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.artifacts[key]; exists {
		return registry.ErrArtifactExists
	}

	stored := make([]byte, len(content))
	copy(stored, content)
	r.artifacts[key] = storedArtifact{content: stored, contentType: contentType}

	return nil
}

// GetArtifact retrieves an artifact by key
func (r *MemoryRegistry) GetArtifact(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	artifact, exists := r.artifacts[key]
	r.mu.RUnlock()

	if !exists {
		return nil, registry.ErrArtifactNotFound
	}

	// Return a copy to prevent external modifications
	result := make([]byte, len(artifact.content))
	copy(result, artifact.content)

	return result, nil
}

// DeleteArtifact deletes an artifact by key
func (r *MemoryRegistry) DeleteArtifact(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.artifacts[key]; !exists {
		return registry.ErrArtifactNotFound
	}

	delete(r.artifacts, key)

	return nil
}

// ContentType returns the media type an artifact was stored with
func (r *MemoryRegistry) ContentType(key string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	artifact, exists := r.artifacts[key]

	return artifact.contentType, exists
}

// Keys returns every stored key (useful for testing)
func (r *MemoryRegistry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.artifacts))
	for key := range r.artifacts {
		keys = append(keys, key)
	}

	return keys
}

// Clear removes all artifacts from memory (useful for testing)
func (r *MemoryRegistry) Clear() {
	r.mu.Lock()
	r.artifacts = make(map[string]storedArtifact)
	r.mu.Unlock()
}

// Count returns the number of artifacts stored (useful for testing)
func (r *MemoryRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.artifacts)
}
