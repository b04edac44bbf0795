package registry

import (
	"context"
	"fmt"
	"strings"
	"time"

	"map-artifact-registry/config"
	"map-artifact-registry/orm"
	"map-artifact-registry/preview"
)

// Registry interface defines the methods that any artifact store
// implementation must provide. Keys are slash-separated and already carry the
// partition prefix.
type Registry interface {
	// StoreArtifact writes content under key and must never overwrite an
	// existing artifact; a taken key yields ErrArtifactExists.
	StoreArtifact(
		ctx context.Context,
		key string,
		content []byte,
		contentType string,
	) error
	GetArtifact(ctx context.Context, key string) ([]byte, error)
	DeleteArtifact(ctx context.Context, key string) error
}

// Server implements ingestion, queries, direct-save and preview promotion on
// top of an artifact store and a record repository.
type Server struct {
	registry Registry
	records  orm.Repository
	previews preview.Cache

	layout       Layout
	allowedTypes map[string]bool
	maxBytes     int64
	now          func() time.Time
}

// NewServer creates a new server with the specified registry implementation.
// previews may be nil, which disables the preview operations.
func NewServer(
	reg Registry,
	records orm.Repository,
	previews preview.Cache,
	cfg config.UploadConfig,
) (*Server, error) {
	layout, err := NewLayout(cfg.GeneralPrefix, cfg.GeneratedPrefix)
	if err != nil {
		return nil, err
	}

	allowed := make(map[string]bool, len(cfg.AllowedMimeTypes))
	for _, mimeType := range cfg.AllowedMimeTypes {
		allowed[strings.ToLower(strings.TrimSpace(mimeType))] = true
	}
	if len(allowed) == 0 {
		return nil, fmt.Errorf("%w: no allowed mime types configured", ErrValidationFailure)
	}

	return &Server{
		registry:     reg,
		records:      records,
		previews:     previews,
		layout:       layout,
		allowedTypes: allowed,
		maxBytes:     cfg.MaxBytes,
		now:          time.Now,
	}, nil
}

func (s *Server) Layout() Layout {
	return s.layout
}
