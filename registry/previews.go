package registry

import (
	"context"
	"errors"

	"map-artifact-registry/metrics"
	"map-artifact-registry/orm"
	"map-artifact-registry/preview"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// StagePreview parks a freshly generated image for owner until it is saved
// or discarded. The same media rules as uploads apply.
func (s *Server) StagePreview(
	ctx context.Context,
	owner string,
	file Upload,
) (*preview.Preview, error) {
	if s.previews == nil {
		return nil, newRegistryUnavailableError("preview staging")
	}

	if err := validateOwner(owner); err != nil {
		return nil, err
	}

	mediaType, err := s.validateFile(file)
	if err != nil {
		return nil, err
	}

	p := &preview.Preview{
		ID:        uuid.NewString(),
		Owner:     owner,
		Filename:  sanitizeFilename(file.Filename),
		MimeType:  mediaType,
		Size:      len(file.Content),
		Content:   file.Content,
		CreatedAt: s.now().UTC(),
	}

	if err := s.previews.Put(ctx, p); err != nil {
		log.Error().Err(err).Msg("Failed to stage preview")

		return nil, newInternalError("preview staging", err)
	}

	log.Info().Str("preview_id", p.ID).Int("size", p.Size).Msg("Preview staged")

	return p, nil
}

// GetPreview returns a staged preview including its content.
func (s *Server) GetPreview(
	ctx context.Context,
	owner, id string,
) (*preview.Preview, error) {
	if s.previews == nil {
		return nil, newRegistryUnavailableError("preview retrieval")
	}

	p, err := s.previews.Get(ctx, id)
	if err != nil {
		if errors.Is(err, preview.ErrPreviewNotFound) {
			return nil, newPreviewNotFoundError(id)
		}

		return nil, newInternalError("preview retrieval", err)
	}

	if p.Owner != owner {
		return nil, newForbiddenError("Preview " + id + " belongs to another user")
	}

	return p, nil
}

// PromotePreview turns a staged preview into a named generated artifact
// owned by the caller and drops the preview.
func (s *Server) PromotePreview(
	ctx context.Context,
	owner, id, name string,
) (*orm.ArtifactRecord, error) {
	log.Info().Str("preview_id", id).Str("name", name).Msg("Preview promotion requested")

	p, err := s.GetPreview(ctx, owner, id)
	if err != nil {
		return nil, err
	}

	record, err := s.createArtifact(
		ctx,
		orm.CategoryGenerated,
		name,
		&p.Owner,
		Upload{Filename: p.Filename, MimeType: p.MimeType, Content: p.Content},
	)
	metrics.ArtifactsCreated.
		WithLabelValues("preview", string(orm.CategoryGenerated), metrics.Outcome(err)).
		Inc()
	if err != nil {
		return nil, err
	}

	if err := s.previews.Delete(ctx, id); err != nil && !errors.Is(err, preview.ErrPreviewNotFound) {
		log.Warn().Err(err).Str("preview_id", id).Msg("Failed to drop promoted preview, it will expire")
	}

	return record, nil
}

func (s *Server) DiscardPreview(ctx context.Context, owner, id string) error {
	if _, err := s.GetPreview(ctx, owner, id); err != nil {
		return err
	}

	if err := s.previews.Delete(ctx, id); err != nil {
		if errors.Is(err, preview.ErrPreviewNotFound) {
			return newPreviewNotFoundError(id)
		}

		return newInternalError("preview discard", err)
	}

	log.Info().Str("preview_id", id).Msg("Preview discarded")

	return nil
}
