package registry

import (
	"context"
	"errors"
	"fmt"

	"map-artifact-registry/metrics"
	"map-artifact-registry/orm"

	"github.com/rs/zerolog/log"
)

const maxFilenameAttempts = 8

// Upload is a file received from a client.
type Upload struct {
	Filename string
	MimeType string
	Content  []byte
}

type UploadRequest struct {
	Name  string
	Owner *string
	// DeclaredType is the raw "type" discriminator sent by the client.
	DeclaredType string
	File         Upload
}

type DirectSaveRequest struct {
	Owner       *string
	StoragePath string
	Name        string
}

// UploadArtifact stores an uploaded image in the partition matching the
// declared type and records it. An undeclared type is stored as such and
// reads as "other".
func (s *Server) UploadArtifact(
	ctx context.Context,
	req UploadRequest,
) (*orm.ArtifactRecord, error) {
	category := orm.ParseCategory(req.DeclaredType)

	log.Info().
		Str("name", req.Name).
		Str("filename", req.File.Filename).
		Str("declared_type", req.DeclaredType).
		Msg("Artifact upload requested")

	record, err := s.createArtifact(ctx, category, req.Name, normalizeOwner(req.Owner), req.File)
	metrics.ArtifactsCreated.
		WithLabelValues("upload", string(category.Effective()), metrics.Outcome(err)).
		Inc()

	return record, err
}

// UploadGeneratedArtifact stores an image in the generated partition
// regardless of what the client declared.
func (s *Server) UploadGeneratedArtifact(
	ctx context.Context,
	req UploadRequest,
) (*orm.ArtifactRecord, error) {
	log.Info().
		Str("name", req.Name).
		Str("filename", req.File.Filename).
		Msg("Generated artifact upload requested")

	record, err := s.createArtifact(
		ctx,
		orm.CategoryGenerated,
		req.Name,
		normalizeOwner(req.Owner),
		req.File,
	)
	metrics.ArtifactsCreated.
		WithLabelValues("generated_upload", string(orm.CategoryGenerated), metrics.Outcome(err)).
		Inc()

	return record, err
}

// SaveGeneratedArtifact registers an image whose bytes already live at
// StoragePath. The path is trusted as given and the artifact store is not
// touched.
func (s *Server) SaveGeneratedArtifact(
	ctx context.Context,
	req DirectSaveRequest,
) (*orm.ArtifactRecord, error) {
	log.Info().
		Str("name", req.Name).
		Str("storage_path", req.StoragePath).
		Msg("Direct save of generated artifact requested")

	if s.records == nil {
		return nil, newRegistryUnavailableError("direct save")
	}

	if err := validateDirectSave(req); err != nil {
		return nil, err
	}

	if category, ok := s.layout.CategoryOf(req.StoragePath); !ok || category != orm.CategoryGenerated {
		log.Warn().
			Str("storage_path", req.StoragePath).
			Msg("Direct-saved artifact does not point into the generated partition")
	}

	record, err := s.records.Insert(ctx, &orm.ArtifactRecord{
		Name:        req.Name,
		StoragePath: req.StoragePath,
		Owner:       normalizeOwner(req.Owner),
		Category:    orm.CategoryGenerated,
	})
	metrics.ArtifactsCreated.
		WithLabelValues("direct_save", string(orm.CategoryGenerated), metrics.Outcome(err)).
		Inc()
	if err != nil {
		log.Error().Err(err).Msg("Failed to record direct-saved artifact")

		return nil, wrapPersistenceError(err, "direct save")
	}

	return record, nil
}

// OpenArtifact returns the bytes behind a storage path.
func (s *Server) OpenArtifact(ctx context.Context, storagePath string) ([]byte, error) {
	if s.registry == nil {
		return nil, newRegistryUnavailableError("artifact retrieval")
	}

	key, ok := s.layout.KeyOf(storagePath)
	if !ok {
		return nil, newArtifactNotFoundError(storagePath, ErrArtifactNotFound)
	}

	content, err := s.registry.GetArtifact(ctx, key)
	if err != nil {
		if errors.Is(err, ErrArtifactNotFound) {
			return nil, newArtifactNotFoundError(storagePath, err)
		}
		log.Error().Err(err).Str("key", key).Msg("Failed to read artifact")

		return nil, newInternalError("artifact retrieval", err)
	}

	return content, nil
}

// createArtifact writes the bytes, then the record. When the record cannot be
// written the bytes are removed again so neither outlives the other.
func (s *Server) createArtifact(
	ctx context.Context,
	category orm.Category,
	name string,
	owner *string,
	file Upload,
) (*orm.ArtifactRecord, error) {
	if s.registry == nil || s.records == nil {
		return nil, newRegistryUnavailableError("artifact upload")
	}

	mediaType, err := s.validateFile(file)
	if err != nil {
		log.Warn().Err(err).Str("filename", file.Filename).Msg("Rejected artifact upload")

		return nil, err
	}

	key, err := s.storeBytes(ctx, category, file, mediaType)
	if err != nil {
		log.Error().Err(err).Str("filename", file.Filename).Msg("Failed to store artifact")

		return nil, newWriteFailureError(err)
	}

	record, err := s.records.Insert(ctx, &orm.ArtifactRecord{
		Name:        name,
		StoragePath: s.layout.StoragePath(key),
		Owner:       owner,
		Category:    category,
	})
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("Failed to record artifact, removing stored bytes")
		s.compensate(ctx, key)

		return nil, wrapPersistenceError(err, "recording artifact")
	}

	log.Info().
		Str("id", record.ID).
		Str("storage_path", record.StoragePath).
		Str("category", string(category.Effective())).
		Msg("Artifact created")

	return record, nil
}

func (s *Server) storeBytes(
	ctx context.Context,
	category orm.Category,
	file Upload,
	mediaType string,
) (string, error) {
	token := s.now().UnixMilli()

	for attempt := range int64(maxFilenameAttempts) {
		key := s.layout.KeyFor(category, artifactFilename(token+attempt, file.Filename))

		err := s.registry.StoreArtifact(ctx, key, file.Content, mediaType)
		if err == nil {
			return key, nil
		}
		if !errors.Is(err, ErrArtifactExists) {
			return "", err
		}

		log.Debug().Str("key", key).Msg("Artifact key taken, retrying with next token")
	}

	return "", fmt.Errorf("no free artifact key after %d attempts", maxFilenameAttempts)
}

func (s *Server) compensate(ctx context.Context, key string) {
	err := s.registry.DeleteArtifact(context.WithoutCancel(ctx), key)
	metrics.CompensatingDeletes.WithLabelValues(metrics.Outcome(err)).Inc()
	if err != nil {
		log.Error().
			Err(err).
			Str("key", key).
			Msg("Failed to remove artifact after record insert failure, bytes are orphaned")
	}
}
