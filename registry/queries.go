package registry

import (
	"context"

	"map-artifact-registry/metrics"
	"map-artifact-registry/orm"

	"github.com/rs/zerolog/log"
)

func (s *Server) ListAll(ctx context.Context) ([]orm.ArtifactRecord, error) {
	return s.find(ctx, "all", orm.AllRecords())
}

func (s *Server) ListGenerated(ctx context.Context) ([]orm.ArtifactRecord, error) {
	return s.find(ctx, "generated", orm.GeneratedRecords())
}

// ListGeneratedByOwner expects owner to come from a verified identity, never
// from request payload.
func (s *Server) ListGeneratedByOwner(
	ctx context.Context,
	owner string,
) ([]orm.ArtifactRecord, error) {
	if err := validateOwner(owner); err != nil {
		return nil, err
	}

	return s.find(ctx, "generated_by_owner", orm.GeneratedRecordsOf(owner))
}

func (s *Server) ListOther(ctx context.Context) ([]orm.ArtifactRecord, error) {
	return s.find(ctx, "other", orm.OtherRecords())
}

// ListOtherByOwner expects owner to come from a verified identity, never
// from request payload.
func (s *Server) ListOtherByOwner(
	ctx context.Context,
	owner string,
) ([]orm.ArtifactRecord, error) {
	if err := validateOwner(owner); err != nil {
		return nil, err
	}

	return s.find(ctx, "other_by_owner", orm.OtherRecordsOf(owner))
}

func (s *Server) find(
	ctx context.Context,
	query string,
	filter orm.RecordFilter,
) ([]orm.ArtifactRecord, error) {
	log.Debug().Str("query", query).Str("filter", filter.String()).Msg("Artifacts queried")

	if s.records == nil {
		return nil, newRegistryUnavailableError("artifact query")
	}

	records, err := s.records.Find(ctx, filter)
	metrics.RecordQueries.WithLabelValues(query, metrics.Outcome(err)).Inc()
	if err != nil {
		log.Error().Err(err).Str("query", query).Msg("Failed to query artifacts")

		return nil, wrapPersistenceError(err, "querying artifacts")
	}

	return records, nil
}
