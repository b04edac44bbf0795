package orm

import (
	"context"
	"fmt"

	"map-artifact-registry/config"

	"github.com/rs/zerolog/log"
)

// InitDB opens the record repository selected by cfg.Type.
func InitDB(ctx context.Context, cfg config.DatabaseConfig) (Repository, error) {
	switch cfg.Type {
	case "postgres":
		return newPostgresRepository(cfg)
	case "mongo":
		repo, err := newMongoRepository(ctx, cfg.URI, cfg.Database)
		if err != nil {
			return nil, err
		}
		log.Debug().Str("database", cfg.Database).Msg("Successfully connected to mongo")

		return repo, nil
	case "memory":
		log.Warn().Msg("Using in-memory record repository, records are lost on restart")

		return NewMemoryRepository(), nil
	default:
		return nil, fmt.Errorf("unknown database type %q", cfg.Type)
	}
}
