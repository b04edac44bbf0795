package orm

import (
	"context"
	"fmt"
	"strings"

	"map-artifact-registry/config"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type postgresRepository struct {
	db *gorm.DB
}

func newPostgresRepository(cfg config.DatabaseConfig) (*postgresRepository, error) {
	dsn := fmt.Sprintf(
		"host='%s' port='%d' user='%s' password='%s' dbname='%s' sslmode='%s'",
		cfg.Host,
		cfg.Port,
		cfg.Username,
		cfg.Password,
		cfg.Database,
		cfg.SSLMode,
	)

	dsnRedacted := dsn
	if cfg.Password != "" {
		dsnRedacted = strings.ReplaceAll(dsn, cfg.Password, "*****")
	}
	log.Debug().
		Msgf("Connecting to postgres using the following information: %s", dsnRedacted)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to the database: %w", err)
	}

	log.Debug().Msg("Successfully connected to the database")

	if err := db.AutoMigrate(&ArtifactRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &postgresRepository{db: db}, nil
}

func (r *postgresRepository) Insert(
	ctx context.Context,
	record *ArtifactRecord,
) (*ArtifactRecord, error) {
	stored, err := prepareInsert(record)
	if err != nil {
		return nil, err
	}

	err = gorm.G[ArtifactRecord](r.db).Create(ctx, stored)
	if err != nil {
		return nil, wrapErrorWithDetails(
			err,
			"insert artifact record",
			recordDetails(stored),
		)
	}

	return stored, nil
}

func (r *postgresRepository) Find(
	ctx context.Context,
	filter RecordFilter,
) ([]ArtifactRecord, error) {
	query := r.db.WithContext(ctx).Order("created_at")

	switch filter.Category {
	case OnlyGenerated:
		query = query.Where("category = ?", string(CategoryGenerated))
	case ExceptGenerated:
		query = query.Where("category <> ?", string(CategoryGenerated))
	case AnyCategory:
	}

	if filter.Owner != nil {
		query = query.Where("owner = ?", *filter.Owner)
	}

	records := []ArtifactRecord{}
	if err := query.Find(&records).Error; err != nil {
		return nil, wrapErrorWithDetails(err, "find artifact records", filter.String())
	}

	return records, nil
}

func (r *postgresRepository) Close(context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to access database handle: %w", err)
	}

	return sqlDB.Close()
}
