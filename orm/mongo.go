package orm

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const colArtifactRecords = "artifact_records"

type mongoRepository struct {
	client *mongo.Client
	col    *mongo.Collection
}

func newMongoRepository(
	ctx context.Context,
	uri, dbName string,
) (*mongoRepository, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect failed: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())

		return nil, fmt.Errorf("mongo ping failed: %w", err)
	}

	repo := &mongoRepository{
		client: client,
		col:    client.Database(dbName).Collection(colArtifactRecords),
	}

	if err := repo.ensureIndexes(pingCtx); err != nil {
		log.Warn().Err(err).Msg("Failed to ensure artifact record indexes")
	}

	return repo, nil
}

func (r *mongoRepository) ensureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "category", Value: 1}, {Key: "owner", Value: 1}}},
		{Keys: bson.D{{Key: "owner", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: 1}}},
	}
	if _, err := r.col.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("create indexes on %s: %w", colArtifactRecords, err)
	}

	return nil
}

func (r *mongoRepository) Insert(
	ctx context.Context,
	record *ArtifactRecord,
) (*ArtifactRecord, error) {
	stored, err := prepareInsert(record)
	if err != nil {
		return nil, err
	}

	if _, err := r.col.InsertOne(ctx, stored); err != nil {
		return nil, wrapErrorWithDetails(
			err,
			"insert artifact record",
			recordDetails(stored),
		)
	}

	return stored, nil
}

func (r *mongoRepository) Find(
	ctx context.Context,
	filter RecordFilter,
) ([]ArtifactRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})

	cursor, err := r.col.Find(ctx, mongoFilter(filter), opts)
	if err != nil {
		return nil, wrapErrorWithDetails(err, "find artifact records", filter.String())
	}
	defer func() { _ = cursor.Close(ctx) }()

	records := []ArtifactRecord{}
	if err := cursor.All(ctx, &records); err != nil {
		return nil, wrapErrorWithDetails(err, "decode artifact records", filter.String())
	}

	return records, nil
}

func (r *mongoRepository) Close(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return r.client.Disconnect(ctx)
}

// mongoFilter renders each clause as its own top-level key so the category
// negation never swallows the owner constraint.
func mongoFilter(filter RecordFilter) bson.D {
	doc := bson.D{}

	switch filter.Category {
	case OnlyGenerated:
		doc = append(doc, bson.E{Key: "category", Value: string(CategoryGenerated)})
	case ExceptGenerated:
		doc = append(doc, bson.E{
			Key:   "category",
			Value: bson.D{{Key: "$ne", Value: string(CategoryGenerated)}},
		})
	case AnyCategory:
	}

	if filter.Owner != nil {
		doc = append(doc, bson.E{Key: "owner", Value: *filter.Owner})
	}

	return doc
}
