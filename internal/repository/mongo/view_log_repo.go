package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"mediastream/streaming-app/internal/domain"
	"mediastream/streaming-app/internal/repository"
)

const viewLogCollectionName = "media_view_logs"

// mongoViewLogRepository implements repository.ViewLogRepository
type mongoViewLogRepository struct {
	collection *mongo.Collection
}

// NewMongoViewLogRepository creates a new view log repository backed by MongoDB.
func NewMongoViewLogRepository(db *mongo.Database) repository.ViewLogRepository {
	return &mongoViewLogRepository{
		collection: db.Collection(viewLogCollectionName),
	}
}

// Create appends one view log row. The timestamp is server-assigned
// here; rows are never updated afterwards.
func (r *mongoViewLogRepository) Create(ctx context.Context, log *domain.MediaViewLog) (primitive.ObjectID, error) {
	if log.MediaID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("view log requires mediaId")
	}

	log.ID = primitive.NewObjectID()
	log.ViewedAt = time.Now().UTC()

	result, err := r.collection.InsertOne(ctx, log)
	if err != nil {
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted ID")
	}

	return insertedID, nil
}

// GetByMediaID retrieves all view log rows for a media asset, oldest first.
func (r *mongoViewLogRepository) GetByMediaID(ctx context.Context, mediaID primitive.ObjectID) ([]domain.MediaViewLog, error) {
	filter := bson.M{"mediaId": mediaID}
	findOptions := options.Find().SetSort(bson.D{{Key: "viewedAt", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var logs []domain.MediaViewLog
	if err := cursor.All(ctx, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

// EnsureViewLogIndexes creates necessary indexes for the view logs collection.
func EnsureViewLogIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "mediaId", Value: 1}, {Key: "viewedAt", Value: 1}},
			Options: options.Index(),
		},
	}

	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}
