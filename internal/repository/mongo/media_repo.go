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

const mediaCollectionName = "media_assets"

// mongoMediaRepository implements repository.MediaRepository
type mongoMediaRepository struct {
	collection *mongo.Collection
}

// NewMongoMediaRepository creates a new media asset repository backed by MongoDB.
func NewMongoMediaRepository(db *mongo.Database) repository.MediaRepository {
	return &mongoMediaRepository{
		collection: db.Collection(mediaCollectionName),
	}
}

// Create inserts new media asset metadata into the database.
func (r *mongoMediaRepository) Create(ctx context.Context, asset *domain.MediaAsset) (primitive.ObjectID, error) {
	// Basic validation; richer validation belongs in the service layer.
	if asset.Title == "" || asset.ObjectKey == "" || !asset.Type.IsValid() {
		return primitive.NilObjectID, errors.New("media asset requires title, objectKey, and a valid type")
	}

	asset.ID = primitive.NewObjectID()
	asset.CreatedAt = time.Now().UTC()

	result, err := r.collection.InsertOne(ctx, asset)
	if err != nil {
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted ID")
	}

	return insertedID, nil
}

// GetByID retrieves media asset metadata by its ID.
func (r *mongoMediaRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.MediaAsset, error) {
	var asset domain.MediaAsset
	filter := bson.M{"_id": id}

	err := r.collection.FindOne(ctx, filter).Decode(&asset)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &asset, nil
}

// EnsureMediaIndexes creates necessary indexes for the media assets collection.
func EnsureMediaIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "uploadedBy", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "createdAt", Value: -1}},
			Options: options.Index(),
		},
	}

	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}
