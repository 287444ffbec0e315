package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"mediastream/streaming-app/internal/domain"
)

// Error constants for the repository layer
var (
	ErrNotFound  = RepositoryError("not found")
	ErrDuplicate = RepositoryError("duplicate key")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// UserRepository defines the interface for interacting with admin user data.
type UserRepository interface {
	Create(ctx context.Context, user *domain.AdminUser) (primitive.ObjectID, error)
	GetByEmail(ctx context.Context, email string) (*domain.AdminUser, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.AdminUser, error)
}

// MediaRepository defines the interface for interacting with media asset metadata.
type MediaRepository interface {
	Create(ctx context.Context, asset *domain.MediaAsset) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.MediaAsset, error)
}

// ViewLogRepository defines the interface for the append-only view log.
type ViewLogRepository interface {
	Create(ctx context.Context, log *domain.MediaViewLog) (primitive.ObjectID, error)
	GetByMediaID(ctx context.Context, mediaID primitive.ObjectID) ([]domain.MediaViewLog, error)
}
