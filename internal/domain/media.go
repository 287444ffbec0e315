package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MediaType distinguishes the kinds of media the service accepts.
type MediaType string

const (
	MediaTypeVideo MediaType = "video"
	MediaTypeAudio MediaType = "audio"
)

// IsValid reports whether t is one of the supported media types.
func (t MediaType) IsValid() bool {
	return t == MediaTypeVideo || t == MediaTypeAudio
}

// MediaAsset stores metadata about an uploaded media file. The actual
// bytes live in object storage under ObjectKey; the asset row is
// immutable after creation.
type MediaAsset struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title       string             `bson:"title" json:"title"`
	Type        MediaType          `bson:"type" json:"type"`
	ObjectKey   string             `bson:"objectKey" json:"-"` // Key in the storage bucket - internal use
	FileName    string             `bson:"fileName" json:"fileName"`
	ContentType string             `bson:"contentType" json:"contentType"`
	Size        int64              `bson:"size" json:"size"`
	UploadedBy  primitive.ObjectID `bson:"uploadedBy,omitempty" json:"uploadedBy,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
}

// MediaViewLog is one append-only row per admitted view. Rows are never
// mutated or deleted; analytics aggregates over whatever rows exist at
// read time.
type MediaViewLog struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	MediaID  primitive.ObjectID `bson:"mediaId" json:"mediaId"`
	ViewedBy string             `bson:"viewedBy" json:"viewedBy"` // Client IP, or "unknown"
	ViewedAt time.Time          `bson:"viewedAt" json:"viewedAt"`
}
