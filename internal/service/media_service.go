package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"mediastream/streaming-app/internal/domain"
	"mediastream/streaming-app/internal/repository"
	"mediastream/streaming-app/internal/storage"
	"mediastream/streaming-app/internal/token"
)

// --- Error Definitions ---
var (
	ErrMediaNotFound    = errors.New("media not found")
	ErrLinkExpired      = errors.New("stream link expired")
	ErrInvalidSignature = errors.New("invalid stream signature")
	ErrFileMissing      = errors.New("media file missing from storage")
)

const (
	// DefaultStreamTTL governs links issued without an explicit expiry.
	DefaultStreamTTL = 10 * time.Minute

	// analyticsCacheTTL keeps repeated analytics queries off the
	// database for a short while; the log table is append-only so a
	// slightly stale answer is acceptable.
	analyticsCacheTTL = 60 * time.Second
)

// ViewLimiter admits or rejects one explicit view-log request per
// (client address, media ID) pair.
type ViewLimiter interface {
	Allow(ctx context.Context, clientAddr, mediaID string) error
}

// AnalyticsCache is a read-through accelerator for computed analytics.
// A miss (including an unavailable backend) just means recompute.
type AnalyticsCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
}

// StreamContent is an admitted stream ready for delivery.
// Callers own Body and must close it.
type StreamContent struct {
	Body        io.ReadCloser
	ContentType string
	Size        int64
}

// MediaAnalytics summarizes the view history of one asset.
type MediaAnalytics struct {
	TotalViews    int            `json:"total_views"`
	UniqueViewers int            `json:"unique_viewers"`
	ViewsPerDay   map[string]int `json:"views_per_day"`
}

// MediaService covers the media lifecycle: upload, presigned stream
// link issuance and verification, view logging, and analytics.
type MediaService interface {
	Upload(ctx context.Context, title string, mediaType domain.MediaType, fileName, contentType string, size int64, body io.Reader, uploadedBy primitive.ObjectID) (*domain.MediaAsset, error)
	GetMedia(ctx context.Context, id primitive.ObjectID) (*domain.MediaAsset, error)

	// IssueStreamURL builds a time-bounded capability URL for an
	// existing asset. ttl <= 0 selects the configured default.
	IssueStreamURL(ctx context.Context, id primitive.ObjectID, ttl time.Duration) (url string, expiresAt int64, err error)

	// Stream verifies a presented (mediaID, exp, sig) tuple, logs the
	// view, and opens the blob for delivery.
	Stream(ctx context.Context, mediaID string, exp int64, sig string, clientAddr string) (*StreamContent, error)

	// RecordView is the explicit, rate-limited view-log entry point.
	RecordView(ctx context.Context, id primitive.ObjectID, clientAddr string) error

	Analytics(ctx context.Context, id primitive.ObjectID) (*MediaAnalytics, error)
}

// mediaService implements MediaService.
type mediaService struct {
	mediaRepo   repository.MediaRepository
	viewLogRepo repository.ViewLogRepository
	fileStorage storage.FileStorage
	codec       *token.Codec
	limiter     ViewLimiter
	cache       AnalyticsCache
	baseURL     string
	defaultTTL  time.Duration
	log         *logrus.Logger
	now         func() time.Time
}

// NewMediaService creates a new instance of mediaService.
func NewMediaService(
	mediaRepo repository.MediaRepository,
	viewLogRepo repository.ViewLogRepository,
	fileStorage storage.FileStorage,
	codec *token.Codec,
	limiter ViewLimiter,
	cache AnalyticsCache,
	baseURL string,
	defaultTTL time.Duration,
	log *logrus.Logger,
) MediaService {
	if defaultTTL <= 0 {
		defaultTTL = DefaultStreamTTL
	}
	return &mediaService{
		mediaRepo:   mediaRepo,
		viewLogRepo: viewLogRepo,
		fileStorage: fileStorage,
		codec:       codec,
		limiter:     limiter,
		cache:       cache,
		baseURL:     baseURL,
		defaultTTL:  defaultTTL,
		log:         log,
		now:         time.Now,
	}
}

// Upload stores the file bytes and creates the asset row.
func (s *mediaService) Upload(ctx context.Context, title string, mediaType domain.MediaType, fileName, contentType string, size int64, body io.Reader, uploadedBy primitive.ObjectID) (*domain.MediaAsset, error) {
	if title == "" {
		return nil, errors.New("title cannot be empty")
	}
	if !mediaType.IsValid() {
		return nil, fmt.Errorf("unsupported media type %q", mediaType)
	}

	objectKey := uuid.NewString() + filepath.Ext(fileName)
	if err := s.fileStorage.Upload(ctx, objectKey, contentType, size, body); err != nil {
		return nil, err
	}

	asset := &domain.MediaAsset{
		Title:       title,
		Type:        mediaType,
		ObjectKey:   objectKey,
		FileName:    fileName,
		ContentType: contentType,
		Size:        size,
		UploadedBy:  uploadedBy,
	}

	assetID, err := s.mediaRepo.Create(ctx, asset)
	if err != nil {
		// The blob is already stored; remove it rather than leak it.
		if delErr := s.fileStorage.DeleteObject(ctx, objectKey); delErr != nil {
			s.log.WithError(delErr).WithField("key", objectKey).Error("Failed to clean up orphaned object")
		}
		return nil, err
	}
	asset.ID = assetID

	s.log.WithFields(logrus.Fields{
		"mediaId": assetID.Hex(),
		"type":    mediaType,
		"size":    size,
	}).Info("Media uploaded")
	return asset, nil
}

// GetMedia returns asset metadata by ID.
func (s *mediaService) GetMedia(ctx context.Context, id primitive.ObjectID) (*domain.MediaAsset, error) {
	asset, err := s.mediaRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrMediaNotFound
		}
		return nil, err
	}
	return asset, nil
}

// IssueStreamURL constructs a self-contained capability URL. No
// server-side state is created; the signature over (mediaID, exp) is
// the whole credential.
func (s *mediaService) IssueStreamURL(ctx context.Context, id primitive.ObjectID, ttl time.Duration) (string, int64, error) {
	if _, err := s.GetMedia(ctx, id); err != nil {
		return "", 0, err
	}

	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	mediaID := id.Hex()
	exp := s.now().Add(ttl).Unix()
	sig := s.codec.Sign(mediaID, exp)

	url := fmt.Sprintf("%s/stream?media_id=%s&exp=%d&sig=%s", s.baseURL, mediaID, exp, sig)
	return url, exp, nil
}

// Stream admits or rejects a presented stream token and, on success,
// logs the view and opens the blob.
//
// Check order is a contract: expiry, then signature, then asset
// existence, then blob existence. An expired-but-forged token must
// report expiry, keeping error semantics stable regardless of what
// else is wrong with the token.
func (s *mediaService) Stream(ctx context.Context, mediaID string, exp int64, sig string, clientAddr string) (*StreamContent, error) {
	if s.now().Unix() > exp {
		return nil, ErrLinkExpired
	}

	if !s.codec.Verify(mediaID, exp, sig) {
		return nil, ErrInvalidSignature
	}

	id, err := primitive.ObjectIDFromHex(mediaID)
	if err != nil {
		return nil, ErrMediaNotFound
	}
	asset, err := s.GetMedia(ctx, id)
	if err != nil {
		return nil, err
	}

	exists, err := s.fileStorage.Exists(ctx, asset.ObjectKey)
	if err != nil {
		return nil, err
	}
	if !exists {
		// Storage inconsistency: the asset row exists but the blob is
		// gone. Logged distinctly from a missing asset for operability.
		s.log.WithFields(logrus.Fields{
			"mediaId": mediaID,
			"key":     asset.ObjectKey,
		}).Error("Media file missing from storage")
		return nil, ErrFileMissing
	}

	// The view is logged synchronously before any bytes are served.
	// Existence was confirmed above, so no re-check here.
	if err := s.appendViewLog(ctx, id, clientAddr); err != nil {
		return nil, err
	}

	obj, err := s.fileStorage.Download(ctx, asset.ObjectKey)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, ErrFileMissing
		}
		return nil, err
	}

	contentType := obj.ContentType
	if contentType == "" {
		contentType = asset.ContentType
	}
	return &StreamContent{Body: obj.Body, ContentType: contentType, Size: obj.Size}, nil
}

// RecordView logs one view via the explicit endpoint. Unlike the
// stream-delivery path this entry point re-checks asset existence and
// is rate limited per (client, media) pair.
func (s *mediaService) RecordView(ctx context.Context, id primitive.ObjectID, clientAddr string) error {
	if _, err := s.GetMedia(ctx, id); err != nil {
		return err
	}

	if err := s.limiter.Allow(ctx, clientAddr, id.Hex()); err != nil {
		return err
	}

	return s.appendViewLog(ctx, id, clientAddr)
}

func (s *mediaService) appendViewLog(ctx context.Context, id primitive.ObjectID, clientAddr string) error {
	if clientAddr == "" {
		clientAddr = "unknown"
	}
	_, err := s.viewLogRepo.Create(ctx, &domain.MediaViewLog{
		MediaID:  id,
		ViewedBy: clientAddr,
	})
	return err
}

// Analytics aggregates the view history of one asset, consulting the
// cache first. Cache unavailability degrades to recompute, never to
// failure.
func (s *mediaService) Analytics(ctx context.Context, id primitive.ObjectID) (*MediaAnalytics, error) {
	cacheKey := "analytics:" + id.Hex()
	if cached, ok := s.cache.Get(ctx, cacheKey); ok {
		var result MediaAnalytics
		if err := json.Unmarshal(cached, &result); err == nil {
			return &result, nil
		}
		s.log.WithField("key", cacheKey).Warn("Discarding undecodable cache entry")
	}

	if _, err := s.GetMedia(ctx, id); err != nil {
		return nil, err
	}

	logs, err := s.viewLogRepo.GetByMediaID(ctx, id)
	if err != nil {
		return nil, err
	}

	uniqueViewers := make(map[string]struct{})
	viewsPerDay := make(map[string]int)
	for _, l := range logs {
		if l.ViewedBy != "" {
			uniqueViewers[l.ViewedBy] = struct{}{}
		}
		// Calendar date in the timestamp's own location.
		viewsPerDay[l.ViewedAt.Format("2006-01-02")]++
	}

	result := &MediaAnalytics{
		TotalViews:    len(logs),
		UniqueViewers: len(uniqueViewers),
		ViewsPerDay:   viewsPerDay,
	}

	if payload, err := json.Marshal(result); err == nil {
		s.cache.Set(ctx, cacheKey, payload, analyticsCacheTTL)
	}
	return result, nil
}
