package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"mediastream/streaming-app/internal/domain"
	"mediastream/streaming-app/internal/ratelimit"
	"mediastream/streaming-app/internal/service"
)

const testJWTSecret = "handler-test-secret"

// fakeMediaService returns canned results per method.
type fakeMediaService struct {
	streamContent *service.StreamContent
	streamErr     error
	recordErr     error
	analytics     *service.MediaAnalytics
	analyticsErr  error
	asset         *domain.MediaAsset
	assetErr      error
	streamURL     string
	expiresAt     int64
	issueErr      error
}

func (f *fakeMediaService) Upload(_ context.Context, title string, mediaType domain.MediaType, fileName, contentType string, size int64, _ io.Reader, _ primitive.ObjectID) (*domain.MediaAsset, error) {
	if f.assetErr != nil {
		return nil, f.assetErr
	}
	return &domain.MediaAsset{ID: primitive.NewObjectID(), Title: title, Type: mediaType, FileName: fileName, ContentType: contentType, Size: size}, nil
}

func (f *fakeMediaService) GetMedia(_ context.Context, _ primitive.ObjectID) (*domain.MediaAsset, error) {
	return f.asset, f.assetErr
}

func (f *fakeMediaService) IssueStreamURL(_ context.Context, _ primitive.ObjectID, _ time.Duration) (string, int64, error) {
	return f.streamURL, f.expiresAt, f.issueErr
}

func (f *fakeMediaService) Stream(_ context.Context, _ string, _ int64, _ string, _ string) (*service.StreamContent, error) {
	return f.streamContent, f.streamErr
}

func (f *fakeMediaService) RecordView(_ context.Context, _ primitive.ObjectID, _ string) error {
	return f.recordErr
}

func (f *fakeMediaService) Analytics(_ context.Context, _ primitive.ObjectID) (*service.MediaAnalytics, error) {
	return f.analytics, f.analyticsErr
}

type fakeAuthService struct{}

func (fakeAuthService) Register(_ context.Context, email, _ string) (string, *domain.AdminUser, error) {
	return "tok", &domain.AdminUser{ID: primitive.NewObjectID(), Email: email}, nil
}

func (fakeAuthService) Login(_ context.Context, email, _ string) (string, *domain.AdminUser, error) {
	return "tok", &domain.AdminUser{ID: primitive.NewObjectID(), Email: email}, nil
}

func setupRouter(media service.MediaService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	SetupRoutes(router, testJWTSecret, fakeAuthService{}, media)
	return router
}

func bearerToken(t *testing.T, userID primitive.ObjectID) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   userID.Hex(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return "Bearer " + token
}

func TestStreamSuccessServesBody(t *testing.T) {
	svc := &fakeMediaService{
		streamContent: &service.StreamContent{
			Body:        io.NopCloser(bytes.NewReader([]byte("media-bytes"))),
			ContentType: "video/mp4",
			Size:        11,
		},
	}
	router := setupRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/stream?media_id=abc&exp=9999999999&sig=xyz", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "media-bytes", w.Body.String())
	assert.Equal(t, "video/mp4", w.Header().Get("Content-Type"))
}

func TestStreamErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"expired", service.ErrLinkExpired, http.StatusForbidden},
		{"invalid signature", service.ErrInvalidSignature, http.StatusForbidden},
		{"media not found", service.ErrMediaNotFound, http.StatusNotFound},
		{"file missing", service.ErrFileMissing, http.StatusNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := setupRouter(&fakeMediaService{streamErr: tc.err})

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/stream?media_id=abc&exp=9999999999&sig=xyz", nil)
			router.ServeHTTP(w, req)

			assert.Equal(t, tc.wantStatus, w.Code)
		})
	}
}

func TestStreamRequiresAllParameters(t *testing.T) {
	router := setupRouter(&fakeMediaService{})

	for _, url := range []string{
		"/stream",
		"/stream?media_id=abc",
		"/stream?media_id=abc&exp=notanumber&sig=xyz",
		"/stream?media_id=abc&exp=123",
	} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, url, nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code, "url %s", url)
	}
}

func TestRecordViewRateLimitedResponse(t *testing.T) {
	svc := &fakeMediaService{recordErr: &ratelimit.Error{Limit: 20, Window: time.Minute}}
	router := setupRouter(svc)

	mediaID := primitive.NewObjectID()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/media/"+mediaID.Hex()+"/view", nil)
	req.Header.Set("Authorization", bearerToken(t, primitive.NewObjectID()))
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "rate limit exceeded")
}

func TestRecordViewSuccess(t *testing.T) {
	router := setupRouter(&fakeMediaService{})

	mediaID := primitive.NewObjectID()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/media/"+mediaID.Hex()+"/view", nil)
	req.Header.Set("Authorization", bearerToken(t, primitive.NewObjectID()))
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp ViewLoggedResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "View logged", resp.Message)
	assert.Equal(t, mediaID.Hex(), resp.MediaID)
}

func TestProtectedEndpointsRequireAuth(t *testing.T) {
	router := setupRouter(&fakeMediaService{})

	mediaID := primitive.NewObjectID().Hex()
	for _, tc := range []struct {
		method string
		url    string
	}{
		{http.MethodPost, "/media"},
		{http.MethodGet, "/media/" + mediaID},
		{http.MethodGet, "/media/" + mediaID + "/stream-url"},
		{http.MethodPost, "/media/" + mediaID + "/view"},
		{http.MethodGet, "/media/" + mediaID + "/analytics"},
	} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(tc.method, tc.url, nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code, "%s %s", tc.method, tc.url)
	}
}

func TestAuthMiddlewareRejectsBadTokens(t *testing.T) {
	router := setupRouter(&fakeMediaService{analytics: &service.MediaAnalytics{}})
	url := "/media/" + primitive.NewObjectID().Hex() + "/analytics"

	t.Run("malformed header", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, url, nil)
		req.Header.Set("Authorization", "Token abc")
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("wrong signing key", func(t *testing.T) {
		claims := jwt.RegisteredClaims{
			Subject:   primitive.NewObjectID().Hex(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("other-secret"))
		require.NoError(t, err)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, url, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("expired token", func(t *testing.T) {
		claims := jwt.RegisteredClaims{
			Subject:   primitive.NewObjectID().Hex(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testJWTSecret))
		require.NoError(t, err)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, url, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestAnalyticsResponseShape(t *testing.T) {
	svc := &fakeMediaService{
		analytics: &service.MediaAnalytics{
			TotalViews:    2,
			UniqueViewers: 2,
			ViewsPerDay:   map[string]int{"2024-05-01": 2},
		},
	}
	router := setupRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/media/"+primitive.NewObjectID().Hex()+"/analytics", nil)
	req.Header.Set("Authorization", bearerToken(t, primitive.NewObjectID()))
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"total_views":2,"unique_viewers":2,"views_per_day":{"2024-05-01":2}}`, w.Body.String())
}

func TestGetStreamURLValidatesExpiresIn(t *testing.T) {
	router := setupRouter(&fakeMediaService{streamURL: "http://localhost:8080/stream?media_id=x", expiresAt: 123})
	url := "/media/" + primitive.NewObjectID().Hex() + "/stream-url"

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, url+"?expires_in=-5", nil)
	req.Header.Set("Authorization", bearerToken(t, primitive.NewObjectID()))
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, url+"?expires_in=300", nil)
	req.Header.Set("Authorization", bearerToken(t, primitive.NewObjectID()))
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp StreamURLResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(123), resp.ExpiresAt)
}
