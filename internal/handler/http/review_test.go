package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/xeternum/proyecto-mapa/internal/domain"
	"github.com/xeternum/proyecto-mapa/internal/event"
	"github.com/xeternum/proyecto-mapa/internal/repository"
	"github.com/xeternum/proyecto-mapa/internal/service"
	apperrors "github.com/xeternum/proyecto-mapa/pkg/errors"
	"github.com/xeternum/proyecto-mapa/pkg/httputil"
	pkgkafka "github.com/xeternum/proyecto-mapa/pkg/kafka"
	"github.com/xeternum/proyecto-mapa/pkg/middleware"
)

const (
	testServiceID = "550e8400-e29b-41d4-a716-446655440001"
	testReviewID  = "550e8400-e29b-41d4-a716-446655440002"
	testOwnerID   = "550e8400-e29b-41d4-a716-446655440010"
	testUserID    = "550e8400-e29b-41d4-a716-446655440011"
)

// ============================================================================
// Mock repositories
// ============================================================================

type mockReviewRepository struct {
	mock.Mock
}

func (m *mockReviewRepository) GetByID(ctx context.Context, id string) (*domain.Review, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *mockReviewRepository) GetByServiceAndReviewer(ctx context.Context, serviceID, reviewerID string) (*domain.Review, error) {
	args := m.Called(ctx, serviceID, reviewerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *mockReviewRepository) Create(ctx context.Context, review *domain.Review) error {
	args := m.Called(ctx, review)
	return args.Error(0)
}

func (m *mockReviewRepository) UpdateRating(ctx context.Context, id string, rating float64) (*domain.Review, error) {
	args := m.Called(ctx, id, rating)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *mockReviewRepository) Delete(ctx context.Context, id string) (*domain.Review, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *mockReviewRepository) ListByService(ctx context.Context, serviceID string, offset, limit int) ([]domain.Review, int, error) {
	args := m.Called(ctx, serviceID, offset, limit)
	return args.Get(0).([]domain.Review), args.Int(1), args.Error(2)
}

func (m *mockReviewRepository) ListByReviewer(ctx context.Context, reviewerID string, offset, limit int) ([]domain.Review, int, error) {
	args := m.Called(ctx, reviewerID, offset, limit)
	return args.Get(0).([]domain.Review), args.Int(1), args.Error(2)
}

type mockServiceRepository struct {
	mock.Mock
}

func (m *mockServiceRepository) Create(ctx context.Context, svc *domain.Service) error {
	args := m.Called(ctx, svc)
	return args.Error(0)
}

func (m *mockServiceRepository) GetByID(ctx context.Context, id string) (*domain.Service, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Service), args.Error(1)
}

func (m *mockServiceRepository) Update(ctx context.Context, svc *domain.Service) error {
	args := m.Called(ctx, svc)
	return args.Error(0)
}

func (m *mockServiceRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockServiceRepository) List(ctx context.Context, filter repository.ServiceFilter) ([]domain.Service, int, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.Service), args.Int(1), args.Error(2)
}

type mockListingCache struct {
	mock.Mock
}

func (m *mockListingCache) Get(ctx context.Context, id string) (*domain.Service, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Service), args.Error(1)
}

func (m *mockListingCache) Set(ctx context.Context, svc *domain.Service) error {
	args := m.Called(ctx, svc)
	return args.Error(0)
}

func (m *mockListingCache) Invalidate(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// ============================================================================
// Test helpers
// ============================================================================

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func testEventProducer() *event.Producer {
	logger := testLogger()
	kafkaCfg := pkgkafka.DefaultProducerConfig([]string{"localhost:9092"})
	kafkaCfg.Async = true
	kafkaProducer := pkgkafka.NewProducer(kafkaCfg, logger)
	return event.NewProducer(kafkaProducer, logger)
}

// testTokenValidator treats the bearer token itself as the user ID.
func testTokenValidator(token string) (*middleware.Claims, error) {
	if token == "" {
		return nil, fmt.Errorf("empty token")
	}
	return &middleware.Claims{UserID: token}, nil
}

// setupReviewRouter creates a chi router matching the production route layout.
func setupReviewRouter(reviews *mockReviewRepository, services *mockServiceRepository, cache *mockListingCache) *chi.Mux {
	svc := service.NewReviewService(reviews, services, cache, testEventProducer(), testLogger())
	handler := NewReviewHandler(svc, testLogger())
	requireAuth := middleware.Auth(testTokenValidator)

	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/services/{serviceID}/reviews", handler.ListServiceReviews)
		r.Get("/reviews/{reviewID}", handler.GetReview)
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/services/{serviceID}/reviews", handler.CreateReview)
			r.Put("/reviews/{reviewID}", handler.UpdateReview)
			r.Delete("/reviews/{reviewID}", handler.DeleteReview)
			r.Get("/users/me/reviews", handler.ListMyReviews)
		})
	})
	return r
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) httputil.Response {
	t.Helper()
	var resp httputil.Response
	err := json.NewDecoder(rec.Body).Decode(&resp)
	require.NoError(t, err)
	return resp
}

func ratedService(id, ownerID string) *domain.Service {
	email := "owner@example.com"
	return &domain.Service{
		ID:            id,
		UserID:        ownerID,
		ServiceName:   "Plumbing Repairs",
		Description:   "Residential plumbing",
		Category:      "plumbing",
		Price:         35.0,
		PriceModality: "hourly",
		Address:       "Av. Corrientes 1234",
		ContactMethod: domain.ContactMethodEmail,
		ContactEmail:  &email,
		Rating:        4.5,
		TotalReviews:  2,
		IsActive:      true,
		CreatedAt:     time.Now().UTC(),
	}
}

func storedReview() *domain.Review {
	return &domain.Review{
		ID:             testReviewID,
		ServiceID:      testServiceID,
		ReviewerUserID: testUserID,
		Rating:         4.0,
		CreatedAt:      time.Now().UTC(),
	}
}

func ratingJSON(rating float64) []byte {
	b, _ := json.Marshal(ReviewRequest{Rating: rating})
	return b
}

func doRequest(router *chi.Mux, method, path, token string, body []byte) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

// ============================================================================
// POST /api/v1/services/{serviceID}/reviews - CreateReview
// ============================================================================

func TestCreateReview_Success(t *testing.T) {
	reviews := new(mockReviewRepository)
	services := new(mockServiceRepository)
	cache := new(mockListingCache)
	router := setupReviewRouter(reviews, services, cache)

	services.On("GetByID", mock.Anything, testServiceID).Return(ratedService(testServiceID, testOwnerID), nil)
	reviews.On("GetByServiceAndReviewer", mock.Anything, testServiceID, testUserID).Return(nil, apperrors.ErrNotFound)
	reviews.On("Create", mock.Anything, mock.AnythingOfType("*domain.Review")).Return(nil)
	cache.On("Invalidate", mock.Anything, testServiceID).Return(nil)

	rec := doRequest(router, http.MethodPost, "/api/v1/services/"+testServiceID+"/reviews", testUserID, ratingJSON(4.0))

	assert.Equal(t, http.StatusCreated, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Nil(t, resp.Error)
	assert.NotNil(t, resp.Data)
	reviews.AssertExpectations(t)
}

func TestCreateReview_Unauthenticated(t *testing.T) {
	reviews := new(mockReviewRepository)
	services := new(mockServiceRepository)
	cache := new(mockListingCache)
	router := setupReviewRouter(reviews, services, cache)

	rec := doRequest(router, http.MethodPost, "/api/v1/services/"+testServiceID+"/reviews", "", ratingJSON(4.0))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	services.AssertNotCalled(t, "GetByID")
}

func TestCreateReview_InvalidServiceID(t *testing.T) {
	reviews := new(mockReviewRepository)
	services := new(mockServiceRepository)
	cache := new(mockListingCache)
	router := setupReviewRouter(reviews, services, cache)

	rec := doRequest(router, http.MethodPost, "/api/v1/services/not-a-uuid/reviews", testUserID, ratingJSON(4.0))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_PARAMETER", resp.Error.Code)
}

func TestCreateReview_InvalidJSON(t *testing.T) {
	reviews := new(mockReviewRepository)
	services := new(mockServiceRepository)
	cache := new(mockListingCache)
	router := setupReviewRouter(reviews, services, cache)

	rec := doRequest(router, http.MethodPost, "/api/v1/services/"+testServiceID+"/reviews", testUserID, []byte(`{bad json`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_INPUT", resp.Error.Code)
}

func TestCreateReview_ServiceNotFound(t *testing.T) {
	reviews := new(mockReviewRepository)
	services := new(mockServiceRepository)
	cache := new(mockListingCache)
	router := setupReviewRouter(reviews, services, cache)

	services.On("GetByID", mock.Anything, testServiceID).Return(nil, apperrors.NotFound("service", testServiceID))

	rec := doRequest(router, http.MethodPost, "/api/v1/services/"+testServiceID+"/reviews", testUserID, ratingJSON(4.0))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)
}

func TestCreateReview_SelfReview(t *testing.T) {
	reviews := new(mockReviewRepository)
	services := new(mockServiceRepository)
	cache := new(mockListingCache)
	router := setupReviewRouter(reviews, services, cache)

	services.On("GetByID", mock.Anything, testServiceID).Return(ratedService(testServiceID, testOwnerID), nil)

	rec := doRequest(router, http.MethodPost, "/api/v1/services/"+testServiceID+"/reviews", testOwnerID, ratingJSON(4.0))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "SELF_REVIEW_FORBIDDEN", resp.Error.Code)
	reviews.AssertNotCalled(t, "Create")
}

func TestCreateReview_Duplicate(t *testing.T) {
	reviews := new(mockReviewRepository)
	services := new(mockServiceRepository)
	cache := new(mockListingCache)
	router := setupReviewRouter(reviews, services, cache)

	services.On("GetByID", mock.Anything, testServiceID).Return(ratedService(testServiceID, testOwnerID), nil)
	reviews.On("GetByServiceAndReviewer", mock.Anything, testServiceID, testUserID).Return(storedReview(), nil)

	rec := doRequest(router, http.MethodPost, "/api/v1/services/"+testServiceID+"/reviews", testUserID, ratingJSON(4.0))

	assert.Equal(t, http.StatusConflict, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "DUPLICATE_REVIEW", resp.Error.Code)
	reviews.AssertNotCalled(t, "Create")
}

func TestCreateReview_RatingOutOfRange(t *testing.T) {
	reviews := new(mockReviewRepository)
	services := new(mockServiceRepository)
	cache := new(mockListingCache)
	router := setupReviewRouter(reviews, services, cache)

	services.On("GetByID", mock.Anything, testServiceID).Return(ratedService(testServiceID, testOwnerID), nil)
	reviews.On("GetByServiceAndReviewer", mock.Anything, testServiceID, testUserID).Return(nil, apperrors.ErrNotFound)

	rec := doRequest(router, http.MethodPost, "/api/v1/services/"+testServiceID+"/reviews", testUserID, ratingJSON(5.5))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_INPUT", resp.Error.Code)
	reviews.AssertNotCalled(t, "Create")
}

// ============================================================================
// GET /api/v1/services/{serviceID}/reviews - ListServiceReviews
// ============================================================================

func TestListServiceReviews_Success(t *testing.T) {
	reviews := new(mockReviewRepository)
	services := new(mockServiceRepository)
	cache := new(mockListingCache)
	router := setupReviewRouter(reviews, services, cache)

	services.On("GetByID", mock.Anything, testServiceID).Return(ratedService(testServiceID, testOwnerID), nil)
	reviews.On("ListByService", mock.Anything, testServiceID, 0, 20).Return([]domain.Review{*storedReview()}, 1, nil)

	rec := doRequest(router, http.MethodGet, "/api/v1/services/"+testServiceID+"/reviews", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)

	var result struct {
		Data       []domain.Review `json:"data"`
		TotalCount int             `json:"total_count"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
	assert.Len(t, result.Data, 1)
	assert.Equal(t, 1, result.TotalCount)
	reviews.AssertExpectations(t)
}

func TestListServiceReviews_ServiceNotFound(t *testing.T) {
	reviews := new(mockReviewRepository)
	services := new(mockServiceRepository)
	cache := new(mockListingCache)
	router := setupReviewRouter(reviews, services, cache)

	services.On("GetByID", mock.Anything, testServiceID).Return(nil, apperrors.NotFound("service", testServiceID))

	rec := doRequest(router, http.MethodGet, "/api/v1/services/"+testServiceID+"/reviews", "", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	reviews.AssertNotCalled(t, "ListByService")
}

// ============================================================================
// GET /api/v1/reviews/{reviewID} - GetReview
// ============================================================================

func TestGetReview_Success(t *testing.T) {
	reviews := new(mockReviewRepository)
	services := new(mockServiceRepository)
	cache := new(mockListingCache)
	router := setupReviewRouter(reviews, services, cache)

	reviews.On("GetByID", mock.Anything, testReviewID).Return(storedReview(), nil)

	rec := doRequest(router, http.MethodGet, "/api/v1/reviews/"+testReviewID, "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Nil(t, resp.Error)
	assert.NotNil(t, resp.Data)
}

func TestGetReview_NotFound(t *testing.T) {
	reviews := new(mockReviewRepository)
	services := new(mockServiceRepository)
	cache := new(mockListingCache)
	router := setupReviewRouter(reviews, services, cache)

	reviews.On("GetByID", mock.Anything, testReviewID).Return(nil, apperrors.NotFound("review", testReviewID))

	rec := doRequest(router, http.MethodGet, "/api/v1/reviews/"+testReviewID, "", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)
}

// ============================================================================
// PUT /api/v1/reviews/{reviewID} - UpdateReview
// ============================================================================

func TestUpdateReview_Success(t *testing.T) {
	reviews := new(mockReviewRepository)
	services := new(mockServiceRepository)
	cache := new(mockListingCache)
	router := setupReviewRouter(reviews, services, cache)

	updated := storedReview()
	updated.Rating = 5.0

	reviews.On("GetByID", mock.Anything, testReviewID).Return(storedReview(), nil)
	reviews.On("UpdateRating", mock.Anything, testReviewID, 5.0).Return(updated, nil)
	services.On("GetByID", mock.Anything, testServiceID).Return(ratedService(testServiceID, testOwnerID), nil)
	cache.On("Invalidate", mock.Anything, testServiceID).Return(nil)

	rec := doRequest(router, http.MethodPut, "/api/v1/reviews/"+testReviewID, testUserID, ratingJSON(5.0))

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Nil(t, resp.Error)
	reviews.AssertExpectations(t)
}

func TestUpdateReview_NotAuthor(t *testing.T) {
	reviews := new(mockReviewRepository)
	services := new(mockServiceRepository)
	cache := new(mockListingCache)
	router := setupReviewRouter(reviews, services, cache)

	reviews.On("GetByID", mock.Anything, testReviewID).Return(storedReview(), nil)

	rec := doRequest(router, http.MethodPut, "/api/v1/reviews/"+testReviewID, testOwnerID, ratingJSON(5.0))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "FORBIDDEN", resp.Error.Code)
	reviews.AssertNotCalled(t, "UpdateRating")
}

// ============================================================================
// DELETE /api/v1/reviews/{reviewID} - DeleteReview
// ============================================================================

func TestDeleteReview_Success(t *testing.T) {
	reviews := new(mockReviewRepository)
	services := new(mockServiceRepository)
	cache := new(mockListingCache)
	router := setupReviewRouter(reviews, services, cache)

	reviews.On("GetByID", mock.Anything, testReviewID).Return(storedReview(), nil)
	reviews.On("Delete", mock.Anything, testReviewID).Return(storedReview(), nil)
	services.On("GetByID", mock.Anything, testServiceID).Return(ratedService(testServiceID, testOwnerID), nil)
	cache.On("Invalidate", mock.Anything, testServiceID).Return(nil)

	rec := doRequest(router, http.MethodDelete, "/api/v1/reviews/"+testReviewID, testUserID, nil)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.Bytes())
	reviews.AssertExpectations(t)
}

func TestDeleteReview_NotAuthor(t *testing.T) {
	reviews := new(mockReviewRepository)
	services := new(mockServiceRepository)
	cache := new(mockListingCache)
	router := setupReviewRouter(reviews, services, cache)

	reviews.On("GetByID", mock.Anything, testReviewID).Return(storedReview(), nil)

	rec := doRequest(router, http.MethodDelete, "/api/v1/reviews/"+testReviewID, testOwnerID, nil)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	reviews.AssertNotCalled(t, "Delete")
}

// ============================================================================
// GET /api/v1/users/me/reviews - ListMyReviews
// ============================================================================

func TestListMyReviews_Success(t *testing.T) {
	reviews := new(mockReviewRepository)
	services := new(mockServiceRepository)
	cache := new(mockListingCache)
	router := setupReviewRouter(reviews, services, cache)

	reviews.On("ListByReviewer", mock.Anything, testUserID, 0, 20).Return([]domain.Review{*storedReview()}, 1, nil)

	rec := doRequest(router, http.MethodGet, "/api/v1/users/me/reviews", testUserID, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	reviews.AssertExpectations(t)
}
