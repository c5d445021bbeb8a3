package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/xeternum/proyecto-mapa/internal/domain"
	apperrors "github.com/xeternum/proyecto-mapa/pkg/errors"
	"github.com/xeternum/proyecto-mapa/pkg/pagination"
)

func newTestReviewService(reviews *mockReviewRepository, services *mockServiceRepository, cache *mockListingCache) *ReviewService {
	return NewReviewService(reviews, services, cache, newTestEventProducer(), newTestLogger())
}

func testService(id, ownerID string) *domain.Service {
	return &domain.Service{
		ID:           id,
		UserID:       ownerID,
		ServiceName:  "Plumbing repairs",
		Rating:       4.5,
		TotalReviews: 2,
		IsActive:     true,
	}
}

func TestCreateReview_Success(t *testing.T) {
	reviews := new(mockReviewRepository)
	services := new(mockServiceRepository)
	cache := new(mockListingCache)
	svc := newTestReviewService(reviews, services, cache)
	ctx := context.Background()

	services.On("GetByID", ctx, "svc-1").Return(testService("svc-1", "owner-1"), nil)
	reviews.On("GetByServiceAndReviewer", ctx, "svc-1", "user-2").Return(nil, apperrors.ErrNotFound)
	reviews.On("Create", ctx, mock.AnythingOfType("*domain.Review")).Return(nil)
	cache.On("Invalidate", ctx, "svc-1").Return(nil)

	review, err := svc.CreateReview(ctx, "svc-1", "user-2", 4.0)

	require.NoError(t, err)
	assert.NotEmpty(t, review.ID)
	assert.Equal(t, "svc-1", review.ServiceID)
	assert.Equal(t, "user-2", review.ReviewerUserID)
	assert.Equal(t, 4.0, review.Rating)
	assert.NotZero(t, review.CreatedAt)

	reviews.AssertExpectations(t)
	services.AssertExpectations(t)
	cache.AssertExpectations(t)
}

func TestCreateReview_RatingBoundsAccepted(t *testing.T) {
	for _, rating := range []float64{1.0, 5.0} {
		reviews := new(mockReviewRepository)
		services := new(mockServiceRepository)
		cache := new(mockListingCache)
		svc := newTestReviewService(reviews, services, cache)
		ctx := context.Background()

		services.On("GetByID", ctx, "svc-1").Return(testService("svc-1", "owner-1"), nil)
		reviews.On("GetByServiceAndReviewer", ctx, "svc-1", "user-2").Return(nil, apperrors.ErrNotFound)
		reviews.On("Create", ctx, mock.AnythingOfType("*domain.Review")).Return(nil)
		cache.On("Invalidate", ctx, "svc-1").Return(nil)

		review, err := svc.CreateReview(ctx, "svc-1", "user-2", rating)

		require.NoError(t, err, "rating %v", rating)
		assert.Equal(t, rating, review.Rating)
	}
}

func TestCreateReview_ServiceNotFound(t *testing.T) {
	reviews := new(mockReviewRepository)
	services := new(mockServiceRepository)
	cache := new(mockListingCache)
	svc := newTestReviewService(reviews, services, cache)
	ctx := context.Background()

	services.On("GetByID", ctx, "missing").Return(nil, apperrors.NotFound("service", "missing"))

	review, err := svc.CreateReview(ctx, "missing", "user-2", 4.0)

	assert.Nil(t, review)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	reviews.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateReview_SelfReviewForbidden(t *testing.T) {
	reviews := new(mockReviewRepository)
	services := new(mockServiceRepository)
	cache := new(mockListingCache)
	svc := newTestReviewService(reviews, services, cache)
	ctx := context.Background()

	services.On("GetByID", ctx, "svc-1").Return(testService("svc-1", "owner-1"), nil)

	review, err := svc.CreateReview(ctx, "svc-1", "owner-1", 4.0)

	assert.Nil(t, review)
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "SELF_REVIEW_FORBIDDEN", appErr.Code)
	reviews.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateReview_DuplicateFastPath(t *testing.T) {
	reviews := new(mockReviewRepository)
	services := new(mockServiceRepository)
	cache := new(mockListingCache)
	svc := newTestReviewService(reviews, services, cache)
	ctx := context.Background()

	existing := &domain.Review{ID: "rev-1", ServiceID: "svc-1", ReviewerUserID: "user-2", Rating: 3.0}
	services.On("GetByID", ctx, "svc-1").Return(testService("svc-1", "owner-1"), nil)
	reviews.On("GetByServiceAndReviewer", ctx, "svc-1", "user-2").Return(existing, nil)

	review, err := svc.CreateReview(ctx, "svc-1", "user-2", 4.0)

	assert.Nil(t, review)
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "DUPLICATE_REVIEW", appErr.Code)
	reviews.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateReview_DuplicateLostRace(t *testing.T) {
	reviews := new(mockReviewRepository)
	services := new(mockServiceRepository)
	cache := new(mockListingCache)
	svc := newTestReviewService(reviews, services, cache)
	ctx := context.Background()

	// The pre-check sees no review, but a concurrent insert wins the race and
	// the storage constraint fires.
	services.On("GetByID", ctx, "svc-1").Return(testService("svc-1", "owner-1"), nil)
	reviews.On("GetByServiceAndReviewer", ctx, "svc-1", "user-2").Return(nil, apperrors.ErrNotFound)
	reviews.On("Create", ctx, mock.AnythingOfType("*domain.Review")).Return(apperrors.DuplicateReview("svc-1"))

	review, err := svc.CreateReview(ctx, "svc-1", "user-2", 4.0)

	assert.Nil(t, review)
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "DUPLICATE_REVIEW", appErr.Code)
	reviews.AssertExpectations(t)
}

func TestCreateReview_InvalidRating(t *testing.T) {
	for _, rating := range []float64{0, 0.9, 5.1, -1} {
		reviews := new(mockReviewRepository)
		services := new(mockServiceRepository)
		cache := new(mockListingCache)
		svc := newTestReviewService(reviews, services, cache)
		ctx := context.Background()

		services.On("GetByID", ctx, "svc-1").Return(testService("svc-1", "owner-1"), nil)
		reviews.On("GetByServiceAndReviewer", ctx, "svc-1", "user-2").Return(nil, apperrors.ErrNotFound)

		review, err := svc.CreateReview(ctx, "svc-1", "user-2", rating)

		assert.Nil(t, review, "rating %v", rating)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput, "rating %v", rating)
		reviews.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	}
}

func TestUpdateReview_Success(t *testing.T) {
	reviews := new(mockReviewRepository)
	services := new(mockServiceRepository)
	cache := new(mockListingCache)
	svc := newTestReviewService(reviews, services, cache)
	ctx := context.Background()

	existing := &domain.Review{ID: "rev-1", ServiceID: "svc-1", ReviewerUserID: "user-2", Rating: 3.0}
	updated := &domain.Review{ID: "rev-1", ServiceID: "svc-1", ReviewerUserID: "user-2", Rating: 5.0}

	reviews.On("GetByID", ctx, "rev-1").Return(existing, nil)
	reviews.On("UpdateRating", ctx, "rev-1", 5.0).Return(updated, nil)
	cache.On("Invalidate", ctx, "svc-1").Return(nil)
	services.On("GetByID", ctx, "svc-1").Return(testService("svc-1", "owner-1"), nil)

	result, err := svc.UpdateReview(ctx, "rev-1", "user-2", 5.0)

	require.NoError(t, err)
	assert.Equal(t, 5.0, result.Rating)
	reviews.AssertExpectations(t)
}

func TestUpdateReview_NotAuthor(t *testing.T) {
	reviews := new(mockReviewRepository)
	services := new(mockServiceRepository)
	cache := new(mockListingCache)
	svc := newTestReviewService(reviews, services, cache)
	ctx := context.Background()

	existing := &domain.Review{ID: "rev-1", ServiceID: "svc-1", ReviewerUserID: "user-2", Rating: 3.0}
	reviews.On("GetByID", ctx, "rev-1").Return(existing, nil)

	result, err := svc.UpdateReview(ctx, "rev-1", "someone-else", 5.0)

	assert.Nil(t, result)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	reviews.AssertNotCalled(t, "UpdateRating", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateReview_NotFound(t *testing.T) {
	reviews := new(mockReviewRepository)
	services := new(mockServiceRepository)
	cache := new(mockListingCache)
	svc := newTestReviewService(reviews, services, cache)
	ctx := context.Background()

	reviews.On("GetByID", ctx, "missing").Return(nil, apperrors.NotFound("review", "missing"))

	result, err := svc.UpdateReview(ctx, "missing", "user-2", 5.0)

	assert.Nil(t, result)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestUpdateReview_InvalidRating(t *testing.T) {
	reviews := new(mockReviewRepository)
	services := new(mockServiceRepository)
	cache := new(mockListingCache)
	svc := newTestReviewService(reviews, services, cache)
	ctx := context.Background()

	existing := &domain.Review{ID: "rev-1", ServiceID: "svc-1", ReviewerUserID: "user-2", Rating: 3.0}
	reviews.On("GetByID", ctx, "rev-1").Return(existing, nil)

	result, err := svc.UpdateReview(ctx, "rev-1", "user-2", 0.5)

	assert.Nil(t, result)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	reviews.AssertNotCalled(t, "UpdateRating", mock.Anything, mock.Anything, mock.Anything)
}

func TestDeleteReview_Success(t *testing.T) {
	reviews := new(mockReviewRepository)
	services := new(mockServiceRepository)
	cache := new(mockListingCache)
	svc := newTestReviewService(reviews, services, cache)
	ctx := context.Background()

	existing := &domain.Review{ID: "rev-1", ServiceID: "svc-1", ReviewerUserID: "user-2", Rating: 3.0}
	reviews.On("GetByID", ctx, "rev-1").Return(existing, nil)
	reviews.On("Delete", ctx, "rev-1").Return(existing, nil)
	cache.On("Invalidate", ctx, "svc-1").Return(nil)
	services.On("GetByID", ctx, "svc-1").Return(testService("svc-1", "owner-1"), nil)

	err := svc.DeleteReview(ctx, "rev-1", "user-2")

	require.NoError(t, err)
	reviews.AssertExpectations(t)
	cache.AssertExpectations(t)
}

func TestDeleteReview_NotAuthor(t *testing.T) {
	reviews := new(mockReviewRepository)
	services := new(mockServiceRepository)
	cache := new(mockListingCache)
	svc := newTestReviewService(reviews, services, cache)
	ctx := context.Background()

	existing := &domain.Review{ID: "rev-1", ServiceID: "svc-1", ReviewerUserID: "user-2", Rating: 3.0}
	reviews.On("GetByID", ctx, "rev-1").Return(existing, nil)

	err := svc.DeleteReview(ctx, "rev-1", "someone-else")

	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	reviews.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestCreateReview_CacheInvalidationFailureDoesNotFail(t *testing.T) {
	reviews := new(mockReviewRepository)
	services := new(mockServiceRepository)
	cache := new(mockListingCache)
	svc := newTestReviewService(reviews, services, cache)
	ctx := context.Background()

	services.On("GetByID", ctx, "svc-1").Return(testService("svc-1", "owner-1"), nil)
	reviews.On("GetByServiceAndReviewer", ctx, "svc-1", "user-2").Return(nil, apperrors.ErrNotFound)
	reviews.On("Create", ctx, mock.AnythingOfType("*domain.Review")).Return(nil)
	cache.On("Invalidate", ctx, "svc-1").Return(fmt.Errorf("redis down"))

	review, err := svc.CreateReview(ctx, "svc-1", "user-2", 4.0)

	require.NoError(t, err)
	assert.NotNil(t, review)
}

func TestListServiceReviews_Success(t *testing.T) {
	reviews := new(mockReviewRepository)
	services := new(mockServiceRepository)
	cache := new(mockListingCache)
	svc := newTestReviewService(reviews, services, cache)
	ctx := context.Background()

	expected := []domain.Review{
		{ID: "rev-1", ServiceID: "svc-1", Rating: 5.0},
		{ID: "rev-2", ServiceID: "svc-1", Rating: 4.0},
	}

	services.On("GetByID", ctx, "svc-1").Return(testService("svc-1", "owner-1"), nil)
	reviews.On("ListByService", ctx, "svc-1", 0, 20).Return(expected, 2, nil)

	params := pagination.Params{Page: 1, PerPage: 20}
	result, err := svc.ListServiceReviews(ctx, "svc-1", params)

	require.NoError(t, err)
	assert.Len(t, result.Data, 2)
	assert.Equal(t, 2, result.TotalCount)
	assert.Equal(t, 1, result.TotalPages)
}

func TestListServiceReviews_ServiceNotFound(t *testing.T) {
	reviews := new(mockReviewRepository)
	services := new(mockServiceRepository)
	cache := new(mockListingCache)
	svc := newTestReviewService(reviews, services, cache)
	ctx := context.Background()

	services.On("GetByID", ctx, "missing").Return(nil, apperrors.NotFound("service", "missing"))

	result, err := svc.ListServiceReviews(ctx, "missing", pagination.Params{Page: 1, PerPage: 20})

	assert.Nil(t, result)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestListUserReviews_Success(t *testing.T) {
	reviews := new(mockReviewRepository)
	services := new(mockServiceRepository)
	cache := new(mockListingCache)
	svc := newTestReviewService(reviews, services, cache)
	ctx := context.Background()

	expected := []domain.Review{{ID: "rev-1", ReviewerUserID: "user-2", Rating: 5.0}}
	reviews.On("ListByReviewer", ctx, "user-2", 0, 20).Return(expected, 1, nil)

	result, err := svc.ListUserReviews(ctx, "user-2", pagination.Params{Page: 1, PerPage: 20})

	require.NoError(t, err)
	assert.Len(t, result.Data, 1)
	assert.Equal(t, 1, result.TotalCount)
}
