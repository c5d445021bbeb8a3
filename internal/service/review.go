package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/xeternum/proyecto-mapa/internal/domain"
	"github.com/xeternum/proyecto-mapa/internal/event"
	"github.com/xeternum/proyecto-mapa/internal/repository"
	apperrors "github.com/xeternum/proyecto-mapa/pkg/errors"
	"github.com/xeternum/proyecto-mapa/pkg/pagination"
)

// ReviewService implements the business logic for review operations.
//
// Creation rules are checked in a fixed order: the service must exist, the
// reviewer must not own it, the reviewer must not already have a review for
// it, and the rating must be in range. The duplicate pre-check is a fast
// path; the storage unique constraint remains authoritative when two creates
// race, so exactly one of them commits.
type ReviewService struct {
	reviews  repository.ReviewRepository
	services repository.ServiceRepository
	cache    repository.ListingCache
	producer *event.Producer
	logger   *slog.Logger
}

// NewReviewService creates a new review service.
func NewReviewService(
	reviews repository.ReviewRepository,
	services repository.ServiceRepository,
	cache repository.ListingCache,
	producer *event.Producer,
	logger *slog.Logger,
) *ReviewService {
	return &ReviewService{
		reviews:  reviews,
		services: services,
		cache:    cache,
		producer: producer,
		logger:   logger,
	}
}

// CreateReview creates a review for a service on behalf of the reviewer.
func (s *ReviewService) CreateReview(ctx context.Context, serviceID, reviewerID string, rating float64) (*domain.Review, error) {
	svc, err := s.services.GetByID(ctx, serviceID)
	if err != nil {
		return nil, fmt.Errorf("get service for review: %w", err)
	}

	if svc.UserID == reviewerID {
		return nil, apperrors.SelfReviewForbidden()
	}

	_, err = s.reviews.GetByServiceAndReviewer(ctx, serviceID, reviewerID)
	if err == nil {
		return nil, apperrors.DuplicateReview(serviceID)
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("check existing review: %w", err)
	}

	if !domain.ValidRating(rating) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("rating must be between %.1f and %.1f", domain.MinRating, domain.MaxRating))
	}

	review := &domain.Review{
		ID:             uuid.New().String(),
		ServiceID:      serviceID,
		ReviewerUserID: reviewerID,
		Rating:         rating,
		CreatedAt:      time.Now().UTC(),
	}

	if err := s.reviews.Create(ctx, review); err != nil {
		return nil, fmt.Errorf("create review: %w", err)
	}

	s.afterReviewMutation(ctx, event.TopicReviewCreated, review)

	s.logger.InfoContext(ctx, "review created",
		slog.String("review_id", review.ID),
		slog.String("service_id", review.ServiceID),
		slog.Float64("rating", review.Rating),
	)

	return review, nil
}

// UpdateReview changes the rating of an existing review. Only its author may
// do so.
func (s *ReviewService) UpdateReview(ctx context.Context, reviewID, callerID string, rating float64) (*domain.Review, error) {
	review, err := s.reviews.GetByID(ctx, reviewID)
	if err != nil {
		return nil, fmt.Errorf("get review for update: %w", err)
	}

	if review.ReviewerUserID != callerID {
		return nil, apperrors.Forbidden("you can only modify your own reviews")
	}

	if !domain.ValidRating(rating) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("rating must be between %.1f and %.1f", domain.MinRating, domain.MaxRating))
	}

	updated, err := s.reviews.UpdateRating(ctx, reviewID, rating)
	if err != nil {
		return nil, fmt.Errorf("update review: %w", err)
	}

	s.afterReviewMutation(ctx, event.TopicReviewUpdated, updated)

	s.logger.InfoContext(ctx, "review updated",
		slog.String("review_id", updated.ID),
		slog.String("service_id", updated.ServiceID),
		slog.Float64("rating", updated.Rating),
	)

	return updated, nil
}

// DeleteReview removes an existing review. Only its author may do so.
func (s *ReviewService) DeleteReview(ctx context.Context, reviewID, callerID string) error {
	review, err := s.reviews.GetByID(ctx, reviewID)
	if err != nil {
		return fmt.Errorf("get review for delete: %w", err)
	}

	if review.ReviewerUserID != callerID {
		return apperrors.Forbidden("you can only modify your own reviews")
	}

	deleted, err := s.reviews.Delete(ctx, reviewID)
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}

	s.afterReviewMutation(ctx, event.TopicReviewDeleted, deleted)

	s.logger.InfoContext(ctx, "review deleted",
		slog.String("review_id", deleted.ID),
		slog.String("service_id", deleted.ServiceID),
	)

	return nil
}

// GetReview retrieves a review by its ID.
func (s *ReviewService) GetReview(ctx context.Context, id string) (*domain.Review, error) {
	review, err := s.reviews.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get review by id: %w", err)
	}
	return review, nil
}

// ListServiceReviews returns paginated reviews for a service, newest first.
func (s *ReviewService) ListServiceReviews(ctx context.Context, serviceID string, params pagination.Params) (*pagination.Result[domain.Review], error) {
	if _, err := s.services.GetByID(ctx, serviceID); err != nil {
		return nil, fmt.Errorf("get service for reviews: %w", err)
	}

	reviews, total, err := s.reviews.ListByService(ctx, serviceID, params.Offset, params.PerPage)
	if err != nil {
		return nil, fmt.Errorf("list service reviews: %w", err)
	}

	result := pagination.NewResult(reviews, total, params)
	return &result, nil
}

// ListUserReviews returns paginated reviews authored by a user, newest first.
func (s *ReviewService) ListUserReviews(ctx context.Context, reviewerID string, params pagination.Params) (*pagination.Result[domain.Review], error) {
	reviews, total, err := s.reviews.ListByReviewer(ctx, reviewerID, params.Offset, params.PerPage)
	if err != nil {
		return nil, fmt.Errorf("list user reviews: %w", err)
	}

	result := pagination.NewResult(reviews, total, params)
	return &result, nil
}

// afterReviewMutation invalidates the cached listing whose rating projection
// just changed and publishes the matching event. Both are best-effort; the
// database transaction has already committed.
func (s *ReviewService) afterReviewMutation(ctx context.Context, topic string, review *domain.Review) {
	if err := s.cache.Invalidate(ctx, review.ServiceID); err != nil {
		s.logger.WarnContext(ctx, "failed to invalidate listing cache",
			slog.String("service_id", review.ServiceID),
			slog.String("error", err.Error()),
		)
	}

	svc, err := s.services.GetByID(ctx, review.ServiceID)
	if err != nil {
		// The service row can be gone after a cascade delete; skip the event.
		s.logger.WarnContext(ctx, "failed to load service for review event",
			slog.String("service_id", review.ServiceID),
			slog.String("error", err.Error()),
		)
		return
	}

	summary := domain.RatingSummary{Average: svc.Rating, Count: svc.TotalReviews}

	switch topic {
	case event.TopicReviewCreated:
		err = s.producer.PublishReviewCreated(ctx, review, summary)
	case event.TopicReviewUpdated:
		err = s.producer.PublishReviewUpdated(ctx, review, summary)
	case event.TopicReviewDeleted:
		err = s.producer.PublishReviewDeleted(ctx, review, summary)
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to publish review event",
			slog.String("topic", topic),
			slog.String("review_id", review.ID),
			slog.String("error", err.Error()),
		)
		// Do not fail the operation if event publishing fails.
	}
}
