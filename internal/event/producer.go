package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xeternum/proyecto-mapa/internal/domain"
	pkgkafka "github.com/xeternum/proyecto-mapa/pkg/kafka"
)

// Kafka topic constants for marketplace domain events.
const (
	TopicReviewCreated  = "marketplace.review.created"
	TopicReviewUpdated  = "marketplace.review.updated"
	TopicReviewDeleted  = "marketplace.review.deleted"
	TopicServiceCreated = "marketplace.service.created"
	TopicUserRegistered = "marketplace.user.registered"
)

// Aggregate type constants.
const (
	AggregateTypeReview  = "review"
	AggregateTypeService = "service"
	AggregateTypeUser    = "user"
)

// Source identifier for events originating from this API.
const SourceMarketplaceAPI = "marketplace-api"

// ReviewEventData is the payload for review lifecycle events. It carries the
// rating projection as it stood after the mutation committed, so consumers
// see the same aggregate the database does.
type ReviewEventData struct {
	ID             string  `json:"id"`
	ServiceID      string  `json:"service_id"`
	ReviewerUserID string  `json:"reviewer_user_id"`
	Rating         float64 `json:"rating"`
	ServiceRating  float64 `json:"service_rating"`
	TotalReviews   int     `json:"total_reviews"`
}

// ServiceCreatedData is the payload for a service.created event.
type ServiceCreatedData struct {
	ID          string  `json:"id"`
	UserID      string  `json:"user_id"`
	ServiceName string  `json:"service_name"`
	Category    string  `json:"category"`
	Price       float64 `json:"price"`
}

// UserRegisteredData is the payload for a user.registered event.
type UserRegisteredData struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

// Producer publishes marketplace domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishReviewCreated publishes a review.created event.
func (p *Producer) PublishReviewCreated(ctx context.Context, review *domain.Review, summary domain.RatingSummary) error {
	return p.publishReviewEvent(ctx, TopicReviewCreated, review, summary)
}

// PublishReviewUpdated publishes a review.updated event.
func (p *Producer) PublishReviewUpdated(ctx context.Context, review *domain.Review, summary domain.RatingSummary) error {
	return p.publishReviewEvent(ctx, TopicReviewUpdated, review, summary)
}

// PublishReviewDeleted publishes a review.deleted event.
func (p *Producer) PublishReviewDeleted(ctx context.Context, review *domain.Review, summary domain.RatingSummary) error {
	return p.publishReviewEvent(ctx, TopicReviewDeleted, review, summary)
}

func (p *Producer) publishReviewEvent(ctx context.Context, topic string, review *domain.Review, summary domain.RatingSummary) error {
	data := ReviewEventData{
		ID:             review.ID,
		ServiceID:      review.ServiceID,
		ReviewerUserID: review.ReviewerUserID,
		Rating:         review.Rating,
		ServiceRating:  summary.Average,
		TotalReviews:   summary.Count,
	}

	event, err := pkgkafka.NewEvent(topic, review.ID, AggregateTypeReview, SourceMarketplaceAPI, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published review event",
		slog.String("topic", topic),
		slog.String("review_id", review.ID),
		slog.String("service_id", review.ServiceID),
	)

	return nil
}

// PublishServiceCreated publishes a service.created event.
func (p *Producer) PublishServiceCreated(ctx context.Context, svc *domain.Service) error {
	data := ServiceCreatedData{
		ID:          svc.ID,
		UserID:      svc.UserID,
		ServiceName: svc.ServiceName,
		Category:    svc.Category,
		Price:       svc.Price,
	}

	event, err := pkgkafka.NewEvent(TopicServiceCreated, svc.ID, AggregateTypeService, SourceMarketplaceAPI, data)
	if err != nil {
		return fmt.Errorf("create service.created event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicServiceCreated, event); err != nil {
		return fmt.Errorf("publish service.created event: %w", err)
	}

	p.logger.DebugContext(ctx, "published service.created event",
		slog.String("service_id", svc.ID),
	)

	return nil
}

// PublishUserRegistered publishes a user.registered event.
func (p *Producer) PublishUserRegistered(ctx context.Context, user *domain.User) error {
	data := UserRegisteredData{
		ID:       user.ID,
		Email:    user.Email,
		FullName: user.FullName,
	}

	event, err := pkgkafka.NewEvent(TopicUserRegistered, user.ID, AggregateTypeUser, SourceMarketplaceAPI, data)
	if err != nil {
		return fmt.Errorf("create user.registered event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicUserRegistered, event); err != nil {
		return fmt.Errorf("publish user.registered event: %w", err)
	}

	p.logger.DebugContext(ctx, "published user.registered event",
		slog.String("user_id", user.ID),
	)

	return nil
}
