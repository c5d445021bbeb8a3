// Package repository defines the persistence interfaces consumed by the
// service layer. PostgreSQL implementations live in the postgres subpackage,
// the Redis listing cache in the redis subpackage.
package repository

import (
	"context"

	"github.com/xeternum/proyecto-mapa/internal/domain"
)

// ServiceFilter defines filter criteria for listing services.
type ServiceFilter struct {
	// Category filters by category name, case-insensitively.
	Category *string

	// OwnerID filters by the owning user.
	OwnerID *string

	// Query matches service_name or description, case-insensitively.
	Query *string

	// ActiveOnly restricts results to active listings.
	ActiveOnly bool

	Offset int
	Limit  int
}

// ReviewRepository persists reviews and owns the rating projection on the
// services table. Every mutating operation runs the review write and the
// projection recomputation inside one transaction: either both commit or
// neither does.
type ReviewRepository interface {
	// GetByID retrieves a review by its identifier.
	GetByID(ctx context.Context, id string) (*domain.Review, error)

	// GetByServiceAndReviewer retrieves the review a user left for a
	// service, or ErrNotFound if none exists.
	GetByServiceAndReviewer(ctx context.Context, serviceID, reviewerID string) (*domain.Review, error)

	// Create inserts a review and recomputes the service's rating
	// projection. A unique-constraint violation on (service_id,
	// reviewer_user_id) surfaces as DuplicateReview.
	Create(ctx context.Context, review *domain.Review) error

	// UpdateRating changes a review's rating and recomputes the owning
	// service's projection. Returns the updated review.
	UpdateRating(ctx context.Context, id string, rating float64) (*domain.Review, error)

	// Delete removes a review and recomputes the owning service's
	// projection from the remaining reviews. Returns the deleted review.
	Delete(ctx context.Context, id string) (*domain.Review, error)

	// ListByService returns reviews for a service, newest first, with the
	// total count.
	ListByService(ctx context.Context, serviceID string, offset, limit int) ([]domain.Review, int, error)

	// ListByReviewer returns reviews authored by a user, newest first,
	// with the total count.
	ListByReviewer(ctx context.Context, reviewerID string, offset, limit int) ([]domain.Review, int, error)
}

// ServiceRepository persists service listings. Implementations must never
// write the rating or total_reviews columns; those belong to the review
// repository's transactions.
type ServiceRepository interface {
	Create(ctx context.Context, svc *domain.Service) error
	GetByID(ctx context.Context, id string) (*domain.Service, error)
	Update(ctx context.Context, svc *domain.Service) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter ServiceFilter) ([]domain.Service, int, error)
}

// UserRepository persists user accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
}

// CategoryRepository reads the category catalog.
type CategoryRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Category, error)
	ListActive(ctx context.Context) ([]domain.Category, error)
}

// ListingCache caches service listings by ID. Review mutations must
// invalidate the cached listing because the rating projection lives on it.
type ListingCache interface {
	Get(ctx context.Context, id string) (*domain.Service, error)
	Set(ctx context.Context, svc *domain.Service) error
	Invalidate(ctx context.Context, id string) error
}
