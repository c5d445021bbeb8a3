package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/xeternum/proyecto-mapa/internal/domain"
	"github.com/xeternum/proyecto-mapa/pkg/database"
	apperrors "github.com/xeternum/proyecto-mapa/pkg/errors"
)

// ReviewRepository implements repository.ReviewRepository using PostgreSQL.
//
// Every mutation runs as a single transaction that locks the owning service
// row, changes the review, recomputes the rating projection from all
// remaining reviews, and writes it back to the service. The row lock
// serializes concurrent mutations per service; mutations on different
// services never contend.
type ReviewRepository struct {
	pool database.DBTX
}

// NewReviewRepository creates a new PostgreSQL-backed review repository.
func NewReviewRepository(pool database.DBTX) *ReviewRepository {
	return &ReviewRepository{pool: pool}
}

// GetByID retrieves a review by its ID.
func (r *ReviewRepository) GetByID(ctx context.Context, id string) (*domain.Review, error) {
	query := `
		SELECT id, service_id, reviewer_user_id, rating, created_at, updated_at
		FROM reviews
		WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "reviews.get_by_id", query)
	rv, err := scanReview(r.pool.QueryRow(ctx, query, id))
	end(err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("review", id)
		}
		return nil, fmt.Errorf("get review: %w", err)
	}

	return rv, nil
}

// GetByServiceAndReviewer retrieves the review left by a user for a service.
func (r *ReviewRepository) GetByServiceAndReviewer(ctx context.Context, serviceID, reviewerID string) (*domain.Review, error) {
	query := `
		SELECT id, service_id, reviewer_user_id, rating, created_at, updated_at
		FROM reviews
		WHERE service_id = $1 AND reviewer_user_id = $2`

	ctx, end := database.TraceQuery(ctx, "reviews.get_by_service_and_reviewer", query)
	rv, err := scanReview(r.pool.QueryRow(ctx, query, serviceID, reviewerID))
	end(err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("get review by service and reviewer: %w", err)
	}

	return rv, nil
}

// Create inserts a review and refreshes the service's rating projection
// within one transaction. If another transaction inserted a review for the
// same (service, reviewer) pair first, the unique constraint fires and the
// caller gets DuplicateReview; exactly one of the racing inserts commits.
func (r *ReviewRepository) Create(ctx context.Context, review *domain.Review) (err error) {
	ctx, end := database.TraceQuery(ctx, "reviews.create", "INSERT INTO reviews")
	defer func() { end(err) }()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err = lockService(ctx, tx, review.ServiceID); err != nil {
		return err
	}

	insertQuery := `
		INSERT INTO reviews (id, service_id, reviewer_user_id, rating, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err = tx.Exec(ctx, insertQuery,
		review.ID,
		review.ServiceID,
		review.ReviewerUserID,
		review.Rating,
		review.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.DuplicateReview(review.ServiceID)
		}
		return fmt.Errorf("insert review: %w", err)
	}

	if err = recomputeProjection(ctx, tx, review.ServiceID); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// UpdateRating changes a review's rating and refreshes the service's rating
// projection within one transaction. Returns the updated review.
func (r *ReviewRepository) UpdateRating(ctx context.Context, id string, rating float64) (rv *domain.Review, err error) {
	ctx, end := database.TraceQuery(ctx, "reviews.update_rating", "UPDATE reviews SET rating")
	defer func() { end(err) }()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Resolve the owning service first so its row can be locked before the
	// review row changes.
	var serviceID string
	err = tx.QueryRow(ctx, `SELECT service_id FROM reviews WHERE id = $1`, id).Scan(&serviceID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("review", id)
		}
		return nil, fmt.Errorf("resolve review service: %w", err)
	}

	if err = lockService(ctx, tx, serviceID); err != nil {
		return nil, err
	}

	updateQuery := `
		UPDATE reviews
		SET rating = $1, updated_at = $2
		WHERE id = $3
		RETURNING id, service_id, reviewer_user_id, rating, created_at, updated_at`

	rv, err = scanReview(tx.QueryRow(ctx, updateQuery, rating, time.Now().UTC(), id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("review", id)
		}
		return nil, fmt.Errorf("update review rating: %w", err)
	}

	if err = recomputeProjection(ctx, tx, serviceID); err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	return rv, nil
}

// Delete removes a review and refreshes the service's rating projection from
// the remaining reviews within one transaction. Returns the deleted review.
func (r *ReviewRepository) Delete(ctx context.Context, id string) (rv *domain.Review, err error) {
	ctx, end := database.TraceQuery(ctx, "reviews.delete", "DELETE FROM reviews")
	defer func() { end(err) }()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var serviceID string
	err = tx.QueryRow(ctx, `SELECT service_id FROM reviews WHERE id = $1`, id).Scan(&serviceID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("review", id)
		}
		return nil, fmt.Errorf("resolve review service: %w", err)
	}

	if err = lockService(ctx, tx, serviceID); err != nil {
		return nil, err
	}

	deleteQuery := `
		DELETE FROM reviews
		WHERE id = $1
		RETURNING id, service_id, reviewer_user_id, rating, created_at, updated_at`

	rv, err = scanReview(tx.QueryRow(ctx, deleteQuery, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("review", id)
		}
		return nil, fmt.Errorf("delete review: %w", err)
	}

	if err = recomputeProjection(ctx, tx, serviceID); err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	return rv, nil
}

// ListByService returns paginated reviews for a service, newest first, along
// with the total count.
func (r *ReviewRepository) ListByService(ctx context.Context, serviceID string, offset, limit int) ([]domain.Review, int, error) {
	query := `
		SELECT id, service_id, reviewer_user_id, rating, created_at, updated_at,
		       count(*) OVER() AS total_count
		FROM reviews
		WHERE service_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	return r.listReviews(ctx, "reviews.list_by_service", query, serviceID, offset, limit)
}

// ListByReviewer returns paginated reviews authored by a user, newest first,
// along with the total count.
func (r *ReviewRepository) ListByReviewer(ctx context.Context, reviewerID string, offset, limit int) ([]domain.Review, int, error) {
	query := `
		SELECT id, service_id, reviewer_user_id, rating, created_at, updated_at,
		       count(*) OVER() AS total_count
		FROM reviews
		WHERE reviewer_user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	return r.listReviews(ctx, "reviews.list_by_reviewer", query, reviewerID, offset, limit)
}

func (r *ReviewRepository) listReviews(ctx context.Context, op, query, key string, offset, limit int) (_ []domain.Review, _ int, err error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	ctx, end := database.TraceQuery(ctx, op, query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query, key, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	var totalCount int
	reviews := make([]domain.Review, 0)

	for rows.Next() {
		var rv domain.Review

		if err = rows.Scan(
			&rv.ID,
			&rv.ServiceID,
			&rv.ReviewerUserID,
			&rv.Rating,
			&rv.CreatedAt,
			&rv.UpdatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan review row: %w", err)
		}

		reviews = append(reviews, rv)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate review rows: %w", err)
	}

	return reviews, totalCount, nil
}

// lockService takes a row lock on the service so that concurrent review
// mutations for the same service recompute the projection one at a time.
// Returns NotFound when the service does not exist.
func lockService(ctx context.Context, tx pgx.Tx, serviceID string) error {
	var id string
	err := tx.QueryRow(ctx, `SELECT id FROM services WHERE id = $1 FOR UPDATE`, serviceID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NotFound("service", serviceID)
		}
		return fmt.Errorf("lock service row: %w", err)
	}
	return nil
}

// recomputeProjection rereads every rating for the service and writes the
// aggregate back to the service row. It always recomputes from the full set
// of reviews rather than adjusting the stored values incrementally.
func recomputeProjection(ctx context.Context, tx pgx.Tx, serviceID string) error {
	rows, err := tx.Query(ctx, `SELECT rating FROM reviews WHERE service_id = $1`, serviceID)
	if err != nil {
		return fmt.Errorf("read service ratings: %w", err)
	}
	defer rows.Close()

	var ratings []float64
	for rows.Next() {
		var rating float64
		if err := rows.Scan(&rating); err != nil {
			return fmt.Errorf("scan rating: %w", err)
		}
		ratings = append(ratings, rating)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate rating rows: %w", err)
	}

	summary := domain.AggregateRatings(ratings)

	ct, err := tx.Exec(ctx,
		`UPDATE services SET rating = $1, total_reviews = $2, updated_at = $3 WHERE id = $4`,
		summary.Average, summary.Count, time.Now().UTC(), serviceID,
	)
	if err != nil {
		return fmt.Errorf("update rating projection: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("service", serviceID)
	}

	return nil
}

func scanReview(row pgx.Row) (*domain.Review, error) {
	var rv domain.Review
	err := row.Scan(
		&rv.ID,
		&rv.ServiceID,
		&rv.ReviewerUserID,
		&rv.Rating,
		&rv.CreatedAt,
		&rv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rv, nil
}

// isUniqueViolation checks if the error is a PostgreSQL unique constraint violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23505")
}
