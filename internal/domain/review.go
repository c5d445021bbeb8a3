package domain

import (
	"time"
)

// Rating bounds for a review.
const (
	MinRating = 1.0
	MaxRating = 5.0
)

// Review represents a single rating left by one user for one service.
// At most one review exists per (service, reviewer) pair; the reviews table
// enforces this with a unique constraint.
type Review struct {
	ID             string     `json:"id"`
	ServiceID      string     `json:"service_id"`
	ReviewerUserID string     `json:"reviewer_user_id"`
	Rating         float64    `json:"rating"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty"`
}

// RatingSummary is the denormalized aggregate stored on the service row:
// the arithmetic mean of all its review ratings and their count.
type RatingSummary struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// ValidRating reports whether r is within the accepted [1.0, 5.0] range.
func ValidRating(r float64) bool {
	return r >= MinRating && r <= MaxRating
}

// AggregateRatings computes the rating summary for a service from the full
// set of its review ratings. The average is 0.0 when there are no reviews.
// This is a deliberate full recomputation rather than an incremental running
// average, so repeated mutations cannot accumulate floating-point drift.
func AggregateRatings(ratings []float64) RatingSummary {
	if len(ratings) == 0 {
		return RatingSummary{}
	}

	var sum float64
	for _, r := range ratings {
		sum += r
	}

	return RatingSummary{
		Average: sum / float64(len(ratings)),
		Count:   len(ratings),
	}
}
