package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/xeternum/proyecto-mapa/internal/domain"
	"github.com/xeternum/proyecto-mapa/internal/repository"
	"github.com/xeternum/proyecto-mapa/pkg/database"
	apperrors "github.com/xeternum/proyecto-mapa/pkg/errors"
)

const serviceColumns = `id, user_id, service_name, description, category, price, price_modality,
	schedule, address, latitude, longitude, contact_method, contact_email, contact_phone,
	contact_country_code, whatsapp_available, rating, total_reviews, is_active, created_at, updated_at`

// ServiceRepository implements repository.ServiceRepository using PostgreSQL.
// It never writes the rating or total_reviews columns; the review repository
// owns those.
type ServiceRepository struct {
	pool database.DBTX
}

// NewServiceRepository creates a new PostgreSQL-backed service repository.
func NewServiceRepository(pool database.DBTX) *ServiceRepository {
	return &ServiceRepository{pool: pool}
}

// Create inserts a new service listing. The rating projection starts at its
// column defaults (0.0 average, zero reviews).
func (r *ServiceRepository) Create(ctx context.Context, svc *domain.Service) error {
	query := `
		INSERT INTO services (id, user_id, service_name, description, category, price, price_modality,
			schedule, address, latitude, longitude, contact_method, contact_email, contact_phone,
			contact_country_code, whatsapp_available, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`

	ctx, end := database.TraceQuery(ctx, "services.create", query)
	_, err := r.pool.Exec(ctx, query,
		svc.ID,
		svc.UserID,
		svc.ServiceName,
		svc.Description,
		svc.Category,
		svc.Price,
		svc.PriceModality,
		svc.Schedule,
		svc.Address,
		svc.Latitude,
		svc.Longitude,
		svc.ContactMethod,
		svc.ContactEmail,
		svc.ContactPhone,
		svc.ContactCountryCode,
		svc.WhatsappAvailable,
		svc.IsActive,
		svc.CreatedAt,
	)
	end(err)
	if err != nil {
		return fmt.Errorf("insert service: %w", err)
	}

	return nil
}

// GetByID retrieves a service listing by its ID.
func (r *ServiceRepository) GetByID(ctx context.Context, id string) (*domain.Service, error) {
	query := `SELECT ` + serviceColumns + ` FROM services WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "services.get_by_id", query)
	svc, err := scanService(r.pool.QueryRow(ctx, query, id))
	end(err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("service", id)
		}
		return nil, fmt.Errorf("get service: %w", err)
	}

	return svc, nil
}

// Update persists the mutable fields of a service listing. The rating and
// total_reviews columns are deliberately excluded from the SET list.
func (r *ServiceRepository) Update(ctx context.Context, svc *domain.Service) error {
	query := `
		UPDATE services
		SET service_name = $1, description = $2, category = $3, price = $4, price_modality = $5,
			schedule = $6, address = $7, latitude = $8, longitude = $9, contact_method = $10,
			contact_email = $11, contact_phone = $12, contact_country_code = $13,
			whatsapp_available = $14, is_active = $15, updated_at = $16
		WHERE id = $17`

	ctx, end := database.TraceQuery(ctx, "services.update", query)
	ct, err := r.pool.Exec(ctx, query,
		svc.ServiceName,
		svc.Description,
		svc.Category,
		svc.Price,
		svc.PriceModality,
		svc.Schedule,
		svc.Address,
		svc.Latitude,
		svc.Longitude,
		svc.ContactMethod,
		svc.ContactEmail,
		svc.ContactPhone,
		svc.ContactCountryCode,
		svc.WhatsappAvailable,
		svc.IsActive,
		time.Now().UTC(),
		svc.ID,
	)
	end(err)
	if err != nil {
		return fmt.Errorf("update service: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("service", svc.ID)
	}

	return nil
}

// Delete removes a service listing. Its reviews go with it via the foreign
// key cascade.
func (r *ServiceRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM services WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "services.delete", query)
	ct, err := r.pool.Exec(ctx, query, id)
	end(err)
	if err != nil {
		return fmt.Errorf("delete service: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("service", id)
	}

	return nil
}

// List returns service listings matching the given filter with the total count.
func (r *ServiceRepository) List(ctx context.Context, filter repository.ServiceFilter) (_ []domain.Service, _ int, err error) {
	var (
		conditions []string
		args       []any
		argIndex   int = 1
	)

	if filter.Category != nil {
		conditions = append(conditions, fmt.Sprintf("LOWER(category) = LOWER($%d)", argIndex))
		args = append(args, *filter.Category)
		argIndex++
	}

	if filter.OwnerID != nil {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", argIndex))
		args = append(args, *filter.OwnerID)
		argIndex++
	}

	if filter.Query != nil {
		conditions = append(conditions, fmt.Sprintf("(service_name ILIKE $%d OR description ILIKE $%d)", argIndex, argIndex))
		args = append(args, "%"+*filter.Query+"%")
		argIndex++
	}

	if filter.ActiveOnly {
		conditions = append(conditions, "is_active = TRUE")
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	// Use count(*) OVER() for total count in a single query.
	query := fmt.Sprintf(`
		SELECT %s, count(*) OVER() AS total_count
		FROM services
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		serviceColumns, whereClause, argIndex, argIndex+1,
	)

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	args = append(args, limit, offset)

	ctx, end := database.TraceQuery(ctx, "services.list", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list services: %w", err)
	}
	defer rows.Close()

	var totalCount int
	services := make([]domain.Service, 0)

	for rows.Next() {
		var svc domain.Service

		if err = rows.Scan(
			&svc.ID,
			&svc.UserID,
			&svc.ServiceName,
			&svc.Description,
			&svc.Category,
			&svc.Price,
			&svc.PriceModality,
			&svc.Schedule,
			&svc.Address,
			&svc.Latitude,
			&svc.Longitude,
			&svc.ContactMethod,
			&svc.ContactEmail,
			&svc.ContactPhone,
			&svc.ContactCountryCode,
			&svc.WhatsappAvailable,
			&svc.Rating,
			&svc.TotalReviews,
			&svc.IsActive,
			&svc.CreatedAt,
			&svc.UpdatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan service row: %w", err)
		}

		services = append(services, svc)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate service rows: %w", err)
	}

	return services, totalCount, nil
}

func scanService(row pgx.Row) (*domain.Service, error) {
	var svc domain.Service
	err := row.Scan(
		&svc.ID,
		&svc.UserID,
		&svc.ServiceName,
		&svc.Description,
		&svc.Category,
		&svc.Price,
		&svc.PriceModality,
		&svc.Schedule,
		&svc.Address,
		&svc.Latitude,
		&svc.Longitude,
		&svc.ContactMethod,
		&svc.ContactEmail,
		&svc.ContactPhone,
		&svc.ContactCountryCode,
		&svc.WhatsappAvailable,
		&svc.Rating,
		&svc.TotalReviews,
		&svc.IsActive,
		&svc.CreatedAt,
		&svc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &svc, nil
}
