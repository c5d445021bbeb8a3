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

// ListingService implements the business logic for service listings.
type ListingService struct {
	services repository.ServiceRepository
	cache    repository.ListingCache
	producer *event.Producer
	logger   *slog.Logger
}

// NewListingService creates a new listing service.
func NewListingService(
	services repository.ServiceRepository,
	cache repository.ListingCache,
	producer *event.Producer,
	logger *slog.Logger,
) *ListingService {
	return &ListingService{
		services: services,
		cache:    cache,
		producer: producer,
		logger:   logger,
	}
}

// CreateListing publishes a new service listing owned by the given user.
func (s *ListingService) CreateListing(ctx context.Context, ownerID string, input *domain.CreateServiceInput) (*domain.Service, error) {
	if input.ContactMethod == domain.ContactMethodEmail && input.ContactEmail == nil {
		return nil, apperrors.InvalidInput("contact_email is required when contact method is email")
	}
	if input.ContactMethod == domain.ContactMethodPhone && input.ContactPhone == nil {
		return nil, apperrors.InvalidInput("contact_phone is required when contact method is phone")
	}

	svc := &domain.Service{
		ID:                 uuid.New().String(),
		UserID:             ownerID,
		ServiceName:        input.ServiceName,
		Description:        input.Description,
		Category:           input.Category,
		Price:              input.Price,
		PriceModality:      input.PriceModality,
		Schedule:           input.Schedule,
		Address:            input.Address,
		Latitude:           input.Latitude,
		Longitude:          input.Longitude,
		ContactMethod:      input.ContactMethod,
		ContactEmail:       input.ContactEmail,
		ContactPhone:       input.ContactPhone,
		ContactCountryCode: input.ContactCountryCode,
		WhatsappAvailable:  input.WhatsappAvailable,
		IsActive:           true,
		CreatedAt:          time.Now().UTC(),
	}

	if err := s.services.Create(ctx, svc); err != nil {
		return nil, fmt.Errorf("create service listing: %w", err)
	}

	if err := s.producer.PublishServiceCreated(ctx, svc); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish service.created event",
			slog.String("service_id", svc.ID),
			slog.String("error", err.Error()),
		)
		// Do not fail the operation if event publishing fails.
	}

	s.logger.InfoContext(ctx, "service listing created",
		slog.String("service_id", svc.ID),
		slog.String("user_id", ownerID),
	)

	return svc, nil
}

// GetListing retrieves a service listing by ID, consulting the cache first.
func (s *ListingService) GetListing(ctx context.Context, id string) (*domain.Service, error) {
	cached, err := s.cache.Get(ctx, id)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		s.logger.WarnContext(ctx, "listing cache read failed",
			slog.String("service_id", id),
			slog.String("error", err.Error()),
		)
	}

	svc, err := s.services.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get service listing: %w", err)
	}

	if err := s.cache.Set(ctx, svc); err != nil {
		s.logger.WarnContext(ctx, "listing cache write failed",
			slog.String("service_id", id),
			slog.String("error", err.Error()),
		)
	}

	return svc, nil
}

// UpdateListing applies partial updates to a listing. Only its owner may do
// so. The rating projection cannot be changed through this path.
func (s *ListingService) UpdateListing(ctx context.Context, id, callerID string, input *domain.UpdateServiceInput) (*domain.Service, error) {
	svc, err := s.services.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get service for update: %w", err)
	}

	if svc.UserID != callerID {
		return nil, apperrors.Forbidden("you can only modify your own services")
	}

	applyListingUpdate(svc, input)

	if err := s.services.Update(ctx, svc); err != nil {
		return nil, fmt.Errorf("update service listing: %w", err)
	}

	if err := s.cache.Invalidate(ctx, id); err != nil {
		s.logger.WarnContext(ctx, "failed to invalidate listing cache",
			slog.String("service_id", id),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "service listing updated",
		slog.String("service_id", id),
	)

	return svc, nil
}

// DeleteListing removes a listing and its reviews. Only its owner may do so.
func (s *ListingService) DeleteListing(ctx context.Context, id, callerID string) error {
	svc, err := s.services.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get service for delete: %w", err)
	}

	if svc.UserID != callerID {
		return apperrors.Forbidden("you can only modify your own services")
	}

	if err := s.services.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete service listing: %w", err)
	}

	if err := s.cache.Invalidate(ctx, id); err != nil {
		s.logger.WarnContext(ctx, "failed to invalidate listing cache",
			slog.String("service_id", id),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "service listing deleted",
		slog.String("service_id", id),
	)

	return nil
}

// ListListings returns a filtered, paginated list of service listings.
func (s *ListingService) ListListings(ctx context.Context, filter repository.ServiceFilter, params pagination.Params) (*pagination.Result[domain.Service], error) {
	filter.Offset = params.Offset
	filter.Limit = params.PerPage

	services, total, err := s.services.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list service listings: %w", err)
	}

	result := pagination.NewResult(services, total, params)
	return &result, nil
}

func applyListingUpdate(svc *domain.Service, input *domain.UpdateServiceInput) {
	if input.ServiceName != nil {
		svc.ServiceName = *input.ServiceName
	}
	if input.Description != nil {
		svc.Description = *input.Description
	}
	if input.Category != nil {
		svc.Category = *input.Category
	}
	if input.Price != nil {
		svc.Price = *input.Price
	}
	if input.PriceModality != nil {
		svc.PriceModality = *input.PriceModality
	}
	if input.Schedule != nil {
		svc.Schedule = input.Schedule
	}
	if input.Address != nil {
		svc.Address = *input.Address
	}
	if input.Latitude != nil {
		svc.Latitude = *input.Latitude
	}
	if input.Longitude != nil {
		svc.Longitude = *input.Longitude
	}
	if input.ContactMethod != nil {
		svc.ContactMethod = *input.ContactMethod
	}
	if input.ContactEmail != nil {
		svc.ContactEmail = input.ContactEmail
	}
	if input.ContactPhone != nil {
		svc.ContactPhone = input.ContactPhone
	}
	if input.ContactCountryCode != nil {
		svc.ContactCountryCode = input.ContactCountryCode
	}
	if input.WhatsappAvailable != nil {
		svc.WhatsappAvailable = *input.WhatsappAvailable
	}
	if input.IsActive != nil {
		svc.IsActive = *input.IsActive
	}
}
