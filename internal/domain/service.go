package domain

import (
	"time"
)

// Contact method constants for a service listing.
const (
	ContactMethodEmail = "email"
	ContactMethodPhone = "phone"
)

// Service represents a published service listing. The Rating and TotalReviews
// fields are a projection derived from the reviews table; they are written
// only by the review repository inside the same transaction as the review
// mutation that changes them. No listing-update path touches them.
type Service struct {
	ID                 string     `json:"id"`
	UserID             string     `json:"user_id"`
	ServiceName        string     `json:"service_name"`
	Description        string     `json:"description"`
	Category           string     `json:"category"`
	Price              float64    `json:"price"`
	PriceModality      string     `json:"price_modality"`
	Schedule           *string    `json:"schedule,omitempty"`
	Address            string     `json:"address"`
	Latitude           float64    `json:"latitude"`
	Longitude          float64    `json:"longitude"`
	ContactMethod      string     `json:"contact_method"`
	ContactEmail       *string    `json:"contact_email,omitempty"`
	ContactPhone       *string    `json:"contact_phone,omitempty"`
	ContactCountryCode *string    `json:"contact_country_code,omitempty"`
	WhatsappAvailable  bool       `json:"whatsapp_available"`
	Rating             float64    `json:"rating"`
	TotalReviews       int        `json:"total_reviews"`
	IsActive           bool       `json:"is_active"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          *time.Time `json:"updated_at,omitempty"`
}

// CreateServiceInput holds the parameters for publishing a listing.
type CreateServiceInput struct {
	ServiceName        string  `json:"service_name" validate:"required,min=1,max=255"`
	Description        string  `json:"description" validate:"required"`
	Category           string  `json:"category" validate:"required"`
	Price              float64 `json:"price" validate:"gte=0"`
	PriceModality      string  `json:"price_modality" validate:"required"`
	Schedule           *string `json:"schedule"`
	Address            string  `json:"address" validate:"required"`
	Latitude           float64 `json:"latitude" validate:"latitude"`
	Longitude          float64 `json:"longitude" validate:"longitude"`
	ContactMethod      string  `json:"contact_method" validate:"required,oneof=email phone"`
	ContactEmail       *string `json:"contact_email" validate:"omitempty,email"`
	ContactPhone       *string `json:"contact_phone"`
	ContactCountryCode *string `json:"contact_country_code"`
	WhatsappAvailable  bool    `json:"whatsapp_available"`
}

// UpdateServiceInput holds the parameters for updating a listing. Nil fields
// are left unchanged. The rating projection is deliberately absent.
type UpdateServiceInput struct {
	ServiceName        *string  `json:"service_name" validate:"omitempty,min=1,max=255"`
	Description        *string  `json:"description"`
	Category           *string  `json:"category"`
	Price              *float64 `json:"price" validate:"omitempty,gte=0"`
	PriceModality      *string  `json:"price_modality"`
	Schedule           *string  `json:"schedule"`
	Address            *string  `json:"address"`
	Latitude           *float64 `json:"latitude" validate:"omitempty,latitude"`
	Longitude          *float64 `json:"longitude" validate:"omitempty,longitude"`
	ContactMethod      *string  `json:"contact_method" validate:"omitempty,oneof=email phone"`
	ContactEmail       *string  `json:"contact_email" validate:"omitempty,email"`
	ContactPhone       *string  `json:"contact_phone"`
	ContactCountryCode *string  `json:"contact_country_code"`
	WhatsappAvailable  *bool    `json:"whatsapp_available"`
	IsActive           *bool    `json:"is_active"`
}
