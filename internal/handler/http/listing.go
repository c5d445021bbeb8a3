package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xeternum/proyecto-mapa/internal/domain"
	"github.com/xeternum/proyecto-mapa/internal/repository"
	"github.com/xeternum/proyecto-mapa/internal/service"
	"github.com/xeternum/proyecto-mapa/pkg/httputil"
	"github.com/xeternum/proyecto-mapa/pkg/middleware"
	"github.com/xeternum/proyecto-mapa/pkg/pagination"
	"github.com/xeternum/proyecto-mapa/pkg/validator"
)

// ListingHandler handles HTTP requests for service listing endpoints.
type ListingHandler struct {
	service *service.ListingService
	logger  *slog.Logger
}

// NewListingHandler creates a new listing HTTP handler.
func NewListingHandler(svc *service.ListingService, logger *slog.Logger) *ListingHandler {
	return &ListingHandler{
		service: svc,
		logger:  logger,
	}
}

// CreateListing handles POST /api/v1/services
func (h *ListingHandler) CreateListing(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req domain.CreateServiceInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	svc, err := h.service.CreateListing(r.Context(), userID, &req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: svc})
}

// GetListing handles GET /api/v1/services/{serviceID}
func (h *ListingHandler) GetListing(w http.ResponseWriter, r *http.Request) {
	serviceID, ok := httputil.ParseUUID(w, chi.URLParam(r, "serviceID"))
	if !ok {
		return
	}

	svc, err := h.service.GetListing(r.Context(), serviceID.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: svc})
}

// ListListings handles GET /api/v1/services
func (h *ListingHandler) ListListings(w http.ResponseWriter, r *http.Request) {
	params := pagination.FromRequest(r)

	filter := repository.ServiceFilter{ActiveOnly: true}
	q := r.URL.Query()
	if v := q.Get("category"); v != "" {
		filter.Category = &v
	}
	if v := q.Get("q"); v != "" {
		filter.Query = &v
	}
	if v := q.Get("user_id"); v != "" {
		filter.OwnerID = &v
	}

	result, err := h.service.ListListings(r.Context(), filter, params)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

// UpdateListing handles PUT /api/v1/services/{serviceID}
func (h *ListingHandler) UpdateListing(w http.ResponseWriter, r *http.Request) {
	serviceID, ok := httputil.ParseUUID(w, chi.URLParam(r, "serviceID"))
	if !ok {
		return
	}

	userID := middleware.UserIDFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req domain.UpdateServiceInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	svc, err := h.service.UpdateListing(r.Context(), serviceID.String(), userID, &req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: svc})
}

// DeleteListing handles DELETE /api/v1/services/{serviceID}
func (h *ListingHandler) DeleteListing(w http.ResponseWriter, r *http.Request) {
	serviceID, ok := httputil.ParseUUID(w, chi.URLParam(r, "serviceID"))
	if !ok {
		return
	}

	userID := middleware.UserIDFromContext(r.Context())

	if err := h.service.DeleteListing(r.Context(), serviceID.String(), userID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
