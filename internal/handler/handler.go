package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"discount-strategy-api/internal/models"
	"discount-strategy-api/internal/rules"
	"discount-strategy-api/internal/service"
	"discount-strategy-api/internal/validation"
)

// Handler provides HTTP handlers for the API.
type Handler struct {
	service     *service.Service
	maxBodySize int64
	logger      zerolog.Logger
}

// NewHandlerOptions holds options for creating a handler.
type NewHandlerOptions struct {
	MaxBodySize int64
	Logger      zerolog.Logger
}

// DefaultHandlerOptions returns default handler options.
func DefaultHandlerOptions() NewHandlerOptions {
	return NewHandlerOptions{
		MaxBodySize: 1 << 20, // 1MB default
		Logger:      zerolog.Nop(),
	}
}

// NewHandler creates a new handler instance.
func NewHandler(svc *service.Service) *Handler {
	return NewHandlerWithOptions(svc, DefaultHandlerOptions())
}

// NewHandlerWithOptions creates a new handler instance with custom options.
func NewHandlerWithOptions(svc *service.Service, opts NewHandlerOptions) *Handler {
	if opts.MaxBodySize <= 0 {
		opts.MaxBodySize = DefaultHandlerOptions().MaxBodySize
	}
	return &Handler{
		service:     svc,
		maxBodySize: opts.MaxBodySize,
		logger:      opts.Logger,
	}
}

// RegisterRoutes mounts every API route on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/evaluations", h.Evaluate)
	r.Get("/stores", h.ListStores)
	r.Route("/stores/{store_id}", func(r chi.Router) {
		r.Get("/rules", h.GetStoreRules)
		r.Put("/rules", h.PutStoreRules)
		r.Get("/specials", h.GetSpecials)
		r.Put("/promo-wallet-overrides", h.PutPromoOverride)
	})
	r.Get("/features", h.ListFeatures)
	r.Put("/features/{name}", h.PutFeature)
	r.Get("/health", h.Health)
}

// Evaluate handles POST /evaluations
func (h *Handler) Evaluate(w http.ResponseWriter, r *http.Request) {
	var req models.EvaluateRequest
	if !h.decode(w, r, &req) {
		return
	}

	nowParam := req.Now
	if nowParam == "" {
		nowParam = r.URL.Query().Get("now")
	}
	now, ok := h.parseNow(w, nowParam)
	if !ok {
		return
	}

	response, err := h.service.Evaluate(r.Context(), req.Request, now)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, response)
}

// ListStores handles GET /stores
func (h *Handler) ListStores(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.service.Stores())
}

// GetStoreRules handles GET /stores/{store_id}/rules
func (h *Handler) GetStoreRules(w http.ResponseWriter, r *http.Request) {
	storeID, ok := h.storeID(w, r)
	if !ok {
		return
	}

	response, err := h.service.StoreRules(storeID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, response)
}

// PutStoreRules handles PUT /stores/{store_id}/rules
func (h *Handler) PutStoreRules(w http.ResponseWriter, r *http.Request) {
	storeID, ok := h.storeID(w, r)
	if !ok {
		return
	}

	var store rules.Store
	if !h.decode(w, r, &store) {
		return
	}
	store.ID = validation.SanitizeString(store.ID)
	store.Name = validation.SanitizeString(store.Name)

	response, err := h.service.UpsertStoreRules(r.Context(), storeID, store)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, response)
}

// GetSpecials handles GET /stores/{store_id}/specials?amount=
func (h *Handler) GetSpecials(w http.ResponseWriter, r *http.Request) {
	storeID, ok := h.storeID(w, r)
	if !ok {
		return
	}

	amount, err := validation.ParseAmount(r.URL.Query().Get("amount"), "amount")
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	response, err := h.service.Specials(storeID, amount)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, response)
}

// PutPromoOverride handles PUT /stores/{store_id}/promo-wallet-overrides
func (h *Handler) PutPromoOverride(w http.ResponseWriter, r *http.Request) {
	storeID, ok := h.storeID(w, r)
	if !ok {
		return
	}

	var req models.PromoOverrideRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := validation.Struct(req); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	response, err := h.service.UpsertPromoOverride(r.Context(), storeID, validation.SanitizeString(req.Carrier), *req.Rate)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, response)
}

// ListFeatures handles GET /features
func (h *Handler) ListFeatures(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.service.Features())
}

// PutFeature handles PUT /features/{name}
func (h *Handler) PutFeature(w http.ResponseWriter, r *http.Request) {
	name := validation.SanitizeString(chi.URLParam(r, "name"))

	var req models.FeatureUpdateRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := validation.Struct(req); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	response, err := h.service.SetFeature(name, *req.Enabled)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, response)
}

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.service.Health())
}

// decode reads a size-limited JSON body into dst. It writes the error
// response itself and reports whether the handler should continue.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			h.respondError(w, http.StatusBadRequest, "request body is required")
		case errors.As(err, &maxErr):
			h.respondError(w, http.StatusRequestEntityTooLarge, "request body too large")
		default:
			h.respondError(w, http.StatusBadRequest, "invalid JSON in request body")
		}
		return false
	}
	return true
}

func (h *Handler) storeID(w http.ResponseWriter, r *http.Request) (string, bool) {
	storeID := validation.SanitizeString(chi.URLParam(r, "store_id"))
	if err := validation.ValidateStoreID(storeID, "store_id"); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return storeID, true
}

// parseNow resolves the evaluation clock: the supplied RFC3339 value, or the
// service clock when none is given.
func (h *Handler) parseNow(w http.ResponseWriter, raw string) (time.Time, bool) {
	raw = validation.SanitizeString(raw)
	if raw == "" {
		return h.service.Now(), true
	}
	parsed, err := validation.ValidateTimeString(raw)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid 'now' parameter, must be RFC3339 format")
		return time.Time{}, false
	}
	return parsed, true
}

func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, validation.ErrInvalid):
		h.respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrStoreNotFound), errors.Is(err, service.ErrFeatureNotFound):
		h.respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrPersistenceDisabled):
		h.respondError(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		h.respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// respondJSON sends a JSON response with the given status code.
func (h *Handler) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Warn().Err(err).Msg("failed to encode response")
	}
}

// respondError sends an error response with the given status code and message.
func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, models.ErrorResponse{Error: message})
}
