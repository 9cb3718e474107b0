// Package bookings exposes the booking lifecycle over HTTP: dispatching a
// new request, accepting an offer and applying status transitions.
package bookings

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/taskhive/dispatch/core/dispatch"
	"github.com/taskhive/dispatch/core/geo"
	"github.com/taskhive/dispatch/core/logger"
	"github.com/taskhive/dispatch/core/model"
	"github.com/taskhive/dispatch/core/store"
)

// Handler wires booking operations onto an http.ServeMux.
type Handler struct {
	manager  *dispatch.DispatchManager
	arbiter  *dispatch.Arbiter
	updater  *dispatch.BookingUpdater
	bookings store.BookingStore
	validate *validator.Validate
	log      logger.Logger
}

// NewHandler creates the booking API handler.
func NewHandler(manager *dispatch.DispatchManager, arbiter *dispatch.Arbiter, updater *dispatch.BookingUpdater, bookings store.BookingStore, log logger.Logger) *Handler {
	return &Handler{
		manager:  manager,
		arbiter:  arbiter,
		updater:  updater,
		bookings: bookings,
		validate: validator.New(),
		log:      log,
	}
}

// Register mounts the booking routes.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/bookings", h.create)
	mux.HandleFunc("POST /api/bookings/{id}/accept", h.accept)
	mux.HandleFunc("PATCH /api/bookings/{id}", h.update)
	mux.HandleFunc("GET /api/bookings/pending", h.pending)
	mux.HandleFunc("GET /api/bookings/stats", h.stats)
}

type createRequest struct {
	Category      string    `json:"category" validate:"required"`
	CustomerID    string    `json:"customer_id" validate:"required"`
	CustomerName  string    `json:"customer_name"`
	Lat           float64   `json:"lat" validate:"gte=-90,lte=90"`
	Lng           float64   `json:"lng" validate:"gte=-180,lte=180"`
	ScheduledTime time.Time `json:"scheduled_time" validate:"required"`
	Skills        []string  `json:"skills,omitempty"`
}

type createResponse struct {
	Booking           model.Booking `json:"booking"`
	NotifiedProviders int           `json:"notified_providers"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := h.manager.Dispatch(r.Context(), model.BookingRequest{
		Category:      req.Category,
		CustomerID:    req.CustomerID,
		CustomerName:  req.CustomerName,
		Location:      model.Location{Lat: req.Lat, Lng: req.Lng},
		ScheduledTime: req.ScheduledTime,
		Skills:        req.Skills,
	})
	if err != nil {
		if errors.Is(err, geo.ErrInvalidLocation) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.log.Errorf("dispatch failed: %v", err)
		writeError(w, http.StatusInternalServerError, "dispatch failed")
		return
	}
	writeJSON(w, http.StatusCreated, createResponse{
		Booking:           res.Booking,
		NotifiedProviders: len(res.Shortlist),
	})
}

type acceptRequest struct {
	ProviderID string `json:"provider_id" validate:"required"`
}

type acceptResponse struct {
	BookingID string `json:"booking_id"`
	Outcome   string `json:"outcome"`
}

func (h *Handler) accept(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req acceptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	outcome, err := h.arbiter.Accept(r.Context(), id, req.ProviderID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "booking not found")
		return
	case errors.Is(err, dispatch.ErrNotNotified):
		writeError(w, http.StatusForbidden, "provider was not offered this booking")
		return
	case err != nil && outcome != dispatch.AcceptWon:
		h.log.Errorf("accept failed: %v", err)
		writeError(w, http.StatusInternalServerError, "accept failed")
		return
	case err != nil:
		// The confirmation is committed; post-commit notification errors
		// do not change the outcome for the caller.
		h.log.Errorf("post-accept error for booking %s: %v", id, err)
	}
	if outcome == dispatch.AcceptLost {
		writeJSON(w, http.StatusConflict, acceptResponse{BookingID: id, Outcome: outcome.String()})
		return
	}
	writeJSON(w, http.StatusOK, acceptResponse{BookingID: id, Outcome: outcome.String()})
}

type updateRequest struct {
	Status     string `json:"status,omitempty"`
	ProviderID string `json:"provider_id,omitempty"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Status == "" && req.ProviderID == "" {
		writeError(w, http.StatusBadRequest, "status or provider_id required")
		return
	}

	var (
		booking model.Booking
		err     error
	)
	if req.ProviderID != "" {
		booking, err = h.updater.AssignProvider(r.Context(), id, req.ProviderID)
		if err != nil {
			h.writeUpdateError(w, id, err)
			return
		}
	}
	if req.Status != "" {
		booking, err = h.updater.UpdateStatus(r.Context(), id, model.BookingStatus(req.Status))
		if err != nil {
			h.writeUpdateError(w, id, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, booking)
}

func (h *Handler) writeUpdateError(w http.ResponseWriter, id string, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "booking not found")
	case errors.Is(err, dispatch.ErrInvalidTransition):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.log.Errorf("update booking %s failed: %v", id, err)
		writeError(w, http.StatusInternalServerError, "update failed")
	}
}

func (h *Handler) pending(w http.ResponseWriter, r *http.Request) {
	list, err := h.bookings.ListByStatus(r.Context(), model.StatusPending)
	if err != nil {
		h.log.Errorf("list pending failed: %v", err)
		writeError(w, http.StatusInternalServerError, "list failed")
		return
	}
	if list == nil {
		list = []model.Booking{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	counts, err := h.bookings.CountByStatus(r.Context())
	if err != nil {
		h.log.Errorf("count failed: %v", err)
		writeError(w, http.StatusInternalServerError, "stats failed")
		return
	}
	stats := map[string]int{}
	for status, n := range counts {
		stats[string(status)] = n
	}
	writeJSON(w, http.StatusOK, stats)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
