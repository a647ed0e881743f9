package event_api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"ticketnepal/internal/auth"
	events "ticketnepal/internal/events/service"
	"ticketnepal/internal/logger"
	"ticketnepal/internal/models"
	"ticketnepal/internal/utils"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	EventService *events.EventService
	Logger       *logger.Logger
}

func NewHandler(eventService *events.EventService, log *logger.Logger) *Handler {
	return &Handler{EventService: eventService, Logger: log}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.With(auth.RequireRole(models.RoleAdmin)).Post("/events/sweep", h.Sweep)
	r.With(auth.RequireRole(models.RoleOrganizer, models.RoleAdmin)).Post("/events", h.CreateEvent)
	r.Delete("/events/{eventId}", h.DeleteEvent)
	r.Get("/events/{eventId}/stats", h.EventStats)
}

func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())

	var in events.EventInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}
	event, err := h.EventService.CreateEvent(r.Context(), actor, in)
	if err != nil {
		utils.WriteError(w, "Could not create event", err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, utils.SuccessResponse("Event created", event))
}

func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	removed, err := h.EventService.DeleteEvent(r.Context(), actor, chi.URLParam(r, "eventId"))
	if err != nil {
		utils.WriteError(w, "Could not delete event", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse(
		fmt.Sprintf("Event deleted with %d ticket(s)", removed), map[string]int{"ticketsRemoved": removed}))
}

func (h *Handler) EventStats(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	stats, err := h.EventService.EventStats(r.Context(), actor, chi.URLParam(r, "eventId"))
	if err != nil {
		utils.WriteError(w, "Could not load stats", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Event stats", stats))
}

// Sweep runs the expiry sweep on demand.
func (h *Handler) Sweep(w http.ResponseWriter, r *http.Request) {
	n, err := h.EventService.SweepExpiredEvents(r.Context())
	if err != nil {
		h.Logger.Error("SWEEP", fmt.Sprintf("Manual sweep failed: %v", err))
		utils.WriteError(w, "Sweep failed", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse(fmt.Sprintf("%d event(s) swept", n), map[string]int{"swept": n}))
}
