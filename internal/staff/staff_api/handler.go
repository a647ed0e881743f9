package staff_api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"ticketnepal/internal/auth"
	"ticketnepal/internal/logger"
	"ticketnepal/internal/models"
	staff "ticketnepal/internal/staff/service"
	"ticketnepal/internal/utils"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	StaffService *staff.StaffService
	Logger       *logger.Logger
}

func NewHandler(staffService *staff.StaffService, log *logger.Logger) *Handler {
	return &Handler{StaffService: staffService, Logger: log}
}

// RegisterPublicRoutes mounts the decision link. It is authenticated by the
// token in the link, not by a login.
func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/staff/applications/decide", h.Decide)
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireRole(models.RoleStaff))
		r.Post("/staff/applications", h.Apply)
		r.Get("/staff/events", h.ListApprovedEvents)
	})
}

type applyRequest struct {
	EventID string `json:"eventId"`
}

func (h *Handler) Apply(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())

	var req applyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.EventID == "" {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", "eventId is required"))
		return
	}

	app, err := h.StaffService.ApplyAsStaff(r.Context(), req.EventID, actor.UserID)
	if err != nil {
		utils.WriteError(w, "Application failed", err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, utils.SuccessResponse("Application sent to the organizer", app))
}

// Decide handles the approve and reject links sent to organizers.
func (h *Handler) Decide(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	app, err := h.StaffService.DecideStaffApplication(r.Context(),
		q.Get("eventId"), q.Get("staffId"), q.Get("token"), models.Decision(q.Get("decision")))
	if err != nil {
		utils.WriteError(w, "Decision failed", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse(fmt.Sprintf("Application %s", app.Status), app))
}

func (h *Handler) ListApprovedEvents(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	events, err := h.StaffService.ListApprovedEvents(r.Context(), actor.UserID)
	if err != nil {
		utils.WriteError(w, "Could not list events", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Approved events", events))
}
