package ticket_api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"ticketnepal/internal/auth"
	"ticketnepal/internal/logger"
	"ticketnepal/internal/models"
	tickets "ticketnepal/internal/tickets/service"
	"ticketnepal/internal/utils"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	TicketService *tickets.TicketService
	Logger        *logger.Logger
}

func NewHandler(ticketService *tickets.TicketService, log *logger.Logger) *Handler {
	return &Handler{TicketService: ticketService, Logger: log}
}

// RegisterPublicRoutes mounts the endpoints that need no login.
func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/tickets/count", h.GetTotalTicketsCount)
	r.Get("/tickets/qr/{ticketId}", h.TicketQR)
	r.Get("/tickets/qr/transaction/{transactionId}", h.GroupQR)
}

// RegisterRoutes mounts the endpoints behind auth.Middleware.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/tickets", h.BookSeats)
	r.Get("/tickets/reserved", h.ListReservedSeats)
	r.Get("/tickets/user/{userId}", h.ListTicketsByUser)
	r.Get("/tickets/pdf/transaction/{transactionId}", h.GroupPDF)
	r.Get("/tickets/{ticketId}", h.ViewTicket)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireRole(models.RoleStaff, models.RoleOrganizer, models.RoleAdmin))
		r.Get("/tickets/validate/scan", h.Resolve)
		r.Post("/tickets/checkin", h.CheckIn)
	})
}

type bookingRequest struct {
	EventID string   `json:"eventId"`
	Seats   []string `json:"seats"`
	// UserID lets an admin book on behalf of a customer.
	UserID string `json:"userId,omitempty"`
}

// BookSeats handles POST /tickets
func (h *Handler) BookSeats(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())

	var req bookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}

	userID := actor.UserID
	if req.UserID != "" && req.UserID != actor.UserID {
		if actor.Role != models.RoleAdmin {
			utils.WriteJSON(w, http.StatusForbidden, utils.ErrorResponse("Forbidden", "cannot book for another user"))
			return
		}
		userID = req.UserID
	}

	result, err := h.TicketService.BookSeats(r.Context(), userID, req.EventID, req.Seats)
	if err != nil {
		if status := utils.WriteError(w, "Booking failed", err); status >= http.StatusInternalServerError {
			h.Logger.Error("BOOKING", fmt.Sprintf("Booking for event %s failed: %v", req.EventID, err))
		}
		return
	}
	utils.WriteJSON(w, http.StatusCreated, utils.SuccessResponse("Tickets booked", result))
}

func (h *Handler) ListReservedSeats(w http.ResponseWriter, r *http.Request) {
	eventID := r.URL.Query().Get("eventId")
	if eventID == "" {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Missing parameter", "eventId is required"))
		return
	}
	seats, err := h.TicketService.ListReservedSeats(r.Context(), eventID)
	if err != nil {
		utils.WriteError(w, "Could not list reserved seats", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Reserved seats", seats))
}

func (h *Handler) ListTicketsByUser(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	list, err := h.TicketService.TicketsForUser(r.Context(), actor, chi.URLParam(r, "userId"))
	if err != nil {
		utils.WriteError(w, "Could not list tickets", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Tickets", list))
}

func (h *Handler) ViewTicket(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	ticket, err := h.TicketService.GetTicket(r.Context(), actor, chi.URLParam(r, "ticketId"))
	if err != nil {
		utils.WriteError(w, "Could not load ticket", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Ticket", ticket))
}

func (h *Handler) TicketQR(w http.ResponseWriter, r *http.Request) {
	img, err := h.TicketService.TicketQR(r.Context(), chi.URLParam(r, "ticketId"))
	if err != nil {
		utils.WriteError(w, "Could not render QR", err)
		return
	}
	writeBlob(w, "image/png", "", img)
}

func (h *Handler) GroupQR(w http.ResponseWriter, r *http.Request) {
	img, err := h.TicketService.GroupQR(r.Context(), chi.URLParam(r, "transactionId"))
	if err != nil {
		utils.WriteError(w, "Could not render QR", err)
		return
	}
	writeBlob(w, "image/png", "", img)
}

func (h *Handler) GroupPDF(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	txID := chi.URLParam(r, "transactionId")
	pdf, err := h.TicketService.GroupPDF(r.Context(), actor, txID)
	if err != nil {
		utils.WriteError(w, "Could not render ticket", err)
		return
	}
	writeBlob(w, "application/pdf", fmt.Sprintf("tickets-%s.pdf", txID), pdf)
}

// Resolve handles GET /tickets/validate/scan?code=
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	res, err := h.TicketService.Resolve(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		utils.WriteError(w, "Ticket not found", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse(scanMessage(res), res))
}

func scanMessage(res *models.Resolution) string {
	if res.Kind == models.ResolutionSingle && res.Tickets[0].CheckedIn {
		return "Ticket already checked in"
	}
	if res.Kind == models.ResolutionSingle {
		return "Valid ticket"
	}
	return fmt.Sprintf("%d tickets found", len(res.Tickets))
}

type checkInRequest struct {
	TicketID   string `json:"ticketId"`
	QRCodeHint string `json:"qrCodeHint"`
}

// CheckIn handles POST /tickets/checkin. A ticket id admits one ticket, a
// scanned code admits everything it resolves to.
func (h *Handler) CheckIn(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())

	var req checkInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}

	switch {
	case req.TicketID != "":
		res, err := h.TicketService.CheckIn(r.Context(), actor, req.TicketID)
		if err != nil {
			utils.WriteError(w, "Check-in failed", err)
			return
		}
		msg := "Check-in successful"
		if res.AlreadyCheckedIn {
			msg = "Ticket already checked in"
		}
		utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse(msg, res))

	case req.QRCodeHint != "":
		results, err := h.TicketService.CheckInGroup(r.Context(), actor, req.QRCodeHint)
		if err != nil {
			utils.WriteError(w, "Check-in failed", err)
			return
		}
		utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse(fmt.Sprintf("%d ticket(s) processed", len(results)), results))

	default:
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Missing parameter", "ticketId or qrCodeHint is required"))
	}
}

func writeBlob(w http.ResponseWriter, contentType, filename string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	if filename != "" {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	}
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
