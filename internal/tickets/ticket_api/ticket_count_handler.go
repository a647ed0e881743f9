package ticket_api

import (
	"net/http"

	"ticketnepal/internal/utils"
)

// TicketCountResponse is the response format for the GetTotalTicketsCount endpoint
type TicketCountResponse struct {
	TotalCount int `json:"total_count"`
}

// GetTotalTicketsCount handles the request to get the total ticket count
func (h *Handler) GetTotalTicketsCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.TicketService.TotalTickets(r.Context())
	if err != nil {
		utils.WriteError(w, "Error retrieving ticket count", err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, TicketCountResponse{TotalCount: count})
}
