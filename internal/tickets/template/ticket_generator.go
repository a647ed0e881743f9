package template

import (
	"bytes"
	"fmt"
	"strings"

	"ticketnepal/internal/models"

	"github.com/jung-kurt/gofpdf"
)

// TicketPDFGenerator lays out one printable page per purchase: the group QR
// on top, event details and the list of seats below.
type TicketPDFGenerator struct{}

func NewTicketPDFGenerator() *TicketPDFGenerator {
	return &TicketPDFGenerator{}
}

func (g *TicketPDFGenerator) Generate(event *models.Event, holder string, tickets []models.Ticket, qrPNG []byte) ([]byte, error) {
	if len(tickets) == 0 {
		return nil, fmt.Errorf("%w: no tickets to print", models.ErrInvalidInput)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("ticketnepal e-ticket "+tickets[0].TransactionID, true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 22)
	pdf.CellFormat(0, 12, "ticketnepal e-ticket", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	if len(qrPNG) > 0 {
		opts := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
		name := "qr_" + tickets[0].TransactionID
		pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(qrPNG))
		const side = 90.0
		pdf.ImageOptions(name, (210-side)/2, pdf.GetY(), side, side, false, opts, 0, "")
		pdf.Ln(side + 4)
	}

	pdf.SetDrawColor(200, 200, 200)
	pdf.SetLineWidth(0.5)
	pdf.Line(20, pdf.GetY(), 190, pdf.GetY())
	pdf.Ln(6)

	rows := [][2]string{
		{"Event", event.Name},
		{"Location", event.Location},
		{"Starts", eventTime(event.StartRaw, event)},
		{"Guest", holder},
		{"Seats", seatList(tickets)},
		{"Order", tickets[0].TransactionID},
	}
	for _, row := range rows {
		if row[1] == "" {
			continue
		}
		pdf.SetX(20)
		pdf.SetFont("Helvetica", "", 12)
		pdf.CellFormat(35, 8, row[0]+":", "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "B", 12)
		pdf.MultiCell(135, 8, tr(row[1]), "", "L", false)
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "I", 9)
	pdf.SetTextColor(120, 120, 120)
	pdf.MultiCell(0, 5, "Show this QR code at the entrance. One scan admits every seat listed above.", "", "C", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to write PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func eventTime(raw string, e *models.Event) string {
	if !e.StartsAt.IsZero() {
		return e.StartsAt.Format("January 2, 2006 15:04 MST")
	}
	return raw
}

func seatList(tickets []models.Ticket) string {
	seats := make([]string, len(tickets))
	for i, t := range tickets {
		seats[i] = t.Seat
	}
	return strings.Join(seats, ", ")
}
