package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"ticketnepal/internal/logger"
	"ticketnepal/internal/models"
)

type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Data        []byte `json:"data"`
}

// Email is the command an external mailer consumes from the notifications topic.
type Email struct {
	Kind        string       `json:"kind"`
	To          string       `json:"to"`
	Subject     string       `json:"subject"`
	Body        string       `json:"body"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

const (
	KindTicket           = "ticket"
	KindStaffApplication = "staff_application"
)

// Notifier hands emails off for delivery. Delivery is best effort: callers
// log failures and carry on.
type Notifier interface {
	Send(ctx context.Context, email Email) error
}

// TicketEmail builds the purchase confirmation with the group QR attached.
func TicketEmail(user *models.User, event *models.Event, seats []string, qrPNG, pdf []byte) Email {
	body := fmt.Sprintf("Dear %s,\n\nHere are your tickets for %s. "+
		"Show the QR code attached at the event entrance.\n\nSeats: %s\n\nThank you for booking with ticketnepal!",
		user.DisplayName(), event.Name, strings.Join(seats, ", "))

	email := Email{
		Kind:    KindTicket,
		To:      user.Email,
		Subject: "Your ticketnepal Tickets for " + event.Name,
		Body:    body,
		Attachments: []Attachment{
			{Filename: "tickets-qr.png", ContentType: "image/png", Data: qrPNG},
		},
	}
	if len(pdf) > 0 {
		email.Attachments = append(email.Attachments, Attachment{
			Filename: "tickets.pdf", ContentType: "application/pdf", Data: pdf,
		})
	}
	return email
}

// StaffApplicationEmail asks the organizer to approve or reject a staff member.
func StaffApplicationEmail(organizer, staff *models.User, event *models.Event, approveURL, rejectURL string) Email {
	body := fmt.Sprintf("Dear %s,\n\n%s (%s) has applied to validate tickets for %s.\n\n"+
		"Approve: %s\nReject: %s\n\nEach link can be used once.",
		organizer.DisplayName(), staff.DisplayName(), staff.Email, event.Name, approveURL, rejectURL)

	return Email{
		Kind:    KindStaffApplication,
		To:      organizer.Email,
		Subject: "Staff application for " + event.Name,
		Body:    body,
	}
}

type publisher interface {
	Publish(ctx context.Context, topic, key string, value []byte) error
}

// KafkaNotifier publishes emails to a topic read by the mail service.
type KafkaNotifier struct {
	producer publisher
	topic    string
	logger   *logger.Logger
}

func NewKafkaNotifier(p publisher, topic string, log *logger.Logger) *KafkaNotifier {
	return &KafkaNotifier{producer: p, topic: topic, logger: log}
}

func (n *KafkaNotifier) Send(ctx context.Context, email Email) error {
	if email.To == "" {
		return fmt.Errorf("email %q has no recipient", email.Subject)
	}
	value, err := json.Marshal(email)
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}
	if err := n.producer.Publish(ctx, n.topic, email.To, value); err != nil {
		return err
	}
	n.logger.Info("NOTIFY", fmt.Sprintf("Queued %s email to %s", email.Kind, email.To))
	return nil
}
