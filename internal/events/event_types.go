package events

import (
	"time"

	"github.com/spec-kit/ticket-desk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated        EventType = "ticket_created"
	EventTicketStatusChanged  EventType = "ticket_status_changed"
	EventTicketDetailsChanged EventType = "ticket_details_changed"
	EventTicketContentChanged EventType = "ticket_content_changed"
)

// AllTicketEvents lists every ticket event type.
var AllTicketEvents = []EventType{
	EventTicketCreated,
	EventTicketStatusChanged,
	EventTicketDetailsChanged,
	EventTicketContentChanged,
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string        `json:"id"`
	Type      EventType     `json:"type"`
	TicketID  string        `json:"ticket_id"`
	Version   uint64        `json:"version"`
	Timestamp time.Time     `json:"timestamp"`
	Ticket    TicketPayload `json:"ticket"`
	Payload   interface{}   `json:"payload,omitempty"`
}

// TicketPayload is the ticket as carried on events.
type TicketPayload struct {
	ID                string              `json:"id"`
	Name              string              `json:"name"`
	Email             string              `json:"email"`
	Description       string              `json:"description"`
	Photo             string              `json:"photo,omitempty"`
	Status            domain.TicketStatus `json:"status"`
	AdditionalDetails string              `json:"additional_details,omitempty"`
	UpdatedAt         time.Time           `json:"updated_at"`
}

// NewTicketPayload copies the ticket fields onto an event payload.
func NewTicketPayload(ticket domain.Ticket) TicketPayload {
	return TicketPayload{
		ID:                ticket.ID,
		Name:              ticket.Name,
		Email:             ticket.Email,
		Description:       ticket.Description,
		Photo:             ticket.Photo,
		Status:            ticket.Status,
		AdditionalDetails: ticket.AdditionalDetails,
		UpdatedAt:         ticket.UpdatedAt,
	}
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// TicketDetailsChangedPayload payload.
type TicketDetailsChangedPayload struct {
	OldDetails string `json:"old_details"`
	NewDetails string `json:"new_details"`
}

// TicketContentChangedPayload lists the submission fields that were replaced.
type TicketContentChangedPayload struct {
	Fields []string `json:"fields"`
}
