package dto

import (
	"time"

	"github.com/spec-kit/ticket-desk/internal/domain"
)

// CreateTicketRequest payload. New tickets always start with status new.
type CreateTicketRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Description string `json:"description"`
	Photo       string `json:"photo"`
}

// UpdateTicketRequest payload. Omitted fields keep their stored value.
type UpdateTicketRequest struct {
	Name              *string `json:"name"`
	Email             *string `json:"email"`
	Description       *string `json:"description"`
	Photo             *string `json:"photo"`
	Status            *string `json:"status"`
	AdditionalDetails *string `json:"additional_details"`
}

// TicketSummary is one list row.
type TicketSummary struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Email       string              `json:"email"`
	Status      domain.TicketStatus `json:"status"`
	StatusLabel string              `json:"status_label"`
	Category    string              `json:"category"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// TicketDetailResponse provides full ticket info.
type TicketDetailResponse struct {
	ID                        string              `json:"id"`
	Name                      string              `json:"name"`
	Email                     string              `json:"email"`
	Description               string              `json:"description"`
	Photo                     string              `json:"photo,omitempty"`
	Status                    domain.TicketStatus `json:"status"`
	StatusLabel               string              `json:"status_label"`
	Category                  string              `json:"category"`
	AdditionalDetails         string              `json:"additional_details"`
	AdditionalDetailsEditable bool                `json:"additional_details_editable"`
	CreatedAt                 time.Time           `json:"created_at"`
	UpdatedAt                 time.Time           `json:"updated_at"`
}

// TicketHistoryResponse is one audit journal entry.
type TicketHistoryResponse struct {
	ID         string                  `json:"id"`
	ChangeType domain.TicketChangeType `json:"change_type"`
	OldValue   map[string]any          `json:"old_value"`
	NewValue   map[string]any          `json:"new_value"`
	CreatedAt  time.Time               `json:"created_at"`
}

// SnapshotEvent is the payload of one server-sent snapshot.
type SnapshotEvent struct {
	Version uint64          `json:"version"`
	Tickets []TicketSummary `json:"tickets"`
}
