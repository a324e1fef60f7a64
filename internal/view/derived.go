// Package view contains the presentation-free side of the ticket screens:
// pure projections over a store snapshot and the controllers that the
// submission, list and details screens drive.
package view

import (
	"strings"

	"github.com/spec-kit/ticket-desk/internal/domain"
)

// FilterAll is the sentinel filter value that matches every ticket.
const FilterAll = "all"

// DisplayCategory tags a status for styling.
type DisplayCategory string

const (
	CategoryNew        DisplayCategory = "new"
	CategoryInProgress DisplayCategory = "in-progress"
	CategoryResolved   DisplayCategory = "resolved"
	CategoryDefault    DisplayCategory = "default"
)

// FilterByStatus returns the tickets whose status matches filter, in their
// input order. FilterAll returns every ticket. Client labels such as
// "In Progress" match the canonical status. The input is never modified.
func FilterByStatus(tickets []domain.Ticket, filter string) []domain.Ticket {
	out := make([]domain.Ticket, 0, len(tickets))
	if strings.EqualFold(strings.TrimSpace(filter), FilterAll) {
		return append(out, tickets...)
	}

	want := filter
	if status, ok := domain.ParseTicketStatus(filter); ok {
		want = string(status)
	}
	for _, ticket := range tickets {
		if strings.EqualFold(string(ticket.Status), want) {
			out = append(out, ticket)
		}
	}
	return out
}

// StatusDisplayCategory maps a status to its display category, falling
// back to CategoryDefault for anything unrecognised.
func StatusDisplayCategory(status domain.TicketStatus) DisplayCategory {
	parsed, ok := domain.ParseTicketStatus(string(status))
	if !ok {
		return CategoryDefault
	}
	switch parsed {
	case domain.TicketStatusNew:
		return CategoryNew
	case domain.TicketStatusInProgress:
		return CategoryInProgress
	case domain.TicketStatusResolved:
		return CategoryResolved
	default:
		return CategoryDefault
	}
}
