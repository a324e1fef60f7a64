package view

import (
	"context"

	"github.com/spec-kit/ticket-desk/internal/domain"
	"github.com/spec-kit/ticket-desk/internal/store"
)

// Store is the part of the ticket store the screens depend on.
type Store interface {
	List() []domain.Ticket
	Get(id string) (domain.Ticket, error)
	Upsert(ctx context.Context, patch domain.TicketPatch) (domain.Ticket, error)
	Subscribe(listener store.Listener) (unsubscribe func())
}

var _ Store = (*store.TicketStore)(nil)
