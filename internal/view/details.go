package view

import (
	"context"
	"sync"

	"github.com/spec-kit/ticket-desk/internal/domain"
	"github.com/spec-kit/ticket-desk/internal/store"
)

// DetailsView edits the status and additional details of one ticket.
// Every change is written to the store as soon as it is made.
type DetailsView struct {
	store Store
	id    string

	mu          sync.Mutex
	ticket      domain.Ticket
	version     uint64
	unsubscribe func()
}

// OpenDetails loads the ticket with the given id and follows its changes.
func OpenDetails(s Store, id string) (*DetailsView, error) {
	ticket, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	v := &DetailsView{store: s, id: id, ticket: ticket}
	v.unsubscribe = s.Subscribe(v.refresh)
	return v, nil
}

// refresh keeps the newest copy; a nested write can deliver an older
// snapshot after a newer one.
func (v *DetailsView) refresh(_ context.Context, snap store.Snapshot) {
	for _, ticket := range snap.Tickets {
		if ticket.ID == v.id {
			v.mu.Lock()
			if snap.Version > v.version {
				v.version = snap.Version
				v.ticket = ticket
			}
			v.mu.Unlock()
			return
		}
	}
}

// Ticket returns the latest known copy of the ticket.
func (v *DetailsView) Ticket() domain.Ticket {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.ticket
}

// AdditionalDetailsEditable reports whether the details field applies,
// which is once the ticket has left the new status.
func (v *DetailsView) AdditionalDetailsEditable() bool {
	return v.Ticket().Status != domain.TicketStatusNew
}

// SetStatus accepts a canonical status or a client label.
func (v *DetailsView) SetStatus(ctx context.Context, status domain.TicketStatus) (domain.Ticket, error) {
	if parsed, ok := domain.ParseTicketStatus(string(status)); ok {
		status = parsed
	}
	return v.sync(ctx, domain.TicketPatch{ID: v.id, Status: &status})
}

// SetAdditionalDetails replaces the free-text resolution notes.
func (v *DetailsView) SetAdditionalDetails(ctx context.Context, text string) (domain.Ticket, error) {
	return v.sync(ctx, domain.TicketPatch{ID: v.id, AdditionalDetails: &text})
}

// sync writes patch unless it would change nothing. The cached copy is
// updated by the store notification that the write triggers.
func (v *DetailsView) sync(ctx context.Context, patch domain.TicketPatch) (domain.Ticket, error) {
	current := v.Ticket()
	if !patch.Changes(current) {
		return current, nil
	}
	ticket, err := v.store.Upsert(ctx, patch)
	if err != nil {
		return current, err
	}
	return ticket, nil
}

// Close stops following the ticket.
func (v *DetailsView) Close() {
	v.unsubscribe()
}
