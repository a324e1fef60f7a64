package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-desk/internal/domain"
	"github.com/spec-kit/ticket-desk/internal/events"
	"github.com/spec-kit/ticket-desk/internal/repository"
)

// HistoryService journals ticket events. The journal is write-only from
// the store's point of view: it is never used to rebuild tickets.
type HistoryService struct {
	repo    repository.TicketHistoryRepository
	tickets TicketStore
	logger  *zap.Logger
}

// NewHistoryService builds the service.
func NewHistoryService(repo repository.TicketHistoryRepository, tickets TicketStore, logger *zap.Logger) *HistoryService {
	return &HistoryService{repo: repo, tickets: tickets, logger: logger}
}

// RegisterHandlers subscribes to every ticket event.
func (h *HistoryService) RegisterHandlers(dispatcher events.Dispatcher) {
	if h == nil || dispatcher == nil {
		return
	}
	events.SubscribeAll(dispatcher, h.record)
}

func (h *HistoryService) record(ctx context.Context, event events.Event) error {
	entry := historyEntry(event)
	if err := h.repo.Create(ctx, entry); err != nil {
		return err
	}
	h.logger.Debug("history recorded",
		zap.String("ticket_id", entry.TicketID),
		zap.String("change_type", string(entry.ChangeType)))
	return nil
}

// ListForTicket returns the journal of an existing ticket.
func (h *HistoryService) ListForTicket(ctx context.Context, ticketID string, limit, offset int) ([]domain.TicketHistory, error) {
	if _, err := h.tickets.Get(ticketID); err != nil {
		return nil, err
	}
	return h.repo.ListByTicket(ctx, ticketID, limit, offset)
}

func historyEntry(event events.Event) *domain.TicketHistory {
	entry := &domain.TicketHistory{
		TicketID: event.TicketID,
		EventID:  event.ID,
		OldValue: map[string]any{},
		NewValue: map[string]any{},
	}
	switch payload := event.Payload.(type) {
	case events.TicketStatusChangedPayload:
		entry.ChangeType = domain.ChangeTypeStatus
		entry.OldValue["status"] = payload.OldStatus
		entry.NewValue["status"] = payload.NewStatus
	case events.TicketDetailsChangedPayload:
		entry.ChangeType = domain.ChangeTypeDetails
		entry.OldValue["additional_details"] = payload.OldDetails
		entry.NewValue["additional_details"] = payload.NewDetails
	case events.TicketContentChangedPayload:
		entry.ChangeType = domain.ChangeTypeContent
		entry.NewValue["fields"] = payload.Fields
	default:
		entry.ChangeType = domain.ChangeTypeCreated
		entry.NewValue["status"] = event.Ticket.Status
		entry.NewValue["name"] = event.Ticket.Name
	}
	return entry
}
