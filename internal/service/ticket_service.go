package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-desk/internal/domain"
	"github.com/spec-kit/ticket-desk/internal/events"
	"github.com/spec-kit/ticket-desk/internal/store"
	"github.com/spec-kit/ticket-desk/internal/view"
	apperrors "github.com/spec-kit/ticket-desk/pkg/util/errorutil"
)

// TicketStore is the store surface the service needs.
type TicketStore interface {
	List() []domain.Ticket
	Get(id string) (domain.Ticket, error)
	Apply(ctx context.Context, patch domain.TicketPatch) (store.Change, error)
	Subscribe(listener store.Listener) (unsubscribe func())
}

// The screen collaborators write through the service so every edit
// produces events.
var _ view.Store = (*TicketService)(nil)

// TicketService coordinates ticket workflows.
type TicketService struct {
	store      TicketStore
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	Store      TicketStore
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// CreateTicketInput describes ticket creation payload.
type CreateTicketInput struct {
	Name        string
	Email       string
	Description string
	Photo       string
	Status      string
}

// UpdateTicketInput describes a partial update; nil fields are left as is.
type UpdateTicketInput struct {
	Name              *string
	Email             *string
	Description       *string
	Photo             *string
	Status            *string
	AdditionalDetails *string
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		store:      deps.Store,
		dispatcher: deps.Dispatcher,
		logger:     logger,
	}
}

// CreateTicket submits a new ticket.
func (s *TicketService) CreateTicket(ctx context.Context, input CreateTicketInput) (domain.Ticket, error) {
	patch := domain.TicketPatch{
		Name:        domain.StringPtr(input.Name),
		Email:       domain.StringPtr(input.Email),
		Description: domain.StringPtr(input.Description),
	}
	if input.Photo != "" {
		patch.Photo = domain.StringPtr(input.Photo)
	}
	if input.Status != "" {
		status, err := ParseStatus(input.Status)
		if err != nil {
			return domain.Ticket{}, err
		}
		patch.Status = &status
	}

	return s.Upsert(ctx, patch)
}

// UpdateTicket merges input into the ticket with the given id.
func (s *TicketService) UpdateTicket(ctx context.Context, id string, input UpdateTicketInput) (domain.Ticket, error) {
	if strings.TrimSpace(id) == "" {
		return domain.Ticket{}, apperrors.NewValidationError("ticket id required", nil)
	}
	patch := domain.TicketPatch{
		ID:                id,
		Name:              input.Name,
		Email:             input.Email,
		Description:       input.Description,
		Photo:             input.Photo,
		AdditionalDetails: input.AdditionalDetails,
	}
	if input.Status != nil {
		status, err := ParseStatus(*input.Status)
		if err != nil {
			return domain.Ticket{}, err
		}
		patch.Status = &status
	}

	return s.Upsert(ctx, patch)
}

// Upsert writes patch to the store and publishes the events describing
// the change.
func (s *TicketService) Upsert(ctx context.Context, patch domain.TicketPatch) (domain.Ticket, error) {
	change, err := s.store.Apply(ctx, patch)
	if err != nil {
		return domain.Ticket{}, err
	}
	if change.Created {
		s.logger.Info("ticket created", zap.String("ticket_id", change.After.ID))
		s.publishEvent(ctx, change, events.EventTicketCreated, nil)
	} else {
		s.publishChanges(ctx, change)
	}
	return change.After, nil
}

// List returns every ticket in insertion order.
func (s *TicketService) List() []domain.Ticket {
	return s.store.List()
}

// Get returns one ticket.
func (s *TicketService) Get(id string) (domain.Ticket, error) {
	return s.store.Get(id)
}

// Subscribe registers listener on the underlying store.
func (s *TicketService) Subscribe(listener store.Listener) (unsubscribe func()) {
	return s.store.Subscribe(listener)
}

// GetTicket returns one ticket.
func (s *TicketService) GetTicket(ctx context.Context, id string) (domain.Ticket, error) {
	return s.store.Get(id)
}

// ListTickets returns the tickets matching filter, which is view.FilterAll
// or a status value or label. An empty filter means all.
func (s *TicketService) ListTickets(ctx context.Context, filter string) ([]domain.Ticket, error) {
	filter = strings.TrimSpace(filter)
	if filter == "" {
		filter = view.FilterAll
	}
	if !strings.EqualFold(filter, view.FilterAll) {
		if _, ok := domain.ParseTicketStatus(filter); !ok {
			return nil, apperrors.NewValidationError("unknown status filter", map[string]any{"status": filter})
		}
	}
	return view.FilterByStatus(s.store.List(), filter), nil
}

func (s *TicketService) publishChanges(ctx context.Context, change store.Change) {
	before, after := change.Before, change.After
	if before.Status != after.Status {
		s.publishEvent(ctx, change, events.EventTicketStatusChanged, events.TicketStatusChangedPayload{
			OldStatus: before.Status,
			NewStatus: after.Status,
		})
	}
	if before.AdditionalDetails != after.AdditionalDetails {
		s.publishEvent(ctx, change, events.EventTicketDetailsChanged, events.TicketDetailsChangedPayload{
			OldDetails: before.AdditionalDetails,
			NewDetails: after.AdditionalDetails,
		})
	}
	if fields := changedContentFields(before, after); len(fields) > 0 {
		s.publishEvent(ctx, change, events.EventTicketContentChanged, events.TicketContentChangedPayload{Fields: fields})
	}
}

func (s *TicketService) publishEvent(ctx context.Context, change store.Change, eventType events.EventType, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TicketID:  change.After.ID,
		Version:   change.Version,
		Timestamp: time.Now(),
		Ticket:    events.NewTicketPayload(change.After),
		Payload:   payload,
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event publish failed",
			zap.String("ticket_id", event.TicketID),
			zap.String("event_type", string(eventType)),
			zap.Error(err))
	}
}

func changedContentFields(before, after domain.Ticket) []string {
	var fields []string
	if before.Name != after.Name {
		fields = append(fields, "name")
	}
	if before.Email != after.Email {
		fields = append(fields, "email")
	}
	if before.Description != after.Description {
		fields = append(fields, "description")
	}
	if before.Photo != after.Photo {
		fields = append(fields, "photo")
	}
	return fields
}

// ParseStatus normalizes a status value or label, failing with a
// validation error for anything else.
func ParseStatus(raw string) (domain.TicketStatus, error) {
	status, ok := domain.ParseTicketStatus(raw)
	if !ok {
		return "", apperrors.NewValidationError("ticket is invalid", map[string]any{
			"status": "must be one of new, in-progress, resolved",
		})
	}
	return status, nil
}
