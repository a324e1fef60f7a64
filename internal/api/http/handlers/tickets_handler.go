package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-desk/internal/api/dto"
	"github.com/spec-kit/ticket-desk/internal/domain"
	"github.com/spec-kit/ticket-desk/internal/service"
	"github.com/spec-kit/ticket-desk/internal/view"
	apperrors "github.com/spec-kit/ticket-desk/pkg/util/errorutil"
)

// TicketsHandler exposes the submission, list and details operations.
type TicketsHandler struct {
	service *service.TicketService
	history *service.HistoryService
}

// NewTicketsHandler constructs handler. history may be nil when the audit
// journal is disabled.
func NewTicketsHandler(ticketService *service.TicketService, history *service.HistoryService) *TicketsHandler {
	return &TicketsHandler{service: ticketService, history: history}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	form := view.NewSubmissionForm(h.service)
	form.Name = req.Name
	form.Email = req.Email
	form.Description = req.Description
	form.SetPhoto(req.Photo)
	ticket, err := form.Submit(c.UserContext())
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketDetail(ticket)})
}

// ListTickets GET /tickets?status=.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	tickets, err := h.service.ListTickets(c.UserContext(), c.Query("status", view.FilterAll))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummaries(tickets)})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	ticket, err := h.service.GetTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket)})
}

// UpdateTicket PATCH /tickets/:id. Status and details edits go through the
// details view; edits that touch the submission fields are applied in one
// write by the service.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Name == nil && req.Email == nil && req.Description == nil && req.Photo == nil {
		return h.updateDetails(c, req)
	}
	ticket, err := h.service.UpdateTicket(c.UserContext(), c.Params("id"), service.UpdateTicketInput{
		Name:              req.Name,
		Email:             req.Email,
		Description:       req.Description,
		Photo:             req.Photo,
		Status:            req.Status,
		AdditionalDetails: req.AdditionalDetails,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket)})
}

func (h *TicketsHandler) updateDetails(c *fiber.Ctx, req dto.UpdateTicketRequest) error {
	var status *domain.TicketStatus
	if req.Status != nil {
		parsed, err := service.ParseStatus(*req.Status)
		if err != nil {
			return err
		}
		status = &parsed
	}

	details, err := view.OpenDetails(h.service, c.Params("id"))
	if err != nil {
		return err
	}
	defer details.Close()

	ctx := c.UserContext()
	if status != nil {
		if _, err := details.SetStatus(ctx, *status); err != nil {
			return err
		}
	}
	if req.AdditionalDetails != nil {
		if _, err := details.SetAdditionalDetails(ctx, *req.AdditionalDetails); err != nil {
			return err
		}
	}
	return c.JSON(fiber.Map{"data": ticketDetail(details.Ticket())})
}

// ListHistory GET /tickets/:id/history.
func (h *TicketsHandler) ListHistory(c *fiber.Ctx) error {
	if h.history == nil {
		return apperrors.NewNotFound("ticket history", map[string]any{"reason": "audit journal disabled"})
	}
	limit := parseInt(c.Query("limit"), 50)
	offset := parseInt(c.Query("offset"), 0)
	entries, err := h.history.ListForTicket(c.UserContext(), c.Params("id"), limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": historyResponses(entries)})
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed < 0 {
		return def
	}
	return parsed
}

func ticketSummary(ticket domain.Ticket) dto.TicketSummary {
	return dto.TicketSummary{
		ID:          ticket.ID,
		Name:        ticket.Name,
		Email:       ticket.Email,
		Status:      ticket.Status,
		StatusLabel: ticket.Status.Label(),
		Category:    string(view.StatusDisplayCategory(ticket.Status)),
		UpdatedAt:   ticket.UpdatedAt,
	}
}

func ticketSummaries(tickets []domain.Ticket) []dto.TicketSummary {
	items := make([]dto.TicketSummary, 0, len(tickets))
	for _, ticket := range tickets {
		items = append(items, ticketSummary(ticket))
	}
	return items
}

func ticketDetail(ticket domain.Ticket) dto.TicketDetailResponse {
	return dto.TicketDetailResponse{
		ID:                        ticket.ID,
		Name:                      ticket.Name,
		Email:                     ticket.Email,
		Description:               ticket.Description,
		Photo:                     ticket.Photo,
		Status:                    ticket.Status,
		StatusLabel:               ticket.Status.Label(),
		Category:                  string(view.StatusDisplayCategory(ticket.Status)),
		AdditionalDetails:         ticket.AdditionalDetails,
		AdditionalDetailsEditable: ticket.Status != domain.TicketStatusNew,
		CreatedAt:                 ticket.CreatedAt,
		UpdatedAt:                 ticket.UpdatedAt,
	}
}

func historyResponses(entries []domain.TicketHistory) []dto.TicketHistoryResponse {
	resp := make([]dto.TicketHistoryResponse, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, dto.TicketHistoryResponse{
			ID:         entry.ID,
			ChangeType: entry.ChangeType,
			OldValue:   entry.OldValue,
			NewValue:   entry.NewValue,
			CreatedAt:  entry.CreatedAt,
		})
	}
	return resp
}
