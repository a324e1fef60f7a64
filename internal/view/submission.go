package view

import (
	"context"

	"github.com/spec-kit/ticket-desk/internal/domain"
)

// SubmissionForm buffers a new ticket until it is submitted.
type SubmissionForm struct {
	store Store

	Name        string
	Email       string
	Description string
	Photo       string
}

// NewSubmissionForm returns an empty form bound to s.
func NewSubmissionForm(s Store) *SubmissionForm {
	return &SubmissionForm{store: s}
}

// SetPhoto records the image reference returned by the picker. An empty
// uri means the picker was cancelled and leaves the current photo alone.
func (f *SubmissionForm) SetPhoto(uri string) {
	if uri == "" {
		return
	}
	f.Photo = uri
}

// Submit creates the ticket. On failure the entered data is kept so the
// user can correct it; on success the form is cleared.
func (f *SubmissionForm) Submit(ctx context.Context) (domain.Ticket, error) {
	patch := domain.TicketPatch{
		Name:        domain.StringPtr(f.Name),
		Email:       domain.StringPtr(f.Email),
		Description: domain.StringPtr(f.Description),
		Status:      domain.StatusPtr(domain.TicketStatusNew),
	}
	if f.Photo != "" {
		patch.Photo = domain.StringPtr(f.Photo)
	}

	ticket, err := f.store.Upsert(ctx, patch)
	if err != nil {
		return domain.Ticket{}, err
	}
	f.Reset()
	return ticket, nil
}

// Reset clears every field.
func (f *SubmissionForm) Reset() {
	f.Name, f.Email, f.Description, f.Photo = "", "", "", ""
}
