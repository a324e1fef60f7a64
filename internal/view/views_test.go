package view

import (
	"context"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/spec-kit/ticket-desk/internal/domain"
	"github.com/spec-kit/ticket-desk/internal/store"
	apperrors "github.com/spec-kit/ticket-desk/pkg/util/errorutil"
)

func newStore(t *testing.T) *store.TicketStore {
	t.Helper()
	return store.New(store.Options{Logger: zaptest.NewLogger(t)})
}

func submit(t *testing.T, s Store, name string) domain.Ticket {
	t.Helper()
	form := NewSubmissionForm(s)
	form.Name = name
	form.Email = name + "@x.com"
	form.Description = "broken " + name
	ticket, err := form.Submit(context.Background())
	if err != nil {
		t.Fatalf("submit %s: %v", name, err)
	}
	return ticket
}

// countingStore wraps a store and counts writes.
type countingStore struct {
	Store
	upserts int
}

func (c *countingStore) Upsert(ctx context.Context, patch domain.TicketPatch) (domain.Ticket, error) {
	c.upserts++
	return c.Store.Upsert(ctx, patch)
}

func TestSubmissionFormSuccessClearsBuffer(t *testing.T) {
	s := newStore(t)
	form := NewSubmissionForm(s)
	form.Name = "Alice"
	form.Email = "a@x.com"
	form.Description = "broken login"
	form.SetPhoto("file:///tmp/screen.png")
	form.SetPhoto("")

	ticket, err := form.Submit(context.Background())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if ticket.Photo != "file:///tmp/screen.png" {
		t.Errorf("expected photo to be kept, got %q", ticket.Photo)
	}
	if ticket.Status != domain.TicketStatusNew {
		t.Errorf("expected new status, got %q", ticket.Status)
	}
	if form.Name != "" || form.Email != "" || form.Description != "" || form.Photo != "" {
		t.Errorf("form not cleared: %+v", form)
	}
}

func TestSubmissionFormValidationKeepsBuffer(t *testing.T) {
	s := newStore(t)
	form := NewSubmissionForm(s)
	form.Email = "a@x.com"
	form.Description = "broken login"

	_, err := form.Submit(context.Background())
	if !apperrors.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if form.Email != "a@x.com" || form.Description != "broken login" {
		t.Errorf("entered data lost: %+v", form)
	}
	if n := len(s.List()); n != 0 {
		t.Errorf("expected empty store, got %d", n)
	}
}

func TestListViewFollowsStore(t *testing.T) {
	s := newStore(t)
	var pushed [][]Row
	list := NewListView(s, func(rows []Row) { pushed = append(pushed, rows) })
	defer list.Close()

	a := submit(t, s, "alice")
	submit(t, s, "bob")
	if got := len(list.Rows()); got != 2 {
		t.Fatalf("expected 2 rows, got %d", got)
	}
	if len(pushed) != 2 {
		t.Fatalf("expected 2 change callbacks, got %d", len(pushed))
	}

	if _, err := s.Upsert(context.Background(), domain.TicketPatch{ID: a.ID, Status: domain.StatusPtr(domain.TicketStatusResolved)}); err != nil {
		t.Fatalf("update: %v", err)
	}
	list.SetFilter("Resolved")
	rows := list.Rows()
	if len(rows) != 1 || rows[0].Ticket.ID != a.ID || rows[0].Category != CategoryResolved {
		t.Fatalf("unexpected filtered rows %+v", rows)
	}
	if list.Filter() != "Resolved" {
		t.Errorf("unexpected filter %q", list.Filter())
	}

	list.Close()
	submit(t, s, "carol")
	list.SetFilter(FilterAll)
	if got := len(list.Rows()); got != 2 {
		t.Errorf("closed list should not follow the store, got %d rows", got)
	}
}

func TestListViewStartsFromCurrentSnapshot(t *testing.T) {
	s := newStore(t)
	submit(t, s, "alice")

	list := NewListView(s, nil)
	defer list.Close()
	rows := list.Rows()
	if len(rows) != 1 || rows[0].Category != CategoryNew {
		t.Fatalf("unexpected rows %+v", rows)
	}
}

func TestOpenDetailsUnknownTicket(t *testing.T) {
	if _, err := OpenDetails(newStore(t), "zzz"); !apperrors.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDetailsViewContinuousSync(t *testing.T) {
	s := &countingStore{Store: newStore(t)}
	created := submit(t, s, "alice")
	s.upserts = 0

	details, err := OpenDetails(s, created.ID)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer details.Close()

	if details.AdditionalDetailsEditable() {
		t.Error("details should not be editable while new")
	}

	if _, err := details.SetStatus(context.Background(), "In Progress"); err != nil {
		t.Fatalf("set status: %v", err)
	}
	if !details.AdditionalDetailsEditable() {
		t.Error("details should be editable once in progress")
	}
	if _, err := details.SetAdditionalDetails(context.Background(), "investigating"); err != nil {
		t.Fatalf("set details: %v", err)
	}
	if _, err := details.SetStatus(context.Background(), domain.TicketStatusInProgress); err != nil {
		t.Fatalf("repeat status: %v", err)
	}

	if s.upserts != 2 {
		t.Errorf("expected 2 writes (no-op skipped), got %d", s.upserts)
	}
	stored, _ := s.Get(created.ID)
	if stored.Status != domain.TicketStatusInProgress || stored.AdditionalDetails != "investigating" {
		t.Errorf("unexpected stored ticket %+v", stored)
	}
	if stored.Name != created.Name || stored.Email != created.Email || stored.Description != created.Description {
		t.Errorf("submission fields changed: %+v", stored)
	}
}

func TestDetailsViewInvalidStatusDoesNotCrash(t *testing.T) {
	s := newStore(t)
	created := submit(t, s, "alice")
	details, err := OpenDetails(s, created.ID)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer details.Close()

	ticket, err := details.SetStatus(context.Background(), "archived")
	if !apperrors.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if ticket.Status != domain.TicketStatusNew {
		t.Errorf("expected unchanged ticket, got %+v", ticket)
	}
}

func TestDetailsViewSeesOtherWriters(t *testing.T) {
	s := newStore(t)
	created := submit(t, s, "alice")
	details, err := OpenDetails(s, created.ID)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer details.Close()

	if _, err := s.Upsert(context.Background(), domain.TicketPatch{ID: created.ID, Status: domain.StatusPtr(domain.TicketStatusResolved)}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if got := details.Ticket().Status; got != domain.TicketStatusResolved {
		t.Fatalf("details view not refreshed, status %q", got)
	}
}
