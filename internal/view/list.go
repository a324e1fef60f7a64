package view

import (
	"context"
	"sync"

	"github.com/spec-kit/ticket-desk/internal/domain"
	"github.com/spec-kit/ticket-desk/internal/store"
)

// Row is one rendered line of the ticket list.
type Row struct {
	Ticket   domain.Ticket
	Category DisplayCategory
}

// ListView keeps a filtered view of the store current.
type ListView struct {
	mu          sync.Mutex
	tickets     []domain.Ticket
	version     uint64
	filter      string
	onChange    func([]Row)
	unsubscribe func()
}

// NewListView subscribes to s and starts with FilterAll. onChange, if not
// nil, is called with the new rows after every store change.
func NewListView(s Store, onChange func([]Row)) *ListView {
	v := &ListView{
		tickets:  s.List(),
		filter:   FilterAll,
		onChange: onChange,
	}
	v.unsubscribe = s.Subscribe(v.refresh)
	return v
}

func (v *ListView) refresh(_ context.Context, snap store.Snapshot) {
	v.mu.Lock()
	if snap.Version <= v.version {
		v.mu.Unlock()
		return
	}
	v.version = snap.Version
	v.tickets = snap.Tickets
	rows := v.rowsLocked()
	v.mu.Unlock()

	if v.onChange != nil {
		v.onChange(rows)
	}
}

// SetFilter selects the status filter ("all", "new", "In Progress", ...).
func (v *ListView) SetFilter(filter string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.filter = filter
}

// Filter returns the current status filter.
func (v *ListView) Filter() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.filter
}

// Rows returns the filtered tickets with their display categories.
func (v *ListView) Rows() []Row {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.rowsLocked()
}

func (v *ListView) rowsLocked() []Row {
	filtered := FilterByStatus(v.tickets, v.filter)
	rows := make([]Row, len(filtered))
	for i, ticket := range filtered {
		rows[i] = Row{Ticket: ticket, Category: StatusDisplayCategory(ticket.Status)}
	}
	return rows
}

// Close stops listening to the store.
func (v *ListView) Close() {
	v.unsubscribe()
}
