package domain

import (
	"strings"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusNew        TicketStatus = "new"
	TicketStatusInProgress TicketStatus = "in-progress"
	TicketStatusResolved   TicketStatus = "resolved"
)

// TicketStatuses lists every valid status in display order.
var TicketStatuses = []TicketStatus{TicketStatusNew, TicketStatusInProgress, TicketStatusResolved}

var statusLabels = map[TicketStatus]string{
	TicketStatusNew:        "New",
	TicketStatusInProgress: "In Progress",
	TicketStatusResolved:   "Resolved",
}

// Valid reports whether s is one of the enumerated statuses.
func (s TicketStatus) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

// Label returns the human readable form used by clients ("In Progress").
func (s TicketStatus) Label() string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return string(s)
}

// ParseTicketStatus accepts canonical values and client labels in any case,
// with spaces, dashes or underscores as separators.
func ParseTicketStatus(raw string) (TicketStatus, bool) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	normalized = strings.NewReplacer(" ", "-", "_", "-").Replace(normalized)
	status := TicketStatus(normalized)
	return status, status.Valid()
}

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID                string
	Name              string
	Email             string
	Description       string
	Photo             string
	Status            TicketStatus
	AdditionalDetails string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// HasPhoto reports whether an image reference is attached.
func (t Ticket) HasPhoto() bool {
	return t.Photo != ""
}

// TicketPatch is a partial ticket. An empty ID selects the create path;
// nil fields are absent and leave the stored value untouched.
type TicketPatch struct {
	ID                string
	Name              *string
	Email             *string
	Description       *string
	Photo             *string
	Status            *TicketStatus
	AdditionalDetails *string
}

// IsCreate reports whether the patch carries no identifier.
func (p TicketPatch) IsCreate() bool {
	return p.ID == ""
}

// Apply returns base with every present field of p overwritten.
func (p TicketPatch) Apply(base Ticket) Ticket {
	if p.Name != nil {
		base.Name = *p.Name
	}
	if p.Email != nil {
		base.Email = *p.Email
	}
	if p.Description != nil {
		base.Description = *p.Description
	}
	if p.Photo != nil {
		base.Photo = *p.Photo
	}
	if p.Status != nil {
		base.Status = *p.Status
	}
	if p.AdditionalDetails != nil {
		base.AdditionalDetails = *p.AdditionalDetails
	}
	return base
}

// Changes reports whether applying p to base would alter any field.
func (p TicketPatch) Changes(base Ticket) bool {
	return !p.Apply(base).sameContent(base)
}

func (t Ticket) sameContent(other Ticket) bool {
	return t.Name == other.Name &&
		t.Email == other.Email &&
		t.Description == other.Description &&
		t.Photo == other.Photo &&
		t.Status == other.Status &&
		t.AdditionalDetails == other.AdditionalDetails
}

// Violations lists the invariant violations of t keyed by field name.
// An empty result means the ticket may be stored.
func (t Ticket) Violations() map[string]any {
	violations := map[string]any{}
	if strings.TrimSpace(t.Name) == "" {
		violations["name"] = "required"
	}
	if strings.TrimSpace(t.Email) == "" {
		violations["email"] = "required"
	}
	if strings.TrimSpace(t.Description) == "" {
		violations["description"] = "required"
	}
	if !t.Status.Valid() {
		violations["status"] = "must be one of new, in-progress, resolved"
	}
	return violations
}

// StringPtr is a convenience for building patches.
func StringPtr(s string) *string {
	return &s
}

// StatusPtr is a convenience for building patches.
func StatusPtr(s TicketStatus) *TicketStatus {
	return &s
}
