// Package store holds the authoritative in-memory ticket collection.
//
// A TicketStore is the only writer of tickets. Creation and mutation both go
// through Upsert; every successful Upsert is followed by exactly one
// synchronous fan-out of the new snapshot to the registered listeners.
package store

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-desk/internal/domain"
	"github.com/spec-kit/ticket-desk/internal/observability"
	apperrors "github.com/spec-kit/ticket-desk/pkg/util/errorutil"
)

// DefaultMaxNotifyDepth bounds how deeply listeners may nest writes.
const DefaultMaxNotifyDepth = 16

// maxIDAttempts caps regeneration when the id generator collides.
const maxIDAttempts = 8

// Snapshot is the ordered collection at one version.
type Snapshot struct {
	Version uint64
	Tickets []domain.Ticket
}

// Listener receives the snapshot produced by a successful Upsert.
//
// A listener that writes to the store must pass the context it was given to
// that Upsert. The context carries the fan-out depth and chain; an Upsert
// issued with a fresh context starts a new chain, escapes the depth guard and
// can recurse without bound.
type Listener func(ctx context.Context, snap Snapshot)

// Options configures a TicketStore.
type Options struct {
	Logger         *zap.Logger
	Metrics        *observability.Metrics
	NewID          func() string
	Now            func() time.Time
	MaxNotifyDepth int
}

type subscription struct {
	id       uint64
	listener Listener

	mu        sync.Mutex
	seen      uint64
	seenChain uint64
}

// TicketStore owns the canonical tickets in insertion order.
type TicketStore struct {
	mu      sync.RWMutex
	tickets []domain.Ticket
	index   map[string]int
	version uint64

	subsMu  sync.Mutex
	subs    []*subscription
	nextSub uint64
	chains  atomic.Uint64

	logger   *zap.Logger
	metrics  *observability.Metrics
	newID    func() string
	now      func() time.Time
	maxDepth int
}

// New constructs an empty store.
func New(opts Options) *TicketStore {
	s := &TicketStore{
		index:    make(map[string]int),
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		newID:    opts.NewID,
		now:      opts.Now,
		maxDepth: opts.MaxNotifyDepth,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.maxDepth <= 0 {
		s.maxDepth = DefaultMaxNotifyDepth
	}
	return s
}

// List returns a copy of the current tickets in insertion order.
func (s *TicketStore) List() []domain.Ticket {
	return s.Snapshot().Tickets
}

// Snapshot returns the current tickets together with their version.
func (s *TicketStore) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Get returns the ticket with the given id.
func (s *TicketStore) Get(id string) (domain.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pos, ok := s.index[id]
	if !ok {
		return domain.Ticket{}, apperrors.NewNotFound("ticket", map[string]any{"id": id})
	}
	return s.tickets[pos], nil
}

// Change describes one committed upsert.
type Change struct {
	Created bool
	Before  domain.Ticket
	After   domain.Ticket
	Version uint64
}

// Upsert creates a ticket when patch has no id and merges patch into the
// existing ticket otherwise. The collection is unchanged on any error.
func (s *TicketStore) Upsert(ctx context.Context, patch domain.TicketPatch) (domain.Ticket, error) {
	change, err := s.Apply(ctx, patch)
	if err != nil {
		return domain.Ticket{}, err
	}
	return change.After, nil
}

// Apply is Upsert that also reports the ticket as it was before the write.
// Before is the zero Ticket on the create path.
func (s *TicketStore) Apply(ctx context.Context, patch domain.TicketPatch) (Change, error) {
	path := "update"
	if patch.IsCreate() {
		path = "create"
	}

	fan := fanoutFrom(ctx)
	depth := fan.depth
	if depth >= s.maxDepth {
		s.logger.Warn("upsert rejected: notification cycle",
			zap.String("ticket_id", patch.ID), zap.Int("depth", depth))
		s.metrics.RecordUpsert(path, apperrors.CodeNotificationCycle)
		return Change{}, apperrors.NewNotificationCycle(depth)
	}

	var (
		change Change
		err    error
	)
	s.mu.Lock()
	if patch.IsCreate() {
		change.Created = true
		change.After, err = s.createLocked(patch)
	} else {
		change.Before, change.After, err = s.updateLocked(patch)
	}
	if err != nil {
		s.mu.Unlock()
		s.metrics.RecordUpsert(path, apperrors.ToDomainError(err).Code)
		return Change{}, err
	}
	s.version++
	change.Version = s.version
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.metrics.RecordUpsert(path, "ok")
	if fan.chain == 0 {
		fan.chain = s.chains.Add(1)
	}
	fan.depth++
	s.notify(withFanout(ctx, fan), snap, fan.chain)
	return change, nil
}

func (s *TicketStore) createLocked(patch domain.TicketPatch) (domain.Ticket, error) {
	ticket := patch.Apply(domain.Ticket{Status: domain.TicketStatusNew})
	if violations := ticket.Violations(); len(violations) > 0 {
		return domain.Ticket{}, apperrors.NewValidationError("ticket is invalid", violations)
	}

	id, err := s.uniqueIDLocked()
	if err != nil {
		return domain.Ticket{}, err
	}
	now := s.now()
	ticket.ID = id
	ticket.CreatedAt = now
	ticket.UpdatedAt = now

	s.index[id] = len(s.tickets)
	s.tickets = append(s.tickets, ticket)
	return ticket, nil
}

func (s *TicketStore) updateLocked(patch domain.TicketPatch) (before, after domain.Ticket, err error) {
	pos, ok := s.index[patch.ID]
	if !ok {
		return before, after, apperrors.NewNotFound("ticket", map[string]any{"id": patch.ID})
	}

	before = s.tickets[pos]
	merged := patch.Apply(before)
	if violations := merged.Violations(); len(violations) > 0 {
		return before, after, apperrors.NewValidationError("ticket is invalid", violations)
	}
	merged.UpdatedAt = s.now()

	s.tickets[pos] = merged
	return before, merged, nil
}

func (s *TicketStore) uniqueIDLocked() (string, error) {
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		id := s.newID()
		if id == "" {
			continue
		}
		if _, taken := s.index[id]; !taken {
			return id, nil
		}
	}
	return "", apperrors.NewInternalError(fmt.Errorf("no unique ticket id after %d attempts", maxIDAttempts))
}

func (s *TicketStore) snapshotLocked() Snapshot {
	tickets := make([]domain.Ticket, len(s.tickets))
	copy(tickets, s.tickets)
	return Snapshot{Version: s.version, Tickets: tickets}
}

// Subscribe registers listener for every later successful Upsert. The
// returned function deregisters it; calling it again is a no-op.
func (s *TicketStore) Subscribe(listener Listener) (unsubscribe func()) {
	s.subsMu.Lock()
	s.nextSub++
	sub := &subscription{id: s.nextSub, listener: listener}
	s.subs = append(s.subs, sub)
	s.subsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { s.remove(sub.id) })
	}
}

func (s *TicketStore) remove(id uint64) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for i, sub := range s.subs {
		if sub.id == id {
			s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
			return
		}
	}
}

// notify delivers snap to the listeners registered when the fan-out
// starts, in subscription order. A listener that has already seen a newer
// version from another chain skips snap. Within one chain every snapshot is
// delivered, so a nested write reaches later listeners before the outer one.
func (s *TicketStore) notify(ctx context.Context, snap Snapshot, chain uint64) {
	s.subsMu.Lock()
	subs := append([]*subscription(nil), s.subs...)
	s.subsMu.Unlock()

	delivered := 0
	for _, sub := range subs {
		if !sub.advance(snap.Version, chain) {
			continue
		}
		s.deliver(ctx, sub, snap)
		delivered++
	}
	s.metrics.RecordNotification(delivered)
}

func (s *TicketStore) deliver(ctx context.Context, sub *subscription, snap Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			s.metrics.RecordListenerPanic()
			s.logger.Error("listener panicked",
				zap.Uint64("subscription", sub.id),
				zap.Uint64("version", snap.Version),
				zap.Any("panic", r))
		}
	}()
	tickets := make([]domain.Ticket, len(snap.Tickets))
	copy(tickets, snap.Tickets)
	sub.listener(ctx, Snapshot{Version: snap.Version, Tickets: tickets})
}

func (sub *subscription) advance(version, chain uint64) bool {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if version > sub.seen {
		sub.seen = version
		sub.seenChain = chain
		return true
	}
	return chain == sub.seenChain
}

// fanout identifies the chain of nested writes a context belongs to. Chain
// zero means the write did not come from a listener.
type fanout struct {
	depth int
	chain uint64
}

type fanoutKey struct{}

func fanoutFrom(ctx context.Context) fanout {
	if ctx == nil {
		return fanout{}
	}
	fan, _ := ctx.Value(fanoutKey{}).(fanout)
	return fan
}

func withFanout(ctx context.Context, fan fanout) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, fanoutKey{}, fan)
}
