package handlers

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap/zaptest"

	"github.com/spec-kit/ticket-desk/internal/api/dto"
	"github.com/spec-kit/ticket-desk/internal/domain"
	"github.com/spec-kit/ticket-desk/internal/store"
)

func TestWriteSnapshotEvent(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	snap := store.Snapshot{
		Version: 7,
		Tickets: []domain.Ticket{{
			ID:        "t-1",
			Name:      "Alice",
			Email:     "a@x.com",
			Status:    domain.TicketStatusInProgress,
			UpdatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		}},
	}

	if err := writeSnapshotEvent(w, snap); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "id: 7\nevent: snapshot\ndata: ") || !strings.HasSuffix(out, "\n\n") {
		t.Fatalf("unexpected frame: %q", out)
	}
	data := strings.TrimSuffix(strings.TrimPrefix(out, "id: 7\nevent: snapshot\ndata: "), "\n\n")
	var event dto.SnapshotEvent
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if event.Version != 7 || len(event.Tickets) != 1 {
		t.Fatalf("unexpected event: %+v", event)
	}
	row := event.Tickets[0]
	if row.ID != "t-1" || row.StatusLabel != "In Progress" || row.Category != "in-progress" {
		t.Fatalf("unexpected row: %+v", row)
	}
}

type fakePinger struct {
	enabled bool
	err     error
}

func (f fakePinger) Enabled() bool { return f.enabled }
func (f fakePinger) Ping(ctx context.Context) error { return f.err }

func TestReadyReportsDependencies(t *testing.T) {
	cases := []struct {
		name string
		deps map[string]Pinger
		want int
	}{
		{"none", nil, fiber.StatusOK},
		{"disabled", map[string]Pinger{"postgres": fakePinger{}}, fiber.StatusOK},
		{"healthy", map[string]Pinger{"redis": fakePinger{enabled: true}}, fiber.StatusOK},
		{"down", map[string]Pinger{"redis": fakePinger{enabled: true, err: errors.New("refused")}}, fiber.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/ready", NewHealthHandler("ticket-desk", "test", tc.deps).Ready)
			resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/ready", nil), -1)
			if err != nil {
				t.Fatalf("request: %v", err)
			}
			resp.Body.Close()
			if resp.StatusCode != tc.want {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tc.want)
			}
		})
	}
}

func TestParseInt(t *testing.T) {
	if got := parseInt("", 50); got != 50 {
		t.Errorf("empty = %d", got)
	}
	if got := parseInt("x", 50); got != 50 {
		t.Errorf("junk = %d", got)
	}
	if got := parseInt("-1", 0); got != 0 {
		t.Errorf("negative = %d", got)
	}
	if got := parseInt("10", 50); got != 10 {
		t.Errorf("ten = %d", got)
	}
}

// trackingSource counts live subscriptions and reports each new one.
type trackingSource struct {
	*store.TicketStore
	mu         sync.Mutex
	active     int
	subscribed chan struct{}
}

func (s *trackingSource) Subscribe(listener store.Listener) func() {
	unsubscribe := s.TicketStore.Subscribe(listener)
	s.mu.Lock()
	s.active++
	s.mu.Unlock()
	s.subscribed <- struct{}{}
	return func() {
		unsubscribe()
		s.mu.Lock()
		s.active--
		s.mu.Unlock()
	}
}

func (s *trackingSource) activeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func TestStreamDeliversSnapshotsAndUnsubscribes(t *testing.T) {
	logger := zaptest.NewLogger(t)
	source := &trackingSource{
		TicketStore: store.New(store.Options{Logger: logger}),
		subscribed:  make(chan struct{}, 1),
	}
	stream := NewStreamHandler(source, logger)
	app := fiber.New()
	app.Get("/tickets/stream", stream.Snapshots)

	writeErr := make(chan error, 1)
	go func() {
		<-source.subscribed
		_, err := source.Upsert(context.Background(), domain.TicketPatch{
			Name:        domain.StringPtr("Alice"),
			Email:       domain.StringPtr("a@x.com"),
			Description: domain.StringPtr("printer jammed"),
		})
		writeErr <- err
		stream.Close()
	}()

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/tickets/stream", nil), -1)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	if err := <-writeErr; err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if ct := resp.Header.Get(fiber.HeaderContentType); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	frames := strings.Split(strings.TrimSpace(string(raw)), "\n\n")
	last := frames[len(frames)-1]
	if !strings.Contains(last, "event: snapshot\n") {
		t.Fatalf("last frame is not a snapshot: %q", last)
	}
	idx := strings.Index(last, "data: ")
	if idx < 0 {
		t.Fatalf("frame without data: %q", last)
	}
	var event dto.SnapshotEvent
	if err := json.Unmarshal([]byte(last[idx+len("data: "):]), &event); err != nil {
		t.Fatalf("decode %q: %v", last, err)
	}
	if event.Version != 1 || len(event.Tickets) != 1 || event.Tickets[0].Name != "Alice" {
		t.Fatalf("unexpected snapshot: %+v", event)
	}
	if n := source.activeCount(); n != 0 {
		t.Fatalf("expected stream to unsubscribe, %d subscriptions left", n)
	}
}
