package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap/zaptest"

	"github.com/spec-kit/ticket-desk/internal/domain"
)

type fakeRedis struct {
	channel  string
	messages [][]byte
	err      error
}

func (f *fakeRedis) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx, "publish", channel, message)
	if f.err != nil {
		cmd.SetErr(f.err)
		return cmd
	}
	f.channel = channel
	f.messages = append(f.messages, message.([]byte))
	cmd.SetVal(1)
	return cmd
}

func TestRedisPublisherForwardsEvents(t *testing.T) {
	client := &fakeRedis{}
	d := NewInMemoryDispatcher(zaptest.NewLogger(t))
	NewRedisPublisher(client, "tickets.events", zaptest.NewLogger(t)).Register(d)

	event := Event{
		ID:       "e-1",
		Type:     EventTicketStatusChanged,
		TicketID: "t-1",
		Ticket:   NewTicketPayload(domain.Ticket{ID: "t-1", Status: domain.TicketStatusResolved}),
		Payload: TicketStatusChangedPayload{
			OldStatus: domain.TicketStatusNew,
			NewStatus: domain.TicketStatusResolved,
		},
	}
	if err := d.Publish(context.Background(), event); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if client.channel != "tickets.events" || len(client.messages) != 1 {
		t.Fatalf("expected one message on tickets.events, got %q / %d", client.channel, len(client.messages))
	}
	var decoded struct {
		Type    EventType                  `json:"type"`
		Ticket  TicketPayload              `json:"ticket"`
		Payload TicketStatusChangedPayload `json:"payload"`
	}
	if err := json.Unmarshal(client.messages[0], &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Type != EventTicketStatusChanged || decoded.Payload.NewStatus != domain.TicketStatusResolved {
		t.Errorf("unexpected message %+v", decoded)
	}
}

func TestRedisPublisherReportsFailure(t *testing.T) {
	client := &fakeRedis{err: errors.New("connection refused")}
	p := NewRedisPublisher(client, "tickets.events", zaptest.NewLogger(t))
	if err := p.Handle(context.Background(), Event{ID: "e-1", Type: EventTicketCreated}); err == nil {
		t.Fatal("expected publish error")
	}
}
