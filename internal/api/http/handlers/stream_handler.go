package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-desk/internal/api/dto"
	"github.com/spec-kit/ticket-desk/internal/store"
)

const streamHeartbeat = 15 * time.Second

// SnapshotSource is the store surface the stream needs.
type SnapshotSource interface {
	Snapshot() store.Snapshot
	Subscribe(listener store.Listener) func()
}

// StreamHandler pushes every store snapshot to clients as server-sent events.
type StreamHandler struct {
	source SnapshotSource
	logger *zap.Logger

	done      chan struct{}
	closeOnce sync.Once
}

// NewStreamHandler constructs handler.
func NewStreamHandler(source SnapshotSource, logger *zap.Logger) *StreamHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StreamHandler{source: source, logger: logger, done: make(chan struct{})}
}

// Close ends all open streams so the server can shut down.
func (h *StreamHandler) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// Snapshots GET /tickets/stream.
func (h *StreamHandler) Snapshots(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	// Only the newest pending snapshot matters. A nested write can deliver
	// an older snapshot after a newer one, so the higher version is kept.
	updates := make(chan store.Snapshot, 1)
	unsubscribe := h.source.Subscribe(func(_ context.Context, snap store.Snapshot) {
		for {
			select {
			case updates <- snap:
				return
			default:
			}
			select {
			case pending := <-updates:
				if pending.Version > snap.Version {
					snap = pending
				}
			default:
			}
		}
	})
	initial := h.source.Snapshot()

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer unsubscribe()
		heartbeat := time.NewTicker(streamHeartbeat)
		defer heartbeat.Stop()

		last := initial.Version
		if err := writeSnapshotEvent(w, initial); err != nil {
			return
		}
		for {
			select {
			case <-h.done:
				select {
				case snap := <-updates:
					if snap.Version > last {
						_ = writeSnapshotEvent(w, snap)
					}
				default:
				}
				return
			case snap := <-updates:
				if snap.Version <= last {
					continue
				}
				last = snap.Version
				if err := writeSnapshotEvent(w, snap); err != nil {
					h.logger.Debug("snapshot stream closed", zap.Error(err))
					return
				}
			case <-heartbeat.C:
				if _, err := w.WriteString(": ping\n\n"); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	})
	return nil
}

// writeSnapshotEvent writes one "snapshot" event and flushes it.
func writeSnapshotEvent(w *bufio.Writer, snap store.Snapshot) error {
	body, err := json.Marshal(dto.SnapshotEvent{
		Version: snap.Version,
		Tickets: ticketSummaries(snap.Tickets),
	})
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "id: %d\nevent: snapshot\ndata: %s\n\n", snap.Version, body); err != nil {
		return err
	}
	return w.Flush()
}
