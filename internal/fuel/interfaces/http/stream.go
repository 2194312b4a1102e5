package http

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	fuelapp "fuel-registry/internal/fuel/application"
	fuel "fuel-registry/internal/fuel/domain"
	"fuel-registry/internal/observability/metrics"
)

// SnapshotEvent is the payload pushed to stream clients. Every event carries
// the complete record set; clients replace what they hold.
type SnapshotEvent struct {
	Op       string        `json:"op"`
	RecordID string        `json:"recordId,omitempty"`
	At       time.Time     `json:"at"`
	Records  []fuel.Record `json:"records"`
}

// SnapshotBroker fans out registry snapshots to connected clients.
type SnapshotBroker struct {
	source fuelapp.SnapshotSource
	buffer int
	logger *zap.Logger

	mu      sync.Mutex
	clients map[chan []byte]struct{}
	closed  bool
}

// NewSnapshotBroker constructs a broker. buffer is the per-client queue length.
func NewSnapshotBroker(source fuelapp.SnapshotSource, buffer int, logger *zap.Logger) *SnapshotBroker {
	if buffer <= 0 {
		buffer = 8
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SnapshotBroker{
		source:  source,
		buffer:  buffer,
		logger:  logger,
		clients: make(map[chan []byte]struct{}),
	}
}

// HandleRecordsChanged loads a fresh snapshot and pushes it to every client.
func (b *SnapshotBroker) HandleRecordsChanged(ctx context.Context, evt fuelapp.RecordsChanged) error {
	if b == nil {
		return nil
	}
	payload, err := b.encode(ctx, evt.Op, evt.RecordID, evt.At)
	if err != nil {
		return err
	}
	b.broadcast(payload)
	return nil
}

func (b *SnapshotBroker) encode(ctx context.Context, op, recordID string, at time.Time) ([]byte, error) {
	snapshot, err := b.source.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return json.Marshal(SnapshotEvent{Op: op, RecordID: recordID, At: at, Records: snapshot.Records()})
}

// Subscribe registers a new client channel. It returns nil once the broker is closed.
func (b *SnapshotBroker) Subscribe() chan []byte {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	ch := make(chan []byte, b.buffer)
	b.clients[ch] = struct{}{}
	metrics.AddStreamClients(1)
	return ch
}

// Unsubscribe removes a client channel.
func (b *SnapshotBroker) Unsubscribe(ch chan []byte) {
	if b == nil || ch == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.clients[ch]; !ok {
		return
	}
	delete(b.clients, ch)
	close(ch)
	metrics.AddStreamClients(-1)
}

// Close disconnects every client and rejects new ones.
func (b *SnapshotBroker) Close() {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for ch := range b.clients {
		delete(b.clients, ch)
		close(ch)
		metrics.AddStreamClients(-1)
	}
}

// broadcast never blocks: a client whose queue is full loses its oldest
// snapshot, which the newer one supersedes.
func (b *SnapshotBroker) broadcast(payload []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.clients {
		select {
		case ch <- payload:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- payload:
		default:
			b.logger.Debug("stream client dropped snapshot")
		}
	}
}

// StreamHandler serves the SSE snapshot stream.
type StreamHandler struct {
	broker *SnapshotBroker
}

// NewStreamHandler constructs a stream handler.
func NewStreamHandler(broker *SnapshotBroker) *StreamHandler {
	return &StreamHandler{broker: broker}
}

// ServeHTTP handles GET /api/v1/fuel-records/stream. The first event is the
// current snapshot.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.broker == nil {
		http.Error(w, "stream not ready", http.StatusServiceUnavailable)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "stream unsupported", http.StatusInternalServerError)
		return
	}

	ch := h.broker.Subscribe()
	if ch == nil {
		http.Error(w, "stream not ready", http.StatusServiceUnavailable)
		return
	}
	defer h.broker.Unsubscribe(ch)

	initial, err := h.broker.encode(r.Context(), "snapshot", "", time.Now().UTC())
	if err != nil {
		h.broker.logger.Warn("stream initial snapshot", zap.Error(err))
		http.Error(w, "snapshot unavailable", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	writeEvent(w, initial)
	flusher.Flush()

	done := r.Context().Done()
	for {
		select {
		case payload, ok := <-ch:
			if !ok {
				return
			}
			writeEvent(w, payload)
			flusher.Flush()
		case <-done:
			return
		}
	}
}

func writeEvent(w http.ResponseWriter, payload []byte) {
	_, _ = w.Write([]byte("event: snapshot\n"))
	_, _ = w.Write([]byte("data: "))
	_, _ = w.Write(payload)
	_, _ = w.Write([]byte("\n\n"))
}
