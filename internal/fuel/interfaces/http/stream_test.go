package http

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"fuel-registry/internal/eventbus"
	fuelapp "fuel-registry/internal/fuel/application"
	fuel "fuel-registry/internal/fuel/domain"
)

// pipeWriter streams a handler's output to a reader.
type pipeWriter struct {
	header http.Header
	w      *io.PipeWriter
}

func (p *pipeWriter) Header() http.Header         { return p.header }
func (p *pipeWriter) Write(b []byte) (int, error) { return p.w.Write(b) }
func (p *pipeWriter) WriteHeader(int)             {}
func (p *pipeWriter) Flush()                      {}

func readEvent(t *testing.T, r *bufio.Reader) SnapshotEvent {
	t.Helper()
	var event SnapshotEvent
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, "data: ") {
			require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &event))
			return event
		}
	}
}

func TestStreamHandler_PushesSnapshots(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := newStack(t, seedRecord("a", "Diesel", "100.00"))
	broker := NewSnapshotBroker(s.service, 4, nil)
	eventbus.Subscribe(s.bus, "stream", broker.HandleRecordsChanged)
	handler := NewStreamHandler(broker)

	ctx, cancel := context.WithCancel(context.Background())
	pr, pw := io.Pipe()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/fuel-records/stream", nil).WithContext(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		handler.ServeHTTP(&pipeWriter{header: http.Header{}, w: pw}, req)
		_ = pw.Close()
	}()

	reader := bufio.NewReader(pr)
	first := readEvent(t, reader)
	assert.Equal(t, "snapshot", first.Op)
	require.Len(t, first.Records, 1)

	_, err := s.service.Create(context.Background(), fuelapp.RecordInput{Type: "Petrol", Price: "311"})
	require.NoError(t, err)

	second := readEvent(t, reader)
	assert.Equal(t, fuelapp.OpCreated, second.Op)
	assert.Len(t, second.Records, 2)

	cancel()
	go func() { _, _ = io.Copy(io.Discard, pr) }()
	<-done
	broker.Close()
}

func TestSnapshotBroker_CloseDisconnectsClients(t *testing.T) {
	defer goleak.VerifyNone(t)

	broker := NewSnapshotBroker(staticSource{}, 1, nil)
	ch := broker.Subscribe()
	require.NotNil(t, ch)

	broker.Close()
	_, ok := <-ch
	assert.False(t, ok)
	assert.Nil(t, broker.Subscribe())
	broker.Unsubscribe(ch)
}

func TestSnapshotBroker_SlowClientKeepsLatest(t *testing.T) {
	broker := NewSnapshotBroker(staticSource{}, 1, nil)
	ch := broker.Subscribe()
	defer broker.Unsubscribe(ch)

	broker.broadcast([]byte("first"))
	broker.broadcast([]byte("second"))
	assert.Equal(t, []byte("second"), <-ch)
}

type staticSource struct{}

func (staticSource) Snapshot(context.Context) (fuel.Snapshot, error) {
	return fuel.Snapshot{}, nil
}
