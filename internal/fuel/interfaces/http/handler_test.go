package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"fuel-registry/internal/audit"
	"fuel-registry/internal/eventbus"
	fuelapp "fuel-registry/internal/fuel/application"
	fuel "fuel-registry/internal/fuel/domain"
	"fuel-registry/internal/fuel/infrastructure/memory"
)

type stack struct {
	repo      *memory.RecordRepository
	bus       *eventbus.InMemoryBus
	service   *fuelapp.Service
	dashboard *fuelapp.Dashboard
	audits    *observer.ObservedLogs
	mux       *http.ServeMux
}

func newStack(t *testing.T, seed ...fuel.Record) *stack {
	t.Helper()
	s := &stack{
		repo: memory.NewRecordRepository(seed...),
		bus:  eventbus.NewInMemoryBus(nil),
	}
	service, err := fuelapp.NewService(s.repo, fuel.VariantFuelType, fuelapp.WithEventBus(s.bus))
	require.NoError(t, err)
	dashboard, err := fuelapp.NewDashboard(service, fuel.VariantFuelType)
	require.NoError(t, err)
	s.service, s.dashboard = service, dashboard

	core, logs := observer.New(zap.InfoLevel)
	s.audits = logs
	auditLogger := audit.NewZapLogger(zap.New(core))

	records, err := NewRecordsHandler(service, dashboard, auditLogger, nil)
	require.NoError(t, err)
	dash, err := NewDashboardHandler(dashboard, nil)
	require.NoError(t, err)
	exports, err := NewExportHandler(dashboard, auditLogger, nil)
	require.NoError(t, err)
	ingest, err := NewIngestHandler(service, auditLogger, nil)
	require.NoError(t, err)

	s.mux = http.NewServeMux()
	s.mux.Handle("/api/v1/fuel-records", records)
	s.mux.Handle("/api/v1/fuel-records/", records)
	s.mux.Handle("/api/v1/dashboard", dash)
	s.mux.Handle("/api/v1/exports/", exports)
	s.mux.Handle("/ingest/snapshot", ingest)
	return s
}

func (s *stack) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	resp := httptest.NewRecorder()
	s.mux.ServeHTTP(resp, req)
	return resp
}

func seedRecord(id, fuelType string, price fuel.Price) fuel.Record {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	value, _ := price.Value()
	return fuel.Record{
		ID: id, Type: fuelType, Price: price, UpdatedAt: at,
		PriceHistory: []fuel.PricePoint{{Price: value, Date: at}},
	}
}

func TestRecordsHandler_CreateGetUpdateDelete(t *testing.T) {
	s := newStack(t)

	resp := s.do(t, http.MethodPost, "/api/v1/fuel-records", `{"type":"Diesel","price":281.3}`)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	var created fuel.Record
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &created))
	assert.Equal(t, fuel.Price("281.30"), created.Price)
	assert.Equal(t, "/api/v1/fuel-records/"+created.ID, resp.Header().Get("Location"))

	resp = s.do(t, http.MethodGet, "/api/v1/fuel-records/"+created.ID, "")
	require.Equal(t, http.StatusOK, resp.Code)

	resp = s.do(t, http.MethodPut, "/api/v1/fuel-records/"+created.ID, `{"price":"290"}`)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var updated fuel.Record
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &updated))
	assert.Len(t, updated.PriceHistory, 2)

	resp = s.do(t, http.MethodDelete, "/api/v1/fuel-records/"+created.ID, "")
	assert.Equal(t, http.StatusNoContent, resp.Code)

	resp = s.do(t, http.MethodGet, "/api/v1/fuel-records/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, resp.Code)

	actions := make([]string, 0, 3)
	for _, entry := range s.audits.All() {
		actions = append(actions, entry.Message)
	}
	assert.Equal(t, []string{"fuel_record.create", "fuel_record.update", "fuel_record.delete"}, actions)
}

func TestRecordsHandler_RejectsBadInput(t *testing.T) {
	s := newStack(t, seedRecord("a", "Diesel", "100.00"))

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/api/v1/fuel-records", `{"type":"Diesel","price":"-5"}`).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/api/v1/fuel-records", `not json`).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/api/v1/fuel-records", `{"type":"Diesel","price":"1","extra":1}`).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPut, "/api/v1/fuel-records/a", `{"type":"Petrol","price":"1"}`).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodPut, "/api/v1/fuel-records/zzz", `{"price":"1"}`).Code)
	assert.Equal(t, http.StatusMethodNotAllowed, s.do(t, http.MethodPatch, "/api/v1/fuel-records/a", "").Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/v1/fuel-records/a/b", "").Code)
}

func TestRecordsHandler_ListFiltersAndSorts(t *testing.T) {
	s := newStack(t,
		seedRecord("a", "Beta", "3.00"),
		seedRecord("b", "alpha", "1.00"),
		seedRecord("c", "Gamma", "2.00"),
	)

	resp := s.do(t, http.MethodGet, "/api/v1/fuel-records?q=A&sort=type&dir=asc", "")
	require.Equal(t, http.StatusOK, resp.Code)
	var body listResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	labels := make([]string, 0, len(body.Rows))
	for _, row := range body.Rows {
		labels = append(labels, row.Type)
	}
	assert.Equal(t, []string{"Beta", "Gamma", "alpha"}, labels)
	require.NotNil(t, body.Stats)
	assert.Equal(t, 3, body.Stats.Count)

	resp = s.do(t, http.MethodGet, "/api/v1/fuel-records?sort=price&dir=desc", "")
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "a", body.Rows[0].ID)
	assert.Equal(t, "b", body.Rows[2].ID)
}

func TestDashboardHandler(t *testing.T) {
	s := newStack(t, seedRecord("a", "Diesel", "100.00"))

	resp := s.do(t, http.MethodGet, "/api/v1/dashboard?selected=a&as_of=2024-02-01", "")
	require.Equal(t, http.StatusOK, resp.Code)
	var view struct {
		Total   int              `json:"total"`
		Stats   *json.RawMessage `json:"stats"`
		Trend   *json.RawMessage `json:"trend"`
		History *json.RawMessage `json:"history"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &view))
	assert.Equal(t, 1, view.Total)
	assert.NotNil(t, view.Stats)
	assert.Nil(t, view.Trend)
	assert.NotNil(t, view.History)

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/api/v1/dashboard?as_of=yesterday", "").Code)
}

func TestDashboardHandler_EmptyStatsAreNull(t *testing.T) {
	s := newStack(t)
	resp := s.do(t, http.MethodGet, "/api/v1/dashboard", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"stats":null`)
	assert.Contains(t, resp.Body.String(), `"rows":[]`)
}

func TestExportHandler(t *testing.T) {
	s := newStack(t, seedRecord("a", "Diesel", "100.00"), seedRecord("b", "Petrol", "200.00"))

	resp := s.do(t, http.MethodGet, "/api/v1/exports/fuel-records.csv?q=diesel", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "text/csv", resp.Header().Get("Content-Type"))
	assert.Equal(t, "ID,Type,Price,Updated At\na,Diesel,100.00,2024-01-01T00:00:00Z\n", resp.Body.String())

	resp = s.do(t, http.MethodGet, "/api/v1/exports/fuel-records.pdf", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.True(t, bytes.HasPrefix(resp.Body.Bytes(), []byte("%PDF")))

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/v1/exports/fuel-records.doc", "").Code)
}

func TestIngestHandler_ReplacesSnapshot(t *testing.T) {
	s := newStack(t, seedRecord("old", "Diesel", "100.00"))
	var changes []fuelapp.RecordsChanged
	eventbus.Subscribe(s.bus, "test", func(_ context.Context, evt fuelapp.RecordsChanged) error {
		changes = append(changes, evt)
		return nil
	})

	body := `{
		"x1": {"type": "Petrol", "price": "311.00", "updatedAt": "2024-02-01", "priceHistory": [{"price": 311, "date": "2024-02-01"}]},
		"x2": {"type": "Broken", "price": "n/a", "priceHistory": [{"price": 1, "date": "2024-02-01"}]},
		"x3": {"type": "Diesel", "price": 290, "priceHistory": [{"price": null, "date": "2024-01-01"}, {"price": 290, "date": "2024-02-01"}]},
		"x4": {"price": "1.00"}
	}`
	resp := s.do(t, http.MethodPost, "/ingest/snapshot", body)
	require.Equal(t, http.StatusAccepted, resp.Code, resp.Body.String())
	assert.JSONEq(t, `{"received":4,"accepted":3}`, resp.Body.String())

	snapshot, err := s.service.Snapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, snapshot, 3)
	assert.Equal(t, "Petrol", snapshot["x1"].Type)
	assert.Equal(t, fuel.Price("n/a"), snapshot["x2"].Price)
	require.Len(t, snapshot["x3"].PriceHistory, 1)
	assert.Equal(t, 290.0, snapshot["x3"].PriceHistory[0].Price)
	require.Len(t, changes, 1)
	assert.Equal(t, fuelapp.OpReplaced, changes[0].Op)

	list := s.do(t, http.MethodGet, "/api/v1/fuel-records", "")
	require.Equal(t, http.StatusOK, list.Code)
	var rows struct {
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(list.Body.Bytes(), &rows))
	assert.Equal(t, 3, rows.Total)

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/ingest/snapshot", `[1,2]`).Code)
}
