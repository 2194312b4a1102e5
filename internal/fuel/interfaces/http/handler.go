package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"fuel-registry/internal/audit"
	fuelapp "fuel-registry/internal/fuel/application"
	fuel "fuel-registry/internal/fuel/domain"
	"fuel-registry/internal/fuel/query"
)

const (
	recordsPath   = "/api/v1/fuel-records"
	maxRecordBody = 1 << 20
)

// RecordsHandler provides the record list and CRUD endpoints.
type RecordsHandler struct {
	service     *fuelapp.Service
	dashboard   *fuelapp.Dashboard
	auditLogger audit.Logger
	logger      *zap.Logger
}

type listResponse struct {
	Rows  []fuel.Record   `json:"rows"`
	Total int             `json:"total"`
	State query.ViewState `json:"state"`
	Stats *query.Stats    `json:"stats"`
}

// NewRecordsHandler constructs a handler.
func NewRecordsHandler(service *fuelapp.Service, dashboard *fuelapp.Dashboard, auditLogger audit.Logger, logger *zap.Logger) (*RecordsHandler, error) {
	if service == nil || dashboard == nil {
		return nil, errors.New("fuel handler: nil service")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecordsHandler{service: service, dashboard: dashboard, auditLogger: auditLogger, logger: logger}, nil
}

// ServeHTTP handles /api/v1/fuel-records and /api/v1/fuel-records/{id}.
func (h *RecordsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, "service not ready", http.StatusServiceUnavailable)
		return
	}
	switch {
	case r.URL.Path == recordsPath:
		switch r.Method {
		case http.MethodGet:
			h.handleList(w, r)
		case http.MethodPost:
			h.handleCreate(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case strings.HasPrefix(r.URL.Path, recordsPath+"/"):
		id := strings.TrimPrefix(r.URL.Path, recordsPath+"/")
		if id == "" || strings.Contains(id, "/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		switch r.Method {
		case http.MethodGet:
			h.handleGet(w, r, id)
		case http.MethodPut:
			h.handleUpdate(w, r, id)
		case http.MethodDelete:
			h.handleDelete(w, r, id)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *RecordsHandler) handleList(w http.ResponseWriter, r *http.Request) {
	state := parseViewState(r)
	rows, stats, err := h.dashboard.Rows(r.Context(), state)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Rows: rows, Total: len(rows), State: state, Stats: stats})
}

func (h *RecordsHandler) handleGet(w http.ResponseWriter, r *http.Request, id string) {
	record, err := h.service.Get(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (h *RecordsHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	input, err := decodeInput(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	record, err := h.service.Create(r.Context(), input)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	logAudit(r, h.auditLogger, "fuel_record.create", record.ID, input)
	w.Header().Set("Location", recordsPath+"/"+record.ID)
	writeJSON(w, http.StatusCreated, record)
}

func (h *RecordsHandler) handleUpdate(w http.ResponseWriter, r *http.Request, id string) {
	input, err := decodeInput(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	record, err := h.service.Update(r.Context(), id, input)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	logAudit(r, h.auditLogger, "fuel_record.update", record.ID, input)
	writeJSON(w, http.StatusOK, record)
}

func (h *RecordsHandler) handleDelete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.service.Delete(r.Context(), id); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	logAudit(r, h.auditLogger, "fuel_record.delete", id, nil)
	w.WriteHeader(http.StatusNoContent)
}

func decodeInput(r *http.Request) (fuelapp.RecordInput, error) {
	var input fuelapp.RecordInput
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRecordBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&input); err != nil {
		return input, errors.New("invalid json body")
	}
	return input, nil
}
