package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"fuel-registry/internal/audit"
	fuelapp "fuel-registry/internal/fuel/application"
	fuel "fuel-registry/internal/fuel/domain"
)

const maxSnapshotBody = 16 << 20

// IngestHandler accepts full snapshots pushed by the upstream record store.
// Requests are authenticated by auth.IngestAuthMiddleware.
type IngestHandler struct {
	service     *fuelapp.Service
	auditLogger audit.Logger
	logger      *zap.Logger
}

// NewIngestHandler constructs a handler.
func NewIngestHandler(service *fuelapp.Service, auditLogger audit.Logger, logger *zap.Logger) (*IngestHandler, error) {
	if service == nil {
		return nil, errors.New("ingest handler: nil service")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IngestHandler{service: service, auditLogger: auditLogger, logger: logger}, nil
}

// ServeHTTP handles POST /ingest/snapshot with a JSON object of records keyed by id.
func (h *IngestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var snapshot fuel.Snapshot
	if err := json.NewDecoder(io.LimitReader(r.Body, maxSnapshotBody)).Decode(&snapshot); err != nil {
		http.Error(w, "invalid snapshot body", http.StatusBadRequest)
		return
	}
	accepted, err := h.service.ReplaceSnapshot(r.Context(), snapshot)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	logAudit(r, h.auditLogger, "fuel_record.replace", "", map[string]int{
		"received": len(snapshot),
		"accepted": accepted,
	})
	writeJSON(w, http.StatusAccepted, map[string]int{
		"received": len(snapshot),
		"accepted": accepted,
	})
}
