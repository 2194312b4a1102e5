package http

import (
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	fuelapp "fuel-registry/internal/fuel/application"
)

// DashboardHandler serves GET /api/v1/dashboard.
type DashboardHandler struct {
	dashboard *fuelapp.Dashboard
	now       func() time.Time
	logger    *zap.Logger
}

// NewDashboardHandler constructs a handler.
func NewDashboardHandler(dashboard *fuelapp.Dashboard, logger *zap.Logger) (*DashboardHandler, error) {
	if dashboard == nil {
		return nil, errors.New("dashboard handler: nil dashboard")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardHandler{
		dashboard: dashboard,
		now:       func() time.Time { return time.Now().UTC() },
		logger:    logger,
	}, nil
}

// ServeHTTP handles GET /api/v1/dashboard.
func (h *DashboardHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	asOf, err := parseAsOf(r, h.now())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	view, err := h.dashboard.Build(r.Context(), parseViewState(r), asOf)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
