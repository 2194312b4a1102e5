package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"fuel-registry/internal/audit"
	fuelapp "fuel-registry/internal/fuel/application"
	"fuel-registry/internal/fuel/interfaces"
	"fuel-registry/internal/observability/metrics"
)

const exportPrefix = "/api/v1/exports/fuel-records."

// ExportHandler serves the current view as CSV, XLSX or PDF.
type ExportHandler struct {
	dashboard   *fuelapp.Dashboard
	auditLogger audit.Logger
	logger      *zap.Logger
}

// NewExportHandler constructs a handler.
func NewExportHandler(dashboard *fuelapp.Dashboard, auditLogger audit.Logger, logger *zap.Logger) (*ExportHandler, error) {
	if dashboard == nil {
		return nil, errors.New("export handler: nil dashboard")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportHandler{
		dashboard:   dashboard,
		auditLogger: auditLogger,
		logger:      logger,
	}, nil
}

// ServeHTTP handles GET /api/v1/exports/fuel-records.{csv,xlsx,pdf}.
func (h *ExportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !strings.HasPrefix(r.URL.Path, exportPrefix) {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	format := strings.TrimPrefix(r.URL.Path, exportPrefix)
	switch format {
	case interfaces.FormatCSV, interfaces.FormatXLSX, interfaces.FormatPDF:
	default:
		w.WriteHeader(http.StatusNotFound)
		return
	}

	start := time.Now()
	result := metrics.ResultSuccess
	defer func() { metrics.ObserveExport(format, result, time.Since(start)) }()

	state := parseViewState(r)
	rows, stats, err := h.dashboard.Rows(r.Context(), state)
	if err != nil {
		result = metrics.ResultError
		respondServiceError(w, h.logger, err)
		return
	}
	currency, unit := h.dashboard.Currency()
	data, err := interfaces.Build(format, interfaces.ExportDocument{
		Variant:     h.dashboard.Variant(),
		State:       state,
		Rows:        rows,
		Stats:       stats,
		Currency:    currency,
		Unit:        unit,
		GeneratedAt: time.Now().UTC(),
	})
	if err != nil {
		result = metrics.ResultError
		respondServiceError(w, h.logger, err)
		return
	}

	logAudit(r, h.auditLogger, "fuel_record.export", "", map[string]any{
		"format": format,
		"filter": state.Filter,
		"rows":   len(rows),
	})
	w.Header().Set("Content-Type", interfaces.ContentType(format))
	w.Header().Set("Content-Disposition", "attachment; filename=\"fuel-records."+format+"\"")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
