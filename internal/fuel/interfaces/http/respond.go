package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"fuel-registry/internal/audit"
	"fuel-registry/internal/auth"
	fuelapp "fuel-registry/internal/fuel/application"
	fuel "fuel-registry/internal/fuel/domain"
	"fuel-registry/internal/fuel/query"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondServiceError(w http.ResponseWriter, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, fuel.ErrRecordNotFound):
		http.Error(w, "record not found", http.StatusNotFound)
	case errors.Is(err, fuel.ErrInvalidRecord),
		errors.Is(err, fuel.ErrMalformedPrice),
		errors.Is(err, fuelapp.ErrLabelImmutable),
		errors.Is(err, fuelapp.ErrTypeNotAllowed):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		logger.Error("fuel request failed", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// parseViewState reads q, sort, dir and selected. Unknown sort keys leave the
// rows in store order.
func parseViewState(r *http.Request) query.ViewState {
	values := r.URL.Query()
	state := query.ViewState{
		Filter:     values.Get("q"),
		SelectedID: strings.TrimSpace(values.Get("selected")),
	}
	if key, ok := query.ParseSortKey(values.Get("sort")); ok {
		state.Sort = query.SortDirective{Key: key, Direction: query.ParseDirection(values.Get("dir"))}
	}
	return state
}

func parseAsOf(r *http.Request, now time.Time) (time.Time, error) {
	value := r.URL.Query().Get("as_of")
	if value == "" {
		return now, nil
	}
	parsed, err := fuel.ParseTimestamp(value)
	if err != nil {
		return time.Time{}, errors.New("as_of must be RFC3339 or YYYY-MM-DD")
	}
	return parsed, nil
}

func logAudit(r *http.Request, logger audit.Logger, action, resourceID string, metadata any) {
	if logger == nil {
		return
	}
	var meta []byte
	if metadata != nil {
		meta, _ = json.Marshal(metadata)
	}
	_ = logger.Log(r.Context(), audit.Entry{
		Actor:         auth.SubjectFromContext(r.Context()),
		Role:          string(auth.RoleFromContext(r.Context())),
		Action:        action,
		ResourceType:  "fuel_record",
		ResourceID:    resourceID,
		Metadata:      meta,
		PayloadDigest: audit.DigestJSON(meta),
		IP:            audit.ClientIP(r),
		UserAgent:     r.UserAgent(),
	})
}
