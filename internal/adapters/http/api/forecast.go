package api

import (
	"context"
	"net/http"

	"github.com/okian/forecasthub/internal/domain/model"
	"github.com/okian/forecasthub/internal/domain/types"
)

// SnapshotProvider exposes the current forecast state.
type SnapshotProvider interface {
	Snapshot(ctx context.Context) model.Snapshot
}

// ForecastHandler handles forecast reads.
type ForecastHandler struct {
	deps SnapshotProvider
}

// NewForecastHandler creates a new forecast handler.
func NewForecastHandler(deps SnapshotProvider) *ForecastHandler {
	return &ForecastHandler{deps: deps}
}

// HandleGetForecast handles GET /forecast requests.
func (h *ForecastHandler) HandleGetForecast(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, types.NewForecastPayload(h.deps.Snapshot(r.Context())))
}
