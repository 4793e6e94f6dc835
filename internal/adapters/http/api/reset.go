package api

import (
	"context"
	"net/http"

	"github.com/okian/forecasthub/internal/domain/types"
)

// ResetDependencies defines what a reset needs.
type ResetDependencies interface {
	Reset(ctx context.Context) (types.Outcome, error)
}

type resetResponse struct {
	Status  string `json:"status"`
	Version uint64 `json:"version"`
}

// ResetHandler handles forecast resets.
type ResetHandler struct {
	deps ResetDependencies
}

// NewResetHandler creates a new reset handler.
func NewResetHandler(deps ResetDependencies) *ResetHandler {
	return &ResetHandler{deps: deps}
}

// HandleReset handles POST /reset requests.
func (h *ResetHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	const op = "api.reset"
	out, err := h.deps.Reset(r.Context())
	if err != nil {
		status, code, kind := classify(err)
		writeError(w, status, code, WrapKind(op, kind, err))
		return
	}
	writeJSON(w, http.StatusOK, resetResponse{Status: "reset", Version: out.Version})
}
