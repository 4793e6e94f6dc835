package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	service "github.com/okian/forecasthub/internal/app"
	"github.com/okian/forecasthub/internal/domain/model"
	"github.com/okian/forecasthub/internal/domain/modification"
	"github.com/okian/forecasthub/internal/domain/types"
	"github.com/okian/forecasthub/pkg/metrics"
)

const maxBodyBytes = 1 << 20

// ModificationDependencies defines what batch submission needs.
type ModificationDependencies interface {
	SeenAndRecord(ctx context.Context, id string) bool
	Unrecord(ctx context.Context, id string)
	ApplyModifications(ctx context.Context, mods []model.Modification) (types.Outcome, error)
}

// modificationsRequest is the body of POST /modifications.
type modificationsRequest struct {
	RequestID     string                 `json:"request_id,omitempty"`
	Modifications []modification.Request `json:"modifications"`
}

type batchResponse struct {
	Status    string              `json:"status"`
	Duplicate bool                `json:"duplicate"`
	RequestID string              `json:"request_id,omitempty"`
	Version   uint64              `json:"version"`
	Applied   int                 `json:"applied"`
	Rejected  int                 `json:"rejected"`
	Results   []model.ApplyResult `json:"results"`
}

// ModificationsHandler handles batch submissions.
type ModificationsHandler struct {
	deps ModificationDependencies
}

// NewModificationsHandler creates a new modifications handler.
func NewModificationsHandler(deps ModificationDependencies) *ModificationsHandler {
	return &ModificationsHandler{deps: deps}
}

// HandlePostModifications handles POST /modifications requests.
// Invalid entries are reported per index; the rest apply as one batch.
func (h *ModificationsHandler) HandlePostModifications(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_modifications"
	ctx := r.Context()

	var req modificationsRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if req.Modifications == nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("missing modifications")))
		return
	}

	id := strings.TrimSpace(req.RequestID)
	if id != "" && h.deps.SeenAndRecord(ctx, id) {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", Duplicate: true})
		return
	}

	mods, indices, rejected := modification.ParseAll(req.Modifications)
	for _, rj := range rejected {
		metrics.RecordModificationRejected(rj.Reason)
	}

	out, err := h.deps.ApplyModifications(ctx, mods)
	if err != nil {
		if id != "" {
			h.deps.Unrecord(ctx, id)
		}
		status, code, kind := classify(err)
		writeError(w, status, code, WrapKind(op, kind, err))
		return
	}

	results := make([]model.ApplyResult, len(req.Modifications))
	for _, rj := range rejected {
		results[rj.Index] = rj
	}
	applied := 0
	for j, res := range out.Results {
		res.Index = indices[j]
		results[indices[j]] = res
		if res.Applied {
			applied++
		}
	}
	writeJSON(w, http.StatusOK, batchResponse{
		Status:    "applied",
		RequestID: id,
		Version:   out.Version,
		Applied:   applied,
		Rejected:  len(results) - applied,
		Results:   results,
	})
}

// classify maps hub errors to HTTP status, error code and kind.
func classify(err error) (int, string, error) {
	switch {
	case errors.Is(err, service.ErrBusy):
		return http.StatusTooManyRequests, "backpressure", ErrBackpressure
	case errors.Is(err, service.ErrNoBaseline):
		return http.StatusBadGateway, "upstream", ErrUpstream
	case errors.Is(err, service.ErrNotStarted),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "unavailable", ErrUnavailable
	default:
		return http.StatusInternalServerError, "internal", ErrInternal
	}
}
