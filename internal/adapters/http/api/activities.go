package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	service "github.com/okian/paddock/internal/app"
	"github.com/okian/paddock/internal/domain/model"
	"github.com/okian/paddock/internal/domain/types"
	"github.com/okian/paddock/pkg/logger"
)

// ActivitiesHandler handles activity submissions.
type ActivitiesHandler struct {
	deps   ActivitySubmitter
	logger logger.Logger
}

// NewActivitiesHandler creates a new activities handler.
func NewActivitiesHandler(deps ActivitySubmitter, l logger.Logger) *ActivitiesHandler {
	return &ActivitiesHandler{deps: deps, logger: l}
}

// HandlePostActivity handles POST /activities requests.
func (h *ActivitiesHandler) HandlePostActivity(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_activity"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var payload types.ActivityPayload
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	activity, err := payload.ToModel()
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	receipt, err := h.deps.Submit(r.Context(), activity)
	switch {
	case err == nil:
	case errors.Is(err, model.ErrInvalidActivity):
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	case errors.Is(err, service.ErrBackpressure):
		writeError(w, http.StatusTooManyRequests, "backpressure", NewKind(op, ErrBackpressure))
		return
	case errors.Is(err, service.ErrNotStarted), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
		return
	default:
		err = WrapKind(op, ErrInternal, err)
		h.logger.Error(r.Context(), "activity submission failed", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "internal", err)
		return
	}

	if receipt.Duplicate {
		writeJSON(w, http.StatusOK, types.Ack{Status: "duplicate", Duplicate: true, ActivityID: receipt.ActivityID})
		return
	}
	writeJSON(w, http.StatusAccepted, types.Ack{Status: "accepted", ActivityID: receipt.ActivityID})
}
