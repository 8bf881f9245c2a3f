package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	service "github.com/okian/paddock/internal/app"
	"github.com/okian/paddock/internal/domain/types"
	"github.com/okian/paddock/pkg/logger"
)

// RecoveryHandler handles recommendation requests.
type RecoveryHandler struct {
	deps   Recommender
	logger logger.Logger
}

// NewRecoveryHandler creates a new recovery handler.
func NewRecoveryHandler(deps Recommender, l logger.Logger) *RecoveryHandler {
	return &RecoveryHandler{deps: deps, logger: l}
}

// HandlePostRecovery handles POST /recovery requests.
func (h *RecoveryHandler) HandlePostRecovery(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_recovery"
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost+", "+http.MethodOptions)
		h.fail(r.Context(), w, http.StatusMethodNotAllowed, "method not allowed", NewKind(op, ErrBadRequest))
		return
	}

	var req types.RecoveryRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.fail(r.Context(), w, http.StatusBadRequest, "invalid JSON body", WrapKind(op, ErrBadRequest, err))
		return
	}

	days := h.deps.LookbackDays()
	if req.Days != nil {
		days = *req.Days
	}

	rec, err := h.deps.Recommend(r.Context(), req.HorseID, days)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, types.RecoveryResponse{Success: true, Data: &rec})
	case errors.Is(err, service.ErrMissingHorseID), errors.Is(err, service.ErrInvalidWindow):
		h.fail(r.Context(), w, http.StatusBadRequest, err.Error(), WrapKind(op, ErrBadRequest, err))
	case errors.Is(err, service.ErrNotStarted):
		h.fail(r.Context(), w, http.StatusServiceUnavailable, err.Error(), WrapKind(op, ErrUnavailable, err))
	default:
		err = WrapKind(op, ErrInternal, err)
		h.logger.Error(r.Context(), "recommendation failed",
			logger.String("horse_id", req.HorseID),
			logger.Error(err),
		)
		h.fail(r.Context(), w, http.StatusInternalServerError, "failed to compute recommendation", err)
	}
}

func (h *RecoveryHandler) fail(ctx context.Context, w http.ResponseWriter, status int, msg string, err error) {
	h.logger.Debug(ctx, "recovery request rejected", logger.Int("status", status), logger.Error(err))
	writeJSON(w, status, types.RecoveryResponse{Success: false, Error: msg})
}
