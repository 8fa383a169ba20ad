package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/attendance-engine/internal/application"
)

type badgePresenter interface {
	PresentBadge(ctx context.Context, uid, room string) (application.BadgeResult, error)
}

// CheckHandler serves the badge endpoint consumed by card readers. The wire
// contract is a bare accept/reject flag: readers only flash green or red.
// Rejection reasons stay in the logs.
type CheckHandler struct {
	service   badgePresenter
	responder responder
	logger    *slog.Logger
}

func NewCheckHandler(service badgePresenter, logger *slog.Logger) *CheckHandler {
	base := defaultLogger(logger)
	return &CheckHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *CheckHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "CheckHandler", operation, attrs...)
}

func (h *CheckHandler) Check(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req checkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Check", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode check request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	uid := strings.TrimSpace(req.UID)
	room := strings.TrimSpace(req.Room)
	logger := h.log(r.Context(), "Check", "uid", uid, "room", room)

	result, err := h.service.PresentBadge(r.Context(), uid, room)
	if err != nil {
		if application.IsRejection(err) {
			logger.InfoContext(r.Context(), "badge rejected", "reason", application.ErrorKind(err))
			h.responder.writeJSON(r.Context(), w, http.StatusOK, checkResponse{Status: 0})
			return
		}
		logger.ErrorContext(r.Context(), "badge processing failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("action", result.Action).InfoContext(r.Context(), "badge accepted")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, checkResponse{Status: 1})
}

type checkRequest struct {
	UID  string `json:"uid"`
	Room string `json:"room"`
}

type checkResponse struct {
	Status int `json:"status"`
}
