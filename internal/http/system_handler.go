package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/attendance-engine/internal/application"
)

type systemService interface {
	SetEmergency(ctx context.Context, active bool) error
	SetTimeOffset(ctx context.Context, principal application.Principal, offset time.Duration) error
	Snapshot() application.SystemSnapshot
	Now() time.Time
}

// SystemHandler manages the simulated clock, emergency control, and the
// state snapshot observers poll for changes.
type SystemHandler struct {
	service   systemService
	responder responder
	logger    *slog.Logger
}

func NewSystemHandler(service systemService, logger *slog.Logger) *SystemHandler {
	base := defaultLogger(logger)
	return &SystemHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *SystemHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "SystemHandler", operation, attrs...)
}

// SetEmergency toggles emergency mode. The endpoint is open to the badge
// network: emergency activation must never be blocked on a login.
func (h *SystemHandler) SetEmergency(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	// Deployed panic buttons POST an empty body; that means activation.
	req := emergencyRequest{Active: true}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.log(r.Context(), "SetEmergency", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode emergency request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "SetEmergency", "active", req.Active)

	if err := h.service.SetEmergency(r.Context(), req.Active); err != nil {
		logger.ErrorContext(r.Context(), "emergency toggle failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "emergency mode updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, emergencyResponse{Active: req.Active})
}

// SetTimeOffset replaces the simulated-clock offset in seconds.
func (h *SystemHandler) SetTimeOffset(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req timeOffsetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "SetTimeOffset", "principal_uid", principal.UID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode offset request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "SetTimeOffset", "principal_uid", principal.UID, "offset_seconds", req.OffsetSeconds)

	if err := h.service.SetTimeOffset(r.Context(), principal, time.Duration(req.OffsetSeconds)*time.Second); err != nil {
		logger.ErrorContext(r.Context(), "offset update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "time offset updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, h.stateResponse())
}

// GetState returns the snapshot observers poll. Clients compare last_updated
// against their cached value and refresh when it moved.
func (h *SystemHandler) GetState(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, h.stateResponse())
}

func (h *SystemHandler) stateResponse() stateResponse {
	snapshot := h.service.Snapshot()
	return stateResponse{
		OffsetSeconds: int64(snapshot.TimeOffset / time.Second),
		EmergencyMode: snapshot.EmergencyMode,
		CurrentTime:   h.service.Now().UTC().Format(time.RFC3339Nano),
		LastUpdated:   snapshot.LastUpdated.UTC().Format(time.RFC3339Nano),
	}
}

type emergencyRequest struct {
	Active bool `json:"active"`
}

type emergencyResponse struct {
	Active bool `json:"active"`
}

type timeOffsetRequest struct {
	OffsetSeconds int64 `json:"offset_seconds"`
}

type stateResponse struct {
	OffsetSeconds int64  `json:"offset_seconds"`
	EmergencyMode bool   `json:"emergency_mode"`
	CurrentTime   string `json:"current_time"`
	LastUpdated   string `json:"last_updated"`
}
