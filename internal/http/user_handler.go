package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/attendance-engine/internal/application"
	"github.com/example/attendance-engine/internal/persistence"
)

type userService interface {
	CreateUser(ctx context.Context, params application.CreateUserParams) (persistence.User, error)
	UpdateUser(ctx context.Context, params application.UpdateUserParams) (persistence.User, error)
	DeleteUser(ctx context.Context, principal application.Principal, uid string) error
	GetUser(ctx context.Context, principal application.Principal, uid string) (persistence.User, error)
	ListUsers(ctx context.Context, principal application.Principal) ([]persistence.User, error)
}

type dailyLimitResetter interface {
	ResetDailyLimit(ctx context.Context, principal application.Principal, uid string) error
}

type UserHandler struct {
	service   userService
	limits    dailyLimitResetter
	responder responder
	logger    *slog.Logger
}

func NewUserHandler(service userService, limits dailyLimitResetter, logger *slog.Logger) *UserHandler {
	base := defaultLogger(logger)
	return &UserHandler{service: service, limits: limits, responder: newResponder(base), logger: base}
}

func (h *UserHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "UserHandler", operation, attrs...)
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req userRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "principal_uid", principal.UID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode user request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create", "principal_uid", principal.UID)

	user, err := h.service.CreateUser(r.Context(), application.CreateUserParams{
		Principal: principal,
		Input:     req.toInput(),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "user creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("uid", user.UID).InfoContext(r.Context(), "user created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, userResponse{User: toUserDTO(user)})
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	uid, ok := UserUIDFromContext(r.Context())
	if !ok || strings.TrimSpace(uid) == "" {
		h.log(r.Context(), "Update", "error_kind", "bad_request").ErrorContext(r.Context(), "missing uid for update")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidUserUID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req userRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Update", "principal_uid", principal.UID, "uid", uid, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode user update", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Update", "principal_uid", principal.UID, "uid", uid)

	user, err := h.service.UpdateUser(r.Context(), application.UpdateUserParams{
		Principal: principal,
		UID:       uid,
		Input:     req.toInput(),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "user update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "user updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, userResponse{User: toUserDTO(user)})
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	uid, ok := UserUIDFromContext(r.Context())
	if !ok || strings.TrimSpace(uid) == "" {
		h.log(r.Context(), "Delete", "error_kind", "bad_request").ErrorContext(r.Context(), "missing uid for delete")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidUserUID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Delete", "principal_uid", principal.UID, "uid", uid)
	if err := h.service.DeleteUser(r.Context(), principal, uid); err != nil {
		logger.ErrorContext(r.Context(), "user delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "user deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	uid, ok := UserUIDFromContext(r.Context())
	if !ok || strings.TrimSpace(uid) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidUserUID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	user, err := h.service.GetUser(r.Context(), principal, uid)
	if err != nil {
		h.log(r.Context(), "Get", "principal_uid", principal.UID, "uid", uid).ErrorContext(r.Context(), "user lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, userResponse{User: toUserDTO(user)})
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "List", "principal_uid", principal.UID)

	users, err := h.service.ListUsers(r.Context(), principal)
	if err != nil {
		logger.ErrorContext(r.Context(), "user list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]userDTO, 0, len(users))
	for _, user := range users {
		out = append(out, toUserDTO(user))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, userListResponse{Users: out})
}

// Unlock arms the one-shot manual admission override for a user and clears
// today's completed cycle.
func (h *UserHandler) Unlock(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.limits == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	uid, ok := UserUIDFromContext(r.Context())
	if !ok || strings.TrimSpace(uid) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidUserUID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Unlock", "principal_uid", principal.UID, "uid", uid)

	if err := h.limits.ResetDailyLimit(r.Context(), principal, uid); err != nil {
		logger.ErrorContext(r.Context(), "daily limit reset failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "daily limit reset")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type userRequest struct {
	Username     string   `json:"username"`
	Password     string   `json:"password"`
	DisplayName  string   `json:"display_name"`
	UID          string   `json:"uid"`
	Role         string   `json:"role"`
	Position     string   `json:"position"`
	HourlyRate   int64    `json:"hourly_rate"`
	AllowedRooms []string `json:"allowed_rooms"`
}

func (r userRequest) toInput() application.UserInput {
	return application.UserInput{
		Username:     r.Username,
		Password:     r.Password,
		DisplayName:  r.DisplayName,
		UID:          r.UID,
		Role:         r.Role,
		Position:     r.Position,
		HourlyRate:   r.HourlyRate,
		AllowedRooms: r.AllowedRooms,
	}
}

type userDTO struct {
	UID          string   `json:"uid"`
	Username     string   `json:"username"`
	DisplayName  string   `json:"display_name"`
	Role         string   `json:"role"`
	Position     string   `json:"position"`
	HourlyRate   int64    `json:"hourly_rate"`
	AllowedRooms []string `json:"allowed_rooms"`
	Status       string   `json:"status"`
	IgnoreLimit  bool     `json:"ignore_limit"`
	CreatedAt    string   `json:"created_at"`
	UpdatedAt    string   `json:"updated_at"`
}

func toUserDTO(user persistence.User) userDTO {
	return userDTO{
		UID:          user.UID,
		Username:     user.Username,
		DisplayName:  user.DisplayName,
		Role:         user.Role,
		Position:     user.Position,
		HourlyRate:   user.HourlyRate,
		AllowedRooms: user.AllowedRooms,
		Status:       string(user.Status),
		IgnoreLimit:  user.IgnoreLimit,
		CreatedAt:    user.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:    user.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

type userResponse struct {
	User userDTO `json:"user"`
}

type userListResponse struct {
	Users []userDTO `json:"users"`
}
