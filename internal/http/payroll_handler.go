package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/example/attendance-engine/internal/application"
	"github.com/example/attendance-engine/internal/payroll"
	"github.com/example/attendance-engine/internal/persistence"
	"github.com/example/attendance-engine/internal/report"
)

type payrollService interface {
	ComputeEarnings(ctx context.Context, uid string, from, to time.Time) (int64, error)
	ComputeDailyStats(ctx context.Context, uid string, day time.Time) (application.DailyStats, error)
	WeeklyHours(ctx context.Context, uid string) ([]application.DailyStats, error)
	MonthlyBreakdown(ctx context.Context, uid string, year int, month time.Month) (payroll.Breakdown, error)
}

type reportUserLister interface {
	ListUsers(ctx context.Context, principal application.Principal) ([]persistence.User, error)
}

type PayrollHandler struct {
	service   payrollService
	users     reportUserLister
	now       func() time.Time
	responder responder
	logger    *slog.Logger
}

func NewPayrollHandler(service payrollService, users reportUserLister, now func() time.Time, logger *slog.Logger) *PayrollHandler {
	if now == nil {
		now = time.Now
	}
	base := defaultLogger(logger)
	return &PayrollHandler{service: service, users: users, now: now, responder: newResponder(base), logger: base}
}

func (h *PayrollHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "PayrollHandler", operation, attrs...)
}

// Earnings returns the user's accrued earnings. Optional from/to query
// parameters bound the period; without them the full log is priced.
func (h *PayrollHandler) Earnings(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	uid, ok := UserUIDFromContext(r.Context())
	if !ok || strings.TrimSpace(uid) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidUserUID)
		return
	}

	var from, to time.Time
	for _, bound := range []struct {
		name   string
		target *time.Time
	}{{"from", &from}, {"to", &to}} {
		raw := strings.TrimSpace(r.URL.Query().Get(bound.name))
		if raw == "" {
			continue
		}
		parsed, err := time.ParseInLocation("2006-01-02", raw, h.now().Location())
		if err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, fmt.Errorf("invalid %s %q, expected YYYY-MM-DD", bound.name, raw))
			return
		}
		*bound.target = parsed
	}

	earnings, err := h.service.ComputeEarnings(r.Context(), uid, from, to)
	if err != nil {
		h.log(r.Context(), "Earnings", "uid", uid).ErrorContext(r.Context(), "earnings computation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, earningsResponse{UID: uid, Earnings: earnings})
}

// DailyStats returns hours and earnings for one date. The date query
// parameter defaults to the current simulated day.
func (h *PayrollHandler) DailyStats(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	uid, ok := UserUIDFromContext(r.Context())
	if !ok || strings.TrimSpace(uid) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidUserUID)
		return
	}

	day := h.now()
	if raw := strings.TrimSpace(r.URL.Query().Get("date")); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, day.Location())
		if err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", raw))
			return
		}
		day = parsed
	}

	stats, err := h.service.ComputeDailyStats(r.Context(), uid, day)
	if err != nil {
		h.log(r.Context(), "DailyStats", "uid", uid).ErrorContext(r.Context(), "daily stats failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toDailyStatsDTO(stats))
}

// WeeklyStats returns the seven-day series ending today.
func (h *PayrollHandler) WeeklyStats(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	uid, ok := UserUIDFromContext(r.Context())
	if !ok || strings.TrimSpace(uid) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidUserUID)
		return
	}

	series, err := h.service.WeeklyHours(r.Context(), uid)
	if err != nil {
		h.log(r.Context(), "WeeklyStats", "uid", uid).ErrorContext(r.Context(), "weekly stats failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]dailyStatsDTO, 0, len(series))
	for _, stats := range series {
		out = append(out, toDailyStatsDTO(stats))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, weeklyStatsResponse{UID: uid, Days: out})
}

// MonthlyReport streams the XLSX payroll workbook for the requested month.
// Administrators only; year and month query parameters default to the
// current simulated month.
func (h *PayrollHandler) MonthlyReport(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil || h.users == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	if !principal.IsAdmin {
		h.responder.handleServiceError(r.Context(), w, application.ErrUnauthorized)
		return
	}

	now := h.now()
	year := now.Year()
	month := now.Month()
	if raw := strings.TrimSpace(r.URL.Query().Get("year")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, fmt.Errorf("invalid year %q", raw))
			return
		}
		year = parsed
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("month")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 12 {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, fmt.Errorf("invalid month %q", raw))
			return
		}
		month = time.Month(parsed)
	}

	logger := h.log(r.Context(), "MonthlyReport", "principal_uid", principal.UID, "year", year, "month", int(month))

	users, err := h.users.ListUsers(r.Context(), principal)
	if err != nil {
		logger.ErrorContext(r.Context(), "user list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	data := report.Payroll{Year: year, Month: month}
	for _, user := range users {
		breakdown, err := h.service.MonthlyBreakdown(r.Context(), user.UID, year, month)
		if err != nil {
			logger.ErrorContext(r.Context(), "monthly breakdown failed", "error", err, "uid", user.UID)
			h.responder.handleServiceError(r.Context(), w, err)
			return
		}
		data.Rows = append(data.Rows, report.Row{
			UID:         user.UID,
			DisplayName: user.DisplayName,
			Position:    user.Position,
			HourlyRate:  user.HourlyRate,
			Breakdown:   breakdown,
		})
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.Filename(data)))

	if err := report.WritePayrollXLSX(w, data); err != nil {
		logger.ErrorContext(r.Context(), "workbook generation failed", "error", err)
		return
	}
	logger.InfoContext(r.Context(), "payroll report generated", "users", len(data.Rows))
}

type earningsResponse struct {
	UID      string `json:"uid"`
	Earnings int64  `json:"earnings"`
}

type dailyStatsDTO struct {
	Date        string  `json:"date"`
	HoursWorked float64 `json:"hours_worked"`
	Earnings    int64   `json:"earnings"`
}

func toDailyStatsDTO(stats application.DailyStats) dailyStatsDTO {
	return dailyStatsDTO{
		Date:        stats.Date.Format("2006-01-02"),
		HoursWorked: stats.HoursWorked,
		Earnings:    stats.Earnings,
	}
}

type weeklyStatsResponse struct {
	UID  string          `json:"uid"`
	Days []dailyStatsDTO `json:"days"`
}
