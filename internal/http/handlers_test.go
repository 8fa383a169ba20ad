package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/example/attendance-engine/internal/application"
	"github.com/example/attendance-engine/internal/payroll"
	"github.com/example/attendance-engine/internal/persistence"
)

type badgePresenterStub struct {
	result application.BadgeResult
	err    error

	lastUID  string
	lastRoom string
}

func (s *badgePresenterStub) PresentBadge(ctx context.Context, uid, room string) (application.BadgeResult, error) {
	s.lastUID = uid
	s.lastRoom = room
	if s.err != nil {
		return application.BadgeResult{}, s.err
	}
	return s.result, nil
}

type systemServiceStub struct {
	snapshot    application.SystemSnapshot
	now         time.Time
	emergencyOn *bool
	offsetErr   error
	lastOffset  time.Duration
}

func (s *systemServiceStub) SetEmergency(ctx context.Context, active bool) error {
	s.emergencyOn = &active
	return nil
}

func (s *systemServiceStub) SetTimeOffset(ctx context.Context, principal application.Principal, offset time.Duration) error {
	if s.offsetErr != nil {
		return s.offsetErr
	}
	s.lastOffset = offset
	return nil
}

func (s *systemServiceStub) Snapshot() application.SystemSnapshot { return s.snapshot }

func (s *systemServiceStub) Now() time.Time { return s.now }

type sessionValidatorStub struct {
	principal application.Principal
	err       error
}

func (s *sessionValidatorStub) ValidateSession(ctx context.Context, token string) (application.Principal, error) {
	if s.err != nil {
		return application.Principal{}, s.err
	}
	return s.principal, nil
}

func decodeBody[T any](t *testing.T, recorder *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(recorder.Body).Decode(&out); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	return out
}

func TestCheckHandler_AcceptAndReject(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantFlag   int
	}{
		{name: "accepted", wantStatus: http.StatusOK, wantFlag: 1},
		{name: "unknown badge", err: application.ErrUnknownBadge, wantStatus: http.StatusOK, wantFlag: 0},
		{name: "curfew", err: application.ErrCurfewLocked, wantStatus: http.StatusOK, wantFlag: 0},
		{name: "room not allowed", err: application.ErrRoomNotAllowed, wantStatus: http.StatusOK, wantFlag: 0},
		{name: "already completed", err: application.ErrAlreadyCompletedToday, wantStatus: http.StatusOK, wantFlag: 0},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			stub := &badgePresenterStub{
				result: application.BadgeResult{UID: "badge-1", Action: persistence.ActionIn, Status: persistence.StatusCheckedIn},
				err:    tc.err,
			}
			handler := NewCheckHandler(stub, nil)

			req := httptest.NewRequest(http.MethodPost, "/check", strings.NewReader(`{"uid":"badge-1","room":"lab"}`))
			recorder := httptest.NewRecorder()
			handler.Check(recorder, req)

			if recorder.Code != tc.wantStatus {
				t.Fatalf("expected status %d, got %d", tc.wantStatus, recorder.Code)
			}
			body := decodeBody[checkResponse](t, recorder)
			if body.Status != tc.wantFlag {
				t.Fatalf("expected flag %d, got %d", tc.wantFlag, body.Status)
			}
			if stub.lastUID != "badge-1" || stub.lastRoom != "lab" {
				t.Fatalf("unexpected forwarded arguments: uid=%q room=%q", stub.lastUID, stub.lastRoom)
			}
		})
	}
}

func TestCheckHandler_StorageErrorIs500(t *testing.T) {
	t.Parallel()

	stub := &badgePresenterStub{err: context.DeadlineExceeded}
	handler := NewCheckHandler(stub, nil)

	req := httptest.NewRequest(http.MethodPost, "/check", strings.NewReader(`{"uid":"badge-1","room":"lab"}`))
	recorder := httptest.NewRecorder()
	handler.Check(recorder, req)

	if recorder.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", recorder.Code)
	}
}

func TestCheckHandler_BadBody(t *testing.T) {
	t.Parallel()

	handler := NewCheckHandler(&badgePresenterStub{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/check", strings.NewReader(`not json`))
	recorder := httptest.NewRecorder()
	handler.Check(recorder, req)

	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", recorder.Code)
	}
}

func TestSystemHandler_EmergencyEmptyBodyActivates(t *testing.T) {
	t.Parallel()

	stub := &systemServiceStub{now: time.Date(2025, 3, 12, 12, 0, 0, 0, time.UTC)}
	handler := NewSystemHandler(stub, nil)

	req := httptest.NewRequest(http.MethodPost, "/emergency", nil)
	recorder := httptest.NewRecorder()
	handler.SetEmergency(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	if stub.emergencyOn == nil || !*stub.emergencyOn {
		t.Fatalf("expected emergency activation on empty body")
	}
}

func TestSystemHandler_EmergencyDeactivation(t *testing.T) {
	t.Parallel()

	stub := &systemServiceStub{now: time.Date(2025, 3, 12, 12, 0, 0, 0, time.UTC)}
	handler := NewSystemHandler(stub, nil)

	req := httptest.NewRequest(http.MethodPost, "/emergency", strings.NewReader(`{"active":false}`))
	recorder := httptest.NewRecorder()
	handler.SetEmergency(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	if stub.emergencyOn == nil || *stub.emergencyOn {
		t.Fatalf("expected emergency deactivation")
	}
}

func TestSystemHandler_GetState(t *testing.T) {
	t.Parallel()

	updated := time.Date(2025, 3, 12, 11, 0, 0, 0, time.UTC)
	stub := &systemServiceStub{
		snapshot: application.SystemSnapshot{
			TimeOffset:    2 * time.Hour,
			EmergencyMode: true,
			LastUpdated:   updated,
		},
		now: time.Date(2025, 3, 12, 14, 0, 0, 0, time.UTC),
	}
	handler := NewSystemHandler(stub, nil)

	req := httptest.NewRequest(http.MethodGet, "/system/state", nil)
	recorder := httptest.NewRecorder()
	handler.GetState(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	body := decodeBody[stateResponse](t, recorder)
	if body.OffsetSeconds != 7200 {
		t.Fatalf("expected 7200 offset seconds, got %d", body.OffsetSeconds)
	}
	if !body.EmergencyMode {
		t.Fatalf("expected emergency mode reported")
	}
	if body.LastUpdated != updated.Format(time.RFC3339Nano) {
		t.Fatalf("unexpected last_updated %q", body.LastUpdated)
	}
}

func TestSystemHandler_SetTimeOffsetForwardsPrincipal(t *testing.T) {
	t.Parallel()

	stub := &systemServiceStub{now: time.Date(2025, 3, 12, 12, 0, 0, 0, time.UTC)}
	handler := NewSystemHandler(stub, nil)

	req := httptest.NewRequest(http.MethodPut, "/system/time-offset", strings.NewReader(`{"offset_seconds":3600}`))
	req = req.WithContext(ContextWithPrincipal(req.Context(), application.Principal{UID: "admin-1", IsAdmin: true}))
	recorder := httptest.NewRecorder()
	handler.SetTimeOffset(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	if stub.lastOffset != time.Hour {
		t.Fatalf("expected 1h offset, got %v", stub.lastOffset)
	}
}

func TestSystemHandler_SetTimeOffsetUnauthorized(t *testing.T) {
	t.Parallel()

	stub := &systemServiceStub{offsetErr: application.ErrUnauthorized, now: time.Now()}
	handler := NewSystemHandler(stub, nil)

	req := httptest.NewRequest(http.MethodPut, "/system/time-offset", strings.NewReader(`{"offset_seconds":3600}`))
	recorder := httptest.NewRecorder()
	handler.SetTimeOffset(recorder, req)

	if recorder.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", recorder.Code)
	}
}

func TestRouter_CompatEmergencyRoute(t *testing.T) {
	t.Parallel()

	stub := &systemServiceStub{now: time.Now()}
	router := NewRouter(RouterConfig{System: NewSystemHandler(stub, nil)})

	for _, path := range []string{"/emergency", "/emegency"} {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{"active":true}`))
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)
		if recorder.Code != http.StatusOK {
			t.Fatalf("expected 200 on %s, got %d", path, recorder.Code)
		}
	}
}

func TestRouter_ProtectedRoutesRequireSession(t *testing.T) {
	t.Parallel()

	validator := &sessionValidatorStub{err: application.ErrUnauthorized}
	router := NewRouter(RouterConfig{
		Users:          NewUserHandler(userServiceStub{}, nil, nil),
		RequireSession: RequireSession(validator, nil),
	})

	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without session, got %d", recorder.Code)
	}
}

func TestRouter_CheckRouteIsOpen(t *testing.T) {
	t.Parallel()

	stub := &badgePresenterStub{result: application.BadgeResult{Action: persistence.ActionIn}}
	validator := &sessionValidatorStub{err: application.ErrUnauthorized}
	router := NewRouter(RouterConfig{
		Check:          NewCheckHandler(stub, nil),
		RequireSession: RequireSession(validator, nil),
	})

	req := httptest.NewRequest(http.MethodPost, "/check", strings.NewReader(`{"uid":"badge-1","room":"lab"}`))
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected open check endpoint, got %d", recorder.Code)
	}
}

type userServiceStub struct {
	users []persistence.User
	err   error
}

func (s userServiceStub) CreateUser(ctx context.Context, params application.CreateUserParams) (persistence.User, error) {
	if s.err != nil {
		return persistence.User{}, s.err
	}
	user := persistence.User{UID: params.Input.UID, Username: params.Input.Username, DisplayName: params.Input.DisplayName}
	return user, nil
}

func (s userServiceStub) UpdateUser(ctx context.Context, params application.UpdateUserParams) (persistence.User, error) {
	if s.err != nil {
		return persistence.User{}, s.err
	}
	return persistence.User{UID: params.UID}, nil
}

func (s userServiceStub) DeleteUser(ctx context.Context, principal application.Principal, uid string) error {
	return s.err
}

func (s userServiceStub) GetUser(ctx context.Context, principal application.Principal, uid string) (persistence.User, error) {
	if s.err != nil {
		return persistence.User{}, s.err
	}
	return persistence.User{UID: uid}, nil
}

func (s userServiceStub) ListUsers(ctx context.Context, principal application.Principal) ([]persistence.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.users, nil
}

type limitResetterStub struct {
	err     error
	lastUID string
}

func (s *limitResetterStub) ResetDailyLimit(ctx context.Context, principal application.Principal, uid string) error {
	s.lastUID = uid
	return s.err
}

func TestUserHandler_UnlockRoutesUID(t *testing.T) {
	t.Parallel()

	limits := &limitResetterStub{}
	validator := &sessionValidatorStub{principal: application.Principal{UID: "admin-1", IsAdmin: true}}
	router := NewRouter(RouterConfig{
		Users:          NewUserHandler(userServiceStub{}, limits, nil),
		RequireSession: RequireSession(validator, nil),
	})

	req := httptest.NewRequest(http.MethodPost, "/users/badge-1/unlock", nil)
	req.Header.Set("Authorization", "Bearer token")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", recorder.Code)
	}
	if limits.lastUID != "badge-1" {
		t.Fatalf("expected uid routed to reset, got %q", limits.lastUID)
	}
}

func TestUserHandler_CreateValidationErrors(t *testing.T) {
	t.Parallel()

	vErr := &application.ValidationError{FieldErrors: map[string]string{"username": "username is required"}}
	handler := NewUserHandler(userServiceStub{err: vErr}, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(`{}`))
	req = req.WithContext(ContextWithPrincipal(req.Context(), application.Principal{UID: "admin-1", IsAdmin: true}))
	recorder := httptest.NewRecorder()
	handler.Create(recorder, req)

	if recorder.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", recorder.Code)
	}
	body := decodeBody[errorResponse](t, recorder)
	if body.Errors["username"] != "username is required" {
		t.Fatalf("expected field error surfaced, got %v", body.Errors)
	}
}

type payrollServiceStub struct {
	earnings int64
	stats    application.DailyStats
	weekly   []application.DailyStats
	monthly  payroll.Breakdown
	err      error
}

func (s payrollServiceStub) ComputeEarnings(ctx context.Context, uid string, from, to time.Time) (int64, error) {
	return s.earnings, s.err
}

func (s payrollServiceStub) ComputeDailyStats(ctx context.Context, uid string, day time.Time) (application.DailyStats, error) {
	return s.stats, s.err
}

func (s payrollServiceStub) WeeklyHours(ctx context.Context, uid string) ([]application.DailyStats, error) {
	return s.weekly, s.err
}

func (s payrollServiceStub) MonthlyBreakdown(ctx context.Context, uid string, year int, month time.Month) (payroll.Breakdown, error) {
	return s.monthly, s.err
}

func TestPayrollHandler_Earnings(t *testing.T) {
	t.Parallel()

	handler := NewPayrollHandler(payrollServiceStub{earnings: 450000}, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/users/badge-1/earnings", nil)
	req = req.WithContext(ContextWithUserUID(req.Context(), "badge-1"))
	recorder := httptest.NewRecorder()
	handler.Earnings(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	body := decodeBody[earningsResponse](t, recorder)
	if body.Earnings != 450000 {
		t.Fatalf("expected 450000, got %d", body.Earnings)
	}
}

func TestPayrollHandler_DailyStatsRejectsBadDate(t *testing.T) {
	t.Parallel()

	handler := NewPayrollHandler(payrollServiceStub{}, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/users/badge-1/stats?date=yesterday", nil)
	req = req.WithContext(ContextWithUserUID(req.Context(), "badge-1"))
	recorder := httptest.NewRecorder()
	handler.DailyStats(recorder, req)

	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", recorder.Code)
	}
}

func TestPayrollHandler_MonthlyReportRequiresAdmin(t *testing.T) {
	t.Parallel()

	handler := NewPayrollHandler(payrollServiceStub{}, userServiceStub{}, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/reports/payroll.xlsx", nil)
	req = req.WithContext(ContextWithPrincipal(req.Context(), application.Principal{UID: "user-1"}))
	recorder := httptest.NewRecorder()
	handler.MonthlyReport(recorder, req)

	if recorder.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", recorder.Code)
	}
}

func TestPayrollHandler_MonthlyReportStreamsWorkbook(t *testing.T) {
	t.Parallel()

	users := userServiceStub{users: []persistence.User{{UID: "badge-1", DisplayName: "Alice Tran", HourlyRate: 50000}}}
	handler := NewPayrollHandler(payrollServiceStub{monthly: payroll.Breakdown{Hours: 8, Amount: 400000}}, users, func() time.Time {
		return time.Date(2025, 3, 12, 12, 0, 0, 0, time.UTC)
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/reports/payroll.xlsx?year=2025&month=3", nil)
	req = req.WithContext(ContextWithPrincipal(req.Context(), application.Principal{UID: "admin-1", IsAdmin: true}))
	recorder := httptest.NewRecorder()
	handler.MonthlyReport(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	if got := recorder.Header().Get("Content-Disposition"); !strings.Contains(got, "payroll_2025-03.xlsx") {
		t.Fatalf("unexpected content disposition %q", got)
	}
	if recorder.Body.Len() == 0 {
		t.Fatalf("expected workbook bytes")
	}
}
