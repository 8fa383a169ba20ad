package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/attendance-engine/internal/persistence"
)

func TestSystemService_NowAppliesOffset(t *testing.T) {
	t.Parallel()

	wall := time.Date(2025, 3, 12, 12, 0, 0, 0, time.UTC)
	svc := NewSystemService(&stateStoreStub{}, nil, func() time.Time { return wall }, nil)

	admin := Principal{UID: "admin-1", IsAdmin: true}
	if err := svc.SetTimeOffset(context.Background(), admin, 3*time.Hour); err != nil {
		t.Fatalf("SetTimeOffset failed: %v", err)
	}

	got := svc.Now()
	want := wall.Add(3 * time.Hour)
	if !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestSystemService_SetTimeOffsetRequiresAdmin(t *testing.T) {
	t.Parallel()

	svc := NewSystemService(&stateStoreStub{}, nil, nil, nil)

	err := svc.SetTimeOffset(context.Background(), Principal{UID: "user-1"}, time.Hour)
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestSystemService_LastUpdatedStrictlyIncreases(t *testing.T) {
	t.Parallel()

	// Frozen wall clock: the token must still advance on every bump.
	wall := time.Date(2025, 3, 12, 12, 0, 0, 0, time.UTC)
	store := &stateStoreStub{}
	svc := NewSystemService(store, nil, func() time.Time { return wall }, nil)

	ctx := context.Background()
	previous := svc.Snapshot().LastUpdated
	for i := 0; i < 5; i++ {
		if err := svc.MarkUpdated(ctx); err != nil {
			t.Fatalf("MarkUpdated failed: %v", err)
		}
		current := svc.Snapshot().LastUpdated
		if !current.After(previous) {
			t.Fatalf("expected strictly increasing token, got %v then %v", previous, current)
		}
		previous = current
	}
	if store.saves != 5 {
		t.Fatalf("expected 5 persisted states, got %d", store.saves)
	}
}

func TestSystemService_EmergencyActivationResetsStatusesWithoutEvents(t *testing.T) {
	t.Parallel()

	inside := staffUser("badge-1")
	inside.Status = persistence.StatusCheckedIn
	users := newUserStoreStub(inside, staffUser("badge-2"))
	svc := NewSystemService(&stateStoreStub{}, users, nil, nil)

	ctx := context.Background()
	if err := svc.SetEmergency(ctx, true); err != nil {
		t.Fatalf("SetEmergency failed: %v", err)
	}

	if !svc.EmergencyActive() {
		t.Fatalf("expected emergency mode active")
	}
	if users.get("badge-1").Status != persistence.StatusCheckedOut {
		t.Fatalf("expected forced checkout on activation")
	}
	if users.setStatusAllCalls != 1 {
		t.Fatalf("expected 1 bulk status reset, got %d", users.setStatusAllCalls)
	}

	// Deactivation flips the flag only.
	if err := svc.SetEmergency(ctx, false); err != nil {
		t.Fatalf("deactivation failed: %v", err)
	}
	if svc.EmergencyActive() {
		t.Fatalf("expected emergency mode inactive")
	}
	if users.setStatusAllCalls != 1 {
		t.Fatalf("deactivation must not reset statuses, got %d calls", users.setStatusAllCalls)
	}
}

func TestSystemService_LoadRestoresPersistedState(t *testing.T) {
	t.Parallel()

	persisted := persistence.SystemState{
		TimeOffsetSeconds: 7200,
		EmergencyMode:     true,
		LastUpdated:       time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	store := &stateStoreStub{state: persisted}
	wall := time.Date(2025, 3, 12, 12, 0, 0, 0, time.UTC)
	svc := NewSystemService(store, nil, func() time.Time { return wall }, nil)

	if err := svc.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	snapshot := svc.Snapshot()
	if snapshot.TimeOffset != 2*time.Hour {
		t.Fatalf("expected 2h offset, got %v", snapshot.TimeOffset)
	}
	if !snapshot.EmergencyMode {
		t.Fatalf("expected emergency mode restored")
	}
	if !svc.Now().Equal(wall.Add(2 * time.Hour)) {
		t.Fatalf("restored offset not applied to Now")
	}
}
