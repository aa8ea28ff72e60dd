package services

import (
	"context"
	"testing"
	"time"

	"guardpost-backend/internal/models"
)

func newTestSweeper(store *mockStore) (*MissedShiftSweeper, *mockEvents) {
	events := &mockEvents{}
	return NewMissedShiftSweeper(store, store, events, nil), events
}

func scheduledShift(id string, status models.ShiftStatus, start time.Time) *models.Shift {
	s := testShift(id, status)
	s.ScheduledStart = start.Unix()
	s.ScheduledEnd = start.Add(8 * time.Hour).Unix()
	return s
}

func TestSweepMarksOverdueShifts(t *testing.T) {
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	store := newMockStore()
	// 20 minutes past start, never checked in: missed.
	store.addShift(scheduledShift("late-published", models.ShiftStatusPublished, now.Add(-20*time.Minute)))
	store.addShift(scheduledShift("late-accepted", models.ShiftStatusAccepted, now.Add(-20*time.Minute)))
	// Only 10 minutes past start: still inside the grace window.
	store.addShift(scheduledShift("in-grace", models.ShiftStatusAccepted, now.Add(-10*time.Minute)))
	// Starts in the future.
	store.addShift(scheduledShift("upcoming", models.ShiftStatusPublished, now.Add(2*time.Hour)))
	sweeper, events := newTestSweeper(store)

	if marked := sweeper.Sweep(context.Background(), now); marked != 2 {
		t.Fatalf("marked = %d, want 2", marked)
	}
	for _, id := range []string{"late-published", "late-accepted"} {
		if got := store.shiftSnapshot(id).Status; got != models.ShiftStatusMissed {
			t.Errorf("%s status = %s, want missed", id, got)
		}
	}
	if got := store.shiftSnapshot("in-grace").Status; got != models.ShiftStatusAccepted {
		t.Errorf("in-grace status = %s, want accepted", got)
	}
	if got := store.shiftSnapshot("upcoming").Status; got != models.ShiftStatusPublished {
		t.Errorf("upcoming status = %s, want published", got)
	}
	if n := events.count("guard:shift_missed"); n != 2 {
		t.Errorf("shift_missed notifications = %d, want 2", n)
	}

	// A second sweep over the same data changes nothing.
	if marked := sweeper.Sweep(context.Background(), now); marked != 0 {
		t.Errorf("second sweep marked = %d, want 0", marked)
	}
	if n := events.count("guard:shift_missed"); n != 2 {
		t.Errorf("notifications after second sweep = %d, want still 2", n)
	}
}

func TestSweepSkipsStartedShifts(t *testing.T) {
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	store := newMockStore()

	// Checked in late but checked in: active shifts are never candidates.
	active := scheduledShift("running", models.ShiftStatusActive, now.Add(-30*time.Minute))
	started := now.Add(-5 * time.Minute).Unix()
	active.ActualStart = &started
	store.addShift(active)

	// Already finished.
	store.addShift(scheduledShift("done", models.ShiftStatusCompleted, now.Add(-10*time.Hour)))
	sweeper, _ := newTestSweeper(store)

	if marked := sweeper.Sweep(context.Background(), now); marked != 0 {
		t.Fatalf("marked = %d, want 0", marked)
	}
	if got := store.shiftSnapshot("running").Status; got != models.ShiftStatusActive {
		t.Errorf("running status = %s, want active", got)
	}
}

func TestSweepLosesRaceToCheckIn(t *testing.T) {
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	store := newMockStore()
	store.addSite(testSite())
	store.addShift(scheduledShift("contested", models.ShiftStatusAccepted, now.Add(-20*time.Minute)))
	sweeper, _ := newTestSweeper(store)
	lifecycle, _ := newTestLifecycle(store)

	// The guard checks in between the sweeper's scan and its write. The
	// mark re-checks the start timestamp, so the check-in wins.
	coord := &Coordinate{Latitude: 51.5007, Longitude: -0.1246}
	if _, err := lifecycle.CheckIn(context.Background(), "contested", testGuardID, coord, now); err != nil {
		t.Fatalf("CheckIn: %v", err)
	}

	if marked := sweeper.Sweep(context.Background(), now); marked != 0 {
		t.Fatalf("marked = %d, want 0 after check-in", marked)
	}
	if got := store.shiftSnapshot("contested").Status; got != models.ShiftStatusActive {
		t.Errorf("status = %s, want active preserved", got)
	}
}
