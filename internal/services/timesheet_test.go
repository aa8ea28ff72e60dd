package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"guardpost-backend/internal/models"
)

func completedShiftFixture(store *mockStore) {
	s := testShift("shift-1", models.ShiftStatusCompleted)
	start := time.Date(2025, 6, 2, 9, 4, 0, 0, time.UTC).Unix()
	end := time.Date(2025, 6, 2, 17, 0, 0, 0, time.UTC).Unix()
	s.ActualStart = &start
	s.ActualEnd = &end
	s.BreakMinutes = 30
	store.addShift(s)
}

func TestDeriveTimesheet(t *testing.T) {
	store := newMockStore()
	completedShiftFixture(store)
	deriver := NewTimesheetDeriver(store)

	ts, created, err := deriver.Derive(context.Background(), "shift-1")
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	if !created {
		t.Fatal("first derivation should report created")
	}
	if ts.ShiftID != "shift-1" || ts.GuardID != testGuardID || ts.SiteID != testSiteID {
		t.Errorf("timesheet identity wrong: %+v", ts)
	}
	// 09:04–17:00 is 476 minutes, minus the 30 minute break.
	if ts.PayableMinutes != 446 {
		t.Errorf("payable = %d, want 446", ts.PayableMinutes)
	}
	if !store.shiftSnapshot("shift-1").TimesheetGenerated {
		t.Error("derivation flag not set on shift")
	}

	again, created, err := deriver.Derive(context.Background(), "shift-1")
	if err != nil {
		t.Fatalf("repeat Derive: %v", err)
	}
	if created {
		t.Error("repeat derivation must not create a second timesheet")
	}
	if again.ID != ts.ID {
		t.Errorf("repeat returned a different timesheet: %s vs %s", again.ID, ts.ID)
	}
}

func TestDeriveTimesheetConcurrent(t *testing.T) {
	store := newMockStore()
	completedShiftFixture(store)
	deriver := NewTimesheetDeriver(store)

	const callers = 12
	var wg sync.WaitGroup
	createdFlags := make([]bool, callers)
	ids := make([]string, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ts, created, err := deriver.Derive(context.Background(), "shift-1")
			if err != nil {
				t.Errorf("Derive: %v", err)
				return
			}
			createdFlags[i] = created
			ids[i] = ts.ID
		}(i)
	}
	wg.Wait()

	creates := 0
	for i, c := range createdFlags {
		if c {
			creates++
		}
		if ids[i] != ids[0] {
			t.Errorf("caller %d saw timesheet %s, caller 0 saw %s", i, ids[i], ids[0])
		}
	}
	if creates != 1 {
		t.Fatalf("%d callers reported created, want exactly 1", creates)
	}
}

func TestDeriveTimesheetNotCompleted(t *testing.T) {
	store := newMockStore()
	store.addShift(testShift("shift-1", models.ShiftStatusActive))
	deriver := NewTimesheetDeriver(store)

	if _, _, err := deriver.Derive(context.Background(), "shift-1"); !errors.Is(err, ErrConflict) {
		t.Errorf("err = %v, want ErrConflict", err)
	}
}

func TestDeriveTimesheetUnknownShift(t *testing.T) {
	deriver := NewTimesheetDeriver(newMockStore())

	if _, _, err := deriver.Derive(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
