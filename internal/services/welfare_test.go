package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"guardpost-backend/internal/models"
)

func activeWelfareShift(due time.Time) *models.Shift {
	s := testShift("shift-1", models.ShiftStatusActive)
	start := due.Add(-30 * time.Minute).Unix()
	s.ActualStart = &start
	s.WelfareIntervalMinutes = 30
	s.WelfareState = models.WelfarePending
	dueUnix := due.Unix()
	s.WelfareNextCheckDue = &dueUnix
	return s
}

func newTestMonitor(store *mockStore) (*WelfareMonitor, *mockEvents, *mockNotifier) {
	events := &mockEvents{}
	notifier := &mockNotifier{}
	return NewWelfareMonitor(store, store, store, events, notifier), events, notifier
}

func TestTickPromptSchedule(t *testing.T) {
	due := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	store := newMockStore()
	store.addShift(activeWelfareShift(due))
	store.tokens[testGuardID] = []string{"device-token"}
	monitor, events, notifier := newTestMonitor(store)

	// The moment the check falls due: first prompt, pending → overdue.
	monitor.Tick(context.Background(), due)
	if got := store.shiftSnapshot("shift-1").WelfareState; got != models.WelfareOverdue {
		t.Fatalf("state after first prompt = %s, want overdue", got)
	}
	if events.count("guard:welfare_prompt") != 1 {
		t.Errorf("prompts after due tick = %d, want 1", events.count("guard:welfare_prompt"))
	}

	// One minute overdue is not on the ladder; nothing new goes out.
	monitor.Tick(context.Background(), due.Add(1*time.Minute))
	if events.count("guard:welfare_prompt") != 1 {
		t.Errorf("prompts after off-schedule tick = %d, want still 1", events.count("guard:welfare_prompt"))
	}

	// Three minutes overdue is the next rung.
	monitor.Tick(context.Background(), due.Add(3*time.Minute))
	if events.count("guard:welfare_prompt") != 2 {
		t.Errorf("prompts after 3min tick = %d, want 2", events.count("guard:welfare_prompt"))
	}

	// The pending → overdue event is recorded once, on the first prompt only.
	evs := store.welfareEvents()
	if len(evs) != 1 {
		t.Fatalf("welfare events = %d, want 1", len(evs))
	}
	if evs[0].FromState != models.WelfarePending || evs[0].ToState != models.WelfareOverdue {
		t.Errorf("event transition %s → %s, want pending → overdue", evs[0].FromState, evs[0].ToState)
	}

	notifier.mu.Lock()
	pushes := len(notifier.sent)
	notifier.mu.Unlock()
	if pushes != 2 {
		t.Errorf("push notifications = %d, want 2", pushes)
	}
}

func TestTickRaisesAlarmOnce(t *testing.T) {
	due := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	store := newMockStore()
	store.addShift(activeWelfareShift(due))
	monitor, events, _ := newTestMonitor(store)

	// 16 minutes past the threshold: straight to alarm even though no
	// intermediate prompt ever went out (monitor downtime case).
	monitor.Tick(context.Background(), due.Add(16*time.Minute))
	if got := store.shiftSnapshot("shift-1").WelfareState; got != models.WelfareAlert {
		t.Fatalf("state = %s, want alert", got)
	}
	if events.count("welfare_alarm") != 1 {
		t.Errorf("manager alarms = %d, want 1", events.count("welfare_alarm"))
	}
	if events.count("guard:welfare_alarm") != 1 {
		t.Errorf("guard alarms = %d, want 1", events.count("guard:welfare_alarm"))
	}

	// Alert is terminal: subsequent ticks find nothing to do.
	monitor.Tick(context.Background(), due.Add(17*time.Minute))
	monitor.Tick(context.Background(), due.Add(30*time.Minute))
	if events.count("welfare_alarm") != 1 {
		t.Errorf("alarms after re-ticks = %d, want still 1", events.count("welfare_alarm"))
	}
}

func TestTickIgnoresNotYetDue(t *testing.T) {
	due := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	store := newMockStore()
	store.addShift(activeWelfareShift(due))
	monitor, events, _ := newTestMonitor(store)

	monitor.Tick(context.Background(), due.Add(-1*time.Minute))
	if n := events.count("guard:welfare_prompt"); n != 0 {
		t.Errorf("prompts before due time = %d, want 0", n)
	}
	if got := store.shiftSnapshot("shift-1").WelfareState; got != models.WelfarePending {
		t.Errorf("state = %s, want pending untouched", got)
	}
}

func TestConfirmReschedulesNextCheck(t *testing.T) {
	due := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	store := newMockStore()
	store.addShift(activeWelfareShift(due))
	monitor, events, _ := newTestMonitor(store)

	before := time.Now().Unix()
	coord := &Coordinate{Latitude: 51.5007, Longitude: -0.1246}
	if err := monitor.Confirm(context.Background(), "shift-1", testGuardID, coord); err != nil {
		t.Fatalf("Confirm: %v", err)
	}

	s := store.shiftSnapshot("shift-1")
	if s.WelfareState != models.WelfarePending {
		t.Errorf("state = %s, want pending", s.WelfareState)
	}
	wantDue := before + 30*60
	if s.WelfareNextCheckDue == nil || *s.WelfareNextCheckDue < wantDue {
		t.Errorf("next due = %v, want >= %d", s.WelfareNextCheckDue, wantDue)
	}
	if events.count("welfare_confirmed") != 1 {
		t.Errorf("welfare_confirmed = %d, want 1", events.count("welfare_confirmed"))
	}

	evs := store.welfareEvents()
	if len(evs) != 1 {
		t.Fatalf("welfare events = %d, want 1", len(evs))
	}
	if evs[0].Latitude == nil || *evs[0].Latitude != coord.Latitude {
		t.Error("confirmation location not recorded")
	}
}

func TestConfirmFromOverdue(t *testing.T) {
	due := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	store := newMockStore()
	s := activeWelfareShift(due)
	s.WelfareState = models.WelfareOverdue
	store.addShift(s)
	monitor, _, _ := newTestMonitor(store)

	if err := monitor.Confirm(context.Background(), "shift-1", testGuardID, nil); err != nil {
		t.Fatalf("Confirm from overdue: %v", err)
	}
	if got := store.shiftSnapshot("shift-1").WelfareState; got != models.WelfarePending {
		t.Errorf("state = %s, want pending", got)
	}
}

func TestConfirmRejections(t *testing.T) {
	due := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

	t.Run("alert is terminal", func(t *testing.T) {
		store := newMockStore()
		s := activeWelfareShift(due)
		s.WelfareState = models.WelfareAlert
		store.addShift(s)
		monitor, _, _ := newTestMonitor(store)

		if err := monitor.Confirm(context.Background(), "shift-1", testGuardID, nil); !errors.Is(err, ErrConflict) {
			t.Errorf("err = %v, want ErrConflict", err)
		}
	})

	t.Run("wrong guard", func(t *testing.T) {
		store := newMockStore()
		store.addShift(activeWelfareShift(due))
		monitor, _, _ := newTestMonitor(store)

		if err := monitor.Confirm(context.Background(), "shift-1", "somebody-else", nil); !errors.Is(err, ErrForbidden) {
			t.Errorf("err = %v, want ErrForbidden", err)
		}
	})

	t.Run("welfare disabled", func(t *testing.T) {
		store := newMockStore()
		s := testShift("shift-1", models.ShiftStatusActive)
		store.addShift(s)
		monitor, _, _ := newTestMonitor(store)

		if err := monitor.Confirm(context.Background(), "shift-1", testGuardID, nil); !errors.Is(err, ErrConflict) {
			t.Errorf("err = %v, want ErrConflict", err)
		}
	})

	t.Run("shift not active", func(t *testing.T) {
		store := newMockStore()
		s := activeWelfareShift(due)
		s.Status = models.ShiftStatusCompleted
		store.addShift(s)
		monitor, _, _ := newTestMonitor(store)

		if err := monitor.Confirm(context.Background(), "shift-1", testGuardID, nil); !errors.Is(err, ErrConflict) {
			t.Errorf("err = %v, want ErrConflict", err)
		}
	})
}
