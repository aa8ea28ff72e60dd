package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"guardpost-backend/internal/models"
)

const (
	// WelfareTickInterval is the single global scan cadence; there are no
	// per-shift timers, a restart just resumes the sweep.
	WelfareTickInterval = 60 * time.Second

	// WelfareAlertThresholdMinutes is how long a check may stay unanswered
	// before the sub-state escalates to alert.
	WelfareAlertThresholdMinutes = 15

	// WelfareResponseTimeout is the window a prompted guard has to confirm
	// safety before escalation continues.
	WelfareResponseTimeout = 15 * time.Minute
)

// welfarePromptSchedule is the escalation ladder: a prompt goes out when the
// check is exactly this many whole minutes overdue.
var welfarePromptSchedule = []int{0, 3, 5, 7, 10, 12, 15}

// WelfareMonitor drives the per-shift welfare sub-state machine
// (pending → overdue → alert) from a fixed-interval scan of active shifts.
// State is persisted after every shift's evaluation, so a crash mid-scan only
// re-evaluates; the conditional transition predicate never escalates past
// alert twice.
type WelfareMonitor struct {
	store    WelfareStore
	shifts   ShiftStore
	guards   GuardResolver
	events   EventPublisher
	notifier Notifier
	interval time.Duration
}

// NewWelfareMonitor wires the monitor. notifier may be nil (push disabled).
func NewWelfareMonitor(store WelfareStore, shifts ShiftStore, guards GuardResolver, events EventPublisher, notifier Notifier) *WelfareMonitor {
	return &WelfareMonitor{
		store:    store,
		shifts:   shifts,
		guards:   guards,
		events:   events,
		notifier: notifier,
		interval: WelfareTickInterval,
	}
}

// Run scans until ctx is cancelled
func (m *WelfareMonitor) Run(ctx context.Context) {
	log.Printf("🛡️  Welfare monitor started (every %s)", m.interval)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("🛡️  Welfare monitor stopped")
			return
		case t := <-ticker.C:
			m.Tick(ctx, t)
		}
	}
}

// Tick evaluates every active, welfare-enabled shift whose check is due.
// Per-shift failures are logged and the scan continues.
func (m *WelfareMonitor) Tick(ctx context.Context, now time.Time) {
	due, err := m.store.ListWelfareDue(ctx, now.Unix())
	if err != nil {
		log.Printf("❌ Welfare scan failed: %v", err)
		return
	}

	for i := range due {
		shift := due[i]
		if err := m.evaluate(ctx, &shift, now); err != nil {
			log.Printf("❌ Welfare evaluation failed for shift %s: %v", shift.ID, err)
		}
	}
}

func (m *WelfareMonitor) evaluate(ctx context.Context, shift *models.Shift, now time.Time) error {
	if shift.WelfareNextCheckDue == nil {
		return nil
	}
	overdueMinutes := int((now.Unix() - *shift.WelfareNextCheckDue) / 60)
	if overdueMinutes < 0 {
		return nil
	}

	if overdueMinutes >= WelfareAlertThresholdMinutes {
		return m.raiseAlarm(ctx, shift, now, overdueMinutes)
	}

	if !promptDue(overdueMinutes) {
		return nil
	}
	return m.sendPrompt(ctx, shift, now, overdueMinutes)
}

// sendPrompt asks the guard to confirm safety and moves pending → overdue on
// the first unanswered prompt
func (m *WelfareMonitor) sendPrompt(ctx context.Context, shift *models.Shift, now time.Time, overdueMinutes int) error {
	ok, err := m.store.TransitionWelfare(ctx, shift.ID,
		[]models.WelfareState{models.WelfarePending, models.WelfareOverdue},
		models.WelfareOverdue, nil, now.Unix())
	if err != nil {
		return err
	}
	if !ok {
		// Shift left the active state or already alerted; nothing to prompt.
		return nil
	}

	if shift.WelfareState == models.WelfarePending {
		note := fmt.Sprintf("welfare check unanswered for %d minute(s)", overdueMinutes)
		if err := m.store.AppendWelfareEvent(ctx, &models.WelfareEvent{
			ShiftID:   shift.ID,
			GuardID:   shift.GuardID,
			FromState: models.WelfarePending,
			ToState:   models.WelfareOverdue,
			Note:      &note,
			CreatedAt: now.Unix(),
		}); err != nil {
			log.Printf("⚠️  Failed to record welfare event for shift %s: %v", shift.ID, err)
		}
	}

	respondBy := now.Add(WelfareResponseTimeout).Unix()
	m.events.EmitToGuard(shift.GuardID, "welfare_prompt", map[string]interface{}{
		"shift_id":        shift.ID,
		"overdue_minutes": overdueMinutes,
		"respond_by":      respondBy,
	})
	m.push(ctx, shift.GuardID, "Welfare Check",
		"Please confirm you are safe. Tap to respond.",
		map[string]string{
			"type":     "welfare_prompt",
			"shift_id": shift.ID,
		})

	log.Printf("🛡️  Welfare prompt sent: shift %s, guard %s (%d min overdue)", shift.ID, shift.GuardID, overdueMinutes)
	return nil
}

// raiseAlarm escalates to the terminal alert state and broadcasts to every
// observer. The conditional transition guarantees exactly one alarm per
// shift: a re-scan after a crash, or the next tick, finds the row already in
// alert and does nothing.
func (m *WelfareMonitor) raiseAlarm(ctx context.Context, shift *models.Shift, now time.Time, overdueMinutes int) error {
	ok, err := m.store.TransitionWelfare(ctx, shift.ID,
		[]models.WelfareState{models.WelfarePending, models.WelfareOverdue},
		models.WelfareAlert, nil, now.Unix())
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	note := fmt.Sprintf("no welfare response for %d minute(s)", overdueMinutes)
	if err := m.store.AppendWelfareEvent(ctx, &models.WelfareEvent{
		ShiftID:   shift.ID,
		GuardID:   shift.GuardID,
		FromState: shift.WelfareState,
		ToState:   models.WelfareAlert,
		Note:      &note,
		CreatedAt: now.Unix(),
	}); err != nil {
		log.Printf("⚠️  Failed to record welfare event for shift %s: %v", shift.ID, err)
	}

	payload := map[string]interface{}{
		"shift_id":        shift.ID,
		"guard_id":        shift.GuardID,
		"site_id":         shift.SiteID,
		"overdue_minutes": overdueMinutes,
		"raised_at":       now.Unix(),
	}
	m.events.Emit("welfare_alarm", payload)
	m.events.EmitToGuard(shift.GuardID, "welfare_alarm", payload)
	m.push(ctx, shift.GuardID, "WELFARE ALARM",
		"You have not responded to welfare checks. Control room has been alerted.",
		map[string]string{
			"type":     "welfare_alarm",
			"shift_id": shift.ID,
		})

	log.Printf("🚨 WELFARE ALARM: shift %s, guard %s unresponsive for %d minutes", shift.ID, shift.GuardID, overdueMinutes)
	return nil
}

// Confirm records a guard's safety confirmation and schedules the next check.
// An alert is terminal here; clearing it is a control-room action outside
// this service.
func (m *WelfareMonitor) Confirm(ctx context.Context, shiftID, guardID string, coord *Coordinate) error {
	shift, err := m.shifts.GetShift(ctx, shiftID)
	if err != nil {
		return err
	}
	if shift.GuardID != guardID {
		return fmt.Errorf("%w: shift %s is not assigned to guard %s", ErrForbidden, shiftID, guardID)
	}
	if shift.Status != models.ShiftStatusActive || !shift.WelfareEnabled() {
		return fmt.Errorf("%w: no welfare check to confirm on shift %s", ErrConflict, shiftID)
	}
	if shift.WelfareState == models.WelfareAlert {
		return fmt.Errorf("%w: shift %s is in alarm state and must be cleared by control", ErrConflict, shiftID)
	}

	now := time.Now()
	nextDue := now.Unix() + int64(shift.WelfareIntervalMinutes)*60
	ok, err := m.store.TransitionWelfare(ctx, shiftID,
		[]models.WelfareState{models.WelfarePending, models.WelfareOverdue},
		models.WelfarePending, &nextDue, now.Unix())
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: welfare state changed before confirmation", ErrConflict)
	}

	ev := &models.WelfareEvent{
		ShiftID:   shiftID,
		GuardID:   guardID,
		FromState: shift.WelfareState,
		ToState:   models.WelfarePending,
		CreatedAt: now.Unix(),
	}
	if coord != nil {
		ev.Latitude = &coord.Latitude
		ev.Longitude = &coord.Longitude
	}
	if err := m.store.AppendWelfareEvent(ctx, ev); err != nil {
		log.Printf("⚠️  Failed to record welfare confirmation for shift %s: %v", shiftID, err)
	}

	m.events.Emit("welfare_confirmed", map[string]interface{}{
		"shift_id":     shiftID,
		"guard_id":     guardID,
		"confirmed_at": now.Unix(),
		"next_due":     nextDue,
	})
	return nil
}

func (m *WelfareMonitor) push(ctx context.Context, guardID, title, body string, data map[string]string) {
	if m.notifier == nil {
		return
	}
	tokens, err := m.guards.GuardTokens(ctx, guardID)
	if err != nil || len(tokens) == 0 {
		return
	}
	if err := m.notifier.Notify(tokens, title, body, data); err != nil {
		log.Printf("⚠️  Push notification failed for guard %s: %v", guardID, err)
	}
}

func promptDue(overdueMinutes int) bool {
	for _, minute := range welfarePromptSchedule {
		if overdueMinutes == minute {
			return true
		}
	}
	return false
}
