package services

import (
	"context"
	"log"
	"time"

	"guardpost-backend/internal/models"
)

const (
	// SweepInterval is the cadence of the missed-shift scan
	SweepInterval = 5 * time.Minute

	// MissedShiftGrace is how far past the scheduled start a shift may sit
	// unstarted before it is marked missed
	MissedShiftGrace = 15 * time.Minute
)

// MissedShiftSweeper periodically marks pre-active shifts as missed once
// their scheduled start is more than the grace period in the past. It is
// safe to run concurrently with check-ins: MarkMissed's predicate re-checks
// "no actual start" at write time, so a shift that activates mid-sweep is
// never pulled back to missed. Running the sweep twice over the same data
// affects zero additional rows.
type MissedShiftSweeper struct {
	store    SweeperStore
	guards   GuardResolver
	events   EventPublisher
	notifier Notifier
	interval time.Duration
	grace    time.Duration
}

// NewMissedShiftSweeper wires the sweeper. notifier may be nil.
func NewMissedShiftSweeper(store SweeperStore, guards GuardResolver, events EventPublisher, notifier Notifier) *MissedShiftSweeper {
	return &MissedShiftSweeper{
		store:    store,
		guards:   guards,
		events:   events,
		notifier: notifier,
		interval: SweepInterval,
		grace:    MissedShiftGrace,
	}
}

// Run sweeps until ctx is cancelled
func (s *MissedShiftSweeper) Run(ctx context.Context) {
	log.Printf("🧹 Missed-shift sweeper started (every %s, grace %s)", s.interval, s.grace)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("🧹 Missed-shift sweeper stopped")
			return
		case t := <-ticker.C:
			s.Sweep(ctx, t)
		}
	}
}

// Sweep performs one scan. It returns the number of shifts marked missed;
// per-shift failures are logged and the scan continues.
func (s *MissedShiftSweeper) Sweep(ctx context.Context, now time.Time) int {
	cutoff := now.Add(-s.grace).Unix()
	candidates, err := s.store.ListMissedCandidates(ctx, cutoff)
	if err != nil {
		log.Printf("❌ Missed-shift scan failed: %v", err)
		return 0
	}

	marked := 0
	for i := range candidates {
		shift := candidates[i]
		ok, err := s.store.MarkMissed(ctx, shift.ID, now.Unix())
		if err != nil {
			log.Printf("❌ Failed to mark shift %s missed: %v", shift.ID, err)
			continue
		}
		if !ok {
			// A check-in won the race between the scan and the update.
			continue
		}
		marked++

		s.events.EmitToGuard(shift.GuardID, "shift_missed", map[string]interface{}{
			"shift_id":        shift.ID,
			"site_id":         shift.SiteID,
			"scheduled_start": shift.ScheduledStart,
		})
		s.events.Emit("guard_shift_change", map[string]interface{}{
			"guard_id": shift.GuardID,
			"shift_id": shift.ID,
			"site_id":  shift.SiteID,
			"status":   models.ShiftStatusMissed,
		})
		s.push(ctx, shift.GuardID, "Shift Missed",
			"You did not check in to your scheduled shift. Contact your manager.",
			map[string]string{
				"type":     "shift_missed",
				"shift_id": shift.ID,
			})
	}

	if marked > 0 {
		log.Printf("🧹 Sweep marked %d shift(s) missed", marked)
	}
	return marked
}

func (s *MissedShiftSweeper) push(ctx context.Context, guardID, title, body string, data map[string]string) {
	if s.notifier == nil {
		return
	}
	tokens, err := s.guards.GuardTokens(ctx, guardID)
	if err != nil || len(tokens) == 0 {
		return
	}
	if err := s.notifier.Notify(tokens, title, body, data); err != nil {
		log.Printf("⚠️  Push notification failed for guard %s: %v", guardID, err)
	}
}
