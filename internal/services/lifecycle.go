package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"guardpost-backend/internal/models"
)

// ShiftLifecycle owns the shift state machine:
//
//	draft → published → accepted → active → completed
//
// with terminal side branches rejected, missed and cancelled. All transitions
// go through the store's atomic conditional updates; this type never holds
// locks of its own.
type ShiftLifecycle struct {
	shifts     ShiftStore
	sites      SiteRegistry
	guards     GuardResolver
	events     EventPublisher
	notifier   Notifier
	deriver    *TimesheetDeriver
	classifier PunctualityClassifier
}

// NewShiftLifecycle wires the lifecycle against its collaborators. notifier
// may be nil (push disabled); everything else is required.
func NewShiftLifecycle(shifts ShiftStore, sites SiteRegistry, guards GuardResolver, events EventPublisher, notifier Notifier, deriver *TimesheetDeriver) *ShiftLifecycle {
	return &ShiftLifecycle{
		shifts:     shifts,
		sites:      sites,
		guards:     guards,
		events:     events,
		notifier:   notifier,
		deriver:    deriver,
		classifier: NewPunctualityClassifier(),
	}
}

// Accept confirms a published (or draft) shift for its assigned guard
func (l *ShiftLifecycle) Accept(ctx context.Context, shiftID, guardID string) (*models.Shift, error) {
	shift, err := l.shifts.GetShift(ctx, shiftID)
	if err != nil {
		return nil, err
	}
	if shift.GuardID != guardID {
		return nil, fmt.Errorf("%w: shift %s is not assigned to guard %s", ErrForbidden, shiftID, guardID)
	}
	if shift.Status != models.ShiftStatusDraft && shift.Status != models.ShiftStatusPublished {
		return nil, fmt.Errorf("%w: cannot accept shift in status %s", ErrConflict, shift.Status)
	}

	now := time.Now().Unix()
	ok, err := l.shifts.MarkAccepted(ctx, shiftID, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: shift %s changed status before acceptance", ErrConflict, shiftID)
	}

	updated, err := l.shifts.GetShift(ctx, shiftID)
	if err != nil {
		return nil, err
	}

	l.broadcastChange(updated)
	return updated, nil
}

// Reject declines a published (or draft) shift. A non-empty reason is required.
func (l *ShiftLifecycle) Reject(ctx context.Context, shiftID, guardID, reason string) (*models.Shift, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, fmt.Errorf("%w: rejection reason is required", ErrInvalidInput)
	}

	shift, err := l.shifts.GetShift(ctx, shiftID)
	if err != nil {
		return nil, err
	}
	if shift.GuardID != guardID {
		return nil, fmt.Errorf("%w: shift %s is not assigned to guard %s", ErrForbidden, shiftID, guardID)
	}
	if shift.Status != models.ShiftStatusDraft && shift.Status != models.ShiftStatusPublished {
		return nil, fmt.Errorf("%w: cannot reject shift in status %s", ErrConflict, shift.Status)
	}

	now := time.Now().Unix()
	ok, err := l.shifts.MarkRejected(ctx, shiftID, strings.TrimSpace(reason), now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: shift %s changed status before rejection", ErrConflict, shiftID)
	}

	updated, err := l.shifts.GetShift(ctx, shiftID)
	if err != nil {
		return nil, err
	}

	l.broadcastChange(updated)
	return updated, nil
}

// CheckIn verifies physical presence at the site and activates the shift.
// Coordinates are mandatory: there is no unverified check-in. The store's
// conditional update plus the unique active-shift index close the race where
// two check-ins would give one guard two active shifts at once.
func (l *ShiftLifecycle) CheckIn(ctx context.Context, shiftID, guardID string, coord *Coordinate, clientTime time.Time) (*models.Shift, error) {
	if coord == nil {
		return nil, fmt.Errorf("%w: coordinates are required to check in", ErrInvalidInput)
	}

	shift, err := l.shifts.GetShift(ctx, shiftID)
	if err != nil {
		return nil, err
	}
	if shift.GuardID != guardID {
		return nil, fmt.Errorf("%w: shift %s is not assigned to guard %s", ErrForbidden, shiftID, guardID)
	}
	if shift.Status == models.ShiftStatusActive {
		return nil, fmt.Errorf("%w: shift %s is already active", ErrConflict, shiftID)
	}
	if shift.IsTerminal() {
		return nil, fmt.Errorf("%w: cannot check in to shift in status %s", ErrConflict, shift.Status)
	}

	site, err := l.sites.GetSite(ctx, shift.SiteID)
	if err != nil {
		return nil, err
	}

	center := Coordinate{Latitude: site.Latitude, Longitude: site.Longitude}
	withinFence := WithinRadius(*coord, center, site.RadiusMeters)

	// Punctuality compares absolute instants; the site timezone anchors the
	// scheduled instant so the result is stable regardless of server locale.
	loc, err := time.LoadLocation(site.Timezone)
	if err != nil {
		loc = time.UTC
		log.Printf("⚠️  Site %s has invalid timezone %q, falling back to UTC", site.ID, site.Timezone)
	}
	scheduled := time.Unix(shift.ScheduledStart, 0).In(loc)
	punctuality := l.classifier.Classify(scheduled, clientTime)

	actualStart := clientTime.Unix()

	welfareState := models.WelfareDisabled
	var nextDue *int64
	if shift.WelfareEnabled() {
		welfareState = models.WelfarePending
		due := actualStart + int64(shift.WelfareIntervalMinutes)*60
		nextDue = &due
	}

	err = l.shifts.ActivateShift(ctx, ActivateShiftParams{
		ShiftID:             shiftID,
		GuardID:             guardID,
		ActualStart:         actualStart,
		Latitude:            coord.Latitude,
		Longitude:           coord.Longitude,
		GeofenceVerified:    withinFence,
		GeofenceViolation:   !withinFence,
		Punctuality:         punctuality,
		WelfareState:        welfareState,
		WelfareNextCheckDue: nextDue,
	})
	if err != nil {
		return nil, err
	}

	updated, err := l.shifts.GetShift(ctx, shiftID)
	if err != nil {
		return nil, err
	}

	l.broadcastChange(updated)
	l.events.Emit("shift_checked_in", map[string]interface{}{
		"shift_id":           shiftID,
		"guard_id":           guardID,
		"site_id":            shift.SiteID,
		"geofence_verified":  withinFence,
		"geofence_violation": !withinFence,
		"punctuality":        punctuality,
		"checked_in_at":      actualStart,
	})
	if !withinFence {
		log.Printf("⚠️  Check-in outside geofence: shift %s, guard %s (%.1fm from site %s)",
			shiftID, guardID, DistanceMeters(*coord, center), site.ID)
	}

	return updated, nil
}

// CheckOut completes an active shift, re-running the geofence check at the
// exit and handing the shift to the timesheet deriver. Timesheet derivation
// is asynchronous: a failure there is retried and reported, never surfaced
// as a check-out failure.
func (l *ShiftLifecycle) CheckOut(ctx context.Context, shiftID, guardID string, coord *Coordinate, clientTime time.Time) (*models.Shift, error) {
	shift, err := l.shifts.GetShift(ctx, shiftID)
	if err != nil {
		return nil, err
	}
	if shift.GuardID != guardID {
		return nil, fmt.Errorf("%w: shift %s is not assigned to guard %s", ErrForbidden, shiftID, guardID)
	}
	if shift.Status != models.ShiftStatusActive {
		return nil, fmt.Errorf("%w: cannot check out of shift in status %s", ErrConflict, shift.Status)
	}

	params := CompleteShiftParams{
		ShiftID:   shiftID,
		ActualEnd: clientTime.Unix(),
	}

	if coord != nil {
		site, err := l.sites.GetSite(ctx, shift.SiteID)
		if err != nil {
			return nil, err
		}
		center := Coordinate{Latitude: site.Latitude, Longitude: site.Longitude}
		within := WithinRadius(*coord, center, site.RadiusMeters)
		params.Latitude = &coord.Latitude
		params.Longitude = &coord.Longitude
		params.ExitGeofenceVerified = &within
		params.ExitViolation = !within
	}

	ok, err := l.shifts.CompleteShift(ctx, params)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: shift %s is no longer active", ErrConflict, shiftID)
	}

	updated, err := l.shifts.GetShift(ctx, shiftID)
	if err != nil {
		return nil, err
	}

	l.broadcastChange(updated)
	l.events.Emit("shift_checked_out", map[string]interface{}{
		"shift_id":       shiftID,
		"guard_id":       guardID,
		"site_id":        shift.SiteID,
		"checked_out_at": updated.ActualEnd,
		"exit_violation": params.ExitViolation,
	})

	// Fire-and-forget relative to the caller; the deriver's transaction
	// still commits fully or not at all.
	go l.deriveTimesheet(shiftID)

	return updated, nil
}

// deriveTimesheet runs the exactly-once derivation with a short retry loop
// for transient store failures
func (l *ShiftLifecycle) deriveTimesheet(shiftID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		ts, created, err := l.deriver.Derive(ctx, shiftID)
		if err == nil {
			if created {
				log.Printf("✅ Timesheet %s derived for shift %s (%d payable minutes)", ts.ID, shiftID, ts.PayableMinutes)
				l.events.Emit("timesheet_created", ts)
			}
			return
		}
		lastErr = err
		if !IsRetryable(err) {
			break
		}
		time.Sleep(time.Duration(attempt) * time.Second)
	}

	log.Printf("❌ Timesheet derivation failed for shift %s: %v", shiftID, lastErr)
	l.events.Emit("timesheet_derivation_failed", map[string]interface{}{
		"shift_id": shiftID,
		"error":    lastErr.Error(),
	})
}

// broadcastChange pushes the updated shift to the guard's device and a
// summary to manager observers, mirroring every durable transition
func (l *ShiftLifecycle) broadcastChange(shift *models.Shift) {
	l.events.EmitToGuard(shift.GuardID, "shift_update", shift)
	l.events.Emit("guard_shift_change", map[string]interface{}{
		"guard_id": shift.GuardID,
		"shift_id": shift.ID,
		"site_id":  shift.SiteID,
		"status":   shift.Status,
	})
}

// PayableMinutes computes the net payable duration of a completed shift.
// An end before the start is treated as rolling into the next calendar day
// (overnight shift or client clock skew); the result is never negative.
func PayableMinutes(actualStart, actualEnd int64, breakMinutes int) int {
	if actualEnd < actualStart {
		actualEnd += 24 * 60 * 60
	}
	minutes := int((actualEnd-actualStart)/60) - breakMinutes
	if minutes < 0 {
		minutes = 0
	}
	return minutes
}
