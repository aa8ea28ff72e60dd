package services

import (
	"context"
	"fmt"
	"sync"

	"guardpost-backend/internal/models"
)

// mockStore is an in-memory stand-in for the postgres store. Every mutation
// takes the mutex and re-checks its precondition under it, mirroring the
// atomic conditional updates the real store performs.
type mockStore struct {
	mu         sync.Mutex
	shifts     map[string]*models.Shift
	sites      map[string]*models.Site
	guards     map[string]*models.User
	tokens     map[string][]string
	timesheets map[string]*models.Timesheet // keyed by shift ID
	events     []models.WelfareEvent
}

func newMockStore() *mockStore {
	return &mockStore{
		shifts:     make(map[string]*models.Shift),
		sites:      make(map[string]*models.Site),
		guards:     make(map[string]*models.User),
		tokens:     make(map[string][]string),
		timesheets: make(map[string]*models.Timesheet),
	}
}

func (m *mockStore) addShift(s *models.Shift) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.shifts[s.ID] = &cp
}

func (m *mockStore) addSite(s *models.Site) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.sites[s.ID] = &cp
}

func (m *mockStore) addGuard(u *models.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	m.guards[u.ID] = &cp
}

func (m *mockStore) shiftSnapshot(id string) models.Shift {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.shifts[id]
}

func (m *mockStore) welfareEvents() []models.WelfareEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.WelfareEvent, len(m.events))
	copy(out, m.events)
	return out
}

// --- ShiftStore ---

func (m *mockStore) GetShift(ctx context.Context, id string) (*models.Shift, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.shifts[id]
	if !ok {
		return nil, fmt.Errorf("%w: shift %s", ErrNotFound, id)
	}
	cp := *s
	return &cp, nil
}

func (m *mockStore) MarkAccepted(ctx context.Context, shiftID string, acceptedAt int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.shifts[shiftID]
	if !ok {
		return false, nil
	}
	if s.Status != models.ShiftStatusDraft && s.Status != models.ShiftStatusPublished {
		return false, nil
	}
	s.Status = models.ShiftStatusAccepted
	s.AcceptedAt = &acceptedAt
	return true, nil
}

func (m *mockStore) MarkRejected(ctx context.Context, shiftID, reason string, rejectedAt int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.shifts[shiftID]
	if !ok {
		return false, nil
	}
	if s.Status != models.ShiftStatusDraft && s.Status != models.ShiftStatusPublished {
		return false, nil
	}
	s.Status = models.ShiftStatusRejected
	s.RejectionReason = &reason
	return true, nil
}

func (m *mockStore) ActivateShift(ctx context.Context, p ActivateShiftParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.shifts[p.ShiftID]
	if !ok {
		return fmt.Errorf("%w: shift %s", ErrNotFound, p.ShiftID)
	}
	// Unique-index equivalent: one active shift per guard.
	for _, other := range m.shifts {
		if other.GuardID == p.GuardID && other.Status == models.ShiftStatusActive {
			return ErrGuardHasActiveShift
		}
	}
	switch s.Status {
	case models.ShiftStatusDraft, models.ShiftStatusPublished, models.ShiftStatusAccepted:
	default:
		return fmt.Errorf("%w: shift %s is %s", ErrConflict, p.ShiftID, s.Status)
	}
	if s.GuardID != p.GuardID {
		return fmt.Errorf("%w: shift %s is %s", ErrConflict, p.ShiftID, s.Status)
	}

	s.Status = models.ShiftStatusActive
	s.ActualStart = &p.ActualStart
	s.ClockInLatitude = &p.Latitude
	s.ClockInLongitude = &p.Longitude
	verified := p.GeofenceVerified
	s.GeofenceVerified = &verified
	s.GeofenceViolation = s.GeofenceViolation || p.GeofenceViolation
	s.Punctuality = p.Punctuality
	s.WelfareState = p.WelfareState
	s.WelfareNextCheckDue = p.WelfareNextCheckDue
	return nil
}

func (m *mockStore) CompleteShift(ctx context.Context, p CompleteShiftParams) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.shifts[p.ShiftID]
	if !ok || s.Status != models.ShiftStatusActive {
		return false, nil
	}
	s.Status = models.ShiftStatusCompleted
	s.ActualEnd = &p.ActualEnd
	s.ClockOutLatitude = p.Latitude
	s.ClockOutLongitude = p.Longitude
	s.ExitGeofenceVerified = p.ExitGeofenceVerified
	s.GeofenceViolation = s.GeofenceViolation || p.ExitViolation
	return true, nil
}

// --- TimesheetStore ---

func (m *mockStore) DeriveTimesheet(ctx context.Context, shiftID string, build func(*models.Shift) *models.Timesheet) (*models.Timesheet, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.shifts[shiftID]
	if !ok {
		return nil, false, fmt.Errorf("%w: shift %s", ErrNotFound, shiftID)
	}
	if s.TimesheetGenerated {
		if ts, ok := m.timesheets[shiftID]; ok {
			cp := *ts
			return &cp, false, nil
		}
		return nil, false, nil
	}
	if s.Status != models.ShiftStatusCompleted {
		return nil, false, fmt.Errorf("%w: shift %s is %s, not completed", ErrConflict, shiftID, s.Status)
	}

	ts := build(s)
	m.timesheets[shiftID] = ts
	s.TimesheetGenerated = true
	cp := *ts
	return &cp, true, nil
}

// --- WelfareStore ---

func (m *mockStore) ListWelfareDue(ctx context.Context, now int64) ([]models.Shift, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var due []models.Shift
	for _, s := range m.shifts {
		if s.Status != models.ShiftStatusActive || s.WelfareIntervalMinutes <= 0 {
			continue
		}
		if s.WelfareState == models.WelfareAlert || s.WelfareNextCheckDue == nil {
			continue
		}
		if *s.WelfareNextCheckDue <= now {
			due = append(due, *s)
		}
	}
	return due, nil
}

func (m *mockStore) TransitionWelfare(ctx context.Context, shiftID string, from []models.WelfareState, to models.WelfareState, nextDue *int64, now int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.shifts[shiftID]
	if !ok || s.Status != models.ShiftStatusActive {
		return false, nil
	}
	if s.WelfareState == models.WelfareAlert {
		return false, nil
	}
	matched := false
	for _, f := range from {
		if s.WelfareState == f {
			matched = true
			break
		}
	}
	if !matched {
		return false, nil
	}
	s.WelfareState = to
	if nextDue != nil {
		s.WelfareNextCheckDue = nextDue
	}
	return true, nil
}

func (m *mockStore) AppendWelfareEvent(ctx context.Context, ev *models.WelfareEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *ev
	cp.ID = len(m.events) + 1
	m.events = append(m.events, cp)
	return nil
}

// --- SweeperStore ---

func (m *mockStore) ListMissedCandidates(ctx context.Context, cutoff int64) ([]models.Shift, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Shift
	for _, s := range m.shifts {
		switch s.Status {
		case models.ShiftStatusDraft, models.ShiftStatusPublished, models.ShiftStatusAccepted:
		default:
			continue
		}
		if s.ActualStart == nil && s.ScheduledStart <= cutoff {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *mockStore) MarkMissed(ctx context.Context, shiftID string, now int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.shifts[shiftID]
	if !ok {
		return false, nil
	}
	switch s.Status {
	case models.ShiftStatusDraft, models.ShiftStatusPublished, models.ShiftStatusAccepted:
	default:
		return false, nil
	}
	if s.ActualStart != nil {
		return false, nil
	}
	s.Status = models.ShiftStatusMissed
	return true, nil
}

// --- SiteRegistry / GuardResolver ---

func (m *mockStore) GetSite(ctx context.Context, id string) (*models.Site, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sites[id]
	if !ok {
		return nil, fmt.Errorf("%w: site %s", ErrNotFound, id)
	}
	cp := *s
	return &cp, nil
}

func (m *mockStore) GetGuard(ctx context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.guards[id]
	if !ok {
		return nil, fmt.Errorf("%w: guard %s", ErrNotFound, id)
	}
	cp := *g
	return &cp, nil
}

func (m *mockStore) GuardTokens(ctx context.Context, guardID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.tokens[guardID]...), nil
}

// mockEvents records every published topic for assertions
type mockEvents struct {
	mu     sync.Mutex
	topics []string
}

func (e *mockEvents) Emit(topic string, payload interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.topics = append(e.topics, topic)
}

func (e *mockEvents) EmitToGuard(guardID, topic string, payload interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.topics = append(e.topics, "guard:"+topic)
}

func (e *mockEvents) count(topic string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, t := range e.topics {
		if t == topic {
			n++
		}
	}
	return n
}

// mockNotifier records push notifications
type mockNotifier struct {
	mu   sync.Mutex
	sent []string
	fail bool
}

func (n *mockNotifier) Notify(tokens []string, title, body string, data map[string]string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return fmt.Errorf("push rejected")
	}
	n.sent = append(n.sent, title)
	return nil
}
