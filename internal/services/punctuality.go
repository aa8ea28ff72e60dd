package services

import (
	"time"

	"guardpost-backend/internal/models"
)

// DefaultPunctualityTolerance is the window either side of the scheduled start
// that still counts as on time.
const DefaultPunctualityTolerance = 15 * time.Minute

// PunctualityClassifier compares an actual check-in instant against a
// scheduled start. Both instants are normalized to UTC before comparison so
// the result does not depend on the server's local clock; the caller applies
// the site's timezone to the scheduled instant (see ShiftLifecycle.CheckIn).
type PunctualityClassifier struct {
	Tolerance time.Duration
}

// NewPunctualityClassifier returns a classifier with the default 15-minute window
func NewPunctualityClassifier() PunctualityClassifier {
	return PunctualityClassifier{Tolerance: DefaultPunctualityTolerance}
}

// Classify returns Early, OnTime or Late. The tolerance boundary is
// inclusive: exactly 15 minutes early or late is still on time.
func (c PunctualityClassifier) Classify(scheduled, actual time.Time) models.Punctuality {
	tolerance := c.Tolerance
	if tolerance <= 0 {
		tolerance = DefaultPunctualityTolerance
	}

	delta := actual.UTC().Sub(scheduled.UTC())
	switch {
	case delta < -tolerance:
		return models.PunctualityEarly
	case delta > tolerance:
		return models.PunctualityLate
	default:
		return models.PunctualityOnTime
	}
}
