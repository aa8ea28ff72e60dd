package services

import (
	"testing"
	"time"

	"guardpost-backend/internal/models"
)

func TestClassifyPunctuality(t *testing.T) {
	c := NewPunctualityClassifier()
	scheduled := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		actual time.Time
		want   models.Punctuality
	}{
		{"sixteen minutes early", scheduled.Add(-16 * time.Minute), models.PunctualityEarly},
		{"exactly fifteen minutes early", scheduled.Add(-15 * time.Minute), models.PunctualityOnTime},
		{"ten minutes early", scheduled.Add(-10 * time.Minute), models.PunctualityOnTime},
		{"on the dot", scheduled, models.PunctualityOnTime},
		{"fourteen minutes late", scheduled.Add(14 * time.Minute), models.PunctualityOnTime},
		{"exactly fifteen minutes late", scheduled.Add(15 * time.Minute), models.PunctualityOnTime},
		{"sixteen minutes late", scheduled.Add(16 * time.Minute), models.PunctualityLate},
		{"an hour late", scheduled.Add(time.Hour), models.PunctualityLate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Classify(scheduled, tt.actual); got != tt.want {
				t.Errorf("Classify(%v) = %s, want %s", tt.actual.Sub(scheduled), got, tt.want)
			}
		})
	}
}

func TestClassifyAcrossTimezones(t *testing.T) {
	c := NewPunctualityClassifier()

	london, err := time.LoadLocation("Europe/London")
	if err != nil {
		t.Fatalf("LoadLocation: %v", err)
	}

	// Same instant expressed in two zones must classify identically.
	scheduled := time.Date(2025, 6, 2, 9, 0, 0, 0, london)
	actualUTC := scheduled.UTC().Add(5 * time.Minute)

	if got := c.Classify(scheduled, actualUTC); got != models.PunctualityOnTime {
		t.Errorf("Classify across zones = %s, want %s", got, models.PunctualityOnTime)
	}
}

func TestClassifyZeroToleranceFallsBack(t *testing.T) {
	c := PunctualityClassifier{}
	scheduled := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)

	if got := c.Classify(scheduled, scheduled.Add(10*time.Minute)); got != models.PunctualityOnTime {
		t.Errorf("zero-value classifier = %s, want %s", got, models.PunctualityOnTime)
	}
}
