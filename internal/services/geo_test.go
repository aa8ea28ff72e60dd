package services

import (
	"math"
	"testing"
)

func TestDistanceMeters(t *testing.T) {
	// Big Ben to the London Eye
	bigBen := Coordinate{Latitude: 51.5007, Longitude: -0.1246}
	londonEye := Coordinate{Latitude: 51.5033, Longitude: -0.1196}

	d := DistanceMeters(bigBen, londonEye)
	// Roughly 450m apart; allow generous slack for the spherical model.
	if d < 400 || d > 500 {
		t.Fatalf("DistanceMeters(bigBen, londonEye) = %.1f, want ~450", d)
	}

	if d2 := DistanceMeters(londonEye, bigBen); math.Abs(d-d2) > 0.001 {
		t.Errorf("distance is not symmetric: %.4f vs %.4f", d, d2)
	}

	if d := DistanceMeters(bigBen, bigBen); d != 0 {
		t.Errorf("distance to self = %.6f, want 0", d)
	}
}

func TestWithinRadius(t *testing.T) {
	center := Coordinate{Latitude: 51.5007, Longitude: -0.1246}

	tests := []struct {
		name   string
		point  Coordinate
		radius float64
		want   bool
	}{
		{"at center", center, 50, true},
		{"just inside", Coordinate{Latitude: 51.5010, Longitude: -0.1246}, 100, true},
		{"well outside", Coordinate{Latitude: 51.5100, Longitude: -0.1246}, 100, false},
		{"boundary is inclusive", Coordinate{Latitude: 51.5007, Longitude: -0.1246}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WithinRadius(tt.point, center, tt.radius); got != tt.want {
				t.Errorf("WithinRadius(%v, %v, %.0f) = %v, want %v",
					tt.point, center, tt.radius, got, tt.want)
			}
		})
	}
}
