package models

// GuardLocation represents a GPS location update from a guard
type GuardLocation struct {
	GuardID   string   `json:"guard_id" db:"guard_id"`
	Latitude  float64  `json:"latitude" db:"latitude"`
	Longitude float64  `json:"longitude" db:"longitude"`
	Accuracy  *float64 `json:"accuracy,omitempty" db:"accuracy"` // GPS accuracy in meters
	ShiftID   *string  `json:"shift_id,omitempty" db:"shift_id"` // Associated shift
	Timestamp int64    `json:"timestamp" db:"timestamp"`         // Client-side timestamp
	Connected bool     `json:"is_connected" db:"is_connected"`
	UpdatedAt int64    `json:"updated_at" db:"updated_at"`
}

// GuardStatus represents a guard's current state for the manager dashboard
type GuardStatus struct {
	GuardID      string         `json:"guard_id"`
	Name         string         `json:"name"`
	Status       ShiftStatus    `json:"status"`
	ShiftID      *string        `json:"shift_id,omitempty"`
	SiteID       *string        `json:"site_id,omitempty"`
	WelfareState WelfareState   `json:"welfare_state,omitempty"`
	LastLocation *GuardLocation `json:"last_location,omitempty"`
}
