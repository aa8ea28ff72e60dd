package models

// Site represents a guarded location with its geofence
type Site struct {
	ID           string  `json:"id" db:"id"`
	Name         string  `json:"name" db:"name"`
	Address      string  `json:"address" db:"address"`
	Latitude     float64 `json:"latitude" db:"latitude"`
	Longitude    float64 `json:"longitude" db:"longitude"`
	RadiusMeters float64 `json:"radius_meters" db:"radius_meters"`
	Timezone     string  `json:"timezone" db:"timezone"` // IANA name, e.g. "Europe/London"
	CreatedAt    int64   `json:"created_at" db:"created_at"`
	UpdatedAt    int64   `json:"updated_at" db:"updated_at"`
}
