package models

// WelfareEvent is one append-only audit entry for a welfare sub-state transition
type WelfareEvent struct {
	ID        int          `json:"id" db:"id"`
	ShiftID   string       `json:"shift_id" db:"shift_id"`
	GuardID   string       `json:"guard_id" db:"guard_id"`
	FromState WelfareState `json:"from_state" db:"from_state"`
	ToState   WelfareState `json:"to_state" db:"to_state"`
	Latitude  *float64     `json:"latitude" db:"latitude"`
	Longitude *float64     `json:"longitude" db:"longitude"`
	Note      *string      `json:"note" db:"note"`
	CreatedAt int64        `json:"created_at" db:"created_at"`
}
