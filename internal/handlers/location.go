package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"guardpost-backend/internal/middleware"
	"guardpost-backend/internal/services"
	"guardpost-backend/pkg/utils"

	"github.com/jmoiron/sqlx"
)

// LocationUpdateRequest is the REST fallback for devices without a live
// websocket; the payload matches the socket's location_update message.
type LocationUpdateRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Accuracy  *float64 `json:"accuracy,omitempty"`
	ShiftID   *string  `json:"shift_id,omitempty"`
	Timestamp int64    `json:"timestamp,omitempty"`
}

// UpdateLocation upserts the guard's current position and fans it out to
// manager dashboards
func UpdateLocation(db *sqlx.DB, events services.EventPublisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userClaims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		var req LocationUpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if req.Latitude == nil || req.Longitude == nil {
			utils.RespondError(w, http.StatusBadRequest, "latitude and longitude are required")
			return
		}
		timestamp := req.Timestamp
		if timestamp == 0 {
			timestamp = time.Now().Unix()
		}

		query := `
			INSERT INTO guard_current_location (
				guard_id, latitude, longitude, accuracy, shift_id, timestamp, is_connected, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, TRUE, EXTRACT(EPOCH FROM NOW())::BIGINT)
			ON CONFLICT (guard_id)
			DO UPDATE SET
				latitude = EXCLUDED.latitude,
				longitude = EXCLUDED.longitude,
				accuracy = EXCLUDED.accuracy,
				shift_id = EXCLUDED.shift_id,
				timestamp = EXCLUDED.timestamp,
				is_connected = TRUE,
				updated_at = EXTRACT(EPOCH FROM NOW())::BIGINT
			RETURNING updated_at
		`

		var updatedAt int64
		err := db.QueryRow(query,
			userClaims.UserID,
			*req.Latitude,
			*req.Longitude,
			req.Accuracy,
			req.ShiftID,
			timestamp,
		).Scan(&updatedAt)
		if err != nil {
			log.Printf("❌ Error saving location for guard %s: %v", userClaims.UserID, err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to save location")
			return
		}

		events.Emit("guard_location_update", map[string]interface{}{
			"guard_id":   userClaims.UserID,
			"latitude":   *req.Latitude,
			"longitude":  *req.Longitude,
			"accuracy":   req.Accuracy,
			"shift_id":   req.ShiftID,
			"timestamp":  timestamp,
			"updated_at": updatedAt,
		})

		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data": map[string]interface{}{
				"updated_at": updatedAt,
			},
		})
	}
}
