package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"guardpost-backend/internal/middleware"
	"guardpost-backend/internal/services"
	"guardpost-backend/internal/store"
	"guardpost-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
)

// checkRequest is the shared body for check-in, check-out and welfare
// confirmations. Timestamp is the client-side clock in epoch seconds; zero
// means "use server time".
type checkRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Accuracy  *float64 `json:"accuracy,omitempty"`
	Timestamp int64    `json:"timestamp,omitempty"`
}

func (c *checkRequest) coordinate() *services.Coordinate {
	if c.Latitude == nil || c.Longitude == nil {
		return nil
	}
	return &services.Coordinate{Latitude: *c.Latitude, Longitude: *c.Longitude}
}

func (c *checkRequest) clientTime() time.Time {
	if c.Timestamp > 0 {
		return time.Unix(c.Timestamp, 0)
	}
	return time.Now()
}

// statusForError maps service error kinds onto HTTP statuses
func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound, "Shift not found"
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden, "Shift is not assigned to you"
	case errors.Is(err, services.ErrGuardHasActiveShift):
		return http.StatusConflict, "You already have an active shift"
	case errors.Is(err, services.ErrConflict):
		return http.StatusConflict, "Shift is not in a state that allows this action"
	case errors.Is(err, services.ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, services.ErrTransient):
		return http.StatusServiceUnavailable, "Temporary failure, please retry"
	}
	return http.StatusInternalServerError, "Internal server error"
}

// GetCurrentShift returns the guard's most relevant shift: active first,
// then accepted, then published
func GetCurrentShift(st *store.Postgres) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userClaims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		shift, err := st.CurrentShiftForGuard(r.Context(), userClaims.UserID)
		if err != nil {
			if errors.Is(err, services.ErrNotFound) || errors.Is(err, sql.ErrNoRows) {
				utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
					"success": true,
					"data":    nil,
				})
				return
			}
			log.Printf("❌ Error getting current shift: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Database error")
			return
		}

		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data":    shift,
		})
	}
}

// GetMyShifts returns the guard's recent shifts, newest scheduled first
func GetMyShifts(st *store.Postgres) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userClaims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		shifts, err := st.ShiftsForGuard(r.Context(), userClaims.UserID, 100)
		if err != nil {
			log.Printf("❌ Error fetching shifts for guard %s: %v", userClaims.UserID, err)
			utils.RespondError(w, http.StatusInternalServerError, "Database error")
			return
		}

		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data":    shifts,
		})
	}
}

// AcceptShift confirms an offered shift for the authenticated guard
func AcceptShift(lifecycle *services.ShiftLifecycle) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userClaims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		shiftID := chi.URLParam(r, "shiftID")

		shift, err := lifecycle.Accept(r.Context(), shiftID, userClaims.UserID)
		if err != nil {
			status, message := statusForError(err)
			log.Printf("❌ Accept failed for shift %s: %v", shiftID, err)
			utils.RespondError(w, status, message)
			return
		}

		log.Printf("✅ Shift accepted: %s (Guard: %s)", shiftID, userClaims.Email)
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data":    shift,
		})
	}
}

// RejectShift declines an offered shift. The body must carry a reason.
func RejectShift(lifecycle *services.ShiftLifecycle) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userClaims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		shiftID := chi.URLParam(r, "shiftID")

		var req struct {
			Reason string `json:"reason"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		shift, err := lifecycle.Reject(r.Context(), shiftID, userClaims.UserID, req.Reason)
		if err != nil {
			status, message := statusForError(err)
			log.Printf("❌ Reject failed for shift %s: %v", shiftID, err)
			utils.RespondError(w, status, message)
			return
		}

		log.Printf("✅ Shift rejected: %s (Guard: %s, reason: %s)", shiftID, userClaims.Email, req.Reason)
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data":    shift,
		})
	}
}

// CheckIn activates a shift after verifying the guard's position against the
// site geofence
func CheckIn(lifecycle *services.ShiftLifecycle) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userClaims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		shiftID := chi.URLParam(r, "shiftID")

		var req checkRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		shift, err := lifecycle.CheckIn(r.Context(), shiftID, userClaims.UserID, req.coordinate(), req.clientTime())
		if err != nil {
			status, message := statusForError(err)
			log.Printf("❌ Check-in failed for shift %s: %v", shiftID, err)
			utils.RespondError(w, status, message)
			return
		}

		log.Printf("✅ Checked in: shift %s (Guard: %s, punctuality: %s)", shiftID, userClaims.Email, shift.Punctuality)
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data":    shift,
		})
	}
}

// CheckOut completes an active shift. Coordinates are optional here; a guard
// may be forced to leave the site before clocking out.
func CheckOut(lifecycle *services.ShiftLifecycle) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userClaims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		shiftID := chi.URLParam(r, "shiftID")

		var req checkRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		shift, err := lifecycle.CheckOut(r.Context(), shiftID, userClaims.UserID, req.coordinate(), req.clientTime())
		if err != nil {
			status, message := statusForError(err)
			log.Printf("❌ Check-out failed for shift %s: %v", shiftID, err)
			utils.RespondError(w, status, message)
			return
		}

		log.Printf("🏁 Checked out: shift %s (Guard: %s)", shiftID, userClaims.Email)
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data":    shift,
		})
	}
}

// ConfirmWelfare records a welfare check response and resets the prompt timer
func ConfirmWelfare(monitor *services.WelfareMonitor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userClaims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		shiftID := chi.URLParam(r, "shiftID")

		var req checkRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		if err := monitor.Confirm(r.Context(), shiftID, userClaims.UserID, req.coordinate()); err != nil {
			status, message := statusForError(err)
			log.Printf("❌ Welfare confirmation failed for shift %s: %v", shiftID, err)
			utils.RespondError(w, status, message)
			return
		}

		log.Printf("💚 Welfare confirmed: shift %s (Guard: %s)", shiftID, userClaims.Email)
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
		})
	}
}

// GetMyTimesheets returns the guard's derived timesheets, newest first
func GetMyTimesheets(st *store.Postgres) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userClaims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		timesheets, err := st.TimesheetsForGuard(r.Context(), userClaims.UserID, 100)
		if err != nil {
			log.Printf("❌ Error fetching timesheets for guard %s: %v", userClaims.UserID, err)
			utils.RespondError(w, http.StatusInternalServerError, "Database error")
			return
		}

		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data":    timesheets,
		})
	}
}
