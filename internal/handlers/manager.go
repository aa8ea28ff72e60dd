package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"guardpost-backend/internal/middleware"
	"guardpost-backend/internal/models"
	"guardpost-backend/internal/services"
	"guardpost-backend/internal/store"
	"guardpost-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type CreateShiftRequest struct {
	GuardID                string  `json:"guard_id"`
	SiteID                 string  `json:"site_id"`
	CustomerID             *string `json:"customer_id,omitempty"`
	ScheduledStart         int64   `json:"scheduled_start"`
	ScheduledEnd           int64   `json:"scheduled_end"`
	BreakMinutes           int     `json:"break_minutes"`
	WelfareIntervalMinutes int     `json:"welfare_interval_minutes"`
	Publish                bool    `json:"publish"`
}

// CreateShift creates a new shift assignment. With publish=true the shift is
// offered to the guard immediately, with a push notification and a live
// update to any connected device.
func CreateShift(st *store.Postgres, events services.EventPublisher, fcm *services.FCMService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userClaims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		var req CreateShiftRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		if req.GuardID == "" || req.SiteID == "" {
			utils.RespondError(w, http.StatusBadRequest, "guard_id and site_id are required")
			return
		}
		if req.ScheduledEnd <= req.ScheduledStart {
			utils.RespondError(w, http.StatusBadRequest, "scheduled_end must be after scheduled_start")
			return
		}
		if req.BreakMinutes < 0 || req.WelfareIntervalMinutes < 0 {
			utils.RespondError(w, http.StatusBadRequest, "break_minutes and welfare_interval_minutes must not be negative")
			return
		}

		guard, err := st.GetGuard(r.Context(), req.GuardID)
		if err != nil {
			if errors.Is(err, services.ErrNotFound) {
				utils.RespondError(w, http.StatusNotFound, "Guard not found")
				return
			}
			log.Printf("❌ Error loading guard %s: %v", req.GuardID, err)
			utils.RespondError(w, http.StatusInternalServerError, "Database error")
			return
		}

		site, err := st.GetSite(r.Context(), req.SiteID)
		if err != nil {
			if errors.Is(err, services.ErrNotFound) {
				utils.RespondError(w, http.StatusNotFound, "Site not found")
				return
			}
			log.Printf("❌ Error loading site %s: %v", req.SiteID, err)
			utils.RespondError(w, http.StatusInternalServerError, "Database error")
			return
		}

		status := models.ShiftStatusDraft
		if req.Publish {
			status = models.ShiftStatusPublished
		}

		companyID := ""
		if guard.CompanyID != nil {
			companyID = *guard.CompanyID
		}

		now := time.Now().Unix()
		shift := &models.Shift{
			ID:                     uuid.New().String(),
			GuardID:                guard.ID,
			SiteID:                 site.ID,
			CustomerID:             req.CustomerID,
			CompanyID:              companyID,
			ScheduledStart:         req.ScheduledStart,
			ScheduledEnd:           req.ScheduledEnd,
			BreakMinutes:           req.BreakMinutes,
			Status:                 status,
			WelfareState:           models.WelfareDisabled,
			WelfareIntervalMinutes: req.WelfareIntervalMinutes,
			CreatedAt:              now,
			UpdatedAt:              now,
		}

		if err := st.CreateShift(r.Context(), shift); err != nil {
			log.Printf("❌ Error creating shift: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to create shift")
			return
		}

		log.Printf("✅ Shift created: %s (Guard: %s, Site: %s, status: %s, by: %s)",
			shift.ID, guard.Email, site.Name, shift.Status, userClaims.Email)

		if req.Publish {
			events.EmitToGuard(guard.ID, "shift_update", shift)

			if fcm != nil {
				tokens, err := st.GuardTokens(r.Context(), guard.ID)
				if err != nil {
					log.Printf("⚠️  Failed to load FCM tokens for guard %s: %v", guard.ID, err)
				} else if len(tokens) > 0 {
					if err := fcm.SendShiftPublishedNotification(tokens, shift.ID, site.Name, shift.ScheduledStart); err != nil {
						log.Printf("⚠️  Failed to send shift notification: %v", err)
					}
				}
			}
		}

		utils.RespondJSON(w, http.StatusCreated, map[string]interface{}{
			"success": true,
			"data":    shift,
		})
	}
}

// CancelShift cancels a shift that has not started yet
func CancelShift(st *store.Postgres, events services.EventPublisher, fcm *services.FCMService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userClaims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		shiftID := chi.URLParam(r, "shiftID")

		shift, err := st.GetShift(r.Context(), shiftID)
		if err != nil {
			status, message := statusForError(err)
			utils.RespondError(w, status, message)
			return
		}

		cancelled, err := st.CancelShift(r.Context(), shiftID, time.Now().Unix())
		if err != nil {
			log.Printf("❌ Error cancelling shift %s: %v", shiftID, err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to cancel shift")
			return
		}
		if !cancelled {
			utils.RespondError(w, http.StatusConflict, "Shift has already started or finished")
			return
		}

		log.Printf("🚫 Shift cancelled: %s (by: %s)", shiftID, userClaims.Email)

		updated, err := st.GetShift(r.Context(), shiftID)
		if err != nil {
			updated = shift
		}

		events.EmitToGuard(shift.GuardID, "shift_update", updated)

		if fcm != nil {
			tokens, err := st.GuardTokens(r.Context(), shift.GuardID)
			if err == nil && len(tokens) > 0 {
				if err := fcm.SendShiftCancelledNotification(tokens, shiftID); err != nil {
					log.Printf("⚠️  Failed to send cancellation notification: %v", err)
				}
			}
		}

		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data":    updated,
		})
	}
}

// GetActiveGuards returns all guards on active shifts with their last known
// location, for the control-room dashboard
func GetActiveGuards(st *store.Postgres) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		guards, err := st.ListActiveGuards(r.Context())
		if err != nil {
			log.Printf("❌ Error fetching active guards: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Database error")
			return
		}

		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data":    guards,
		})
	}
}

// GetSites returns all sites
func GetSites(st *store.Postgres) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sites, err := st.ListSites(r.Context())
		if err != nil {
			log.Printf("❌ Error fetching sites: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Database error")
			return
		}

		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data":    sites,
		})
	}
}

// GetWelfareEvents returns the welfare audit trail for one shift
func GetWelfareEvents(st *store.Postgres) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shiftID := chi.URLParam(r, "shiftID")

		if _, err := st.GetShift(r.Context(), shiftID); err != nil {
			status, message := statusForError(err)
			utils.RespondError(w, status, message)
			return
		}

		events, err := st.WelfareEventsForShift(r.Context(), shiftID)
		if err != nil {
			log.Printf("❌ Error fetching welfare events for shift %s: %v", shiftID, err)
			utils.RespondError(w, http.StatusInternalServerError, "Database error")
			return
		}

		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data":    events,
		})
	}
}

// GetShiftTimesheet returns the derived timesheet for a completed shift
func GetShiftTimesheet(st *store.Postgres) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shiftID := chi.URLParam(r, "shiftID")

		timesheet, err := st.GetTimesheetByShift(r.Context(), shiftID)
		if err != nil {
			if errors.Is(err, services.ErrNotFound) {
				utils.RespondError(w, http.StatusNotFound, "No timesheet for this shift")
				return
			}
			log.Printf("❌ Error fetching timesheet for shift %s: %v", shiftID, err)
			utils.RespondError(w, http.StatusInternalServerError, "Database error")
			return
		}

		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data":    timesheet,
		})
	}
}
