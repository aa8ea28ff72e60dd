package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"guardpost-backend/internal/database"
	"guardpost-backend/internal/handlers"
	"guardpost-backend/internal/middleware"
	"guardpost-backend/internal/services"
	"guardpost-backend/internal/store"
	"guardpost-backend/internal/websocket"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
)

func main() {
	log.Println("═══════════════════════════════════════════════════════════════════")
	log.Println("🚀 GUARDPOST BACKEND SERVER STARTING")
	log.Println("═══════════════════════════════════════════════════════════════════")

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  Warning: .env file not found, using environment variables from system")
	}

	// Get database URL
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	// Connect to database
	db, err := database.Connect(dbURL)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	// Run migrations
	if err := database.Migrate(db); err != nil {
		log.Fatal(err)
	}

	// Seed database
	if err := database.SeedUsers(db); err != nil {
		log.Fatal(err)
	}
	if err := database.SeedSites(db); err != nil {
		log.Fatal(err)
	}

	// Initialize Firebase Cloud Messaging.
	// Supports both file path and base64-encoded credentials (for cloud deployments).
	var fcmService *services.FCMService
	fcmCredsBase64 := os.Getenv("FIREBASE_CREDENTIALS_BASE64")

	if fcmCredsBase64 != "" {
		fcmService, err = services.NewFCMServiceFromBase64(fcmCredsBase64)
		if err != nil {
			log.Printf("⚠️  Failed to initialize FCM from base64: %v (push notifications disabled)", err)
			fcmService = nil
		} else {
			log.Println("✅ Firebase Cloud Messaging initialized from base64 credentials")
		}
	} else {
		fcmCredentialsFile := os.Getenv("FIREBASE_CREDENTIALS_FILE")
		if fcmCredentialsFile == "" {
			fcmCredentialsFile = "./firebase-service-account.json"
		}

		fcmService, err = services.NewFCMService(fcmCredentialsFile)
		if err != nil {
			log.Printf("⚠️  Failed to initialize FCM from file: %v (push notifications disabled)", err)
			fcmService = nil
		} else {
			log.Println("✅ Firebase Cloud Messaging initialized from file")
		}
	}

	// Initialize WebSocket hub
	wsHub := websocket.NewHub()
	go wsHub.Run()
	log.Println("✅ WebSocket hub started")

	// Wire the domain services
	st := store.NewPostgres(db)
	publisher := websocket.NewPublisher(wsHub)

	var notifier services.Notifier
	if fcmService != nil {
		notifier = fcmService
	}

	deriver := services.NewTimesheetDeriver(st)
	lifecycle := services.NewShiftLifecycle(st, st, st, publisher, notifier, deriver)
	welfareMonitor := services.NewWelfareMonitor(st, st, st, publisher, notifier)
	sweeper := services.NewMissedShiftSweeper(st, st, publisher, notifier)

	// Background loops: welfare prompts/alarms and the missed-shift sweep
	go welfareMonitor.Run(context.Background())
	go sweeper.Run(context.Background())
	log.Println("✅ Welfare monitor and missed-shift sweeper started")

	// Create router
	r := chi.NewRouter()

	// Middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	// Authentication routes (no auth required)
	r.Post("/api/auth/login", handlers.Login(db))

	// WebSocket endpoint (authentication handled in handler via query param)
	r.Get("/ws", websocket.HandleWebSocket(wsHub, db))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Guard endpoints (require authentication)
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth)

			// Shift lifecycle
			r.Get("/guard/shift/current", handlers.GetCurrentShift(st))
			r.Get("/guard/shifts", handlers.GetMyShifts(st))
			r.Post("/guard/shifts/{shiftID}/accept", handlers.AcceptShift(lifecycle))
			r.Post("/guard/shifts/{shiftID}/reject", handlers.RejectShift(lifecycle))
			r.Post("/guard/shifts/{shiftID}/check-in", handlers.CheckIn(lifecycle))
			r.Post("/guard/shifts/{shiftID}/check-out", handlers.CheckOut(lifecycle))

			// Welfare confirmation
			r.Post("/guard/shifts/{shiftID}/welfare/confirm", handlers.ConfirmWelfare(welfareMonitor))

			// Timesheets
			r.Get("/guard/timesheets", handlers.GetMyTimesheets(st))

			// Location fallback for devices without a live socket
			r.Post("/guard/location", handlers.UpdateLocation(db, publisher))

			// FCM token registration
			r.Post("/guard/fcm-token", handlers.RegisterFCMToken(st))
		})

		// Manager endpoints (require authentication + manager role)
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth)
			r.Use(middleware.RequireRole("manager"))

			// Shift scheduling
			r.Post("/manager/shifts", handlers.CreateShift(st, publisher, fcmService))
			r.Post("/manager/shifts/{shiftID}/cancel", handlers.CancelShift(st, publisher, fcmService))

			// Live operations
			r.Get("/manager/active-guards", handlers.GetActiveGuards(st))
			r.Get("/manager/sites", handlers.GetSites(st))
			r.Get("/manager/shifts/{shiftID}/welfare-events", handlers.GetWelfareEvents(st))
			r.Get("/manager/shifts/{shiftID}/timesheet", handlers.GetShiftTimesheet(st))

			// User management
			r.Post("/users", handlers.CreateUser(db))
		})
	})

	// Get port
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
		log.Printf("⚠️  PORT not set, using default: %s", port)
	}

	log.Println("═══════════════════════════════════════════════════════════════════")
	log.Println("✅ ALL INITIALIZATION COMPLETE")
	log.Printf("🚀 Server starting on http://localhost:%s", port)
	log.Println("═══════════════════════════════════════════════════════════════════")

	// Start server
	if err := http.ListenAndServe(":"+port, r); err != nil {
		log.Fatal(err)
	}
}
