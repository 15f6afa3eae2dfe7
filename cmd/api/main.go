// cmd/api/main.go
// Main entry point for the application
// This file bootstraps all components and starts the server

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	// Internal packages
	"github.com/hoangnv/firstdate-backend/internal/auth"
	"github.com/hoangnv/firstdate-backend/internal/common/database"
	"github.com/hoangnv/firstdate-backend/internal/config"
	"github.com/hoangnv/firstdate-backend/internal/notification"
	"github.com/hoangnv/firstdate-backend/internal/pairing"
	"github.com/hoangnv/firstdate-backend/internal/payment"
	"github.com/hoangnv/firstdate-backend/internal/scheduling"
	"github.com/hoangnv/firstdate-backend/internal/users"
)

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	log.Println("========================================")
	log.Println("🚀 Starting FirstDate Scheduling API")
	log.Println("========================================")

	// 1. Load environment variables
	log.Println("📁 Step 1: Loading .env file...")
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  Warning: No .env file found (%v), using environment variables", err)
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	// 2. Load and validate configuration
	log.Println("\n📋 Step 2: Loading configuration...")
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal("❌ Configuration validation failed:", err)
	}
	log.Println("✅ Configuration loaded and valid")

	// 3. Connect to PostgreSQL
	log.Println("\n🗄️  Step 3: Connecting to PostgreSQL...")
	db, err := database.NewPostgresDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("❌ Failed to connect to PostgreSQL:", err)
	}
	defer db.Close()
	log.Println("✅ Connected to PostgreSQL successfully")

	// 4. Connect to Redis (optional, used for daily quota counters)
	log.Println("\n📮 Step 4: Connecting to Redis...")
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.NewRedisClientFromURL(cfg.RedisURL)
		if err != nil {
			log.Printf("⚠️  Redis unavailable (%v), continuing without it", err)
			redisClient = nil
		} else {
			defer redisClient.Close()
			log.Println("✅ Connected to Redis successfully")
		}
	} else {
		log.Println("⚠️  Redis URL not configured, skipping Redis connection")
	}

	// 5. Run database migrations
	log.Println("\n🔨 Step 5: Running database migrations...")
	if err := runMigrations(db); err != nil {
		log.Fatal("❌ Failed to run migrations: ", err)
	}
	log.Println("✅ Database migrations completed")

	// 6. Users module
	log.Println("\n👤 Step 6: Initializing Users module...")
	usersRepo := users.NewPostgresRepository(db)
	usersService := users.NewService(usersRepo)
	usersHandler := users.NewHandler(usersService)
	log.Println("✅ Users module initialized")

	// 7. Auth middleware
	log.Println("\n🔐 Step 7: Initializing authentication middleware...")
	authMiddleware := auth.NewMiddleware(cfg.JWTSecret)
	log.Println("✅ Authentication middleware initialized")

	// 8. Notification module
	log.Println("\n🔔 Step 8: Initializing Notification module...")
	notificationRepo := notification.NewPostgresRepository(db)

	hub := notification.NewHub()
	go hub.Run()
	log.Println("   ✅ WebSocket hub started")

	var pushService notification.PushService
	if cfg.EnablePushNotifications {
		pushService, err = notification.NewFCMPushService(context.Background())
		if err != nil {
			log.Printf("   ⚠️  FCM unavailable (%v), using mock push service", err)
			pushService = notification.NewMockPushService()
		} else {
			log.Println("   ✅ FCM push service initialized")
		}
	} else {
		pushService = notification.NewMockPushService()
		log.Println("   📝 Using mock push service (development mode)")
	}

	var emailService notification.EmailService
	if cfg.EnableEmailNotifications {
		emailService, err = notification.NewSendGridEmailService(cfg.SendGridAPIKey, cfg.EmailFrom)
		if err != nil {
			log.Printf("   ⚠️  SendGrid unavailable (%v), using mock email service", err)
			emailService = notification.NewMockEmailService()
		} else {
			log.Println("   ✅ SendGrid email service initialized")
		}
	} else {
		emailService = notification.NewMockEmailService()
		log.Println("   📝 Using mock email service (development mode)")
	}

	var smsService notification.SMSService
	if cfg.EnableSMSNotifications {
		smsService, err = notification.NewTwilioSMSService(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioPhoneNumber)
		if err != nil {
			log.Printf("   ⚠️  Twilio unavailable (%v), using mock SMS service", err)
			smsService = notification.NewMockSMSService()
		} else {
			log.Println("   ✅ Twilio SMS service initialized")
		}
	} else {
		smsService = notification.NewMockSMSService()
		log.Println("   📝 Using mock SMS service (development mode)")
	}

	notificationService := notification.NewService(notificationRepo, hub, pushService, emailService, smsService, usersService)
	notificationHandler := notification.NewHandler(notificationService, hub)
	log.Println("✅ Notification module initialized")

	// 9. Pairing module
	log.Println("\n💘 Step 9: Initializing Pairing module...")
	pairingRepo := pairing.NewPostgresRepository(db)
	pairingService := pairing.NewService(pairingRepo, usersService, notificationService, redisClient, cfg.DailyLikeQuota)
	pairingHandler := pairing.NewHandler(pairingService)
	log.Println("✅ Pairing module initialized")

	// 10. Scheduling module
	log.Println("\n📅 Step 10: Initializing Scheduling module...")
	schedulingRepo := scheduling.NewPostgresRepository(db)
	schedulingService := scheduling.NewService(schedulingRepo, usersService, pairingService, notificationService,
		cfg.MinSlotDuration, cfg.CancelPenaltyDuration, cfg.MinAvailabilitySlots)
	schedulingHandler := scheduling.NewHandler(schedulingService)

	if err := schedulingService.SeedVenues(context.Background()); err != nil {
		log.Printf("⚠️  Venue seeding failed: %v", err)
	}
	log.Println("✅ Scheduling module initialized")

	// 11. Payment module
	log.Println("\n💳 Step 11: Initializing Payment module...")
	paymentRepo := payment.NewPostgresRepository(db)
	paymentService := payment.NewService(paymentRepo, schedulingService, payment.Gateway{
		TmnCode:    cfg.VNPayTmnCode,
		HashSecret: cfg.VNPayHashSecret,
		PayURL:     cfg.VNPayURL,
		ReturnURL:  cfg.VNPayReturnURL,
	})
	paymentHandler := payment.NewHandler(paymentService)
	log.Println("✅ Payment module initialized")

	// 12. Routes
	log.Println("\n🛣️  Step 12: Setting up routes...")
	router := mux.NewRouter()

	router.HandleFunc("/health", healthCheck).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	router.PathPrefix("/api/v1/users").Handler(users.RegisterRoutes(authMiddleware.Authenticate, usersHandler))
	log.Println("   ✅ Users routes registered")

	pairing.RegisterRoutes(router, pairingHandler, authMiddleware)
	log.Println("   ✅ Pairing routes registered")

	scheduling.RegisterRoutes(router, schedulingHandler, authMiddleware)
	log.Println("   ✅ Scheduling routes registered")

	payment.RegisterRoutes(router, paymentHandler, authMiddleware)
	log.Println("   ✅ Payment routes registered")

	notification.RegisterRoutes(router, notificationHandler, authMiddleware)
	log.Println("   ✅ Notification routes registered")

	router.Use(loggingMiddleware)
	router.Use(corsMiddleware)

	// 13. Start the HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Println("\n========================================")
		log.Printf("🚀 Server starting on http://localhost%s", srv.Addr)
		log.Printf("🌍 Environment: %s", cfg.Environment)
		log.Println("========================================")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("❌ Failed to start server:", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("\n⚠️  Shutdown signal received...")

	hub.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("❌ Server forced to shutdown:", err)
	}

	log.Println("✅ Server exited gracefully")
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.RequestURI, time.Since(start))
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// runMigrations executes database migrations
func runMigrations(db *sqlx.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id SERIAL PRIMARY KEY,
			email VARCHAR(255) UNIQUE NOT NULL,
			phone VARCHAR(20),
			name VARCHAR(100) NOT NULL,
			age INTEGER,
			gender VARCHAR(20),
			bio TEXT,
			avatar_url TEXT,
			interests TEXT,
			latitude DOUBLE PRECISION,
			longitude DOUBLE PRECISION,
			penalized_until TIMESTAMP WITH TIME ZONE,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS interest_signals (
			id SERIAL PRIMARY KEY,
			from_user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			to_user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			kind VARCHAR(10) NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT unique_signal UNIQUE(from_user_id, to_user_id)
		)`,

		`CREATE TABLE IF NOT EXISTS matches (
			id SERIAL PRIMARY KEY,
			user1_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			user2_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			status VARCHAR(30) NOT NULL DEFAULT 'WAITING_FOR_SCHEDULE',
			created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT unique_pair UNIQUE(user1_id, user2_id),
			CONSTRAINT ordered_pair CHECK (user1_id < user2_id)
		)`,

		`CREATE TABLE IF NOT EXISTS availabilities (
			id SERIAL PRIMARY KEY,
			user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			start_time TIMESTAMP WITH TIME ZONE NOT NULL,
			end_time TIMESTAMP WITH TIME ZONE NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS venues (
			id SERIAL PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			address TEXT NOT NULL,
			latitude DOUBLE PRECISION NOT NULL,
			longitude DOUBLE PRECISION NOT NULL,
			active BOOLEAN DEFAULT TRUE
		)`,

		`CREATE TABLE IF NOT EXISTS date_bookings (
			id SERIAL PRIMARY KEY,
			requester_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			recipient_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			match_id INTEGER REFERENCES matches(id) ON DELETE SET NULL,
			start_time TIMESTAMP WITH TIME ZONE NOT NULL,
			end_time TIMESTAMP WITH TIME ZONE NOT NULL,
			status VARCHAR(20) NOT NULL,
			venue_id INTEGER REFERENCES venues(id),
			requester_confirmed BOOLEAN DEFAULT FALSE,
			recipient_confirmed BOOLEAN DEFAULT FALSE,
			requester_attended BOOLEAN,
			recipient_attended BOOLEAN,
			requester_wants_contact BOOLEAN,
			recipient_wants_contact BOOLEAN,
			contact_exchanged BOOLEAN DEFAULT FALSE,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS notifications (
			id SERIAL PRIMARY KEY,
			user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			kind VARCHAR(50) NOT NULL,
			message TEXT,
			data JSONB NOT NULL DEFAULT '{}',
			is_read BOOLEAN DEFAULT FALSE,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS activities (
			id SERIAL PRIMARY KEY,
			user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			message TEXT NOT NULL,
			kind VARCHAR(50) NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS device_tokens (
			id SERIAL PRIMARY KEY,
			user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			token TEXT NOT NULL,
			platform VARCHAR(10) NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT unique_device_token UNIQUE(token)
		)`,

		`CREATE TABLE IF NOT EXISTS payment_transactions (
			id SERIAL PRIMARY KEY,
			txn_ref VARCHAR(50) NOT NULL,
			booking_id INTEGER NOT NULL REFERENCES date_bookings(id) ON DELETE CASCADE,
			user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			amount BIGINT NOT NULL,
			status VARCHAR(10) NOT NULL DEFAULT 'PENDING',
			response_code VARCHAR(10),
			created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT unique_txn_ref UNIQUE(txn_ref)
		)`,

		// Indexes
		`CREATE INDEX IF NOT EXISTS idx_signals_from_user ON interest_signals(from_user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_signals_to_user ON interest_signals(to_user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_matches_user1 ON matches(user1_id)`,
		`CREATE INDEX IF NOT EXISTS idx_matches_user2 ON matches(user2_id)`,
		`CREATE INDEX IF NOT EXISTS idx_availabilities_user ON availabilities(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_requester ON date_bookings(requester_id)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_recipient ON date_bookings(recipient_id)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_time ON date_bookings(start_time, end_time)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_activities_user ON activities(user_id, created_at DESC)`,
	}

	for i, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			if !strings.Contains(err.Error(), "already exists") {
				return fmt.Errorf("migration %d failed: %w", i+1, err)
			}
		}
	}
	return nil
}
