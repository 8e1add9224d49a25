package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/patente-app/backend/internal/auth"
	"github.com/patente-app/backend/internal/config"
	"github.com/patente-app/backend/internal/corpus"
	"github.com/patente-app/backend/internal/database"
	"github.com/patente-app/backend/internal/flashcards"
	"github.com/patente-app/backend/internal/middleware"
	"github.com/patente-app/backend/internal/premium"
	"github.com/patente-app/backend/internal/profile"
	"github.com/patente-app/backend/internal/quiz"
	"github.com/patente-app/backend/internal/scheduler"
	"github.com/patente-app/backend/internal/selection"
	"github.com/patente-app/backend/internal/translator"
	"github.com/rs/cors"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Ignoring .env: %v", err)
	}
	cfg := config.FromEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database
	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	db, err := database.Connect(connectCtx, cfg.DBDriver, cfg.DBDSN)
	cancel()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize services
	secret := []byte(cfg.JWTSecret)
	picker := selection.NewPicker()
	items := corpus.NewStore(db)
	users := auth.NewStore(db)

	corpusService := corpus.NewService(items)
	quizService := quiz.NewService(items, quiz.NewStore(db), picker)
	flashcardService := flashcards.NewService(items, flashcards.NewStore(db), picker)
	llm, model := translator.NewClient(cfg)
	translatorService := translator.NewService(items, llm, model)
	premiumService := premium.NewService(premium.NewStore(db), premium.Config{
		WebhookSecret:   []byte(cfg.PaymentWebhookSecret),
		CheckoutBaseURL: cfg.CheckoutBaseURL,
		PriceCents:      cfg.PremiumPriceCents,
		Currency:        cfg.PremiumCurrency,
	})

	// Initialize handlers
	authHandler := auth.NewHandler(users, secret)
	premiumHandler := premium.NewHandler(premiumService)

	// Setup router
	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1").Subrouter()

	// Public routes
	authHandler.RegisterPublicRoutes(api)
	premiumHandler.RegisterPublicRoutes(api)

	// Protected routes
	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.AuthMiddleware(secret))
	authHandler.RegisterRoutes(protected)
	quiz.NewHandler(quizService).RegisterRoutes(protected)
	flashcards.NewHandler(flashcardService).RegisterRoutes(protected)
	profile.NewHandler(users, quizService, flashcardService).RegisterRoutes(protected)
	premiumHandler.RegisterRoutes(protected)

	// Admin routes
	admin := protected.PathPrefix("/admin").Subrouter()
	admin.Use(middleware.AdminOnly)
	corpus.NewHandler(corpusService, translatorService).RegisterRoutes(admin)

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", premium.SignatureHeader},
		AllowCredentials: true,
	})

	// Background jobs
	if cfg.SchedulerEnabled() {
		jobs := scheduler.New(corpusService, translatorService, scheduler.Intervals{
			CrossRef:  cfg.CrossRefInterval,
			Translate: cfg.TranslateInterval,
		})
		if err := jobs.Start(); err != nil {
			log.Fatalf("Failed to start scheduler: %v", err)
		}
		defer jobs.Stop()
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           c.Handler(r),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Shutdown: %v", err)
		}
	}()

	log.Printf("Server starting on :%s (db=%s)", cfg.Port, cfg.DBDriver)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Server failed: %v", err)
	}
	log.Println("Server stopped")
}
