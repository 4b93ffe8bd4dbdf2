package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"github.com/stripe/stripe-go/v82"

	"parkpulse/internal/api"
	"parkpulse/internal/auth"
	"parkpulse/internal/config"
	"parkpulse/internal/eventbus"
	"parkpulse/internal/logger"
	"parkpulse/internal/metrics"
	"parkpulse/internal/repository"
	"parkpulse/internal/service"
)

func main() {
	godotenv.Load()
	log := logger.New("main")

	cfg := config.Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			log.Fatal().Err(err).Str("path", path).Msg("loading config failed")
		}
		cfg = loaded
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	stripe.Key = os.Getenv("STRIPE_SECRET_KEY")

	// A DATABASE_URL selects the Postgres store; without one the server
	// runs fully in memory, which is what the demo mode uses.
	var store repository.Store
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		sqlDB, err := sql.Open("postgres", dbURL)
		if err != nil {
			log.Fatal().Err(err).Msg("opening database failed")
		}
		if err := sqlDB.Ping(); err != nil {
			log.Fatal().Err(err).Msg("connecting to database failed")
		}
		defer sqlDB.Close()
		store = repository.NewPostgresStore(sqlDB)
		log.Info().Msg("using postgres store")
	} else {
		store = repository.NewMemoryStore()
		log.Info().Msg("using in-memory store")
	}

	if os.Getenv("SEED_DEMO") == "true" {
		if err := repository.SeedDemo(store, time.Now().UTC()); err != nil {
			log.Fatal().Err(err).Msg("seeding demo data failed")
		}
		log.Info().Msg("demo data seeded")
	}

	bus := eventbus.New()
	defer bus.Close()

	var stripeSvc *service.StripeService
	if stripe.Key != "" {
		stripeSvc = service.NewStripeService(
			os.Getenv("STRIPE_SUCCESS_URL"),
			os.Getenv("STRIPE_CANCEL_URL"),
		)
	}
	var senderSvc *service.SenderService
	if os.Getenv("SENDGRID_API_KEY") != "" || os.Getenv("TWILIO_ACCOUNT_SID") != "" {
		senderSvc = service.NewSenderService()
	}

	alertSvc := service.NewAlertService(store)
	alertSvc.Watch(bus)

	estimator := service.NewDemandEstimator(store, cfg.Engine)
	pricer := service.NewPricingEngine(cfg.Engine.SurgeCeiling)
	predictor := service.NewAvailabilityPredictor(cfg.Engine)
	engineSvc := service.NewEngineService(store, estimator, pricer, predictor, alertSvc, cfg.Engine)

	reservationSvc := service.NewReservationService(store, stripeSvc, senderSvc, bus, cfg.Booking)
	jobSvc := service.NewJobService(store, alertSvc, cfg.Booking)
	slotSvc := service.NewSlotService(store, bus)
	dashboardSvc := service.NewDashboardService(store, estimator)
	authSvc := service.NewAuthService(store)

	// Annotations should exist before the first request lands.
	engineSvc.Recompute()

	c := cron.New()
	c.AddFunc("@every "+(time.Duration(cfg.Engine.RecomputeIntervalMinutes)*time.Minute).String(), engineSvc.Recompute)
	c.AddFunc("@every 1m", jobSvc.RunSweeps)
	c.AddFunc("@hourly", engineSvc.SampleOccupancy)
	c.Start()
	defer c.Stop()

	slotHandler := api.NewSlotHandler(slotSvc)
	bookingHandler := api.NewBookingHandler(reservationSvc)
	operatorHandler := api.NewOperatorHandler(authSvc, dashboardSvc, alertSvc, slotSvc, reservationSvc)
	stripeHandler := api.NewStripeWebhookHandler(os.Getenv("STRIPE_WEBHOOK_SECRET"), reservationSvc)

	r := mux.NewRouter()

	// Public endpoints
	r.HandleFunc("/api/slots", slotHandler.SearchSlots).Methods("GET")
	r.HandleFunc("/api/slots/{id}", slotHandler.GetSlot).Methods("GET")
	r.HandleFunc("/api/bookings", bookingHandler.CreateBooking).Methods("POST")
	r.HandleFunc("/api/bookings/{code}", bookingHandler.GetBooking).Methods("GET")
	r.HandleFunc("/api/bookings/{code}/checkin", bookingHandler.CheckIn).Methods("POST")
	r.HandleFunc("/api/bookings/{code}/cancel", bookingHandler.CancelBooking).Methods("POST")
	r.HandleFunc("/api/stripe/webhook", stripeHandler.HandleWebhook).Methods("POST")
	r.HandleFunc("/operator/login", operatorHandler.Login).Methods("POST")
	r.Handle("/metrics", metrics.Handler()).Methods("GET")
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}).Methods("GET")

	// Operator endpoints (protected)
	operator := r.PathPrefix("/operator").Subrouter()
	operator.Use(auth.OperatorAuthMiddleware)
	operator.HandleFunc("/dashboard", operatorHandler.GetDashboard).Methods("GET")
	operator.HandleFunc("/analytics", operatorHandler.GetAnalytics).Methods("GET")
	operator.HandleFunc("/bookings", operatorHandler.ListBookings).Methods("GET")
	operator.HandleFunc("/alerts", operatorHandler.ListAlerts).Methods("GET")
	operator.HandleFunc("/alerts/{id}/read", operatorHandler.MarkAlertRead).Methods("PUT")
	operator.HandleFunc("/alerts/{id}", operatorHandler.DeleteAlert).Methods("DELETE")
	operator.HandleFunc("/slots", operatorHandler.CreateSlot).Methods("POST")
	operator.HandleFunc("/slots/{id}/spots", operatorHandler.UpdateSpots).Methods("PUT")
	operator.HandleFunc("/slots/{id}/maintenance", operatorHandler.SetMaintenance).Methods("PUT")
	operator.HandleFunc("/slots/{id}/rules", operatorHandler.ListRules).Methods("GET")
	operator.HandleFunc("/slots/{id}/rules", operatorHandler.AddRule).Methods("POST")
	operator.HandleFunc("/rules/{id}", operatorHandler.UpdateRule).Methods("PUT")
	operator.HandleFunc("/rules/{id}", operatorHandler.DeleteRule).Methods("DELETE")
	operator.HandleFunc("/events", operatorHandler.AddDemandEvent).Methods("POST")

	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization", "Stripe-Signature"}),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      cors(handlers.LoggingHandler(os.Stdout, r)),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("shutdown failed")
	}
	log.Info().Msg("server stopped")
}
