package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ticketnepal/internal/auth"
	"ticketnepal/internal/clock"
	"ticketnepal/internal/config"
	"ticketnepal/internal/database"
	"ticketnepal/internal/database/migrations"
	eventsdb "ticketnepal/internal/events/db"
	"ticketnepal/internal/events/event_api"
	events "ticketnepal/internal/events/service"
	"ticketnepal/internal/kafka"
	"ticketnepal/internal/logger"
	"ticketnepal/internal/notification"
	"ticketnepal/internal/scheduler"
	staffdb "ticketnepal/internal/staff/db"
	staff "ticketnepal/internal/staff/service"
	"ticketnepal/internal/staff/staff_api"
	ticketdb "ticketnepal/internal/tickets/db"
	qr "ticketnepal/internal/tickets/qr_generator"
	ticketredis "ticketnepal/internal/tickets/redis"
	tickets "ticketnepal/internal/tickets/service"
	"ticketnepal/internal/tickets/template"
	"ticketnepal/internal/tickets/ticket_api"
	usersdb "ticketnepal/internal/users/db"
	"ticketnepal/internal/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/uptrace/bun"
)

func verifyConnections(ctx context.Context, cfg *config.Config, log *logger.Logger) (*bun.DB, *redis.Client) {
	bunDB, err := database.Connect(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal("DATABASE", err.Error())
	}

	if !cfg.Redis.Enabled {
		log.Warn("REDIS", "Redis disabled, seat holds and token cache are off")
		return bunDB, nil
	}
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: 10,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Warn("REDIS", fmt.Sprintf("Redis at %s unreachable, continuing without it: %v", cfg.Redis.Addr, err))
		redisClient.Close()
		return bunDB, nil
	}
	log.Info("REDIS", fmt.Sprintf("Redis connection successful to %s (DB: %d)", cfg.Redis.Addr, cfg.Redis.DB))
	return bunDB, redisClient
}

// runMigrations uses its own connection because closing the migrator closes it.
func runMigrations(cfg *config.Config, log *logger.Logger) error {
	sqldb, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return err
	}
	runner := migrations.NewRunner(sqldb, migrations.MigrateOptions{Dir: cfg.App.MigrationsDir}, log)
	defer runner.Close()
	return runner.RunMigrations()
}

func buildVerifier(ctx context.Context, cfg config.AuthConfig) (auth.Verifier, error) {
	if cfg.JWTSecret != "" {
		return auth.NewHMACVerifier(cfg.JWTSecret)
	}
	if cfg.OIDCIssuer != "" {
		return auth.NewOIDCVerifier(ctx, cfg.OIDCIssuer, cfg.OIDCClientID)
	}
	return nil, errors.New("set JWT_SECRET or OIDC_ISSUER")
}

// requestLogger logs every request through the service logger.
func requestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.LogAPI(r.Method, r.URL.Path, ww.Status(), time.Since(start))
		})
	}
}

func main() {
	envErr := godotenv.Load()
	cfg := config.Load()

	log, err := logger.NewLogger(cfg.Log.Dir, cfg.App.Name, logger.ParseLevel(cfg.Log.Level))
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	log.Info("APP", "Starting ticketnepal initialization")
	if envErr != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bunDB, redisClient := verifyConnections(ctx, cfg, log)
	defer bunDB.Close()
	if redisClient != nil {
		defer redisClient.Close()
	}

	if err := runMigrations(cfg, log); err != nil {
		log.Fatal("MIGRATE", err.Error())
	}

	var publisher kafka.Publisher = kafka.LogPublisher{Logger: log}
	if cfg.Kafka.Enabled {
		if err := kafka.EnsureTopicsExist(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topics.All(), log); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		}
		producer := kafka.NewProducer(cfg.Kafka.Brokers, log)
		defer producer.Close()
		publisher = producer
		log.Info("KAFKA", "Kafka producer initialized successfully")
	}
	emitter := kafka.NewEmitter(publisher, cfg.Kafka.Topics)
	notifier := notification.NewKafkaNotifier(publisher, cfg.Kafka.Topics.EmailNotification, log)

	verifier, err := buildVerifier(ctx, cfg.Auth)
	if err != nil {
		log.Fatal("AUTH", err.Error())
	}

	clk := clock.NewSystem()
	eventStore := eventsdb.NewDB(bunDB)
	ticketStore := ticketdb.NewDB(bunDB)
	staffStore := staffdb.NewDB(bunDB)
	userStore := usersdb.NewDB(bunDB)

	ticketOpts := []tickets.Option{
		tickets.WithPDF(template.NewTicketPDFGenerator()),
		tickets.WithNotifier(notifier),
		tickets.WithPublisher(emitter),
		tickets.WithClock(clk),
		tickets.WithLogger(log),
		tickets.WithQRSize(cfg.Booking.QRSize),
		tickets.WithStoreTimeout(cfg.Booking.StoreTimeout),
	}
	if redisClient != nil {
		ticketOpts = append(ticketOpts, tickets.WithSeatHolds(ticketredis.NewSeatHolds(redisClient, cfg.Redis.HoldTTL, log)))
		verifier = auth.NewCachingVerifier(verifier, redisClient, log)
	}

	gate := staff.NewGate(eventStore, staffStore)
	ticketService := tickets.NewTicketService(ticketStore, eventStore, userStore, gate, qr.NewQRGenerator(), ticketOpts...)
	staffService := staff.NewStaffService(staffStore, eventStore, userStore, notifier, emitter, clk, log, cfg.App.PublicBaseURL)
	eventService := events.NewEventService(eventStore, ticketStore, emitter, clk, log, cfg.Booking.Location())
	staffService.StoreTimeout = cfg.Booking.StoreTimeout
	eventService.StoreTimeout = cfg.Booking.StoreTimeout

	ticketHandler := ticket_api.NewHandler(ticketService, log)
	staffHandler := staff_api.NewHandler(staffService, log)
	eventHandler := event_api.NewHandler(eventService, log)

	log.Info("HTTP", "Setting up router and middleware")
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(log))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := bunDB.PingContext(r.Context()); err != nil {
			utils.WriteJSON(w, http.StatusServiceUnavailable, utils.ErrorResponse("unhealthy", "database unreachable"))
			return
		}
		utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("ok", nil))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		ticketHandler.RegisterPublicRoutes(r)
		staffHandler.RegisterPublicRoutes(r)
		log.Info("ROUTER", "Public ticket and staff decision routes registered")

		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(verifier, log))
			ticketHandler.RegisterRoutes(r)
			staffHandler.RegisterRoutes(r)
			eventHandler.RegisterRoutes(r)
			log.Info("ROUTER", "Protected routes registered under /api")
		})
	})

	if cfg.Scheduler.SweepEnabled {
		go scheduler.New(eventService, cfg.Scheduler.SweepInterval, log).Start(ctx)
	}

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("ticketnepal listening on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("APP", "Shutdown signal received")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP", fmt.Sprintf("Graceful shutdown failed: %v", err))
	}
	log.Info("APP", "Shutdown complete")
}
