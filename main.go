package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	clerk "github.com/clerk/clerk-sdk-go/v2"
	gorilllaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"

	"fitLadderAPI/handlers"
	"fitLadderAPI/internal/config"
	"fitLadderAPI/internal/localstore"
	"fitLadderAPI/internal/store"
	"fitLadderAPI/middleware"
	"fitLadderAPI/services"
)

type pinger interface {
	Ping(ctx context.Context) error
}

func newLogger(level string) *slog.Logger {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: l}))
}

func openRemote(ctx context.Context, cfg *config.Config) (store.RemoteStore, error) {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		pool, err := store.NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		log.Println("Successfully connected to Postgres")
		pg, err := store.NewPostgresStore(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, err
		}
		return pg, nil
	case config.BackendMemory:
		log.Println("Using in-memory ladder store")
		return store.NewMemoryStore(), nil
	default:
		fs, err := store.NewFirestoreStore(ctx, store.FirestoreConfig{
			ProjectID:       cfg.FirebaseProjectID,
			CredentialsJSON: cfg.FirebaseCredsJSON,
			CredentialsFile: cfg.FirebaseCredsFile,
			Collection:      cfg.FirestoreUsersColl,
		})
		if err != nil {
			return nil, err
		}
		return fs, nil
	}
}

func openLocal(ctx context.Context, cfg *config.Config) (localstore.KV, error) {
	if cfg.LocalStore == config.LocalRedis {
		kv := localstore.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := kv.Ping(ctx); err != nil {
			kv.Close()
			return nil, err
		}
		log.Printf("Local store: redis at %s", cfg.RedisAddr)
		return kv, nil
	}
	kv, err := localstore.OpenSQLite(cfg.SQLitePath)
	if err != nil {
		return nil, err
	}
	log.Printf("Local store: sqlite at %s", cfg.SQLitePath)
	return kv, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Invalid configuration: ", err)
	}

	clerk.SetKey(cfg.ClerkSecretKey)
	log.Println("Clerk initialized successfully")

	logger := newLogger(cfg.LogLevel)
	tracer := otel.Tracer("fitLadderAPI")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	remote, err := openRemote(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to open ladder store: ", err)
	}
	kv, err := openLocal(ctx, cfg)
	cancel()
	if err != nil {
		log.Fatal("Failed to open local store: ", err)
	}
	defer func() {
		log.Println("Closing stores...")
		remote.Close()
		kv.Close()
	}()

	middleware.InitPrometheus()
	services.InitMetrics()

	clock := services.RealClock()
	repo := store.NewCandidateRepository(remote, store.RepositoryConfig{
		FetchLimit:   cfg.FetchLimit,
		MaxRetries:   cfg.MaxFetchRetries,
		RetryBackoff: cfg.RetryBackoff,
		OnRetry:      services.ObserveRetry,
	}, logger)

	queue := services.NewSyncQueue(repo, clock, tracer, logger)
	sessions := services.NewSessionManager(repo, queue, kv, cfg.Timezone, logger)
	limiter := services.NewSubmissionLimiter(kv, clock, cfg.SubmissionCooldown, logger)
	ladderService := services.NewLadderService(repo, sessions, clock, tracer, logger, cfg.PageSize)
	submissionService := services.NewSubmissionService(sessions, limiter, queue, clock, tracer, logger)
	userService := services.NewUserService(sessions, queue, clock, logger)

	userHandler := handlers.NewUserHandler(userService)
	ladderHandler := handlers.NewLadderHandler(ladderService, submissionService, userService)

	rateLimiter := middleware.NewIPRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	cleanupCtx, stopCleanup := context.WithCancel(context.Background())
	defer stopCleanup()
	go rateLimiter.Cleanup(cleanupCtx)
	go queue.Cleanup(cleanupCtx)
	go ladderService.Cleanup(cleanupCtx)

	r := mux.NewRouter()
	r.Use(rateLimiter.Middleware)
	r.Use(middleware.MonitorMiddleware)

	r.Handle("/metrics", middleware.BasicAuth(cfg.MetricsUser, cfg.MetricsPass)(promhttp.Handler()))

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		if p, ok := remote.(pinger); ok {
			if err := p.Ping(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte(`{"status": "unhealthy", "error": "ladder store unreachable"}`))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy", "service": "fitladder-api"}`))
	}).Methods("GET")

	protected := r.PathPrefix("/api/v1").Subrouter()
	protected.Use(middleware.ClerkAuthMiddleware)

	protected.HandleFunc("/user", userHandler.GetProfile).Methods("GET")
	protected.HandleFunc("/user", userHandler.UpdateProfile).Methods("PATCH")

	protected.HandleFunc("/ladder", ladderHandler.GetLadder).Methods("GET")
	protected.HandleFunc("/ladder/refresh", ladderHandler.RefreshLadder).Methods("POST")
	protected.HandleFunc("/ladder/view", ladderHandler.CloseView).Methods("DELETE")
	protected.HandleFunc("/ladder/submit", ladderHandler.Submit).Methods("POST")
	protected.HandleFunc("/ladder/submission-status", ladderHandler.SubmissionStatus).Methods("GET")

	corsHandler := gorilllaHandlers.CORS(
		gorilllaHandlers.AllowedOrigins([]string{"*"}),
		gorilllaHandlers.AllowedMethods([]string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}),
		gorilllaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Timezone"}),
		gorilllaHandlers.ExposedHeaders([]string{"Content-Length", "X-Ladder-Stale"}),
		gorilllaHandlers.AllowCredentials(),
	)

	port := ":" + cfg.Port
	server := http.Server{
		Addr:         port,
		Handler:      corsHandler(r),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 20 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Starting server on port %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Error starting server:", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	sig := <-sigChan
	log.Println("Got signal:", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Flushing pending profile writes...")
	queue.Stop(shutdownCtx)

	log.Println("Server shutdown complete")
}
