package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	clerk "github.com/clerk/clerk-sdk-go/v2"
	gorilllaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"levelQuestAPI/handlers"
	"levelQuestAPI/internal/notification"
	"levelQuestAPI/internal/store/postgres"
	"levelQuestAPI/middleware"
	"levelQuestAPI/services"

	_ "net/http/pprof"
)

var (
	dbPool             *pgxpool.Pool
	eventDispatcher    *services.EventDispatcher
	fcmService         *notification.FCMService
	progressionService *services.ProgressionService
	habitService       *services.HabitService
	taskService        *services.TaskService
	challengeService   *services.ChallengeService
	leaderboardService *services.LeaderboardService
	challengeFinalizer *services.ChallengeFinalizer
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	clerkSecretKey := os.Getenv("CLERK_SECRET_KEY")
	if clerkSecretKey == "" {
		log.Fatal("CLERK_SECRET_KEY environment variable is not set")
	}
	clerk.SetKey(clerkSecretKey)
	log.Println("Clerk initialized successfully")

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		log.Fatal("Failed to parse database URL:", err)
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	dbPool, err = pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		log.Fatal("Failed to create connection pool:", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		log.Fatal("Failed to ping database:", err)
	}

	log.Println("Successfully connected to database")

	st := postgres.New(dbPool)

	eventDispatcher = services.NewEventDispatcher()

	fcmService, err = notification.NewFCMService("./serviceAccountKey.json")
	if err != nil {
		log.Printf("Warning: Could not initialize FCM: %v", err)
	} else {
		eventDispatcher.SetPushProvider(fcmService)
		log.Println("FCM Push Provider initialized successfully")
	}

	progressionService = services.NewProgressionService(st, eventDispatcher)
	habitService = services.NewHabitService(st, progressionService, eventDispatcher)
	taskService = services.NewTaskService(st, progressionService)

	var judge services.VerificationJudge
	if verifierURL := os.Getenv("VERIFIER_URL"); verifierURL != "" {
		judge = services.NewHTTPVerificationJudge(verifierURL)
		log.Println("AI verification judge initialized")
	} else {
		log.Println("Warning: VERIFIER_URL not set, AI-verified tasks will fail")
	}
	challengeService = services.NewChallengeService(st, progressionService, judge)
	leaderboardService = services.NewLeaderboardService(st)
	challengeFinalizer = services.NewChallengeFinalizer(st, 5*time.Minute)

	middleware.InitPrometheus()
	services.InitMetrics()
}

func main() {
	defer func() {
		log.Println("Closing database connection pool...")
		dbPool.Close()
	}()

	go challengeFinalizer.Run()
	defer challengeFinalizer.Stop()
	defer eventDispatcher.Stop()

	progressionHandler := handlers.NewProgressionHandler(progressionService)
	habitHandler := handlers.NewHabitHandler(habitService)
	taskHandler := handlers.NewTaskHandler(taskService)
	challengeHandler := handlers.NewChallengeHandler(challengeService)
	leaderboardHandler := handlers.NewLeaderboardHandler(leaderboardService)

	r := mux.NewRouter()

	go middleware.CleanupVisitors()

	r.Use(middleware.RateLimitMiddleware)
	r.Use(middleware.MonitorMiddleware)

	r.Handle("/metrics", middleware.BasicAuthMiddleware(promhttp.Handler()))
	r.PathPrefix("/debug/pprof/").Handler(middleware.PprofSecurityMiddleware(http.DefaultServeMux))

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := dbPool.Ping(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status": "unhealthy", "error": "database connection failed"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy", "service": "levelQuest-api"}`))
	}).Methods("GET")

	// -------------------------------------------------------------------------
	// API V1 SUBROUTER
	// -------------------------------------------------------------------------
	api := r.PathPrefix("/api/v1").Subrouter()

	// -------------------------------------------------------------------------
	// PROTECTED ROUTES (REQUIRE AUTH HEADER)
	// -------------------------------------------------------------------------
	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.ClerkAuthMiddleware)

	protected.HandleFunc("/character", progressionHandler.GetCharacter).Methods("GET")
	protected.HandleFunc("/character/ranks", progressionHandler.GetRanks).Methods("GET")
	protected.HandleFunc("/character/xp/award", progressionHandler.AwardXP).Methods("POST")
	protected.HandleFunc("/character/xp/remove", progressionHandler.RemoveXP).Methods("POST")

	protected.HandleFunc("/habits/{habitID}/complete", habitHandler.CompleteHabit).Methods("POST")
	protected.HandleFunc("/habits/{habitID}/complete", habitHandler.UncompleteHabit).Methods("DELETE")

	protected.HandleFunc("/tasks/{taskID}/complete", taskHandler.CompleteTask).Methods("POST")
	protected.HandleFunc("/tasks/{taskID}/complete", taskHandler.UncompleteTask).Methods("DELETE")

	protected.HandleFunc("/challenges/{challengeID}/join", challengeHandler.JoinChallenge).Methods("POST")
	protected.HandleFunc("/challenges/{challengeID}/invite", challengeHandler.GenerateInvite).Methods("GET")
	protected.HandleFunc("/challenges/{challengeID}/tasks/{taskID}/complete", challengeHandler.CompleteChallengeTask).Methods("POST")
	protected.HandleFunc("/challenge-completions/{completionID}/verify", challengeHandler.VerifyChallengeTask).Methods("POST")

	protected.HandleFunc("/challenges/{challengeID}/leaderboard", leaderboardHandler.GetChallengeLeaderboard).Methods("GET")
	protected.HandleFunc("/leaderboard", leaderboardHandler.GetGlobalLeaderboard).Methods("GET")

	// CORS configuration
	corsHandler := gorilllaHandlers.CORS(
		gorilllaHandlers.AllowedOrigins([]string{"*"}),
		gorilllaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		gorilllaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Pprof-Secret"}),
		gorilllaHandlers.ExposedHeaders([]string{"Content-Length"}),
		gorilllaHandlers.AllowCredentials(),
	)

	port := os.Getenv("PORT")
	if port == "" {
		port = "3333"
	}
	port = ":" + port

	server := http.Server{
		Addr:         port,
		Handler:      corsHandler(r),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Starting server on port %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Error starting server:", err)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)

	sig := <-sigChan
	log.Println("Got signal:", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server shutdown complete")
}
