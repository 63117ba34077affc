package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"farmpulse-service/auth"
	"farmpulse-service/config"
	"farmpulse-service/database"
	"farmpulse-service/groq"
	"farmpulse-service/handlers"
	"farmpulse-service/history"
	"farmpulse-service/llm"
	"farmpulse-service/metrics"
	"farmpulse-service/middleware"
	"farmpulse-service/service"
	"farmpulse-service/stubllm"
	"farmpulse-service/telemetry"
	"farmpulse-service/version"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const serviceName = "farmpulse-service"

func main() {
	cfg := config.Load()

	if lvl, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(lvl)
	}

	metrics.Register()

	// Inference client. Without an API key the service still serves
	// traffic on a deterministic stub so the rest of the stack can run.
	var llmClient llm.Client = groq.NewClient(cfg.GroqAPIKey, cfg.GroqModel, cfg.InferenceTimeout)
	if cfg.GroqAPIKey == "" {
		log.Warn("GROQ_API_KEY not set, using stub inference client")
		llmClient = stubllm.NewClient()
	}

	// Durable history store. Optional: when Supabase is not configured the
	// service falls back to the in-memory mirror.
	var store service.Store
	storeConfigured := false
	if cfg.SupabaseDBURL != "" {
		db, err := database.New(cfg.SupabaseDBURL)
		if err != nil {
			log.Errorf("Failed to connect to history database: %v", err)
		} else {
			defer db.Close()
			if err := db.CreateScanHistoryTable(); err != nil {
				log.Errorf("Failed to ensure scan_history schema: %v", err)
			}
			store = db
			storeConfigured = true
		}
	} else {
		log.Warn("SUPABASE_DB_URL not set, scan history is in-memory only")
	}

	svc := service.New(llmClient, store, history.NewMirror())

	gateway := telemetry.NewClient(cfg.FirebaseDatabaseURL, cfg.FirebaseAuthToken, cfg.FirebaseRootPath)
	if !gateway.Configured() {
		log.Warn("FIREBASE_DATABASE_URL not set, telemetry endpoints will fail")
	}

	authClient := auth.NewSupabaseClient(cfg.SupabaseAuthURL, cfg.SupabaseAnonKey)
	tokens := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)

	h := handlers.NewHandlers(svc, gateway, authClient, tokens, llmClient, storeConfigured)

	router := gin.Default()
	router.Use(middleware.CORSMiddleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, version.Get(serviceName))
	})

	api := router.Group("/api")
	{
		api.GET("/health", h.HealthCheck)
		api.GET("/sensor-data", h.GetSensorData)
		api.GET("/dashboard", h.GetDashboard)
		api.POST("/pump-control", h.PumpControl)

		authGroup := api.Group("/auth")
		{
			authGroup.POST("/signup", h.Signup)
			authGroup.POST("/login", h.Login)
		}

		protected := api.Group("")
		protected.Use(middleware.AuthMiddleware(tokens))
		{
			protected.POST("/analyze", h.AnalyzeImage)
			protected.GET("/history", h.GetHistory)
		}
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Infof("Starting %s on port %s", serviceName, cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Info("Server exited")
}
