package main

import (
	"log"

	"github.com/gin-gonic/gin"
	"sediment-analysis-backend/internal/config"
	"sediment-analysis-backend/internal/database"
	"sediment-analysis-backend/internal/detector"
	"sediment-analysis-backend/internal/handlers"
	"sediment-analysis-backend/internal/identity"
	"sediment-analysis-backend/internal/middleware"
	"sediment-analysis-backend/internal/services"
	"sediment-analysis-backend/internal/supabase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	supabaseClient, err := supabase.NewClient(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize Supabase client: %v", err)
	}

	storageClient, err := supabase.NewStorageClient(cfg.SupabaseURL, cfg.SupabaseServiceKey, cfg.StorageBucket)
	if err != nil {
		log.Fatalf("Failed to initialize storage client: %v", err)
	}

	realtimeClient := supabase.NewRealtimeClient(supabaseClient.Supabase)

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	migrator, err := database.NewMigrator(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize migrator: %v", err)
	}
	if err := migrator.Run(); err != nil {
		migrator.Close()
		log.Fatalf("Migration failed: %v", err)
	}
	migrator.Close()
	log.Println("Migrations completed successfully")

	dbClient, err := supabase.NewDatabaseClient(cfg.DatabaseURL, cfg.DisableJoins)
	if err != nil {
		log.Fatalf("Failed to initialize database client: %v", err)
	}
	defer dbClient.Close()

	// A failed model load leaves the engine nil: the record surface stays up
	// and /predict reports the engine as unavailable.
	var engine detector.Engine
	if cfg.InferenceURL != "" {
		engine = detector.NewRemoteEngine(cfg.InferenceURL, cfg.MinConfidence)
		log.Printf("Using remote inference engine at %s", cfg.InferenceURL)
	} else {
		tflite, err := detector.NewTFLiteEngine(cfg.ModelPath, cfg.MinConfidence)
		if err != nil {
			log.Printf("Warning: failed to load model from %s: %v", cfg.ModelPath, err)
		} else {
			engine = tflite
			log.Printf("Loaded detection model from %s", cfg.ModelPath)
		}
	}

	var verifier identity.Verifier
	if cfg.SupabaseJWTSecret != "" {
		verifier = identity.NewJWTVerifier(cfg.SupabaseJWTSecret)
	} else {
		verifier = identity.NewSupabaseVerifier(supabaseClient.Supabase)
	}

	analysisService := services.NewAnalysisService(dbClient, storageClient, engine, realtimeClient)

	predictHandler := handlers.NewPredictHandler(analysisService)
	historyHandler := handlers.NewHistoryHandler(dbClient)
	storageHandler := handlers.NewStorageHandler(storageClient, dbClient)

	router := gin.Default()

	router.GET("/", handlers.RootHandler)
	router.GET("/health", handlers.HealthHandler)

	api := router.Group("/")
	api.Use(middleware.AuthMiddleware(verifier))

	api.POST("/predict", predictHandler.Predict)

	api.GET("/history/patients", historyHandler.ListPatients)
	api.GET("/history/cases", historyHandler.ListCases)
	api.GET("/history/visits", historyHandler.ListVisits)
	api.GET("/history/images", historyHandler.ListImages)
	api.GET("/history/analysis", historyHandler.ListAnalyses)
	api.GET("/history/analysis/:analysis_id", historyHandler.GetAnalysis)

	api.GET("/storage/signed-url", storageHandler.SignedURL)

	log.Printf("Starting server on port %s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
