package main

import (
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/heritagewatch/monitorbackend/analysis"
	"github.com/heritagewatch/monitorbackend/config"
	"github.com/heritagewatch/monitorbackend/database"
	"github.com/heritagewatch/monitorbackend/handlers"
	"github.com/heritagewatch/monitorbackend/registry"
	"github.com/heritagewatch/monitorbackend/repository"
	"github.com/heritagewatch/monitorbackend/services"
	"github.com/heritagewatch/monitorbackend/workers"
)

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Printf("Info: No .env file found or error loading: %v", err)
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	dbDir := filepath.Dir(cfg.DatabasePath)
	log.Printf("Ensuring storage directory exists: %s", dbDir)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		log.Fatalf("FATAL: Failed to create storage directory %s: %v", dbDir, err)
	}

	db, err := database.InitGormDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize database: %v", err)
	}
	if err := database.AutoMigrateModels(db); err != nil {
		log.Fatalf("FATAL: Failed to migrate database: %v", err)
	}

	store := repository.NewRegistryStoreRepository(db, cfg.RegistryQuotaBytes)
	baselineRegistry := registry.NewRegistry(store)
	if err := baselineRegistry.LoadFromDurableStore(); err != nil {
		// a broken registry payload must not keep the service down
		log.Printf("WARNING: Failed to load baseline registry: %v", err)
	}

	log.Printf("Initializing preview worker pool (Workers: %d, Queue Size: %d)...", cfg.NumPreviewWorkers, cfg.PreviewQueueSize)
	previewGen := workers.NewPreviewGenerator(baselineRegistry, cfg.PreviewMaxSize, cfg.PreviewQueueSize, cfg.NumPreviewWorkers)
	defer previewGen.Stop()

	engineClient := analysis.NewEngineClient(cfg.AnalysisEngineURL)

	monitor := services.NewHealthMonitor(cfg.GatewayURL+"/health", engineClient.HealthURL(), cfg.HealthProbeTimeout)
	monitor.Start(cfg.HealthCheckInterval)
	defer monitor.Stop()

	comparisonService := services.NewComparisonService(baselineRegistry, engineClient, monitor, cfg.ComparisonTimeout)

	log.Printf("Using database: %s", cfg.DatabasePath)
	log.Printf("Gateway: %s, Analysis engine: %s", cfg.GatewayURL, cfg.AnalysisEngineURL)
	log.Printf("Registry quota: %d bytes", cfg.RegistryQuotaBytes)
	log.Printf("Comparison timeout: %s, probe timeout: %s", cfg.ComparisonTimeout, cfg.HealthProbeTimeout)

	r := chi.NewRouter()

	corsOptions := cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173"}, //TODO: configurable
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}

	corsHandler := cors.New(corsOptions)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(2 * cfg.ComparisonTimeout))
	r.Use(corsHandler.Handler)
	r.Use(handlers.MetricsMiddleware())

	baselineHandler := &handlers.BaselineHandler{Registry: baselineRegistry, Previews: previewGen}
	comparisonHandler := &handlers.ComparisonHandler{Service: comparisonService}
	healthHandler := &handlers.HealthHandler{Monitor: monitor}

	r.Route("/api", func(r chi.Router) {
		r.Route("/baselines", func(r chi.Router) {
			r.Post("/", baselineHandler.CreateBaseline)
			r.Get("/", baselineHandler.ListBaselines)
			r.Route("/{baseline_id}", func(r chi.Router) {
				r.Get("/", baselineHandler.GetBaseline)
			})
		})

		r.Post("/comparisons", comparisonHandler.RunComparison)
		r.Get("/health", healthHandler.GetHealth)
	})

	r.Handle("/metrics", promhttp.Handler())

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	serverAddr := ":" + port
	log.Printf("Server listening on %s", serverAddr)
	server := &http.Server{
		Addr:        serverAddr,
		Handler:     r,
		ReadTimeout: 30 * time.Second,
		// comparisons can legitimately hold a response open for the full
		// engine timeout, so the write timeout sits above it
		WriteTimeout: cfg.ComparisonTimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}
	log.Fatal(server.ListenAndServe())
}
