package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"

	"github.com/Zura03/occlusmart-backend/internal/application"
	appscans "github.com/Zura03/occlusmart-backend/internal/application/scans"
	"github.com/Zura03/occlusmart-backend/internal/config"
	domain "github.com/Zura03/occlusmart-backend/internal/domain/scans"
	"github.com/Zura03/occlusmart-backend/internal/infra/ai"
	aiopenai "github.com/Zura03/occlusmart-backend/internal/infra/ai/openai"
	"github.com/Zura03/occlusmart-backend/internal/infra/db/jsonfile"
	mysqlp "github.com/Zura03/occlusmart-backend/internal/infra/db/mysql"
	postgresp "github.com/Zura03/occlusmart-backend/internal/infra/db/postgres"
	"github.com/Zura03/occlusmart-backend/internal/infra/httpserver"
	"github.com/Zura03/occlusmart-backend/internal/infra/storage"
	"github.com/Zura03/occlusmart-backend/internal/middleware"
)

func main() {
	// .env untuk development lokal; deployment set env langsung
	_ = godotenv.Load()

	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	// load config
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	ctx := context.Background()
	healthChecks := map[string]middleware.HealthChecker{}

	// init blob store
	var blobs domain.BlobStore
	var staticRoot string
	switch cfg.Storage.Driver {
	case "local":
		local, err := storage.NewLocalStore(cfg.Storage.Root, cfg.Server.BaseURL)
		if err != nil {
			log.Fatalf("blob store init error: %v", err)
		}
		blobs = local
		staticRoot = local.Root()
		healthChecks["blobstore"] = middleware.CheckerFunc(local.Ping)
	case "s3":
		s3, err := storage.NewS3Store(ctx,
			cfg.Storage.Minio.Endpoint,
			cfg.Storage.Minio.Region,
			cfg.Storage.Minio.BucketName,
			cfg.Storage.Minio.AccessKey,
			cfg.Storage.Minio.SecretKey,
			cfg.Storage.Minio.UseSSL,
		)
		if err != nil {
			log.Fatalf("minio init error: %v", err)
		}
		blobs = s3
		healthChecks["blobstore"] = middleware.CheckerFunc(s3.Ping)
	default:
		log.Fatalf("unknown storage driver: %q", cfg.Storage.Driver)
	}

	// init record repository
	var repo domain.Repository
	switch cfg.Database.Driver {
	case "jsonfile":
		// a corrupt snapshot stops startup here, existing data is never
		// replaced by an empty store
		store, err := jsonfile.Open(cfg.Database.SnapshotPath)
		if err != nil {
			log.Fatalf("snapshot load error: %v", err)
		}
		repo = store
		healthChecks["snapshot"] = middleware.CheckerFunc(store.Ping)
	case "mysql":
		db, err := mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			log.Fatalf("mysql connect error: %v", err)
		}
		defer db.Close()
		repo = mysqlp.NewScanRepository(db)
		healthChecks["database"] = &middleware.DatabaseHealthChecker{DB: db}
	case "postgres":
		db, err := postgresp.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			log.Fatalf("postgres connect error: %v", err)
		}
		defer db.Close()
		repo = postgresp.NewScanRepository(db)
		healthChecks["database"] = &middleware.DatabaseHealthChecker{DB: db}
	default:
		log.Fatalf("unknown database driver: %q", cfg.Database.Driver)
	}

	// init analyzer
	var analyzer domain.Analyzer
	switch cfg.Analyzer.Provider {
	case "stub":
		analyzer = ai.StubAnalyzer{}
	case "openai":
		analyzer = aiopenai.NewClient(cfg.Analyzer.OpenAI.APIKey, cfg.Analyzer.OpenAI.Model, blobs)
	default:
		log.Fatalf("unknown analyzer provider: %q", cfg.Analyzer.Provider)
	}

	// init service
	svc := &appscans.Service{
		Repo:     repo,
		Blobs:    blobs,
		Analyzer: analyzer,
		Clock:    application.SystemClock{},
	}

	// init router
	mux := chi.NewRouter()
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))
	mux.Use(middleware.LoggingMiddleware)
	mux.Use(middleware.MetricsMiddleware)
	mux.Use(middleware.RateLimitMiddleware(cfg.RateLimit.Capacity, cfg.RateLimit.RefillRate))
	mux.Mount("/", httpserver.NewRouter(svc, healthChecks, staticRoot))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// run server
	go func() {
		log.Printf("server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Println("shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
