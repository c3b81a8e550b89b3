package entrypoint

import (
	"context"
	"encoding/hex"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarian/internal/audit"
	"github.com/mrlokans/librarian/internal/auth"
	"github.com/mrlokans/librarian/internal/config"
	"github.com/mrlokans/librarian/internal/database"
	dbaudit "github.com/mrlokans/librarian/internal/database/audit"
	"github.com/mrlokans/librarian/internal/database/catalog"
	"github.com/mrlokans/librarian/internal/database/loans"
	"github.com/mrlokans/librarian/internal/database/reviews"
	"github.com/mrlokans/librarian/internal/database/users"
	"github.com/mrlokans/librarian/internal/demo"
	http_controllers "github.com/mrlokans/librarian/internal/http"
	"github.com/mrlokans/librarian/internal/media"
	"github.com/mrlokans/librarian/internal/scheduler"
	"github.com/mrlokans/librarian/internal/services"
	"github.com/mrlokans/librarian/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		fmt.Printf("Starting server at %s:%d\n", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// kill (no param) sends SIGTERM, kill -2 is SIGINT
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Stop accepting requests before the background workers go away
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server Shutdown: %v", err)
	}

	if onShutdown != nil {
		onShutdown(ctx)
	}

	log.Println("Server exiting")
}

func Run(cfg *config.Config, version string) {
	log.Printf("Starting Librarian v%s", version)

	db, err := database.NewDatabase(cfg.Database.Path, database.Options{LogSQL: cfg.Database.LogSQL})
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	// Repositories
	catalogRepo := catalog.NewRepository(db.DB)
	loansRepo := loans.NewRepository(db.DB)
	reviewsRepo := reviews.NewRepository(db.DB)
	usersRepo := users.NewRepository(db.DB)
	auditor := audit.NewService(dbaudit.NewRepository(db.DB))

	var demoMiddleware *demo.Middleware
	if cfg.Demo.Enabled {
		log.Printf("Demo mode enabled - write operations will be blocked")
		demoMiddleware = demo.NewMiddleware(true)
		if cfg.Demo.Seed {
			seedDemoCatalog(catalogRepo, loansRepo)
		}
	}

	// Domain services
	loanService := services.NewLoanService(loansRepo, catalogRepo, services.WithLoanAudit(auditor))
	reviewOpts := []services.ReviewServiceOption{services.WithReviewAudit(auditor)}
	if cfg.Catalog.ReviewRatePerMinute > 0 {
		reviewOpts = append(reviewOpts, services.WithReviewRateLimit(cfg.Catalog.ReviewRatePerMinute, cfg.Catalog.ReviewBurst))
		log.Printf("Review throttling: %.1f per minute, burst %d", cfg.Catalog.ReviewRatePerMinute, cfg.Catalog.ReviewBurst)
	}
	reviewService := services.NewReviewService(reviewsRepo, catalogRepo, reviewOpts...)
	listingService := services.NewListingService(catalogRepo, loansRepo, services.PageSizes{
		Books:   cfg.Catalog.BooksPageSize,
		Authors: cfg.Catalog.AuthorsPageSize,
		Loans:   cfg.Catalog.LoansPageSize,
	})

	storage, err := media.NewStorage(cfg.Media.Path, cfg.Media.MaxUploadSize)
	if err != nil {
		log.Fatalf("Failed to initialize media storage: %v", err)
	}
	log.Printf("Media storage initialized at %s", storage.Root())

	// Initialize task queue if enabled
	var taskClient *tasks.Client
	var taskQueue http_controllers.TaskQueue
	var taskCtxCancel context.CancelFunc
	var maintenance *scheduler.MaintenanceScheduler
	if cfg.Tasks.Enabled {
		taskClient, err = tasks.NewClient(cfg.Database.Path, tasks.ConfigFrom(cfg.Tasks))
		if err != nil {
			log.Fatalf("Failed to initialize task queue: %v", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.Printf("Error closing task client: %v", err)
			}
		}()

		taskClient.Register(
			tasks.NewSweepOverdueLoansQueue(loanService, auditor),
			tasks.NewCleanupAuditEventsQueue(auditor),
		)

		var taskCtx context.Context
		taskCtx, taskCtxCancel = context.WithCancel(context.Background())
		go taskClient.Start(taskCtx)
		taskQueue = taskClient

		if cfg.Scheduler.Enabled {
			maintenance = scheduler.NewMaintenanceScheduler(taskClient,
				scheduler.DefaultJobs(cfg.Scheduler, cfg.Audit.RetentionDays)...)
			if err := maintenance.Start(taskCtx); err != nil {
				log.Fatalf("Failed to start maintenance scheduler: %v", err)
			}
		}
	} else {
		log.Printf("Task queue disabled: overdue sweeps and audit cleanup will not run")
	}

	// Authentication
	authService := auth.NewService(db.DB, cfg.Auth)

	sqlDB, err := db.DB.DB()
	if err != nil {
		log.Fatalf("Failed to get SQL DB for sessions: %v", err)
	}
	sessionManager, err := auth.NewSessionManager(sqlDB, cfg.Auth)
	if err != nil {
		log.Fatalf("Failed to initialize session manager: %v", err)
	}

	csrfSecret, err := csrfSecretFrom(cfg.Auth.SessionSecret)
	if err != nil {
		log.Fatalf("Failed to generate CSRF secret: %v", err)
	}

	if hasUsers, _ := authService.HasUsers(); !hasUsers {
		log.Printf("No users found. Run '%s create-user -role librarian ...' to create a librarian account.", os.Args[0])
	}

	router, stopRouter, err := http_controllers.NewRouter(http_controllers.RouterConfig{
		Database:           db,
		Auditor:            auditor,
		Listing:            listingService,
		Loans:              loanService,
		Reviews:            reviewService,
		Profiles:           usersRepo,
		Catalog:            catalogRepo,
		Media:              storage,
		AuthService:        authService,
		SessionManager:     sessionManager,
		AuthConfig:         cfg.Auth,
		CSRFSecret:         csrfSecret,
		TemplatesPath:      cfg.UI.TemplatesPath,
		StaticPath:         cfg.UI.StaticPath,
		TaskQueue:          taskQueue,
		AuditRetentionDays: cfg.Audit.RetentionDays,
		DemoMiddleware:     demoMiddleware,
		Version:            version,
	})
	if err != nil {
		log.Fatalf("Failed to build router: %v", err)
	}

	onShutdown := func(ctx context.Context) {
		stopRouter()
		if maintenance != nil {
			maintenance.Stop()
		}
		if taskClient != nil && taskCtxCancel != nil {
			taskClient.Stop(ctx)
			taskCtxCancel()
		}
		auditor.Wait()
	}

	Serve(router, cfg, onShutdown)
}

// csrfSecretFrom decodes the configured secret, accepting raw bytes when it
// is not hex. An empty secret is generated, which invalidates forms on
// every restart.
func csrfSecretFrom(configured string) ([]byte, error) {
	if configured != "" {
		if secret, err := hex.DecodeString(configured); err == nil {
			return secret, nil
		}
		return []byte(configured), nil
	}
	secret, err := auth.GenerateSessionSecret()
	if err != nil {
		return nil, err
	}
	log.Printf("Generated session secret (set AUTH_SESSION_SECRET to persist)")
	return hex.DecodeString(secret)
}

// seedDemoCatalog fills an empty catalog with the public domain demo books.
func seedDemoCatalog(catalogRepo *catalog.Repository, loansRepo *loans.Repository) {
	ctx := context.Background()
	stats, err := catalogRepo.Stats(ctx)
	if err != nil {
		log.Printf("WARNING: Failed to read catalog stats, skipping demo seed: %v", err)
		return
	}
	if stats.Books > 0 {
		return
	}
	result, err := demo.Seed(ctx, catalogRepo, loansRepo, demo.PublicDomainCatalog())
	if err != nil {
		log.Printf("WARNING: Failed to seed demo catalog: %v", err)
		return
	}
	log.Printf("Seeded demo catalog: %d authors, %d books, %d copies", result.Authors, result.Books, result.Instances)
}
