package http

import (
	"log"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarian/internal/auth"
	"github.com/mrlokans/librarian/internal/entities"
)

// NewRouter creates and configures the HTTP router with all endpoints.
// The returned stop function releases background resources of the
// controllers (the login rate limiter).
func NewRouter(cfg RouterConfig) (*gin.Engine, func(), error) {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// Apply security headers to all responses
	router.Use(auth.SecurityHeadersMiddleware())
	if cfg.AuthConfig.SecureCookies {
		router.Use(auth.StrictTransportSecurityMiddleware())
	}

	if cfg.DemoMiddleware != nil {
		router.Use(cfg.DemoMiddleware.InjectContext())
		router.Use(cfg.DemoMiddleware.Handler())
	}

	// CSRF must run before session so that session context is preserved
	if len(cfg.CSRFSecret) > 0 {
		router.Use(auth.CSRFMiddleware(cfg.CSRFSecret, cfg.AuthConfig.SecureCookies, cfg.AuthService))
	}

	// Session runs after CSRF so session context isn't overwritten by CSRF's request replacement
	if cfg.SessionManager != nil {
		router.Use(cfg.SessionManager.SessionLoadSave())
	}
	router.Use(auth.NewMiddleware(cfg.AuthService, cfg.SessionManager).Handler())

	var isOverdue func(entities.BookInstance) bool
	if cfg.Loans != nil {
		isOverdue = cfg.Loans.IsOverdue
	}
	tmpl, err := loadTemplates(cfg.TemplatesPath, templateFuncs(isOverdue))
	if err != nil {
		return nil, nil, err
	}
	router.SetHTMLTemplate(tmpl)

	if cfg.StaticPath != "" {
		router.Static("/static", cfg.StaticPath)
	}
	if cfg.Media != nil {
		router.Static("/media", cfg.Media.Root())
	}

	render := NewRenderer(cfg.SessionManager)
	stop := func() {}

	// Health endpoints
	mediaRoot := ""
	if cfg.Media != nil {
		mediaRoot = cfg.Media.Root()
	}
	health := NewHealthController(cfg.Database, mediaRoot, cfg.Version)
	router.GET("/health", health.Status)
	router.GET("/ping", health.Ping)

	// Authentication
	if cfg.AuthService != nil && cfg.SessionManager != nil {
		opts := []auth.ControllerOption{auth.WithRenderer(render.HTML)}
		if cfg.Auditor != nil {
			opts = append(opts, auth.WithAuditLogger(cfg.Auditor))
		}
		authController := auth.NewAuthController(cfg.AuthService, cfg.SessionManager, cfg.AuthConfig, opts...)
		authController.RegisterRoutes(router)
		stop = authController.Stop

		tokenController := auth.NewAPITokenController(cfg.AuthService)
		router.POST("/api/auth/token", auth.RequireAuth(), tokenController.GenerateToken)
		router.DELETE("/api/auth/token", auth.RequireAuth(), tokenController.RevokeToken)
	} else {
		log.Printf("Authentication routes disabled: no auth service configured")
	}

	// Catalog pages
	catalogController := NewCatalogController(cfg.Listing, cfg.Reviews, cfg.SessionManager, render)
	router.GET("/", catalogController.Index)
	router.GET("/authors/", catalogController.Authors)
	router.GET("/author/:id/", catalogController.Author)
	router.GET("/books/", catalogController.Books)
	router.GET("/books/:id/", catalogController.Book)
	router.POST("/books/:id/", auth.RequireAuth(), catalogController.PostReview)

	// Reader loans
	loansController := NewLoansController(cfg.Loans, cfg.Listing, render)
	mybooks := router.Group("/mybooks", auth.RequireAuth())
	mybooks.GET("/", loansController.MyBooks)
	mybooks.GET("/new/", loansController.NewLoanPage)
	mybooks.POST("/new/", loansController.CreateLoan)
	owned := mybooks.Group("/:id", loansController.requireOwner)
	owned.GET("/take/", loansController.TakePage)
	owned.POST("/take/", loansController.Take)
	owned.GET("/return/", loansController.ReturnPage)
	owned.POST("/return/", loansController.Return)

	// Optional collaborators stay nil interfaces when not configured
	var photos PhotoStorage
	if cfg.Media != nil {
		photos = cfg.Media
	}
	var profileAuditor ProfileAuditor
	var catalogAuditor CatalogAuditor
	if cfg.Auditor != nil {
		profileAuditor = cfg.Auditor
		catalogAuditor = cfg.Auditor
	}

	// Profile
	if cfg.Profiles != nil && cfg.AuthService != nil {
		profileController := NewProfileController(cfg.AuthService, cfg.Profiles, photos, profileAuditor, render)
		profile := router.Group("/profile", auth.RequireAuth())
		profile.GET("/", profileController.ProfilePage)
		profile.POST("/", profileController.UpdateProfile)
		profile.POST("/password", profileController.ChangePassword)
		profile.POST("/token", profileController.GenerateToken)
		profile.POST("/token/revoke", profileController.RevokeToken)
	}

	// JSON API
	apiController := NewAPIController(cfg.Listing, cfg.Loans, cfg.Reviews)
	api := router.Group("/api")
	api.GET("/books", apiController.ListBooks)
	api.GET("/books/:id", apiController.GetBook)
	api.GET("/authors", apiController.ListAuthors)
	api.GET("/stats", apiController.Stats)
	api.POST("/books/:id/reviews", auth.RequireAuth(), apiController.SubmitReview)
	api.GET("/mybooks", auth.RequireAuth(), apiController.MyBooks)
	api.POST("/mybooks", auth.RequireAuth(), apiController.Reserve)
	api.POST("/mybooks/:id/take", auth.RequireAuth(), apiController.Take)
	api.DELETE("/mybooks/:id", auth.RequireAuth(), apiController.Return)

	librarian := api.Group("", auth.RequireRole(entities.UserRoleLibrarian))
	librarian.PATCH("/instances/:id/status", apiController.SetStatus)

	// Catalog maintenance
	if cfg.Catalog != nil {
		deleteController := NewDeleteController(cfg.Catalog, photos, catalogAuditor)
		librarian.DELETE("/books/:id", deleteController.DeleteBook)
		librarian.DELETE("/authors/:id", deleteController.DeleteAuthor)
		librarian.DELETE("/genres/:id", deleteController.DeleteGenre)

		if photos != nil {
			coversController := NewCoversController(cfg.Catalog, photos, catalogAuditor)
			librarian.POST("/books/:id/cover", coversController.UploadCover)
		}
	}

	// Task management endpoints
	if cfg.TaskQueue != nil {
		tasksController := NewTasksController(cfg.TaskQueue, cfg.AuditRetentionDays)
		librarian.GET("/tasks/types", tasksController.ListTaskTypes)
		librarian.GET("/tasks/:id", tasksController.GetTaskStatus)
		librarian.POST("/tasks/:type/run", tasksController.RunTask)
	}

	// Audit log
	if cfg.Auditor != nil {
		auditController := NewAuditController(cfg.Auditor)
		librarian.GET("/audit", auditController.ListEvents)
	}

	return router, stop, nil
}
