package http

import (
	"github.com/mrlokans/librarian/internal/audit"
	"github.com/mrlokans/librarian/internal/auth"
	"github.com/mrlokans/librarian/internal/config"
	"github.com/mrlokans/librarian/internal/database"
	"github.com/mrlokans/librarian/internal/demo"
	"github.com/mrlokans/librarian/internal/media"
	"github.com/mrlokans/librarian/internal/services"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	// Core dependencies
	Database *database.Database
	Auditor  *audit.Service

	// Domain services
	Listing *services.ListingService
	Loans   *services.LoanService
	Reviews *services.ReviewService

	// Profiles, librarian catalog edits and uploads
	Profiles ProfileStore
	Catalog  CatalogAdminStore
	Media    *media.Storage

	// Authentication
	AuthService    *auth.Service
	SessionManager *auth.SessionManager
	AuthConfig     config.Auth
	CSRFSecret     []byte

	// UI paths. An empty TemplatesPath uses the embedded templates.
	TemplatesPath string
	StaticPath    string

	// Task queue (optional)
	TaskQueue          TaskQueue
	AuditRetentionDays int

	// Demo mode (optional): blocks writes when enabled
	DemoMiddleware *demo.Middleware

	// Application info
	Version string
}
