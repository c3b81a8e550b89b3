package interfaces

// This file contains compile-time interface implementation checks.
// These ensure that concrete types satisfy their interfaces at compile time,
// catching missing methods before runtime.
//
// To verify all checks pass: go build ./internal/interfaces/...

import (
	"github.com/mrlokans/librarian/internal/audit"
	"github.com/mrlokans/librarian/internal/auth"
	dbaudit "github.com/mrlokans/librarian/internal/database/audit"
	"github.com/mrlokans/librarian/internal/database/catalog"
	"github.com/mrlokans/librarian/internal/database/loans"
	"github.com/mrlokans/librarian/internal/database/reviews"
	"github.com/mrlokans/librarian/internal/database/users"
	"github.com/mrlokans/librarian/internal/demo"
	"github.com/mrlokans/librarian/internal/http"
	"github.com/mrlokans/librarian/internal/media"
	"github.com/mrlokans/librarian/internal/scheduler"
	"github.com/mrlokans/librarian/internal/services"
	"github.com/mrlokans/librarian/internal/tasks"
)

// =============================================================================
// Data Access Layer
// =============================================================================

// Service stores
var _ services.CatalogReader = (*catalog.Repository)(nil)
var _ services.LoanStore = (*loans.Repository)(nil)
var _ services.ReviewStore = (*reviews.Repository)(nil)
var _ audit.Store = (*dbaudit.Repository)(nil)

// Controller stores
var _ http.ProfileStore = (*users.Repository)(nil)
var _ http.CatalogAdminStore = (*catalog.Repository)(nil)
var _ http.PhotoStorage = (*media.Storage)(nil)

// Demo seeding
var _ demo.CatalogWriter = (*catalog.Repository)(nil)
var _ demo.InstanceWriter = (*loans.Repository)(nil)

// =============================================================================
// Audit Trail
// =============================================================================

var _ services.AuditLogger = (*audit.Service)(nil)
var _ auth.AuditLogger = (*audit.Service)(nil)
var _ http.ProfileAuditor = (*audit.Service)(nil)
var _ http.CatalogAuditor = (*audit.Service)(nil)

// =============================================================================
// Background Tasks
// =============================================================================

var _ http.TaskQueue = (*tasks.Client)(nil)
var _ scheduler.Enqueuer = (*tasks.Client)(nil)
var _ tasks.OverdueLister = (*services.LoanService)(nil)
var _ tasks.OverdueRecorder = (*audit.Service)(nil)
var _ tasks.AuditEventCleaner = (*audit.Service)(nil)
