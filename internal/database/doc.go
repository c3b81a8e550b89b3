// Package database provides the data access layer for the application.
//
// # Architecture
//
// The database layer is organized into domain-specific sub-packages:
//
//	database/
//	├── database.go      # Connection setup, foreign keys, migrations
//	├── catalog/         # Authors, genres and books
//	├── loans/           # Book instances (copies) and their loan state
//	├── reviews/         # Reader reviews
//	├── users/           # Users and profiles
//	└── audit/           # Audit trail
//
// # Using Sub-packages
//
// Each sub-package provides a Repository type with domain-specific operations:
//
//	// Initialize database connection
//	db, err := database.NewDatabase("./library.db")
//
//	// Create domain-specific repositories
//	catalogRepo := catalog.NewRepository(db.DB)
//	loansRepo := loans.NewRepository(db.DB)
//
//	// Use repositories
//	book, err := catalogRepo.GetBook(ctx, 123)
//	page, err := loansRepo.ListForReader(ctx, readerID, 1, 10)
//
// # Interface Implementations
//
//   - catalog.Repository: implements services.CatalogReader and http.CatalogAdminStore
//   - loans.Repository: implements services.LoanStore
//   - reviews.Repository: implements services.ReviewStore
//   - users.Repository: implements http.ProfileStore
//   - audit.Repository: implements audit.Store
//
// # Deletes
//
// SQLite enforces the ON DELETE rules declared on the entities because every
// connection is opened with _foreign_keys=on. The repositories still perform
// cascades and nulling explicitly inside a transaction, so the rules hold on
// databases created before the constraints existed.
//
// # Adding a New Domain
//
//  1. Create a new sub-package: internal/database/<domain>/
//  2. Define a Repository struct with a *gorm.DB field
//  3. Add NewRepository(db *gorm.DB) constructor
//  4. Implement the required interface
//  5. Add compile-time interface check in internal/interfaces/checks.go
package database
