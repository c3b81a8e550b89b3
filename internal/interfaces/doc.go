// Package interfaces documents the core abstractions used throughout the application.
//
// # Interface Categories
//
// ## Data Access Interfaces
//
//   - CatalogReader: Books, authors and genres for listings (internal/services/interfaces.go)
//   - LoanStore: Book copies and their loan state (internal/services/interfaces.go)
//   - ReviewStore: Reader reviews (internal/services/interfaces.go)
//   - ProfileStore: Reader identity fields and photos (internal/http/stores.go)
//   - CatalogAdminStore: Librarian deletes and cover uploads (internal/http/stores.go)
//   - Store: Audit event persistence (internal/audit/service.go)
//
// ## Audit Interfaces
//
//   - AuditLogger: Loan and review events (internal/services/interfaces.go)
//   - AuditLogger: Login and registration events (internal/auth/handlers.go)
//   - ProfileAuditor, CatalogAuditor: Profile and catalog changes (internal/http/stores.go)
//
// All audit interfaces are implemented by *audit.Service. Writes are
// asynchronous; call Wait before reading events back in tests.
//
// ## Background Task Interfaces
//
//   - TaskQueue: Enqueue and inspect tasks from HTTP (internal/http/tasks.go)
//   - Enqueuer: Enqueue scheduled jobs (internal/scheduler/maintenance.go)
//   - OverdueLister, OverdueRecorder: Overdue loan sweep (internal/tasks/overdue.go)
//   - AuditEventCleaner: Audit retention (internal/tasks/cleanup_audit.go)
//
// # Adding a New Maintenance Task
//
//  1. Define the task and its processor in internal/tasks/
//
//     type ReindexBooksTask struct{}
//
//     func (t ReindexBooksTask) Config() backlite.QueueConfig {
//         return backlite.QueueConfig{Name: "reindex_books", MaxAttempts: 3}
//     }
//
//     func NewReindexBooksQueue(store Indexer) backlite.Queue {
//         return backlite.NewQueue[ReindexBooksTask](ReindexBooksProcessor(store))
//     }
//
//  2. Register the queue in entrypoint.go
//
//  3. Add a Job to scheduler.DefaultJobs if it runs on a schedule, and a
//     task type to the TasksController if librarians can trigger it.
//
// # Adding a New Database Domain
//
//  1. Create sub-package: internal/database/<domain>/
//
//  2. Define repository:
//
//     type Repository struct { db *gorm.DB }
//
//     func NewRepository(db *gorm.DB) *Repository
//
//  3. Add the entity to database.Models so it is migrated
//
//  4. Add compile-time check:
//
//     var _ services.SomeStore = (*Repository)(nil)
//
// # Compile-Time Interface Checks
//
// All implementations should include compile-time checks to ensure they satisfy
// their interfaces. This catches missing methods at compile time rather than runtime:
//
//	var _ SomeInterface = (*MyImplementation)(nil)
//
// See checks.go.
package interfaces
