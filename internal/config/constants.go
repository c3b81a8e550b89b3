package config

// Default paths for databases and uploaded files
const (
	// DefaultDatabasePath is the default path for the main application database
	DefaultDatabasePath = "./library.db"

	// DefaultMediaPath is where uploaded covers and profile photos are stored
	DefaultMediaPath = "./media"
)

// Page sizes of the listing pages
const (
	DefaultBooksPageSize   = 3
	DefaultAuthorsPageSize = 5
	DefaultLoansPageSize   = 10
)
