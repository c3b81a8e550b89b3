// Package auth provides reader identity for the library.
//
// Readers sign up through /register/, log in with a username (or email) and
// password, and are tracked with a server-side session cookie stored in
// SQLite. API clients may use a bearer token instead; tokens are generated
// per user and only their SHA-256 hash is stored.
//
// Browsing the catalog never requires a login. The Handler middleware only
// attaches the requester's identity; routes that need one add RequireAuth,
// and librarian-only routes add RequireRole(entities.UserRoleLibrarian).
//
// # Configuration
//
//	AUTH_SESSION_SECRET=<hex-32-bytes>  # CSRF key, auto-generated if empty
//	AUTH_SESSION_LIFETIME=336h          # Session duration
//	AUTH_TOKEN_EXPIRY=720h              # API token expiry (30 days default)
//	AUTH_BCRYPT_COST=12                 # bcrypt cost factor
//	AUTH_SECURE_COOKIES=true            # HTTPS-only cookies
//	AUTH_MAX_LOGIN_ATTEMPTS=5           # Failures before lockout
//
// # Usage
//
//	authService := auth.NewService(db.DB, cfg.Auth)
//	sessions, _ := auth.NewSessionManager(sqlDB, cfg.Auth)
//	router.Use(sessions.SessionLoadSave())
//	router.Use(auth.NewMiddleware(authService, sessions).Handler())
//	router.GET("/mybooks/", auth.RequireAuth(), loans.MyBooks)
//
// Extract the reader in handlers:
//
//	readerID := auth.GetUserID(c) // AnonymousUserID when not logged in
package auth
