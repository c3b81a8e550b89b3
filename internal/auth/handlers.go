package auth

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarian/internal/config"
)

// Audit actions recorded by the controller.
const (
	AuditActionLogin    = "login"
	AuditActionLogout   = "logout"
	AuditActionRegister = "register"
)

// isLocalPath validates that a redirect path is local to prevent open redirect attacks.
func isLocalPath(path string) bool {
	if path == "" || !strings.HasPrefix(path, "/") {
		return false
	}
	// Protocol-relative URLs (//evil.com)
	if strings.HasPrefix(path, "//") {
		return false
	}
	if strings.Contains(path, "://") || strings.Contains(path, "\\") {
		return false
	}
	return true
}

// sanitizeRedirectPath returns a safe redirect path, defaulting to "/" if invalid.
func sanitizeRedirectPath(path string) string {
	if isLocalPath(path) {
		return path
	}
	return "/"
}

// RenderFunc renders a named page template. The presentation layer supplies
// one that adds its shared context (current user, CSRF field, messages).
type RenderFunc func(c *gin.Context, status int, name string, data gin.H)

// AuditLogger records authentication events. Implementations must not block.
type AuditLogger interface {
	LogAuth(userID uint, action string, ipAddr, userAgent string, success bool)
}

// ControllerOption configures an AuthController.
type ControllerOption func(*AuthController)

// WithRenderer sets the page renderer; without one, pages are returned as JSON.
func WithRenderer(render RenderFunc) ControllerOption {
	return func(ac *AuthController) {
		ac.render = render
	}
}

// WithAuditLogger records logins, logouts and registrations.
func WithAuditLogger(logger AuditLogger) ControllerOption {
	return func(ac *AuthController) {
		ac.audit = logger
	}
}

// AuthController handles login, logout and reader registration.
type AuthController struct {
	service        *Service
	sessionManager *SessionManager
	rateLimiter    *RateLimiter
	render         RenderFunc
	audit          AuditLogger
}

// NewAuthController creates a new authentication controller.
func NewAuthController(service *Service, sessionManager *SessionManager, cfg config.Auth, opts ...ControllerOption) *AuthController {
	ac := &AuthController{
		service:        service,
		sessionManager: sessionManager,
		rateLimiter: NewRateLimiter(RateLimitConfig{
			MaxAttempts:     cfg.MaxLoginAttempts,
			WindowDuration:  cfg.RateLimitWindow,
			LockoutDuration: cfg.LockoutDuration,
		}),
		render: renderJSON,
	}
	for _, opt := range opts {
		opt(ac)
	}
	return ac
}

// RegisterRoutes registers authentication routes on the router.
func (ac *AuthController) RegisterRoutes(router gin.IRouter) {
	router.GET("/login", ac.LoginPage)
	router.POST("/login", ac.Login)
	router.POST("/logout", ac.Logout)
	router.GET("/logout", ac.Logout)
	router.GET("/register/", ac.RegisterPage)
	router.POST("/register/", ac.Register)
}

// Stop releases the rate limiter's cleanup goroutine.
func (ac *AuthController) Stop() {
	if ac.rateLimiter != nil {
		ac.rateLimiter.Stop()
	}
}

// LoginPage renders the login form.
func (ac *AuthController) LoginPage(c *gin.Context) {
	if IsAuthenticated(c) {
		c.Redirect(http.StatusFound, "/")
		return
	}

	ac.render(c, http.StatusOK, "login.html", gin.H{
		"Title": "Login",
		"Next":  sanitizeRedirectPath(c.Query("next")),
		"Error": c.Query("error"),
	})
}

// Login handles the login form submission.
func (ac *AuthController) Login(c *gin.Context) {
	username := strings.TrimSpace(c.PostForm("username"))
	password := c.PostForm("password")
	next := sanitizeRedirectPath(c.PostForm("next"))
	clientIP := c.ClientIP()

	renderError := func(status int, msg string) {
		ac.render(c, status, "login.html", gin.H{
			"Title":    "Login",
			"Next":     next,
			"Username": username,
			"Error":    msg,
		})
	}

	if allowed, retryAfter := ac.rateLimiter.Allow(clientIP, username); !allowed {
		c.Header("Retry-After", retryAfter.String())
		renderError(http.StatusTooManyRequests, "Too many login attempts. Please try again later.")
		return
	}

	user, err := ac.service.Authenticate(username, password)
	if err != nil {
		ac.rateLimiter.RecordFailure(clientIP, username)
		ac.logAuth(0, AuditActionLogin, c, false)

		msg := "Please enter a correct username and password."
		if errors.Is(err, ErrAccountLocked) {
			msg = "Account is locked. Please try again later."
		} else if !errors.Is(err, ErrInvalidPassword) && !errors.Is(err, ErrUserNotFound) {
			log.Printf("Login failed for %q: %v", username, err)
		}
		renderError(http.StatusOK, msg)
		return
	}

	ac.rateLimiter.RecordSuccess(clientIP, username)

	if err := ac.sessionManager.CreateSession(c.Request, user); err != nil {
		log.Printf("Failed to create session for user %d: %v", user.ID, err)
		renderError(http.StatusInternalServerError, "Failed to create session")
		return
	}
	ac.logAuth(user.ID, AuditActionLogin, c, true)

	c.Redirect(http.StatusFound, next)
}

// Logout destroys the session and returns to the catalog.
func (ac *AuthController) Logout(c *gin.Context) {
	userID := GetUserID(c)
	if err := ac.sessionManager.DestroySession(c.Request); err != nil {
		log.Printf("Failed to destroy session: %v", err)
	}
	if userID != AnonymousUserID {
		ac.logAuth(userID, AuditActionLogout, c, true)
	}
	c.Redirect(http.StatusFound, "/")
}

// RegisterPage renders the reader sign-up form.
func (ac *AuthController) RegisterPage(c *gin.Context) {
	if IsAuthenticated(c) {
		c.Redirect(http.StatusFound, "/")
		return
	}
	ac.render(c, http.StatusOK, "register.html", gin.H{
		"Title": "Register",
	})
}

// Register creates a reader account and sends the visitor to the login page.
func (ac *AuthController) Register(c *gin.Context) {
	username := strings.TrimSpace(c.PostForm("username"))
	email := strings.TrimSpace(c.PostForm("email"))
	password := c.PostForm("password")
	password2 := c.PostForm("password2")

	renderError := func(msg string) {
		ac.render(c, http.StatusBadRequest, "register.html", gin.H{
			"Title":    "Register",
			"Username": username,
			"Email":    email,
			"Error":    msg,
		})
	}

	if password != password2 {
		renderError("Passwords do not match!")
		return
	}

	user, err := ac.service.Register(NewUser{
		Username:  username,
		Email:     email,
		Password:  password,
		FirstName: c.PostForm("first_name"),
		LastName:  c.PostForm("last_name"),
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrUserExists):
			renderError("User name " + username + " or email " + email + " is already registered!")
		case IsPasswordRuleError(err),
			errors.Is(err, ErrPasswordRequired),
			errors.Is(err, ErrUsernameRequired),
			errors.Is(err, ErrUsernameInvalid),
			errors.Is(err, ErrEmailRequired),
			errors.Is(err, ErrEmailInvalid):
			renderError(capitalize(err.Error()))
		default:
			log.Printf("Failed to register %q: %v", username, err)
			renderError("Registration failed. Please try again.")
		}
		ac.logAuth(0, AuditActionRegister, c, false)
		return
	}

	ac.logAuth(user.ID, AuditActionRegister, c, true)
	ac.sessionManager.AddFlash(c.Request.Context(), FlashSuccess, "User "+user.Username+" registered successfully!")
	c.Redirect(http.StatusFound, "/login")
}

func (ac *AuthController) logAuth(userID uint, action string, c *gin.Context, success bool) {
	if ac.audit == nil {
		return
	}
	ac.audit.LogAuth(userID, action, c.ClientIP(), c.Request.UserAgent(), success)
}

func renderJSON(c *gin.Context, status int, _ string, data gin.H) {
	c.JSON(status, data)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// APITokenController handles API token management endpoints.
type APITokenController struct {
	service *Service
}

// NewAPITokenController creates a new API token controller.
func NewAPITokenController(service *Service) *APITokenController {
	return &APITokenController{service: service}
}

// GenerateToken creates a new API token for the authenticated user.
func (tc *APITokenController) GenerateToken(c *gin.Context) {
	userID := GetUserID(c)
	if userID == AnonymousUserID {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	token, err := tc.service.GenerateToken(userID)
	if err != nil {
		log.Printf("Failed to generate token for user %d: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":   token,
		"message": "Store this token securely - it will not be shown again",
	})
}

// RevokeToken revokes the API token for the authenticated user.
func (tc *APITokenController) RevokeToken(c *gin.Context) {
	userID := GetUserID(c)
	if userID == AnonymousUserID {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	if err := tc.service.RevokeToken(userID); err != nil {
		log.Printf("Failed to revoke token for user %d: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to revoke token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "token revoked"})
}
