// Package demo runs the library as a public read-only demo: a seeded
// public domain catalog where readers can browse and log in, but nothing
// can be written.
package demo

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarian/internal/auth"
)

// BlockedMessage is shown for every rejected write.
const BlockedMessage = "This action is disabled in demo mode"

// ContextKeyDemoMode stores the demo flag in the request context for templates.
const ContextKeyDemoMode = "demo_mode"

// Paths that accept writes in demo mode so visitors can sign in and out.
var allowedPaths = []string{
	"/login",
	"/logout",
}

// Middleware blocks write operations in demo mode.
// Read-only operations (GET) are always allowed.
type Middleware struct {
	enabled bool
}

// NewMiddleware creates a demo mode middleware.
func NewMiddleware(enabled bool) *Middleware {
	return &Middleware{enabled: enabled}
}

// IsEnabled returns whether demo mode is active.
func (m *Middleware) IsEnabled() bool {
	return m != nil && m.enabled
}

// Handler returns a Gin middleware that blocks write operations.
func (m *Middleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !m.IsEnabled() {
			c.Next()
			return
		}

		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}

		if isAllowedPath(c.Request.URL.Path) {
			c.Next()
			return
		}

		respondBlocked(c)
	}
}

func isAllowedPath(path string) bool {
	for _, allowed := range allowedPaths {
		if path == allowed || strings.HasPrefix(path, allowed+"/") {
			return true
		}
	}
	return false
}

// respondBlocked answers 403 as JSON for API clients and as plain text for
// browsers.
func respondBlocked(c *gin.Context) {
	if auth.IsAPIRequest(c) {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error":     BlockedMessage,
			"demo_mode": true,
		})
		return
	}
	c.String(http.StatusForbidden, BlockedMessage)
	c.Abort()
}

// InjectContext adds the demo mode flag to the context for template rendering.
func (m *Middleware) InjectContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ContextKeyDemoMode, m.IsEnabled())
		c.Next()
	}
}
