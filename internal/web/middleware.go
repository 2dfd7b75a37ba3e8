package web

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/oredesk/oredesk/internal/session"
)

const sessionContextKey = "session"

// RequireSession guards HTML page routes for one scope. The store is
// re-read on every request; an absent or half-present slot redirects to the
// scope's login route with the attempted location carried in "next".
// Presence is the only check here: token validity is discovered lazily via
// the first 401 from a backend call.
func RequireSession(store session.Store, scope session.Scope, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := store.Read(scope)
		if err != nil {
			log.Error().Err(err).Str("scope", string(scope)).Msg("Failed to read session")
			c.String(http.StatusInternalServerError, "session storage unavailable")
			c.Abort()
			return
		}
		if sess == nil {
			c.Redirect(http.StatusFound, loginRedirect(scope, requestedPath(c)))
			c.Abort()
			return
		}

		c.Set(sessionContextKey, sess)
		c.Next()
	}
}

// RequireSessionJSON is the JSON variant used by the console's own API
// endpoints: a missing session answers 401 instead of redirecting
func RequireSessionJSON(store session.Store, scope session.Scope, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := store.Read(scope)
		if err != nil {
			log.Error().Err(err).Str("scope", string(scope)).Msg("Failed to read session")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "session storage unavailable"})
			c.Abort()
			return
		}
		if sess == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			c.Abort()
			return
		}

		c.Set(sessionContextKey, sess)
		c.Next()
	}
}

// CurrentSession returns the session placed in the context by the guard
func CurrentSession(c *gin.Context) (*session.Session, bool) {
	value, exists := c.Get(sessionContextKey)
	if !exists {
		return nil, false
	}
	sess, ok := value.(*session.Session)
	return sess, ok
}

// requestedPath is the location preserved across the login round-trip
func requestedPath(c *gin.Context) string {
	path := c.Request.URL.Path
	if q := c.Request.URL.RawQuery; q != "" {
		path += "?" + q
	}
	return path
}

func loginRedirect(scope session.Scope, next string) string {
	return scope.LoginPath() + "?next=" + url.QueryEscape(next)
}

// safeNext restricts post-login redirect targets to local paths
func safeNext(next, fallback string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return fallback
	}
	return next
}

// loggingMiddleware creates a request logging middleware using zerolog
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		s.logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("HTTP request")
	}
}
