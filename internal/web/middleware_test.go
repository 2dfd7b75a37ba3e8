package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/oredesk/oredesk/internal/session"
)

func guardedRouter(store session.Store, scope session.Scope) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protected", RequireSession(store, scope, zerolog.Nop()), func(c *gin.Context) {
		sess, ok := CurrentSession(c)
		if !ok {
			c.String(http.StatusInternalServerError, "no session in context")
			return
		}
		c.String(http.StatusOK, sess.ProfileField("email"))
	})
	r.GET("/api/protected", RequireSessionJSON(store, scope, zerolog.Nop()), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

func TestRequireSessionRedirectsWithNext(t *testing.T) {
	router := guardedRouter(session.NewMemoryStore(), session.ScopeUser)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected?tab=deposits", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", w.Code)
	}
	loc, err := url.Parse(w.Header().Get("Location"))
	if err != nil {
		t.Fatalf("bad redirect location: %v", err)
	}
	if loc.Path != "/auth" {
		t.Errorf("redirect path = %q, want /auth", loc.Path)
	}
	if got := loc.Query().Get("next"); got != "/protected?tab=deposits" {
		t.Errorf("next = %q, want the attempted location with its query", got)
	}
}

func TestRequireSessionAdminRedirectsToAdminLogin(t *testing.T) {
	router := guardedRouter(session.NewMemoryStore(), session.ScopeAdmin)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protected", nil))

	loc, _ := url.Parse(w.Header().Get("Location"))
	if loc.Path != "/admin/login" {
		t.Errorf("redirect path = %q, want /admin/login", loc.Path)
	}
}

func TestRequireSessionPassesWithSession(t *testing.T) {
	store := session.NewMemoryStore()
	if err := store.Write(session.ScopeUser, "tok", json.RawMessage(`{"email":"ada@example.com"}`)); err != nil {
		t.Fatal(err)
	}
	router := guardedRouter(store, session.ScopeUser)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protected", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if w.Body.String() != "ada@example.com" {
		t.Errorf("handler did not see the session from the guard: %q", w.Body.String())
	}
}

func TestRequireSessionIgnoresOtherScope(t *testing.T) {
	store := session.NewMemoryStore()
	// Only the admin slot is filled; the user guard must still redirect
	if err := store.Write(session.ScopeAdmin, "tok", json.RawMessage(`{"email":"root@example.com"}`)); err != nil {
		t.Fatal(err)
	}
	router := guardedRouter(store, session.ScopeUser)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protected", nil))

	if w.Code != http.StatusFound {
		t.Errorf("status = %d, want redirect despite the filled admin slot", w.Code)
	}
}

func TestRequireSessionJSONAnswers401(t *testing.T) {
	router := guardedRouter(session.NewMemoryStore(), session.ScopeUser)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/protected", nil))

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "" {
		t.Errorf("JSON guard must not redirect, got Location %q", loc)
	}
}

func TestSafeNext(t *testing.T) {
	tests := []struct {
		next string
		want string
	}{
		{"", "/dashboard"},
		{"/dashboard/r/deposits", "/dashboard/r/deposits"},
		{"/dashboard?page=2", "/dashboard?page=2"},
		{"https://evil.example.com", "/dashboard"},
		{"//evil.example.com", "/dashboard"},
		{"relative/path", "/dashboard"},
	}

	for _, tt := range tests {
		if got := safeNext(tt.next, "/dashboard"); got != tt.want {
			t.Errorf("safeNext(%q) = %q, want %q", tt.next, got, tt.want)
		}
	}
}
