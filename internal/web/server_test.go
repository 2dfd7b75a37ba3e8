package web

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oredesk/oredesk/internal/config"
)

// fakePlatform simulates the rewards platform API behind the console
type fakePlatform struct {
	mux         *http.ServeMux
	expireUser  bool // answer 401 on user data endpoints
	lastRequest *http.Request
}

// handleMethod registers pattern on mux restricted to the given method,
// mirroring Go 1.22+ "METHOD /path" ServeMux patterns on older toolchains.
func handleMethod(mux *http.ServeMux, method, pattern string, h http.HandlerFunc) {
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h(w, r)
	})
}

func newFakePlatform() *fakePlatform {
	p := &fakePlatform{mux: http.NewServeMux()}

	handleMethod(p.mux, http.MethodPost, "/auth/login", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"token":"user-token","user":{"name":"Ada","email":"ada@example.com"}}`))
	})
	handleMethod(p.mux, http.MethodPost, "/admin/login", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"token":"admin-token","user":{"name":"Root","email":"root@example.com"}}}`))
	})
	handleMethod(p.mux, http.MethodGet, "/wallet/transactions", func(w http.ResponseWriter, r *http.Request) {
		if p.expireUser {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"message":"Unauthenticated."}`))
			return
		}
		w.Write([]byte(`{"data":{"data":[{"type":"mining","amount":5,"currency":"ORE","status":"done","created_at":"2026-01-01"}],"current_page":1,"last_page":1,"per_page":15,"total":1}}`))
	})
	handleMethod(p.mux, http.MethodPost, "/admin/users", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"message":"The given data was invalid.","errors":{"email":["The email has already been taken."]}}`))
	})
	p.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		p.lastRequest = r
		w.Write([]byte(`{}`))
	})

	return p
}

func newTestServer(t *testing.T, platform *fakePlatform) *Server {
	t.Helper()

	backend := httptest.NewServer(platform.mux)
	t.Cleanup(backend.Close)

	cfg := &config.Config{
		API:      config.APIConfig{BaseURL: backend.URL},
		Listen:   config.ListenConfig{Addr: ":0"},
		Database: config.DatabaseConfig{URL: filepath.Join(t.TempDir(), "console.sqlite")},
		Session:  config.SessionConfig{Backend: "db", Secret: "test-secret"},
		Logging:  config.LoggingConfig{Level: "error", Format: "console"},
	}

	server, err := New(cfg, zerolog.Nop(), "test")
	require.NoError(t, err)
	return server
}

func postForm(router http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	router.ServeHTTP(w, req)
	return w
}

func get(router http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func loginUser(t *testing.T, server *Server, next string) {
	t.Helper()
	form := url.Values{"email": {"ada@example.com"}, "password": {"secret-pw"}}
	if next != "" {
		form.Set("next", next)
	}
	w := postForm(server.Router(), "/auth/login", form)
	require.Equal(t, http.StatusFound, w.Code, "login should redirect: %s", w.Body.String())
}

func loginAdmin(t *testing.T, server *Server) {
	t.Helper()
	form := url.Values{"email": {"root@example.com"}, "password": {"secret-pw"}}
	w := postForm(server.Router(), "/admin/login", form)
	require.Equal(t, http.StatusFound, w.Code, "admin login should redirect: %s", w.Body.String())
}

func TestDashboardRedirectsWhenSignedOut(t *testing.T) {
	server := newTestServer(t, newFakePlatform())

	w := get(server.Router(), "/dashboard")
	require.Equal(t, http.StatusFound, w.Code)

	loc, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/auth", loc.Path)
	assert.Equal(t, "/dashboard", loc.Query().Get("next"))
}

func TestLoginRedirectsToNext(t *testing.T) {
	server := newTestServer(t, newFakePlatform())

	form := url.Values{
		"email":    {"ada@example.com"},
		"password": {"secret-pw"},
		"next":     {"/dashboard/r/transactions"},
	}
	w := postForm(server.Router(), "/auth/login", form)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/dashboard/r/transactions", w.Header().Get("Location"))

	// The slot is filled; the guard lets the page through now
	w = get(server.Router(), "/dashboard")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ada@example.com")
}

func TestLoginRejectsExternalNext(t *testing.T) {
	server := newTestServer(t, newFakePlatform())

	form := url.Values{
		"email":    {"ada@example.com"},
		"password": {"secret-pw"},
		"next":     {"https://evil.example.com/phish"},
	}
	w := postForm(server.Router(), "/auth/login", form)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/dashboard", w.Header().Get("Location"))
}

func TestResourceListRendersBackendRows(t *testing.T) {
	server := newTestServer(t, newFakePlatform())
	loginUser(t, server, "")

	w := get(server.Router(), "/dashboard/r/transactions")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "mining")
	assert.Contains(t, w.Body.String(), "ORE")
}

func TestExpiredSessionClearsSlotAndRedirects(t *testing.T) {
	platform := newFakePlatform()
	server := newTestServer(t, platform)
	loginUser(t, server, "")

	platform.expireUser = true
	w := get(server.Router(), "/dashboard/r/transactions?status=done")
	require.Equal(t, http.StatusFound, w.Code)

	loc, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/auth", loc.Path)
	assert.Equal(t, "/dashboard/r/transactions?status=done", loc.Query().Get("next"))

	// The slot was cleared, so even non-backend pages redirect now
	platform.expireUser = false
	w = get(server.Router(), "/dashboard/session")
	assert.Equal(t, http.StatusFound, w.Code)
}

func TestAdminAndUserSlotsAreIndependent(t *testing.T) {
	platform := newFakePlatform()
	server := newTestServer(t, platform)
	loginAdmin(t, server)

	// Admin pages open, user pages still redirect
	w := get(server.Router(), "/admin/audit")
	assert.Equal(t, http.StatusOK, w.Code)
	w = get(server.Router(), "/dashboard")
	assert.Equal(t, http.StatusFound, w.Code)

	// A user-scope 401 must not evict the admin session
	loginUser(t, server, "")
	platform.expireUser = true
	get(server.Router(), "/dashboard/r/transactions")

	w = get(server.Router(), "/admin/audit")
	assert.Equal(t, http.StatusOK, w.Code, "admin slot must survive a user-scope 401")
}

func TestCreateValidationFailureReRendersForm(t *testing.T) {
	server := newTestServer(t, newFakePlatform())
	loginAdmin(t, server)

	form := url.Values{
		"name":  {"Ada"},
		"email": {"dupe@example.com"},
	}
	w := postForm(server.Router(), "/admin/r/users", form)
	require.Equal(t, http.StatusBadRequest, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, "The email has already been taken.")
	assert.Contains(t, body, "dupe@example.com", "entered values survive the re-render")
}

func TestCreateMissingRequiredFieldNeverReachesBackend(t *testing.T) {
	platform := newFakePlatform()
	server := newTestServer(t, platform)
	loginAdmin(t, server)

	w := postForm(server.Router(), "/admin/r/users", url.Values{"name": {"Ada"}})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "This field is required")
}

func TestDeleteRequiresConfirmation(t *testing.T) {
	platform := newFakePlatform()
	server := newTestServer(t, platform)
	loginAdmin(t, server)

	w := postForm(server.Router(), "/admin/r/users/u1/delete", url.Values{})
	require.Equal(t, http.StatusFound, w.Code)
	assert.Contains(t, w.Header().Get("Location"), "confirmation")

	w = postForm(server.Router(), "/admin/r/users/u1/delete", url.Values{"confirm": {"yes"}})
	require.Equal(t, http.StatusFound, w.Code)
	require.NotNil(t, platform.lastRequest)
	assert.Equal(t, http.MethodDelete, platform.lastRequest.Method)
	assert.Equal(t, "/admin/users/u1", platform.lastRequest.URL.Path)
}

func TestSessionInfoReportsSlotPresence(t *testing.T) {
	server := newTestServer(t, newFakePlatform())
	loginUser(t, server, "")

	w := get(server.Router(), "/api/session")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user":true,"admin":false}`, w.Body.String())
}

func TestHealthCheck(t *testing.T) {
	server := newTestServer(t, newFakePlatform())

	w := get(server.Router(), "/health")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "online")
}
