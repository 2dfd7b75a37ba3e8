// Package web is the console's HTTP surface: the public landing and auth
// pages, the guarded user dashboard and admin back-office, and a small JSON
// API used by page scripts.
package web

import (
	"context"
	"embed"
	"html/template"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/oredesk/oredesk/internal/api"
	"github.com/oredesk/oredesk/internal/audit"
	"github.com/oredesk/oredesk/internal/config"
	"github.com/oredesk/oredesk/internal/db"
	"github.com/oredesk/oredesk/internal/resource"
	"github.com/oredesk/oredesk/internal/session"
	"github.com/oredesk/oredesk/internal/stats"
)

//go:embed templates/*.html
var templateFS embed.FS

// Server represents the console HTTP server
type Server struct {
	router    *gin.Engine
	db        *gorm.DB
	config    *config.Config
	logger    zerolog.Logger
	store     session.Store
	userAPI   *api.Client
	adminAPI  *api.Client
	resources *resource.Service
	recorder  *audit.Recorder
	poller    *stats.Poller // nil when no refresh schedule is configured
	version   string
}

// New creates a new server instance
func New(cfg *config.Config, zlog zerolog.Logger, version string) (*Server, error) {
	gdb, err := db.Open(cfg, zlog)
	if err != nil {
		return nil, err
	}

	store, err := session.NewStore(cfg.Session.Backend, cfg.Session.Secret, gdb, zlog)
	if err != nil {
		return nil, err
	}

	userAPI := api.New(cfg.API.BaseURL, session.ScopeUser, store, zlog)
	adminAPI := api.New(cfg.API.BaseURL, session.ScopeAdmin, store, zlog)

	catalog, err := resource.LoadCatalog(cfg.ResourceCatalog)
	if err != nil {
		return nil, err
	}

	recorder := audit.NewRecorder(gdb, zlog)
	resources := resource.NewService(catalog, userAPI, adminAPI, store, recorder, zlog)

	var poller *stats.Poller
	if cfg.StatsRefreshSchedule != "" {
		poller, err = stats.NewPoller(cfg.StatsRefreshSchedule, gdb, store, userAPI, adminAPI, recorder, zlog)
		if err != nil {
			return nil, err
		}
	}

	registerValidations()

	server := &Server{
		db:        gdb,
		config:    cfg,
		logger:    zlog,
		store:     store,
		userAPI:   userAPI,
		adminAPI:  adminAPI,
		resources: resources,
		recorder:  recorder,
		poller:    poller,
		version:   version,
	}
	server.setupRouter()

	return server, nil
}

// registerValidations adds custom form validators to gin's binding engine
func registerValidations() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	// Referral codes: alphanumeric plus hyphen/underscore
	_ = v.RegisterValidation("refcode", func(fl validator.FieldLevel) bool {
		for _, char := range fl.Field().String() {
			if !((char >= 'a' && char <= 'z') ||
				(char >= 'A' && char <= 'Z') ||
				(char >= '0' && char <= '9') ||
				char == '-' ||
				char == '_') {
				return false
			}
		}
		return true
	})
}

// setupRouter configures the Gin router with routes and middleware
func (s *Server) setupRouter() {
	gin.SetMode(gin.ReleaseMode)

	s.router = gin.New()
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())
	funcs := template.FuncMap{
		"add": func(a, b int) int { return a + b },
		"sub": func(a, b int) int { return a - b },
		// cell renders a row column, showing blanks for fields a backend
		// row happens not to carry
		"cell": func(item map[string]any, key string) any {
			if v, ok := item[key]; ok && v != nil {
				return v
			}
			return ""
		},
	}
	s.router.SetHTMLTemplate(template.Must(template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html")))

	// Health check endpoint (no auth required)
	s.router.GET("/health", s.healthCheck)

	// Public pages
	s.router.GET("/", s.landingPage)
	s.router.GET("/auth", s.authPage)
	s.router.POST("/auth/login", s.login)
	s.router.POST("/auth/register", s.register)
	s.router.POST("/auth/two-factor", s.verifyTwoFactor)
	s.router.POST("/auth/forgot-password", s.forgotPassword)
	s.router.POST("/auth/reset-password", s.resetPassword)
	s.router.GET("/admin/login", s.adminLoginPage)
	s.router.POST("/admin/login", s.adminLogin)

	// User dashboard (user session required)
	dash := s.router.Group("/dashboard")
	dash.Use(RequireSession(s.store, session.ScopeUser, s.logger))
	{
		dash.GET("", s.dashboardHome)
		dash.GET("/session", s.sessionStatus)
		dash.GET("/kyc", s.kycPage)
		dash.POST("/kyc", s.kycSubmit)
		dash.POST("/mining/claim", s.miningClaim)
		dash.POST("/logout", s.logout(session.ScopeUser))
		s.registerResourceRoutes(dash, session.ScopeUser)
	}

	// Admin back-office (admin session required; /admin/login stays public)
	adm := s.router.Group("/admin")
	adm.Use(RequireSession(s.store, session.ScopeAdmin, s.logger))
	{
		adm.GET("", s.adminHome)
		adm.GET("/audit", s.auditPage)
		adm.POST("/logout", s.logout(session.ScopeAdmin))
		s.registerResourceRoutes(adm, session.ScopeAdmin)
	}

	// JSON API for page scripts
	apiGroup := s.router.Group("/api")
	apiGroup.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:5173"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	{
		apiGroup.GET("/session", s.sessionInfo)

		userAPI := apiGroup.Group("/user", RequireSessionJSON(s.store, session.ScopeUser, s.logger))
		userAPI.GET("/resources/:name", s.resourceListJSON(session.ScopeUser))

		adminAPI := apiGroup.Group("/admin", RequireSessionJSON(s.store, session.ScopeAdmin, s.logger))
		adminAPI.GET("/resources/:name", s.resourceListJSON(session.ScopeAdmin))
	}
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "online",
		"timestamp": time.Now().UTC(),
		"service":   "oredesk",
		"version":   s.version,
	})
}

// Start starts the HTTP server and blocks until shutdown
func (s *Server) Start() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	srv := &http.Server{
		Addr:              s.config.Listen.Addr,
		Handler:           s.router,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		ReadHeaderTimeout: 30 * time.Second,
		IdleTimeout:       300 * time.Second,
	}

	if s.poller != nil {
		s.poller.Start()
	}

	go func() {
		s.logger.Info().Str("addr", s.config.Listen.Addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("HTTP server error")
		}
	}()

	<-sigChan
	s.logger.Info().Msg("Received shutdown signal, shutting down gracefully...")

	if s.poller != nil {
		s.poller.Stop()
		s.logger.Info().Msg("Stats poller stopped")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error().Err(err).Msg("Error shutting down HTTP server")
		return err
	}

	// Close database connection to flush WAL writes
	if sqlDB, err := s.db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			s.logger.Error().Err(err).Msg("Error closing database")
		}
	}

	s.logger.Info().Msg("Server shutdown complete")
	return nil
}

// Router exposes the configured engine for tests
func (s *Server) Router() http.Handler {
	return s.router
}
