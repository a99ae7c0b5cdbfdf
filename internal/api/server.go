// Package api serves the ATC HTTP API: the component catalog and archive
// services the editor depends on, the headless editor sessions, the global
// filters and Terraform generation.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/json-to-terraform/atc/internal/archive"
	"github.com/json-to-terraform/atc/internal/component"
	"github.com/json-to-terraform/atc/internal/config"
	"github.com/json-to-terraform/atc/internal/editor"
	"github.com/json-to-terraform/atc/internal/filter"
	"github.com/json-to-terraform/atc/internal/persistence"
)

// Deps are the collaborators the server routes to.
type Deps struct {
	// Store is the local catalog served under /api/atc/{provider}.
	Store *component.Store
	// Catalog is what editor sessions resolve components against; it is
	// Store itself or a client of a remote catalog.
	Catalog component.Catalog
	// Archives backs the remote archive routes.
	Archives *archive.Store
	// Backend returns the persistence backend for a provider.
	Backend func(provider string) persistence.Backend
	Filters *filter.Store
	// FilterSource refreshes Filters; nil disables refresh.
	FilterSource filter.OptionsSource
}

// Server is the ATC API server.
type Server struct {
	echo     *echo.Echo
	cfg      *config.Config
	log      *zap.Logger
	deps     Deps
	sessions *editor.Sessions
	started  time.Time
}

type requestValidator struct {
	v *validator.Validate
}

func (rv *requestValidator) Validate(i any) error {
	return rv.v.Struct(i)
}

// New creates a server.
func New(cfg *config.Config, log *zap.Logger, deps Deps) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Debug = cfg.Server.Debug
	e.HTTPErrorHandler = HTTPErrorHandler
	e.Validator = &requestValidator{v: validator.New()}

	s := &Server{
		echo:     e,
		cfg:      cfg,
		log:      log.Named("api"),
		deps:     deps,
		sessions: editor.NewSessions(),
		started:  time.Now(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// Handler exposes the router.
func (s *Server) Handler() http.Handler { return s.echo }

// Sessions returns the editor session registry.
func (s *Server) Sessions() *editor.Sessions { return s.sessions }

func (s *Server) setupMiddleware() {
	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("request_id", v.RequestID),
			}
			if v.Error != nil {
				s.log.Warn("request failed", append(fields, zap.Error(v.Error))...)
				return nil
			}
			s.log.Debug("request", fields...)
			return nil
		},
	}))
	s.echo.Use(middleware.Recover())
	if len(s.cfg.Security.AllowedOrigins) > 0 {
		s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: s.cfg.Security.AllowedOrigins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		}))
	}
	s.echo.Use(middleware.RequestID())
	if s.cfg.Security.RateLimit > 0 {
		s.echo.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(
			rate.Limit(s.cfg.Security.RateLimit),
		)))
	}
}

func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)

	atc := s.echo.Group("/api/atc")
	atc.GET("/schema/diagram", s.diagramSchema)
	atc.GET("/:provider/components", s.listComponents)
	atc.GET("/:provider/components/:type", s.getComponent)
	atc.GET("/:provider/icons/:icon", s.getIcon)
	atc.GET("/:provider/architectures", s.listArchitectures)
	atc.POST("/:provider/architectures/:name", s.saveArchitecture)
	atc.GET("/:provider/architectures/:name", s.loadArchitecture)

	sessions := s.echo.Group("/api/editor/sessions")
	sessions.POST("", s.createSession)
	sessions.GET("", s.listSessions)
	sessions.GET("/:id", s.getSession)
	sessions.DELETE("/:id", s.closeSession)
	sessions.GET("/:id/components", s.sessionComponents)
	sessions.POST("/:id/nodes", s.dropNode)
	sessions.PUT("/:id/nodes/:node/position", s.moveNode)
	sessions.POST("/:id/edges", s.connect)
	sessions.PUT("/:id/selection", s.selectNode)
	sessions.DELETE("/:id/selection", s.deselect)
	sessions.GET("/:id/inspector", s.inspector)
	sessions.PUT("/:id/properties/:name", s.setProperty)
	sessions.POST("/:id/save", s.save)
	sessions.POST("/:id/load", s.load)
	sessions.GET("/:id/archives", s.listSaved)
	sessions.POST("/:id/generate", s.generate)

	filters := s.echo.Group("/api/filters")
	filters.GET("", s.getFilters)
	filters.PUT("", s.updateFilters)
	filters.POST("/refresh", s.refreshFilters)
}

// Start listens on the configured address until Shutdown.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	s.echo.Server.ReadTimeout = s.cfg.Server.ReadTimeout
	s.echo.Server.WriteTimeout = s.cfg.Server.WriteTimeout
	s.log.Info("starting ATC API server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down ATC API server")
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("error shutting down server: %w", err)
	}
	return nil
}

func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":   "healthy",
		"service":  "atc",
		"sessions": len(s.sessions.List()),
		"uptime":   time.Since(s.started).Round(time.Second).String(),
	})
}
