// Package daemon serves the portal's site content, session state and auth
// flows as JSON to a browser front end running on the same machine.
package daemon

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-co-op/gocron"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/bluebird-io/portal/internal/common"
	"github.com/bluebird-io/portal/internal/config"
	"github.com/bluebird-io/portal/internal/i18n"
	"github.com/bluebird-io/portal/internal/sessions"
	"github.com/bluebird-io/portal/internal/site"
)

// Server represents the local web service
type Server struct {
	Config    *config.Config
	Manager   *sessions.Manager
	Content   *site.Content
	Messages  *i18n.Translator
	StartTime time.Time
	// InstanceID is stable per machine so a front end can tell installs apart
	InstanceID uuid.UUID

	TotalRequests int64

	limiter   *RateLimiter
	scheduler *gocron.Scheduler
	server    *http.Server
}

func NewServer(cfg *config.Config, manager *sessions.Manager, content *site.Content) *Server {
	return &Server{
		Config:    cfg,
		Manager:   manager,
		Content:   content,
		Messages:  i18n.New(cfg.Site.Locale),
		StartTime: time.Now().UTC(),

		InstanceID: common.GetClientIdentifier(),
	}
}

func (s *Server) GetVersion() string {
	return common.GetVersion()
}

// Handler builds the router. Start uses it; tests drive it directly.
func (s *Server) Handler() http.Handler {
	router := gin.New()

	router.Use(gin.Logger())
	router.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logrus.WithFields(logrus.Fields{
			"panic": recovered,
			"path":  c.Request.URL.Path,
		}).Errorln("Recovered from panic")

		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": s.Messages.T(i18n.RequestFailed),
		})
	}))
	router.Use(CorrelationMiddleware())
	router.Use(s.requestCounterMiddleware())

	corsConfig := s.Config.Server.Security.CORS

	logrus.WithFields(logrus.Fields{
		"allowedOrigins": corsConfig.AllowedOrigins,
	}).Debugln("CORS configuration")

	if len(corsConfig.AllowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     corsConfig.AllowedOrigins,
			AllowMethods:     corsConfig.AllowedMethods,
			AllowHeaders:     corsConfig.AllowedHeaders,
			ExposeHeaders:    []string{correlationIDHeader},
			MaxAge:           time.Duration(corsConfig.MaxAge) * time.Second,
			AllowCredentials: false,
		}))
	}

	s.setupRoutes(router)

	return router
}

// Start initializes and starts the web service
func (s *Server) Start() error {
	gin.SetMode(gin.ReleaseMode)

	limits := s.Config.Server.Limits
	if limits.RequestsPerMinute > 0 {
		s.limiter = NewRateLimiter(float64(limits.RequestsPerMinute)/60, limits.Burst)
	}

	addr := s.Config.GetServerAddress()

	server := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  limits.ReadTimeout,
		WriteTimeout: limits.WriteTimeout,
		IdleTimeout:  limits.IdleTimeout,
	}

	s.server = server

	errChan := make(chan error, 1)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	// Wait a moment to see if the server fails to start
	select {
	case err := <-errChan:
		return fmt.Errorf("failed to start server: %w", err)
	case <-time.After(100 * time.Millisecond):
		if err := s.startRefresher(); err != nil {
			logrus.WithError(err).Warnln("User refresh disabled")
		}

		logrus.WithFields(logrus.Fields{
			"address": addr,
		}).Infoln("Web service started")
		return nil
	}
}

func (s *Server) Stop() {
	s.stopRefresher()

	if s.limiter != nil {
		s.limiter.Stop()
	}

	if s.server == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		logrus.WithError(err).Warnln("Server shutdown")
	}
	logrus.Infoln("Web service stopped")
}

// requestCounterMiddleware increments the request counter
func (s *Server) requestCounterMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		atomic.AddInt64(&s.TotalRequests, 1)
		c.Next()
	}
}

// setupRoutes configures all the HTTP routes
func (s *Server) setupRoutes(router *gin.Engine) {

	if s.Config.Server.Health.Enabled {
		router.GET(s.Config.Server.Health.Path, s.healthHandler)
	}

	if s.Config.Server.Ready.Enabled {
		router.GET(s.Config.Server.Ready.Path, s.readyHandler)
	}

	api := router.Group("/api")
	{
		api.GET("/site", s.getSite)
		api.GET("/plans", s.getPlans)
		api.GET("/faq", s.getFAQ)

		api.GET("/session", s.getSession)
		api.GET("/session/events", s.getSessionEvents)

		api.GET("/logs", s.getLogs)

		auth := api.Group("/auth")
		if s.limiter != nil {
			auth.Use(s.limiter.Middleware(s.Messages))
		}
		{
			auth.POST("/login", s.postLogin)
			auth.POST("/register", s.postRegister)
			auth.POST("/send-code", s.postSendCode)
			auth.POST("/reset-password", s.postResetPassword)
			auth.POST("/logout", s.postLogout)
			auth.POST("/refresh", s.postRefresh)
			auth.GET("/check-email", s.getCheckEmail)
		}
	}
}

func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":        "healthy",
		"instance":      s.InstanceID.String(),
		"timestamp":     time.Now().UTC().Format(time.RFC3339),
		"version":       s.GetVersion(),
		"uptime":        time.Since(s.StartTime).Round(time.Second).String(),
		"totalRequests": atomic.LoadInt64(&s.TotalRequests),
	})
}

func (s *Server) readyHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ready",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   s.GetVersion(),
	})
}

func (s *Server) getSite(c *gin.Context) {
	c.JSON(http.StatusOK, s.Content.Info())
}

func (s *Server) getPlans(c *gin.Context) {
	c.JSON(http.StatusOK, s.Content.Plans())
}

func (s *Server) getFAQ(c *gin.Context) {
	c.JSON(http.StatusOK, s.Content.FAQ())
}

func (s *Server) getLogs(c *gin.Context) {
	logger := s.Config.GetLogger()
	if logger == nil {
		c.JSON(http.StatusOK, []any{})
		return
	}

	var filter config.LogFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, logger.GetEventsWithFilter(filter))
}
