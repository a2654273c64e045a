package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"live-dashboard/src/interfaces"
	"live-dashboard/src/logger"
	"live-dashboard/src/models"

	"github.com/gin-gonic/gin"
)

// -----------------------------------------------------------------------------
// APIServer exposes the dashboard over HTTP and hosts the viewer hub.
// -----------------------------------------------------------------------------

type APIServer struct {
	Config    *models.MConfig
	Logger    *logger.Logger
	Dashboard interfaces.IDashboard
	Exporter  interfaces.IExporter // optional
	Hub       *Hub

	engine *gin.Engine
	http   *http.Server
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewAPIServer(cfg *models.MConfig, dashboard interfaces.IDashboard, hub *Hub, exporter interfaces.IExporter, log *logger.Logger) *APIServer {
	if strings.ToUpper(cfg.LogLevel) != "DEBUG" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &APIServer{
		Config:    cfg,
		Logger:    log,
		Dashboard: dashboard,
		Exporter:  exporter,
		Hub:       hub,
		engine:    gin.New(),
	}
	s.engine.Use(gin.Recovery())

	// Add CORS Middleware
	s.engine.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if strings.HasPrefix(origin, "http://127.0.0.1:") || strings.HasPrefix(origin, "http://localhost:") {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	s.setupRoutes()
	return s
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *APIServer) setupRoutes() {
	api := s.engine.Group("/api")
	api.GET("/health", s.getHealth)
	api.GET("/snapshot", s.getSnapshot)
	api.GET("/statistics", s.getStatistics)
	api.GET("/categories", s.getCategories)
	api.GET("/views", s.getViews)
	api.GET("/views/:name", s.getView)
	api.GET("/filter", s.getFilter)
	api.POST("/filter", s.postFilter)
	api.POST("/refresh", s.postRefresh)
	api.POST("/resync", s.postResync)
	api.POST("/export", s.postExport)

	s.engine.GET("/ws", s.Hub.handleWebSocket)
}

// Handler returns the router, mainly for tests.
func (s *APIServer) Handler() http.Handler {
	return s.engine
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *APIServer) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.Config.Host, s.Config.Port)
	s.http = &http.Server{Addr: addr, Handler: s.engine}
	s.Logger.Info("Starting server on %s", addr)

	errCh := make(chan error, 1)
	go func() { errCh <- s.http.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := s.http.Shutdown(shutdownCtx)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// -----------------------------------------------------------------------------
// Route Handlers
// -----------------------------------------------------------------------------

func (s *APIServer) getHealth(c *gin.Context) {
	stats := s.Dashboard.Statistics()
	var latest int64
	if !stats.ComputedAt.IsZero() {
		latest = stats.ComputedAt.Unix()
	}

	push := s.Dashboard.Status()
	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"connections":    s.Hub.Connections(c.Request.Context()),
		"push_connected": push.Connected,
		"push_attempts":  push.Attempts,
		"cache":          s.Dashboard.CacheStats(),
		"latest_update":  latest,
	})
}

// -----------------------------------------------------------------------------

func (s *APIServer) getSnapshot(c *gin.Context) {
	category := c.Query("category")
	points := s.Dashboard.Points(category)
	c.JSON(http.StatusOK, gin.H{
		"category": category,
		"count":    len(points),
		"points":   points,
	})
}

func (s *APIServer) getStatistics(c *gin.Context) {
	c.JSON(http.StatusOK, s.Dashboard.Statistics())
}

func (s *APIServer) getCategories(c *gin.Context) {
	c.JSON(http.StatusOK, s.Dashboard.Categories())
}

// -----------------------------------------------------------------------------

func (s *APIServer) getViews(c *gin.Context) {
	c.JSON(http.StatusOK, s.Dashboard.Views())
}

func (s *APIServer) getView(c *gin.Context) {
	name := c.Param("name")
	view, ok := s.Dashboard.View(name)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("view %q not rendered", name)})
		return
	}
	c.JSON(http.StatusOK, view)
}

// -----------------------------------------------------------------------------

func (s *APIServer) getFilter(c *gin.Context) {
	c.JSON(http.StatusOK, s.Dashboard.Filter())
}

func (s *APIServer) postFilter(c *gin.Context) {
	var filter models.MFilterState
	if err := c.ShouldBindJSON(&filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.Dashboard.SetFilter(filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, filter.WithDefaults())
}

func (s *APIServer) postRefresh(c *gin.Context) {
	s.Dashboard.Refresh()
	c.JSON(http.StatusAccepted, gin.H{"status": "refreshing"})
}

// postResync reloads the cache from the source's recent points.
func (s *APIServer) postResync(c *gin.Context) {
	s.Dashboard.Resync()
	c.JSON(http.StatusAccepted, gin.H{"status": "resyncing"})
}

// -----------------------------------------------------------------------------

func (s *APIServer) postExport(c *gin.Context) {
	if s.Exporter == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "export is not configured"})
		return
	}

	files, err := s.Exporter.Export()
	if err != nil && len(files) == 0 {
		s.Logger.Error("Export failed: %v", err)
		s.Hub.Notify(models.LevelError, "Error exporting charts")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		s.Logger.Warning("Export incomplete: %v", err)
		s.Hub.Notify(models.LevelWarning, "Some charts could not be exported")
		c.JSON(http.StatusOK, gin.H{"files": files, "error": err.Error()})
		return
	}

	s.Hub.Notify(models.LevelSuccess, "Charts exported successfully")
	c.JSON(http.StatusOK, gin.H{"files": files})
}
