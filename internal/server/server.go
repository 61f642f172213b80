// Package server is the liveness and inspection HTTP server that runs next
// to the bot.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/byAyes/wbot/internal/core/jobs"
	"github.com/byAyes/wbot/internal/core/version"
)

// Response is the standard API response structure
type Response struct {
	Code    int         `json:"code"`
	Data    interface{} `json:"data"`
	Message string      `json:"message"`
}

// Server is the HTTP server for wbot
type Server struct {
	port    int
	apiKey  string
	queue   *jobs.Queue
	started time.Time
	server  *http.Server
	engine  *gin.Engine
}

// NewServer creates the server and its routes. queue may be nil, in which
// case the job routes report an empty list.
func NewServer(port int, apiKey string, queue *jobs.Queue) *Server {
	s := &Server{
		port:    port,
		apiKey:  apiKey,
		queue:   queue,
		started: time.Now(),
	}

	s.engine = gin.New()
	s.engine.Use(gin.Recovery())
	s.engine.Use(s.loggingMiddleware())
	if s.apiKey != "" {
		s.engine.Use(s.authMiddleware())
	}

	s.engine.GET("/", s.handleHealth)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := s.engine.Group("/api")
	api.GET("/health", s.handleHealth)
	api.GET("/jobs", s.handleGetJobs)
	api.GET("/jobs/:id", s.handleGetJob)
	api.DELETE("/jobs", s.handleClearJobs)
	api.DELETE("/jobs/:id", s.handleDeleteJob)

	s.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, Response{
			Code:    404,
			Data:    nil,
			Message: "not found",
		})
	})

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.engine,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start serves until Stop. It returns nil after a graceful stop, including
// a Stop that happened before Start.
func (s *Server) Start() error {
	log.Info().Str("component", "server").Int("port", s.port).Bool("auth", s.apiKey != "").Msg("🟢 HTTP server listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the server
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Middleware

func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if path != "/api/jobs" && !strings.HasPrefix(path, "/api/jobs/") {
			c.Next()
			return
		}

		if c.GetHeader("X-API-Key") != s.apiKey {
			c.JSON(http.StatusUnauthorized, Response{
				Code:    401,
				Data:    nil,
				Message: "invalid or missing API key",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug().
			Str("component", "server").
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("took", time.Since(start)).
			Msg("request")
	}
}

// Handlers

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Code: 200,
		Data: gin.H{
			"status":  "ok",
			"version": version.Version,
			"uptime":  time.Since(s.started).Round(time.Second).String(),
		},
		Message: "everything is good",
	})
}

func (s *Server) handleGetJobs(c *gin.Context) {
	var list []*jobs.Job
	if s.queue != nil {
		list = s.queue.List()
	}

	jobList := make([]gin.H, len(list))
	for i, job := range list {
		jobList[i] = jobJSON(job)
	}

	c.JSON(http.StatusOK, Response{
		Code: 200,
		Data: gin.H{
			"jobs": jobList,
		},
		Message: fmt.Sprintf("%d jobs found", len(list)),
	})
}

func (s *Server) handleGetJob(c *gin.Context) {
	id := c.Param("id")

	var job *jobs.Job
	if s.queue != nil {
		job = s.queue.Get(id)
	}
	if job == nil {
		c.JSON(http.StatusNotFound, Response{
			Code:    404,
			Data:    nil,
			Message: "job not found",
		})
		return
	}

	c.JSON(http.StatusOK, Response{
		Code:    200,
		Data:    jobJSON(job),
		Message: string(job.Status),
	})
}

func (s *Server) handleClearJobs(c *gin.Context) {
	count := 0
	if s.queue != nil {
		count = s.queue.ClearHistory()
	}
	c.JSON(http.StatusOK, Response{
		Code: 200,
		Data: gin.H{
			"cleared": count,
		},
		Message: fmt.Sprintf("%d jobs cleared", count),
	})
}

func (s *Server) handleDeleteJob(c *gin.Context) {
	id := c.Param("id")

	switch {
	case s.queue != nil && s.queue.Cancel(id):
		c.JSON(http.StatusOK, Response{
			Code:    200,
			Data:    gin.H{"id": id},
			Message: "job cancelled",
		})
	case s.queue != nil && s.queue.Remove(id):
		c.JSON(http.StatusOK, Response{
			Code:    200,
			Data:    gin.H{"id": id},
			Message: "job removed",
		})
	default:
		c.JSON(http.StatusNotFound, Response{
			Code:    404,
			Data:    nil,
			Message: "job not found or cannot be cancelled/removed",
		})
	}
}

func jobJSON(job *jobs.Job) gin.H {
	return gin.H{
		"id":         job.ID,
		"source":     job.Source,
		"kind":       job.Kind,
		"status":     job.Status,
		"error":      job.Error,
		"created_at": job.CreatedAt,
		"updated_at": job.UpdatedAt,
	}
}
