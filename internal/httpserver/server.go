package httpserver

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/fieldserve/ratecard/internal/audit"
	"github.com/fieldserve/ratecard/internal/feed"
	"github.com/fieldserve/ratecard/internal/model"
	"github.com/fieldserve/ratecard/internal/report"
	"github.com/gin-gonic/gin"
)

// CardStore is the narrow store contract required by the HTTP API.
type CardStore interface {
	model.CardStore
	TotalCardCount() (int64, error)
}

// Options carries the optional collaborators of the HTTP server.
type Options struct {
	// Trail records every mutation when non-nil.
	Trail *audit.Trail
	// Feed and FeedURL enable the dedicated-report refresh fetch.
	Feed    *feed.Client
	FeedURL string
}

// Server provides the rate-card JSON API and the HTML report pages.
type Server struct {
	addr      string
	store     CardStore
	renderer  *report.Renderer
	opts      Options
	server    *http.Server
	ctx       context.Context
	cancel    context.CancelFunc
	startTime time.Time
}

// NewServer creates a new HTTP server for the given store.
func NewServer(addr string, store CardStore, opts Options) *Server {
	if addr == "" {
		addr = "127.0.0.1:3000"
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		addr:     addr,
		store:    store,
		renderer: &report.Renderer{Rows: store.RowsFor},
		opts:     opts,
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/api/health", s.handleHealth)

	r.GET("/api/ratecards", s.handleListCards)
	r.POST("/api/ratecards/create", s.handleCreateCard)
	r.GET("/api/ratecards/:id", s.handleGetCard)
	r.POST("/api/ratecards/:id/update", s.handleUpdateCard)
	r.POST("/api/ratecards/:id/delete", s.handleDeleteCard)

	r.GET("/api/ratecards/:id/rates/:category", s.handleGetRates)
	r.POST("/api/ratecards/:id/rates/:category", s.handleSetRates)
	r.POST("/api/ratecards/:id/rates/:category/delete", s.handleDeleteRates)

	r.POST("/api/audit/export", s.handleAuditExport)

	r.GET("/api/reports/:category", s.handleReportRows)
	r.GET("/reports/:category", s.handleReportPage)

	return r
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	gin.SetMode(gin.ReleaseMode)

	s.server = &http.Server{
		Handler:           s.routes(),
		BaseContext:       func(_ net.Listener) context.Context { return s.ctx },
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}

	s.startTime = time.Now()

	go s.server.Serve(listener)
	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop() error {
	s.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	cardCount, err := s.store.TotalCardCount()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read health metrics"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"uptime":     time.Since(s.startTime).String(),
		"card_count": cardCount,
	})
}
