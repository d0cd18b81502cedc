// Package server exposes the analyzer, the store and speech synthesis as a
// JSON API for a web front end.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"codeberg.org/snonux/kotoba/internal/analyzer"
	"codeberg.org/snonux/kotoba/internal/audio"
	"codeberg.org/snonux/kotoba/internal/store"
)

// DefaultAddr is the listen address used when none is configured
const DefaultAddr = ":8080"

// MaxUploadSize limits request bodies, images included
const MaxUploadSize = 20 << 20

// Config holds the server dependencies
type Config struct {
	Analyzer analyzer.Analyzer
	Store    *store.Store

	// Synthesizer is optional; without it /api/speech answers 503
	Synthesizer audio.Synthesizer
	Cache       *audio.Cache

	// AllowOrigins lists the CORS origins. Empty allows every origin.
	AllowOrigins []string

	// RateLimit caps model requests (analysis and speech) per second.
	// Zero disables the limit.
	RateLimit float64
	Burst     int

	// Logger receives request logs. Nil keeps the server silent.
	Logger *log.Logger
}

// Server is the HTTP API
type Server struct {
	analyzer analyzer.Analyzer
	store    *store.Store
	synth    audio.Synthesizer
	cache    *audio.Cache
	logger   *log.Logger
	limiter  *rate.Limiter
	engine   *gin.Engine
}

// New creates a server with all routes registered
func New(cfg Config) (*Server, error) {
	if cfg.Analyzer == nil {
		return nil, errors.New("server needs an analyzer")
	}
	if cfg.Store == nil {
		return nil, errors.New("server needs a store")
	}
	if cfg.Cache == nil {
		cfg.Cache = audio.NewCache()
	}

	s := &Server{
		analyzer: cfg.Analyzer,
		store:    cfg.Store,
		synth:    cfg.Synthesizer,
		cache:    cfg.Cache,
		logger:   cfg.Logger,
	}
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	if s.logger != nil {
		r.Use(gin.LoggerWithWriter(s.logger.Writer()))
	}
	r.Use(cors.New(corsConfig(cfg.AllowOrigins)))
	r.Use(limitBody(MaxUploadSize))

	s.routes(r)
	s.engine = r
	return s, nil
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type"},
		ExposeHeaders: []string{"Content-Length", "Content-Disposition"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
	}
	return c
}

func limitBody(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		c.Next()
	}
}

// throttle rejects model requests over the configured rate with 429
func (s *Server) throttle(c *gin.Context) {
	if s.limiter != nil && !s.limiter.Allow() {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests, please slow down."})
		return
	}
	c.Next()
}

func (s *Server) routes(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "analyzer": s.analyzer.Name()})
	})

	api := r.Group("/api")
	{
		api.POST("/analyze", s.throttle, s.analyze)
		api.POST("/flashcards", s.flashcards)
		api.POST("/statistics", s.statistics)
		api.POST("/speech", s.throttle, s.speech)
	}

	analyses := api.Group("/analyses")
	{
		analyses.GET("", s.listAnalyses)
		analyses.POST("", s.saveAnalysis)
		analyses.GET("/:id", s.getAnalysis)
		analyses.DELETE("/:id", s.deleteAnalysis)
	}

	decks := api.Group("/decks")
	{
		decks.GET("", s.listDecks)
		decks.DELETE("/:id", s.deleteDeck)
		decks.DELETE("/:id/cards/:cardId", s.deleteCard)
	}
	api.POST("/words/toggle", s.toggleWord)
	api.POST("/sentences/toggle", s.toggleSentence)

	dismissed := api.Group("/dismissed")
	{
		dismissed.GET("", s.listDismissed)
		dismissed.POST("", s.dismiss)
		dismissed.DELETE("", s.restore)
	}

	api.GET("/export", s.export)
	api.POST("/import", s.importBackup)
}

// Handler returns the HTTP handler of the server
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is canceled, then shuts down gracefully
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logf("Server listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	s.logf("Server stopped")
	return nil
}

func (s *Server) logf(format string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
	}
}
