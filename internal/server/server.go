// file: internal/server/server.go
// version: 2.0.0
// guid: 4c5d6e7f-8a9b-0c1d-2e3f-4a5b6c7d8e9f

// Package server exposes a read-only HTTP API over a resolution session:
// catalog listings, search, acoustic neighbors, and Prometheus metrics.
// Nothing here mutates the library; writes happen through the CLI.
package server

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tunevault/tunevault/internal/library"
	"github.com/tunevault/tunevault/internal/model"
	"github.com/tunevault/tunevault/internal/search"
	"github.com/tunevault/tunevault/internal/server/middleware"
	"github.com/tunevault/tunevault/internal/similar"
)

const shutdownGrace = 5 * time.Second

// Options configures the API surface. Search and Similar are optional;
// their endpoints return 503 when absent.
type Options struct {
	Session  *library.Session
	Search   *search.Index
	Similar  *similar.Store
	Username string
	// PasswordHash is a bcrypt hash; empty disables basic auth.
	PasswordHash string
}

// Server is the HTTP API.
type Server struct {
	opts   Options
	engine *gin.Engine
}

// New builds the router. The gin mode is the caller's business; tests set it.
func New(opts Options) *Server {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.BasicAuth(opts.Username, opts.PasswordHash))

	s := &Server{opts: opts, engine: engine}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) registerRoutes() {
	s.engine.GET("/api/health", s.handleHealth)
	s.engine.GET("/api/status", s.handleStatus)
	s.engine.GET("/api/songs", s.handleSongs)
	s.engine.GET("/api/songs/:id", s.handleSong)
	s.engine.GET("/api/songs/:id/similar", s.handleSimilar)
	s.engine.GET("/api/albums", s.handleAlbums)
	s.engine.GET("/api/search", s.handleSearch)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"songs":        s.opts.Session.SongCount(),
		"albums":       len(s.opts.Session.Albums.Cached()),
		"failed_files": s.opts.Session.Failures.Len(),
	})
}

func (s *Server) handleSongs(c *gin.Context) {
	c.JSON(http.StatusOK, s.opts.Session.Songs())
}

func (s *Server) handleSong(c *gin.Context) {
	song := s.songByID(c.Param("id"))
	if song == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "song not found"})
		return
	}
	c.JSON(http.StatusOK, song)
}

func (s *Server) handleAlbums(c *gin.Context) {
	c.JSON(http.StatusOK, s.opts.Session.Albums.Cached())
}

func (s *Server) handleSearch(c *gin.Context) {
	if s.opts.Search == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "search index not configured"})
		return
	}
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing q parameter"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	results, err := s.opts.Search.Search(query, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	type hit struct {
		search.Result
		Song *model.Song `json:"song,omitempty"`
	}
	hits := make([]hit, 0, len(results))
	for _, res := range results {
		hits = append(hits, hit{Result: res, Song: s.songByID(res.SongID)})
	}
	c.JSON(http.StatusOK, hits)
}

func (s *Server) handleSimilar(c *gin.Context) {
	if s.opts.Similar == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "similarity store not configured"})
		return
	}
	song := s.songByID(c.Param("id"))
	if song == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "song not found"})
		return
	}
	n, _ := strconv.Atoi(c.DefaultQuery("n", "10"))

	neighbors, err := s.opts.Similar.Similar(c.Request.Context(), song, n)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, neighbors)
}

func (s *Server) songByID(id string) *model.Song {
	for _, song := range s.opts.Session.Songs() {
		if song.ID == id {
			return song
		}
	}
	return nil
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.engine}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[INFO] API listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
