package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/voyagen/popcornview/internal/cache"
	"github.com/voyagen/popcornview/internal/config"
	"github.com/voyagen/popcornview/internal/httpclient"
	"github.com/voyagen/popcornview/internal/logger"
	"github.com/voyagen/popcornview/internal/metrics"
	"github.com/voyagen/popcornview/internal/models"
	"github.com/voyagen/popcornview/internal/playback"
	"github.com/voyagen/popcornview/internal/service"
	"github.com/voyagen/popcornview/internal/session"
	"github.com/voyagen/popcornview/internal/store"
	"github.com/voyagen/popcornview/internal/xtream"
)

// Server is the HTTP API server.
type Server struct {
	cfg      *config.Config
	hidden   store.Visibility
	redis    *cache.Redis
	upstream *http.Client
	streams  *http.Client

	sessions *session.Manager
	tokens   *session.Tokens
	listers  *service.Listers
	playback *playback.Registry

	router chi.Router
}

// New creates a Server. redis may be nil; upstream is the client used for
// Xtream API calls and, without its timeout, for playback.
func New(cfg *config.Config, hidden store.Visibility, redis *cache.Redis, upstream *http.Client) *Server {
	s := &Server{
		cfg:      cfg,
		hidden:   hidden,
		redis:    redis,
		upstream: upstream,
		streams:  httpclient.Streaming(upstream),
		sessions: session.NewManager(cfg.SessionTTL),
		tokens:   session.NewTokens(cfg.SessionSecret, cfg.SessionTTL),
		playback: playback.NewRegistry(cfg.PlaybackIdleTTL),
	}
	s.listers = service.NewListers(hidden, s.source, cfg.SessionTTL)
	s.sessions.OnEnd(s.endSession)
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer, withCORS, withLogging)

	r.Get("/api/health", s.handleHealth)
	r.Handle("/metrics", metrics.Handler())
	r.Get("/api/docs", s.handleSwaggerUI)
	r.Get("/api/docs/openapi.yaml", s.handleOpenAPISpec)
	r.Post("/api/login", s.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(s.requireSession)

		r.Post("/api/logout", s.handleLogout)
		r.Get("/api/account", s.handleAccount)

		// Listing routes are static per kind alias so that they win over
		// the {id} routes below.
		for _, alias := range []string{"live", "tv", "movie", "movies", "vod", "series"} {
			kind, _ := models.ParseKind(alias)
			r.Get("/api/"+alias+"/categories", s.handleCategories(kind))
			r.Get("/api/"+alias+"/items", s.handleItems(kind))
			r.Get("/api/"+alias+"/{id}/url", s.handleStreamURL(kind))
		}
		r.Get("/api/series/{id}", s.handleSeriesDetail)
		r.Get("/api/live/{id}/epg", s.handleEPG)
		r.Get("/api/epg/xmltv", s.handleXMLTV)

		r.Get("/api/play/{kind}/{id}", s.handlePlay)
		r.Get("/api/playbacks", s.handleListPlaybacks)
		r.Delete("/api/playbacks/{id}", s.handleStopPlayback)

		r.Get("/api/profile/categories/{kind}", s.handleProfileCategories)
		r.Put("/api/profile/categories/{kind}/{id}", s.handleSetVisibility)

		r.Get("/api/playlist.m3u", s.handleExport)
	})
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe starts the HTTP server and the playback reaper and blocks
// until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if err := s.playback.StartReaper(""); err != nil {
		return err
	}

	addr := ":" + s.cfg.ServerPort
	srv := &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		s.playback.Shutdown()
		return err
	case <-ctx.Done():
		logger.Infof("shutting down server...")
		// Playback relays never finish on their own; close them first so
		// Shutdown is not left waiting on live streams.
		s.playback.Shutdown()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// client returns the Xtream client of a session.
func (s *Server) client(sess session.Session) *xtream.Client {
	return xtream.FromAccount(sess.Account, s.upstream)
}

// source is the listing source of a session, behind Redis when configured.
func (s *Server) source(sess session.Session) service.Source {
	var src service.Source = s.client(sess)
	if s.redis != nil {
		src = service.NewCachedSource(src, s.redis, sess.AccountKey(), service.DefaultSourceTTL)
	}
	return src
}

// endSession releases everything a session owned. It runs on logout and on
// expiry.
func (s *Server) endSession(sess session.Session) {
	n := s.playback.CloseSession(sess.ID)
	s.listers.Drop(sess.ID)
	logger.Debugf("session %s ended, closed %d playbacks", sess.ID, n)
}

type healthResponse struct {
	Status    string `json:"status"`
	Store     string `json:"store"`
	Redis     string `json:"redis"`
	Sessions  int    `json:"sessions"`
	Playbacks int    `json:"playbacks"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:    "ok",
		Store:     s.cfg.StoreDriver,
		Redis:     "disabled",
		Sessions:  s.sessions.Count(),
		Playbacks: s.playback.Len(),
	}
	if s.redis != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		resp.Redis = "ok"
		if err := s.redis.Ping(ctx); err != nil {
			resp.Redis = "error"
			resp.Status = "degraded"
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
