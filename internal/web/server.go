package web

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	spotifyauth "github.com/zmb3/spotify/v2/auth"

	"github.com/antigravity/go-spotify-wrapped/internal/analytics"
	"github.com/antigravity/go-spotify-wrapped/internal/db"
	"github.com/antigravity/go-spotify-wrapped/internal/history"
	"github.com/antigravity/go-spotify-wrapped/internal/scrobble"
)

const (
	// DefaultAddr is the default server address.
	DefaultAddr = "127.0.0.1:8080"

	// DefaultRedirectURL must match the Spotify app configuration.
	DefaultRedirectURL = "http://127.0.0.1:8080/callback"

	sessionCleanupInterval = time.Hour
)

// ServerConfig holds server configuration.
type ServerConfig struct {
	Addr         string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Database     *db.DB
	Logger       zerolog.Logger
}

// Server is the HTTP server for the wrapped service.
type Server struct {
	router   chi.Router
	server   *http.Server
	database *db.DB
	log      zerolog.Logger
}

// NewServer creates a new web server.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.RedirectURL == "" {
		cfg.RedirectURL = DefaultRedirectURL
	}

	auth := spotifyauth.New(
		spotifyauth.WithClientID(cfg.ClientID),
		spotifyauth.WithClientSecret(cfg.ClientSecret),
		spotifyauth.WithRedirectURL(cfg.RedirectURL),
		spotifyauth.WithScopes(
			spotifyauth.ScopeUserReadRecentlyPlayed,
			spotifyauth.ScopeUserTopRead,
			spotifyauth.ScopeUserReadEmail,
			spotifyauth.ScopeUserReadPrivate,
			spotifyauth.ScopePlaylistModifyPrivate,
		),
	)

	if cfg.Database == nil {
		return nil, errors.New("database is required")
	}

	sessions := NewSessions(NewPGStore(cfg.Database))
	users := cfg.Database.Users()

	importer := history.NewImporter(cfg.Database.History(), cfg.Logger)
	analyticsSvc := analytics.New(cfg.Database.History())
	scrobbler := scrobble.New(cfg.Database.History(), cfg.Database.Users(),
		scrobble.WithLogger(cfg.Logger))

	authHandlers := NewAuthHandlers(auth, sessions, users, cfg.Logger)
	api := NewAPI(auth, sessions, importer, analyticsSvc, scrobbler, cfg.Logger)

	router := chi.NewRouter()

	s := &Server{
		router:   router,
		database: cfg.Database,
		log:      cfg.Logger,
	}

	s.setupMiddleware()
	s.setupRoutes(authHandlers, api)

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// setupMiddleware configures middleware for the router.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.log))
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
}

// setupRoutes configures routes for the application.
func (s *Server) setupRoutes(auth *AuthHandlers, api *API) {
	// Auth routes
	s.router.Get("/auth/login", auth.Login)
	s.router.Get("/callback", auth.Callback)
	s.router.Post("/auth/logout", auth.Logout)

	// JSON API
	s.router.Route("/api", func(r chi.Router) {
		r.Get("/me", api.Me)

		r.Route("/spotify", func(r chi.Router) {
			r.Get("/now-playing", api.NowPlaying)
			r.Get("/recently-played", api.RecentlyPlayed)
			r.Get("/top-tracks", api.TopTracks)
			r.Get("/top-artists", api.TopArtists)
			r.Get("/recommendations", api.Recommendations)
			r.Post("/create-playlist", api.CreatePlaylist)
		})

		r.Route("/history", func(r chi.Router) {
			r.Post("/import", api.ImportHistory)
			r.Post("/scrobble", api.Scrobble)
		})

		r.Get("/analytics", api.Analytics)
		r.Get("/wrapped", api.Wrapped)
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("starting server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Run starts the server and handles graceful shutdown on interrupt signals.
func (s *Server) Run() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		if err := s.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	cleanupCtx, cancelCleanup := context.WithCancel(context.Background())
	defer cancelCleanup()
	go s.cleanupSessions(cleanupCtx)

	select {
	case err := <-errCh:
		return err
	case <-stop:
		s.log.Info().Msg("shutting down server")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.Shutdown(ctx); err != nil {
		return err
	}

	s.log.Info().Msg("server stopped")
	return nil
}

// cleanupSessions periodically removes expired sessions.
func (s *Server) cleanupSessions(ctx context.Context) {
	ticker := time.NewTicker(sessionCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := s.database.Sessions().DeleteExpired(ctx)
			if err != nil {
				s.log.Warn().Err(err).Msg("cleaning up expired sessions")
				continue
			}
			if deleted > 0 {
				s.log.Debug().Int64("deleted", deleted).Msg("expired sessions removed")
			}
		}
	}
}
