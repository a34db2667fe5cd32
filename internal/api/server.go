package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

// ServerConfig configures the debug server.
type ServerConfig struct {
	ListenAddr        string // keep on localhost: pprof is exposed
	BasicAuthUser     string
	BasicAuthPass     string
	CORSOrigins       []string
	BroadcastInterval time.Duration
	Logger            *logrus.Entry
}

// Server is the debug HTTP server: REST endpoints, pprof, metrics and a
// WebSocket stream of frame statistics.
type Server struct {
	cfg         ServerConfig
	engine      Engine
	router      *chi.Mux
	hub         *Hub
	rateLimiter *IPRateLimiter
	http        *http.Server
	log         *logrus.Entry
}

// NewServer builds the server. Nothing runs until Start; use Router with
// httptest to exercise the handlers.
func NewServer(engine Engine, renderer Renderer, cfg ServerConfig) *Server {
	if cfg.Logger == nil {
		cfg.Logger = logrus.NewEntry(logrus.StandardLogger())
	}
	origins := cfg.CORSOrigins
	if origins == nil {
		origins = DefaultCORSOrigins
	}

	s := &Server{
		cfg:         cfg,
		engine:      engine,
		hub:         NewHub(origins, cfg.Logger),
		rateLimiter: NewIPRateLimiter(DefaultRateLimitConfig),
		log:         cfg.Logger.WithField("component", "api"),
	}

	s.router = NewRouter(RouterConfig{
		Engine:        engine,
		Renderer:      renderer,
		RateLimiter:   s.rateLimiter,
		CORSOrigins:   origins,
		BasicAuthUser: cfg.BasicAuthUser,
		BasicAuthPass: cfg.BasicAuthPass,
		Logger:        cfg.Logger,
	})

	// The WebSocket route needs the hub, so it lives outside NewRouter.
	if cfg.BasicAuthUser != "" {
		s.router.With(basicAuth(cfg.BasicAuthUser, cfg.BasicAuthPass)).Get("/ws", s.hub.HandleWebSocket)
	} else {
		s.router.Get("/ws", s.hub.HandleWebSocket)
	}

	s.http = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

// Start listens on the configured address and serves until Shutdown. The
// broadcast loop starts here, not in the constructor.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve is Start on an existing listener.
func (s *Server) Serve(ln net.Listener) error {
	s.hub.StartBroadcastLoop(s.engine, s.cfg.BroadcastInterval)

	s.log.WithField("addr", ln.Addr().String()).Info("debug server listening")
	s.log.Infof("   - stats:   http://%s/api/stats", ln.Addr())
	s.log.Infof("   - pprof:   http://%s/debug/pprof/", ln.Addr())
	s.log.Infof("   - metrics: http://%s/metrics", ln.Addr())

	if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, closes WebSocket clients and stops
// background workers.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Stop()
	s.rateLimiter.Stop()
	return s.http.Shutdown(ctx)
}

// Router returns the HTTP handler for use with httptest.
func (s *Server) Router() http.Handler {
	return s.router
}

// Hub returns the WebSocket hub.
func (s *Server) Hub() *Hub {
	return s.hub
}
