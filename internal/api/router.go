package api

import (
	"io"

	"collision-pipeline/internal/collision"
	"collision-pipeline/internal/geom"
	"collision-pipeline/internal/sim"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"
)

// Engine is the part of the simulation the debug server reads and pokes.
// *sim.Engine implements it; tests use a stub.
type Engine interface {
	Snapshot(dst *sim.FrameSnapshot) bool
	Stats() collision.FrameStats
	Counts() (units, bullets int)
	Totals() (hits, kills int)
	TickCount() uint64
	Bounds() geom.Rect
	SpawnUnit(team int, x, y float64) *sim.Unit
	SpawnBullet(team int, x, y, tx, ty, speed float64) *sim.Bullet
}

// Renderer draws a frame as PNG. *debugdraw.Renderer implements it.
type Renderer interface {
	WritePNG(w io.Writer, snap *sim.FrameSnapshot) error
}

// DefaultCORSOrigins allows local dashboards on any port.
var DefaultCORSOrigins = []string{
	"http://localhost:*",
	"http://127.0.0.1:*",
}

// RouterConfig contains all dependencies needed to construct the HTTP router.
//
// Example usage in tests:
//
//	router := api.NewRouter(api.RouterConfig{
//	    Engine: stub,
//	    RateLimitConfig: &api.RateLimitConfig{
//	        RequestsPerSecond: 1000, // High limit for tests
//	        Burst:             1000,
//	    },
//	})
//	ts := httptest.NewServer(router)
type RouterConfig struct {
	// Engine is the simulation (required)
	Engine Engine

	// Renderer serves /api/frame.png when set.
	Renderer Renderer

	// RateLimiter is an optional pre-configured rate limiter. The caller
	// owns it and must Stop it. If nil, the router builds one from
	// RateLimitConfig that prunes inline and runs no goroutine.
	RateLimiter *IPRateLimiter

	// RateLimitConfig is only used if RateLimiter is nil.
	RateLimitConfig *RateLimitConfig

	// CORSOrigins defaults to DefaultCORSOrigins.
	CORSOrigins []string

	// Optional basic auth on everything but /health.
	BasicAuthUser string
	BasicAuthPass string

	// Logger receives request logs at debug level. Nil disables them.
	Logger *logrus.Entry
}

type handlers struct {
	engine   Engine
	renderer Renderer
	log      *logrus.Entry
}

// NewRouter constructs the HTTP router with all middleware and routes.
// It starts no goroutines, so it is safe to use with httptest.NewServer.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware - Order matters!
	r.Use(middleware.RequestID)
	r.Use(instrument(cfg.Logger))
	r.Use(middleware.Recoverer)

	// Rate limiting (BEFORE CORS to reject early and save CPU)
	limiter := cfg.RateLimiter
	if limiter == nil {
		rlCfg := DefaultRateLimitConfig
		if cfg.RateLimitConfig != nil {
			rlCfg = *cfg.RateLimitConfig
		}
		limiter = newInlineIPRateLimiter(rlCfg)
	}
	r.Use(limiter.Middleware)

	origins := cfg.CORSOrigins
	if origins == nil {
		origins = DefaultCORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	log := cfg.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	h := &handlers{
		engine:   cfg.Engine,
		renderer: cfg.Renderer,
		log:      log,
	}

	r.Get("/health", h.handleHealth)

	r.Group(func(r chi.Router) {
		if cfg.BasicAuthUser != "" {
			r.Use(basicAuth(cfg.BasicAuthUser, cfg.BasicAuthPass))
		}

		mountProfiling(r)

		r.Route("/api", func(r chi.Router) {
			r.Get("/stats", h.handleStats)
			r.Get("/frame", h.handleFrame)
			if cfg.Renderer != nil {
				r.Get("/frame.png", h.handleFramePNG)
			}

			r.Post("/spawn/unit", h.handleSpawnUnit)
			r.Post("/spawn/bullet", h.handleSpawnBullet)
		})
	})

	return r
}
