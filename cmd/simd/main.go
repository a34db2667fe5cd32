package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"collision-pipeline/internal/api"
	"collision-pipeline/internal/collision"
	"collision-pipeline/internal/config"
	"collision-pipeline/internal/debugdraw"
	"collision-pipeline/internal/sim"
	"collision-pipeline/internal/spatial"
	"collision-pipeline/pkg/logger"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load .env before anything reads the environment
	envErr := godotenv.Load(".env")

	logger.Init()
	log := logger.Component("main")

	if envErr != nil {
		log.Info("💡 No .env file found, using environment variables only")
	} else {
		log.Info("✅ Loaded environment from .env")
	}

	cfg := config.Load()

	log.WithFields(logrus.Fields{
		"world":   []int{cfg.World.Width, cfg.World.Height},
		"tile":    cfg.World.TileSize,
		"margin":  cfg.World.Margin,
		"index":   cfg.Index.Kind,
		"tps":     cfg.Engine.TickRate,
		"units":   cfg.Engine.Units,
		"bullets": cfg.Engine.Bullets,
	}).Info("🎮 collision sim starting")

	engine := sim.NewEngine(sim.EngineConfig{
		TickRate: cfg.Engine.TickRate,
		World: collision.World{
			Width:    cfg.World.Width,
			Height:   cfg.World.Height,
			TileSize: cfg.World.TileSize,
			Margin:   cfg.World.Margin,
		},
		Index: spatial.NewFactory[collision.Collidable](spatial.Options{
			Kind:       spatial.Kind(cfg.Index.Kind),
			MaxObjects: cfg.Index.MaxObjects,
			MaxDepth:   cfg.Index.MaxDepth,
			CellSize:   cfg.Index.CellSize,
		}),
		SlowFrame: cfg.Engine.SlowFrame,
		Units:     cfg.Engine.Units,
		Bullets:   cfg.Engine.Bullets,
		Logger:    logrus.NewEntry(logger.Log),
	})

	killLog := logger.Component("sim")
	engine.OnKill = func(u *sim.Unit) {
		killLog.WithFields(logrus.Fields{"unit": u.ID, "team": u.Team}).Debug("unit destroyed")
	}

	engine.Start()

	var server *api.Server
	if cfg.Debug.Enabled {
		server = api.NewServer(engine, debugdraw.NewRenderer(debugdraw.DefaultOptions), api.ServerConfig{
			ListenAddr:    cfg.Debug.ListenAddr,
			BasicAuthUser: cfg.Debug.BasicAuthUser,
			BasicAuthPass: cfg.Debug.BasicAuthPass,
			Logger:        logrus.NewEntry(logger.Log),
		})
		go func() {
			if err := server.Start(); err != nil {
				log.WithError(err).Error("⚠️ debug server stopped")
			}
		}()
	} else {
		log.Info("📊 Debug server disabled")
	}

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info("🛑 Shutting down...")

	if server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := server.Shutdown(ctx); err != nil {
			log.WithError(err).Warn("debug server shutdown")
		}
		cancel()
	}
	engine.Stop()

	hits, kills := engine.Totals()
	log.WithFields(logrus.Fields{
		"ticks": engine.TickCount(),
		"hits":  hits,
		"kills": kills,
	}).Info("👋 Goodbye!")
}
