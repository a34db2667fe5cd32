// Package config provides centralized configuration management.
// Every tunable of the collision daemon is defined here with its default
// and the environment variable that overrides it.
package config

import (
	"os"
	"strconv"
	"time"
)

// =============================================================================
// WORLD CONFIGURATION
// =============================================================================

// WorldConfig describes the simulated area. It is read once when the
// collision index is created.
type WorldConfig struct {
	Width    int     // in tiles
	Height   int     // in tiles
	TileSize float64 // world units per tile
	Margin   float64 // boundary margin around the tiled area
}

// DefaultWorld returns the default world configuration.
func DefaultWorld() WorldConfig {
	return WorldConfig{
		Width:    200,
		Height:   200,
		TileSize: 8,
		Margin:   250, // entities may stray this far outside before being culled
	}
}

// WorldFromEnv returns world configuration with environment variable overrides.
func WorldFromEnv() WorldConfig {
	cfg := DefaultWorld()

	if w := getEnvInt("WORLD_WIDTH", 0); w > 0 {
		cfg.Width = w
	}
	if h := getEnvInt("WORLD_HEIGHT", 0); h > 0 {
		cfg.Height = h
	}
	if ts := getEnvFloat("TILE_SIZE", 0); ts > 0 {
		cfg.TileSize = ts
	}
	if m := getEnvFloat("WORLD_MARGIN", -1); m >= 0 {
		cfg.Margin = m
	}

	return cfg
}

// =============================================================================
// SPATIAL INDEX CONFIGURATION
// =============================================================================

// IndexConfig selects and tunes the broad-phase index.
type IndexConfig struct {
	Kind       string  // "quadtree" or "grid"
	MaxObjects int     // quadtree leaf capacity before split
	MaxDepth   int     // quadtree depth cap
	CellSize   float64 // grid cell edge in world units
}

// DefaultIndex returns the default index configuration.
func DefaultIndex() IndexConfig {
	return IndexConfig{
		Kind:       "quadtree",
		MaxObjects: 5,
		MaxDepth:   8,
		CellSize:   64,
	}
}

// IndexFromEnv returns index configuration with environment variable overrides.
func IndexFromEnv() IndexConfig {
	cfg := DefaultIndex()

	switch k := os.Getenv("INDEX_KIND"); k {
	case "quadtree", "grid":
		cfg.Kind = k
	}
	if v := getEnvInt("QUADTREE_MAX_OBJECTS", 0); v > 0 {
		cfg.MaxObjects = v
	}
	if v := getEnvInt("QUADTREE_MAX_DEPTH", 0); v > 0 {
		cfg.MaxDepth = v
	}
	if v := getEnvFloat("GRID_CELL_SIZE", 0); v > 0 {
		cfg.CellSize = v
	}

	return cfg
}

// =============================================================================
// ENGINE CONFIGURATION
// =============================================================================

// EngineConfig holds the frame loop settings of the reference simulation.
type EngineConfig struct {
	TickRate  int           // frames per second
	SlowFrame time.Duration // compute stage duration logged as slow
	Units     int           // targets spawned at start
	Bullets   int           // movers kept alive (respawned as they expire)
}

// DefaultEngine returns the default engine configuration.
func DefaultEngine() EngineConfig {
	return EngineConfig{
		TickRate:  60,
		SlowFrame: 8 * time.Millisecond, // half a 60 TPS frame
		Units:     400,
		Bullets:   1500,
	}
}

// EngineFromEnv returns engine configuration with environment variable overrides.
func EngineFromEnv() EngineConfig {
	cfg := DefaultEngine()

	if v := getEnvInt("TICK_RATE", 0); v > 0 {
		cfg.TickRate = v
	}
	if v := getEnvInt("SLOW_FRAME_MS", 0); v > 0 {
		cfg.SlowFrame = time.Duration(v) * time.Millisecond
	}
	if v := getEnvInt("SIM_UNITS", -1); v >= 0 {
		cfg.Units = v
	}
	if v := getEnvInt("SIM_BULLETS", -1); v >= 0 {
		cfg.Bullets = v
	}

	return cfg
}

// =============================================================================
// DEBUG SERVER CONFIGURATION
// =============================================================================

// DebugConfig configures the observability server.
type DebugConfig struct {
	Enabled       bool
	ListenAddr    string // keep on localhost in production
	BasicAuthUser string // optional basic auth
	BasicAuthPass string
}

// DefaultDebug returns safe defaults.
func DefaultDebug() DebugConfig {
	return DebugConfig{
		Enabled:    true,
		ListenAddr: "127.0.0.1:6060",
	}
}

// DebugFromEnv returns debug server configuration with environment variable overrides.
func DebugFromEnv() DebugConfig {
	cfg := DefaultDebug()

	if os.Getenv("DISABLE_DEBUG_SERVER") == "true" {
		cfg.Enabled = false
	}
	if v := os.Getenv("DEBUG_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	cfg.BasicAuthUser = os.Getenv("DEBUG_USER")
	cfg.BasicAuthPass = os.Getenv("DEBUG_PASS")

	return cfg
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	World  WorldConfig
	Index  IndexConfig
	Engine EngineConfig
	Debug  DebugConfig
}

// Load returns the complete configuration with environment overrides.
func Load() AppConfig {
	return AppConfig{
		World:  WorldFromEnv(),
		Index:  IndexFromEnv(),
		Engine: EngineFromEnv(),
		Debug:  DebugFromEnv(),
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
