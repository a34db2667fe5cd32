package collision

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"collision-pipeline/internal/spatial"
	"collision-pipeline/pkg/logger"
)

// =============================================================================
// Run with: go test -bench=. -benchmem ./internal/collision/...
// =============================================================================

func BenchmarkFrame_QuadTree_500x500(b *testing.B)   { benchmarkFrame(b, spatial.KindQuadTree, 500, 500) }
func BenchmarkFrame_QuadTree_2000x2000(b *testing.B) { benchmarkFrame(b, spatial.KindQuadTree, 2000, 2000) }
func BenchmarkFrame_Grid_500x500(b *testing.B)       { benchmarkFrame(b, spatial.KindGrid, 500, 500) }
func BenchmarkFrame_Grid_2000x2000(b *testing.B)     { benchmarkFrame(b, spatial.KindGrid, 2000, 2000) }

func benchmarkFrame(b *testing.B, kind spatial.Kind, nTargets, nMovers int) {
	rng := rand.New(rand.NewSource(7))
	size := float64(testWorld.Width) * testWorld.TileSize

	targets := make([]*probe, nTargets)
	for i := range targets {
		targets[i] = newProbe(fmt.Sprintf("t%d", i), rng.Float64()*size, rng.Float64()*size, 16)
	}
	movers := make([]*probe, nMovers)
	for i := range movers {
		x, y := rng.Float64()*size, rng.Float64()*size
		movers[i] = moving(fmt.Sprintf("m%d", i), x, y, x+rng.Float64()*40-20, y+rng.Float64()*40-20, 4)
	}

	p := New(group(targets...), group(movers...), Config{
		Logger: logger.Discard(),
		Index:  spatial.NewFactory[Collidable](spatial.Options{Kind: kind, CellSize: 64}),
	})
	p.Init(testWorld)

	ctx := context.Background()
	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		p.Begin()
		_ = p.Process(ctx)
		// skip End: resolving would grow every probe's hit log
		p.phase.Store(phaseReady)
	}
}

func BenchmarkSweep(b *testing.B) {
	a := Body{VX: 40}
	a.Box.SetCentered(40, 0, 10, 10)
	t := Body{}
	t.Box.SetCentered(15, 0, 10, 10)

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		Sweep(a, t)
	}
}
