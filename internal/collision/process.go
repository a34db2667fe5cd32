package collision

import (
	"context"
	"sync/atomic"
	"time"

	"collision-pipeline/internal/geom"
	"collision-pipeline/internal/spatial"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// cancelCheckInterval is how many movers are scanned between context checks.
const cancelCheckInterval = 64

// DefaultSlowFrame is the compute duration above which a frame is logged as slow.
const DefaultSlowFrame = 8 * time.Millisecond

// stage of the current frame
const (
	phaseReady     int32 = iota // after Init or End
	phaseSnapshot               // after Begin
	phaseComputing              // Process running
	phaseComputed               // Process finished
)

// Config configures a Process. Zero values pick defaults.
type Config struct {
	// Index builds the broad-phase index at Init. Defaults to a quadtree.
	Index spatial.Factory[Collidable]
	// Logger receives frame timings (debug) and slow frames (warn).
	Logger *logrus.Entry
	// SlowFrame is the compute duration logged as a warning.
	SlowFrame time.Duration
}

// FrameStats describes the last completed frame.
type FrameStats struct {
	Frame        uint64
	Targets      int
	Movers       int
	Candidates   int
	NarrowChecks int
	Pairs        int
	Resolved     int
	Begin        time.Duration
	Process      time.Duration
	End          time.Duration
	Index        spatial.Stats
}

// Process is the collision phase controller. Per frame, in order:
//
//	Begin()      on the main loop, with groups quiescent
//	Process(ctx) on any goroutine, not concurrently with Begin/End
//	End()        on the main loop, after Process returned
//
// The index, snapshot buffers and pair buffer are owned by the Process and
// must not be touched by anything else across a stage boundary.
//
// Every stage is a no-op before Init and after Reset. Stages called out of
// order are ignored and counted.
type Process struct {
	targets Group
	movers  Group

	newIndex  spatial.Factory[Collidable]
	log       *logrus.Entry
	slowFrame time.Duration
	slowLog   *rate.Limiter

	index  spatial.Index[Collidable]
	bounds geom.Rect

	insertEntities []Collidable
	checkEntities  []Collidable
	candidates     []Collidable
	pairs          PairBuffer

	phase atomic.Int32
	stats FrameStats
	frame uint64
}

// New creates a collision process reading targets (inserted into the index)
// and movers (swept against it). Call Init before the first frame.
func New(targets, movers Group, cfg Config) *Process {
	if cfg.Index == nil {
		cfg.Index = spatial.NewFactory[Collidable](spatial.Options{Kind: spatial.KindQuadTree})
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.NewEntry(logrus.StandardLogger())
	}
	if cfg.SlowFrame <= 0 {
		cfg.SlowFrame = DefaultSlowFrame
	}

	return &Process{
		targets:   targets,
		movers:    movers,
		newIndex:  cfg.Index,
		log:       cfg.Logger.WithField("component", "collision"),
		slowFrame: cfg.SlowFrame,
		slowLog:   rate.NewLimiter(rate.Every(time.Second), 1),
	}
}

// Init allocates the spatial index over the world bounds. Any previous
// session state is discarded first.
func (p *Process) Init(w World) {
	p.Reset()

	p.bounds = w.Bounds()
	p.index = p.newIndex(p.bounds)
	p.phase.Store(phaseReady)

	p.log.WithFields(logrus.Fields{
		"bounds": p.bounds,
		"index":  p.index.Stats().Kind,
	}).Info("collision index created")
}

// Initialized reports whether Init has been called since the last Reset.
func (p *Process) Initialized() bool {
	return p.index != nil
}

// Bounds returns the world rectangle covered by the index.
func (p *Process) Bounds() geom.Rect {
	return p.bounds
}

// Begin clears the pair buffer and snapshots both groups. It must run with
// exclusive access to the groups.
func (p *Process) Begin() {
	if p.index == nil {
		return
	}
	if p.phase.Load() == phaseComputing {
		p.violation("begin")
		return
	}

	start := time.Now()

	p.pairs.Reset()

	clear(p.insertEntities)
	clear(p.checkEntities)
	p.insertEntities = p.targets.SnapshotInto(p.insertEntities[:0])
	p.checkEntities = p.movers.SnapshotInto(p.checkEntities[:0])

	p.frame++
	p.stats = FrameStats{
		Frame:   p.frame,
		Targets: len(p.insertEntities),
		Movers:  len(p.checkEntities),
		Begin:   time.Since(start),
	}
	p.phase.Store(phaseSnapshot)

	beginDuration.Observe(p.stats.Begin.Seconds())
	targetGauge.Set(float64(p.stats.Targets))
	moverGauge.Set(float64(p.stats.Movers))
}

// Process rebuilds the index from the target snapshot and sweeps every
// mover against it, filling the pair buffer. It never mutates entities.
//
// If ctx is cancelled the frame's pairs are discarded entirely and
// ctx.Err() is returned; End then has nothing to resolve.
func (p *Process) Process(ctx context.Context) error {
	if p.index == nil {
		return nil
	}
	if !p.phase.CompareAndSwap(phaseSnapshot, phaseComputing) &&
		!p.phase.CompareAndSwap(phaseComputed, phaseComputing) {
		p.violation("process")
		return nil
	}

	start := time.Now()
	p.pairs.Reset()

	var box geom.Rect
	p.index.Clear()
	for _, t := range p.insertEntities {
		t.Hitbox(&box)
		p.index.Insert(t, box)
	}

	var candidates, checks int
	for i, mover := range p.checkEntities {
		if i%cancelCheckInterval == 0 && ctx.Err() != nil {
			return p.discard(ctx.Err())
		}
		if !mover.IsLive() {
			continue
		}

		region := BodyOf(mover).Swept()

		clear(p.candidates)
		p.candidates = p.index.Query(p.candidates[:0], region)
		candidates += len(p.candidates)

		for _, target := range p.candidates {
			target.Hitbox(&box)
			if !region.Overlaps(box) {
				continue
			}

			checks++
			if p.check(mover, target) {
				p.pairs.Add(mover, target)
			}

			// a mover removed mid-scan is not checked against anything else
			if !mover.IsLive() {
				break
			}
		}
	}

	elapsed := time.Since(start)
	p.stats.Candidates = candidates
	p.stats.NarrowChecks = checks
	p.stats.Pairs = p.pairs.Len()
	p.stats.Process = elapsed
	p.stats.Index = p.index.Stats()
	p.phase.Store(phaseComputed)

	processDuration.Observe(elapsed.Seconds())
	candidatesTotal.Add(float64(candidates))
	narrowChecksTotal.Add(float64(checks))
	pairsTotal.Add(float64(p.stats.Pairs))

	p.logFrame(elapsed)
	return nil
}

// check runs the filters and the swept test for one candidate pair.
func (p *Process) check(a, b Collidable) bool {
	if a == b || !a.CollidesWith(b) {
		return false
	}
	_, hit := Sweep(BodyOf(a), BodyOf(b))
	return hit
}

func (p *Process) discard(err error) error {
	p.pairs.Reset()
	p.phase.Store(phaseSnapshot)
	framesDiscarded.Inc()
	p.log.WithError(err).WithField("frame", p.frame).Debug("collision frame discarded")
	return err
}

// End notifies both members of every detected pair. It is the only stage
// that lets entities mutate.
func (p *Process) End() {
	if p.index == nil {
		return
	}
	if !p.phase.CompareAndSwap(phaseComputed, phaseReady) {
		p.violation("end")
		return
	}

	start := time.Now()
	p.stats.Resolved = Resolve(&p.pairs)
	p.stats.End = time.Since(start)

	endDuration.Observe(p.stats.End.Seconds())
}

// Reset discards the index and snapshot buffers. After Reset every stage
// but Init is a no-op. It must not be called while Process is running.
func (p *Process) Reset() {
	p.index = nil
	p.insertEntities = nil
	p.checkEntities = nil
	p.candidates = nil
	p.pairs = PairBuffer{}
	p.stats = FrameStats{}
	p.phase.Store(phaseReady)
}

// Stats returns the statistics of the current or last frame. Call it from
// the goroutine that drives the stages, between stages.
func (p *Process) Stats() FrameStats {
	return p.stats
}

// Pairs appends the current frame's pairs to dst.
func (p *Process) Pairs(dst []Pair) []Pair {
	return p.pairs.CopyTo(dst)
}

// WalkIndex visits the bounds of every index node or cell.
func (p *Process) WalkIndex(fn func(geom.Rect)) {
	if p.index == nil {
		return
	}
	p.index.Walk(fn)
}

func (p *Process) violation(stage string) {
	phaseViolations.WithLabelValues(stage).Inc()
	p.log.WithFields(logrus.Fields{
		"stage": stage,
		"phase": p.phase.Load(),
	}).Debug("collision stage called out of order")
}

func (p *Process) logFrame(elapsed time.Duration) {
	slow := elapsed > p.slowFrame
	if !slow && !p.log.Logger.IsLevelEnabled(logrus.DebugLevel) {
		return
	}

	fields := logrus.Fields{
		"frame":      p.stats.Frame,
		"targets":    p.stats.Targets,
		"movers":     p.stats.Movers,
		"candidates": p.stats.Candidates,
		"pairs":      p.stats.Pairs,
		"elapsed":    elapsed,
	}

	if slow && p.slowLog.Allow() {
		p.log.WithFields(fields).Warn("slow collision frame")
		return
	}
	p.log.WithFields(fields).Debug("collision frame processed")
}
