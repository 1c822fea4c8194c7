package sim

import (
	"errors"
	"time"

	"quarry/engine/catalog"
	"quarry/engine/internal/world"
)

var (
	// ErrMissingGrid indicates NewEngine was invoked without a grid.
	ErrMissingGrid = errors.New("sim: grid is nil")
	// ErrMissingEngineCore indicates the engine core could not be built.
	ErrMissingEngineCore = errors.New("sim: engine core is nil")
)

const (
	defaultKeyframeInterval = 30
	defaultKeyframeCapacity = 64
	defaultKeyframeMaxAge   = time.Minute
)

// EngineOption configures NewEngine behaviour.
//
// Options are applied in order; later options override earlier ones.
type EngineOption interface {
	apply(*engineConfig)
}

type engineOptionFunc func(*engineConfig)

func (f engineOptionFunc) apply(cfg *engineConfig) {
	if f != nil {
		f(cfg)
	}
}

// EngineLoopHooks describes the loop orchestration callbacks exposed by
// NewEngine. It mirrors LoopHooks so callers can customise tick sequencing
// and telemetry fan-out without importing the loop internals.
type EngineLoopHooks struct {
	LoopHooks
}

// EngineJournalHooks exposes callbacks triggered when the engine interacts
// with the underlying journal.
type EngineJournalHooks struct {
	// OnRecord is invoked after the engine persists a keyframe, whether the
	// recording was scheduled, hinted, or requested explicitly. The callback
	// receives the recorded frame and the journal response so callers can
	// emit telemetry without peeking into engine internals.
	OnRecord func(Keyframe, KeyframeRecordResult)
}

// engineConfig captures the aggregated option state after applying all
// EngineOption values.
type engineConfig struct {
	deps             Deps
	loopConfig       LoopConfig
	loopHooks        EngineLoopHooks
	journalHooks     EngineJournalHooks
	catalog          *catalog.Resolver
	keyframeInterval uint64
	journalCapacity  int
	journalMaxAge    time.Duration
}

// WithDeps injects shared infrastructure dependencies used by the engine core
// and loop orchestration.
func WithDeps(deps Deps) EngineOption {
	return engineOptionFunc(func(cfg *engineConfig) {
		cfg.deps = deps
	})
}

// WithLoopConfig overrides the default command queue and tick loop sizing
// used by the engine.
func WithLoopConfig(config LoopConfig) EngineOption {
	return engineOptionFunc(func(cfg *engineConfig) {
		cfg.loopConfig = config
	})
}

// WithLoopHooks supplies custom loop callbacks.
func WithLoopHooks(hooks EngineLoopHooks) EngineOption {
	return engineOptionFunc(func(cfg *engineConfig) {
		cfg.loopHooks = hooks
	})
}

// WithJournalHooks registers callbacks to observe journal activity produced
// by the engine.
func WithJournalHooks(hooks EngineJournalHooks) EngineOption {
	return engineOptionFunc(func(cfg *engineConfig) {
		cfg.journalHooks = hooks
	})
}

// WithCatalog supplies the block definition catalog consulted for drops,
// immutability, and physics flags. Without one the engine falls back to
// built-in bedrock and gravel behaviour.
func WithCatalog(defs *catalog.Resolver) EngineOption {
	return engineOptionFunc(func(cfg *engineConfig) {
		cfg.catalog = defs
	})
}

// WithKeyframeInterval overrides the scheduled keyframe cadence in ticks.
// Zero disables scheduled keyframes; hinted and explicit recordings still
// run.
func WithKeyframeInterval(ticks uint64) EngineOption {
	return engineOptionFunc(func(cfg *engineConfig) {
		cfg.keyframeInterval = ticks
	})
}

// WithJournalRetention overrides the keyframe ring sizing. A zero capacity
// disables keyframe retention entirely.
func WithJournalRetention(capacity int, maxAge time.Duration) EngineOption {
	return engineOptionFunc(func(cfg *engineConfig) {
		cfg.journalCapacity = capacity
		cfg.journalMaxAge = maxAge
	})
}

// NewEngine constructs the engine loop backed by the provided grid and
// configures the core, queue, and journaling hooks described by the supplied
// options. The returned loop satisfies Engine for callers that only consume
// the stepping surface.
func NewEngine(grid *world.Grid, opts ...EngineOption) (*Loop, error) {
	if grid == nil {
		return nil, ErrMissingGrid
	}

	cfg := engineConfig{
		keyframeInterval: defaultKeyframeInterval,
		journalCapacity:  defaultKeyframeCapacity,
		journalMaxAge:    defaultKeyframeMaxAge,
	}
	for _, opt := range opts {
		if opt != nil {
			opt.apply(&cfg)
		}
	}

	// Keyframes are recorded from inside Step as well as on demand, so the
	// journal hook threads into the core instead of wrapping it.
	core, err := NewCore(grid, cfg.deps, CoreConfig{
		Catalog:          cfg.catalog,
		KeyframeInterval: cfg.keyframeInterval,
		JournalCapacity:  cfg.journalCapacity,
		JournalMaxAge:    cfg.journalMaxAge,
		OnKeyframe:       cfg.journalHooks.OnRecord,
	})
	if err != nil {
		return nil, err
	}
	if core == nil {
		return nil, ErrMissingEngineCore
	}

	engine := NewLoop(core, cfg.loopConfig, cfg.loopHooks.LoopHooks)
	if engine == nil {
		return nil, ErrMissingEngineCore
	}

	return engine, nil
}
