package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"sort"
	"strconv"
	"time"

	"quarry/engine/catalog"
	"quarry/engine/internal/sim"
	"quarry/engine/internal/telemetry"
	"quarry/engine/internal/world"
	"quarry/engine/logging"
	"quarry/engine/logging/sinks"
)

const (
	defaultDemoActor = "surveyor-1"

	// Journal defaults mirror the engine's own; the env overrides below
	// replace them wholesale rather than patching a single field.
	defaultJournalCapacity = 64
	defaultJournalMaxAge   = time.Minute
)

// Config carries the knobs Run accepts from the caller. Environment
// variables override the corresponding fields so operators can retune a
// deployment without a rebuild.
type Config struct {
	// Logger receives operational output. Defaults to the standard logger.
	Logger telemetry.Logger
	// Seed selects the terrain. Overridden by QUARRY_SEED.
	Seed string
	// Ticks bounds the demonstration run. Overridden by QUARRY_TICKS.
	// Zero means "enough ticks to play the scripted commands".
	Ticks int
}

// Run wires the engine together and plays a short scripted session
// against a generated grid: a handful of placements, a break that sets
// loose material falling, a region fill, a legal blast, and one blast
// that hits bedrock and rolls back. It drains the patch journal each
// tick and finishes with a telemetry summary.
func Run(ctx context.Context, cfg Config) error {
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.WrapLogger(log.Default())
	}

	logConfig := logging.DefaultConfig()
	var namedSinks []logging.NamedSink
	if logConfig.HasSink("console") {
		namedSinks = append(namedSinks, logging.NamedSink{
			Name: "console",
			Sink: sinks.NewConsoleSink(os.Stdout, logConfig.Console),
		})
	}
	router, err := logging.NewRouter(logging.SystemClock{}, logConfig, namedSinks)
	if err != nil {
		return fmt.Errorf("construct logging router: %w", err)
	}
	defer func() {
		if cerr := router.Close(context.Background()); cerr != nil {
			logger.Printf("[app] failed to close logging router: %v", cerr)
		}
	}()

	seed := cfg.Seed
	if raw := os.Getenv("QUARRY_SEED"); raw != "" {
		seed = raw
	}
	if seed == "" {
		seed = world.DefaultSeed
	}

	defs, err := catalog.Load(catalog.DefaultPaths()...)
	if err != nil {
		return fmt.Errorf("load block catalog: %w", err)
	}

	grid := world.NewGrid(world.Config{Seed: seed})
	counters := telemetry.NewCounters()

	opts := []sim.EngineOption{
		sim.WithDeps(sim.Deps{Logger: logger, Metrics: counters, Publisher: router}),
		sim.WithCatalog(defs),
		sim.WithLoopConfig(sim.LoopConfig{CommandCapacity: 64, PerActorLimit: 8, WarningStep: 32}),
	}
	if interval, ok := envUint64(logger, "KEYFRAME_INTERVAL_TICKS"); ok {
		opts = append(opts, sim.WithKeyframeInterval(interval))
	}
	capacity, capacitySet := envInt(logger, "KEYFRAME_JOURNAL_CAPACITY")
	maxAgeMS, maxAgeSet := envInt(logger, "KEYFRAME_JOURNAL_MAX_AGE_MS")
	if capacitySet || maxAgeSet {
		if !capacitySet {
			capacity = defaultJournalCapacity
		}
		maxAge := defaultJournalMaxAge
		if maxAgeSet {
			maxAge = time.Duration(maxAgeMS) * time.Millisecond
		}
		opts = append(opts, sim.WithJournalRetention(capacity, maxAge))
	}

	engine, err := sim.NewEngine(grid, opts...)
	if err != nil {
		return fmt.Errorf("construct engine: %w", err)
	}

	script := demoScript(grid)
	ticks := cfg.Ticks
	if raw, ok := envInt(logger, "QUARRY_TICKS"); ok {
		ticks = raw
	}
	if ticks <= 0 {
		ticks = len(script) + 2
	}

	logger.Printf("[app] starting demo seed=%q ticks=%d commands=%d", seed, ticks, len(script))

	var (
		totalPatches  int
		totalCommands int
	)
	delta := 1.0 / float64(sim.DefaultTickRate)
	for tick := 1; tick <= ticks; tick++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if len(script) > 0 {
			cmd := script[0]
			script = script[1:]
			if ok, reason := engine.Enqueue(cmd); !ok {
				logger.Printf("[app] command rejected kind=%s reason=%s", cmd.Kind, reason)
			}
		}

		result := engine.Advance(sim.LoopTickContext{Tick: uint64(tick), Now: time.Now(), Delta: delta})
		patches := engine.DrainPatches()
		totalPatches += len(patches)
		totalCommands += len(result.Commands)
		logger.Printf("[app] tick=%d commands=%d patches=%d", result.Tick, len(result.Commands), len(patches))
	}

	size, oldest, newest := engine.KeyframeWindow()
	logger.Printf("[app] demo finished commands=%d patches=%d keyframes=%d window=[%d..%d]", totalCommands, totalPatches, size, oldest, newest)

	snapshot := counters.Snapshot()
	keys := make([]string, 0, len(snapshot))
	for key := range snapshot {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		logger.Printf("[app] metric %s=%d", key, snapshot[key])
	}
	return nil
}

// demoScript builds the command sequence against the generated terrain.
// Every run exercises a commit, a drop capture with settling, a region
// fill, and a revert: the final blast clips bedrock and rolls back.
func demoScript(grid *world.Grid) []sim.Command {
	width, _, depth := world.Dimensions(grid.Config())
	surface := surfaceY(grid, 1, 1)
	farX, farZ := width-2, depth-2

	return []sim.Command{
		{Kind: sim.CommandPlace, Actor: defaultDemoActor, Pos: world.BlockPos{X: 1, Y: surface, Z: 1}, Block: world.BlockStone},
		{Kind: sim.CommandBreak, Actor: defaultDemoActor, Pos: world.BlockPos{X: 1, Y: surface - 1, Z: 1}},
		{Kind: sim.CommandFill, Actor: defaultDemoActor, Pos: world.BlockPos{X: farX - 1, Y: surface, Z: farZ - 1}, To: world.BlockPos{X: farX, Y: surface, Z: farZ}, Block: world.BlockDirt},
		{Kind: sim.CommandBlast, Actor: defaultDemoActor, Pos: world.BlockPos{X: farX, Y: surface + 1, Z: farZ}, Radius: 2},
		// Bedrock sits at y=0, so this blast is vetoed and reverted.
		{Kind: sim.CommandBlast, Actor: defaultDemoActor, Pos: world.BlockPos{X: 1, Y: 1, Z: 1}, Radius: 1},
	}
}

// surfaceY finds the first air cell above the terrain in the given column.
func surfaceY(grid *world.Grid, x, z int) int {
	_, height, _ := world.Dimensions(grid.Config())
	for y := height - 1; y > 0; y-- {
		if !grid.BlockAt(world.BlockPos{X: x, Y: y, Z: z}).IsAir() {
			if y+1 < height {
				return y + 1
			}
			return y
		}
	}
	return 1
}

func envInt(logger telemetry.Logger, name string) (int, bool) {
	raw := os.Getenv(name)
	if raw == "" {
		return 0, false
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		logger.Printf("[app] invalid %s=%q: %v", name, raw, err)
		return 0, false
	}
	return value, true
}

func envUint64(logger telemetry.Logger, name string) (uint64, bool) {
	raw := os.Getenv(name)
	if raw == "" {
		return 0, false
	}
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		logger.Printf("[app] invalid %s=%q: %v", name, raw, err)
		return 0, false
	}
	return value, true
}
