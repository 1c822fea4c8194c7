package sim

import (
	"context"
	"errors"
	"fmt"
	"time"

	"quarry/engine/catalog"
	"quarry/engine/internal/journal"
	"quarry/engine/internal/telemetry"
	"quarry/engine/internal/tracking"
	"quarry/engine/internal/world"
	"quarry/engine/logging"
	"quarry/engine/logging/blocks"
	"quarry/engine/logging/transaction"
)

const (
	captureRecordsMetricKey    = "capture_records_total"
	capturePromotionsMetricKey = "capture_promotions_total"
	frameRevertsMetricKey      = "frame_reverts_total"
)

var (
	// ErrUnknownCommand indicates a staged command used an unrecognized kind.
	ErrUnknownCommand = errors.New("sim: unknown command kind")
	// ErrMissingBlock indicates a place or fill command without a block type.
	ErrMissingBlock = errors.New("sim: command missing block type")
	// ErrInvalidRadius indicates a blast command with a non-positive radius.
	ErrInvalidRadius = errors.New("sim: blast radius must be positive")
	// ErrImmutableBlock indicates a mutation touched a protected block.
	ErrImmutableBlock = errors.New("sim: block is immutable")
)

// CoreConfig carries the tunables consumed by NewCore.
type CoreConfig struct {
	Catalog          *catalog.Resolver
	KeyframeInterval uint64
	JournalCapacity  int
	JournalMaxAge    time.Duration
	OnKeyframe       func(Keyframe, KeyframeRecordResult)
}

// Core advances the grid one tick at a time. Every staged command runs as its
// own tracked transaction: block writes are captured before they land, and a
// rule violation rolls the whole command back in reverse capture order.
type Core struct {
	deps             Deps
	grid             *world.Grid
	defs             *catalog.Resolver
	journal          journal.Journal
	tracker          *tracking.Tracker
	staged           []Command
	tick             uint64
	keyframeSeq      uint64
	keyframeInterval uint64
	onKeyframe       func(Keyframe, KeyframeRecordResult)
}

// NewCore builds an engine core around the provided grid.
func NewCore(grid *world.Grid, deps Deps, cfg CoreConfig) (*Core, error) {
	if grid == nil {
		return nil, ErrMissingGrid
	}
	if deps.RNG == nil {
		deps.RNG = grid.SubsystemRNG("engine")
	}
	core := &Core{
		deps:             deps,
		grid:             grid,
		defs:             cfg.Catalog,
		journal:          journal.New(cfg.JournalCapacity, cfg.JournalMaxAge),
		tracker:          tracking.NewTracker(),
		keyframeInterval: cfg.KeyframeInterval,
		onKeyframe:       cfg.OnKeyframe,
	}
	if deps.Metrics != nil {
		core.journal.AttachTelemetry(journalTelemetry{metrics: deps.Metrics})
	}
	return core, nil
}

// journalTelemetry adapts the shared metrics sink to the journal's drop
// reporting seam.
type journalTelemetry struct {
	metrics telemetry.Metrics
}

func (t journalTelemetry) RecordJournalDrop(metric string) {
	if t.metrics != nil {
		t.metrics.Add(metric, 1)
	}
}

// Deps returns the injected dependencies.
func (c *Core) Deps() Deps {
	if c == nil {
		return Deps{}
	}
	return c.deps
}

// Apply validates the provided commands and stages the valid ones for the
// next Step. Invalid commands are reported and skipped; the valid remainder
// still runs so one malformed intent cannot stall a batch.
func (c *Core) Apply(cmds []Command) error {
	if c == nil || len(cmds) == 0 {
		return nil
	}
	var errs []error
	for _, cmd := range cmds {
		if err := validateCommand(cmd); err != nil {
			c.logf("[sim] rejecting command actor=%s kind=%s: %v", cmd.Actor, cmd.Kind, err)
			errs = append(errs, err)
			continue
		}
		c.staged = append(c.staged, cmd)
	}
	return errors.Join(errs...)
}

func validateCommand(cmd Command) error {
	switch cmd.Kind {
	case CommandPlace, CommandFill:
		if cmd.Block == "" {
			return fmt.Errorf("%w: %s at %v", ErrMissingBlock, cmd.Kind, cmd.Pos)
		}
	case CommandBreak:
	case CommandBlast:
		if cmd.Radius < 1 {
			return fmt.Errorf("%w: got %d", ErrInvalidRadius, cmd.Radius)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Kind)
	}
	return nil
}

// Step advances the simulation one tick: it drains the staged commands, runs
// each as a tracked transaction, then records a keyframe when the schedule or
// the journal's churn hint calls for one.
func (c *Core) Step() {
	if c == nil {
		return
	}
	c.tick++
	now := c.now()
	staged := c.staged
	c.staged = nil
	for _, cmd := range staged {
		c.runCommand(cmd)
	}
	c.maybeRecordKeyframe(now)
}

func (c *Core) runCommand(cmd Command) {
	ctx := context.Background()
	actor := actorRef(cmd.Actor)
	frame := c.tracker.Begin(cmd.Cause(), c.tick)
	transaction.FrameOpened(ctx, c.deps.Publisher, c.tick, actor, transaction.FrameOpenedPayload{
		Cause: frame.Cause().String(),
	}, nil)

	if err := c.mutate(frame, cmd); err != nil {
		c.revertFrame(ctx, frame, cmd, err)
		return
	}
	c.commitFrame(ctx, frame, cmd)
}

func (c *Core) mutate(frame *tracking.Frame, cmd Command) error {
	switch cmd.Kind {
	case CommandPlace:
		_, err := c.writeTracked(frame, cmd.Pos, world.BlockState{Type: cmd.Block})
		return err
	case CommandBreak:
		return c.breakTracked(frame, cmd.Pos)
	case CommandFill:
		lo, hi := world.Span(cmd.Pos, cmd.To)
		for pos := range world.Positions(lo, hi) {
			if _, err := c.writeTracked(frame, pos, world.BlockState{Type: cmd.Block}); err != nil {
				return err
			}
		}
		return nil
	case CommandBlast:
		return c.blastTracked(frame, cmd.Pos, cmd.Radius)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Kind)
	}
}

// writeTracked pushes one state through the grid's write barrier, capturing
// the displaced state in the frame so the command can be rolled back.
func (c *Core) writeTracked(frame *tracking.Frame, pos world.BlockPos, next world.BlockState) (world.BlockSnapshot, error) {
	if !c.grid.InBounds(pos) {
		return world.BlockSnapshot{}, fmt.Errorf("%w: %v", world.ErrOutOfBounds, pos)
	}
	if c.immutable(c.grid.BlockAt(pos)) {
		return world.BlockSnapshot{}, fmt.Errorf("%w: %v", ErrImmutableBlock, pos)
	}
	prior, err := c.grid.SetBlock(pos, next)
	if err != nil {
		return world.BlockSnapshot{}, err
	}
	snap := world.BlockSnapshot{Pos: pos, Prior: prior, Next: next, Tick: c.tick}
	if err := frame.CaptureBlock(pos, snap); err != nil {
		return world.BlockSnapshot{}, err
	}
	return snap, nil
}

func (c *Core) breakTracked(frame *tracking.Frame, pos world.BlockPos) error {
	snap, err := c.writeTracked(frame, pos, world.Air)
	if err != nil {
		return err
	}
	c.spawnDrops(frame, pos, snap.Prior)
	return c.settleColumn(frame, pos)
}

// blastTracked clears every in-bounds block within radius of center. Cells
// outside the grid are skipped rather than failing the blast, but an
// immutable block inside the sphere vetoes the whole command.
func (c *Core) blastTracked(frame *tracking.Frame, center world.BlockPos, radius int) error {
	rr := radius * radius
	for dx := -radius; dx <= radius; dx++ {
		for dy := -radius; dy <= radius; dy++ {
			for dz := -radius; dz <= radius; dz++ {
				if dx*dx+dy*dy+dz*dz > rr {
					continue
				}
				pos := center.Offset(dx, dy, dz)
				if !c.grid.InBounds(pos) {
					continue
				}
				if c.grid.BlockAt(pos).IsAir() {
					continue
				}
				if _, err := c.writeTracked(frame, pos, world.Air); err != nil {
					return err
				}
			}
		}
	}
	return c.settleSphere(frame, center, radius)
}

// spawnDrops captures the catalog drops for a broken state and stages their
// patches immediately. A later revert retracts them through PurgePos, so the
// journal never leaks loot from a rolled-back break.
func (c *Core) spawnDrops(frame *tracking.Frame, pos world.BlockPos, prior world.BlockState) {
	if prior.IsAir() {
		return
	}
	entry, ok := c.defs.Resolve(string(prior.Type))
	if !ok {
		return
	}
	for _, drop := range entry.Drops {
		stack := world.ItemStack{Item: drop.Item, Quantity: drop.Quantity}
		if err := frame.CaptureDrop(pos, stack); err != nil {
			return
		}
		c.journal.AppendPatch(journal.Patch{
			Kind:    journal.PatchDropSpawned,
			Pos:     pos,
			Tick:    c.tick,
			Payload: journal.DropSpawnedPayload{Stack: stack},
		})
	}
}

// settleColumn pulls loose blocks down into a vacated cell, one column pass
// per vacancy. A falling block re-captures the position it lands on, which is
// how a single transaction legitimately touches the same cell twice.
func (c *Core) settleColumn(frame *tracking.Frame, pos world.BlockPos) error {
	for {
		above := pos.Above()
		if !c.grid.InBounds(above) {
			return nil
		}
		state := c.grid.BlockAt(above)
		if !c.falls(state) {
			return nil
		}
		if _, err := c.writeTracked(frame, above, world.Air); err != nil {
			return err
		}
		if _, err := c.writeTracked(frame, pos, state); err != nil {
			return err
		}
		pos = above
	}
}

func (c *Core) settleSphere(frame *tracking.Frame, center world.BlockPos, radius int) error {
	// Settle bottom-up so a column cleared at several heights compacts in a
	// single pass.
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			for dz := -radius; dz <= radius; dz++ {
				pos := center.Offset(dx, dy, dz)
				if !c.grid.InBounds(pos) {
					continue
				}
				if !c.grid.BlockAt(pos).IsAir() {
					continue
				}
				if err := c.settleColumn(frame, pos); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// falls reports whether a state is loose. Designers flag loose blocks through
// the catalog's free-form physics block; without a catalog only gravel falls.
func (c *Core) falls(state world.BlockState) bool {
	if state.IsAir() {
		return false
	}
	entry, ok := c.defs.Resolve(string(state.Type))
	if !ok {
		return c.defs == nil && state.Type == world.BlockGravel
	}
	return entry.Flag("physics", "falls")
}

// immutable reports whether a state rejects writes. Bedrock is always
// protected; the catalog can mark further types.
func (c *Core) immutable(state world.BlockState) bool {
	if state.Type == world.BlockBedrock {
		return true
	}
	entry, ok := c.defs.Resolve(string(state.Type))
	return ok && entry.Immutable
}

func (c *Core) commitFrame(ctx context.Context, frame *tracking.Frame, cmd Command) {
	dropsByPos, dropCount := frameDrops(frame)
	promoted := frame.Promoted()

	committed, err := frame.Commit(func(records []world.BlockSnapshot) {
		for _, snap := range records {
			c.journal.AppendPatch(blockPatch(snap, dropsByPos))
		}
	})
	if err != nil {
		c.logf("[sim] commit failed actor=%s kind=%s: %v", cmd.Actor, cmd.Kind, err)
		return
	}

	c.addMetric(captureRecordsMetricKey, uint64(committed))
	if promoted {
		c.addMetric(capturePromotionsMetricKey, 1)
	}

	actor := actorRef(cmd.Actor)
	blocks.Committed(ctx, c.deps.Publisher, c.tick, actor, blocks.CommittedPayload{
		Kind:     string(cmd.Kind),
		Pos:      cmd.Pos,
		Records:  committed,
		Drops:    dropCount,
		Promoted: promoted,
	}, nil)
	transaction.FrameClosed(ctx, c.deps.Publisher, c.tick, actor, transaction.FrameClosedPayload{
		Cause:   frame.Cause().String(),
		Outcome: frame.Outcome(),
		Records: committed,
	}, nil)
}

func (c *Core) revertFrame(ctx context.Context, frame *tracking.Frame, cmd Command, cause error) {
	undone := frame.Blocks().Get()
	restored, err := frame.Revert(c.grid)
	if err != nil {
		c.logf("[sim] revert failed actor=%s kind=%s: %v", cmd.Actor, cmd.Kind, err)
	}

	// Walk the undone snapshots newest-first to mirror the restoration order,
	// retracting any patches this frame staged at each position before the
	// reverted marker lands.
	for i := len(undone) - 1; i >= 0; i-- {
		snap := undone[i]
		c.journal.PurgePos(snap.Pos)
		c.journal.AppendPatch(journal.Patch{
			Kind: journal.PatchBlockReverted,
			Pos:  snap.Pos,
			Tick: c.tick,
			Payload: journal.BlockRevertedPayload{
				Restored: c.grid.BlockAt(snap.Pos),
				Undone:   snap.Next,
			},
		})
	}

	c.addMetric(frameRevertsMetricKey, 1)
	actor := actorRef(cmd.Actor)
	blocks.Reverted(ctx, c.deps.Publisher, c.tick, actor, blocks.RevertedPayload{
		Kind:     string(cmd.Kind),
		Pos:      cmd.Pos,
		Restored: restored,
		Reason:   cause.Error(),
	}, nil)
	transaction.FrameClosed(ctx, c.deps.Publisher, c.tick, actor, transaction.FrameClosedPayload{
		Cause:   frame.Cause().String(),
		Outcome: frame.Outcome(),
		Records: restored,
	}, nil)
	c.logf("[sim] reverted command actor=%s kind=%s reason=%v", cmd.Actor, cmd.Kind, cause)
}

// frameDrops recovers the position-keyed drops from the frame's capture
// buffer, walking the reverse view backwards so stacks come out in
// first-captured order.
func frameDrops(frame *tracking.Frame) (map[world.BlockPos][]world.ItemStack, int) {
	view := frame.Drops().Reverse()
	if view.Len() == 0 {
		return nil, 0
	}
	byPos := make(map[world.BlockPos][]world.ItemStack)
	count := 0
	for cursor := view.CursorAt(view.Len()); cursor.Previous(); {
		pos := cursor.Location()
		byPos[pos] = append(byPos[pos], cursor.Value())
		count++
	}
	return byPos, count
}

// blockPatch translates one committed snapshot into its journal entry. A
// write that cleared a non-air block and yielded drops is a break; everything
// else is a plain set.
func blockPatch(snap world.BlockSnapshot, dropsByPos map[world.BlockPos][]world.ItemStack) journal.Patch {
	if snap.Next.IsAir() && !snap.Prior.IsAir() {
		if drops, ok := dropsByPos[snap.Pos]; ok {
			return journal.Patch{
				Kind:    journal.PatchBlockBroken,
				Pos:     snap.Pos,
				Tick:    snap.Tick,
				Payload: journal.BlockBrokenPayload{Prior: snap.Prior, Drops: drops},
			}
		}
	}
	return journal.Patch{
		Kind:    journal.PatchBlockSet,
		Pos:     snap.Pos,
		Tick:    snap.Tick,
		Payload: journal.BlockSetPayload{Prior: snap.Prior, Next: snap.Next},
	}
}

func (c *Core) maybeRecordKeyframe(now time.Time) {
	hint, hinted := c.journal.ConsumeKeyframeHint()
	due := c.keyframeInterval > 0 && c.tick%c.keyframeInterval == 0
	if !hinted && !due {
		return
	}
	if hinted {
		c.logf("[journal] keyframe hinted: %s", hint.Summary())
	}
	c.keyframeSeq++
	c.RecordKeyframe(Keyframe{
		Tick:       c.tick,
		Sequence:   c.keyframeSeq,
		Blocks:     c.grid.Blocks(),
		Config:     c.grid.Config(),
		RecordedAt: now,
	})
}

// Snapshot returns the current world state with blocks in canonical order.
func (c *Core) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	return Snapshot{
		Tick:   c.tick,
		Blocks: snapshotBlocks(c.grid.Blocks()),
		Config: c.grid.Config(),
	}
}

// DrainPatches removes and returns the staged journal patches.
func (c *Core) DrainPatches() []Patch {
	if c == nil {
		return nil
	}
	patches := c.journal.DrainPatches()
	if len(patches) > 0 {
		size, _, _ := c.journal.KeyframeWindow()
		transaction.JournalDrained(context.Background(), c.deps.Publisher, c.tick, transaction.JournalDrainedPayload{
			Patches:   len(patches),
			Keyframes: size,
		}, nil)
	}
	return patches
}

// SnapshotPatches returns the staged journal patches without clearing them.
func (c *Core) SnapshotPatches() []Patch {
	if c == nil {
		return nil
	}
	return c.journal.SnapshotPatches()
}

// RestorePatches replaces the staged journal patches.
func (c *Core) RestorePatches(patches []Patch) {
	if c == nil {
		return
	}
	c.journal.RestorePatches(patches)
}

// ConsumeKeyframeHint pops the journal's pending churn hint, if any.
func (c *Core) ConsumeKeyframeHint() (KeyframeSignal, bool) {
	if c == nil {
		return KeyframeSignal{}, false
	}
	return c.journal.ConsumeKeyframeHint()
}

// RecordKeyframe stores a keyframe in the journal ring and reports the
// post-record window.
func (c *Core) RecordKeyframe(frame Keyframe) KeyframeRecordResult {
	if c == nil {
		return KeyframeRecordResult{}
	}
	result := c.journal.RecordKeyframe(frame)
	if c.onKeyframe != nil {
		c.onKeyframe(frame, result)
	}
	return result
}

// KeyframeBySequence retrieves a retained keyframe by sequence number.
func (c *Core) KeyframeBySequence(sequence uint64) (Keyframe, bool) {
	if c == nil {
		return Keyframe{}, false
	}
	return c.journal.KeyframeBySequence(sequence)
}

// KeyframeWindow reports the retained keyframe count and sequence bounds.
func (c *Core) KeyframeWindow() (int, uint64, uint64) {
	if c == nil {
		return 0, 0, 0
	}
	return c.journal.KeyframeWindow()
}

func actorRef(actor string) logging.EntityRef {
	if actor == "" {
		return logging.EntityRef{Kind: logging.EntityKindWorld}
	}
	return logging.EntityRef{ID: actor, Kind: logging.EntityKindActor}
}

func (c *Core) addMetric(key string, delta uint64) {
	if c.deps.Metrics != nil {
		c.deps.Metrics.Add(key, delta)
	}
}

func (c *Core) logf(format string, args ...any) {
	if c.deps.Logger != nil {
		c.deps.Logger.Printf(format, args...)
	}
}

func (c *Core) now() time.Time {
	if c.deps.Clock != nil {
		return c.deps.Clock.Now()
	}
	return logging.SystemClock{}.Now()
}

// Ensure Core satisfies the loop's stepping contract.
var _ EngineCore = (*Core)(nil)
