package sim

import (
	"testing"
	"time"
)

type stubCore struct {
	deps    Deps
	applied [][]Command
	steps   int
}

func (s *stubCore) Apply(cmds []Command) error {
	s.applied = append(s.applied, cmds)
	return nil
}

func (s *stubCore) Step() { s.steps++ }

func (s *stubCore) Snapshot() Snapshot { return Snapshot{Tick: uint64(s.steps)} }

func (s *stubCore) DrainPatches() []Patch    { return nil }
func (s *stubCore) SnapshotPatches() []Patch { return nil }
func (s *stubCore) RestorePatches([]Patch)   {}

func (s *stubCore) ConsumeKeyframeHint() (KeyframeSignal, bool) { return KeyframeSignal{}, false }

func (s *stubCore) KeyframeBySequence(uint64) (Keyframe, bool) { return Keyframe{}, false }
func (s *stubCore) KeyframeWindow() (int, uint64, uint64)      { return 0, 0, 0 }

func (s *stubCore) Deps() Deps { return s.deps }

func (s *stubCore) RecordKeyframe(Keyframe) KeyframeRecordResult { return KeyframeRecordResult{} }

func TestLoopEnqueuePerActorThrottle(t *testing.T) {
	var drops []string
	loop := NewLoop(&stubCore{}, LoopConfig{CommandCapacity: 8, PerActorLimit: 2}, LoopHooks{
		OnCommandDrop: func(reason string, _ Command) { drops = append(drops, reason) },
	})

	for i := 0; i < 2; i++ {
		if ok, reason := loop.Enqueue(Command{Kind: CommandBreak, Actor: "miner-1"}); !ok {
			t.Fatalf("expected enqueue %d to succeed, got %q", i, reason)
		}
	}
	ok, reason := loop.Enqueue(Command{Kind: CommandBreak, Actor: "miner-1"})
	if ok || reason != CommandRejectQueueLimit {
		t.Fatalf("expected per-actor throttle, got ok=%v reason=%q", ok, reason)
	}
	if len(drops) != 1 || drops[0] != CommandRejectQueueLimit {
		t.Fatalf("expected drop hook to observe the throttle, got %v", drops)
	}

	// Other actors are not affected by the throttled one.
	if ok, reason := loop.Enqueue(Command{Kind: CommandBreak, Actor: "miner-2"}); !ok {
		t.Fatalf("expected unrelated actor to enqueue, got %q", reason)
	}

	// Draining resets the per-actor accounting.
	if got := len(loop.DrainCommands()); got != 3 {
		t.Fatalf("expected 3 staged commands, got %d", got)
	}
	if ok, reason := loop.Enqueue(Command{Kind: CommandBreak, Actor: "miner-1"}); !ok {
		t.Fatalf("expected throttle to reset after drain, got %q", reason)
	}
}

func TestLoopEnqueueFullBufferKeepsActorAllowance(t *testing.T) {
	loop := NewLoop(&stubCore{}, LoopConfig{CommandCapacity: 1, PerActorLimit: 2}, LoopHooks{})

	if ok, _ := loop.Enqueue(Command{Kind: CommandBreak, Actor: "miner-1"}); !ok {
		t.Fatalf("expected first enqueue to succeed")
	}
	ok, reason := loop.Enqueue(Command{Kind: CommandBreak, Actor: "miner-1"})
	if ok || reason != CommandRejectQueueFull {
		t.Fatalf("expected saturated buffer rejection, got ok=%v reason=%q", ok, reason)
	}
	// The failed push must not consume the actor's allowance: a third attempt
	// still reports the full buffer, not the per-actor throttle.
	ok, reason = loop.Enqueue(Command{Kind: CommandBreak, Actor: "miner-1"})
	if ok || reason != CommandRejectQueueFull {
		t.Fatalf("expected full buffer again, got ok=%v reason=%q", ok, reason)
	}
}

func TestLoopEnqueueQueueWarning(t *testing.T) {
	var warned []int
	loop := NewLoop(&stubCore{}, LoopConfig{CommandCapacity: 8, WarningStep: 2}, LoopHooks{
		OnQueueWarning: func(length int) { warned = append(warned, length) },
	})

	for i := 0; i < 4; i++ {
		if ok, _ := loop.Enqueue(Command{Kind: CommandBreak, Actor: "miner-1"}); !ok {
			t.Fatalf("expected enqueue %d to succeed", i)
		}
	}
	if len(warned) != 2 || warned[0] != 2 || warned[1] != 4 {
		t.Fatalf("expected warnings at lengths 2 and 4, got %v", warned)
	}
}

func TestLoopAdvanceDrainsIntoCore(t *testing.T) {
	core := &stubCore{}
	var prepared []LoopTickContext
	loop := NewLoop(core, LoopConfig{CommandCapacity: 8}, LoopHooks{
		Prepare: func(ctx LoopTickContext) { prepared = append(prepared, ctx) },
	})

	loop.Enqueue(Command{Kind: CommandBreak, Actor: "miner-1"})
	loop.Enqueue(Command{Kind: CommandPlace, Actor: "miner-2"})
	if got := loop.Pending(); got != 2 {
		t.Fatalf("expected 2 pending commands, got %d", got)
	}

	now := time.Now()
	result := loop.Advance(LoopTickContext{Tick: 7, Now: now, Delta: 0.25})

	if got := loop.Pending(); got != 0 {
		t.Fatalf("expected queue drained by advance, got %d", got)
	}
	if len(core.applied) != 1 || len(core.applied[0]) != 2 {
		t.Fatalf("expected one apply batch of 2 commands, got %v", core.applied)
	}
	if core.steps != 1 {
		t.Fatalf("expected one engine step, got %d", core.steps)
	}
	if len(prepared) != 1 || prepared[0].Tick != 7 {
		t.Fatalf("expected prepare hook for tick 7, got %v", prepared)
	}
	if result.Tick != 7 || !result.Now.Equal(now) || result.Delta != 0.25 {
		t.Fatalf("unexpected step result %+v", result)
	}
	if len(result.Commands) != 2 {
		t.Fatalf("expected executed commands in the result, got %d", len(result.Commands))
	}
	if result.Snapshot.Tick != 1 {
		t.Fatalf("expected post-step snapshot, got tick %d", result.Snapshot.Tick)
	}
}

func TestLoopRunCountsTicks(t *testing.T) {
	core := &stubCore{}
	results := make(chan LoopStepResult, 8)
	loop := NewLoop(core, LoopConfig{TickRate: 200}, LoopHooks{
		AfterStep: func(result LoopStepResult) {
			select {
			case results <- result:
			default:
			}
		},
	})

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		loop.Run(stop)
		close(done)
	}()

	var first, second LoopStepResult
	select {
	case first = <-results:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for first tick")
	}
	select {
	case second = <-results:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for second tick")
	}
	close(stop)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for loop shutdown")
	}

	if first.Tick != 1 || second.Tick != 2 {
		t.Fatalf("expected ticks to count up from 1, got %d then %d", first.Tick, second.Tick)
	}
	if first.Budget != time.Second/200 {
		t.Fatalf("unexpected budget %v", first.Budget)
	}
	if first.Delta <= 0 {
		t.Fatalf("expected positive delta, got %v", first.Delta)
	}
}

func TestLoopNextTickHookOverridesCounter(t *testing.T) {
	core := &stubCore{}
	next := uint64(41)
	ticks := make(chan uint64, 8)
	loop := NewLoop(core, LoopConfig{TickRate: 200}, LoopHooks{
		NextTick: func() uint64 { next++; return next },
		AfterStep: func(result LoopStepResult) {
			select {
			case ticks <- result.Tick:
			default:
			}
		},
	})

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		loop.Run(stop)
		close(done)
	}()

	var seen []uint64
	deadline := time.After(2 * time.Second)
	for len(seen) < 2 {
		select {
		case tick := <-ticks:
			seen = append(seen, tick)
		case <-deadline:
			t.Fatalf("timed out waiting for hooked ticks, saw %v", seen)
		}
	}
	close(stop)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for loop shutdown")
	}

	if seen[0] != 42 || seen[1] != 43 {
		t.Fatalf("expected hook-driven ticks 42 and 43, got %v", seen)
	}
}
