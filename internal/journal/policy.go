package journal

import (
	"fmt"

	"quarry/engine/internal/world"
)

type KeyframeReason struct {
	Kind string
	Pos  world.BlockPos
}

type KeyframeSignal struct {
	Reverts      uint64
	TotalPatches uint64
	Reasons      []KeyframeReason
}

// Policy watches the patch stream for rollback churn. A burst of reverted
// writes means consumers replaying patches would churn through state that
// was immediately undone, so the journal raises a hint to cut a fresh
// keyframe instead.
type Policy struct {
	totalPatches uint64
	reverts      uint64
	pending      bool
	reasons      []KeyframeReason
}

const revertThresholdPerThousand = 100
const keyframeReasonLimit = 8

func NewPolicy() *Policy {
	return &Policy{reasons: make([]KeyframeReason, 0, keyframeReasonLimit)}
}

func (p *Policy) NotePatch() {
	if p == nil {
		return
	}
	if p.totalPatches == ^uint64(0) {
		p.totalPatches = p.totalPatches / 2
		p.reverts = p.reverts / 2
	}
	p.totalPatches++
}

func (p *Policy) NoteRevert(kind string, pos world.BlockPos) {
	if p == nil {
		return
	}
	p.reverts++
	if len(p.reasons) < keyframeReasonLimit {
		p.reasons = append(p.reasons, KeyframeReason{Kind: kind, Pos: pos})
	}
	p.evaluate()
}

func (p *Policy) evaluate() {
	if p == nil || p.pending || p.reverts == 0 {
		return
	}
	total := p.totalPatches
	if total == 0 {
		total = 1
	}
	if p.reverts*1000 >= total*revertThresholdPerThousand {
		p.pending = true
	}
}

func (p *Policy) Consume() (KeyframeSignal, bool) {
	if p == nil || !p.pending {
		return KeyframeSignal{}, false
	}
	signal := KeyframeSignal{
		Reverts:      p.reverts,
		TotalPatches: p.totalPatches,
		Reasons:      append([]KeyframeReason(nil), p.reasons...),
	}
	p.pending = false
	p.totalPatches = 0
	p.reverts = 0
	if len(p.reasons) > 0 {
		p.reasons = p.reasons[:0]
	}
	return signal, true
}

func (s KeyframeSignal) Summary() string {
	if s.Reverts == 0 && s.TotalPatches == 0 {
		return ""
	}
	return fmt.Sprintf("reverts=%d total_patches=%d reasons=%v", s.Reverts, s.TotalPatches, s.Reasons)
}
