package blocks

import (
	"context"

	"quarry/engine/internal/world"
	"quarry/engine/logging"
)

const (
	// EventBlockCommitted is emitted when a transaction frame commits its captured writes.
	EventBlockCommitted logging.EventType = "block.committed"
	// EventBlockReverted is emitted when a transaction frame rolls its writes back.
	EventBlockReverted logging.EventType = "block.reverted"
)

// CommittedPayload summarises the writes handed to the journal by one commit.
type CommittedPayload struct {
	Kind     string         `json:"kind"`
	Pos      world.BlockPos `json:"pos"`
	Records  int            `json:"records"`
	Drops    int            `json:"drops,omitempty"`
	Promoted bool           `json:"promoted,omitempty"`
}

// Committed publishes a commit summary for a transaction frame.
func Committed(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload CommittedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventBlockCommitted,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryWorld,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}

// RevertedPayload captures why a transaction frame was rolled back and how
// many snapshots were restored.
type RevertedPayload struct {
	Kind     string         `json:"kind"`
	Pos      world.BlockPos `json:"pos"`
	Restored int            `json:"restored"`
	Reason   string         `json:"reason"`
}

// Reverted publishes a warning when a transaction frame rolls back.
func Reverted(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload RevertedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventBlockReverted,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityWarn,
		Category: logging.CategoryWorld,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}
